package vm

import "testing"

func TestCodeBitmapMarksPushData(t *testing.T) {
	// PUSH2 0x5b5b JUMPDEST: the two 0x5b immediates are not code.
	code := []byte{byte(PUSH2), 0x5b, 0x5b, byte(JUMPDEST)}
	bits := codeBitmap(code)
	if !bits.codeSegment(0) {
		t.Errorf("PUSH2 position should be code")
	}
	if bits.codeSegment(1) || bits.codeSegment(2) {
		t.Errorf("push immediates marked as code")
	}
	if !bits.codeSegment(3) {
		t.Errorf("JUMPDEST position should be code")
	}
}

func TestCodeBitmapTruncatedPush(t *testing.T) {
	// Analysis is total: a PUSH whose immediate runs past the end of
	// code must not panic or loop.
	for _, code := range [][]byte{
		{byte(PUSH32)},
		{byte(PUSH32), 0x01},
		{byte(PUSH1)},
		{},
	} {
		bits := codeBitmap(code)
		for i := uint64(0); i < uint64(len(code)); i++ {
			bits.codeSegment(i) // must not panic
		}
	}
}

func TestValidJumpdest(t *testing.T) {
	// [0] PUSH1 0x5b  [2] JUMPDEST  [3] STOP
	code := []byte{byte(PUSH1), 0x5b, byte(JUMPDEST), byte(STOP)}
	c := NewContract(zeroAddr, zeroAddr, nil, 0)
	c.Code = code

	tests := []struct {
		dest  uint64
		valid bool
	}{
		{0, false}, // PUSH1, not a JUMPDEST
		{1, false}, // 0x5b but inside push data
		{2, true},  // real JUMPDEST
		{3, false}, // STOP
		{4, false}, // out of code
	}
	for _, tt := range tests {
		d := u256(tt.dest)
		if got := c.validJumpdest(&d); got != tt.valid {
			t.Errorf("validJumpdest(%d): want %v, got %v", tt.dest, tt.valid, got)
		}
	}
}
