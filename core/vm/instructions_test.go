package vm

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
)

var zeroAddr types.Address

func u256(v uint64) uint256.Int {
	return *uint256.NewInt(v)
}

// testFrame builds a bare frame for exercising opcode handlers directly.
func testFrame() *Frame {
	c := NewContract(zeroAddr, zeroAddr, nil, 1_000_000)
	return &Frame{
		contract: c,
		stack:    NewStack(),
		memory:   NewMemory(),
		substate: NewSubstate(),
	}
}

// runBinOp pushes y then x and applies op, returning the result.
func runBinOp(t *testing.T, op executionFunc, x, y *uint256.Int) *uint256.Int {
	t.Helper()
	f := testFrame()
	f.stack.Push(y)
	f.stack.Push(x)
	var pc uint64
	if _, err := op(&pc, nil, f); err != nil {
		t.Fatalf("op failed: %v", err)
	}
	return f.stack.Peek()
}

var (
	intMin = new(uint256.Int).Lsh(uint256.NewInt(1), 255) // -2^255 as unsigned
	negOne = new(uint256.Int).SetAllOne()
)

func TestOpDivByZero(t *testing.T) {
	if got := runBinOp(t, opDiv, uint256.NewInt(7), uint256.NewInt(0)); !got.IsZero() {
		t.Errorf("7 / 0: want 0, got %v", got)
	}
	if got := runBinOp(t, opMod, uint256.NewInt(7), uint256.NewInt(0)); !got.IsZero() {
		t.Errorf("7 %% 0: want 0, got %v", got)
	}
	if got := runBinOp(t, opSdiv, uint256.NewInt(7), uint256.NewInt(0)); !got.IsZero() {
		t.Errorf("7 sdiv 0: want 0, got %v", got)
	}
	if got := runBinOp(t, opSmod, uint256.NewInt(7), uint256.NewInt(0)); !got.IsZero() {
		t.Errorf("7 smod 0: want 0, got %v", got)
	}
}

func TestOpSdivIntMinOverflow(t *testing.T) {
	// INT_MIN / -1 wraps back to INT_MIN without trapping.
	got := runBinOp(t, opSdiv, new(uint256.Int).Set(intMin), new(uint256.Int).Set(negOne))
	if !got.Eq(intMin) {
		t.Errorf("INT_MIN / -1: want INT_MIN, got %x", got.Bytes32())
	}
}

func TestOpAddWraps(t *testing.T) {
	got := runBinOp(t, opAdd, new(uint256.Int).SetAllOne(), uint256.NewInt(1))
	if !got.IsZero() {
		t.Errorf("MAX + 1: want 0, got %v", got)
	}
}

func TestOpExp(t *testing.T) {
	// a^0 = 1 for every a, including 0^0.
	for _, a := range []uint64{0, 1, 2, 0xffffffff} {
		if got := runBinOp(t, opExp, uint256.NewInt(a), uint256.NewInt(0)); !got.Eq(uint256.NewInt(1)) {
			t.Errorf("%d^0: want 1, got %v", a, got)
		}
	}
	// 0^b = 0 for b > 0.
	if got := runBinOp(t, opExp, uint256.NewInt(0), uint256.NewInt(5)); !got.IsZero() {
		t.Errorf("0^5: want 0, got %v", got)
	}
	if got := runBinOp(t, opExp, uint256.NewInt(2), uint256.NewInt(10)); !got.Eq(uint256.NewInt(1024)) {
		t.Errorf("2^10: want 1024, got %v", got)
	}
}

func TestOpByte(t *testing.T) {
	x := new(uint256.Int).SetBytes([]byte{0xaa, 0xbb}) // ...00aabb
	// Byte 31 is the least significant.
	if got := runBinOp(t, opByte, uint256.NewInt(31), x); !got.Eq(uint256.NewInt(0xbb)) {
		t.Errorf("byte 31: want 0xbb, got %v", got)
	}
	if got := runBinOp(t, opByte, uint256.NewInt(30), x); !got.Eq(uint256.NewInt(0xaa)) {
		t.Errorf("byte 30: want 0xaa, got %v", got)
	}
	// i >= 32 yields zero.
	if got := runBinOp(t, opByte, uint256.NewInt(32), x); !got.IsZero() {
		t.Errorf("byte 32: want 0, got %v", got)
	}
}

func TestOpShifts(t *testing.T) {
	one := uint256.NewInt(1)
	// Shift amounts >= 256 collapse to zero for SHL and SHR.
	if got := runBinOp(t, opSHL, uint256.NewInt(256), one); !got.IsZero() {
		t.Errorf("1 << 256: want 0, got %v", got)
	}
	if got := runBinOp(t, opSHR, uint256.NewInt(256), new(uint256.Int).SetAllOne()); !got.IsZero() {
		t.Errorf("MAX >> 256: want 0, got %v", got)
	}
	if got := runBinOp(t, opSHL, uint256.NewInt(4), one); !got.Eq(uint256.NewInt(16)) {
		t.Errorf("1 << 4: want 16, got %v", got)
	}
	// SAR >= 256: zero for non-negative, all-ones for negative.
	if got := runBinOp(t, opSAR, uint256.NewInt(256), uint256.NewInt(100)); !got.IsZero() {
		t.Errorf("SAR 256 of positive: want 0, got %v", got)
	}
	if got := runBinOp(t, opSAR, uint256.NewInt(256), new(uint256.Int).Set(intMin)); !got.Eq(negOne) {
		t.Errorf("SAR 256 of negative: want -1, got %v", got)
	}
	// SAR preserves the sign bit for in-range shifts.
	if got := runBinOp(t, opSAR, uint256.NewInt(255), new(uint256.Int).Set(intMin)); !got.Eq(negOne) {
		t.Errorf("SAR 255 of INT_MIN: want -1, got %v", got)
	}
}

func TestOpSignExtend(t *testing.T) {
	// Sign-extend 0xff from byte 0: becomes -1.
	got := runBinOp(t, opSignExtend, uint256.NewInt(0), uint256.NewInt(0xff))
	if !got.Eq(negOne) {
		t.Errorf("signextend(0, 0xff): want -1, got %x", got.Bytes32())
	}
	// 0x7f stays positive.
	got = runBinOp(t, opSignExtend, uint256.NewInt(0), uint256.NewInt(0x7f))
	if !got.Eq(uint256.NewInt(0x7f)) {
		t.Errorf("signextend(0, 0x7f): want 0x7f, got %v", got)
	}
}

func TestOpComparisons(t *testing.T) {
	minusOne := new(uint256.Int).SetAllOne()
	// Unsigned: -1 is the maximum.
	if got := runBinOp(t, opLt, minusOne, uint256.NewInt(1)); !got.IsZero() {
		t.Errorf("MAX < 1: want 0")
	}
	// Signed: -1 < 1.
	if got := runBinOp(t, opSlt, new(uint256.Int).SetAllOne(), uint256.NewInt(1)); !got.Eq(uint256.NewInt(1)) {
		t.Errorf("-1 slt 1: want 1")
	}
}

func TestWordCodecRoundtrip(t *testing.T) {
	vals := []uint256.Int{
		u256(0), u256(1), u256(0xdeadbeef),
		*new(uint256.Int).SetAllOne(),
		*new(uint256.Int).Lsh(uint256.NewInt(1), 255),
	}
	for _, v := range vals {
		enc := v.Bytes32()
		if len(enc) != 32 {
			t.Fatalf("encoding not 32 bytes")
		}
		var dec uint256.Int
		dec.SetBytes32(enc[:])
		if !dec.Eq(&v) {
			t.Errorf("roundtrip mismatch: %x", enc)
		}
	}
}

func TestGetData(t *testing.T) {
	data := []byte{1, 2, 3}
	if got := getData(data, 0, 5); len(got) != 5 || got[3] != 0 || got[0] != 1 {
		t.Errorf("getData pad: %x", got)
	}
	if got := getData(data, 10, 4); len(got) != 4 || got[0] != 0 {
		t.Errorf("getData past end: %x", got)
	}
}
