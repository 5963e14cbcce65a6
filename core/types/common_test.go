package types

import "testing"

func TestHashSetBytes(t *testing.T) {
	h := BytesToHash([]byte{0x01, 0x02})
	// Short input is left-padded.
	if h[31] != 0x02 || h[30] != 0x01 || h[0] != 0 {
		t.Errorf("left padding wrong: %v", h)
	}
	// Long input is cropped from the left.
	long := make([]byte, 40)
	long[39] = 0xaa
	if got := BytesToHash(long); got[31] != 0xaa {
		t.Errorf("cropping wrong: %v", got)
	}
}

func TestAddressHexRoundtrip(t *testing.T) {
	a := HexToAddress("0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0")
	if HexToAddress(a.Hex()) != a {
		t.Errorf("hex roundtrip failed: %v", a)
	}
	if !HexToAddress("0x0").IsZero() {
		t.Errorf("zero address not zero")
	}
}

func TestAddressToHash(t *testing.T) {
	a := HexToAddress("0xff")
	h := a.Hash()
	if h[31] != 0xff || h[11] != 0 {
		t.Errorf("address not right-aligned in hash: %v", h)
	}
}

func TestLogCopy(t *testing.T) {
	l := &Log{
		Address: HexToAddress("0x01"),
		Topics:  []Hash{BytesToHash([]byte{0x02})},
		Data:    []byte{1, 2, 3},
	}
	cp := l.Copy()
	cp.Topics[0] = Hash{}
	cp.Data[0] = 9
	if l.Topics[0].IsZero() || l.Data[0] != 1 {
		t.Errorf("Copy aliases the original")
	}
}
