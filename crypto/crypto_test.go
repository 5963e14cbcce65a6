package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/evmcore/evmcore/core/types"
)

func TestKeccak256Empty(t *testing.T) {
	want, _ := hex.DecodeString("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
	if got := Keccak256(); !bytes.Equal(got, want) {
		t.Errorf("keccak256(empty): got %x", got)
	}
	if got := Keccak256(nil); !bytes.Equal(got, want) {
		t.Errorf("keccak256(nil): got %x", got)
	}
}

func TestKeccak256KnownVector(t *testing.T) {
	// keccak256("abc")
	want, _ := hex.DecodeString("4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45")
	if got := Keccak256([]byte("abc")); !bytes.Equal(got, want) {
		t.Errorf("keccak256(abc): got %x", got)
	}
	// Multi-chunk input hashes the concatenation.
	if got := Keccak256([]byte("a"), []byte("bc")); !bytes.Equal(got, want) {
		t.Errorf("keccak256(a, bc): got %x", got)
	}
}

func TestCreateAddress(t *testing.T) {
	// Known vector: sender 0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0, nonce 0.
	sender := types.HexToAddress("0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0")
	if got := CreateAddress(sender, 0); got != types.HexToAddress("0xcd234a471b72ba2f1ccf0a70fcaba648a5eecd8d") {
		t.Errorf("create address nonce 0: got %v", got)
	}
	// Consecutive nonces yield distinct addresses.
	if CreateAddress(sender, 1) == CreateAddress(sender, 2) {
		t.Errorf("nonce must affect the created address")
	}
}

func TestCreateAddress2(t *testing.T) {
	// EIP-1014 example: sender 0x00..00, salt 0x00..00, init code 0x00.
	got := CreateAddress2(types.Address{}, types.Hash{}, Keccak256([]byte{0x00}))
	want := types.HexToAddress("0x4d1a2e2bb4f88f0250f26ffff098b0b30b26bf38")
	if got != want {
		t.Errorf("create2 address: got %v, want %v", got, want)
	}
}
