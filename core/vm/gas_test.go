package vm

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestToWordSize(t *testing.T) {
	tests := []struct{ size, words uint64 }{
		{0, 0}, {1, 1}, {31, 1}, {32, 1}, {33, 2}, {64, 2}, {65, 3},
	}
	for _, tt := range tests {
		if got := toWordSize(tt.size); got != tt.words {
			t.Errorf("toWordSize(%d): want %d, got %d", tt.size, tt.words, got)
		}
	}
}

func TestMemoryGasCost(t *testing.T) {
	m := NewMemory()
	// First word: 3*1 + 1/512 = 3.
	if fee, err := memoryGasCost(m, 32); err != nil || fee != 3 {
		t.Errorf("first word: want 3, got %d (%v)", fee, err)
	}
	m.Resize(32)
	// Growing to 2 words: total 6, marginal 3.
	if fee, err := memoryGasCost(m, 64); err != nil || fee != 3 {
		t.Errorf("second word: want 3, got %d (%v)", fee, err)
	}
	m.Resize(64)
	// No growth, no fee.
	if fee, err := memoryGasCost(m, 32); err != nil || fee != 0 {
		t.Errorf("no growth: want 0, got %d (%v)", fee, err)
	}
	// The quadratic term kicks in: 1024 words = 3*1024 + 1024²/512 = 5120.
	m2 := NewMemory()
	if fee, err := memoryGasCost(m2, 1024*32); err != nil || fee != 5120 {
		t.Errorf("1024 words: want 5120, got %d (%v)", fee, err)
	}
	// Overflow guard.
	if _, err := memoryGasCost(NewMemory(), 0x1FFFFFFFE1); err != ErrGasUintOverflow {
		t.Errorf("overflow not detected: %v", err)
	}
}

func TestCallGas63of64(t *testing.T) {
	// Requested more than the cap: forward all but 1/64.
	got, err := callGas(true, 64_000, 0, uint256.NewInt(100_000))
	if err != nil || got != 63_000 {
		t.Errorf("want 63000, got %d (%v)", got, err)
	}
	// Requested less than the cap: forward the request.
	got, err = callGas(true, 64_000, 0, uint256.NewInt(1_000))
	if err != nil || got != 1_000 {
		t.Errorf("want 1000, got %d (%v)", got, err)
	}
	// Base cost is subtracted before the retention computation.
	got, err = callGas(true, 64_064, 64, uint256.NewInt(100_000))
	if err != nil || got != 63_000 {
		t.Errorf("with base: want 63000, got %d (%v)", got, err)
	}
	// Pre-EIP150: the request is forwarded verbatim (the caller faults
	// later if it cannot pay).
	got, err = callGas(false, 100, 0, uint256.NewInt(5_000))
	if err != nil || got != 5_000 {
		t.Errorf("pre-150: want 5000, got %d (%v)", got, err)
	}
	// A request that does not fit uint64 overflows pre-150.
	huge := new(uint256.Int).Lsh(uint256.NewInt(1), 64)
	if _, err := callGas(false, 100, 0, huge); err != ErrGasUintOverflow {
		t.Errorf("overflow not detected: %v", err)
	}
}

func TestSafeMath(t *testing.T) {
	if _, overflow := safeAdd(^uint64(0), 1); !overflow {
		t.Errorf("safeAdd overflow missed")
	}
	if v, overflow := safeAdd(1, 2); overflow || v != 3 {
		t.Errorf("safeAdd: %d %v", v, overflow)
	}
	if _, overflow := safeMul(^uint64(0), 2); !overflow {
		t.Errorf("safeMul overflow missed")
	}
	if v, overflow := safeMul(0, ^uint64(0)); overflow || v != 0 {
		t.Errorf("safeMul zero: %d %v", v, overflow)
	}
}
