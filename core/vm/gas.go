package vm

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/params"
)

// toWordSize returns the ceiled word count of a byte size.
func toWordSize(size uint64) uint64 {
	if size > math.MaxUint64-31 {
		return size/32 + 1
	}
	return (size + 31) / 32
}

// safeAdd returns a+b and whether the addition overflowed.
func safeAdd(a, b uint64) (uint64, bool) {
	return a + b, a > math.MaxUint64-b
}

// safeMul returns a*b and whether the multiplication overflowed.
func safeMul(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	return a * b, b > math.MaxUint64/a
}

// memoryGasCost computes the marginal cost of growing memory to
// newMemSize bytes: total(w) = 3*w + w*w/512 over 32-byte words, charged
// as the difference from the previously paid total.
func memoryGasCost(mem *Memory, newMemSize uint64) (uint64, error) {
	if newMemSize == 0 {
		return 0, nil
	}
	// Anything above this would overflow the gas math; the frame cannot
	// afford it anyway.
	if newMemSize > 0x1FFFFFFFE0 {
		return 0, ErrGasUintOverflow
	}
	newMemSizeWords := toWordSize(newMemSize)
	newMemSize = newMemSizeWords * 32

	if newMemSize > uint64(mem.Len()) {
		square := newMemSizeWords * newMemSizeWords
		linCoef := newMemSizeWords * params.MemoryGas
		quadCoef := square / params.QuadCoeffDiv
		newTotalFee := linCoef + quadCoef

		fee := newTotalFee - mem.lastGasCost
		mem.lastGasCost = newTotalFee
		return fee, nil
	}
	return 0, nil
}

// callGas computes the gas forwarded to a child call. Under EIP-150 the
// caller retains at least 1/64 of what remains after the opcode's other
// costs (base); the child receives the lesser of that cap and the
// requested amount.
func callGas(has63of64 bool, availableGas, base uint64, callCost *uint256.Int) (uint64, error) {
	if has63of64 {
		availableGas = availableGas - base
		gas := availableGas - availableGas/64
		if !callCost.IsUint64() || gas < callCost.Uint64() {
			return gas, nil
		}
	}
	if !callCost.IsUint64() {
		return 0, ErrGasUintOverflow
	}
	return callCost.Uint64(), nil
}
