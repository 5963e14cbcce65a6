package runtime

import (
	"crypto/sha256"

	"github.com/evmcore/evmcore/core/types"
	"github.com/evmcore/evmcore/core/vm"
)

// The harness ships only the trivial precompiles; cryptographic ones
// (ecrecover, ripemd160, modexp, the pairing suite) are the embedding
// host's concern and are registered via HostState.SetPrecompile.

type sha256hash struct{}

func (sha256hash) RequiredGas(input []byte) uint64 {
	return uint64(len(input)+31)/32*12 + 60
}

func (sha256hash) Run(input []byte) ([]byte, error) {
	h := sha256.Sum256(input)
	return h[:], nil
}

type identity struct{}

func (identity) RequiredGas(input []byte) uint64 {
	return uint64(len(input)+31)/32*3 + 15
}

func (identity) Run(input []byte) ([]byte, error) {
	out := make([]byte, len(input))
	copy(out, input)
	return out, nil
}

func defaultPrecompiles() map[types.Address]vm.PrecompiledContract {
	return map[types.Address]vm.PrecompiledContract{
		types.BytesToAddress([]byte{0x02}): sha256hash{},
		types.BytesToAddress([]byte{0x04}): identity{},
	}
}

// PrecompileAddresses lists the registered precompile addresses, useful
// for pre-warming under EIP-2929.
func (s *HostState) PrecompileAddresses() []types.Address {
	addrs := make([]types.Address, 0, len(s.precompiles))
	for a := range s.precompiles {
		addrs = append(addrs, a)
	}
	return addrs
}
