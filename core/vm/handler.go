package vm

import (
	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
)

// RuntimeHandler is the boundary between the interpreter core and the
// host. It externalizes everything persistent: accounts, storage, block
// data and precompiles. One handler instance serves all frames of one
// execution; its checkpoint stack mirrors the frame stack.
//
// Every method must be deterministic for the duration of one execution:
// a resumed frame replaying a query must observe the same answer.
type RuntimeHandler interface {
	// Account reads.
	Balance(addr types.Address) *uint256.Int
	Nonce(addr types.Address) uint64
	Code(addr types.Address) []byte
	CodeSize(addr types.Address) int
	CodeHash(addr types.Address) types.Hash
	Exist(addr types.Address) bool
	Empty(addr types.Address) bool

	// Storage.
	Storage(addr types.Address, slot types.Hash) types.Hash
	OriginalStorage(addr types.Address, slot types.Hash) types.Hash
	SetStorage(addr types.Address, slot, value types.Hash)

	// Transient storage (EIP-1153). Cleared by the host between
	// transactions; checkpointed like persistent storage within one.
	TransientStorage(addr types.Address, slot types.Hash) types.Hash
	SetTransientStorage(addr types.Address, slot, value types.Hash)

	// Account writes.
	CreateAccount(addr types.Address)
	Transfer(from, to types.Address, value *uint256.Int)
	IncrementNonce(addr types.Address)
	DepositCode(addr types.Address, code []byte)
	MarkSelfdestruct(addr, beneficiary types.Address)

	// Log emission. Rolled back with the enclosing checkpoint.
	EmitLog(l *types.Log)

	// Warm/cold tracking (EIP-2929). Additions are rolled back with the
	// enclosing checkpoint.
	AddressInAccessList(addr types.Address) bool
	SlotInAccessList(addr types.Address, slot types.Hash) (addressOk, slotOk bool)
	MarkWarmAddress(addr types.Address)
	MarkWarmSlot(addr types.Address, slot types.Hash)

	// Checkpoint protocol. Nestable to the call depth limit. Commit is
	// advisory: a host may fold a child's journal into its parent's.
	Checkpoint() int
	Revert(id int)
	Commit(id int)

	// Block data.
	BlockHash(number uint64) types.Hash

	// Precompile dispatch. The second return is false when addr is not a
	// precompiled contract.
	Precompile(addr types.Address) (PrecompiledContract, bool)
}

// PrecompiledContract is the interface of a natively implemented contract.
type PrecompiledContract interface {
	RequiredGas(input []byte) uint64
	Run(input []byte) ([]byte, error)
}

// runPrecompile executes a precompiled contract, charging its required gas
// up front. A failing precompile consumes all forwarded gas.
func runPrecompile(p PrecompiledContract, input []byte, gas uint64) ([]byte, uint64, error) {
	gasCost := p.RequiredGas(input)
	if gas < gasCost {
		return nil, 0, ErrOutOfGas
	}
	output, err := p.Run(input)
	if err != nil {
		return nil, 0, err
	}
	return output, gas - gasCost, nil
}

// BlockContext provides the interpreter with block-level information.
type BlockContext struct {
	Coinbase    types.Address
	Number      uint64
	Time        uint64
	GasLimit    uint64
	PrevRandao  types.Hash // difficulty pre-merge, prevrandao after
	BaseFee     *uint256.Int
	BlobBaseFee *uint256.Int
}

// TxContext provides the interpreter with transaction-level information.
type TxContext struct {
	Origin     types.Address
	GasPrice   *uint256.Int
	AccessList types.AccessList
	BlobHashes []types.Hash
}
