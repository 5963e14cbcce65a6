package vm

import (
	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
)

// Contract holds the immutable execution context of one frame: the code
// being run, the call data, the identities involved and the gas budget.
type Contract struct {
	CallerAddress types.Address
	Address       types.Address // address whose storage and balance this frame touches
	Code          []byte
	CodeHash      types.Hash
	Input         []byte
	Gas           uint64
	Value         *uint256.Int

	// IsDeployment marks init-code frames spawned by CREATE/CREATE2.
	IsDeployment bool

	analysis bitvec // JUMPDEST analysis, lazily computed or cache-injected
}

// NewContract creates a contract execution context.
func NewContract(caller, addr types.Address, value *uint256.Int, gas uint64) *Contract {
	if value == nil {
		value = new(uint256.Int)
	}
	return &Contract{
		CallerAddress: caller,
		Address:       addr,
		Value:         value,
		Gas:           gas,
	}
}

// SetCallCode sets the code and code hash to execute.
func (c *Contract) SetCallCode(hash types.Hash, code []byte) {
	c.Code = code
	c.CodeHash = hash
}

// GetOp returns the opcode at position n, or STOP past the end of code.
func (c *Contract) GetOp(n uint64) OpCode {
	if n < uint64(len(c.Code)) {
		return OpCode(c.Code[n])
	}
	return STOP
}

// UseGas attempts to consume the given gas. Returns false if insufficient.
func (c *Contract) UseGas(gas uint64) bool {
	if c.Gas < gas {
		return false
	}
	c.Gas -= gas
	return true
}

// RefundGas returns unused gas to the contract (after a child call).
func (c *Contract) RefundGas(gas uint64) {
	c.Gas += gas
}

// validJumpdest checks whether dest is a valid jump target: inside the
// code, a JUMPDEST byte, and not inside a PUSH immediate region.
func (c *Contract) validJumpdest(dest *uint256.Int) bool {
	udest, overflow := dest.Uint64WithOverflow()
	if overflow || udest >= uint64(len(c.Code)) {
		return false
	}
	if OpCode(c.Code[udest]) != JUMPDEST {
		return false
	}
	return c.isCode(udest)
}

// isCode returns true if the position is an opcode start, computing the
// code bitmap on first use unless the executor injected a cached one.
func (c *Contract) isCode(pos uint64) bool {
	if c.analysis == nil {
		c.analysis = codeBitmap(c.Code)
	}
	return c.analysis.codeSegment(pos)
}
