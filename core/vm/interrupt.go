package vm

import (
	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
)

// Status is the observable state of a frame between steps.
type Status uint8

const (
	// StatusRunning: the frame can execute its next opcode.
	StatusRunning Status = iota
	// StatusSuspended: the frame is waiting for the executor to satisfy
	// an Interrupt; pc still points at the suspending opcode.
	StatusSuspended
	// StatusExited: the frame reached a terminal state.
	StatusExited
)

// String returns the name of the status.
func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusSuspended:
		return "suspended"
	case StatusExited:
		return "exited"
	default:
		return "unknown"
	}
}

// CallFrameType enumerates how a frame was entered.
type CallFrameType uint8

const (
	FrameCall         CallFrameType = iota // CALL opcode or a top-level message call
	FrameStaticCall                        // STATICCALL opcode
	FrameDelegateCall                      // DELEGATECALL opcode
	FrameCallCode                          // CALLCODE opcode
	FrameCreate                            // CREATE opcode or a creation transaction
	FrameCreate2                           // CREATE2 opcode
)

// String returns the opcode mnemonic of the frame type.
func (ft CallFrameType) String() string {
	switch ft {
	case FrameCall:
		return "CALL"
	case FrameStaticCall:
		return "STATICCALL"
	case FrameDelegateCall:
		return "DELEGATECALL"
	case FrameCallCode:
		return "CALLCODE"
	case FrameCreate:
		return "CREATE"
	case FrameCreate2:
		return "CREATE2"
	default:
		return "UNKNOWN"
	}
}

// IsCreate returns true if this frame type is a contract creation.
func (ft CallFrameType) IsCreate() bool {
	return ft == FrameCreate || ft == FrameCreate2
}

// QueryKind identifies what a suspended frame is asking the host for.
type QueryKind uint8

const (
	QueryBalance  QueryKind = iota // resume value: *uint256.Int
	QueryStorage                   // resume value: types.Hash
	QueryCodeSize                  // resume value: int
	QueryCodeHash                  // resume value: types.Hash
	QueryCode                      // resume value: []byte
)

// StateQuery asks the executor for one piece of external state.
type StateQuery struct {
	Kind    QueryKind
	Address types.Address
	Slot    types.Hash // set for QueryStorage only
}

// CallRequest asks the executor to run a nested message call. The
// requesting frame has already paid the forwarded gas.
type CallRequest struct {
	Type           CallFrameType
	Caller         types.Address // caller as observed by the callee
	Target         types.Address // address context (storage, balance) of the callee
	CodeAddress    types.Address // account whose code runs
	Value          *uint256.Int  // apparent value (CALLVALUE in the callee)
	TransfersValue bool          // whether balance actually moves
	Input          []byte
	Gas            uint64 // forwarded gas, stipend included
	ReadOnly       bool
}

// CreateRequest asks the executor to run a contract creation.
type CreateRequest struct {
	Type     CallFrameType // FrameCreate or FrameCreate2
	Caller   types.Address
	Value    *uint256.Int
	InitCode []byte
	Salt     types.Hash // FrameCreate2 only
	Gas      uint64
}

// Interrupt is the payload of a suspended frame: exactly one field is set.
type Interrupt struct {
	Query  *StateQuery
	Call   *CallRequest
	Create *CreateRequest
}

// CallResult is the resume value delivered for a CallRequest.
type CallResult struct {
	Err     error // nil on success, ErrExecutionReverted on revert
	Output  []byte
	GasLeft uint64
}

// CreateResult is the resume value delivered for a CreateRequest.
type CreateResult struct {
	Err     error
	Address types.Address // zero unless creation succeeded
	Output  []byte        // revert payload, if any
	GasLeft uint64
}
