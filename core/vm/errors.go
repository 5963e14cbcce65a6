package vm

import (
	"errors"
	"fmt"
)

// Sentinel errors terminating a frame. ErrExecutionReverted keeps the
// frame's remaining gas, and ErrDepth, ErrInsufficientBalance and
// ErrNonceUintOverflow are raised before a child frame starts and hand the
// forwarded gas back to the caller; every other one consumes all gas of
// the faulting frame.
var (
	ErrOutOfGas                 = errors.New("out of gas")
	ErrCodeStoreOutOfGas        = errors.New("contract creation code storage out of gas")
	ErrDepth                    = errors.New("max call depth exceeded")
	ErrInsufficientBalance      = errors.New("insufficient balance for transfer")
	ErrContractAddressCollision = errors.New("contract address collision")
	ErrExecutionReverted        = errors.New("execution reverted")
	ErrMaxCodeSizeExceeded      = errors.New("max code size exceeded")
	ErrMaxInitCodeSizeExceeded  = errors.New("max initcode size exceeded")
	ErrInvalidJump              = errors.New("invalid jump destination")
	ErrWriteProtection          = errors.New("write protection")
	ErrReturnDataOutOfBounds    = errors.New("return data out of bounds")
	ErrGasUintOverflow          = errors.New("gas uint64 overflow")
	ErrInvalidCode              = errors.New("invalid code: must not begin with 0xef")
	ErrNonceUintOverflow        = errors.New("nonce uint64 overflow")

	// ErrHostAbort means the host refused to satisfy a suspension request.
	// Unlike the errors above it aborts the whole execution, not just the
	// current frame.
	ErrHostAbort = errors.New("host aborted execution")
)

// ErrStackUnderflow wraps an evm error when the items on the stack are
// fewer than the operation requires.
type ErrStackUnderflow struct {
	stackLen int
	required int
}

func (e *ErrStackUnderflow) Error() string {
	return fmt.Sprintf("stack underflow (%d <=> %d)", e.stackLen, e.required)
}

// ErrStackOverflow wraps an evm error when the items on the stack exceed
// the maximum allowed.
type ErrStackOverflow struct {
	stackLen int
	limit    int
}

func (e *ErrStackOverflow) Error() string {
	return fmt.Sprintf("stack limit reached %d (%d)", e.stackLen, e.limit)
}

// ErrInvalidOpCode wraps an evm error when an invalid opcode is encountered.
type ErrInvalidOpCode struct {
	opcode OpCode
}

func (e *ErrInvalidOpCode) Error() string {
	return fmt.Sprintf("invalid opcode: %s", e.opcode)
}

// ExitKind classifies how an execution ended.
type ExitKind uint8

const (
	// ExitSucceed: the frame stopped or returned normally.
	ExitSucceed ExitKind = iota
	// ExitRevert: an explicit REVERT; remaining gas is preserved.
	ExitRevert
	// ExitError: an exceptional halt; all gas in the frame is consumed.
	ExitError
	// ExitFatal: the whole execution aborted; no state was committed.
	ExitFatal
)

// String returns the name of the exit kind.
func (k ExitKind) String() string {
	switch k {
	case ExitSucceed:
		return "succeed"
	case ExitRevert:
		return "revert"
	case ExitError:
		return "error"
	case ExitFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ExitReason pairs the coarse exit classification with the underlying
// error, nil for a normal stop or return.
type ExitReason struct {
	Kind ExitKind
	Err  error
}

// Succeeded reports whether the execution ended normally.
func (r ExitReason) Succeeded() bool { return r.Kind == ExitSucceed }

// Reverted reports whether the execution ended in an explicit REVERT.
func (r ExitReason) Reverted() bool { return r.Kind == ExitRevert }

// exitReasonOf maps a frame error to the exit taxonomy.
func exitReasonOf(err error) ExitReason {
	switch {
	case err == nil:
		return ExitReason{Kind: ExitSucceed}
	case errors.Is(err, ErrExecutionReverted):
		return ExitReason{Kind: ExitRevert, Err: err}
	case errors.Is(err, ErrHostAbort):
		return ExitReason{Kind: ExitFatal, Err: err}
	default:
		return ExitReason{Kind: ExitError, Err: err}
	}
}
