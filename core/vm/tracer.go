package vm

import (
	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
)

// EVMLogger captures execution traces step by step. Implementations are
// pure observers: they may read the frame snapshots handed to them but
// must not mutate execution state, and they cannot fault the core.
type EVMLogger interface {
	// CaptureStart is called at the beginning of a top-level call.
	CaptureStart(from, to types.Address, create bool, input []byte, gas uint64, value *uint256.Int)
	// CaptureState is called before each opcode executes.
	CaptureState(pc uint64, op OpCode, gas, cost uint64, f *Frame, depth int, err error)
	// CaptureFault is called when an opcode faults exceptionally.
	CaptureFault(pc uint64, op OpCode, gas, cost uint64, depth int, err error)
	// CaptureEnter is called when execution descends into a child frame.
	CaptureEnter(typ CallFrameType, from, to types.Address, input []byte, gas uint64, value *uint256.Int)
	// CaptureExit is called when a child frame terminates.
	CaptureExit(output []byte, gasLeft uint64, err error)
	// CaptureEnd is called at the end of a top-level call.
	CaptureEnd(output []byte, gasUsed uint64, err error)
}

// StructLogEntry is a single step recorded by StructLogTracer.
type StructLogEntry struct {
	Pc      uint64
	Op      OpCode
	Gas     uint64
	GasCost uint64
	Depth   int
	Stack   []uint256.Int
	Err     error
}

// StructLogTracer collects step-by-step execution logs. It is the
// reference EVMLogger used by tests and debuggers.
type StructLogTracer struct {
	Logs    []StructLogEntry
	output  []byte
	err     error
	gasUsed uint64
}

// NewStructLogTracer returns an empty StructLogTracer.
func NewStructLogTracer() *StructLogTracer {
	return &StructLogTracer{}
}

// CaptureStart resets the tracer so it can be reused across executions.
func (t *StructLogTracer) CaptureStart(from, to types.Address, create bool, input []byte, gas uint64, value *uint256.Int) {
	t.Logs = t.Logs[:0]
	t.output = nil
	t.err = nil
	t.gasUsed = 0
}

// CaptureState records one opcode step with a copy of the operand stack.
func (t *StructLogTracer) CaptureState(pc uint64, op OpCode, gas, cost uint64, f *Frame, depth int, err error) {
	data := f.Stack().Data()
	stackCopy := make([]uint256.Int, len(data))
	copy(stackCopy, data)
	t.Logs = append(t.Logs, StructLogEntry{
		Pc:      pc,
		Op:      op,
		Gas:     gas,
		GasCost: cost,
		Depth:   depth,
		Stack:   stackCopy,
		Err:     err,
	})
}

// CaptureFault records the faulting step.
func (t *StructLogTracer) CaptureFault(pc uint64, op OpCode, gas, cost uint64, depth int, err error) {
	t.Logs = append(t.Logs, StructLogEntry{Pc: pc, Op: op, Gas: gas, GasCost: cost, Depth: depth, Err: err})
}

// CaptureEnter is a no-op; frame depth is visible on each step entry.
func (t *StructLogTracer) CaptureEnter(typ CallFrameType, from, to types.Address, input []byte, gas uint64, value *uint256.Int) {
}

// CaptureExit is a no-op.
func (t *StructLogTracer) CaptureExit(output []byte, gasLeft uint64, err error) {}

// CaptureEnd records the terminal result.
func (t *StructLogTracer) CaptureEnd(output []byte, gasUsed uint64, err error) {
	t.output = output
	t.gasUsed = gasUsed
	t.err = err
}

// Output returns the return data from the traced execution.
func (t *StructLogTracer) Output() []byte { return t.output }

// GasUsed returns the total gas consumed by the traced execution.
func (t *StructLogTracer) GasUsed() uint64 { return t.gasUsed }

// Error returns the error from the traced execution, if any.
func (t *StructLogTracer) Error() error { return t.err }
