package vm

import (
	"errors"
	"fmt"

	"github.com/evmcore/evmcore/core/types"
)

// errSuspended is the internal signal an opcode handler returns after
// parking an Interrupt on the frame. Never observable outside the package.
var errSuspended = errors.New("frame suspended")

// Frame is the per-call execution record: one entry of the executor's
// call stack. It owns its stack, memory, program counter and substate
// exclusively; nothing is shared between frames.
type Frame struct {
	typ      CallFrameType
	contract *Contract
	stack    *Stack
	memory   *Memory
	pc       uint64
	depth    int
	readOnly bool

	// returnData buffers the output of the most recent completed
	// sub-call, readable via RETURNDATASIZE/RETURNDATACOPY.
	returnData []byte

	status    Status
	interrupt *Interrupt
	resumeFn  func(any) error

	// Terminal results, valid once status is StatusExited.
	ret []byte
	err error

	substate    *Substate
	checkpoint  int           // handler checkpoint taken at frame entry
	callGasTemp uint64        // forwarded gas computed by CALL-family dynamic gas
	createdAddr types.Address // set for create frames
}

// Status returns the frame's current lifecycle state.
func (f *Frame) Status() Status { return f.status }

// Interrupt returns the pending interrupt of a suspended frame, nil
// otherwise.
func (f *Frame) Interrupt() *Interrupt { return f.interrupt }

// Contract returns the frame's execution context.
func (f *Frame) Contract() *Contract { return f.contract }

// Stack returns the frame's operand stack.
func (f *Frame) Stack() *Stack { return f.stack }

// Memory returns the frame's memory.
func (f *Frame) Memory() *Memory { return f.memory }

// PC returns the current program counter.
func (f *Frame) PC() uint64 { return f.pc }

// Depth returns the frame's call depth (0 = top-level).
func (f *Frame) Depth() int { return f.depth }

// ReadOnly reports whether the frame runs in a static context.
func (f *Frame) ReadOnly() bool { return f.readOnly }

// Err returns the terminal error of an exited frame.
func (f *Frame) Err() error { return f.err }

// suspend parks an interrupt and its continuation on the frame. The pc is
// left pointing at the suspending opcode; resume advances it.
func (f *Frame) suspend(intr *Interrupt, resume func(any) error) ([]byte, error) {
	f.interrupt = intr
	f.resumeFn = resume
	return nil, errSuspended
}

// setReturnData latches a copy of a completed sub-call's output.
func (f *Frame) setReturnData(data []byte) {
	if len(data) == 0 {
		f.returnData = nil
		return
	}
	f.returnData = make([]byte, len(data))
	copy(f.returnData, data)
}

func (f *Frame) exit(ret []byte, err error) {
	f.ret = ret
	f.err = err
	f.status = StatusExited
}

// runFrame drives a frame until it suspends or exits. Gas charging order:
// constant gas, then dynamic gas (which includes memory expansion cost),
// then the memory resize, then the operation itself.
func (ev *Executor) runFrame(f *Frame) {
	for f.status == StatusRunning {
		if ev.aborted {
			f.exit(nil, ErrHostAbort)
			return
		}
		op := f.contract.GetOp(f.pc)
		operation := ev.table[op]
		if operation == nil {
			f.exit(nil, &ErrInvalidOpCode{opcode: op})
			return
		}

		// Stack validation.
		if sLen := f.stack.Len(); sLen < operation.minStack {
			f.exit(nil, &ErrStackUnderflow{stackLen: sLen, required: operation.minStack})
			return
		} else if sLen > operation.maxStack {
			f.exit(nil, &ErrStackOverflow{stackLen: sLen, limit: operation.maxStack})
			return
		}

		// Static context: state-mutating opcodes fault.
		if f.readOnly && operation.writes {
			f.exit(nil, ErrWriteProtection)
			return
		}

		gasBefore := f.contract.Gas

		if operation.constantGas > 0 && !f.contract.UseGas(operation.constantGas) {
			f.exit(nil, ErrOutOfGas)
			return
		}

		// Required memory size, word-aligned; computed before dynamic gas
		// so expansion overflow is caught first.
		var memorySize uint64
		if operation.memorySize != nil {
			memSize, overflow := operation.memorySize(f.stack)
			if overflow {
				f.exit(nil, ErrGasUintOverflow)
				return
			}
			if memorySize, overflow = safeMul(toWordSize(memSize), 32); overflow {
				f.exit(nil, ErrGasUintOverflow)
				return
			}
		}

		if operation.dynamicGas != nil {
			dynamicCost, err := operation.dynamicGas(ev, f, memorySize)
			if err != nil {
				f.exit(nil, fmt.Errorf("%w: %v", ErrOutOfGas, err))
				return
			}
			if !f.contract.UseGas(dynamicCost) {
				f.exit(nil, ErrOutOfGas)
				return
			}
		}

		// Resize memory only after all gas has been charged.
		if memorySize > 0 {
			f.memory.Resize(memorySize)
		}

		if ev.tracer != nil {
			ev.tracer.CaptureState(f.pc, op, gasBefore, gasBefore-f.contract.Gas, f, f.depth, nil)
		}

		ret, err := operation.execute(&f.pc, ev, f)
		if errors.Is(err, errSuspended) {
			f.status = StatusSuspended
			return
		}
		if err != nil {
			if !errors.Is(err, ErrExecutionReverted) && ev.tracer != nil {
				ev.tracer.CaptureFault(f.pc, op, gasBefore, gasBefore-f.contract.Gas, f.depth, err)
			}
			f.exit(ret, err)
			return
		}
		if operation.halts {
			f.exit(ret, nil)
			return
		}
		if !operation.jumps {
			f.pc++
		}
	}
}

// resumeFrame delivers the host's answer to a suspended frame: the
// continuation consumes the value (pushing results, filling memory), the
// pc steps past the suspending opcode, and the frame runs again. Given
// identical resume values the frame behaves identically on replay.
func (ev *Executor) resumeFrame(f *Frame, value any) {
	resume := f.resumeFn
	f.resumeFn, f.interrupt = nil, nil
	if resume == nil {
		f.exit(nil, ErrHostAbort)
		return
	}
	if err := resume(value); err != nil {
		f.exit(nil, err)
		return
	}
	f.pc++
	f.status = StatusRunning
}
