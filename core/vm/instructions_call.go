package vm

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
	"github.com/evmcore/evmcore/params"
)

// CALL-family opcodes suspend the frame with a CallRequest; the executor
// runs the child to completion and resumes with a CallResult. The
// forwarded gas was already deducted by the dynamic gas function and
// stashed in f.callGasTemp.

func opCall(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Pop() // requested gas word, consumed via callGasTemp
	var (
		addr     = f.stack.Pop()
		value    = f.stack.Pop()
		inOffset = f.stack.Pop()
		inSize   = f.stack.Pop()
		retOff   = f.stack.Pop()
		retSz    = f.stack.Pop()
	)
	toAddr := types.Address(addr.Bytes20())
	if f.readOnly && !value.IsZero() {
		return nil, ErrWriteProtection
	}
	gas := f.callGasTemp
	transfers := !value.IsZero()
	if transfers {
		gas += params.CallStipend
	}
	req := &CallRequest{
		Type:           FrameCall,
		Caller:         f.contract.Address,
		Target:         toAddr,
		CodeAddress:    toAddr,
		Value:          new(uint256.Int).Set(&value),
		TransfersValue: transfers,
		Input:          f.memory.Get(inOffset.Uint64(), inSize.Uint64()),
		Gas:            gas,
		ReadOnly:       f.readOnly,
	}
	return f.suspend(&Interrupt{Call: req}, callResume(f, retOff.Uint64(), retSz.Uint64()))
}

func opCallCode(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Pop()
	var (
		addr     = f.stack.Pop()
		value    = f.stack.Pop()
		inOffset = f.stack.Pop()
		inSize   = f.stack.Pop()
		retOff   = f.stack.Pop()
		retSz    = f.stack.Pop()
	)
	gas := f.callGasTemp
	transfers := !value.IsZero()
	if transfers {
		gas += params.CallStipend
	}
	// CALLCODE runs foreign code in the caller's own context: the value
	// "moves" from the contract to itself, but the balance check applies.
	req := &CallRequest{
		Type:           FrameCallCode,
		Caller:         f.contract.Address,
		Target:         f.contract.Address,
		CodeAddress:    types.Address(addr.Bytes20()),
		Value:          new(uint256.Int).Set(&value),
		TransfersValue: transfers,
		Input:          f.memory.Get(inOffset.Uint64(), inSize.Uint64()),
		Gas:            gas,
		ReadOnly:       f.readOnly,
	}
	return f.suspend(&Interrupt{Call: req}, callResume(f, retOff.Uint64(), retSz.Uint64()))
}

func opDelegateCall(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Pop()
	var (
		addr     = f.stack.Pop()
		inOffset = f.stack.Pop()
		inSize   = f.stack.Pop()
		retOff   = f.stack.Pop()
		retSz    = f.stack.Pop()
	)
	// The callee inherits the caller's caller and apparent value.
	req := &CallRequest{
		Type:        FrameDelegateCall,
		Caller:      f.contract.CallerAddress,
		Target:      f.contract.Address,
		CodeAddress: types.Address(addr.Bytes20()),
		Value:       new(uint256.Int).Set(f.contract.Value),
		Input:       f.memory.Get(inOffset.Uint64(), inSize.Uint64()),
		Gas:         f.callGasTemp,
		ReadOnly:    f.readOnly,
	}
	return f.suspend(&Interrupt{Call: req}, callResume(f, retOff.Uint64(), retSz.Uint64()))
}

func opStaticCall(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Pop()
	var (
		addr     = f.stack.Pop()
		inOffset = f.stack.Pop()
		inSize   = f.stack.Pop()
		retOff   = f.stack.Pop()
		retSz    = f.stack.Pop()
	)
	toAddr := types.Address(addr.Bytes20())
	req := &CallRequest{
		Type:        FrameStaticCall,
		Caller:      f.contract.Address,
		Target:      toAddr,
		CodeAddress: toAddr,
		Value:       new(uint256.Int),
		Input:       f.memory.Get(inOffset.Uint64(), inSize.Uint64()),
		Gas:         f.callGasTemp,
		ReadOnly:    true,
	}
	return f.suspend(&Interrupt{Call: req}, callResume(f, retOff.Uint64(), retSz.Uint64()))
}

// callResume builds the resume continuation shared by the CALL family:
// credit leftover gas, latch the return data, copy it into the caller's
// memory and push the success flag.
func callResume(f *Frame, retOffset, retSize uint64) func(any) error {
	return func(v any) error {
		res := v.(CallResult)
		f.contract.RefundGas(res.GasLeft)
		f.setReturnData(res.Output)
		if res.Err == nil || errors.Is(res.Err, ErrExecutionReverted) {
			n := retSize
			if out := uint64(len(res.Output)); out < n {
				n = out
			}
			if n > 0 {
				f.memory.Set(retOffset, n, res.Output[:n])
			}
		}
		if res.Err == nil {
			f.stack.Push(new(uint256.Int).SetOne())
		} else {
			f.stack.Push(new(uint256.Int))
		}
		return nil
	}
}

func opCreate(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	var (
		value  = f.stack.Pop()
		offset = f.stack.Pop()
		size   = f.stack.Pop()
	)
	return doCreate(ev, f, FrameCreate, &value, &offset, &size, types.Hash{})
}

func opCreate2(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	var (
		value  = f.stack.Pop()
		offset = f.stack.Pop()
		size   = f.stack.Pop()
		salt   = f.stack.Pop()
	)
	return doCreate(ev, f, FrameCreate2, &value, &offset, &size, types.Hash(salt.Bytes32()))
}

func doCreate(ev *Executor, f *Frame, typ CallFrameType, value, offset, size *uint256.Int, salt types.Hash) ([]byte, error) {
	if ev.cfg.HasInitCodeSizeLimit && size.GtUint64(ev.cfg.MaxInitCodeSize) {
		return nil, ErrMaxInitCodeSizeExceeded
	}
	initCode := f.memory.Get(offset.Uint64(), size.Uint64())

	// The child receives everything but 1/64 of the remaining gas.
	gas := f.contract.Gas
	if ev.cfg.HasEIP150 {
		gas -= gas / 64
	}
	f.contract.UseGas(gas)

	req := &CreateRequest{
		Type:     typ,
		Caller:   f.contract.Address,
		Value:    new(uint256.Int).Set(value),
		InitCode: initCode,
		Salt:     salt,
		Gas:      gas,
	}
	return f.suspend(&Interrupt{Create: req}, func(v any) error {
		res := v.(CreateResult)
		f.contract.RefundGas(res.GasLeft)
		// Only a revert payload is observable via RETURNDATACOPY.
		if errors.Is(res.Err, ErrExecutionReverted) {
			f.setReturnData(res.Output)
		} else {
			f.setReturnData(nil)
		}
		if res.Err == nil {
			f.stack.Push(new(uint256.Int).SetBytes(res.Address.Bytes()))
		} else {
			f.stack.Push(new(uint256.Int))
		}
		return nil
	})
}
