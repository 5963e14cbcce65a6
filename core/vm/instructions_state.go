package vm

import (
	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
)

// State-reading opcodes suspend the frame with a StateQuery instead of
// touching the handler directly; the executor resolves the query and
// resumes with the answer. This keeps every external read an explicit,
// replayable interaction.

func opSload(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	loc := f.stack.Pop()
	slot := types.Hash(loc.Bytes32())
	return f.suspend(
		&Interrupt{Query: &StateQuery{Kind: QueryStorage, Address: f.contract.Address, Slot: slot}},
		func(v any) error {
			h := v.(types.Hash)
			f.stack.Push(new(uint256.Int).SetBytes(h.Bytes()))
			return nil
		})
}

func opBalance(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	slot := f.stack.Pop()
	address := types.Address(slot.Bytes20())
	return f.suspend(
		&Interrupt{Query: &StateQuery{Kind: QueryBalance, Address: address}},
		func(v any) error {
			f.stack.Push(new(uint256.Int).Set(v.(*uint256.Int)))
			return nil
		})
}

func opExtCodeSize(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	slot := f.stack.Pop()
	address := types.Address(slot.Bytes20())
	return f.suspend(
		&Interrupt{Query: &StateQuery{Kind: QueryCodeSize, Address: address}},
		func(v any) error {
			f.stack.Push(new(uint256.Int).SetUint64(uint64(v.(int))))
			return nil
		})
}

func opExtCodeHash(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	slot := f.stack.Pop()
	address := types.Address(slot.Bytes20())
	return f.suspend(
		&Interrupt{Query: &StateQuery{Kind: QueryCodeHash, Address: address}},
		func(v any) error {
			h := v.(types.Hash)
			f.stack.Push(new(uint256.Int).SetBytes(h.Bytes()))
			return nil
		})
}

func opExtCodeCopy(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	var (
		a          = f.stack.Pop()
		memOffset  = f.stack.Pop()
		codeOffset = f.stack.Pop()
		length     = f.stack.Pop()
	)
	address := types.Address(a.Bytes20())
	codeOffset64, overflow := codeOffset.Uint64WithOverflow()
	if overflow {
		codeOffset64 = 0xffffffffffffffff
	}
	memOffset64, length64 := memOffset.Uint64(), length.Uint64()
	return f.suspend(
		&Interrupt{Query: &StateQuery{Kind: QueryCode, Address: address}},
		func(v any) error {
			code := v.([]byte)
			if length64 != 0 {
				f.memory.Set(memOffset64, length64, getData(code, codeOffset64, length64))
			}
			return nil
		})
}

func opSstore(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	loc, val := f.stack.Pop(), f.stack.Pop()
	ev.handler.SetStorage(f.contract.Address, types.Hash(loc.Bytes32()), types.Hash(val.Bytes32()))
	return nil, nil
}

func opTload(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	loc := f.stack.Peek()
	hash := types.Hash(loc.Bytes32())
	value := ev.handler.TransientStorage(f.contract.Address, hash)
	loc.SetBytes(value.Bytes())
	return nil, nil
}

func opTstore(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	loc, val := f.stack.Pop(), f.stack.Pop()
	ev.handler.SetTransientStorage(f.contract.Address, types.Hash(loc.Bytes32()), types.Hash(val.Bytes32()))
	return nil, nil
}

func opSelfBalance(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Push(new(uint256.Int).Set(ev.handler.Balance(f.contract.Address)))
	return nil, nil
}

// makeLog builds the LOG0..LOG4 handler for the given topic count.
func makeLog(size int) executionFunc {
	return func(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
		topics := make([]types.Hash, size)
		mStart, mSize := f.stack.Pop(), f.stack.Pop()
		for i := 0; i < size; i++ {
			addr := f.stack.Pop()
			topics[i] = types.Hash(addr.Bytes32())
		}
		d := f.memory.Get(mStart.Uint64(), mSize.Uint64())
		ev.emitLog(f, &types.Log{
			Address: f.contract.Address,
			Topics:  topics,
			Data:    d,
		})
		return nil, nil
	}
}

func opSelfdestruct(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	beneficiary := f.stack.Pop()
	beneficiaryAddr := types.Address(beneficiary.Bytes20())
	if ev.cfg.SelfdestructRefund > 0 && !ev.hasSelfdestructed(f.contract.Address) {
		f.substate.AddRefund(ev.cfg.SelfdestructRefund)
	}
	balance := ev.handler.Balance(f.contract.Address)
	ev.handler.Transfer(f.contract.Address, beneficiaryAddr, balance)
	ev.handler.MarkSelfdestruct(f.contract.Address, beneficiaryAddr)
	f.substate.MarkSelfdestruct(f.contract.Address, beneficiaryAddr)
	f.substate.Touch(beneficiaryAddr)
	return nil, nil
}
