package vm

import (
	"errors"

	"github.com/evmcore/evmcore/core/types"
	"github.com/evmcore/evmcore/params"
)

// gasMemExpansion charges only for memory growth.
func gasMemExpansion(ev *Executor, f *Frame, memorySize uint64) (uint64, error) {
	return memoryGasCost(f.memory, memorySize)
}

// gasCopy covers CALLDATACOPY, CODECOPY and RETURNDATACOPY: memory growth
// plus a per-word copy fee.
func gasCopy(ev *Executor, f *Frame, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(f.memory, memorySize)
	if err != nil {
		return 0, err
	}
	words, overflow := f.stack.Back(2).Uint64WithOverflow()
	if overflow {
		return 0, ErrGasUintOverflow
	}
	if words, overflow = safeMul(toWordSize(words), params.CopyGas); overflow {
		return 0, ErrGasUintOverflow
	}
	if gas, overflow = safeAdd(gas, words); overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}

// gasMcopy prices MCOPY identically to the other copy opcodes.
func gasMcopy(ev *Executor, f *Frame, memorySize uint64) (uint64, error) {
	return gasCopy(ev, f, memorySize)
}

func gasKeccak256(ev *Executor, f *Frame, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(f.memory, memorySize)
	if err != nil {
		return 0, err
	}
	wordGas, overflow := f.stack.Back(1).Uint64WithOverflow()
	if overflow {
		return 0, ErrGasUintOverflow
	}
	if wordGas, overflow = safeMul(toWordSize(wordGas), params.Keccak256WordGas); overflow {
		return 0, ErrGasUintOverflow
	}
	if gas, overflow = safeAdd(gas, wordGas); overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}

func gasExp(ev *Executor, f *Frame, memorySize uint64) (uint64, error) {
	expByteLen := uint64((f.stack.Back(1).BitLen() + 7) / 8)
	gas, overflow := safeMul(expByteLen, ev.cfg.GasExpByte)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}

func makeGasLog(n uint64) gasFunc {
	return func(ev *Executor, f *Frame, memorySize uint64) (uint64, error) {
		requestedSize, overflow := f.stack.Back(1).Uint64WithOverflow()
		if overflow {
			return 0, ErrGasUintOverflow
		}
		gas, err := memoryGasCost(f.memory, memorySize)
		if err != nil {
			return 0, err
		}
		if gas, overflow = safeAdd(gas, params.LogGas); overflow {
			return 0, ErrGasUintOverflow
		}
		if gas, overflow = safeAdd(gas, n*params.LogTopicGas); overflow {
			return 0, ErrGasUintOverflow
		}
		var memorySizeGas uint64
		if memorySizeGas, overflow = safeMul(requestedSize, params.LogDataGas); overflow {
			return 0, ErrGasUintOverflow
		}
		if gas, overflow = safeAdd(gas, memorySizeGas); overflow {
			return 0, ErrGasUintOverflow
		}
		return gas, nil
	}
}

func gasExtCodeCopy(ev *Executor, f *Frame, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(f.memory, memorySize)
	if err != nil {
		return 0, err
	}
	wordGas, overflow := f.stack.Back(3).Uint64WithOverflow()
	if overflow {
		return 0, ErrGasUintOverflow
	}
	if wordGas, overflow = safeMul(toWordSize(wordGas), params.CopyGas); overflow {
		return 0, ErrGasUintOverflow
	}
	if gas, overflow = safeAdd(gas, wordGas); overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}

// SSTORE pricing. The regime is selected from the fork configuration:
// legacy two-state pricing, EIP-2200 net metering, or EIP-2200 layered
// with EIP-2929 warm/cold slot costs.
func gasSStore(ev *Executor, f *Frame, memorySize uint64) (uint64, error) {
	if ev.cfg.HasAccessLists {
		return gasSStoreEIP2929(ev, f)
	}
	if ev.cfg.HasNetSstoreMetering {
		return gasSStoreEIP2200(ev, f)
	}
	return gasSStoreLegacy(ev, f)
}

func gasSStoreLegacy(ev *Executor, f *Frame) (uint64, error) {
	var (
		y, x    = f.stack.Back(1), f.stack.Back(0)
		slot    = types.Hash(x.Bytes32())
		current = ev.handler.Storage(f.contract.Address, slot)
		value   = types.Hash(y.Bytes32())
	)
	switch {
	case current.IsZero() && !value.IsZero(): // 0 -> non-zero
		return ev.cfg.GasSstoreSet, nil
	case !current.IsZero() && value.IsZero(): // non-zero -> 0
		f.substate.AddRefund(ev.cfg.GasSstoreClearRefund)
		return ev.cfg.GasSstoreReset, nil
	default: // non-zero -> non-zero, or 0 -> 0
		return ev.cfg.GasSstoreReset, nil
	}
}

// gasSStoreEIP2200 implements net gas metering over the
// original/current/new slot tri-state.
func gasSStoreEIP2200(ev *Executor, f *Frame) (uint64, error) {
	// Reentrancy sentry: fail if less than 2300 gas would remain.
	if f.contract.Gas <= params.SstoreSentryGasEIP2200 {
		return 0, errors.New("not enough gas for reentrancy sentry")
	}
	var (
		y, x    = f.stack.Back(1), f.stack.Back(0)
		slot    = types.Hash(x.Bytes32())
		current = ev.handler.Storage(f.contract.Address, slot)
		value   = types.Hash(y.Bytes32())
	)
	if current == value { // noop
		return ev.cfg.GasSload, nil
	}
	original := ev.handler.OriginalStorage(f.contract.Address, slot)
	if original == current {
		if original.IsZero() { // create slot
			return ev.cfg.GasSstoreSet, nil
		}
		if value.IsZero() { // delete slot
			f.substate.AddRefund(ev.cfg.GasSstoreClearRefund)
		}
		return ev.cfg.GasSstoreReset, nil
	}
	if !original.IsZero() {
		if current.IsZero() { // recreate slot
			f.substate.SubRefund(ev.cfg.GasSstoreClearRefund)
		} else if value.IsZero() { // delete slot
			f.substate.AddRefund(ev.cfg.GasSstoreClearRefund)
		}
	}
	if original == value {
		if original.IsZero() { // reset to original inexistent slot
			f.substate.AddRefund(ev.cfg.GasSstoreSet - ev.cfg.GasSload)
		} else { // reset to original existing slot
			f.substate.AddRefund(ev.cfg.GasSstoreReset - ev.cfg.GasSload)
		}
	}
	return ev.cfg.GasSload, nil // dirty update
}

// gasSStoreEIP2929 is EIP-2200 with warm/cold slot accounting layered on:
// a cold slot pays the cold-access surcharge, and the warm-read cost
// replaces SLOAD_GAS in the net metering rules.
func gasSStoreEIP2929(ev *Executor, f *Frame) (uint64, error) {
	if f.contract.Gas <= params.SstoreSentryGasEIP2200 {
		return 0, errors.New("not enough gas for reentrancy sentry")
	}
	var (
		y, x = f.stack.Back(1), f.stack.Back(0)
		slot = types.Hash(x.Bytes32())
		cost = uint64(0)
	)
	if _, slotWarm := ev.handler.SlotInAccessList(f.contract.Address, slot); !slotWarm {
		ev.handler.MarkWarmSlot(f.contract.Address, slot)
		cost = params.ColdSloadCostEIP2929
	}
	var (
		current = ev.handler.Storage(f.contract.Address, slot)
		value   = types.Hash(y.Bytes32())
	)
	if current == value { // noop
		return cost + params.WarmStorageReadCostEIP2929, nil
	}
	original := ev.handler.OriginalStorage(f.contract.Address, slot)
	if original == current {
		if original.IsZero() { // create slot
			return cost + ev.cfg.GasSstoreSet, nil
		}
		if value.IsZero() { // delete slot
			f.substate.AddRefund(ev.cfg.GasSstoreClearRefund)
		}
		return cost + ev.cfg.GasSstoreReset, nil
	}
	if !original.IsZero() {
		if current.IsZero() { // recreate slot
			f.substate.SubRefund(ev.cfg.GasSstoreClearRefund)
		} else if value.IsZero() { // delete slot
			f.substate.AddRefund(ev.cfg.GasSstoreClearRefund)
		}
	}
	if original == value {
		if original.IsZero() { // reset to original inexistent slot
			f.substate.AddRefund(ev.cfg.GasSstoreSet - params.WarmStorageReadCostEIP2929)
		} else { // reset to original existing slot
			f.substate.AddRefund(ev.cfg.GasSstoreReset - params.WarmStorageReadCostEIP2929)
		}
	}
	return cost + params.WarmStorageReadCostEIP2929, nil // dirty update
}

// gasSLoadEIP2929: the full cost is dynamic, cold or warm.
func gasSLoadEIP2929(ev *Executor, f *Frame, memorySize uint64) (uint64, error) {
	slot := types.Hash(f.stack.Back(0).Bytes32())
	if _, slotWarm := ev.handler.SlotInAccessList(f.contract.Address, slot); !slotWarm {
		ev.handler.MarkWarmSlot(f.contract.Address, slot)
		return params.ColdSloadCostEIP2929, nil
	}
	return params.WarmStorageReadCostEIP2929, nil
}

// gasAccountAccessEIP2929 is the cold surcharge for BALANCE, EXTCODESIZE
// and EXTCODEHASH; the warm cost is the table's static cost.
func gasAccountAccessEIP2929(ev *Executor, f *Frame, memorySize uint64) (uint64, error) {
	addr := types.Address(f.stack.Back(0).Bytes20())
	if !ev.handler.AddressInAccessList(addr) {
		ev.handler.MarkWarmAddress(addr)
		return params.ColdAccountAccessCostEIP2929 - params.WarmStorageReadCostEIP2929, nil
	}
	return 0, nil
}

func gasExtCodeCopyEIP2929(ev *Executor, f *Frame, memorySize uint64) (uint64, error) {
	gas, err := gasExtCodeCopy(ev, f, memorySize)
	if err != nil {
		return 0, err
	}
	addr := types.Address(f.stack.Back(0).Bytes20())
	if !ev.handler.AddressInAccessList(addr) {
		ev.handler.MarkWarmAddress(addr)
		var overflow bool
		if gas, overflow = safeAdd(gas, params.ColdAccountAccessCostEIP2929-params.WarmStorageReadCostEIP2929); overflow {
			return 0, ErrGasUintOverflow
		}
	}
	return gas, nil
}

// CALL-family dynamic gas. The forwarded gas (63/64 rule) is part of the
// dynamic cost and is stashed in f.callGasTemp for the execute function.

func gasCall(ev *Executor, f *Frame, memorySize uint64) (uint64, error) {
	var (
		gas            uint64
		transfersValue = !f.stack.Back(2).IsZero()
		address        = types.Address(f.stack.Back(1).Bytes20())
	)
	if ev.cfg.HasEIP158 {
		if transfersValue && ev.handler.Empty(address) {
			gas += params.CallNewAccountGas
		}
	} else if !ev.handler.Exist(address) {
		gas += params.CallNewAccountGas
	}
	if transfersValue {
		gas += params.CallValueTransferGas
	}
	memoryGas, err := memoryGasCost(f.memory, memorySize)
	if err != nil {
		return 0, err
	}
	var overflow bool
	if gas, overflow = safeAdd(gas, memoryGas); overflow {
		return 0, ErrGasUintOverflow
	}
	callGasTemp, err := callGas(ev.cfg.HasEIP150, f.contract.Gas, gas, f.stack.Back(0))
	if err != nil {
		return 0, err
	}
	f.callGasTemp = callGasTemp
	if gas, overflow = safeAdd(gas, callGasTemp); overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}

func gasCallCode(ev *Executor, f *Frame, memorySize uint64) (uint64, error) {
	memoryGas, err := memoryGasCost(f.memory, memorySize)
	if err != nil {
		return 0, err
	}
	var (
		gas      uint64
		overflow bool
	)
	if !f.stack.Back(2).IsZero() {
		gas += params.CallValueTransferGas
	}
	if gas, overflow = safeAdd(gas, memoryGas); overflow {
		return 0, ErrGasUintOverflow
	}
	callGasTemp, err := callGas(ev.cfg.HasEIP150, f.contract.Gas, gas, f.stack.Back(0))
	if err != nil {
		return 0, err
	}
	f.callGasTemp = callGasTemp
	if gas, overflow = safeAdd(gas, callGasTemp); overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}

func gasDelegateCall(ev *Executor, f *Frame, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(f.memory, memorySize)
	if err != nil {
		return 0, err
	}
	callGasTemp, err := callGas(ev.cfg.HasEIP150, f.contract.Gas, gas, f.stack.Back(0))
	if err != nil {
		return 0, err
	}
	f.callGasTemp = callGasTemp
	var overflow bool
	if gas, overflow = safeAdd(gas, callGasTemp); overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}

func gasStaticCall(ev *Executor, f *Frame, memorySize uint64) (uint64, error) {
	return gasDelegateCall(ev, f, memorySize)
}

// makeCallVariantGasEIP2929 layers the cold-account surcharge onto a
// CALL-family gas function. The surcharge is deducted before the 63/64
// computation and briefly restored afterwards so that the inner function
// sees the post-surcharge gas, mirroring consensus behavior.
func makeCallVariantGasEIP2929(oldCalculator gasFunc) gasFunc {
	return func(ev *Executor, f *Frame, memorySize uint64) (uint64, error) {
		addr := types.Address(f.stack.Back(1).Bytes20())
		warmAccess := ev.handler.AddressInAccessList(addr)
		coldCost := params.ColdAccountAccessCostEIP2929 - params.WarmStorageReadCostEIP2929
		if !warmAccess {
			ev.handler.MarkWarmAddress(addr)
			if !f.contract.UseGas(coldCost) {
				return 0, ErrOutOfGas
			}
		}
		gas, err := oldCalculator(ev, f, memorySize)
		if warmAccess || err != nil {
			return gas, err
		}
		// Restore the up-front deduction; the total returned below is
		// charged as one sum by the interpreter.
		f.contract.RefundGas(coldCost)
		var overflow bool
		if gas, overflow = safeAdd(gas, coldCost); overflow {
			return 0, ErrGasUintOverflow
		}
		return gas, nil
	}
}

var (
	gasCallEIP2929         = makeCallVariantGasEIP2929(gasCall)
	gasCallCodeEIP2929     = makeCallVariantGasEIP2929(gasCallCode)
	gasDelegateCallEIP2929 = makeCallVariantGasEIP2929(gasDelegateCall)
	gasStaticCallEIP2929   = makeCallVariantGasEIP2929(gasStaticCall)
)

func gasSelfdestruct(ev *Executor, f *Frame, memorySize uint64) (uint64, error) {
	var gas uint64
	beneficiary := types.Address(f.stack.Back(0).Bytes20())
	if ev.cfg.HasEIP158 {
		if ev.handler.Empty(beneficiary) && !ev.handler.Balance(f.contract.Address).IsZero() {
			gas += params.CreateBySelfdestructGas
		}
	} else if ev.cfg.HasEIP150 && !ev.handler.Exist(beneficiary) {
		gas += params.CreateBySelfdestructGas
	}
	return gas, nil
}

func gasSelfdestructEIP2929(ev *Executor, f *Frame, memorySize uint64) (uint64, error) {
	gas, err := gasSelfdestruct(ev, f, memorySize)
	if err != nil {
		return 0, err
	}
	beneficiary := types.Address(f.stack.Back(0).Bytes20())
	if !ev.handler.AddressInAccessList(beneficiary) {
		ev.handler.MarkWarmAddress(beneficiary)
		gas += params.ColdAccountAccessCostEIP2929
	}
	return gas, nil
}

// CREATE-family dynamic gas: memory expansion plus, when EIP-3860 is
// active, the per-word init code charge; CREATE2 additionally pays to
// hash the init code.

func gasCreate(ev *Executor, f *Frame, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(f.memory, memorySize)
	if err != nil {
		return 0, err
	}
	if ev.cfg.HasInitCodeSizeLimit {
		size, overflow := f.stack.Back(2).Uint64WithOverflow()
		if overflow {
			return 0, ErrGasUintOverflow
		}
		moreGas, overflow := safeMul(toWordSize(size), params.InitCodeWordGas)
		if overflow {
			return 0, ErrGasUintOverflow
		}
		if gas, overflow = safeAdd(gas, moreGas); overflow {
			return 0, ErrGasUintOverflow
		}
	}
	return gas, nil
}

func gasCreate2(ev *Executor, f *Frame, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(f.memory, memorySize)
	if err != nil {
		return 0, err
	}
	size, overflow := f.stack.Back(2).Uint64WithOverflow()
	if overflow {
		return 0, ErrGasUintOverflow
	}
	wordGas := params.Keccak256WordGas
	if ev.cfg.HasInitCodeSizeLimit {
		wordGas += params.InitCodeWordGas
	}
	moreGas, overflow := safeMul(toWordSize(size), wordGas)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	if gas, overflow = safeAdd(gas, moreGas); overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}
