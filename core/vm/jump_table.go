package vm

import (
	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/params"
)

// executionFunc runs one opcode against the current frame.
type executionFunc func(pc *uint64, ev *Executor, f *Frame) ([]byte, error)

// gasFunc computes the dynamic gas cost of an operation, including memory
// expansion to memorySize (already word-aligned).
type gasFunc func(ev *Executor, f *Frame, memorySize uint64) (uint64, error)

// memorySizeFunc returns the highest byte an operation will touch, and
// whether the offset arithmetic overflowed.
type memorySizeFunc func(stack *Stack) (uint64, bool)

// operation is one jump table entry.
type operation struct {
	execute     executionFunc
	constantGas uint64
	dynamicGas  gasFunc
	minStack    int // minimum stack items required
	maxStack    int // maximum stack items allowed before the operation
	memorySize  memorySizeFunc
	halts       bool // opcode terminates the frame (STOP, RETURN, REVERT, SELFDESTRUCT)
	jumps       bool // opcode sets pc itself (JUMP, JUMPI)
	writes      bool // opcode mutates state; forbidden in static frames
}

// JumpTable maps every opcode byte to its operation. A nil entry is an
// undefined opcode.
type JumpTable [256]*operation

func minStack(pops, push int) int {
	return pops
}

func maxStack(pops, push int) int {
	return int(params.StackLimit) + pops - push
}

// Memory size helpers.

func calcMemSize64(off, length *uint256.Int) (uint64, bool) {
	if !length.IsUint64() {
		return 0, true
	}
	return calcMemSize64WithUint(off, length.Uint64())
}

func calcMemSize64WithUint(off *uint256.Int, length64 uint64) (uint64, bool) {
	// Zero-length accesses neither expand nor charge.
	if length64 == 0 {
		return 0, false
	}
	offset64, overflow := off.Uint64WithOverflow()
	if overflow {
		return 0, true
	}
	val := offset64 + length64
	return val, val < offset64
}

func memoryKeccak256(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(0), stack.Back(1))
}

func memoryCallDataCopy(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(0), stack.Back(2))
}

func memoryReturnDataCopy(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(0), stack.Back(2))
}

func memoryCodeCopy(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(0), stack.Back(2))
}

func memoryExtCodeCopy(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(1), stack.Back(3))
}

func memoryMload(stack *Stack) (uint64, bool) {
	return calcMemSize64WithUint(stack.Back(0), 32)
}

func memoryMstore(stack *Stack) (uint64, bool) {
	return calcMemSize64WithUint(stack.Back(0), 32)
}

func memoryMstore8(stack *Stack) (uint64, bool) {
	return calcMemSize64WithUint(stack.Back(0), 1)
}

func memoryMcopy(stack *Stack) (uint64, bool) {
	mStart := stack.Back(0) // stack[2]: dst
	if stack.Back(1).Gt(mStart) {
		mStart = stack.Back(1) // stack[1]: src
	}
	return calcMemSize64(mStart, stack.Back(2))
}

func memoryCreate(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(1), stack.Back(2))
}

func memoryCreate2(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(1), stack.Back(2))
}

// memoryCall covers CALL and CALLCODE: the larger end of the argument and
// return regions.
func memoryCall(stack *Stack) (uint64, bool) {
	x, overflow := calcMemSize64(stack.Back(5), stack.Back(6))
	if overflow {
		return 0, true
	}
	y, overflow := calcMemSize64(stack.Back(3), stack.Back(4))
	if overflow {
		return 0, true
	}
	if x > y {
		return x, false
	}
	return y, false
}

// memoryDelegateCall covers DELEGATECALL and STATICCALL (no value word).
func memoryDelegateCall(stack *Stack) (uint64, bool) {
	x, overflow := calcMemSize64(stack.Back(4), stack.Back(5))
	if overflow {
		return 0, true
	}
	y, overflow := calcMemSize64(stack.Back(2), stack.Back(3))
	if overflow {
		return 0, true
	}
	if x > y {
		return x, false
	}
	return y, false
}

func memoryReturn(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(0), stack.Back(1))
}

func memoryRevert(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(0), stack.Back(1))
}

func memoryLog(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(0), stack.Back(1))
}

// NewJumpTable builds the dispatch table for one fork configuration. The
// table is constructed once at executor creation; every fork difference
// is a field of cfg, never a fork name.
func NewJumpTable(cfg *params.ForkConfig) JumpTable {
	var tbl JumpTable

	// Arithmetic.
	tbl[STOP] = &operation{execute: opStop, constantGas: 0, minStack: minStack(0, 0), maxStack: maxStack(0, 0), halts: true}
	tbl[ADD] = &operation{execute: opAdd, constantGas: params.GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[MUL] = &operation{execute: opMul, constantGas: params.GasFastStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[SUB] = &operation{execute: opSub, constantGas: params.GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[DIV] = &operation{execute: opDiv, constantGas: params.GasFastStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[SDIV] = &operation{execute: opSdiv, constantGas: params.GasFastStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[MOD] = &operation{execute: opMod, constantGas: params.GasFastStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[SMOD] = &operation{execute: opSmod, constantGas: params.GasFastStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[ADDMOD] = &operation{execute: opAddmod, constantGas: params.GasMidStep, minStack: minStack(3, 1), maxStack: maxStack(3, 1)}
	tbl[MULMOD] = &operation{execute: opMulmod, constantGas: params.GasMidStep, minStack: minStack(3, 1), maxStack: maxStack(3, 1)}
	tbl[EXP] = &operation{execute: opExp, constantGas: params.GasSlowStep, dynamicGas: gasExp, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[SIGNEXTEND] = &operation{execute: opSignExtend, constantGas: params.GasFastStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}

	// Comparison and bitwise.
	tbl[LT] = &operation{execute: opLt, constantGas: params.GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[GT] = &operation{execute: opGt, constantGas: params.GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[SLT] = &operation{execute: opSlt, constantGas: params.GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[SGT] = &operation{execute: opSgt, constantGas: params.GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[EQ] = &operation{execute: opEq, constantGas: params.GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[ISZERO] = &operation{execute: opIszero, constantGas: params.GasFastestStep, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	tbl[AND] = &operation{execute: opAnd, constantGas: params.GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[OR] = &operation{execute: opOr, constantGas: params.GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[XOR] = &operation{execute: opXor, constantGas: params.GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[NOT] = &operation{execute: opNot, constantGas: params.GasFastestStep, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	tbl[BYTE] = &operation{execute: opByte, constantGas: params.GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}

	// Hashing.
	tbl[KECCAK256] = &operation{execute: opKeccak256, constantGas: params.Keccak256Gas, dynamicGas: gasKeccak256, minStack: minStack(2, 1), maxStack: maxStack(2, 1), memorySize: memoryKeccak256}

	// Environment.
	tbl[ADDRESS] = &operation{execute: opAddress, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[BALANCE] = &operation{execute: opBalance, constantGas: cfg.GasBalance, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	tbl[ORIGIN] = &operation{execute: opOrigin, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[CALLER] = &operation{execute: opCaller, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[CALLVALUE] = &operation{execute: opCallValue, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[CALLDATALOAD] = &operation{execute: opCallDataLoad, constantGas: params.GasFastestStep, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	tbl[CALLDATASIZE] = &operation{execute: opCallDataSize, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[CALLDATACOPY] = &operation{execute: opCallDataCopy, constantGas: params.GasFastestStep, dynamicGas: gasCopy, minStack: minStack(3, 0), maxStack: maxStack(3, 0), memorySize: memoryCallDataCopy}
	tbl[CODESIZE] = &operation{execute: opCodeSize, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[CODECOPY] = &operation{execute: opCodeCopy, constantGas: params.GasFastestStep, dynamicGas: gasCopy, minStack: minStack(3, 0), maxStack: maxStack(3, 0), memorySize: memoryCodeCopy}
	tbl[GASPRICE] = &operation{execute: opGasprice, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[EXTCODESIZE] = &operation{execute: opExtCodeSize, constantGas: cfg.GasExtCodeSize, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	tbl[EXTCODECOPY] = &operation{execute: opExtCodeCopy, constantGas: cfg.GasExtCodeCopy, dynamicGas: gasExtCodeCopy, minStack: minStack(4, 0), maxStack: maxStack(4, 0), memorySize: memoryExtCodeCopy}

	// Block data.
	tbl[BLOCKHASH] = &operation{execute: opBlockhash, constantGas: params.GasExtStep, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	tbl[COINBASE] = &operation{execute: opCoinbase, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[TIMESTAMP] = &operation{execute: opTimestamp, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[NUMBER] = &operation{execute: opNumber, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[PREVRANDAO] = &operation{execute: opPrevRandao, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[GASLIMIT] = &operation{execute: opGasLimit, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}

	// Stack, memory and flow.
	tbl[POP] = &operation{execute: opPop, constantGas: params.GasQuickStep, minStack: minStack(1, 0), maxStack: maxStack(1, 0)}
	tbl[MLOAD] = &operation{execute: opMload, constantGas: params.GasFastestStep, dynamicGas: gasMemExpansion, minStack: minStack(1, 1), maxStack: maxStack(1, 1), memorySize: memoryMload}
	tbl[MSTORE] = &operation{execute: opMstore, constantGas: params.GasFastestStep, dynamicGas: gasMemExpansion, minStack: minStack(2, 0), maxStack: maxStack(2, 0), memorySize: memoryMstore}
	tbl[MSTORE8] = &operation{execute: opMstore8, constantGas: params.GasFastestStep, dynamicGas: gasMemExpansion, minStack: minStack(2, 0), maxStack: maxStack(2, 0), memorySize: memoryMstore8}
	tbl[SLOAD] = &operation{execute: opSload, constantGas: cfg.GasSload, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	tbl[SSTORE] = &operation{execute: opSstore, constantGas: 0, dynamicGas: gasSStore, minStack: minStack(2, 0), maxStack: maxStack(2, 0), writes: true}
	tbl[JUMP] = &operation{execute: opJump, constantGas: params.GasMidStep, minStack: minStack(1, 0), maxStack: maxStack(1, 0), jumps: true}
	tbl[JUMPI] = &operation{execute: opJumpi, constantGas: params.GasSlowStep, minStack: minStack(2, 0), maxStack: maxStack(2, 0), jumps: true}
	tbl[PC] = &operation{execute: opPc, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[MSIZE] = &operation{execute: opMsize, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[GAS] = &operation{execute: opGas, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[JUMPDEST] = &operation{execute: opJumpdest, constantGas: params.JumpdestGas, minStack: minStack(0, 0), maxStack: maxStack(0, 0)}

	// Push, dup, swap.
	for i := 1; i <= 32; i++ {
		tbl[PUSH1+OpCode(i-1)] = &operation{
			execute:     makePush(uint64(i)),
			constantGas: params.GasFastestStep,
			minStack:    minStack(0, 1),
			maxStack:    maxStack(0, 1),
		}
	}
	for i := 1; i <= 16; i++ {
		tbl[DUP1+OpCode(i-1)] = &operation{
			execute:     makeDup(i),
			constantGas: params.GasFastestStep,
			minStack:    minStack(i, i+1),
			maxStack:    maxStack(i, i+1),
		}
	}
	for i := 1; i <= 16; i++ {
		tbl[SWAP1+OpCode(i-1)] = &operation{
			execute:     makeSwap(i),
			constantGas: params.GasFastestStep,
			minStack:    minStack(i+1, i+1),
			maxStack:    maxStack(i+1, i+1),
		}
	}

	// Logging.
	for i := 0; i <= 4; i++ {
		tbl[LOG0+OpCode(i)] = &operation{
			execute:     makeLog(i),
			dynamicGas:  makeGasLog(uint64(i)),
			minStack:    minStack(2+i, 0),
			maxStack:    maxStack(2+i, 0),
			memorySize:  memoryLog,
			writes:      true,
		}
	}

	// Calls and termination.
	tbl[CREATE] = &operation{execute: opCreate, constantGas: params.CreateGas, dynamicGas: gasCreate, minStack: minStack(3, 1), maxStack: maxStack(3, 1), memorySize: memoryCreate, writes: true}
	tbl[CALL] = &operation{execute: opCall, constantGas: cfg.GasCall, dynamicGas: gasCall, minStack: minStack(7, 1), maxStack: maxStack(7, 1), memorySize: memoryCall}
	tbl[CALLCODE] = &operation{execute: opCallCode, constantGas: cfg.GasCall, dynamicGas: gasCallCode, minStack: minStack(7, 1), maxStack: maxStack(7, 1), memorySize: memoryCall}
	tbl[RETURN] = &operation{execute: opReturn, dynamicGas: gasMemExpansion, minStack: minStack(2, 0), maxStack: maxStack(2, 0), memorySize: memoryReturn, halts: true}
	tbl[SELFDESTRUCT] = &operation{execute: opSelfdestruct, constantGas: cfg.GasSelfdestruct, dynamicGas: gasSelfdestruct, minStack: minStack(1, 0), maxStack: maxStack(1, 0), halts: true, writes: true}

	// Fork-gated opcodes.
	if cfg.HasDelegateCall {
		tbl[DELEGATECALL] = &operation{execute: opDelegateCall, constantGas: cfg.GasCall, dynamicGas: gasDelegateCall, minStack: minStack(6, 1), maxStack: maxStack(6, 1), memorySize: memoryDelegateCall}
	}
	if cfg.HasStaticCall {
		tbl[STATICCALL] = &operation{execute: opStaticCall, constantGas: cfg.GasCall, dynamicGas: gasStaticCall, minStack: minStack(6, 1), maxStack: maxStack(6, 1), memorySize: memoryDelegateCall}
	}
	if cfg.HasRevert {
		tbl[REVERT] = &operation{execute: opRevert, dynamicGas: gasMemExpansion, minStack: minStack(2, 0), maxStack: maxStack(2, 0), memorySize: memoryRevert, halts: true}
	}
	if cfg.HasReturnData {
		tbl[RETURNDATASIZE] = &operation{execute: opReturnDataSize, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
		tbl[RETURNDATACOPY] = &operation{execute: opReturnDataCopy, constantGas: params.GasFastestStep, dynamicGas: gasCopy, minStack: minStack(3, 0), maxStack: maxStack(3, 0), memorySize: memoryReturnDataCopy}
	}
	if cfg.HasShiftOps {
		tbl[SHL] = &operation{execute: opSHL, constantGas: params.GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
		tbl[SHR] = &operation{execute: opSHR, constantGas: params.GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
		tbl[SAR] = &operation{execute: opSAR, constantGas: params.GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	}
	if cfg.HasCreate2 {
		tbl[CREATE2] = &operation{execute: opCreate2, constantGas: params.Create2Gas, dynamicGas: gasCreate2, minStack: minStack(4, 1), maxStack: maxStack(4, 1), memorySize: memoryCreate2, writes: true}
	}
	if cfg.HasExtCodeHash {
		tbl[EXTCODEHASH] = &operation{execute: opExtCodeHash, constantGas: cfg.GasExtCodeHash, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	}
	if cfg.HasChainID {
		tbl[CHAINID] = &operation{execute: opChainID, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	}
	if cfg.HasSelfBalance {
		tbl[SELFBALANCE] = &operation{execute: opSelfBalance, constantGas: params.GasFastStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	}
	if cfg.HasBaseFee {
		tbl[BASEFEE] = &operation{execute: opBaseFee, constantGas: params.GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	}
	if cfg.HasPush0 {
		tbl[PUSH0] = &operation{execute: opPush0, constantGas: params.Push0Gas, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	}
	if cfg.HasTransientStorage {
		tbl[TLOAD] = &operation{execute: opTload, constantGas: params.TloadGas, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
		tbl[TSTORE] = &operation{execute: opTstore, constantGas: params.TstoreGas, minStack: minStack(2, 0), maxStack: maxStack(2, 0), writes: true}
	}
	if cfg.HasMcopy {
		tbl[MCOPY] = &operation{execute: opMcopy, constantGas: params.GasFastestStep, dynamicGas: gasMcopy, minStack: minStack(3, 0), maxStack: maxStack(3, 0), memorySize: memoryMcopy}
	}
	if cfg.HasBlobHash {
		tbl[BLOBHASH] = &operation{execute: opBlobHash, constantGas: params.BlobHashGas, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	}
	if cfg.HasBlobBaseFee {
		tbl[BLOBBASEFEE] = &operation{execute: opBlobBaseFee, constantGas: params.BlobBaseFeeGas, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	}

	// EIP-2929: the warm cost becomes the table's static cost and the
	// cold surcharge moves into dynamic gas.
	if cfg.HasAccessLists {
		tbl[SLOAD].constantGas = 0
		tbl[SLOAD].dynamicGas = gasSLoadEIP2929
		tbl[BALANCE].constantGas = params.WarmStorageReadCostEIP2929
		tbl[BALANCE].dynamicGas = gasAccountAccessEIP2929
		tbl[EXTCODESIZE].constantGas = params.WarmStorageReadCostEIP2929
		tbl[EXTCODESIZE].dynamicGas = gasAccountAccessEIP2929
		tbl[EXTCODECOPY].constantGas = params.WarmStorageReadCostEIP2929
		tbl[EXTCODECOPY].dynamicGas = gasExtCodeCopyEIP2929
		if tbl[EXTCODEHASH] != nil {
			tbl[EXTCODEHASH].constantGas = params.WarmStorageReadCostEIP2929
			tbl[EXTCODEHASH].dynamicGas = gasAccountAccessEIP2929
		}
		tbl[CALL].constantGas = params.WarmStorageReadCostEIP2929
		tbl[CALL].dynamicGas = gasCallEIP2929
		tbl[CALLCODE].constantGas = params.WarmStorageReadCostEIP2929
		tbl[CALLCODE].dynamicGas = gasCallCodeEIP2929
		if tbl[DELEGATECALL] != nil {
			tbl[DELEGATECALL].constantGas = params.WarmStorageReadCostEIP2929
			tbl[DELEGATECALL].dynamicGas = gasDelegateCallEIP2929
		}
		if tbl[STATICCALL] != nil {
			tbl[STATICCALL].constantGas = params.WarmStorageReadCostEIP2929
			tbl[STATICCALL].dynamicGas = gasStaticCallEIP2929
		}
		tbl[SELFDESTRUCT].dynamicGas = gasSelfdestructEIP2929
	}

	return tbl
}
