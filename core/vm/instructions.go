package vm

import (
	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/crypto"
)

func opAdd(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	x, y := f.stack.Pop(), f.stack.Peek()
	y.Add(&x, y)
	return nil, nil
}

func opSub(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	x, y := f.stack.Pop(), f.stack.Peek()
	y.Sub(&x, y)
	return nil, nil
}

func opMul(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	x, y := f.stack.Pop(), f.stack.Peek()
	y.Mul(&x, y)
	return nil, nil
}

func opDiv(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	x, y := f.stack.Pop(), f.stack.Peek()
	y.Div(&x, y)
	return nil, nil
}

func opSdiv(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	x, y := f.stack.Pop(), f.stack.Peek()
	y.SDiv(&x, y)
	return nil, nil
}

func opMod(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	x, y := f.stack.Pop(), f.stack.Peek()
	y.Mod(&x, y)
	return nil, nil
}

func opSmod(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	x, y := f.stack.Pop(), f.stack.Peek()
	y.SMod(&x, y)
	return nil, nil
}

func opAddmod(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	x, y, z := f.stack.Pop(), f.stack.Pop(), f.stack.Peek()
	z.AddMod(&x, &y, z)
	return nil, nil
}

func opMulmod(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	x, y, z := f.stack.Pop(), f.stack.Pop(), f.stack.Peek()
	z.MulMod(&x, &y, z)
	return nil, nil
}

func opExp(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	base, exponent := f.stack.Pop(), f.stack.Peek()
	exponent.Exp(&base, exponent)
	return nil, nil
}

func opSignExtend(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	back, num := f.stack.Pop(), f.stack.Peek()
	num.ExtendSign(num, &back)
	return nil, nil
}

func opLt(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	x, y := f.stack.Pop(), f.stack.Peek()
	if x.Lt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opGt(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	x, y := f.stack.Pop(), f.stack.Peek()
	if x.Gt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opSlt(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	x, y := f.stack.Pop(), f.stack.Peek()
	if x.Slt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opSgt(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	x, y := f.stack.Pop(), f.stack.Peek()
	if x.Sgt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opEq(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	x, y := f.stack.Pop(), f.stack.Peek()
	if x.Eq(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opIszero(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	x := f.stack.Peek()
	if x.IsZero() {
		x.SetOne()
	} else {
		x.Clear()
	}
	return nil, nil
}

func opAnd(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	x, y := f.stack.Pop(), f.stack.Peek()
	y.And(&x, y)
	return nil, nil
}

func opOr(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	x, y := f.stack.Pop(), f.stack.Peek()
	y.Or(&x, y)
	return nil, nil
}

func opXor(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	x, y := f.stack.Pop(), f.stack.Peek()
	y.Xor(&x, y)
	return nil, nil
}

func opNot(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	x := f.stack.Peek()
	x.Not(x)
	return nil, nil
}

func opByte(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	th, val := f.stack.Pop(), f.stack.Peek()
	val.Byte(&th)
	return nil, nil
}

func opSHL(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	shift, value := f.stack.Pop(), f.stack.Peek()
	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil, nil
}

func opSHR(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	shift, value := f.stack.Pop(), f.stack.Peek()
	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil, nil
}

func opSAR(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	shift, value := f.stack.Pop(), f.stack.Peek()
	if shift.GtUint64(255) {
		if value.Sign() >= 0 {
			value.Clear()
		} else {
			// Max negative shift: all bits set.
			value.SetAllOne()
		}
		return nil, nil
	}
	n := uint(shift.Uint64())
	value.SRsh(value, n)
	return nil, nil
}

func opKeccak256(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	offset, size := f.stack.Pop(), f.stack.Peek()
	data := f.memory.GetPtr(offset.Uint64(), size.Uint64())
	hash := crypto.Keccak256(data)
	size.SetBytes(hash)
	return nil, nil
}

func opAddress(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Push(new(uint256.Int).SetBytes(f.contract.Address.Bytes()))
	return nil, nil
}

func opOrigin(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Push(new(uint256.Int).SetBytes(ev.Tx.Origin.Bytes()))
	return nil, nil
}

func opCaller(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Push(new(uint256.Int).SetBytes(f.contract.CallerAddress.Bytes()))
	return nil, nil
}

func opCallValue(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Push(new(uint256.Int).Set(f.contract.Value))
	return nil, nil
}

func opCallDataLoad(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	x := f.stack.Peek()
	if offset, overflow := x.Uint64WithOverflow(); !overflow {
		data := getData(f.contract.Input, offset, 32)
		x.SetBytes(data)
	} else {
		x.Clear()
	}
	return nil, nil
}

func opCallDataSize(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Push(new(uint256.Int).SetUint64(uint64(len(f.contract.Input))))
	return nil, nil
}

func opCallDataCopy(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	var (
		memOffset  = f.stack.Pop()
		dataOffset = f.stack.Pop()
		length     = f.stack.Pop()
	)
	dataOffset64, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		dataOffset64 = 0xffffffffffffffff
	}
	// The memory region was expanded by the pre-check; a zero length
	// copies nothing.
	if length64 := length.Uint64(); length64 != 0 {
		f.memory.Set(memOffset.Uint64(), length64, getData(f.contract.Input, dataOffset64, length64))
	}
	return nil, nil
}

func opCodeSize(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Push(new(uint256.Int).SetUint64(uint64(len(f.contract.Code))))
	return nil, nil
}

func opCodeCopy(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	var (
		memOffset  = f.stack.Pop()
		codeOffset = f.stack.Pop()
		length     = f.stack.Pop()
	)
	codeOffset64, overflow := codeOffset.Uint64WithOverflow()
	if overflow {
		codeOffset64 = 0xffffffffffffffff
	}
	if length64 := length.Uint64(); length64 != 0 {
		f.memory.Set(memOffset.Uint64(), length64, getData(f.contract.Code, codeOffset64, length64))
	}
	return nil, nil
}

func opGasprice(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	v := new(uint256.Int)
	if ev.Tx.GasPrice != nil {
		v.Set(ev.Tx.GasPrice)
	}
	f.stack.Push(v)
	return nil, nil
}

func opReturnDataSize(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Push(new(uint256.Int).SetUint64(uint64(len(f.returnData))))
	return nil, nil
}

func opReturnDataCopy(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	var (
		memOffset  = f.stack.Pop()
		dataOffset = f.stack.Pop()
		length     = f.stack.Pop()
	)
	offset64, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		return nil, ErrReturnDataOutOfBounds
	}
	end := new(uint256.Int).Add(&dataOffset, &length)
	end64, overflow := end.Uint64WithOverflow()
	if overflow || uint64(len(f.returnData)) < end64 {
		return nil, ErrReturnDataOutOfBounds
	}
	if length64 := length.Uint64(); length64 != 0 {
		f.memory.Set(memOffset.Uint64(), length64, f.returnData[offset64:end64])
	}
	return nil, nil
}

func opBlockhash(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	num := f.stack.Peek()
	num64, overflow := num.Uint64WithOverflow()
	if overflow {
		num.Clear()
		return nil, nil
	}
	var upper, lower uint64
	upper = ev.Block.Number
	if upper < 257 {
		lower = 0
	} else {
		lower = upper - 256
	}
	if num64 >= lower && num64 < upper {
		hash := ev.handler.BlockHash(num64)
		num.SetBytes(hash.Bytes())
	} else {
		num.Clear()
	}
	return nil, nil
}

func opCoinbase(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Push(new(uint256.Int).SetBytes(ev.Block.Coinbase.Bytes()))
	return nil, nil
}

func opTimestamp(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Push(new(uint256.Int).SetUint64(ev.Block.Time))
	return nil, nil
}

func opNumber(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Push(new(uint256.Int).SetUint64(ev.Block.Number))
	return nil, nil
}

func opPrevRandao(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Push(new(uint256.Int).SetBytes(ev.Block.PrevRandao.Bytes()))
	return nil, nil
}

func opGasLimit(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Push(new(uint256.Int).SetUint64(ev.Block.GasLimit))
	return nil, nil
}

func opChainID(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Push(new(uint256.Int).SetUint64(ev.cfg.ChainID))
	return nil, nil
}

func opBaseFee(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	v := new(uint256.Int)
	if ev.Block.BaseFee != nil {
		v.Set(ev.Block.BaseFee)
	}
	f.stack.Push(v)
	return nil, nil
}

func opBlobHash(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	index := f.stack.Peek()
	if index.LtUint64(uint64(len(ev.Tx.BlobHashes))) {
		blobHash := ev.Tx.BlobHashes[index.Uint64()]
		index.SetBytes32(blobHash.Bytes())
	} else {
		index.Clear()
	}
	return nil, nil
}

func opBlobBaseFee(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	v := new(uint256.Int)
	if ev.Block.BlobBaseFee != nil {
		v.Set(ev.Block.BlobBaseFee)
	}
	f.stack.Push(v)
	return nil, nil
}

func opPop(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Pop()
	return nil, nil
}

func opMload(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	v := f.stack.Peek()
	offset := v.Uint64()
	v.SetBytes(f.memory.GetPtr(offset, 32))
	return nil, nil
}

func opMstore(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	mStart, val := f.stack.Pop(), f.stack.Pop()
	f.memory.Set32(mStart.Uint64(), &val)
	return nil, nil
}

func opMstore8(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	off, val := f.stack.Pop(), f.stack.Pop()
	f.memory.Set(off.Uint64(), 1, []byte{byte(val.Uint64())})
	return nil, nil
}

func opMcopy(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	var (
		dst    = f.stack.Pop()
		src    = f.stack.Pop()
		length = f.stack.Pop()
	)
	f.memory.Copy(dst.Uint64(), src.Uint64(), length.Uint64())
	return nil, nil
}

func opJump(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	pos := f.stack.Pop()
	if !f.contract.validJumpdest(&pos) {
		return nil, ErrInvalidJump
	}
	*pc = pos.Uint64()
	return nil, nil
}

func opJumpi(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	pos, cond := f.stack.Pop(), f.stack.Pop()
	if !cond.IsZero() {
		if !f.contract.validJumpdest(&pos) {
			return nil, ErrInvalidJump
		}
		*pc = pos.Uint64()
	} else {
		*pc++
	}
	return nil, nil
}

func opJumpdest(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	return nil, nil
}

func opPc(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Push(new(uint256.Int).SetUint64(*pc))
	return nil, nil
}

func opMsize(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Push(new(uint256.Int).SetUint64(uint64(f.memory.Len())))
	return nil, nil
}

func opGas(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Push(new(uint256.Int).SetUint64(f.contract.Gas))
	return nil, nil
}

func opPush0(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	f.stack.Push(new(uint256.Int))
	return nil, nil
}

// makePush builds the PUSH1..PUSH32 handler for pushSize immediate bytes.
// Immediates past the end of code read as zero.
func makePush(pushSize uint64) executionFunc {
	return func(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
		var (
			codeLen = uint64(len(f.contract.Code))
			start   = *pc + 1
			end     = start + pushSize
		)
		if start > codeLen {
			start = codeLen
		}
		if end > codeLen {
			end = codeLen
		}
		integer := new(uint256.Int)
		f.stack.Push(integer.SetBytes(rightPadBytes(f.contract.Code[start:end], int(pushSize))))
		*pc += pushSize
		return nil, nil
	}
}

// makeDup builds the DUP1..DUP16 handler.
func makeDup(size int) executionFunc {
	return func(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
		f.stack.Dup(size)
		return nil, nil
	}
}

// makeSwap builds the SWAP1..SWAP16 handler.
func makeSwap(size int) executionFunc {
	return func(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
		f.stack.Swap(size)
		return nil, nil
	}
}

func opStop(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	return nil, nil
}

func opReturn(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	offset, size := f.stack.Pop(), f.stack.Pop()
	ret := f.memory.Get(offset.Uint64(), size.Uint64())
	return ret, nil
}

func opRevert(pc *uint64, ev *Executor, f *Frame) ([]byte, error) {
	offset, size := f.stack.Pop(), f.stack.Pop()
	ret := f.memory.Get(offset.Uint64(), size.Uint64())
	return ret, ErrExecutionReverted
}

// getData returns a zero-padded slice of data[start:start+size].
func getData(data []byte, start uint64, size uint64) []byte {
	length := uint64(len(data))
	if start > length {
		start = length
	}
	end := start + size
	if end > length {
		end = length
	}
	return rightPadBytes(data[start:end], int(size))
}

// rightPadBytes zero-pads b on the right to length l.
func rightPadBytes(b []byte, l int) []byte {
	if l <= len(b) {
		return b
	}
	padded := make([]byte, l)
	copy(padded, b)
	return padded
}
