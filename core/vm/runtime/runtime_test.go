package runtime

import (
	"bytes"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/evmcore/evmcore/core/types"
	"github.com/evmcore/evmcore/core/vm"
	"github.com/evmcore/evmcore/params"
)

func TestExecuteAddOverflow(t *testing.T) {
	// PUSH1 0xff PUSH1 0xff ADD, then implicit STOP.
	tracer := vm.NewStructLogTracer()
	outcome, _ := Execute([]byte{0x60, 0xff, 0x60, 0xff, 0x01}, nil, &Config{
		ForkConfig: params.IstanbulConfig(),
		GasLimit:   100_000,
		EVMConfig:  vm.Config{Tracer: tracer},
	})
	require.True(t, outcome.ExitReason.Succeeded())
	require.Empty(t, outcome.ReturnData)
	require.Equal(t, uint64(9), outcome.GasUsed)

	// The final traced step is the implicit STOP with 0x1fe on top.
	last := tracer.Logs[len(tracer.Logs)-1]
	require.Equal(t, vm.STOP, last.Op)
	require.Equal(t, uint64(0x1fe), last.Stack[len(last.Stack)-1].Uint64())
}

func TestExecuteOutOfGasOnMemoryBlowup(t *testing.T) {
	// PUSH1 0 PUSH2 0xffff MSTORE PUSH1 0 PUSH1 0 RETURN with 100 gas:
	// the store at offset 0xffff needs expansion to 64 KiB, unpayable.
	code := []byte{0x60, 0x00, 0x61, 0xff, 0xff, 0x52, 0x60, 0x00, 0x60, 0x00, 0xf3}
	outcome, _ := Execute(code, nil, &Config{
		ForkConfig: params.IstanbulConfig(),
		GasLimit:   100,
	})
	require.Equal(t, vm.ExitError, outcome.ExitReason.Kind)
	require.ErrorIs(t, outcome.ExitReason.Err, vm.ErrOutOfGas)
	require.Equal(t, uint64(100), outcome.GasUsed)
	require.Empty(t, outcome.ReturnData)
}

func TestStaticCallViolation(t *testing.T) {
	st := NewHostState()
	callee := types.HexToAddress("0xbb")
	caller := types.HexToAddress("0xaa")
	// Callee: PUSH1 1 PUSH1 0 SSTORE.
	st.SetCode(callee, []byte{0x60, 0x01, 0x60, 0x00, 0x55})
	// Caller: STATICCALL(gas, callee, 0, 0, 0, 0), store the success
	// flag in memory and return it.
	callerCode := append([]byte{
		0x60, 0x00, // retSize
		0x60, 0x00, // retOffset
		0x60, 0x00, // inSize
		0x60, 0x00, // inOffset
		0x73, // PUSH20 callee
	}, callee.Bytes()...)
	callerCode = append(callerCode,
		0x5a,       // GAS
		0xfa,       // STATICCALL
		0x60, 0x00, // PUSH1 0
		0x52,       // MSTORE
		0x60, 0x20, // PUSH1 32
		0x60, 0x00, // PUSH1 0
		0xf3, // RETURN
	)
	st.SetCode(caller, callerCode)

	cfg := &Config{ForkConfig: params.IstanbulConfig(), GasLimit: 100_000, State: st}
	outcome := Call(caller, nil, cfg)

	require.True(t, outcome.ExitReason.Succeeded())
	// The static call failed: the returned flag is zero.
	require.Equal(t, make([]byte, 32), outcome.ReturnData)
	// And the write never happened.
	require.True(t, st.Storage(callee, types.Hash{}).IsZero())
	require.Empty(t, st.Logs())
}

func TestRevertPreservesGasAndReturnsData(t *testing.T) {
	payload := bytes.Repeat([]byte{0xab}, 32)
	// PUSH32 payload PUSH1 0 MSTORE PUSH1 32 PUSH1 0 REVERT.
	code := append([]byte{0x7f}, payload...)
	code = append(code, 0x60, 0x00, 0x52, 0x60, 0x20, 0x60, 0x00, 0xfd)

	outcome, st := Execute(code, nil, &Config{
		ForkConfig: params.IstanbulConfig(),
		GasLimit:   100_000,
	})
	require.Equal(t, vm.ExitRevert, outcome.ExitReason.Kind)
	require.Equal(t, payload, outcome.ReturnData)
	require.Less(t, outcome.GasUsed, uint64(100_000))
	// PUSH32 + PUSH1 + MSTORE(3+3) + 2 PUSH1 + REVERT(0).
	require.Equal(t, uint64(18), outcome.GasUsed)
	require.Empty(t, outcome.Logs)
	require.Empty(t, st.Logs())
}

func TestNestedCall63of64(t *testing.T) {
	st := NewHostState()
	parent := types.HexToAddress("0xaa")
	child := types.HexToAddress("0xbb")

	// Child returns the gas it observes: GAS PUSH1 0 MSTORE PUSH1 32
	// PUSH1 0 RETURN.
	st.SetCode(child, []byte{0x5a, 0x60, 0x00, 0x52, 0x60, 0x20, 0x60, 0x00, 0xf3})

	// Parent: CALL(100000, child, 0, 0, 0, 0, 32) and return the child's
	// answer.
	parentCode := append([]byte{
		0x60, 0x20, // retSize = 32
		0x60, 0x00, // retOffset
		0x60, 0x00, // inSize
		0x60, 0x00, // inOffset
		0x60, 0x00, // value
		0x73, // PUSH20 child
	}, child.Bytes()...)
	parentCode = append(parentCode,
		0x62, 0x01, 0x86, 0xa0, // PUSH3 100000 (requested gas)
		0xf1,       // CALL
		0x50,       // POP success flag
		0x60, 0x20, // PUSH1 32
		0x60, 0x00, // PUSH1 0
		0xf3, // RETURN
	)
	st.SetCode(parent, parentCode)

	cfg := &Config{ForkConfig: params.IstanbulConfig(), GasLimit: 64_000, State: st}
	outcome := Call(parent, nil, cfg)
	require.True(t, outcome.ExitReason.Succeeded())

	// At the CALL: 64000 - 21 (pushes) - 700 (call base) = 63279 left,
	// minus 3 memory gas: the 63/64 rule caps the forwarded gas at
	// 63276 - 63276/64 = 62288, despite 100000 being requested. The
	// child's GAS opcode then observes 62288 - 2.
	got := new(uint256.Int).SetBytes(outcome.ReturnData)
	require.Equal(t, uint64(62286), got.Uint64())

	// Full accounting: 21 + 700 + 3 + child's 17 + parent's trailing 8.
	require.Equal(t, uint64(749), outcome.GasUsed)
}

func TestCreate2Determinism(t *testing.T) {
	st := NewHostState()
	deployer := types.Address{} // the zero address
	// CREATE2(value=0, offset=0, size=1, salt=0): init code is the single
	// zero byte read from untouched memory. Stack: value, offset, size,
	// salt, so push salt first.
	st.SetCode(deployer, []byte{
		0x60, 0x00, // salt
		0x60, 0x01, // size
		0x60, 0x00, // offset
		0x60, 0x00, // value
		0xf5,       // CREATE2
		0x60, 0x00, // PUSH1 0
		0x52,       // MSTORE
		0x60, 0x20, // PUSH1 32
		0x60, 0x00, // PUSH1 0
		0xf3, // RETURN
	})

	cfg := &Config{ForkConfig: params.IstanbulConfig(), GasLimit: 1_000_000, State: st}
	outcome := Call(deployer, nil, cfg)
	require.True(t, outcome.ExitReason.Succeeded())

	want := types.HexToAddress("0x4d1a2e2bb4f88f0250f26ffff098b0b30b26bf38")
	got := types.BytesToAddress(outcome.ReturnData)
	require.Equal(t, want, got)
	// The account sprang into existence with the creation nonce.
	require.Equal(t, uint64(1), st.Nonce(want))
}

func TestNestedCallMergesLogs(t *testing.T) {
	st := NewHostState()
	parent := types.HexToAddress("0xaa")
	child := types.HexToAddress("0xcc")
	// Child: LOG0 over an empty region, then STOP.
	st.SetCode(child, []byte{0x60, 0x00, 0x60, 0x00, 0xa0, 0x00})
	parentCode := append([]byte{
		0x60, 0x00, 0x60, 0x00, 0x60, 0x00, 0x60, 0x00, 0x60, 0x00,
		0x73,
	}, child.Bytes()...)
	parentCode = append(parentCode, 0x5a, 0xf1, 0x00)
	st.SetCode(parent, parentCode)

	cfg := &Config{ForkConfig: params.IstanbulConfig(), GasLimit: 200_000, State: st}
	outcome := Call(parent, nil, cfg)
	require.True(t, outcome.ExitReason.Succeeded())
	require.Len(t, outcome.Logs, 1)
	require.Equal(t, child, outcome.Logs[0].Address)
	require.Len(t, st.Logs(), 1)
}

func TestRevertDropsSubstate(t *testing.T) {
	// Write a slot, emit a log, then revert everything.
	code := []byte{
		0x60, 0x01, 0x60, 0x00, 0x55, // SSTORE(0, 1)
		0x60, 0x00, 0x60, 0x00, 0xa0, // LOG0
		0x60, 0x00, 0x60, 0x00, 0xfd, // REVERT(0, 0)
	}
	outcome, st := Execute(code, nil, &Config{
		ForkConfig: params.IstanbulConfig(),
		GasLimit:   200_000,
	})
	require.Equal(t, vm.ExitRevert, outcome.ExitReason.Kind)
	require.Empty(t, outcome.Logs)
	require.Empty(t, st.Logs())
	addr := types.BytesToAddress([]byte("contract"))
	require.True(t, st.Storage(addr, types.Hash{}).IsZero())
}

func TestInvalidJumpConsumesAllGas(t *testing.T) {
	// PUSH1 5 JUMP: 5 is past the end of code.
	outcome, _ := Execute([]byte{0x60, 0x05, 0x56}, nil, &Config{
		ForkConfig: params.IstanbulConfig(),
		GasLimit:   10_000,
	})
	require.Equal(t, vm.ExitError, outcome.ExitReason.Kind)
	require.ErrorIs(t, outcome.ExitReason.Err, vm.ErrInvalidJump)
	require.Equal(t, uint64(10_000), outcome.GasUsed)
}

func TestJumpiToJumpdest(t *testing.T) {
	// PUSH1 1 PUSH1 5 JUMPI ... JUMPDEST STOP
	outcome, _ := Execute([]byte{0x60, 0x01, 0x60, 0x05, 0x57, 0x5b, 0x00}, nil, &Config{
		ForkConfig: params.IstanbulConfig(),
		GasLimit:   10_000,
	})
	require.True(t, outcome.ExitReason.Succeeded())
	// 3 + 3 + 10 + 1 (JUMPDEST) + 0 (STOP).
	require.Equal(t, uint64(17), outcome.GasUsed)
}

func TestReturnDataCopyOutOfBounds(t *testing.T) {
	// RETURNDATACOPY(0, 0, 1) with an empty return buffer.
	outcome, _ := Execute([]byte{0x60, 0x01, 0x60, 0x00, 0x60, 0x00, 0x3e}, nil, &Config{
		ForkConfig: params.IstanbulConfig(),
		GasLimit:   10_000,
	})
	require.Equal(t, vm.ExitError, outcome.ExitReason.Kind)
	require.ErrorIs(t, outcome.ExitReason.Err, vm.ErrReturnDataOutOfBounds)
}

func TestPrecompileIdentity(t *testing.T) {
	cfg := &Config{ForkConfig: params.IstanbulConfig(), GasLimit: 10_000}
	setDefaults(cfg)
	input := []byte{1, 2, 3, 4}
	outcome := Call(types.BytesToAddress([]byte{0x04}), input, cfg)
	require.True(t, outcome.ExitReason.Succeeded())
	require.Equal(t, input, outcome.ReturnData)
	// 15 base + 3 per word.
	require.Equal(t, uint64(18), outcome.GasUsed)
}

func TestSelfdestructRefundAndTransfer(t *testing.T) {
	st := NewHostState()
	contract := types.HexToAddress("0xaa")
	beneficiary := types.HexToAddress("0xbe")
	st.SetBalance(contract, uint256.NewInt(5))
	st.SetBalance(beneficiary, uint256.NewInt(1))
	code := append([]byte{0x73}, beneficiary.Bytes()...)
	st.SetCode(contract, append(code, 0xff))

	cfg := &Config{ForkConfig: params.IstanbulConfig(), GasLimit: 100_000, State: st}
	outcome := Call(contract, nil, cfg)
	require.True(t, outcome.ExitReason.Succeeded())
	require.Len(t, outcome.Selfdestructs, 1)
	require.Equal(t, contract, outcome.Selfdestructs[0].Address)
	require.Equal(t, beneficiary, outcome.Selfdestructs[0].Beneficiary)
	require.Equal(t, params.SelfdestructRefundGas, outcome.Refund)
	require.Equal(t, uint64(6), st.Balance(beneficiary).Uint64())
	require.True(t, st.Balance(contract).IsZero())
	// PUSH20 + SELFDESTRUCT.
	require.Equal(t, uint64(3+5000), outcome.GasUsed)
}

func TestSelfdestructNoRefundPostLondon(t *testing.T) {
	st := NewHostState()
	contract := types.HexToAddress("0xaa")
	beneficiary := types.HexToAddress("0xbe")
	st.SetBalance(beneficiary, uint256.NewInt(1))
	code := append([]byte{0x73}, beneficiary.Bytes()...)
	st.SetCode(contract, append(code, 0xff))

	cfg := &Config{ForkConfig: params.LondonConfig(), GasLimit: 100_000, State: st}
	outcome := Call(contract, nil, cfg)
	require.True(t, outcome.ExitReason.Succeeded())
	require.Zero(t, outcome.Refund)
}

func TestTraceReplayDeterminism(t *testing.T) {
	code := []byte{
		0x60, 0x2a, 0x60, 0x00, 0x55, // SSTORE(0, 42)
		0x60, 0x00, 0x54, // SLOAD(0)
		0x60, 0x00, 0x52, // MSTORE(0, ...)
		0x60, 0x20, 0x60, 0x00, 0xf3, // RETURN(0, 32)
	}
	run := func() (*vm.Outcome, *vm.StructLogTracer) {
		tracer := vm.NewStructLogTracer()
		outcome, _ := Execute(code, nil, &Config{
			ForkConfig: params.CancunConfig(),
			GasLimit:   100_000,
			EVMConfig:  vm.Config{Tracer: tracer},
		})
		return outcome, tracer
	}
	o1, t1 := run()
	o2, t2 := run()
	require.Equal(t, o1.GasUsed, o2.GasUsed)
	require.Equal(t, o1.ReturnData, o2.ReturnData)
	require.Equal(t, len(t1.Logs), len(t2.Logs))
	for i := range t1.Logs {
		require.Equal(t, t1.Logs[i].Pc, t2.Logs[i].Pc, "step %d", i)
		require.Equal(t, t1.Logs[i].Op, t2.Logs[i].Op, "step %d", i)
		require.Equal(t, t1.Logs[i].Gas, t2.Logs[i].Gas, "step %d", i)
	}
	// The SLOAD reads back what SSTORE wrote.
	require.Equal(t, uint64(42), new(uint256.Int).SetBytes(o1.ReturnData).Uint64())
}

func TestGasNonIncreasingPerStep(t *testing.T) {
	tracer := vm.NewStructLogTracer()
	code := []byte{
		0x60, 0x01, 0x60, 0x02, 0x01, // ADD
		0x60, 0x00, 0x52, // MSTORE
		0x60, 0x20, 0x60, 0x00, 0xf3, // RETURN
	}
	_, _ = Execute(code, nil, &Config{
		ForkConfig: params.IstanbulConfig(),
		GasLimit:   100_000,
		EVMConfig:  vm.Config{Tracer: tracer},
	})
	for i := 1; i < len(tracer.Logs); i++ {
		require.LessOrEqual(t, tracer.Logs[i].Gas, tracer.Logs[i-1].Gas, "gas increased at step %d", i)
	}
	for _, entry := range tracer.Logs {
		require.LessOrEqual(t, len(entry.Stack), 1024)
	}
}
