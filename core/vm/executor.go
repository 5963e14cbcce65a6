package vm

import (
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
	"github.com/evmcore/evmcore/crypto"
	"github.com/evmcore/evmcore/log"
	"github.com/evmcore/evmcore/params"
)

// jumpdestCacheSize bounds the shared JUMPDEST-analysis memo.
const jumpdestCacheSize = 128

// Config holds optional executor knobs that do not affect consensus.
type Config struct {
	Tracer EVMLogger
	Logger *log.Logger
}

// Executor owns the call stack of frames and drives them to completion,
// resolving suspensions against the runtime handler: state queries are
// answered synchronously, call and create requests become child frames
// (or precompile dispatches), and terminal frames deliver their results
// into the parent's resume path.
type Executor struct {
	Block BlockContext
	Tx    TxContext

	cfg     *params.ForkConfig
	handler RuntimeHandler
	table   JumpTable
	tracer  EVMLogger
	logger  *log.Logger

	frames    []*Frame
	jumpdests *lru.Cache[types.Hash, bitvec]
	aborted   bool
}

// NewExecutor builds an executor for one call tree. The jump table is
// derived from cfg once, here.
func NewExecutor(cfg *params.ForkConfig, block BlockContext, tx TxContext, handler RuntimeHandler, vmConfig Config) *Executor {
	logger := vmConfig.Logger
	if logger == nil {
		logger = log.Discard()
	}
	cache, _ := lru.New[types.Hash, bitvec](jumpdestCacheSize)
	return &Executor{
		Block:     block,
		Tx:        tx,
		cfg:       cfg,
		handler:   handler,
		table:     NewJumpTable(cfg),
		tracer:    vmConfig.Tracer,
		logger:    logger.Module("vm"),
		jumpdests: cache,
	}
}

// ForkConfig returns the active fork configuration.
func (ev *Executor) ForkConfig() *params.ForkConfig { return ev.cfg }

// Handler returns the runtime handler shared by all frames.
func (ev *Executor) Handler() RuntimeHandler { return ev.handler }

// Depth returns the current call depth.
func (ev *Executor) Depth() int { return len(ev.frames) }

// Cancel makes the executor refuse all further suspension requests. The
// current call tree unwinds as Fatal and nothing is committed.
func (ev *Executor) Cancel() { ev.aborted = true }

// Outcome is the terminal result of one top-level execution.
type Outcome struct {
	ExitReason     ExitReason
	GasUsed        uint64
	ReturnData     []byte
	Logs           []*types.Log
	Selfdestructs  []SelfdestructRecord
	Refund         uint64
	CreatedAddress *types.Address
}

// Call executes a message call against the given address and drives it to
// completion.
func (ev *Executor) Call(caller, to types.Address, input []byte, gas uint64, value *uint256.Int) *Outcome {
	if value == nil {
		value = new(uint256.Int)
	}
	ev.prewarm(&to)
	if ev.tracer != nil {
		ev.tracer.CaptureStart(caller, to, false, input, gas, value)
	}
	req := &CallRequest{
		Type:           FrameCall,
		Caller:         caller,
		Target:         to,
		CodeAddress:    to,
		Value:          value,
		TransfersValue: !value.IsZero(),
		Input:          input,
		Gas:            gas,
	}
	frame, res := ev.beginCall(req, 0)
	var outcome *Outcome
	if res != nil {
		outcome = ev.outcomeFromResult(res.Err, res.Output, gas, res.GasLeft)
	} else {
		ev.frames = append(ev.frames[:0], frame)
		ev.run()
		outcome = ev.outcomeFromFrame(frame, gas)
	}
	if ev.tracer != nil {
		ev.tracer.CaptureEnd(outcome.ReturnData, outcome.GasUsed, outcome.ExitReason.Err)
	}
	return outcome
}

// Create executes a contract creation with the given init code.
func (ev *Executor) Create(caller types.Address, initCode []byte, gas uint64, value *uint256.Int) *Outcome {
	if value == nil {
		value = new(uint256.Int)
	}
	ev.prewarm(nil)
	if ev.tracer != nil {
		ev.tracer.CaptureStart(caller, types.Address{}, true, initCode, gas, value)
	}
	var outcome *Outcome
	if ev.cfg.HasInitCodeSizeLimit && uint64(len(initCode)) > ev.cfg.MaxInitCodeSize {
		outcome = ev.outcomeFromResult(ErrMaxInitCodeSizeExceeded, nil, gas, 0)
	} else {
		req := &CreateRequest{
			Type:     FrameCreate,
			Caller:   caller,
			Value:    value,
			InitCode: initCode,
			Gas:      gas,
		}
		frame, res := ev.beginCreate(req, 0)
		if res != nil {
			outcome = ev.outcomeFromResult(res.Err, res.Output, gas, res.GasLeft)
		} else {
			ev.frames = append(ev.frames[:0], frame)
			ev.run()
			outcome = ev.outcomeFromFrame(frame, gas)
		}
	}
	if ev.tracer != nil {
		ev.tracer.CaptureEnd(outcome.ReturnData, outcome.GasUsed, outcome.ExitReason.Err)
	}
	return outcome
}

// run is the executor loop: step the topmost frame until it suspends or
// exits, satisfy suspensions, and unwind terminal frames into their
// parents.
func (ev *Executor) run() {
	for len(ev.frames) > 0 {
		f := ev.frames[len(ev.frames)-1]
		switch f.status {
		case StatusRunning:
			ev.runFrame(f)
		case StatusSuspended:
			ev.dispatch(f)
		case StatusExited:
			ev.finalizeFrame(f)
		}
	}
}

// dispatch satisfies the pending interrupt of the topmost frame.
func (ev *Executor) dispatch(f *Frame) {
	if ev.aborted {
		f.exit(nil, ErrHostAbort)
		return
	}
	intr := f.interrupt
	switch {
	case intr.Query != nil:
		q := intr.Query
		var v any
		switch q.Kind {
		case QueryStorage:
			v = ev.handler.Storage(q.Address, q.Slot)
		case QueryBalance:
			v = ev.handler.Balance(q.Address)
		case QueryCodeSize:
			v = ev.handler.CodeSize(q.Address)
		case QueryCodeHash:
			// An empty account hashes to zero, not to the hash of empty code.
			if ev.handler.Empty(q.Address) {
				v = types.Hash{}
			} else {
				v = ev.handler.CodeHash(q.Address)
			}
		case QueryCode:
			v = ev.handler.Code(q.Address)
		}
		ev.resumeFrame(f, v)

	case intr.Call != nil:
		req := intr.Call
		if len(ev.frames) >= int(params.CallCreateDepth) {
			ev.resumeFrame(f, CallResult{Err: ErrDepth, GasLeft: req.Gas})
			return
		}
		if ev.tracer != nil {
			ev.tracer.CaptureEnter(req.Type, req.Caller, req.Target, req.Input, req.Gas, req.Value)
		}
		child, res := ev.beginCall(req, len(ev.frames))
		if res != nil {
			if ev.tracer != nil {
				ev.tracer.CaptureExit(res.Output, res.GasLeft, res.Err)
			}
			ev.resumeFrame(f, *res)
			return
		}
		ev.logger.Debug("frame enter", "type", req.Type.String(), "target", req.Target.Hex(), "gas", req.Gas, "depth", child.depth)
		ev.frames = append(ev.frames, child)

	case intr.Create != nil:
		req := intr.Create
		if len(ev.frames) >= int(params.CallCreateDepth) {
			ev.resumeFrame(f, CreateResult{Err: ErrDepth, GasLeft: req.Gas})
			return
		}
		if ev.tracer != nil {
			ev.tracer.CaptureEnter(req.Type, req.Caller, types.Address{}, req.InitCode, req.Gas, req.Value)
		}
		child, res := ev.beginCreate(req, len(ev.frames))
		if res != nil {
			if ev.tracer != nil {
				ev.tracer.CaptureExit(res.Output, res.GasLeft, res.Err)
			}
			ev.resumeFrame(f, *res)
			return
		}
		ev.logger.Debug("frame enter", "type", req.Type.String(), "target", child.createdAddr.Hex(), "gas", req.Gas, "depth", child.depth)
		ev.frames = append(ev.frames, child)
	}
}

// beginCall prepares a message-call frame: balance check, checkpoint,
// account creation and value transfer, precompile dispatch, code fetch.
// Either a frame to push or an immediate result is returned.
func (ev *Executor) beginCall(req *CallRequest, depth int) (*Frame, *CallResult) {
	if req.TransfersValue && ev.handler.Balance(req.Caller).Lt(req.Value) {
		return nil, &CallResult{Err: ErrInsufficientBalance, GasLeft: req.Gas}
	}
	checkpoint := ev.handler.Checkpoint()

	p, isPrecompile := ev.handler.Precompile(req.CodeAddress)

	if !ev.handler.Exist(req.Target) && !isPrecompile {
		if ev.cfg.HasEIP158 {
			// Empty accounts spring into existence only when funded.
			if req.TransfersValue {
				ev.handler.CreateAccount(req.Target)
			}
		} else {
			ev.handler.CreateAccount(req.Target)
		}
	}
	if req.TransfersValue {
		ev.handler.Transfer(req.Caller, req.Target, req.Value)
	}

	if isPrecompile {
		output, gasLeft, err := runPrecompile(p, req.Input, req.Gas)
		if err != nil {
			ev.handler.Revert(checkpoint)
		} else {
			ev.handler.Commit(checkpoint)
		}
		return nil, &CallResult{Err: err, Output: output, GasLeft: gasLeft}
	}

	code := ev.handler.Code(req.CodeAddress)
	if len(code) == 0 {
		ev.handler.Commit(checkpoint)
		return nil, &CallResult{GasLeft: req.Gas}
	}

	contract := NewContract(req.Caller, req.Target, req.Value, req.Gas)
	codeHash := ev.handler.CodeHash(req.CodeAddress)
	contract.SetCallCode(codeHash, code)
	contract.Input = req.Input
	contract.analysis = ev.analysisFor(codeHash, code)

	return &Frame{
		typ:        req.Type,
		contract:   contract,
		stack:      NewStack(),
		memory:     NewMemory(),
		depth:      depth,
		readOnly:   req.ReadOnly,
		substate:   NewSubstate(),
		checkpoint: checkpoint,
	}, nil
}

// beginCreate prepares a contract-creation frame: nonce bump, address
// derivation, collision check, checkpoint, account setup, value transfer.
func (ev *Executor) beginCreate(req *CreateRequest, depth int) (*Frame, *CreateResult) {
	if ev.handler.Balance(req.Caller).Lt(req.Value) {
		return nil, &CreateResult{Err: ErrInsufficientBalance, GasLeft: req.Gas}
	}
	nonce := ev.handler.Nonce(req.Caller)
	if nonce+1 < nonce {
		return nil, &CreateResult{Err: ErrNonceUintOverflow, GasLeft: req.Gas}
	}
	ev.handler.IncrementNonce(req.Caller)

	var addr types.Address
	if req.Type == FrameCreate2 {
		addr = crypto.CreateAddress2(req.Caller, req.Salt, crypto.Keccak256(req.InitCode))
	} else {
		addr = crypto.CreateAddress(req.Caller, nonce)
	}
	// The created address is warm even if the creation fails.
	if ev.cfg.HasAccessLists {
		ev.handler.MarkWarmAddress(addr)
	}
	if ev.handler.Nonce(addr) != 0 || ev.handler.CodeSize(addr) != 0 {
		return nil, &CreateResult{Err: ErrContractAddressCollision}
	}

	checkpoint := ev.handler.Checkpoint()
	ev.handler.CreateAccount(addr)
	if ev.cfg.HasEIP158 {
		ev.handler.IncrementNonce(addr)
	}
	ev.handler.Transfer(req.Caller, addr, req.Value)

	contract := NewContract(req.Caller, addr, req.Value, req.Gas)
	contract.SetCallCode(crypto.Keccak256Hash(req.InitCode), req.InitCode)
	contract.IsDeployment = true

	return &Frame{
		typ:         req.Type,
		contract:    contract,
		stack:       NewStack(),
		memory:      NewMemory(),
		depth:       depth,
		substate:    NewSubstate(),
		checkpoint:  checkpoint,
		createdAddr: addr,
	}, nil
}

// finalizeFrame settles a terminal frame: code deposit for creations,
// checkpoint commit or revert, gas forfeiture on exceptional halts, and
// result delivery into the parent's resume path.
func (ev *Executor) finalizeFrame(f *Frame) {
	if f.err == nil && f.typ.IsCreate() {
		ret := f.ret
		switch {
		case ev.cfg.MaxCodeSize > 0 && uint64(len(ret)) > ev.cfg.MaxCodeSize:
			f.err = ErrMaxCodeSizeExceeded
		case ev.cfg.RejectEFCode && len(ret) > 0 && ret[0] == 0xEF:
			f.err = ErrInvalidCode
		default:
			if !f.contract.UseGas(uint64(len(ret)) * params.CreateDataGas) {
				f.err = ErrCodeStoreOutOfGas
			} else {
				ev.handler.DepositCode(f.contract.Address, ret)
			}
		}
	}

	if f.err == nil {
		ev.handler.Commit(f.checkpoint)
	} else {
		ev.handler.Revert(f.checkpoint)
		if !errors.Is(f.err, ErrExecutionReverted) {
			f.contract.Gas = 0
		}
	}
	ev.logger.Debug("frame exit", "type", f.typ.String(), "depth", f.depth, "err", f.err, "gasLeft", f.contract.Gas)

	ev.frames = ev.frames[:len(ev.frames)-1]
	if len(ev.frames) == 0 {
		return // root frame: the entry point reads the result off f
	}
	parent := ev.frames[len(ev.frames)-1]
	if f.err == nil {
		parent.substate.Merge(f.substate)
	}
	if ev.tracer != nil {
		ev.tracer.CaptureExit(f.ret, f.contract.Gas, f.err)
	}

	if f.typ.IsCreate() {
		res := CreateResult{Err: f.err, GasLeft: f.contract.Gas}
		if f.err == nil {
			res.Address = f.createdAddr
		} else if errors.Is(f.err, ErrExecutionReverted) {
			res.Output = f.ret
		}
		ev.resumeFrame(parent, res)
	} else {
		ev.resumeFrame(parent, CallResult{Err: f.err, Output: f.ret, GasLeft: f.contract.Gas})
	}
}

// emitLog records a log in the frame's substate and forwards it to the
// handler, whose checkpoint discipline rolls it back on revert.
func (ev *Executor) emitLog(f *Frame, l *types.Log) {
	f.substate.AddLog(l)
	ev.handler.EmitLog(l)
}

// hasSelfdestructed reports whether any live frame already enqueued a
// selfdestruct for addr; the refund is granted once per address.
func (ev *Executor) hasSelfdestructed(addr types.Address) bool {
	for _, fr := range ev.frames {
		if fr.substate.Destroyed(addr) {
			return true
		}
	}
	return false
}

// analysisFor memoizes JUMPDEST analysis by code hash. Code without a
// known hash (init code) is analyzed per contract.
func (ev *Executor) analysisFor(codeHash types.Hash, code []byte) bitvec {
	if codeHash.IsZero() {
		return codeBitmap(code)
	}
	if a, ok := ev.jumpdests.Get(codeHash); ok {
		return a
	}
	a := codeBitmap(code)
	ev.jumpdests.Add(codeHash, a)
	return a
}

// prewarm seeds the access list for one top-level execution: the origin,
// the call target (when known), the coinbase when the fork warms it, and
// every transaction access-list entry. Precompile warming is the host's
// concern, since the handler owns the precompile set.
func (ev *Executor) prewarm(dest *types.Address) {
	if !ev.cfg.HasAccessLists {
		return
	}
	ev.handler.MarkWarmAddress(ev.Tx.Origin)
	if dest != nil {
		ev.handler.MarkWarmAddress(*dest)
	}
	if ev.cfg.HasWarmCoinbase {
		ev.handler.MarkWarmAddress(ev.Block.Coinbase)
	}
	for _, tuple := range ev.Tx.AccessList {
		ev.handler.MarkWarmAddress(tuple.Address)
		for _, key := range tuple.StorageKeys {
			ev.handler.MarkWarmSlot(tuple.Address, key)
		}
	}
}

func (ev *Executor) outcomeFromFrame(f *Frame, initialGas uint64) *Outcome {
	reason := exitReasonOf(f.err)
	out := &Outcome{
		ExitReason: reason,
		GasUsed:    initialGas - f.contract.Gas,
		ReturnData: f.ret,
	}
	if reason.Succeeded() {
		out.Logs = f.substate.Logs()
		out.Selfdestructs = f.substate.Selfdestructs()
		if r := f.substate.Refund(); r > 0 {
			out.Refund = uint64(r)
		}
		if f.typ.IsCreate() {
			addr := f.createdAddr
			out.CreatedAddress = &addr
		}
	}
	return out
}

// outcomeFromResult covers executions that never spawned a frame:
// precompile targets, empty-code calls and pre-flight failures. The
// caller decides how much gas survives; pre-flight failures return it
// all, a failed precompile none.
func (ev *Executor) outcomeFromResult(err error, output []byte, initialGas, gasLeft uint64) *Outcome {
	return &Outcome{
		ExitReason: exitReasonOf(err),
		GasUsed:    initialGas - gasLeft,
		ReturnData: output,
	}
}
