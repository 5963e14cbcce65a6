// Package runtime provides a batteries-included harness around the EVM
// core: an in-memory journaled implementation of vm.RuntimeHandler, a
// small precompile registry, and one-call execution helpers for tests,
// debuggers and embedders.
package runtime

import (
	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
	"github.com/evmcore/evmcore/core/vm"
	"github.com/evmcore/evmcore/crypto"
)

// stateObject is one account with its storage.
type stateObject struct {
	balance        *uint256.Int
	nonce          uint64
	code           []byte
	codeHash       types.Hash
	committedStorage map[types.Hash]types.Hash
	dirtyStorage     map[types.Hash]types.Hash
	selfDestructed   bool
}

func newStateObject() *stateObject {
	return &stateObject{
		balance:          new(uint256.Int),
		committedStorage: make(map[types.Hash]types.Hash),
		dirtyStorage:     make(map[types.Hash]types.Hash),
	}
}

// HostState is an in-memory vm.RuntimeHandler with full checkpoint
// support: every mutation appends a revert entry to a journal, and the
// checkpoint stack mirrors the executor's frame stack.
type HostState struct {
	stateObjects     map[types.Address]*stateObject
	journal          *journal
	logs             []*types.Log
	accessList       *accessList
	transientStorage map[types.Address]map[types.Hash]types.Hash
	precompiles      map[types.Address]vm.PrecompiledContract

	// GetHashFn resolves BLOCKHASH queries. Defaults to a deterministic
	// pseudo-hash of the block number.
	GetHashFn func(uint64) types.Hash
}

// NewHostState returns an empty state with the default precompile set.
func NewHostState() *HostState {
	return &HostState{
		stateObjects:     make(map[types.Address]*stateObject),
		journal:          newJournal(),
		accessList:       newAccessList(),
		transientStorage: make(map[types.Address]map[types.Hash]types.Hash),
		precompiles:      defaultPrecompiles(),
		GetHashFn: func(n uint64) types.Hash {
			var buf [8]byte
			for i := 0; i < 8; i++ {
				buf[7-i] = byte(n >> (8 * i))
			}
			return crypto.Keccak256Hash(buf[:])
		},
	}
}

func (s *HostState) getStateObject(addr types.Address) *stateObject {
	return s.stateObjects[addr]
}

func (s *HostState) getOrNewStateObject(addr types.Address) *stateObject {
	if obj := s.stateObjects[addr]; obj != nil {
		return obj
	}
	obj := newStateObject()
	s.stateObjects[addr] = obj
	return obj
}

// --- Test and genesis setup (not part of the handler interface) ---

// SetBalance installs a balance without journaling. Setup only.
func (s *HostState) SetBalance(addr types.Address, balance *uint256.Int) {
	s.getOrNewStateObject(addr).balance = new(uint256.Int).Set(balance)
}

// SetNonce installs a nonce without journaling. Setup only.
func (s *HostState) SetNonce(addr types.Address, nonce uint64) {
	s.getOrNewStateObject(addr).nonce = nonce
}

// SetCode installs code without journaling. Setup only.
func (s *HostState) SetCode(addr types.Address, code []byte) {
	obj := s.getOrNewStateObject(addr)
	obj.code = code
	obj.codeHash = crypto.Keccak256Hash(code)
}

// SetState installs a committed storage slot without journaling, as if a
// previous transaction had written it. Setup only.
func (s *HostState) SetState(addr types.Address, slot, value types.Hash) {
	s.getOrNewStateObject(addr).committedStorage[slot] = value
}

// SetPrecompile registers a precompiled contract.
func (s *HostState) SetPrecompile(addr types.Address, p vm.PrecompiledContract) {
	s.precompiles[addr] = p
}

// Logs returns all logs emitted and not reverted so far.
func (s *HostState) Logs() []*types.Log {
	return s.logs
}

// Finalise folds dirty storage into committed storage, ending the
// "transaction" for OriginalStorage purposes, and clears transient
// storage and the access list.
func (s *HostState) Finalise() {
	for _, obj := range s.stateObjects {
		for k, v := range obj.dirtyStorage {
			if v.IsZero() {
				delete(obj.committedStorage, k)
			} else {
				obj.committedStorage[k] = v
			}
			delete(obj.dirtyStorage, k)
		}
	}
	s.transientStorage = make(map[types.Address]map[types.Hash]types.Hash)
	s.accessList = newAccessList()
	s.journal = newJournal()
}

// --- vm.RuntimeHandler: reads ---

func (s *HostState) Balance(addr types.Address) *uint256.Int {
	if obj := s.getStateObject(addr); obj != nil {
		return new(uint256.Int).Set(obj.balance)
	}
	return new(uint256.Int)
}

func (s *HostState) Nonce(addr types.Address) uint64 {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.nonce
	}
	return 0
}

func (s *HostState) Code(addr types.Address) []byte {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.code
	}
	return nil
}

func (s *HostState) CodeSize(addr types.Address) int {
	if obj := s.getStateObject(addr); obj != nil {
		return len(obj.code)
	}
	return 0
}

func (s *HostState) CodeHash(addr types.Address) types.Hash {
	obj := s.getStateObject(addr)
	if obj == nil {
		return types.Hash{}
	}
	if obj.codeHash.IsZero() {
		return crypto.Keccak256Hash(obj.code)
	}
	return obj.codeHash
}

func (s *HostState) Exist(addr types.Address) bool {
	return s.getStateObject(addr) != nil
}

func (s *HostState) Empty(addr types.Address) bool {
	obj := s.getStateObject(addr)
	if obj == nil {
		return true
	}
	return obj.nonce == 0 && obj.balance.IsZero() && len(obj.code) == 0
}

func (s *HostState) Storage(addr types.Address, slot types.Hash) types.Hash {
	obj := s.getStateObject(addr)
	if obj == nil {
		return types.Hash{}
	}
	if v, dirty := obj.dirtyStorage[slot]; dirty {
		return v
	}
	return obj.committedStorage[slot]
}

func (s *HostState) OriginalStorage(addr types.Address, slot types.Hash) types.Hash {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.committedStorage[slot]
	}
	return types.Hash{}
}

func (s *HostState) TransientStorage(addr types.Address, slot types.Hash) types.Hash {
	return s.transientStorage[addr][slot]
}

// --- vm.RuntimeHandler: writes ---

func (s *HostState) SetStorage(addr types.Address, slot, value types.Hash) {
	obj := s.getOrNewStateObject(addr)
	prev, prevExists := obj.dirtyStorage[slot]
	s.journal.append(storageChange{addr: addr, slot: slot, prev: prev, prevExists: prevExists})
	obj.dirtyStorage[slot] = value
}

func (s *HostState) SetTransientStorage(addr types.Address, slot, value types.Hash) {
	prev := s.transientStorage[addr][slot]
	s.journal.append(transientStorageChange{addr: addr, slot: slot, prev: prev})
	if s.transientStorage[addr] == nil {
		s.transientStorage[addr] = make(map[types.Hash]types.Hash)
	}
	s.transientStorage[addr][slot] = value
}

func (s *HostState) CreateAccount(addr types.Address) {
	prev := s.stateObjects[addr]
	s.journal.append(createAccountChange{addr: addr, prev: prev})
	obj := newStateObject()
	if prev != nil {
		// A funded but otherwise empty account keeps its balance.
		obj.balance = new(uint256.Int).Set(prev.balance)
	}
	s.stateObjects[addr] = obj
}

func (s *HostState) Transfer(from, to types.Address, value *uint256.Int) {
	if value.IsZero() && from == to {
		return
	}
	fromObj := s.getOrNewStateObject(from)
	toObj := s.getOrNewStateObject(to)
	s.journal.append(balanceChange{addr: from, prev: new(uint256.Int).Set(fromObj.balance)})
	fromObj.balance = new(uint256.Int).Sub(fromObj.balance, value)
	s.journal.append(balanceChange{addr: to, prev: new(uint256.Int).Set(toObj.balance)})
	toObj.balance = new(uint256.Int).Add(toObj.balance, value)
}

func (s *HostState) IncrementNonce(addr types.Address) {
	obj := s.getOrNewStateObject(addr)
	s.journal.append(nonceChange{addr: addr, prev: obj.nonce})
	obj.nonce++
}

func (s *HostState) DepositCode(addr types.Address, code []byte) {
	obj := s.getOrNewStateObject(addr)
	s.journal.append(codeChange{addr: addr, prevCode: obj.code, prevHash: obj.codeHash})
	obj.code = code
	obj.codeHash = crypto.Keccak256Hash(code)
}

func (s *HostState) MarkSelfdestruct(addr, beneficiary types.Address) {
	obj := s.getStateObject(addr)
	if obj == nil {
		return
	}
	s.journal.append(selfDestructChange{
		addr:           addr,
		prevDestructed: obj.selfDestructed,
		prevBalance:    new(uint256.Int).Set(obj.balance),
	})
	obj.selfDestructed = true
	obj.balance = new(uint256.Int)
}

func (s *HostState) EmitLog(l *types.Log) {
	s.journal.append(logChange{prevLen: len(s.logs)})
	s.logs = append(s.logs, l)
}

// --- vm.RuntimeHandler: access list ---

func (s *HostState) AddressInAccessList(addr types.Address) bool {
	return s.accessList.ContainsAddress(addr)
}

func (s *HostState) SlotInAccessList(addr types.Address, slot types.Hash) (bool, bool) {
	return s.accessList.ContainsSlot(addr, slot)
}

func (s *HostState) MarkWarmAddress(addr types.Address) {
	if s.accessList.AddAddress(addr) {
		return
	}
	s.journal.append(accessListAddAccountChange{addr: addr})
}

func (s *HostState) MarkWarmSlot(addr types.Address, slot types.Hash) {
	addrPresent, slotPresent := s.accessList.AddSlot(addr, slot)
	if !addrPresent {
		s.journal.append(accessListAddAccountChange{addr: addr})
	}
	if !slotPresent {
		s.journal.append(accessListAddSlotChange{addr: addr, slot: slot})
	}
}

// --- vm.RuntimeHandler: checkpoint protocol ---

func (s *HostState) Checkpoint() int {
	return s.journal.snapshot()
}

func (s *HostState) Revert(id int) {
	s.journal.revertToSnapshot(id, s)
}

func (s *HostState) Commit(id int) {
	s.journal.discardSnapshot(id)
}

// --- vm.RuntimeHandler: block data and precompiles ---

func (s *HostState) BlockHash(number uint64) types.Hash {
	if s.GetHashFn == nil {
		return types.Hash{}
	}
	return s.GetHashFn(number)
}

func (s *HostState) Precompile(addr types.Address) (vm.PrecompiledContract, bool) {
	p, ok := s.precompiles[addr]
	return p, ok
}
