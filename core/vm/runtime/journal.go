package runtime

import (
	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
)

// journalEntry is a revertible state change.
type journalEntry interface {
	revert(s *HostState)
}

// journal tracks state mutations so checkpoints can be unwound. Snapshot
// ids index into the entry list; reverting undoes entries in reverse.
type journal struct {
	entries   []journalEntry
	snapshots map[int]int // snapshot ID -> entry index
	nextID    int
}

func newJournal() *journal {
	return &journal{
		snapshots: make(map[int]int),
	}
}

func (j *journal) append(entry journalEntry) {
	j.entries = append(j.entries, entry)
}

func (j *journal) snapshot() int {
	id := j.nextID
	j.nextID++
	j.snapshots[id] = len(j.entries)
	return id
}

func (j *journal) revertToSnapshot(id int, s *HostState) {
	idx, ok := j.snapshots[id]
	if !ok {
		return
	}
	for i := len(j.entries) - 1; i >= idx; i-- {
		j.entries[i].revert(s)
	}
	j.entries = j.entries[:idx]

	// Snapshots taken after this one are no longer meaningful.
	for sid := range j.snapshots {
		if sid >= id {
			delete(j.snapshots, sid)
		}
	}
}

// discardSnapshot commits a checkpoint: its entries fold into the
// enclosing checkpoint's range.
func (j *journal) discardSnapshot(id int) {
	delete(j.snapshots, id)
}

// --- Concrete journal entries ---

type createAccountChange struct {
	addr types.Address
	prev *stateObject // nil if the account didn't exist before
}

func (ch createAccountChange) revert(s *HostState) {
	if ch.prev == nil {
		delete(s.stateObjects, ch.addr)
	} else {
		s.stateObjects[ch.addr] = ch.prev
	}
}

type balanceChange struct {
	addr types.Address
	prev *uint256.Int
}

func (ch balanceChange) revert(s *HostState) {
	if obj := s.getStateObject(ch.addr); obj != nil {
		obj.balance = ch.prev
	}
}

type nonceChange struct {
	addr types.Address
	prev uint64
}

func (ch nonceChange) revert(s *HostState) {
	if obj := s.getStateObject(ch.addr); obj != nil {
		obj.nonce = ch.prev
	}
}

type codeChange struct {
	addr     types.Address
	prevCode []byte
	prevHash types.Hash
}

func (ch codeChange) revert(s *HostState) {
	if obj := s.getStateObject(ch.addr); obj != nil {
		obj.code = ch.prevCode
		obj.codeHash = ch.prevHash
	}
}

type storageChange struct {
	addr       types.Address
	slot       types.Hash
	prev       types.Hash
	prevExists bool // whether the slot was in dirtyStorage before
}

func (ch storageChange) revert(s *HostState) {
	if obj := s.getStateObject(ch.addr); obj != nil {
		if ch.prevExists {
			obj.dirtyStorage[ch.slot] = ch.prev
		} else {
			// Remove the dirty entry so committed storage shows through.
			delete(obj.dirtyStorage, ch.slot)
		}
	}
}

type selfDestructChange struct {
	addr           types.Address
	prevDestructed bool
	prevBalance    *uint256.Int
}

func (ch selfDestructChange) revert(s *HostState) {
	if obj := s.getStateObject(ch.addr); obj != nil {
		obj.selfDestructed = ch.prevDestructed
		obj.balance = ch.prevBalance
	}
}

type accessListAddAccountChange struct {
	addr types.Address
}

func (ch accessListAddAccountChange) revert(s *HostState) {
	s.accessList.DeleteAddress(ch.addr)
}

type accessListAddSlotChange struct {
	addr types.Address
	slot types.Hash
}

func (ch accessListAddSlotChange) revert(s *HostState) {
	s.accessList.DeleteSlot(ch.addr, ch.slot)
}

type transientStorageChange struct {
	addr types.Address
	slot types.Hash
	prev types.Hash
}

func (ch transientStorageChange) revert(s *HostState) {
	if ch.prev.IsZero() {
		delete(s.transientStorage[ch.addr], ch.slot)
		if len(s.transientStorage[ch.addr]) == 0 {
			delete(s.transientStorage, ch.addr)
		}
	} else {
		s.transientStorage[ch.addr][ch.slot] = ch.prev
	}
}

type logChange struct {
	prevLen int
}

func (ch logChange) revert(s *HostState) {
	s.logs = s.logs[:ch.prevLen]
}
