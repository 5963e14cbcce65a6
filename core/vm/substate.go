package vm

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/evmcore/evmcore/core/types"
)

// SelfdestructRecord is one SELFDESTRUCT enqueued by a successful frame.
type SelfdestructRecord struct {
	Address     types.Address
	Beneficiary types.Address
}

// Substate aggregates the side effects of one frame: emitted logs in
// order, selfdestruct records in enqueue order, touched accounts, and the
// gas refund delta. A child's substate merges into its parent's when the
// child succeeds and is dropped atomically otherwise.
type Substate struct {
	logs          []*types.Log
	selfdestructs []SelfdestructRecord
	destroyed     mapset.Set[types.Address]
	touched       mapset.Set[types.Address]

	// refund is a delta, not a counter: a child may net-subtract refunds
	// its ancestors granted (slot recreation under net SSTORE metering),
	// so the value can be negative until merged upward.
	refund int64
}

// NewSubstate returns an empty substate.
func NewSubstate() *Substate {
	return &Substate{
		destroyed: mapset.NewThreadUnsafeSet[types.Address](),
		touched:   mapset.NewThreadUnsafeSet[types.Address](),
	}
}

// AddLog appends a log record.
func (s *Substate) AddLog(l *types.Log) {
	s.logs = append(s.logs, l)
}

// Logs returns the ordered log records.
func (s *Substate) Logs() []*types.Log {
	return s.logs
}

// MarkSelfdestruct enqueues a selfdestruct record.
func (s *Substate) MarkSelfdestruct(addr, beneficiary types.Address) {
	s.selfdestructs = append(s.selfdestructs, SelfdestructRecord{Address: addr, Beneficiary: beneficiary})
	s.destroyed.Add(addr)
}

// Destroyed reports whether addr has a selfdestruct record here.
func (s *Substate) Destroyed(addr types.Address) bool {
	return s.destroyed.Contains(addr)
}

// Selfdestructs returns the selfdestruct records in enqueue order.
func (s *Substate) Selfdestructs() []SelfdestructRecord {
	return s.selfdestructs
}

// Touch records an account touched by this frame.
func (s *Substate) Touch(addr types.Address) {
	s.touched.Add(addr)
}

// AddRefund credits the refund delta.
func (s *Substate) AddRefund(gas uint64) {
	s.refund += int64(gas)
}

// SubRefund debits the refund delta.
func (s *Substate) SubRefund(gas uint64) {
	s.refund -= int64(gas)
}

// Refund returns the accumulated refund delta.
func (s *Substate) Refund() int64 {
	return s.refund
}

// Merge folds a successful child's substate into this one: sequence
// concatenation for logs and selfdestructs, set union for account sets,
// scalar addition for the refund delta.
func (s *Substate) Merge(child *Substate) {
	s.logs = append(s.logs, child.logs...)
	s.selfdestructs = append(s.selfdestructs, child.selfdestructs...)
	s.destroyed = s.destroyed.Union(child.destroyed)
	s.touched = s.touched.Union(child.touched)
	s.refund += child.refund
}
