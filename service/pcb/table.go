// Package pcb implements the process table: a fixed arena of process
// descriptors, the free pool, circular FIFO queues and the family tree.
//
// Descriptors are addressed by stable ID handles. Queues and the tree are
// doubly linked through indices, so arbitrary removal and detaching from a
// parent are O(1).
package pcb

import "errors"

var (
	// ErrNotQueued is returned when removing a descriptor from a queue it is not on.
	ErrNotQueued = errors.New("pcb: descriptor not on queue")
	// ErrNoParent is returned when detaching a descriptor without a parent.
	ErrNoParent = errors.New("pcb: descriptor has no parent")
	// ErrCorrupted is returned when the tree links contradict each other.
	ErrCorrupted = errors.New("pcb: corrupted family links")
)

// Table owns every process descriptor for its whole lifetime.
type Table struct {
	descriptors []Descriptor
	free        Queue
}

// New creates a table with capacity descriptors, all in the free pool.
func New(capacity int) *Table {
	ret := &Table{descriptors: make([]Descriptor, capacity)}
	for i := range ret.descriptors {
		ret.descriptors[i].reset()
		ret.InsertTail(&ret.free, ID(i))
	}
	return ret
}

// Capacity returns the maximum number of concurrent processes.
func (t *Table) Capacity() int {
	return len(t.descriptors)
}

// FreeCount returns the number of descriptors in the free pool.
func (t *Table) FreeCount() int {
	return t.free.Len()
}

// Get returns the descriptor for id, or nil for an invalid handle.
func (t *Table) Get(id ID) *Descriptor {
	if id < 0 || int(id) >= len(t.descriptors) {
		return nil
	}
	return &t.descriptors[id]
}

// Allocate takes a descriptor from the free pool with all fields cleared.
// It returns false when the pool is exhausted.
func (t *Table) Allocate() (ID, bool) {
	id, ok := t.RemoveHead(&t.free)
	if !ok {
		return None, false
	}
	t.descriptors[id].reset()
	return id, true
}

// Release returns id to the free pool. The caller must have detached it from
// every queue and from the family tree beforehand; this is not checked.
func (t *Table) Release(id ID) {
	t.descriptors[id].reset()
	t.InsertTail(&t.free, id)
}
