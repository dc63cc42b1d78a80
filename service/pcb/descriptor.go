package pcb

import "github.com/viant/nucleus/model/state"

// ID is a stable handle of a descriptor in the table arena.
type ID int

// None is the empty handle.
const None ID = -1

// Vector is an exception vector registered with service 5.
type Vector struct {
	Old        uint32 `json:"old"`
	New        uint32 `json:"new"`
	Registered bool   `json:"registered"`
}

// Descriptor is a process control block.
type Descriptor struct {
	PID       int
	State     state.State
	CPUTime   uint64 // total ticks spent running
	SliceUsed uint64 // ticks used in the current time slice
	Vectors   [state.NumClasses]Vector

	semAddr     uint32
	blocked     bool
	softBlocked bool

	queue      *Queue
	next, prev ID

	parent, child    ID
	prevSib, nextSib ID
}

func (d *Descriptor) reset() {
	*d = Descriptor{
		next: None, prev: None,
		parent: None, child: None,
		prevSib: None, nextSib: None,
	}
}

// BlockedOn returns the semaphore address the process is blocked on.
func (d *Descriptor) BlockedOn() (uint32, bool) {
	return d.semAddr, d.blocked
}

// SetBlocked records the semaphore back-reference.
func (d *Descriptor) SetBlocked(addr uint32) {
	d.semAddr = addr
	d.blocked = true
}

// ClearBlocked drops the semaphore back-reference and the soft-block mark.
func (d *Descriptor) ClearBlocked() {
	d.semAddr = 0
	d.blocked = false
	d.softBlocked = false
}

// SoftBlocked reports whether the process waits for an I/O or pseudo-clock event.
func (d *Descriptor) SoftBlocked() bool {
	return d.softBlocked
}

// SetSoftBlocked marks the block as waiting for an asynchronous event.
func (d *Descriptor) SetSoftBlocked(soft bool) {
	d.softBlocked = soft
}

// Queued reports whether the descriptor sits on q.
func (d *Descriptor) Queued(q *Queue) bool {
	return q != nil && d.queue == q
}

// InQueue reports whether the descriptor sits on any queue.
func (d *Descriptor) InQueue() bool {
	return d.queue != nil
}

// Parent returns the parent handle or None.
func (d *Descriptor) Parent() ID {
	return d.parent
}
