// Package asl implements the Active Semaphore List: the semaphore
// descriptors that currently have waiting processes, sorted by semaphore
// address, drawn from a fixed pool.
package asl

import (
	"errors"
	"fmt"

	"github.com/viant/nucleus/service/pcb"
)

var (
	// ErrExhausted is returned when a new semaphore descriptor is needed and the pool is empty.
	ErrExhausted = errors.New("asl: semaphore descriptors exhausted")
	// ErrInconsistent is returned when a process is not queued where its back-reference claims.
	ErrInconsistent = errors.New("asl: inconsistent semaphore back-reference")
)

const none = -1

type descriptor struct {
	addr  uint32
	queue pcb.Queue
	next  int
}

// List is the active semaphore list.
type List struct {
	table       *pcb.Table
	descriptors []descriptor
	active      int // head of the sorted active list
	free        int // head of the free pool
}

// New creates a list with capacity semaphore descriptors backed by table.
func New(table *pcb.Table, capacity int) *List {
	ret := &List{table: table, descriptors: make([]descriptor, capacity), active: none, free: none}
	for i := capacity - 1; i >= 0; i-- {
		ret.descriptors[i].next = ret.free
		ret.free = i
	}
	return ret
}

// find returns the descriptor for addr and its predecessor on the active
// list; the scan stops at the first larger address.
func (l *List) find(addr uint32) (index, prev int) {
	prev = none
	for i := l.active; i != none; i = l.descriptors[i].next {
		switch current := l.descriptors[i].addr; {
		case current == addr:
			return i, prev
		case current > addr:
			return none, prev
		}
		prev = i
	}
	return none, prev
}

// InsertBlocked queues id on the semaphore at addr and records the
// back-reference. A descriptor is activated when addr has no waiters yet.
func (l *List) InsertBlocked(addr uint32, id pcb.ID) error {
	index, prev := l.find(addr)
	if index == none {
		if l.free == none {
			return fmt.Errorf("%w: semaphore %#x", ErrExhausted, addr)
		}
		index = l.free
		l.free = l.descriptors[index].next
		sem := &l.descriptors[index]
		sem.addr = addr
		sem.queue = pcb.Queue{}
		if prev == none {
			sem.next = l.active
			l.active = index
		} else {
			sem.next = l.descriptors[prev].next
			l.descriptors[prev].next = index
		}
	}
	l.table.InsertTail(&l.descriptors[index].queue, id)
	l.table.Get(id).SetBlocked(addr)
	return nil
}

// RemoveBlocked dequeues the first waiter of addr.
func (l *List) RemoveBlocked(addr uint32) (pcb.ID, bool) {
	index, prev := l.find(addr)
	if index == none {
		return pcb.None, false
	}
	id, ok := l.table.RemoveHead(&l.descriptors[index].queue)
	if !ok {
		return pcb.None, false
	}
	l.table.Get(id).ClearBlocked()
	l.release(index, prev)
	return id, true
}

// OutBlocked removes id from the waiters of the semaphore it is blocked on.
func (l *List) OutBlocked(id pcb.ID) (pcb.ID, error) {
	d := l.table.Get(id)
	if d == nil {
		return pcb.None, fmt.Errorf("%w: invalid process %d", ErrInconsistent, id)
	}
	addr, blocked := d.BlockedOn()
	if !blocked {
		return pcb.None, fmt.Errorf("%w: process %d is not blocked", ErrInconsistent, id)
	}
	index, prev := l.find(addr)
	if index == none {
		return pcb.None, fmt.Errorf("%w: semaphore %#x not active", ErrInconsistent, addr)
	}
	if err := l.table.Remove(&l.descriptors[index].queue, id); err != nil {
		return pcb.None, fmt.Errorf("%w: process %d on semaphore %#x: %v", ErrInconsistent, id, addr, err)
	}
	d.ClearBlocked()
	l.release(index, prev)
	return id, nil
}

// HeadBlocked returns the first waiter of addr without removing it.
func (l *List) HeadBlocked(addr uint32) (pcb.ID, bool) {
	index, _ := l.find(addr)
	if index == none {
		return pcb.None, false
	}
	return l.table.Head(&l.descriptors[index].queue)
}

// Waiters returns the waiters of addr in FIFO order.
func (l *List) Waiters(addr uint32) []pcb.ID {
	index, _ := l.find(addr)
	if index == none {
		return nil
	}
	return l.table.Items(&l.descriptors[index].queue)
}

// Active returns the addresses of active semaphores in ascending order.
func (l *List) Active() []uint32 {
	var ret []uint32
	for i := l.active; i != none; i = l.descriptors[i].next {
		ret = append(ret, l.descriptors[i].addr)
	}
	return ret
}

// FreeCount returns the number of unused semaphore descriptors.
func (l *List) FreeCount() int {
	count := 0
	for i := l.free; i != none; i = l.descriptors[i].next {
		count++
	}
	return count
}

// release returns an emptied descriptor to the free pool.
func (l *List) release(index, prev int) {
	sem := &l.descriptors[index]
	if !sem.queue.IsEmpty() {
		return
	}
	if prev == none {
		l.active = sem.next
	} else {
		l.descriptors[prev].next = sem.next
	}
	sem.addr = 0
	sem.next = l.free
	l.free = index
}
