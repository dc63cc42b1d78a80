// Package kernel holds the nucleus context shared by the scheduler and the
// exception and interrupt dispatchers: the process table, the active
// semaphore list, the ready queue, global counters, the kernel semaphore
// bank and timing bookkeeping. It also provides the P and V primitives.
package kernel

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/viant/nucleus/machine"
	"github.com/viant/nucleus/service/asl"
	"github.com/viant/nucleus/service/pcb"
)

// Config holds the fixed nucleus capacities and timing constants.
type Config struct {
	MaxProc        int
	MaxSemaphores  int
	TimeSlice      uint64
	PseudoClock    uint64
	DevicesPerLine int
}

// Kernel is the explicitly owned nucleus state. Handlers run to completion
// one at a time; Kernel itself is not safe for concurrent use.
type Kernel struct {
	Config  Config
	Machine machine.Machine
	Log     logrus.FieldLogger

	Procs *pcb.Table
	Sems  *asl.List
	Ready pcb.Queue

	Current        pcb.ID
	ProcessCount   int
	SoftBlockCount int

	ProcessTOD uint64 // TOD when the current process was last charged
	TickStart  uint64 // TOD when Tick was last advanced
	Tick       uint64 // ticks elapsed in the current pseudo-clock period

	bank       *Bank
	pidCount   int
	listeners  []Listener
	preempted  int
	dispatched int
}

// New creates a kernel with every descriptor free and no current process.
func New(config Config, m machine.Machine, log logrus.FieldLogger) *Kernel {
	if log == nil {
		log = logrus.StandardLogger()
	}
	procs := pcb.New(config.MaxProc)
	return &Kernel{
		Config:  config,
		Machine: m,
		Log:     log,
		Procs:   procs,
		Sems:    asl.New(procs, config.MaxSemaphores),
		Current: pcb.None,
		bank:    NewBank(config.DevicesPerLine),
	}
}

// Bank returns the kernel semaphore bank.
func (k *Kernel) Bank() *Bank {
	return k.bank
}

// CurrentDescriptor returns the running process descriptor or nil.
func (k *Kernel) CurrentDescriptor() *pcb.Descriptor {
	if k.Current == pcb.None {
		return nil
	}
	return k.Procs.Get(k.Current)
}

// NextPID returns a fresh process identifier.
func (k *Kernel) NextPID() int {
	k.pidCount++
	return k.pidCount
}

// PID returns the PID of id, or 0 for None.
func (k *Kernel) PID(id pcb.ID) int {
	if d := k.Procs.Get(id); d != nil {
		return d.PID
	}
	return 0
}

// MakeReady appends id to the ready queue.
func (k *Kernel) MakeReady(id pcb.ID) {
	k.Procs.InsertTail(&k.Ready, id)
}

// ChargeCurrent moves the CPU time elapsed since the last charge into the
// current process accumulators.
func (k *Kernel) ChargeCurrent(now uint64) {
	if d := k.CurrentDescriptor(); d != nil {
		elapsed := now - k.ProcessTOD
		d.CPUTime += elapsed
		d.SliceUsed += elapsed
	}
	k.ProcessTOD = now
}

// AdvanceTick adds the time since the last update to the pseudo-clock tick.
func (k *Kernel) AdvanceTick(now uint64) {
	k.Tick += now - k.TickStart
	k.TickStart = now
}

// Preempt requeues the current process at the tail of the ready queue.
func (k *Kernel) Preempt() {
	if k.Current == pcb.None {
		return
	}
	k.MakeReady(k.Current)
	k.Current = pcb.None
	k.preempted++
}

// Dispatch makes the head of the ready queue current.
func (k *Kernel) Dispatch() (pcb.ID, bool) {
	id, ok := k.Procs.RemoveHead(&k.Ready)
	if !ok {
		return pcb.None, false
	}
	k.Current = id
	k.dispatched++
	return id, true
}

// Value reads the semaphore at addr.
func (k *Kernel) Value(addr uint32) int32 {
	if v, ok := k.bank.Value(addr); ok {
		return v
	}
	return int32(k.Machine.LoadWord(addr))
}

// SetValue writes the semaphore at addr.
func (k *Kernel) SetValue(addr uint32, value int32) {
	if k.bank.SetValue(addr, value) {
		return
	}
	k.Machine.StoreWord(addr, uint32(value))
}

// Passeren performs P on addr for the current process. When the value goes
// negative the process blocks, stops being current, and blocked is true;
// soft marks the block as waiting for I/O or the pseudo-clock.
func (k *Kernel) Passeren(ctx context.Context, addr uint32, soft bool) (blocked bool, err error) {
	if k.Current == pcb.None {
		return false, NewPanic(ErrNoCurrent, nil)
	}
	value := k.Value(addr) - 1
	k.SetValue(addr, value)
	if value >= 0 {
		return false, nil
	}
	id := k.Current
	if err = k.Sems.InsertBlocked(addr, id); err != nil {
		return false, NewPanic(ErrSemaphoresExhausted, err)
	}
	if soft {
		k.Procs.Get(id).SetSoftBlocked(true)
		k.SoftBlockCount++
	}
	k.Current = pcb.None
	k.Emit(ctx, Event{Type: EventBlocked, PID: k.PID(id), SemAddr: addr, Soft: soft})
	return true, nil
}

// Verhogen performs V on addr; the first waiter, if any, becomes ready.
func (k *Kernel) Verhogen(ctx context.Context, addr uint32) (pcb.ID, bool) {
	k.SetValue(addr, k.Value(addr)+1)
	return k.wake(ctx, addr)
}

// WakeAll readies every waiter of addr, raising the value once per waiter.
func (k *Kernel) WakeAll(ctx context.Context, addr uint32) []pcb.ID {
	var ret []pcb.ID
	for k.Value(addr) < 0 {
		k.SetValue(addr, k.Value(addr)+1)
		id, ok := k.wake(ctx, addr)
		if !ok {
			continue
		}
		ret = append(ret, id)
	}
	return ret
}

func (k *Kernel) wake(ctx context.Context, addr uint32) (pcb.ID, bool) {
	head, ok := k.Sems.HeadBlocked(addr)
	if !ok {
		return pcb.None, false
	}
	soft := k.Procs.Get(head).SoftBlocked()
	id, _ := k.Sems.RemoveBlocked(addr)
	if soft {
		k.SoftBlockCount--
	}
	k.MakeReady(id)
	k.Emit(ctx, Event{Type: EventUnblocked, PID: k.PID(id), SemAddr: addr, Soft: soft})
	return id, true
}

// Stats returns scheduling counters.
func (k *Kernel) Stats() (dispatched, preempted int) {
	return k.dispatched, k.preempted
}

// Check verifies the conservation invariant: every allocated descriptor is
// current, ready or blocked exactly once.
func (k *Kernel) Check() error {
	blocked := 0
	for _, addr := range k.Sems.Active() {
		blocked += len(k.Sems.Waiters(addr))
	}
	current := 0
	if k.Current != pcb.None {
		current = 1
	}
	if total := k.Ready.Len() + blocked + current; total != k.ProcessCount {
		return Panicf(ErrInconsistent, "process count %d, ready %d, blocked %d, current %d",
			k.ProcessCount, k.Ready.Len(), blocked, current)
	}
	if allocated := k.Procs.Capacity() - k.Procs.FreeCount(); allocated != k.ProcessCount {
		return Panicf(ErrInconsistent, "process count %d, allocated %d", k.ProcessCount, allocated)
	}
	return nil
}

func (k *Kernel) String() string {
	return fmt.Sprintf("kernel{current: %d, processes: %d, softBlocked: %d, ready: %d}",
		k.PID(k.Current), k.ProcessCount, k.SoftBlockCount, k.Ready.Len())
}
