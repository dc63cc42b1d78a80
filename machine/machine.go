// Package machine defines the hardware boundary of the nucleus: memory,
// the time-of-day clock, the interval timer, device registers and the
// load-state (context switch) primitive.
package machine

import (
	"github.com/viant/nucleus/model/device"
	"github.com/viant/nucleus/model/state"
)

// Memory gives access to words and processor state areas by physical address.
type Memory interface {
	LoadWord(addr uint32) uint32
	StoreWord(addr uint32, value uint32)
	LoadState(addr uint32) state.State
	StoreState(addr uint32, s state.State)
}

// Devices exposes device registers.
type Devices interface {
	// Pending returns the pending-interrupt bitmap of line (bit i = device i).
	Pending(line int) uint32
	// Status reads a device status register.
	Status(line, dev int, sub device.Sub) uint32
	// Command writes a device command register.
	Command(line, dev int, sub device.Sub, command uint32)
}

// Machine is the hardware the nucleus runs on.
type Machine interface {
	Memory
	Devices
	// TOD returns the time-of-day clock in ticks.
	TOD() uint64
	// SetTimer arms the interval timer to fire after ticks.
	SetTimer(ticks uint64)
	// LDST loads s into the processor; the process resumes execution.
	LDST(s state.State)
	// Halt stops the machine; the system has no work left.
	Halt()
	// Panic stops the machine after a fatal kernel error.
	Panic(err error)
	// Wait unmasks interrupts and idles the processor until the next interrupt.
	Wait()
}

// Trap is what the hardware delivers on an exception or interrupt: the area
// the processor state was saved into and the saved state itself.
type Trap struct {
	Area  state.Area  `json:"area"`
	State state.State `json:"state"`
}

// NewSyscall builds a syscall trap carrying a service number and arguments
// on top of the caller state.
func NewSyscall(caller state.State, number, a2, a3, a4 uint32) Trap {
	caller.A1, caller.A2, caller.A3, caller.A4 = number, a2, a3, a4
	caller.Cause = state.NewCause(state.ExcSyscall)
	return Trap{Area: state.AreaSyscall, State: caller}
}

// NewInterrupt builds an interrupt trap with the given pending lines.
func NewInterrupt(interrupted state.State, lines ...int) Trap {
	cause := state.NewCause(state.ExcInterrupt)
	for _, line := range lines {
		cause = cause.WithPending(line)
	}
	interrupted.Cause = cause
	return Trap{Area: state.AreaInterrupt, State: interrupted}
}
