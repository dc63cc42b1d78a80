// Package state defines the processor state saved and loaded by the nucleus:
// the register file, status (CPSR) and cause words, and the exception areas
// the hardware deposits a state into when an exception is raised.
package state

// WordSize is the width of one instruction/word in bytes.
const WordSize = 4

// Status (CPSR) bits
const (
	ModeMask   uint32 = 0x1F // processor mode field
	ModeUser   uint32 = 0x10
	ModeKernel uint32 = 0x1F // system mode

	// InterruptsMasked disables external (IRQ) and timer (FIQ) interrupts when set.
	InterruptsMasked uint32 = 0xC0
)

// State is the processor state of a process.
type State struct {
	A1      uint32    `json:"a1" yaml:"a1"` // service number, result
	A2      uint32    `json:"a2" yaml:"a2"`
	A3      uint32    `json:"a3" yaml:"a3"`
	A4      uint32    `json:"a4" yaml:"a4"`
	V       [6]uint32 `json:"v" yaml:"v"`
	SL      uint32    `json:"sl" yaml:"sl"`
	FP      uint32    `json:"fp" yaml:"fp"`
	IP      uint32    `json:"ip" yaml:"ip"`
	SP      uint32    `json:"sp" yaml:"sp"`
	LR      uint32    `json:"lr" yaml:"lr"`
	PC      uint32    `json:"pc" yaml:"pc"`
	CPSR    uint32    `json:"cpsr" yaml:"cpsr"`
	Control uint32    `json:"control" yaml:"control"`
	EntryHi uint32    `json:"entryHi" yaml:"entryHi"`
	Cause   Cause     `json:"cause" yaml:"cause"`
}

// Mode returns the privilege mode bits of the status word.
func (s *State) Mode() uint32 {
	return s.CPSR & ModeMask
}

// UserMode reports whether the state was captured in user mode.
func (s *State) UserMode() bool {
	return s.Mode() == ModeUser
}

// SetMode replaces the privilege mode bits.
func (s *State) SetMode(mode uint32) {
	s.CPSR = (s.CPSR &^ ModeMask) | (mode & ModeMask)
}

// EnableInterrupts clears the interrupt mask bits.
func (s *State) EnableInterrupts() {
	s.CPSR &^= InterruptsMasked
}

// InterruptsEnabled reports whether interrupts are unmasked.
func (s *State) InterruptsEnabled() bool {
	return s.CPSR&InterruptsMasked == 0
}

// SetResult stores a service result into A1.
func (s *State) SetResult(v uint32) {
	s.A1 = v
}

// SetSignedResult stores a signed result into A1 (two's complement).
func (s *State) SetSignedResult(v int32) {
	s.A1 = uint32(v)
}
