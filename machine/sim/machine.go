// Package sim provides a deterministic in-memory machine. Time only moves
// when Advance is called; device completions are raised with Complete.
package sim

import (
	"sync"

	"github.com/viant/nucleus/machine"
	"github.com/viant/nucleus/model/device"
	"github.com/viant/nucleus/model/state"
)

type register struct {
	status  [2]uint32
	command [2]uint32
}

type deviceKey struct {
	line int
	dev  int
}

// Machine implements machine.Machine.
type Machine struct {
	mu       sync.Mutex
	words    map[uint32]uint32
	states   map[uint32]state.State
	devices  map[deviceKey]*register
	pending  map[int]uint32
	tod      uint64
	timer    uint64
	loaded   []state.State
	halted   bool
	panicErr error
	waits    int
}

var _ machine.Machine = (*Machine)(nil)

// New creates a machine with empty memory and the clock at zero.
func New() *Machine {
	return &Machine{
		words:   map[uint32]uint32{},
		states:  map[uint32]state.State{},
		devices: map[deviceKey]*register{},
		pending: map[int]uint32{},
	}
}

func (m *Machine) LoadWord(addr uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.words[addr]
}

func (m *Machine) StoreWord(addr uint32, value uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.words[addr] = value
}

func (m *Machine) LoadState(addr uint32) state.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[addr]
}

func (m *Machine) StoreState(addr uint32, s state.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[addr] = s
}

func (m *Machine) register(line, dev int) *register {
	key := deviceKey{line: line, dev: dev}
	reg, ok := m.devices[key]
	if !ok {
		reg = &register{}
		m.devices[key] = reg
	}
	return reg
}

func (m *Machine) Pending(line int) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending[line]
}

func (m *Machine) Status(line, dev int, sub device.Sub) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.register(line, dev).status[sub]
}

// Command records the command; an ACK clears the pending bit once no
// sub-device of the device still reports a completion.
func (m *Machine) Command(line, dev int, sub device.Sub, command uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg := m.register(line, dev)
	reg.command[sub] = command
	if command != device.CommandAck {
		return
	}
	reg.status[sub] = device.StatusReady
	if line == device.LineTerminal {
		other := device.Transmit
		if sub == device.Transmit {
			other = device.Receive
		}
		if reg.status[other]&device.StatusMask == device.StatusCharReceived {
			return
		}
	}
	m.pending[line] &^= 1 << dev
}

// Complete marks a device operation finished with status and raises its pending bit.
func (m *Machine) Complete(line, dev int, sub device.Sub, status uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.register(line, dev).status[sub] = status
	m.pending[line] |= 1 << dev
}

// LastCommand returns the last command written to a device.
func (m *Machine) LastCommand(line, dev int, sub device.Sub) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.register(line, dev).command[sub]
}

func (m *Machine) TOD() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tod
}

// Advance moves the time-of-day clock forward.
func (m *Machine) Advance(ticks uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tod += ticks
}

func (m *Machine) SetTimer(ticks uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timer = ticks
}

// Timer returns the last armed interval.
func (m *Machine) Timer() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timer
}

func (m *Machine) LDST(s state.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = append(m.loaded, s)
}

// Running returns the last loaded state.
func (m *Machine) Running() (state.State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.loaded) == 0 {
		return state.State{}, false
	}
	return m.loaded[len(m.loaded)-1], true
}

// Loads returns the number of LDST calls.
func (m *Machine) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loaded)
}

func (m *Machine) Halt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.halted = true
}

// Halted reports whether Halt was called.
func (m *Machine) Halted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.halted
}

func (m *Machine) Panic(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicErr = err
}

// PanicErr returns the error passed to Panic.
func (m *Machine) PanicErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.panicErr
}

func (m *Machine) Wait() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waits++
}

// Waits returns the number of times the processor entered the wait state.
func (m *Machine) Waits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waits
}
