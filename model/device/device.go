// Package device names interrupt lines, device register fields and the
// status/command codes the nucleus interprets.
package device

import "fmt"

// Interrupt lines, lowest number = highest priority.
const (
	LineIPI      = 0
	LineCPUTimer = 1
	LineTimer    = 2 // interval timer (time slice and pseudo-clock)
	LineDisk     = 3
	LineTape     = 4
	LineNetwork  = 5
	LinePrinter  = 6
	LineTerminal = 7

	// FirstDeviceLine is the first line backed by device semaphores.
	FirstDeviceLine = LineDisk
	// NumDeviceLines is the number of lines backed by device semaphores.
	NumDeviceLines = LineTerminal - LineDisk + 1
)

// Priority is the fixed interrupt scan order.
var Priority = []int{LineTimer, LineDisk, LineTape, LineNetwork, LinePrinter, LineTerminal}

// Sub selects a register pair of a device; only terminals have two.
type Sub int

const (
	// Receive is the status/command pair of ordinary devices and the terminal receiver.
	Receive Sub = iota
	// Transmit is the terminal transmitter pair.
	Transmit
)

func (s Sub) String() string {
	if s == Transmit {
		return "transmit"
	}
	return "receive"
}

// Status and command codes
const (
	StatusMask uint32 = 0xFF

	StatusNotInstalled    uint32 = 0
	StatusReady           uint32 = 1
	StatusBusy            uint32 = 3
	StatusCharReceived    uint32 = 5
	StatusCharTransmitted uint32 = 5

	CommandReset uint32 = 0
	CommandAck   uint32 = 1
)

// LineName returns a printable name for an interrupt line.
func LineName(line int) string {
	switch line {
	case LineIPI:
		return "ipi"
	case LineCPUTimer:
		return "cputimer"
	case LineTimer:
		return "timer"
	case LineDisk:
		return "disk"
	case LineTape:
		return "tape"
	case LineNetwork:
		return "network"
	case LinePrinter:
		return "printer"
	case LineTerminal:
		return "terminal"
	}
	return fmt.Sprintf("line(%d)", line)
}

// IsDeviceLine reports whether line carries device semaphores.
func IsDeviceLine(line int) bool {
	return line >= FirstDeviceLine && line <= LineTerminal
}

// LowestPending returns the lowest set bit in bitmap, or -1.
func LowestPending(bitmap uint32, devicesPerLine int) int {
	for i := 0; i < devicesPerLine && i < 32; i++ {
		if bitmap&(1<<i) != 0 {
			return i
		}
	}
	return -1
}
