package kernel

import (
	"github.com/viant/nucleus/model/device"
	"github.com/viant/nucleus/model/state"
)

// SemaphoreBase is the first address of the kernel semaphore bank; user
// semaphores must live below it.
const SemaphoreBase uint32 = 0xFFFF0000

// Bank holds the device semaphores (one per device per line, terminals
// split into receive and transmit), the pseudo-clock semaphore, and the
// last status word reported by each device.
type Bank struct {
	devicesPerLine int
	values         []int32
	status         []uint32
}

// NewBank creates a bank with every semaphore at zero.
func NewBank(devicesPerLine int) *Bank {
	size := (device.NumDeviceLines+1)*devicesPerLine + 1
	return &Bank{
		devicesPerLine: devicesPerLine,
		values:         make([]int32, size),
		status:         make([]uint32, size),
	}
}

func (b *Bank) index(addr uint32) (int, bool) {
	if addr < SemaphoreBase || (addr-SemaphoreBase)%state.WordSize != 0 {
		return 0, false
	}
	i := int((addr - SemaphoreBase) / state.WordSize)
	return i, i < len(b.values)
}

func (b *Bank) address(index int) uint32 {
	return SemaphoreBase + uint32(index)*state.WordSize
}

// Device returns the semaphore address of a device. Only terminals accept Transmit.
func (b *Bank) Device(line, dev int, sub device.Sub) (uint32, bool) {
	if !device.IsDeviceLine(line) || dev < 0 || dev >= b.devicesPerLine {
		return 0, false
	}
	index := (line-device.FirstDeviceLine)*b.devicesPerLine + dev
	if sub == device.Transmit {
		if line != device.LineTerminal {
			return 0, false
		}
		index = device.NumDeviceLines*b.devicesPerLine + dev
	}
	return b.address(index), true
}

// PseudoClock returns the pseudo-clock semaphore address.
func (b *Bank) PseudoClock() uint32 {
	return b.address(len(b.values) - 1)
}

// Reserved reports whether addr falls in the kernel semaphore range, which
// processes may not name in services 3 and 4.
func Reserved(addr uint32) bool {
	return addr >= SemaphoreBase
}

// Contains reports whether addr is a kernel semaphore.
func (b *Bank) Contains(addr uint32) bool {
	_, ok := b.index(addr)
	return ok
}

// Value reads a kernel semaphore.
func (b *Bank) Value(addr uint32) (int32, bool) {
	i, ok := b.index(addr)
	if !ok {
		return 0, false
	}
	return b.values[i], true
}

// SetValue writes a kernel semaphore; it returns false for a non-kernel address.
func (b *Bank) SetValue(addr uint32, value int32) bool {
	i, ok := b.index(addr)
	if !ok {
		return false
	}
	b.values[i] = value
	return true
}

// Status returns the last status word recorded for the device semaphore at addr.
func (b *Bank) Status(addr uint32) uint32 {
	if i, ok := b.index(addr); ok {
		return b.status[i]
	}
	return 0
}

// SetStatus records the last status word for the device semaphore at addr.
func (b *Bank) SetStatus(addr uint32, status uint32) {
	if i, ok := b.index(addr); ok {
		b.status[i] = status
	}
}
