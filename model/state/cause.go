package state

// Cause is the exception cause word. The exception code occupies bits 2..6,
// pending interrupt lines occupy bits 8..15.
type Cause uint32

// Exception codes
const (
	ExcInterrupt     uint32 = 0
	ExcTLBMod        uint32 = 1
	ExcTLBLoad       uint32 = 2
	ExcTLBStore      uint32 = 3
	ExcAddrLoad      uint32 = 4
	ExcAddrStore     uint32 = 5
	ExcBusFetch      uint32 = 6
	ExcBusData       uint32 = 7
	ExcSyscall       uint32 = 8
	ExcBreakpoint    uint32 = 9
	ExcReservedInstr uint32 = 10
	ExcCoprocessor   uint32 = 11
	ExcOverflow      uint32 = 12
)

const (
	excCodeShift       = 2
	excCodeMask  Cause = 0x1F << excCodeShift
	pendingShift       = 8
	pendingMask  Cause = 0xFF << pendingShift
)

// ExcCode returns the exception code.
func (c Cause) ExcCode() uint32 {
	return uint32((c & excCodeMask) >> excCodeShift)
}

// WithExcCode returns the cause with its exception code replaced.
func (c Cause) WithExcCode(code uint32) Cause {
	return (c &^ excCodeMask) | (Cause(code<<excCodeShift) & excCodeMask)
}

// Pending reports whether interrupt line is pending.
func (c Cause) Pending(line int) bool {
	if line < 0 || line > 7 {
		return false
	}
	return c&(1<<(pendingShift+line)) != 0
}

// WithPending returns the cause with interrupt line marked pending.
func (c Cause) WithPending(line int) Cause {
	if line < 0 || line > 7 {
		return c
	}
	return c | 1<<(pendingShift+line)
}

// PendingLines returns the pending line bitmap (bit i = line i).
func (c Cause) PendingLines() uint8 {
	return uint8((c & pendingMask) >> pendingShift)
}

// NewCause builds a cause word for an exception code.
func NewCause(code uint32) Cause {
	return Cause(0).WithExcCode(code)
}
