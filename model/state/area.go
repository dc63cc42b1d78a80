package state

import "fmt"

// Area identifies the hardware old area a state was saved into.
type Area int

const (
	AreaInterrupt Area = iota
	AreaTLB
	AreaProgramTrap
	AreaSyscall // syscall and breakpoint share an area
)

func (a Area) String() string {
	switch a {
	case AreaInterrupt:
		return "interrupt"
	case AreaTLB:
		return "tlb"
	case AreaProgramTrap:
		return "pgmtrap"
	case AreaSyscall:
		return "sysbp"
	}
	return fmt.Sprintf("area(%d)", int(a))
}

// Class is an exception class a process can register a vector for (service 5).
type Class int

const (
	ClassTLB Class = iota
	ClassProgramTrap
	ClassSyscall

	// NumClasses is the number of exception vector slots per process.
	NumClasses = 3
)

// Valid reports whether c names a vector slot.
func (c Class) Valid() bool {
	return c >= 0 && c < NumClasses
}

func (c Class) String() string {
	switch c {
	case ClassTLB:
		return "tlb"
	case ClassProgramTrap:
		return "pgmtrap"
	case ClassSyscall:
		return "sysbp"
	}
	return fmt.Sprintf("class(%d)", int(c))
}
