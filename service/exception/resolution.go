package exception

import (
	"github.com/viant/nucleus/machine"
	"github.com/viant/nucleus/model/accounting"
	"github.com/viant/nucleus/model/state"
	"github.com/viant/nucleus/service/kernel"
	"github.com/viant/nucleus/service/pcb"
)

// Action is what the dispatcher does with a classified exception.
type Action int

const (
	// ActionServe runs a nucleus service.
	ActionServe Action = iota
	// ActionDeliver passes the exception up to the registered vector.
	ActionDeliver
	// ActionTerminate terminates the process tree.
	ActionTerminate
	// ActionReinterpret turns a user-mode privileged call into a reserved-instruction program trap.
	ActionReinterpret
)

// Resolution is the tagged result of classifying an exception.
type Resolution struct {
	Action Action
	Number uint32      // ActionServe
	Class  state.Class // ActionDeliver
	Reason string      // ActionTerminate
}

// Privileged reports whether number is a nucleus service.
func Privileged(number uint32) bool {
	return number >= SysCreate && number <= SysWaitIO
}

// Classify resolves trap raised by the process d.
func Classify(trap machine.Trap, d *pcb.Descriptor) (Resolution, error) {
	switch trap.Area {
	case state.AreaSyscall:
		switch code := trap.State.Cause.ExcCode(); code {
		case state.ExcSyscall:
			number := trap.State.A1
			if !Privileged(number) {
				return passUpOrDie(d, state.ClassSyscall, accounting.ReasonUnhandled), nil
			}
			if trap.State.UserMode() {
				return Resolution{Action: ActionReinterpret}, nil
			}
			return Resolution{Action: ActionServe, Number: number}, nil
		case state.ExcBreakpoint:
			return passUpOrDie(d, state.ClassSyscall, accounting.ReasonUnhandled), nil
		default:
			return Resolution{}, kernel.Panicf(kernel.ErrUnknownException, "code %d in %v area", code, trap.Area)
		}
	case state.AreaTLB:
		return passUpOrDie(d, state.ClassTLB, accounting.ReasonUnhandled), nil
	case state.AreaProgramTrap:
		return passUpOrDie(d, state.ClassProgramTrap, accounting.ReasonUnhandled), nil
	}
	return Resolution{}, kernel.Panicf(kernel.ErrUnknownException, "%v area", trap.Area)
}

// Reinterpret rewrites a syscall trap as a reserved-instruction program trap.
func Reinterpret(trap machine.Trap) machine.Trap {
	trap.Area = state.AreaProgramTrap
	trap.State.Cause = trap.State.Cause.WithExcCode(state.ExcReservedInstr)
	return trap
}

func passUpOrDie(d *pcb.Descriptor, class state.Class, reason string) Resolution {
	if d.Vectors[class].Registered {
		return Resolution{Action: ActionDeliver, Class: class}
	}
	return Resolution{Action: ActionTerminate, Reason: reason}
}
