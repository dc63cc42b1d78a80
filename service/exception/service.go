// Package exception dispatches synchronous exceptions: system calls,
// breakpoints, TLB misses and program traps. Nucleus services are served in
// kernel mode; everything else is passed up to a vector registered with
// service 5, or the offending process tree is terminated.
package exception

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/viant/nucleus/machine"
	"github.com/viant/nucleus/model/accounting"
	"github.com/viant/nucleus/model/state"
	"github.com/viant/nucleus/service/kernel"
)

// Service handles exceptions raised by the current process.
type Service struct{}

// New creates an exception dispatcher.
func New() *Service {
	return &Service{}
}

// Handle saves the trapped state into the current descriptor and performs
// exactly one action for the classified exception.
func (s *Service) Handle(ctx context.Context, k *kernel.Kernel, trap machine.Trap) error {
	d := k.CurrentDescriptor()
	if d == nil {
		return kernel.Panicf(kernel.ErrNoCurrent, "%v exception", trap.Area)
	}
	d.State = trap.State
	if trap.Area == state.AreaSyscall {
		d.State.PC += state.WordSize
	}
	resolution, err := Classify(trap, d)
	if err != nil {
		return err
	}
	if resolution.Action == ActionReinterpret {
		trap = Reinterpret(trap)
		d.State = trap.State
		resolution = passUpOrDie(d, state.ClassProgramTrap, accounting.ReasonPrivileged)
	}

	switch resolution.Action {
	case ActionServe:
		return s.serve(ctx, k, resolution.Number, trap.State)
	case ActionDeliver:
		vector := d.Vectors[resolution.Class]
		k.Machine.StoreState(vector.Old, trap.State)
		d.State = k.Machine.LoadState(vector.New)
		k.Log.WithFields(logrus.Fields{"pid": d.PID, "class": resolution.Class.String()}).Debug("pass up")
		k.Emit(ctx, kernel.Event{Type: kernel.EventPassUp, PID: d.PID, Reason: resolution.Class.String()})
		return nil
	case ActionTerminate:
		k.Log.WithFields(logrus.Fields{"pid": d.PID, "area": trap.Area.String(), "reason": resolution.Reason}).Info("terminating process")
		return s.Terminate(ctx, k, k.Current, resolution.Reason)
	}
	return kernel.Panicf(kernel.ErrUnknownException, "unresolved %v exception", trap.Area)
}
