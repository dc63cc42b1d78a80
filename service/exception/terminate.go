package exception

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/viant/nucleus/model/accounting"
	"github.com/viant/nucleus/service/kernel"
	"github.com/viant/nucleus/service/pcb"
)

func pcbVector(oldArea, newArea uint32) pcb.Vector {
	return pcb.Vector{Old: oldArea, New: newArea, Registered: true}
}

// Terminate destroys id and all of its descendants. Blocked processes have
// their semaphore P undone; ready ones leave the ready queue.
func (s *Service) Terminate(ctx context.Context, k *kernel.Kernel, id pcb.ID, reason string) error {
	d := k.Procs.Get(id)
	if d == nil {
		return kernel.Panicf(kernel.ErrInconsistent, "terminate: invalid process %d", id)
	}
	parentPID := 0
	if parent := d.Parent(); parent != pcb.None {
		parentPID = k.PID(parent)
		if err := k.Procs.Detach(id); err != nil {
			return kernel.NewPanic(kernel.ErrInconsistent, err)
		}
	}
	return s.terminateTree(ctx, k, id, parentPID, reason)
}

func (s *Service) terminateTree(ctx context.Context, k *kernel.Kernel, id pcb.ID, parentPID int, reason string) error {
	d := k.Procs.Get(id)
	for {
		child, ok := k.Procs.RemoveFirstChild(id)
		if !ok {
			break
		}
		if err := s.terminateTree(ctx, k, child, d.PID, accounting.ReasonKilled); err != nil {
			return err
		}
	}

	addr, blocked := d.BlockedOn()
	soft := d.SoftBlocked()
	switch {
	case blocked:
		if _, err := k.Sems.OutBlocked(id); err != nil {
			return kernel.NewPanic(kernel.ErrInconsistent, err)
		}
		k.SetValue(addr, k.Value(addr)+1)
		if soft {
			k.SoftBlockCount--
		}
	case d.Queued(&k.Ready):
		if err := k.Procs.Remove(&k.Ready, id); err != nil {
			return kernel.NewPanic(kernel.ErrInconsistent, err)
		}
	case k.Current == id:
		k.ChargeCurrent(k.Machine.TOD())
		k.Current = pcb.None
	}
	k.ProcessCount--

	event := kernel.Event{
		Type:      kernel.EventTerminated,
		PID:       d.PID,
		ParentPID: parentPID,
		CPUTime:   d.CPUTime,
		Reason:    reason,
		Soft:      soft,
	}
	if blocked {
		event.SemAddr, event.Blocked = addr, true
	}
	k.Log.WithFields(logrus.Fields{"pid": d.PID, "reason": reason, "cpuTime": d.CPUTime}).Debug("terminated")
	k.Procs.Release(id)
	k.Emit(ctx, event)
	return nil
}
