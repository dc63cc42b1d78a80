// Package scheduler implements round-robin CPU dispatch with a fixed time
// slice, pseudo-clock bookkeeping and halt/deadlock/wait detection.
package scheduler

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/viant/nucleus/service/kernel"
)

// Outcome is the result of a scheduling decision.
type Outcome int

const (
	// OutcomeResumed means a process state was loaded into the processor.
	OutcomeResumed Outcome = iota
	// OutcomeWaiting means the processor idles until the next interrupt.
	OutcomeWaiting
	// OutcomeHalted means no process is left; the machine halted.
	OutcomeHalted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResumed:
		return "resumed"
	case OutcomeWaiting:
		return "waiting"
	case OutcomeHalted:
		return "halted"
	}
	return "unknown"
}

// Service picks the process to run after every handler.
type Service struct{}

// New creates a scheduler.
func New() *Service {
	return &Service{}
}

// Schedule resumes the current process, dispatches the head of the ready
// queue, or, with nothing to run, halts, reports a deadlock panic, or
// enters the wait state.
func (s *Service) Schedule(ctx context.Context, k *kernel.Kernel) (Outcome, error) {
	now := k.Machine.TOD()
	if d := k.CurrentDescriptor(); d != nil {
		k.ChargeCurrent(now)
		k.AdvanceTick(now)
		k.Machine.SetTimer(min(remaining(k.Config.TimeSlice, d.SliceUsed), remaining(k.Config.PseudoClock, k.Tick)))
		k.Machine.LDST(d.State)
		return OutcomeResumed, nil
	}

	if id, ok := k.Dispatch(); ok {
		d := k.Procs.Get(id)
		k.AdvanceTick(now)
		d.SliceUsed = 0
		k.ProcessTOD = now
		k.Machine.SetTimer(min(k.Config.TimeSlice, remaining(k.Config.PseudoClock, k.Tick)))
		k.Log.WithFields(logrus.Fields{"pid": d.PID, "tick": k.Tick}).Debug("dispatch")
		k.Machine.LDST(d.State)
		return OutcomeResumed, nil
	}

	switch {
	case k.ProcessCount == 0:
		k.Log.Info("no process left, halting")
		k.Emit(ctx, kernel.Event{Type: kernel.EventHalt})
		k.Machine.Halt()
		return OutcomeHalted, nil
	case k.SoftBlockCount == 0:
		return OutcomeHalted, kernel.Panicf(kernel.ErrDeadlock, "%d processes blocked, none awaiting I/O or clock", k.ProcessCount)
	default:
		k.AdvanceTick(now)
		k.Machine.SetTimer(remaining(k.Config.PseudoClock, k.Tick))
		k.Log.WithFields(logrus.Fields{"processes": k.ProcessCount, "softBlocked": k.SoftBlockCount}).Debug("wait state")
		k.Emit(ctx, kernel.Event{Type: kernel.EventWait})
		k.Machine.Wait()
		return OutcomeWaiting, nil
	}
}

// remaining returns budget-used, or zero once the budget is spent.
func remaining(budget, used uint64) uint64 {
	if used >= budget {
		return 0
	}
	return budget - used
}
