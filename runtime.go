package nucleus

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/viant/nucleus/machine"
	"github.com/viant/nucleus/model/accounting"
	"github.com/viant/nucleus/model/state"
	"github.com/viant/nucleus/progress"
	"github.com/viant/nucleus/service/dao"
	"github.com/viant/nucleus/service/kernel"
	"github.com/viant/nucleus/service/pcb"
	"github.com/viant/nucleus/service/scheduler"
	"github.com/viant/nucleus/tracing"
)

// Boot creates the first process from initial (kernel mode, interrupts
// unmasked), starts the pseudo-clock and dispatches it.
func (s *Service) Boot(ctx context.Context, initial state.State) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.booted {
		return ErrAlreadyBooted
	}
	ctx, span := tracing.StartSpan(ctx, "nucleus.boot", "")
	k := s.kernel
	now := k.Machine.TOD()
	k.TickStart, k.ProcessTOD = now, now

	id, ok := k.Procs.Allocate()
	if !ok {
		err := kernel.Panicf(kernel.ErrInconsistent, "no descriptor for the first process")
		tracing.EndSpan(span, err)
		return err
	}
	d := k.Procs.Get(id)
	d.State = initial
	d.State.SetMode(state.ModeKernel)
	d.State.EnableInterrupts()
	d.PID = k.NextPID()
	k.MakeReady(id)
	k.ProcessCount = 1
	s.booted = true
	s.log.WithFields(logrus.Fields{"pid": d.PID, "pc": fmt.Sprintf("%#x", d.State.PC)}).Info("boot")
	k.Emit(ctx, kernel.Event{Type: kernel.EventCreated, PID: d.PID})

	_, err := s.schedule(ctx)
	tracing.EndSpan(span, err)
	return err
}

// Step runs the handler for trap and then the scheduler. A kernel panic
// stops the machine and is returned; the nucleus accepts no further traps.
func (s *Service) Step(ctx context.Context, trap machine.Trap) (scheduler.Outcome, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if !s.booted {
		return scheduler.OutcomeHalted, ErrNotBooted
	}
	if s.stopped {
		if s.failure != nil {
			return scheduler.OutcomeHalted, fmt.Errorf("%w: %w", ErrStopped, s.failure)
		}
		return scheduler.OutcomeHalted, ErrStopped
	}
	ctx, span := tracing.StartSpan(ctx, "nucleus.step", "CONSUMER")
	span.WithAttributes(map[string]string{"area": trap.Area.String()}).WithInt("pid", s.kernel.PID(s.kernel.Current))

	err := s.handle(ctx, trap)
	outcome := scheduler.OutcomeHalted
	if err == nil {
		outcome, err = s.schedule(ctx)
	}
	if err != nil && kernel.IsPanic(err) {
		s.fail(ctx, err)
	}
	tracing.EndSpan(span, err)
	return outcome, err
}

func (s *Service) handle(ctx context.Context, trap machine.Trap) error {
	delta := progress.Delta{Traps: 1}
	var err error
	switch trap.Area {
	case state.AreaInterrupt:
		delta.Interrupts = 1
		err = s.interrupt.Handle(ctx, s.kernel, trap)
	default:
		if trap.Area == state.AreaSyscall {
			delta.Syscalls = 1
		}
		err = s.exception.Handle(ctx, s.kernel, trap)
	}
	s.progress.Update(delta)
	if err == nil && s.config.CheckInvariants {
		err = s.kernel.Check()
	}
	return err
}

func (s *Service) schedule(ctx context.Context) (scheduler.Outcome, error) {
	before, _ := s.kernel.Stats()
	outcome, err := s.scheduler.Schedule(ctx, s.kernel)
	if after, _ := s.kernel.Stats(); after > before {
		s.progress.Update(progress.Delta{Dispatches: after - before})
	}
	if err != nil {
		return outcome, err
	}
	if outcome == scheduler.OutcomeHalted {
		s.stopped = true
	}
	return outcome, nil
}

func (s *Service) fail(ctx context.Context, err error) {
	s.stopped = true
	s.failure = err
	s.log.WithError(err).Error("kernel panic")
	s.kernel.Emit(ctx, kernel.Event{Type: kernel.EventPanic, Reason: err.Error()})
	s.machine.Panic(err)
}

// Submit hands a trap to the run loop.
func (s *Service) Submit(ctx context.Context, trap machine.Trap) error {
	return s.queue.Publish(ctx, &trap)
}

// Run consumes traps until the machine halts (nil), a kernel panic occurs
// (the panic), or ctx is done (its error).
func (s *Service) Run(ctx context.Context) error {
	if s.isStopped() {
		return s.failureErr()
	}
	for {
		message, err := s.queue.Consume(ctx)
		if err != nil {
			return err
		}
		outcome, err := s.Step(ctx, *message.T())
		if err != nil {
			_ = message.Nack(err)
			if errors.Is(err, ErrStopped) {
				return s.failureErr()
			}
			return err
		}
		if err = message.Ack(); err != nil {
			s.log.WithError(err).Warn("failed to ack trap")
		}
		if outcome == scheduler.OutcomeHalted {
			return nil
		}
	}
}

// RunOnce consumes and steps a single trap.
func (s *Service) RunOnce(ctx context.Context) error {
	message, err := s.queue.Consume(ctx)
	if err != nil {
		return err
	}
	if _, err = s.Step(ctx, *message.T()); err != nil {
		_ = message.Nack(err)
		return err
	}
	return message.Ack()
}

func (s *Service) isStopped() bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.stopped
}

func (s *Service) failureErr() error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.failure
}

// Snapshot is a point-in-time view of the nucleus.
type Snapshot struct {
	BootID           string         `json:"bootID"`
	Booted           bool           `json:"booted"`
	Stopped          bool           `json:"stopped"`
	Processes        int            `json:"processes"`
	SoftBlocked      int            `json:"softBlocked"`
	Ready            int            `json:"ready"`
	CurrentPID       int            `json:"currentPid,omitempty"`
	ActiveSemaphores []uint32       `json:"activeSemaphores,omitempty"`
	Dispatched       int            `json:"dispatched"`
	Preempted        int            `json:"preempted"`
	Tick             uint64         `json:"tick"`
	Counters         progress.Delta `json:"counters"`
}

// Snapshot returns the current counters.
func (s *Service) Snapshot() Snapshot {
	s.mux.Lock()
	defer s.mux.Unlock()
	k := s.kernel
	dispatched, preempted := k.Stats()
	ret := Snapshot{
		BootID:           s.bootID,
		Booted:           s.booted,
		Stopped:          s.stopped,
		Processes:        k.ProcessCount,
		SoftBlocked:      k.SoftBlockCount,
		Ready:            k.Ready.Len(),
		ActiveSemaphores: k.Sems.Active(),
		Dispatched:       dispatched,
		Preempted:        preempted,
		Tick:             k.Tick,
	}
	if k.Current != pcb.None {
		ret.CurrentPID = k.PID(k.Current)
	}
	ret.Counters = s.progress.Snapshot().Delta
	return ret
}

// Accounting lists termination records matching parameters, ordered by PID.
func (s *Service) Accounting(ctx context.Context, parameters ...*dao.Parameter) ([]*accounting.Record, error) {
	return s.accounting.List(ctx, parameters...)
}
