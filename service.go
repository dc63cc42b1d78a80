package nucleus

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/nucleus/internal/clock"
	"github.com/viant/nucleus/internal/idgen"
	"github.com/viant/nucleus/machine"
	"github.com/viant/nucleus/model/accounting"
	"github.com/viant/nucleus/progress"
	"github.com/viant/nucleus/service/dao"
	fsaccounting "github.com/viant/nucleus/service/dao/accounting/fs"
	memaccounting "github.com/viant/nucleus/service/dao/accounting/memory"
	"github.com/viant/nucleus/service/event"
	"github.com/viant/nucleus/service/exception"
	"github.com/viant/nucleus/service/interrupt"
	"github.com/viant/nucleus/service/kernel"
	"github.com/viant/nucleus/service/messaging"
	fsqueue "github.com/viant/nucleus/service/messaging/fs"
	mmemory "github.com/viant/nucleus/service/messaging/memory"
	"github.com/viant/nucleus/service/scheduler"
	"github.com/viant/nucleus/tracing"
)

// ServiceName is reported to the tracing backend.
const ServiceName = "nucleus"

// Service is the nucleus façade: it owns the kernel and serialises handlers.
type Service struct {
	config     *Config
	machine    machine.Machine
	log        logrus.FieldLogger
	queue      messaging.Queue[machine.Trap]
	events     *event.Service
	accounting dao.Service[int, accounting.Record]
	progress   *progress.Progress

	bootID    string
	kernel    *kernel.Kernel
	scheduler *scheduler.Service
	exception *exception.Service
	interrupt *interrupt.Service

	mux     sync.Mutex
	booted  bool
	stopped bool
	failure error
}

// New creates a nucleus; WithMachine is required.
func New(options ...Option) (*Service, error) {
	ret := &Service{config: DefaultConfig()}
	for _, option := range options {
		option(ret)
	}
	if err := ret.init(context.Background()); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Service) init(ctx context.Context) error {
	if s.machine == nil {
		return ErrMachineRequired
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	s.bootID = idgen.New()
	if s.log == nil {
		logger := logrus.New()
		if level, err := logrus.ParseLevel(s.config.Log.Level); err == nil {
			logger.SetLevel(level)
		}
		s.log = logger
	}
	s.log = s.log.WithField("boot", s.bootID)
	if s.config.Trace.Enabled {
		if err := tracing.Init(ServiceName, "", s.config.Trace.Output); err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
	}
	if err := s.ensureBaseSetup(ctx); err != nil {
		return err
	}
	if s.progress == nil {
		s.progress = progress.New(s.bootID)
	}
	if s.events != nil {
		s.events.SetBootID(s.bootID)
	}

	s.kernel = kernel.New(s.config.kernelConfig(), s.machine, s.log)
	s.kernel.AddListener(s.observe)
	if s.events != nil {
		s.kernel.AddListener(s.events.Handle)
	}
	s.scheduler = scheduler.New()
	s.exception = exception.New()
	s.interrupt = interrupt.New()
	return nil
}

func (s *Service) ensureBaseSetup(ctx context.Context) error {
	if s.queue == nil {
		switch s.config.TrapQueue.Vendor {
		case messaging.VendorFs:
			config := fsqueue.DefaultConfig()
			config.URL = s.config.TrapQueue.URL
			if s.config.TrapQueue.PollInterval > 0 {
				config.PollInterval = s.config.TrapQueue.PollInterval
			}
			queue, err := fsqueue.NewQueue[machine.Trap](ctx, afs.New(), config)
			if err != nil {
				return err
			}
			s.queue = queue
		default:
			config := mmemory.DefaultConfig()
			if s.config.TrapQueue.Buffer > 0 {
				config.Buffer = s.config.TrapQueue.Buffer
			}
			s.queue = mmemory.NewQueue[machine.Trap](config)
		}
	}
	if s.accounting == nil {
		if URL := s.config.Accounting.URL; URL != "" {
			store, err := fsaccounting.New(ctx, afs.New(), URL)
			if err != nil {
				return err
			}
			s.accounting = store
		} else {
			s.accounting = memaccounting.New()
		}
	}
	if s.events == nil && s.config.Events.Enabled {
		queue := mmemory.NewQueue[event.Event[kernel.Event]](mmemory.Config{Buffer: s.config.Events.Buffer, NonBlocking: true})
		s.events = event.New(queue, s.log)
	}
	return nil
}

// observe turns kernel events into progress counters and accounting records.
func (s *Service) observe(ctx context.Context, e kernel.Event) {
	switch e.Type {
	case kernel.EventCreated:
		s.progress.Update(progress.Delta{Created: 1})
	case kernel.EventPreempted:
		s.progress.Update(progress.Delta{Preemptions: 1})
	case kernel.EventPseudoTick:
		s.progress.Update(progress.Delta{Ticks: 1})
	case kernel.EventWait:
		s.progress.Update(progress.Delta{Waits: 1})
	case kernel.EventTerminated:
		s.progress.Update(progress.Delta{Terminated: 1})
		record := &accounting.Record{
			PID:        e.PID,
			ParentPID:  e.ParentPID,
			CPUTime:    e.CPUTime,
			Reason:     e.Reason,
			Blocked:    e.Blocked,
			SemAddr:    e.SemAddr,
			Terminated: clock.Now(),
		}
		if err := s.accounting.Save(ctx, record); err != nil {
			s.log.WithError(err).WithField("pid", e.PID).Warn("failed to save accounting record")
		}
	}
}

// BootID returns the identifier of this nucleus instance.
func (s *Service) BootID() string {
	return s.bootID
}

// Config returns the effective configuration.
func (s *Service) Config() *Config {
	return s.config
}

// Events returns the event service, or nil when events are disabled.
func (s *Service) Events() *event.Service {
	return s.events
}

// Progress returns the counters tracker.
func (s *Service) Progress() *progress.Progress {
	return s.progress
}
