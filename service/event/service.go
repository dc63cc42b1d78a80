// Package event publishes kernel events to a messaging queue so observers
// outside the nucleus loop can follow process lifecycle, clock ticks and
// device completions.
package event

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/viant/nucleus/service/kernel"
	"github.com/viant/nucleus/service/messaging"
)

// Service adapts kernel events onto a queue.
type Service struct {
	bootID    string
	publisher *Publisher[kernel.Event]
	listener  *Listener[kernel.Event]
	log       logrus.FieldLogger
	mux       sync.Mutex
	dropped   int
}

// New creates an event service writing to queue.
func New(queue messaging.Queue[Event[kernel.Event]], log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{publisher: NewPublisher[kernel.Event](queue), log: log}
}

// SetBootID stamps subsequent events with the boot identifier.
func (s *Service) SetBootID(bootID string) {
	s.mux.Lock()
	s.bootID = bootID
	s.mux.Unlock()
}

// Handle publishes e; it matches kernel.Listener. A full queue drops the
// event rather than stalling the nucleus.
func (s *Service) Handle(ctx context.Context, e kernel.Event) {
	s.mux.Lock()
	bootID := s.bootID
	s.mux.Unlock()
	event := NewEvent(&Context{BootID: bootID, EventType: e.Type, PID: e.PID}, e)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.mux.Lock()
		s.dropped++
		s.mux.Unlock()
		if !errors.Is(err, messaging.ErrQueueFull) {
			s.log.WithError(err).WithField("event", e.Type).Warn("failed to publish event")
		}
	}
}

// Dropped returns the number of events that could not be published.
func (s *Service) Dropped() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.dropped
}

// Publisher returns the underlying publisher, e.g. for a pull consumer.
func (s *Service) Publisher() *Publisher[kernel.Event] {
	return s.publisher
}

// SetListener replaces the push consumer of published events.
func (s *Service) SetListener(ctx context.Context, handler func(*Event[kernel.Event])) {
	s.mux.Lock()
	previous := s.listener
	s.listener = NewListener[kernel.Event](s.publisher, handler, s.log)
	listener := s.listener
	s.mux.Unlock()
	if previous != nil {
		previous.Stop()
	}
	listener.Start(ctx)
}

// Stop stops the listener, if any.
func (s *Service) Stop() {
	s.mux.Lock()
	listener := s.listener
	s.listener = nil
	s.mux.Unlock()
	if listener != nil {
		listener.Stop()
	}
}
