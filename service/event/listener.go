package event

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Listener drains a publisher on its own goroutine.
type Listener[T any] struct {
	publisher *Publisher[T]
	handler   func(*Event[T])
	log       logrus.FieldLogger
	cancel    context.CancelFunc
	done      chan struct{}
	once      sync.Once
}

func NewListener[T any](publisher *Publisher[T], handler func(*Event[T]), log logrus.FieldLogger) *Listener[T] {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Listener[T]{publisher: publisher, handler: handler, log: log, done: make(chan struct{})}
}

// Start begins delivering events to the handler until Stop is called.
func (l *Listener[T]) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	go func() {
		defer close(l.done)
		for {
			event, err := l.publisher.Consume(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				l.log.WithError(err).Warn("failed to consume event")
				continue
			}
			if event != nil {
				l.handler(event)
			}
		}
	}()
}

// Stop cancels delivery and waits for the goroutine to exit.
func (l *Listener[T]) Stop() {
	l.once.Do(func() {
		if l.cancel == nil {
			close(l.done)
			return
		}
		l.cancel()
	})
	<-l.done
}
