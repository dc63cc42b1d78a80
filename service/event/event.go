package event

import (
	"time"

	"github.com/viant/nucleus/internal/clock"
)

// Context identifies where an event came from.
type Context struct {
	BootID    string `json:"bootID"`
	EventType string `json:"eventType"`
	PID       int    `json:"pid,omitempty"`
}

// Event wraps a payload with its origin and creation time.
type Event[T any] struct {
	Context   *Context  `json:"context"`
	CreatedAt time.Time `json:"createdAt"`
	Data      T         `json:"data"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: clock.Now(),
		Data:      data,
	}
}
