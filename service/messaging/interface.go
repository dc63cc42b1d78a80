// Package messaging defines the queue abstraction the nucleus uses to move
// traps from the machine into the run loop and kernel events out of it.
package messaging

import (
	"context"
	"errors"
)

// Vendor names a queue implementation.
type Vendor string

const (
	// VendorMemory is the channel backed queue.
	VendorMemory Vendor = "memory"
	// VendorFs is the afs backed spool.
	VendorFs Vendor = "fs"
)

// ErrQueueFull is returned by a non-blocking queue that has no room left.
var ErrQueueFull = errors.New("messaging: queue full")

// Queue represents an abstract message queue for any payload type
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue
	Publish(ctx context.Context, t *T) error

	// Consume blocks until a message is available or ctx is done
	Consume(ctx context.Context) (Message[T], error)
}

// Message represents a message retrieved from a queue
type Message[T any] interface {
	// ID returns the message identifier
	ID() string

	// T returns the payload of this message
	T() *T

	// Ack acknowledges successful processing of this message
	Ack() error

	// Nack records a processing failure; the message is not redelivered
	Nack(err error) error
}
