package kernel

import (
	"errors"
	"fmt"
)

// Fatal conditions; a kernel Panic wraps one of them.
var (
	ErrSemaphoresExhausted = errors.New("semaphore descriptors exhausted")
	ErrInconsistent        = errors.New("kernel structures inconsistent")
	ErrDeadlock            = errors.New("deadlock: processes exist but none can ever run")
	ErrUnknownException    = errors.New("unrecognized exception cause")
	ErrUnknownInterrupt    = errors.New("unrecognized interrupt cause")
	ErrNoCurrent           = errors.New("exception raised with no current process")
)

// Panic is a fatal kernel error; the system stops.
type Panic struct {
	Reason error
}

func (p *Panic) Error() string {
	return "kernel panic: " + p.Reason.Error()
}

func (p *Panic) Unwrap() error {
	return p.Reason
}

// NewPanic wraps cause (if any) under reason.
func NewPanic(reason error, cause error) *Panic {
	if cause == nil {
		return &Panic{Reason: reason}
	}
	return &Panic{Reason: fmt.Errorf("%w: %v", reason, cause)}
}

// Panicf builds a panic with a formatted detail.
func Panicf(reason error, format string, args ...interface{}) *Panic {
	return &Panic{Reason: fmt.Errorf("%w: %s", reason, fmt.Sprintf(format, args...))}
}

// IsPanic reports whether err is (or wraps) a kernel panic.
func IsPanic(err error) bool {
	var p *Panic
	return errors.As(err, &p)
}
