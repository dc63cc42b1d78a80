package nucleus

import "errors"

var (
	// ErrMachineRequired is returned by New without WithMachine.
	ErrMachineRequired = errors.New("nucleus: machine is required")
	// ErrNotBooted is returned by Step before Boot.
	ErrNotBooted = errors.New("nucleus: not booted")
	// ErrAlreadyBooted is returned by a second Boot.
	ErrAlreadyBooted = errors.New("nucleus: already booted")
	// ErrStopped is returned by Step after the machine halted or panicked.
	ErrStopped = errors.New("nucleus: stopped")
)
