// Package nucleus provides the kernel of a small teaching operating system:
// a process table, an active semaphore list, a round-robin scheduler with a
// pseudo-clock, and exception and interrupt dispatchers. It runs against any
// machine.Machine; the machine/sim package provides a deterministic one.
//
// The Service façade owns the kernel state and serialises every handler:
//
//	srv, _ := nucleus.New(nucleus.WithMachine(m))
//	_ = srv.Boot(ctx, initState)
//	go srv.Run(ctx)               // consumes traps from the trap queue
//	_ = srv.Submit(ctx, trap)     // what the hardware raises
//
// Traps can also be applied synchronously with Step.
package nucleus
