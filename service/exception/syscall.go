package exception

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/viant/nucleus/model/accounting"
	"github.com/viant/nucleus/model/device"
	"github.com/viant/nucleus/model/state"
	"github.com/viant/nucleus/service/kernel"
)

// Nucleus service numbers, passed in A1.
const (
	SysCreate      uint32 = 1 // A2: initial state address; A1 <- PID or -1
	SysTerminate   uint32 = 2
	SysVerhogen    uint32 = 3 // A2: semaphore address below kernel.SemaphoreBase
	SysPasseren    uint32 = 4 // A2: semaphore address below kernel.SemaphoreBase
	SysSpecTrapVec uint32 = 5 // A2: class, A3: old area, A4: new area
	SysCPUTime     uint32 = 6 // A1 <- CPU time, saturated at 32 bits
	SysWaitClock   uint32 = 7
	SysWaitIO      uint32 = 8 // A2: line, A3: device, A4: read; A1 <- status
)

// CreateFailed is the A1 result of a failed create.
const CreateFailed int32 = -1

func (s *Service) serve(ctx context.Context, k *kernel.Kernel, number uint32, args state.State) error {
	switch number {
	case SysCreate:
		s.create(ctx, k, args.A2)
		return nil
	case SysTerminate:
		return s.Terminate(ctx, k, k.Current, accounting.ReasonExit)
	case SysVerhogen:
		if kernel.Reserved(args.A2) {
			return s.Terminate(ctx, k, k.Current, accounting.ReasonBadArgument)
		}
		k.Verhogen(ctx, args.A2)
		return nil
	case SysPasseren:
		if kernel.Reserved(args.A2) {
			return s.Terminate(ctx, k, k.Current, accounting.ReasonBadArgument)
		}
		_, err := k.Passeren(ctx, args.A2, false)
		return err
	case SysSpecTrapVec:
		return s.specTrapVec(ctx, k, state.Class(int32(args.A2)), args.A3, args.A4)
	case SysCPUTime:
		k.ChargeCurrent(k.Machine.TOD())
		d := k.CurrentDescriptor()
		d.State.SetResult(uint32(min(d.CPUTime, math.MaxUint32)))
		return nil
	case SysWaitClock:
		_, err := k.Passeren(ctx, k.Bank().PseudoClock(), true)
		return err
	case SysWaitIO:
		return s.waitIO(ctx, k, int(args.A2), int(args.A3), args.A4 != 0)
	}
	return kernel.Panicf(kernel.ErrUnknownException, "service %d", number)
}

func (s *Service) create(ctx context.Context, k *kernel.Kernel, stateAddr uint32) {
	parent := k.CurrentDescriptor()
	id, ok := k.Procs.Allocate()
	if !ok {
		k.Log.WithField("pid", parent.PID).Warn("create: process table exhausted")
		parent.State.SetSignedResult(CreateFailed)
		return
	}
	child := k.Procs.Get(id)
	child.State = k.Machine.LoadState(stateAddr)
	child.PID = k.NextPID()
	k.Procs.InsertChild(k.Current, id)
	k.MakeReady(id)
	k.ProcessCount++
	parent.State.SetResult(uint32(child.PID))
	k.Log.WithFields(logrus.Fields{"pid": child.PID, "parent": parent.PID}).Debug("create")
	k.Emit(ctx, kernel.Event{Type: kernel.EventCreated, PID: child.PID, ParentPID: parent.PID})
}

func (s *Service) specTrapVec(ctx context.Context, k *kernel.Kernel, class state.Class, oldArea, newArea uint32) error {
	d := k.CurrentDescriptor()
	if !class.Valid() || d.Vectors[class].Registered {
		return s.Terminate(ctx, k, k.Current, accounting.ReasonBadVector)
	}
	d.Vectors[class] = pcbVector(oldArea, newArea)
	return nil
}

func (s *Service) waitIO(ctx context.Context, k *kernel.Kernel, line, dev int, read bool) error {
	sub := device.Receive
	if line == device.LineTerminal && !read {
		sub = device.Transmit
	}
	addr, ok := k.Bank().Device(line, dev, sub)
	if !ok {
		return s.Terminate(ctx, k, k.Current, accounting.ReasonBadArgument)
	}
	d := k.CurrentDescriptor()
	blocked, err := k.Passeren(ctx, addr, true)
	if err != nil || blocked {
		return err
	}
	d.State.SetResult(k.Bank().Status(addr))
	return nil
}
