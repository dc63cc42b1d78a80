// Package interrupt dispatches hardware interrupts. Only the highest
// priority pending line is served per interrupt; lower lines stay pending
// and raise a new interrupt once the processor is resumed.
package interrupt

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/viant/nucleus/machine"
	"github.com/viant/nucleus/model/device"
	"github.com/viant/nucleus/model/state"
	"github.com/viant/nucleus/service/kernel"
	"github.com/viant/nucleus/service/pcb"
)

// Service handles interval timer and device interrupts.
type Service struct{}

// New creates an interrupt dispatcher.
func New() *Service {
	return &Service{}
}

// Handle saves the interrupted state (rewinding PC to the interrupted
// instruction) and serves the highest priority pending line.
func (s *Service) Handle(ctx context.Context, k *kernel.Kernel, trap machine.Trap) error {
	if d := k.CurrentDescriptor(); d != nil {
		d.State = trap.State
		d.State.PC -= state.WordSize
	}
	cause := trap.State.Cause
	for _, line := range device.Priority {
		if !cause.Pending(line) {
			continue
		}
		if line == device.LineTimer {
			s.timer(ctx, k)
			return nil
		}
		return s.device(ctx, k, line)
	}
	return kernel.Panicf(kernel.ErrUnknownInterrupt, "pending lines %#x", cause.PendingLines())
}

func (s *Service) timer(ctx context.Context, k *kernel.Kernel) {
	now := k.Machine.TOD()
	k.AdvanceTick(now)
	switch {
	case k.Tick >= k.Config.PseudoClock:
		woken := k.WakeAll(ctx, k.Bank().PseudoClock())
		k.Tick = 0
		k.Log.WithField("woken", len(woken)).Debug("pseudo-clock tick")
		k.Emit(ctx, kernel.Event{Type: kernel.EventPseudoTick, SemAddr: k.Bank().PseudoClock(), Status: uint32(len(woken))})
	case k.Current != pcb.None:
		pid := k.PID(k.Current)
		k.ChargeCurrent(now)
		k.Preempt()
		k.Log.WithField("pid", pid).Debug("time slice expired")
		k.Emit(ctx, kernel.Event{Type: kernel.EventPreempted, PID: pid})
	default:
		k.Machine.SetTimer(k.Config.PseudoClock - k.Tick)
	}
}

func (s *Service) device(ctx context.Context, k *kernel.Kernel, line int) error {
	dev := device.LowestPending(k.Machine.Pending(line), k.Config.DevicesPerLine)
	if dev < 0 {
		return kernel.Panicf(kernel.ErrUnknownInterrupt, "line %v: no device pending", device.LineName(line))
	}
	sub := device.Receive
	status := k.Machine.Status(line, dev, device.Receive)
	if line == device.LineTerminal {
		switch {
		case status&device.StatusMask == device.StatusCharReceived:
		case k.Machine.Status(line, dev, device.Transmit)&device.StatusMask == device.StatusCharTransmitted:
			sub = device.Transmit
			status = k.Machine.Status(line, dev, device.Transmit)
		default:
			return kernel.Panicf(kernel.ErrUnknownInterrupt, "terminal %d: status %#x", dev, status)
		}
	}

	addr, ok := k.Bank().Device(line, dev, sub)
	if !ok {
		return kernel.Panicf(kernel.ErrUnknownInterrupt, "line %v device %d", device.LineName(line), dev)
	}
	if id, woken := k.Verhogen(ctx, addr); woken {
		k.Procs.Get(id).State.SetResult(status)
	} else {
		k.Bank().SetStatus(addr, status)
	}
	k.Machine.Command(line, dev, sub, device.CommandAck)

	k.Log.WithFields(logrus.Fields{"line": device.LineName(line), "device": dev, "sub": sub.String(), "status": status}).Debug("device interrupt")
	k.Emit(ctx, kernel.Event{Type: kernel.EventDevice, Line: line, Device: dev, SemAddr: addr, Status: status})
	return nil
}
