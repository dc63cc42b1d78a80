package kernel

import "context"

// Event types
const (
	EventCreated    = "process.created"
	EventTerminated = "process.terminated"
	EventBlocked    = "process.blocked"
	EventUnblocked  = "process.unblocked"
	EventPreempted  = "process.preempted"
	EventPassUp     = "exception.passup"
	EventPseudoTick = "clock.tick"
	EventDevice     = "device.completed"
	EventHalt       = "system.halt"
	EventWait       = "system.wait"
	EventPanic      = "system.panic"
)

// Event describes a nucleus state change.
type Event struct {
	Type      string `json:"type"`
	PID       int    `json:"pid,omitempty"`
	ParentPID int    `json:"parentPid,omitempty"`
	SemAddr   uint32 `json:"semAddr,omitempty"`
	Blocked   bool   `json:"blocked,omitempty"`
	Soft      bool   `json:"soft,omitempty"`
	Line      int    `json:"line,omitempty"`
	Device    int    `json:"device,omitempty"`
	Status    uint32 `json:"status,omitempty"`
	CPUTime   uint64 `json:"cpuTime,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Listener observes nucleus events. Listeners run inside the handler and
// must not call back into the kernel.
type Listener func(ctx context.Context, event Event)

// AddListener registers a listener.
func (k *Kernel) AddListener(listener Listener) {
	if listener == nil {
		return
	}
	k.listeners = append(k.listeners, listener)
}

// Emit notifies every listener.
func (k *Kernel) Emit(ctx context.Context, event Event) {
	for _, listener := range k.listeners {
		listener(ctx, event)
	}
}
