package progress

import (
	"context"
	"sync"
	"time"

	"github.com/viant/nucleus/internal/clock"
)

// Delta represents an incremental counter change. Fields are signed so a
// delta may also decrement.
type Delta struct {
	Traps       int `json:"traps"`
	Syscalls    int `json:"syscalls"`
	Interrupts  int `json:"interrupts"`
	Dispatches  int `json:"dispatches"`
	Preemptions int `json:"preemptions"`
	Created     int `json:"created"`
	Terminated  int `json:"terminated"`
	Ticks       int `json:"ticks"`
	Waits       int `json:"waits"`
}

func (d *Delta) add(other Delta) {
	d.Traps += other.Traps
	d.Syscalls += other.Syscalls
	d.Interrupts += other.Interrupts
	d.Dispatches += other.Dispatches
	d.Preemptions += other.Preemptions
	d.Created += other.Created
	d.Terminated += other.Terminated
	d.Ticks += other.Ticks
	d.Waits += other.Waits
}

// Counters is a point-in-time copy of a boot's counters.
type Counters struct {
	BootID    string    `json:"bootID"`
	StartedAt time.Time `json:"startedAt"`
	Delta
}

// Progress aggregates nucleus counters for one boot. It is safe for concurrent use.
type Progress struct {
	mux      sync.Mutex
	counters Counters
	onChange func(Counters)
}

// New creates a tracker for bootID.
func New(bootID string) *Progress {
	return &Progress{counters: Counters{BootID: bootID, StartedAt: clock.Now()}}
}

// Update applies d. The onChange callback, if any, receives a copy outside
// the critical section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mux.Lock()
	p.counters.add(d)
	snapshot := p.counters
	cb := p.onChange
	p.mux.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy suitable for read-only inspection.
func (p *Progress) Snapshot() Counters {
	if p == nil {
		return Counters{}
	}
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.counters
}

// OnChange registers the callback invoked after every Update; nil disables it.
func (p *Progress) OnChange(cb func(Counters)) {
	if p == nil {
		return
	}
	p.mux.Lock()
	p.onChange = cb
	p.mux.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithTracker embeds p in a derived context.
func WithTracker(ctx context.Context, p *Progress) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, trackerKey, p)
}

// FromContext extracts the tracker from ctx.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// UpdateCtx applies d to the tracker carried by ctx, if any.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
