package nucleus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/nucleus/service/kernel"
	"github.com/viant/nucleus/service/messaging"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the nucleus configuration. It
// can be populated from YAML or JSON; LoadConfig starts from DefaultConfig
// so a file only needs the settings it changes.
type Config struct {
	MaxProc int `json:"maxProc" yaml:"maxProc"`

	// MaxSemaphores is the semaphore descriptor pool size; zero means MaxProc.
	MaxSemaphores int `json:"maxSemaphores,omitempty" yaml:"maxSemaphores,omitempty"`

	// TimeSlice and PseudoClock are in ticks.
	TimeSlice      uint64 `json:"timeSlice" yaml:"timeSlice"`
	PseudoClock    uint64 `json:"pseudoClock" yaml:"pseudoClock"`
	DevicesPerLine int    `json:"devicesPerLine" yaml:"devicesPerLine"`

	CheckInvariants bool `json:"checkInvariants,omitempty" yaml:"checkInvariants,omitempty"`

	TrapQueue  QueueConfig      `json:"trapQueue" yaml:"trapQueue"`
	Events     EventsConfig     `json:"events" yaml:"events"`
	Accounting AccountingConfig `json:"accounting" yaml:"accounting"`
	Trace      TraceConfig      `json:"trace" yaml:"trace"`
	Log        LogConfig        `json:"log" yaml:"log"`
}

// QueueConfig selects the trap queue implementation.
type QueueConfig struct {
	Vendor       messaging.Vendor `json:"vendor" yaml:"vendor"`
	Buffer       int              `json:"buffer,omitempty" yaml:"buffer,omitempty"`
	URL          string           `json:"url,omitempty" yaml:"url,omitempty"` // fs spool location
	PollInterval time.Duration    `json:"pollInterval,omitempty" yaml:"pollInterval,omitempty"`
}

// EventsConfig enables publishing kernel events to an in-memory queue.
type EventsConfig struct {
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Buffer  int  `json:"buffer,omitempty" yaml:"buffer,omitempty"`
}

// AccountingConfig selects where termination records go; an empty URL keeps them in memory.
type AccountingConfig struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// TraceConfig enables OpenTelemetry spans with the stdout exporter.
type TraceConfig struct {
	Enabled bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Output  string `json:"output,omitempty" yaml:"output,omitempty"`
}

// LogConfig sets the logrus level.
type LogConfig struct {
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
}

// DefaultConfig returns the classic nucleus constants: 20 processes, a
// 5000 tick slice and a 100000 tick pseudo-clock.
func DefaultConfig() *Config {
	return &Config{
		MaxProc:        20,
		TimeSlice:      5000,
		PseudoClock:    100000,
		DevicesPerLine: 8,
		TrapQueue:      QueueConfig{Vendor: messaging.VendorMemory, Buffer: 64},
		Events:         EventsConfig{Buffer: 256},
		Log:            LogConfig{Level: "info"},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.MaxProc <= 0 {
		errs = append(errs, fmt.Errorf("maxProc must be > 0"))
	}
	if c.MaxSemaphores < 0 {
		errs = append(errs, fmt.Errorf("maxSemaphores must be >= 0"))
	}
	if c.TimeSlice == 0 {
		errs = append(errs, fmt.Errorf("timeSlice must be > 0"))
	}
	if c.PseudoClock == 0 {
		errs = append(errs, fmt.Errorf("pseudoClock must be > 0"))
	}
	if c.DevicesPerLine <= 0 || c.DevicesPerLine > 32 {
		errs = append(errs, fmt.Errorf("devicesPerLine must be in 1..32"))
	}
	switch c.TrapQueue.Vendor {
	case "", messaging.VendorMemory:
	case messaging.VendorFs:
		if c.TrapQueue.URL == "" {
			errs = append(errs, fmt.Errorf("trapQueue.url is required for the fs vendor"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported trapQueue.vendor: %v", c.TrapQueue.Vendor))
	}
	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			errs = append(errs, fmt.Errorf("log.level: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) kernelConfig() kernel.Config {
	maxSemaphores := c.MaxSemaphores
	if maxSemaphores == 0 {
		maxSemaphores = c.MaxProc
	}
	return kernel.Config{
		MaxProc:        c.MaxProc,
		MaxSemaphores:  maxSemaphores,
		TimeSlice:      c.TimeSlice,
		PseudoClock:    c.PseudoClock,
		DevicesPerLine: c.DevicesPerLine,
	}
}

// LoadConfig reads a YAML config from any afs supported URL.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	ret := DefaultConfig()
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
	}
	if err = ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return ret, nil
}
