package nucleus

import (
	"github.com/sirupsen/logrus"
	"github.com/viant/nucleus/machine"
	"github.com/viant/nucleus/model/accounting"
	"github.com/viant/nucleus/progress"
	"github.com/viant/nucleus/service/dao"
	"github.com/viant/nucleus/service/event"
	"github.com/viant/nucleus/service/messaging"
	"github.com/viant/nucleus/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option configures a Service.
type Option func(s *Service)

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithMachine sets the hardware the nucleus drives.
func WithMachine(m machine.Machine) Option {
	return func(s *Service) { s.machine = m }
}

// WithLogger sets the logger; by default a logrus logger at the configured level is used.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) { s.log = log }
}

// WithTrapQueue sets the queue Run consumes traps from.
func WithTrapQueue(queue messaging.Queue[machine.Trap]) Option {
	return func(s *Service) { s.queue = queue }
}

// WithEventService publishes every kernel event through service.
func WithEventService(service *event.Service) Option {
	return func(s *Service) { s.events = service }
}

// WithAccountingDAO sets the store of termination records.
func WithAccountingDAO(store dao.Service[int, accounting.Record]) Option {
	return func(s *Service) { s.accounting = store }
}

// WithProgress sets the counters tracker.
func WithProgress(p *progress.Progress) Option {
	return func(s *Service) { s.progress = p }
}

// WithTracing configures OpenTelemetry with the stdout exporter; an empty
// outputFile writes to stdout. The first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry with a custom exporter.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
