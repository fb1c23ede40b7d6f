package cyclor

import (
	"io"

	"github.com/viant/cyclor/extension"
	"github.com/viant/cyclor/policy"
	"github.com/viant/cyclor/runtime/state"
	"github.com/viant/cyclor/runtime/timer"
	"github.com/viant/cyclor/service/dao"
	"github.com/viant/cyclor/tracing"
	"github.com/viant/cyclor/tracker"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the Service at construction time.
type Option func(s *Service)

// WithConfig replaces the whole service configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithGateLimits sets per-step concurrency capacity overrides.
func WithGateLimits(limits map[string]int) Option {
	return func(s *Service) {
		s.config.Gates = limits
	}
}

// WithLoopN caps the number of loop instances the engine admits.
func WithLoopN(n int) Option {
	return func(s *Service) {
		s.config.LoopN = &n
	}
}

// WithStepN caps the total number of step executions.
func WithStepN(n int) Option {
	return func(s *Service) {
		s.config.StepN = &n
	}
}

// WithWorkers sets the dispatch worker count.
func WithWorkers(count int) Option {
	return func(s *Service) {
		s.config.Engine.Workers = count
	}
}

// WithLoopCap bounds concurrently unfinished loop instances.
func WithLoopCap(cap int) Option {
	return func(s *Service) {
		s.config.Engine.LoopCap = cap
	}
}

// WithPolicy sets the error classification policy.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithTimer injects a wall-clock budget collaborator, overriding the
// config's TimeBudget.
func WithTimer(t timer.Timer) Option {
	return func(s *Service) {
		s.timer = t
	}
}

// WithTracker registers observability trackers notified at engine
// construction.
func WithTracker(trackers ...tracker.Tracker) Option {
	return func(s *Service) {
		s.trackers = append(s.trackers, trackers...)
	}
}

// WithCheckpointDAO injects the checkpoint store; without one the service
// picks filesystem storage when CheckpointURL is configured and an
// in-memory store otherwise.
func WithCheckpointDAO(store dao.Service[string, state.Snapshot]) Option {
	return func(s *Service) {
		s.checkpoints = store
	}
}

// WithExtensionTypes registers concrete step output types used to rehydrate
// checkpoints.
func WithExtensionTypes(types *extension.Types) Option {
	return func(s *Service) {
		s.types = types
	}
}

// WithProgressWriter sets the writer progress printers render to.
func WithProgressWriter(out io.Writer) Option {
	return func(s *Service) {
		s.progressOut = out
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If
// outputFile is empty the stdout exporter is used; otherwise traces are
// written to the supplied file path. The function is safe to call multiple
// times – the first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter, enabling integrations with exporters other than the
// built-in stdout exporter, for example OTLP, Jaeger or Zipkin.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
