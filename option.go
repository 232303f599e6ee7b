package workgrid

import (
	"log/slog"

	"github.com/viant/afs/storage"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/viant/workgrid/runtime/run"
	"github.com/viant/workgrid/service/dao"
	"github.com/viant/workgrid/service/event"
	"github.com/viant/workgrid/service/executor"
	"github.com/viant/workgrid/service/layer"
	"github.com/viant/workgrid/service/messaging"
	"github.com/viant/workgrid/tracing"
)

// Option configures a Service.
type Option func(s *Service)

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithRunStore replaces the configured run archive.
func WithRunStore(store dao.Service[string, run.Run]) Option {
	return func(s *Service) {
		s.runs = store
	}
}

// WithQueue sets the queue carrying run events to the archive listener.
func WithQueue(queue messaging.Queue[event.Event[*run.Run]]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithRegistry sets the layer registry used by the graph executor.
func WithRegistry(registry *layer.Registry) Option {
	return func(s *Service) {
		s.registry = registry
	}
}

// WithExecutorOptions lets the caller supply additional options passed to
// executor.New (e.g. a custom node listener).
func WithExecutorOptions(opts ...executor.Option) Option {
	return func(s *Service) {
		s.executorOptions = append(s.executorOptions, opts...)
	}
}

// WithMetaBaseURL sets the base URL relative graph locations are resolved against.
func WithMetaBaseURL(URL string) Option {
	return func(s *Service) {
		s.metaBaseURL = URL
	}
}

// WithMetaFsOptions with meta file system options
func WithMetaFsOptions(options ...storage.Option) Option {
	return func(s *Service) {
		s.metaFsOptions = options
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter. The first
// successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		if err := tracing.InitWithExporter(serviceName, serviceVersion, exporter); err != nil {
			s.initErr = err
		}
	}
}
