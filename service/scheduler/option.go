package scheduler

import (
	"log/slog"

	"github.com/viant/workgrid/hint"
	"github.com/viant/workgrid/model/strategy"
	"github.com/viant/workgrid/runtime/run"
	"github.com/viant/workgrid/service/event"
)

// Option configures the scheduler service.
type Option func(*Service)

// WithConfig sets the configuration for the service
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithWorkers sets the number of pooled workers
func WithWorkers(count int) Option {
	return func(s *Service) {
		s.config.WorkerCount = count
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithPublisher publishes every finished run
func WithPublisher(publisher *event.Publisher[*run.Run]) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// ScheduleOption overrides configuration for a single Schedule call.
type ScheduleOption func(*hint.Hint)

// WithStrategy selects the partitioning strategy for the call.
func WithStrategy(kind strategy.Kind) ScheduleOption {
	return func(h *hint.Hint) {
		h.Strategy = &kind
	}
}

// WithSplitAxis selects the axis partitioned for the call.
func WithSplitAxis(axis int) ScheduleOption {
	return func(h *hint.Hint) {
		h.SplitAxis = &axis
	}
}

// WithGranularity sets the DYNAMIC chunk size for the call.
func WithGranularity(units int) ScheduleOption {
	return func(h *hint.Hint) {
		h.Granularity = &units
	}
}

// WithTimestamps toggles per partition timestamps for the call.
func WithTimestamps(enabled bool) ScheduleOption {
	return func(h *hint.Hint) {
		h.Timestamps = &enabled
	}
}
