package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/viant/workgrid/hint"
	"github.com/viant/workgrid/internal/clock"
	"github.com/viant/workgrid/model/kernel"
	"github.com/viant/workgrid/model/strategy"
	"github.com/viant/workgrid/model/window"
	"github.com/viant/workgrid/progress"
	"github.com/viant/workgrid/runtime/run"
	"github.com/viant/workgrid/service/event"
	"github.com/viant/workgrid/tracing"
)

// Scheduler is the capability consumed by layers, the graph executor and the
// test harness.
type Scheduler interface {
	Schedule(ctx context.Context, k kernel.Kernel, w *window.Window, options ...ScheduleOption) (*run.Run, error)
	SetStrategy(kind strategy.Kind) error
	SetWorkerCount(n int) error
	SetTimestampCapture(enabled bool) error
	SetGranularity(units int) error
	Config() Config
}

// State describes the dispatch lifecycle of a Service.
type State int

const (
	StateIdle State = iota
	StateDispatching
)

func (s State) String() string {
	if s == StateDispatching {
		return "dispatching"
	}
	return "idle"
}

// Service owns a worker pool and runs kernels over partitioned windows.
type Service struct {
	config    Config
	logger    *slog.Logger
	publisher *event.Publisher[*run.Run]

	cfgMu  sync.Mutex
	state  State
	closed bool
	pool   *pool

	// slot admits one Schedule call at a time; a channel so queued callers
	// can give up when their context ends.
	slot chan struct{}
}

// New creates a scheduler and starts its worker pool.
func New(options ...Option) (*Service, error) {
	s := &Service{
		config: DefaultConfig(),
		slot:   make(chan struct{}, 1),
	}
	for _, opt := range options {
		opt(s)
	}
	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scheduler config: %w", err)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.pool = startPool(s.config.WorkerCount)
	return s, nil
}

// startPool returns nil for a single worker, which runs inline.
func startPool(workers int) *pool {
	if workers <= 1 {
		return nil
	}
	return newPool(workers)
}

// Config returns a copy of the current configuration.
func (s *Service) Config() Config {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	return s.config
}

// State returns the dispatch state.
func (s *Service) State() State {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	return s.state
}

// SetStrategy changes the default strategy.
func (s *Service) SetStrategy(kind strategy.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidStrategy, kind)
	}
	return s.update("strategy", func(c *Config) { c.Strategy = kind })
}

// SetTimestampCapture toggles per partition timestamps.
func (s *Service) SetTimestampCapture(enabled bool) error {
	return s.update("timestamps", func(c *Config) { c.TimestampCapture = enabled })
}

// SetGranularity sets the DYNAMIC chunk size, 0 selects the automatic size.
func (s *Service) SetGranularity(units int) error {
	if units < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidGranularity, units)
	}
	return s.update("granularity", func(c *Config) { c.Granularity = units })
}

// SetSplitAxis sets the default split axis.
func (s *Service) SetSplitAxis(axis int) error {
	if axis < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAxis, axis)
	}
	return s.update("splitAxis", func(c *Config) { c.SplitAxis = axis })
}

// SetWorkerCount resizes the pool; workers are restarted between calls.
func (s *Service) SetWorkerCount(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkerCount, n)
	}
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	if err := s.checkMutable("workers"); err != nil {
		return err
	}
	if n == s.config.WorkerCount {
		return nil
	}
	if s.pool != nil {
		s.pool.stop()
	}
	s.pool = startPool(n)
	s.config.WorkerCount = n
	return nil
}

func (s *Service) update(setting string, fn func(c *Config)) error {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	if err := s.checkMutable(setting); err != nil {
		return err
	}
	fn(&s.config)
	return nil
}

func (s *Service) checkMutable(setting string) error {
	if s.closed {
		return ErrClosed
	}
	if s.state == StateDispatching {
		return &ConcurrentConfigurationError{Setting: setting}
	}
	return nil
}

// Close waits for an in-flight call and joins all workers. Schedule fails
// with ErrClosed afterwards.
func (s *Service) Close() error {
	s.slot <- struct{}{}
	defer func() { <-s.slot }()
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.pool != nil {
		s.pool.stop()
		s.pool = nil
	}
	return nil
}

// settings is the resolved configuration of one call.
type settings struct {
	strategy    strategy.Kind
	splitAxis   int
	granularity int
	timestamps  bool
	workers     int
	pool        *pool
}

func (s *Service) resolve(ctx context.Context, options []ScheduleOption) settings {
	explicit := &hint.Hint{}
	for _, opt := range options {
		opt(explicit)
	}
	h := hint.FromContext(ctx).Merge(explicit)
	ret := settings{
		strategy:    s.config.Strategy,
		splitAxis:   s.config.SplitAxis,
		granularity: s.config.Granularity,
		timestamps:  s.config.TimestampCapture,
		workers:     s.config.WorkerCount,
		pool:        s.pool,
	}
	if h.Strategy != nil {
		ret.strategy = *h.Strategy
	}
	if h.SplitAxis != nil {
		ret.splitAxis = *h.SplitAxis
	}
	if h.Granularity != nil {
		ret.granularity = *h.Granularity
	}
	if h.Timestamps != nil {
		ret.timestamps = *h.Timestamps
	}
	return ret
}

func (c settings) validate(w *window.Window) error {
	if !c.strategy.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidStrategy, c.strategy)
	}
	if c.granularity < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidGranularity, c.granularity)
	}
	if c.splitAxis < 0 || c.splitAxis >= w.Rank() {
		return fmt.Errorf("%w: %d (rank %d): %w", ErrInvalidAxis, c.splitAxis, w.Rank(), window.ErrAxisOutOfRange)
	}
	return nil
}

// Schedule partitions w, runs k over every partition and blocks until all
// dispatched partitions returned. Calls are serialized.
//
// A nil run and an error are returned when nothing was dispatched. When a
// partition faults the run is returned together with a *KernelError. When ctx
// ends during dispatch, remaining partitions are skipped and the run has
// status cancelled with no error.
func (s *Service) Schedule(ctx context.Context, k kernel.Kernel, w *window.Window, options ...ScheduleOption) (*run.Run, error) {
	if k == nil {
		return nil, ErrNilKernel
	}
	if w == nil {
		return nil, ErrNilWindow
	}
	if axis := w.EmptyAxis(); axis != -1 {
		return nil, &EmptyRangeError{Window: w, Axis: axis}
	}

	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, &CancellationError{Cause: ctx.Err()}
	}
	defer func() { <-s.slot }()

	s.cfgMu.Lock()
	if s.closed {
		s.cfgMu.Unlock()
		return nil, ErrClosed
	}
	cfg := s.resolve(ctx, options)
	if err := cfg.validate(w); err != nil {
		s.cfgMu.Unlock()
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		s.cfgMu.Unlock()
		return nil, &CancellationError{Cause: err}
	}
	s.state = StateDispatching
	s.cfgMu.Unlock()

	defer func() {
		s.cfgMu.Lock()
		s.state = StateIdle
		s.cfgMu.Unlock()
	}()
	return s.dispatch(ctx, k, w, cfg)
}

func (s *Service) dispatch(ctx context.Context, k kernel.Kernel, w *window.Window, cfg settings) (aRun *run.Run, err error) {
	name := kernel.NameOf(k)
	var src source
	switch cfg.strategy {
	case strategy.Dynamic:
		src = newDynamicSource(w, cfg.splitAxis, cfg.workers, cfg.granularity)
	default:
		src = newStaticSource(w, cfg.splitAxis, cfg.workers)
	}

	aRun = run.New(name, w, cfg.strategy, cfg.splitAxis, cfg.workers)
	aRun.DataTypes = kernel.DataTypesOf(k)
	aRun.Timestamps = cfg.timestamps
	aRun.Planned = src.planned()

	ctx, span := tracing.StartSpan(ctx, "scheduler.Schedule "+name, "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{
		"run.id":       aRun.ID,
		"run.kernel":   name,
		"run.strategy": cfg.strategy.String(),
		"run.window":   w.String(),
	}).WithInt("run.workers", cfg.workers).WithInt("run.partitions", aRun.Planned)

	progress.UpdateCtx(ctx, progress.Delta{Total: aRun.Planned})

	var faultMu sync.Mutex
	var faults []*PartitionFault
	work := func(slot int) {
		for ctx.Err() == nil {
			partition, ok := src.next(slot)
			if !ok {
				return
			}
			if fault := s.execute(ctx, k, partition, slot, aRun, span, cfg.timestamps); fault != nil {
				faultMu.Lock()
				faults = append(faults, fault)
				faultMu.Unlock()
			}
		}
	}

	aRun.Start()
	if cfg.pool == nil || src.slots() == 1 {
		for slot := 0; slot < src.slots(); slot++ {
			work(slot)
		}
	} else {
		cfg.pool.run(src.slots(), work)
	}

	dispatched := len(aRun.Dispatched())
	switch {
	case len(faults) > 0:
		aRun.Finish(run.StatusFaulted)
		sort.Slice(faults, func(i, j int) bool { return faults[i].Partition.ID < faults[j].Partition.ID })
		err = newKernelError(aRun, faults)
	case dispatched < aRun.Planned || len(aRun.Interrupted()) > 0:
		aRun.Finish(run.StatusCancelled)
	default:
		aRun.Finish(run.StatusCompleted)
	}
	if skipped := aRun.Planned - dispatched; skipped > 0 {
		progress.UpdateCtx(ctx, progress.Delta{Skipped: skipped})
	}
	span.WithInt("run.dispatched", dispatched)

	s.logger.Debug("schedule finished",
		"run", aRun.ID, "kernel", name, "status", aRun.Status,
		"dispatched", dispatched, "planned", aRun.Planned, "elapsed", aRun.Elapsed())
	if err != nil {
		s.logger.Warn("kernel faulted", "run", aRun.ID, "kernel", name, "faults", len(faults), "error", err)
	}
	s.publish(ctx, aRun)
	return aRun, err
}

// execute runs one partition, converting a panic into a fault.
func (s *Service) execute(ctx context.Context, k kernel.Kernel, partition window.Partition, slot int, aRun *run.Run, span *tracing.Span, timestamps bool) (fault *PartitionFault) {
	record := &run.Record{Partition: partition, Worker: slot}
	progress.UpdateCtx(ctx, progress.Delta{Running: 1})
	started := clock.Now()
	defer func() {
		if r := recover(); r != nil {
			fault = &PartitionFault{Partition: partition, Worker: slot, Err: fmt.Errorf("kernel panic: %v", r)}
		}
		if timestamps {
			record.Start = started
			record.End = clock.Now()
			record.Duration = record.End.Sub(record.Start)
			span.AddEvent("partition", record.End, map[string]string{
				"partition.id":       fmt.Sprint(partition.ID),
				"partition.window":   partition.Window.String(),
				"partition.worker":   fmt.Sprint(slot),
				"partition.duration": record.Duration.String(),
			})
		}
		delta := progress.Delta{Running: -1, Completed: 1}
		switch {
		case fault != nil:
			record.Error = fault.Err.Error()
			delta = progress.Delta{Running: -1, Failed: 1}
		case record.Interrupted:
			delta = progress.Delta{Running: -1, Skipped: 1}
		}
		aRun.Append(record)
		progress.UpdateCtx(ctx, delta)
	}()
	if err := k.Execute(ctx, partition); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			record.Interrupted = true
			return nil
		}
		return &PartitionFault{Partition: partition, Worker: slot, Err: err}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, aRun *run.Run) {
	if s.publisher == nil {
		return
	}
	eventType := event.TypeRunCompleted
	switch aRun.Status {
	case run.StatusCancelled:
		eventType = event.TypeRunCancelled
	case run.StatusFaulted:
		eventType = event.TypeRunFaulted
	}
	snapshot := aRun.Clone()
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event.NewEvent(snapshot.Context(eventType), snapshot)); err != nil {
		s.logger.Error("failed to publish run event", "run", aRun.ID, "error", err)
	}
}
