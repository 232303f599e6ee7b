package workgrid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"

	"github.com/viant/workgrid/model/graph"
	"github.com/viant/workgrid/runtime/run"
	"github.com/viant/workgrid/service/dao"
	graphdao "github.com/viant/workgrid/service/dao/graph"
	fsrun "github.com/viant/workgrid/service/dao/run/fs"
	memrun "github.com/viant/workgrid/service/dao/run/memory"
	"github.com/viant/workgrid/service/event"
	"github.com/viant/workgrid/service/executor"
	"github.com/viant/workgrid/service/harness"
	"github.com/viant/workgrid/service/layer"
	"github.com/viant/workgrid/service/messaging"
	mmemory "github.com/viant/workgrid/service/messaging/memory"
	"github.com/viant/workgrid/service/meta"
	"github.com/viant/workgrid/service/scheduler"
	"github.com/viant/workgrid/tracing"
)

// Service wires the scheduler with the graph executor, the test harness and
// the run archive.
type Service struct {
	config          *Config
	logger          *slog.Logger
	metaService     *meta.Service
	graphDAO        *graphdao.Service
	scheduler       *scheduler.Service
	executor        executor.Service
	harness         *harness.Runner
	runs            dao.Service[string, run.Run]
	queue           messaging.Queue[event.Event[*run.Run]]
	listener        *event.Listener[*run.Run]
	registry        *layer.Registry
	executorOptions []executor.Option
	metaBaseURL     string
	metaFsOptions   []storage.Option
	initErr         error
}

// New creates a service with DefaultConfig.
func New(options ...Option) (*Service, error) {
	return NewFromConfig(DefaultConfig(), options...)
}

// NewFromConfig creates a service from config; options override the
// configured components.
func NewFromConfig(config *Config, options ...Option) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	s := &Service{config: config}
	for _, option := range options {
		option(s)
	}
	if s.initErr != nil {
		return nil, s.initErr
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) init() (err error) {
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.config.Tracing.Enabled {
		if err = tracing.Init(s.config.Tracing.ServiceName, s.config.Tracing.ServiceVersion, s.config.Tracing.OutputFile); err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
	}
	s.metaService = meta.New(afs.New(), s.metaBaseURL, s.metaFsOptions...)
	s.graphDAO = graphdao.New(graphdao.WithMetaService(s.metaService))
	if s.runs == nil {
		if s.runs, err = s.newRunStore(); err != nil {
			return err
		}
	}
	if s.queue == nil {
		s.queue = mmemory.NewQueue[event.Event[*run.Run]](mmemory.DefaultConfig())
	}
	publisher := event.NewPublisher[*run.Run](s.queue)
	if s.scheduler, err = scheduler.New(
		scheduler.WithConfig(s.config.Scheduler),
		scheduler.WithLogger(s.logger),
		scheduler.WithPublisher(publisher)); err != nil {
		return err
	}
	executorOptions := []executor.Option{executor.WithLogger(s.logger)}
	if s.registry != nil {
		executorOptions = append(executorOptions, executor.WithRegistry(s.registry))
	}
	if s.executor, err = executor.New(s.scheduler, append(executorOptions, s.executorOptions...)...); err != nil {
		return err
	}
	instruments, _ := s.config.Harness.instruments()
	scale, _ := harness.ParseScaleFactor(s.config.Harness.Scale)
	if s.harness, err = harness.New(s.scheduler,
		harness.WithInstruments(instruments...),
		harness.WithScale(scale),
		harness.WithLogger(s.logger)); err != nil {
		return err
	}
	s.listener = event.NewListener[*run.Run](publisher, s.archive, s.logger)
	s.listener.Start(context.Background())
	return nil
}

func (s *Service) newRunStore() (dao.Service[string, run.Run], error) {
	if s.config.Store.Kind == StoreFS {
		store, err := fsrun.New(context.Background(), s.config.Store.BaseURL, fsrun.WithLogger(s.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create run store: %w", err)
		}
		return store, nil
	}
	return memrun.New(), nil
}

func (s *Service) archive(ctx context.Context, e *event.Event[*run.Run]) error {
	if e.Data == nil {
		return errors.New("run event without run")
	}
	return s.runs.Save(context.WithoutCancel(ctx), e.Data)
}

// Config returns the service configuration.
func (s *Service) Config() *Config {
	return s.config
}

// Scheduler returns the shared scheduler.
func (s *Service) Scheduler() *scheduler.Service {
	return s.scheduler
}

// Executor returns the graph executor.
func (s *Service) Executor() executor.Service {
	return s.executor
}

// Harness returns the test runner.
func (s *Service) Harness() *harness.Runner {
	return s.harness
}

// Runs returns the run archive.
func (s *Service) Runs() dao.Service[string, run.Run] {
	return s.runs
}

// LoadGraph loads and validates a graph definition.
func (s *Service) LoadGraph(ctx context.Context, URL string) (*graph.Graph, error) {
	return s.graphDAO.Load(ctx, URL)
}

type drainable interface {
	Size() int
	Drain()
}

// Shutdown closes the scheduler, waits until published runs are archived and
// flushes tracing.
func (s *Service) Shutdown(ctx context.Context) error {
	err := s.scheduler.Close()
	if queue, ok := s.queue.(drainable); ok {
		queue.Drain()
		for queue.Size() > 0 && ctx.Err() == nil {
			time.Sleep(5 * time.Millisecond)
		}
	}
	s.listener.Stop()
	if dlq, ok := s.queue.(interface{ DLQSize() int }); ok && dlq.DLQSize() > 0 {
		s.logger.Warn("runs were not archived", "count", dlq.DLQSize())
	}
	if tErr := tracing.Shutdown(ctx); tErr != nil && err == nil {
		err = tErr
	}
	return err
}
