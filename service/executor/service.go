package executor

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/viant/workgrid/hint"
	"github.com/viant/workgrid/model/graph"
	"github.com/viant/workgrid/model/tensor"
	"github.com/viant/workgrid/progress"
	"github.com/viant/workgrid/runtime/run"
	"github.com/viant/workgrid/service/layer"
	"github.com/viant/workgrid/service/scheduler"
	"github.com/viant/workgrid/tracing"
)

// NodeRun aggregates the schedule runs of one node.
type NodeRun struct {
	Node     *graph.Node
	Runs     []*run.Run
	Elapsed  time.Duration
	Prepared bool
	Err      error
}

// SchedulerTime returns the summed dispatch time of the node runs.
func (n *NodeRun) SchedulerTime() time.Duration {
	var ret time.Duration
	for _, aRun := range n.Runs {
		ret += aRun.Elapsed()
	}
	return ret
}

// Result describes one graph execution.
type Result struct {
	Graph    string
	Nodes    []*NodeRun
	Outputs  map[string]*tensor.Tensor
	Elapsed  time.Duration
	Progress progress.Snapshot
}

// Listener is invoked once a node completes, whether or not it failed.
type Listener func(nodeRun *NodeRun)

// LogListener logs every node completion.
func LogListener(logger *slog.Logger) Listener {
	return func(nodeRun *NodeRun) {
		attrs := []any{"node", nodeRun.Node.ID, "kind", nodeRun.Node.Kind,
			"runs", len(nodeRun.Runs), "elapsed", nodeRun.Elapsed, "scheduler", nodeRun.SchedulerTime()}
		if nodeRun.Err != nil {
			logger.Error("node failed", append(attrs, "error", nodeRun.Err)...)
			return
		}
		logger.Info("node completed", attrs...)
	}
}

// Option is used to customise the executor instance.
type Option func(*service)

// WithListener overrides the listener invoked after every node. Passing nil
// disables the callback.
func WithListener(l Listener) Option {
	return func(s *service) {
		s.listener = l
		s.listenerSet = true
	}
}

// WithRegistry sets the layer registry.
func WithRegistry(registry *layer.Registry) Option {
	return func(s *service) {
		s.registry = registry
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithProgress registers a callback receiving node level progress.
func WithProgress(fn func(progress.Snapshot)) Option {
	return func(s *service) {
		s.onProgress = fn
	}
}

// Service represents a graph executor.
type Service interface {
	// Compile configures every layer of g. Entries of inputs replace the
	// declared graph input data.
	Compile(ctx context.Context, g *graph.Graph, inputs map[string]*tensor.Tensor) (*Plan, error)
	// Run executes a compiled plan.
	Run(ctx context.Context, plan *Plan) (*Result, error)
	// Execute compiles and runs g.
	Execute(ctx context.Context, g *graph.Graph, inputs map[string]*tensor.Tensor) (*Result, error)
}

type service struct {
	scheduler   scheduler.Scheduler
	registry    *layer.Registry
	listener    Listener
	listenerSet bool
	logger      *slog.Logger
	onProgress  func(progress.Snapshot)
}

func (s *service) Compile(ctx context.Context, g *graph.Graph, inputs map[string]*tensor.Tensor) (*Plan, error) {
	if issues := g.Validate(); len(issues) > 0 {
		return nil, fmt.Errorf("%w %v: %w", ErrInvalidGraph, g.Name, multierror.Append(nil, issues...))
	}
	order, err := Order(g)
	if err != nil {
		return nil, err
	}
	plan := &Plan{
		Graph:    g,
		Order:    order,
		layers:   map[string]layer.Layer{},
		tensors:  map[string]*tensor.Tensor{},
		constant: map[string]bool{},
		prepared: map[string]bool{},
	}
	constantTensor := map[string]bool{}
	for _, input := range g.Inputs {
		t, ok := inputs[input.Name]
		if ok && t == nil {
			return nil, fmt.Errorf("input %s: %w: nil tensor", input.Name, ErrTensorNotFound)
		}
		if !ok {
			if t, err = input.Tensor(); err != nil {
				return nil, err
			}
		} else if !slices.Equal(t.Shape, input.Shape) {
			return nil, fmt.Errorf("input %s: %w: declared %v, got %v", input.Name, tensor.ErrShapeMismatch, input.Shape, t.Shape)
		}
		plan.tensors[input.Name] = t
		constantTensor[input.Name] = input.Constant
	}

	for _, node := range order {
		aLayer, err := s.registry.New(node.Kind, node.ID, layer.Params(node.Params))
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.ID, err)
		}
		nodeInputs := make([]*tensor.Tensor, len(node.Inputs))
		constant := len(node.Inputs) > 0
		for i, ref := range node.Inputs {
			t, ok := plan.tensors[ref]
			if !ok {
				return nil, fmt.Errorf("node %s: %w: %s", node.ID, ErrTensorNotFound, ref)
			}
			nodeInputs[i] = t
			constant = constant && constantTensor[ref]
		}
		outputs, err := aLayer.Configure(nodeInputs)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.ID, err)
		}
		for i, output := range outputs {
			name := graph.OutputName(node.ID, i)
			plan.tensors[name] = output
			constantTensor[name] = constant
		}
		plan.layers[node.ID] = aLayer
		plan.constant[node.ID] = constant
	}
	return plan, nil
}

func (s *service) Run(ctx context.Context, plan *Plan) (result *Result, err error) {
	plan.mux.Lock()
	defer plan.mux.Unlock()

	g := plan.Graph
	ctx, span := tracing.StartSpan(ctx, "executor.Run "+g.Name, "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"graph.name": g.Name}).WithInt("graph.nodes", len(plan.Order))

	_, tracker := progress.WithNewTracker(ctx, g.Name, s.onProgress)
	tracker.Update(progress.Delta{Total: len(plan.Order)})
	started := time.Now()
	result = &Result{Graph: g.Name}
	defer func() {
		result.Elapsed = time.Since(started)
		result.Progress = tracker.Snapshot()
	}()

	for i, node := range plan.Order {
		if ctxErr := ctx.Err(); ctxErr != nil {
			tracker.Update(progress.Delta{Skipped: len(plan.Order) - i})
			return result, fmt.Errorf("graph %s cancelled before node %s: %w", g.Name, node.ID, ctxErr)
		}
		if plan.constant[node.ID] && plan.prepared[node.ID] {
			result.Nodes = append(result.Nodes, &NodeRun{Node: node, Prepared: true})
			tracker.Update(progress.Delta{Skipped: 1})
			continue
		}
		nodeRun := s.runNode(ctx, plan, node, tracker)
		result.Nodes = append(result.Nodes, nodeRun)
		if s.listener != nil {
			s.listener(nodeRun)
		}
		if nodeRun.Err != nil {
			tracker.Update(progress.Delta{Skipped: len(plan.Order) - i - 1})
			return result, fmt.Errorf("node %s: %w", node.ID, nodeRun.Err)
		}
		if plan.constant[node.ID] {
			plan.prepared[node.ID] = true
		}
	}
	result.Outputs = plan.Outputs()
	return result, nil
}

func (s *service) runNode(ctx context.Context, plan *Plan, node *graph.Node, tracker *progress.Progress) (nodeRun *NodeRun) {
	nodeRun = &NodeRun{Node: node}
	ctx, span := tracing.StartSpan(ctx, "executor.Node "+node.ID, "INTERNAL")
	defer func() { tracing.EndSpan(span, nodeRun.Err) }()
	span.WithAttributes(map[string]string{"node.id": node.ID, "node.kind": node.Kind})

	h, err := hint.FromConfig(node.Hint)
	if err != nil {
		nodeRun.Err = err
		tracker.Update(progress.Delta{Failed: 1})
		return nodeRun
	}
	ctx = hint.WithHint(ctx, h)

	tracker.Update(progress.Delta{Running: 1})
	started := time.Now()
	nodeRun.Runs, nodeRun.Err = plan.layers[node.ID].Run(ctx, s.scheduler)
	nodeRun.Elapsed = time.Since(started)
	span.WithInt("node.runs", len(nodeRun.Runs))
	if nodeRun.Err != nil {
		tracker.Update(progress.Delta{Running: -1, Failed: 1})
		return nodeRun
	}
	tracker.Update(progress.Delta{Running: -1, Completed: 1})
	return nodeRun
}

func (s *service) Execute(ctx context.Context, g *graph.Graph, inputs map[string]*tensor.Tensor) (*Result, error) {
	plan, err := s.Compile(ctx, g, inputs)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, plan)
}

// New creates a graph executor.
func New(sched scheduler.Scheduler, opts ...Option) (Service, error) {
	if sched == nil {
		return nil, ErrSchedulerRequired
	}
	s := &service{scheduler: sched}
	for _, o := range opts {
		o(s)
	}
	if s.registry == nil {
		s.registry = layer.NewRegistry()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if !s.listenerSet {
		s.listener = LogListener(s.logger)
	}
	return s, nil
}
