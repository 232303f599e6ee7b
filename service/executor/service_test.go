package executor

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/workgrid/hint"
	"github.com/viant/workgrid/model/graph"
	"github.com/viant/workgrid/model/strategy"
	"github.com/viant/workgrid/model/tensor"
	"github.com/viant/workgrid/progress"
	"github.com/viant/workgrid/runtime/run"
	"github.com/viant/workgrid/service/layer"
	"github.com/viant/workgrid/service/scheduler"
)

func newScheduler(t *testing.T) *scheduler.Service {
	t.Helper()
	srv, err := scheduler.New(scheduler.WithWorkers(3))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func normalizeGraph() *graph.Graph {
	return &graph.Graph{
		Name: "normalize",
		Inputs: []*graph.Input{
			{Name: "x", Shape: []int{2, 3}, Data: []float32{1, 2, 3, 4, 5, 6}},
			{Name: "bias", Shape: []int{2, 3}, Value: 1, Constant: true},
		},
		Nodes: []*graph.Node{
			{ID: "centered", Kind: "Sub", Inputs: []string{"x", "bias"}},
			{ID: "squared", Kind: "Activation", Inputs: []string{"centered"}, Params: map[string]interface{}{"function": "SQUARE"}},
			{ID: "probs", Kind: "Softmax", Inputs: []string{"squared"}},
		},
	}
}

func TestOrder(t *testing.T) {
	g := &graph.Graph{Nodes: []*graph.Node{
		{ID: "c", Kind: "Sub", Inputs: []string{"a", "a"}},
		{ID: "a", Kind: "Sub"},
		{ID: "b", Kind: "Sub", Inputs: []string{"a"}},
		{ID: "d", Kind: "Sub", Inputs: []string{"b", "c"}},
	}}
	order, err := Order(g)
	require.NoError(t, err)
	var ids []string
	for _, node := range order {
		ids = append(ids, node.ID)
	}
	assert.Equal(t, []string{"a", "c", "b", "d"}, ids)

	g.Nodes[1].Inputs = []string{"d"}
	_, err = Order(g)
	assert.ErrorIs(t, err, ErrInvalidGraph)
}

func TestService_Execute(t *testing.T) {
	var mux sync.Mutex
	var completed []string
	var snapshots []progress.Snapshot
	srv, err := New(newScheduler(t),
		WithListener(func(nodeRun *NodeRun) {
			mux.Lock()
			completed = append(completed, nodeRun.Node.ID)
			mux.Unlock()
		}),
		WithProgress(func(snapshot progress.Snapshot) {
			snapshots = append(snapshots, snapshot)
		}))
	require.NoError(t, err)

	result, err := srv.Execute(context.Background(), normalizeGraph(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"centered", "squared", "probs"}, completed)
	require.Len(t, result.Nodes, 3)
	for _, nodeRun := range result.Nodes {
		require.Len(t, nodeRun.Runs, 1)
		assert.Equal(t, run.StatusCompleted, nodeRun.Runs[0].Status)
		assert.GreaterOrEqual(t, nodeRun.Elapsed, nodeRun.SchedulerTime())
	}

	probs, ok := result.Outputs["probs"]
	require.True(t, ok)
	require.Len(t, result.Outputs, 1)
	// row 0 squared: 0, 1, 4
	sum := 1 + math.Exp(1) + math.Exp(4)
	assert.InDelta(t, math.Exp(4)/sum, probs.Row(0)[2], 1e-6)
	assert.True(t, result.Progress.Done())
	assert.Equal(t, 3, result.Progress.Completed)
	assert.NotEmpty(t, snapshots)
}

func TestService_Run_PreparesConstantNodesOnce(t *testing.T) {
	srv, err := New(newScheduler(t), WithListener(nil))
	require.NoError(t, err)
	g := &graph.Graph{
		Name: "binary",
		Inputs: []*graph.Input{
			{Name: "x", Shape: []int{1, 1, 2, 8}},
			{Name: "weights", Shape: []int{1, 1, 2, 8}, Data: []float32{
				1, -1, 1, -1, 1, -1, 1, -1,
				-1, -1, -1, -1, 1, 1, 1, 1,
			}, Constant: true},
		},
		Nodes: []*graph.Node{
			{ID: "packed", Kind: "BinarySign", Inputs: []string{"weights"}},
			{ID: "diff", Kind: "Sub", Inputs: []string{"x", "weights"}},
		},
	}
	plan, err := srv.Compile(context.Background(), g, nil)
	require.NoError(t, err)
	assert.True(t, plan.Constant("packed"))
	assert.False(t, plan.Constant("diff"))

	first, err := srv.Run(context.Background(), plan)
	require.NoError(t, err)
	assert.False(t, first.Nodes[0].Prepared)
	assert.Len(t, first.Nodes[0].Runs, 3)

	require.NoError(t, plan.SetInput("x", make([]float32, 16)))
	assert.Error(t, plan.SetInput("weights", make([]float32, 16)))
	second, err := srv.Run(context.Background(), plan)
	require.NoError(t, err)
	assert.True(t, second.Nodes[0].Prepared)
	assert.Empty(t, second.Nodes[0].Runs)
	assert.Equal(t, 1, second.Progress.Skipped)

	packed, err := plan.Tensor("packed")
	require.NoError(t, err)
	assert.Equal(t, []float32{0b10101010, 0b00001111}, packed.Data)
	alpha, err := plan.Tensor("packed:1")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, alpha.Data)
	assert.Len(t, second.Outputs, 4)
}

func TestService_Run_BinaryConvolution(t *testing.T) {
	srv, err := New(newScheduler(t), WithListener(nil))
	require.NoError(t, err)
	g := &graph.Graph{
		Name: "xnor",
		Inputs: []*graph.Input{
			{Name: "x", Shape: []int{1, 1, 2, 2}, Data: []float32{1, -1, 2, -2}},
			{Name: "weights", Shape: []int{1, 1, 2, 2}, Data: []float32{1, -1, 1, -1}, Constant: true},
			{Name: "bias", Shape: []int{1}, Value: 0.25, Constant: true},
		},
		Nodes: []*graph.Node{
			{ID: "scaled", Kind: "Activation", Inputs: []string{"weights"}, Params: map[string]interface{}{"function": "LINEAR", "a": 0.5}},
			{ID: "conv", Kind: "BinaryConvolution", Inputs: []string{"x", "scaled", "bias"}},
		},
		Outputs: []string{"conv"},
	}
	plan, err := srv.Compile(context.Background(), g, nil)
	require.NoError(t, err)
	assert.True(t, plan.Constant("scaled"))
	assert.False(t, plan.Constant("conv"))

	first, err := srv.Run(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, first.Nodes, 2)
	assert.Len(t, first.Nodes[1].Runs, 6)
	assert.InDelta(t, 3.25, first.Outputs["conv"].Data[0], 1e-6)

	require.NoError(t, plan.SetInput("x", []float32{-1, -1, -2, -2}))
	second, err := srv.Run(context.Background(), plan)
	require.NoError(t, err)
	assert.True(t, second.Nodes[0].Prepared)
	assert.Len(t, second.Nodes[1].Runs, 4)
	// two matching signs out of four leave only the bias
	assert.InDelta(t, 0.25, second.Outputs["conv"].Data[0], 1e-6)
}

type failingLayer struct{}

func (f *failingLayer) Kind() string { return "Fail" }

func (f *failingLayer) Configure(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	return []*tensor.Tensor{inputs[0].Clone()}, nil
}

func (f *failingLayer) Run(ctx context.Context, sched scheduler.Scheduler) ([]*run.Run, error) {
	return nil, errors.New("device lost")
}

func TestService_Run_FailFast(t *testing.T) {
	registry := layer.NewRegistry()
	registry.Register("Fail", func(name string, params layer.Params) (layer.Layer, error) {
		return &failingLayer{}, nil
	})
	srv, err := New(newScheduler(t), WithRegistry(registry), WithListener(nil))
	require.NoError(t, err)
	g := normalizeGraph()
	g.Nodes[1].Kind = "Fail"

	result, err := srv.Execute(context.Background(), g, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node squared: device lost")
	require.Len(t, result.Nodes, 2)
	assert.Equal(t, 1, result.Progress.Completed)
	assert.Equal(t, 1, result.Progress.Failed)
	assert.Equal(t, 1, result.Progress.Skipped)
	assert.Nil(t, result.Outputs)
}

func TestService_Run_Cancelled(t *testing.T) {
	srv, err := New(newScheduler(t), WithListener(nil))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := srv.Execute(ctx, normalizeGraph(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.Nodes)
	assert.Equal(t, 3, result.Progress.Skipped)
}

func TestService_Run_NodeHint(t *testing.T) {
	srv, err := New(newScheduler(t), WithListener(nil))
	require.NoError(t, err)
	g := normalizeGraph()
	g.Nodes[1].Hint = &hint.Config{Strategy: "dynamic"}

	result, err := srv.Execute(context.Background(), g, nil)
	require.NoError(t, err)
	assert.Equal(t, strategy.Static, result.Nodes[0].Runs[0].Strategy)
	assert.Equal(t, strategy.Dynamic, result.Nodes[1].Runs[0].Strategy)
}

func TestService_Compile(t *testing.T) {
	srv, err := New(newScheduler(t), WithListener(nil))
	require.NoError(t, err)

	override, err := tensor.FromData("x", []float32{2, 2, 2, 2, 2, 2}, 2, 3)
	require.NoError(t, err)
	result, err := srv.Execute(context.Background(), normalizeGraph(), map[string]*tensor.Tensor{"x": override})
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3, result.Outputs["probs"].Data[0], 1e-6)

	wrong, err := tensor.FromData("x", []float32{1, 2}, 2)
	require.NoError(t, err)
	_, err = srv.Compile(context.Background(), normalizeGraph(), map[string]*tensor.Tensor{"x": wrong})
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	_, err = srv.Compile(context.Background(), normalizeGraph(), map[string]*tensor.Tensor{"x": nil})
	assert.ErrorIs(t, err, ErrTensorNotFound)

	g := normalizeGraph()
	g.Nodes[0].Inputs = []string{"x", "nope"}
	_, err = srv.Compile(context.Background(), g, nil)
	assert.ErrorIs(t, err, ErrInvalidGraph)

	_, err = New(nil)
	assert.ErrorIs(t, err, ErrSchedulerRequired)
}
