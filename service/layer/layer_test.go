package layer

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/workgrid/model/strategy"
	"github.com/viant/workgrid/model/tensor"
	"github.com/viant/workgrid/runtime/run"
	"github.com/viant/workgrid/service/scheduler"
)

func newScheduler(t *testing.T, kind strategy.Kind) *scheduler.Service {
	t.Helper()
	config := scheduler.DefaultConfig()
	config.WorkerCount = 3
	config.Strategy = kind
	config.Granularity = 1
	srv, err := scheduler.New(scheduler.WithConfig(config))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func mustTensor(t *testing.T, name string, data []float32, shape ...int) *tensor.Tensor {
	t.Helper()
	ret, err := tensor.FromData(name, data, shape...)
	require.NoError(t, err)
	return ret
}

func configureAndRun(t *testing.T, sched scheduler.Scheduler, kind string, params Params, inputs ...*tensor.Tensor) ([]*tensor.Tensor, []*run.Run) {
	t.Helper()
	l, err := NewRegistry().New(kind, "layer", params)
	require.NoError(t, err)
	outputs, err := l.Configure(inputs)
	require.NoError(t, err)
	runs, err := l.Run(context.Background(), sched)
	require.NoError(t, err)
	return outputs, runs
}

func TestSub(t *testing.T) {
	for _, kind := range []strategy.Kind{strategy.Static, strategy.Dynamic} {
		t.Run(kind.String(), func(t *testing.T) {
			sched := newScheduler(t, kind)
			a := mustTensor(t, "a", []float32{5, 7, 9, 11, 13, 15}, 2, 3)
			b := mustTensor(t, "b", []float32{1, 2, 3, 4, 5, 6}, 2, 3)

			outputs, runs := configureAndRun(t, sched, "sub", nil, a, b)
			require.Len(t, outputs, 1)
			assert.Equal(t, []int{2, 3}, outputs[0].Shape)
			assert.Equal(t, []float32{4, 5, 6, 7, 8, 9}, outputs[0].Data)
			require.Len(t, runs, 1)
			assert.Equal(t, "layer.sub", runs[0].Kernel)
			assert.Equal(t, kind, runs[0].Strategy)
		})
	}
}

func TestSub_ConvertPolicy(t *testing.T) {
	sched := newScheduler(t, strategy.Static)
	a := &tensor.Tensor{Name: "a", Shape: []int{3}, DataType: tensor.U8, Data: []float32{1, 5, 200}}
	b := &tensor.Tensor{Name: "b", Shape: []int{3}, DataType: tensor.U8, Data: []float32{3, 2, 0}}

	outputs, _ := configureAndRun(t, sched, KindSub, nil, a, b)
	assert.Equal(t, []float32{0, 3, 200}, outputs[0].Data)

	outputs, _ = configureAndRun(t, sched, KindSub, Params{"policy": "wrap"}, a, b)
	assert.Equal(t, []float32{254, 3, 200}, outputs[0].Data)

	_, err := NewSub("bad", Params{"policy": "round"})
	assert.Error(t, err)

	l, err := NewSub("mismatch", nil)
	require.NoError(t, err)
	_, err = l.Configure([]*tensor.Tensor{a, mustTensor(t, "c", []float32{1, 2}, 2)})
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
	_, err = l.Configure([]*tensor.Tensor{a})
	assert.ErrorIs(t, err, ErrInputCount)
}

func TestActivation(t *testing.T) {
	sched := newScheduler(t, strategy.Dynamic)
	input := mustTensor(t, "x", []float32{0, 1, 4, 9}, 4)
	testCases := []struct {
		function string
		params   Params
		expect   []float64
	}{
		{function: "SQRT", expect: []float64{0, 1, 2, 3}},
		{function: "SQUARE", expect: []float64{0, 1, 16, 81}},
		{function: "SOFT_RELU", expect: []float64{math.Log(2), math.Log(1 + math.E), math.Log(1 + math.Exp(4)), math.Log(1 + math.Exp(9))}},
		{function: "LINEAR", params: Params{"a": 2, "b": 1}, expect: []float64{1, 3, 9, 19}},
		{function: "BOUNDED_RELU", params: Params{"a": 5}, expect: []float64{0, 1, 4, 5}},
	}
	for _, tc := range testCases {
		t.Run(tc.function, func(t *testing.T) {
			params := Params{"function": tc.function}
			for k, v := range tc.params {
				params[k] = v
			}
			outputs, _ := configureAndRun(t, sched, KindActivation, params, input)
			for i, expect := range tc.expect {
				assert.InDelta(t, expect, outputs[0].Data[i], 1e-5)
			}
		})
	}

	_, err := NewActivation("bad", Params{"function": "GELU"})
	assert.Error(t, err)
}

func TestSoftmax(t *testing.T) {
	sched := newScheduler(t, strategy.Static)
	input := mustTensor(t, "x", []float32{1, 2, 3, 1000, 1000, 1000, 0, 0, 0, -1, 0, 1}, 4, 3)

	outputs, runs := configureAndRun(t, sched, KindSoftmax, Params{"beta": 1.0}, input)
	out := outputs[0]
	for r := 0; r < out.Rows(); r++ {
		sum := 0.0
		for _, v := range out.Row(r) {
			sum += float64(v)
		}
		assert.InDelta(t, 1, sum, 1e-5, "row %d", r)
	}
	assert.InDelta(t, 1.0/3, out.Row(1)[0], 1e-6)
	e1, e2, e3 := math.Exp(-2), math.Exp(-1), 1.0
	assert.InDelta(t, e3/(e1+e2+e3), out.Row(0)[2], 1e-6)
	assert.Equal(t, 4, runs[0].Window.Size())

	outputs, _ = configureAndRun(t, sched, KindSoftmax, Params{"beta": 0.0}, input)
	assert.InDelta(t, 1.0/3, outputs[0].Row(3)[2], 1e-6)
}

func TestSlice(t *testing.T) {
	sched := newScheduler(t, strategy.Static)
	data := make([]float32, 24)
	for i := range data {
		data[i] = float32(i)
	}
	input := mustTensor(t, "x", data, 2, 3, 4)

	outputs, _ := configureAndRun(t, sched, KindSlice, Params{"starts": []interface{}{1, 1}, "ends": []interface{}{2, 3, -1}}, input)
	assert.Equal(t, []int{1, 2, 3}, outputs[0].Shape)
	assert.Equal(t, []float32{16, 17, 18, 20, 21, 22}, outputs[0].Data)

	l, err := NewSlice("bad", Params{"starts": []interface{}{2}, "ends": []interface{}{1}})
	require.NoError(t, err)
	_, err = l.Configure([]*tensor.Tensor{input})
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	sched := newScheduler(t, strategy.Dynamic)
	input := mustTensor(t, "x", []float32{0, 1, 2, 3, 4, 5, 6, 7}, 2, 4)

	outputs, runs := configureAndRun(t, sched, KindSplit, Params{"axis": 1, "outputs": 2}, input)
	require.Len(t, outputs, 2)
	require.Len(t, runs, 2)
	assert.Equal(t, "layer", outputs[0].Name)
	assert.Equal(t, "layer:1", outputs[1].Name)
	assert.Equal(t, []float32{0, 1, 4, 5}, outputs[0].Data)
	assert.Equal(t, []float32{2, 3, 6, 7}, outputs[1].Data)

	outputs, _ = configureAndRun(t, sched, KindSplit, Params{"axis": 0, "outputs": "2"}, input)
	assert.Equal(t, []float32{0, 1, 2, 3}, outputs[0].Data)
	assert.Equal(t, []float32{4, 5, 6, 7}, outputs[1].Data)

	l, err := NewSplit("bad", Params{"axis": 1, "outputs": 3})
	require.NoError(t, err)
	_, err = l.Configure([]*tensor.Tensor{input})
	assert.Error(t, err)
}

func TestBinarySign_Row(t *testing.T) {
	sched := newScheduler(t, strategy.Static)
	input := mustTensor(t, "x", []float32{1, -1, 2, 0, 3, -3, 4, 5, -1, 2}, 1, 1, 1, 10)

	outputs, runs := configureAndRun(t, sched, KindBinarySign, nil, input)
	require.Len(t, outputs, 3)
	assert.Equal(t, tensor.U8, outputs[0].DataType)
	assert.Equal(t, []int{1, 1, 1, 2}, outputs[0].Shape)
	assert.Equal(t, []float32{0b10101011, 0b01000000}, outputs[0].Data)
	assert.InDelta(t, 2.2, outputs[1].Data[0], 1e-6)
	assert.Equal(t, []int{1, 1, 1, 10}, outputs[2].Shape)
	assert.Equal(t, []float32{1, 1, 2, 0, 3, 3, 4, 5, 1, 2}, outputs[2].Data)
	require.Len(t, runs, 3)
	assert.Equal(t, 1, runs[0].SplitAxis)
	assert.Equal(t, "layer.beta", runs[2].Kernel)
}

func TestBinarySign_Beta(t *testing.T) {
	sched := newScheduler(t, strategy.Dynamic)
	input := mustTensor(t, "x", []float32{
		1, -2, 3,
		-4, 5, -6,

		-1, 0, 1,
		2, 1, 0,
	}, 1, 2, 2, 3)

	outputs, _ := configureAndRun(t, sched, KindBinarySign, nil, input)
	require.Len(t, outputs, 3)
	assert.Equal(t, []int{1, 1, 2, 3}, outputs[2].Shape)
	assert.Equal(t, []float32{1, 1, 2, 3, 3, 3}, outputs[2].Data)
}

// referenceBeta averages absolute values over the channel axis of every pixel.
func referenceBeta(src []float32, batches, channels, plane int) []float32 {
	beta := make([]float32, batches*plane)
	for batch := 0; batch < batches; batch++ {
		for i := 0; i < plane; i++ {
			for c := 0; c < channels; c++ {
				beta[batch*plane+i] += float32(math.Abs(float64(src[(batch*channels+c)*plane+i])))
			}
			beta[batch*plane+i] /= float32(channels)
		}
	}
	return beta
}

// referenceBinarySign packs signs and accumulates alpha in a single pass.
func referenceBinarySign(src []float32, batches, rowsPerBlock, width int) ([]float32, []float32) {
	var dst []float32
	alpha := make([]float32, batches)
	blockSize := rowsPerBlock * width
	for batch := 0; batch < batches; batch++ {
		for row := 0; row < rowsPerBlock; row++ {
			for col := 0; col < width; col += 8 {
				var out uint8
				for i := 0; i < min(width-col, 8); i++ {
					v := src[batch*blockSize+row*width+col+i]
					alpha[batch] += float32(math.Abs(float64(v)))
					if v > 0 {
						out |= 1 << (7 - i)
					}
				}
				dst = append(dst, float32(out))
			}
		}
		alpha[batch] /= float32(blockSize)
	}
	return dst, alpha
}

func TestBinarySign_Reference(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	shapes := [][]int{{2, 3, 4, 13}, {3, 2, 5, 8}, {1, 1, 3, 1}, {4, 17}}
	for _, kind := range []strategy.Kind{strategy.Static, strategy.Dynamic} {
		sched := newScheduler(t, kind)
		for _, shape := range shapes {
			data := make([]float32, tensor.Volume(shape))
			for i := range data {
				data[i] = rnd.Float32()*2 - 1
			}
			input := mustTensor(t, "x", data, shape...)
			outputs, _ := configureAndRun(t, sched, KindBinarySign, nil, input)

			batches, channels, rowsPerBlock := 1, 1, input.Rows()
			if len(shape) == 4 {
				batches, channels = shape[0], shape[1]
				rowsPerBlock = shape[1] * shape[2]
			}
			expectSigns, expectAlpha := referenceBinarySign(data, batches, rowsPerBlock, shape[len(shape)-1])
			assert.Equal(t, expectSigns, outputs[0].Data, "%v %v", kind, shape)
			require.Len(t, outputs[1].Data, batches)
			for i := range expectAlpha {
				assert.InDelta(t, expectAlpha[i], outputs[1].Data[i], 1e-5)
			}
			expectBeta := referenceBeta(data, batches, channels, len(data)/batches/channels)
			require.Len(t, outputs[2].Data, len(expectBeta))
			for i := range expectBeta {
				assert.InDelta(t, expectBeta[i], outputs[2].Data[i], 1e-5, "%v %v beta[%d]", kind, shape, i)
			}
		}
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	assert.Equal(t, []string{"Activation", "BinaryConvolution", "BinarySign", "Slice", "Softmax", "Split", "Sub"}, registry.Kinds())
	_, err := registry.New("Conv", "c", nil)
	assert.ErrorIs(t, err, ErrUnknownKind)

	l, err := registry.New("softmax", "s", nil)
	require.NoError(t, err)
	_, err = l.Run(context.Background(), newScheduler(t, strategy.Static))
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestParams(t *testing.T) {
	params := Params{"Axis": 2.0, "beta": "0.5", "starts": []interface{}{1, 2.0, "3"}}
	axis, err := params.Int("axis", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, axis)
	beta, err := params.Float("beta", 1)
	require.NoError(t, err)
	assert.Equal(t, 0.5, beta)
	starts, err := params.Ints("starts")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, starts)
	missing, err := params.Int("missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, missing)
	_, err = Params{"axis": 1.5}.Int("axis", 0)
	assert.Error(t, err)
	ends, err := Params{"ends": []int{4, -1}}.Ints("ends")
	require.NoError(t, err)
	assert.Equal(t, []int{4, -1}, ends)
	_, err = Params{"ends": 3}.Ints("ends")
	assert.Error(t, err)
	_, err = Params{"axis": "two"}.Int("axis", 0)
	assert.Error(t, err)
}
