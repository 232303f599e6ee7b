package layer

import (
	"fmt"

	"github.com/viant/workgrid/model/graph"
	"github.com/viant/workgrid/model/tensor"
)

// Split divides the input into equal parts along an axis; every output is
// produced by its own kernel.
type Split struct {
	base
	axis    int
	outputs int
}

// NewSplit creates a split layer; params: axis (default 0), outputs (default 2).
func NewSplit(name string, params Params) (Layer, error) {
	axis, err := params.Int("axis", 0)
	if err != nil {
		return nil, err
	}
	outputs, err := params.Int("outputs", 2)
	if err != nil {
		return nil, err
	}
	if outputs < 1 {
		return nil, fmt.Errorf("%v: outputs must be positive, got %d", KindSplit, outputs)
	}
	return &Split{base: base{name: name}, axis: axis, outputs: outputs}, nil
}

func (l *Split) Kind() string { return KindSplit }

func (l *Split) Configure(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := expectInputs(KindSplit, inputs, 1); err != nil {
		return nil, err
	}
	in := inputs[0]
	if l.axis < 0 || l.axis >= in.Rank() {
		return nil, fmt.Errorf("%v: axis %d out of range for rank %d", KindSplit, l.axis, in.Rank())
	}
	extent := in.Shape[l.axis]
	if extent%l.outputs != 0 {
		return nil, fmt.Errorf("%v: axis %d extent %d is not divisible into %d outputs", KindSplit, l.axis, extent, l.outputs)
	}
	size := extent / l.outputs
	shape := append([]int(nil), in.Shape...)
	shape[l.axis] = size

	l.steps = nil
	ret := make([]*tensor.Tensor, l.outputs)
	for i := range ret {
		out := tensor.New(graph.OutputName(l.name, i), in.DataType, shape...)
		offsets := make([]int, in.Rank())
		offsets[l.axis] = i * size
		w, err := rows(out)
		if err != nil {
			return nil, err
		}
		l.add(fmt.Sprintf("split%d", i), copyRegion(in, out, offsets), w, []tensor.DataType{in.DataType})
		ret[i] = out
	}
	return ret, nil
}
