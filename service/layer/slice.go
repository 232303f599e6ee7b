package layer

import (
	"fmt"

	"github.com/viant/workgrid/model/tensor"
)

// Slice copies the [start, end) region of every axis.
type Slice struct {
	base
	starts []int
	ends   []int
}

// NewSlice creates a slice layer; params: starts, ends. Missing axes are kept
// whole and a negative end counts from the axis end.
func NewSlice(name string, params Params) (Layer, error) {
	starts, err := params.Ints("starts")
	if err != nil {
		return nil, err
	}
	ends, err := params.Ints("ends")
	if err != nil {
		return nil, err
	}
	return &Slice{base: base{name: name}, starts: starts, ends: ends}, nil
}

func (l *Slice) Kind() string { return KindSlice }

func (l *Slice) Configure(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := expectInputs(KindSlice, inputs, 1); err != nil {
		return nil, err
	}
	in := inputs[0]
	if len(l.starts) > in.Rank() || len(l.ends) > in.Rank() {
		return nil, fmt.Errorf("%v: %d starts and %d ends for rank %d", KindSlice, len(l.starts), len(l.ends), in.Rank())
	}
	offsets := make([]int, in.Rank())
	shape := make([]int, in.Rank())
	for axis, extent := range in.Shape {
		start, end := 0, extent
		if axis < len(l.starts) {
			start = l.starts[axis]
		}
		if axis < len(l.ends) {
			end = l.ends[axis]
			if end < 0 {
				end += extent
			}
		}
		if start < 0 || start >= end || end > extent {
			return nil, fmt.Errorf("%v: invalid range [%d,%d) on axis %d of extent %d", KindSlice, start, end, axis, extent)
		}
		offsets[axis] = start
		shape[axis] = end - start
	}
	out := tensor.New(l.name, in.DataType, shape...)
	w, err := rows(out)
	if err != nil {
		return nil, err
	}
	l.steps = nil
	l.add("slice", copyRegion(in, out, offsets), w, []tensor.DataType{in.DataType})
	return []*tensor.Tensor{out}, nil
}
