package layer

import (
	"context"
	"math"

	"github.com/viant/workgrid/model/tensor"
	"github.com/viant/workgrid/model/window"
)

// Softmax normalizes every innermost row: exp(beta*(x-max)) / sum.
type Softmax struct {
	base
	beta float64
}

// NewSoftmax creates a softmax layer; params: beta (default 1).
func NewSoftmax(name string, params Params) (Layer, error) {
	beta, err := params.Float("beta", 1)
	if err != nil {
		return nil, err
	}
	return &Softmax{base: base{name: name}, beta: beta}, nil
}

func (l *Softmax) Kind() string { return KindSoftmax }

func (l *Softmax) Configure(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := expectInputs(KindSoftmax, inputs, 1); err != nil {
		return nil, err
	}
	in := inputs[0]
	out := tensor.New(l.name, tensor.F32, in.Shape...)
	w, err := rows(out)
	if err != nil {
		return nil, err
	}
	l.steps = nil
	l.add("softmax", func(ctx context.Context, p window.Partition) error {
		d := p.Window.Dim(0)
		for r := d.Start; r < d.End; r++ {
			softmaxRow(in.Row(r), out.Row(r), l.beta)
		}
		return nil
	}, w, []tensor.DataType{in.DataType})
	return []*tensor.Tensor{out}, nil
}

func softmaxRow(src, dst []float32, beta float64) {
	maxValue := math.Inf(-1)
	for _, v := range src {
		maxValue = math.Max(maxValue, float64(v))
	}
	sum := 0.0
	for i, v := range src {
		e := math.Exp(beta * (float64(v) - maxValue))
		dst[i] = float32(e)
		sum += e
	}
	for i := range dst {
		dst[i] = float32(float64(dst[i]) / sum)
	}
}
