package layer

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/viant/workgrid/model/tensor"
	"github.com/viant/workgrid/model/window"
)

// ConvertPolicy controls integer overflow of arithmetic layers.
type ConvertPolicy string

const (
	PolicySaturate ConvertPolicy = "SATURATE"
	PolicyWrap     ConvertPolicy = "WRAP"
)

// Sub computes a - b element wise.
type Sub struct {
	base
	policy ConvertPolicy
}

// NewSub creates a subtraction layer; params: policy (SATURATE or WRAP).
func NewSub(name string, params Params) (Layer, error) {
	policy := ConvertPolicy(strings.ToUpper(params.String("policy", string(PolicySaturate))))
	if policy != PolicySaturate && policy != PolicyWrap {
		return nil, fmt.Errorf("%v: unsupported convert policy %v", KindSub, policy)
	}
	return &Sub{base: base{name: name}, policy: policy}, nil
}

func (l *Sub) Kind() string { return KindSub }

func (l *Sub) Configure(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := expectInputs(KindSub, inputs, 2); err != nil {
		return nil, err
	}
	a, b := inputs[0], inputs[1]
	if !a.SameShape(b) {
		return nil, fmt.Errorf("%v: %w: %v vs %v", KindSub, tensor.ErrShapeMismatch, a.Shape, b.Shape)
	}
	out := tensor.New(l.name, a.DataType, a.Shape...)
	w, err := flat(out)
	if err != nil {
		return nil, err
	}
	convert := converter(a.DataType, l.policy)
	l.steps = nil
	l.add("sub", func(ctx context.Context, p window.Partition) error {
		d := p.Window.Dim(0)
		for i := d.Start; i < d.End; i++ {
			out.Data[i] = convert(a.Data[i] - b.Data[i])
		}
		return nil
	}, w, []tensor.DataType{a.DataType, b.DataType})
	return []*tensor.Tensor{out}, nil
}

// converter returns the function fitting a value into an integer type.
func converter(dataType tensor.DataType, policy ConvertPolicy) func(float32) float32 {
	lo, hi, ok := dataType.Bounds()
	if !ok || dataType.Size() > 2 {
		return func(v float32) float32 { return v }
	}
	if policy == PolicyWrap {
		span := hi - lo + 1
		return func(v float32) float32 {
			wrapped := math.Mod(float64(v)-lo, span)
			if wrapped < 0 {
				wrapped += span
			}
			return float32(wrapped + lo)
		}
	}
	return func(v float32) float32 {
		return float32(math.Max(lo, math.Min(hi, float64(v))))
	}
}
