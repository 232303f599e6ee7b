package layer

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/viant/workgrid/model/tensor"
	"github.com/viant/workgrid/model/window"
)

// Function is an activation function name.
type Function string

const (
	FunctionSqrt        Function = "SQRT"
	FunctionSquare      Function = "SQUARE"
	FunctionSoftRelu    Function = "SOFT_RELU"
	FunctionRelu        Function = "RELU"
	FunctionBoundedRelu Function = "BOUNDED_RELU"
	FunctionLeakyRelu   Function = "LEAKY_RELU"
	FunctionLogistic    Function = "LOGISTIC"
	FunctionTanh        Function = "TANH"
	FunctionAbs         Function = "ABS"
	FunctionLinear      Function = "LINEAR"
)

// activationFunc builds the scalar function; a and b are the optional
// function parameters.
func activationFunc(fn Function, a, b float64) (func(float64) float64, error) {
	switch fn {
	case FunctionSqrt:
		return math.Sqrt, nil
	case FunctionSquare:
		return func(x float64) float64 { return x * x }, nil
	case FunctionSoftRelu:
		return func(x float64) float64 { return math.Log1p(math.Exp(x)) }, nil
	case FunctionRelu:
		return func(x float64) float64 { return math.Max(0, x) }, nil
	case FunctionBoundedRelu:
		return func(x float64) float64 { return math.Min(a, math.Max(0, x)) }, nil
	case FunctionLeakyRelu:
		return func(x float64) float64 {
			if x > 0 {
				return x
			}
			return a * x
		}, nil
	case FunctionLogistic:
		return func(x float64) float64 { return 1 / (1 + math.Exp(-x)) }, nil
	case FunctionTanh:
		return func(x float64) float64 { return a * math.Tanh(b*x) }, nil
	case FunctionAbs:
		return math.Abs, nil
	case FunctionLinear:
		return func(x float64) float64 { return a*x + b }, nil
	}
	return nil, fmt.Errorf("%v: unsupported function %q", KindActivation, fn)
}

// Activation applies a scalar function element wise.
type Activation struct {
	base
	function Function
	fn       func(float64) float64
}

// NewActivation creates an activation layer; params: function, a, b.
func NewActivation(name string, params Params) (Layer, error) {
	function := Function(strings.ToUpper(params.String("function", "")))
	defA, defB := 1.0, 1.0
	switch function {
	case FunctionLeakyRelu:
		defA = 0.01
	case FunctionBoundedRelu:
		defA = 6
	case FunctionLinear:
		defB = 0
	}
	a, err := params.Float("a", defA)
	if err != nil {
		return nil, err
	}
	b, err := params.Float("b", defB)
	if err != nil {
		return nil, err
	}
	fn, err := activationFunc(function, a, b)
	if err != nil {
		return nil, err
	}
	return &Activation{base: base{name: name}, function: function, fn: fn}, nil
}

func (l *Activation) Kind() string { return KindActivation }

func (l *Activation) Configure(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := expectInputs(KindActivation, inputs, 1); err != nil {
		return nil, err
	}
	in := inputs[0]
	out := tensor.New(l.name, in.DataType, in.Shape...)
	w, err := flat(out)
	if err != nil {
		return nil, err
	}
	l.steps = nil
	l.add(strings.ToLower(string(l.function)), func(ctx context.Context, p window.Partition) error {
		d := p.Window.Dim(0)
		for i := d.Start; i < d.End; i++ {
			out.Data[i] = float32(l.fn(float64(in.Data[i])))
		}
		return nil
	}, w, []tensor.DataType{in.DataType})
	return []*tensor.Tensor{out}, nil
}
