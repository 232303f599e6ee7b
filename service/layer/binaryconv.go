package layer

import (
	"context"
	"fmt"
	"math/bits"

	"github.com/viant/workgrid/model/tensor"
	"github.com/viant/workgrid/model/window"
	"github.com/viant/workgrid/runtime/run"
	"github.com/viant/workgrid/service/scheduler"
)

// BinaryConvolution approximates a convolution of a [N, C, H, W] input with
// [O, C, KH, KW] weights by their signs:
//
//	out[n,o,y,x] = (matches - mismatches) * alpha[o] * K[n,y,x] + bias[o]
//
// where matches count equal sign bits under the kernel, alpha is the mean
// absolute weight of every filter and K averages beta, the per pixel mean
// absolute input, over the kernel. Taps falling into the zero padding are
// left out. Weights are binarized by the first Run only and are assumed not
// to change afterwards.
type BinaryConvolution struct {
	base
	stride   int
	pad      int
	weights  base
	prepared bool
}

// NewBinaryConvolution creates a binary convolution layer; params: stride
// (default 1), pad (default 0).
func NewBinaryConvolution(name string, params Params) (Layer, error) {
	stride, err := params.Int("stride", 1)
	if err != nil {
		return nil, err
	}
	pad, err := params.Int("pad", 0)
	if err != nil {
		return nil, err
	}
	if stride < 1 || pad < 0 {
		return nil, fmt.Errorf("%v: invalid stride %d or pad %d", KindBinaryConvolution, stride, pad)
	}
	return &BinaryConvolution{base: base{name: name}, stride: stride, pad: pad,
		weights: base{name: name + ".weights"}}, nil
}

func (l *BinaryConvolution) Kind() string { return KindBinaryConvolution }

func (l *BinaryConvolution) Configure(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(inputs) == 2 {
		inputs = append(inputs, nil)
	} else if len(inputs) != 3 {
		return nil, fmt.Errorf("%v: %w: expected 2 or 3, got %d", KindBinaryConvolution, ErrInputCount, len(inputs))
	}
	if err := expectInputs(KindBinaryConvolution, inputs[:2], 2); err != nil {
		return nil, err
	}
	in, weights, bias := inputs[0], inputs[1], inputs[2]
	if in.Rank() != 4 || weights.Rank() != 4 {
		return nil, fmt.Errorf("%v: expected rank 4 input and weights, got %v and %v", KindBinaryConvolution, in.Shape, weights.Shape)
	}
	batches, channels, height, width := in.Shape[0], in.Shape[1], in.Shape[2], in.Shape[3]
	filters, kernelH, kernelW := weights.Shape[0], weights.Shape[2], weights.Shape[3]
	if weights.Shape[1] != channels {
		return nil, fmt.Errorf("%v: %w: input has %d channels, weights %d", KindBinaryConvolution, tensor.ErrShapeMismatch, channels, weights.Shape[1])
	}
	if bias != nil && bias.Len() != filters {
		return nil, fmt.Errorf("%v: %w: %d biases for %d filters", KindBinaryConvolution, tensor.ErrShapeMismatch, bias.Len(), filters)
	}
	if height+2*l.pad < kernelH || width+2*l.pad < kernelW {
		return nil, fmt.Errorf("%v: kernel %dx%d exceeds padded input %dx%d", KindBinaryConvolution, kernelH, kernelW, height+2*l.pad, width+2*l.pad)
	}
	outH := (height+2*l.pad-kernelH)/l.stride + 1
	outW := (width+2*l.pad-kernelW)/l.stride + 1

	l.steps, l.weights.steps, l.prepared = nil, nil, false
	packedWeights, err := l.weights.binarize(l.name+".weights", weights, true, false)
	if err != nil {
		return nil, err
	}
	packedInput, err := l.binarize(l.name+".input", in, false, true)
	if err != nil {
		return nil, err
	}

	stride, pad := l.stride, l.pad
	norm := tensor.New(l.name+".k", tensor.F32, batches, outH, outW)
	out := tensor.New(l.name, tensor.F32, batches, filters, outH, outW)
	beta := packedInput.beta

	scale := 1 / float32(kernelH*kernelW)
	l.add("normalize", func(ctx context.Context, p window.Partition) error {
		p.Window.Each(func(coords []int) {
			n, y := coords[0], coords[1]
			for x := 0; x < outW; x++ {
				var sum float32
				for ky := 0; ky < kernelH; ky++ {
					iy := y*stride - pad + ky
					if iy < 0 || iy >= height {
						continue
					}
					for kx := 0; kx < kernelW; kx++ {
						if ix := x*stride - pad + kx; ix >= 0 && ix < width {
							sum += beta.Data[(n*height+iy)*width+ix]
						}
					}
				}
				norm.Data[(n*outH+y)*outW+x] = sum * scale
			}
		})
		return nil
	}, window.MustNew(window.Range(0, batches), window.Range(0, outH)),
		[]tensor.DataType{tensor.F32, tensor.F32}, scheduler.WithSplitAxis(window.DimY))

	alpha := packedWeights.alpha
	l.add("convolve", func(ctx context.Context, p window.Partition) error {
		p.Window.Each(func(coords []int) {
			n, o, y := coords[0], coords[1], coords[2]
			dst := out.Data[((n*filters+o)*outH+y)*outW : ((n*filters+o)*outH+y+1)*outW]
			for x := range dst {
				matches, taps := 0, 0
				for c := 0; c < channels; c++ {
					for ky := 0; ky < kernelH; ky++ {
						iy := y*stride - pad + ky
						if iy < 0 || iy >= height {
							continue
						}
						inRow := packedInput.packed.Row((n*channels+c)*height + iy)
						weightRow := packedWeights.packed.Row((o*channels+c)*kernelH + ky)
						m, t := xnorCount(inRow, weightRow, x*stride-pad, width, kernelW)
						matches += m
						taps += t
					}
				}
				value := float32(2*matches-taps) * alpha.Data[o] * norm.Data[(n*outH+y)*outW+x]
				if bias != nil {
					value += bias.Data[o]
				}
				dst[x] = value
			}
		})
		return nil
	}, window.MustNew(window.Range(0, batches), window.Range(0, filters), window.Range(0, outH)),
		[]tensor.DataType{tensor.U8, tensor.U8, tensor.F32}, scheduler.WithSplitAxis(window.DimY))
	return []*tensor.Tensor{out}, nil
}

// Run binarizes the weights on the first call, then the input, and convolves.
func (l *BinaryConvolution) Run(ctx context.Context, sched scheduler.Scheduler) ([]*run.Run, error) {
	if len(l.steps) == 0 {
		return nil, fmt.Errorf("%v: %w", l.name, ErrNotConfigured)
	}
	var runs []*run.Run
	if !l.prepared {
		prepared, err := l.weights.Run(ctx, sched)
		runs = append(runs, prepared...)
		if err != nil {
			return runs, err
		}
		l.prepared = true
	}
	perRun, err := l.base.Run(ctx, sched)
	return append(runs, perRun...), err
}

// xnorCount compares the kernelW weight signs of a packed row with the input
// signs starting at column from, 64 taps at a time; columns outside
// [0, width) are skipped.
func xnorCount(inRow, weightRow []float32, from, width, kernelW int) (matches, taps int) {
	for k := 0; k < kernelW; k += 64 {
		var in, weights, valid uint64
		for i := 0; i < min(64, kernelW-k); i++ {
			x := from + k + i
			if x < 0 || x >= width {
				continue
			}
			in |= signBit(inRow, x) << i
			weights |= signBit(weightRow, k+i) << i
			valid |= 1 << i
		}
		matches += bits.OnesCount64(^(in ^ weights) & valid)
		taps += bits.OnesCount64(valid)
	}
	return matches, taps
}

func signBit(row []float32, x int) uint64 {
	return uint64(uint8(row[x/8])>>(7-x%8)) & 1
}
