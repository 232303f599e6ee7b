package layer

import (
	"context"
	"fmt"
	"math"

	"github.com/viant/workgrid/model/tensor"
	"github.com/viant/workgrid/model/window"
	"github.com/viant/workgrid/service/scheduler"
)

// BinarySign binarizes a [..., C, H, W] tensor: every 8 consecutive values of
// a row become one byte, most significant bit first, a bit is set for
// positive values. It also produces alpha, the mean absolute value of every
// batch, and beta, the mean absolute value over channels of every pixel
// shaped [..., 1, H, W].
type BinarySign struct {
	base
}

// NewBinarySign creates a binary sign layer.
func NewBinarySign(name string, _ Params) (Layer, error) {
	return &BinarySign{base: base{name: name}}, nil
}

func (l *BinarySign) Kind() string { return KindBinarySign }

// PackedWidth returns the number of bytes holding width signs.
func PackedWidth(width int) int {
	return (width + 7) / 8
}

func (l *BinarySign) Configure(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := expectInputs(KindBinarySign, inputs, 1); err != nil {
		return nil, err
	}
	l.steps = nil
	binarized, err := l.binarize(l.name, inputs[0], true, true)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{binarized.packed, binarized.alpha, binarized.beta}, nil
}

// signs holds the outputs of a binarization, alpha and beta are nil unless
// requested.
type signs struct {
	packed   *tensor.Tensor
	alpha    *tensor.Tensor
	beta     *tensor.Tensor
	batches  int
	channels int
}

// binarize adds the sign kernels of in to b; outputs are named prefix,
// prefix:1 and prefix:2.
func (b *base) binarize(prefix string, in *tensor.Tensor, withAlpha, withBeta bool) (*signs, error) {
	if in.Len() == 0 {
		return nil, fmt.Errorf("%v: empty input %v", KindBinarySign, in.Shape)
	}
	rank := in.Rank()
	width := in.RowLen()
	// axes below the last three are batches, the next two form a block of rows
	ret := &signs{batches: 1, channels: 1}
	for _, extent := range in.Shape[:max(0, rank-3)] {
		ret.batches *= extent
	}
	if rank >= 3 {
		ret.channels = in.Shape[rank-3]
	}
	rowsPerBlock := in.Rows() / ret.batches
	blockSize := rowsPerBlock * width

	shape := append([]int(nil), in.Shape...)
	shape[rank-1] = PackedWidth(width)
	ret.packed = tensor.New(prefix, tensor.U8, shape...)
	signWindow := window.MustNew(window.Range(0, ret.batches), window.Range(0, rowsPerBlock))
	b.add("sign", func(ctx context.Context, p window.Partition) error {
		p.Window.Each(func(coords []int) {
			row := coords[0]*rowsPerBlock + coords[1]
			packRow(in.Row(row), ret.packed.Row(row))
		})
		return nil
	}, signWindow, []tensor.DataType{in.DataType, tensor.U8}, scheduler.WithSplitAxis(window.DimY))

	if withAlpha {
		ret.alpha = tensor.New(prefix+":1", tensor.F32, ret.batches)
		b.add("alpha", func(ctx context.Context, p window.Partition) error {
			d := p.Window.Dim(0)
			for batch := d.Start; batch < d.End; batch++ {
				sum := 0.0
				for _, v := range in.Data[batch*blockSize : (batch+1)*blockSize] {
					sum += math.Abs(float64(v))
				}
				ret.alpha.Data[batch] = float32(sum / float64(blockSize))
			}
			return nil
		}, window.MustNew(window.Range(0, ret.batches)), []tensor.DataType{in.DataType, tensor.F32})
	}

	if withBeta {
		betaShape := append([]int(nil), in.Shape...)
		if rank >= 3 {
			betaShape[rank-3] = 1
		}
		ret.beta = tensor.New(prefix+":2", tensor.F32, betaShape...)
		planeRows := rowsPerBlock / ret.channels
		planeSize := planeRows * width
		channels := ret.channels
		betaWindow := window.MustNew(window.Range(0, ret.batches), window.Range(0, planeRows))
		b.add("beta", func(ctx context.Context, p window.Partition) error {
			p.Window.Each(func(coords []int) {
				batch, y := coords[0], coords[1]
				dst := ret.beta.Data[batch*planeSize+y*width : batch*planeSize+(y+1)*width]
				for x := range dst {
					sum := 0.0
					for c := 0; c < channels; c++ {
						sum += math.Abs(float64(in.Data[batch*blockSize+c*planeSize+y*width+x]))
					}
					dst[x] = float32(sum / float64(channels))
				}
			})
			return nil
		}, betaWindow, []tensor.DataType{in.DataType, tensor.F32}, scheduler.WithSplitAxis(window.DimY))
	}
	return ret, nil
}

func packRow(src, dst []float32) {
	for col := 0; col < len(src); col += 8 {
		var packed uint8
		for i, v := range src[col:min(col+8, len(src))] {
			if v > 0 {
				packed |= 1 << (7 - i)
			}
		}
		dst[col/8] = float32(packed)
	}
}
