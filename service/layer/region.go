package layer

import (
	"context"

	"github.com/viant/workgrid/model/kernel"
	"github.com/viant/workgrid/model/tensor"
	"github.com/viant/workgrid/model/window"
)

// copyRegion returns a kernel over the rows of out copying the region of in
// that starts at offsets (one per axis).
func copyRegion(in, out *tensor.Tensor, offsets []int) kernel.Func {
	inStrides := in.Strides()
	rank := out.Rank()
	rowLen := out.RowLen()
	return func(ctx context.Context, p window.Partition) error {
		d := p.Window.Dim(0)
		for r := d.Start; r < d.End; r++ {
			src := offsets[rank-1]
			rest := r
			for axis := rank - 2; axis >= 0; axis-- {
				coord := rest % out.Shape[axis]
				rest /= out.Shape[axis]
				src += (coord + offsets[axis]) * inStrides[axis]
			}
			copy(out.Row(r), in.Data[src:src+rowLen])
		}
		return nil
	}
}
