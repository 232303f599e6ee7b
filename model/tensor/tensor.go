// Package tensor provides the dense buffers kernels read from and write to.
//
// Tensors are row-major: the last axis of Shape is contiguous in Data. Values
// are held as float32 regardless of DataType; integer types store whole
// numbers and U8 stores 0..255.
package tensor

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned when data does not fit the declared shape.
var ErrShapeMismatch = errors.New("tensor: shape mismatch")

// Tensor is a named dense buffer.
type Tensor struct {
	Name     string    `json:"name,omitempty" yaml:"name,omitempty"`
	Shape    []int     `json:"shape" yaml:"shape"`
	DataType DataType  `json:"dataType" yaml:"dataType"`
	Data     []float32 `json:"data,omitempty" yaml:"data,omitempty"`
}

// New allocates a zeroed tensor.
func New(name string, dataType DataType, shape ...int) *Tensor {
	return &Tensor{
		Name:     name,
		Shape:    append([]int(nil), shape...),
		DataType: dataType,
		Data:     make([]float32, Volume(shape)),
	}
}

// FromData wraps data with the given shape.
func FromData(name string, data []float32, shape ...int) (*Tensor, error) {
	if Volume(shape) != len(data) {
		return nil, fmt.Errorf("%w: %v holds %d elements, got %d", ErrShapeMismatch, shape, Volume(shape), len(data))
	}
	return &Tensor{Name: name, Shape: append([]int(nil), shape...), DataType: F32, Data: data}, nil
}

// Volume returns the number of elements of a shape.
func Volume(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	ret := 1
	for _, d := range shape {
		ret *= d
	}
	return ret
}

// Len returns number of elements.
func (t *Tensor) Len() int {
	return len(t.Data)
}

// Rank returns number of axes.
func (t *Tensor) Rank() int {
	return len(t.Shape)
}

// RowLen returns the size of the innermost axis.
func (t *Tensor) RowLen() int {
	if len(t.Shape) == 0 {
		return 0
	}
	return t.Shape[len(t.Shape)-1]
}

// Rows returns the number of innermost rows.
func (t *Tensor) Rows() int {
	if rowLen := t.RowLen(); rowLen > 0 {
		return t.Len() / rowLen
	}
	return 0
}

// Row returns the i-th innermost row sharing the underlying buffer.
func (t *Tensor) Row(i int) []float32 {
	rowLen := t.RowLen()
	return t.Data[i*rowLen : (i+1)*rowLen]
}

// Strides returns per axis element strides.
func (t *Tensor) Strides() []int {
	strides := make([]int, len(t.Shape))
	stride := 1
	for i := len(t.Shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= t.Shape[i]
	}
	return strides
}

// Offset converts coordinates into a flat index.
func (t *Tensor) Offset(coords ...int) int {
	offset := 0
	for i, s := range t.Strides() {
		offset += coords[i] * s
	}
	return offset
}

// SameShape reports whether both tensors have identical shapes.
func (t *Tensor) SameShape(other *Tensor) bool {
	if other == nil || len(t.Shape) != len(other.Shape) {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != other.Shape[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	if t == nil {
		return nil
	}
	ret := *t
	ret.Shape = append([]int(nil), t.Shape...)
	ret.Data = append([]float32(nil), t.Data...)
	return &ret
}

func (t *Tensor) String() string {
	return fmt.Sprintf("%s%v:%v", t.Name, t.Shape, t.DataType)
}
