package window

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Axis indexes commonly used when splitting a window.
const (
	DimX = 0
	DimY = 1
	DimZ = 2
)

var (
	// ErrNoDimensions is returned when a window is built without any axis.
	ErrNoDimensions = errors.New("window: at least one dimension is required")
	// ErrInvalidDimension is returned when an axis has start > end.
	ErrInvalidDimension = errors.New("window: dimension start exceeds end")
	// ErrAxisOutOfRange is returned when an axis index is not part of the window.
	ErrAxisOutOfRange = errors.New("window: axis out of range")
)

// Dimension represents a half open [Start, End) extent on one axis.
type Dimension struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Range returns the [start, end) dimension.
func Range(start, end int) Dimension {
	return Dimension{Start: start, End: end}
}

// Len returns number of units covered by the dimension.
func (d Dimension) Len() int {
	if d.End < d.Start {
		return 0
	}
	return d.End - d.Start
}

func (d Dimension) String() string {
	return fmt.Sprintf("[%d,%d)", d.Start, d.End)
}

// Window is an immutable multi dimensional iteration domain.
type Window struct {
	dims []Dimension
}

// New creates a window; every dimension has to satisfy start <= end.
func New(dims ...Dimension) (*Window, error) {
	if len(dims) == 0 {
		return nil, ErrNoDimensions
	}
	for i, d := range dims {
		if d.Start > d.End {
			return nil, fmt.Errorf("%w: axis %d %v", ErrInvalidDimension, i, d)
		}
	}
	return &Window{dims: append([]Dimension(nil), dims...)}, nil
}

// MustNew is like New but panics on invalid input. Intended for literals and tests.
func MustNew(dims ...Dimension) *Window {
	w, err := New(dims...)
	if err != nil {
		panic(err)
	}
	return w
}

// Of returns a window covering [0, extent) on every supplied axis.
func Of(extents ...int) (*Window, error) {
	dims := make([]Dimension, len(extents))
	for i, e := range extents {
		dims[i] = Range(0, e)
	}
	return New(dims...)
}

// Rank returns the number of axes.
func (w *Window) Rank() int {
	return len(w.dims)
}

// Dim returns the dimension at axis.
func (w *Window) Dim(axis int) Dimension {
	return w.dims[axis]
}

// Dimensions returns a copy of all dimensions.
func (w *Window) Dimensions() []Dimension {
	return append([]Dimension(nil), w.dims...)
}

// Size returns the number of points in the window.
func (w *Window) Size() int {
	size := 1
	for _, d := range w.dims {
		size *= d.Len()
	}
	return size
}

// EmptyAxis returns the first axis with zero extent, or -1.
func (w *Window) EmptyAxis() int {
	for i, d := range w.dims {
		if d.Len() == 0 {
			return i
		}
	}
	return -1
}

// With returns a copy of the window with the axis replaced.
func (w *Window) With(axis int, dim Dimension) (*Window, error) {
	if axis < 0 || axis >= len(w.dims) {
		return nil, fmt.Errorf("%w: %d (rank %d)", ErrAxisOutOfRange, axis, len(w.dims))
	}
	dims := w.Dimensions()
	dims[axis] = dim
	return New(dims...)
}

// Contains reports whether other lies fully inside w.
func (w *Window) Contains(other *Window) bool {
	if other == nil || other.Rank() != w.Rank() {
		return false
	}
	for i, d := range w.dims {
		o := other.dims[i]
		if o.Start < d.Start || o.End > d.End {
			return false
		}
	}
	return true
}

// Intersects reports whether both windows share at least one point.
func (w *Window) Intersects(other *Window) bool {
	if other == nil || other.Rank() != w.Rank() {
		return false
	}
	for i, d := range w.dims {
		o := other.dims[i]
		if max(d.Start, o.Start) >= min(d.End, o.End) {
			return false
		}
	}
	return true
}

// Equal reports whether both windows have identical dimensions.
func (w *Window) Equal(other *Window) bool {
	if other == nil || other.Rank() != w.Rank() {
		return false
	}
	for i, d := range w.dims {
		if d != other.dims[i] {
			return false
		}
	}
	return true
}

// Each visits every point of the window in row-major order (last axis fastest).
func (w *Window) Each(fn func(coords []int)) {
	if w.EmptyAxis() != -1 {
		return
	}
	coords := make([]int, len(w.dims))
	for i, d := range w.dims {
		coords[i] = d.Start
	}
	for {
		fn(coords)
		axis := len(coords) - 1
		for ; axis >= 0; axis-- {
			coords[axis]++
			if coords[axis] < w.dims[axis].End {
				break
			}
			coords[axis] = w.dims[axis].Start
		}
		if axis < 0 {
			return
		}
	}
}

func (w *Window) String() string {
	parts := make([]string, len(w.dims))
	for i, d := range w.dims {
		parts[i] = d.String()
	}
	return strings.Join(parts, "x")
}

// MarshalJSON encodes the window as a list of dimensions.
func (w *Window) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.dims)
}

// UnmarshalJSON decodes and validates a list of dimensions.
func (w *Window) UnmarshalJSON(data []byte) error {
	var dims []Dimension
	if err := json.Unmarshal(data, &dims); err != nil {
		return err
	}
	decoded, err := New(dims...)
	if err != nil {
		return err
	}
	w.dims = decoded.dims
	return nil
}
