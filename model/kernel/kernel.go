// Package kernel defines the unit of work a scheduler distributes.
package kernel

import (
	"context"
	"fmt"

	"github.com/viant/workgrid/model/tensor"
	"github.com/viant/workgrid/model/window"
)

// Kernel executes over a partition of a window. Implementations must be safe
// to run concurrently on disjoint partitions.
type Kernel interface {
	Execute(ctx context.Context, partition window.Partition) error
}

// Named is implemented by kernels that expose a display name.
type Named interface {
	Name() string
}

// Typed is implemented by kernels that declare the element types they operate on.
type Typed interface {
	DataTypes() []tensor.DataType
}

// Func adapts a function to the Kernel interface.
type Func func(ctx context.Context, partition window.Partition) error

// Execute calls f.
func (f Func) Execute(ctx context.Context, partition window.Partition) error {
	return f(ctx, partition)
}

// NameOf returns the kernel name, falling back to its Go type.
func NameOf(k Kernel) string {
	if decorated, ok := k.(*named); ok && decorated.name == "" {
		return NameOf(decorated.Kernel)
	}
	if named, ok := k.(Named); ok && named.Name() != "" {
		return named.Name()
	}
	return fmt.Sprintf("%T", k)
}

// DataTypesOf returns the declared element types, if any.
func DataTypesOf(k Kernel) []tensor.DataType {
	if typed, ok := k.(Typed); ok {
		return typed.DataTypes()
	}
	return nil
}

type named struct {
	Kernel
	name      string
	dataTypes []tensor.DataType
}

func (n *named) Name() string                 { return n.name }
func (n *named) DataTypes() []tensor.DataType { return n.dataTypes }

// WithName decorates k with a name and declared element types.
func WithName(name string, k Kernel, dataTypes ...tensor.DataType) Kernel {
	return &named{Kernel: k, name: name, dataTypes: dataTypes}
}
