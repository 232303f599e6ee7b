// Package layer implements the graph layer catalogue. A layer validates its
// inputs, allocates its outputs and runs one or more kernels through a
// scheduler.Scheduler; the scheduler decides how every kernel window is
// partitioned.
package layer

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/workgrid/model/kernel"
	"github.com/viant/workgrid/model/tensor"
	"github.com/viant/workgrid/model/window"
	"github.com/viant/workgrid/runtime/run"
	"github.com/viant/workgrid/service/scheduler"
)

var (
	// ErrNotConfigured is returned by Run before Configure succeeded.
	ErrNotConfigured = errors.New("layer: not configured")
	// ErrInputCount is returned when a layer receives the wrong number of inputs.
	ErrInputCount = errors.New("layer: unexpected number of inputs")
	// ErrUnknownKind is returned for unregistered layer kinds.
	ErrUnknownKind = errors.New("layer: unknown kind")
)

// Layer is a configured graph operation.
type Layer interface {
	// Kind returns the registered layer kind.
	Kind() string
	// Configure validates inputs and allocates outputs.
	Configure(inputs []*tensor.Tensor) ([]*tensor.Tensor, error)
	// Run schedules the layer kernels; it returns the runs produced so far
	// together with the first error.
	Run(ctx context.Context, sched scheduler.Scheduler) ([]*run.Run, error)
}

// step is one kernel invocation of a layer.
type step struct {
	kernel  kernel.Kernel
	window  *window.Window
	options []scheduler.ScheduleOption
}

// base carries what every layer shares: name and the configured steps.
type base struct {
	name  string
	steps []step
}

func (b *base) add(op string, fn kernel.Func, w *window.Window, dataTypes []tensor.DataType, options ...scheduler.ScheduleOption) {
	b.steps = append(b.steps, step{
		kernel:  kernel.WithName(b.name+"."+op, fn, dataTypes...),
		window:  w,
		options: options,
	})
}

func (b *base) Run(ctx context.Context, sched scheduler.Scheduler) ([]*run.Run, error) {
	if len(b.steps) == 0 {
		return nil, fmt.Errorf("%v: %w", b.name, ErrNotConfigured)
	}
	runs := make([]*run.Run, 0, len(b.steps))
	for _, s := range b.steps {
		aRun, err := sched.Schedule(ctx, s.kernel, s.window, s.options...)
		if aRun != nil {
			runs = append(runs, aRun)
		}
		if err != nil {
			return runs, fmt.Errorf("%v: %w", kernel.NameOf(s.kernel), err)
		}
		if aRun.Status == run.StatusCancelled {
			return runs, fmt.Errorf("%v: %w", kernel.NameOf(s.kernel), ctx.Err())
		}
	}
	return runs, nil
}

func expectInputs(kind string, inputs []*tensor.Tensor, count int) error {
	if len(inputs) != count {
		return fmt.Errorf("%v: %w: expected %d, got %d", kind, ErrInputCount, count, len(inputs))
	}
	for i, input := range inputs {
		if input == nil {
			return fmt.Errorf("%v: input %d is nil", kind, i)
		}
	}
	return nil
}

// flat returns the window over every element of t.
func flat(t *tensor.Tensor) (*window.Window, error) {
	return window.Of(t.Len())
}

// rows returns the window over the innermost rows of t.
func rows(t *tensor.Tensor) (*window.Window, error) {
	return window.Of(t.Rows())
}
