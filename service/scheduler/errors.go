package scheduler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/viant/workgrid/model/window"
	"github.com/viant/workgrid/runtime/run"
)

var (
	ErrEmptyRange              = errors.New("scheduler: empty range")
	ErrConcurrentConfiguration = errors.New("scheduler: configuration changed during dispatch")
	ErrKernel                  = errors.New("scheduler: kernel fault")
	ErrCancelled               = errors.New("scheduler: cancelled")

	ErrInvalidWorkerCount = errors.New("scheduler: worker count must be at least 1")
	ErrInvalidStrategy    = errors.New("scheduler: unknown strategy")
	ErrInvalidGranularity = errors.New("scheduler: granularity must not be negative")
	ErrInvalidAxis        = errors.New("scheduler: invalid split axis")
	ErrNilKernel          = errors.New("scheduler: kernel is required")
	ErrNilWindow          = errors.New("scheduler: window is required")
	ErrClosed             = errors.New("scheduler: closed")
)

// EmptyRangeError is returned before dispatch when an axis has zero extent.
type EmptyRangeError struct {
	Window *window.Window
	Axis   int
}

func (e *EmptyRangeError) Error() string {
	return fmt.Sprintf("scheduler: empty range %v: axis %d has zero extent", e.Window, e.Axis)
}

func (e *EmptyRangeError) Is(target error) bool { return target == ErrEmptyRange }

// ConcurrentConfigurationError is returned by setters while a schedule call is
// dispatching. The previous configuration stays in effect.
type ConcurrentConfigurationError struct {
	Setting string
}

func (e *ConcurrentConfigurationError) Error() string {
	return fmt.Sprintf("scheduler: cannot change %v while dispatching", e.Setting)
}

func (e *ConcurrentConfigurationError) Is(target error) bool {
	return target == ErrConcurrentConfiguration
}

// CancellationError is returned when the context is done before dispatch started.
type CancellationError struct {
	Cause error
}

func (e *CancellationError) Error() string {
	return fmt.Sprintf("scheduler: cancelled before dispatch: %v", e.Cause)
}

func (e *CancellationError) Is(target error) bool { return target == ErrCancelled }

func (e *CancellationError) Unwrap() error { return e.Cause }

// PartitionFault is a kernel failure bound to the partition it happened on.
type PartitionFault struct {
	Partition window.Partition
	Worker    int
	Err       error
}

func (f *PartitionFault) Error() string {
	return fmt.Sprintf("partition %v (worker %d): %v", f.Partition, f.Worker, f.Err)
}

func (f *PartitionFault) Unwrap() error { return f.Err }

// KernelError aggregates every partition fault of one schedule call. Succeeded
// lists the partitions that completed; their results are valid.
type KernelError struct {
	Kernel    string
	Run       *run.Run
	Faults    []*PartitionFault
	Succeeded []window.Partition
	errs      *multierror.Error
}

func newKernelError(aRun *run.Run, faults []*PartitionFault) *KernelError {
	ret := &KernelError{Kernel: aRun.Kernel, Run: aRun, Faults: faults}
	for _, record := range aRun.Succeeded() {
		ret.Succeeded = append(ret.Succeeded, record.Partition)
	}
	for _, fault := range faults {
		ret.errs = multierror.Append(ret.errs, fault)
	}
	ret.errs.ErrorFormat = func(errs []error) string {
		items := make([]string, len(errs))
		for i, err := range errs {
			items[i] = "\t* " + err.Error()
		}
		return strings.Join(items, "\n")
	}
	return ret
}

func (e *KernelError) Error() string {
	return fmt.Sprintf("scheduler: kernel %v faulted on %d partition(s), %d succeeded:\n%v",
		e.Kernel, len(e.Faults), len(e.Succeeded), e.errs.Error())
}

func (e *KernelError) Is(target error) bool { return target == ErrKernel }

// Unwrap exposes the partition faults to errors.Is and errors.As.
func (e *KernelError) Unwrap() []error {
	return e.errs.WrappedErrors()
}

// FaultedPartitions returns partition IDs that faulted, in ascending order.
func (e *KernelError) FaultedPartitions() []int {
	ret := make([]int, len(e.Faults))
	for i, fault := range e.Faults {
		ret[i] = fault.Partition.ID
	}
	return ret
}
