package scheduler

import (
	"fmt"
	"runtime"

	"github.com/hashicorp/go-multierror"

	"github.com/viant/workgrid/model/strategy"
)

// Config represents scheduler configuration
type Config struct {
	// Strategy is the default partitioning strategy
	Strategy strategy.Kind `json:"strategy" yaml:"strategy"`

	// WorkerCount is the number of pooled workers, 1 runs on the caller goroutine
	WorkerCount int `json:"workers" yaml:"workers"`

	// TimestampCapture enables per partition start/end recording
	TimestampCapture bool `json:"timestamps" yaml:"timestamps"`

	// Granularity is the DYNAMIC chunk size along the split axis, 0 means automatic
	Granularity int `json:"granularity" yaml:"granularity"`

	// SplitAxis is the axis partitioned when no hint overrides it
	SplitAxis int `json:"splitAxis" yaml:"splitAxis"`
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Strategy:    strategy.Static,
		WorkerCount: runtime.NumCPU(),
	}
}

// Validate checks every setting and reports all problems at once.
func (c Config) Validate() error {
	var errs *multierror.Error
	if !c.Strategy.Valid() {
		errs = multierror.Append(errs, fmt.Errorf("%w: %v", ErrInvalidStrategy, c.Strategy))
	}
	if c.WorkerCount < 1 {
		errs = multierror.Append(errs, fmt.Errorf("%w: %d", ErrInvalidWorkerCount, c.WorkerCount))
	}
	if c.Granularity < 0 {
		errs = multierror.Append(errs, fmt.Errorf("%w: %d", ErrInvalidGranularity, c.Granularity))
	}
	if c.SplitAxis < 0 {
		errs = multierror.Append(errs, fmt.Errorf("%w: split axis %d", ErrInvalidAxis, c.SplitAxis))
	}
	return errs.ErrorOrNil()
}

// chunkSize resolves the DYNAMIC granularity for a split axis of length units.
// A chunk never exceeds the axis length.
func chunkSize(granularity, length, workers int) int {
	if granularity > 0 {
		return min(granularity, max(1, length))
	}
	return max(1, length/(workers*4))
}
