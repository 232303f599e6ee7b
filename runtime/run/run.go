// Package run holds the record produced by a single schedule call: which
// partitions were dispatched, on which worker, and when.
package run

import (
	"sort"
	"sync"
	"time"

	"github.com/viant/workgrid/internal/clock"
	"github.com/viant/workgrid/internal/idgen"
	"github.com/viant/workgrid/model/strategy"
	"github.com/viant/workgrid/model/tensor"
	"github.com/viant/workgrid/model/window"
	"github.com/viant/workgrid/service/event"
)

// Record captures the outcome of one dispatched partition. Start, End and
// Duration are only populated when timestamp capture is enabled.
type Record struct {
	Partition window.Partition `json:"partition"`
	Worker    int              `json:"worker"`
	Start     time.Time        `json:"start,omitempty"`
	End       time.Time        `json:"end,omitempty"`
	Duration  time.Duration    `json:"duration,omitempty"`
	Error     string           `json:"error,omitempty"`
	// Interrupted marks a partition whose kernel stopped because the
	// schedule context ended.
	Interrupted bool `json:"interrupted,omitempty"`
}

// Failed returns true if the partition kernel returned an error.
func (r *Record) Failed() bool {
	return r.Error != ""
}

// Run represents a single schedule call.
type Run struct {
	ID         string            `json:"id"`
	Kernel     string            `json:"kernel"`
	DataTypes  []tensor.DataType `json:"dataTypes,omitempty"`
	Strategy   strategy.Kind     `json:"strategy"`
	SplitAxis  int               `json:"splitAxis"`
	Workers    int               `json:"workers"`
	Window     *window.Window    `json:"window"`
	Timestamps bool              `json:"timestamps,omitempty"`
	Status     Status            `json:"status"`
	StartTime  time.Time         `json:"startTime"`
	EndTime    time.Time         `json:"endTime"`
	Partitions []*Record         `json:"partitions"`
	Planned    int               `json:"planned"`

	mux sync.Mutex
}

// New creates a run in the running state.
func New(kernel string, w *window.Window, kind strategy.Kind, splitAxis, workers int) *Run {
	return &Run{
		ID:        idgen.New(),
		Kernel:    kernel,
		Strategy:  kind,
		SplitAxis: splitAxis,
		Workers:   workers,
		Window:    w,
		Status:    StatusRunning,
	}
}

// Start stamps the dispatch start time.
func (r *Run) Start() {
	r.StartTime = clock.Now()
}

// Append adds a partition record; safe for concurrent use by workers.
func (r *Run) Append(record *Record) {
	r.mux.Lock()
	r.Partitions = append(r.Partitions, record)
	r.mux.Unlock()
}

// Finish stamps the end time, sorts records by partition and sets the status.
func (r *Run) Finish(status Status) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.EndTime = clock.Now()
	r.Status = status
	sort.Slice(r.Partitions, func(i, j int) bool {
		return r.Partitions[i].Partition.ID < r.Partitions[j].Partition.ID
	})
}

// Elapsed returns wall clock time of the whole dispatch.
func (r *Run) Elapsed() time.Duration {
	if r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Dispatched returns the partitions that were handed to a kernel, ordered by ID.
func (r *Run) Dispatched() []window.Partition {
	r.mux.Lock()
	defer r.mux.Unlock()
	ret := make([]window.Partition, 0, len(r.Partitions))
	for _, record := range r.Partitions {
		ret = append(ret, record.Partition)
	}
	return ret
}

// Failed returns the records of faulted partitions.
func (r *Run) Failed() []*Record {
	r.mux.Lock()
	defer r.mux.Unlock()
	var ret []*Record
	for _, record := range r.Partitions {
		if record.Failed() {
			ret = append(ret, record)
		}
	}
	return ret
}

// Interrupted returns the records of partitions stopped by cancellation.
func (r *Run) Interrupted() []*Record {
	r.mux.Lock()
	defer r.mux.Unlock()
	var ret []*Record
	for _, record := range r.Partitions {
		if record.Interrupted {
			ret = append(ret, record)
		}
	}
	return ret
}

// Succeeded returns the records of partitions that completed without error.
func (r *Run) Succeeded() []*Record {
	r.mux.Lock()
	defer r.mux.Unlock()
	var ret []*Record
	for _, record := range r.Partitions {
		if !record.Failed() && !record.Interrupted {
			ret = append(ret, record)
		}
	}
	return ret
}

// Context returns event context describing the run.
func (r *Run) Context(eventType string) *event.Context {
	return &event.Context{
		RunID:       r.ID,
		Kernel:      r.Kernel,
		EventType:   eventType,
		Status:      string(r.Status),
		TimeTakenMs: int(r.Elapsed().Milliseconds()),
	}
}

// Clone returns a deep copy of the run suitable for archiving.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	r.mux.Lock()
	defer r.mux.Unlock()
	ret := &Run{
		ID:         r.ID,
		Kernel:     r.Kernel,
		DataTypes:  append([]tensor.DataType(nil), r.DataTypes...),
		Strategy:   r.Strategy,
		SplitAxis:  r.SplitAxis,
		Workers:    r.Workers,
		Window:     r.Window,
		Timestamps: r.Timestamps,
		Status:     r.Status,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Planned:    r.Planned,
		Partitions: make([]*Record, len(r.Partitions)),
	}
	for i, record := range r.Partitions {
		copied := *record
		ret.Partitions[i] = &copied
	}
	return ret
}
