package progress

import (
	"context"
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the scheduler or
// graph executor. Fields are signed so a worker can move a unit from Running
// to Completed with a single update.
type Delta struct {
	Total     int
	Completed int
	Skipped   int
	Failed    int
	Running   int
}

// Progress keeps aggregated unit counters (partitions for a schedule call,
// nodes for a graph execution). It is safe for concurrent use.
type Progress struct {
	Name      string
	StartedAt time.Time

	Total     int
	Completed int
	Skipped   int
	Failed    int
	Running   int

	mux      sync.Mutex
	onChange func(Snapshot)
}

// Snapshot is a read-only copy of the counters.
type Snapshot struct {
	Name      string
	StartedAt time.Time
	Total     int
	Completed int
	Skipped   int
	Failed    int
	Running   int
}

// Done returns true once every unit reached a terminal counter.
func (s Snapshot) Done() bool {
	return s.Total > 0 && s.Completed+s.Skipped+s.Failed == s.Total
}

// Update applies the supplied delta. The onChange callback, when registered,
// runs outside the critical section with a copy of the counters.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mux.Lock()
	p.Total += d.Total
	p.Completed += d.Completed
	p.Skipped += d.Skipped
	p.Failed += d.Failed
	p.Running += d.Running
	snapshot := p.snapshot()
	cb := p.onChange
	p.mux.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the counters.
func (p *Progress) Snapshot() Snapshot {
	if p == nil {
		return Snapshot{}
	}
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.snapshot()
}

func (p *Progress) snapshot() Snapshot {
	return Snapshot{
		Name:      p.Name,
		StartedAt: p.StartedAt,
		Total:     p.Total,
		Completed: p.Completed,
		Skipped:   p.Skipped,
		Failed:    p.Failed,
		Running:   p.Running,
	}
}

// OnChange registers a callback invoked after every Update. Passing nil
// disables it.
func (p *Progress) OnChange(cb func(Snapshot)) {
	if p == nil {
		return
	}
	p.mux.Lock()
	p.onChange = cb
	p.mux.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker creates a tracker, embeds it in a derived context and
// returns both.
func WithNewTracker(ctx context.Context, name string, onChange func(Snapshot)) (context.Context, *Progress) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := &Progress{Name: name, StartedAt: time.Now(), onChange: onChange}
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext extracts the tracker from ctx.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// UpdateCtx applies the delta to the tracker carried by ctx, if any.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
