// Package hint carries optional scheduling preferences through a context so
// that code several calls away from the scheduler (a graph node, a test case)
// can influence partitioning without threading options. A nil *Hint means
// "use the scheduler configuration" and is therefore the zero-cost default.
package hint

import (
	"context"

	"github.com/viant/workgrid/model/strategy"
)

// Hint overrides parts of the scheduler configuration for calls made with the
// carrying context. Nil fields keep the scheduler setting.
type Hint struct {
	Strategy    *strategy.Kind
	SplitAxis   *int
	Granularity *int
	Timestamps  *bool
}

// Config is the declarative form of a Hint, e.g. graph node params.
type Config struct {
	Strategy    string `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	SplitAxis   *int   `json:"splitAxis,omitempty" yaml:"splitAxis,omitempty"`
	Granularity *int   `json:"granularity,omitempty" yaml:"granularity,omitempty"`
	Timestamps  *bool  `json:"timestamps,omitempty" yaml:"timestamps,omitempty"`
}

// FromConfig converts a Config into a Hint. A nil or empty config yields nil.
func FromConfig(c *Config) (*Hint, error) {
	if c == nil || (c.Strategy == "" && c.SplitAxis == nil && c.Granularity == nil && c.Timestamps == nil) {
		return nil, nil
	}
	ret := &Hint{SplitAxis: c.SplitAxis, Granularity: c.Granularity, Timestamps: c.Timestamps}
	if c.Strategy != "" {
		kind, err := strategy.Parse(c.Strategy)
		if err != nil {
			return nil, err
		}
		ret.Strategy = &kind
	}
	return ret, nil
}

// Merge returns a hint where fields set on override replace the ones of h.
func (h *Hint) Merge(override *Hint) *Hint {
	switch {
	case h == nil:
		return override
	case override == nil:
		return h
	}
	ret := *h
	if override.Strategy != nil {
		ret.Strategy = override.Strategy
	}
	if override.SplitAxis != nil {
		ret.SplitAxis = override.SplitAxis
	}
	if override.Granularity != nil {
		ret.Granularity = override.Granularity
	}
	if override.Timestamps != nil {
		ret.Timestamps = override.Timestamps
	}
	return &ret
}

type ctxKey struct{}

// WithHint returns a derived context carrying h merged over any hint already present.
func WithHint(ctx context.Context, h *Hint) context.Context {
	if h == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, FromContext(ctx).Merge(h))
}

// FromContext extracts the hint, or nil.
func FromContext(ctx context.Context) *Hint {
	if ctx == nil {
		return nil
	}
	if h, ok := ctx.Value(ctxKey{}).(*Hint); ok {
		return h
	}
	return nil
}
