package tracing

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span kinds accepted by StartSpan.
const (
	KindInternal = "INTERNAL"
	KindServer   = "SERVER"
	KindClient   = "CLIENT"
	KindProducer = "PRODUCER"
	KindConsumer = "CONSUMER"
)

var spanKinds = map[string]trace.SpanKind{
	KindInternal: trace.SpanKindInternal,
	KindServer:   trace.SpanKindServer,
	KindClient:   trace.SpanKindClient,
	KindProducer: trace.SpanKindProducer,
	KindConsumer: trace.SpanKindConsumer,
}

// Span is a nil safe handle over an OpenTelemetry span.
type Span struct {
	span trace.Span
}

// StartSpan starts a child span of the span in ctx; unknown kinds are INTERNAL.
func StartSpan(ctx context.Context, name, kind string) (context.Context, *Span) {
	spanKind, ok := spanKinds[kind]
	if !ok {
		spanKind = trace.SpanKindInternal
	}
	ctx, span := otel.Tracer(instrumentation).Start(ctx, name, trace.WithSpanKind(spanKind))
	return ctx, &Span{span: span}
}

// SpanFromContext returns the recording span carried by ctx.
func SpanFromContext(ctx context.Context) (*Span, bool) {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil, false
	}
	return &Span{span: span}, true
}

// WithAttributes sets string attributes.
func (s *Span) WithAttributes(attrs map[string]string) *Span {
	if s == nil || len(attrs) == 0 {
		return s
	}
	s.span.SetAttributes(stringAttributes(attrs)...)
	return s
}

// WithInt sets an integer attribute.
func (s *Span) WithInt(key string, value int) *Span {
	if s == nil {
		return s
	}
	s.span.SetAttributes(attribute.Int(key, value))
	return s
}

// AddEvent records a named event at the supplied time, e.g. the end of a partition.
func (s *Span) AddEvent(name string, at time.Time, attrs map[string]string) {
	if s == nil {
		return
	}
	s.span.AddEvent(name, trace.WithTimestamp(at), trace.WithAttributes(stringAttributes(attrs)...))
}

// SetStatus marks the span failed with err, or OK when err is nil.
func (s *Span) SetStatus(err error) {
	if s == nil {
		return
	}
	if err == nil {
		s.span.SetStatus(codes.Ok, "")
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// EndSpan sets the status from err and ends the span.
func EndSpan(s *Span, err error) {
	if s == nil {
		return
	}
	s.SetStatus(err)
	s.span.End()
}

// stringAttributes converts attrs in key order so exported spans are stable.
func stringAttributes(attrs map[string]string) []attribute.KeyValue {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ret := make([]attribute.KeyValue, len(keys))
	for i, k := range keys {
		ret[i] = attribute.String(k, attrs[k])
	}
	return ret
}
