// Package tracing exports scheduler activity to OpenTelemetry. Each schedule
// call becomes a span carrying run attributes and, when timestamp capture is
// enabled, one event per partition; graph nodes wrap their schedule calls in
// parent spans. Nothing is recorded until Init or InitWithExporter installs a
// provider; before that spans are no-ops.
package tracing
