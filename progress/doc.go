// Package progress provides a lightweight tracker of unit counters (total,
// running, completed, failed, skipped). The tracker lives in the context so
// the scheduler can report partition progress, and the graph executor node
// progress, without a global registry.
package progress
