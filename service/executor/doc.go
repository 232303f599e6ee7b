// Package executor runs layer graphs. Nodes execute one at a time in
// topological order; the parallelism lives inside each node, where the layer
// kernels are partitioned by the scheduler.
package executor
