// Package harness runs kernels under test through a scheduler, verifies their
// output and reports a Result together with scheduler measurements.
package harness
