// Package window defines the iteration domain a kernel runs over.
//
// A Window is an ordered list of half open [start, end) dimensions. Windows
// are immutable: every accessor that exposes dimensions returns a copy, and
// With derives a new window instead of modifying the receiver. A Partition is
// the slice of a window handed to one kernel invocation.
package window
