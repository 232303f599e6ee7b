// Package clock is the single time source for run timestamps so tests can
// freeze or step it.
package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// Since returns the time elapsed since t according to NowFunc.
func Since(t time.Time) time.Duration { return NowFunc().Sub(t) }
