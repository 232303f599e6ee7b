package harness

import (
	"fmt"
	"strings"
)

// Result is the verdict of a test case.
type Result int

const (
	// Success means the kernel completed and verification passed.
	Success Result = iota
	// Failure means a partition faulted or verification found a mismatch.
	Failure
	// Error means the case could not run (invalid window, cancellation, ...).
	Error
)

var resultNames = [...]string{Success: "SUCCESS", Failure: "FAILURE", Error: "ERROR"}

func (r Result) String() string {
	if r < 0 || int(r) >= len(resultNames) {
		return fmt.Sprintf("Result(%d)", int(r))
	}
	return resultNames[r]
}

// MarshalText renders the result name.
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Instrument selects which measurements a runner records.
type Instrument string

const (
	SchedulerTimer      Instrument = "SCHEDULER_TIMER"
	SchedulerTimestamps Instrument = "SCHEDULER_TIMESTAMPS"
	WallClockTimer      Instrument = "WALL_CLOCK_TIMER"
	Throughput          Instrument = "THROUGHPUT"
)

// ParseInstrument converts a case insensitive instrument name.
func ParseInstrument(name string) (Instrument, error) {
	for _, candidate := range []Instrument{SchedulerTimer, SchedulerTimestamps, WallClockTimer, Throughput} {
		if strings.EqualFold(string(candidate), strings.TrimSpace(name)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unsupported instrument: %q", name)
}

// ScaleFactor scales measurement values. Timers accept NONE and the TIME_*
// factors, throughput accepts NONE and the SCALE_* factors.
type ScaleFactor string

const (
	ScaleNone ScaleFactor = "NONE"
	Scale1K   ScaleFactor = "SCALE_1K"
	Scale1M   ScaleFactor = "SCALE_1M"
	TimeUS    ScaleFactor = "TIME_US"
	TimeMS    ScaleFactor = "TIME_MS"
	TimeS     ScaleFactor = "TIME_S"
)

// ParseScaleFactor converts a case insensitive scale factor name; empty means NONE.
func ParseScaleFactor(name string) (ScaleFactor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ScaleNone, nil
	}
	for _, candidate := range []ScaleFactor{ScaleNone, Scale1K, Scale1M, TimeUS, TimeMS, TimeS} {
		if strings.EqualFold(string(candidate), name) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unsupported scale factor: %q", name)
}

// timeScale returns the divisor applied to microseconds and the unit.
func (s ScaleFactor) timeScale() (float64, string, error) {
	switch s {
	case ScaleNone, TimeUS, "":
		return 1, "us", nil
	case TimeMS:
		return 1e3, "ms", nil
	case TimeS:
		return 1e6, "s", nil
	}
	return 0, "", fmt.Errorf("scale factor %v does not apply to timers", s)
}

// countScale returns the divisor applied to counts and the unit prefix.
func (s ScaleFactor) countScale() (float64, string, error) {
	switch s {
	case ScaleNone, "":
		return 1, "", nil
	case Scale1K:
		return 1e3, "K", nil
	case Scale1M:
		return 1e6, "M", nil
	}
	return 0, "", fmt.Errorf("scale factor %v does not apply to counters", s)
}
