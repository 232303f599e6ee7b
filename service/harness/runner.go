package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/viant/workgrid/model/kernel"
	"github.com/viant/workgrid/model/window"
	"github.com/viant/workgrid/runtime/run"
	"github.com/viant/workgrid/service/scheduler"
)

// ErrSchedulerRequired is returned by New without a scheduler.
var ErrSchedulerRequired = errors.New("harness: scheduler is required")

// Case describes one kernel under test. Verify, when set, inspects the run once
// all partitions completed; returning an error marks the case as failed.
type Case struct {
	Name    string
	Kernel  kernel.Kernel
	Window  *window.Window
	Options []scheduler.ScheduleOption
	Verify  func(ctx context.Context, aRun *run.Run) error
}

// Measurement is a single scaled value.
type Measurement struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

func (m Measurement) String() string {
	return fmt.Sprintf("%v: %.3f %v", m.Name, m.Value, m.Unit)
}

// Report is the outcome of a case.
type Report struct {
	Case         string                       `json:"case"`
	Result       Result                       `json:"result"`
	Run          *run.Run                     `json:"run,omitempty"`
	Measurements map[Instrument][]Measurement `json:"measurements,omitempty"`
	Err          error                        `json:"-"`
}

// Runner executes cases through a scheduler.
type Runner struct {
	scheduler   scheduler.Scheduler
	instruments []Instrument
	scale       ScaleFactor
	logger      *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithInstruments selects the recorded instruments; SCHEDULER_TIMER by default.
func WithInstruments(instruments ...Instrument) Option {
	return func(r *Runner) {
		r.instruments = instruments
	}
}

// WithScale sets the scale factor applied to measurements.
func WithScale(scale ScaleFactor) Option {
	return func(r *Runner) {
		r.scale = scale
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// New creates a runner.
func New(sched scheduler.Scheduler, options ...Option) (*Runner, error) {
	if sched == nil {
		return nil, ErrSchedulerRequired
	}
	ret := &Runner{scheduler: sched, instruments: []Instrument{SchedulerTimer}, scale: ScaleNone}
	for _, opt := range options {
		opt(ret)
	}
	if ret.logger == nil {
		ret.logger = slog.Default()
	}
	for _, instrument := range ret.instruments {
		if err := ret.checkScale(instrument); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func (r *Runner) checkScale(instrument Instrument) error {
	var err error
	switch instrument {
	case SchedulerTimer, SchedulerTimestamps, WallClockTimer:
		_, _, err = r.scale.timeScale()
	case Throughput:
		_, _, err = r.scale.countScale()
	default:
		err = fmt.Errorf("unsupported instrument: %q", instrument)
	}
	return err
}

func (r *Runner) enabled(instrument Instrument) bool {
	for _, candidate := range r.instruments {
		if candidate == instrument {
			return true
		}
	}
	return false
}

// Run executes the case and returns its report. Kernel faults and verification
// errors yield FAILURE; anything preventing the case from running yields ERROR.
func (r *Runner) Run(ctx context.Context, c *Case) *Report {
	report := &Report{Case: c.Name, Measurements: map[Instrument][]Measurement{}}
	options := c.Options
	if r.enabled(SchedulerTimestamps) {
		options = append(append([]scheduler.ScheduleOption(nil), options...), scheduler.WithTimestamps(true))
	}
	started := time.Now()
	aRun, err := r.scheduler.Schedule(ctx, c.Kernel, c.Window, options...)
	wall := time.Since(started)
	report.Run = aRun
	switch {
	case errors.Is(err, scheduler.ErrKernel):
		report.Result, report.Err = Failure, err
	case err != nil:
		report.Result, report.Err = Error, err
	case aRun != nil && aRun.Status == run.StatusCancelled:
		report.Result, report.Err = Error, fmt.Errorf("%w during dispatch: %v", scheduler.ErrCancelled, context.Cause(ctx))
	default:
		report.Result = Success
		if c.Verify != nil {
			if vErr := c.Verify(ctx, aRun); vErr != nil {
				report.Result, report.Err = Failure, vErr
			}
		}
	}
	if aRun != nil {
		r.measure(report, aRun, wall)
	}
	r.logger.Debug("harness case finished", "case", c.Name, "result", report.Result.String(), "error", report.Err)
	return report
}

// RunAll runs every case sequentially.
func (r *Runner) RunAll(ctx context.Context, cases ...*Case) *Summary {
	ret := &Summary{}
	for _, c := range cases {
		ret.Reports = append(ret.Reports, r.Run(ctx, c))
	}
	return ret
}

func (r *Runner) measure(report *Report, aRun *run.Run, wall time.Duration) {
	divisor, unit, _ := r.scale.timeScale()
	scaled := func(d time.Duration) float64 {
		return float64(d) / float64(time.Microsecond) / divisor
	}
	if r.enabled(SchedulerTimer) {
		report.Measurements[SchedulerTimer] = []Measurement{{Name: aRun.Kernel, Value: scaled(aRun.Elapsed()), Unit: unit}}
	}
	if r.enabled(WallClockTimer) {
		report.Measurements[WallClockTimer] = []Measurement{{Name: "wall clock", Value: scaled(wall), Unit: unit}}
	}
	if r.enabled(SchedulerTimestamps) {
		var values []Measurement
		for _, record := range aRun.Partitions {
			if record.Start.IsZero() {
				continue
			}
			name := fmt.Sprintf("%v #%d", aRun.Kernel, record.Partition.ID)
			values = append(values,
				Measurement{Name: name + " start", Value: scaled(record.Start.Sub(aRun.StartTime)), Unit: unit},
				Measurement{Name: name + " end", Value: scaled(record.End.Sub(aRun.StartTime)), Unit: unit},
			)
		}
		report.Measurements[SchedulerTimestamps] = values
	}
	if r.enabled(Throughput) {
		countDivisor, prefix, _ := r.scale.countScale()
		rate := 0.0
		if elapsed := aRun.Elapsed(); elapsed > 0 && aRun.Window != nil {
			rate = float64(aRun.Window.Size()) / elapsed.Seconds() / countDivisor
		}
		report.Measurements[Throughput] = []Measurement{{Name: aRun.Kernel, Value: rate, Unit: prefix + "elements/s"}}
	}
}

// Summary aggregates reports of several cases.
type Summary struct {
	Reports []*Report
}

// Count returns the number of reports with the supplied result.
func (s *Summary) Count(result Result) int {
	ret := 0
	for _, report := range s.Reports {
		if report.Result == result {
			ret++
		}
	}
	return ret
}

// Result returns ERROR if any case errored, FAILURE if any failed, SUCCESS otherwise.
func (s *Summary) Result() Result {
	switch {
	case s.Count(Error) > 0:
		return Error
	case s.Count(Failure) > 0:
		return Failure
	}
	return Success
}
