package workgrid

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"

	"github.com/viant/workgrid/service/harness"
	"github.com/viant/workgrid/service/meta"
	"github.com/viant/workgrid/service/scheduler"
)

// Run store kinds.
const (
	StoreMemory = "memory"
	StoreFS     = "fs"
)

// Config is a serialisable representation of the service configuration. It can
// be populated from YAML or JSON; missing sections keep their defaults.
type Config struct {
	Scheduler scheduler.Config `json:"scheduler" yaml:"scheduler"`
	Tracing   TracingConfig    `json:"tracing" yaml:"tracing"`
	Store     StoreConfig      `json:"store" yaml:"store"`
	Harness   HarnessConfig    `json:"harness" yaml:"harness"`
}

// TracingConfig enables the stdout OpenTelemetry exporter.
type TracingConfig struct {
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	ServiceName    string `json:"serviceName" yaml:"serviceName"`
	ServiceVersion string `json:"serviceVersion" yaml:"serviceVersion"`
	// OutputFile receives spans instead of stdout when set.
	OutputFile string `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`
}

// StoreConfig selects where finished runs are archived.
type StoreConfig struct {
	Kind    string `json:"kind" yaml:"kind"`
	BaseURL string `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
}

// HarnessConfig configures the test runner.
type HarnessConfig struct {
	Instruments []string `json:"instruments,omitempty" yaml:"instruments,omitempty"`
	Scale       string   `json:"scale,omitempty" yaml:"scale,omitempty"`
}

func (c HarnessConfig) instruments() ([]harness.Instrument, error) {
	var ret []harness.Instrument
	for _, name := range c.Instruments {
		instrument, err := harness.ParseInstrument(name)
		if err != nil {
			return nil, err
		}
		ret = append(ret, instrument)
	}
	return ret, nil
}

// DefaultConfig returns a Config populated with package defaults.
func DefaultConfig() *Config {
	return &Config{
		Scheduler: scheduler.DefaultConfig(),
		Tracing:   TracingConfig{ServiceName: "workgrid", ServiceVersion: "0.1.0"},
		Store:     StoreConfig{Kind: StoreMemory},
		Harness:   HarnessConfig{Instruments: []string{string(harness.SchedulerTimer)}},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs *multierror.Error
	if err := c.Scheduler.Validate(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("scheduler: %w", err))
	}
	switch c.Store.Kind {
	case StoreMemory, "":
	case StoreFS:
		if c.Store.BaseURL == "" {
			errs = multierror.Append(errs, fmt.Errorf("store.baseURL is required for %q store", StoreFS))
		}
	default:
		errs = multierror.Append(errs, fmt.Errorf("unsupported store kind: %q", c.Store.Kind))
	}
	if _, err := c.Harness.instruments(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("harness: %w", err))
	}
	if _, err := harness.ParseScaleFactor(c.Harness.Scale); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("harness: %w", err))
	}
	if c.Tracing.Enabled && c.Tracing.ServiceName == "" {
		errs = multierror.Append(errs, fmt.Errorf("tracing.serviceName is required"))
	}
	return errs.ErrorOrNil()
}

// LoadConfig reads a YAML (or .json) document over DefaultConfig. ${env.KEY}
// expressions are expanded before decoding.
func LoadConfig(ctx context.Context, URL string, options ...storage.Option) (*Config, error) {
	ret := DefaultConfig()
	if err := meta.New(afs.New(), "", options...).Load(ctx, URL, ret); err != nil {
		return nil, err
	}
	if err := ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return ret, nil
}
