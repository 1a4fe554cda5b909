// Package config loads relay configuration from YAML or TOML files with
// environment overrides, and reloads it when the file changes.
package config

import (
	"regexp"
	"strings"
	"time"

	"github.com/brunoga/deep"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/dshills/relay/internal/event"
	"github.com/dshills/relay/internal/logging"
)

// Trace color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// metricNamespace is what prometheus accepts as a metric name prefix.
var metricNamespace = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config is the complete relay configuration.
type Config struct {
	Bus     BusConfig      `yaml:"bus" toml:"bus"`
	Logging logging.Config `yaml:"logging" toml:"logging"`
	Metrics MetricsConfig  `yaml:"metrics" toml:"metrics"`
	Trace   TraceConfig    `yaml:"trace" toml:"trace"`
}

// BusConfig configures the event bus.
type BusConfig struct {
	// PendingDidTimeout is the default request timeout. Zero disables it.
	PendingDidTimeout Duration `yaml:"pending_did_timeout" toml:"pending_did_timeout"`
}

// MetricsConfig configures the prometheus inspector.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Namespace string `yaml:"namespace" toml:"namespace"`
	Address   string `yaml:"address" toml:"address"`
}

// TraceConfig configures the trace inspector.
type TraceConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`

	// Filter is a glob on event names; empty traces everything.
	Filter string `yaml:"filter" toml:"filter"`

	// Color is "auto", "always" or "never".
	Color string `yaml:"color" toml:"color"`

	// Payloads includes event payloads in trace lines.
	Payloads bool `yaml:"payloads" toml:"payloads"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Bus: BusConfig{
			PendingDidTimeout: Duration(event.DefaultPendingDidTimeout),
		},
		Logging: logging.DefaultConfig(),
		Metrics: MetricsConfig{
			Namespace: "relay",
			Address:   ":9090",
		},
		Trace: TraceConfig{
			Color: ColorAuto,
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs error

	if c.Bus.PendingDidTimeout < 0 {
		errs = multierr.Append(errs, errors.Errorf("bus.pending_did_timeout: must not be negative, got %s", c.Bus.PendingDidTimeout))
	}
	errs = multierr.Append(errs, c.Logging.Validate())

	if c.Metrics.Enabled {
		if c.Metrics.Address == "" {
			errs = multierr.Append(errs, errors.New("metrics.address: required when metrics are enabled"))
		}
		if !metricNamespace.MatchString(c.Metrics.Namespace) {
			errs = multierr.Append(errs, errors.Errorf("metrics.namespace: invalid metric prefix %q", c.Metrics.Namespace))
		}
	}

	switch c.Trace.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		errs = multierr.Append(errs, errors.Errorf("trace.color: unknown mode %q", c.Trace.Color))
	}

	return errs
}

// Copy returns a deep copy of the configuration.
func (c *Config) Copy() *Config {
	if c == nil {
		return nil
	}
	return deep.MustCopy(c)
}

// BusOptions translates the bus section into event bus options.
func (c *Config) BusOptions() []event.BusOption {
	return []event.BusOption{
		event.WithDefaultPendingDidTimeout(c.Bus.PendingDidTimeout.Std()),
	}
}

// Duration is a time.Duration written as "1m30s" in configuration files.
type Duration time.Duration

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String returns the duration in time.Duration notation.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", text)
	}
	*d = Duration(parsed)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}
