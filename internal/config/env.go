package config

import (
	"os"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "RELAY_"

// envSetter applies one environment value to a configuration.
type envSetter func(c *Config, value string) error

// envMapping maps environment names (without prefix) to settings.
var envMapping = map[string]envSetter{
	"BUS_PENDING_DID_TIMEOUT": func(c *Config, v string) error {
		return c.Bus.PendingDidTimeout.UnmarshalText([]byte(v))
	},
	"LOGGING_LEVEL":           setString(func(c *Config) *string { return &c.Logging.Level }),
	"LOGGING_FORMAT":          setString(func(c *Config) *string { return &c.Logging.Format }),
	"LOGGING_REVEAL_PAYLOADS": setBool(func(c *Config) *bool { return &c.Logging.RevealPayloads }),
	"METRICS_ENABLED":         setBool(func(c *Config) *bool { return &c.Metrics.Enabled }),
	"METRICS_NAMESPACE":       setString(func(c *Config) *string { return &c.Metrics.Namespace }),
	"METRICS_ADDRESS":         setString(func(c *Config) *string { return &c.Metrics.Address }),
	"TRACE_ENABLED":           setBool(func(c *Config) *bool { return &c.Trace.Enabled }),
	"TRACE_FILTER":            setString(func(c *Config) *string { return &c.Trace.Filter }),
	"TRACE_COLOR":             setString(func(c *Config) *string { return &c.Trace.Color }),
	"TRACE_PAYLOADS":          setBool(func(c *Config) *bool { return &c.Trace.Payloads }),
}

// EnvNames returns the recognized environment variable names for prefix.
func EnvNames(prefix string) []string {
	names := make([]string, 0, len(envMapping))
	for name := range envMapping {
		names = append(names, prefix+name)
	}
	sort.Strings(names)
	return names
}

// ApplyEnv overrides settings from environment variables such as
// RELAY_LOGGING_LEVEL. Empty values are treated as set.
func (c *Config) ApplyEnv(prefix string) error {
	var errs error
	for _, name := range EnvNames(prefix) {
		value, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		if err := envMapping[name[len(prefix):]](c, value); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "%s", name))
		}
	}
	return errs
}

func setString(field func(*Config) *string) envSetter {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func setBool(field func(*Config) *bool) envSetter {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}
