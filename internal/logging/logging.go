// Package logging builds the logrus loggers used across relay and marks event
// payloads for anonymization in log output.
package logging

import (
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/pretty"
)

// Formats accepted by Config.Format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// timestampFormat is used by both formatters.
const timestampFormat = "2006-01-02 15:04:05"

// Config configures a logger.
type Config struct {
	// Level is a logrus level name. Defaults to "info".
	Level string `yaml:"level" toml:"level"`

	// Format is "text" or "json". Defaults to "text".
	Format string `yaml:"format" toml:"format"`

	// RevealPayloads logs event payloads instead of their anonymized form.
	RevealPayloads bool `yaml:"reveal_payloads" toml:"reveal_payloads"`
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: FormatText,
	}
}

// Validate checks the level and format.
func (c Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Level); err != nil {
		return errors.Wrap(err, "logging.level")
	}
	switch strings.ToLower(c.Format) {
	case FormatText, FormatJSON:
		return nil
	default:
		return errors.Errorf("logging.format: unknown format %q", c.Format)
	}
}

// New builds a logger writing to w (stderr if nil) and applies the payload
// reveal setting process wide.
func New(cfg Config, w io.Writer) (*logrus.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := logrus.ParseLevel(cfg.Level)

	l := logrus.New()
	l.SetLevel(level)
	if w == nil {
		w = os.Stderr
	}
	l.SetOutput(w)

	if strings.ToLower(cfg.Format) == FormatJSON {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		})
	}

	SetRevealPayloads(cfg.RevealPayloads)
	return l, nil
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = logrus.StandardLogger()
)

// Default returns an entry on the process default logger tagged with the
// relay component.
func Default() *logrus.Entry {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger.WithField("component", "relay")
}

// SetDefault replaces the process default logger. Nil restores the logrus
// standard logger.
func SetDefault(l *logrus.Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if l == nil {
		l = logrus.StandardLogger()
	}
	defaultLogger = l
}

// revealPayloads controls how Sensitive values render.
var revealPayloads atomic.Bool

// SetRevealPayloads toggles logging of raw payloads.
func SetRevealPayloads(reveal bool) {
	revealPayloads.Store(reveal)
}

// Sensitive is a log field value that hides its content unless payload
// revealing is enabled.
type Sensitive struct {
	raw []byte
}

// Anonymize wraps a JSON document for logging.
func Anonymize(raw []byte) Sensitive {
	return Sensitive{raw: raw}
}

// String implements fmt.Stringer.
func (s Sensitive) String() string {
	if !revealPayloads.Load() {
		return "[anonymized " + strconv.Itoa(len(s.raw)) + " bytes]"
	}
	return string(pretty.Ugly(s.raw))
}

// MarshalJSON implements json.Marshaler so JSON output matches text output.
func (s Sensitive) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
