// Package trace prints bus activity as human readable lines.
package trace

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/tidwall/match"
	"github.com/tidwall/pretty"
	"golang.org/x/term"

	"github.com/dshills/relay/internal/event"
)

// ANSI colors per action kind.
var kindColors = map[event.ActionKind]string{
	event.ActionSubscribe:   "\x1b[36m",
	event.ActionUnsubscribe: "\x1b[35m",
	event.ActionPublish:     "\x1b[33m",
	event.ActionDeliver:     "\x1b[32m",
}

const colorReset = "\x1b[0m"

// Tracer writes one line per inspected action.
type Tracer struct {
	mu       sync.Mutex
	w        io.Writer
	filter   string
	color    bool
	payloads bool
	lines    int
}

// Option configures a Tracer.
type Option func(*Tracer)

// WithFilter only traces actions whose event (or pattern) matches glob.
// Glob syntax is "*" for any run of characters and "?" for one character.
func WithFilter(glob string) Option {
	return func(t *Tracer) {
		t.filter = glob
	}
}

// WithColor enables ANSI colors.
func WithColor(enabled bool) Option {
	return func(t *Tracer) {
		t.color = enabled
	}
}

// WithPayloads appends publish payloads to publish lines.
func WithPayloads(enabled bool) Option {
	return func(t *Tracer) {
		t.payloads = enabled
	}
}

// New creates a tracer writing to w.
func New(w io.Writer, opts ...Option) *Tracer {
	t := &Tracer{w: w}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Inspect writes a line for a. Its method value is an event.Inspector.
func (t *Tracer) Inspect(a event.Action) {
	if t.filter != "" && !match.Match(a.Event, t.filter) {
		return
	}

	line := t.format(a)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines++
	_, _ = io.WriteString(t.w, line)
}

// Lines returns the number of lines written.
func (t *Tracer) Lines() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lines
}

// format renders one action.
func (t *Tracer) format(a event.Action) string {
	kind := fmt.Sprintf("%-11s", a.Kind)
	if t.color {
		kind = kindColors[a.Kind] + kind + colorReset
	}

	cycle := "-"
	if a.CycleID >= 0 {
		cycle = fmt.Sprint(a.CycleID)
	}

	source := a.Source
	if source == "" {
		source = "?"
	}
	target := a.Target
	if target == "" {
		target = "?"
	}

	line := fmt.Sprintf("[cycle %s] %s %s -> %s %s", cycle, kind, source, target, a.Event)
	if a.Kind == event.ActionDeliver && a.Pattern != a.Event {
		line += fmt.Sprintf(" (subscribed to: %q)", a.Pattern)
	}
	if t.payloads && a.Kind == event.ActionPublish && a.Payload != nil {
		body := pretty.Ugly(a.Payload.Bytes())
		if t.color {
			body = pretty.Color(body, nil)
		}
		line += " " + string(body)
	}
	return line + "\n"
}

// ColorEnabled resolves a color mode ("auto", "always", "never") for f.
// Auto enables colors when f is a terminal.
func ColorEnabled(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		return f != nil && term.IsTerminal(int(f.Fd()))
	}
}
