package event

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dshills/relay/internal/logging"
)

// ActionKind names what an inspector is being told about.
type ActionKind string

// Inspected actions.
const (
	ActionSubscribe   ActionKind = "subscribe"
	ActionUnsubscribe ActionKind = "unsubscribe"
	ActionPublish     ActionKind = "publish"
	ActionDeliver     ActionKind = "deliver"
)

// noTarget fills Action.Target for actions without a receiving subscriber.
const noTarget = "-"

// Action is one record handed to inspectors.
type Action struct {
	// Kind is the action type.
	Kind ActionKind

	// Source is the sender for publish and deliver, the subscriber id otherwise.
	Source string

	// Target is the receiving subscriber id for deliver, "-" otherwise.
	Target string

	// Event is the event name, or the pattern for subscribe and unsubscribe.
	Event string

	// Pattern is the subscription pattern involved, if any.
	Pattern string

	// CycleID is the cycle of the event, or the in-flight cycle for
	// subscribe and unsubscribe (-1 outside delivery).
	CycleID int64

	// Payload is the frozen publish snapshot for publish and deliver.
	Payload *Payload
}

// Inspector observes bus activity. Inspectors run synchronously and must not
// block.
type Inspector func(Action)

// ErrorReport describes a subscriber failure or a request timeout.
type ErrorReport struct {
	// Message is a human readable summary.
	Message string

	// Err is a *HandlerError, *PanicError or *TimeoutError.
	Err error

	// Event is the original, unmodified payload.
	Event *Payload

	// Meta is the metadata of the event involved.
	Meta Meta

	// Subscriber is the failing subscription. Nil for timeouts.
	Subscriber Subscription

	// Pending lists senders still owing a did reply. Timeouts only.
	Pending []string

	// Timeout is the request timeout that elapsed. Timeouts only.
	Timeout time.Duration
}

// ErrorHandler receives error reports.
type ErrorHandler func(ErrorReport)

// inspectorEntry gives inspector funcs an identity for removal.
type inspectorEntry struct {
	fn Inspector
}

// AddInspector registers fn and returns a function that removes it again.
func (b *bus) AddInspector(fn Inspector) (remove func()) {
	if fn == nil {
		return func() {}
	}
	entry := &inspectorEntry{fn: fn}

	b.mu.Lock()
	b.inspectors = append(b.inspectors, entry)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, e := range b.inspectors {
			if e == entry {
				b.inspectors = append(b.inspectors[:i:i], b.inspectors[i+1:]...)
				return
			}
		}
	}
}

// SetErrorHandler replaces the error handler. Nil restores the default
// logging handler.
func (b *bus) SetErrorHandler(fn ErrorHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if fn == nil {
		fn = b.logError
	}
	b.errorHandler = fn
}

// notify hands an action to every inspector registered at call time.
func (b *bus) notify(action Action) {
	b.mu.Lock()
	inspectors := b.inspectors
	b.mu.Unlock()

	for _, e := range inspectors {
		e.fn(action)
	}
}

// report forwards an error report to the current error handler.
func (b *bus) report(r ErrorReport) {
	b.mu.Lock()
	handler := b.errorHandler
	b.mu.Unlock()

	handler(r)
}

// logError is the default error handler.
func (b *bus) logError(r ErrorReport) {
	logErrorReport(b.logger, r)
}

// LogErrorHandler returns an error handler that logs reports to logger the
// way the default handler does. The payload is logged anonymized.
func LogErrorHandler(logger logrus.FieldLogger) ErrorHandler {
	return func(r ErrorReport) {
		logErrorReport(logger, r)
	}
}

// logErrorReport writes one report as a structured error entry.
func logErrorReport(logger logrus.FieldLogger, r ErrorReport) {
	fields := logrus.Fields{
		"event":  r.Meta.Name,
		"cycle":  r.Meta.CycleID,
		"sender": r.Meta.Sender,
	}
	if r.Subscriber != nil {
		fields["subscriber"] = r.Subscriber.SubscriberID()
		fields["pattern"] = r.Subscriber.Pattern()
	}
	if r.Event != nil {
		fields["payload"] = logging.Anonymize(r.Event.raw)
	}
	if len(r.Pending) > 0 {
		fields["pending"] = strings.Join(r.Pending, ", ")
		fields["timeout"] = r.Timeout.String()
	}

	entry := logger.WithFields(fields)
	if r.Err != nil {
		entry = entry.WithError(r.Err)
	}
	entry.Error(r.Message)
}
