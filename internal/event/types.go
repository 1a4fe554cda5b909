package event

import (
	"time"

	"github.com/pkg/errors"
)

// Handler processes delivered events.
type Handler interface {
	// HandleEvent is called with the delivered payload and its metadata.
	// A returned error is reported to the bus error handler; it never stops
	// delivery to the remaining subscribers.
	HandleEvent(payload *Payload, meta Meta) error
}

// HandlerFunc is a function adapter for Handler.
//
// Function values are not comparable, so a HandlerFunc cannot be removed with
// Bus.Unsubscribe. Use the returned Subscription or Meta.Unsubscribe instead.
type HandlerFunc func(payload *Payload, meta Meta) error

// HandleEvent implements Handler.
func (f HandlerFunc) HandleEvent(payload *Payload, meta Meta) error {
	return f(payload, meta)
}

// Typed wraps a function that takes the payload decoded into T.
// Decoding failures are returned as handler errors.
func Typed[T any](fn func(value T, meta Meta) error) Handler {
	return HandlerFunc(func(payload *Payload, meta Meta) error {
		var v T
		if err := payload.Decode(&v); err != nil {
			return errors.Wrapf(err, "decode %s payload", meta.Name)
		}
		return fn(v, meta)
	})
}

// Host supplies the scheduling primitives the bus runs on.
// Both callbacks must run on the host's single event turn.
type Host interface {
	// NextTick runs fn once, on a later turn.
	NextTick(fn func())

	// AfterFunc runs fn on a turn after d has elapsed. The returned function
	// cancels the timer if it has not fired yet.
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

// Mediator may rewrite the batch of queued events right before delivery.
//
// Deprecated: kept for compatibility with older collaborators. Events dropped
// by a mediator are never delivered and their publish futures never settle.
type Mediator func(batch []*QueuedEvent) []*QueuedEvent

// Stats contains bus statistics.
type Stats struct {
	// EventsPublished is the total number of accepted publishes.
	EventsPublished uint64

	// EventsDelivered is the total number of subscriber invocations.
	EventsDelivered uint64

	// HandlerErrors is the number of invocations that returned an error.
	HandlerErrors uint64

	// HandlerPanics is the number of invocations that panicked.
	HandlerPanics uint64

	// Cycles is the number of completed drains.
	Cycles uint64

	// ActiveSubscribers is the number of registered subscriptions.
	ActiveSubscribers int

	// QueueDepth is the number of events waiting for the next drain.
	QueueDepth int

	// Inspectors is the number of registered inspectors.
	Inspectors int

	// IndexNodes is the number of nodes in the subscription index,
	// including its root. It shrinks again as patterns are unsubscribed.
	IndexNodes int

	// AvgHandlerDuration is the mean time spent in one subscriber invocation.
	AvgHandlerDuration time.Duration
}
