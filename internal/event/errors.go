package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Sentinel errors for the event bus.
var (
	// ErrInvalidEventName is returned when an event name is empty.
	ErrInvalidEventName = errors.New("event name must be a non-empty string")

	// ErrInvalidRequestName is returned when a request name does not end in "Request".
	ErrInvalidRequestName = errors.New("request name must match <name>Request[.<suffix>]")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrMissingSender is returned by the will collector when a will event has no sender.
	ErrMissingSender = errors.New("will event requires a sender")

	// ErrFrozen is returned when writing to a payload shared between subscribers.
	ErrFrozen = errors.New("payload is frozen")

	// ErrInvalidPayload is returned when a payload cannot be represented as JSON.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrHandlerPanic is matched by every PanicError.
	ErrHandlerPanic = errors.New("handler panicked")

	// ErrRequestTimeout is matched by every TimeoutError.
	ErrRequestTimeout = errors.New("request timed out")
)

// HandlerError wraps an error returned by a subscriber.
type HandlerError struct {
	// SubscriberID is the id the failing subscription was registered with.
	SubscriberID string

	// Pattern is the topic pattern the subscription matched on.
	Pattern string

	// Event is the name of the event being delivered.
	Event string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("subscriber %q failed on %s (subscribed to: %s): %v", e.SubscriberID, e.Event, e.Pattern, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError wraps a subscriber panic as an error.
type PanicError struct {
	// SubscriberID is the id the panicking subscription was registered with.
	SubscriberID string

	// Pattern is the topic pattern the subscription matched on.
	Pattern string

	// Event is the name of the event being delivered.
	Event string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("subscriber %q panicked on %s (subscribed to: %s): %v", e.SubscriberID, e.Event, e.Pattern, e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}

// TimeoutError is the rejection of a request whose will senders did not all
// reply in time.
type TimeoutError struct {
	// Request is the name of the published request event.
	Request string

	// Did is the did event name that was awaited.
	Did string

	// Timeout is the configured pending did timeout.
	Timeout time.Duration

	// Pending lists the senders that announced a will without a did.
	Pending []string
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s waiting for %s on %s (missing: %s)",
		e.Timeout, e.Did, e.Request, strings.Join(e.Pending, ", "))
}

// Is allows errors.Is to match TimeoutError with ErrRequestTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrRequestTimeout
}
