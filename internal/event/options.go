package event

import (
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultPendingDidTimeout is how long a request waits for outstanding did
// replies unless configured otherwise.
const DefaultPendingDidTimeout = 120 * time.Second

// BusOption configures an event Bus.
type BusOption func(*busConfig)

// busConfig contains configuration for the event bus.
type busConfig struct {
	// pendingDidTimeout is the request timeout used when a publish does not set one.
	pendingDidTimeout time.Duration

	// errorHandler receives subscriber failures and request timeouts.
	errorHandler ErrorHandler

	// logger backs the default error handler.
	logger logrus.FieldLogger

	// inspectors are registered before the bus is returned.
	inspectors []Inspector
}

// defaultBusConfig returns sensible default configuration.
func defaultBusConfig() busConfig {
	return busConfig{
		pendingDidTimeout: DefaultPendingDidTimeout,
	}
}

// WithDefaultPendingDidTimeout sets the bus-wide request timeout.
// A zero or negative value disables request timeouts.
func WithDefaultPendingDidTimeout(d time.Duration) BusOption {
	return func(c *busConfig) {
		c.pendingDidTimeout = d
	}
}

// WithErrorHandler replaces the logging error handler.
func WithErrorHandler(h ErrorHandler) BusOption {
	return func(c *busConfig) {
		c.errorHandler = h
	}
}

// WithLogger sets the logger used by the default error handler.
func WithLogger(l logrus.FieldLogger) BusOption {
	return func(c *busConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithInspector registers an inspector at construction time.
func WithInspector(fn Inspector) BusOption {
	return func(c *busConfig) {
		if fn != nil {
			c.inspectors = append(c.inspectors, fn)
		}
	}
}

// SubscribeOptions contains per-subscription settings.
type SubscribeOptions struct {
	// SubscriberID identifies the subscriber in inspections, error reports and
	// self-delivery suppression.
	SubscriberID string

	// Clone gives the subscriber its own mutable copy of every payload.
	// When false the subscriber receives a frozen payload shared with other
	// non-cloning subscribers of the same event.
	Clone bool
}

// DefaultSubscribeOptions returns the default subscription settings.
func DefaultSubscribeOptions() SubscribeOptions {
	return SubscribeOptions{Clone: true}
}

// SubscribeOption is a function that configures a subscription.
type SubscribeOption func(*SubscribeOptions)

// WithSubscriberID sets the subscriber id.
func WithSubscriberID(id string) SubscribeOption {
	return func(o *SubscribeOptions) {
		o.SubscriberID = id
	}
}

// WithClone controls whether the subscriber receives its own payload copy.
func WithClone(clone bool) SubscribeOption {
	return func(o *SubscribeOptions) {
		o.Clone = clone
	}
}

// PublishOptions contains per-publish settings. They are visible to
// subscribers as Meta.Options.
type PublishOptions struct {
	// Sender identifies the publishing collaborator.
	Sender string

	// DeliverToSender allows delivery to subscriptions whose subscriber id
	// equals Sender.
	DeliverToSender bool

	// PendingDidTimeout bounds how long PublishAndGatherReplies waits for did
	// replies. Zero disables the timeout.
	PendingDidTimeout time.Duration
}

// PublishOption is a function that configures a publish.
type PublishOption func(*PublishOptions)

// WithSender sets the publishing sender.
func WithSender(sender string) PublishOption {
	return func(o *PublishOptions) {
		o.Sender = sender
	}
}

// WithDeliverToSender controls delivery to the sender's own subscriptions.
// When false, subscribers whose id equals the sender are skipped; an
// anonymous publish then skips anonymous subscribers.
func WithDeliverToSender(deliver bool) PublishOption {
	return func(o *PublishOptions) {
		o.DeliverToSender = deliver
	}
}

// WithPendingDidTimeout overrides the bus request timeout for one request.
// A zero or negative value arms no timer: the request waits for its did
// replies indefinitely instead of expiring on the next timer turn.
func WithPendingDidTimeout(d time.Duration) PublishOption {
	return func(o *PublishOptions) {
		o.PendingDidTimeout = d
	}
}
