package event

import (
	"sync/atomic"

	"github.com/dshills/relay/internal/event/topic"
)

// Subscription represents a registered subscriber.
type Subscription interface {
	// Pattern returns the subscribed topic pattern.
	Pattern() string

	// SubscriberID returns the id given at subscribe time.
	SubscriberID() string

	// Clone reports whether the subscriber receives its own payload copies.
	Clone() bool

	// Weight returns the specificity used to order delivery.
	Weight() topic.Weight

	// Active reports whether the subscription is still registered.
	Active() bool

	// Unsubscribe removes the subscription. Calling it again is a no-op.
	Unsubscribe()
}

// subscription is the subscriber record stored in the index. All fields but
// removed are immutable after creation.
type subscription struct {
	pattern string
	handler Handler
	options SubscribeOptions
	weight  topic.Weight
	bus     *bus
	removed atomic.Bool
}

// newSubscription creates a subscriber record.
func newSubscription(b *bus, pattern string, h Handler, opts ...SubscribeOption) *subscription {
	options := DefaultSubscribeOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &subscription{
		pattern: pattern,
		handler: h,
		options: options,
		weight:  topic.ComputeWeight(pattern),
		bus:     b,
	}
}

// Pattern returns the subscribed topic pattern.
func (s *subscription) Pattern() string {
	return s.pattern
}

// SubscriberID returns the subscriber id.
func (s *subscription) SubscriberID() string {
	return s.options.SubscriberID
}

// Clone reports whether deliveries are copied.
func (s *subscription) Clone() bool {
	return s.options.Clone
}

// Weight returns the pattern specificity.
func (s *subscription) Weight() topic.Weight {
	return s.weight
}

// Active reports whether the subscription is still registered.
func (s *subscription) Active() bool {
	return !s.removed.Load()
}

// Unsubscribe removes the subscription from its bus.
func (s *subscription) Unsubscribe() {
	s.bus.removeSubscription(s)
}
