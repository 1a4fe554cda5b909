package event

import "github.com/google/uuid"

// Meta describes one published event. Every subscriber of the event receives
// the same values; only Unsubscribe is bound to the receiving subscription.
type Meta struct {
	// ID uniquely identifies the publish.
	ID string

	// Name is the published event name.
	Name string

	// CycleID is the delivery cycle the event belongs to. Events published
	// while another event is being delivered share its cycle id.
	CycleID int64

	// Sender is the publishing collaborator, if any.
	Sender string

	// Initiator is the sender of the event whose delivery caused this
	// publish, or Sender when the publish was not cascaded.
	Initiator string

	// Options are the publish options in effect.
	Options PublishOptions

	// unsubscribe removes the receiving subscription.
	unsubscribe func()
}

// Unsubscribe removes the subscription currently being invoked. Deliveries
// already in progress are unaffected.
func (m Meta) Unsubscribe() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Reply is one did event collected by PublishAndGatherReplies.
type Reply struct {
	// Event is the did payload.
	Event *Payload

	// Meta is the did event's metadata.
	Meta Meta
}

// QueuedEvent is an event waiting in the cycle queue. Mediators receive and
// return these; an item keeps its publish future only while the same pointer
// is returned.
type QueuedEvent struct {
	// Meta is the event metadata.
	Meta Meta

	// Payload is the frozen publish snapshot.
	Payload *Payload

	// resolve settles the publish future.
	resolve func()
}

// NewQueuedEvent builds an item a mediator can inject into a batch. Injected
// items have no publish future.
func NewQueuedEvent(name string, payload any, opts ...PublishOption) (*QueuedEvent, error) {
	if name == "" {
		return nil, ErrInvalidEventName
	}
	p, err := NewPayload(payload)
	if err != nil {
		return nil, err
	}
	o := PublishOptions{DeliverToSender: true}
	for _, opt := range opts {
		opt(&o)
	}
	return &QueuedEvent{
		Meta: Meta{
			ID:        generateID(),
			Name:      name,
			Sender:    o.Sender,
			Initiator: o.Sender,
			Options:   o,
		},
		Payload: p.freeze(),
	}, nil
}

// generateID returns a unique event id.
func generateID() string {
	return uuid.NewString()
}
