package event

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dshills/relay/internal/event/dispatch"
	"github.com/dshills/relay/internal/logging"
)

// Bus is the central event bus interface.
type Bus interface {
	// Subscribe registers a handler for a topic pattern.
	Subscribe(pattern string, handler Handler, opts ...SubscribeOption) (Subscription, error)

	// SubscribeFunc registers a function handler for a topic pattern.
	SubscribeFunc(pattern string, fn HandlerFunc, opts ...SubscribeOption) (Subscription, error)

	// Unsubscribe removes every subscription registered with handler.
	// Unknown handlers are ignored.
	//
	// Handlers are matched with ==, so handlers of non-comparable types
	// (HandlerFunc, func-typed or slice-holding handlers) can never match and
	// the call is a logged no-op. Remove those through their Subscription or
	// Meta.Unsubscribe.
	Unsubscribe(handler Handler)

	// Publish queues an event for delivery on the next host turn. The future
	// settles once the event and the events its subscribers published have
	// been delivered.
	Publish(name string, payload any, opts ...PublishOption) (*Future[struct{}], error)

	// PublishAndGatherReplies publishes a request and collects the did replies
	// of every collaborator that announced a will.
	PublishAndGatherReplies(name string, payload any, opts ...PublishOption) (*Future[[]Reply], error)

	// AddInspector registers an inspector and returns its removal function.
	AddInspector(fn Inspector) (remove func())

	// SetErrorHandler replaces the error handler. Nil restores the default.
	SetErrorHandler(fn ErrorHandler)

	// SetMediator installs a batch rewriting hook. Nil removes it.
	//
	// Deprecated: see Mediator.
	SetMediator(fn Mediator)

	// SetPendingDidTimeout changes the default request timeout.
	SetPendingDidTimeout(d time.Duration)

	// Stats returns bus statistics.
	Stats() Stats
}

// bus is the default implementation of Bus.
//
// The mutex guards the fields below it and is never held while user code
// (subscribers, inspectors, error handlers, future continuations) runs.
type bus struct {
	host     Host
	logger   logrus.FieldLogger
	executor *dispatch.Executor

	mu                sync.Mutex
	registry          *registry
	queue             []*QueuedEvent
	waiting           []func()
	inFlight          *Meta
	nextCycleID       int64
	inspectors        []*inspectorEntry
	errorHandler      ErrorHandler
	mediator          Mediator
	pendingDidTimeout time.Duration

	published uint64
	cycles    uint64
}

// NewBus creates a bus scheduled on host.
func NewBus(host Host, opts ...BusOption) Bus {
	if host == nil {
		panic("event: NewBus requires a host")
	}

	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}

	b := &bus{
		host:              host,
		logger:            config.logger,
		registry:          newRegistry(),
		pendingDidTimeout: config.pendingDidTimeout,
	}
	if b.logger == nil {
		b.logger = logging.Default().WithField("component", "event")
	}
	b.executor = dispatch.NewExecutor(dispatch.WithPanicHandler(func(v any, stack []byte) {
		b.logger.WithField("panic", v).Debugf("subscriber panic recovered\n%s", stack)
	}))

	b.errorHandler = config.errorHandler
	if b.errorHandler == nil {
		b.errorHandler = b.logError
	}
	for _, fn := range config.inspectors {
		b.inspectors = append(b.inspectors, &inspectorEntry{fn: fn})
	}

	return b
}

// Subscribe registers handler for every event matching pattern.
func (b *bus) Subscribe(pattern string, handler Handler, opts ...SubscribeOption) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if fn, ok := handler.(HandlerFunc); ok && fn == nil {
		return nil, ErrNilHandler
	}

	sub := newSubscription(b, pattern, handler, opts...)

	b.mu.Lock()
	b.registry.add(sub)
	cycleID := b.currentCycleLocked()
	b.mu.Unlock()

	b.notify(Action{
		Kind:    ActionSubscribe,
		Source:  sub.SubscriberID(),
		Target:  noTarget,
		Event:   pattern,
		Pattern: pattern,
		CycleID: cycleID,
	})
	return sub, nil
}

// SubscribeFunc registers a function handler.
func (b *bus) SubscribeFunc(pattern string, fn HandlerFunc, opts ...SubscribeOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.Subscribe(pattern, fn, opts...)
}

// Unsubscribe removes every subscription registered with handler.
// Non-comparable handlers are logged at debug level and otherwise ignored.
func (b *bus) Unsubscribe(handler Handler) {
	if handler != nil && !reflect.TypeOf(handler).Comparable() {
		b.logger.WithField("handler", fmt.Sprintf("%T", handler)).
			Debug("unsubscribe ignored for non-comparable handler; use Subscription.Unsubscribe")
		return
	}

	b.mu.Lock()
	removed := b.registry.removeHandler(handler)
	cycleID := b.currentCycleLocked()
	b.mu.Unlock()

	for _, sub := range removed {
		b.notifyUnsubscribe(sub, cycleID)
	}
}

// removeSubscription removes a single subscription.
func (b *bus) removeSubscription(sub *subscription) {
	b.mu.Lock()
	removed := b.registry.remove(sub)
	cycleID := b.currentCycleLocked()
	b.mu.Unlock()

	if removed {
		b.notifyUnsubscribe(sub, cycleID)
	}
}

// notifyUnsubscribe reports one removed subscription to inspectors.
func (b *bus) notifyUnsubscribe(sub *subscription, cycleID int64) {
	b.notify(Action{
		Kind:    ActionUnsubscribe,
		Source:  sub.SubscriberID(),
		Target:  noTarget,
		Event:   sub.pattern,
		Pattern: sub.pattern,
		CycleID: cycleID,
	})
}

// SetMediator installs or removes the batch rewriting hook.
func (b *bus) SetMediator(fn Mediator) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mediator = fn
}

// SetPendingDidTimeout changes the default request timeout.
func (b *bus) SetPendingDidTimeout(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingDidTimeout = d
}

// Stats returns bus statistics.
func (b *bus) Stats() Stats {
	exec := b.executor.Stats()

	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		EventsPublished:    b.published,
		EventsDelivered:    exec.Executed,
		HandlerErrors:      exec.Failed,
		HandlerPanics:      exec.Panicked,
		Cycles:             b.cycles,
		ActiveSubscribers:  b.registry.len(),
		QueueDepth:         len(b.queue),
		Inspectors:         len(b.inspectors),
		IndexNodes:         b.registry.nodes(),
		AvgHandlerDuration: exec.AvgDuration,
	}
}

// currentCycleLocked returns the in-flight cycle id, or -1 outside delivery.
func (b *bus) currentCycleLocked() int64 {
	if b.inFlight == nil {
		return -1
	}
	return b.inFlight.CycleID
}
