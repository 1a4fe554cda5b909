package event

import (
	"fmt"

	"github.com/dshills/relay/internal/event/dispatch"
)

// deliver invokes every subscriber matching one queued event, most specific
// first. Subscriber failures are reported and never stop the loop.
func (b *bus) deliver(item *QueuedEvent) {
	meta := item.Meta

	b.mu.Lock()
	subs := b.registry.match(meta.Name)
	previous := b.inFlight
	b.inFlight = &meta
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.inFlight = previous
		b.mu.Unlock()
	}()

	for _, sub := range subs {
		if !meta.Options.DeliverToSender && sub.SubscriberID() == meta.Sender {
			continue
		}

		// The snapshot is frozen, so non-cloning subscribers can share it.
		value := item.Payload
		if sub.options.Clone {
			value = item.Payload.Clone()
		}

		subMeta := meta
		subMeta.unsubscribe = sub.Unsubscribe

		result := b.executor.Execute(func() error {
			return sub.handler.HandleEvent(value, subMeta)
		})
		if !result.IsSuccess() {
			b.reportFailure(item, sub, result)
		}

		b.notify(Action{
			Kind:    ActionDeliver,
			Source:  meta.Sender,
			Target:  sub.SubscriberID(),
			Event:   meta.Name,
			Pattern: sub.pattern,
			CycleID: meta.CycleID,
			Payload: item.Payload,
		})
	}
}

// reportFailure builds the error report for a failed invocation.
func (b *bus) reportFailure(item *QueuedEvent, sub *subscription, result dispatch.Result) {
	var err error
	if result.IsPanic() {
		err = &PanicError{
			SubscriberID: sub.SubscriberID(),
			Pattern:      sub.pattern,
			Event:        item.Meta.Name,
			Value:        result.PanicValue,
			Stack:        string(result.PanicStack),
		}
	} else {
		err = &HandlerError{
			SubscriberID: sub.SubscriberID(),
			Pattern:      sub.pattern,
			Event:        item.Meta.Name,
			Err:          result.Error,
		}
	}

	b.report(ErrorReport{
		Message: fmt.Sprintf("error while calling subscriber %q for event %s published by %q (subscribed to: %s)",
			sub.SubscriberID(), item.Meta.Name, item.Meta.Sender, sub.pattern),
		Err:        err,
		Event:      item.Payload,
		Meta:       item.Meta,
		Subscriber: sub,
	})
}
