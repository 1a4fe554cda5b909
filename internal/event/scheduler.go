package event

// Publish queues an event for the next drain.
func (b *bus) Publish(name string, payload any, opts ...PublishOption) (*Future[struct{}], error) {
	if name == "" {
		return nil, ErrInvalidEventName
	}
	snapshot, err := NewPayload(payload)
	if err != nil {
		return nil, err
	}
	snapshot.freeze()

	options := PublishOptions{DeliverToSender: true}
	for _, opt := range opts {
		opt(&options)
	}

	future := newFuture[struct{}]()
	item := &QueuedEvent{
		Meta: Meta{
			ID:      generateID(),
			Name:    name,
			Sender:  options.Sender,
			Options: options,
		},
		Payload: snapshot,
		resolve: func() { future.resolve(struct{}{}) },
	}

	b.mu.Lock()
	if b.inFlight != nil {
		item.Meta.CycleID = b.inFlight.CycleID
		item.Meta.Initiator = b.inFlight.Sender
	} else {
		item.Meta.CycleID = b.nextCycleID
		b.nextCycleID++
		item.Meta.Initiator = options.Sender
	}
	wasEmpty := len(b.queue) == 0
	b.queue = append(b.queue, item)
	b.published++
	b.mu.Unlock()

	b.notify(Action{
		Kind:    ActionPublish,
		Source:  options.Sender,
		Target:  noTarget,
		Event:   name,
		CycleID: item.Meta.CycleID,
		Payload: snapshot,
	})

	if wasEmpty {
		b.host.NextTick(b.drain)
	}
	return future, nil
}

// drain delivers the queued batch and settles publish futures.
//
// Resolvers of a batch whose subscribers published new events are held back
// until the drain of those events has completed, so a publish future never
// settles before the deliveries it cascaded into.
func (b *bus) drain() {
	b.mu.Lock()
	batch := b.queue
	b.queue = nil
	mediator := b.mediator
	b.mu.Unlock()

	if mediator != nil {
		batch = mediator(batch)
	}

	resolvers := make([]func(), 0, len(batch))
	for _, item := range batch {
		if item == nil {
			continue
		}
		b.deliver(item)
		if item.resolve != nil {
			resolvers = append(resolvers, item.resolve)
		}
	}

	b.mu.Lock()
	previousWaiting := b.waiting
	queueEmpty := len(b.queue) == 0
	if queueEmpty {
		b.waiting = nil
	} else {
		b.waiting = resolvers
	}
	b.cycles++
	b.mu.Unlock()

	for _, resolve := range previousWaiting {
		resolve()
	}
	if queueEmpty {
		for _, resolve := range resolvers {
			resolve()
		}
	}
}
