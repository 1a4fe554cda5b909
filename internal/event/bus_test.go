package event

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/relay/internal/loop"
)

// recorder is a comparable handler that records event names.
type recorder struct {
	calls []string
}

func (r *recorder) HandleEvent(_ *Payload, meta Meta) error {
	r.calls = append(r.calls, meta.Name)
	return nil
}

// testBus wires a bus to a manual host and captures error reports.
type testBus struct {
	Bus
	host    *loop.Manual
	reports []ErrorReport
}

func newTestBus(t *testing.T, opts ...BusOption) *testBus {
	t.Helper()
	tb := &testBus{host: loop.NewManual()}
	opts = append([]BusOption{WithErrorHandler(func(r ErrorReport) {
		tb.reports = append(tb.reports, r)
	})}, opts...)
	tb.Bus = NewBus(tb.host, opts...)
	return tb
}

func (tb *testBus) publish(t *testing.T, name string, payload any, opts ...PublishOption) *Future[struct{}] {
	t.Helper()
	f, err := tb.Publish(name, payload, opts...)
	require.NoError(t, err)
	return f
}

func (tb *testBus) subscribe(t *testing.T, pattern string, fn HandlerFunc, opts ...SubscribeOption) Subscription {
	t.Helper()
	sub, err := tb.SubscribeFunc(pattern, fn, opts...)
	require.NoError(t, err)
	return sub
}

func TestBus_ShortPatternMatchesLongerTopic(t *testing.T) {
	tb := newTestBus(t)
	rec := &recorder{}
	_, err := tb.Subscribe("didSave", rec)
	require.NoError(t, err)

	for _, name := range []string{"didSave", "didSave.document", "didSave.document.draft.v2"} {
		tb.publish(t, name, nil)
	}
	tb.host.Flush()

	assert.Equal(t, []string{"didSave", "didSave.document", "didSave.document.draft.v2"}, rec.calls)
}

func TestBus_DeliveryOrder(t *testing.T) {
	tb := newTestBus(t)
	subscriptions := []string{
		"topic1.topic2-sub2.topic3",
		"topic1.topic2.topic3-sub3",
		"topic1.topic2.topic3",
		"topic1-sub1.topic2-sub2",
		"topic1-sub1.topic2",
		"topic1.topic2",
		"topic1",
		".topic2",
		"",
	}

	var delivered []string
	// Subscribe in reverse to show order does not depend on registration.
	for i := len(subscriptions) - 1; i >= 0; i-- {
		pattern := subscriptions[i]
		tb.subscribe(t, pattern, func(*Payload, Meta) error {
			delivered = append(delivered, pattern)
			return nil
		})
	}

	tb.publish(t, "topic1-sub1.topic2-sub2.topic3-sub3", nil)
	tb.host.Flush()

	assert.Equal(t, subscriptions, delivered)
}

func TestBus_EqualWeightKeepsSubscribeOrder(t *testing.T) {
	tb := newTestBus(t)
	var delivered []int
	for i := 0; i < 5; i++ {
		tb.subscribe(t, "event", func(*Payload, Meta) error {
			delivered = append(delivered, i)
			return nil
		})
	}

	tb.publish(t, "event", nil)
	tb.host.Flush()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, delivered)
}

func TestBus_NothingDeliveredBeforeNextTick(t *testing.T) {
	tb := newTestBus(t)
	called := false
	tb.subscribe(t, "e", func(*Payload, Meta) error {
		called = true
		return nil
	})

	f := tb.publish(t, "e", nil)
	assert.False(t, called)
	assert.False(t, f.Settled())

	tb.host.Flush()
	assert.True(t, called)
	assert.True(t, f.Settled())
}

func TestBus_SameTurnPublishesShareOneDrain(t *testing.T) {
	tb := newTestBus(t)
	var delivered []string
	tb.subscribe(t, "", func(_ *Payload, meta Meta) error {
		delivered = append(delivered, meta.Name)
		return nil
	})

	tb.publish(t, "a", nil)
	tb.publish(t, "b", nil)
	tb.publish(t, "c", nil)

	tasks, _ := tb.host.Pending()
	assert.Equal(t, 1, tasks, "only the first publish schedules a drain")

	assert.Equal(t, 1, tb.host.Flush())
	assert.Equal(t, []string{"a", "b", "c"}, delivered)
	assert.Equal(t, uint64(1), tb.Stats().Cycles)
}

func TestBus_CascadeSettlesAfterNestedDelivery(t *testing.T) {
	tb := newTestBus(t)
	var log []string

	tb.subscribe(t, "x", func(*Payload, Meta) error {
		log = append(log, "deliver x")
		_, err := tb.Publish("y", nil)
		return err
	})
	tb.subscribe(t, "y", func(*Payload, Meta) error {
		log = append(log, "deliver y")
		return nil
	})

	f := tb.publish(t, "x", nil)
	f.Then(func(struct{}, error) {
		log = append(log, "x settled")
	})

	// First drain delivers x only; the promise waits for the cascade.
	tb.host.Step()
	assert.Equal(t, []string{"deliver x"}, log)
	assert.False(t, f.Settled())

	tb.host.Step()
	assert.Equal(t, []string{"deliver x", "deliver y", "x settled"}, log)
}

func TestBus_CycleIDs(t *testing.T) {
	tb := newTestBus(t)
	metas := map[string]Meta{}
	tb.subscribe(t, "", func(_ *Payload, meta Meta) error {
		metas[meta.Name] = meta
		if meta.Name == "a" {
			_, err := tb.Publish("cascade", nil, WithSender("b-side"))
			return err
		}
		return nil
	})

	tb.publish(t, "a", nil, WithSender("alice"))
	tb.publish(t, "b", nil, WithSender("bob"))
	tb.host.Flush()

	require.Len(t, metas, 3)
	assert.Equal(t, int64(0), metas["a"].CycleID)
	assert.Equal(t, int64(1), metas["b"].CycleID)
	assert.Equal(t, int64(0), metas["cascade"].CycleID, "cascade inherits the delivering cycle")
	assert.Equal(t, "alice", metas["a"].Initiator)
	assert.Equal(t, "alice", metas["cascade"].Initiator)
	assert.Equal(t, "b-side", metas["cascade"].Sender)
	assert.NotEqual(t, metas["a"].ID, metas["b"].ID)

	tb.publish(t, "c", nil)
	tb.host.Flush()
	assert.Equal(t, int64(2), metas["c"].CycleID)
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	tb := newTestBus(t)
	var actions []Action
	tb.AddInspector(func(a Action) {
		if a.Kind == ActionUnsubscribe {
			actions = append(actions, a)
		}
	})

	rec := &recorder{}
	_, err := tb.Subscribe("a", rec, WithSubscriberID("rec"))
	require.NoError(t, err)
	_, err = tb.Subscribe("b.c", rec, WithSubscriberID("rec"))
	require.NoError(t, err)

	tb.Unsubscribe(rec)
	assert.NotPanics(t, func() { tb.Unsubscribe(rec) })

	tb.publish(t, "a", nil)
	tb.publish(t, "b.c", nil)
	tb.host.Flush()

	assert.Empty(t, rec.calls)
	assert.Len(t, actions, 2, "one unsubscribe action per removed record")
	assert.Equal(t, 0, tb.Stats().ActiveSubscribers)
}

func TestBus_UnsubscribeFuncHandlerIsNoop(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	tb := newTestBus(t, WithLogger(logger))
	calls := 0
	fn := HandlerFunc(func(*Payload, Meta) error {
		calls++
		return nil
	})
	sub := tb.subscribe(t, "a", fn)

	assert.NotPanics(t, func() { tb.Unsubscribe(fn) })
	assert.NotPanics(t, func() { tb.Unsubscribe(fn) })
	tb.publish(t, "a", nil)
	tb.host.Flush()
	assert.Equal(t, 1, calls, "func handlers cannot be matched by value")
	assert.Equal(t, 2, strings.Count(buf.String(), "unsubscribe ignored for non-comparable handler"))
	assert.Contains(t, buf.String(), "event.HandlerFunc")
	assert.Equal(t, 1, tb.Stats().ActiveSubscribers)

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.False(t, sub.Active())
	tb.publish(t, "a", nil)
	tb.host.Flush()
	assert.Equal(t, 1, calls)
}

func TestBus_MetaUnsubscribeAffectsFutureDeliveries(t *testing.T) {
	tb := newTestBus(t)
	var delivered []string
	tb.subscribe(t, "e", func(_ *Payload, meta Meta) error {
		delivered = append(delivered, "once")
		meta.Unsubscribe()
		return nil
	})
	tb.subscribe(t, "e", func(*Payload, Meta) error {
		delivered = append(delivered, "always")
		return nil
	})

	tb.publish(t, "e", nil)
	tb.publish(t, "e", nil)
	tb.host.Flush()

	assert.Equal(t, []string{"once", "always", "always"}, delivered)
}

func TestBus_UnsubscribeDuringDeliveryDoesNotSkipCurrentLoop(t *testing.T) {
	tb := newTestBus(t)
	var delivered []string
	var second Subscription
	tb.subscribe(t, "e.x", func(*Payload, Meta) error {
		delivered = append(delivered, "first")
		second.Unsubscribe()
		return nil
	})
	second = tb.subscribe(t, "e", func(*Payload, Meta) error {
		delivered = append(delivered, "second")
		return nil
	})

	tb.publish(t, "e.x", nil)
	tb.host.Flush()
	tb.publish(t, "e.x", nil)
	tb.host.Flush()

	assert.Equal(t, []string{"first", "second", "first"}, delivered)
}

func TestBus_PayloadSnapshot(t *testing.T) {
	tb := newTestBus(t)
	var seen int64
	tb.subscribe(t, "e", func(p *Payload, _ Meta) error {
		seen = p.Get("data.x").Int()
		return nil
	})

	event := map[string]any{"data": map[string]any{"x": 12}}
	tb.publish(t, "e", event)
	event["data"].(map[string]any)["x"] = 42
	tb.host.Flush()

	assert.Equal(t, int64(12), seen)
}

func TestBus_CloneAndFrozenDelivery(t *testing.T) {
	tb := newTestBus(t)
	var firstSeen, secondSeen int64
	var frozenErr error
	var frozenA, frozenB *Payload

	tb.subscribe(t, "e", func(p *Payload, _ Meta) error {
		require.NoError(t, p.Set("data.x", 1))
		firstSeen = p.Get("data.x").Int()
		return nil
	})
	tb.subscribe(t, "e", func(p *Payload, _ Meta) error {
		secondSeen = p.Get("data.x").Int()
		return p.Set("data.x", 2)
	})
	tb.subscribe(t, "e", func(p *Payload, _ Meta) error {
		frozenA = p
		frozenErr = p.Set("data.x", 3)
		return nil
	}, WithClone(false))
	tb.subscribe(t, "e", func(p *Payload, _ Meta) error {
		frozenB = p
		return nil
	}, WithClone(false))

	tb.publish(t, "e", map[string]any{"data": map[string]any{"x": 12}})
	tb.host.Flush()

	assert.Equal(t, int64(1), firstSeen)
	assert.Equal(t, int64(12), secondSeen)
	assert.ErrorIs(t, frozenErr, ErrFrozen)
	require.NotNil(t, frozenA)
	assert.True(t, frozenA.Frozen())
	assert.Same(t, frozenA, frozenB, "non-cloning subscribers share one frozen payload")
	assert.Equal(t, int64(12), frozenA.Get("data.x").Int())
	assert.Empty(t, tb.reports)
}

func TestBus_DeliverToSenderSuppression(t *testing.T) {
	tb := newTestBus(t)
	var delivered []string
	tb.subscribe(t, "e", func(*Payload, Meta) error {
		delivered = append(delivered, "self")
		return nil
	}, WithSubscriberID("me"))
	tb.subscribe(t, "e", func(*Payload, Meta) error {
		delivered = append(delivered, "other")
		return nil
	}, WithSubscriberID("other"))

	tb.publish(t, "e", nil, WithSender("me"), WithDeliverToSender(false))
	tb.host.Flush()
	assert.Equal(t, []string{"other"}, delivered)

	delivered = nil
	tb.publish(t, "e", nil, WithSender("me"))
	tb.host.Flush()
	assert.Equal(t, []string{"self", "other"}, delivered)
}

func TestBus_DeliverToSenderSuppressesAnonymousSubscribers(t *testing.T) {
	tb := newTestBus(t)
	var delivered []string
	tb.subscribe(t, "e", func(*Payload, Meta) error {
		delivered = append(delivered, "anonymous")
		return nil
	})
	tb.subscribe(t, "e", func(*Payload, Meta) error {
		delivered = append(delivered, "named")
		return nil
	}, WithSubscriberID("named"))

	tb.publish(t, "e", nil, WithDeliverToSender(false))
	tb.host.Flush()
	assert.Equal(t, []string{"named"}, delivered, "an empty sender equals an empty subscriber id")

	delivered = nil
	tb.publish(t, "e", nil)
	tb.host.Flush()
	assert.ElementsMatch(t, []string{"anonymous", "named"}, delivered)
}

func TestBus_SubscriberFailureIsIsolated(t *testing.T) {
	tb := newTestBus(t)
	var delivered []string
	boom := errors.New("boom")

	tb.subscribe(t, "e", func(*Payload, Meta) error {
		delivered = append(delivered, "failing")
		return boom
	}, WithSubscriberID("s1"))
	tb.subscribe(t, "e", func(*Payload, Meta) error {
		delivered = append(delivered, "panicking")
		panic("kaput")
	}, WithSubscriberID("s2"))
	tb.subscribe(t, "e", func(*Payload, Meta) error {
		delivered = append(delivered, "healthy")
		return nil
	}, WithSubscriberID("s3"))

	f := tb.publish(t, "e", map[string]any{"k": "v"}, WithSender("p"))
	tb.host.Flush()

	assert.Equal(t, []string{"failing", "panicking", "healthy"}, delivered)
	assert.True(t, f.Settled())
	_, err := f.Result()
	assert.NoError(t, err)

	require.Len(t, tb.reports, 2)
	first := tb.reports[0]
	assert.Equal(t, `error while calling subscriber "s1" for event e published by "p" (subscribed to: e)`, first.Message)
	assert.ErrorIs(t, first.Err, boom)
	var handlerErr *HandlerError
	require.ErrorAs(t, first.Err, &handlerErr)
	assert.Equal(t, "s1", handlerErr.SubscriberID)
	assert.Equal(t, "e", first.Meta.Name)
	assert.Equal(t, "v", first.Event.Get("k").String())
	assert.Equal(t, "s1", first.Subscriber.SubscriberID())

	second := tb.reports[1]
	assert.ErrorIs(t, second.Err, ErrHandlerPanic)
	var panicErr *PanicError
	require.ErrorAs(t, second.Err, &panicErr)
	assert.Equal(t, "kaput", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)

	stats := tb.Stats()
	assert.Equal(t, uint64(3), stats.EventsDelivered)
	assert.Equal(t, uint64(1), stats.HandlerErrors)
	assert.Equal(t, uint64(1), stats.HandlerPanics)
}

func TestBus_Inspectors(t *testing.T) {
	tb := newTestBus(t)
	var actions []Action
	remove := tb.AddInspector(func(a Action) {
		actions = append(actions, a)
	})

	sub := tb.subscribe(t, "a", func(*Payload, Meta) error { return nil }, WithSubscriberID("s"))
	tb.publish(t, "a.b", map[string]any{"n": 1}, WithSender("p"))
	tb.host.Flush()
	sub.Unsubscribe()

	require.Len(t, actions, 4)
	kinds := make([]ActionKind, len(actions))
	for i, a := range actions {
		kinds[i] = a.Kind
	}
	assert.Equal(t, []ActionKind{ActionSubscribe, ActionPublish, ActionDeliver, ActionUnsubscribe}, kinds)

	assert.Equal(t, Action{Kind: ActionSubscribe, Source: "s", Target: "-", Event: "a", Pattern: "a", CycleID: -1}, actions[0])

	publish := actions[1]
	assert.Equal(t, "p", publish.Source)
	assert.Equal(t, "-", publish.Target)
	assert.Equal(t, "a.b", publish.Event)
	assert.Equal(t, int64(0), publish.CycleID)
	assert.Equal(t, int64(1), publish.Payload.Get("n").Int())

	deliver := actions[2]
	assert.Equal(t, "p", deliver.Source)
	assert.Equal(t, "s", deliver.Target)
	assert.Equal(t, "a.b", deliver.Event)
	assert.Equal(t, "a", deliver.Pattern)
	assert.Equal(t, int64(0), deliver.CycleID)

	remove()
	remove()
	tb.publish(t, "a", nil)
	tb.host.Flush()
	assert.Len(t, actions, 4)
	assert.Equal(t, 0, tb.Stats().Inspectors)
}

func TestBus_InspectorOption(t *testing.T) {
	var kinds []ActionKind
	tb := newTestBus(t, WithInspector(func(a Action) { kinds = append(kinds, a.Kind) }))

	tb.publish(t, "a", nil)
	assert.Equal(t, []ActionKind{ActionPublish}, kinds)
}

func TestBus_DeliverActionFollowsFailedInvocation(t *testing.T) {
	tb := newTestBus(t)
	var delivers int
	tb.AddInspector(func(a Action) {
		if a.Kind == ActionDeliver {
			delivers++
		}
	})
	tb.subscribe(t, "e", func(*Payload, Meta) error { return errors.New("no") })

	tb.publish(t, "e", nil)
	tb.host.Flush()

	assert.Equal(t, 1, delivers)
	assert.Len(t, tb.reports, 1)
}

func TestBus_ArgumentErrors(t *testing.T) {
	tb := newTestBus(t)

	_, err := tb.Subscribe("a", nil)
	assert.ErrorIs(t, err, ErrNilHandler)

	_, err = tb.SubscribeFunc("a", nil)
	assert.ErrorIs(t, err, ErrNilHandler)

	_, err = tb.Subscribe("a", HandlerFunc(nil))
	assert.ErrorIs(t, err, ErrNilHandler)

	_, err = tb.Publish("", nil)
	assert.ErrorIs(t, err, ErrInvalidEventName)

	_, err = tb.Publish("e", []byte("{not json"))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = tb.Publish("e", func() {})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	assert.Equal(t, uint64(0), tb.Stats().EventsPublished)
}

func TestBus_TypedHandler(t *testing.T) {
	tb := newTestBus(t)
	type saved struct {
		Path  string `json:"path"`
		Bytes int    `json:"bytes"`
	}

	var got saved
	_, err := tb.Subscribe("didSave", Typed(func(v saved, _ Meta) error {
		got = v
		return nil
	}))
	require.NoError(t, err)

	tb.publish(t, "didSave", saved{Path: "/tmp/a", Bytes: 10})
	tb.publish(t, "didSave", []byte(`{"bytes":"ten"}`))
	tb.host.Flush()

	assert.Equal(t, saved{Path: "/tmp/a", Bytes: 10}, got)
	require.Len(t, tb.reports, 1, "decode failures surface as handler errors")
}

func TestBus_Mediator(t *testing.T) {
	tb := newTestBus(t)
	var delivered []string
	tb.subscribe(t, "", func(_ *Payload, meta Meta) error {
		delivered = append(delivered, meta.Name)
		return nil
	})

	injected, err := NewQueuedEvent("injected", nil, WithSender("mediator"))
	require.NoError(t, err)

	tb.SetMediator(func(batch []*QueuedEvent) []*QueuedEvent {
		var out []*QueuedEvent
		for i := len(batch) - 1; i >= 0; i-- {
			if batch[i].Meta.Name != "dropped" {
				out = append(out, batch[i])
			}
		}
		return append(out, injected)
	})

	fa := tb.publish(t, "a", nil)
	fd := tb.publish(t, "dropped", nil)
	fb := tb.publish(t, "b", nil)
	tb.host.Flush()

	assert.Equal(t, []string{"b", "a", "injected"}, delivered)
	assert.True(t, fa.Settled())
	assert.True(t, fb.Settled())
	assert.False(t, fd.Settled(), "dropped events never settle")

	tb.SetMediator(nil)
	delivered = nil
	tb.publish(t, "a", nil)
	tb.publish(t, "dropped", nil)
	tb.host.Flush()
	assert.Equal(t, []string{"a", "dropped"}, delivered)
}

func TestBus_DefaultErrorHandlerLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	host := loop.NewManual()
	b := NewBus(host, WithLogger(logger))
	_, err := b.SubscribeFunc("e", func(*Payload, Meta) error {
		return errors.New("broken")
	}, WithSubscriberID("sub"))
	require.NoError(t, err)

	_, err = b.Publish("e", map[string]any{"secret": "value"}, WithSender("pub"))
	require.NoError(t, err)
	host.Flush()

	out := buf.String()
	assert.Contains(t, out, "level=error")
	assert.Contains(t, out, `error while calling subscriber \"sub\" for event e published by \"pub\"`)
	assert.Contains(t, out, "subscriber=sub")
	assert.Contains(t, out, "anonymized")
	assert.NotContains(t, out, "value")
}

func TestBus_SetErrorHandler(t *testing.T) {
	tb := newTestBus(t)
	var custom []string
	tb.SetErrorHandler(func(r ErrorReport) {
		custom = append(custom, r.Message)
	})
	tb.subscribe(t, "e", func(*Payload, Meta) error { return errors.New("x") })

	tb.publish(t, "e", nil)
	tb.host.Flush()

	assert.Len(t, custom, 1)
	assert.Empty(t, tb.reports)
}

func TestBus_Stats(t *testing.T) {
	tb := newTestBus(t)
	tb.subscribe(t, "a", func(*Payload, Meta) error { return nil })
	deep := tb.subscribe(t, "a.b", func(*Payload, Meta) error { return nil })

	tb.publish(t, "a.b", nil)
	tb.publish(t, "a", nil)

	stats := tb.Stats()
	assert.Equal(t, 2, stats.ActiveSubscribers)
	assert.Equal(t, 3, stats.IndexNodes, "root, a and a.b")
	assert.Equal(t, 2, stats.QueueDepth)
	assert.Equal(t, uint64(2), stats.EventsPublished)

	tb.host.Flush()
	stats = tb.Stats()
	assert.Equal(t, 0, stats.QueueDepth)
	assert.Equal(t, uint64(3), stats.EventsDelivered)
	assert.Equal(t, uint64(1), stats.Cycles)

	deep.Unsubscribe()
	assert.Equal(t, 2, tb.Stats().IndexNodes, "unsubscribing prunes the a.b node")
}

func TestBus_IndependentInstances(t *testing.T) {
	one := newTestBus(t)
	two := newTestBus(t)
	var cycles []int64
	one.subscribe(t, "e", func(_ *Payload, m Meta) error {
		cycles = append(cycles, m.CycleID)
		return nil
	})
	two.subscribe(t, "e", func(_ *Payload, m Meta) error {
		cycles = append(cycles, m.CycleID)
		return nil
	})

	for i := 0; i < 3; i++ {
		one.publish(t, "e", nil)
	}
	two.publish(t, "e", nil)
	one.host.Flush()
	two.host.Flush()

	assert.Equal(t, []int64{0, 1, 2, 0}, cycles)
}

func ExampleBus() {
	host := loop.NewManual()
	bus := NewBus(host)

	_, _ = bus.SubscribeFunc("didSave", func(p *Payload, meta Meta) error {
		fmt.Printf("%s from %s: %s\n", meta.Name, meta.Sender, p.Get("path"))
		return nil
	})

	done, _ := bus.Publish("didSave.document", map[string]any{"path": "/tmp/notes.txt"},
		WithSender("editor"))
	done.Then(func(struct{}, error) { fmt.Println("delivered") })

	host.Flush()
	// Output:
	// didSave.document from editor: /tmp/notes.txt
	// delivered
}

func TestBus_HostTimersUnaffectedByPublish(t *testing.T) {
	tb := newTestBus(t)
	tb.publish(t, "e", nil)
	_, timers := tb.host.Pending()
	assert.Equal(t, 0, timers)

	tb.host.Advance(time.Minute)
	tasks, _ := tb.host.Pending()
	assert.Equal(t, 0, tasks)
}
