// Package luabridge lets Lua scripts take part in bus conversations.
//
// Each Collaborator owns one Lua state and exposes a global "relay" table:
//
//	relay.subscribe(pattern, fn[, {subscriber=, clone=}]) -> id
//	relay.unsubscribe(id) -> bool
//	relay.publish(name[, data[, {sender=, deliverToSender=}]])
//	relay.request(name[, data[, {timeout=ms, sender=}]], fn(replies, err))
//	relay.log(msg)
//
// Subscribers and senders default to the collaborator name. Handlers receive
// (event, meta) where event is a table copy of the payload and meta carries
// id, name, cycle, sender and initiator. A Lua error raised by a handler is
// reported by the bus as a handler error.
//
// gopher-lua states are not goroutine-safe. Scripts must be loaded and the
// bus host must run on the same goroutine, or loading must be marshalled
// onto the host (see loop.Loop.Do).
package luabridge

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/relay/internal/event"
	"github.com/dshills/relay/internal/logging"
)

// GlobalName is the name of the API table installed into each state.
const GlobalName = "relay"

// ErrClosed is returned when using a closed collaborator.
var ErrClosed = errors.New("collaborator closed")

// Collaborator is a Lua script connected to a bus.
type Collaborator struct {
	name   string
	bus    event.Bus
	L      *lua.LState
	logger logrus.FieldLogger

	mu     sync.Mutex
	subs   map[int]event.Subscription
	nextID int
	closed bool
}

// Option configures a Collaborator.
type Option func(*Collaborator)

// WithLogger sets the logger used by relay.log and for dropped callbacks.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Collaborator) {
		c.logger = l
	}
}

// New creates a collaborator called name on bus with a fresh Lua state.
// Only the base, table, string and math libraries are opened.
func New(bus event.Bus, name string, opts ...Option) *Collaborator {
	c := &Collaborator{
		name: name,
		bus:  bus,
		subs: make(map[int]event.Subscription),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Default()
	}
	c.logger = c.logger.WithField("collaborator", name)

	c.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(c.L)
	lua.OpenTable(c.L)
	lua.OpenString(c.L)
	lua.OpenMath(c.L)
	c.register()
	return c
}

// Name returns the collaborator name.
func (c *Collaborator) Name() string {
	return c.name
}

// Subscriptions returns the number of live subscriptions made by the script.
func (c *Collaborator) Subscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// DoString runs a chunk of Lua source.
func (c *Collaborator) DoString(source string) error {
	if c.isClosed() {
		return ErrClosed
	}
	if err := c.L.DoString(source); err != nil {
		return errors.Wrapf(err, "collaborator %s", c.name)
	}
	return nil
}

// DoFile runs a Lua file.
func (c *Collaborator) DoFile(path string) error {
	if c.isClosed() {
		return ErrClosed
	}
	if err := c.L.DoFile(path); err != nil {
		return errors.Wrapf(err, "collaborator %s: %s", c.name, path)
	}
	return nil
}

// Close unsubscribes everything the script subscribed and closes the Lua
// state. Callbacks arriving afterwards are dropped.
func (c *Collaborator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subs
	c.subs = make(map[int]event.Subscription)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	c.L.Close()
}

func (c *Collaborator) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// register installs the relay table.
func (c *Collaborator) register() {
	mod := c.L.NewTable()
	c.L.SetField(mod, "subscribe", c.L.NewFunction(c.luaSubscribe))
	c.L.SetField(mod, "unsubscribe", c.L.NewFunction(c.luaUnsubscribe))
	c.L.SetField(mod, "publish", c.L.NewFunction(c.luaPublish))
	c.L.SetField(mod, "request", c.L.NewFunction(c.luaRequest))
	c.L.SetField(mod, "log", c.L.NewFunction(c.luaLog))
	c.L.SetField(mod, "name", lua.LString(c.name))
	c.L.SetGlobal(GlobalName, mod)
}

// subscribe(pattern, fn[, opts]) -> id
func (c *Collaborator) luaSubscribe(L *lua.LState) int {
	pattern := L.CheckString(1)
	fn := L.CheckFunction(2)
	opts := L.OptTable(3, nil)

	subscriber := c.name
	clone := true
	if opts != nil {
		subscriber = optString(opts, "subscriber", subscriber)
		clone = optBool(opts, "clone", clone)
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.mu.Unlock()

	sub, err := c.bus.SubscribeFunc(pattern, func(payload *event.Payload, meta event.Meta) error {
		if c.isClosed() {
			return nil
		}
		return c.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true},
			payloadToTable(c.L, payload), metaToTable(c.L, meta))
	}, event.WithSubscriberID(subscriber), event.WithClone(clone))
	if err != nil {
		L.RaiseError("subscribe: %v", err)
		return 0
	}

	c.mu.Lock()
	c.subs[id] = sub
	c.mu.Unlock()

	L.Push(lua.LNumber(id))
	return 1
}

// unsubscribe(id) -> bool
func (c *Collaborator) luaUnsubscribe(L *lua.LState) int {
	id := L.CheckInt(1)

	c.mu.Lock()
	sub, ok := c.subs[id]
	delete(c.subs, id)
	c.mu.Unlock()

	if ok {
		sub.Unsubscribe()
	}
	L.Push(lua.LBool(ok))
	return 1
}

// publish(name[, data[, opts]])
func (c *Collaborator) luaPublish(L *lua.LState) int {
	name := L.CheckString(1)
	payload := toGoValue(L.Get(2))
	opts := L.OptTable(3, nil)

	pubOpts := []event.PublishOption{event.WithSender(c.name)}
	if opts != nil {
		pubOpts = append(pubOpts,
			event.WithSender(optString(opts, "sender", c.name)),
			event.WithDeliverToSender(optBool(opts, "deliverToSender", true)))
	}

	if _, err := c.bus.Publish(name, payload, pubOpts...); err != nil {
		L.RaiseError("publish: %v", err)
	}
	return 0
}

// request(name[, data[, opts]], fn(replies, err))
func (c *Collaborator) luaRequest(L *lua.LState) int {
	top := L.GetTop()
	name := L.CheckString(1)
	fn := L.CheckFunction(top)

	var payload any
	if top >= 3 {
		payload = toGoValue(L.Get(2))
	}
	pubOpts := []event.PublishOption{event.WithSender(c.name)}
	if top >= 4 {
		if opts := L.OptTable(3, nil); opts != nil {
			pubOpts = append(pubOpts, event.WithSender(optString(opts, "sender", c.name)))
			if ms, ok := opts.RawGetString("timeout").(lua.LNumber); ok {
				pubOpts = append(pubOpts, event.WithPendingDidTimeout(time.Duration(float64(ms)*float64(time.Millisecond))))
			}
		}
	}

	future, err := c.bus.PublishAndGatherReplies(name, payload, pubOpts...)
	if err != nil {
		L.RaiseError("request: %v", err)
		return 0
	}

	future.Then(func(replies []event.Reply, err error) {
		if c.isClosed() {
			c.logger.WithField("request", name).Debug("dropping reply for closed collaborator")
			return
		}
		failure := lua.LValue(lua.LNil)
		if err != nil {
			failure = lua.LString(err.Error())
		}
		if callErr := c.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true},
			repliesToTable(c.L, replies), failure); callErr != nil {
			c.logger.WithError(callErr).WithField("request", name).Error("request callback failed")
		}
	})
	return 0
}

// log(msg)
func (c *Collaborator) luaLog(L *lua.LState) int {
	c.logger.Info(L.CheckString(1))
	return 0
}

func optString(t *lua.LTable, key, def string) string {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return def
}

func optBool(t *lua.LTable, key string, def bool) bool {
	if b, ok := t.RawGetString(key).(lua.LBool); ok {
		return bool(b)
	}
	return def
}
