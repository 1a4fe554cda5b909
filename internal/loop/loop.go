// Package loop provides hosts for the event bus: a goroutine-backed event
// loop for programs and a manually driven host for deterministic tests.
package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrLoopClosed is returned when posting to or running a closed loop.
var ErrLoopClosed = errors.New("event loop is closed")

// Timer states.
const (
	timerArmed int32 = iota
	timerFired
	timerCancelled
)

// Loop serializes callbacks onto the goroutine that calls Run.
//
// NextTick and AfterFunc may be called from any goroutine. Tasks run one at a
// time, in the order they were posted; a task posted while the loop is
// running a task runs on a later turn.
type Loop struct {
	mu     sync.Mutex
	tasks  []func()
	armed  int
	closed bool

	wake   chan struct{}
	logger logrus.FieldLogger
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used to report task panics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(lp *Loop) {
		if l != nil {
			lp.logger = l
		}
	}
}

// New creates an idle loop.
func New(opts ...Option) *Loop {
	l := &Loop{
		wake:   make(chan struct{}, 1),
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NextTick posts fn to run on a later turn. Posting to a closed loop is
// ignored.
func (l *Loop) NextTick(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
	l.signal()
}

// AfterFunc posts fn once d has elapsed. The returned function cancels the
// timer if it has not fired; calling it again is a no-op.
func (l *Loop) AfterFunc(d time.Duration, fn func()) (cancel func()) {
	var state atomic.Int32

	l.mu.Lock()
	l.armed++
	l.mu.Unlock()

	t := time.AfterFunc(d, func() {
		if !state.CompareAndSwap(timerArmed, timerFired) {
			return
		}
		l.NextTick(func() {
			l.disarm()
			fn()
		})
	})

	return func() {
		if state.CompareAndSwap(timerArmed, timerCancelled) {
			t.Stop()
			l.disarm()
		}
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLoopClosed
	}
	l.tasks = append(l.tasks, func() {
		defer close(done)
		fn()
	})
	l.mu.Unlock()
	l.signal()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes tasks until ctx is done or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	return l.run(ctx, false)
}

// RunUntilIdle processes tasks until no task is queued and no timer is
// armed, or until ctx is done.
func (l *Loop) RunUntilIdle(ctx context.Context) error {
	return l.run(ctx, true)
}

// Pending returns the number of queued tasks and armed timers.
func (l *Loop) Pending() (tasks, timers int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks), l.armed
}

// Close stops the loop. Queued tasks are dropped.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.tasks = nil
	l.mu.Unlock()
	l.signal()
}

// run is the shared turn loop.
func (l *Loop) run(ctx context.Context, untilIdle bool) error {
	for {
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return ErrLoopClosed
		}
		tasks := l.tasks
		l.tasks = nil
		idle := len(tasks) == 0 && l.armed == 0
		l.mu.Unlock()

		if len(tasks) == 0 {
			if untilIdle && idle {
				return nil
			}
			select {
			case <-l.wake:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		for _, task := range tasks {
			if err := ctx.Err(); err != nil {
				return err
			}
			l.runTask(task)
		}
	}
}

// runTask runs one task, logging a panic instead of crashing the loop.
func (l *Loop) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.WithField("panic", r).Error("event loop task panicked")
		}
	}()
	task()
}

// disarm accounts for a timer that fired or was cancelled.
func (l *Loop) disarm() {
	l.mu.Lock()
	l.armed--
	l.mu.Unlock()
	l.signal()
}

// signal wakes a waiting Run without blocking.
func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
