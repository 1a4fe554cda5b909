package event

import (
	"context"
	"sync"
)

// Future is the eventual outcome of a publish or a request.
//
// Continuations registered with Then run synchronously on the goroutine that
// settles the future, which for bus futures is a host turn. A future settles
// at most once.
type Future[T any] struct {
	mu        sync.Mutex
	settled   bool
	value     T
	err       error
	callbacks []func(T, error)
	done      chan struct{}
}

// newFuture creates an unsettled future.
func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Then registers fn to run when the future settles. If it already has, fn
// runs immediately.
func (f *Future[T]) Then(fn func(value T, err error)) {
	f.mu.Lock()
	if !f.settled {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	value, err := f.value, f.err
	f.mu.Unlock()
	fn(value, err)
}

// Done returns a channel that is closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future has settled.
func (f *Future[T]) Settled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settled
}

// Result returns the settled value and error. Before settling it returns the
// zero value and a nil error.
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

// Wait blocks until the future settles or ctx is done. It must not be called
// from the host turn that would settle the future.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// resolve settles the future successfully.
func (f *Future[T]) resolve(value T) {
	f.settle(value, nil)
}

// reject settles the future with err, keeping value as the partial result.
func (f *Future[T]) reject(value T, err error) {
	f.settle(value, err)
}

// settle stores the outcome and runs pending continuations in registration order.
func (f *Future[T]) settle(value T, err error) {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return
	}
	f.settled = true
	f.value = value
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	f.mu.Unlock()

	close(f.done)
	for _, fn := range callbacks {
		fn(value, err)
	}
}
