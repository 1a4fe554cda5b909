package dispatch

import (
	"runtime/debug"
	"sync/atomic"
	"time"
)

// Executor handles the actual execution of event handlers with
// panic recovery and timing. A failing handler never propagates past Execute.
type Executor struct {
	panicHandler PanicHandler

	// Stats
	executed    atomic.Uint64
	succeeded   atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	totalTimeNs atomic.Int64
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithPanicHandler sets the panic handler for the executor.
func WithPanicHandler(h PanicHandler) ExecutorOption {
	return func(e *Executor) {
		e.panicHandler = h
	}
}

// Execute runs an invocation and returns the result.
// It recovers from panics and captures timing information.
func (e *Executor) Execute(fn Invocation) (result Result) {
	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)

		if r := recover(); r != nil {
			stack := debug.Stack()

			result.Success = false
			result.Panicked = true
			result.PanicValue = r
			result.PanicStack = stack

			// Protect the panic handler call - don't let it crash the process
			if e.panicHandler != nil {
				func() {
					defer func() {
						_ = recover()
					}()
					e.panicHandler(r, stack)
				}()
			}
		}

		e.record(result)
	}()

	if err := fn(); err != nil {
		result.Error = err
		return result
	}

	result.Success = true
	return result
}

// record updates the execution statistics.
func (e *Executor) record(result Result) {
	e.executed.Add(1)
	e.totalTimeNs.Add(result.Duration.Nanoseconds())

	switch {
	case result.Panicked:
		e.panicked.Add(1)
	case result.Error != nil:
		e.failed.Add(1)
	default:
		e.succeeded.Add(1)
	}
}

// Stats returns execution statistics.
func (e *Executor) Stats() ExecutorStats {
	executed := e.executed.Load()
	total := e.totalTimeNs.Load()

	var avg time.Duration
	if executed > 0 {
		avg = time.Duration(total / int64(executed))
	}

	return ExecutorStats{
		Executed:      executed,
		Succeeded:     e.succeeded.Load(),
		Failed:        e.failed.Load(),
		Panicked:      e.panicked.Load(),
		TotalDuration: time.Duration(total),
		AvgDuration:   avg,
	}
}

// ResetStats resets all statistics to zero.
func (e *Executor) ResetStats() {
	e.executed.Store(0)
	e.succeeded.Store(0)
	e.failed.Store(0)
	e.panicked.Store(0)
	e.totalTimeNs.Store(0)
}

// ExecutorStats contains statistics for an executor.
type ExecutorStats struct {
	// Executed is the total number of invocations.
	Executed uint64

	// Succeeded is the number of successful handler executions.
	Succeeded uint64

	// Failed is the number of handlers that returned errors.
	Failed uint64

	// Panicked is the number of handlers that panicked.
	Panicked uint64

	// TotalDuration is the cumulative time spent in handlers.
	TotalDuration time.Duration

	// AvgDuration is the average handler execution time.
	AvgDuration time.Duration
}
