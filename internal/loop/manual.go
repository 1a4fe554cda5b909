package loop

import (
	"sort"
	"sync"
	"time"
)

// Manual is a host driven explicitly by its caller. Nothing runs until Flush
// or Advance is called, which makes bus scheduling deterministic in tests.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	tasks  []func()
	timers []*manualTimer
	seq    uint64
}

// manualTimer is a timer registered with AfterFunc.
type manualTimer struct {
	at  time.Duration
	seq uint64
	fn  func()
}

// NewManual creates a manual host at virtual time zero.
func NewManual() *Manual {
	return &Manual{}
}

// NextTick queues fn for the next Flush.
func (m *Manual) NextTick(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, fn)
}

// AfterFunc registers fn to run once virtual time has advanced by d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTimer{at: m.now + d, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, other := range m.timers {
			if other == t {
				m.timers = append(m.timers[:i], m.timers[i+1:]...)
				return
			}
		}
	}
}

// Flush runs queued tasks, including tasks they queue, until none remain.
// It returns the number of tasks run.
func (m *Manual) Flush() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.tasks) == 0 {
			m.mu.Unlock()
			return n
		}
		task := m.tasks[0]
		m.tasks = m.tasks[1:]
		m.mu.Unlock()

		task()
		n++
	}
}

// Step runs only the tasks queued at call time and returns how many ran.
func (m *Manual) Step() int {
	m.mu.Lock()
	tasks := m.tasks
	m.tasks = nil
	m.mu.Unlock()

	for _, task := range tasks {
		task()
	}
	return len(tasks)
}

// Advance moves virtual time forward by d, firing due timers in deadline
// order. Queued tasks are flushed before and after each timer.
func (m *Manual) Advance(d time.Duration) {
	m.Flush()

	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		sort.SliceStable(m.timers, func(i, j int) bool {
			if m.timers[i].at != m.timers[j].at {
				return m.timers[i].at < m.timers[j].at
			}
			return m.timers[i].seq < m.timers[j].seq
		})
		if len(m.timers) == 0 || m.timers[0].at > target {
			m.now = target
			m.mu.Unlock()
			break
		}
		t := m.timers[0]
		m.timers = m.timers[1:]
		m.now = t.at
		m.mu.Unlock()

		t.fn()
		m.Flush()
	}

	m.Flush()
}

// Now returns the virtual time elapsed since creation.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of queued tasks and armed timers.
func (m *Manual) Pending() (tasks, timers int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks), len(m.timers)
}
