package event

import (
	"reflect"

	"github.com/dshills/relay/internal/event/topic"
)

// registry holds the subscriber records of one bus, indexed by pattern.
// It is not safe for concurrent use; the bus guards it with its mutex.
type registry struct {
	index *topic.Index[*subscription]
}

// newRegistry creates an empty registry.
func newRegistry() *registry {
	return &registry{
		index: topic.NewIndex[*subscription](),
	}
}

// add registers a subscriber record.
func (r *registry) add(sub *subscription) {
	r.index.Insert(sub.pattern, sub)
}

// match returns the records matching an event name, most specific first.
// The returned slice is owned by the caller.
func (r *registry) match(name string) []*subscription {
	return r.index.Match(name)
}

// remove removes one record. It reports false if the record was already gone.
func (r *registry) remove(sub *subscription) bool {
	removed := r.index.RemoveFunc(func(s *subscription) bool {
		return s == sub
	})
	for _, s := range removed {
		s.removed.Store(true)
	}
	return len(removed) > 0
}

// removeHandler removes every record registered with handler h, wherever it
// appears in the index. Handlers of non-comparable types never match.
func (r *registry) removeHandler(h Handler) []*subscription {
	if h == nil || !reflect.TypeOf(h).Comparable() {
		return nil
	}
	removed := r.index.RemoveFunc(func(s *subscription) bool {
		return sameHandler(s.handler, h)
	})
	for _, s := range removed {
		s.removed.Store(true)
	}
	return removed
}

// nodes returns the size of the underlying topic index.
func (r *registry) nodes() int {
	return r.index.NodeCount()
}

// len returns the number of registered records.
func (r *registry) len() int {
	return r.index.Len()
}

// sameHandler compares handlers by identity. Comparable types holding
// uncomparable values (a struct with a func field behind an interface) do not
// match rather than panic.
func sameHandler(a, b Handler) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
