// Package callbacks provides a small ordered handler list with token-based
// unsubscribe, shared by the transport and the store.
package callbacks

import "sync"

type entry[T any] struct {
	id int
	fn func(T)
}

// List is an ordered collection of handlers. Handlers run in registration
// order; Notify iterates over a snapshot taken under the lock, so removing a
// handler mid-dispatch never skips the remaining ones.
type List[T any] struct {
	mu      sync.Mutex
	nextID  int
	entries []entry[T]
}

// Add registers a handler and returns a function that removes it. Calling
// the returned function more than once is a no-op.
func (l *List[T]) Add(fn func(T)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	l.entries = append(l.entries, entry[T]{id: id, fn: fn})

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, e := range l.entries {
			if e.id == id {
				l.entries = append(l.entries[:i], l.entries[i+1:]...)
				return
			}
		}
	}
}

// Notify invokes every registered handler with v, in registration order.
// Handlers are called without holding the list lock.
func (l *List[T]) Notify(v T) {
	l.mu.Lock()
	snapshot := make([]entry[T], len(l.entries))
	copy(snapshot, l.entries)
	l.mu.Unlock()

	for _, e := range snapshot {
		e.fn(v)
	}
}

// Len returns the number of registered handlers.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
