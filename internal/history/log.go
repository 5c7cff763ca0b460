// Package history provides a fixed-capacity in-memory log. Once the
// capacity is reached the oldest entries are dropped.
package history

import "sync"

// DefaultCapacity bounds logs created without an explicit capacity.
const DefaultCapacity = 20

// Log is a concurrency-safe append-only buffer of the most recent
// entries.
type Log[T any] struct {
	mu      sync.RWMutex
	cap     int
	entries []T
}

// New creates a log keeping at most capacity entries. Non-positive
// capacities fall back to DefaultCapacity.
func New[T any](capacity int) *Log[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log[T]{cap: capacity}
}

// Push appends an entry, evicting the oldest ones beyond capacity.
func (l *Log[T]) Push(entry T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	if len(l.entries) > l.cap {
		l.entries = l.entries[len(l.entries)-l.cap:]
	}
}

// Entries returns a copy of the log, most recent first.
func (l *Log[T]) Entries() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.entries) == 0 {
		return nil
	}
	out := make([]T, len(l.entries))
	for i, entry := range l.entries {
		out[len(l.entries)-1-i] = entry
	}
	return out
}

// Last returns the most recent entry if one exists.
func (l *Log[T]) Last() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.entries) == 0 {
		var zero T
		return zero, false
	}
	return l.entries[len(l.entries)-1], true
}

// Len reports the number of retained entries.
func (l *Log[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Cap reports the maximum number of retained entries.
func (l *Log[T]) Cap() int { return l.cap }

// Clear drops all retained entries.
func (l *Log[T]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
