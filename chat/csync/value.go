package csync

import "sync"

// Value is a generic thread-safe wrapper for a value that is replaced
// wholesale, never mutated in place. Readers get the current snapshot.
type Value[T any] struct {
	v  T
	mu sync.RWMutex
}

func NewValue[T any](t T) *Value[T] {
	return &Value[T]{v: t}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.v
}

// Set replaces the value.
func (v *Value[T]) Set(t T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.v = t
}
