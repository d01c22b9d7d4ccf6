package webchat

import "sync"

// Ref holds a mutable reference to a value. Container publishes the live
// instance into a Ref supplied via WithInstanceRef and clears it on
// teardown.
//
// Ref[T] is safe for concurrent access.
type Ref[T any] struct {
	mu    sync.RWMutex
	value T
	isSet bool
}

// NewRef creates an empty Ref.
func NewRef[T any]() *Ref[T] {
	return &Ref[T]{}
}

// Current returns the current value, or the zero value if unset.
func (r *Ref[T]) Current() T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}

// Set sets the ref's value.
func (r *Ref[T]) Set(value T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = value
	r.isSet = true
}

// IsSet reports whether the ref currently holds a value.
func (r *Ref[T]) IsSet() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isSet
}

// Clear resets the ref to its zero value.
func (r *Ref[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	r.value = zero
	r.isSet = false
}
