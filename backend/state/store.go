// Package state holds an owned value behind a single writer path and
// notifies subscribers after every change.
package state

import "sync"

// Store owns a value of type T. Every Set is an atomic replace; listeners
// run after the write, outside the lock, in subscription order.
type Store[T any] struct {
	mu        sync.Mutex
	value     T
	nextID    int
	listeners []listener[T]
}

type listener[T any] struct {
	id int
	fn func(T)
}

func New[T any](initial T) *Store[T] {
	return &Store[T]{value: initial}
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set replaces the value with update(current) and returns the new value.
func (s *Store[T]) Set(update func(T) T) T {
	next, _ := s.SetIf(func(v T) (T, bool) {
		return update(v), true
	})
	return next
}

// SetIf is Set for updates that may decide not to apply. When update
// returns false the value is left alone and no listener runs.
func (s *Store[T]) SetIf(update func(T) (T, bool)) (T, bool) {
	s.mu.Lock()
	next, ok := update(s.value)
	if !ok {
		cur := s.value
		s.mu.Unlock()
		return cur, false
	}
	s.value = next
	ls := make([]listener[T], len(s.listeners))
	copy(ls, s.listeners)
	s.mu.Unlock()

	for _, l := range ls {
		l.fn(next)
	}
	return next, true
}

// Subscribe registers fn for future changes. The returned func removes it
// and may be called more than once.
func (s *Store[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}
