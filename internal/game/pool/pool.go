// Package pool provides a fixed-capacity free-list arena of reusable
// instances keyed by resource kind. Capacity is decided up front; running out
// is a sizing bug and is reported as ErrExhausted rather than grown.
package pool

import (
	"errors"
	"fmt"
)

// Kind names a family of pooled instances, e.g. "tracer" or "projectile:rifle".
type Kind string

// ErrExhausted is returned by Acquire when every slot of a kind is in use.
var ErrExhausted = errors.New("pool: exhausted")

// ErrStaleHandle is returned when a handle no longer refers to a live slot,
// either because it was already released or because it was never issued.
var ErrStaleHandle = errors.New("pool: stale handle")

// Handle is an opaque reference to an acquired slot.
// The zero Handle is never issued.
type Handle struct {
	kind  Kind
	index int
	gen   uint32
}

// Kind returns the kind the handle was acquired from.
func (h Handle) Kind() Kind { return h.kind }

// Valid reports whether h was issued by Acquire (it may since have been released).
func (h Handle) Valid() bool { return h.gen != 0 }

type slot[T any] struct {
	value T
	gen   uint32
	inUse bool
}

type bucket[T any] struct {
	slots []slot[T]
	free  []int
}

// Arena holds pre-sized buckets of T per Kind. It is not safe for concurrent use;
// the simulation drives it from a single goroutine.
type Arena[T any] struct {
	buckets map[Kind]*bucket[T]
}

// New returns an empty Arena.
func New[T any]() *Arena[T] {
	return &Arena[T]{buckets: make(map[Kind]*bucket[T])}
}

// Register pre-warms capacity instances of kind using newFn. newFn may be nil,
// in which case slots start as the zero T.
//
// Precondition: capacity > 0.
// Postcondition: Available(kind) == capacity; returns error if kind is already registered.
func (a *Arena[T]) Register(kind Kind, capacity int, newFn func() T) error {
	if capacity <= 0 {
		return fmt.Errorf("pool: Register %q: capacity must be > 0, got %d", kind, capacity)
	}
	if _, exists := a.buckets[kind]; exists {
		return fmt.Errorf("pool: Register %q: kind already registered", kind)
	}
	b := &bucket[T]{
		slots: make([]slot[T], capacity),
		free:  make([]int, capacity),
	}
	for i := range b.slots {
		if newFn != nil {
			b.slots[i].value = newFn()
		}
		// LIFO free list; hand out slot 0 first
		b.free[i] = capacity - 1 - i
	}
	a.buckets[kind] = b
	return nil
}

// Acquire takes a free slot of kind.
//
// Postcondition: on success the handle is live and Get returns its value;
// returns ErrExhausted when no slot is free, or an error if kind is unknown.
func (a *Arena[T]) Acquire(kind Kind) (Handle, error) {
	b, ok := a.buckets[kind]
	if !ok {
		return Handle{}, fmt.Errorf("pool: Acquire: unknown kind %q", kind)
	}
	if len(b.free) == 0 {
		return Handle{}, fmt.Errorf("pool: Acquire %q: %w", kind, ErrExhausted)
	}
	idx := b.free[len(b.free)-1]
	b.free = b.free[:len(b.free)-1]
	s := &b.slots[idx]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.inUse = true
	return Handle{kind: kind, index: idx, gen: s.gen}, nil
}

// Release returns h's slot to the free list.
//
// Postcondition: h is no longer live; releasing it again returns ErrStaleHandle.
func (a *Arena[T]) Release(h Handle) error {
	s, b, err := a.lookup(h)
	if err != nil {
		return err
	}
	s.inUse = false
	b.free = append(b.free, h.index)
	return nil
}

// Get returns a pointer to the value held by the live handle h.
// The pointer stays valid until h is released.
func (a *Arena[T]) Get(h Handle) (*T, error) {
	s, _, err := a.lookup(h)
	if err != nil {
		return nil, err
	}
	return &s.value, nil
}

// Available returns the number of free slots of kind, or 0 for an unknown kind.
func (a *Arena[T]) Available(kind Kind) int {
	b, ok := a.buckets[kind]
	if !ok {
		return 0
	}
	return len(b.free)
}

// Capacity returns the registered capacity of kind, or 0 for an unknown kind.
func (a *Arena[T]) Capacity(kind Kind) int {
	b, ok := a.buckets[kind]
	if !ok {
		return 0
	}
	return len(b.slots)
}

func (a *Arena[T]) lookup(h Handle) (*slot[T], *bucket[T], error) {
	b, ok := a.buckets[h.kind]
	if !ok || h.index < 0 || h.index >= len(b.slots) {
		return nil, nil, ErrStaleHandle
	}
	s := &b.slots[h.index]
	if !s.inUse || s.gen != h.gen {
		return nil, nil, ErrStaleHandle
	}
	return s, b, nil
}
