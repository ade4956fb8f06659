package inventory

import "fmt"

// Clip tracks the rounds chambered in one weapon instance.
// Invariant: 0 <= Loaded <= Capacity.
type Clip struct {
	// Loaded is the number of rounds ready to fire.
	Loaded int
	// Capacity is the maximum number of rounds the clip holds.
	Capacity int
}

// NewClip returns a full Clip.
//
// Precondition:  capacity > 0 (panics otherwise).
// Postcondition: Loaded == Capacity == capacity.
func NewClip(capacity int) *Clip {
	if capacity <= 0 {
		panic(fmt.Sprintf("inventory: NewClip: capacity must be > 0, got %d", capacity))
	}
	return &Clip{Loaded: capacity, Capacity: capacity}
}

// IsEmpty reports whether no rounds are loaded.
func (c *Clip) IsEmpty() bool { return c.Loaded <= 0 }

// IsFull reports whether the clip is at capacity.
func (c *Clip) IsFull() bool { return c.Loaded >= c.Capacity }

// Missing returns how many rounds would top the clip off.
//
// Postcondition: result == Capacity - Loaded.
func (c *Clip) Missing() int { return c.Capacity - c.Loaded }

// Consume removes one round.
//
// Postcondition: returns false and leaves Loaded unchanged when the clip is empty.
func (c *Clip) Consume() bool {
	if c.IsEmpty() {
		return false
	}
	c.Loaded--
	return true
}

// Load chambers up to n rounds and returns how many fit.
//
// Precondition:  n >= 0.
// Postcondition: Loaded <= Capacity; result == min(n, Missing() before the call).
func (c *Clip) Load(n int) int {
	if n < 0 {
		panic(fmt.Sprintf("inventory: Clip.Load: n must be >= 0, got %d", n))
	}
	loaded := min(n, c.Missing())
	c.Loaded += loaded
	return loaded
}

