package inventory

import "fmt"

// AmmoType identifies a kind of ammunition. InfiniteAmmo marks weapons that
// never draw from the inventory.
type AmmoType int

const (
	// InfiniteAmmo is the sentinel ammo type of weapons with an unlimited reserve.
	InfiniteAmmo AmmoType = -1
	// MaxAmmo is the per-type reserve ceiling.
	MaxAmmo = 999
)

// AmmoStack is an ammo type and a round count, as found in a starting loadout.
type AmmoStack struct {
	Type   AmmoType `yaml:"type"`
	Amount int      `yaml:"amount"`
}

// AmmoObserver is notified after every reserve change. The owning controller
// uses it to re-ready its selected weapon and refresh the HUD.
type AmmoObserver interface {
	AmmoChanged(t AmmoType, before, after int)
}

// Ammo is the reserve of rounds an entity carries, keyed by ammo type.
//
// Invariant: every stored count is in [0, MaxAmmo]; a missing key reads as 0.
type Ammo struct {
	counts   map[AmmoType]int
	observer AmmoObserver
}

// NewAmmo returns an Ammo seeded from starting. Repeated types accumulate.
//
// Postcondition: Amount(t) == clamp(sum of starting amounts for t).
func NewAmmo(starting []AmmoStack) *Ammo {
	a := &Ammo{counts: make(map[AmmoType]int)}
	for _, s := range starting {
		if s.Type == InfiniteAmmo {
			continue
		}
		a.counts[s.Type] = addClamped(a.counts[s.Type], s.Amount)
	}
	return a
}

// SetObserver registers o to receive change notifications. A nil o disables them.
func (a *Ammo) SetObserver(o AmmoObserver) {
	if a == nil {
		return
	}
	a.observer = o
}

// Amount returns the reserve for t, 0 when t was never stocked.
// InfiniteAmmo always reports MaxAmmo. A nil Ammo is empty.
func (a *Ammo) Amount(t AmmoType) int {
	if t == InfiniteAmmo {
		return MaxAmmo
	}
	if a == nil {
		return 0
	}
	return a.counts[t]
}

// Change adds delta (which may be negative) to the reserve of t.
// Changes to InfiniteAmmo, and to a nil Ammo, are ignored.
//
// Postcondition: Amount(t) is in [0, MaxAmmo] regardless of delta; the
// observer is called with the counts before and after the clamp.
func (a *Ammo) Change(t AmmoType, delta int) {
	if a == nil || t == InfiniteAmmo {
		return
	}
	before := a.counts[t]
	after := addClamped(before, delta)
	a.counts[t] = after
	if a.observer != nil {
		a.observer.AmmoChanged(t, before, after)
	}
}

// Take removes up to n rounds of t and returns how many were removed.
// InfiniteAmmo always yields n.
//
// Precondition: n >= 0.
// Postcondition: 0 <= taken <= n; Amount(t) decreased by taken.
func (a *Ammo) Take(t AmmoType, n int) int {
	if n < 0 {
		panic(fmt.Sprintf("inventory: Ammo.Take: n must be >= 0, got %d", n))
	}
	if t == InfiniteAmmo {
		return n
	}
	if a == nil {
		return 0
	}
	taken := min(n, a.counts[t])
	if taken > 0 {
		a.Change(t, -taken)
	}
	return taken
}

// Stacks returns the non-empty reserves, in no particular order.
func (a *Ammo) Stacks() []AmmoStack {
	if a == nil {
		return nil
	}
	out := make([]AmmoStack, 0, len(a.counts))
	for t, n := range a.counts {
		if n > 0 {
			out = append(out, AmmoStack{Type: t, Amount: n})
		}
	}
	return out
}

// addClamped returns clamp(before+delta) without overflowing int.
//
// Precondition: before is in [0, MaxAmmo].
func addClamped(before, delta int) int {
	switch {
	case delta > MaxAmmo-before:
		return MaxAmmo
	case delta < -before:
		return 0
	default:
		return before + delta
	}
}
