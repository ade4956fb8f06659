package world

import "math"

// Layer is a collision layer index in [0, 31].
type Layer uint8

// Layers used by the range.
const (
	LayerDefault Layer = 0
	// LayerWeapon holds the player's own weapon geometry; shots never hit it.
	LayerWeapon Layer = 9
	// LayerTarget holds destructible targets.
	LayerTarget Layer = 10
)

// LayerMask selects a set of layers.
type LayerMask uint32

// AllLayers matches every layer.
const AllLayers LayerMask = ^LayerMask(0)

// MaskOf returns a mask selecting exactly the given layers.
func MaskOf(layers ...Layer) LayerMask {
	var m LayerMask
	for _, l := range layers {
		m |= 1 << l
	}
	return m
}

// Without returns m with the given layers removed.
func (m LayerMask) Without(layers ...Layer) LayerMask {
	return m &^ MaskOf(layers...)
}

// Has reports whether l is selected by m.
func (m LayerMask) Has(l Layer) bool {
	return m&(1<<l) != 0
}

// Shape is the geometry of a Body.
type Shape interface {
	// intersect returns the distance along r to the first surface point and
	// the outward normal there; ok is false when r misses.
	intersect(r Ray) (dist float64, normal Vec3, ok bool)
}

// Sphere is a ball centred on Center.
type Sphere struct {
	Center Vec3
	Radius float64
}

func (s Sphere) intersect(r Ray) (float64, Vec3, bool) {
	if s.Radius <= 0 {
		return 0, Zero, false
	}
	f := r.Origin.Sub(s.Center)
	a := r.Direction.Dot(r.Direction)
	b := 2 * f.Dot(r.Direction)
	c := f.Dot(f) - s.Radius*s.Radius

	disc := b*b - 4*a*c
	if disc < 0 || a == 0 {
		return 0, Zero, false
	}
	sqrtDisc := math.Sqrt(disc)
	t1 := (-b - sqrtDisc) / (2 * a)
	t2 := (-b + sqrtDisc) / (2 * a)

	t := math.Inf(1)
	if t1 >= 0 {
		t = t1
	} else if t2 >= 0 {
		// origin inside the sphere
		t = 0
	}
	if math.IsInf(t, 1) {
		return 0, Zero, false
	}
	p := r.At(t)
	return t, p.Sub(s.Center).Normalized(), true
}

// Box is an axis-aligned box spanning Min..Max.
type Box struct {
	Min, Max Vec3
}

func (bx Box) intersect(r Ray) (float64, Vec3, bool) {
	tmin := 0.0
	tmax := math.Inf(1)
	normal := Zero

	axes := [3]struct {
		o, d, lo, hi float64
		n            Vec3
	}{
		{r.Origin.X, r.Direction.X, bx.Min.X, bx.Max.X, Right},
		{r.Origin.Y, r.Direction.Y, bx.Min.Y, bx.Max.Y, Up},
		{r.Origin.Z, r.Direction.Z, bx.Min.Z, bx.Max.Z, Forward},
	}
	for _, ax := range axes {
		if ax.d == 0 {
			if ax.o < ax.lo || ax.o > ax.hi {
				return 0, Zero, false
			}
			continue
		}
		inv := 1.0 / ax.d
		t1 := (ax.lo - ax.o) * inv
		t2 := (ax.hi - ax.o) * inv
		n := ax.n.Scale(-1)
		if t1 > t2 {
			t1, t2 = t2, t1
			n = ax.n
		}
		if t1 > tmin {
			tmin = t1
			normal = n
		}
		tmax = math.Min(tmax, t2)
		if tmax < tmin {
			return 0, Zero, false
		}
	}
	return tmin, normal, true
}

// Body is a collider placed in a Scene.
type Body struct {
	ID    int
	Shape Shape
	Layer Layer
	// Trigger bodies report overlaps only; raycasts skip them unless asked.
	Trigger bool
	// Owner is the game object the body belongs to, e.g. a *target.Target.
	Owner any

	disabled bool
}

// Enabled reports whether b takes part in queries.
func (b *Body) Enabled() bool { return !b.disabled }

// SetEnabled toggles whether b takes part in queries.
func (b *Body) SetEnabled(on bool) { b.disabled = !on }
