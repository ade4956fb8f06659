package world

import "math"

// QueryTriggers controls whether a query reports trigger bodies.
type QueryTriggers bool

const (
	IgnoreTriggers  QueryTriggers = false
	CollideTriggers QueryTriggers = true
)

// Hit describes the nearest blocking body along a query.
type Hit struct {
	Point    Vec3
	Normal   Vec3
	Distance float64
	Body     *Body
}

// Raycaster answers nearest-hit queries. Scene is the in-process implementation.
type Raycaster interface {
	Raycast(r Ray, maxDist float64, mask LayerMask, triggers QueryTriggers) (Hit, bool)
}

// Scene is a flat collection of bodies. Not safe for concurrent use.
type Scene struct {
	bodies []*Body
	nextID int
}

// NewScene returns an empty Scene.
func NewScene() *Scene {
	return &Scene{}
}

// Add places b in the scene, assigns it an ID, and returns it.
func (s *Scene) Add(b *Body) *Body {
	s.nextID++
	b.ID = s.nextID
	s.bodies = append(s.bodies, b)
	return b
}

// Len returns the number of bodies in the scene.
func (s *Scene) Len() int { return len(s.bodies) }

// Raycast returns the nearest enabled body on a layer in mask hit by r within maxDist.
//
// Precondition: r.Direction is unit length; maxDist > 0.
func (s *Scene) Raycast(r Ray, maxDist float64, mask LayerMask, triggers QueryTriggers) (Hit, bool) {
	best := Hit{Distance: math.Inf(1)}
	found := false
	for _, b := range s.bodies {
		if b.disabled || !mask.Has(b.Layer) || (b.Trigger && triggers == IgnoreTriggers) {
			continue
		}
		d, n, ok := b.Shape.intersect(r)
		if !ok || d > maxDist || d >= best.Distance {
			continue
		}
		best = Hit{Point: r.At(d), Normal: n, Distance: d, Body: b}
		found = true
	}
	return best, found
}

// Sweep casts the segment from -> to through rc and reports the nearest hit on it.
// A zero-length segment never hits.
func Sweep(rc Raycaster, from, to Vec3, mask LayerMask, triggers QueryTriggers) (Hit, bool) {
	delta := to.Sub(from)
	l := delta.Len()
	if l == 0 {
		return Hit{}, false
	}
	return rc.Raycast(Ray{Origin: from, Direction: delta.Scale(1 / l)}, l, mask, triggers)
}
