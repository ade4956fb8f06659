package world

import "math"

// Camera is the player's eye: where shots are traced from.
type Camera struct {
	Origin  Vec3
	Forward Vec3
	Up      Vec3
	// FieldOfView is the vertical field of view in degrees.
	FieldOfView float64
}

// ViewportRay returns the ray through viewport point (x, y), where (0.5, 0.5)
// is the centre of the view and the unit square spans it. The viewport is
// treated as square.
func (c Camera) ViewportRay(x, y float64) Ray {
	fwd := c.Forward.Normalized()
	up := c.Up.Normalized()
	right := up.Cross(fwd).Normalized()
	// re-orthogonalise so a tilted Up still yields a square frustum
	up = fwd.Cross(right)

	tanHalf := math.Tan(c.FieldOfView * math.Pi / 360)
	nx := (2*x - 1) * tanHalf
	ny := (2*y - 1) * tanHalf

	dir := fwd.Add(right.Scale(nx)).Add(up.Scale(ny)).Normalized()
	return Ray{Origin: c.Origin, Direction: dir}
}
