package weapon

import (
	"errors"

	"go.uber.org/zap"

	"github.com/cory-johannsen/firingrange/internal/game/pool"
	"github.com/cory-johannsen/firingrange/internal/game/rng"
	"github.com/cory-johannsen/firingrange/internal/game/world"
)

// Tracer is a short-lived cosmetic line from the muzzle toward a shot's end point.
type Tracer struct {
	Start     world.Vec3
	End       world.Vec3
	Direction world.Vec3
	// Remaining is the lifetime left, in seconds.
	Remaining float64
}

// Projectile is a pooled physical shot in flight.
type Projectile struct {
	Position world.Vec3
	Velocity world.Vec3
	Age      float64
}

// ActiveTracers returns a snapshot of the live tracers.
func (w *Weapon) ActiveTracers() []Tracer {
	out := make([]Tracer, 0, len(w.activeTracers))
	for _, h := range w.activeTracers {
		if t, err := w.tracers.Get(h); err == nil {
			out = append(out, *t)
		}
	}
	return out
}

// ActiveProjectiles returns a snapshot of the projectiles in flight.
func (w *Weapon) ActiveProjectiles() []Projectile {
	out := make([]Projectile, 0, len(w.activeProjectiles))
	for _, h := range w.activeProjectiles {
		if p, err := w.projectiles.Get(h); err == nil {
			out = append(out, *p)
		}
	}
	return out
}

// raycastShot resolves one trace through a random point of the spread circle,
// damages what it hits, and spawns its tracer.
func (w *Weapon) raycastShot() Trace {
	cam := w.aim.Camera()
	var sx, sy float64
	if w.def.SpreadAngle > 0 && cam.FieldOfView > 0 {
		ux, uy := rng.InsideUnitCircle(w.rand)
		ratio := w.def.SpreadAngle / cam.FieldOfView
		sx, sy = ux*ratio, uy*ratio
	}
	ray := cam.ViewportRay(0.5+sx, 0.5+sy)

	tr := Trace{Ray: ray, End: ray.At(tracerMissLength)}
	if hit, ok := w.raycaster.Raycast(ray, MaxShotDistance, shotMask, world.IgnoreTriggers); ok {
		tr.Hit = hit
		tr.Struck = true
		if hit.Distance > tracerMinHitDistance {
			tr.End = hit.Point
		}
		if d, ok := hit.Body.Owner.(Damageable); ok {
			d.ApplyDamage(w.def.Damage)
		}
	}

	if w.tracers != nil {
		w.spawnTracer(tr.End)
	}
	return tr
}

func (w *Weapon) spawnTracer(end world.Vec3) {
	h, err := w.tracers.Acquire(w.tracerKind)
	if err != nil {
		// sizing in New makes this unreachable
		w.logger.Warn("tracer dropped", zap.Error(err))
		return
	}
	t, _ := w.tracers.Get(h)
	start := w.aim.Muzzle()
	*t = Tracer{
		Start:     start,
		End:       end,
		Direction: end.Sub(start).Normalized(),
		Remaining: TracerLifetime,
	}
	w.activeTracers = append(w.activeTracers, h)
}

// projectileShot launches ProjectilesPerShot projectiles from the muzzle along
// the view direction and returns how many left the barrel.
func (w *Weapon) projectileShot() int {
	dir := w.aim.Camera().ViewportRay(0.5, 0.5).Direction
	launched := 0
	for i := 0; i < w.def.ProjectilesPerShot; i++ {
		h, err := w.acquireProjectile()
		if err != nil {
			w.logger.Warn("projectile dropped", zap.Error(err))
			continue
		}
		p, _ := w.projectiles.Get(h)
		*p = Projectile{
			Position: w.aim.Muzzle(),
			Velocity: dir.Scale(w.def.ProjectileSpeed),
		}
		w.activeProjectiles = append(w.activeProjectiles, h)
		launched++
	}
	return launched
}

// acquireProjectile takes a free projectile, recycling the oldest one in
// flight when the pool is exhausted.
func (w *Weapon) acquireProjectile() (pool.Handle, error) {
	h, err := w.projectiles.Acquire(w.projectileKind)
	if !errors.Is(err, pool.ErrExhausted) || len(w.activeProjectiles) == 0 {
		return h, err
	}
	oldest := w.activeProjectiles[0]
	w.activeProjectiles = w.activeProjectiles[1:]
	w.releaseProjectile(oldest)
	return w.projectiles.Acquire(w.projectileKind)
}

// advanceTracers stretches every live tracer outward and returns expired ones.
func (w *Weapon) advanceTracers(dt float64) {
	if len(w.activeTracers) == 0 {
		return
	}
	kept := w.activeTracers[:0]
	for _, h := range w.activeTracers {
		t, err := w.tracers.Get(h)
		if err != nil {
			continue
		}
		t.Remaining -= dt
		if t.Remaining <= timeEpsilon {
			w.releaseTracer(h)
			continue
		}
		t.End = t.End.Add(t.Direction.Scale(TracerSpeed * dt))
		kept = append(kept, h)
	}
	w.activeTracers = kept
}

// advanceProjectiles moves every projectile along its velocity, sweeping the
// segment for contacts. A contact with a ProjectileTarget destroys it; any
// contact or lifetime expiry returns the projectile to the pool.
func (w *Weapon) advanceProjectiles(dt float64) {
	if len(w.activeProjectiles) == 0 || dt <= 0 {
		return
	}
	kept := w.activeProjectiles[:0]
	for _, h := range w.activeProjectiles {
		p, err := w.projectiles.Get(h)
		if err != nil {
			continue
		}
		next := p.Position.Add(p.Velocity.Scale(dt))
		if hit, ok := world.Sweep(w.raycaster, p.Position, next, shotMask, world.IgnoreTriggers); ok {
			if t, ok := hit.Body.Owner.(ProjectileTarget); ok {
				t.HitByProjectile()
			}
			w.logger.Debug("projectile contact", zap.Int("body", hit.Body.ID))
			w.releaseProjectile(h)
			continue
		}
		p.Position = next
		p.Age += dt
		if p.Age+timeEpsilon >= w.def.ProjectileLifetime {
			w.releaseProjectile(h)
			continue
		}
		kept = append(kept, h)
	}
	w.activeProjectiles = kept
}

func (w *Weapon) releaseTracer(h pool.Handle) {
	if err := w.tracers.Release(h); err != nil {
		w.logger.Warn("tracer release failed", zap.Error(err))
	}
}

func (w *Weapon) releaseProjectile(h pool.Handle) {
	if err := w.projectiles.Release(h); err != nil {
		w.logger.Warn("projectile release failed", zap.Error(err))
	}
}

// PoolAvailable reports the free tracer and projectile slots of w.
func (w *Weapon) PoolAvailable() (tracers, projectiles int) {
	if w.tracers != nil {
		tracers = w.tracers.Available(w.tracerKind)
	}
	if w.projectiles != nil {
		projectiles = w.projectiles.Available(w.projectileKind)
	}
	return tracers, projectiles
}

// PoolCapacity reports the tracer and projectile pool capacities of w.
func (w *Weapon) PoolCapacity() (tracers, projectiles int) {
	if w.tracers != nil {
		tracers = w.tracers.Capacity(w.tracerKind)
	}
	if w.projectiles != nil {
		projectiles = w.projectiles.Capacity(w.projectileKind)
	}
	return tracers, projectiles
}
