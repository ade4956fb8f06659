package weapon

import (
	"github.com/cory-johannsen/firingrange/internal/game/inventory"
	"github.com/cory-johannsen/firingrange/internal/game/world"
)

// UnlimitedAmmo is the ammo amount reported to the UI for weapons that never
// draw from the reserve.
const UnlimitedAmmo = -1

// Reserve is the owner's ammo inventory as seen by a weapon: lookups and
// debits only. *inventory.Ammo satisfies it.
type Reserve interface {
	Amount(t inventory.AmmoType) int
	Take(t inventory.AmmoType, n int) int
}

// UI receives the weapon HUD updates.
type UI interface {
	UpdateWeaponName(name string)
	UpdateClipInfo(current, max int)
	UpdateAmmoAmount(count int)
}

// Aimer tells a weapon where the shooter is looking and where the muzzle is.
type Aimer interface {
	Camera() world.Camera
	Muzzle() world.Vec3
}

// Damageable is implemented by body owners that raycast shots can damage.
type Damageable interface {
	ApplyDamage(amount float64)
}

// ProjectileTarget is implemented by body owners that projectiles destroy on contact.
type ProjectileTarget interface {
	HitByProjectile()
}

// Shake is a camera shake request.
type Shake struct {
	Duration  float64
	Amplitude float64
}

// Trace is one resolved raycast of a shot.
type Trace struct {
	Ray world.Ray
	// End is where the tracer line is drawn to.
	End world.Vec3
	Hit world.Hit
	// Struck is true when the trace hit a blocking body.
	Struck bool
}

// ShotEvent describes a single successful Fire.
type ShotEvent struct {
	WeaponID string
	// Traces holds one entry per raycast; empty for projectile weapons.
	Traces []Trace
	// Projectiles is the number of projectiles launched; 0 for raycast weapons.
	Projectiles int
	// Pitch is the audio pitch for the fire sound, in [0.7, 1.0).
	Pitch float64
	Shake Shake
	// ClipContent is the clip count after the shot.
	ClipContent int
}

// EventSink receives the cosmetic side effects of weapon activity: audio,
// animation, camera shake. Implementations must not call back into the weapon.
type EventSink interface {
	ShotFired(ev ShotEvent)
	ReloadStarted(weaponID string)
	ReloadFinished(weaponID string, clipContent int)
}

// NopEvents discards every event.
type NopEvents struct{}

func (NopEvents) ShotFired(ShotEvent)        {}
func (NopEvents) ReloadStarted(string)       {}
func (NopEvents) ReloadFinished(string, int) {}

type nopUI struct{}

func (nopUI) UpdateWeaponName(string) {}
func (nopUI) UpdateClipInfo(int, int) {}
func (nopUI) UpdateAmmoAmount(int)    {}

// FixedAim is an Aimer that never moves.
type FixedAim struct {
	Cam world.Camera
	At  world.Vec3
}

func (f FixedAim) Camera() world.Camera { return f.Cam }
func (f FixedAim) Muzzle() world.Vec3   { return f.At }
