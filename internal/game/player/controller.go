// Package player provides the player controller: it owns the ammo reserve and
// the carried weapons, turns control snapshots into weapon and movement
// actions, and aims for the active weapon.
package player

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/firingrange/internal/game/inventory"
	"github.com/cory-johannsen/firingrange/internal/game/weapon"
	"github.com/cory-johannsen/firingrange/internal/game/world"
	"github.com/cory-johannsen/firingrange/internal/input"
)

// DefaultMuzzleOffset places the muzzle right of, below, and ahead of the eye.
var DefaultMuzzleOffset = world.Vec3{X: 0.2, Y: -0.15, Z: 0.5}

// Options configure a Controller.
type Options struct {
	// Position is where the player's feet start; its Y is the ground height.
	Position world.Vec3
	// Forward is the view direction. Zero means world.Forward.
	Forward     world.Vec3
	EyeHeight   float64
	FieldOfView float64
	JumpSpeed   float64
	Gravity     float64
	// MuzzleOffset is in the view frame: X right, Y up, Z forward.
	MuzzleOffset world.Vec3
}

// Controller is the player. It is driven from the simulation goroutine only.
type Controller struct {
	ammo    *inventory.Ammo
	ui      weapon.UI
	weapons []*weapon.Weapon
	current int

	position    world.Vec3
	groundY     float64
	verticalVel float64
	grounded    bool
	forward     world.Vec3
	eyeHeight   float64
	fov         float64
	jumpSpeed   float64
	gravity     float64
	muzzle      world.Vec3

	tracker input.Tracker
	logger  *zap.Logger
}

// New creates a Controller owning ammo and registers itself as its observer.
// Weapons are added with Equip.
//
// Precondition: ammo must be non-nil.
// Postcondition: the controller is grounded at opts.Position.
func New(ammo *inventory.Ammo, ui weapon.UI, opts Options, logger *zap.Logger) *Controller {
	if ammo == nil {
		panic("player.New: ammo must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	fwd := opts.Forward
	if fwd == world.Zero {
		fwd = world.Forward
	}
	muzzle := opts.MuzzleOffset
	if muzzle == world.Zero {
		muzzle = DefaultMuzzleOffset
	}
	c := &Controller{
		ammo:      ammo,
		ui:        ui,
		position:  opts.Position,
		groundY:   opts.Position.Y,
		grounded:  true,
		forward:   fwd.Normalized(),
		eyeHeight: opts.EyeHeight,
		fov:       opts.FieldOfView,
		jumpSpeed: opts.JumpSpeed,
		gravity:   opts.Gravity,
		muzzle:    muzzle,
		logger:    logger,
	}
	ammo.SetObserver(c)
	return c
}

// Equip builds a weapon for each def, wired to this controller's reserve, aim
// and UI, in carry order. base supplies the remaining collaborators.
//
// Precondition: base.Raycaster must be non-nil.
// Postcondition: on success every def is carried; on error none from this call are.
func (c *Controller) Equip(defs []*inventory.WeaponDef, base weapon.Deps) error {
	if len(defs) == 0 {
		return errors.New("player.Equip: no weapons")
	}
	deps := base
	deps.Reserve = c.ammo
	deps.Aim = c
	deps.UI = c.ui
	if deps.Logger == nil {
		deps.Logger = c.logger
	}

	built := make([]*weapon.Weapon, 0, len(defs))
	for _, def := range defs {
		w, err := weapon.New(def, deps)
		if err != nil {
			return fmt.Errorf("player.Equip: %w", err)
		}
		built = append(built, w)
	}
	c.weapons = append(c.weapons, built...)
	return nil
}

// Start selects the first carried weapon.
func (c *Controller) Start() {
	if w := c.Active(); w != nil {
		w.Select()
	}
}

// Ammo returns the reserve the controller owns.
func (c *Controller) Ammo() *inventory.Ammo { return c.ammo }

// Weapons returns the carried weapons in carry order.
func (c *Controller) Weapons() []*weapon.Weapon { return c.weapons }

// Active returns the selected weapon, or nil when nothing is carried.
func (c *Controller) Active() *weapon.Weapon {
	if len(c.weapons) == 0 {
		return nil
	}
	return c.weapons[c.current]
}

// SwitchTo puts the active weapon away and selects weapon i.
//
// Postcondition: Active() is weapons[i] in the Idle state; returns an error if
// i is out of range.
func (c *Controller) SwitchTo(i int) error {
	if i < 0 || i >= len(c.weapons) {
		return fmt.Errorf("player.SwitchTo: index %d out of range [0, %d)", i, len(c.weapons))
	}
	if prev := c.Active(); prev != nil {
		prev.PutAway()
	}
	c.current = i
	w := c.weapons[i]
	w.Select()
	c.logger.Debug("weapon switched", zap.String("weapon", w.ID()))
	return nil
}

// NextWeapon cycles to the next carried weapon.
func (c *Controller) NextWeapon() {
	if len(c.weapons) < 2 {
		return
	}
	_ = c.SwitchTo((c.current + 1) % len(c.weapons))
}

// PickUpAmmo adds n rounds of t to the reserve.
func (c *Controller) PickUpAmmo(t inventory.AmmoType, n int) {
	c.ammo.Change(t, n)
}

// AmmoChanged re-readies the active weapon when its ammo type goes from empty
// to stocked, and keeps the HUD reserve in step for the active ammo type.
// Changes to other types are not displayed.
func (c *Controller) AmmoChanged(t inventory.AmmoType, before, after int) {
	w := c.Active()
	if w == nil || w.Def().AmmoType != t {
		return
	}
	if before == 0 && after > 0 {
		w.Select()
		return
	}
	if c.ui != nil {
		c.ui.UpdateAmmoAmount(after)
	}
}

// Tick applies one control snapshot and advances the active weapon and the
// player's vertical motion by dt seconds.
func (c *Controller) Tick(dt float64, raw input.State) {
	pressed := c.tracker.Update(raw)

	if pressed.NextWeapon {
		c.NextWeapon()
	}
	if w := c.Active(); w != nil {
		w.SetTriggerDown(pressed.Trigger)
		if pressed.Reload {
			w.StartReload()
		}
		w.Advance(dt)
	}
	if pressed.Jump {
		c.Jump()
	}
	c.integrate(dt)
}

// Jump launches the player upward. Jumping is only possible while grounded.
//
// Postcondition: returns true and Grounded() is false iff the player was grounded.
func (c *Controller) Jump() bool {
	if !c.grounded {
		return false
	}
	c.grounded = false
	c.verticalVel = c.jumpSpeed
	c.logger.Debug("jump", zap.Float64("speed", c.jumpSpeed))
	return true
}

func (c *Controller) integrate(dt float64) {
	if c.grounded {
		return
	}
	c.verticalVel -= c.gravity * dt
	c.position.Y += c.verticalVel * dt
	if c.position.Y <= c.groundY {
		c.position.Y = c.groundY
		c.verticalVel = 0
		c.grounded = true
		c.logger.Debug("landed")
	}
}

// Grounded reports whether the player stands on the ground.
func (c *Controller) Grounded() bool { return c.grounded }

// Position returns the player's feet position.
func (c *Controller) Position() world.Vec3 { return c.position }

// Camera returns the player's eye.
func (c *Controller) Camera() world.Camera {
	return world.Camera{
		Origin:      c.position.Add(world.Up.Scale(c.eyeHeight)),
		Forward:     c.forward,
		Up:          world.Up,
		FieldOfView: c.fov,
	}
}

// Muzzle returns the world position of the active weapon's muzzle.
func (c *Controller) Muzzle() world.Vec3 {
	cam := c.Camera()
	fwd := cam.Forward.Normalized()
	right := cam.Up.Cross(fwd).Normalized()
	up := fwd.Cross(right)
	return cam.Origin.
		Add(right.Scale(c.muzzle.X)).
		Add(up.Scale(c.muzzle.Y)).
		Add(fwd.Scale(c.muzzle.Z))
}
