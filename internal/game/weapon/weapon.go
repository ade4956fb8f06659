// Package weapon implements the per-weapon fire-control state machine. Shots
// resolve by raycast or by pooled projectile.
//
// A Weapon is driven from a single simulation goroutine. A guard failure, such
// as firing while reloading, is a silent no-op; errors are only returned for
// configuration problems at construction.
package weapon

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/cory-johannsen/firingrange/internal/game/inventory"
	"github.com/cory-johannsen/firingrange/internal/game/pool"
	"github.com/cory-johannsen/firingrange/internal/game/rng"
	"github.com/cory-johannsen/firingrange/internal/game/world"
)

// State is a fire-control state.
type State string

const (
	Idle      State = "idle"
	Firing    State = "firing"
	Reloading State = "reloading"
)

const (
	evFire     = "fire"
	evSettle   = "settle"
	evReload   = "reload"
	evReloaded = "reloaded"
)

// Shot resolution constants.
const (
	// MaxShotDistance is how far a raycast shot reaches.
	MaxShotDistance = 1000.0
	// TracerLifetime is how long a tracer stays visible, in seconds.
	TracerLifetime = 0.3
	// TracerSpeed is how fast a tracer's far end moves outward, in units per second.
	TracerSpeed = 100.0
	// MinTracerPoolSize is the tracer pool capacity used when nothing larger is needed.
	MinTracerPoolSize = 16

	tracerMissLength     = 200.0
	tracerMinHitDistance = 5.0
	minProjectilePool    = 4
	shakeDuration        = 0.2
	shakeAmplitude       = 0.05
	minPitch, maxPitch   = 0.7, 1.0

	// timeEpsilon absorbs float drift from repeated dt subtraction.
	timeEpsilon = 1e-9
)

// shotMask is every layer except the shooter's own weapon.
var shotMask = world.AllLayers.Without(world.LayerWeapon)

// ErrPoolTooSmall reports a pool that cannot cover the weapon's worst case.
var ErrPoolTooSmall = errors.New("weapon: pool too small")

// Deps are the collaborators a Weapon calls into. Aim and Raycaster are
// required; the rest fall back to no-op or default implementations.
type Deps struct {
	// Reserve is the owner's ammo inventory. A nil Reserve or nil *inventory.Ammo
	// behaves as empty.
	Reserve   Reserve
	UI        UI
	Aim       Aimer
	Raycaster world.Raycaster
	Rand      rng.Source
	Events    EventSink
	Logger    *zap.Logger
}

// Weapon is one equipped weapon instance.
//
// Invariant: 0 <= ClipContent() <= Def().ClipSize.
type Weapon struct {
	def  *inventory.WeaponDef
	clip *inventory.Clip

	machine      *fsm.FSM
	stateElapsed float64
	shotTimer    float64
	triggerDown  bool
	shotDone     bool
	shots        int

	reserve   Reserve
	ui        UI
	aim       Aimer
	raycaster world.Raycaster
	rand      rng.Source
	events    EventSink
	logger    *zap.Logger

	tracers           *pool.Arena[Tracer]
	tracerKind        pool.Kind
	activeTracers     []pool.Handle
	projectiles       *pool.Arena[Projectile]
	projectileKind    pool.Kind
	activeProjectiles []pool.Handle
}

// New builds a Weapon for def with a full clip, in the Idle state, and
// pre-warms its tracer or projectile pool.
//
// Precondition: def has had ApplyDefaults called.
// Postcondition: returns a ready Weapon, or an error when def is invalid, a
// required collaborator is missing, or a configured pool is too small.
func New(def *inventory.WeaponDef, deps Deps) (*Weapon, error) {
	if def == nil {
		return nil, errors.New("weapon: New: def must not be nil")
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("weapon: New %q: %w", def.ID, err)
	}
	if deps.Aim == nil || deps.Raycaster == nil {
		return nil, fmt.Errorf("weapon: New %q: Aim and Raycaster are required", def.ID)
	}
	if deps.UI == nil {
		deps.UI = nopUI{}
	}
	if deps.Events == nil {
		deps.Events = NopEvents{}
	}
	if deps.Rand == nil {
		deps.Rand = rng.NewCryptoSource()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	w := &Weapon{
		def:       def,
		clip:      inventory.NewClip(def.ClipSize),
		reserve:   deps.Reserve,
		ui:        deps.UI,
		aim:       deps.Aim,
		raycaster: deps.Raycaster,
		rand:      deps.Rand,
		events:    deps.Events,
		logger:    deps.Logger.With(zap.String("weapon", def.ID)),
	}
	w.machine = fsm.NewFSM(
		string(Idle),
		fsm.Events{
			{Name: evFire, Src: []string{string(Idle)}, Dst: string(Firing)},
			{Name: evSettle, Src: []string{string(Firing)}, Dst: string(Idle)},
			{Name: evReload, Src: []string{string(Idle), string(Firing)}, Dst: string(Reloading)},
			{Name: evReloaded, Src: []string{string(Reloading)}, Dst: string(Idle)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				w.stateElapsed = 0
				w.logger.Debug("weapon state changed",
					zap.String("event", e.Event),
					zap.String("from", e.Src),
					zap.String("to", e.Dst),
				)
			},
		},
	)

	if err := w.initPools(); err != nil {
		return nil, err
	}
	return w, nil
}

// TracerPoolRequirement returns the worst-case number of tracers of def alive
// at once: every trace of every shot fired within one tracer lifetime.
func TracerPoolRequirement(def *inventory.WeaponDef) int {
	return def.ProjectilesPerShot * (int(TracerLifetime/def.FireRate) + 1)
}

// ProjectilePoolSize returns the number of projectiles pre-warmed for def.
func ProjectilePoolSize(def *inventory.WeaponDef) int {
	return max(minProjectilePool, def.ClipSize) * def.ProjectilesPerShot
}

func (w *Weapon) initPools() error {
	switch w.def.Kind {
	case inventory.KindRaycast:
		if !w.def.Tracers {
			return nil
		}
		need := TracerPoolRequirement(w.def)
		size := w.def.TracerPoolSize
		if size == 0 {
			size = max(MinTracerPoolSize, need)
		}
		if size < need {
			return fmt.Errorf("weapon %q: tracer pool of %d cannot cover %d live tracers: %w",
				w.def.ID, size, need, ErrPoolTooSmall)
		}
		w.tracers = pool.New[Tracer]()
		w.tracerKind = pool.Kind("tracer:" + w.def.ID)
		if err := w.tracers.Register(w.tracerKind, size, nil); err != nil {
			return fmt.Errorf("weapon %q: %w", w.def.ID, err)
		}
	case inventory.KindProjectile:
		w.projectiles = pool.New[Projectile]()
		w.projectileKind = pool.Kind("projectile:" + w.def.ID)
		if err := w.projectiles.Register(w.projectileKind, ProjectilePoolSize(w.def), nil); err != nil {
			return fmt.Errorf("weapon %q: %w", w.def.ID, err)
		}
	}
	return nil
}

// Def returns the static definition of w.
func (w *Weapon) Def() *inventory.WeaponDef { return w.def }

// ID returns the definition ID of w.
func (w *Weapon) ID() string { return w.def.ID }

// State returns the current fire-control state.
func (w *Weapon) State() State { return State(w.machine.Current()) }

// ClipContent returns the rounds currently loaded.
func (w *Weapon) ClipContent() int { return w.clip.Loaded }

// ShotTimer returns the remaining cooldown; <= 0 means ready.
func (w *Weapon) ShotTimer() float64 { return w.shotTimer }

// TriggerDown reports whether the trigger is held.
func (w *Weapon) TriggerDown() bool { return w.triggerDown }

// Shots returns how many shots w has fired.
func (w *Weapon) Shots() int { return w.shots }

// SetTriggerDown sets the trigger state. Releasing the trigger re-arms a
// manual weapon for its next press.
func (w *Weapon) SetTriggerDown(down bool) {
	w.triggerDown = down
	if !down {
		w.shotDone = false
	}
}

// Select readies w after it is equipped: the state returns to Idle, the
// trigger is released, an empty clip is topped off from the reserve, and the
// UI is refreshed.
//
// Postcondition: State() == Idle; if the clip was empty and the reserve held
// a > 0 rounds, ClipContent() == min(a, ClipSize) and the reserve is debited
// by the same amount.
func (w *Weapon) Select() {
	w.machine.SetState(string(Idle))
	w.stateElapsed = 0
	w.SetTriggerDown(false)

	if w.clip.IsEmpty() {
		if avail := w.reserveAmount(); avail > 0 {
			w.clip.Load(w.take(min(avail, w.clip.Capacity)))
		}
	}

	w.ui.UpdateWeaponName(w.def.Name)
	w.ui.UpdateClipInfo(w.clip.Loaded, w.clip.Capacity)
	w.ui.UpdateAmmoAmount(w.displayAmmo())
	w.logger.Debug("weapon selected",
		zap.Int("clip", w.clip.Loaded),
		zap.Int("reserve", w.reserveAmount()),
	)
}

// PutAway clears the trigger and returns every live tracer and projectile to
// its pool.
func (w *Weapon) PutAway() {
	w.SetTriggerDown(false)
	for _, h := range w.activeTracers {
		w.releaseTracer(h)
	}
	w.activeTracers = w.activeTracers[:0]
	for _, h := range w.activeProjectiles {
		w.releaseProjectile(h)
	}
	w.activeProjectiles = w.activeProjectiles[:0]
}

// Fire attempts one shot.
//
// Postcondition: when State() was Idle, the cooldown had elapsed and the clip
// was not empty, exactly one shot is emitted, ClipContent() decreased by 1,
// ShotTimer() == FireRate and State() == Firing, and Fire returns true.
// Otherwise nothing changes and Fire returns false.
func (w *Weapon) Fire() bool {
	if w.State() != Idle || w.shotTimer > timeEpsilon || w.clip.IsEmpty() {
		return false
	}

	w.clip.Consume()
	w.shotTimer = w.def.FireRate
	w.shots++
	w.ui.UpdateClipInfo(w.clip.Loaded, w.clip.Capacity)
	w.transition(evFire)

	ev := ShotEvent{
		WeaponID:    w.def.ID,
		Pitch:       rng.Range(w.rand, minPitch, maxPitch),
		Shake:       Shake{Duration: shakeDuration, Amplitude: shakeAmplitude * w.def.ScreenShake},
		ClipContent: w.clip.Loaded,
	}
	switch w.def.Kind {
	case inventory.KindRaycast:
		for i := 0; i < w.def.ProjectilesPerShot; i++ {
			ev.Traces = append(ev.Traces, w.raycastShot())
		}
	case inventory.KindProjectile:
		ev.Projectiles = w.projectileShot()
	}

	w.logger.Debug("shot fired",
		zap.Int("clip", w.clip.Loaded),
		zap.Int("traces", len(ev.Traces)),
		zap.Int("projectiles", ev.Projectiles),
	)
	w.events.ShotFired(ev)
	return true
}

// StartReload begins a reload.
//
// Postcondition: State() == Reloading iff State() was Idle, the clip was not
// full and the reserve was not empty; otherwise nothing changes.
func (w *Weapon) StartReload() bool {
	if w.State() != Idle || w.clip.IsFull() || w.reserveAmount() <= 0 {
		return false
	}
	w.beginReload()
	return true
}

// Advance moves w forward by dt seconds: the cooldown runs down, live tracers
// and projectiles move, timed state transitions fire, and a held trigger
// fires according to the trigger type.
//
// Precondition: dt >= 0.
func (w *Weapon) Advance(dt float64) {
	if w.shotTimer >= 0 {
		w.shotTimer -= dt
	}
	w.stateElapsed += dt

	w.advanceTracers(dt)
	w.advanceProjectiles(dt)

	switch w.State() {
	case Firing:
		if w.stateElapsed+timeEpsilon >= w.def.FireActionTime/2 {
			w.settle()
		}
	case Reloading:
		if w.stateElapsed+timeEpsilon >= w.def.ReloadTime {
			w.finishReload()
		}
	}

	if w.triggerDown && (w.def.Trigger == inventory.TriggerAuto || !w.shotDone) {
		w.Fire()
		// a manual press is spent even when the attempt was gated
		w.shotDone = true
	}
}

// settle ends the fire action: an empty clip with reserve behind it goes
// straight into a reload, anything else returns to Idle.
func (w *Weapon) settle() {
	if w.clip.IsEmpty() && w.reserveAmount() > 0 {
		w.beginReload()
		return
	}
	w.transition(evSettle)
}

func (w *Weapon) beginReload() {
	w.transition(evReload)
	w.events.ReloadStarted(w.def.ID)
}

// finishReload tops the clip off from the reserve and returns to Idle.
func (w *Weapon) finishReload() {
	if avail := w.reserveAmount(); avail > 0 {
		w.clip.Load(w.take(min(avail, w.clip.Missing())))
	}
	w.transition(evReloaded)
	w.ui.UpdateClipInfo(w.clip.Loaded, w.clip.Capacity)
	w.ui.UpdateAmmoAmount(w.displayAmmo())
	w.events.ReloadFinished(w.def.ID, w.clip.Loaded)
}

func (w *Weapon) transition(event string) {
	if err := w.machine.Event(context.Background(), event); err != nil {
		// guards are checked before every transition; reaching here is a bug
		w.logger.Warn("weapon transition rejected",
			zap.String("event", event),
			zap.String("state", w.machine.Current()),
			zap.Error(err),
		)
	}
}

func (w *Weapon) reserveAmount() int {
	if !w.def.UsesInventory() {
		return inventory.MaxAmmo
	}
	if w.reserve == nil {
		return 0
	}
	return w.reserve.Amount(w.def.AmmoType)
}

func (w *Weapon) displayAmmo() int {
	if !w.def.UsesInventory() {
		return UnlimitedAmmo
	}
	return w.reserveAmount()
}

func (w *Weapon) take(n int) int {
	if !w.def.UsesInventory() {
		return n
	}
	if w.reserve == nil {
		return 0
	}
	return w.reserve.Take(w.def.AmmoType, n)
}
