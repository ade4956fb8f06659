package weapon_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/firingrange/internal/game/inventory"
	"github.com/cory-johannsen/firingrange/internal/game/rng"
	"github.com/cory-johannsen/firingrange/internal/game/weapon"
	"github.com/cory-johannsen/firingrange/internal/game/world"
)

const dt = 0.125

type recordingUI struct {
	name      string
	clip, max int
	ammo      int
	clipCalls int
	nameCalls int
	ammoCalls int
}

func (u *recordingUI) UpdateWeaponName(name string) { u.name = name; u.nameCalls++ }
func (u *recordingUI) UpdateClipInfo(c, m int)      { u.clip, u.max = c, m; u.clipCalls++ }
func (u *recordingUI) UpdateAmmoAmount(n int)       { u.ammo = n; u.ammoCalls++ }

type recordingEvents struct {
	shots    []weapon.ShotEvent
	started  int
	finished []int
}

func (e *recordingEvents) ShotFired(ev weapon.ShotEvent)     { e.shots = append(e.shots, ev) }
func (e *recordingEvents) ReloadStarted(string)              { e.started++ }
func (e *recordingEvents) ReloadFinished(_ string, clip int) { e.finished = append(e.finished, clip) }

type dummy struct {
	damage float64
	hits   int
}

func (d *dummy) ApplyDamage(amount float64) { d.damage += amount }
func (d *dummy) HitByProjectile()           { d.hits++ }

func rifleDef() *inventory.WeaponDef {
	def := &inventory.WeaponDef{
		ID:          "rifle",
		Name:        "Rifle",
		Trigger:     inventory.TriggerAuto,
		Kind:        inventory.KindRaycast,
		FireRate:    0.5,
		ReloadTime:  1.0,
		ClipSize:    4,
		Damage:      2,
		AmmoType:    1,
		SpreadAngle: 0,
		Tracers:     true,
	}
	def.ApplyDefaults()
	return def
}

func aim() weapon.FixedAim {
	return weapon.FixedAim{
		Cam: world.Camera{Forward: world.Forward, Up: world.Up, FieldOfView: 60},
		At:  world.Vec3{X: 0.2, Y: -0.1, Z: 0.5},
	}
}

type fixture struct {
	w      *weapon.Weapon
	ammo   *inventory.Ammo
	ui     *recordingUI
	events *recordingEvents
	scene  *world.Scene
	target *dummy
}

func newFixture(t *testing.T, def *inventory.WeaponDef, reserve int) *fixture {
	t.Helper()
	f := &fixture{
		ammo:   inventory.NewAmmo([]inventory.AmmoStack{{Type: 1, Amount: reserve}}),
		ui:     &recordingUI{},
		events: &recordingEvents{},
		scene:  world.NewScene(),
		target: &dummy{},
	}
	f.scene.Add(&world.Body{
		Shape: world.Sphere{Center: world.Vec3{Z: 20}, Radius: 1},
		Layer: world.LayerTarget,
		Owner: f.target,
	})
	w, err := weapon.New(def, weapon.Deps{
		Reserve:   f.ammo,
		UI:        f.ui,
		Aim:       aim(),
		Raycaster: f.scene,
		Rand:      rng.NewSeededSource(1),
		Events:    f.events,
		Logger:    zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	f.w = w
	return f
}

func (f *fixture) advance(ticks int) {
	for i := 0; i < ticks; i++ {
		f.w.Advance(dt)
	}
}

func TestNew_StartsIdleWithFullClip(t *testing.T) {
	f := newFixture(t, rifleDef(), 10)
	assert.Equal(t, weapon.Idle, f.w.State())
	assert.Equal(t, 4, f.w.ClipContent())
	assert.Equal(t, 0, f.ui.clipCalls, "UI is untouched until Select")
}

func TestNew_RequiresAimAndRaycaster(t *testing.T) {
	_, err := weapon.New(rifleDef(), weapon.Deps{})
	assert.Error(t, err)
}

func TestNew_RejectsInvalidDef(t *testing.T) {
	def := rifleDef()
	def.ClipSize = 0
	_, err := weapon.New(def, weapon.Deps{Aim: aim(), Raycaster: world.NewScene()})
	assert.Error(t, err)
}

func TestNew_TracerPoolTooSmall(t *testing.T) {
	def := rifleDef()
	def.FireRate = 0.05
	def.ProjectilesPerShot = 8
	def.TracerPoolSize = 16
	_, err := weapon.New(def, weapon.Deps{Aim: aim(), Raycaster: world.NewScene()})
	require.Error(t, err)
	assert.ErrorIs(t, err, weapon.ErrPoolTooSmall)
}

func TestNew_TracerPoolAutoSized(t *testing.T) {
	def := rifleDef()
	def.FireRate = 0.05
	def.ProjectilesPerShot = 8
	w, err := weapon.New(def, weapon.Deps{Aim: aim(), Raycaster: world.NewScene()})
	require.NoError(t, err)
	tracers, _ := w.PoolCapacity()
	assert.Equal(t, weapon.TracerPoolRequirement(def), tracers)
	assert.Greater(t, tracers, weapon.MinTracerPoolSize)
}

func TestNew_ProjectilePoolSize(t *testing.T) {
	def := rifleDef()
	def.Kind = inventory.KindProjectile
	def.ClipSize = 2
	def.ProjectilesPerShot = 3
	def.ApplyDefaults()
	w, err := weapon.New(def, weapon.Deps{Aim: aim(), Raycaster: world.NewScene()})
	require.NoError(t, err)
	tracers, projectiles := w.PoolCapacity()
	assert.Equal(t, 0, tracers)
	assert.Equal(t, 12, projectiles, "max(4, clip) * projectiles_per_shot")
}

func TestSelect_TopsOffEmptyClip(t *testing.T) {
	f := newFixture(t, rifleDef(), 10)
	for i := 0; i < 4; i++ {
		require.True(t, f.w.Fire())
		f.advance(4)
	}
	require.Equal(t, 0, f.w.ClipContent())
	require.Equal(t, weapon.Reloading, f.w.State())

	f.w.Select()
	assert.Equal(t, weapon.Idle, f.w.State())
	assert.Equal(t, 4, f.w.ClipContent())
	assert.Equal(t, 6, f.ammo.Amount(1))
	assert.Equal(t, "Rifle", f.ui.name)
	assert.Equal(t, 4, f.ui.clip)
	assert.Equal(t, 4, f.ui.max)
	assert.Equal(t, 6, f.ui.ammo)
}

func TestSelect_PartialTopOff(t *testing.T) {
	f := newFixture(t, rifleDef(), 2)
	for i := 0; i < 4; i++ {
		require.True(t, f.w.Fire())
		f.advance(4)
	}
	f.w.Select()
	assert.Equal(t, 2, f.w.ClipContent())
	assert.Equal(t, 0, f.ammo.Amount(1))
}

func TestSelect_KeepsPartialClip(t *testing.T) {
	f := newFixture(t, rifleDef(), 10)
	require.True(t, f.w.Fire())
	f.advance(4)
	f.w.Select()
	assert.Equal(t, 3, f.w.ClipContent(), "only an empty clip is topped off")
	assert.Equal(t, 10, f.ammo.Amount(1))
}

func TestFire_Guards(t *testing.T) {
	f := newFixture(t, rifleDef(), 10)
	f.w.Select()

	require.True(t, f.w.Fire())
	assert.Equal(t, weapon.Firing, f.w.State())
	assert.Equal(t, 3, f.w.ClipContent())
	assert.Equal(t, 0.5, f.w.ShotTimer())

	assert.False(t, f.w.Fire(), "cannot fire while Firing")
	f.advance(2)
	require.Equal(t, weapon.Idle, f.w.State())
	assert.False(t, f.w.Fire(), "cannot fire before the cooldown elapses")
	assert.Equal(t, 3, f.w.ClipContent())

	f.advance(2)
	assert.True(t, f.w.Fire())
	assert.Equal(t, 2, f.w.Shots())
}

func TestFire_DamagesHitTarget(t *testing.T) {
	f := newFixture(t, rifleDef(), 10)
	f.w.Select()
	require.True(t, f.w.Fire())

	assert.Equal(t, 2.0, f.target.damage)
	require.Len(t, f.events.shots, 1)
	ev := f.events.shots[0]
	require.Len(t, ev.Traces, 1)
	assert.True(t, ev.Traces[0].Struck)
	assert.InDelta(t, 19.0, ev.Traces[0].End.Z, 1e-9, "tracer ends at the hit point")
	assert.GreaterOrEqual(t, ev.Pitch, 0.7)
	assert.Less(t, ev.Pitch, 1.0)
	assert.InDelta(t, 0.2, ev.Shake.Duration, 1e-12)
	assert.InDelta(t, 0.05, ev.Shake.Amplitude, 1e-12)
	assert.Equal(t, 3, ev.ClipContent)
}

func TestFire_MissDrawsDefaultTracer(t *testing.T) {
	def := rifleDef()
	w, err := weapon.New(def, weapon.Deps{Aim: aim(), Raycaster: world.NewScene()})
	require.NoError(t, err)
	require.True(t, w.Fire())
	tracers := w.ActiveTracers()
	require.Len(t, tracers, 1)
	assert.InDelta(t, 200.0, tracers[0].End.Z, 1e-9)
	assert.Equal(t, aim().At, tracers[0].Start)
}

func TestFire_IgnoresWeaponLayerAndTriggers(t *testing.T) {
	scene := world.NewScene()
	own := &dummy{}
	trig := &dummy{}
	scene.Add(&world.Body{Shape: world.Sphere{Center: world.Vec3{Z: 2}, Radius: 0.5}, Layer: world.LayerWeapon, Owner: own})
	scene.Add(&world.Body{Shape: world.Sphere{Center: world.Vec3{Z: 4}, Radius: 0.5}, Layer: world.LayerDefault, Trigger: true, Owner: trig})
	w, err := weapon.New(rifleDef(), weapon.Deps{Aim: aim(), Raycaster: scene})
	require.NoError(t, err)
	require.True(t, w.Fire())
	assert.Zero(t, own.damage)
	assert.Zero(t, trig.damage)
}

func TestFire_SpreadStaysInsideCone(t *testing.T) {
	def := rifleDef()
	def.SpreadAngle = 6
	def.ProjectilesPerShot = 8
	events := &recordingEvents{}
	w, err := weapon.New(def, weapon.Deps{
		Aim:       aim(),
		Raycaster: world.NewScene(),
		Rand:      rng.NewSeededSource(42),
		Events:    events,
	})
	require.NoError(t, err)
	require.True(t, w.Fire())
	require.Len(t, events.shots, 1)
	traces := events.shots[0].Traces
	require.Len(t, traces, 8)
	assert.Equal(t, 3, w.ClipContent(), "one round per shot regardless of traces")
	// a viewport offset of 0.1 subtends well under 10 degrees at fov 60
	for _, tr := range traces {
		assert.Greater(t, tr.Ray.Direction.Dot(world.Forward), 0.98)
	}
}

func TestScenario_FireThroughClipAndReload(t *testing.T) {
	f := newFixture(t, rifleDef(), 10)
	f.w.Select()
	require.Equal(t, 4, f.w.ClipContent())
	require.Equal(t, 10, f.ammo.Amount(1))

	f.w.SetTriggerDown(true)
	// shots land on ticks 1, 5, 9 and 13
	f.advance(13)
	assert.Equal(t, 4, f.w.Shots())
	assert.Equal(t, 0, f.w.ClipContent())
	assert.Equal(t, weapon.Firing, f.w.State())

	f.advance(2)
	assert.Equal(t, weapon.Reloading, f.w.State(), "empty clip with reserve reloads")
	assert.Equal(t, 1, f.events.started)
	f.w.SetTriggerDown(false)

	f.advance(7)
	assert.Equal(t, weapon.Reloading, f.w.State())
	f.advance(1)
	assert.Equal(t, weapon.Idle, f.w.State())
	assert.Equal(t, 4, f.w.ClipContent())
	assert.Equal(t, 6, f.ammo.Amount(1))
	assert.Equal(t, []int{4}, f.events.finished)
	assert.Equal(t, 6, f.ui.ammo)
}

func TestScenario_EmptyClipNoReserveSettlesIdle(t *testing.T) {
	f := newFixture(t, rifleDef(), 0)
	f.w.Select()
	f.w.SetTriggerDown(true)
	f.advance(20)
	assert.Equal(t, 4, f.w.Shots())
	assert.Equal(t, weapon.Idle, f.w.State())
	assert.Equal(t, 0, f.events.started)

	// ammo arriving re-arms the weapon via Select
	f.ammo.Change(1, 3)
	f.w.Select()
	assert.Equal(t, 3, f.w.ClipContent())
}

func TestNilReserve_BehavesAsEmpty(t *testing.T) {
	var typedNil *inventory.Ammo
	cases := map[string]weapon.Reserve{
		"untyped nil": nil,
		"typed nil":   typedNil,
	}
	for name, reserve := range cases {
		t.Run(name, func(t *testing.T) {
			w, err := weapon.New(rifleDef(), weapon.Deps{
				Reserve:   reserve,
				Aim:       aim(),
				Raycaster: world.NewScene(),
				Rand:      rng.NewSeededSource(1),
				Logger:    zaptest.NewLogger(t),
			})
			require.NoError(t, err)

			require.NotPanics(t, func() {
				w.Select()
				w.SetTriggerDown(true)
				for i := 0; i < 40; i++ {
					w.Advance(0.125)
				}
			})
			assert.Equal(t, 4, w.Shots(), "only the initial clip fires")
			assert.Equal(t, 0, w.ClipContent())
			assert.Equal(t, weapon.Idle, w.State())
			assert.False(t, w.StartReload())
		})
	}
}

func TestStartReload_Guards(t *testing.T) {
	f := newFixture(t, rifleDef(), 10)
	f.w.Select()
	assert.False(t, f.w.StartReload(), "full clip")

	require.True(t, f.w.Fire())
	assert.False(t, f.w.StartReload(), "not while Firing")

	f.advance(2)
	require.Equal(t, weapon.Idle, f.w.State())
	assert.True(t, f.w.StartReload())
	assert.Equal(t, weapon.Reloading, f.w.State())
	assert.False(t, f.w.Fire(), "cannot fire while Reloading")

	f.advance(8)
	assert.Equal(t, weapon.Idle, f.w.State())
	assert.Equal(t, 4, f.w.ClipContent())
	assert.Equal(t, 9, f.ammo.Amount(1))
}

func TestStartReload_NoReserve(t *testing.T) {
	f := newFixture(t, rifleDef(), 0)
	require.True(t, f.w.Fire())
	f.advance(2)
	assert.False(t, f.w.StartReload())
	assert.Equal(t, weapon.Idle, f.w.State())
}

func TestManualTrigger_OneShotPerPress(t *testing.T) {
	def := rifleDef()
	def.Trigger = inventory.TriggerManual
	f := newFixture(t, def, 10)
	f.w.Select()

	f.w.SetTriggerDown(true)
	f.advance(12)
	assert.Equal(t, 1, f.w.Shots(), "holding fires once")

	f.w.SetTriggerDown(false)
	f.w.SetTriggerDown(true)
	f.advance(1)
	assert.Equal(t, 2, f.w.Shots())
}

func TestManualTrigger_GatedPressIsSpent(t *testing.T) {
	def := rifleDef()
	def.Trigger = inventory.TriggerManual
	f := newFixture(t, def, 10)
	f.w.Select()

	f.w.SetTriggerDown(true)
	f.advance(1)
	require.Equal(t, 1, f.w.Shots())
	f.w.SetTriggerDown(false)

	// pressed during cooldown: the attempt is gated and the press is consumed
	f.w.SetTriggerDown(true)
	f.advance(8)
	assert.Equal(t, 1, f.w.Shots())
}

func TestInfiniteAmmo(t *testing.T) {
	def := rifleDef()
	def.AmmoType = inventory.InfiniteAmmo
	f := newFixture(t, def, 10)
	f.w.Select()
	assert.Equal(t, weapon.UnlimitedAmmo, f.ui.ammo)

	f.w.SetTriggerDown(true)
	f.advance(15)
	assert.Equal(t, weapon.Reloading, f.w.State())
	f.w.SetTriggerDown(false)
	f.advance(8)
	assert.Equal(t, 4, f.w.ClipContent())
	assert.Equal(t, 10, f.ammo.Amount(1), "reserve untouched")
}

func TestTracers_ExpireAndReturnToPool(t *testing.T) {
	f := newFixture(t, rifleDef(), 10)
	f.w.Select()
	capacity, _ := f.w.PoolCapacity()
	require.True(t, f.w.Fire())

	before := f.w.ActiveTracers()[0].End
	f.w.Advance(dt)
	after := f.w.ActiveTracers()[0].End
	assert.InDelta(t, weapon.TracerSpeed*dt, after.Sub(before).Len(), 1e-9)

	f.advance(2)
	assert.Empty(t, f.w.ActiveTracers())
	avail, _ := f.w.PoolAvailable()
	assert.Equal(t, capacity, avail)
}

func TestPutAway_ReleasesTracers(t *testing.T) {
	f := newFixture(t, rifleDef(), 10)
	f.w.Select()
	f.w.SetTriggerDown(true)
	f.advance(1)
	require.NotEmpty(t, f.w.ActiveTracers())

	f.w.PutAway()
	assert.Empty(t, f.w.ActiveTracers())
	assert.False(t, f.w.TriggerDown())
	capacity, _ := f.w.PoolCapacity()
	avail, _ := f.w.PoolAvailable()
	assert.Equal(t, capacity, avail)
}

func projectileFixture(t *testing.T) (*weapon.Weapon, *world.Scene, *dummy) {
	t.Helper()
	def := rifleDef()
	def.Kind = inventory.KindProjectile
	def.ProjectileSpeed = 40
	def.ProjectileLifetime = 1
	def.ApplyDefaults()
	scene := world.NewScene()
	d := &dummy{}
	scene.Add(&world.Body{
		Shape: world.Box{Min: world.Vec3{X: -1, Y: -1, Z: 9}, Max: world.Vec3{X: 1, Y: 1, Z: 10}},
		Layer: world.LayerTarget,
		Owner: d,
	})
	w, err := weapon.New(def, weapon.Deps{
		Aim:       weapon.FixedAim{Cam: aim().Cam},
		Raycaster: scene,
		Logger:    zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return w, scene, d
}

func TestProjectile_HitsTarget(t *testing.T) {
	w, _, d := projectileFixture(t)
	require.True(t, w.Fire())
	require.Len(t, w.ActiveProjectiles(), 1)
	assert.Zero(t, d.damage, "projectiles do not apply raycast damage")

	// 40 u/s * 0.125 = 5 units per tick; the box face is at z=9
	w.Advance(dt)
	assert.Equal(t, 0, d.hits)
	w.Advance(dt)
	assert.Equal(t, 1, d.hits)
	assert.Empty(t, w.ActiveProjectiles())
}

func TestProjectile_ExpiresAfterLifetime(t *testing.T) {
	def := rifleDef()
	def.Kind = inventory.KindProjectile
	def.ProjectileLifetime = 0.5
	def.ApplyDefaults()
	w, err := weapon.New(def, weapon.Deps{Aim: aim(), Raycaster: world.NewScene()})
	require.NoError(t, err)
	require.True(t, w.Fire())
	for i := 0; i < 3; i++ {
		w.Advance(dt)
	}
	assert.Len(t, w.ActiveProjectiles(), 1)
	w.Advance(dt)
	assert.Empty(t, w.ActiveProjectiles())
}

func TestProjectile_RecyclesOldestWhenExhausted(t *testing.T) {
	def := rifleDef()
	def.Kind = inventory.KindProjectile
	def.FireRate = 0.01
	def.ReloadTime = 0
	def.ProjectileLifetime = 100
	def.ProjectileSpeed = 1
	def.ApplyDefaults()
	ammo := inventory.NewAmmo([]inventory.AmmoStack{{Type: 1, Amount: 100}})
	w, err := weapon.New(def, weapon.Deps{Reserve: ammo, Aim: aim(), Raycaster: world.NewScene()})
	require.NoError(t, err)
	_, capacity := w.PoolCapacity()

	w.SetTriggerDown(true)
	for i := 0; i < 40; i++ {
		w.Advance(dt)
	}
	require.Greater(t, w.Shots(), capacity)
	assert.Len(t, w.ActiveProjectiles(), capacity)
}

// Property-based tests

func TestPropertyClipStaysInBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		def := rifleDef()
		def.ClipSize = rapid.IntRange(1, 12).Draw(rt, "clip")
		def.Trigger = rapid.SampledFrom([]inventory.TriggerType{inventory.TriggerAuto, inventory.TriggerManual}).Draw(rt, "trigger")
		reserve := rapid.IntRange(0, 40).Draw(rt, "reserve")
		ammo := inventory.NewAmmo([]inventory.AmmoStack{{Type: 1, Amount: reserve}})
		w, err := weapon.New(def, weapon.Deps{Reserve: ammo, Aim: aim(), Raycaster: world.NewScene(), Rand: rng.NewSeededSource(3)})
		if err != nil {
			rt.Fatalf("New: %v", err)
		}
		w.Select()
		total := w.ClipContent() + ammo.Amount(1)

		steps := rapid.IntRange(1, 200).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 4).Draw(rt, "action") {
			case 0:
				w.SetTriggerDown(true)
			case 1:
				w.SetTriggerDown(false)
			case 2:
				w.StartReload()
			case 3:
				w.Select()
			}
			w.Advance(dt)
			if c := w.ClipContent(); c < 0 || c > def.ClipSize {
				rt.Fatalf("clip out of bounds: %d", c)
			}
			if got := w.ClipContent() + ammo.Amount(1) + w.Shots(); got != total {
				rt.Fatalf("rounds not conserved: clip+reserve+shots = %d, want %d", got, total)
			}
		}
	})
}

func TestPropertyFireRespectsGuards(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ammo := inventory.NewAmmo([]inventory.AmmoStack{{Type: 1, Amount: rapid.IntRange(0, 10).Draw(rt, "reserve")}})
		w, err := weapon.New(rifleDef(), weapon.Deps{Reserve: ammo, Aim: aim(), Raycaster: world.NewScene(), Rand: rng.NewSeededSource(5)})
		if err != nil {
			rt.Fatalf("New: %v", err)
		}
		w.Select()
		steps := rapid.IntRange(1, 60).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			state, clip, timer := w.State(), w.ClipContent(), w.ShotTimer()
			fired := w.Fire()
			allowed := state == weapon.Idle && clip > 0 && timer <= 1e-9
			if fired != allowed {
				rt.Fatalf("Fire()=%v with state=%s clip=%d timer=%g", fired, state, clip, timer)
			}
			if fired && w.ClipContent() != clip-1 {
				rt.Fatalf("clip %d -> %d after fire", clip, w.ClipContent())
			}
			w.Advance(dt)
		}
	})
}

func TestPoolKindIsolation(t *testing.T) {
	// two weapons with the same pool kind names keep separate arenas
	a := newFixture(t, rifleDef(), 10)
	b := newFixture(t, rifleDef(), 10)
	require.True(t, a.w.Fire())
	availA, _ := a.w.PoolAvailable()
	availB, _ := b.w.PoolAvailable()
	assert.Equal(t, availA+1, availB)
}
