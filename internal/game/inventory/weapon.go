// Package inventory provides the ammo reserve an entity carries and the static
// weapon definitions loaded from YAML content.
package inventory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// TriggerType decides how a held trigger turns into shots.
type TriggerType string

const (
	// TriggerAuto fires every tick the trigger is held and the weapon is ready.
	TriggerAuto TriggerType = "auto"
	// TriggerManual fires once per discrete press.
	TriggerManual TriggerType = "manual"
)

// WeaponKind decides how a shot is resolved.
type WeaponKind string

const (
	// KindRaycast resolves shots instantly with traces.
	KindRaycast WeaponKind = "raycast"
	// KindProjectile launches pooled projectiles from the muzzle.
	KindProjectile WeaponKind = "projectile"
)

// Defaults applied to optional WeaponDef fields.
const (
	DefaultProjectilesPerShot = 1
	DefaultScreenShake        = 1.0
	DefaultProjectileSpeed    = 200.0
	DefaultProjectileLifetime = 3.0
)

// WeaponDef defines the static properties of a weapon loaded from YAML.
// Times are in seconds.
type WeaponDef struct {
	ID      string      `yaml:"id"`
	Name    string      `yaml:"name"`
	Trigger TriggerType `yaml:"trigger"`
	Kind    WeaponKind  `yaml:"kind"`
	// FireRate is the minimum time between shots.
	FireRate float64 `yaml:"fire_rate"`
	// FireActionTime is the length of the fire action; the weapon leaves the
	// Firing state once half of it has elapsed. 0 = FireRate.
	FireActionTime float64  `yaml:"fire_action_time"`
	ReloadTime     float64  `yaml:"reload_time"`
	ClipSize       int      `yaml:"clip_size"`
	Damage         float64  `yaml:"damage"`
	AmmoType       AmmoType `yaml:"ammo_type"`
	// SpreadAngle is the cone, in degrees, shots scatter across.
	SpreadAngle        float64 `yaml:"spread_angle"`
	ProjectilesPerShot int     `yaml:"projectiles_per_shot"`
	ScreenShake        float64 `yaml:"screen_shake"`
	ProjectileSpeed    float64 `yaml:"projectile_speed"`
	ProjectileLifetime float64 `yaml:"projectile_lifetime"`
	// Tracers enables cosmetic trail lines for raycast shots.
	Tracers bool `yaml:"tracers"`
	// TracerPoolSize overrides the tracer pool capacity. 0 sizes it automatically.
	TracerPoolSize int `yaml:"tracer_pool_size"`
}

// ApplyDefaults fills zero-valued optional fields.
//
// Postcondition: ProjectilesPerShot >= 1; FireActionTime > 0 when FireRate > 0.
func (w *WeaponDef) ApplyDefaults() {
	if w.Trigger == "" {
		w.Trigger = TriggerManual
	}
	if w.Kind == "" {
		w.Kind = KindRaycast
	}
	if w.ProjectilesPerShot == 0 {
		w.ProjectilesPerShot = DefaultProjectilesPerShot
	}
	if w.FireActionTime == 0 {
		w.FireActionTime = w.FireRate
	}
	if w.ScreenShake == 0 {
		w.ScreenShake = DefaultScreenShake
	}
	if w.Kind == KindProjectile {
		if w.ProjectileSpeed == 0 {
			w.ProjectileSpeed = DefaultProjectileSpeed
		}
		if w.ProjectileLifetime == 0 {
			w.ProjectileLifetime = DefaultProjectileLifetime
		}
	}
}

// UsesInventory reports whether shots are drawn from the owner's Ammo.
func (w *WeaponDef) UsesInventory() bool {
	return w.AmmoType != InfiniteAmmo
}

// Validate checks that the WeaponDef satisfies its invariants.
// Precondition: w is non-nil.
// Postcondition: returns nil iff all fields are valid.
func (w *WeaponDef) Validate() error {
	var errs []error
	if w.ID == "" {
		errs = append(errs, errors.New("ID must not be empty"))
	}
	if w.Name == "" {
		errs = append(errs, errors.New("Name must not be empty"))
	}
	if w.Trigger != TriggerAuto && w.Trigger != TriggerManual {
		errs = append(errs, fmt.Errorf("Trigger must be auto or manual, got %q", w.Trigger))
	}
	if w.Kind != KindRaycast && w.Kind != KindProjectile {
		errs = append(errs, fmt.Errorf("Kind must be raycast or projectile, got %q", w.Kind))
	}
	if w.FireRate <= 0 {
		errs = append(errs, errors.New("FireRate must be > 0"))
	}
	if w.FireActionTime < 0 {
		errs = append(errs, errors.New("FireActionTime must be >= 0"))
	}
	if w.ReloadTime < 0 {
		errs = append(errs, errors.New("ReloadTime must be >= 0"))
	}
	if w.ClipSize <= 0 {
		errs = append(errs, errors.New("ClipSize must be > 0"))
	}
	if w.Damage < 0 {
		errs = append(errs, errors.New("Damage must be >= 0"))
	}
	if w.AmmoType < InfiniteAmmo {
		errs = append(errs, fmt.Errorf("AmmoType must be >= %d, got %d", InfiniteAmmo, w.AmmoType))
	}
	if w.SpreadAngle < 0 {
		errs = append(errs, errors.New("SpreadAngle must be >= 0"))
	}
	if w.ProjectilesPerShot < 1 {
		errs = append(errs, errors.New("ProjectilesPerShot must be >= 1"))
	}
	if w.TracerPoolSize < 0 {
		errs = append(errs, errors.New("TracerPoolSize must be >= 0"))
	}
	if w.Kind == KindProjectile {
		if w.ProjectileSpeed <= 0 {
			errs = append(errs, errors.New("projectile ProjectileSpeed must be > 0"))
		}
		if w.ProjectileLifetime <= 0 {
			errs = append(errs, errors.New("projectile ProjectileLifetime must be > 0"))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("weapon validation failed: %v", errs)
	}
	return nil
}

// LoadWeapons reads all *.yaml and *.yml files from dir, parses each as a
// WeaponDef, applies defaults, validates it, and returns the collected slice.
// Precondition: dir is a readable directory path.
// Postcondition: returns all valid WeaponDefs or the first encountered error.
func LoadWeapons(dir string) ([]*WeaponDef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("LoadWeapons: cannot read directory %q: %w", dir, err)
	}

	var weapons []*WeaponDef
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("LoadWeapons: cannot read file %q: %w", path, err)
		}
		w := WeaponDef{Tracers: true}
		if err := yaml.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("LoadWeapons: cannot parse file %q: %w", path, err)
		}
		w.ApplyDefaults()
		if err := w.Validate(); err != nil {
			return nil, fmt.Errorf("LoadWeapons: invalid weapon in %q: %w", path, err)
		}
		weapons = append(weapons, &w)
	}
	return weapons, nil
}
