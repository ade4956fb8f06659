package sim

import (
	"fmt"

	"github.com/cory-johannsen/firingrange/internal/config"
	"github.com/cory-johannsen/firingrange/internal/game/inventory"
	"github.com/cory-johannsen/firingrange/internal/game/target"
)

// LoadContent reads the weapon, target and loadout definitions cfg points at.
//
// Precondition: cfg.WeaponsDir, cfg.TargetsDir and cfg.LoadoutFile are set.
// Postcondition: every loadout weapon resolves in the returned registry.
func LoadContent(cfg config.ContentConfig) (Content, error) {
	weapons, err := inventory.LoadWeapons(cfg.WeaponsDir)
	if err != nil {
		return Content{}, fmt.Errorf("loading weapons: %w", err)
	}
	reg, err := inventory.NewRegistryFrom(weapons)
	if err != nil {
		return Content{}, fmt.Errorf("registering weapons: %w", err)
	}
	loadout, err := inventory.LoadLoadout(cfg.LoadoutFile, reg)
	if err != nil {
		return Content{}, fmt.Errorf("loading loadout: %w", err)
	}
	targets, err := target.LoadDefs(cfg.TargetsDir)
	if err != nil {
		return Content{}, fmt.Errorf("loading targets: %w", err)
	}
	return Content{Weapons: reg, Loadout: loadout, Targets: targets}, nil
}
