package inventory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loadout is what the player spawns with: the weapons carried, in selection
// order, and the starting ammo reserve.
type Loadout struct {
	Weapons []string    `yaml:"weapons"`
	Ammo    []AmmoStack `yaml:"ammo"`
}

// LoadLoadout reads a Loadout from the YAML file at path and checks every
// weapon ID against reg.
//
// Precondition: path is a readable file; reg is non-nil.
// Postcondition: returns a Loadout with at least one known weapon, or an error.
func LoadLoadout(path string, reg *Registry) (*Loadout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadLoadout: cannot read file %q: %w", path, err)
	}
	var l Loadout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("LoadLoadout: cannot parse file %q: %w", path, err)
	}
	if len(l.Weapons) == 0 {
		return nil, fmt.Errorf("LoadLoadout: %q lists no weapons", path)
	}
	for _, id := range l.Weapons {
		if reg.Weapon(id) == nil {
			return nil, fmt.Errorf("LoadLoadout: %q references unknown weapon %q", path, id)
		}
	}
	for _, s := range l.Ammo {
		if s.Amount < 0 {
			return nil, fmt.Errorf("LoadLoadout: %q has negative ammo for type %d", path, s.Type)
		}
	}
	return &l, nil
}
