// Package target provides destructible range targets: their YAML
// definitions, live instances placed in a scene, and the field that tracks them.
package target

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/firingrange/internal/game/world"
)

// ShapeKind names the collider a target is built with.
type ShapeKind string

const (
	ShapeSphere ShapeKind = "sphere"
	ShapeBox    ShapeKind = "box"
)

// Def is a reusable target archetype loaded from YAML. One Def may be placed
// several times; each placement becomes its own Target.
type Def struct {
	ID         string    `yaml:"id"`
	Name       string    `yaml:"name"`
	Health     float64   `yaml:"health"`
	PointValue int       `yaml:"point_value"`
	Shape      ShapeKind `yaml:"shape"`
	// Radius sizes a sphere target.
	Radius float64 `yaml:"radius"`
	// HalfExtents sizes a box target.
	HalfExtents world.Vec3   `yaml:"half_extents"`
	Placements  []world.Vec3 `yaml:"placements"`
}

// Validate checks that the definition satisfies its invariants.
//
// Precondition: d must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, Health > 0,
// PointValue >= 0, and the shape is sized; returns an error on the first
// violation otherwise.
func (d *Def) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("target def: id must not be empty")
	}
	if d.Name == "" {
		return fmt.Errorf("target def %q: name must not be empty", d.ID)
	}
	if d.Health <= 0 {
		return fmt.Errorf("target def %q: health must be > 0", d.ID)
	}
	if d.PointValue < 0 {
		return fmt.Errorf("target def %q: point_value must be >= 0", d.ID)
	}
	switch d.Shape {
	case ShapeSphere:
		if d.Radius <= 0 {
			return fmt.Errorf("target def %q: sphere radius must be > 0", d.ID)
		}
	case ShapeBox:
		h := d.HalfExtents
		if h.X <= 0 || h.Y <= 0 || h.Z <= 0 {
			return fmt.Errorf("target def %q: box half_extents must all be > 0", d.ID)
		}
	default:
		return fmt.Errorf("target def %q: shape must be sphere or box, got %q", d.ID, d.Shape)
	}
	return nil
}

// ShapeAt returns the collider of d centred on pos.
func (d *Def) ShapeAt(pos world.Vec3) world.Shape {
	if d.Shape == ShapeBox {
		return world.Box{Min: pos.Sub(d.HalfExtents), Max: pos.Add(d.HalfExtents)}
	}
	return world.Sphere{Center: pos, Radius: d.Radius}
}

// LoadDefFromBytes parses a single target definition from raw YAML bytes.
// An omitted shape defaults to a sphere.
//
// Postcondition: Returns a validated *Def, or an error.
func LoadDefFromBytes(data []byte) (*Def, error) {
	d := Def{Shape: ShapeSphere}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing target YAML: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadDefs reads all *.yaml files in dir and returns the parsed definitions.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all definitions or an error on the first parse or
// validate failure; on error, the partial result is discarded.
func LoadDefs(dir string) ([]*Def, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading target dir %q: %w", dir, err)
	}

	var defs []*Def
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		d, err := LoadDefFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		defs = append(defs, d)
	}
	return defs, nil
}
