package target

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/firingrange/internal/game/world"
)

// Field tracks every target placed on the range.
// All methods are safe for concurrent use; the targets themselves are not.
type Field struct {
	mu      sync.RWMutex
	targets map[uuid.UUID]*Target
	order   []uuid.UUID
	scene   *world.Scene
	scorer  Scorer
	logger  *zap.Logger
}

// NewField creates an empty Field placing bodies into scene.
//
// Precondition: scene and scorer must not be nil.
func NewField(scene *world.Scene, scorer Scorer, logger *zap.Logger) *Field {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Field{
		targets: make(map[uuid.UUID]*Target),
		scene:   scene,
		scorer:  scorer,
		logger:  logger,
	}
}

// Spawn places a new Target from def at pos.
//
// Precondition: def must not be nil.
// Postcondition: the target's body is in the scene and the scorer has counted it.
func (f *Field) Spawn(def *Def, pos world.Vec3) (*Target, error) {
	if def == nil {
		return nil, fmt.Errorf("target.Field.Spawn: def must not be nil")
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("target.Field.Spawn: %w", err)
	}
	t := New(def, pos, f.scorer, f.logger)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.scene.Add(t.body)
	f.targets[t.ID] = t
	f.order = append(f.order, t.ID)
	f.scorer.TargetSpawned()
	return t, nil
}

// SpawnAll places every definition at each of its placements.
//
// Postcondition: Returns the targets in definition then placement order, or
// the first error.
func (f *Field) SpawnAll(defs []*Def) ([]*Target, error) {
	var out []*Target
	for _, d := range defs {
		for _, pos := range d.Placements {
			t, err := f.Spawn(d, pos)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
	}
	return out, nil
}

// Get returns the target with the given ID.
//
// Postcondition: Returns (t, true) if found, or (nil, false) otherwise.
func (f *Field) Get(id uuid.UUID) (*Target, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	t, ok := f.targets[id]
	return t, ok
}

// All returns every target in spawn order.
func (f *Field) All() []*Target {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*Target, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.targets[id])
	}
	return out
}

// Remaining returns the number of targets not yet destroyed.
func (f *Field) Remaining() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, t := range f.targets {
		if !t.destroyed {
			n++
		}
	}
	return n
}

// Len returns the number of targets placed.
func (f *Field) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.order)
}
