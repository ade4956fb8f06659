package target

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/firingrange/internal/game/world"
)

// Scorer is told about every target placed and every target destroyed.
type Scorer interface {
	TargetSpawned()
	ReportTargetDestroyed(points int)
}

// Target is a live destructible target.
type Target struct {
	// ID uniquely identifies this placement.
	ID uuid.UUID
	// DefID is the source definition's ID.
	DefID string
	Name  string

	health    float64
	points    int
	destroyed bool

	body   *world.Body
	scorer Scorer
	logger *zap.Logger
}

// New builds a Target from def at pos. The target's body is owned by the
// Target but not yet placed in any scene.
//
// Precondition: def must be valid; scorer must not be nil.
// Postcondition: Health() == def.Health and Destroyed() is false.
func New(def *Def, pos world.Vec3, scorer Scorer, logger *zap.Logger) *Target {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Target{
		ID:     uuid.New(),
		DefID:  def.ID,
		Name:   def.Name,
		health: def.Health,
		points: def.PointValue,
		scorer: scorer,
	}
	t.logger = logger.With(zap.String("target", def.ID), zap.Stringer("target_id", t.ID))
	t.body = &world.Body{
		Shape: def.ShapeAt(pos),
		Layer: world.LayerTarget,
		Owner: t,
	}
	return t
}

// Body returns the collider of t.
func (t *Target) Body() *world.Body { return t.body }

// Health returns the remaining health; it may be negative after the killing blow.
func (t *Target) Health() float64 { return t.health }

// Points returns the points awarded for destroying t.
func (t *Target) Points() int { return t.points }

// Destroyed reports whether t has been destroyed.
func (t *Target) Destroyed() bool { return t.destroyed }

// ApplyDamage subtracts amount from the target's health and destroys it once
// health reaches zero.
//
// Postcondition: the scorer is told about the destruction exactly once;
// damage to a destroyed target is ignored.
func (t *Target) ApplyDamage(amount float64) {
	if t.destroyed {
		return
	}
	t.health -= amount
	t.logger.Debug("target hit", zap.Float64("damage", amount), zap.Float64("health", t.health))
	if t.health > 0 {
		return
	}
	t.destroy()
}

// HitByProjectile destroys the target outright, regardless of its health.
func (t *Target) HitByProjectile() {
	if t.destroyed {
		return
	}
	t.health = 0
	t.destroy()
}

func (t *Target) destroy() {
	t.destroyed = true
	t.body.SetEnabled(false)
	t.logger.Info("target destroyed", zap.Int("points", t.points))
	t.scorer.ReportTargetDestroyed(t.points)
}
