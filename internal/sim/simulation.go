// Package sim wires the range together and drives it in fixed steps: input
// is polled, the player and its active weapon advance, and the scoreboard
// decides when the run is over.
package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/firingrange/internal/game/inventory"
	"github.com/cory-johannsen/firingrange/internal/game/player"
	"github.com/cory-johannsen/firingrange/internal/game/rng"
	"github.com/cory-johannsen/firingrange/internal/game/scoring"
	"github.com/cory-johannsen/firingrange/internal/game/target"
	"github.com/cory-johannsen/firingrange/internal/game/weapon"
	"github.com/cory-johannsen/firingrange/internal/game/world"
	"github.com/cory-johannsen/firingrange/internal/hud"
	"github.com/cory-johannsen/firingrange/internal/input"
	"github.com/cory-johannsen/firingrange/internal/observability"
	"github.com/cory-johannsen/firingrange/internal/scripting"
)

// ErrUnbounded is returned by Run when neither a time limit nor a tick limit
// could ever end the run.
var ErrUnbounded = errors.New("sim: run has no time limit and no tick limit")

// Content is the static data a run is built from.
type Content struct {
	Weapons *inventory.Registry
	Loadout *inventory.Loadout
	Targets []*target.Def
}

// Options configure a Simulation.
type Options struct {
	// Step is the simulated length of one tick in seconds.
	Step float64
	// TimeLimit ends the run in simulated time. Zero means no limit.
	TimeLimit     time.Duration
	MissedPenalty float64
	Player        player.Options
	// Input drives the player. nil means the controls are never touched.
	Input  input.Source
	Rand   rng.Source
	Logger *zap.Logger
}

// Stats counts weapon activity over a run.
type Stats struct {
	Shots   int
	Hits    int
	Reloads int
}

// Simulation is one run of the range. It is driven from a single goroutine.
type Simulation struct {
	step      float64
	timeLimit time.Duration
	tick      int

	scene  *world.Scene
	field  *target.Field
	board  *scoring.Board
	player *player.Controller
	hud    *hud.WeaponInfo
	input  input.Source
	stats  Stats
	logger *zap.Logger
}

// New builds the scene, places the targets, equips the player with the
// loadout and selects the first weapon.
//
// Precondition: opts.Step > 0; content.Weapons and content.Loadout are non-nil.
// Postcondition: Returns a Simulation at tick 0, or an error if the content
// cannot be assembled.
func New(content Content, opts Options) (*Simulation, error) {
	if opts.Step <= 0 {
		return nil, fmt.Errorf("sim.New: step must be > 0, got %g", opts.Step)
	}
	if stepDuration(opts.Step) <= 0 {
		return nil, fmt.Errorf("sim.New: step %g is shorter than a nanosecond", opts.Step)
	}
	if content.Weapons == nil || content.Loadout == nil {
		return nil, errors.New("sim.New: weapons and loadout are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	src := opts.Input
	if src == nil {
		src = input.Idle{}
	}

	s := &Simulation{
		step:      opts.Step,
		timeLimit: opts.TimeLimit,
		scene:     world.NewScene(),
		board:     scoring.NewBoard(opts.MissedPenalty, observability.Component(logger, "scoring")),
		hud:       hud.NewWeaponInfo(observability.Component(logger, "hud")),
		input:     src,
		logger:    logger,
	}
	s.field = target.NewField(s.scene, s.board, observability.Component(logger, "target"))
	if _, err := s.field.SpawnAll(content.Targets); err != nil {
		return nil, fmt.Errorf("sim.New: %w", err)
	}

	defs := make([]*inventory.WeaponDef, 0, len(content.Loadout.Weapons))
	for _, id := range content.Loadout.Weapons {
		d := content.Weapons.Weapon(id)
		if d == nil {
			return nil, fmt.Errorf("sim.New: loadout references unknown weapon %q", id)
		}
		defs = append(defs, d)
	}

	ammo := inventory.NewAmmo(content.Loadout.Ammo)
	s.player = player.New(ammo, s.hud, opts.Player, observability.Component(logger, "player"))
	if err := s.player.Equip(defs, weapon.Deps{
		Raycaster: s.scene,
		Rand:      opts.Rand,
		Events:    s,
		Logger:    observability.Component(logger, "weapon"),
	}); err != nil {
		return nil, fmt.Errorf("sim.New: %w", err)
	}
	s.player.Start()

	logger.Info("range ready",
		zap.Int("targets", s.field.Len()),
		zap.Int("weapons", len(defs)),
		zap.Float64("step", s.step),
	)
	return s, nil
}

// BindScript exposes the active weapon and the remaining target count to an
// input script's range.* queries.
func (s *Simulation) BindScript(script *scripting.InputScript) {
	script.QueryWeapon = func() *scripting.WeaponInfo {
		w := s.player.Active()
		if w == nil {
			return nil
		}
		d := w.Def()
		return &scripting.WeaponInfo{
			ID:       d.ID,
			Name:     d.Name,
			State:    string(w.State()),
			Clip:     w.ClipContent(),
			ClipSize: d.ClipSize,
			Reserve:  s.player.Ammo().Amount(d.AmmoType),
		}
	}
	script.QueryRemaining = s.field.Remaining
}

// Step polls the input source and advances the range by one tick.
func (s *Simulation) Step(ctx context.Context) error {
	st, err := s.input.Poll(ctx, s.tick, float64(s.tick)*s.step)
	if err != nil {
		return fmt.Errorf("sim: polling input at tick %d: %w", s.tick, err)
	}
	s.player.Tick(s.step, st)
	s.tick++
	return nil
}

// Done reports whether every target is down or the time limit has passed.
func (s *Simulation) Done() bool {
	if s.board.AllDestroyed() {
		return true
	}
	return s.timeLimit > 0 && s.Elapsed() >= s.timeLimit
}

// Run steps the range as fast as possible until Done, maxTicks steps have
// run (0 = no tick limit), or ctx is cancelled.
//
// Postcondition: Returns the endgame result; the error is non-nil if ctx was
// cancelled, input failed, or the run could never end.
func (s *Simulation) Run(ctx context.Context, maxTicks int) (scoring.Result, error) {
	if maxTicks <= 0 && s.timeLimit <= 0 {
		return s.Result(), ErrUnbounded
	}
	for start := s.tick; !s.Done(); {
		if maxTicks > 0 && s.tick-start >= maxTicks {
			break
		}
		if err := ctx.Err(); err != nil {
			return s.Result(), err
		}
		if err := s.Step(ctx); err != nil {
			return s.Result(), err
		}
	}
	s.logFinish()
	return s.Result(), nil
}

// RunRealtime steps the range once per wall-clock step until Done or ctx is
// cancelled.
func (s *Simulation) RunRealtime(ctx context.Context) (scoring.Result, error) {
	ticker := time.NewTicker(stepDuration(s.step))
	defer ticker.Stop()
	for !s.Done() {
		select {
		case <-ctx.Done():
			return s.Result(), ctx.Err()
		case <-ticker.C:
			if err := s.Step(ctx); err != nil {
				return s.Result(), err
			}
		}
	}
	s.logFinish()
	return s.Result(), nil
}

func (s *Simulation) logFinish() {
	r := s.Result()
	s.logger.Info("run finished",
		zap.Int("ticks", s.tick),
		zap.String("targets", r.TargetsLine()),
		zap.Int("score", r.Score),
		zap.Duration("elapsed", r.Elapsed),
		zap.Int("shots", s.stats.Shots),
		zap.Any("reserve", s.player.Ammo().Stacks()),
	)
}

func stepDuration(step float64) time.Duration {
	return time.Duration(step * float64(time.Second))
}

// Result returns the endgame summary at the current tick.
func (s *Simulation) Result() scoring.Result { return s.board.Result(s.Elapsed()) }

// Elapsed returns the simulated time run so far.
func (s *Simulation) Elapsed() time.Duration {
	return time.Duration(float64(s.tick) * s.step * float64(time.Second))
}

// Tick returns the number of steps run.
func (s *Simulation) Tick() int { return s.tick }

// Stats returns the weapon activity counters.
func (s *Simulation) Stats() Stats { return s.stats }

// Player returns the player controller.
func (s *Simulation) Player() *player.Controller { return s.player }

// Field returns the targets on the range.
func (s *Simulation) Field() *target.Field { return s.field }

// HUD returns the weapon panel.
func (s *Simulation) HUD() *hud.WeaponInfo { return s.hud }

// ShotFired counts a shot and its hits.
func (s *Simulation) ShotFired(ev weapon.ShotEvent) {
	s.stats.Shots++
	for _, tr := range ev.Traces {
		if tr.Struck {
			s.stats.Hits++
		}
	}
	s.logger.Debug("shot",
		zap.String("weapon", ev.WeaponID),
		zap.Int("tick", s.tick),
		zap.Float64("pitch", ev.Pitch),
		zap.Float64("shake", ev.Shake.Amplitude),
	)
}

// ReloadStarted counts a reload.
func (s *Simulation) ReloadStarted(weaponID string) {
	s.stats.Reloads++
	s.logger.Debug("reload started", zap.String("weapon", weaponID), zap.Int("tick", s.tick))
}

// ReloadFinished logs the completed reload.
func (s *Simulation) ReloadFinished(weaponID string, clip int) {
	s.logger.Debug("reload finished", zap.String("weapon", weaponID), zap.Int("clip", clip))
}
