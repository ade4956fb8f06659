// Package main runs one firing-range session headlessly and prints the
// endgame summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/firingrange/internal/config"
	"github.com/cory-johannsen/firingrange/internal/game/player"
	"github.com/cory-johannsen/firingrange/internal/game/rng"
	"github.com/cory-johannsen/firingrange/internal/game/scoring"
	"github.com/cory-johannsen/firingrange/internal/game/world"
	"github.com/cory-johannsen/firingrange/internal/observability"
	"github.com/cory-johannsen/firingrange/internal/scripting"
	"github.com/cory-johannsen/firingrange/internal/sim"
	"github.com/cory-johannsen/firingrange/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	maxTicks := flag.Int("max-ticks", 0, "stop after this many ticks (0 = until done or time limit)")
	best := flag.Int("best", 0, "print the N best stored runs after this one (requires database)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	contentStart := time.Now()
	content, err := sim.LoadContent(cfg.Content)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("weapons", len(content.Weapons.AllWeapons())),
		zap.Int("target_defs", len(content.Targets)),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	var script *scripting.InputScript
	if cfg.Content.InputScript != "" {
		script, err = scripting.LoadInputScript(cfg.Content.InputScript, cfg.Content.ScriptInstructionLimit, logger.Named("script"))
		if err != nil {
			logger.Fatal("loading input script", zap.Error(err))
		}
		defer script.Close()
	}

	opts := sim.Options{
		Step:          cfg.Simulation.Step(),
		TimeLimit:     cfg.Simulation.TimeLimit,
		MissedPenalty: cfg.Simulation.MissedPenalty,
		Player: player.Options{
			Forward:     world.Forward,
			EyeHeight:   1.6,
			FieldOfView: cfg.Simulation.FieldOfView,
			JumpSpeed:   cfg.Simulation.JumpSpeed,
			Gravity:     cfg.Simulation.Gravity,
		},
		Rand:   rng.FromSeed(cfg.Simulation.Seed),
		Logger: logger,
	}
	if script != nil {
		opts.Input = script
	}

	s, err := sim.New(content, opts)
	if err != nil {
		logger.Fatal("building range", zap.Error(err))
	}
	if script != nil {
		s.BindScript(script)
	}

	runStart := time.Now()
	var res scoring.Result
	if cfg.Simulation.Realtime {
		res, err = s.RunRealtime(ctx)
	} else {
		res, err = s.Run(ctx, *maxTicks)
	}
	if err != nil {
		logger.Error("run ended early", zap.Error(err))
	}

	stats := s.Stats()
	fmt.Fprintln(os.Stdout, res.String())
	fmt.Fprintf(os.Stdout, "shots %d  hits %d  reloads %d  ticks %d\n", stats.Shots, stats.Hits, stats.Reloads, s.Tick())

	if cfg.Database.Enabled {
		if err := storeRun(ctx, cfg.Database, postgres.NewRunRecord(runStart, res, stats.Shots, stats.Hits, stats.Reloads, cfg.Simulation.Seed), *best, logger); err != nil {
			logger.Error("storing run", zap.Error(err))
		}
	}

	logger.Info("rangesim finished", zap.Duration("elapsed", time.Since(start)))
}

func storeRun(ctx context.Context, cfg config.DatabaseConfig, rec postgres.RunRecord, best int, logger *zap.Logger) error {
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := postgres.NewRunRepository(pool.DB())
	if err := repo.Save(ctx, rec); err != nil {
		return err
	}
	logger.Info("run stored", zap.String("id", rec.ID.String()))

	if best <= 0 {
		return nil
	}
	runs, err := repo.Best(ctx, best)
	if err != nil {
		return err
	}
	for i, r := range runs {
		fmt.Fprintf(os.Stdout, "%2d. %6d  %d/%d  %s  %s\n",
			i+1, r.Score, r.Destroyed, r.Total, r.FinalTime(), r.StartedAt.Format(time.RFC3339))
	}
	return nil
}
