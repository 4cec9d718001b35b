// Command earthsim runs the planet ecosystem simulation and serves it over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/earthsim/internal/api"
	"github.com/talgya/earthsim/internal/config"
	"github.com/talgya/earthsim/internal/display"
	"github.com/talgya/earthsim/internal/ecosystem"
	"github.com/talgya/earthsim/internal/engine"
	"github.com/talgya/earthsim/internal/entropy"
	"github.com/talgya/earthsim/internal/locale"
	"github.com/talgya/earthsim/internal/persistence"
	"github.com/talgya/earthsim/internal/view"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.Level(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("earthsim: planetary ecosystem simulation")

	// ── Model ─────────────────────────────────────────────────────────
	noise, err := entropy.New(cfg.Noise, cfg.Seed)
	if err != nil {
		slog.Error("invalid noise source", "error", err)
		os.Exit(1)
	}
	lang := locale.Match(cfg.Lang)
	labels := locale.New(lang)

	sim := engine.NewSimulation(ecosystem.Model{Noise: noise, Labels: labels})
	sim.ReportEvery = cfg.ReportEvery
	sim.Format = display.New(lang)

	slog.Info("model ready", "noise", cfg.Noise, "seed", cfg.Seed, "lang", labels.Tag())

	// ── Database (optional) ───────────────────────────────────────────
	var db *persistence.DB
	var startTick uint64
	if cfg.DBPath != "" {
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				slog.Error("failed to create data directory", "error", err)
				os.Exit(1)
			}
		}
		db, err = persistence.Open(cfg.DBPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database opened", "path", cfg.DBPath)

		startTick = restore(db, sim)
		if err := db.SaveMeta("started_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
			slog.Warn("failed to record start time", "error", err)
		}
	} else {
		slog.Info("EARTHSIM_DB_PATH not set, checkpointing disabled")
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Interval = cfg.TickInterval
	eng.SetTick(startTick)

	eng.OnTick = sim.Step
	if db != nil && cfg.CheckpointEvery > 0 {
		every := uint64(cfg.CheckpointEvery / cfg.TickInterval)
		if every == 0 {
			every = 1
		}
		eng.OnTick = func(tick uint64) {
			sim.Step(tick)
			if tick%every == 0 {
				if err := db.SaveCheckpoint(sim.Snapshot(), tick); err != nil {
					slog.Error("periodic checkpoint failed", "error", err)
				}
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── View ──────────────────────────────────────────────────────────
	board := view.NewBoard()
	boardSub, transitions := sim.Subscribe()
	go board.Follow(ctx, transitions)
	defer sim.Unsubscribe(boardSub)

	// ── HTTP API ──────────────────────────────────────────────────────
	limiter := api.NewRateLimiter(cfg.EventRate, time.Minute)
	limiter.TrustForwarded = cfg.TrustProxy

	if cfg.AdminKey == "" {
		slog.Warn("EARTHSIM_ADMIN_KEY not set, control endpoints are open")
	}
	apiServer := &api.Server{
		Sim:          sim,
		Eng:          eng,
		Board:        board,
		DB:           db,
		Port:         cfg.Port,
		AdminKey:     cfg.AdminKey,
		CORSOrigins:  cfg.CORSOrigins,
		Lang:         lang,
		EventLimiter: limiter,
	}
	apiServer.Start(ctx)

	snap := sim.Snapshot()
	fmt.Printf("\nEarth is alive: %s people, %s vegetation, %s water.\n",
		sim.Format.Count(snap.Population), sim.Format.Percent(snap.VegetationPct), sim.Format.Percent(snap.WaterPct))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	if startTick > 0 {
		fmt.Printf("Resuming from tick %d\n", startTick)
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run(ctx)

	if db != nil {
		slog.Info("final checkpoint...")
		if err := db.SaveCheckpoint(sim.Snapshot(), eng.Tick()); err != nil {
			slog.Error("final checkpoint failed", "error", err)
		}
		fmt.Println("Simulation stopped. Planet saved.")
		return
	}
	fmt.Println("Simulation stopped.")
}

// restore loads the last checkpoint into sim and returns its tick. A missing
// or invalid checkpoint starts a fresh planet.
func restore(db *persistence.DB, sim *engine.Simulation) uint64 {
	snap, tick, err := db.LoadCheckpoint()
	switch {
	case errors.Is(err, persistence.ErrNoCheckpoint):
		slog.Info("no checkpoint found, starting a fresh planet")
		return 0
	case err != nil:
		slog.Error("checkpoint load failed, starting a fresh planet", "error", err)
		return 0
	}

	if err := sim.Restore(snap, tick); err != nil {
		slog.Error("checkpoint rejected, starting a fresh planet", "error", err)
		return 0
	}
	if started, err := db.GetMeta("started_at"); err == nil {
		slog.Info("previous run", "started_at", started, "last_tick", strconv.FormatUint(tick, 10))
	}
	return tick
}
