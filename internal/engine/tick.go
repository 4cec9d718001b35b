// Package engine provides the tick-based scheduler that drives the ecosystem
// model and serializes every transition on the current snapshot.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the wall-clock cadence of natural ticks. It controls
// smoothness only; the size of each step is fixed by ecosystem.StepSeconds.
const DefaultInterval = 200 * time.Millisecond

// Engine drives the simulation forward. It has two states, running and
// paused, and starts running. No ticks are delivered while paused.
// Create engines with NewEngine.
type Engine struct {
	Interval time.Duration // Wall time between ticks (default 200ms)

	// Called on the engine goroutine for every delivered tick.
	OnTick func(tick uint64)

	mu      sync.Mutex
	tick    uint64 // monotonic, never resets
	running bool
	stop    chan struct{}
	once    sync.Once
}

// NewEngine creates an engine in the running state with the default cadence.
func NewEngine() *Engine {
	return &Engine{
		Interval: DefaultInterval,
		running:  true,
		stop:     make(chan struct{}),
	}
}

// Run delivers ticks until ctx is cancelled or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	interval := e.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	slog.Info("simulation engine started", "tick", e.Tick(), "interval", interval, "running", e.Running())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation engine stopped", "tick", e.Tick(), "reason", ctx.Err())
			return
		case <-e.stop:
			slog.Info("simulation engine stopped", "tick", e.Tick())
			return
		case <-ticker.C:
			e.step()
		}
	}
}

// Stop halts Run. Safe to call more than once.
func (e *Engine) Stop() {
	e.once.Do(func() { close(e.stop) })
}

// Running reports whether ticks are being delivered.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// SetRunning switches between running and paused.
func (e *Engine) SetRunning(running bool) {
	e.mu.Lock()
	changed := e.running != running
	e.running = running
	e.mu.Unlock()

	if changed {
		slog.Info("engine state changed", "running", running)
	}
}

// Toggle flips running ↔ paused and returns the new state.
func (e *Engine) Toggle() bool {
	e.mu.Lock()
	e.running = !e.running
	running := e.running
	e.mu.Unlock()

	slog.Info("engine state changed", "running", running)
	return running
}

// Tick returns the number of ticks delivered so far.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// SetTick sets the tick counter, used when resuming from a checkpoint.
func (e *Engine) SetTick(tick uint64) {
	e.mu.Lock()
	e.tick = tick
	e.mu.Unlock()
}

// step delivers one tick if running.
func (e *Engine) step() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.tick++
	tick := e.tick
	e.mu.Unlock()

	if e.OnTick != nil {
		e.OnTick(tick)
	}
}
