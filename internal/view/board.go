// Package view keeps presentation-only state derived from simulation
// transitions: the most recent event's changes and whether its effect is
// still on screen. The simulation never reads from here.
package view

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/talgya/earthsim/internal/ecosystem"
	"github.com/talgya/earthsim/internal/engine"
)

// DefaultEffectDuration is how long an event's effect stays visible.
const DefaultEffectDuration = 3 * time.Second

// Board is the last-event record shown next to the indicators.
type Board struct {
	EffectDuration time.Duration

	mu          sync.Mutex
	event       string
	changes     ecosystem.Changes
	effectUntil time.Time
}

// Frame is a read-only copy of the board.
type Frame struct {
	Event      string            `json:"event,omitempty"`
	Changes    ecosystem.Changes `json:"changes"`
	ShowEffect bool              `json:"show_effect"`
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{EffectDuration: DefaultEffectDuration, changes: ecosystem.Changes{}}
}

// Observe records a transition. Ticks leave the board alone.
func (b *Board) Observe(t engine.Transition) {
	if t.Kind == engine.KindTick {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.event = t.Event
	b.changes = maps.Clone(t.Changes)
	if b.changes == nil {
		b.changes = ecosystem.Changes{}
	}
	if t.Kind == engine.KindReset {
		b.effectUntil = time.Time{}
		return
	}
	b.effectUntil = t.At.Add(b.EffectDuration)
}

// Frame returns the board as of now.
func (b *Board) Frame(now time.Time) Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Frame{
		Event:      b.event,
		Changes:    maps.Clone(b.changes),
		ShowEffect: now.Before(b.effectUntil),
	}
}

// Follow feeds the board from a transition stream until ctx is done or the
// stream closes.
func (b *Board) Follow(ctx context.Context, transitions <-chan engine.Transition) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-transitions:
			if !ok {
				return
			}
			b.Observe(t)
		}
	}
}
