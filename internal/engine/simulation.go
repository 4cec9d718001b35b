// Simulation owns the current planet snapshot and serializes transitions on it.
package engine

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/earthsim/internal/display"
	"github.com/talgya/earthsim/internal/ecosystem"
)

// Transition kinds.
const (
	KindTick  = "tick"
	KindEvent = "event"
	KindReset = "reset"
)

// subscriberBuffer is the per-subscriber channel capacity. Deliveries to a
// full channel are dropped.
const subscriberBuffer = 64

// ErrInvalidSnapshot is returned by Restore for out-of-bounds indicators.
var ErrInvalidSnapshot = errors.New("snapshot violates indicator bounds")

// Transition is one replacement of the snapshot.
type Transition struct {
	ID       string             `json:"id"`
	Kind     string             `json:"kind"`            // "tick", "event", "reset"
	Event    string             `json:"event,omitempty"` // event kind name for events and resets
	Tick     uint64             `json:"tick"`            // last engine tick at the time of the transition
	At       time.Time          `json:"at"`
	Snapshot ecosystem.Snapshot `json:"snapshot"`
	Changes  ecosystem.Changes  `json:"changes,omitempty"`
}

// Simulation holds the authoritative snapshot. All methods are safe for
// concurrent use; transitions never overlap.
type Simulation struct {
	Model ecosystem.Model

	// ReportEvery logs a planet report every N ticks. Zero disables it.
	ReportEvery uint64
	Format      display.Formatter

	mu       sync.Mutex
	current  ecosystem.Snapshot
	lastTick uint64

	subMu   sync.Mutex
	subs    map[uint64]chan Transition
	nextSub uint64
}

// NewSimulation creates a Simulation at the default snapshot.
func NewSimulation(model ecosystem.Model) *Simulation {
	return &Simulation{
		Model:   model,
		current: ecosystem.Defaults(),
		subs:    make(map[uint64]chan Transition),
	}
}

// Snapshot returns a copy of the current indicators.
func (s *Simulation) Snapshot() ecosystem.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTick
}

// Restore installs a previously saved snapshot, e.g. from a checkpoint.
func (s *Simulation) Restore(snap ecosystem.Snapshot, tick uint64) error {
	if !snap.Valid() {
		return ErrInvalidSnapshot
	}
	s.mu.Lock()
	s.current = snap
	s.lastTick = tick
	s.mu.Unlock()
	slog.Info("snapshot restored", "tick", tick, "population", s.Format.Count(snap.Population))
	return nil
}

// Step applies one natural tick. It is the engine's OnTick callback.
func (s *Simulation) Step(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastTick = tick
	s.current = s.Model.Tick(s.current)
	s.emit(Transition{Kind: KindTick, Tick: tick, Snapshot: s.current})

	if s.ReportEvery > 0 && tick%s.ReportEvery == 0 {
		s.report(tick)
	}
}

func (s *Simulation) report(tick uint64) {
	f := ecosystem.DeriveEnvironmentFactor(s.current)
	slog.Info("planet report",
		"tick", tick,
		"population", s.Format.Count(s.current.Population),
		"deaths", s.Format.Count(s.current.Deaths),
		"vegetation", s.Format.Percent(s.current.VegetationPct),
		"water", s.Format.Percent(s.current.WaterPct),
		"birth_mult", f.BirthMultiplier,
		"death_mult", f.DeathMultiplier,
	)
}

// Subscribe registers a consumer of transitions. The channel is closed by
// Unsubscribe.
func (s *Simulation) Subscribe() (uint64, <-chan Transition) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if s.subs == nil {
		s.subs = make(map[uint64]chan Transition)
	}
	s.nextSub++
	ch := make(chan Transition, subscriberBuffer)
	s.subs[s.nextSub] = ch
	return s.nextSub, ch
}

// SubscribeWithSnapshot registers a consumer together with the state it
// starts from. Every transition after the returned snapshot arrives on the
// channel, and none before it.
func (s *Simulation) SubscribeWithSnapshot() (uint64, <-chan Transition, ecosystem.Snapshot, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ch := s.Subscribe()
	return id, ch, s.current, s.lastTick
}

// Unsubscribe removes a consumer and closes its channel.
func (s *Simulation) Unsubscribe(id uint64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// emit stamps and fans out a transition. Callers hold s.mu so subscribers see
// transitions in order.
func (s *Simulation) emit(t Transition) Transition {
	t.ID = uuid.NewString()
	t.At = time.Now().UTC()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- t:
		default:
		}
	}
	return t
}
