package engine

import (
	"log/slog"

	"github.com/talgya/earthsim/internal/ecosystem"
)

// RequestEvent applies a named event immediately, whether or not the engine is
// running. Unknown names leave the snapshot untouched and report false; this
// is the defined behavior, not an error.
func (s *Simulation) RequestEvent(name string, intensity float64) (Transition, bool) {
	kind, ok := ecosystem.ParseEventKind(name)
	if !ok {
		slog.Debug("ignoring unknown event", "event", name)
		return Transition{Kind: KindEvent, Event: name, Snapshot: s.Snapshot(), Changes: ecosystem.Changes{}}, false
	}
	return s.apply(kind, intensity), true
}

// RequestReset discards the current snapshot and restores the defaults.
func (s *Simulation) RequestReset() Transition {
	return s.apply(ecosystem.EventReset, 0)
}

func (s *Simulation) apply(kind ecosystem.EventKind, intensity float64) Transition {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, changes := s.Model.ApplyEvent(s.current, kind, intensity)
	s.current = next

	t := Transition{
		Kind:     KindEvent,
		Event:    kind.String(),
		Tick:     s.lastTick,
		Snapshot: next,
		Changes:  changes,
	}
	if kind == ecosystem.EventReset {
		t.Kind = KindReset
		slog.Info("planet reset", "tick", s.lastTick)
	} else {
		slog.Info("event applied",
			"event", kind.String(),
			"intensity", next.LastEventIntensity,
			"population", s.Format.Count(next.Population),
			"vegetation", s.Format.Percent(next.VegetationPct),
			"water", s.Format.Percent(next.WaterPct),
		)
	}
	return s.emit(t)
}
