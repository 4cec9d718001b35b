package ecosystem

import (
	"math"
	"strings"
)

// EventKind identifies a discrete user-triggered perturbation.
type EventKind uint8

const (
	EventUnknown EventKind = iota
	EventMeteor
	EventPeople
	EventWater
	EventVegetation
	EventHurricane
	EventWarming
	EventPollution
	EventTsunami
	EventMountains
	EventReset
)

var eventNames = [...]string{
	EventUnknown:    "unknown",
	EventMeteor:     "meteor",
	EventPeople:     "people",
	EventWater:      "water",
	EventVegetation: "vegetation",
	EventHurricane:  "hurricane",
	EventWarming:    "warming",
	EventPollution:  "pollution",
	EventTsunami:    "tsunami",
	EventMountains:  "mountains",
	EventReset:      "reset",
}

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return eventNames[EventUnknown]
}

// EventKinds returns every known event kind in display order.
func EventKinds() []EventKind {
	return []EventKind{
		EventMeteor, EventHurricane, EventWarming, EventTsunami, EventPollution,
		EventPeople, EventWater, EventVegetation, EventMountains, EventReset,
	}
}

// ParseEventKind maps a wire name to its kind. Matching ignores case and
// surrounding space. Unrecognized names return EventUnknown and false.
func ParseEventKind(name string) (EventKind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k := EventMeteor; k <= EventReset; k++ {
		if eventNames[k] == name {
			return k, true
		}
	}
	return EventUnknown, false
}

// Field names used as Changes keys.
const (
	FieldPopulation = "population"
	FieldVegetation = "vegetation"
	FieldWater      = "water"
	FieldDeaths     = "deaths"
)

// Changes records the signed delta applied to each field an event touched.
// It exists for display only and never feeds back into the model.
type Changes map[string]float64

// effect is the per-unit-intensity rule for one event kind.
type effect struct {
	population float64 // negative values are losses that also count as deaths
	vegetation float64
	water      float64
}

// effectOf is the single dispatch point over the closed event set.
func effectOf(k EventKind) (effect, bool) {
	switch k {
	case EventMeteor:
		return effect{population: -1_000_000, vegetation: -0.5}, true
	case EventPeople:
		return effect{population: 1_000_000}, true
	case EventWater:
		return effect{vegetation: -0.2, water: 0.5}, true
	case EventVegetation:
		return effect{vegetation: 1}, true
	case EventHurricane:
		return effect{population: -500_000}, true
	case EventWarming:
		return effect{population: -300_000, vegetation: -0.5, water: -0.3}, true
	case EventPollution:
		return effect{population: -100_000, vegetation: -1, water: -0.2}, true
	case EventTsunami:
		return effect{population: -200_000}, true
	case EventMountains:
		return effect{vegetation: 0.2, water: -0.5}, true
	default:
		return effect{}, false
	}
}

// SanitizeIntensity maps negative and non-finite intensities to 0 and caps
// the rest at MaxIntensity.
func SanitizeIntensity(intensity float64) float64 {
	if math.IsNaN(intensity) || math.IsInf(intensity, 0) || intensity < 0 {
		return 0
	}
	return math.Min(intensity, MaxIntensity)
}

// ApplyEvent applies one discrete event to s at the given intensity.
//
// Reset returns Defaults() regardless of s. Unknown kinds are a defined no-op:
// s comes back unchanged with empty Changes. Population losses are credited to
// Deaths at their full computed size, even when the population floor at zero
// absorbs part of the loss.
func (m Model) ApplyEvent(s Snapshot, kind EventKind, intensity float64) (Snapshot, Changes) {
	if kind == EventReset {
		return Defaults(), Changes{}
	}

	e, ok := effectOf(kind)
	if !ok {
		return s, Changes{}
	}

	i := SanitizeIntensity(intensity)
	next := s
	changes := Changes{}

	if e.population != 0 {
		delta := e.population * i
		next.Population = nonNegative(s.Population + delta)
		changes[FieldPopulation] = next.Population - s.Population
		if delta < 0 {
			next.Deaths = nonNegative(s.Deaths - delta)
			changes[FieldDeaths] = -delta
		}
	}
	if e.vegetation != 0 {
		next.VegetationPct = clampPct(s.VegetationPct + e.vegetation*i)
		changes[FieldVegetation] = next.VegetationPct - s.VegetationPct
	}
	if e.water != 0 {
		next.WaterPct = clampPct(s.WaterPct + e.water*i)
		changes[FieldWater] = next.WaterPct - s.WaterPct
	}

	next.LastEventLabel = m.label(kind)
	next.LastEventIntensity = i
	return next, changes
}

func (m Model) label(k EventKind) string {
	if m.Labels == nil {
		return DefaultLabel(k)
	}
	return m.Labels.Label(k)
}
