package ecosystem

import "math"

// Snapshot is the complete set of planet indicators at one point in time.
// It is a plain value: every transition returns a new Snapshot and no
// transition keeps a reference into an older one.
type Snapshot struct {
	Population    float64 `json:"population"`     // people, >= 0
	VegetationPct float64 `json:"vegetation_pct"` // percent of surface, [0, 100]
	WaterPct      float64 `json:"water_pct"`      // percent of surface, [0, 100]
	Deaths        float64 `json:"deaths"`         // cumulative, never decreases except on reset
	BirthRatePct  float64 `json:"birth_rate_pct"` // annual births per 100 people
	DeathRatePct  float64 `json:"death_rate_pct"` // annual deaths per 100 people

	LastEventLabel     string  `json:"last_event_label,omitempty"`
	LastEventIntensity float64 `json:"last_event_intensity"`
}

// Defaults returns the snapshot the planet starts from and returns to on reset.
func Defaults() Snapshot {
	return Snapshot{
		Population:    DefaultPopulation,
		VegetationPct: DefaultVegetationPct,
		WaterPct:      DefaultWaterPct,
		Deaths:        DefaultDeaths,
		BirthRatePct:  DefaultBirthRatePct,
		DeathRatePct:  DefaultDeathRatePct,
	}
}

// Valid reports whether s satisfies the indicator bounds. Every number must
// be finite.
func (s Snapshot) Valid() bool {
	for _, v := range []float64{s.Population, s.Deaths, s.VegetationPct, s.WaterPct,
		s.BirthRatePct, s.DeathRatePct, s.LastEventIntensity} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return s.Population >= 0 &&
		s.Deaths >= 0 &&
		s.VegetationPct >= 0 && s.VegetationPct <= 100 &&
		s.WaterPct >= 0 && s.WaterPct <= 100
}

// clampPct bounds a percentage to [0, 100]. NaN collapses to 0.
func clampPct(v float64) float64 {
	return clamp(v, 0, 100)
}

// nonNegative bounds a count to [0, math.MaxFloat64]. NaN collapses to 0.
func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(v, math.MaxFloat64)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
