package ecosystem

import "math"

// Noise supplies the random drift applied to surface cover on each tick.
// Sample returns a value in [-1, 1]; values outside that range are clamped.
type Noise interface {
	Sample() float64
}

// NoiseFunc adapts a plain function to Noise.
type NoiseFunc func() float64

// Sample calls f.
func (f NoiseFunc) Sample() float64 { return f() }

// Model holds the collaborators for the transition functions. The zero value is
// usable: no drift on tick and English event labels.
type Model struct {
	Noise  Noise
	Labels Labeler
}

// Tick advances s by one natural step of StepSeconds of simulated time.
func (m Model) Tick(s Snapshot) Snapshot {
	f := DeriveEnvironmentFactor(s)
	pop := nonNegative(s.Population)

	births := nonNegative(pop * (s.BirthRatePct / 100 * f.BirthMultiplier / SecondsPerYear * StepSeconds))
	naturalDeaths := nonNegative(pop * (s.DeathRatePct / 100 * f.DeathMultiplier / SecondsPerYear * StepSeconds))

	next := s
	next.Population = nonNegative(pop + births - naturalDeaths)
	next.Deaths = nonNegative(nonNegative(s.Deaths) + naturalDeaths)
	next.VegetationPct = clampPct(s.VegetationPct + m.sample()*VegetationNoise)
	next.WaterPct = clampPct(s.WaterPct + m.sample()*WaterNoise)
	return next
}

func (m Model) sample() float64 {
	if m.Noise == nil {
		return 0
	}
	v := m.Noise.Sample()
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, -1, 1)
}
