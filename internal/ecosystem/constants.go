// Package ecosystem models the planet's indicators and the two ways they change:
// the continuous natural tick and discrete user-triggered events.
// All functions are pure with respect to their inputs; randomness enters only
// through an injected Noise source.
package ecosystem

import "math"

// Time constants for the natural tick.
const (
	// StepSeconds is the simulated time covered by one Tick.
	StepSeconds = 5.0

	// SecondsPerYear converts the annual birth/death rates into per-step rates.
	SecondsPerYear = 365 * 24 * 60 * 60.0
)

// Environmental optima. Deviation from these depresses births and raises deaths.
const (
	OptimalVegetationPct = 40.0
	OptimalWaterPct      = 70.0
)

// Environment factor weights and bounds.
const (
	birthVegetationWeight = 0.3
	birthWaterWeight      = 0.2
	deathVegetationWeight = 0.4
	deathWaterWeight      = 0.3

	MinBirthMultiplier = 0.5
	MaxBirthMultiplier = 1.2
	MinDeathMultiplier = 0.8
	MaxDeathMultiplier = 2.0
)

// MaxIntensity bounds event intensity so the largest per-unit effect
// (1,000,000 people) times intensity stays a tenth of the float64 range.
const MaxIntensity = math.MaxFloat64 / 1e7

// Noise amplitudes for the per-tick surface drift (percentage points).
const (
	VegetationNoise = 0.01
	WaterNoise      = 0.005
)

// Default indicator values.
const (
	DefaultPopulation    = 8_000_000_000
	DefaultVegetationPct = 30.6
	DefaultWaterPct      = 71.4
	DefaultDeaths        = 56_000_000
	DefaultBirthRatePct  = 2.5
	DefaultDeathRatePct  = 0.8
)
