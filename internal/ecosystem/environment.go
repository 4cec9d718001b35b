package ecosystem

import "math"

// EnvironmentFactor scales the base birth and death rates according to how far
// the surface is from its optimal vegetation and water cover. It is derived on
// demand and never stored.
type EnvironmentFactor struct {
	BirthMultiplier float64 `json:"birth_multiplier"`
	DeathMultiplier float64 `json:"death_multiplier"`
}

// DeriveEnvironmentFactor computes the birth/death multipliers for s.
// At the optimum (40% vegetation, 70% water) both multipliers are exactly 1.
func DeriveEnvironmentFactor(s Snapshot) EnvironmentFactor {
	vegDev := math.Abs(s.VegetationPct-OptimalVegetationPct) / OptimalVegetationPct
	waterDev := math.Abs(s.WaterPct-OptimalWaterPct) / OptimalWaterPct

	birth := 1 - (vegDev*birthVegetationWeight + waterDev*birthWaterWeight)
	death := 1 + (vegDev*deathVegetationWeight + waterDev*deathWaterWeight)

	return EnvironmentFactor{
		BirthMultiplier: clamp(birth, MinBirthMultiplier, MaxBirthMultiplier),
		DeathMultiplier: clamp(death, MinDeathMultiplier, MaxDeathMultiplier),
	}
}
