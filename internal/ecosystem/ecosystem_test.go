package ecosystem

import (
	"math"
	"math/rand"
	"testing"
)

const eps = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) <= eps*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestDeriveEnvironmentFactorAtOptimum(t *testing.T) {
	s := Defaults()
	s.VegetationPct = 40
	s.WaterPct = 70

	f := DeriveEnvironmentFactor(s)
	if f.BirthMultiplier != 1.0 || f.DeathMultiplier != 1.0 {
		t.Fatalf("expected (1, 1) at optimum, got (%v, %v)", f.BirthMultiplier, f.DeathMultiplier)
	}
}

func TestDeriveEnvironmentFactor(t *testing.T) {
	tests := []struct {
		name       string
		veg, water float64
		birth      float64
		death      float64
	}{
		{"defaults", 30.6, 71.4, 1 - (9.4/40*0.3 + 1.4/70*0.2), 1 + (9.4/40*0.4 + 1.4/70*0.3)},
		{"barren dry", 0, 0, 0.5, 1.7},
		{"overgrown flooded", 100, 100, 0.5, 1 + (1.5*0.4 + 30.0/70*0.3)},
		{"barren flooded", 0, 100, 1 - (0.3 + 30.0/70*0.2), 1 + (0.4 + 30.0/70*0.3)},
		{"nan cover", math.NaN(), 70, 0.5, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Snapshot{VegetationPct: tt.veg, WaterPct: tt.water}
			f := DeriveEnvironmentFactor(s)
			if !approx(f.BirthMultiplier, tt.birth) {
				t.Errorf("birth multiplier = %v, want %v", f.BirthMultiplier, tt.birth)
			}
			if !approx(f.DeathMultiplier, tt.death) {
				t.Errorf("death multiplier = %v, want %v", f.DeathMultiplier, tt.death)
			}
			if f.BirthMultiplier < MinBirthMultiplier || f.BirthMultiplier > MaxBirthMultiplier {
				t.Errorf("birth multiplier %v out of bounds", f.BirthMultiplier)
			}
			if f.DeathMultiplier < MinDeathMultiplier || f.DeathMultiplier > MaxDeathMultiplier {
				t.Errorf("death multiplier %v out of bounds", f.DeathMultiplier)
			}
		})
	}
}

func TestTickAtOptimumWithoutNoise(t *testing.T) {
	s := Defaults()
	s.VegetationPct = 40
	s.WaterPct = 70

	next := Model{}.Tick(s)

	births := s.Population * 2.5 / 100 / SecondsPerYear * StepSeconds
	deaths := s.Population * 0.8 / 100 / SecondsPerYear * StepSeconds
	if !approx(next.Population, s.Population+births-deaths) {
		t.Fatalf("population = %v, want %v", next.Population, s.Population+births-deaths)
	}
	if !approx(next.Deaths, s.Deaths+deaths) {
		t.Fatalf("deaths = %v, want %v", next.Deaths, s.Deaths+deaths)
	}
	if next.VegetationPct != 40 || next.WaterPct != 70 {
		t.Fatalf("surface drifted without noise: veg=%v water=%v", next.VegetationPct, next.WaterPct)
	}
	if next.BirthRatePct != s.BirthRatePct || next.DeathRatePct != s.DeathRatePct {
		t.Fatal("tick must not change rates")
	}
}

func TestTickZeroPopulationStaysZero(t *testing.T) {
	s := Defaults()
	s.Population = 0
	m := Model{Noise: NoiseFunc(func() float64 { return 0 })}

	for i := 0; i < 1000; i++ {
		s = m.Tick(s)
		if s.Population != 0 {
			t.Fatalf("tick %d: population = %v, want 0", i, s.Population)
		}
	}
	if s.Deaths != DefaultDeaths {
		t.Fatalf("deaths changed with zero population: %v", s.Deaths)
	}
}

func TestTickNoiseIsBounded(t *testing.T) {
	s := Defaults()
	hi := Model{Noise: NoiseFunc(func() float64 { return 5 })}.Tick(s)
	if !approx(hi.VegetationPct, s.VegetationPct+VegetationNoise) {
		t.Errorf("vegetation drift = %v, want +%v", hi.VegetationPct-s.VegetationPct, VegetationNoise)
	}
	if !approx(hi.WaterPct, s.WaterPct+WaterNoise) {
		t.Errorf("water drift = %v, want +%v", hi.WaterPct-s.WaterPct, WaterNoise)
	}

	lo := Model{Noise: NoiseFunc(func() float64 { return -5 })}.Tick(s)
	if !approx(lo.VegetationPct, s.VegetationPct-VegetationNoise) {
		t.Errorf("vegetation drift = %v, want -%v", lo.VegetationPct-s.VegetationPct, VegetationNoise)
	}

	nan := Model{Noise: NoiseFunc(math.NaN)}.Tick(s)
	if nan.VegetationPct != s.VegetationPct || nan.WaterPct != s.WaterPct {
		t.Error("NaN noise must not move the surface")
	}
}

func TestTickClampsSurfaceAtBounds(t *testing.T) {
	up := Model{Noise: NoiseFunc(func() float64 { return 1 })}
	down := Model{Noise: NoiseFunc(func() float64 { return -1 })}

	s := Defaults()
	s.VegetationPct, s.WaterPct = 100, 100
	if got := up.Tick(s); got.VegetationPct != 100 || got.WaterPct != 100 {
		t.Errorf("upper clamp failed: %+v", got)
	}
	s.VegetationPct, s.WaterPct = 0, 0
	if got := down.Tick(s); got.VegetationPct != 0 || got.WaterPct != 0 {
		t.Errorf("lower clamp failed: %+v", got)
	}
}

func TestTickDeterministicWithSeededNoise(t *testing.T) {
	run := func() Snapshot {
		rng := rand.New(rand.NewSource(7))
		m := Model{Noise: NoiseFunc(func() float64 { return rng.Float64()*2 - 1 })}
		s := Defaults()
		for i := 0; i < 50; i++ {
			s = m.Tick(s)
		}
		return s
	}
	if a, b := run(), run(); a != b {
		t.Fatalf("seeded runs diverged:\n%+v\n%+v", a, b)
	}
}

func TestApplyEventTable(t *testing.T) {
	base := Defaults()
	tests := []struct {
		kind      EventKind
		intensity float64
		pop       float64
		veg       float64
		water     float64
		deaths    float64
	}{
		{EventMeteor, 2, -2_000_000, -1, 0, 2_000_000},
		{EventPeople, 3, 3_000_000, 0, 0, 0},
		{EventWater, 2, 0, -0.4, 1, 0},
		{EventVegetation, 4, 0, 4, 0, 0},
		{EventHurricane, 2, -1_000_000, 0, 0, 1_000_000},
		{EventWarming, 1, -300_000, -0.5, -0.3, 300_000},
		{EventPollution, 5, -500_000, -5, -1, 500_000},
		{EventTsunami, 10, -2_000_000, 0, 0, 2_000_000},
		{EventMountains, 2, 0, 0.4, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			next, changes := Model{}.ApplyEvent(base, tt.kind, tt.intensity)

			if !approx(next.Population-base.Population, tt.pop) {
				t.Errorf("population delta = %v, want %v", next.Population-base.Population, tt.pop)
			}
			if !approx(next.VegetationPct-base.VegetationPct, tt.veg) {
				t.Errorf("vegetation delta = %v, want %v", next.VegetationPct-base.VegetationPct, tt.veg)
			}
			if !approx(next.WaterPct-base.WaterPct, tt.water) {
				t.Errorf("water delta = %v, want %v", next.WaterPct-base.WaterPct, tt.water)
			}
			if !approx(next.Deaths-base.Deaths, tt.deaths) {
				t.Errorf("deaths delta = %v, want %v", next.Deaths-base.Deaths, tt.deaths)
			}
			if next.LastEventLabel != DefaultLabel(tt.kind) {
				t.Errorf("label = %q, want %q", next.LastEventLabel, DefaultLabel(tt.kind))
			}
			if next.LastEventIntensity != tt.intensity {
				t.Errorf("intensity = %v, want %v", next.LastEventIntensity, tt.intensity)
			}
			if tt.pop != 0 && !approx(changes[FieldPopulation], tt.pop) {
				t.Errorf("changes[population] = %v, want %v", changes[FieldPopulation], tt.pop)
			}
			if tt.deaths != 0 && !approx(changes[FieldDeaths], tt.deaths) {
				t.Errorf("changes[deaths] = %v, want %v", changes[FieldDeaths], tt.deaths)
			}
			if tt.deaths == 0 {
				if _, ok := changes[FieldDeaths]; ok {
					t.Errorf("unexpected deaths entry in changes: %v", changes)
				}
			}
		})
	}
}

func TestApplyEventPeopleChangesOnlyPopulation(t *testing.T) {
	for _, i := range []float64{0, 1, 7, 100} {
		base := Defaults()
		next, _ := Model{}.ApplyEvent(base, EventPeople, i)
		if next.Population != base.Population+1_000_000*i {
			t.Fatalf("i=%v: population = %v, want %v", i, next.Population, base.Population+1_000_000*i)
		}
		next.Population = base.Population
		next.LastEventLabel = ""
		next.LastEventIntensity = 0
		if next != base {
			t.Fatalf("i=%v: other fields changed: %+v", i, next)
		}
	}
}

func TestApplyEventMeteorTen(t *testing.T) {
	base := Defaults()
	next, _ := Model{}.ApplyEvent(base, EventMeteor, 10)
	if next.Population != base.Population-10_000_000 {
		t.Errorf("population = %v", next.Population)
	}
	if next.Deaths != base.Deaths+10_000_000 {
		t.Errorf("deaths = %v", next.Deaths)
	}
	if !approx(next.VegetationPct, base.VegetationPct-5) {
		t.Errorf("vegetation = %v", next.VegetationPct)
	}
}

func TestApplyEventCountsRawLossAsDeaths(t *testing.T) {
	s := Defaults()
	s.Population = 3_000_000
	s.VegetationPct = 2

	next, changes := Model{}.ApplyEvent(s, EventMeteor, 10)
	if next.Population != 0 {
		t.Errorf("population = %v, want 0", next.Population)
	}
	if next.Deaths != s.Deaths+10_000_000 {
		t.Errorf("deaths = %v, want raw loss credited (%v)", next.Deaths, s.Deaths+10_000_000)
	}
	if next.VegetationPct != 0 {
		t.Errorf("vegetation = %v, want 0", next.VegetationPct)
	}
	if changes[FieldPopulation] != -3_000_000 {
		t.Errorf("changes[population] = %v, want applied delta -3e6", changes[FieldPopulation])
	}
	if changes[FieldVegetation] != -2 {
		t.Errorf("changes[vegetation] = %v, want -2", changes[FieldVegetation])
	}
	if changes[FieldDeaths] != 10_000_000 {
		t.Errorf("changes[deaths] = %v, want 1e7", changes[FieldDeaths])
	}
}

func TestApplyEventClampsPercentUpward(t *testing.T) {
	s := Defaults()
	s.VegetationPct = 99.5
	next, changes := Model{}.ApplyEvent(s, EventVegetation, 10)
	if next.VegetationPct != 100 {
		t.Fatalf("vegetation = %v, want 100", next.VegetationPct)
	}
	if !approx(changes[FieldVegetation], 0.5) {
		t.Fatalf("changes[vegetation] = %v, want 0.5", changes[FieldVegetation])
	}
}

func TestApplyEventReset(t *testing.T) {
	s := Snapshot{Population: 1, VegetationPct: 3, WaterPct: 4, Deaths: 9e12, BirthRatePct: 9, DeathRatePct: 9,
		LastEventLabel: "Meteor strike", LastEventIntensity: 10}
	for _, i := range []float64{0, 1, -3, math.NaN(), math.Inf(1)} {
		next, changes := Model{}.ApplyEvent(s, EventReset, i)
		if next != Defaults() {
			t.Fatalf("reset(%v) = %+v, want defaults", i, next)
		}
		if len(changes) != 0 {
			t.Fatalf("reset(%v) changes = %v, want empty", i, changes)
		}
	}
}

func TestApplyEventUnknownIsNoop(t *testing.T) {
	s := Defaults()
	s.LastEventLabel = "Hurricane"
	s.LastEventIntensity = 3

	kind, ok := ParseEventKind("unknown-kind")
	if ok {
		t.Fatal("expected unknown-kind to be unrecognized")
	}
	next, changes := Model{}.ApplyEvent(s, kind, 5)
	if next != s {
		t.Fatalf("unknown event changed snapshot: %+v", next)
	}
	if len(changes) != 0 {
		t.Fatalf("unknown event changes = %v, want empty", changes)
	}

	next, _ = Model{}.ApplyEvent(s, EventKind(200), 5)
	if next != s {
		t.Fatal("out-of-range kind changed snapshot")
	}
}

func TestApplyEventSanitizesIntensity(t *testing.T) {
	base := Defaults()
	for _, i := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		next, changes := Model{}.ApplyEvent(base, EventMeteor, i)
		if next.Population != base.Population || next.Deaths != base.Deaths || next.VegetationPct != base.VegetationPct {
			t.Fatalf("intensity %v was not treated as 0: %+v", i, next)
		}
		if next.LastEventIntensity != 0 {
			t.Fatalf("intensity %v recorded as %v, want 0", i, next.LastEventIntensity)
		}
		if changes[FieldPopulation] != 0 {
			t.Fatalf("intensity %v produced population change %v", i, changes[FieldPopulation])
		}
	}
}

func finite(s Snapshot) bool {
	for _, v := range []float64{s.Population, s.Deaths, s.VegetationPct, s.WaterPct, s.LastEventIntensity} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func TestApplyEventHugeIntensityStaysFinite(t *testing.T) {
	m := Model{}
	for _, kind := range EventKinds() {
		for _, i := range []float64{1e303, math.MaxFloat64} {
			next, changes := m.ApplyEvent(Defaults(), kind, i)
			if !finite(next) || !next.Valid() {
				t.Fatalf("%v at %g: non-finite snapshot %+v", kind, i, next)
			}
			for field, d := range changes {
				if math.IsNaN(d) || math.IsInf(d, 0) {
					t.Fatalf("%v at %g: change %s = %v", kind, i, field, d)
				}
			}
			if kind != EventReset && next.LastEventIntensity != MaxIntensity {
				t.Fatalf("%v at %g: intensity = %g, want MaxIntensity", kind, i, next.LastEventIntensity)
			}
		}
	}
}

func TestHugeEventsThenTicksKeepPopulation(t *testing.T) {
	m := Model{}
	s, _ := m.ApplyEvent(Defaults(), EventPeople, 1e303)
	s, _ = m.ApplyEvent(s, EventPeople, 1e303)
	if s.Population <= 0 || !finite(s) {
		t.Fatalf("population after huge growth = %v", s.Population)
	}
	s, _ = m.ApplyEvent(s, EventMeteor, 1e303)
	s, _ = m.ApplyEvent(s, EventMeteor, 1e303)
	for i := 0; i < 10; i++ {
		s = m.Tick(s)
		if !finite(s) || !s.Valid() {
			t.Fatalf("tick %d: %+v", i, s)
		}
	}

	s, _ = m.ApplyEvent(Defaults(), EventPeople, math.MaxFloat64)
	s, _ = m.ApplyEvent(s, EventPeople, math.MaxFloat64)
	next := m.Tick(s)
	if next.Population <= 0 || !finite(next) {
		t.Fatalf("tick at saturated population = %+v", next)
	}
}

func TestValidRejectsNonFinite(t *testing.T) {
	for _, mutate := range []func(*Snapshot){
		func(s *Snapshot) { s.Population = math.Inf(1) },
		func(s *Snapshot) { s.Deaths = math.Inf(1) },
		func(s *Snapshot) { s.VegetationPct = math.NaN() },
		func(s *Snapshot) { s.BirthRatePct = math.Inf(-1) },
		func(s *Snapshot) { s.LastEventIntensity = math.NaN() },
	} {
		s := Defaults()
		mutate(&s)
		if s.Valid() {
			t.Fatalf("Valid accepted %+v", s)
		}
	}
	if !Defaults().Valid() {
		t.Fatal("defaults must be valid")
	}
}

type staticLabels map[EventKind]string

func (l staticLabels) Label(k EventKind) string { return l[k] }

func TestApplyEventUsesLabeler(t *testing.T) {
	m := Model{Labels: staticLabels{EventTsunami: "Цунами"}}
	next, _ := m.ApplyEvent(Defaults(), EventTsunami, 1)
	if next.LastEventLabel != "Цунами" {
		t.Fatalf("label = %q", next.LastEventLabel)
	}
}

func TestInvariantsHoldAcrossRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	m := Model{Noise: NoiseFunc(func() float64 { return rng.Float64()*2 - 1 })}
	kinds := EventKinds()

	s := Defaults()
	for i := 0; i < 5000; i++ {
		prevDeaths := s.Deaths
		var kind EventKind
		if rng.Intn(3) == 0 {
			kind = kinds[rng.Intn(len(kinds))]
			s, _ = m.ApplyEvent(s, kind, rng.Float64()*200-20)
		} else {
			s = m.Tick(s)
		}
		if !s.Valid() {
			t.Fatalf("step %d: invalid snapshot %+v", i, s)
		}
		if kind == EventReset {
			if s.Deaths != DefaultDeaths {
				t.Fatalf("step %d: reset deaths = %v", i, s.Deaths)
			}
			continue
		}
		if s.Deaths < prevDeaths {
			t.Fatalf("step %d: deaths decreased from %v to %v", i, prevDeaths, s.Deaths)
		}
	}
}

func TestParseEventKind(t *testing.T) {
	for _, k := range EventKinds() {
		got, ok := ParseEventKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseEventKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if got, ok := ParseEventKind("  Meteor "); !ok || got != EventMeteor {
		t.Errorf("ParseEventKind should ignore case and space, got %v %v", got, ok)
	}
	if _, ok := ParseEventKind("unknown"); ok {
		t.Error("the unknown sentinel must not parse as a known kind")
	}
}
