package entropy

import (
	"sync"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Simplex walks coherent OpenSimplex noise so that consecutive ticks drift in
// the same direction for a while instead of jittering. Successive samples
// alternate between two lanes, one per surface indicator.
type Simplex struct {
	mu    sync.Mutex
	noise opensimplex.Noise
	n     uint64

	Frequency   float64 // distance travelled along the noise field per tick
	Octaves     int
	Persistence float64
}

const simplexLaneSpacing = 1000.0

// NewSimplex creates a coherent noise source.
func NewSimplex(seed int64) *Simplex {
	return &Simplex{
		noise:       opensimplex.NewNormalized(seed),
		Frequency:   0.05,
		Octaves:     3,
		Persistence: 0.5,
	}
}

// Sample returns a value in [-1, 1].
func (s *Simplex) Sample() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	step := float64(s.n / 2)
	lane := float64(s.n%2) * simplexLaneSpacing
	s.n++

	v := octaveNoise(s.noise, step, lane, s.Octaves, s.Frequency, s.Persistence)*2 - 1
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// octaveNoise generates fractal noise by layering multiple frequencies.
// With a normalized source the result stays in [0, 1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	if octaves < 1 {
		octaves = 1
	}
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
