// Package entropy provides the noise sources that drive surface drift on each
// natural tick. Every source returns samples in [-1, 1].
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand"
	"strings"
	"sync"

	"github.com/talgya/earthsim/internal/ecosystem"
)

// Source names accepted by New.
const (
	SourceSeeded  = "seeded"
	SourceCrypto  = "crypto"
	SourceSimplex = "simplex"
	SourceNone    = "none"
)

// New builds the named noise source. Seed is ignored by crypto and none.
func New(name string, seed int64) (ecosystem.Noise, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case SourceSeeded, "":
		return NewSeeded(seed), nil
	case SourceCrypto:
		return Crypto{}, nil
	case SourceSimplex:
		return NewSimplex(seed), nil
	case SourceNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown noise source %q (use: seeded, crypto, simplex, none)", name)
	}
}

// Seeded is uniform white noise from a seeded PRNG. Two Seeded sources with
// the same seed produce the same sequence.
type Seeded struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeeded creates a uniform source seeded with seed.
func NewSeeded(seed int64) *Seeded {
	return &Seeded{rng: mrand.New(mrand.NewSource(seed))}
}

// Sample returns a uniform value in [-1, 1).
func (s *Seeded) Sample() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()*2 - 1
}

// Crypto is uniform noise from crypto/rand. Not reproducible.
type Crypto struct{}

// Sample returns a uniform value in [-1, 1).
func (Crypto) Sample() float64 {
	return cryptoRandFloat()*2 - 1
}

// None never perturbs.
type None struct{}

// Sample always returns 0.
func (None) Sample() float64 { return 0 }

// cryptoRandFloat generates a random float64 in [0, 1) using crypto/rand.
func cryptoRandFloat() float64 {
	var buf [8]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		// This should never happen; 0.5 maps to zero drift.
		return 0.5
	}
	// Use only 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}
