package utils

import (
	"math"
	"math/rand"
	"time"
)

// RandSource is a seedable random number generator owned by a single
// optimization run. Runs never share a source, so no locking is needed.
type RandSource struct {
	rng *rand.Rand
}

// NewRandSource creates a new random source with the given seed
func NewRandSource(seed int64) *RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSource{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Stream derives an independent source for the n-th parallel repetition.
// The multiplier keeps neighbouring streams far apart in seed space.
func (r *RandSource) Stream(n int) *RandSource {
	return NewRandSource(r.rng.Int63() + int64(n)*0x9E3779B9)
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	return r.rng.Float64()
}

// Intn returns a random int in [0, n)
func (r *RandSource) Intn(n int) int {
	return r.rng.Intn(n)
}

// UniformFloat64 returns a uniformly distributed random number in [min, max)
func (r *RandSource) UniformFloat64(min, max float64) float64 {
	return min + r.rng.Float64()*(max-min)
}

// LogUniformFloat64 returns a random number in [min, max) sampled uniformly
// in log space, favouring smaller values. Both bounds must be positive.
func (r *RandSource) LogUniformFloat64(min, max float64) float64 {
	lo := math.Log10(min)
	hi := math.Log10(max)
	return math.Pow(10, lo+r.rng.Float64()*(hi-lo))
}
