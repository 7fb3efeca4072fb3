package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandSourceReproducible(t *testing.T) {
	a := NewRandSource(42)
	b := NewRandSource(42)

	for i := 0; i < 100; i++ {
		require.Equal(t, a.Float64(), b.Float64(), "same seed must yield same sequence")
	}
}

func TestRandSourceStreamsDiffer(t *testing.T) {
	base := NewRandSource(7)
	s0 := base.Stream(0)
	s1 := base.Stream(1)

	same := 0
	for i := 0; i < 50; i++ {
		if s0.Float64() == s1.Float64() {
			same++
		}
	}
	assert.Less(t, same, 5, "derived streams should be statistically independent")
}

func TestUniformFloat64Bounds(t *testing.T) {
	r := NewRandSource(1)
	for i := 0; i < 1000; i++ {
		v := r.UniformFloat64(2.5, 9.0)
		require.GreaterOrEqual(t, v, 2.5)
		require.Less(t, v, 9.0)
	}
}

func TestLogUniformFloat64Bounds(t *testing.T) {
	r := NewRandSource(1)
	for i := 0; i < 1000; i++ {
		v := r.LogUniformFloat64(0.1, 100.0)
		require.GreaterOrEqual(t, v, 0.1)
		require.Less(t, v, 100.0)
	}
}
