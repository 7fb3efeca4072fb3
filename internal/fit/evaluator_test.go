package fit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decaying synthetic curve, loosely shaped like a scattering pattern
func syntheticModel(n int) []float64 {
	model := make([]float64, n)
	for i := range model {
		q := 0.01 + 0.01*float64(i)
		model[i] = math.Exp(-40 * q)
	}
	return model
}

func ones(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = 1
	}
	return s
}

func TestEvaluateRecoversScaleAndBackground(t *testing.T) {
	model := syntheticModel(50)
	measured := make([]float64, len(model))
	for i, m := range model {
		measured[i] = 3.5*m + 0.25
	}
	sigma := ones(len(model))

	res, err := Evaluate(model, measured, sigma, Options{FindBackground: true})
	require.NoError(t, err)
	assert.InDelta(t, 3.5, res.Scale, 1e-3)
	assert.InDelta(t, 0.25, res.Background, 1e-3)
	assert.InDelta(t, 0, res.ReducedChiSq, 1e-4, "noise-free data must fit to ~zero chi-squared")
}

func TestEvaluateScaleOnly(t *testing.T) {
	model := syntheticModel(50)
	measured := make([]float64, len(model))
	for i, m := range model {
		measured[i] = 2.0 * m
	}
	sigma := ones(len(model))

	res, err := Evaluate(model, measured, sigma, Options{FindBackground: false})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Background)
	assert.InDelta(t, 2.0, res.Scale, 1e-3)
}

func TestEvaluateIdempotent(t *testing.T) {
	model := syntheticModel(30)
	measured := make([]float64, len(model))
	for i, m := range model {
		measured[i] = 1.7*m + 0.1 + 0.01*math.Sin(float64(i))
	}
	sigma := ones(len(model))
	opts := Options{FindBackground: true}

	first, err := Evaluate(model, measured, sigma, opts)
	require.NoError(t, err)
	second, err := Evaluate(model, measured, sigma, opts)
	require.NoError(t, err)
	assert.Equal(t, first, second, "evaluation must have no hidden mutable state")
}

func TestEvaluatePositiveBackgroundClamps(t *testing.T) {
	model := syntheticModel(50)
	measured := make([]float64, len(model))
	for i, m := range model {
		measured[i] = 4.0*m - 0.5
	}
	sigma := ones(len(model))

	unconstrained, err := Evaluate(model, measured, sigma, Options{FindBackground: true})
	require.NoError(t, err)
	require.Negative(t, unconstrained.Background)

	constrained, err := Evaluate(model, measured, sigma, Options{FindBackground: true, PositiveBackground: true})
	require.NoError(t, err)
	assert.Equal(t, 0.0, constrained.Background)
	assert.GreaterOrEqual(t, constrained.ReducedChiSq, unconstrained.ReducedChiSq)
}

func TestEvaluateDegenerate(t *testing.T) {
	var degenerateErr *DegenerateFitError

	_, err := Evaluate([]float64{1, 2}, []float64{1, 2}, []float64{1, 1}, Options{FindBackground: true})
	require.ErrorAs(t, err, &degenerateErr, "2 samples with 2 free scalars leaves zero degrees of freedom")

	_, err = Evaluate([]float64{1}, []float64{1}, []float64{1}, Options{})
	require.ErrorAs(t, err, &degenerateErr)

	_, err = Evaluate([]float64{1, 2}, []float64{1, 2}, []float64{1, 1}, Options{})
	require.NoError(t, err, "2 samples with 1 free scalar is fittable")
}

func TestEvaluateMisalignedCurves(t *testing.T) {
	_, err := Evaluate([]float64{1, 2, 3}, []float64{1, 2}, []float64{1, 1}, Options{})
	require.Error(t, err)
}

func TestReducedChiSquared(t *testing.T) {
	model := []float64{1, 2, 3}
	measured := []float64{2, 4, 6}
	sigma := []float64{1, 1, 1}

	// scale 2, background 0 reproduces the data exactly
	assert.Equal(t, 0.0, ReducedChiSquared(model, measured, sigma, 2, 0, 2))

	// residuals (1,2,3) with scale 1: sum of squares 14 over dof 2
	assert.InDelta(t, 7.0, ReducedChiSquared(model, measured, sigma, 1, 0, 2), 1e-12)
}
