package scatter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BAMresearch/McSAS/pkg/utils"
)

func testQ() []float64 {
	q := make([]float64, 50)
	for i := range q {
		q[i] = 0.01 + 0.01*float64(i)
	}
	return q
}

func testModel(t *testing.T) *Model {
	t.Helper()
	m, err := NewModel(&Sphere{}, []ParamRange{{Min: 1, Max: 100}}, testQ(), 2.0/3.0)
	require.NoError(t, err)
	return m
}

func TestSphereIntensityDeterministicNonNegative(t *testing.T) {
	s := &Sphere{}
	for _, r := range []float64{0.5, 1, 10, 50, 200} {
		for _, q := range testQ() {
			first := s.Intensity(q, []float64{r})
			second := s.Intensity(q, []float64{r})
			require.Equal(t, first, second, "intensity must be deterministic")
			require.GreaterOrEqual(t, first, 0.0, "intensity must be non-negative")
		}
	}
}

func TestSphereIntensityLowQLimit(t *testing.T) {
	s := &Sphere{}
	assert.Equal(t, 1.0, s.Intensity(0, []float64{10}))
	assert.InDelta(t, 1.0, s.Intensity(1e-8, []float64{10}), 1e-6)
}

func TestSphereVolume(t *testing.T) {
	s := &Sphere{}
	assert.InDelta(t, 4.0/3.0*math.Pi, s.Volume([]float64{1}), 1e-12)
	assert.InDelta(t, 4.0/3.0*math.Pi*1000, s.Volume([]float64{10}), 1e-9)
}

func TestNewFormFactor(t *testing.T) {
	ff, err := NewFormFactor("sphere")
	require.NoError(t, err)
	assert.Equal(t, "sphere", ff.Name())

	ff, err = NewFormFactor("")
	require.NoError(t, err)
	assert.Equal(t, "sphere", ff.Name())

	_, err = NewFormFactor("icosahedron")
	var unknownErr *UnknownModelError
	require.ErrorAs(t, err, &unknownErr)
}

func TestDefaultBounds(t *testing.T) {
	bounds := DefaultBounds(&Sphere{}, 0.01, 0.5)
	require.Len(t, bounds, 1)
	assert.InDelta(t, math.Pi/0.5, bounds[0].Min, 1e-12)
	assert.InDelta(t, math.Pi/0.01, bounds[0].Max, 1e-12)
}

func TestModelCheck(t *testing.T) {
	m := testModel(t)

	require.NoError(t, m.Check([]float64{50}))
	require.NoError(t, m.Check([]float64{1}), "closed range includes the bounds")
	require.NoError(t, m.Check([]float64{100}))

	err := m.Check([]float64{0.5})
	var invalidErr *InvalidParameterError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, 0, invalidErr.Index)

	require.Error(t, m.Check([]float64{1, 2}), "wrong parameter count")
}

func TestModelDrawWithinBounds(t *testing.T) {
	m := testModel(t)
	rng := utils.NewRandSource(3)
	for i := 0; i < 500; i++ {
		params := m.Draw(rng)
		require.NoError(t, m.Check(params))
	}
}

func TestModelMinimumSeed(t *testing.T) {
	m := testModel(t)
	assert.Equal(t, []float64{1.0}, m.MinimumSeed())

	zero, err := NewModel(&Sphere{}, []ParamRange{{Min: 0, Max: 100}}, testQ(), 0.5)
	require.NoError(t, err)
	seed := zero.MinimumSeed()
	assert.Greater(t, seed[0], 0.0, "zero bound must be replaced by a usable size")
}

func TestContributionCurveCached(t *testing.T) {
	m := testModel(t)
	c, err := NewContribution(m, []float64{10})
	require.NoError(t, err)

	first := c.Curve(m)
	second := c.Curve(m)
	assert.Same(t, &first[0], &second[0], "curve must be cached between evaluations")

	require.NoError(t, c.SetParams(m, []float64{20}))
	third := c.Curve(m)
	assert.NotEqual(t, first[0], third[0], "cache must be invalidated on parameter change")
}

func TestContributionRejectsOutOfRange(t *testing.T) {
	m := testModel(t)
	_, err := NewContribution(m, []float64{500})
	var invalidErr *InvalidParameterError
	require.ErrorAs(t, err, &invalidErr)

	c, err := NewContribution(m, []float64{10})
	require.NoError(t, err)
	require.Error(t, c.SetParams(m, []float64{-1}))
}

func TestModelCurveMatchesWeightTimesIntensity(t *testing.T) {
	m := testModel(t)
	params := []float64{25}
	curve := m.Curve(params)
	w := m.Weight(params)
	for i, q := range testQ() {
		require.InDelta(t, w*m.FormFactor().Intensity(q, params), curve[i], 1e-12)
	}
}
