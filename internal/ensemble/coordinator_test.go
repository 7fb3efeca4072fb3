package ensemble

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/BAMresearch/McSAS/internal/montecarlo"
	"github.com/BAMresearch/McSAS/internal/scatter"
	"github.com/BAMresearch/McSAS/pkg/config"
	"github.com/BAMresearch/McSAS/pkg/models"
)

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }

func testQ(n int) []float64 {
	q := make([]float64, n)
	for i := range q {
		q[i] = 0.02 + 0.02*float64(i)
	}
	return q
}

func sphereModel(t *testing.T, q []float64, min, max float64) *scatter.Model {
	t.Helper()
	m, err := scatter.NewModel(&scatter.Sphere{}, []scatter.ParamRange{{Min: min, Max: max}}, q, 2.0/3.0)
	require.NoError(t, err)
	return m
}

func fittableDataset(t *testing.T, m *scatter.Model, q []float64) *models.Dataset {
	t.Helper()
	intensity := make([]float64, len(q))
	for _, r := range []float64{10, 10, 9, 11, 10} {
		for i, v := range m.Curve([]float64{r}) {
			intensity[i] += v
		}
	}
	sigma := make([]float64, len(q))
	for i, v := range intensity {
		sigma[i] = math.Max(0.1*v, 1e-12)
	}
	return &models.Dataset{Q: q, Intensity: intensity, Uncertainty: sigma}
}

func unfittableDataset(q []float64) *models.Dataset {
	intensity := make([]float64, len(q))
	sigma := make([]float64, len(q))
	for i := range q {
		intensity[i] = 5 + 4*math.Sin(25*float64(i))
		sigma[i] = 1e-6
	}
	return &models.Dataset{Q: q, Intensity: intensity, Uncertainty: sigma}
}

func fittableSettings(reps int) *config.Settings {
	return &config.Settings{
		NumContribs:          5,
		NumReps:              reps,
		MaxIterations:        20000,
		MaxRetries:           intPtr(2),
		CompensationExponent: floatPtr(2.0 / 3.0),
		ConvergenceCriterion: 1.0,
		Seed:                 42,
		Workers:              4,
	}
}

func TestCoordinatorAggregatesConvergedRuns(t *testing.T) {
	q := testQ(25)
	m := sphereModel(t, q, 5, 15)
	data := fittableDataset(t, m, q)

	coord, err := NewCoordinator(m, data, fittableSettings(10))
	require.NoError(t, err)

	res, err := coord.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Repetitions, 10)
	require.Equal(t, 10, res.Stats.NumConverged, "all repetitions must converge on fittable data")
	assert.False(t, res.Stats.IncludesIncomplete)

	// Ensemble mean of a scalar equals the arithmetic mean of the runs
	chiSq := make([]float64, len(res.Repetitions))
	for i, r := range res.Repetitions {
		require.True(t, r.Converged)
		chiSq[i] = r.Fit.ReducedChiSq
	}
	assert.InDelta(t, stat.Mean(chiSq, nil), res.Stats.ReducedChiSq.Mean, 1e-12)

	require.Len(t, res.Stats.ModelIntensityMean, len(q))
	require.Len(t, res.Stats.ModelIntensityStd, len(q))
}

func TestCoordinatorReproducibleWithFixedSeed(t *testing.T) {
	q := testQ(25)
	m := sphereModel(t, q, 5, 15)
	data := fittableDataset(t, m, q)

	run := func() *Result {
		coord, err := NewCoordinator(m, data, fittableSettings(4))
		require.NoError(t, err)
		res, err := coord.Run(context.Background())
		require.NoError(t, err)
		return res
	}

	a := run()
	b := run()
	require.Len(t, b.Repetitions, len(a.Repetitions))
	for i := range a.Repetitions {
		assert.Equal(t, a.Repetitions[i].Fit.ReducedChiSq, b.Repetitions[i].Fit.ReducedChiSq,
			"repetition %d must be reproducible under a fixed seed", i)
	}
	assert.Equal(t, a.Stats.WeightedMeanSize, b.Stats.WeightedMeanSize)
}

func TestCoordinatorNoConvergedRuns(t *testing.T) {
	q := testQ(20)
	m := sphereModel(t, q, 1, 50)
	data := unfittableDataset(q)

	settings := fittableSettings(3)
	settings.MaxIterations = 10
	settings.MaxRetries = intPtr(1)

	coord, err := NewCoordinator(m, data, settings)
	require.NoError(t, err)

	_, err = coord.Run(context.Background())
	var noRunsErr *NoConvergedRunsError
	require.ErrorAs(t, err, &noRunsErr)
	assert.Equal(t, 3, noRunsErr.Attempted)
}

func TestCoordinatorShowIncompleteIncludesFailedRuns(t *testing.T) {
	q := testQ(20)
	m := sphereModel(t, q, 1, 50)
	data := unfittableDataset(q)

	settings := fittableSettings(3)
	settings.MaxIterations = 10
	settings.MaxRetries = intPtr(1)
	settings.ShowIncomplete = true

	coord, err := NewCoordinator(m, data, settings)
	require.NoError(t, err)

	res, err := coord.Run(context.Background())
	require.NoError(t, err, "showIncomplete must suppress NoConvergedRunsError")
	assert.Equal(t, 0, res.Stats.NumConverged)
	assert.Equal(t, 3, res.Stats.NumIncluded)
	assert.True(t, res.Stats.IncludesIncomplete)
	for _, r := range res.Repetitions {
		assert.Equal(t, montecarlo.StateFailed, r.State)
	}
}

func TestCoordinatorCancellation(t *testing.T) {
	q := testQ(20)
	m := sphereModel(t, q, 1, 50)
	data := unfittableDataset(q)

	settings := fittableSettings(2)
	settings.MaxIterations = 1000000
	settings.MaxRetries = intPtr(0)
	settings.ShowIncomplete = true

	ctx, cancel := context.WithCancel(context.Background())
	coord, err := NewCoordinator(m, data, settings)
	require.NoError(t, err)
	coord.WithProgressReporter(func(rep, iter int, chiSq float64) {
		if iter >= 1000 {
			cancel()
		}
	})

	res, err := coord.Run(ctx)
	require.NoError(t, err)
	for _, r := range res.Repetitions {
		assert.Equal(t, montecarlo.StateCancelled, r.State)
		assert.NotNil(t, r.Population, "cancelled runs keep their partial population")
	}
}

func TestNewCoordinatorValidation(t *testing.T) {
	q := testQ(20)
	m := sphereModel(t, q, 5, 15)
	data := fittableDataset(t, m, q)

	_, err := NewCoordinator(m, data, nil)
	assert.Error(t, err)

	bad := fittableSettings(1)
	bad.NumContribs = 0
	_, err = NewCoordinator(m, data, bad)
	assert.Error(t, err)

	// degenerate dataset surfaces before any worker starts
	tiny := &models.Dataset{Q: q[:2], Intensity: []float64{1, 2}, Uncertainty: []float64{1, 1}}
	tinyModel := sphereModel(t, q[:2], 5, 15)
	settings := fittableSettings(1)
	settings.FindBackground = boolPtr(true)
	_, err = NewCoordinator(tinyModel, tiny, settings)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	s := summarize([]float64{2, 4, 6, 8})
	assert.InDelta(t, 5, s.Mean, 1e-12)
	assert.Greater(t, s.StdDev, 0.0)

	single := summarize([]float64{3})
	assert.Equal(t, 3.0, single.Mean)
	assert.Equal(t, 0.0, single.StdDev)

	empty := summarize(nil)
	assert.Equal(t, ScalarSummary{}, empty)
}
