package ensemble

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/BAMresearch/McSAS/internal/montecarlo"
)

// ScalarSummary aggregates one scalar quantity across repetitions
type ScalarSummary struct {
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	Skewness   float64 `json:"skewness"`
	ExKurtosis float64 `json:"ex_kurtosis"`
}

// Statistics summarizes the set of repetitions contributing to the
// ensemble. It is read-only once computed.
type Statistics struct {
	NumRuns            int  `json:"num_runs"`
	NumConverged       int  `json:"num_converged"`
	NumIncluded        int  `json:"num_included"`
	IncludesIncomplete bool `json:"includes_incomplete"`

	ReducedChiSq     ScalarSummary `json:"reduced_chi_sq"`
	Iterations       ScalarSummary `json:"iterations"`
	Scale            ScalarSummary `json:"scale"`
	Background       ScalarSummary `json:"background"`
	WeightedMeanSize ScalarSummary `json:"weighted_mean_size"`

	// Pointwise mean and standard deviation of the fitted model intensity
	// across the included repetitions, aligned with the measured q-sampling
	ModelIntensityMean []float64 `json:"model_intensity_mean"`
	ModelIntensityStd  []float64 `json:"model_intensity_std"`
}

func summarize(values []float64) ScalarSummary {
	if len(values) == 0 {
		return ScalarSummary{}
	}
	s := ScalarSummary{Mean: stat.Mean(values, nil)}
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
		s.Skewness = stat.Skew(values, nil)
		s.ExKurtosis = stat.ExKurtosis(values, nil)
		if math.IsNaN(s.Skewness) {
			s.Skewness = 0
		}
		if math.IsNaN(s.ExKurtosis) {
			s.ExKurtosis = 0
		}
	}
	return s
}

// computeStatistics aggregates the included repetitions. The included set
// is the converged runs, or every run when showIncomplete permits.
func computeStatistics(all, included []*montecarlo.RunResult, numConverged int, includesIncomplete bool) *Statistics {
	stats := &Statistics{
		NumRuns:            len(all),
		NumConverged:       numConverged,
		NumIncluded:        len(included),
		IncludesIncomplete: includesIncomplete,
	}
	if len(included) == 0 {
		return stats
	}

	chiSq := make([]float64, len(included))
	iters := make([]float64, len(included))
	scales := make([]float64, len(included))
	backgrounds := make([]float64, len(included))
	meanSizes := make([]float64, len(included))
	for i, r := range included {
		chiSq[i] = r.Fit.ReducedChiSq
		iters[i] = float64(r.TotalIterations)
		scales[i] = r.Fit.Scale
		backgrounds[i] = r.Fit.Background
		meanSizes[i] = r.Population.WeightedMeanParam(0)
	}
	stats.ReducedChiSq = summarize(chiSq)
	stats.Iterations = summarize(iters)
	stats.Scale = summarize(scales)
	stats.Background = summarize(backgrounds)
	stats.WeightedMeanSize = summarize(meanSizes)

	numQ := len(included[0].ModelIntensity)
	stats.ModelIntensityMean = make([]float64, numQ)
	stats.ModelIntensityStd = make([]float64, numQ)
	point := make([]float64, len(included))
	for j := 0; j < numQ; j++ {
		for i, r := range included {
			point[i] = r.ModelIntensity[j]
		}
		stats.ModelIntensityMean[j] = stat.Mean(point, nil)
		if len(point) > 1 {
			stats.ModelIntensityStd[j] = stat.StdDev(point, nil)
		}
	}
	return stats
}
