package fit

import (
	"gonum.org/v1/gonum/optimize"

	"github.com/BAMresearch/McSAS/pkg/utils"
)

// fitScaleAndBackground minimizes the weighted residual sum over the scale
// and, when enabled, the flat background, using a Nelder-Mead simplex. The
// initial guess is the ratio of curve maxima for the scale and the measured
// minimum for the background.
func fitScaleAndBackground(model, measured, sigma []float64, opts Options) (scale, background float64) {
	scale = 1.0
	if maxModel := utils.MaxSlice(model); maxModel > 0 {
		scale = utils.MaxSlice(measured) / maxModel
	}
	if !opts.FindBackground {
		return minimizeScaleOnly(model, measured, sigma, scale), 0
	}

	background = utils.MinSlice(measured)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return residualSum(model, measured, sigma, x[0], x[1])
		},
	}
	result, err := optimize.Minimize(problem, []float64{scale, background}, nil, &optimize.NelderMead{})
	if err == nil {
		scale, background = result.X[0], result.X[1]
	}

	if opts.PositiveBackground && background < 0 {
		// the unconstrained optimum lies outside the feasible region, so
		// the constrained optimum sits on the boundary: refit scale only
		return minimizeScaleOnly(model, measured, sigma, scale), 0
	}
	return scale, background
}

// minimizeScaleOnly fits the scale with the background pinned at zero
func minimizeScaleOnly(model, measured, sigma []float64, guess float64) float64 {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return residualSum(model, measured, sigma, x[0], 0)
		},
	}
	result, err := optimize.Minimize(problem, []float64{guess}, nil, &optimize.NelderMead{})
	if err != nil {
		return guess
	}
	return result.X[0]
}

// residualSum is the unnormalized chi-squared minimized by the sub-fit
func residualSum(model, measured, sigma []float64, scale, background float64) float64 {
	var sum float64
	for i := range measured {
		r := (scale*model[i] + background - measured[i]) / sigma[i]
		sum += r * r
	}
	return sum
}
