// Package fit computes the reduced chi-squared goodness of fit between a
// modeled intensity curve and measured data, with a nested sub-fit of the
// overall scale and optional flat background. All functions are pure.
package fit

import "fmt"

// Options selects which scalars are fitted alongside the model
type Options struct {
	// FindBackground fits a flat background level in addition to the scale
	FindBackground bool
	// PositiveBackground constrains the fitted background to be
	// non-negative
	PositiveBackground bool
}

// Result is the outcome of one evaluation: the fitted scalars and the
// reduced chi-squared at those values
type Result struct {
	Scale        float64
	Background   float64
	ReducedChiSq float64
}

// FreeParams returns the number of fitted scalars: the scale, plus the
// background when enabled
func (o Options) FreeParams() int {
	if o.FindBackground {
		return 2
	}
	return 1
}

// DegreesOfFreedom returns the chi-squared normalization for n samples.
// The count of free scalars is fixed by the options; an active positivity
// constraint does not change it.
func DegreesOfFreedom(n int, opts Options) int {
	return n - opts.FreeParams()
}

// ReducedChiSquared computes sum(((scale*model + background - measured) /
// sigma)^2) / dof for fixed scalars
func ReducedChiSquared(model, measured, sigma []float64, scale, background float64, dof int) float64 {
	var sum float64
	for i := range measured {
		r := (scale*model[i] + background - measured[i]) / sigma[i]
		sum += r * r
	}
	return sum / float64(dof)
}

// Evaluate fits the scale (and background, per options) that minimize the
// reduced chi-squared of the model against the measured data. It is
// stateless: evaluating the same inputs twice yields the same result.
func Evaluate(model, measured, sigma []float64, opts Options) (Result, error) {
	n := len(measured)
	if len(model) != n || len(sigma) != n {
		return Result{}, fmt.Errorf("curve lengths are not aligned: model=%d measured=%d sigma=%d",
			len(model), n, len(sigma))
	}
	dof := DegreesOfFreedom(n, opts)
	if dof <= 0 {
		return Result{}, &DegenerateFitError{Samples: n, FreeParams: opts.FreeParams()}
	}

	scale, background := fitScaleAndBackground(model, measured, sigma, opts)
	return Result{
		Scale:        scale,
		Background:   background,
		ReducedChiSq: ReducedChiSquared(model, measured, sigma, scale, background, dof),
	}, nil
}

// DegenerateFitError indicates fewer data points than free fit scalars
type DegenerateFitError struct {
	Samples    int
	FreeParams int
}

func (e *DegenerateFitError) Error() string {
	return fmt.Sprintf("degenerate fit: %d samples cannot constrain %d free scalars",
		e.Samples, e.FreeParams)
}
