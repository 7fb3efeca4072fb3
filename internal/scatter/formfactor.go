package scatter

import (
	"fmt"
	"math"
)

// FormFactor is the pluggable scattering capability of a particle shape.
// Implementations must be pure: the same (q, params) pair always yields the
// same value, with no side effects.
type FormFactor interface {
	// Name returns the model's registry name
	Name() string
	// NumParams returns the length of the parameter vector
	NumParams() int
	// Intensity returns the scattering intensity at q for the given
	// parameter vector
	Intensity(q float64, params []float64) float64
	// Volume returns the particle volume for the given parameter vector
	Volume(params []float64) float64
}

// ParamRange bounds one model parameter. LogSample selects log-uniform
// candidate draws, favouring smaller sizes.
type ParamRange struct {
	Min       float64
	Max       float64
	LogSample bool
}

// Contains reports whether v lies within the closed range
func (r ParamRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// NewFormFactor creates a form factor from a registry name
func NewFormFactor(name string) (FormFactor, error) {
	switch name {
	case "", "sphere":
		return &Sphere{}, nil
	default:
		return nil, &UnknownModelError{Name: name}
	}
}

// DefaultBounds derives parameter bounds from the measured q-range when the
// configuration does not provide them: sizes between pi/qMax and pi/qMin are
// the scales the measurement can resolve.
func DefaultBounds(ff FormFactor, qMin, qMax float64) []ParamRange {
	bounds := make([]ParamRange, ff.NumParams())
	for i := range bounds {
		bounds[i] = ParamRange{Min: math.Pi / qMax, Max: math.Pi / qMin}
	}
	return bounds
}

// UnknownModelError indicates an unregistered form factor name
type UnknownModelError struct {
	Name string
}

func (e *UnknownModelError) Error() string {
	return "unknown form factor model: " + e.Name
}

// InvalidParameterError indicates a parameter outside its declared range
type InvalidParameterError struct {
	Index int
	Value float64
	Range ParamRange
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("parameter %d value %g outside range [%g, %g]",
		e.Index, e.Value, e.Range.Min, e.Range.Max)
}
