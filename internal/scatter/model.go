package scatter

import (
	"fmt"
	"math"

	"github.com/BAMresearch/McSAS/pkg/utils"
)

// Model binds a form factor to the measurement's q-sampling, the configured
// parameter bounds and the compensation exponent. It is immutable after
// construction and safe for concurrent use across optimization runs.
type Model struct {
	ff     FormFactor
	bounds []ParamRange
	q      []float64
	comp   float64
}

// NewModel creates a model over the given q-sampling. The bounds slice must
// match the form factor's parameter count.
func NewModel(ff FormFactor, bounds []ParamRange, q []float64, compensationExponent float64) (*Model, error) {
	if ff == nil {
		return nil, fmt.Errorf("form factor is required")
	}
	if len(bounds) != ff.NumParams() {
		return nil, fmt.Errorf("model %s requires %d parameter bounds, got %d",
			ff.Name(), ff.NumParams(), len(bounds))
	}
	if len(q) == 0 {
		return nil, fmt.Errorf("q-sampling is required")
	}
	return &Model{
		ff:     ff,
		bounds: bounds,
		q:      q,
		comp:   compensationExponent,
	}, nil
}

// FormFactor returns the underlying form factor
func (m *Model) FormFactor() FormFactor {
	return m.ff
}

// NumQ returns the number of q samples
func (m *Model) NumQ() int {
	return len(m.q)
}

// Bounds returns the declared parameter ranges
func (m *Model) Bounds() []ParamRange {
	return m.bounds
}

// Check validates a parameter vector against the declared ranges
func (m *Model) Check(params []float64) error {
	if len(params) != len(m.bounds) {
		return fmt.Errorf("expected %d parameters, got %d", len(m.bounds), len(params))
	}
	for i, v := range params {
		if !m.bounds[i].Contains(v) {
			return &InvalidParameterError{Index: i, Value: v, Range: m.bounds[i]}
		}
	}
	return nil
}

// Draw samples a fresh parameter vector from the bounded parameter space
func (m *Model) Draw(rng *utils.RandSource) []float64 {
	params := make([]float64, len(m.bounds))
	for i, b := range m.bounds {
		if b.LogSample {
			params[i] = rng.LogUniformFloat64(b.Min, b.Max)
		} else {
			params[i] = rng.UniformFloat64(b.Min, b.Max)
		}
	}
	return params
}

// MinimumSeed returns the parameter vector used by the deprecated
// start-from-minimum initializer: every parameter at its lower bound, with
// half the smallest resolvable size substituted for a zero bound.
func (m *Model) MinimumSeed() []float64 {
	qMax := m.q[0]
	for _, q := range m.q[1:] {
		if q > qMax {
			qMax = q
		}
	}
	params := make([]float64, len(m.bounds))
	for i, b := range m.bounds {
		mb := b.Min
		if mb == 0 {
			// a zero lower bound is not a usable size; seed at half the
			// smallest resolvable scale instead
			mb = math.Pi / qMax * 0.5
		}
		params[i] = mb
	}
	return params
}

// Weight returns volume^compensationExponent for the given parameters
func (m *Model) Weight(params []float64) float64 {
	return math.Pow(m.ff.Volume(params), m.comp)
}

// Curve evaluates the weighted intensity contribution over the q-sampling
func (m *Model) Curve(params []float64) []float64 {
	w := m.Weight(params)
	curve := make([]float64, len(m.q))
	for i, q := range m.q {
		curve[i] = w * m.ff.Intensity(q, params)
	}
	return curve
}
