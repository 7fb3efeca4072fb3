package scatter

// Contribution is one hypothetical scatterer in the fitted population: a
// parameter vector plus a lazily computed, cached weighted intensity curve.
// The cache is dropped whenever the parameters change.
type Contribution struct {
	params []float64
	curve  []float64
}

// NewContribution creates a contribution after validating the parameters
// against the model's declared ranges
func NewContribution(m *Model, params []float64) (*Contribution, error) {
	if err := m.Check(params); err != nil {
		return nil, err
	}
	c := &Contribution{params: make([]float64, len(params))}
	copy(c.params, params)
	return c, nil
}

// Params returns the parameter vector. Callers must not mutate it; use
// SetParams instead so the cached curve is invalidated.
func (c *Contribution) Params() []float64 {
	return c.params
}

// SetParams replaces the parameter vector and drops the cached curve
func (c *Contribution) SetParams(m *Model, params []float64) error {
	if err := m.Check(params); err != nil {
		return err
	}
	c.params = make([]float64, len(params))
	copy(c.params, params)
	c.curve = nil
	return nil
}

// Curve returns the weighted intensity curve over the model's q-sampling,
// computing and caching it on first use
func (c *Contribution) Curve(m *Model) []float64 {
	if c.curve == nil {
		c.curve = m.Curve(c.params)
	}
	return c.curve
}

// Weight returns the contribution's compensated volume weight
func (c *Contribution) Weight(m *Model) float64 {
	return m.Weight(c.params)
}
