// Package population holds the ordered set of scatterer contributions
// evolved by one Monte Carlo run and its aggregate modeled intensity.
package population

import (
	"fmt"

	"github.com/BAMresearch/McSAS/internal/scatter"
	"github.com/BAMresearch/McSAS/pkg/utils"
)

// InitStrategy selects how the initial population is drawn
type InitStrategy int

const (
	// InitRandom draws every contribution uniformly from the bounded
	// parameter space (default)
	InitRandom InitStrategy = iota
	// InitMinimumSeeded seeds every contribution at the lower parameter
	// bound. Deprecated behaviour kept for backward compatibility.
	InitMinimumSeeded
)

// Population is the sole mutable state of an optimization run: an ordered
// collection of contributions owned exclusively by the run. The aggregate
// intensity is cached and maintained incrementally across replacements.
type Population struct {
	model     *scatter.Model
	members   []*scatter.Contribution
	aggregate []float64
}

// New creates a population with the given initialization strategy
func New(m *scatter.Model, n int, strategy InitStrategy, rng *utils.RandSource) (*Population, error) {
	if n < 1 {
		return nil, fmt.Errorf("population size must be at least 1, got %d", n)
	}
	p := &Population{
		model:   m,
		members: make([]*scatter.Contribution, 0, n),
	}
	for i := 0; i < n; i++ {
		var params []float64
		switch strategy {
		case InitMinimumSeeded:
			params = m.MinimumSeed()
		default:
			params = m.Draw(rng)
		}
		c, err := scatter.NewContribution(m, params)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize contribution %d: %w", i, err)
		}
		p.members = append(p.members, c)
	}
	return p, nil
}

// Size returns the number of member contributions
func (p *Population) Size() int {
	return len(p.members)
}

// Member returns the i-th contribution
func (p *Population) Member(i int) *scatter.Contribution {
	return p.members[i]
}

// Model returns the scattering model the population is evaluated against
func (p *Population) Model() *scatter.Model {
	return p.model
}

// AggregateIntensity returns the weighted sum of all member intensity
// curves. The result is cached; structural mutations invalidate or
// incrementally update it. Callers must not mutate the returned slice.
func (p *Population) AggregateIntensity() []float64 {
	if p.aggregate == nil {
		agg := make([]float64, p.model.NumQ())
		for _, c := range p.members {
			curve := c.Curve(p.model)
			for i, v := range curve {
				agg[i] += v
			}
		}
		p.aggregate = agg
	}
	return p.aggregate
}

// AddContribution appends a contribution and invalidates the aggregate
func (p *Population) AddContribution(c *scatter.Contribution) {
	p.members = append(p.members, c)
	p.aggregate = nil
}

// RemoveContribution removes the i-th contribution and invalidates the
// aggregate
func (p *Population) RemoveContribution(i int) error {
	if i < 0 || i >= len(p.members) {
		return fmt.Errorf("contribution index %d out of range [0, %d)", i, len(p.members))
	}
	if len(p.members) == 1 {
		return fmt.Errorf("population must keep at least one contribution")
	}
	p.members = append(p.members[:i], p.members[i+1:]...)
	p.aggregate = nil
	return nil
}

// ReplaceContribution swaps the i-th contribution for c. When the aggregate
// is already cached it is updated in place by subtracting the old curve and
// adding the new one, which keeps a replace move O(len(q)) instead of
// O(members * len(q)).
func (p *Population) ReplaceContribution(i int, c *scatter.Contribution) error {
	if i < 0 || i >= len(p.members) {
		return fmt.Errorf("contribution index %d out of range [0, %d)", i, len(p.members))
	}
	if p.aggregate != nil {
		old := p.members[i].Curve(p.model)
		next := c.Curve(p.model)
		for j := range p.aggregate {
			p.aggregate[j] += next[j] - old[j]
		}
	}
	p.members[i] = c
	return nil
}

// Weights returns the compensated volume weight of every member
func (p *Population) Weights() []float64 {
	weights := make([]float64, len(p.members))
	for i, c := range p.members {
		weights[i] = c.Weight(p.model)
	}
	return weights
}

// WeightedMeanParam returns the weight-averaged value of the idx-th model
// parameter across the population, e.g. the volume-weighted mean radius for
// the sphere model
func (p *Population) WeightedMeanParam(idx int) float64 {
	var num, den float64
	for _, c := range p.members {
		w := c.Weight(p.model)
		num += w * c.Params()[idx]
		den += w
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// ParamMatrix returns a copy of every member's parameter vector, in order
func (p *Population) ParamMatrix() [][]float64 {
	out := make([][]float64, len(p.members))
	for i, c := range p.members {
		params := make([]float64, len(c.Params()))
		copy(params, c.Params())
		out[i] = params
	}
	return out
}
