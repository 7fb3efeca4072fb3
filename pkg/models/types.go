package models

import "fmt"

// Dataset holds a measured small-angle scattering curve: one intensity and
// one uncertainty per scattering vector sample. The three slices are aligned
// by index; the q values are not required to be sorted.
type Dataset struct {
	Q           []float64 `json:"q"`
	Intensity   []float64 `json:"intensity"`
	Uncertainty []float64 `json:"uncertainty"`
}

// Len returns the number of scattering vector samples
func (d *Dataset) Len() int {
	return len(d.Q)
}

// Validate checks alignment and the strictly-positive uncertainty contract
func (d *Dataset) Validate() error {
	if d == nil || len(d.Q) == 0 {
		return fmt.Errorf("dataset is empty")
	}
	if len(d.Intensity) != len(d.Q) || len(d.Uncertainty) != len(d.Q) {
		return fmt.Errorf("dataset slices are not aligned: q=%d intensity=%d uncertainty=%d",
			len(d.Q), len(d.Intensity), len(d.Uncertainty))
	}
	for i, u := range d.Uncertainty {
		if u <= 0 {
			return fmt.Errorf("uncertainty at sample %d must be strictly positive, got %g", i, u)
		}
	}
	for i, q := range d.Q {
		if q <= 0 {
			return fmt.Errorf("scattering vector at sample %d must be positive, got %g", i, q)
		}
	}
	return nil
}

// QRange returns the minimum and maximum scattering vector values
func (d *Dataset) QRange() (min, max float64) {
	min, max = d.Q[0], d.Q[0]
	for _, q := range d.Q[1:] {
		if q < min {
			min = q
		}
		if q > max {
			max = q
		}
	}
	return min, max
}
