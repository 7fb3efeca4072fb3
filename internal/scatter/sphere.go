package scatter

import "math"

// Sphere is the Rayleigh form factor of a homogeneous sphere with a single
// radius parameter. It is the built-in reference model; other shapes plug in
// through the FormFactor interface.
type Sphere struct{}

func (s *Sphere) Name() string {
	return "sphere"
}

func (s *Sphere) NumParams() int {
	return 1
}

// Intensity returns the squared Rayleigh amplitude
// (3(sin(qr) - qr cos(qr)) / (qr)^3)^2, with the q->0 limit of 1.
func (s *Sphere) Intensity(q float64, params []float64) float64 {
	qr := q * params[0]
	if qr == 0 {
		return 1
	}
	f := 3 * (math.Sin(qr) - qr*math.Cos(qr)) / (qr * qr * qr)
	return f * f
}

// Volume returns 4/3 pi r^3
func (s *Sphere) Volume(params []float64) float64 {
	r := params[0]
	return (4.0 / 3.0) * math.Pi * r * r * r
}
