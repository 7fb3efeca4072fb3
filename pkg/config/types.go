package config

// Config represents the main daemon configuration
type Config struct {
	LogLevel string    `yaml:"log_level"`
	Listen   string    `yaml:"listen,omitempty"`
	Store    *Store    `yaml:"store,omitempty"`
	Defaults *Settings `yaml:"defaults,omitempty"`
}

// Store represents the result store configuration
type Store struct {
	Backend string `yaml:"backend"` // memory or sqlite
	Path    string `yaml:"path,omitempty"`
}

// Settings holds the numeric and boolean parameters consumed by the
// optimization core. Absent fields are replaced by defaults at parse time.
// MaxRetries and CompensationExponent are pointers because zero is a
// meaningful value for both: nil means unset, &0 means no retries or
// number weighting.
type Settings struct {
	NumContribs          int      `yaml:"num_contribs" json:"num_contribs"`
	NumReps              int      `yaml:"num_reps" json:"num_reps"`
	MaxIterations        int      `yaml:"max_iterations" json:"max_iterations"`
	MaxRetries           *int     `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	CompensationExponent *float64 `yaml:"compensation_exponent,omitempty" json:"compensation_exponent,omitempty"`
	ConvergenceCriterion float64  `yaml:"convergence_criterion" json:"convergence_criterion"`
	// FindBackground defaults to true; nil means unset
	FindBackground     *bool `yaml:"find_background,omitempty" json:"find_background,omitempty"`
	PositiveBackground bool  `yaml:"positive_background" json:"positive_background"`
	StartFromMinimum   bool  `yaml:"start_from_minimum" json:"start_from_minimum"`
	ShowIncomplete     bool  `yaml:"show_incomplete" json:"show_incomplete"`
	Seed               int64 `yaml:"seed,omitempty" json:"seed,omitempty"`
	Workers            int   `yaml:"workers,omitempty" json:"workers,omitempty"`
	Model              *Model `yaml:"model,omitempty" json:"model,omitempty"`
}

// Model selects the form factor and its parameter bounds
type Model struct {
	Name string `yaml:"name" json:"name"` // currently "sphere"
	// Bounds holds [min, max] pairs per model parameter. Empty bounds are
	// derived from the measured q-range at run time.
	Bounds [][2]float64 `yaml:"bounds,omitempty" json:"bounds,omitempty"`
	// LogSampling draws candidate sizes uniformly in log space
	LogSampling bool `yaml:"log_sampling,omitempty" json:"log_sampling,omitempty"`
}

const (
	defaultMaxRetries           = 5
	defaultCompensationExponent = 2.0 / 3.0
)

// FindBackgroundEnabled reports whether the flat background is fitted.
// Unset defaults to true.
func (s *Settings) FindBackgroundEnabled() bool {
	if s.FindBackground == nil {
		return true
	}
	return *s.FindBackground
}

// MaxRetryBudget returns the retry count, defaulting when unset.
func (s *Settings) MaxRetryBudget() int {
	if s.MaxRetries == nil {
		return defaultMaxRetries
	}
	return *s.MaxRetries
}

// Compensation returns the volume compensation exponent, defaulting when
// unset. Zero selects number weighting.
func (s *Settings) Compensation() float64 {
	if s.CompensationExponent == nil {
		return defaultCompensationExponent
	}
	return *s.CompensationExponent
}

// DefaultSettings returns the settings used when a fit request omits them
func DefaultSettings() *Settings {
	retries := defaultMaxRetries
	exponent := defaultCompensationExponent
	return &Settings{
		NumContribs:          200,
		NumReps:              100,
		MaxIterations:        100000,
		MaxRetries:           &retries,
		CompensationExponent: &exponent,
		ConvergenceCriterion: 1.0,
	}
}

// ApplyDefaults fills absent fields from DefaultSettings. An explicit
// zero for max_retries or compensation_exponent is preserved.
func (s *Settings) ApplyDefaults() {
	d := DefaultSettings()
	if s.NumContribs == 0 {
		s.NumContribs = d.NumContribs
	}
	if s.NumReps == 0 {
		s.NumReps = d.NumReps
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = d.MaxIterations
	}
	if s.MaxRetries == nil {
		s.MaxRetries = d.MaxRetries
	}
	if s.CompensationExponent == nil {
		s.CompensationExponent = d.CompensationExponent
	}
	if s.ConvergenceCriterion == 0 {
		s.ConvergenceCriterion = d.ConvergenceCriterion
	}
}
