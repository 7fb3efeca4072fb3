package config

import "math"

// ParamInfo describes one settings parameter for collaborators (UI, export).
// The optimization core itself reads only the typed values in Settings.
type ParamInfo struct {
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
	Description string     `json:"description"`
	ValueRange  [2]float64 `json:"value_range"`
	Default     float64    `json:"default"`
	UnitClass   string     `json:"unit_class,omitempty"`
	DisplayUnit string     `json:"display_unit,omitempty"`
	IsActive    bool       `json:"is_active"`
}

// ParameterInfos enumerates the settings schema consumed by the core
func ParameterInfos() []ParamInfo {
	return []ParamInfo{
		{
			Name:        "num_contribs",
			DisplayName: "Number of contributions",
			Description: "Number of scatterer contributions in the fitted population",
			ValueRange:  [2]float64{1, 1e6},
			Default:     200,
			IsActive:    true,
		},
		{
			Name:        "num_reps",
			DisplayName: "Repetitions",
			Description: "Number of independent Monte Carlo repetitions used for uncertainty estimation",
			ValueRange:  [2]float64{1, 1e4},
			Default:     100,
			IsActive:    true,
		},
		{
			Name:        "max_iterations",
			DisplayName: "Maximum iterations",
			Description: "Proposal budget of a single repetition before it is declared exhausted",
			ValueRange:  [2]float64{1, 1e9},
			Default:     1e5,
			IsActive:    true,
		},
		{
			Name:        "max_retries",
			DisplayName: "Maximum retries",
			Description: "Restarts with a fresh population after an exhausted attempt",
			ValueRange:  [2]float64{0, 1e3},
			Default:     5,
			IsActive:    true,
		},
		{
			Name:        "compensation_exponent",
			DisplayName: "Compensation exponent",
			Description: "Exponent applied to a contribution volume when weighting its intensity; 2/3 approximates volume weighting, 0 number weighting, 1 volume-squared weighting",
			ValueRange:  [2]float64{0, 1},
			Default:     2.0 / 3.0,
			IsActive:    true,
		},
		{
			Name:        "convergence_criterion",
			DisplayName: "Convergence criterion",
			Description: "Reduced chi-squared value at or below which a repetition converged",
			ValueRange:  [2]float64{math.SmallestNonzeroFloat64, 1e9},
			Default:     1.0,
			IsActive:    true,
		},
		{
			Name:        "find_background",
			DisplayName: "Fit background",
			Description: "Fit a flat background level alongside the overall scale",
			ValueRange:  [2]float64{0, 1},
			Default:     1,
			IsActive:    true,
		},
		{
			Name:        "positive_background",
			DisplayName: "Positive background",
			Description: "Constrain the fitted background to be non-negative",
			ValueRange:  [2]float64{0, 1},
			Default:     0,
			IsActive:    true,
		},
		{
			Name:        "start_from_minimum",
			DisplayName: "Start from minimum",
			Description: "Deprecated: seed all contributions at the lower parameter bound instead of a uniform random draw",
			ValueRange:  [2]float64{0, 1},
			Default:     0,
			IsActive:    false,
		},
		{
			Name:        "show_incomplete",
			DisplayName: "Show incomplete",
			Description: "Include exhausted, failed and cancelled repetitions in the reported statistics, flagged",
			ValueRange:  [2]float64{0, 1},
			Default:     0,
			IsActive:    true,
		},
	}
}
