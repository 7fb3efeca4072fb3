package config

import (
	"fmt"
	"os"
)

// LoadConfig loads and parses a daemon configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadSettings loads and parses a settings file
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}
	s, err := ParseSettingsYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	return s, nil
}

// validateConfig performs validation on the daemon configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	switch cfg.Store.Backend {
	case "memory":
	case "sqlite":
		if cfg.Store.Path == "" {
			return fmt.Errorf("store backend sqlite requires a path")
		}
	default:
		return fmt.Errorf("invalid store backend: %s (must be memory or sqlite)", cfg.Store.Backend)
	}

	if cfg.Defaults != nil {
		if err := ValidateSettings(cfg.Defaults); err != nil {
			return fmt.Errorf("defaults validation failed: %w", err)
		}
	}
	return nil
}

// ValidateSettings checks the optimization settings against the declared
// parameter ranges
func ValidateSettings(s *Settings) error {
	if s.NumContribs < 1 {
		return fmt.Errorf("num_contribs must be at least 1, got %d", s.NumContribs)
	}
	if s.NumReps < 1 {
		return fmt.Errorf("num_reps must be at least 1, got %d", s.NumReps)
	}
	if s.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", s.MaxIterations)
	}
	if s.MaxRetries != nil && *s.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", *s.MaxRetries)
	}
	if s.CompensationExponent != nil && (*s.CompensationExponent < 0 || *s.CompensationExponent > 1) {
		return fmt.Errorf("compensation_exponent must be between 0 and 1, got %f", *s.CompensationExponent)
	}
	if s.ConvergenceCriterion <= 0 {
		return fmt.Errorf("convergence_criterion must be positive, got %f", s.ConvergenceCriterion)
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers cannot be negative, got %d", s.Workers)
	}
	if s.Model != nil {
		if err := validateModel(s.Model); err != nil {
			return fmt.Errorf("model validation failed: %w", err)
		}
	}
	return nil
}

// validateModel validates the form factor selection
func validateModel(m *Model) error {
	if m.Name == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	for i, b := range m.Bounds {
		if b[0] > b[1] {
			return fmt.Errorf("bounds %d: min %f exceeds max %f", i, b[0], b[1])
		}
		if m.LogSampling && b[0] <= 0 {
			return fmt.Errorf("bounds %d: log sampling requires a positive lower bound, got %f", i, b[0])
		}
	}
	return nil
}
