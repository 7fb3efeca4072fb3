package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseConfigYAML parses daemon configuration from YAML data
func ParseConfigYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.Store == nil {
		cfg.Store = &Store{Backend: "memory"}
	}
	if cfg.Defaults == nil {
		cfg.Defaults = DefaultSettings()
	} else {
		cfg.Defaults.ApplyDefaults()
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseSettingsYAML parses optimization settings from YAML data
func ParseSettingsYAML(data []byte) (*Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	s.ApplyDefaults()
	if err := ValidateSettings(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
