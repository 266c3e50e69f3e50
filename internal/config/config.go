// Package config provides configuration management for DAF.
//
// Config file locations (priority order):
//  1. $DAF_CONFIG
//  2. ./daf.yaml
//  3. $XDG_CONFIG_HOME/daf/config.yaml
//  4. ~/.config/daf/config.yaml
//  5. /etc/daf/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidThreshold is returned for voting thresholds below one
	ErrInvalidThreshold = errors.New("invalid voting threshold")
	// ErrMissingSetting is returned when a required setting is absent
	ErrMissingSetting = errors.New("missing setting")
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path.
// Keys absent from the file keep their default values.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		DAF: DAFConfig{
			MinAnnotationCount:       1,
			MinAnnotatorsCount:       1,
			SrcIPField:               "src_ip",
			IPRanges:                 "ALL",
			Delimiter:                ",",
			Threads:                  true,
			DataExport:               true,
			ConflictMarksMultiDevice: true,
		},
	}
}

// applyDefaults fills in missing string values with defaults
func (c *Config) applyDefaults() {
	if c.DAF.SrcIPField == "" {
		c.DAF.SrcIPField = "src_ip"
	}
	if c.DAF.IPRanges == "" {
		c.DAF.IPRanges = "ALL"
	}
	if c.DAF.Delimiter == "" {
		c.DAF.Delimiter = ","
	}
}

// Validate checks the configuration before any processing starts
func (c *Config) Validate() error {
	if err := ValidateThresholds(c.DAF.MinAnnotationCount, c.DAF.MinAnnotatorsCount); err != nil {
		return err
	}
	if len([]rune(c.DAF.Delimiter)) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", c.DAF.Delimiter)
	}

	if c.DAF.KeepRuns < 0 {
		return fmt.Errorf("keep_runs must be >= 0, got %d", c.DAF.KeepRuns)
	}

	seen := make(map[string]bool)
	for i, a := range c.Annotators {
		if a.Name == "" {
			return fmt.Errorf("annotator #%d: %w: name", i+1, ErrMissingSetting)
		}
		if seen[a.Name] {
			return fmt.Errorf("annotator %s configured twice", a.Name)
		}
		seen[a.Name] = true
		if a.Timeout < 0 {
			return fmt.Errorf("annotator %s: negative timeout", a.Name)
		}
	}
	return nil
}

// ValidateThresholds checks the voting thresholds
func ValidateThresholds(minAnnotationCount, minAnnotatorsCount int) error {
	if minAnnotationCount < 1 {
		return fmt.Errorf("%w: min_annotation_count must be >= 1, got %d", ErrInvalidThreshold, minAnnotationCount)
	}
	if minAnnotatorsCount < 1 {
		return fmt.Errorf("%w: min_annotators_count must be >= 1, got %d", ErrInvalidThreshold, minAnnotatorsCount)
	}
	return nil
}

// EnabledAnnotators returns enabled annotator configs in declared order
func (c *Config) EnabledAnnotators() []AnnotatorConfig {
	var enabled []AnnotatorConfig
	for _, a := range c.Annotators {
		if a.Enabled {
			enabled = append(enabled, a)
		}
	}
	return enabled
}

// Annotator returns the config for a named annotator
func (c *Config) Annotator(name string) (AnnotatorConfig, bool) {
	for _, a := range c.Annotators {
		if a.Name == name {
			return a, true
		}
	}
	return AnnotatorConfig{}, false
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Mode: %s, min annotation count: %d, min annotators count: %d\n",
		c.DAF.ExecutionMode(), c.DAF.MinAnnotationCount, c.DAF.MinAnnotatorsCount)
	summary += fmt.Sprintf("Enabled annotators (%d):", len(c.EnabledAnnotators()))
	for _, a := range c.EnabledAnnotators() {
		summary += fmt.Sprintf(" %s", a.Name)
	}
	return summary
}
