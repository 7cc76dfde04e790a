package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// Built-in fallbacks used by the Get* accessors when a field is omitted.
const (
	DefaultNWindows               = 9
	DefaultMargin                 = 100
	DefaultMinPix                 = 50
	DefaultFilter                 = 100.0
	DefaultSmoothFactor           = 15000
	DefaultMaxConsecutiveFailures = 25
)

// TuningConfig represents the root configuration for lane search tuning.
// All fields are optional; nil fields fall back to the built-in defaults.
type TuningConfig struct {
	// Sliding-window search params
	NWindows *int `json:"nwindows,omitempty"`
	Margin   *int `json:"margin,omitempty"` // half-width in pixels
	MinPix   *int `json:"minpix,omitempty"`

	// Outlier filter and smoothing params
	Filter       *float64 `json:"filter,omitempty"`        // max |x - trend| in pixels
	SmoothFactor *int     `json:"smooth_factor,omitempty"` // pixel history capacity per lane

	// Session policy (consumed by the CLI, not the tracker)
	MaxConsecutiveFailures *int `json:"max_consecutive_failures,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		NWindows:               ptrInt(DefaultNWindows),
		Margin:                 ptrInt(DefaultMargin),
		MinPix:                 ptrInt(DefaultMinPix),
		Filter:                 ptrFloat64(DefaultFilter),
		SmoothFactor:           ptrInt(DefaultSmoothFactor),
		MaxConsecutiveFailures: ptrInt(DefaultMaxConsecutiveFailures),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/lane/frames/
		"../../../../" + DefaultConfigPath, // from internal/lane/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.NWindows != nil && *c.NWindows < 1 {
		return fmt.Errorf("nwindows must be at least 1, got %d", *c.NWindows)
	}
	if c.Margin != nil && *c.Margin < 1 {
		return fmt.Errorf("margin must be positive, got %d", *c.Margin)
	}
	if c.MinPix != nil && *c.MinPix < 0 {
		return fmt.Errorf("minpix must be non-negative, got %d", *c.MinPix)
	}
	if c.Filter != nil && *c.Filter <= 0 {
		return fmt.Errorf("filter must be positive, got %f", *c.Filter)
	}
	// A quadratic needs three samples, so a smaller history can never fit.
	if c.SmoothFactor != nil && *c.SmoothFactor < 3 {
		return fmt.Errorf("smooth_factor must be at least 3, got %d", *c.SmoothFactor)
	}
	if c.MaxConsecutiveFailures != nil && *c.MaxConsecutiveFailures < 0 {
		return fmt.Errorf("max_consecutive_failures must be non-negative, got %d", *c.MaxConsecutiveFailures)
	}
	return nil
}

// GetNWindows returns the nwindows value or the default.
func (c *TuningConfig) GetNWindows() int {
	if c.NWindows == nil {
		return DefaultNWindows
	}
	return *c.NWindows
}

// GetMargin returns the margin value or the default.
func (c *TuningConfig) GetMargin() int {
	if c.Margin == nil {
		return DefaultMargin
	}
	return *c.Margin
}

// GetMinPix returns the minpix value or the default.
func (c *TuningConfig) GetMinPix() int {
	if c.MinPix == nil {
		return DefaultMinPix
	}
	return *c.MinPix
}

// GetFilter returns the filter value or the default.
func (c *TuningConfig) GetFilter() float64 {
	if c.Filter == nil {
		return DefaultFilter
	}
	return *c.Filter
}

// GetSmoothFactor returns the smooth_factor value or the default.
func (c *TuningConfig) GetSmoothFactor() int {
	if c.SmoothFactor == nil {
		return DefaultSmoothFactor
	}
	return *c.SmoothFactor
}

// GetMaxConsecutiveFailures returns the max_consecutive_failures value or the default.
// Zero means never abort.
func (c *TuningConfig) GetMaxConsecutiveFailures() int {
	if c.MaxConsecutiveFailures == nil {
		return DefaultMaxConsecutiveFailures
	}
	return *c.MaxConsecutiveFailures
}
