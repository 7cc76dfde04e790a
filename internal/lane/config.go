package lane

import (
	"fmt"

	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/config"
)

// SearchConfig holds the tuning parameters of a tracking session. It is
// fixed when the tracker is constructed.
type SearchConfig struct {
	NWindows     int     // Horizontal bands for the sliding-window search
	Margin       int     // Half-width in pixels of windows and fit bands
	MinPix       int     // Pixels a window needs (exclusive) to recenter
	Filter       float64 // Max |x - trend| in pixels before a pixel is rejected
	SmoothFactor int     // Pixel history capacity per lane
}

// DefaultSearchConfig returns default search configuration.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		NWindows:     config.DefaultNWindows,
		Margin:       config.DefaultMargin,
		MinPix:       config.DefaultMinPix,
		Filter:       config.DefaultFilter,
		SmoothFactor: config.DefaultSmoothFactor,
	}
}

// SearchConfigFromTuning derives search config from a TuningConfig.
// A nil TuningConfig yields the defaults.
func SearchConfigFromTuning(tc *config.TuningConfig) SearchConfig {
	if tc == nil {
		return DefaultSearchConfig()
	}
	return SearchConfig{
		NWindows:     tc.GetNWindows(),
		Margin:       tc.GetMargin(),
		MinPix:       tc.GetMinPix(),
		Filter:       tc.GetFilter(),
		SmoothFactor: tc.GetSmoothFactor(),
	}
}

// Validate checks that the configuration can drive a search.
func (c SearchConfig) Validate() error {
	if c.NWindows < 1 {
		return fmt.Errorf("nwindows must be at least 1, got %d", c.NWindows)
	}
	if c.Margin < 1 {
		return fmt.Errorf("margin must be positive, got %d", c.Margin)
	}
	if c.MinPix < 0 {
		return fmt.Errorf("minpix must be non-negative, got %d", c.MinPix)
	}
	if c.Filter <= 0 {
		return fmt.Errorf("filter must be positive, got %f", c.Filter)
	}
	if c.SmoothFactor < 3 {
		return fmt.Errorf("smooth_factor must be at least 3, got %d", c.SmoothFactor)
	}
	return nil
}
