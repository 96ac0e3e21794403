package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the root configuration for recognizer tuning. The schema
// matches the /api/config endpoint so the same JSON serves both startup
// configuration and inspection. All fields are pointers: omitted keys fall
// back to the documented defaults via the Get* accessors, so partial
// configs are safe.
type TuningConfig struct {
	// Gesture detection params
	DarknessThreshold   *float64 `json:"darkness_threshold,omitempty"`
	DebounceFloor       *string  `json:"debounce_floor,omitempty"`         // duration string like "120ms"
	DebounceWindow      *string  `json:"debounce_window,omitempty"`        // duration string like "500ms"
	MinGapAfterFinalize *string  `json:"min_gap_after_finalize,omitempty"` // "0s" accepts immediate re-taps
	SwipeStepTimeout    *string  `json:"swipe_step_timeout,omitempty"`     // defaults to debounce_window

	// Tap signal selection: region names whose mean forms the tap signal.
	// Empty selects the full-frame aggregate.
	TapRegions []string `json:"tap_regions,omitempty"`

	// Aggregator params
	JobTimeout *string `json:"job_timeout,omitempty"` // per region job, "1s"
	MaxWorkers *int    `json:"max_workers,omitempty"`

	// Diagnostics params
	RateInterval  *string `json:"rate_interval,omitempty"` // throughput bucket, "1s"
	EventRingSize *int    `json:"event_ring_size,omitempty"`
	TraceRingSize *int    `json:"trace_ring_size,omitempty"`
	SinkQueueSize *int    `json:"sink_queue_size,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// carry a .json extension and stay under the max file size. Fields omitted
// from the JSON retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
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

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath, searching upward from the working directory. Panics if
// the file cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from deeper packages
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are coherent.
func (c *TuningConfig) Validate() error {
	if c.DarknessThreshold != nil {
		if *c.DarknessThreshold <= 0 || *c.DarknessThreshold >= 255 {
			return fmt.Errorf("darkness_threshold must be in (0,255), got %f", *c.DarknessThreshold)
		}
	}

	durations := map[string]*string{
		"debounce_floor":         c.DebounceFloor,
		"debounce_window":        c.DebounceWindow,
		"min_gap_after_finalize": c.MinGapAfterFinalize,
		"swipe_step_timeout":     c.SwipeStepTimeout,
		"job_timeout":            c.JobTimeout,
		"rate_interval":          c.RateInterval,
	}
	for key, val := range durations {
		if val != nil && *val != "" {
			if _, err := time.ParseDuration(*val); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", key, *val, err)
			}
		}
	}

	if c.GetDebounceWindow() <= c.GetDebounceFloor() {
		return fmt.Errorf("debounce_window (%s) must exceed debounce_floor (%s)",
			c.GetDebounceWindow(), c.GetDebounceFloor())
	}

	if c.MaxWorkers != nil && *c.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be at least 1, got %d", *c.MaxWorkers)
	}

	counts := map[string]*int{
		"event_ring_size": c.EventRingSize,
		"trace_ring_size": c.TraceRingSize,
		"sink_queue_size": c.SinkQueueSize,
	}
	for key, val := range counts {
		if val != nil && *val < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", key, *val)
		}
	}

	return nil
}

// duration parses a duration pointer with a fallback for nil, empty, or
// unparseable values.
func duration(val *string, fallback time.Duration) time.Duration {
	if val == nil || *val == "" {
		return fallback
	}
	d, err := time.ParseDuration(*val)
	if err != nil {
		return fallback
	}
	return d
}

// GetDarknessThreshold returns the darkness_threshold value or the default.
func (c *TuningConfig) GetDarknessThreshold() float64 {
	if c.DarknessThreshold == nil {
		return 50.0
	}
	return *c.DarknessThreshold
}

// GetDebounceFloor returns the debounce_floor value or the default.
func (c *TuningConfig) GetDebounceFloor() time.Duration {
	return duration(c.DebounceFloor, 120*time.Millisecond)
}

// GetDebounceWindow returns the debounce_window value or the default.
func (c *TuningConfig) GetDebounceWindow() time.Duration {
	return duration(c.DebounceWindow, 500*time.Millisecond)
}

// GetMinGapAfterFinalize returns the min_gap_after_finalize value or the
// default of zero, which accepts a fresh covering immediately after a
// finalization.
func (c *TuningConfig) GetMinGapAfterFinalize() time.Duration {
	return duration(c.MinGapAfterFinalize, 0)
}

// GetSwipeStepTimeout returns the swipe_step_timeout value, defaulting to
// the debounce window.
func (c *TuningConfig) GetSwipeStepTimeout() time.Duration {
	return duration(c.SwipeStepTimeout, c.GetDebounceWindow())
}

// GetTapRegions returns the configured tap signal region names. Empty means
// the full-frame aggregate.
func (c *TuningConfig) GetTapRegions() []string {
	return c.TapRegions
}

// GetJobTimeout returns the job_timeout value or the default.
func (c *TuningConfig) GetJobTimeout() time.Duration {
	return duration(c.JobTimeout, time.Second)
}

// GetMaxWorkers returns the max_workers value or the default.
func (c *TuningConfig) GetMaxWorkers() int {
	if c.MaxWorkers == nil {
		return 6
	}
	return *c.MaxWorkers
}

// GetRateInterval returns the rate_interval value or the default.
func (c *TuningConfig) GetRateInterval() time.Duration {
	return duration(c.RateInterval, time.Second)
}

// GetEventRingSize returns the event_ring_size value or the default.
func (c *TuningConfig) GetEventRingSize() int {
	if c.EventRingSize == nil {
		return 128
	}
	return *c.EventRingSize
}

// GetTraceRingSize returns the trace_ring_size value or the default.
func (c *TuningConfig) GetTraceRingSize() int {
	if c.TraceRingSize == nil {
		return 1024
	}
	return *c.TraceRingSize
}

// GetSinkQueueSize returns the sink_queue_size value or the default.
func (c *TuningConfig) GetSinkQueueSize() int {
	if c.SinkQueueSize == nil {
		return 16
	}
	return *c.SinkQueueSize
}
