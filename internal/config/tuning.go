package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default pipeline values.
const DefaultConfigPath = "config/emg.defaults.json"

// TuningConfig represents the tunable parameters of the acquisition and
// collection pipeline. All fields are pointers so a partial JSON file can
// override only the values it names; the Get* methods supply defaults for
// anything left unset.
type TuningConfig struct {
	// Sampling params
	SampleRateHz       *int `json:"sample_rate_hz,omitempty"`
	SamplesPerFrame    *int `json:"samples_per_frame,omitempty"`
	CalibrationSamples *int `json:"calibration_samples,omitempty"`

	// Conditioning params
	SmoothingWindow *int     `json:"smoothing_window,omitempty"`
	EMAAlpha        *float64 `json:"ema_alpha,omitempty"`
	NotchFreqHz     *float64 `json:"notch_freq_hz,omitempty"` // 0 disables the notch stage
	NotchQ          *float64 `json:"notch_q,omitempty"`

	// Transmit params
	SendTimeout *string `json:"send_timeout,omitempty"` // duration string like "2s"

	// Collector params
	HistoryCapacity  *int `json:"history_capacity,omitempty"`
	SubscriberBuffer *int `json:"subscriber_buffer,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultTuningConfig returns a TuningConfig with every field set to its
// default value. LoadTuningConfig starts from an empty config instead so
// omitted fields fall through to the Get* defaults.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		SampleRateHz:       ptrInt(500),
		SamplesPerFrame:    ptrInt(100),
		CalibrationSamples: ptrInt(100),
		SmoothingWindow:    ptrInt(15),
		EMAAlpha:           ptrFloat64(0.35),
		NotchFreqHz:        ptrFloat64(60),
		NotchQ:             ptrFloat64(30),
		SendTimeout:        ptrString("2s"),
		HistoryCapacity:    ptrInt(1000),
		SubscriberBuffer:   ptrInt(16),
	}
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file retain their default
// values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Config files are capped at 1MB
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

	// Parse JSON into an empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent
// directories. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
		"../../../../" + DefaultConfigPath,
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
	if c.SampleRateHz != nil {
		if *c.SampleRateHz <= 0 || *c.SampleRateHz > 10000 {
			return fmt.Errorf("sample_rate_hz must be between 1 and 10000, got %d", *c.SampleRateHz)
		}
	}

	if c.SamplesPerFrame != nil && *c.SamplesPerFrame <= 0 {
		return fmt.Errorf("samples_per_frame must be positive, got %d", *c.SamplesPerFrame)
	}

	if c.CalibrationSamples != nil && *c.CalibrationSamples <= 0 {
		return fmt.Errorf("calibration_samples must be positive, got %d", *c.CalibrationSamples)
	}

	if c.SmoothingWindow != nil && *c.SmoothingWindow <= 0 {
		return fmt.Errorf("smoothing_window must be positive, got %d", *c.SmoothingWindow)
	}

	if c.EMAAlpha != nil {
		if *c.EMAAlpha <= 0 || *c.EMAAlpha > 1 {
			return fmt.Errorf("ema_alpha must be in (0, 1], got %f", *c.EMAAlpha)
		}
	}

	if c.NotchFreqHz != nil && *c.NotchFreqHz < 0 {
		return fmt.Errorf("notch_freq_hz must be non-negative, got %f", *c.NotchFreqHz)
	}

	if c.NotchQ != nil && *c.NotchQ <= 0 {
		return fmt.Errorf("notch_q must be positive, got %f", *c.NotchQ)
	}

	// Validate SendTimeout can be parsed if set
	if c.SendTimeout != nil && *c.SendTimeout != "" {
		if _, err := time.ParseDuration(*c.SendTimeout); err != nil {
			return fmt.Errorf("invalid send_timeout '%s': %w", *c.SendTimeout, err)
		}
	}

	if c.HistoryCapacity != nil && *c.HistoryCapacity <= 0 {
		return fmt.Errorf("history_capacity must be positive, got %d", *c.HistoryCapacity)
	}

	if c.SubscriberBuffer != nil && *c.SubscriberBuffer <= 0 {
		return fmt.Errorf("subscriber_buffer must be positive, got %d", *c.SubscriberBuffer)
	}

	return nil
}

// GetSampleRateHz returns the sample_rate_hz value or the default.
func (c *TuningConfig) GetSampleRateHz() int {
	if c.SampleRateHz == nil {
		return 500 // default
	}
	return *c.SampleRateHz
}

// GetTickPeriod returns the scheduler tick period derived from the sample rate.
func (c *TuningConfig) GetTickPeriod() time.Duration {
	return time.Second / time.Duration(c.GetSampleRateHz())
}

// GetSamplesPerFrame returns the samples_per_frame value or the default.
func (c *TuningConfig) GetSamplesPerFrame() int {
	if c.SamplesPerFrame == nil {
		return 100 // default
	}
	return *c.SamplesPerFrame
}

// GetCalibrationSamples returns the calibration_samples value or the default.
func (c *TuningConfig) GetCalibrationSamples() int {
	if c.CalibrationSamples == nil {
		return 100 // default
	}
	return *c.CalibrationSamples
}

// GetSmoothingWindow returns the smoothing_window value or the default.
func (c *TuningConfig) GetSmoothingWindow() int {
	if c.SmoothingWindow == nil {
		return 15 // default
	}
	return *c.SmoothingWindow
}

// GetEMAAlpha returns the ema_alpha value or the default.
func (c *TuningConfig) GetEMAAlpha() float64 {
	if c.EMAAlpha == nil {
		return 0.35 // default
	}
	return *c.EMAAlpha
}

// GetNotchFreqHz returns the notch_freq_hz value or the default.
func (c *TuningConfig) GetNotchFreqHz() float64 {
	if c.NotchFreqHz == nil {
		return 60 // default: mains hum in the Americas
	}
	return *c.NotchFreqHz
}

// GetNotchQ returns the notch_q value or the default.
func (c *TuningConfig) GetNotchQ() float64 {
	if c.NotchQ == nil {
		return 30
	}
	return *c.NotchQ
}

// GetSendTimeout parses and returns the SendTimeout as a time.Duration.
func (c *TuningConfig) GetSendTimeout() time.Duration {
	if c.SendTimeout == nil || *c.SendTimeout == "" {
		return 2 * time.Second // default
	}
	d, err := time.ParseDuration(*c.SendTimeout)
	if err != nil {
		return 2 * time.Second // default on parse error
	}
	return d
}

// GetHistoryCapacity returns the history_capacity value or the default.
func (c *TuningConfig) GetHistoryCapacity() int {
	if c.HistoryCapacity == nil {
		return 1000 // default
	}
	return *c.HistoryCapacity
}

// GetSubscriberBuffer returns the subscriber_buffer value or the default.
func (c *TuningConfig) GetSubscriberBuffer() int {
	if c.SubscriberBuffer == nil {
		return 16 // default
	}
	return *c.SubscriberBuffer
}
