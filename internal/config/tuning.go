// Package config loads the service configuration: a JSON tuning file for
// the cleaning and physics parameters, and a YAML file for the server
// itself. The tuning schema matches the /api/params endpoint so the same
// JSON works for both startup configuration and runtime updates.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/impulse-data/trajectory.report/internal/clean"
	"github.com/impulse-data/trajectory.report/internal/physics"
	"github.com/impulse-data/trajectory.report/internal/pipeline"
)

// TuningConfig represents the tunable analysis parameters. All fields are
// pointers so a partial JSON file overrides only what it names; the Get*
// methods supply the defaults for everything else.
type TuningConfig struct {
	// Cleaning params
	MaxGap     *int     `json:"max_gap,omitempty"`
	KSpeed     *float64 `json:"k_speed,omitempty"`
	KBack      *float64 `json:"k_back,omitempty"`
	BackMin    *float64 `json:"back_min,omitempty"`
	CXTol      *float64 `json:"cx_tol,omitempty"`
	KResid     *float64 `json:"k_resid,omitempty"`
	TrimPasses *int     `json:"trim_passes,omitempty"`

	// Physics params
	PixelsPerMeter  *float64 `json:"pixels_per_meter,omitempty"`
	ObjectMass      *float64 `json:"object_mass,omitempty"`
	Gravity         *float64 `json:"gravity,omitempty"`
	AssumedFPS      *float64 `json:"assumed_fps,omitempty"`
	SmoothingWindow *int     `json:"smoothing_window,omitempty"`

	// Pipeline params
	Workers *int `json:"workers,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil, so
// every Get* accessor answers with its default.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted
// from the file retain their defaults, so partial configs are safe.
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

// Validate checks that the configuration values are usable.
func (c *TuningConfig) Validate() error {
	if c.MaxGap != nil && *c.MaxGap < 0 {
		return fmt.Errorf("max_gap must be non-negative, got %d", *c.MaxGap)
	}
	if c.TrimPasses != nil && *c.TrimPasses < 0 {
		return fmt.Errorf("trim_passes must be non-negative, got %d", *c.TrimPasses)
	}
	if c.PixelsPerMeter != nil && *c.PixelsPerMeter <= 0 {
		return fmt.Errorf("pixels_per_meter must be positive, got %f", *c.PixelsPerMeter)
	}
	if c.ObjectMass != nil && *c.ObjectMass <= 0 {
		return fmt.Errorf("object_mass must be positive, got %f", *c.ObjectMass)
	}
	if c.AssumedFPS != nil && *c.AssumedFPS <= 0 {
		return fmt.Errorf("assumed_fps must be positive, got %f", *c.AssumedFPS)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	return nil
}

// GetMaxGap returns the max_gap value or the default.
func (c *TuningConfig) GetMaxGap() int {
	if c.MaxGap == nil {
		return clean.DefaultConfig().MaxGap
	}
	return *c.MaxGap
}

// GetKSpeed returns the k_speed value or the default.
func (c *TuningConfig) GetKSpeed() float64 {
	if c.KSpeed == nil {
		return clean.DefaultConfig().KSpeed
	}
	return *c.KSpeed
}

// GetKBack returns the k_back value or the default.
func (c *TuningConfig) GetKBack() float64 {
	if c.KBack == nil {
		return clean.DefaultConfig().KBack
	}
	return *c.KBack
}

// GetBackMin returns the back_min value or the default.
func (c *TuningConfig) GetBackMin() float64 {
	if c.BackMin == nil {
		return clean.DefaultConfig().BackMin
	}
	return *c.BackMin
}

// GetCXTol returns the cx_tol value or the default.
func (c *TuningConfig) GetCXTol() float64 {
	if c.CXTol == nil {
		return clean.DefaultConfig().CXTol
	}
	return *c.CXTol
}

// GetKResid returns the k_resid value or the default.
func (c *TuningConfig) GetKResid() float64 {
	if c.KResid == nil {
		return clean.DefaultConfig().KResid
	}
	return *c.KResid
}

// GetTrimPasses returns the trim_passes value or the default.
func (c *TuningConfig) GetTrimPasses() int {
	if c.TrimPasses == nil {
		return clean.DefaultConfig().TrimPasses
	}
	return *c.TrimPasses
}

// GetPixelsPerMeter returns the pixels_per_meter value or the default.
func (c *TuningConfig) GetPixelsPerMeter() float64 {
	if c.PixelsPerMeter == nil {
		return physics.DefaultParams().PixelsPerMeter
	}
	return *c.PixelsPerMeter
}

// GetObjectMass returns the object_mass value or the default.
func (c *TuningConfig) GetObjectMass() float64 {
	if c.ObjectMass == nil {
		return physics.DefaultParams().ObjectMass
	}
	return *c.ObjectMass
}

// GetGravity returns the gravity value or the default.
func (c *TuningConfig) GetGravity() float64 {
	if c.Gravity == nil {
		return physics.DefaultParams().Gravity
	}
	return *c.Gravity
}

// GetAssumedFPS returns the assumed_fps value or the default.
func (c *TuningConfig) GetAssumedFPS() float64 {
	if c.AssumedFPS == nil {
		return physics.DefaultParams().AssumedFPS
	}
	return *c.AssumedFPS
}

// GetSmoothingWindow returns the smoothing_window value or the default.
func (c *TuningConfig) GetSmoothingWindow() int {
	if c.SmoothingWindow == nil {
		return physics.DefaultParams().SmoothingWindow
	}
	return *c.SmoothingWindow
}

// GetWorkers returns the workers value or the default.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return pipeline.DefaultWorkers
	}
	return *c.Workers
}

// PipelineOptions expands the tuning config into concrete pipeline
// options, filling defaults for everything unset.
func (c *TuningConfig) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Cleaning: clean.Config{
			MaxGap:     c.GetMaxGap(),
			KSpeed:     c.GetKSpeed(),
			KBack:      c.GetKBack(),
			BackMin:    c.GetBackMin(),
			CXTol:      c.GetCXTol(),
			KResid:     c.GetKResid(),
			TrimPasses: c.GetTrimPasses(),
		},
		Physics: physics.Params{
			PixelsPerMeter:  c.GetPixelsPerMeter(),
			ObjectMass:      c.GetObjectMass(),
			Gravity:         c.GetGravity(),
			AssumedFPS:      c.GetAssumedFPS(),
			SmoothingWindow: c.GetSmoothingWindow(),
		},
		Workers: c.GetWorkers(),
	}
}
