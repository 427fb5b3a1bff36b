package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TuningConfig represents the root configuration for the monitoring daemon.
// All fields are optional pointers so a partial JSON file only overrides the
// values it names; the Get* accessors supply defaults for everything else.
type TuningConfig struct {
	// Grid params
	GridWidth  *int `json:"grid_width,omitempty"`
	GridHeight *int `json:"grid_height,omitempty"`

	// Spread params
	SpreadRadius    *int     `json:"spread_radius,omitempty"`
	SpreadDecayRate *float64 `json:"spread_decay_rate,omitempty"`
	SpreadThreshold *float64 `json:"spread_threshold,omitempty"`

	// Routing params
	SecondsPerCell *float64 `json:"seconds_per_cell,omitempty"`

	// Forecast params
	ForecastWindow    *int     `json:"forecast_window,omitempty"`
	SmoothingAlpha    *float64 `json:"smoothing_alpha,omitempty"`
	HorizonSteps      *int     `json:"horizon_steps,omitempty"`
	TrendDampening    *float64 `json:"trend_dampening,omitempty"`
	ModelArtifactPath *string  `json:"model_artifact_path,omitempty"`

	// Alert params
	WarningThreshold  *float64 `json:"warning_threshold,omitempty"`
	DangerThreshold   *float64 `json:"danger_threshold,omitempty"`
	CriticalThreshold *float64 `json:"critical_threshold,omitempty"`
	AlertCooldown     *string  `json:"alert_cooldown,omitempty"` // duration string like "60s"

	// Airflow params
	RoomVolumeM3 *float64 `json:"room_volume_m3,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted from
// the JSON file retain their default values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
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

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.GridWidth != nil && *c.GridWidth <= 0 {
		return fmt.Errorf("grid_width must be positive, got %d", *c.GridWidth)
	}
	if c.GridHeight != nil && *c.GridHeight <= 0 {
		return fmt.Errorf("grid_height must be positive, got %d", *c.GridHeight)
	}
	if c.SpreadRadius != nil && *c.SpreadRadius < 0 {
		return fmt.Errorf("spread_radius must be non-negative, got %d", *c.SpreadRadius)
	}
	if c.SpreadDecayRate != nil && *c.SpreadDecayRate < 0 {
		return fmt.Errorf("spread_decay_rate must be non-negative, got %f", *c.SpreadDecayRate)
	}
	if c.SecondsPerCell != nil && *c.SecondsPerCell <= 0 {
		return fmt.Errorf("seconds_per_cell must be positive, got %f", *c.SecondsPerCell)
	}
	if c.ForecastWindow != nil && *c.ForecastWindow < 2 {
		return fmt.Errorf("forecast_window must be at least 2, got %d", *c.ForecastWindow)
	}
	if c.SmoothingAlpha != nil {
		if *c.SmoothingAlpha <= 0 || *c.SmoothingAlpha > 1 {
			return fmt.Errorf("smoothing_alpha must be in (0, 1], got %f", *c.SmoothingAlpha)
		}
	}
	if c.TrendDampening != nil {
		if *c.TrendDampening < 0 || *c.TrendDampening > 1 {
			return fmt.Errorf("trend_dampening must be between 0 and 1, got %f", *c.TrendDampening)
		}
	}
	if c.AlertCooldown != nil && *c.AlertCooldown != "" {
		if _, err := time.ParseDuration(*c.AlertCooldown); err != nil {
			return fmt.Errorf("invalid alert_cooldown '%s': %w", *c.AlertCooldown, err)
		}
	}

	// Severity thresholds must stay strictly ascending when overridden.
	warn := c.GetWarningThreshold()
	danger := c.GetDangerThreshold()
	critical := c.GetCriticalThreshold()
	if !(warn < danger && danger < critical) {
		return fmt.Errorf("severity thresholds must be ascending: warning=%f danger=%f critical=%f",
			warn, danger, critical)
	}

	if c.RoomVolumeM3 != nil && *c.RoomVolumeM3 <= 0 {
		return fmt.Errorf("room_volume_m3 must be positive, got %f", *c.RoomVolumeM3)
	}

	return nil
}

// GetGridWidth returns the grid_width value or the default.
func (c *TuningConfig) GetGridWidth() int {
	if c.GridWidth == nil {
		return 20
	}
	return *c.GridWidth
}

// GetGridHeight returns the grid_height value or the default.
func (c *TuningConfig) GetGridHeight() int {
	if c.GridHeight == nil {
		return 20
	}
	return *c.GridHeight
}

// GetSpreadRadius returns the spread_radius value or the default.
func (c *TuningConfig) GetSpreadRadius() int {
	if c.SpreadRadius == nil {
		return 3
	}
	return *c.SpreadRadius
}

// GetSpreadDecayRate returns the spread_decay_rate value or the default.
func (c *TuningConfig) GetSpreadDecayRate() float64 {
	if c.SpreadDecayRate == nil {
		return 0.5
	}
	return *c.SpreadDecayRate
}

// GetSpreadThreshold returns the concentration above which a reading is
// propagated to neighbouring cells, or the default.
func (c *TuningConfig) GetSpreadThreshold() float64 {
	if c.SpreadThreshold == nil {
		return 25.0
	}
	return *c.SpreadThreshold
}

// GetSecondsPerCell returns the seconds_per_cell value or the default.
func (c *TuningConfig) GetSecondsPerCell() float64 {
	if c.SecondsPerCell == nil {
		return 1.5
	}
	return *c.SecondsPerCell
}

// GetForecastWindow returns the forecast_window value or the default.
func (c *TuningConfig) GetForecastWindow() int {
	if c.ForecastWindow == nil {
		return 10
	}
	return *c.ForecastWindow
}

// GetSmoothingAlpha returns the smoothing_alpha value or the default.
func (c *TuningConfig) GetSmoothingAlpha() float64 {
	if c.SmoothingAlpha == nil {
		return 0.3
	}
	return *c.SmoothingAlpha
}

// GetHorizonSteps returns the horizon_steps value or the default.
func (c *TuningConfig) GetHorizonSteps() int {
	if c.HorizonSteps == nil {
		return 5
	}
	return *c.HorizonSteps
}

// GetTrendDampening returns the trend_dampening value or the default.
func (c *TuningConfig) GetTrendDampening() float64 {
	if c.TrendDampening == nil {
		return 0.7
	}
	return *c.TrendDampening
}

// GetModelArtifactPath returns the model_artifact_path value or the default.
func (c *TuningConfig) GetModelArtifactPath() string {
	if c.ModelArtifactPath == nil {
		return "forecast_model.json"
	}
	return *c.ModelArtifactPath
}

// GetWarningThreshold returns the warning_threshold value or the default.
func (c *TuningConfig) GetWarningThreshold() float64 {
	if c.WarningThreshold == nil {
		return 35.0
	}
	return *c.WarningThreshold
}

// GetDangerThreshold returns the danger_threshold value or the default.
func (c *TuningConfig) GetDangerThreshold() float64 {
	if c.DangerThreshold == nil {
		return 70.0
	}
	return *c.DangerThreshold
}

// GetCriticalThreshold returns the critical_threshold value or the default.
func (c *TuningConfig) GetCriticalThreshold() float64 {
	if c.CriticalThreshold == nil {
		return 150.0
	}
	return *c.CriticalThreshold
}

// GetAlertCooldown parses and returns the AlertCooldown as a time.Duration.
func (c *TuningConfig) GetAlertCooldown() time.Duration {
	if c.AlertCooldown == nil || *c.AlertCooldown == "" {
		return 60 * time.Second
	}
	d, err := time.ParseDuration(*c.AlertCooldown)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetRoomVolumeM3 returns the room_volume_m3 value or the default.
func (c *TuningConfig) GetRoomVolumeM3() float64 {
	if c.RoomVolumeM3 == nil {
		return 48.0
	}
	return *c.RoomVolumeM3
}
