// Package config provides configuration loading and management for volpaint.
// It handles loading viewer options from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Recognized values for the viewer options below.
const (
	OrientationVertical   = "vertical"
	OrientationHorizontal = "horizontal"

	ScrollSlice = "slice"
	ScrollZoom  = "zoom"
)

// Config represents the viewer configuration loaded from YAML.
// It is loaded once at viewer construction and passed down explicitly;
// nothing in the core reads ambient global state.
type Config struct {
	// View parameters
	View struct {
		// OrientationDefault selects the startup slice orientation:
		// "vertical" or "horizontal".
		OrientationDefault string `yaml:"orientationDefault"`

		// ScrollWheelAction selects what the wheel does over content:
		// "slice" to step through slices, "zoom" to zoom.
		ScrollWheelAction string `yaml:"scrollWheelAction"`

		// Gamma is the startup display gamma. Must be positive.
		Gamma float64 `yaml:"gamma"`
	} `yaml:"view"`

	// Mask parameters
	Mask struct {
		// OverlayAlpha is the opacity of the label overlay over the
		// intensity image, in [0,1].
		OverlayAlpha float64 `yaml:"overlayAlpha"`

		// UndoDepth is the capacity of the undo snapshot ring.
		UndoDepth int `yaml:"undoDepth"`

		// UndoCoalesceMs is the window, in milliseconds, within which
		// consecutive edits collapse into a single undo step.
		UndoCoalesceMs int `yaml:"undoCoalesceMs"`
	} `yaml:"mask"`

	// Render parameters
	Render struct {
		// ThrottleMs is the minimum interval between renders, in
		// milliseconds. Render requests inside the window are skipped,
		// not queued.
		ThrottleMs int `yaml:"throttleMs"`
	} `yaml:"render"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output.
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.View.OrientationDefault = OrientationVertical
	cfg.View.ScrollWheelAction = ScrollSlice
	cfg.View.Gamma = 1.0

	cfg.Mask.OverlayAlpha = 0.2
	cfg.Mask.UndoDepth = 10
	cfg.Mask.UndoCoalesceMs = 1000

	cfg.Render.ThrottleMs = 100

	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

func (c *Config) validate() error {
	switch c.View.OrientationDefault {
	case OrientationVertical, OrientationHorizontal:
	default:
		return fmt.Errorf("unrecognized orientationDefault %q", c.View.OrientationDefault)
	}

	switch c.View.ScrollWheelAction {
	case ScrollSlice, ScrollZoom:
	default:
		return fmt.Errorf("unrecognized scrollWheelAction %q", c.View.ScrollWheelAction)
	}

	if c.View.Gamma <= 0 {
		return fmt.Errorf("gamma must be positive, got %g", c.View.Gamma)
	}
	if c.Mask.OverlayAlpha < 0 || c.Mask.OverlayAlpha > 1 {
		return fmt.Errorf("overlayAlpha must be in [0,1], got %g", c.Mask.OverlayAlpha)
	}
	if c.Mask.UndoDepth < 1 {
		return fmt.Errorf("undoDepth must be at least 1, got %d", c.Mask.UndoDepth)
	}

	return nil
}
