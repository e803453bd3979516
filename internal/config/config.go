// Package config holds the rendering and output defaults a conversion run
// falls back to when the dataset CSV leaves a parameter blank. Config is
// optional: DefaultConfig works out of the box, a YAML file and a couple
// of environment variables can override it.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full speckgen configuration.
type Config struct {
	Render RenderConfig `yaml:"render"`
	Labels LabelsConfig `yaml:"labels"`
	Output OutputConfig `yaml:"output"`
}

// RenderConfig configures star rendering defaults and the remote resource
// bundles asset files reference.
type RenderConfig struct {
	// Texture is the halo texture filename written into speck headers.
	Texture string `yaml:"texture"`

	// MagnitudeExponent is the default brightness falloff exponent.
	MagnitudeExponent float64 `yaml:"magnitude_exponent"`

	Core  ChannelConfig `yaml:"core"`
	Glare ChannelConfig `yaml:"glare"`

	SunSpeck  ResourceConfig `yaml:"sun_speck"`
	Colormaps ResourceConfig `yaml:"colormaps"`
	Textures  ResourceConfig `yaml:"textures"`

	StarsGUIPath   string `yaml:"stars_gui_path"`
	LabelsGUIPath  string `yaml:"labels_gui_path"`
	AnchorsGUIPath string `yaml:"anchors_gui_path"`
}

// ChannelConfig is the default multiplier/gamma/scale for a star render
// channel.
type ChannelConfig struct {
	Multiplier float64 `yaml:"multiplier"`
	Gamma      float64 `yaml:"gamma"`
	Scale      float64 `yaml:"scale"`
}

// ResourceConfig names a synchronized resource bundle.
type ResourceConfig struct {
	Name       string `yaml:"name"`
	Identifier string `yaml:"identifier"`
	Version    int    `yaml:"version"`
}

// LabelsConfig configures label rendering defaults.
type LabelsConfig struct {
	Unit    string  `yaml:"unit"`
	Size    float64 `yaml:"size"`
	MinSize float64 `yaml:"min_size"`
	MaxSize float64 `yaml:"max_size"`
}

// OutputConfig configures where generated files go.
type OutputConfig struct {
	CacheDir string `yaml:"cache_dir"`
	AssetDir string `yaml:"asset_dir"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Render: RenderConfig{
			Texture:           "halo.sgi",
			MagnitudeExponent: 6.2,
			Core:              ChannelConfig{Multiplier: 1.0, Gamma: 1.0, Scale: 1.0},
			Glare:             ChannelConfig{Multiplier: 1.0, Gamma: 1.0, Scale: 1.0},
			SunSpeck: ResourceConfig{
				Name:       "Stars Speck Files",
				Identifier: "digitaluniverse_sunstar_speck",
				Version:    1,
			},
			Colormaps: ResourceConfig{
				Name:       "Stars Color Table",
				Identifier: "stars_colormap",
				Version:    3,
			},
			Textures: ResourceConfig{
				Name:       "Stars Textures",
				Identifier: "stars_textures",
				Version:    1,
			},
			StarsGUIPath:   "/Stars",
			LabelsGUIPath:  "/Labels",
			AnchorsGUIPath: "/Anchors",
		},
		Labels: LabelsConfig{
			Unit:    "pc",
			Size:    7.5,
			MinSize: 1.0,
			MaxSize: 30.0,
		},
	}
}

// Load reads a YAML config file, overlaying it on the defaults and then
// applying environment overrides. A missing file is not an error: the
// defaults (plus env) are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// applyEnvOverrides lets the environment override output locations, so CI
// and Makefile invocations don't need a config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SPECKGEN_CACHE_DIR"); v != "" {
		c.Output.CacheDir = v
	}
	if v := os.Getenv("SPECKGEN_ASSET_DIR"); v != "" {
		c.Output.AssetDir = v
	}
}

// Validate checks the config for values the writers cannot work with.
func (c *Config) Validate() error {
	if c.Render.Texture == "" {
		return errors.New("render.texture must not be empty")
	}
	if c.Labels.Unit == "" {
		return errors.New("labels.unit must not be empty")
	}
	if c.Labels.Size <= 0 {
		return fmt.Errorf("labels.size must be positive, got %v", c.Labels.Size)
	}
	if c.Labels.MinSize > c.Labels.MaxSize {
		return fmt.Errorf("labels.min_size %v exceeds labels.max_size %v",
			c.Labels.MinSize, c.Labels.MaxSize)
	}
	return nil
}
