// Package config provides configuration loading for flat-field synthesis.
// It handles loading configuration from YAML files and provides default
// values for the optional parameters.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the synthesis configuration loaded from YAML.
//
// The image section carries the declarative parameters consumed by the
// sizing resolver. counts_per_pixel, xsize and ysize are required; the
// remaining keys default as documented. buffer_size is a pointer so that an
// explicit 0 is distinguishable from an absent key.
type Config struct {
	Image struct {
		// CountsPerPixel is the target mean exposure level. Required, > 0.
		CountsPerPixel float64 `yaml:"counts_per_pixel"`

		// XSize, YSize are the output dimensions in pixels. Required, > 0.
		XSize int `yaml:"xsize"`
		YSize int `yaml:"ysize"`

		// MaxCountsPerIter bounds the mean level per accumulation round.
		// Defaults to 1000.
		MaxCountsPerIter float64 `yaml:"max_counts_per_iter"`

		// BufferSize is the section border margin in pixels. Defaults to 2.
		BufferSize *int `yaml:"buffer_size"`

		// GridX, GridY are the section grid dimensions. Defaults depend on
		// the synthesis mode: 8x2 for mean-level, 16x16 when an SED is
		// present, since photon shooting needs finer tiling to bound the
		// per-tile photon count.
		GridX int `yaml:"grid_x"`
		GridY int `yaml:"grid_y"`

		// RandomSeed seeds the shared random stream.
		RandomSeed uint64 `yaml:"random_seed"`
	} `yaml:"image"`

	// SED is the optional spectral energy distribution. Its presence
	// switches synthesis to photon-shooting mode and requires a bandpass.
	SED SpectralTable `yaml:"sed"`

	// Bandpass weights the SED when sampling photon wavelengths.
	Bandpass SpectralTable `yaml:"bandpass"`

	// Sensor selects the detector-response model.
	Sensor struct {
		// Model is "none" for a uniform detector or "feedback" for the
		// charge-feedback (brighter-fatter) model.
		Model string `yaml:"model"`

		// Strength is the feedback model's area-perturbation scale.
		Strength float64 `yaml:"strength"`
	} `yaml:"sensor"`

	// WCS configures the tangent-plane coordinate mapping.
	WCS struct {
		RA  float64 `yaml:"ra"`
		Dec float64 `yaml:"dec"`

		// PixelScale is the plate scale in degrees per pixel.
		PixelScale float64 `yaml:"pixel_scale"`

		// Distortion is the quadratic radial pixel-area distortion.
		Distortion float64 `yaml:"distortion"`
	} `yaml:"wcs"`

	Output struct {
		// Verbose enables per-section and per-iteration progress logging.
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// SpectralTable is a tabulated spectral curve in the configuration file.
type SpectralTable struct {
	// Wavelengths are the sample points in nm, strictly increasing.
	Wavelengths []float64 `yaml:"wavelengths"`

	// Values are the curve values at each wavelength.
	Values []float64 `yaml:"values"`
}

// Present reports whether the table was supplied at all.
func (t SpectralTable) Present() bool {
	return len(t.Wavelengths) > 0 || len(t.Values) > 0
}

// DefaultConfig returns a configuration with default values for everything
// except the required image parameters.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Image.MaxCountsPerIter = 1000

	cfg.Sensor.Model = "none"
	cfg.Sensor.Strength = 0.02

	cfg.WCS.PixelScale = 0.2 / 3600
	cfg.WCS.Distortion = 0

	cfg.Output.Verbose = false

	return cfg
}

// LoadConfig loads configuration from a YAML file, layered over the
// defaults. A missing file is an error: the required image parameters have
// no usable defaults.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
