// Package config provides configuration loading and management for radiomica.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"radiomica/pkg/discretize"
	"radiomica/pkg/extraction"
	"radiomica/pkg/filters"
	"radiomica/pkg/interpolation"
	"radiomica/pkg/texture"
	"radiomica/pkg/volume"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Processing parameters
	Processing struct {
		// Workers specifies how many jobs run concurrently
		Workers int `yaml:"workers"`

		// TargetSpacing resamples to an isotropic grid when positive, in mm
		TargetSpacing float64 `yaml:"targetSpacing"`

		// Interpolation selects the intensity kernel: nearest, trilinear
		// or tricubic
		Interpolation string `yaml:"interpolation"`

		// MaskThreshold restores the binary mask after interpolation
		MaskThreshold float64 `yaml:"maskThreshold"`

		// ResegmentLo and ResegmentHi bound the analyzed intensity range;
		// both zero disables re-segmentation
		ResegmentLo float64 `yaml:"resegmentLo"`
		ResegmentHi float64 `yaml:"resegmentHi"`

		// OutlierSigmas removes intensities beyond mean ± k·stdev when
		// positive
		OutlierSigmas float64 `yaml:"outlierSigmas"`
	} `yaml:"processing"`

	// Discretization parameters
	Discretization struct {
		// Mode is fbn (fixed bin number) or fbs (fixed bin size)
		Mode string `yaml:"mode"`

		// Bins is the bin count for fbn
		Bins int `yaml:"bins"`

		// BinWidth is the bin width for fbs, in intensity units
		BinWidth float64 `yaml:"binWidth"`

		// Min and Max bound the binning range; NaN derives from the data
		Min float64 `yaml:"min"`
		Max float64 `yaml:"max"`

		// IVHBinWidth is the gray-value step of the intensity-volume
		// histogram; 0 evaluates it on the observed intensities
		IVHBinWidth float64 `yaml:"ivhBinWidth"`
	} `yaml:"discretization"`

	// Texture parameters
	Texture struct {
		// Aggregation is one of slice2d_averaged, slice2d_merged,
		// volume3d_averaged, volume3d_merged
		Aggregation string `yaml:"aggregation"`

		// Connectivity is the zone-growth neighborhood: 6, 18 or 26
		Connectivity int `yaml:"connectivity"`

		// SymmetricGLCM counts each co-occurrence pair in both directions
		SymmetricGLCM bool `yaml:"symmetricGLCM"`

		// DependenceAlpha is the NGLDM coarseness tolerance
		DependenceAlpha float64 `yaml:"dependenceAlpha"`

		// DependenceRadius is the NGLDM Chebyshev radius
		DependenceRadius int `yaml:"dependenceRadius"`
	} `yaml:"texture"`

	// Filters lists the response maps analyzed alongside the raw image
	Filters []FilterConfig `yaml:"filters"`
}

// FilterConfig describes one spatial filter in the YAML form.
type FilterConfig struct {
	Kind    string  `yaml:"kind"`
	Padding string  `yaml:"padding"`
	Radius  int     `yaml:"radius"`
	Sigma   float64 `yaml:"sigma"`
	Cutoff  float64 `yaml:"cutoff"`

	Name        string `yaml:"name"`
	Normalize   bool   `yaml:"normalize"`
	Energy      bool   `yaml:"energy"`
	EnergyDelta int    `yaml:"energyDelta"`
	EnergyL2    bool   `yaml:"energyL2"`

	Family  string `yaml:"family"`
	SubBand string `yaml:"subBand"`
	Level   int    `yaml:"level"`

	Lambda float64 `yaml:"lambda"`
	Gamma  float64 `yaml:"gamma"`
	Theta  float64 `yaml:"theta"`
	ThreeD bool    `yaml:"threeD"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.Workers = runtime.NumCPU()
	cfg.Processing.Interpolation = "trilinear"
	cfg.Processing.MaskThreshold = 0.5

	cfg.Discretization.Mode = "fbn"
	cfg.Discretization.Bins = 32
	cfg.Discretization.Min = math.NaN()
	cfg.Discretization.Max = math.NaN()

	cfg.Texture.Aggregation = "volume3d_merged"
	cfg.Texture.Connectivity = 26
	cfg.Texture.SymmetricGLCM = true

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

// CreateDefaultConfigFile creates a default configuration file at the specified path.
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Settings maps the configuration onto extraction settings. Invalid values
// surface as the extractor's configuration errors.
func (cfg *Config) Settings() (extraction.Settings, error) {
	s := extraction.Settings{
		Workers:       cfg.Processing.Workers,
		OutlierSigmas: cfg.Processing.OutlierSigmas,
		IVHWidth:      cfg.Discretization.IVHBinWidth,
		SymmetricGLCM: cfg.Texture.SymmetricGLCM,
		NGLDMAlpha:    cfg.Texture.DependenceAlpha,
		NGLDMRadius:   cfg.Texture.DependenceRadius,
		Connectivity:  texture.Connectivity(cfg.Texture.Connectivity),
	}

	if cfg.Processing.TargetSpacing > 0 {
		t := cfg.Processing.TargetSpacing
		s.TargetSpacing = &volume.Spacing{X: t, Y: t, Z: t}
	}
	switch cfg.Processing.Interpolation {
	case "nearest":
		s.Interpolation.Method = interpolation.Nearest
	case "", "trilinear":
		s.Interpolation.Method = interpolation.Trilinear
	case "tricubic":
		s.Interpolation.Method = interpolation.Tricubic
	default:
		return s, &extraction.ConfigurationError{Detail: fmt.Sprintf("unknown interpolation %q", cfg.Processing.Interpolation)}
	}
	s.Interpolation.MaskThreshold = cfg.Processing.MaskThreshold

	if cfg.Processing.ResegmentLo != 0 || cfg.Processing.ResegmentHi != 0 {
		s.Resegment = true
		s.ResegmentLo = cfg.Processing.ResegmentLo
		s.ResegmentHi = cfg.Processing.ResegmentHi
	}

	var scheme discretize.Scheme
	switch cfg.Discretization.Mode {
	case "", "fbn":
		scheme = discretize.NewFBN(cfg.Discretization.Bins)
	case "fbs":
		scheme = discretize.NewFBS(cfg.Discretization.BinWidth)
	default:
		return s, &extraction.ConfigurationError{Detail: fmt.Sprintf("unknown discretization mode %q", cfg.Discretization.Mode)}
	}
	if !math.IsNaN(cfg.Discretization.Min) || !math.IsNaN(cfg.Discretization.Max) {
		scheme.Min = cfg.Discretization.Min
		scheme.Max = cfg.Discretization.Max
	}
	s.Schemes = []discretize.Scheme{scheme}

	switch cfg.Texture.Aggregation {
	case "slice2d_averaged":
		s.Aggregation = texture.Slice2DAveraged
	case "slice2d_merged":
		s.Aggregation = texture.Slice2DMerged
	case "volume3d_averaged":
		s.Aggregation = texture.Volume3DAveraged
	case "", "volume3d_merged":
		s.Aggregation = texture.Volume3DMerged
	default:
		return s, &extraction.ConfigurationError{Detail: fmt.Sprintf("unknown aggregation %q", cfg.Texture.Aggregation)}
	}

	for _, fc := range cfg.Filters {
		spec, err := fc.spec()
		if err != nil {
			return s, err
		}
		s.Filters = append(s.Filters, spec)
	}
	return s, nil
}

func (fc FilterConfig) spec() (filters.Spec, error) {
	spec := filters.Spec{
		Kind:        filters.Kind(fc.Kind),
		Radius:      fc.Radius,
		SigmaMM:     fc.Sigma,
		Cutoff:      fc.Cutoff,
		Name:        fc.Name,
		Normalize:   fc.Normalize,
		Energy:      fc.Energy,
		EnergyDelta: fc.EnergyDelta,
		EnergyL2:    fc.EnergyL2,
		Family:      fc.Family,
		SubBand:     fc.SubBand,
		Level:       fc.Level,
		Lambda:      fc.Lambda,
		Gamma:       fc.Gamma,
		Theta:       fc.Theta,
		ThreeD:      fc.ThreeD,
	}
	switch fc.Padding {
	case "zero":
		spec.Padding = filters.PadZero
	case "", "reflect":
		spec.Padding = filters.PadReflect
	case "nearest":
		spec.Padding = filters.PadNearest
	case "periodic":
		spec.Padding = filters.PadPeriodic
	default:
		return spec, &extraction.ConfigurationError{Detail: fmt.Sprintf("unknown padding %q", fc.Padding)}
	}
	return spec, nil
}
