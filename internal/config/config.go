// Package config builds the immutable run configuration for the climate
// trends pipeline: defaults, environment overrides and an optional HCL
// run file.
package config

import (
	env "github.com/caarlos0/env/v11"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pkg/errors"

	"go.ngs.io/climate-trends/internal/domain"
)

// Config holds all pipeline settings. It is constructed once in main and
// passed by value; nothing mutates it afterwards.
type Config struct {
	DataDir       string `env:"DATA_DIR"`
	SaveDir       string `env:"SAVE_DIR"`
	Format        string `env:"FIG_FORMAT"`
	CoastlinePath string `env:"COASTLINE_GEOJSON"`
	LogLevel      string `env:"LOG_LEVEL"`

	// Variables to analyze per scenario. Empty means "first data variable
	// found in the file".
	Variables []string
	Scenarios []string

	Region   domain.Region
	Colormap string
}

// Default returns the built-in configuration: CESM Last Millennium
// Ensemble precipitation, tropical Indo-Pacific analysis box.
func Default() Config {
	return Config{
		DataDir:   "data",
		SaveDir:   "output_figures",
		Format:    "png",
		LogLevel:  "info",
		Scenarios: []string{"cesmlme_PRECTvolc"},
		Region: domain.Region{
			LatMin: -30,
			LatMax: 30,
			LonMin: 90,
			LonMax: 270,
		},
		Colormap: "coolwarm",
	}
}

// Load returns the default configuration with environment overrides
// applied.
func Load() (Config, error) {
	cfg := Default()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the parts of the configuration that later stages assume.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data directory must not be empty")
	}
	if c.SaveDir == "" {
		return errors.New("save directory must not be empty")
	}
	if len(c.Scenarios) == 0 {
		return errors.New("at least one scenario is required")
	}
	if err := c.Region.Validate(); err != nil {
		return errors.Wrap(err, "invalid region")
	}
	return nil
}

// runFile is the HCL schema of a declarative run description.
type runFile struct {
	Variables []string     `hcl:"variables,optional"`
	Scenarios []string     `hcl:"scenarios,optional"`
	Colormap  string       `hcl:"colormap,optional"`
	Format    string       `hcl:"format,optional"`
	Region    *regionBlock `hcl:"region,block"`
}

type regionBlock struct {
	LatMin float64 `hcl:"lat_min"`
	LatMax float64 `hcl:"lat_max"`
	LonMin float64 `hcl:"lon_min"`
	LonMax float64 `hcl:"lon_max"`
}

// WithRunFile returns a copy of the configuration with the settings from
// an HCL run file applied on top. Unset attributes keep their current
// values.
func (c Config) WithRunFile(path string) (Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Config{}, errors.Errorf("parse run file %s: %s", path, diags.Error())
	}

	var rf runFile
	if diags := gohcl.DecodeBody(file.Body, nil, &rf); diags.HasErrors() {
		return Config{}, errors.Errorf("decode run file %s: %s", path, diags.Error())
	}

	if len(rf.Variables) > 0 {
		c.Variables = rf.Variables
	}
	if len(rf.Scenarios) > 0 {
		c.Scenarios = rf.Scenarios
	}
	if rf.Colormap != "" {
		c.Colormap = rf.Colormap
	}
	if rf.Format != "" {
		c.Format = rf.Format
	}
	if rf.Region != nil {
		c.Region = domain.Region{
			LatMin: rf.Region.LatMin,
			LatMax: rf.Region.LatMax,
			LonMin: rf.Region.LonMin,
			LonMax: rf.Region.LonMax,
		}
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
