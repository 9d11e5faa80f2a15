// Package config loads the engine configuration: forecast horizon, sanity bounds,
// sensitivity grid layout, worker count and the run repository location.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"

	"valux/pkg/core/assumption"
	"valux/pkg/core/projection"
	"valux/pkg/core/sensitivity"
	"valux/pkg/core/valuation"
)

// DefaultPath is read when no explicit path or VALUX_CONFIG is given
const DefaultPath = "config/valux.yaml"

// Config is the on-disk configuration shape (YAML)
type Config struct {
	Horizon     int                    `yaml:"horizon" json:"horizon"`
	FadePolicy  string                 `yaml:"fade_policy" json:"fade_policy"`
	Bounds      assumption.Bounds      `yaml:"bounds" json:"bounds"`
	Sensitivity sensitivity.GridConfig `yaml:"sensitivity" json:"sensitivity"`
	Workers     int                    `yaml:"workers" json:"workers"`
	Store       StoreConfig            `yaml:"store" json:"store"`
	API         APIConfig              `yaml:"api" json:"api"`
}

// StoreConfig locates the run repository
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" json:"-"` // Secret; never echoed
	CacheDir    string `yaml:"cache_dir" json:"cache_dir"`
}

// APIConfig configures cmd/api
type APIConfig struct {
	Port string `yaml:"port" json:"port"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Horizon:     projection.DefaultHorizon,
		FadePolicy:  "linear",
		Bounds:      assumption.DefaultBounds(),
		Sensitivity: sensitivity.DefaultGridConfig(),
		Workers:     0,
		Store:       StoreConfig{CacheDir: ".cache/valuations"},
		API:         APIConfig{Port: "8080"},
	}
}

// Load reads path (or VALUX_CONFIG, or DefaultPath) over the defaults, applies
// environment overrides and validates. A missing file is not an error; unknown keys are.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("VALUX_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.UnmarshalStrict(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		fmt.Printf("[CONFIG] %s not found, using defaults\n", path)
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Store.DatabaseURL = v
	}
	if v := os.Getenv("VALUX_CACHE_DIR"); v != "" {
		c.Store.CacheDir = v
	}
	if v := os.Getenv("API_PORT"); v != "" {
		c.API.Port = v
	}
	if v := os.Getenv("VALUX_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("VALUX_WORKERS must be an integer: %w", err)
		}
		c.Workers = n
	}
	return nil
}

// Validate checks the configuration for internal consistency
func (c *Config) Validate() error {
	if c.Horizon < 1 || c.Horizon > projection.MaxHorizon {
		return fmt.Errorf("horizon must be within [1, %d], got %d", projection.MaxHorizon, c.Horizon)
	}
	if _, err := projection.NewFadePolicy(c.FadePolicy); err != nil {
		return err
	}
	for f, r := range c.Bounds {
		if _, err := assumption.ParseField(string(f)); err != nil {
			return fmt.Errorf("bounds: %w", err)
		}
		if r.Min > r.Max {
			return fmt.Errorf("bounds: %s min %v exceeds max %v", f, r.Min, r.Max)
		}
	}
	if err := c.Sensitivity.GrowthMargin.Validate(); err != nil {
		return fmt.Errorf("sensitivity.growth_margin: %w", err)
	}
	if err := c.Sensitivity.WACC.Validate(); err != nil {
		return fmt.Errorf("sensitivity.wacc: %w", err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	return nil
}

// Valuator builds the valuation pipeline described by the configuration
func (c *Config) Valuator() *valuation.Valuator {
	fade, _ := projection.NewFadePolicy(c.FadePolicy)
	return valuation.NewValuator(valuation.Options{
		Horizon: c.Horizon,
		Bounds:  c.Bounds,
		Fade:    fade,
	})
}

// SensitivityEngine builds a sweep engine for one snapshot
func (c *Config) SensitivityEngine(snapshot projection.HistoricalSnapshot) *sensitivity.Engine {
	return sensitivity.NewEngine(snapshot, c.Valuator(), c.Workers)
}
