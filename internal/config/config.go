// Package config loads the run configuration shared by the spacetime
// commands: which metric to use, how much parallelism, Λ, output and
// logging settings.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lcarter9000/spacetimeengine/internal/logging"
	"github.com/lcarter9000/spacetimeengine/symbolic"
)

// Config is the complete run configuration.
type Config struct {
	// Metric names a built-in or file-defined metric, e.g. "schwarzschild".
	Metric string `yaml:"metric"`
	// MetricFile is an optional YAML catalog of additional metrics.
	MetricFile string `yaml:"metric_file"`
	// Workers bounds per-stage parallelism.
	Workers int `yaml:"workers"`
	// CosmologicalConstant is Λ as an expression, e.g. "0" or "Lambda".
	CosmologicalConstant string `yaml:"cosmological_constant"`
	ProperTime           string `yaml:"proper_time"`
	SeparationPrefix     string `yaml:"separation_prefix"`
	// CacheSize is the number of canonical forms the kernel memoizes.
	CacheSize int            `yaml:"cache_size"`
	Output    OutputConfig   `yaml:"output"`
	Logging   logging.Config `yaml:"logging"`
	Metrics   MetricsConfig  `yaml:"metrics"`
}

// OutputConfig controls how components are printed.
type OutputConfig struct {
	// Format is text, latex or json.
	Format      string `yaml:"format"`
	NonZeroOnly bool   `yaml:"nonzero_only"`
}

// MetricsConfig controls the Prometheus endpoint of the tool server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Metric:               "schwarzschild",
		Workers:              runtime.NumCPU(),
		CosmologicalConstant: "0",
		ProperTime:           "tau",
		SeparationPrefix:     "xi_",
		CacheSize:            symbolic.DefaultCacheSize,
		Output:               OutputConfig{Format: "text", NonZeroOnly: true},
		Logging:              logging.DefaultConfig(),
		Metrics:              MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SPACETIME_METRIC"); v != "" {
		c.Metric = v
	}
	if v := os.Getenv("SPACETIME_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Workers = n
		}
	}
	if v := os.Getenv("SPACETIME_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks every field that has a closed set of values.
func (c *Config) Validate() error {
	if c.Metric == "" {
		return fmt.Errorf("metric must be set")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must be non-negative, got %d", c.CacheSize)
	}
	if _, err := c.Lambda(); err != nil {
		return err
	}
	validFormats := map[string]bool{"text": true, "latex": true, "json": true}
	if !validFormats[strings.ToLower(c.Output.Format)] {
		return fmt.Errorf("output.format must be 'text', 'latex' or 'json', got %s", c.Output.Format)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	if c.Metrics.Enabled {
		if !strings.HasPrefix(c.Metrics.Path, "/") || c.Metrics.Path == "/" {
			return fmt.Errorf("metrics.path must start with '/' and name an endpoint, got %q", c.Metrics.Path)
		}
		if reservedPaths[c.Metrics.Path] {
			return fmt.Errorf("metrics.path %s is already served by the tool server", c.Metrics.Path)
		}
	}
	return nil
}

// reservedPaths are the tool server's own routes.
var reservedPaths = map[string]bool{"/tool": true, "/schema": true, "/health": true}

// Lambda parses CosmologicalConstant; empty means 0.
func (c *Config) Lambda() (symbolic.Expr, error) {
	if strings.TrimSpace(c.CosmologicalConstant) == "" {
		return symbolic.N(0), nil
	}
	e, err := symbolic.Parse(c.CosmologicalConstant)
	if err != nil {
		return nil, fmt.Errorf("cosmological_constant: %w", err)
	}
	return e, nil
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
