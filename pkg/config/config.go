package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yasi-python/censtau/pkg/stats"
)

const DefaultPath = "censtau.yaml"

type ServiceCfg struct {
	HTTPListen  string `yaml:"http_listen"`
	MetricsPath string `yaml:"metrics_path"`
	HealthzPath string `yaml:"healthz_path"`
	LogLevel    string `yaml:"log_level"`
	DataDir     string `yaml:"data_dir"`
}

type EstimatorCfg struct {
	Confidence    float64 `yaml:"confidence"`
	Samples       int     `yaml:"samples"`
	Method        string  `yaml:"method"`         // montecarlo|bootstrap
	BootstrapMode string  `yaml:"bootstrap_mode"` // distinct|weighted
	Seed          uint64  `yaml:"seed"`           // 0 seeds from the clock
	Workers       int     `yaml:"workers"`
}

type DecisionCfg struct {
	Alpha float64 `yaml:"alpha"`
}

type APICfg struct {
	MaxPoints  int `yaml:"max_points"`
	MaxSamples int `yaml:"max_samples"`
}

type Config struct {
	Service   ServiceCfg   `yaml:"service"`
	Estimator EstimatorCfg `yaml:"estimator"`
	Decision  DecisionCfg  `yaml:"decision"`
	API       APICfg       `yaml:"api"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads a YAML config, overlays environment variables (after a
// best-effort .env load) and validates the result. A missing file at
// DefaultPath is not an error.
func Load(path string) (*Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	default:
		return nil, err
	}
	_ = godotenv.Load()
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Service.HTTPListen == "" {
		c.Service.HTTPListen = ":8080"
	}
	if c.Service.MetricsPath == "" {
		c.Service.MetricsPath = "/metrics"
	}
	if c.Service.HealthzPath == "" {
		c.Service.HealthzPath = "/healthz"
	}
	if c.Service.LogLevel == "" {
		c.Service.LogLevel = "info"
	}
	if c.Service.DataDir == "" {
		c.Service.DataDir = "data"
	}
	if c.Estimator.Confidence == 0 {
		c.Estimator.Confidence = stats.DefaultConfidence
	}
	if c.Estimator.Samples == 0 {
		c.Estimator.Samples = stats.DefaultSamples
	}
	if c.Estimator.Method == "" {
		c.Estimator.Method = string(stats.MonteCarlo)
	}
	if c.Estimator.BootstrapMode == "" {
		c.Estimator.BootstrapMode = string(stats.BootstrapDistinct)
	}
	if c.Estimator.Workers <= 0 {
		c.Estimator.Workers = 1
	}
	if c.Decision.Alpha == 0 {
		c.Decision.Alpha = 0.05
	}
	if c.API.MaxPoints <= 0 {
		c.API.MaxPoints = 5000
	}
	if c.API.MaxSamples <= 0 {
		c.API.MaxSamples = 100000
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CENSTAU_LOG_LEVEL"); v != "" {
		c.Service.LogLevel = v
	}
	if v := os.Getenv("CENSTAU_HTTP_LISTEN"); v != "" {
		c.Service.HTTPListen = v
	}
	if v := os.Getenv("CENSTAU_DATA_DIR"); v != "" {
		c.Service.DataDir = v
	}
	if v := os.Getenv("CENSTAU_SEED"); v != "" {
		seed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("CENSTAU_SEED: %w", err)
		}
		c.Estimator.Seed = seed
	}
	if v := os.Getenv("CENSTAU_WORKERS"); v != "" {
		w, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("CENSTAU_WORKERS: %w", err)
		}
		c.Estimator.Workers = w
	}
	return nil
}

// Validate rejects values the estimators would refuse.
func (c *Config) Validate() error {
	if _, err := stats.ParseMethod(c.Estimator.Method); err != nil {
		return fmt.Errorf("estimator.method: %w", err)
	}
	if _, err := stats.ParseBootstrapMode(c.Estimator.BootstrapMode); err != nil {
		return fmt.Errorf("estimator.bootstrap_mode: %w", err)
	}
	if !(c.Estimator.Confidence > 0 && c.Estimator.Confidence < 1) {
		return fmt.Errorf("estimator.confidence must be in (0, 1), got %v", c.Estimator.Confidence)
	}
	if c.Estimator.Samples < 0 {
		return fmt.Errorf("estimator.samples must be positive, got %d", c.Estimator.Samples)
	}
	if !(c.Decision.Alpha > 0 && c.Decision.Alpha < 1) {
		return fmt.Errorf("decision.alpha must be in (0, 1), got %v", c.Decision.Alpha)
	}
	switch c.Service.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("service.log_level %q is not one of debug|info|warn|error", c.Service.LogLevel)
	}
	return nil
}
