// Package config loads pricehound configuration from YAML, the environment and
// flags, and persists the small settings record kept between runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverCSV      = "csv"
	DriverPostgres = "postgres"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultStoreFile      = "db.csv"
	DefaultSettingsFile   = "config.cfg"
	DefaultConfigFile     = "config.yaml"
	DefaultSiteID         = "EBAY-US"
	DefaultMaxAttempts    = 10
	DefaultStartDeviation = 10
	DefaultDeviationStep  = 10
	DefaultMaxDeviation   = 40
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
	DefaultMetricsNS      = "pricehound"
)

// Environment variables that override the config file.
const (
	EnvHome        = "PRICEHOUND_HOME"
	EnvAppID       = "EBAY_APP_ID"
	EnvStorePath   = "PRICEHOUND_STORE"
	EnvSettings    = "PRICEHOUND_SETTINGS"
	EnvDatabaseURL = "PRICEHOUND_DB_URL"
	EnvLogLevel    = "PRICEHOUND_LOG_LEVEL"
	EnvLogFormat   = "PRICEHOUND_LOG_FORMAT"
	EnvMetricsAddr = "PRICEHOUND_METRICS_ADDR"
	EnvRPS         = "PRICEHOUND_REQUESTS_PER_SECOND"
)

// DefaultFillTiers are the price brackets populated by a bulk fill.
//
//nolint:gochecknoglobals // Read-only default list.
var DefaultFillTiers = []float64{
	1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000,
}

// Config is the top-level pricehound configuration.
type Config struct {
	Storage     StorageConfig     `yaml:"storage"`
	Marketplace MarketplaceConfig `yaml:"marketplace"`
	Acquire     AcquireConfig     `yaml:"acquire"`
	Fill        FillConfig        `yaml:"fill"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`

	configPath string
}

// StorageConfig selects where listings and settings live.
type StorageConfig struct {
	// Driver is csv or postgres.
	Driver string `yaml:"driver"`
	// Path is the CSV listing table.
	Path string `yaml:"path"`
	// SettingsPath is the comma-joined settings record.
	SettingsPath string `yaml:"settings_path"`
	// DatabaseURL is the Postgres DSN used when Driver is postgres.
	DatabaseURL string `yaml:"database_url,omitempty"`
	// Table is the Postgres table name.
	Table string `yaml:"table,omitempty"`
}

// MarketplaceConfig configures the remote search client.
type MarketplaceConfig struct {
	AppID      string `yaml:"app_id,omitempty"`
	SiteID     string `yaml:"site_id"`
	FindingURL string `yaml:"finding_url,omitempty"`
	// Timeout bounds each remote call; zero disables the timeout.
	Timeout time.Duration `yaml:"timeout"`
	// RequestsPerSecond limits outbound calls; zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// AcquireConfig is the retry schedule used on a cache miss.
type AcquireConfig struct {
	MaxAttempts    int `yaml:"max_attempts"`
	StartDeviation int `yaml:"start_deviation"`
	DeviationStep  int `yaml:"deviation_step"`
	MaxDeviation   int `yaml:"max_deviation"`
}

// FillConfig configures the bulk fill pipeline.
type FillConfig struct {
	// OnStartup runs a fill when the interactive session starts and the last
	// fill was before today.
	OnStartup bool      `yaml:"on_startup"`
	Tiers     []float64 `yaml:"tiers"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// MetricsConfig configures the optional Prometheus listener.
type MetricsConfig struct {
	Addr      string `yaml:"addr,omitempty"`
	Namespace string `yaml:"namespace"`
}

// Defaults returns a Config populated with default values rooted at dir.
func Defaults(dir string) *Config {
	tiers := make([]float64, len(DefaultFillTiers))
	copy(tiers, DefaultFillTiers)

	return &Config{
		Storage: StorageConfig{
			Driver:       DriverCSV,
			Path:         filepath.Join(dir, DefaultStoreFile),
			SettingsPath: filepath.Join(dir, DefaultSettingsFile),
		},
		Marketplace: MarketplaceConfig{
			SiteID: DefaultSiteID,
		},
		Acquire: AcquireConfig{
			MaxAttempts:    DefaultMaxAttempts,
			StartDeviation: DefaultStartDeviation,
			DeviationStep:  DefaultDeviationStep,
			MaxDeviation:   DefaultMaxDeviation,
		},
		Fill: FillConfig{
			Tiers: tiers,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Metrics: MetricsConfig{
			Namespace: DefaultMetricsNS,
		},
		configPath: filepath.Join(dir, DefaultConfigFile),
	}
}

// New returns the effective configuration: defaults, then the config file in
// the configuration directory (if present), then environment overrides.
// Errors reading the file are ignored so that a broken file never prevents
// `config init --force` from repairing it; use Load to surface them.
func New() *Config {
	dir, err := GetConfigDir()
	if err != nil {
		dir = "."
	}
	cfg := Defaults(dir)
	if _, statErr := os.Stat(cfg.configPath); statErr == nil {
		_ = ShallowMergeYAML(cfg, cfg.configPath)
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg
}

// Load reads the config file at path over the defaults and applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults(filepath.Dir(path))
	cfg.configPath = path
	if _, err := os.Stat(path); err == nil {
		if mergeErr := ShallowMergeYAML(cfg, path); mergeErr != nil {
			return nil, mergeErr
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("cannot access config path %s: %w", path, err)
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables found by lookupEnv.
func (c *Config) ApplyEnv(lookupEnv func(string) (string, bool)) {
	if v, ok := lookupEnv(EnvAppID); ok && v != "" {
		c.Marketplace.AppID = v
	}
	if v, ok := lookupEnv(EnvStorePath); ok && v != "" {
		c.Storage.Path = v
	}
	if v, ok := lookupEnv(EnvSettings); ok && v != "" {
		c.Storage.SettingsPath = v
	}
	if v, ok := lookupEnv(EnvDatabaseURL); ok && v != "" {
		c.Storage.DatabaseURL = v
		c.Storage.Driver = DriverPostgres
	}
	if v, ok := lookupEnv(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookupEnv(EnvLogFormat); ok && v != "" {
		c.Logging.Format = v
	}
	if v, ok := lookupEnv(EnvMetricsAddr); ok && v != "" {
		c.Metrics.Addr = v
	}
	if v, ok := lookupEnv(EnvRPS); ok && v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil && rps >= 0 {
			c.Marketplace.RequestsPerSecond = rps
		}
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case DriverCSV:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for the csv driver"))
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("storage.database_url is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	if c.Storage.SettingsPath == "" {
		errs = append(errs, errors.New("storage.settings_path is required"))
	}

	a := c.Acquire
	if a.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("acquire.max_attempts must be >= 1, got %d", a.MaxAttempts))
	}
	if a.StartDeviation < 1 {
		errs = append(errs, fmt.Errorf("acquire.start_deviation must be >= 1, got %d", a.StartDeviation))
	}
	if a.DeviationStep < 1 {
		errs = append(errs, fmt.Errorf("acquire.deviation_step must be >= 1, got %d", a.DeviationStep))
	}
	if a.MaxDeviation <= a.StartDeviation {
		errs = append(errs, fmt.Errorf("acquire.max_deviation (%d) must exceed start_deviation (%d)",
			a.MaxDeviation, a.StartDeviation))
	}

	for _, tier := range c.Fill.Tiers {
		if tier <= 0 {
			errs = append(errs, fmt.Errorf("fill.tiers must be positive, got %v", tier))
			break
		}
	}

	if c.Marketplace.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("marketplace.requests_per_second cannot be negative"))
	}
	if c.Marketplace.Timeout < 0 {
		errs = append(errs, errors.New("marketplace.timeout cannot be negative"))
	}

	return errors.Join(errs...)
}

// ConfigPath returns the path the configuration is saved to.
//
//nolint:revive // ConfigPath reads better than Path at call sites.
func (c *Config) ConfigPath() string {
	return c.configPath
}

// SetConfigPath changes where Save writes.
func (c *Config) SetConfigPath(path string) {
	c.configPath = path
}

// Save writes the configuration as YAML. The app ID and database URL are never
// written; supply them through EBAY_APP_ID and PRICEHOUND_DB_URL.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New("config path cannot be empty")
	}
	out := *c
	out.Marketplace.AppID = ""
	out.Storage.DatabaseURL = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if mkdirErr := os.MkdirAll(filepath.Dir(c.configPath), 0o700); mkdirErr != nil {
		return fmt.Errorf("creating config directory: %w", mkdirErr)
	}
	if writeErr := os.WriteFile(c.configPath, data, 0o600); writeErr != nil {
		return fmt.Errorf("writing config file: %w", writeErr)
	}
	return nil
}
