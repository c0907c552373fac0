// Package config resolves udnfetch settings from defaults, the config file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pevans/udnfetch/scraper"
)

// Configuration errors.
var (
	ErrMissingDSN     = errors.New("storage dsn is required")
	ErrMissingAPIAddr = errors.New("api addr is required")
	ErrNegativeDelay  = errors.New("delays must not be negative")
	ErrInvalidEnv     = errors.New("invalid environment variable")
)

// Config is the resolved configuration of udnfetch.
type Config struct {
	Environment string             `yaml:"environment"`
	LogLevel    string             `yaml:"log_level"`
	Storage     StorageConfig      `yaml:"storage"`
	Output      OutputConfig       `yaml:"output"`
	Browser     BrowserConfig      `yaml:"browser"`
	Redis       RedisConfig        `yaml:"redis"`
	API         APIConfig          `yaml:"api"`
	Site        scraper.SiteConfig `yaml:"site"`
	Delays      scraper.Delays     `yaml:"delays"`
}

// StorageConfig locates the run archive.
type StorageConfig struct {
	DSN string `yaml:"dsn"`
}

// OutputConfig controls where CSV exports are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// BrowserConfig controls the Chrome instance driven by a run.
type BrowserConfig struct {
	Headless  bool   `yaml:"headless"`
	ExecPath  string `yaml:"exec_path"`
	UserAgent string `yaml:"user_agent"`
}

// RedisConfig enables record publishing when Addr is set.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	DB        int    `yaml:"db"`
	Stream    string `yaml:"stream"`
	MaxLength int64  `yaml:"max_length"`
}

// Enabled reports whether a Redis server is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// APIConfig configures the archive HTTP API.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Environment: "production",
		Storage:     StorageConfig{DSN: "udnfetch.db"},
		Output:      OutputConfig{Dir: "."},
		Browser:     BrowserConfig{Headless: true},
		API:         APIConfig{Addr: "localhost:8080"},
		Site:        scraper.DefaultUDNConfig(),
		Delays:      scraper.DefaultDelays(),
	}
}

// Load resolves the configuration: defaults, then the config file at path
// (DefaultPath when empty), then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}
	fileCfg, err := LoadConfigFile(path)
	if err != nil {
		return cfg, err
	}
	if fileCfg != nil {
		cfg = *fileCfg
	}

	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from UDNFETCH_* variables (and LOG_LEVEL).
func (c *Config) ApplyEnv() error {
	c.Environment = getEnv("UDNFETCH_ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Storage.DSN = getEnv("UDNFETCH_DB", c.Storage.DSN)
	c.Output.Dir = getEnv("UDNFETCH_OUTPUT_DIR", c.Output.Dir)
	c.Browser.ExecPath = getEnv("UDNFETCH_CHROME_PATH", c.Browser.ExecPath)
	c.Browser.UserAgent = getEnv("UDNFETCH_USER_AGENT", c.Browser.UserAgent)
	c.Site.BaseURL = getEnv("UDNFETCH_BASE_URL", c.Site.BaseURL)
	c.Redis.Addr = getEnv("UDNFETCH_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Stream = getEnv("UDNFETCH_REDIS_STREAM", c.Redis.Stream)
	c.API.Addr = getEnv("UDNFETCH_API_ADDR", c.API.Addr)

	if v := os.Getenv("UDNFETCH_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: UDNFETCH_HEADLESS=%q", ErrInvalidEnv, v)
		}
		c.Browser.Headless = b
	}
	if v := os.Getenv("UDNFETCH_NAV_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: UDNFETCH_NAV_TIMEOUT=%q", ErrInvalidEnv, v)
		}
		c.Delays.Navigation = d
	}
	return nil
}

// Validate checks the resolved configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Storage.DSN) == "" {
		return ErrMissingDSN
	}
	if strings.TrimSpace(c.API.Addr) == "" {
		return ErrMissingAPIAddr
	}
	d := c.Delays
	for _, v := range []time.Duration{d.Search, d.Page, d.Article, d.Login, d.Navigation} {
		if v < 0 {
			return ErrNegativeDelay
		}
	}
	if err := c.Site.Validate(); err != nil {
		return fmt.Errorf("invalid site configuration: %w", err)
	}
	return nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
