// Package config handles configuration loading and validation for inbox.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/colonyops/inbox/internal/core/styles"
	"github.com/colonyops/inbox/internal/remote"
	"github.com/colonyops/inbox/internal/store/redis"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. INBOX_API_BASE_URL.
const EnvPrefix = "INBOX_"

// Backend selects the durable store behind the local cache.
type Backend string

// Supported store backends.
const (
	BackendSQLite Backend = "sqlite"
	BackendFile   Backend = "file"
	BackendRedis  Backend = "redis"
	BackendMemory Backend = "memory"
)

// IsValid reports whether b is a supported backend.
func (b Backend) IsValid() bool {
	switch b {
	case BackendSQLite, BackendFile, BackendRedis, BackendMemory:
		return true
	default:
		return false
	}
}

// Config holds the application configuration.
type Config struct {
	API      remote.Config  `yaml:"api"      envPrefix:"API_"`
	Store    StoreConfig    `yaml:"store"    envPrefix:"STORE_"`
	Fallback FallbackConfig `yaml:"fallback" envPrefix:"FALLBACK_"`
	Server   ServerConfig   `yaml:"server"   envPrefix:"SERVER_"`
	Theme    string         `yaml:"theme"    env:"THEME"`
	DataDir  string         `yaml:"-"` // set by caller, not from config file
}

// StoreConfig selects and configures the local cache backend.
type StoreConfig struct {
	Backend   Backend      `yaml:"backend"   env:"BACKEND"`
	Namespace string       `yaml:"namespace" env:"NAMESPACE"`
	Redis     redis.Config `yaml:"redis"     envPrefix:"REDIS_"`
}

// FallbackConfig tunes local-mode behavior.
type FallbackConfig struct {
	SeedSamples bool          `yaml:"seed_samples" env:"SEED_SAMPLES"`
	SyncTimeout time.Duration `yaml:"sync_timeout" env:"SYNC_TIMEOUT"`
}

// ServerConfig configures `inbox serve`.
type ServerConfig struct {
	Addr      string  `yaml:"addr"       env:"ADDR"`
	Token     string  `yaml:"token"      env:"TOKEN"`
	FailRate  float64 `yaml:"fail_rate"  env:"FAIL_RATE"`
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	Burst     int     `yaml:"burst"      env:"BURST"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: remote.DefaultConfig(),
		Store: StoreConfig{
			Backend:   BackendSQLite,
			Namespace: "notifications",
			Redis:     redis.DefaultConfig(),
		},
		Fallback: FallbackConfig{
			SeedSamples: true,
			SyncTimeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Addr:  "127.0.0.1:8787",
			Burst: 20,
		},
		Theme: styles.DefaultTheme,
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, defaults are used. Environment
// variables (and a .env file in the working directory) override the file.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.DataDir = dataDir

	// Apply defaults for zero values
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.API.Timeout == 0 {
		c.API.Timeout = defaults.API.Timeout
	}
	if c.API.Burst == 0 {
		c.API.Burst = defaults.API.Burst
	}
	if c.Store.Backend == "" {
		c.Store.Backend = defaults.Store.Backend
	}
	if c.Store.Namespace == "" {
		c.Store.Namespace = defaults.Store.Namespace
	}
	if c.Store.Redis.RetryAttempts == 0 {
		c.Store.Redis.RetryAttempts = defaults.Store.Redis.RetryAttempts
	}
	if c.Store.Redis.RetryInterval == 0 {
		c.Store.Redis.RetryInterval = defaults.Store.Redis.RetryInterval
	}
	if c.Store.Redis.ConnectTimeout == 0 {
		c.Store.Redis.ConnectTimeout = defaults.Store.Redis.ConnectTimeout
	}
	if c.Fallback.SyncTimeout == 0 {
		c.Fallback.SyncTimeout = defaults.Fallback.SyncTimeout
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.Burst == 0 {
		c.Server.Burst = defaults.Server.Burst
	}
	if c.Theme == "" {
		c.Theme = defaults.Theme
	}
}

// RemoteEnabled reports whether an API base URL is configured.
func (c *Config) RemoteEnabled() bool {
	return c.API.BaseURL != ""
}

// StoreDir returns the directory used by the file backend.
func (c *Config) StoreDir() string {
	return filepath.Join(c.DataDir, "store")
}

// ServerDataDir returns the data directory of `inbox serve`, kept apart from
// the client cache.
func (c *Config) ServerDataDir() string {
	return filepath.Join(c.DataDir, "server")
}
