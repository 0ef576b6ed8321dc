package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a Config with all required fields set for testing.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	return &cfg
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	names := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		names = append(names, fe.Field)
	}
	return names
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig(t)
	cfg.API.BaseURL = "https://api.example.com"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*Config)
		field string
	}{
		{"bad scheme", func(c *Config) { c.API.BaseURL = "ftp://x" }, "api.base_url"},
		{"missing host", func(c *Config) { c.API.BaseURL = "https://" }, "api.base_url"},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }, "api.timeout"},
		{"negative rate", func(c *Config) { c.API.RateLimit = -1 }, "api.rate_limit"},
		{"zero burst", func(c *Config) { c.API.Burst = 0 }, "api.burst"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "postgres" }, "store.backend"},
		{"namespace with colon", func(c *Config) { c.Store.Namespace = "a:b" }, "store.namespace"},
		{"sync timeout", func(c *Config) { c.Fallback.SyncTimeout = -1 }, "fallback.sync_timeout"},
		{"fail rate", func(c *Config) { c.Server.FailRate = 1.5 }, "server.fail_rate"},
		{"unknown theme", func(c *Config) { c.Theme = "neon" }, "theme"},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, "data_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mod(cfg)
			assert.Contains(t, fieldNames(t, cfg.Validate()), tt.field)
		})
	}
}

func TestValidate_Redis(t *testing.T) {
	cfg := validConfig(t)
	cfg.Store.Backend = BackendRedis
	require.NoError(t, cfg.Validate())

	cfg.Store.Redis.URL = ""
	assert.Contains(t, fieldNames(t, cfg.Validate()), "store.redis.url")

	cfg.Store.Redis.URL = "http://localhost:6379"
	assert.Contains(t, fieldNames(t, cfg.Validate()), "store.redis.url")

	// redis settings are ignored for other backends
	cfg.Store.Backend = BackendFile
	assert.NoError(t, cfg.Validate())
}

func TestValidateDeep_DataDirIsFile(t *testing.T) {
	cfg := validConfig(t)
	file := filepath.Join(cfg.DataDir, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	cfg.DataDir = file

	assert.Contains(t, fieldNames(t, cfg.ValidateDeep("")), "data_dir")
}

func TestValidateDeep_ConfigIsDirectory(t *testing.T) {
	cfg := validConfig(t)

	assert.Contains(t, fieldNames(t, cfg.ValidateDeep(t.TempDir())), "config_file")
}

func TestValidateDeep_MissingConfigIsFine(t *testing.T) {
	cfg := validConfig(t)
	assert.NoError(t, cfg.ValidateDeep(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestWarnings(t *testing.T) {
	cfg := validConfig(t)
	warnings := cfg.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "base_url", warnings[0].Item)

	cfg.API.BaseURL = "http://api.example.com"
	cfg.API.Token = "secret"
	cfg.Store.Backend = BackendMemory
	cfg.Server.FailRate = 0.25

	items := []string{}
	for _, w := range cfg.Warnings() {
		items = append(items, w.Item)
	}
	assert.ElementsMatch(t, []string{"token", "backend", "fail_rate"}, items)

	cfg.API.BaseURL = "http://localhost:8787"
	for _, w := range cfg.Warnings() {
		assert.NotEqual(t, "token", w.Item)
	}
}
