package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load("", dataDir)
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "notifications", cfg.Store.Namespace)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.True(t, cfg.Fallback.SeedSamples)
	assert.False(t, cfg.RemoteEnabled())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Addr, cfg.Server.Addr)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://api.example.com/v1
  token: abc
  timeout: 3s
store:
  backend: file
  namespace: work
fallback:
  seed_samples: false
theme: gruvbox
`)

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1", cfg.API.BaseURL)
	assert.Equal(t, "abc", cfg.API.Token)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, "work", cfg.Store.Namespace)
	assert.False(t, cfg.Fallback.SeedSamples)
	assert.Equal(t, "gruvbox", cfg.Theme)
	assert.True(t, cfg.RemoteEnabled())

	// untouched sections keep their defaults
	assert.Equal(t, 10*time.Second, cfg.Fallback.SyncTimeout)
	assert.Equal(t, 3, cfg.Store.Redis.RetryAttempts)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://file.example.com
store:
  backend: file
`)
	t.Setenv("INBOX_API_BASE_URL", "http://localhost:9999")
	t.Setenv("INBOX_STORE_BACKEND", "memory")
	t.Setenv("INBOX_FALLBACK_SYNC_TIMEOUT", "250ms")
	t.Setenv("INBOX_STORE_REDIS_RETRY_ATTEMPTS", "7")

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999", cfg.API.BaseURL)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 250*time.Millisecond, cfg.Fallback.SyncTimeout)
	assert.Equal(t, 7, cfg.Store.Redis.RetryAttempts)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "api: [")

	_, err := Load(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: postgres
`)

	_, err := Load(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
	assert.Contains(t, err.Error(), "store.backend")
}

func TestLoad_EmptyDataDir(t *testing.T) {
	_, err := Load("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data_dir")
}

func TestApplyDefaults_FillsZeroValues(t *testing.T) {
	cfg := Config{DataDir: "/tmp/x"}
	cfg.applyDefaults()

	d := DefaultConfig()
	assert.Equal(t, d.API.Timeout, cfg.API.Timeout)
	assert.Equal(t, d.Store.Backend, cfg.Store.Backend)
	assert.Equal(t, d.Store.Namespace, cfg.Store.Namespace)
	assert.Equal(t, d.Server.Addr, cfg.Server.Addr)
	assert.Equal(t, d.Theme, cfg.Theme)
	assert.NoError(t, cfg.Validate())
}

func TestPaths(t *testing.T) {
	cfg := Config{DataDir: "/data"}
	assert.Equal(t, "/data/store", cfg.StoreDir())
	assert.Equal(t, "/data/server", cfg.ServerDataDir())
}

func TestLoadDotEnv_Missing(t *testing.T) {
	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("INBOX_THEME=onedark\nINBOX_TEST_DOTENV_ONLY=yes\n"), 0o644))
	t.Setenv("INBOX_THEME", "gruvbox")
	t.Setenv("INBOX_TEST_DOTENV_ONLY", "")
	require.NoError(t, os.Unsetenv("INBOX_TEST_DOTENV_ONLY"))

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "gruvbox", os.Getenv("INBOX_THEME"))
	assert.Equal(t, "yes", os.Getenv("INBOX_TEST_DOTENV_ONLY"))
}
