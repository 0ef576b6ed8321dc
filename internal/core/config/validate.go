package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/colonyops/inbox/internal/core/styles"
	"github.com/hay-kot/criterio"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// Validate checks that the configuration is structurally valid.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("data_dir", c.DataDir, required),
		criterio.Run("api.base_url", c.API.BaseURL, httpURL),
		criterio.Run("api.timeout", c.API.Timeout, positiveDuration),
		criterio.Run("api.rate_limit", c.API.RateLimit, nonNegative),
		criterio.Run("api.burst", c.API.Burst, atLeastOne),
		criterio.Run("store.backend", c.Store.Backend, validBackend),
		criterio.Run("store.namespace", c.Store.Namespace, namespace),
		c.validateRedis(),
		criterio.Run("fallback.sync_timeout", c.Fallback.SyncTimeout, positiveDuration),
		criterio.Run("server.addr", c.Server.Addr, required),
		criterio.Run("server.fail_rate", c.Server.FailRate, fraction),
		criterio.Run("server.rate_limit", c.Server.RateLimit, nonNegative),
		criterio.Run("theme", c.Theme, knownTheme),
	)
}

// ValidateDeep performs Validate plus checks that touch the filesystem. The
// configPath argument specifies the config file location to validate (empty
// string skips the config file check).
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if !c.RemoteEnabled() {
		warnings = append(warnings, ValidationWarning{
			Category: "API",
			Item:     "base_url",
			Message:  "no base_url configured, running local only",
		})
	}

	if c.API.Token != "" && strings.HasPrefix(c.API.BaseURL, "http://") && !isLoopback(c.API.BaseURL) {
		warnings = append(warnings, ValidationWarning{
			Category: "API",
			Item:     "token",
			Message:  "token is sent over plain http",
		})
	}

	if c.Store.Backend == BackendMemory {
		warnings = append(warnings, ValidationWarning{
			Category: "Store",
			Item:     "backend",
			Message:  "memory backend does not survive restarts",
		})
	}

	if c.Server.FailRate > 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "Server",
			Item:     "fail_rate",
			Message:  fmt.Sprintf("%.0f%% of server requests will fail", c.Server.FailRate*100),
		})
	}

	return warnings
}

func (c *Config) validateRedis() error {
	if c.Store.Backend != BackendRedis {
		return nil
	}

	var errs criterio.FieldErrorsBuilder
	if c.Store.Redis.URL == "" {
		errs = errs.Append("store.redis.url", errors.New("required when backend is redis"))
	} else if u, err := url.Parse(c.Store.Redis.URL); err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
		errs = errs.Append("store.redis.url", fmt.Errorf("must be a redis:// or rediss:// url"))
	}
	if c.Store.Redis.RetryAttempts < 1 {
		errs = errs.Append("store.redis.retry_attempts", errors.New("must be at least 1"))
	}
	return errs.ToError()
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be empty")
	}
	return nil
}

// httpURL accepts an empty value, which disables the remote service.
func httpURL(s string) error {
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func positiveDuration(d time.Duration) error {
	if d <= 0 {
		return errors.New("must be positive")
	}
	return nil
}

func nonNegative(f float64) error {
	if f < 0 {
		return errors.New("cannot be negative")
	}
	return nil
}

func atLeastOne(n int) error {
	if n < 1 {
		return errors.New("must be at least 1")
	}
	return nil
}

func fraction(f float64) error {
	if f < 0 || f > 1 {
		return errors.New("must be between 0 and 1")
	}
	return nil
}

func validBackend(b Backend) error {
	if !b.IsValid() {
		return fmt.Errorf("unknown backend %q (want sqlite, file, redis or memory)", b)
	}
	return nil
}

func namespace(s string) error {
	if s == "" {
		return errors.New("cannot be empty")
	}
	if strings.ContainsAny(s, ":/ ") {
		return fmt.Errorf("%q may not contain ':', '/' or spaces", s)
	}
	return nil
}

func knownTheme(name string) error {
	if _, ok := styles.GetPalette(name); !ok {
		return fmt.Errorf("unknown theme %q (available: %s)", name, strings.Join(styles.ThemeNames(), ", "))
	}
	return nil
}

func isLoopback(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
