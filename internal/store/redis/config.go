package redis

import "time"

// Config describes how to reach the Redis server backing the store.
type Config struct {
	URL            string        `yaml:"url" env:"URL"`                         // redis://:password@localhost:6379/0
	RetryAttempts  int           `yaml:"retry_attempts" env:"RETRY_ATTEMPTS"`   // connection attempts before giving up
	RetryInterval  time.Duration `yaml:"retry_interval" env:"RETRY_INTERVAL"`   // delay between attempts
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"` // overall budget for Connect
}

// DefaultConfig returns settings for a local Redis.
func DefaultConfig() Config {
	return Config{
		URL:            "redis://localhost:6379/0",
		RetryAttempts:  3,
		RetryInterval:  time.Second,
		ConnectTimeout: 10 * time.Second,
	}
}
