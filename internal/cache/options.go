package cache

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// DefaultNamespace prefixes every key the cache writes.
const DefaultNamespace = "notifications"

// LocalIDPrefix marks ids generated by the cache rather than the server.
const LocalIDPrefix = "local_"

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used to report absorbed storage failures.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithIDFunc overrides generation of ids for locally-added records.
func WithIDFunc(fn func() string) Option {
	return func(c *Cache) { c.newID = fn }
}

// WithErrorHook registers fn to receive every absorbed storage failure.
func WithErrorHook(fn func(*StorageError)) Option {
	return func(c *Cache) { c.onError = fn }
}

// WithNamespace changes the key prefix. Two caches with different namespaces
// can share one store.
func WithNamespace(ns string) Option {
	return func(c *Cache) {
		if ns != "" {
			c.namespace = ns
		}
	}
}

// WithOpTimeout bounds each call into the durable store.
func WithOpTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.opTimeout = d
		}
	}
}

// NewLocalID returns "local_" followed by a ULID, so ids sort by creation time.
func NewLocalID() string {
	return LocalIDPrefix + ulid.MustNew(ulid.Now(), rand.Reader).String()
}
