// Package kv defines the durable key-value abstraction the notification cache
// persists through, plus a typed wrapper and an in-process implementation.
package kv

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is wrapped by Get when the key does not exist.
	ErrNotFound = errors.New("kv: key not found")

	// ErrCorrupt is wrapped by Get when the stored payload cannot be decoded
	// into the destination.
	ErrCorrupt = errors.New("kv: corrupt value")
)

// KV is the interface for a persistent key-value store.
// Keys are strings, values are JSON-serializable.
type KV interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
	ListKeys(ctx context.Context) ([]string, error)
}

// IsNotFound reports whether err means the key was absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
