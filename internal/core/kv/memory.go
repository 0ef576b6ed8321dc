package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/colonyops/inbox/pkg/kv"
)

// Memory is a KV held entirely in process. Values are stored as encoded JSON
// so callers get the same copy semantics as the durable backends.
type Memory struct {
	data *kv.Store[string, []byte]
}

var _ KV = (*Memory)(nil)

// NewMemory returns an empty in-process KV.
func NewMemory() *Memory {
	return &Memory{data: kv.New[string, []byte]()}
}

func (m *Memory) Get(_ context.Context, key string, dest any) error {
	raw, ok := m.data.Get(key)
	if !ok {
		return fmt.Errorf("kv get %q: %w", key, ErrNotFound)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("kv get %q: %w: %w", key, ErrCorrupt, err)
	}
	return nil
}

func (m *Memory) Set(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv set %q marshal: %w", key, err)
	}
	m.data.Set(key, data)
	return nil
}

// SetRaw stores bytes without encoding them. Used to simulate damaged payloads.
func (m *Memory) SetRaw(key string, raw []byte) {
	m.data.Set(key, raw)
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.data.Delete(key)
	return nil
}

func (m *Memory) Has(_ context.Context, key string) (bool, error) {
	_, ok := m.data.Get(key)
	return ok, nil
}

// ListKeys returns all keys in sorted order.
func (m *Memory) ListKeys(_ context.Context) ([]string, error) {
	keys := m.data.Keys()
	sort.Strings(keys)
	return keys, nil
}
