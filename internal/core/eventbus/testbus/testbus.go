// Package testbus provides test utilities for eventbus registries.
package testbus

import (
	"sync"
	"testing"
	"time"

	"github.com/colonyops/inbox/internal/core/eventbus"
)

// Recorder subscribes to a registry and captures every payload it receives.
type Recorder[T any] struct {
	mu       sync.Mutex
	payloads []T
}

// Record subscribes a new Recorder to r. The subscription is removed when the
// test completes.
func Record[T any](t *testing.T, r *eventbus.Registry[T]) *Recorder[T] {
	t.Helper()

	rec := &Recorder[T]{}
	unsub := r.Subscribe(rec.record)
	t.Cleanup(unsub)
	return rec
}

func (rec *Recorder[T]) record(payload T) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.payloads = append(rec.payloads, payload)
}

// Payloads returns a copy of all recorded payloads.
func (rec *Recorder[T]) Payloads() []T {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]T, len(rec.payloads))
	copy(out, rec.payloads)
	return out
}

// Len returns the number of recorded payloads.
func (rec *Recorder[T]) Len() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return len(rec.payloads)
}

// Last returns the most recent payload, if any.
func (rec *Recorder[T]) Last() (T, bool) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var zero T
	if len(rec.payloads) == 0 {
		return zero, false
	}
	return rec.payloads[len(rec.payloads)-1], true
}

// Reset clears all recorded payloads.
func (rec *Recorder[T]) Reset() {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.payloads = nil
}

// WaitFor blocks until at least n payloads are recorded or the timeout
// expires. Returns true if the count was reached.
func (rec *Recorder[T]) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if rec.Len() >= n {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-ticker.C:
		}
	}
}

// AssertCount asserts that exactly n payloads were recorded.
func (rec *Recorder[T]) AssertCount(t *testing.T, n int) {
	t.Helper()
	if got := rec.Len(); got != n {
		t.Errorf("expected %d notifications, got %d", n, got)
	}
}
