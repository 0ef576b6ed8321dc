// Package eventbus provides typed, synchronous listener registries used to
// broadcast cache snapshots and mode changes to in-process subscribers.
package eventbus

// Event names a registry in logs and hooks.
type Event string

const (
	EventCacheChanged Event = "cache.changed"
	EventModeChanged  Event = "inbox.mode-changed"
)
