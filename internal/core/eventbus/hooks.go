package eventbus

import "sync"

// hooks holds lifecycle observers for a Registry. They are kept apart from the
// listener list so diagnostics never count as subscribers.
type hooks[T any] struct {
	mu          sync.RWMutex
	onNotify    []func(Event, T, int)
	onSubscribe []func(Event, int)
	onPanic     []func(Event, T, any)
}

// OnNotify registers a hook that fires before listeners run, with the number
// of listeners about to be called.
func (r *Registry[T]) OnNotify(fn func(event Event, payload T, listeners int)) {
	r.hooks.mu.Lock()
	r.hooks.onNotify = append(r.hooks.onNotify, fn)
	r.hooks.mu.Unlock()
}

// OnSubscribe registers a hook that fires after a listener is added, with the
// new listener count.
func (r *Registry[T]) OnSubscribe(fn func(event Event, listeners int)) {
	r.hooks.mu.Lock()
	r.hooks.onSubscribe = append(r.hooks.onSubscribe, fn)
	r.hooks.mu.Unlock()
}

// OnPanic registers a hook that fires when a listener panics.
func (r *Registry[T]) OnPanic(fn func(event Event, payload T, recovered any)) {
	r.hooks.mu.Lock()
	r.hooks.onPanic = append(r.hooks.onPanic, fn)
	r.hooks.mu.Unlock()
}

func (r *Registry[T]) runOnNotify(payload T, listeners int) {
	r.hooks.mu.RLock()
	hooks := make([]func(Event, T, int), len(r.hooks.onNotify))
	copy(hooks, r.hooks.onNotify)
	r.hooks.mu.RUnlock()
	for _, fn := range hooks {
		fn(r.event, payload, listeners)
	}
}

func (r *Registry[T]) runOnSubscribe() {
	n := r.Len()
	r.hooks.mu.RLock()
	hooks := make([]func(Event, int), len(r.hooks.onSubscribe))
	copy(hooks, r.hooks.onSubscribe)
	r.hooks.mu.RUnlock()
	for _, fn := range hooks {
		fn(r.event, n)
	}
}

func (r *Registry[T]) runOnPanic(payload T, recovered any) {
	r.hooks.mu.RLock()
	hooks := make([]func(Event, T, any), len(r.hooks.onPanic))
	copy(hooks, r.hooks.onPanic)
	r.hooks.mu.RUnlock()
	for _, fn := range hooks {
		func() {
			defer func() { recover() }() //nolint:errcheck
			fn(r.event, payload, recovered)
		}()
	}
}
