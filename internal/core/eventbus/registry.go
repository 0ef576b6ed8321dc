package eventbus

import "sync"

type subscription[T any] struct {
	fn func(T)
}

// Registry is an ordered set of listeners for payloads of type T. Notify is
// synchronous: listeners run on the caller's goroutine in registration order.
type Registry[T any] struct {
	event Event

	mu   sync.RWMutex
	subs []*subscription[T]

	hooks hooks[T]
}

// New creates an empty registry labelled event.
func New[T any](event Event) *Registry[T] {
	return &Registry[T]{event: event}
}

// Event returns the registry's label.
func (r *Registry[T]) Event() Event {
	return r.event
}

// Subscribe registers fn and returns a func that removes exactly this
// registration. Registering the same func twice yields two independent
// subscriptions. Calling the returned func more than once is a no-op.
func (r *Registry[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	sub := &subscription[T]{fn: fn}

	r.mu.Lock()
	r.subs = append(r.subs, sub)
	r.mu.Unlock()

	r.runOnSubscribe()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(sub) })
	}
}

// Notify calls every listener registered at the time of the call with
// payload. Listeners added or removed while Notify runs take effect from the
// next call. A panicking listener is recovered, reported to OnPanic hooks, and
// the remaining listeners still run.
func (r *Registry[T]) Notify(payload T) {
	r.mu.RLock()
	snapshot := make([]*subscription[T], len(r.subs))
	copy(snapshot, r.subs)
	r.mu.RUnlock()

	r.runOnNotify(payload, len(snapshot))

	for _, sub := range snapshot {
		r.call(sub, payload)
	}
}

// Len returns the number of registered listeners.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

func (r *Registry[T]) call(sub *subscription[T], payload T) {
	defer func() {
		if rec := recover(); rec != nil {
			r.runOnPanic(payload, rec)
		}
	}()
	sub.fn(payload)
}

func (r *Registry[T]) remove(sub *subscription[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.subs {
		if s == sub {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			return
		}
	}
}
