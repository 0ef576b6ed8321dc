// Package cache is the local durable notification cache. It keeps the record
// list and preferences in memory, mirrors every change to a kv.KV, and never
// returns storage errors to callers: failures are logged, reported to an
// optional hook, and the in-memory state stays authoritative.
package cache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/colonyops/inbox/internal/core/eventbus"
	"github.com/colonyops/inbox/internal/core/kv"
	"github.com/colonyops/inbox/internal/core/notification"
	"github.com/rs/zerolog"
)

const (
	keyList        = "list"
	keyPreferences = "preferences"
	keyUnreadCount = "unread_count"
)

// Cache is safe for concurrent use. Listeners run after the internal lock is
// released, so they may call back into the cache. Snapshots reach listeners in
// mutation order: one goroutine at a time drains the queue, and a mutation made
// while another goroutine is draining is delivered by that goroutine.
type Cache struct {
	namespace string
	list      *kv.TypedKV[[]notification.Record]
	prefsKV   *kv.TypedKV[notification.Preferences]
	unreadKV  *kv.TypedKV[int]
	opTimeout time.Duration

	logger  zerolog.Logger
	now     func() time.Time
	newID   func() string
	onError func(*StorageError)

	mu      sync.Mutex
	records []notification.Record // insertion order, newest add at index 0
	prefs   *notification.Preferences

	pending  [][]notification.Record // snapshots awaiting delivery, oldest first
	draining bool

	listeners *eventbus.Registry[[]notification.Record]
}

// New builds a cache over store and loads any persisted records and
// preferences. Missing or corrupt data starts the cache empty.
func New(ctx context.Context, store kv.KV, opts ...Option) *Cache {
	c := &Cache{
		namespace: DefaultNamespace,
		opTimeout: 5 * time.Second,
		logger:    zerolog.Nop(),
		now:       time.Now,
		newID:     NewLocalID,
		listeners: eventbus.New[[]notification.Record](eventbus.EventCacheChanged),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.list = kv.Scoped[[]notification.Record](store, c.namespace)
	c.prefsKV = kv.Scoped[notification.Preferences](store, c.namespace)
	c.unreadKV = kv.Scoped[int](store, c.namespace)

	if records, ok := c.loadRecords(ctx); ok {
		c.records = records
	}
	if prefs, ok := c.loadPreferences(ctx); ok {
		c.prefs = prefs
	}

	return c
}

// Namespace returns the key prefix in use.
func (c *Cache) Namespace() string {
	return c.namespace
}

// Listeners exposes the change registry, e.g. for attaching debug hooks.
func (c *Cache) Listeners() *eventbus.Registry[[]notification.Record] {
	return c.listeners
}

// Subscribe registers fn to receive the full record list, newest first, after
// every mutation.
func (c *Cache) Subscribe(fn func([]notification.Record)) (unsubscribe func()) {
	return c.listeners.Subscribe(fn)
}

// List returns records matching filter, newest first, truncated to
// filter.Limit when positive. Records created at the same instant keep their
// stored order.
func (c *Cache) List(filter notification.Filter) []notification.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listLocked(filter)
}

// Get returns the record with id.
func (c *Cache) Get(id string) (notification.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexLocked(id); i >= 0 {
		return c.records[i].Clone(), true
	}
	return notification.Record{}, false
}

// Len returns the number of records.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// IsEmpty reports whether the cache holds no records.
func (c *Cache) IsEmpty() bool {
	return c.Len() == 0
}

// UnreadCount counts unread records. The persisted mirror is never read back.
func (c *Cache) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unreadLocked()
}

// Add stores a new unsynced record built from draft and returns it.
func (c *Cache) Add(draft notification.Draft) notification.Record {
	now := c.now()
	rec := notification.Record{
		ID:        c.newID(),
		Type:      draft.Type,
		Title:     draft.Title,
		Message:   draft.Message,
		IsRead:    draft.IsRead,
		CreatedAt: now,
		UpdatedAt: now,
		ActionURL: draft.ActionURL,
		Metadata:  draft.Metadata.Clone(),
		Synced:    false,
	}

	c.mutate(func() bool {
		c.records = append([]notification.Record{rec}, c.records...)
		return true
	})

	return rec.Clone()
}

// MarkRead flips one record to read. It returns false when the record is
// missing or already read; nothing is persisted in that case.
func (c *Cache) MarkRead(id string) bool {
	return c.mutate(func() bool {
		i := c.indexLocked(id)
		if i < 0 || c.records[i].IsRead {
			return false
		}
		c.records[i].IsRead = true
		c.records[i].UpdatedAt = c.now()
		return true
	})
}

// MarkAllRead flips every unread record and returns how many changed.
func (c *Cache) MarkAllRead() int {
	var n int
	c.mutate(func() bool {
		now := c.now()
		for i := range c.records {
			if !c.records[i].IsRead {
				c.records[i].IsRead = true
				c.records[i].UpdatedAt = now
				n++
			}
		}
		return n > 0
	})
	return n
}

// Delete removes one record and reports whether it existed.
func (c *Cache) Delete(id string) bool {
	return c.mutate(func() bool {
		i := c.indexLocked(id)
		if i < 0 {
			return false
		}
		c.records = append(c.records[:i], c.records[i+1:]...)
		return true
	})
}

// DeleteAll removes every record and returns how many there were. The empty
// list is persisted and listeners notified even when nothing was removed.
func (c *Cache) DeleteAll() int {
	var n int
	c.mutate(func() bool {
		n = len(c.records)
		c.records = nil
		return true
	})
	return n
}

// MarkSynced records that a locally-added record reached the remote service.
func (c *Cache) MarkSynced(id string) bool {
	return c.mutate(func() bool {
		i := c.indexLocked(id)
		if i < 0 || c.records[i].Synced {
			return false
		}
		c.records[i].Synced = true
		c.records[i].UpdatedAt = c.now()
		return true
	})
}

// SeedIfEmpty stores records only when the cache holds none. It never
// overwrites existing data and reports whether seeding happened.
func (c *Cache) SeedIfEmpty(records []notification.Record) bool {
	if len(records) == 0 {
		return false
	}
	return c.mutate(func() bool {
		if len(c.records) > 0 {
			return false
		}
		c.records = make([]notification.Record, len(records))
		for i, r := range records {
			c.records[i] = r.Clone()
		}
		return true
	})
}

// Reload replaces the in-memory list with what the store holds, then notifies
// listeners. Used when another process rewrote the store. If the store cannot
// be read for reasons other than missing or corrupt data, the current state
// is kept.
func (c *Cache) Reload(ctx context.Context) {
	records, ok := c.loadRecords(ctx)
	if !ok {
		return
	}
	prefs, prefsOK := c.loadPreferences(ctx)

	c.mu.Lock()
	c.records = records
	if prefsOK {
		c.prefs = prefs
	}
	c.enqueueLocked()
	c.mu.Unlock()

	c.deliver()
}

// mutate runs fn under the lock. When fn reports a change, the list is
// persisted before the lock is released and listeners are notified after.
func (c *Cache) mutate(fn func() (changed bool)) bool {
	c.mu.Lock()
	if !fn() {
		c.mu.Unlock()
		return false
	}
	c.persistLocked()
	c.enqueueLocked()
	c.mu.Unlock()

	c.deliver()
	return true
}

func (c *Cache) enqueueLocked() {
	c.pending = append(c.pending, c.listLocked(notification.Filter{}))
}

// deliver notifies listeners of queued snapshots until the queue is empty. It
// returns at once when another call is already draining.
func (c *Cache) deliver() {
	c.mu.Lock()
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true

	for len(c.pending) > 0 {
		snapshot := c.pending[0]
		c.pending[0] = nil
		c.pending = c.pending[1:]

		c.mu.Unlock()
		c.listeners.Notify(snapshot)
		c.mu.Lock()
	}

	c.draining = false
	c.mu.Unlock()
}

func (c *Cache) listLocked(filter notification.Filter) []notification.Record {
	out := make([]notification.Record, 0, len(c.records))
	for _, r := range c.records {
		if filter.Match(r) {
			out = append(out, r.Clone())
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func (c *Cache) indexLocked(id string) int {
	for i := range c.records {
		if c.records[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Cache) unreadLocked() int {
	n := 0
	for _, r := range c.records {
		if !r.IsRead {
			n++
		}
	}
	return n
}

func (c *Cache) persistLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), c.opTimeout)
	defer cancel()

	records := c.records
	if records == nil {
		records = []notification.Record{}
	}

	if err := c.list.Set(ctx, keyList, records); err != nil {
		c.report(OpSave, c.list.Key(keyList), err)
		return
	}
	if err := c.unreadKV.Set(ctx, keyUnreadCount, c.unreadLocked()); err != nil {
		c.report(OpSave, c.unreadKV.Key(keyUnreadCount), err)
	}
}

// loadRecords reads the persisted list. ok is false only when the store
// failed for a reason other than missing or corrupt data.
func (c *Cache) loadRecords(ctx context.Context) (records []notification.Record, ok bool) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	records, err := c.list.Get(ctx, keyList)
	switch {
	case err == nil:
		return records, true
	case errors.Is(err, kv.ErrNotFound):
		return nil, true
	case errors.Is(err, kv.ErrCorrupt):
		c.report(OpLoad, c.list.Key(keyList), err)
		return nil, true
	default:
		c.report(OpLoad, c.list.Key(keyList), err)
		return nil, false
	}
}

func (c *Cache) report(op, key string, err error) {
	serr := &StorageError{Op: op, Key: key, Err: err}
	c.logger.Warn().
		Err(err).
		Str("op", op).
		Str("key", key).
		Msg("cache storage failure absorbed")
	if c.onError != nil {
		c.onError(serr)
	}
}
