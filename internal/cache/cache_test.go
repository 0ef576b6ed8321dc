package cache_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/colonyops/inbox/internal/cache"
	"github.com/colonyops/inbox/internal/core/eventbus/testbus"
	"github.com/colonyops/inbox/internal/core/kv"
	"github.com/colonyops/inbox/internal/core/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDiskFull = errors.New("disk full")

// failingKV wraps a memory KV and fails reads or writes on demand.
type failingKV struct {
	*kv.Memory

	mu      sync.Mutex
	failGet error
	failSet error
}

func (f *failingKV) Get(ctx context.Context, key string, dest any) error {
	f.mu.Lock()
	err := f.failGet
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Memory.Get(ctx, key, dest)
}

func (f *failingKV) Set(ctx context.Context, key string, value any) error {
	f.mu.Lock()
	err := f.failSet
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Memory.Set(ctx, key, value)
}

func (f *failingKV) setFailures(get, set error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet = get
	f.failSet = set
}

// fakeClock advances one second per call.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("local_%d", n)
	}
}

func newTestCache(t *testing.T, store kv.KV, opts ...cache.Option) *cache.Cache {
	t.Helper()
	base := []cache.Option{
		cache.WithClock(newFakeClock().Now),
		cache.WithIDFunc(sequentialIDs()),
	}
	return cache.New(context.Background(), store, append(base, opts...)...)
}

func draft(title string) notification.Draft {
	return notification.Draft{Type: notification.TypeBooking, Title: title, Message: "..."}
}

func ids(records []notification.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestCache_EndToEnd(t *testing.T) {
	c := newTestCache(t, kv.NewMemory())

	rec := c.Add(notification.Draft{Type: notification.TypeBooking, Title: "Booking Confirmed", Message: "..."})
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.Synced)
	assert.False(t, rec.IsRead)
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)

	assert.Equal(t, 1, c.UnreadCount())
	assert.Equal(t, 1, c.MarkAllRead())
	assert.Equal(t, 0, c.UnreadCount())
	assert.True(t, c.Delete(rec.ID))
	assert.Empty(t, c.List(notification.Filter{}))
}

func TestCache_MarkReadIdempotent(t *testing.T) {
	c := newTestCache(t, kv.NewMemory())
	rec := c.Add(draft("a"))

	assert.True(t, c.MarkRead(rec.ID))
	first, ok := c.Get(rec.ID)
	require.True(t, ok)
	assert.True(t, first.IsRead)
	assert.True(t, first.UpdatedAt.After(rec.UpdatedAt))

	assert.False(t, c.MarkRead(rec.ID))
	second, _ := c.Get(rec.ID)
	assert.True(t, second.IsRead)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
	assert.Equal(t, rec.CreatedAt, second.CreatedAt)

	assert.False(t, c.MarkRead("missing"))
}

func TestCache_UnreadCountConsistency(t *testing.T) {
	c := newTestCache(t, kv.NewMemory())

	check := func() {
		t.Helper()
		unread := 0
		for _, r := range c.List(notification.Filter{}) {
			if !r.IsRead {
				unread++
			}
		}
		assert.Equal(t, unread, c.UnreadCount())
	}

	a := c.Add(draft("a"))
	check()
	b := c.Add(draft("b"))
	c.Add(notification.Draft{Type: notification.TypeSystem, Title: "pre-read", IsRead: true})
	check()
	c.MarkRead(a.ID)
	check()
	c.Delete(b.ID)
	check()
	c.Add(draft("d"))
	check()
	c.MarkAllRead()
	check()
	c.DeleteAll()
	check()
}

func TestCache_Ordering(t *testing.T) {
	c := newTestCache(t, kv.NewMemory())

	a := c.Add(draft("A"))
	b := c.Add(draft("B"))
	cc := c.Add(draft("C"))

	assert.Equal(t, []string{cc.ID, b.ID, a.ID}, ids(c.List(notification.Filter{})))
}

func TestCache_OrderingTiesKeepStoredOrder(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c := cache.New(context.Background(), kv.NewMemory(),
		cache.WithClock(func() time.Time { return fixed }),
		cache.WithIDFunc(sequentialIDs()),
	)

	c.Add(draft("first"))
	c.Add(draft("second"))
	c.Add(draft("third"))

	// Adds insert at the head, so the stored order is newest insertion first.
	assert.Equal(t, []string{"local_3", "local_2", "local_1"}, ids(c.List(notification.Filter{})))
}

func TestCache_ListFilters(t *testing.T) {
	c := newTestCache(t, kv.NewMemory())

	c.Add(notification.Draft{Type: notification.TypeBooking, Title: "b1"})
	p := c.Add(notification.Draft{Type: notification.TypePayment, Title: "p1"})
	c.Add(notification.Draft{Type: notification.TypeBooking, Title: "b2"})
	c.Add(notification.Draft{Type: notification.TypeBooking, Title: "b3"})
	c.MarkRead(p.ID)

	bookings := c.List(notification.Filter{Type: notification.TypeBooking})
	assert.Len(t, bookings, 3)

	limited := c.List(notification.Filter{Type: notification.TypeBooking, Limit: 2})
	require.Len(t, limited, 2)
	assert.Equal(t, "b3", limited[0].Title)
	assert.Equal(t, "b2", limited[1].Title)

	read := c.List(notification.Filter{IsRead: notification.Bool(true)})
	assert.Equal(t, []string{p.ID}, ids(read))

	none := c.List(notification.Filter{Type: notification.TypePayment, IsRead: notification.Bool(false)})
	assert.Empty(t, none)
}

func TestCache_ListReturnsCopies(t *testing.T) {
	c := newTestCache(t, kv.NewMemory())
	rec := c.Add(draft("orig"))

	list := c.List(notification.Filter{})
	list[0].Title = "changed"

	got, _ := c.Get(rec.ID)
	assert.Equal(t, "orig", got.Title)
}

func TestCache_DeleteAll(t *testing.T) {
	c := newTestCache(t, kv.NewMemory())
	rec := testbus.Record(t, c.Listeners())

	for i := 0; i < 5; i++ {
		c.Add(draft(fmt.Sprintf("n%d", i)))
	}
	rec.Reset()

	assert.Equal(t, 5, c.DeleteAll())
	assert.Equal(t, 0, c.DeleteAll())

	rec.AssertCount(t, 2)
	last, _ := rec.Last()
	assert.Empty(t, last)
}

func TestCache_NoNotifyWithoutChange(t *testing.T) {
	c := newTestCache(t, kv.NewMemory())
	a := c.Add(draft("a"))
	c.MarkRead(a.ID)

	rec := testbus.Record(t, c.Listeners())

	assert.Equal(t, 0, c.MarkAllRead())
	assert.False(t, c.MarkRead(a.ID))
	assert.False(t, c.Delete("missing"))

	rec.AssertCount(t, 0)
}

func TestCache_ListenerIsolation(t *testing.T) {
	c := newTestCache(t, kv.NewMemory())

	c.Subscribe(func([]notification.Record) { panic("first listener") })

	var got []notification.Record
	c.Subscribe(func(records []notification.Record) { got = records })

	rec := c.Add(draft("a"))

	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
}

func TestCache_ListenerMayCallBack(t *testing.T) {
	c := newTestCache(t, kv.NewMemory())

	counts := []int{}
	c.Subscribe(func([]notification.Record) {
		counts = append(counts, c.UnreadCount())
	})

	c.Add(draft("a"))
	c.Add(draft("b"))

	assert.Equal(t, []int{1, 2}, counts)
}

func TestCache_PreferencesMergeWithoutStored(t *testing.T) {
	c := newTestCache(t, kv.NewMemory())

	got := c.UpdatePreferences(notification.PreferencesPatch{Push: notification.Bool(false)})

	want := notification.DefaultPreferences()
	want.Push = false
	assert.Equal(t, want, got)
	assert.Equal(t, want, c.Preferences())
}

func TestCache_PreferencesDefault(t *testing.T) {
	c := newTestCache(t, kv.NewMemory())
	assert.Equal(t, notification.DefaultPreferences(), c.Preferences())
}

func TestCache_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	first := newTestCache(t, store)
	a := first.Add(draft("a"))
	first.Add(draft("b"))
	first.MarkRead(a.ID)
	first.UpdatePreferences(notification.PreferencesPatch{Email: notification.Bool(false)})

	second := newTestCache(t, store)
	assert.Equal(t, ids(first.List(notification.Filter{})), ids(second.List(notification.Filter{})))
	assert.Equal(t, 1, second.UnreadCount())
	assert.False(t, second.Preferences().Email)

	var mirror int
	require.NoError(t, store.Get(ctx, "notifications:unread_count", &mirror))
	assert.Equal(t, 1, mirror)
}

func TestCache_Namespace(t *testing.T) {
	store := kv.NewMemory()

	a := newTestCache(t, store, cache.WithNamespace("alice"))
	b := newTestCache(t, store, cache.WithNamespace("bob"))
	a.Add(draft("for alice"))

	assert.Equal(t, 1, a.Len())
	assert.True(t, b.IsEmpty())

	keys, err := store.ListKeys(context.Background())
	require.NoError(t, err)
	assert.Contains(t, keys, "alice:list")
	assert.Equal(t, "alice", a.Namespace())
}

func TestCache_CorruptListTreatedAsEmpty(t *testing.T) {
	store := kv.NewMemory()
	store.SetRaw("notifications:list", []byte("{not json"))

	var reported []*cache.StorageError
	c := newTestCache(t, store, cache.WithErrorHook(func(e *cache.StorageError) {
		reported = append(reported, e)
	}))

	assert.Empty(t, c.List(notification.Filter{}))
	assert.Equal(t, 0, c.UnreadCount())
	require.Len(t, reported, 1)
	assert.Equal(t, cache.OpLoad, reported[0].Op)
	assert.ErrorIs(t, reported[0], kv.ErrCorrupt)

	// The next write heals the stored value.
	c.Add(draft("fresh"))
	reloaded := newTestCache(t, store)
	assert.Equal(t, 1, reloaded.Len())
}

func TestCache_CorruptPreferencesFallBackToDefault(t *testing.T) {
	store := kv.NewMemory()
	store.SetRaw("notifications:preferences", []byte("[1,2"))

	c := newTestCache(t, store)
	assert.Equal(t, notification.DefaultPreferences(), c.Preferences())
}

func TestCache_WriteFailureKeepsMemoryState(t *testing.T) {
	store := &failingKV{Memory: kv.NewMemory()}

	var reported []*cache.StorageError
	c := newTestCache(t, store, cache.WithErrorHook(func(e *cache.StorageError) {
		reported = append(reported, e)
	}))

	store.setFailures(nil, errDiskFull)

	rec := c.Add(draft("kept in memory"))
	prefs := c.UpdatePreferences(notification.PreferencesPatch{Telegram: notification.Bool(false)})

	got, ok := c.Get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, "kept in memory", got.Title)
	assert.False(t, prefs.Telegram)
	assert.False(t, c.Preferences().Telegram)

	require.Len(t, reported, 2)
	assert.Equal(t, cache.OpSave, reported[0].Op)
	assert.Equal(t, "notifications:list", reported[0].Key)
	assert.ErrorIs(t, reported[0], errDiskFull)
	assert.Equal(t, cache.OpSavePreferences, reported[1].Op)

	// Nothing reached the store.
	fresh := newTestCache(t, store.Memory)
	assert.True(t, fresh.IsEmpty())
}

func TestCache_ReadFailureStartsEmpty(t *testing.T) {
	store := &failingKV{Memory: kv.NewMemory()}
	require.NoError(t, store.Memory.Set(context.Background(), "notifications:list", []notification.Record{{ID: "x"}}))
	store.setFailures(errDiskFull, nil)

	var errs []error
	c := newTestCache(t, store, cache.WithErrorHook(func(e *cache.StorageError) { errs = append(errs, e) }))

	assert.True(t, c.IsEmpty())
	assert.Len(t, errs, 2, "list and preferences reads both fail")
}

func TestCache_SeedIfEmpty(t *testing.T) {
	c := newTestCache(t, kv.NewMemory())
	samples := []notification.Record{
		{ID: "sample_1", Type: notification.TypeSystem, Title: "Welcome", CreatedAt: time.Now()},
	}

	assert.True(t, c.SeedIfEmpty(samples))
	assert.Equal(t, 1, c.Len())

	assert.False(t, c.SeedIfEmpty([]notification.Record{{ID: "sample_2"}}))
	_, ok := c.Get("sample_2")
	assert.False(t, ok)

	assert.False(t, newTestCache(t, kv.NewMemory()).SeedIfEmpty(nil))
}

func TestCache_SeedNeverOverwrites(t *testing.T) {
	c := newTestCache(t, kv.NewMemory())
	existing := c.Add(draft("mine"))
	before := c.List(notification.Filter{})

	assert.False(t, c.SeedIfEmpty([]notification.Record{{ID: "sample_1"}}))
	assert.Equal(t, before, c.List(notification.Filter{}))
	assert.Equal(t, []string{existing.ID}, ids(c.List(notification.Filter{})))
}

func TestCache_MarkSynced(t *testing.T) {
	c := newTestCache(t, kv.NewMemory())
	rec := c.Add(draft("a"))

	assert.True(t, c.MarkSynced(rec.ID))
	assert.False(t, c.MarkSynced(rec.ID))
	assert.False(t, c.MarkSynced("missing"))

	got, _ := c.Get(rec.ID)
	assert.True(t, got.Synced)
}

func TestCache_Reload(t *testing.T) {
	store := kv.NewMemory()
	reader := newTestCache(t, store)
	writer := newTestCache(t, store, cache.WithIDFunc(func() string { return "from_writer" }))

	rec := testbus.Record(t, reader.Listeners())

	writer.Add(draft("elsewhere"))
	assert.True(t, reader.IsEmpty())

	reader.Reload(context.Background())
	assert.Equal(t, 1, reader.Len())
	rec.AssertCount(t, 1)
}

func TestCache_ReloadKeepsStateOnStoreFailure(t *testing.T) {
	store := &failingKV{Memory: kv.NewMemory()}
	c := newTestCache(t, store)
	c.Add(draft("a"))

	store.setFailures(errDiskFull, nil)
	c.Reload(context.Background())

	assert.Equal(t, 1, c.Len())
}

func TestCache_ConcurrentAdds(t *testing.T) {
	c := cache.New(context.Background(), kv.NewMemory())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c.Add(draft(fmt.Sprintf("n%d", n)))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, c.Len())
	assert.Equal(t, 50, c.UnreadCount())

	seen := map[string]bool{}
	for _, r := range c.List(notification.Filter{}) {
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true
	}
}

func TestCache_ListenersSeeMutationOrder(t *testing.T) {
	c := cache.New(context.Background(), kv.NewMemory())

	var mu sync.Mutex
	var sizes []int
	c.Subscribe(func(records []notification.Record) {
		mu.Lock()
		sizes = append(sizes, len(records))
		mu.Unlock()
	})

	const writers = 50
	var wg sync.WaitGroup
	for i := range writers {
		wg.Go(func() { c.Add(draft(fmt.Sprintf("n%d", i))) })
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sizes, writers)
	for i, n := range sizes {
		assert.Equal(t, i+1, n, "snapshot %d delivered out of order", i)
	}
}

func TestCache_MutationFromListenerDeliveredAfter(t *testing.T) {
	c := newTestCache(t, kv.NewMemory())

	var unread []int
	c.Subscribe(func(records []notification.Record) {
		n := 0
		for _, r := range records {
			if !r.IsRead {
				n++
			}
		}
		unread = append(unread, n)
		if len(unread) == 1 {
			c.MarkRead(records[0].ID)
			assert.Len(t, unread, 1, "nested change is delivered once this listener returns")
		}
	})

	c.Add(draft("a"))

	assert.Equal(t, []int{1, 0}, unread)
	assert.Zero(t, c.UnreadCount())
}
