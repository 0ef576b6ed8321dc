package commands

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/colonyops/inbox/internal/core/config"
	"github.com/colonyops/inbox/internal/core/notification"
	"github.com/colonyops/inbox/pkg/iojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func startWatch(t *testing.T, h *harness, cmd *WatchCmd) *syncBuffer {
	t.Helper()

	svc, err := h.app.Service(context.Background())
	require.NoError(t, err)

	out := &syncBuffer{}
	p := &eventPrinter{out: out, lw: iojson.NewLineWriter(out), json: true}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.watch(ctx, svc, p) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return out
}

func TestWatch_CacheEvents(t *testing.T) {
	h := newHarness(t)
	cmd := NewWatchCmd(h.flags, h.app)
	cmd.interval = 20 * time.Millisecond

	out := startWatch(t, h, cmd)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"event":"unread","time"`)
	}, time.Second, 10*time.Millisecond)

	svc, _ := h.app.Service(context.Background())
	svc.Create(context.Background(), notification.Draft{Type: notification.TypeSystem, Title: "hi"})

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"event":"cache_changed"`) &&
			strings.Contains(out.String(), `"unreadCount":1`)
	}, time.Second, 10*time.Millisecond)
}

func TestWatch_FileStoreReloads(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Store.Backend = config.BackendFile })
	cmd := NewWatchCmd(h.flags, h.app)
	cmd.interval = time.Hour

	out := startWatch(t, h, cmd)

	// The reload after the watch is registered marks the watcher ready.
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"event":"cache_changed","time"`) &&
			strings.Contains(out.String(), `"count":0`)
	}, time.Second, 10*time.Millisecond)

	// A second process writing the same store.
	other := newHarness(t, func(c *config.Config) {
		c.Store.Backend = config.BackendFile
		c.DataDir = h.flags.Config.DataDir
	})
	svc, err := other.app.Service(context.Background())
	require.NoError(t, err)
	svc.Create(context.Background(), notification.Draft{Type: notification.TypeSystem, Title: "elsewhere"})

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"count":1`)
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatch_FileStoreSeesWritesBeforeWatchStarts(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Store.Backend = config.BackendFile })
	_, err := h.app.Service(context.Background())
	require.NoError(t, err)

	// Written after this process loaded its cache but before watch runs.
	other := newHarness(t, func(c *config.Config) {
		c.Store.Backend = config.BackendFile
		c.DataDir = h.flags.Config.DataDir
	})
	svc, err := other.app.Service(context.Background())
	require.NoError(t, err)
	svc.Create(context.Background(), notification.Draft{Type: notification.TypeSystem, Title: "early"})

	cmd := NewWatchCmd(h.flags, h.app)
	cmd.interval = time.Hour
	out := startWatch(t, h, cmd)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"count":1`)
	}, time.Second, 10*time.Millisecond)
}

func TestWatch_ModeEventsAndProbe(t *testing.T) {
	h, srv := newRemoteHarness(t)
	cmd := NewWatchCmd(h.flags, h.app)
	cmd.interval = 20 * time.Millisecond
	cmd.probeInterval = 20 * time.Millisecond

	srv.SetDown(true)
	out := startWatch(t, h, cmd)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"to":"local_only"`)
	}, time.Second, 10*time.Millisecond)

	srv.SetDown(false)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"to":"remote_preferred"`)
	}, 2*time.Second, 10*time.Millisecond)
}
