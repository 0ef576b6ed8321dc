package server_test

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/colonyops/inbox/internal/core/kv"
	"github.com/colonyops/inbox/internal/core/notification"
	"github.com/colonyops/inbox/internal/remote"
	"github.com/colonyops/inbox/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts ...server.Option) (*server.Server, *remote.Client) {
	t.Helper()

	srv := server.New(context.Background(), kv.NewMemory(), opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})

	client, err := remote.New(remote.Config{BaseURL: ts.URL, Token: "secret"})
	require.NoError(t, err)
	return srv, client
}

func seed(t *testing.T, srv *server.Server, drafts ...notification.Draft) []notification.Record {
	t.Helper()
	out := make([]notification.Record, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, srv.Cache().Add(d))
	}
	return out
}

func TestServer_ListPagination(t *testing.T) {
	srv, client := newTestServer(t)
	ctx := context.Background()

	for range 5 {
		seed(t, srv, notification.Draft{Type: notification.TypeBooking, Title: "b"})
	}
	seed(t, srv, notification.Draft{Type: notification.TypePayment, Title: "p", IsRead: true})

	resp, err := client.List(ctx, remote.ListParams{Page: 2, Limit: 4})
	require.NoError(t, err)
	assert.Len(t, resp.Notifications, 2)
	assert.Equal(t, 5, resp.UnreadCount)
	assert.Equal(t, remote.Pagination{Page: 2, Limit: 4, Total: 6, TotalPages: 2}, resp.Pagination)
	for _, n := range resp.Notifications {
		assert.True(t, n.Synced)
	}

	resp, err = client.List(ctx, remote.ListParams{Type: notification.TypePayment})
	require.NoError(t, err)
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, "p", resp.Notifications[0].Title)

	resp, err = client.List(ctx, remote.ListParams{IsRead: notification.Bool(false)})
	require.NoError(t, err)
	assert.Len(t, resp.Notifications, 5)
}

func TestServer_ListPageBeyondEnd(t *testing.T) {
	srv, client := newTestServer(t)
	ctx := context.Background()

	seed(t, srv,
		notification.Draft{Type: notification.TypeBooking, Title: "a"},
		notification.Draft{Type: notification.TypeBooking, Title: "b"},
	)

	for _, page := range []int{2, 3, math.MaxInt} {
		resp, err := client.List(ctx, remote.ListParams{Page: page, Limit: 2})
		require.NoError(t, err, "page %d", page)
		assert.Empty(t, resp.Notifications)
		assert.Equal(t, page, resp.Pagination.Page)
		assert.Equal(t, 2, resp.Pagination.Total)
	}
}

func TestServer_MarkReadAndDelete(t *testing.T) {
	srv, client := newTestServer(t)
	ctx := context.Background()

	recs := seed(t, srv,
		notification.Draft{Type: notification.TypeReview, Title: "one"},
		notification.Draft{Type: notification.TypeReview, Title: "two"},
	)

	require.NoError(t, client.MarkRead(ctx, recs[0].ID))
	n, err := client.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	err = client.MarkRead(ctx, "missing")
	assert.True(t, remote.IsStatus(err, http.StatusNotFound))

	marked, err := client.MarkAllRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	require.NoError(t, client.Delete(ctx, recs[1].ID))
	err = client.Delete(ctx, recs[1].ID)
	assert.True(t, remote.IsStatus(err, http.StatusNotFound))

	deleted, err := client.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}

func TestServer_CreateAssignsServerID(t *testing.T) {
	srv, client := newTestServer(t)
	ctx := context.Background()

	err := client.Create(ctx, notification.Record{
		ID:       "local_abc",
		Type:     notification.TypeSystem,
		Title:    "Maintenance",
		Metadata: notification.Metadata{"window": notification.StringValue("02:00")},
	})
	require.NoError(t, err)

	recs := srv.Cache().List(notification.Filter{})
	require.Len(t, recs, 1)
	assert.NotEqual(t, "local_abc", recs[0].ID)
	assert.Len(t, recs[0].ID, 36)
	v, _ := recs[0].Metadata["window"].AsString()
	assert.Equal(t, "02:00", v)
}

func TestServer_CreateRejectsInvalid(t *testing.T) {
	_, client := newTestServer(t)

	err := client.Create(context.Background(), notification.Record{Title: "no type"})
	var serr *remote.StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusBadRequest, serr.StatusCode)
	assert.Contains(t, serr.Message, "Type")
}

func TestServer_Preferences(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	prefs, err := client.Preferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, notification.DefaultPreferences(), prefs)

	updated, err := client.UpdatePreferences(ctx, notification.PreferencesPatch{Telegram: notification.Bool(false)})
	require.NoError(t, err)
	assert.False(t, updated.Telegram)
	assert.True(t, updated.Email)

	_, err = client.UpdatePreferences(ctx, notification.PreferencesPatch{
		QuietHours: &notification.QuietHoursPatch{Start: notification.String("7pm")},
	})
	assert.True(t, remote.IsStatus(err, http.StatusBadRequest))
}

func TestServer_Token(t *testing.T) {
	srv := server.New(context.Background(), kv.NewMemory(), server.WithToken("secret"))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	good, err := remote.New(remote.Config{BaseURL: ts.URL, Token: "secret"})
	require.NoError(t, err)
	bad, err := remote.New(remote.Config{BaseURL: ts.URL, Token: "wrong"})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = good.UnreadCount(ctx)
	require.NoError(t, err)

	_, err = bad.UnreadCount(ctx)
	assert.True(t, remote.IsStatus(err, http.StatusUnauthorized))

	// health is public
	require.NoError(t, bad.Health(ctx))
}

func TestServer_SetDown(t *testing.T) {
	srv, client := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, client.Health(ctx))

	srv.SetDown(true)
	assert.True(t, srv.Down())
	err := client.Health(ctx)
	assert.True(t, remote.IsStatus(err, http.StatusServiceUnavailable))
	_, err = client.List(ctx, remote.ListParams{})
	assert.True(t, remote.IsStatus(err, http.StatusServiceUnavailable))

	srv.SetDown(false)
	require.NoError(t, client.Health(ctx))
}

func TestServer_FailRateOne(t *testing.T) {
	_, client := newTestServer(t, server.WithFailRate(1))

	err := client.Health(context.Background())
	assert.True(t, remote.IsStatus(err, http.StatusServiceUnavailable))
}

func TestServer_RateLimit(t *testing.T) {
	_, client := newTestServer(t, server.WithRateLimit(0.001, 2))
	ctx := context.Background()

	require.NoError(t, client.Health(ctx))
	require.NoError(t, client.Health(ctx))
	err := client.Health(ctx)
	assert.True(t, remote.IsStatus(err, http.StatusTooManyRequests))
}

func TestServer_BadQuery(t *testing.T) {
	srv := server.New(context.Background(), kv.NewMemory())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	for _, q := range []string{"isRead=maybe", "page=0", "limit=abc"} {
		resp, err := http.Get(ts.URL + "/notifications?" + q)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}
