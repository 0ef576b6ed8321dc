// Package inbox is the single entry point for notification reads and writes.
// It prefers the remote API and falls back to the local cache on the first
// remote failure, staying local until ResetBackendConnection is called.
package inbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/colonyops/inbox/internal/cache"
	"github.com/colonyops/inbox/internal/core/eventbus"
	"github.com/colonyops/inbox/internal/core/logging"
	"github.com/colonyops/inbox/internal/core/notification"
	"github.com/colonyops/inbox/internal/remote"
	"github.com/rs/zerolog"
)

// Remote is the subset of the API client the service uses. *remote.Client
// implements it.
type Remote interface {
	List(ctx context.Context, params remote.ListParams) (remote.ListResponse, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int, error)
	Preferences(ctx context.Context) (notification.Preferences, error)
	UpdatePreferences(ctx context.Context, patch notification.PreferencesPatch) (notification.Preferences, error)
	Create(ctx context.Context, rec notification.Record) error
}

// ListResult is the answer to List regardless of which side served it.
type ListResult struct {
	Notifications []notification.Record `json:"notifications"`
	UnreadCount   int                   `json:"unreadCount"`
	Source        Source                `json:"source"`
}

// Service is safe for concurrent use. None of its operations return errors:
// remote failures degrade to the local cache and the cache absorbs storage
// failures.
type Service struct {
	local       *cache.Cache
	remote      Remote
	log         zerolog.Logger
	seed        bool
	syncTimeout time.Duration
	now         func() time.Time

	mu   sync.Mutex
	mode Mode

	modeChanges *eventbus.Registry[ModeChange]
	pending     sync.WaitGroup
}

// New builds a service over local and remote. A nil remote pins the service
// to ModeLocalOnly.
func New(local *cache.Cache, rem Remote, opts ...Option) *Service {
	s := &Service{
		local:       local,
		remote:      rem,
		log:         zerolog.Nop(),
		seed:        true,
		syncTimeout: 10 * time.Second,
		now:         time.Now,
		mode:        ModeRemotePreferred,
		modeChanges: eventbus.New[ModeChange](eventbus.EventModeChanged),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.remote == nil {
		s.mode = ModeLocalOnly
	}
	return s
}

// Cache returns the local cache.
func (s *Service) Cache() *cache.Cache {
	return s.local
}

// Mode returns the current mode.
func (s *Service) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Status reports the mode and local cache size. It never changes state.
func (s *Service) Status() Status {
	n := s.local.Len()
	return Status{
		Mode:         s.Mode(),
		HasLocalData: n > 0,
		LocalCount:   n,
	}
}

// ForceLocalMode switches to ModeLocalOnly regardless of the current mode.
func (s *Service) ForceLocalMode() {
	s.setMode(ModeLocalOnly, "forced")
}

// ResetBackendConnection returns to ModeRemotePreferred so the next call
// tries the remote service again. It has no effect without a remote.
func (s *Service) ResetBackendConnection() {
	if s.remote == nil {
		return
	}
	s.setMode(ModeRemotePreferred, "reset")
}

// OnModeChange registers fn to be called after every mode transition.
func (s *Service) OnModeChange(fn func(ModeChange)) (unsubscribe func()) {
	return s.modeChanges.Subscribe(fn)
}

// ModeListeners exposes the transition registry, e.g. for debug hooks.
func (s *Service) ModeListeners() *eventbus.Registry[ModeChange] {
	return s.modeChanges
}

// Subscribe registers fn for local cache changes.
func (s *Service) Subscribe(fn func([]notification.Record)) (unsubscribe func()) {
	return s.local.Subscribe(fn)
}

// List returns notifications matching filter. When the remote fails and the
// cache is empty, sample records are seeded first.
func (s *Service) List(ctx context.Context, filter notification.Filter) ListResult {
	resp, ok := viaRemote(ctx, s, "list", func(ctx context.Context, r Remote) (remote.ListResponse, error) {
		return r.List(ctx, remote.ListParams{Type: filter.Type, IsRead: filter.IsRead, Limit: filter.Limit})
	})
	if ok {
		return ListResult{
			Notifications: resp.Notifications,
			UnreadCount:   resp.UnreadCount,
			Source:        SourceRemote,
		}
	}

	if s.seed && s.local.SeedIfEmpty(SampleRecords(s.now())) {
		s.log.Info().Msg("seeded local cache with sample notifications")
	}

	return ListResult{
		Notifications: s.local.List(filter),
		UnreadCount:   s.local.UnreadCount(),
		Source:        SourceLocal,
	}
}

// UnreadCount returns the number of unread notifications.
func (s *Service) UnreadCount(ctx context.Context) int {
	if n, ok := viaRemote(ctx, s, "unread_count", func(ctx context.Context, r Remote) (int, error) {
		return r.UnreadCount(ctx)
	}); ok {
		return n
	}
	return s.local.UnreadCount()
}

// MarkRead marks one notification read. Locally it returns false when the
// record is missing or already read.
func (s *Service) MarkRead(ctx context.Context, id string) bool {
	ctx = logging.WithNotificationID(ctx, id)
	if _, ok := viaRemote(ctx, s, "mark_read", func(ctx context.Context, r Remote) (struct{}, error) {
		return struct{}{}, r.MarkRead(ctx, id)
	}); ok {
		return true
	}
	return s.local.MarkRead(id)
}

// MarkAllRead marks everything read and returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context) int {
	if n, ok := viaRemote(ctx, s, "mark_all_read", func(ctx context.Context, r Remote) (int, error) {
		return r.MarkAllRead(ctx)
	}); ok {
		return n
	}
	return s.local.MarkAllRead()
}

// Delete removes one notification.
func (s *Service) Delete(ctx context.Context, id string) bool {
	ctx = logging.WithNotificationID(ctx, id)
	if _, ok := viaRemote(ctx, s, "delete", func(ctx context.Context, r Remote) (struct{}, error) {
		return struct{}{}, r.Delete(ctx, id)
	}); ok {
		return true
	}
	return s.local.Delete(id)
}

// DeleteAll removes every notification and returns how many were removed.
func (s *Service) DeleteAll(ctx context.Context) int {
	if n, ok := viaRemote(ctx, s, "delete_all", func(ctx context.Context, r Remote) (int, error) {
		return r.DeleteAll(ctx)
	}); ok {
		return n
	}
	return s.local.DeleteAll()
}

// Preferences returns the notification settings.
func (s *Service) Preferences(ctx context.Context) notification.Preferences {
	if p, ok := viaRemote(ctx, s, "preferences", func(ctx context.Context, r Remote) (notification.Preferences, error) {
		return r.Preferences(ctx)
	}); ok {
		return p
	}
	return s.local.Preferences()
}

// UpdatePreferences applies patch and returns the merged settings.
func (s *Service) UpdatePreferences(ctx context.Context, patch notification.PreferencesPatch) notification.Preferences {
	if p, ok := viaRemote(ctx, s, "update_preferences", func(ctx context.Context, r Remote) (notification.Preferences, error) {
		return r.UpdatePreferences(ctx, patch)
	}); ok {
		return p
	}
	return s.local.UpdatePreferences(patch)
}

// Create stores draft in the local cache and returns the new record. Unless
// the service is local only, the record is also pushed to the remote service
// in the background; a failed push is logged and never changes the mode.
func (s *Service) Create(ctx context.Context, draft notification.Draft) notification.Record {
	rec := s.local.Add(draft)
	if s.Mode() == ModeLocalOnly {
		return rec
	}

	pushCtx := logging.WithNotificationID(context.WithoutCancel(ctx), rec.ID)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.push(pushCtx, rec)
	}()
	return rec
}

// Wait blocks until background pushes started by Create have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) push(ctx context.Context, rec notification.Record) {
	ctx, cancel := context.WithTimeout(ctx, s.syncTimeout)
	defer cancel()

	if err := s.remote.Create(ctx, rec); err != nil {
		s.log.Warn().Ctx(ctx).Err(err).Msg("notification sync failed")
		return
	}
	s.local.MarkSynced(rec.ID)
	s.log.Debug().Ctx(ctx).Msg("notification synced")
}

// viaRemote runs fn against the remote service when the mode allows it. ok is
// false when the caller must serve from the cache instead.
func viaRemote[T any](ctx context.Context, s *Service, op string, fn func(context.Context, Remote) (T, error)) (v T, ok bool) {
	if s.Mode() == ModeLocalOnly {
		return v, false
	}

	v, err := fn(ctx, s.remote)
	if err == nil {
		return v, true
	}

	var zero T
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		s.log.Debug().Ctx(ctx).Str("op", op).Msg("remote call cancelled by caller, serving locally")
		return zero, false
	}

	s.log.Warn().Ctx(ctx).Err(err).Str("op", op).Msg("remote call failed")
	s.setMode(ModeLocalOnly, op+": "+err.Error())
	return zero, false
}

func (s *Service) setMode(to Mode, reason string) {
	s.mu.Lock()
	from := s.mode
	if from == to {
		s.mu.Unlock()
		return
	}
	s.mode = to
	s.mu.Unlock()

	s.log.Info().
		Stringer("from", from).
		Stringer("to", to).
		Str("reason", reason).
		Msg("inbox mode changed")

	s.modeChanges.Notify(ModeChange{From: from, To: to, Reason: reason})
}
