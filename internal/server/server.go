// Package server is a development backend for the notifications API. It backs
// the HTTP contract with its own cache so the client can be exercised end to
// end without the production service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/colonyops/inbox/internal/cache"
	"github.com/colonyops/inbox/internal/core/kv"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Server serves the notifications API.
type Server struct {
	cache          *cache.Cache
	token          string
	allowedOrigins []string
	failRate       float64
	rateLimit      rate.Limit
	burst          int
	logger         zerolog.Logger
	now            func() time.Time

	down    atomic.Bool
	limiter *RateLimiter
}

// Option configures a Server.
type Option func(*Server)

// WithToken requires every request to carry "Authorization: Bearer <token>".
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithFailRate makes the given fraction of requests fail with 503.
func WithFailRate(f float64) Option {
	return func(s *Server) { s.failRate = f }
}

// WithRateLimit enables a per-client token bucket.
func WithRateLimit(r float64, burst int) Option {
	return func(s *Server) {
		s.rateLimit = rate.Limit(r)
		s.burst = burst
	}
}

// WithAllowedOrigins sets the CORS allow list. Defaults to "*".
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.allowedOrigins = origins }
}

// WithClock overrides the time source used for health responses.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New builds a server whose records live in store. Records created through
// the API receive UUIDs.
func New(ctx context.Context, store kv.KV, opts ...Option) *Server {
	s := &Server{
		allowedOrigins: []string{"*"},
		logger:         zerolog.Nop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cache = cache.New(ctx, store,
		cache.WithNamespace("server"),
		cache.WithIDFunc(uuid.NewString),
		cache.WithLogger(s.logger),
	)

	if s.rateLimit > 0 {
		s.limiter = NewRateLimiter(s.rateLimit, max(s.burst, 1))
	}
	return s
}

// Cache exposes the backing store, e.g. for seeding in tests.
func (s *Server) Cache() *cache.Cache {
	return s.cache
}

// SetDown toggles a simulated outage. While down every request gets 503.
func (s *Server) SetDown(down bool) {
	s.down.Store(down)
}

// Down reports whether a simulated outage is active.
func (s *Server) Down() bool {
	return s.down.Load()
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(outage(&s.down, s.failRate))
	if s.limiter != nil {
		r.Use(s.limiter.Limit)
	}

	r.Get("/health", s.health)

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(s.token))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.list)
			r.Post("/", s.create)
			r.Get("/unread-count", s.unreadCount)
			r.Put("/read-all", s.markAllRead)
			r.Delete("/all", s.deleteAll)
			r.Get("/settings", s.preferences)
			r.Put("/settings", s.updatePreferences)
			r.Get("/{id}", s.get)
			r.Put("/{id}/read", s.markRead)
			r.Delete("/{id}", s.delete)
		})
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("notifications server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases background resources.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}
