package inbox

import (
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for transitions and sync failures.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithSeeding toggles sample seeding on the first list fallback.
func WithSeeding(enabled bool) Option {
	return func(s *Service) { s.seed = enabled }
}

// WithSyncTimeout bounds each background create push.
func WithSyncTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.syncTimeout = d
		}
	}
}

// WithClock sets the time source used for sample timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}
