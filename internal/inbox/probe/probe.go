// Package probe brings a local-only inbox back to the remote service once the
// service answers its health check again.
package probe

import (
	"context"
	"time"

	"github.com/colonyops/inbox/internal/inbox"
	"github.com/rs/zerolog/log"
)

// Checker pings the remote liveness endpoint. *remote.Client implements it.
type Checker interface {
	Health(ctx context.Context) error
}

// Target is the part of the inbox service the probe drives.
type Target interface {
	Mode() inbox.Mode
	ResetBackendConnection()
}

// Start polls checker every interval while target is local only and resets
// the backend connection on the first successful ping. It blocks until the
// context is cancelled.
func Start(ctx context.Context, target Target, checker Checker, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			Once(ctx, target, checker, interval)
		}
	}
}

// Once runs a single probe and reports whether the connection was reset.
func Once(ctx context.Context, target Target, checker Checker, timeout time.Duration) bool {
	if target.Mode() != inbox.ModeLocalOnly {
		return false
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := checker.Health(pingCtx); err != nil {
		log.Debug().Err(err).Msg("health probe failed")
		return false
	}

	target.ResetBackendConnection()
	return true
}
