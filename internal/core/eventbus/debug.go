package eventbus

import (
	"fmt"

	"github.com/rs/zerolog"
)

// RegisterDebugLogger registers hooks that log registry activity. Notifications
// and subscriptions log at debug level; listener panics log at error level.
func RegisterDebugLogger[T any](r *Registry[T], logger zerolog.Logger) {
	r.OnNotify(func(event Event, _ T, listeners int) {
		logger.Debug().Str("event", string(event)).Int("listeners", listeners).Msg("event fired")
	})

	r.OnSubscribe(func(event Event, listeners int) {
		logger.Debug().Str("event", string(event)).Int("listeners", listeners).Msg("listener subscribed")
	})

	r.OnPanic(func(event Event, _ T, recovered any) {
		logger.Error().
			Str("event", string(event)).
			Str("panic", fmt.Sprint(recovered)).
			Msg("listener panicked")
	})
}
