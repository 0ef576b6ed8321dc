package cache

import (
	"context"
	"errors"

	"github.com/colonyops/inbox/internal/core/kv"
	"github.com/colonyops/inbox/internal/core/notification"
)

// Preferences returns the stored preferences layered over the defaults, or
// the defaults when nothing is stored.
func (c *Cache) Preferences() notification.Preferences {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preferencesLocked()
}

// UpdatePreferences merges patch over the current preferences (default, then
// stored, then patch), persists the result, and returns it. The patch is
// assumed to be valid.
func (c *Cache) UpdatePreferences(patch notification.PreferencesPatch) notification.Preferences {
	c.mu.Lock()
	defer c.mu.Unlock()

	merged := notification.Merge(c.preferencesLocked(), patch)
	c.prefs = &merged

	ctx, cancel := context.WithTimeout(context.Background(), c.opTimeout)
	defer cancel()
	if err := c.prefsKV.Set(ctx, keyPreferences, merged); err != nil {
		c.report(OpSavePreferences, c.prefsKV.Key(keyPreferences), err)
	}

	return merged.Clone()
}

func (c *Cache) preferencesLocked() notification.Preferences {
	if c.prefs == nil {
		return notification.DefaultPreferences()
	}
	return notification.Resolve(*c.prefs)
}

// loadPreferences reads stored preferences. A nil result with ok true means
// none are stored (or they were corrupt); ok is false when the store failed.
func (c *Cache) loadPreferences(ctx context.Context) (*notification.Preferences, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	prefs, err := c.prefsKV.Get(ctx, keyPreferences)
	switch {
	case err == nil:
		return &prefs, true
	case errors.Is(err, kv.ErrNotFound):
		return nil, true
	case errors.Is(err, kv.ErrCorrupt):
		c.report(OpLoadPreferences, c.prefsKV.Key(keyPreferences), err)
		return nil, true
	default:
		c.report(OpLoadPreferences, c.prefsKV.Key(keyPreferences), err)
		return nil, false
	}
}
