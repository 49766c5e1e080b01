// Package jobs contains background workers.
package jobs

import (
	"context"
	"log/slog"
	"time"
)

// SessionStore is the part of storage.Store the cleanup job needs.
type SessionStore interface {
	ExpireSessions(ctx context.Context, now time.Time) (int, error)
	PurgeSessions(ctx context.Context, before time.Time) (int, error)
}

// SessionCleanup expires overdue sessions and purges old abandoned ones.
type SessionCleanup struct {
	store     SessionStore
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

// NewSessionCleanup creates a cleanup job that runs every interval and
// purges expired or closed sessions older than retention.
func NewSessionCleanup(store SessionStore, interval, retention time.Duration) *SessionCleanup {
	return &SessionCleanup{
		store:     store,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (c *SessionCleanup) Run(ctx context.Context) {
	slog.Info("Session cleanup started", "interval", c.interval, "retention", c.retention)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		c.RunOnce(ctx)

		select {
		case <-ctx.Done():
			slog.Info("Session cleanup stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single sweep. Failures are logged and retried on the
// next tick.
func (c *SessionCleanup) RunOnce(ctx context.Context) {
	now := c.now()

	expired, err := c.store.ExpireSessions(ctx, now)
	if err != nil {
		slog.Error("Failed to expire sessions", "error", err)
	} else if expired > 0 {
		slog.Info("Expired sessions", "count", expired)
	}

	purged, err := c.store.PurgeSessions(ctx, now.Add(-c.retention))
	if err != nil {
		slog.Error("Failed to purge sessions", "error", err)
	} else if purged > 0 {
		slog.Info("Purged sessions", "count", purged)
	}
}
