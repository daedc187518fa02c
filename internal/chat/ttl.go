package chat

import (
	"context"
	"time"

	"github.com/tabula-labs/tabula/internal/wallet"
)

// CleanupCallback is called for every session the sweeper drops, with the
// signer detached from it (nil when none was connected).
type CleanupCallback func(s *Session, signer wallet.Signer)

// StartSweeper runs a background goroutine that drops sessions idle for
// longer than ttl every interval until ctx is done.
func StartSweeper(ctx context.Context, r *Registry, ttl, interval time.Duration, onCleanup CleanupCallback) {
	if ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		r.logger.Info("Session sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				sweepOnce(r, ttl, onCleanup)
			case <-ctx.Done():
				r.logger.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepOnce(r *Registry, ttl time.Duration, onCleanup CleanupCallback) int {
	expired := r.Sweep(ttl)
	if len(expired) == 0 {
		return 0
	}
	for _, e := range expired {
		r.logger.Debug("Session sweeper dropped idle session",
			"user_id", e.Session.UserID,
			"session_id", e.Session.ID,
			"idle", time.Since(e.Session.LastActive()).Round(time.Second))
		if onCleanup != nil {
			onCleanup(e.Session, e.Signer)
		}
	}
	r.logger.Info("Session sweeper cleanup completed", "dropped", len(expired), "remaining", r.Len())
	return len(expired)
}
