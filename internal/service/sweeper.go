package service

import (
	"context"
	"log/slog"
	"time"
)

// ExpirySweeper is the part of SessionService the sweeper drives.
type ExpirySweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Sweeper removes expired sessions periodically
type Sweeper struct {
	sessions ExpirySweeper
	logger   *slog.Logger
	interval time.Duration
}

// NewSweeper creates a new expiry sweeper
func NewSweeper(sessions ExpirySweeper, logger *slog.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		logger:   logger,
		interval: interval,
	}
}

// Run starts the sweeper loop
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("session sweeper started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Sweeper) sweep(ctx context.Context) {
	removed, err := w.sessions.SweepExpired(ctx)
	if err != nil {
		w.logger.Error("failed to sweep expired sessions", "error", err)
		return
	}

	w.logger.Debug("session sweep completed", "removed", removed)
}
