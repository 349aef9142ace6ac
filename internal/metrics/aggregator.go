package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

// StatsSource reports the sessions currently stored.
type StatsSource interface {
	Stats(ctx context.Context) (domain.SessionStats, error)
}

// Aggregator refreshes the session gauges periodically
type Aggregator struct {
	source   StatsSource
	recorder *Recorder
	logger   *slog.Logger
	interval time.Duration
	done     chan struct{}
}

// NewAggregator creates a new metrics aggregator worker
func NewAggregator(source StatsSource, recorder *Recorder, logger *slog.Logger, interval time.Duration) *Aggregator {
	if interval == 0 {
		interval = 30 * time.Second
	}

	return &Aggregator{
		source:   source,
		recorder: recorder,
		logger:   logger,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins the aggregation worker. The gauges are filled once before the
// first tick.
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("metrics aggregator started", "interval", a.interval)
	a.aggregate(ctx)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("metrics aggregator stopped")
			return
		case <-a.done:
			a.logger.Info("metrics aggregator stopped")
			return
		case <-ticker.C:
			a.aggregate(ctx)
		}
	}
}

// Stop gracefully shuts down the aggregator
func (a *Aggregator) Stop() {
	close(a.done)
}

func (a *Aggregator) aggregate(ctx context.Context) {
	stats, err := a.source.Stats(ctx)
	if err != nil {
		a.logger.Error("failed to collect session stats", "error", err)
		return
	}

	a.recorder.SetSessionStats(stats)
	a.logger.Debug("session stats aggregated", "total", stats.Total, "active", stats.Active)
}
