package webhook

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Worker struct {
	service    *Service
	logger     *slog.Logger
	newBackOff func() backoff.BackOff
}

// NewWorker creates a delivery worker. Retries back off exponentially from
// one second.
func NewWorker(service *Service, logger *slog.Logger) *Worker {
	return &Worker{
		service: service,
		logger:  logger.With("component", "webhook_worker"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.Multiplier = 2
			b.MaxInterval = time.Minute
			b.MaxElapsedTime = 0
			return b
		},
	}
}

func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("webhook worker started", "max_attempts", w.service.cfg.MaxAttempts)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("webhook worker stopped", "pending", len(w.service.queue))
			return
		case job := <-w.service.queue:
			w.processJob(ctx, job)
		}
	}
}

func (w *Worker) processJob(ctx context.Context, job Job) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(w.newBackOff(), uint64(w.service.cfg.MaxAttempts-1)),
		ctx,
	)

	operation := func() error {
		job.Attempts++
		return w.service.Send(ctx, job)
	}

	notify := func(err error, next time.Duration) {
		w.logger.Info("webhook job scheduled for retry",
			"job_id", job.ID,
			"attempts", job.Attempts,
			"next_retry", next,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		w.markFailed(job, err)
		return
	}
	w.markComplete(job)
}

func (w *Worker) markComplete(job Job) {
	w.logger.Info("webhook job completed",
		"job_id", job.ID,
		"event_type", job.EventType,
		"attempts", job.Attempts,
	)
}

func (w *Worker) markFailed(job Job, err error) {
	w.logger.Warn("webhook job failed",
		"job_id", job.ID,
		"event_type", job.EventType,
		"attempts", job.Attempts,
		"error", err,
	)
}
