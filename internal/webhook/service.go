package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

const (
	defaultMaxAttempts = 5
	defaultTimeout     = 10 * time.Second
	queueSize          = 256
)

// Service signs and delivers session events to the configured endpoint.
// Publish only enqueues; a Worker performs the deliveries.
type Service struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
	queue  chan Job
	events map[string]bool
	now    func() time.Time
}

// Option defines optional configuration for Service
type Option func(*Service)

func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.client = client
	}
}

func NewService(cfg Config, logger *slog.Logger, opts ...Option) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	s := &Service{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With("component", "webhook"),
		queue:  make(chan Job, queueSize),
		events: make(map[string]bool, len(cfg.Events)),
		now:    time.Now,
	}
	for _, e := range cfg.Events {
		s.events[e] = true
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish enqueues a session event. Events are dropped when the queue is
// full.
func (s *Service) Publish(ctx context.Context, e domain.SessionEvent) {
	if len(s.events) > 0 && !s.events[string(e.Type)] {
		return
	}

	event := EventPayload{
		ID:   uuid.New(),
		Type: string(e.Type),
		Data: SessionData{
			SessionID:     e.SessionID,
			ChallengeType: string(e.ChallengeType),
			Status:        string(e.Status),
			Confidence:    e.Confidence,
			Attempt:       e.Attempt,
		},
		Timestamp: e.Timestamp,
	}
	if e.SubjectReference != "" {
		event.Data.SubjectReference = domain.MaskSubjectReference(e.SubjectReference)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to marshal webhook event", "error", err, "event_type", e.Type)
		return
	}

	if err := s.enqueue(Job{
		ID:        event.ID,
		EventType: event.Type,
		Payload:   payload,
		CreatedAt: s.now(),
	}); err != nil {
		s.logger.WarnContext(ctx, "webhook event dropped", "error", err, "event_type", e.Type, "session_id", e.SessionID)
	}
}

func (s *Service) enqueue(job Job) error {
	select {
	case s.queue <- job:
		return nil
	default:
		return fmt.Errorf("webhook queue full")
	}
}

// Send performs one delivery. Client errors other than 408 and 429 are
// permanent.
func (s *Service) Send(ctx context.Context, job Job) error {
	timestamp := s.now().Unix()
	signature := Sign(s.cfg.Secret, timestamp, job.Payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(job.Payload))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Livegate-Signature", signature)
	req.Header.Set("X-Livegate-Timestamp", strconv.FormatInt(timestamp, 10))
	req.Header.Set("X-Livegate-Event", job.EventType)
	req.Header.Set("X-Livegate-Delivery", job.ID.String())
	req.Header.Set("User-Agent", "Livegate-Webhook/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode >= 500:
		return fmt.Errorf("deliver webhook: HTTP %d", resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("deliver webhook: HTTP %d", resp.StatusCode))
	}
}
