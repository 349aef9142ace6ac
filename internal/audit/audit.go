package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

// EventType defines the type of auditable event
type EventType string

const (
	EventSessionCreated              EventType = "SESSION_CREATED"
	EventLivenessVerified            EventType = "LIVENESS_VERIFIED"
	EventLivenessFailed              EventType = "LIVENESS_FAILED"
	EventSessionAuthenticated        EventType = "SESSION_AUTHENTICATED"
	EventSessionAuthenticationFailed EventType = "SESSION_AUTHENTICATION_FAILED"
	EventSessionEnded                EventType = "SESSION_ENDED"
	EventSessionExpired              EventType = "SESSION_EXPIRED"
	EventFaceDetected                EventType = "FACE_DETECTED"
)

var sessionEventTypes = map[domain.SessionEventType]EventType{
	domain.EventSessionCreated:              EventSessionCreated,
	domain.EventLivenessVerified:            EventLivenessVerified,
	domain.EventLivenessFailed:              EventLivenessFailed,
	domain.EventSessionAuthenticated:        EventSessionAuthenticated,
	domain.EventSessionAuthenticationFailed: EventSessionAuthenticationFailed,
	domain.EventSessionEnded:                EventSessionEnded,
	domain.EventSessionExpired:              EventSessionExpired,
}

// Event represents an audit record. Subject references are masked before
// they reach the log.
type Event struct {
	ID               uuid.UUID         `json:"id"`
	Timestamp        time.Time         `json:"timestamp"`
	EventType        EventType         `json:"event_type"`
	SessionID        string            `json:"session_id,omitempty"`
	SubjectReference string            `json:"subject_reference,omitempty"`
	ChallengeType    string            `json:"challenge_type,omitempty"`
	Source           string            `json:"source"`
	Success          bool              `json:"success"`
	Error            string            `json:"error,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	IPAddress        string            `json:"ip_address,omitempty"`
	UserAgent        string            `json:"user_agent,omitempty"`
}

// FromSessionEvent converts a lifecycle event into an audit record.
func FromSessionEvent(e domain.SessionEvent) Event {
	eventType, ok := sessionEventTypes[e.Type]
	if !ok {
		eventType = EventType(e.Type)
	}

	event := Event{
		Timestamp:        e.Timestamp,
		EventType:        eventType,
		SessionID:        e.SessionID,
		SubjectReference: e.SubjectReference,
		ChallengeType:    string(e.ChallengeType),
		Source:           "session",
		Success:          e.Type != domain.EventLivenessFailed && e.Type != domain.EventSessionAuthenticationFailed,
		Metadata:         map[string]string{"status": string(e.Status)},
	}
	if e.Attempt > 0 {
		event.Metadata["attempt"] = strconv.Itoa(e.Attempt)
	}
	if e.Confidence > 0 {
		event.Metadata["confidence"] = strconv.FormatFloat(e.Confidence, 'f', 4, 64)
	}
	return event
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event) error
}

// SlogLogger implements Logger using slog
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a new audit logger using slog
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With("component", "audit"),
	}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.SubjectReference != "" {
		event.SubjectReference = domain.MaskSubjectReference(event.SubjectReference)
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to marshal audit event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(event.EventType)),
		)
		return err
	}

	l.logger.InfoContext(ctx, "audit_event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.String("session_id", event.SessionID),
		slog.String("source", event.Source),
		slog.Bool("success", event.Success),
		slog.String("event_data", string(eventJSON)),
	)

	return nil
}

// Publish records a session lifecycle event.
func (l *SlogLogger) Publish(ctx context.Context, e domain.SessionEvent) {
	_ = l.Log(ctx, FromSessionEvent(e))
}

// NoOpLogger is a logger that does nothing (for testing or when audit is disabled)
type NoOpLogger struct{}

// Log does nothing and returns nil
func (l *NoOpLogger) Log(_ context.Context, _ Event) error {
	return nil
}

// Publish does nothing
func (l *NoOpLogger) Publish(_ context.Context, _ domain.SessionEvent) {}
