package ws

import (
	"time"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

// Event is the message pushed to clients watching a session.
type Event struct {
	SessionID string                  `json:"session_id"`
	Type      domain.SessionEventType `json:"type"`
	Status    domain.SessionStatus    `json:"status"`
	Data      *EventData              `json:"data,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

type EventData struct {
	Confidence float64 `json:"confidence,omitempty"`
	Attempt    int     `json:"attempt,omitempty"`
}

func eventFromSession(e domain.SessionEvent) Event {
	event := Event{
		SessionID: e.SessionID,
		Type:      e.Type,
		Status:    e.Status,
		Timestamp: e.Timestamp,
	}
	if e.Confidence > 0 || e.Attempt > 0 {
		event.Data = &EventData{Confidence: e.Confidence, Attempt: e.Attempt}
	}
	return event
}

// closesStream reports whether no further events can follow.
func closesStream(t domain.SessionEventType) bool {
	return t == domain.EventSessionEnded || t == domain.EventSessionExpired
}
