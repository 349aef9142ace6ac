package webhook

import (
	"time"

	"github.com/google/uuid"
)

// Config describes the single webhook endpoint session events are sent to.
type Config struct {
	URL         string
	Secret      string
	Events      []string // empty means every event
	MaxAttempts int
	Timeout     time.Duration
}

type Job struct {
	ID        uuid.UUID `json:"id"`
	EventType string    `json:"event_type"`
	Payload   []byte    `json:"payload"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}

type EventPayload struct {
	ID        uuid.UUID   `json:"id"`
	Type      string      `json:"type"`
	Data      SessionData `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// SessionData is the public part of a session event. The subject reference
// is masked.
type SessionData struct {
	SessionID        string  `json:"session_id"`
	SubjectReference string  `json:"subject_reference,omitempty"`
	ChallengeType    string  `json:"challenge_type,omitempty"`
	Status           string  `json:"status"`
	Confidence       float64 `json:"confidence,omitempty"`
	Attempt          int     `json:"attempt,omitempty"`
}
