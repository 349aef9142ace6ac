package domain

import (
	"time"
)

// SessionStatus is a state of the authentication session lifecycle.
type SessionStatus string

const (
	StatusCreated              SessionStatus = "created"
	StatusLivenessVerified     SessionStatus = "liveness_verified"
	StatusLivenessFailed       SessionStatus = "liveness_failed"
	StatusAuthenticated        SessionStatus = "authenticated"
	StatusAuthenticationFailed SessionStatus = "authentication_failed"
	StatusEnded                SessionStatus = "ended"
	StatusExpired              SessionStatus = "expired"
)

// IsTerminal reports whether no further mutation is allowed.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusEnded || s == StatusExpired
}

type SessionSteps struct {
	LivenessVerified  bool `json:"liveness_verified"`
	FaceAuthenticated bool `json:"face_authenticated"`
}

type SessionAttempts struct {
	Liveness       int `json:"liveness"`
	Authentication int `json:"authentication"`
}

// AuthenticationResult records the last authentication submission.
type AuthenticationResult struct {
	Score              float64   `json:"score"`
	QualityScore       float64   `json:"quality_score"`
	LivenessConfidence float64   `json:"liveness_confidence"`
	Authenticated      bool      `json:"authenticated"`
	Timestamp          time.Time `json:"timestamp"`
}

// Session is a time-boxed, multi-attempt authentication session.
type Session struct {
	ID               string                `json:"id"`
	SubjectReference string                `json:"subject_reference"`
	ChallengeType    ChallengeType         `json:"challenge_type"`
	Status           SessionStatus         `json:"status"`
	Steps            SessionSteps          `json:"steps"`
	Attempts         SessionAttempts       `json:"attempts"`
	MaxAttempts      int                   `json:"max_attempts"`
	LivenessResult   *LivenessResult       `json:"liveness_result,omitempty"`
	Authentication   *AuthenticationResult `json:"authentication,omitempty"`
	AuthToken        string                `json:"auth_token,omitempty"`
	ValidUntil       *time.Time            `json:"valid_until,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	ExpiresAt        time.Time             `json:"expires_at"`
}

// IsExpiredAt checks if the session TTL has passed at now
func (s *Session) IsExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// LivenessAttemptsRemaining returns how many liveness submissions are left.
func (s *Session) LivenessAttemptsRemaining() int {
	return max(0, s.MaxAttempts-s.Attempts.Liveness)
}

// AuthenticationAttemptsRemaining returns how many authentication
// submissions are left.
func (s *Session) AuthenticationAttemptsRemaining() int {
	return max(0, s.MaxAttempts-s.Attempts.Authentication)
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.LivenessResult = s.LivenessResult.Clone()
	if s.Authentication != nil {
		a := *s.Authentication
		c.Authentication = &a
	}
	if s.ValidUntil != nil {
		v := *s.ValidUntil
		c.ValidUntil = &v
	}
	return &c
}

// PublicSessionView is the read-only projection returned to clients. It
// never carries the bearer token or raw biometric data.
type PublicSessionView struct {
	SessionID      string                `json:"session_id"`
	Status         SessionStatus         `json:"status"`
	ChallengeType  ChallengeType         `json:"challenge_type"`
	Instructions   Instructions          `json:"instructions"`
	Steps          SessionSteps          `json:"steps"`
	Attempts       SessionAttempts       `json:"attempts"`
	MaxAttempts    int                   `json:"max_attempts"`
	LivenessResult *LivenessSummary      `json:"liveness_result,omitempty"`
	Authentication *AuthenticationResult `json:"authentication,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	ExpiresAt      time.Time             `json:"expires_at"`
	ValidUntil     *time.Time            `json:"valid_until,omitempty"`
}

// LivenessSummary is the verdict part of a LivenessResult, without metrics.
type LivenessSummary struct {
	IsLive     bool    `json:"is_live"`
	Confidence float64 `json:"confidence"`
}

// PublicView builds the client projection of the session.
func (s *Session) PublicView() *PublicSessionView {
	v := &PublicSessionView{
		SessionID:     s.ID,
		Status:        s.Status,
		ChallengeType: s.ChallengeType,
		Instructions:  InstructionsFor(s.ChallengeType),
		Steps:         s.Steps,
		Attempts:      s.Attempts,
		MaxAttempts:   s.MaxAttempts,
		CreatedAt:     s.CreatedAt,
		ExpiresAt:     s.ExpiresAt,
	}
	if s.LivenessResult != nil {
		v.LivenessResult = &LivenessSummary{
			IsLive:     s.LivenessResult.IsLive,
			Confidence: s.LivenessResult.Confidence,
		}
	}
	if s.Authentication != nil {
		a := *s.Authentication
		v.Authentication = &a
	}
	if s.ValidUntil != nil {
		t := *s.ValidUntil
		v.ValidUntil = &t
	}
	return v
}

// NextStep values returned after a liveness submission.
const (
	NextStepFaceAuthentication = "face_authentication"
	NextStepRetryLiveness      = "retry_liveness"
)

// LivenessOutcome is returned by a liveness submission.
type LivenessOutcome struct {
	SessionID         string          `json:"session_id"`
	Result            *LivenessResult `json:"result"`
	Status            SessionStatus   `json:"status"`
	NextStep          string          `json:"next_step"`
	AttemptsRemaining int             `json:"attempts_remaining"`
}

// AuthDecision is returned by an authentication submission.
type AuthDecision struct {
	SessionID          string     `json:"session_id"`
	IsAuthenticated    bool       `json:"is_authenticated"`
	Score              float64    `json:"score"`
	QualityScore       float64    `json:"quality_score"`
	LivenessConfidence float64    `json:"liveness_confidence"`
	Token              string     `json:"token,omitempty"`
	ValidUntil         *time.Time `json:"valid_until,omitempty"`
	AttemptsRemaining  int        `json:"attempts_remaining"`
	Recommendations    []string   `json:"recommendations,omitempty"`
}

// SessionStats summarises the sessions currently held by a store.
type SessionStats struct {
	Total         int `json:"total"`
	Active        int `json:"active"`
	Expired       int `json:"expired"`
	Authenticated int `json:"authenticated"`
	Failed        int `json:"failed"`
}

// Count adds one session to the totals. Every session is either active or
// expired; authenticated and failed are tallied independently of expiry.
func (st *SessionStats) Count(s *Session, now time.Time) {
	st.Total++
	if s.IsExpiredAt(now) {
		st.Expired++
	} else {
		st.Active++
	}
	switch s.Status {
	case StatusAuthenticated:
		st.Authenticated++
	case StatusLivenessFailed, StatusAuthenticationFailed:
		st.Failed++
	}
}

// SessionEventType names a lifecycle transition broadcast to event sinks.
type SessionEventType string

const (
	EventSessionCreated              SessionEventType = "session.created"
	EventLivenessVerified            SessionEventType = "session.liveness_verified"
	EventLivenessFailed              SessionEventType = "session.liveness_failed"
	EventSessionAuthenticated        SessionEventType = "session.authenticated"
	EventSessionAuthenticationFailed SessionEventType = "session.authentication_failed"
	EventSessionEnded                SessionEventType = "session.ended"
	EventSessionExpired              SessionEventType = "session.expired"
)

// SessionEvent is a lifecycle notification. It carries no token and no
// biometric data.
type SessionEvent struct {
	Type             SessionEventType `json:"type"`
	SessionID        string           `json:"session_id"`
	SubjectReference string           `json:"subject_reference,omitempty"`
	ChallengeType    ChallengeType    `json:"challenge_type,omitempty"`
	Status           SessionStatus    `json:"status"`
	Confidence       float64          `json:"confidence,omitempty"`
	Attempt          int              `json:"attempt,omitempty"`
	Timestamp        time.Time        `json:"timestamp"`
}
