package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/livegate/internal/decision"
	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/livegate/internal/quality"
	"github.com/saturnino-fabrica-de-software/livegate/internal/token"
)

const (
	defaultSessionTTL    = 10 * time.Minute
	defaultMaxAttempts   = 3
	defaultTokenValidity = time.Hour
)

// SessionRepositoryInterface persists sessions. Update must run fn under a
// per-session lock (or transaction) and persist the mutated copy only when
// fn returns nil.
type SessionRepositoryInterface interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Update(ctx context.Context, id string, fn func(*domain.Session) error) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)
	Stats(ctx context.Context, now time.Time) (domain.SessionStats, error)
}

// LivenessEvaluator dispatches frames to the evaluator of a challenge.
type LivenessEvaluator interface {
	Evaluate(ct domain.ChallengeType, frames []domain.Frame) (*domain.LivenessResult, error)
}

// QualityAssessor scores the reference capture.
type QualityAssessor interface {
	Assess(face *domain.FaceObservation, img domain.ImageQuality) quality.Assessment
}

// TokenIssuer mints bearer tokens for authenticated sessions.
type TokenIssuer interface {
	Issue(g token.Grant) (string, error)
}

// EventSink receives session lifecycle events. Publish must not block.
type EventSink interface {
	Publish(ctx context.Context, event domain.SessionEvent)
}

// ChallengePicker chooses the challenge of a new session.
type ChallengePicker func() domain.ChallengeType

// NewChallengePicker returns a picker for mode: "random" draws uniformly
// from the session challenges, anything else must name a fixed challenge.
func NewChallengePicker(mode string) (ChallengePicker, error) {
	if mode == "" || mode == "random" {
		return func() domain.ChallengeType {
			return domain.SessionChallenges[rand.IntN(len(domain.SessionChallenges))]
		}, nil
	}

	ct, err := domain.ParseChallengeType(mode)
	if err != nil || !ct.IsSessionChallenge() {
		return nil, domain.ErrInvalidChallengeType.WithError(fmt.Errorf("challenge mode %q", mode))
	}
	return func() domain.ChallengeType { return ct }, nil
}

type SessionConfig struct {
	TTL           time.Duration
	MaxAttempts   int
	TokenValidity time.Duration
	SubjectFormat domain.SubjectFormat
	SweepOnCreate bool
}

type CreateSessionInput struct {
	SessionID        string
	SubjectReference string
}

type SessionService struct {
	repo      SessionRepositoryInterface
	evaluator LivenessEvaluator
	quality   QualityAssessor
	policy    decision.Policy
	tokens    TokenIssuer
	cfg       SessionConfig

	sinks  []EventSink
	logger *slog.Logger
	pick   ChallengePicker
	now    func() time.Time
	newID  func() string
}

// SessionOption defines optional configuration for SessionService
type SessionOption func(*SessionService)

// WithEventSinks adds receivers for lifecycle events.
func WithEventSinks(sinks ...EventSink) SessionOption {
	return func(s *SessionService) {
		s.sinks = append(s.sinks, sinks...)
	}
}

func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *SessionService) {
		s.logger = logger
	}
}

func WithChallengePicker(pick ChallengePicker) SessionOption {
	return func(s *SessionService) {
		s.pick = pick
	}
}

func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionService) {
		s.now = now
	}
}

func WithIDGenerator(newID func() string) SessionOption {
	return func(s *SessionService) {
		s.newID = newID
	}
}

func NewSessionService(
	repo SessionRepositoryInterface,
	evaluator LivenessEvaluator,
	assessor QualityAssessor,
	policy decision.Policy,
	tokens TokenIssuer,
	cfg SessionConfig,
	opts ...SessionOption,
) *SessionService {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultSessionTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.TokenValidity <= 0 {
		cfg.TokenValidity = defaultTokenValidity
	}

	random, _ := NewChallengePicker("random")
	s := &SessionService{
		repo:      repo,
		evaluator: evaluator,
		quality:   assessor,
		policy:    policy,
		tokens:    tokens,
		cfg:       cfg,
		logger:    slog.New(slog.DiscardHandler),
		pick:      random,
		now:       time.Now,
		newID:     uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("component", "session")
	return s
}

// CreateSession starts a new authentication session for a subject.
func (s *SessionService) CreateSession(ctx context.Context, in CreateSessionInput) (*domain.Session, error) {
	// 1. Validate input
	subject, err := domain.NormalizeSubjectReference(in.SubjectReference, s.cfg.SubjectFormat)
	if err != nil {
		return nil, err
	}

	id := in.SessionID
	if id == "" {
		id = s.newID()
	} else if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("session_id must be a UUID"))
	}

	// 2. Opportunistic sweep
	if s.cfg.SweepOnCreate {
		if _, err := s.SweepExpired(ctx); err != nil {
			s.logger.WarnContext(ctx, "sweep on create failed", "error", err)
		}
	}

	// 3. Create session
	now := s.now().UTC()
	session := &domain.Session{
		ID:               id,
		SubjectReference: subject,
		ChallengeType:    s.pick(),
		Status:           domain.StatusCreated,
		MaxAttempts:      s.cfg.MaxAttempts,
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.cfg.TTL),
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("session %s: create: %w", id, err)
	}

	s.logger.InfoContext(ctx, "session created",
		"session_id", id,
		"challenge_type", session.ChallengeType,
		"expires_at", session.ExpiresAt,
	)
	s.publish(ctx, session, domain.EventSessionCreated, 0, 0)

	return session, nil
}

// SubmitLiveness evaluates the frames against the session challenge. Input
// that cannot be evaluated is rejected before the attempt counter moves;
// every evaluated submission consumes one attempt.
func (s *SessionService) SubmitLiveness(ctx context.Context, id string, frames []domain.Frame) (*domain.LivenessOutcome, error) {
	var snapshot domain.Session

	updated, err := s.repo.Update(ctx, id, func(sess *domain.Session) error {
		snapshot = *sess

		// 1. Lifecycle guards
		if sess.IsExpiredAt(s.now()) {
			return domain.ErrSessionExpired
		}
		if sess.Status == domain.StatusAuthenticated {
			return domain.ErrSessionAlreadyAuthenticated
		}
		if sess.Steps.LivenessVerified {
			return domain.ErrLivenessAlreadyVerified
		}
		if sess.Attempts.Liveness >= sess.MaxAttempts {
			return domain.ErrLivenessAttemptsExceeded
		}

		// 2. Validate input
		if need := sess.ChallengeType.MinFrames(); len(frames) < need {
			return domain.ErrInsufficientData.WithError(
				fmt.Errorf("%s challenge needs at least %d frames, got %d", sess.ChallengeType, need, len(frames)),
			)
		}

		// 3. Evaluate
		result, err := s.evaluator.Evaluate(sess.ChallengeType, frames)
		if err != nil {
			return err
		}

		// 4. Record
		sess.Attempts.Liveness++
		sess.LivenessResult = result
		sess.Steps.LivenessVerified = result.IsLive
		if result.IsLive {
			sess.Status = domain.StatusLivenessVerified
		} else {
			sess.Status = domain.StatusLivenessFailed
		}
		return nil
	})
	if err != nil {
		return nil, s.handleUpdateError(ctx, id, &snapshot, "submit liveness", err)
	}

	outcome := &domain.LivenessOutcome{
		SessionID:         updated.ID,
		Result:            updated.LivenessResult,
		Status:            updated.Status,
		NextStep:          domain.NextStepRetryLiveness,
		AttemptsRemaining: updated.LivenessAttemptsRemaining(),
	}
	eventType := domain.EventLivenessFailed
	if updated.Steps.LivenessVerified {
		outcome.NextStep = domain.NextStepFaceAuthentication
		eventType = domain.EventLivenessVerified
	}

	s.logger.InfoContext(ctx, "liveness evaluated",
		"session_id", id,
		"challenge_type", updated.ChallengeType,
		"is_live", updated.LivenessResult.IsLive,
		"confidence", updated.LivenessResult.Confidence,
		"attempt", updated.Attempts.Liveness,
	)
	s.publish(ctx, updated, eventType, updated.LivenessResult.Confidence, updated.Attempts.Liveness)

	return outcome, nil
}

// SubmitAuthentication fuses the reference capture quality with the prior
// liveness confidence and issues a bearer token on success.
func (s *SessionService) SubmitAuthentication(ctx context.Context, id string, capture domain.ReferenceCapture) (*domain.AuthDecision, error) {
	var (
		snapshot   domain.Session
		assessment quality.Assessment
	)

	updated, err := s.repo.Update(ctx, id, func(sess *domain.Session) error {
		snapshot = *sess
		now := s.now().UTC()

		// 1. Lifecycle guards
		if sess.IsExpiredAt(now) {
			return domain.ErrSessionExpired
		}
		if sess.Status == domain.StatusAuthenticated {
			return domain.ErrSessionAlreadyAuthenticated
		}
		if !sess.Steps.LivenessVerified || sess.LivenessResult == nil {
			return domain.ErrLivenessRequired
		}
		if sess.Attempts.Authentication >= sess.MaxAttempts {
			return domain.ErrAuthenticationAttemptsExceeded
		}

		// 2. Validate input
		if capture.Face == nil {
			return domain.ErrNoFaceDetected
		}

		// 3. Score and decide
		assessment = s.quality.Assess(capture.Face, capture.Quality)
		livenessConfidence := sess.LivenessResult.Confidence
		d := s.policy.Decide(assessment.Score, livenessConfidence)

		result := &domain.AuthenticationResult{
			Score:              d.Score,
			QualityScore:       assessment.Score,
			LivenessConfidence: livenessConfidence,
			Authenticated:      d.Authenticated,
			Timestamp:          now,
		}

		// 4. Issue token
		if d.Authenticated {
			validUntil := now.Add(s.cfg.TokenValidity)
			tok, err := s.tokens.Issue(token.Grant{
				SessionID:        sess.ID,
				SubjectReference: sess.SubjectReference,
				ChallengeType:    string(sess.ChallengeType),
				Score:            d.Score,
				ValidUntil:       validUntil,
			})
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			sess.AuthToken = tok
			sess.ValidUntil = &validUntil
			sess.Steps.FaceAuthenticated = true
			sess.Status = domain.StatusAuthenticated
		} else {
			sess.Status = domain.StatusAuthenticationFailed
		}

		sess.Attempts.Authentication++
		sess.Authentication = result
		return nil
	})
	if err != nil {
		return nil, s.handleUpdateError(ctx, id, &snapshot, "submit authentication", err)
	}

	auth := updated.Authentication
	out := &domain.AuthDecision{
		SessionID:          updated.ID,
		IsAuthenticated:    auth.Authenticated,
		Score:              auth.Score,
		QualityScore:       auth.QualityScore,
		LivenessConfidence: auth.LivenessConfidence,
		AttemptsRemaining:  updated.AuthenticationAttemptsRemaining(),
		Recommendations:    assessment.Recommendations,
	}
	eventType := domain.EventSessionAuthenticationFailed
	if auth.Authenticated {
		out.Token = updated.AuthToken
		out.ValidUntil = updated.ValidUntil
		eventType = domain.EventSessionAuthenticated
	}

	s.logger.InfoContext(ctx, "authentication evaluated",
		"session_id", id,
		"authenticated", auth.Authenticated,
		"score", auth.Score,
		"attempt", updated.Attempts.Authentication,
	)
	s.publish(ctx, updated, eventType, auth.Score, updated.Attempts.Authentication)

	return out, nil
}

// GetStatus returns the public projection of a session.
func (s *SessionService) GetStatus(ctx context.Context, id string) (*domain.PublicSessionView, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session %s: get status: %w", id, err)
	}

	if session.IsExpiredAt(s.now()) {
		s.expire(ctx, session)
		return nil, fmt.Errorf("session %s: get status: %w", id, domain.ErrSessionExpired)
	}

	return session.PublicView(), nil
}

// EndSession deletes the session whatever its status. Ending an unknown
// session is not an error.
func (s *SessionService) EndSession(ctx context.Context, id string) error {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("session %s: end: %w", id, err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("session %s: end: %w", id, err)
	}

	s.logger.InfoContext(ctx, "session ended", "session_id", id, "status", session.Status)
	session.Status = domain.StatusEnded
	s.publish(ctx, session, domain.EventSessionEnded, 0, 0)
	return nil
}

// SweepExpired deletes every session whose TTL has passed.
func (s *SessionService) SweepExpired(ctx context.Context) (int64, error) {
	ids, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep expired sessions: %w", err)
	}

	for _, id := range ids {
		s.publish(ctx, &domain.Session{ID: id}, domain.EventSessionExpired, 0, 0)
	}
	if len(ids) > 0 {
		s.logger.InfoContext(ctx, "expired sessions swept", "count", len(ids))
	}

	return int64(len(ids)), nil
}

// Stats summarises the sessions currently stored.
func (s *SessionService) Stats(ctx context.Context) (domain.SessionStats, error) {
	stats, err := s.repo.Stats(ctx, s.now())
	if err != nil {
		return domain.SessionStats{}, fmt.Errorf("session stats: %w", err)
	}
	return stats, nil
}

// handleUpdateError deletes sessions found expired and wraps err.
func (s *SessionService) handleUpdateError(ctx context.Context, id string, snapshot *domain.Session, op string, err error) error {
	if errors.Is(err, domain.ErrSessionExpired) {
		s.expire(ctx, snapshot)
	}
	return fmt.Errorf("session %s: %s: %w", id, op, err)
}

func (s *SessionService) expire(ctx context.Context, session *domain.Session) {
	if err := s.repo.Delete(ctx, session.ID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		s.logger.ErrorContext(ctx, "failed to delete expired session", "session_id", session.ID, "error", err)
		return
	}

	s.logger.InfoContext(ctx, "session expired", "session_id", session.ID)
	expired := *session
	expired.Status = domain.StatusExpired
	s.publish(ctx, &expired, domain.EventSessionExpired, 0, 0)
}

func (s *SessionService) publish(ctx context.Context, session *domain.Session, eventType domain.SessionEventType, confidence float64, attempt int) {
	if len(s.sinks) == 0 {
		return
	}

	event := domain.SessionEvent{
		Type:             eventType,
		SessionID:        session.ID,
		SubjectReference: session.SubjectReference,
		ChallengeType:    session.ChallengeType,
		Status:           session.Status,
		Confidence:       confidence,
		Attempt:          attempt,
		Timestamp:        s.now().UTC(),
	}
	if eventType == domain.EventSessionExpired {
		event.Status = domain.StatusExpired
	}

	for _, sink := range s.sinks {
		sink.Publish(ctx, event)
	}
}
