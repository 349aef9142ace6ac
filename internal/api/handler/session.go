package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/livegate/internal/service"
	"github.com/saturnino-fabrica-de-software/livegate/internal/token"
)

// SessionService is the session state machine as seen by the HTTP layer.
type SessionService interface {
	CreateSession(ctx context.Context, in service.CreateSessionInput) (*domain.Session, error)
	SubmitLiveness(ctx context.Context, id string, frames []domain.Frame) (*domain.LivenessOutcome, error)
	SubmitAuthentication(ctx context.Context, id string, capture domain.ReferenceCapture) (*domain.AuthDecision, error)
	GetStatus(ctx context.Context, id string) (*domain.PublicSessionView, error)
	EndSession(ctx context.Context, id string) error
	Stats(ctx context.Context) (domain.SessionStats, error)
}

// TokenValidator checks bearer tokens issued after authentication.
type TokenValidator interface {
	Validate(tokenString string) (*token.Claims, error)
}

// SessionHandler serves the /v1/auth routes.
type SessionHandler struct {
	service SessionService
	tokens  TokenValidator
	locator FaceLocator
	logger  *slog.Logger
}

func NewSessionHandler(service SessionService, tokens TokenValidator, locator FaceLocator, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		tokens:  tokens,
		locator: locator,
		logger:  logger,
	}
}

// StartSessionRequest body for start-session
type StartSessionRequest struct {
	SessionID        string `json:"session_id" validate:"omitempty,max=128,session_id"`
	SubjectReference string `json:"subject_reference" validate:"max=256"`
}

// SubmitLivenessRequest body for submit-liveness
type SubmitLivenessRequest struct {
	SessionID string         `json:"session_id" validate:"required,max=128"`
	Frames    []domain.Frame `json:"frames" validate:"max=300"`
}

// ImageQualityInput is the image metadata a client measured itself.
type ImageQualityInput struct {
	Brightness float64 `json:"brightness" validate:"gte=0,lte=1"`
	Sharpness  float64 `json:"sharpness" validate:"gte=0,lte=1"`
	Width      int     `json:"width" validate:"gte=0"`
	Height     int     `json:"height" validate:"gte=0"`
}

func (q ImageQualityInput) toDomain() domain.ImageQuality {
	return domain.ImageQuality{
		Brightness: q.Brightness,
		Sharpness:  q.Sharpness,
		Width:      q.Width,
		Height:     q.Height,
	}
}

// CompleteRequest body for complete when sent as JSON
type CompleteRequest struct {
	SessionID string                  `json:"session_id" validate:"required,max=128"`
	Face      *domain.FaceObservation `json:"face"`
	Quality   ImageQualityInput       `json:"quality"`
}

// VerifyTokenRequest body for verify-token
type VerifyTokenRequest struct {
	Token string `json:"token"`
}

// VerifyTokenResponse response for verify-token
type VerifyTokenResponse struct {
	Valid         bool      `json:"valid"`
	SessionID     string    `json:"session_id"`
	SubjectDigest string    `json:"subject_digest"`
	ChallengeType string    `json:"challenge_type"`
	Score         float64   `json:"score"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// StartSession POST /v1/auth/start-session
func (h *SessionHandler) StartSession(c *fiber.Ctx) error {
	var req StartSessionRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	session, err := h.service.CreateSession(c.UserContext(), service.CreateSessionInput{
		SessionID:        req.SessionID,
		SubjectReference: req.SubjectReference,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(session.PublicView())
}

// SubmitLiveness POST /v1/auth/submit-liveness
func (h *SessionHandler) SubmitLiveness(c *fiber.Ctx) error {
	var req SubmitLivenessRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	outcome, err := h.service.SubmitLiveness(c.UserContext(), req.SessionID, req.Frames)
	if err != nil {
		return err
	}

	return c.JSON(outcome)
}

// Complete POST /v1/auth/complete. A JSON body carries the capture
// metadata; a multipart body carries session_id and an image that is run
// through the face locator.
func (h *SessionHandler) Complete(c *fiber.Ctx) error {
	var (
		sessionID string
		capture   domain.ReferenceCapture
	)

	if isMultipart(c) {
		sessionID = strings.TrimSpace(c.FormValue("session_id"))
		if sessionID == "" {
			return domain.ErrValidationFailed.WithError(errors.New("session_id is required"))
		}
		var err error
		capture, err = h.captureFromImage(c)
		if err != nil {
			return err
		}
	} else {
		var req CompleteRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		sessionID = req.SessionID
		capture = domain.ReferenceCapture{Face: req.Face, Quality: req.Quality.toDomain()}
	}

	decision, err := h.service.SubmitAuthentication(c.UserContext(), sessionID, capture)
	if err != nil {
		return err
	}

	return c.JSON(decision)
}

func (h *SessionHandler) captureFromImage(c *fiber.Ctx) (domain.ReferenceCapture, error) {
	if h.locator == nil {
		return domain.ReferenceCapture{}, domain.ErrLocatorUnavailable
	}

	imageBytes, err := extractAndValidateImage(c)
	if err != nil {
		return domain.ReferenceCapture{}, err
	}

	faces, quality, err := h.locator.Detect(c.UserContext(), imageBytes)
	if err != nil {
		return domain.ReferenceCapture{}, err
	}

	return domain.ReferenceCapture{Face: largestFace(faces), Quality: quality}, nil
}

// GetSession GET /v1/auth/session/:id
func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	view, err := h.service.GetStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// EndSession DELETE /v1/auth/session/:id
func (h *SessionHandler) EndSession(c *fiber.Ctx) error {
	if err := h.service.EndSession(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RequireSession lets the request through only when the :id session is
// live. Used in front of the event stream upgrade.
func (h *SessionHandler) RequireSession(c *fiber.Ctx) error {
	if _, err := h.service.GetStatus(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.Next()
}

// VerifyToken POST /v1/auth/verify-token. The token comes from the body or
// an Authorization bearer header.
func (h *SessionHandler) VerifyToken(c *fiber.Ctx) error {
	var req VerifyTokenRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return domain.ErrBadRequest.WithError(err)
		}
	}
	raw := strings.TrimSpace(req.Token)
	if raw == "" {
		raw = strings.TrimSpace(strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "))
	}
	if raw == "" {
		return domain.ErrValidationFailed.WithError(errors.New("token is required"))
	}

	claims, err := h.tokens.Validate(raw)
	if err != nil {
		return domain.ErrUnauthorized.WithError(err)
	}

	resp := VerifyTokenResponse{
		Valid:         true,
		SessionID:     claims.SessionID,
		SubjectDigest: claims.SubjectDigest,
		ChallengeType: claims.ChallengeType,
		Score:         claims.Score,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}
	return c.JSON(resp)
}

// Stats GET /v1/auth/stats
func (h *SessionHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}
