package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/livegate/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/livegate/internal/service"
	"github.com/saturnino-fabrica-de-software/livegate/internal/token"
)

// MockSessionService is a mock implementation of SessionService
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) CreateSession(ctx context.Context, in service.CreateSessionInput) (*domain.Session, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionService) SubmitLiveness(ctx context.Context, id string, frames []domain.Frame) (*domain.LivenessOutcome, error) {
	args := m.Called(ctx, id, frames)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LivenessOutcome), args.Error(1)
}

func (m *MockSessionService) SubmitAuthentication(ctx context.Context, id string, capture domain.ReferenceCapture) (*domain.AuthDecision, error) {
	args := m.Called(ctx, id, capture)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthDecision), args.Error(1)
}

func (m *MockSessionService) GetStatus(ctx context.Context, id string) (*domain.PublicSessionView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PublicSessionView), args.Error(1)
}

func (m *MockSessionService) EndSession(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockSessionService) Stats(ctx context.Context) (domain.SessionStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.SessionStats), args.Error(1)
}

// MockTokenValidator is a mock implementation of TokenValidator
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) Validate(tokenString string) (*token.Claims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*token.Claims), args.Error(1)
}

// MockFaceLocator is a mock implementation of FaceLocator
type MockFaceLocator struct {
	mock.Mock
}

func (m *MockFaceLocator) Detect(ctx context.Context, image []byte) ([]domain.FaceObservation, domain.ImageQuality, error) {
	args := m.Called(ctx, image)
	faces, _ := args.Get(0).([]domain.FaceObservation)
	return faces, args.Get(1).(domain.ImageQuality), args.Error(2)
}

// testLogger returns a logger that discards all output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(testLogger())})
}

func jsonRequest(method, target string, body any) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// Helper to create multipart request
func createMultipartRequest(fields map[string]string, imageContent []byte, contentType string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}

	if imageContent != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="capture.png"`)
		h.Set("Content-Type", contentType)

		part, err := writer.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		_, _ = part.Write(imageContent)
	}

	_ = writer.Close()
	return body, writer.FormDataContentType(), nil
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error.Code
}

func setupSessionApp(svc *MockSessionService, tokens *MockTokenValidator, locator FaceLocator) *fiber.App {
	h := NewSessionHandler(svc, tokens, locator, testLogger())
	app := newTestApp()
	app.Post("/v1/auth/start-session", h.StartSession)
	app.Post("/v1/auth/submit-liveness", h.SubmitLiveness)
	app.Post("/v1/auth/complete", h.Complete)
	app.Get("/v1/auth/session/:id", h.GetSession)
	app.Delete("/v1/auth/session/:id", h.EndSession)
	app.Get("/v1/auth/session/:id/events", h.RequireSession, func(c *fiber.Ctx) error {
		return c.SendString("streaming")
	})
	app.Post("/v1/auth/verify-token", h.VerifyToken)
	app.Get("/v1/auth/stats", h.Stats)
	return app
}

func testSession() *domain.Session {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Session{
		ID:               "sess-1",
		SubjectReference: "subject-42",
		ChallengeType:    domain.ChallengeBlink,
		Status:           domain.StatusCreated,
		MaxAttempts:      3,
		CreatedAt:        now,
		ExpiresAt:        now.Add(10 * time.Minute),
	}
}

func TestSessionHandler_StartSession(t *testing.T) {
	t.Run("creates session", func(t *testing.T) {
		svc := new(MockSessionService)
		app := setupSessionApp(svc, nil, nil)

		svc.On("CreateSession", mock.Anything, service.CreateSessionInput{
			SessionID:        "client-chosen",
			SubjectReference: "subject-42",
		}).Return(testSession(), nil)

		resp, err := app.Test(jsonRequest("POST", "/v1/auth/start-session", StartSessionRequest{
			SessionID:        "client-chosen",
			SubjectReference: "subject-42",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

		raw, _ := io.ReadAll(resp.Body)
		var view domain.PublicSessionView
		require.NoError(t, json.Unmarshal(raw, &view))
		assert.Equal(t, "sess-1", view.SessionID)
		assert.Equal(t, domain.ChallengeBlink, view.ChallengeType)
		assert.NotEmpty(t, view.Instructions.Steps)
		assert.NotContains(t, string(raw), "subject-42")
		svc.AssertExpectations(t)
	})

	t.Run("rejects malformed session id", func(t *testing.T) {
		svc := new(MockSessionService)
		app := setupSessionApp(svc, nil, nil)

		resp, err := app.Test(jsonRequest("POST", "/v1/auth/start-session", StartSessionRequest{
			SessionID:        "has spaces/and slashes",
			SubjectReference: "subject-42",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "VALIDATION_FAILED", decodeError(t, resp))
		svc.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
	})

	t.Run("invalid subject reference", func(t *testing.T) {
		svc := new(MockSessionService)
		app := setupSessionApp(svc, nil, nil)

		svc.On("CreateSession", mock.Anything, mock.Anything).Return(nil, domain.ErrInvalidSubjectReference)

		resp, err := app.Test(jsonRequest("POST", "/v1/auth/start-session", StartSessionRequest{}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "INVALID_SUBJECT_REFERENCE", decodeError(t, resp))
	})

	t.Run("duplicate id", func(t *testing.T) {
		svc := new(MockSessionService)
		app := setupSessionApp(svc, nil, nil)

		svc.On("CreateSession", mock.Anything, mock.Anything).Return(nil, domain.ErrSessionExists)

		resp, err := app.Test(jsonRequest("POST", "/v1/auth/start-session", StartSessionRequest{
			SessionID:        "taken",
			SubjectReference: "subject-42",
		}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("malformed json", func(t *testing.T) {
		svc := new(MockSessionService)
		app := setupSessionApp(svc, nil, nil)

		req := httptest.NewRequest("POST", "/v1/auth/start-session", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestSessionHandler_SubmitLiveness(t *testing.T) {
	frames := []domain.Frame{{Face: &domain.FaceObservation{Confidence: 0.9}}}

	tests := []struct {
		name       string
		outcome    *domain.LivenessOutcome
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name: "verified",
			outcome: &domain.LivenessOutcome{
				SessionID:         "sess-1",
				Result:            &domain.LivenessResult{IsLive: true, Confidence: 0.8},
				Status:            domain.StatusLivenessVerified,
				NextStep:          domain.NextStepFaceAuthentication,
				AttemptsRemaining: 2,
			},
			wantStatus: 200,
		},
		{name: "not found", err: domain.ErrSessionNotFound, wantStatus: 404, wantCode: "SESSION_NOT_FOUND"},
		{name: "expired", err: domain.ErrSessionExpired, wantStatus: 410, wantCode: "SESSION_EXPIRED"},
		{name: "attempts exceeded", err: domain.ErrLivenessAttemptsExceeded, wantStatus: 429, wantCode: "LIVENESS_ATTEMPTS_EXCEEDED"},
		{name: "already verified", err: domain.ErrLivenessAlreadyVerified, wantStatus: 409, wantCode: "LIVENESS_ALREADY_VERIFIED"},
		{name: "insufficient data", err: domain.ErrInsufficientData, wantStatus: 422, wantCode: "INSUFFICIENT_DATA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockSessionService)
			app := setupSessionApp(svc, nil, nil)

			if tt.err != nil {
				svc.On("SubmitLiveness", mock.Anything, "sess-1", frames).Return(nil, tt.err)
			} else {
				svc.On("SubmitLiveness", mock.Anything, "sess-1", frames).Return(tt.outcome, nil)
			}

			resp, err := app.Test(jsonRequest("POST", "/v1/auth/submit-liveness", SubmitLivenessRequest{
				SessionID: "sess-1",
				Frames:    frames,
			}))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, resp))
				return
			}
			var got domain.LivenessOutcome
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, domain.NextStepFaceAuthentication, got.NextStep)
			assert.Equal(t, 2, got.AttemptsRemaining)
		})
	}

	t.Run("session id required", func(t *testing.T) {
		svc := new(MockSessionService)
		app := setupSessionApp(svc, nil, nil)

		resp, err := app.Test(jsonRequest("POST", "/v1/auth/submit-liveness", SubmitLivenessRequest{Frames: frames}))
		require.NoError(t, err)
		assert.Equal(t, 422, resp.StatusCode)
		assert.Equal(t, "VALIDATION_FAILED", decodeError(t, resp))
	})
}

func TestSessionHandler_Complete(t *testing.T) {
	t.Run("json capture", func(t *testing.T) {
		svc := new(MockSessionService)
		app := setupSessionApp(svc, nil, nil)

		face := &domain.FaceObservation{Confidence: 0.95}
		capture := domain.ReferenceCapture{
			Face:    face,
			Quality: domain.ImageQuality{Brightness: 0.5, Sharpness: 0.8},
		}
		svc.On("SubmitAuthentication", mock.Anything, "sess-1", capture).Return(&domain.AuthDecision{
			SessionID:       "sess-1",
			IsAuthenticated: true,
			Score:           0.9,
			Token:           "signed.jwt.token",
		}, nil)

		resp, err := app.Test(jsonRequest("POST", "/v1/auth/complete", CompleteRequest{
			SessionID: "sess-1",
			Face:      face,
			Quality:   ImageQualityInput{Brightness: 0.5, Sharpness: 0.8},
		}))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var got domain.AuthDecision
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.True(t, got.IsAuthenticated)
		assert.Equal(t, "signed.jwt.token", got.Token)
		svc.AssertExpectations(t)
	})

	t.Run("quality out of range", func(t *testing.T) {
		svc := new(MockSessionService)
		app := setupSessionApp(svc, nil, nil)

		resp, err := app.Test(jsonRequest("POST", "/v1/auth/complete", CompleteRequest{
			SessionID: "sess-1",
			Quality:   ImageQualityInput{Brightness: 1.5},
		}))
		require.NoError(t, err)
		assert.Equal(t, 422, resp.StatusCode)
		assert.Equal(t, "VALIDATION_FAILED", decodeError(t, resp))
	})

	t.Run("liveness required", func(t *testing.T) {
		svc := new(MockSessionService)
		app := setupSessionApp(svc, nil, nil)

		svc.On("SubmitAuthentication", mock.Anything, "sess-1", mock.Anything).Return(nil, domain.ErrLivenessRequired)

		resp, err := app.Test(jsonRequest("POST", "/v1/auth/complete", CompleteRequest{SessionID: "sess-1"}))
		require.NoError(t, err)
		assert.Equal(t, 409, resp.StatusCode)
		assert.Equal(t, "LIVENESS_REQUIRED", decodeError(t, resp))
	})

	t.Run("multipart image goes through locator", func(t *testing.T) {
		svc := new(MockSessionService)
		locator := new(MockFaceLocator)
		app := setupSessionApp(svc, nil, locator)

		image := []byte("fake-png-bytes")
		small := domain.FaceObservation{BoundingBox: domain.BoundingBox{Width: 10, Height: 10}, Confidence: 0.7}
		large := domain.FaceObservation{BoundingBox: domain.BoundingBox{Width: 50, Height: 60}, Confidence: 0.9}
		quality := domain.ImageQuality{Brightness: 0.5, Sharpness: 0.6, Width: 640, Height: 480}

		locator.On("Detect", mock.Anything, image).Return([]domain.FaceObservation{small, large}, quality, nil)
		svc.On("SubmitAuthentication", mock.Anything, "sess-1", domain.ReferenceCapture{
			Face:    &large,
			Quality: quality,
		}).Return(&domain.AuthDecision{SessionID: "sess-1"}, nil)

		body, contentType, err := createMultipartRequest(map[string]string{"session_id": "sess-1"}, image, "image/png")
		require.NoError(t, err)
		req := httptest.NewRequest("POST", "/v1/auth/complete", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		locator.AssertExpectations(t)
		svc.AssertExpectations(t)
	})

	t.Run("multipart without locator", func(t *testing.T) {
		svc := new(MockSessionService)
		app := setupSessionApp(svc, nil, nil)

		body, contentType, err := createMultipartRequest(map[string]string{"session_id": "sess-1"}, []byte("x"), "image/png")
		require.NoError(t, err)
		req := httptest.NewRequest("POST", "/v1/auth/complete", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 503, resp.StatusCode)
		assert.Equal(t, "LOCATOR_UNAVAILABLE", decodeError(t, resp))
	})
}

func TestSessionHandler_GetAndEndSession(t *testing.T) {
	svc := new(MockSessionService)
	app := setupSessionApp(svc, nil, nil)

	svc.On("GetStatus", mock.Anything, "sess-1").Return(testSession().PublicView(), nil)
	svc.On("GetStatus", mock.Anything, "gone").Return(nil, domain.ErrSessionNotFound)
	svc.On("EndSession", mock.Anything, "sess-1").Return(nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/auth/session/sess-1", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/auth/session/gone", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/v1/auth/session/sess-1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	svc.AssertExpectations(t)
}

func TestSessionHandler_RequireSession(t *testing.T) {
	svc := new(MockSessionService)
	app := setupSessionApp(svc, nil, nil)

	svc.On("GetStatus", mock.Anything, "sess-1").Return(testSession().PublicView(), nil)
	svc.On("GetStatus", mock.Anything, "old").Return(nil, domain.ErrSessionExpired)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/auth/session/sess-1/events", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/v1/auth/session/old/events", nil))
	require.NoError(t, err)
	assert.Equal(t, 410, resp.StatusCode)
}

func TestSessionHandler_VerifyToken(t *testing.T) {
	expires := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	claims := &token.Claims{
		SessionID:     "sess-1",
		SubjectDigest: "digest",
		ChallengeType: "blink",
		Score:         0.9,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	t.Run("body token", func(t *testing.T) {
		tokens := new(MockTokenValidator)
		app := setupSessionApp(new(MockSessionService), tokens, nil)
		tokens.On("Validate", "good-token").Return(claims, nil)

		resp, err := app.Test(jsonRequest("POST", "/v1/auth/verify-token", VerifyTokenRequest{Token: "good-token"}))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var got VerifyTokenResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.True(t, got.Valid)
		assert.Equal(t, "sess-1", got.SessionID)
		assert.True(t, expires.Equal(got.ExpiresAt))
	})

	t.Run("bearer header", func(t *testing.T) {
		tokens := new(MockTokenValidator)
		app := setupSessionApp(new(MockSessionService), tokens, nil)
		tokens.On("Validate", "header-token").Return(claims, nil)

		req := httptest.NewRequest("POST", "/v1/auth/verify-token", nil)
		req.Header.Set("Authorization", "Bearer header-token")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		tokens.AssertExpectations(t)
	})

	t.Run("invalid token", func(t *testing.T) {
		tokens := new(MockTokenValidator)
		app := setupSessionApp(new(MockSessionService), tokens, nil)
		tokens.On("Validate", "bad").Return(nil, token.ErrInvalidToken)

		resp, err := app.Test(jsonRequest("POST", "/v1/auth/verify-token", VerifyTokenRequest{Token: "bad"}))
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
		assert.Equal(t, "UNAUTHORIZED", decodeError(t, resp))
	})

	t.Run("missing token", func(t *testing.T) {
		app := setupSessionApp(new(MockSessionService), new(MockTokenValidator), nil)

		resp, err := app.Test(jsonRequest("POST", "/v1/auth/verify-token", VerifyTokenRequest{}))
		require.NoError(t, err)
		assert.Equal(t, 422, resp.StatusCode)
	})
}

func TestSessionHandler_Stats(t *testing.T) {
	svc := new(MockSessionService)
	app := setupSessionApp(svc, nil, nil)

	svc.On("Stats", mock.Anything).Return(domain.SessionStats{Total: 4, Active: 2, Expired: 1, Authenticated: 1}, nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/auth/stats", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var got domain.SessionStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 4, got.Total)
	assert.Equal(t, 1, got.Authenticated)
}
