package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// StartSessionRequest is the body of start-session
type StartSessionRequest struct {
	SessionID        string `json:"session_id,omitempty" example:"checkout-7f3a"`
	SubjectReference string `json:"subject_reference" example:"customer-1042"`
}

// Instructions tell the user how to perform the challenge
type Instructions struct {
	Title       string   `json:"title" example:"Blink Detection"`
	Description string   `json:"description" example:"Please blink your eyes naturally"`
	Steps       []string `json:"steps" example:"Look directly at the camera"`
}

// SessionSteps tracks which stages passed
type SessionSteps struct {
	LivenessVerified  bool `json:"liveness_verified" example:"true"`
	FaceAuthenticated bool `json:"face_authenticated" example:"false"`
}

// SessionAttempts counts submissions per stage
type SessionAttempts struct {
	Liveness       int `json:"liveness" example:"1"`
	Authentication int `json:"authentication" example:"0"`
}

// SessionResponse is the public view of a session
type SessionResponse struct {
	SessionID     string          `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Status        string          `json:"status" example:"created"`
	ChallengeType string          `json:"challenge_type" example:"blink"`
	Instructions  Instructions    `json:"instructions"`
	Steps         SessionSteps    `json:"steps"`
	Attempts      SessionAttempts `json:"attempts"`
	MaxAttempts   int             `json:"max_attempts" example:"3"`
	CreatedAt     string          `json:"created_at" example:"2026-01-01T00:00:00Z"`
	ExpiresAt     string          `json:"expires_at" example:"2026-01-01T00:10:00Z"`
}

// Point is a landmark coordinate in pixels
type Point struct {
	X float64 `json:"x" example:"120.5"`
	Y float64 `json:"y" example:"88.0"`
}

// BoundingBox locates a face
type BoundingBox struct {
	X      float64 `json:"x" example:"40"`
	Y      float64 `json:"y" example:"30"`
	Width  float64 `json:"width" example:"180"`
	Height float64 `json:"height" example:"220"`
}

// Landmarks groups landmark points by facial region
type Landmarks struct {
	LeftEye  []Point `json:"left_eye,omitempty"`
	RightEye []Point `json:"right_eye,omitempty"`
	Nose     []Point `json:"nose,omitempty"`
	Mouth    []Point `json:"mouth,omitempty"`
}

// FaceObservation is one detected face
type FaceObservation struct {
	BoundingBox BoundingBox        `json:"bounding_box"`
	Confidence  float64            `json:"confidence" example:"0.99"`
	Landmarks   Landmarks          `json:"landmarks"`
	Expressions map[string]float64 `json:"expressions,omitempty"`
}

// Frame is one captured frame
type Frame struct {
	Face   FaceObservation `json:"face,omitempty"`
	Pixels string          `json:"pixels,omitempty" example:"base64 224x224 grayscale crop"`
}

// SubmitLivenessRequest is the body of submit-liveness
type SubmitLivenessRequest struct {
	SessionID string  `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Frames    []Frame `json:"frames"`
}

// LivenessResult is the verdict of a challenge
type LivenessResult struct {
	IsLive         bool               `json:"is_live" example:"true"`
	Confidence     float64            `json:"confidence" example:"0.82"`
	ChallengeType  string             `json:"challenge_type" example:"blink"`
	Metrics        map[string]float64 `json:"metrics"`
	Recommendation string             `json:"recommendation,omitempty" example:"Strong liveness indicators detected"`
}

// LivenessOutcomeResponse is returned after a liveness submission
type LivenessOutcomeResponse struct {
	SessionID         string         `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Result            LivenessResult `json:"result"`
	Status            string         `json:"status" example:"liveness_verified"`
	NextStep          string         `json:"next_step" example:"face_authentication"`
	AttemptsRemaining int            `json:"attempts_remaining" example:"2"`
}

// ImageQuality is image metadata measured by the client
type ImageQuality struct {
	Brightness float64 `json:"brightness" example:"0.52"`
	Sharpness  float64 `json:"sharpness" example:"0.74"`
	Width      int     `json:"width" example:"640"`
	Height     int     `json:"height" example:"480"`
}

// CompleteRequest is the JSON body of complete
type CompleteRequest struct {
	SessionID string          `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Face      FaceObservation `json:"face"`
	Quality   ImageQuality    `json:"quality"`
}

// AuthDecisionResponse is returned after an authentication submission
type AuthDecisionResponse struct {
	SessionID          string   `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	IsAuthenticated    bool     `json:"is_authenticated" example:"true"`
	Score              float64  `json:"score" example:"0.9"`
	QualityScore       float64  `json:"quality_score" example:"0.9"`
	LivenessConfidence float64  `json:"liveness_confidence" example:"0.9"`
	Token              string   `json:"token,omitempty" example:"eyJhbGciOiJIUzI1NiIs..."`
	ValidUntil         string   `json:"valid_until,omitempty" example:"2026-01-01T01:00:00Z"`
	AttemptsRemaining  int      `json:"attempts_remaining" example:"2"`
	Recommendations    []string `json:"recommendations,omitempty"`
}

// VerifyTokenRequest is the body of verify-token
type VerifyTokenRequest struct {
	Token string `json:"token" example:"eyJhbGciOiJIUzI1NiIs..."`
}

// VerifyTokenResponse carries the claims of a valid token
type VerifyTokenResponse struct {
	Valid         bool    `json:"valid" example:"true"`
	SessionID     string  `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	SubjectDigest string  `json:"subject_digest" example:"9f86d081884c7d65"`
	ChallengeType string  `json:"challenge_type" example:"smile"`
	Score         float64 `json:"score" example:"0.88"`
	ExpiresAt     string  `json:"expires_at" example:"2026-01-01T01:00:00Z"`
}

// StatsResponse summarises stored sessions
type StatsResponse struct {
	Total         int `json:"total" example:"120"`
	Active        int `json:"active" example:"14"`
	Expired       int `json:"expired" example:"3"`
	Authenticated int `json:"authenticated" example:"97"`
	Failed        int `json:"failed" example:"6"`
}

// EvaluateRequest is the body of the stateless evaluation
type EvaluateRequest struct {
	ChallengeType string  `json:"challenge_type" example:"comprehensive"`
	Frames        []Frame `json:"frames"`
}

// RealtimeRequest carries a single frame
type RealtimeRequest struct {
	Frame Frame `json:"frame"`
}

// QualityAssessRequest is the body of quality assess
type QualityAssessRequest struct {
	Face    FaceObservation `json:"face"`
	Quality ImageQuality    `json:"quality"`
}

// QualityResponse is an advisory quality verdict
type QualityResponse struct {
	Score               float64  `json:"score" example:"0.86"`
	DetectionConfidence float64  `json:"detection_confidence" example:"0.99"`
	Brightness          float64  `json:"brightness" example:"0.52"`
	Sharpness           float64  `json:"sharpness" example:"0.74"`
	Frontal             bool     `json:"frontal" example:"true"`
	FaceRatio           float64  `json:"face_ratio,omitempty" example:"0.18"`
	Recommendations     []string `json:"recommendations" example:"Image quality is good for authentication"`
	Acceptable          bool     `json:"acceptable" example:"true"`
	FacesDetected       int      `json:"faces_detected,omitempty" example:"1"`
}

// DetectResponse carries frames ready for a liveness submission
type DetectResponse struct {
	Frames  []Frame      `json:"frames"`
	Quality ImageQuality `json:"quality"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

func errorReturn(code, message, status, description string) response.Response {
	return response.New(ErrorResponse{Code: code, Message: message}, status, description)
}

var (
	errValidation      = errorReturn("VALIDATION_FAILED", "Request validation failed", "422", "Unprocessable Entity")
	errBadRequest      = errorReturn("BAD_REQUEST", "Invalid request", "400", "Bad Request")
	errNotFound        = errorReturn("SESSION_NOT_FOUND", "Authentication session not found", "404", "Not Found")
	errExpired         = errorReturn("SESSION_EXPIRED", "Authentication session has expired", "410", "Gone")
	errRateLimit       = errorReturn("RATE_LIMIT_EXCEEDED", "Rate limit exceeded, please try again later", "429", "Too Many Requests")
	errInternal        = errorReturn("INTERNAL_ERROR", "An unexpected error occurred", "500", "Internal Server Error")
	errInvalidImage    = errorReturn("INVALID_IMAGE", "Invalid image format or corrupted file", "422", "Unprocessable Entity")
	errLocatorDown     = errorReturn("LOCATOR_UNAVAILABLE", "Face locator is not configured", "503", "Service Unavailable")
	errLocatorFailed   = errorReturn("LOCATOR_FAILED", "Face locator request failed", "502", "Bad Gateway")
	errInsufficient    = errorReturn("INSUFFICIENT_DATA", "Not enough usable frames to evaluate liveness", "422", "Unprocessable Entity")
	errInvalidChallenge = errorReturn("INVALID_CHALLENGE_TYPE", "Unknown liveness challenge type", "422", "Unprocessable Entity")
)

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Livegate API",
		Version:     "v1.0.0",
		Description: "Liveness-backed face authentication sessions",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	multipart := []mime.MIME{mime.MIME("multipart/form-data")}
	jsonOnly := []mime.MIME{mime.JSON}

	endpoints := []*endpoint.EndPoint{
		// POST /v1/auth/start-session
		endpoint.New(
			endpoint.POST,
			"/auth/start-session",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Start an authentication session"),
			endpoint.WithDescription("Creates a session for the subject and assigns a liveness challenge. The subject reference is never echoed back."),
			endpoint.WithBody(StartSessionRequest{}),
			endpoint.WithConsume(jsonOnly),
			endpoint.WithProduce(jsonOnly),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "201", "Session created"),
			}),
			endpoint.WithErrors([]response.Response{
				errBadRequest,
				errValidation,
				errorReturn("INVALID_SUBJECT_REFERENCE", "Subject reference is missing or malformed", "422", "Unprocessable Entity"),
				errorReturn("SESSION_ALREADY_EXISTS", "A session with this id already exists", "409", "Conflict"),
				errRateLimit,
				errInternal,
			}),
		),

		// POST /v1/auth/submit-liveness
		endpoint.New(
			endpoint.POST,
			"/auth/submit-liveness",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Submit liveness frames"),
			endpoint.WithDescription("Evaluates the session's challenge over the submitted frames. Each evaluated submission uses one liveness attempt. Once liveness is verified further submissions are refused with 409 LIVENESS_ALREADY_VERIFIED."),
			endpoint.WithBody(SubmitLivenessRequest{}),
			endpoint.WithConsume(jsonOnly),
			endpoint.WithProduce(jsonOnly),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(LivenessOutcomeResponse{}, "200", "Liveness evaluated"),
			}),
			endpoint.WithErrors([]response.Response{
				errNotFound,
				errExpired,
				errorReturn("SESSION_ALREADY_AUTHENTICATED", "Session is already authenticated", "409", "Conflict"),
				errorReturn("LIVENESS_ATTEMPTS_EXCEEDED", "Maximum liveness attempts exceeded", "429", "Too Many Requests"),
				errInsufficient,
				errValidation,
				errInternal,
			}),
		),

		// POST /v1/auth/complete
		endpoint.New(
			endpoint.POST,
			"/auth/complete",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Complete face authentication"),
			endpoint.WithDescription("Scores the reference capture and fuses it with the liveness confidence. Accepts JSON capture metadata, or multipart session_id and image when a face locator is configured."),
			endpoint.WithBody(CompleteRequest{}),
			endpoint.WithConsume([]mime.MIME{mime.JSON, mime.MIME("multipart/form-data")}),
			endpoint.WithProduce(jsonOnly),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AuthDecisionResponse{}, "200", "Authentication decided"),
			}),
			endpoint.WithErrors([]response.Response{
				errNotFound,
				errExpired,
				errorReturn("LIVENESS_REQUIRED", "Liveness verification must succeed before authentication", "409", "Conflict"),
				errorReturn("AUTHENTICATION_ATTEMPTS_EXCEEDED", "Maximum authentication attempts exceeded", "429", "Too Many Requests"),
				errorReturn("NO_FACE_DETECTED", "No face detected in the image", "422", "Unprocessable Entity"),
				errLocatorDown,
				errInternal,
			}),
		),

		// GET /v1/auth/session/:id
		endpoint.New(
			endpoint.GET,
			"/auth/session/{id}",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Get session status"),
			endpoint.WithProduce(jsonOnly),
			endpoint.WithParams(parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session identifier"))),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Session status"),
			}),
			endpoint.WithErrors([]response.Response{errNotFound, errExpired, errInternal}),
		),

		// DELETE /v1/auth/session/:id
		endpoint.New(
			endpoint.DELETE,
			"/auth/session/{id}",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("End a session"),
			endpoint.WithDescription("Deletes the session. Ending an unknown session is not an error."),
			endpoint.WithParams(parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session identifier"))),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Session ended"),
			}),
			endpoint.WithErrors([]response.Response{errInternal}),
		),

		// GET /v1/auth/session/:id/events
		endpoint.New(
			endpoint.GET,
			"/auth/session/{id}/events",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Stream session events"),
			endpoint.WithDescription("WebSocket stream of the session's lifecycle events. The stream closes after session.ended or session.expired."),
			endpoint.WithParams(parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session identifier"))),
			endpoint.WithErrors([]response.Response{
				errNotFound,
				errExpired,
				errorReturn("HTTP_ERROR", "Upgrade Required", "426", "Upgrade Required"),
			}),
		),

		// POST /v1/auth/verify-token
		endpoint.New(
			endpoint.POST,
			"/auth/verify-token",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Verify an authentication token"),
			endpoint.WithDescription("Validates a token from the body or an Authorization bearer header and returns its claims."),
			endpoint.WithBody(VerifyTokenRequest{}),
			endpoint.WithConsume(jsonOnly),
			endpoint.WithProduce(jsonOnly),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(VerifyTokenResponse{}, "200", "Token is valid"),
			}),
			endpoint.WithErrors([]response.Response{
				errorReturn("UNAUTHORIZED", "Invalid or expired token", "401", "Unauthorized"),
				errValidation,
			}),
		),

		// GET /v1/auth/stats
		endpoint.New(
			endpoint.GET,
			"/auth/stats",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Session statistics"),
			endpoint.WithProduce(jsonOnly),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(StatsResponse{}, "200", "Current session counts"),
			}),
			endpoint.WithErrors([]response.Response{errInternal}),
		),

		// POST /v1/liveness/evaluate
		endpoint.New(
			endpoint.POST,
			"/liveness/evaluate",
			endpoint.WithTags("Liveness"),
			endpoint.WithSummary("Evaluate a challenge without a session"),
			endpoint.WithBody(EvaluateRequest{}),
			endpoint.WithConsume(jsonOnly),
			endpoint.WithProduce(jsonOnly),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(LivenessResult{}, "200", "Liveness evaluated"),
			}),
			endpoint.WithErrors([]response.Response{errInvalidChallenge, errInsufficient, errValidation}),
		),

		// POST /v1/liveness/realtime
		endpoint.New(
			endpoint.POST,
			"/liveness/realtime",
			endpoint.WithTags("Liveness"),
			endpoint.WithSummary("Single-frame positioning feedback"),
			endpoint.WithDescription("Scores eye openness, head level and expression variation of one frame. Advisory only."),
			endpoint.WithBody(RealtimeRequest{}),
			endpoint.WithConsume(jsonOnly),
			endpoint.WithProduce(jsonOnly),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(LivenessResult{}, "200", "Feedback computed"),
			}),
			endpoint.WithErrors([]response.Response{errBadRequest}),
		),

		// POST /v1/quality/assess
		endpoint.New(
			endpoint.POST,
			"/quality/assess",
			endpoint.WithTags("Quality"),
			endpoint.WithSummary("Assess capture quality from metadata"),
			endpoint.WithBody(QualityAssessRequest{}),
			endpoint.WithConsume(jsonOnly),
			endpoint.WithProduce(jsonOnly),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(QualityResponse{}, "200", "Quality assessed"),
			}),
			endpoint.WithErrors([]response.Response{errValidation}),
		),

		// POST /v1/quality/image
		endpoint.New(
			endpoint.POST,
			"/quality/image",
			endpoint.WithTags("Quality"),
			endpoint.WithSummary("Assess capture quality from an image"),
			endpoint.WithDescription("Runs the image through the face locator and scores the largest face."),
			endpoint.WithConsume(multipart),
			endpoint.WithProduce(jsonOnly),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(QualityResponse{}, "200", "Quality assessed"),
			}),
			endpoint.WithErrors([]response.Response{errInvalidImage, errValidation, errLocatorDown, errLocatorFailed}),
		),

		// POST /v1/faces/detect
		endpoint.New(
			endpoint.POST,
			"/faces/detect",
			endpoint.WithTags("Faces"),
			endpoint.WithSummary("Detect faces and build liveness frames"),
			endpoint.WithDescription("Returns one frame per detected face with its observation and a 224x224 grayscale crop for texture analysis."),
			endpoint.WithConsume(multipart),
			endpoint.WithProduce(jsonOnly),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DetectResponse{}, "200", "Faces detected"),
			}),
			endpoint.WithErrors([]response.Response{
				errInvalidImage,
				errorReturn("NO_FACE_DETECTED", "No face detected in the image", "422", "Unprocessable Entity"),
				errLocatorDown,
				errLocatorFailed,
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
