package domain

import (
	"errors"
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so values produced by
// WithError still compare equal to the predefined sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Invalid or expired token",
		StatusCode: 401,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the image",
		StatusCode: 422,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded, please try again later",
		StatusCode: 429,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	ErrLocatorUnavailable = &AppError{
		Code:       "LOCATOR_UNAVAILABLE",
		Message:    "Face locator is not configured",
		StatusCode: 503,
	}

	ErrLocatorFailed = &AppError{
		Code:       "LOCATOR_FAILED",
		Message:    "Face locator request failed",
		StatusCode: 502,
	}
)

// Session errors
var (
	ErrSessionNotFound = &AppError{
		Code:       "SESSION_NOT_FOUND",
		Message:    "Authentication session not found",
		StatusCode: 404,
	}

	ErrSessionExpired = &AppError{
		Code:       "SESSION_EXPIRED",
		Message:    "Authentication session has expired",
		StatusCode: 410,
	}

	ErrSessionExists = &AppError{
		Code:       "SESSION_ALREADY_EXISTS",
		Message:    "A session with this id already exists",
		StatusCode: 409,
	}

	ErrSessionAlreadyAuthenticated = &AppError{
		Code:       "SESSION_ALREADY_AUTHENTICATED",
		Message:    "Session is already authenticated",
		StatusCode: 409,
	}

	ErrLivenessAlreadyVerified = &AppError{
		Code:       "LIVENESS_ALREADY_VERIFIED",
		Message:    "Liveness is already verified for this session",
		StatusCode: 409,
	}

	ErrLivenessAttemptsExceeded = &AppError{
		Code:       "LIVENESS_ATTEMPTS_EXCEEDED",
		Message:    "Maximum liveness attempts exceeded",
		StatusCode: 429,
	}

	ErrAuthenticationAttemptsExceeded = &AppError{
		Code:       "AUTHENTICATION_ATTEMPTS_EXCEEDED",
		Message:    "Maximum authentication attempts exceeded",
		StatusCode: 429,
	}

	ErrLivenessRequired = &AppError{
		Code:       "LIVENESS_REQUIRED",
		Message:    "Liveness verification must succeed before authentication",
		StatusCode: 409,
	}

	ErrInsufficientData = &AppError{
		Code:       "INSUFFICIENT_DATA",
		Message:    "Not enough usable frames to evaluate liveness",
		StatusCode: 422,
	}

	ErrInvalidChallengeType = &AppError{
		Code:       "INVALID_CHALLENGE_TYPE",
		Message:    "Unknown liveness challenge type",
		StatusCode: 422,
	}

	ErrInvalidSubjectReference = &AppError{
		Code:       "INVALID_SUBJECT_REFERENCE",
		Message:    "Subject reference is missing or malformed",
		StatusCode: 422,
	}
)

// AttemptKind distinguishes the two attempt counters of a session.
type AttemptKind string

const (
	AttemptKindLiveness       AttemptKind = "liveness"
	AttemptKindAuthentication AttemptKind = "authentication"
)

// AttemptsExceededKind reports which counter was exhausted when err is an
// attempts-exceeded error.
func AttemptsExceededKind(err error) (AttemptKind, bool) {
	switch {
	case errors.Is(err, ErrLivenessAttemptsExceeded):
		return AttemptKindLiveness, true
	case errors.Is(err, ErrAuthenticationAttemptsExceeded):
		return AttemptKindAuthentication, true
	default:
		return "", false
	}
}
