package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

// ChallengeEvaluator runs a named challenge over a batch of frames.
type ChallengeEvaluator interface {
	Evaluate(ct domain.ChallengeType, frames []domain.Frame) (*domain.LivenessResult, error)
}

// FrameEvaluator gives single-frame positioning feedback.
type FrameEvaluator interface {
	Evaluate(frame domain.Frame) *domain.LivenessResult
}

// LivenessHandler serves stateless liveness checks. Nothing here touches a
// session.
type LivenessHandler struct {
	evaluator ChallengeEvaluator
	realtime  FrameEvaluator
	logger    *slog.Logger
}

func NewLivenessHandler(evaluator ChallengeEvaluator, realtime FrameEvaluator, logger *slog.Logger) *LivenessHandler {
	return &LivenessHandler{
		evaluator: evaluator,
		realtime:  realtime,
		logger:    logger,
	}
}

// EvaluateRequest body for liveness evaluate
type EvaluateRequest struct {
	ChallengeType string         `json:"challenge_type" validate:"required"`
	Frames        []domain.Frame `json:"frames" validate:"max=300"`
}

// RealtimeRequest body for realtime feedback
type RealtimeRequest struct {
	Frame domain.Frame `json:"frame"`
}

// Evaluate POST /v1/liveness/evaluate
func (h *LivenessHandler) Evaluate(c *fiber.Ctx) error {
	var req EvaluateRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	ct, err := domain.ParseChallengeType(req.ChallengeType)
	if err != nil {
		return err
	}

	result, err := h.evaluator.Evaluate(ct, req.Frames)
	if err != nil {
		return err
	}

	h.logger.Debug("stateless liveness evaluated",
		"challenge_type", ct,
		"is_live", result.IsLive,
		"confidence", result.Confidence,
	)

	return c.JSON(result)
}

// Realtime POST /v1/liveness/realtime
func (h *LivenessHandler) Realtime(c *fiber.Ctx) error {
	var req RealtimeRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	return c.JSON(h.realtime.Evaluate(req.Frame))
}
