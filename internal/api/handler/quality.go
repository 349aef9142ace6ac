package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/livegate/internal/quality"
)

// QualityAssessor scores a capture.
type QualityAssessor interface {
	Assess(face *domain.FaceObservation, img domain.ImageQuality) quality.Assessment
}

type QualityHandler struct {
	assessor  QualityAssessor
	locator   FaceLocator
	threshold float64
	logger    *slog.Logger
}

func NewQualityHandler(assessor QualityAssessor, locator FaceLocator, threshold float64, logger *slog.Logger) *QualityHandler {
	return &QualityHandler{
		assessor:  assessor,
		locator:   locator,
		threshold: threshold,
		logger:    logger,
	}
}

// QualityAssessRequest body for quality assess
type QualityAssessRequest struct {
	Face    *domain.FaceObservation `json:"face"`
	Quality ImageQualityInput       `json:"quality"`
}

// QualityResponse is the assessment plus the acceptance verdict.
type QualityResponse struct {
	quality.Assessment
	Acceptable    bool `json:"acceptable"`
	FacesDetected *int `json:"faces_detected,omitempty"`
}

// Assess POST /v1/quality/assess
func (h *QualityHandler) Assess(c *fiber.Ctx) error {
	var req QualityAssessRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	a := h.assessor.Assess(req.Face, req.Quality.toDomain())
	return c.JSON(QualityResponse{
		Assessment: a,
		Acceptable: a.Acceptable(h.threshold),
	})
}

// AssessImage POST /v1/quality/image
func (h *QualityHandler) AssessImage(c *fiber.Ctx) error {
	if h.locator == nil {
		return domain.ErrLocatorUnavailable
	}

	imageBytes, err := extractAndValidateImage(c)
	if err != nil {
		return err
	}

	faces, img, err := h.locator.Detect(c.UserContext(), imageBytes)
	if err != nil {
		return err
	}

	count := len(faces)
	a := h.assessor.Assess(largestFace(faces), img)
	return c.JSON(QualityResponse{
		Assessment:    a,
		Acceptable:    a.Acceptable(h.threshold),
		FacesDetected: &count,
	})
}
