package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/livegate/internal/imaging"
)

// FacesHandler turns an uploaded image into liveness frames.
type FacesHandler struct {
	locator FaceLocator
	logger  *slog.Logger
}

func NewFacesHandler(locator FaceLocator, logger *slog.Logger) *FacesHandler {
	return &FacesHandler{
		locator: locator,
		logger:  logger,
	}
}

// DetectResponse response for faces detect. Each frame is ready to be sent
// back in a liveness submission.
type DetectResponse struct {
	Frames  []domain.Frame      `json:"frames"`
	Quality domain.ImageQuality `json:"quality"`
}

// Detect POST /v1/faces/detect
func (h *FacesHandler) Detect(c *fiber.Ctx) error {
	if h.locator == nil {
		return domain.ErrLocatorUnavailable
	}

	imageBytes, err := extractAndValidateImage(c)
	if err != nil {
		return err
	}

	faces, quality, err := h.locator.Detect(c.UserContext(), imageBytes)
	if err != nil {
		return err
	}
	if len(faces) == 0 {
		return domain.ErrNoFaceDetected
	}

	img, err := imaging.Decode(imageBytes)
	if err != nil {
		return err
	}

	frames := make([]domain.Frame, 0, len(faces))
	for i := range faces {
		face := faces[i]
		frames = append(frames, domain.Frame{
			Face:   &face,
			Pixels: imaging.FaceCrop(img, face.BoundingBox),
		})
	}

	h.logger.Debug("faces detected", "count", len(frames))

	return c.JSON(DetectResponse{
		Frames:  frames,
		Quality: quality,
	})
}
