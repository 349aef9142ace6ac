package handler

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/livegate/internal/imaging"
)

var validImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// FaceLocator finds faces in an uploaded image. A nil locator means the
// deployment has none configured.
type FaceLocator interface {
	Detect(ctx context.Context, image []byte) ([]domain.FaceObservation, domain.ImageQuality, error)
}

// extractAndValidateImage reads the "image" multipart field
func extractAndValidateImage(c *fiber.Ctx) ([]byte, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	if file.Size == 0 || file.Size > imaging.MaxImageBytes {
		return nil, domain.ErrInvalidImage.WithError(errors.New("image size out of range"))
	}

	if !validImageTypes[file.Header.Get("Content-Type")] {
		return nil, domain.ErrInvalidImage.WithError(errors.New("unsupported content type"))
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	imageBytes, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	return imageBytes, nil
}

// largestFace picks the face closest to the camera.
func largestFace(faces []domain.FaceObservation) *domain.FaceObservation {
	var best *domain.FaceObservation
	for i := range faces {
		if best == nil || faces[i].BoundingBox.Area() > best.BoundingBox.Area() {
			best = &faces[i]
		}
	}
	return best
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}
