package rekognition

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/livegate/internal/audit"
	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/livegate/internal/imaging"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100
)

// Locator finds faces with the AWS Rekognition DetectFaces API
type Locator struct {
	api         DetectFacesAPI
	cfg         Config
	auditLogger audit.Logger
}

// Option defines optional configuration for Locator
type Option func(*Locator)

// WithAuditLogger sets the audit logger for the locator
func WithAuditLogger(logger audit.Logger) Option {
	return func(l *Locator) {
		l.auditLogger = logger
	}
}

// New creates a locator backed by a real Rekognition client.
func New(ctx context.Context, cfg Config, opts ...Option) (*Locator, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}
	return NewWithAPI(client, cfg, opts...), nil
}

// NewWithAPI creates a locator over any DetectFaces implementation.
func NewWithAPI(api DetectFacesAPI, cfg Config, opts ...Option) *Locator {
	l := &Locator{api: api, cfg: cfg}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// logAudit logs an audit event if an audit logger is configured
// Audit failure does not affect the operation (fire-and-forget)
func (l *Locator) logAudit(ctx context.Context, success bool, err error, metadata map[string]string) {
	if l.auditLogger == nil {
		return
	}

	event := audit.Event{
		EventType: audit.EventFaceDetected,
		Source:    "rekognition",
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}

	_ = l.auditLogger.Log(ctx, event)
}

// validateImage checks if image data is valid for Rekognition processing
func validateImage(image []byte) error {
	if len(image) == 0 {
		return domain.ErrInvalidImage
	}
	if len(image) < minImageSize {
		return domain.ErrInvalidImage.WithError(
			fmt.Errorf("image too small (%d bytes, minimum %d)", len(image), minImageSize))
	}
	if len(image) > maxImageSize {
		return domain.ErrInvalidImage.WithError(
			fmt.Errorf("image too large (%d bytes, maximum %d)", len(image), maxImageSize))
	}
	return nil
}

// Detect returns every face above the configured confidence, in pixel
// coordinates. An image without faces is not an error. Brightness and
// sharpness come from the first face's quality report.
func (l *Locator) Detect(ctx context.Context, image []byte) ([]domain.FaceObservation, domain.ImageQuality, error) {
	meta := map[string]string{"image_size": strconv.Itoa(len(image))}

	if err := validateImage(image); err != nil {
		l.logAudit(ctx, false, err, meta)
		return nil, domain.ImageQuality{}, err
	}

	width, height, err := imaging.Dimensions(image)
	if err != nil {
		l.logAudit(ctx, false, err, meta)
		return nil, domain.ImageQuality{}, err
	}

	output, err := l.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: image},
		Attributes: []types.Attribute{types.AttributeAll},
	})
	if err != nil {
		err = parseError(err)
		l.logAudit(ctx, false, err, meta)
		return nil, domain.ImageQuality{}, err
	}

	quality := domain.ImageQuality{Width: width, Height: height}
	faces := make([]domain.FaceObservation, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		face, ok := toObservation(detail, width, height)
		if !ok || face.Confidence < l.cfg.MinConfidence {
			continue
		}
		if len(faces) == 0 && detail.Quality != nil {
			quality.Brightness = percent(detail.Quality.Brightness)
			quality.Sharpness = percent(detail.Quality.Sharpness)
		}
		faces = append(faces, face)
	}

	meta["faces_count"] = strconv.Itoa(len(faces))
	l.logAudit(ctx, true, nil, meta)

	return faces, quality, nil
}

func toObservation(detail types.FaceDetail, width, height int) (domain.FaceObservation, bool) {
	box := detail.BoundingBox
	if box == nil || box.Left == nil || box.Top == nil || box.Width == nil || box.Height == nil {
		return domain.FaceObservation{}, false
	}

	return domain.FaceObservation{
		BoundingBox: domain.BoundingBox{
			X:      float64(*box.Left) * float64(width),
			Y:      float64(*box.Top) * float64(height),
			Width:  float64(*box.Width) * float64(width),
			Height: float64(*box.Height) * float64(height),
		},
		Confidence:  percent(detail.Confidence),
		Landmarks:   newLandmarkSet(detail.Landmarks, width, height).landmarks(),
		Expressions: expressions(detail),
	}, true
}

// percent converts a Rekognition 0-100 value to [0,1].
func percent(v *float32) float64 {
	if v == nil {
		return 0
	}
	return float64(*v) / 100
}
