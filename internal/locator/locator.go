// Package locator finds faces in still images. The liveness engine only
// consumes the observations; how faces are located is up to the backend.
package locator

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/livegate/internal/audit"
	"github.com/saturnino-fabrica-de-software/livegate/internal/config"
	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/livegate/internal/locator/deepface"
	"github.com/saturnino-fabrica-de-software/livegate/internal/locator/rekognition"
)

// FaceLocator detects faces and reports image-level quality.
type FaceLocator interface {
	Detect(ctx context.Context, image []byte) ([]domain.FaceObservation, domain.ImageQuality, error)
}

var (
	_ FaceLocator = (*rekognition.Locator)(nil)
	_ FaceLocator = (*deepface.Locator)(nil)
)

// New creates the configured locator. It returns nil, nil when no locator
// is configured; endpoints that need one then answer LOCATOR_UNAVAILABLE.
//
// Environment variables:
//   - LOCATOR_TYPE: "none", "rekognition" or "deepface" (default: "none")
//   - AWS_REGION: AWS region for Rekognition (default: "us-east-1")
//   - DEEPFACE_URL: DeepFace API URL (default: "http://localhost:5005")
//   - LOCATOR_MIN_CONFIDENCE: detections below are dropped (default: 0.5)
func New(ctx context.Context, cfg *config.Config, auditLogger audit.Logger) (FaceLocator, error) {
	switch cfg.LocatorType {
	case config.LocatorRekognition:
		l, err := rekognition.New(ctx, rekognition.Config{
			Region:        cfg.AWSRegion,
			MinConfidence: cfg.MinConfidence,
		}, rekognition.WithAuditLogger(auditLogger))
		if err != nil {
			return nil, fmt.Errorf("create rekognition locator: %w", err)
		}
		return l, nil

	case config.LocatorDeepFace:
		dfCfg := deepface.DefaultConfig()
		if cfg.DeepFaceURL != "" {
			dfCfg.BaseURL = cfg.DeepFaceURL
		}
		dfCfg.MinConfidence = cfg.MinConfidence
		return deepface.NewLocator(dfCfg), nil

	case config.LocatorNone, "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown locator type: %s (supported: %s, %s, %s)",
			cfg.LocatorType, config.LocatorNone, config.LocatorRekognition, config.LocatorDeepFace)
	}
}
