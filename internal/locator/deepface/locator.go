package deepface

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/livegate/internal/imaging"
)

// Locator finds faces through a DeepFace HTTP server. DeepFace reports a
// region, a detector confidence and emotions but no contour landmarks, so
// observations carry expressions only; image quality is measured locally.
type Locator struct {
	client *Client
	cfg    Config
}

// NewLocator creates a new DeepFace locator
func NewLocator(cfg Config) *Locator {
	return &Locator{
		client: NewClient(cfg),
		cfg:    cfg,
	}
}

func (l *Locator) Detect(ctx context.Context, image []byte) ([]domain.FaceObservation, domain.ImageQuality, error) {
	img, err := imaging.Decode(image)
	if err != nil {
		return nil, domain.ImageQuality{}, err
	}
	quality := imaging.Analyze(img)

	uri := "data:" + http.DetectContentType(image) + ";base64," + base64.StdEncoding.EncodeToString(image)
	resp, err := l.client.Analyze(ctx, uri)
	if err != nil {
		if isClientError(err) {
			return nil, domain.ImageQuality{}, domain.ErrInvalidImage.WithError(err)
		}
		return nil, domain.ImageQuality{}, domain.ErrLocatorFailed.WithError(fmt.Errorf("analyze: %w", err))
	}

	faces := make([]domain.FaceObservation, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.FaceConfidence < l.cfg.MinConfidence || r.Region.W <= 0 || r.Region.H <= 0 {
			continue
		}
		faces = append(faces, domain.FaceObservation{
			BoundingBox: domain.BoundingBox{
				X:      float64(r.Region.X),
				Y:      float64(r.Region.Y),
				Width:  float64(r.Region.W),
				Height: float64(r.Region.H),
			},
			Confidence:  r.FaceConfidence,
			Expressions: normalizeEmotions(r.Emotion),
		})
	}

	return faces, quality, nil
}

// normalizeEmotions turns DeepFace percentages into probabilities.
func normalizeEmotions(emotions map[string]float64) map[string]float64 {
	if len(emotions) == 0 {
		return nil
	}
	out := make(map[string]float64, len(emotions))
	for name, pct := range emotions {
		out[name] = pct / 100
	}
	return out
}
