package handler

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/livegate/internal/quality"
)

func setupQualityApp(locator FaceLocator) *fiber.App {
	h := NewQualityHandler(quality.NewScorer(quality.DefaultConfig()), locator, 0.7, testLogger())
	app := newTestApp()
	app.Post("/v1/quality/assess", h.Assess)
	app.Post("/v1/quality/image", h.AssessImage)
	return app
}

func TestQualityHandler_Assess(t *testing.T) {
	tests := []struct {
		name           string
		req            QualityAssessRequest
		wantAcceptable bool
		wantRecommend  string
	}{
		{
			name: "good capture",
			req: QualityAssessRequest{
				Face:    &domain.FaceObservation{Confidence: 1},
				Quality: ImageQualityInput{Brightness: 0.5, Sharpness: 0.5},
			},
			wantAcceptable: true,
		},
		{
			name:          "dark capture without face",
			req:           QualityAssessRequest{Quality: ImageQualityInput{Brightness: 0.1, Sharpness: 0.2}},
			wantRecommend: quality.RecommendTooDark,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupQualityApp(nil)

			resp, err := app.Test(jsonRequest("POST", "/v1/quality/assess", tt.req))
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)

			var got QualityResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, tt.wantAcceptable, got.Acceptable)
			assert.Nil(t, got.FacesDetected)
			if tt.wantRecommend != "" {
				assert.Contains(t, got.Recommendations, tt.wantRecommend)
			}
		})
	}
}

func TestQualityHandler_AssessImage(t *testing.T) {
	t.Run("scores the largest face", func(t *testing.T) {
		locator := new(MockFaceLocator)
		app := setupQualityApp(locator)

		image := []byte("jpeg-bytes")
		locator.On("Detect", mock.Anything, image).Return([]domain.FaceObservation{
			{BoundingBox: domain.BoundingBox{Width: 10, Height: 10}, Confidence: 0.2},
			{BoundingBox: domain.BoundingBox{Width: 200, Height: 200}, Confidence: 1},
		}, domain.ImageQuality{Brightness: 0.5, Sharpness: 0.5, Width: 640, Height: 480}, nil)

		body, contentType, err := createMultipartRequest(nil, image, "image/jpeg")
		require.NoError(t, err)
		req := httptest.NewRequest("POST", "/v1/quality/image", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var got QualityResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		require.NotNil(t, got.FacesDetected)
		assert.Equal(t, 2, *got.FacesDetected)
		assert.Equal(t, 1.0, got.DetectionConfidence)
		assert.True(t, got.Acceptable)
	})

	t.Run("no locator", func(t *testing.T) {
		app := setupQualityApp(nil)

		body, contentType, err := createMultipartRequest(nil, []byte("x"), "image/jpeg")
		require.NoError(t, err)
		req := httptest.NewRequest("POST", "/v1/quality/image", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 503, resp.StatusCode)
	})

	t.Run("unsupported content type", func(t *testing.T) {
		locator := new(MockFaceLocator)
		app := setupQualityApp(locator)

		body, contentType, err := createMultipartRequest(nil, []byte("GIF89a"), "image/gif")
		require.NoError(t, err)
		req := httptest.NewRequest("POST", "/v1/quality/image", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 422, resp.StatusCode)
		assert.Equal(t, "INVALID_IMAGE", decodeError(t, resp))
		locator.AssertNotCalled(t, "Detect", mock.Anything, mock.Anything)
	})

	t.Run("missing image", func(t *testing.T) {
		app := setupQualityApp(new(MockFaceLocator))

		body, contentType, err := createMultipartRequest(map[string]string{"note": "no file"}, nil, "")
		require.NoError(t, err)
		req := httptest.NewRequest("POST", "/v1/quality/image", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 422, resp.StatusCode)
		assert.Equal(t, "VALIDATION_FAILED", decodeError(t, resp))
	})

	t.Run("locator failure", func(t *testing.T) {
		locator := new(MockFaceLocator)
		app := setupQualityApp(locator)

		locator.On("Detect", mock.Anything, mock.Anything).
			Return(nil, domain.ImageQuality{}, domain.ErrLocatorFailed.WithError(errors.New("throttled")))

		body, contentType, err := createMultipartRequest(nil, []byte("x"), "image/png")
		require.NoError(t, err)
		req := httptest.NewRequest("POST", "/v1/quality/image", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 502, resp.StatusCode)
		assert.Equal(t, "LOCATOR_FAILED", decodeError(t, resp))
	})
}
