package locator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/livegate/internal/audit"
	"github.com/saturnino-fabrica-de-software/livegate/internal/config"
	"github.com/saturnino-fabrica-de-software/livegate/internal/locator/deepface"
	"github.com/saturnino-fabrica-de-software/livegate/internal/locator/rekognition"
)

func TestNew(t *testing.T) {
	ctx := context.Background()
	auditLogger := &audit.NoOpLogger{}

	t.Run("none", func(t *testing.T) {
		for _, typ := range []string{"", config.LocatorNone} {
			l, err := New(ctx, &config.Config{LocatorType: typ}, auditLogger)
			require.NoError(t, err)
			assert.Nil(t, l)
		}
	})

	t.Run("deepface", func(t *testing.T) {
		l, err := New(ctx, &config.Config{
			LocatorType: config.LocatorDeepFace,
			DeepFaceURL: "http://custom-host:8080",
		}, auditLogger)
		require.NoError(t, err)
		assert.IsType(t, &deepface.Locator{}, l)
	})

	t.Run("rekognition", func(t *testing.T) {
		t.Setenv("AWS_ACCESS_KEY_ID", "test")
		t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

		l, err := New(ctx, &config.Config{
			LocatorType: config.LocatorRekognition,
			AWSRegion:   "us-west-2",
		}, auditLogger)
		require.NoError(t, err)
		assert.IsType(t, &rekognition.Locator{}, l)
	})

	t.Run("unknown", func(t *testing.T) {
		l, err := New(ctx, &config.Config{LocatorType: "opencv"}, auditLogger)
		assert.Error(t, err)
		assert.Nil(t, l)
		assert.Contains(t, err.Error(), "unknown locator type")
	})
}
