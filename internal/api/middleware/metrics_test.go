package middleware

import (
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

type observation struct {
	method string
	route  string
	status int
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []observation
}

func (r *recordingObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, observation{method, route, status})
}

func TestMetrics(t *testing.T) {
	tests := []struct {
		name       string
		handler    fiber.Handler
		wantStatus int
	}{
		{
			name:       "success",
			handler:    func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) },
			wantStatus: 201,
		},
		{
			name:       "app error",
			handler:    func(c *fiber.Ctx) error { return domain.ErrSessionExpired },
			wantStatus: 410,
		},
		{
			name:       "fiber error",
			handler:    func(c *fiber.Ctx) error { return fiber.ErrUpgradeRequired },
			wantStatus: 426,
		},
		{
			name:       "unknown error",
			handler:    func(c *fiber.Ctx) error { return errors.New("boom") },
			wantStatus: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observer := &recordingObserver{}
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(testLogger())})
			app.Use(Metrics(observer))
			app.Get("/v1/auth/session/:id", tt.handler)

			resp, err := app.Test(httptest.NewRequest("GET", "/v1/auth/session/abc", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			require.Len(t, observer.seen, 1)
			assert.Equal(t, observation{"GET", "/v1/auth/session/:id", tt.wantStatus}, observer.seen[0])
		})
	}
}
