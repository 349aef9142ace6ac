package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/livegate/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/livegate/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/livegate/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/livegate/internal/metrics"
	"github.com/saturnino-fabrica-de-software/livegate/internal/ws"
)

type Dependencies struct {
	Sessions handler.SessionService
	Tokens   handler.TokenValidator
	// Locator may be nil; image endpoints then answer LOCATOR_UNAVAILABLE.
	Locator  handler.FaceLocator
	Liveness handler.ChallengeEvaluator
	Realtime handler.FrameEvaluator
	Quality  handler.QualityAssessor
	// QualityThreshold decides the advisory "acceptable" flag.
	QualityThreshold float64

	Hub         *ws.Hub
	Recorder    *metrics.Recorder
	ReadyChecks map[string]handler.Pinger

	CORSOrigins string
	RateLimit   middleware.RateLimiterConfig
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
	cancelHub   context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Livegate API",
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	origins := "*"
	if r.deps != nil && r.deps.CORSOrigins != "" {
		origins = r.deps.CORSOrigins
	}

	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	if r.deps != nil && r.deps.Recorder != nil {
		r.app.Use(middleware.Metrics(r.deps.Recorder))
	}
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Swagger documentation
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var checks map[string]handler.Pinger
	if r.deps != nil {
		checks = r.deps.ReadyChecks
	}
	healthHandler := handler.NewHealthHandler(checks)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil {
		return
	}

	if r.deps.Recorder != nil {
		r.app.Get("/metrics", adaptor.HTTPHandler(r.deps.Recorder.Handler()))
	}

	v1 := r.app.Group("/v1")
	r.setupAuthRoutes(v1.Group("/auth"))

	livenessHandler := handler.NewLivenessHandler(r.deps.Liveness, r.deps.Realtime, r.logger)
	v1.Post("/liveness/evaluate", livenessHandler.Evaluate)
	v1.Post("/liveness/realtime", livenessHandler.Realtime)

	qualityHandler := handler.NewQualityHandler(r.deps.Quality, r.deps.Locator, r.deps.QualityThreshold, r.logger)
	v1.Post("/quality/assess", qualityHandler.Assess)
	v1.Post("/quality/image", qualityHandler.AssessImage)

	facesHandler := handler.NewFacesHandler(r.deps.Locator, r.logger)
	v1.Post("/faces/detect", facesHandler.Detect)
}

func (r *Router) setupAuthRoutes(auth fiber.Router) {
	r.rateLimiter = middleware.NewRateLimiter(r.deps.RateLimit)
	auth.Use(r.rateLimiter.Handler())

	sessionHandler := handler.NewSessionHandler(r.deps.Sessions, r.deps.Tokens, r.deps.Locator, r.logger)

	auth.Post("/start-session", sessionHandler.StartSession)
	auth.Post("/submit-liveness", sessionHandler.SubmitLiveness)
	auth.Post("/complete", sessionHandler.Complete)
	auth.Get("/session/:id", sessionHandler.GetSession)
	auth.Delete("/session/:id", sessionHandler.EndSession)
	auth.Post("/verify-token", sessionHandler.VerifyToken)
	auth.Get("/stats", sessionHandler.Stats)

	if r.deps.Hub != nil {
		hubCtx, hubCancel := context.WithCancel(context.Background())
		r.cancelHub = hubCancel
		go r.deps.Hub.Run(hubCtx)

		auth.Get("/session/:id/events",
			ws.UpgradeMiddleware(),
			sessionHandler.RequireSession,
			ws.Handler(r.deps.Hub),
		)
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	// Stop WebSocket hub
	if r.cancelHub != nil {
		r.cancelHub()
	}

	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
