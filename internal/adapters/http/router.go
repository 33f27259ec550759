package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"
	"github.com/wayfarelabs/wayfare/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1 with a 15s per-request timeout. Generation-backed endpoints
	// (replan, narration, ask, speak) get 30s: one model round trip plus a
	// place search can legitimately take that long.
	v1 := app.Group("/v1")
	v1.Post("/tours", timeout.NewWithContext(CreateTourHandler(deps), 30*time.Second))
	v1.Get("/tours/:id", timeout.NewWithContext(GetTourHandler(deps), 15*time.Second))
	v1.Delete("/tours/:id", timeout.NewWithContext(DeleteTourHandler(deps), 15*time.Second))
	v1.Post("/tours/:id/location", timeout.NewWithContext(LocationHandler(deps), 15*time.Second))
	v1.Post("/tours/:id/transition", timeout.NewWithContext(TransitionHandler(deps), 15*time.Second))
	v1.Post("/tours/:id/advance", timeout.NewWithContext(AdvanceHandler(deps), 15*time.Second))
	v1.Post("/tours/:id/replan", timeout.NewWithContext(ReplanHandler(deps), 30*time.Second))
	v1.Post("/tours/:id/replan/confirm", timeout.NewWithContext(ConfirmReplanHandler(deps), 15*time.Second))
	v1.Get("/tours/:id/narration", timeout.NewWithContext(NarrationHandler(deps), 30*time.Second))
	v1.Post("/tours/:id/ask", timeout.NewWithContext(AskHandler(deps), 30*time.Second))
	v1.Post("/tours/:id/speak", timeout.NewWithContext(SpeakHandler(deps), 30*time.Second))

	v1.Post("/proximity-check", timeout.NewWithContext(ProximityCheckHandler(deps), 15*time.Second))
	v1.Get("/pois", timeout.NewWithContext(ListPOIsHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// WebSocket: per-tour realtime event stream
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/tour/:id", websocket.New(TourWebSocketHandler(deps.NATS)))
}
