package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/Aoli/gravel-biking/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// RouterConfig tunes middleware that differs between deployments.
type RouterConfig struct {
	// RateLimit is the number of requests per minute per IP; 0 disables it.
	RateLimit int
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies, cfg RouterConfig) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	if cfg.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return newError(c, 429, "rate_limited", "too many requests, please try again later")
			},
		}))
	}

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
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

	v1 := app.Group("/v1")

	// Editing sessions. Session calls are in-memory and need no timeout.
	s := v1.Group("/sessions")
	s.Post("/", CreateSessionHandler(deps))
	s.Get("/:id", GetSessionHandler(deps))
	s.Delete("/:id", DeleteSessionHandler(deps))
	s.Post("/:id/points", AddPointHandler(deps))
	s.Put("/:id/points", LoadPointsHandler(deps))
	s.Post("/:id/points/insert", InsertPointHandler(deps))
	s.Put("/:id/points/:index", MovePointHandler(deps))
	s.Delete("/:id/points/:index", DeletePointHandler(deps))
	s.Post("/:id/select/:index", SelectPointHandler(deps))
	s.Delete("/:id/select", CancelSelectionHandler(deps))
	s.Post("/:id/loop", ToggleLoopHandler(deps))
	s.Post("/:id/clear", ClearRouteHandler(deps))
	s.Post("/:id/undo", UndoHandler(deps))
	s.Post("/:id/markers", GenerateMarkersHandler(deps))
	s.Delete("/:id/markers", ClearMarkersHandler(deps))
	s.Post("/:id/import", timeout.NewWithContext(ImportHandler(deps), requestTimeout))
	s.Get("/:id/export", ExportHandler(deps))
	s.Post("/:id/save", timeout.NewWithContext(SaveSessionHandler(deps), requestTimeout))
	s.Post("/:id/load/:routeId", timeout.NewWithContext(LoadSavedHandler(deps), requestTimeout))

	// Saved routes
	v1.Get("/routes", timeout.NewWithContext(ListRoutesHandler(deps), requestTimeout))
	v1.Post("/routes/import", timeout.NewWithContext(ImportRoutesHandler(deps), 2*requestTimeout))
	v1.Get("/routes/:id", timeout.NewWithContext(GetRouteHandler(deps), requestTimeout))
	v1.Delete("/routes/:id", timeout.NewWithContext(DeleteRouteHandler(deps), requestTimeout))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
