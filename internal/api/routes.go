package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/ahrdadan/snapq/internal/queue"
	"github.com/ahrdadan/snapq/internal/security"
)

// RouteConfig holds configuration for routes
type RouteConfig struct {
	RateLimitRequests int           // requests per window
	RateLimitWindow   time.Duration // time window
	BaseURL           string        // Base URL for full URLs in responses
}

// DefaultRouteConfig returns default route configuration
func DefaultRouteConfig() RouteConfig {
	return RouteConfig{
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		BaseURL:           "http://localhost:8000",
	}
}

// SetupRoutes configures all API routes. A nil scheduler disables the
// capture endpoints (they answer 500) but keeps health reachable.
func SetupRoutes(app *fiber.App, scheduler *queue.Scheduler, config RouteConfig) {
	handler := NewHandler(scheduler)

	// Health check (no rate limit)
	app.Get("/health", handler.HealthCheck)

	rateLimiter := security.NewRateLimiter(security.RateLimitConfig{
		RequestsPerWindow: config.RateLimitRequests,
		WindowDuration:    config.RateLimitWindow,
	})

	snapq := app.Group("/snapq")
	snapq.Use(security.SecurityHeadersMiddleware())
	snapq.Use(security.RequestValidationMiddleware())
	snapq.Use(security.RateLimitMiddleware(rateLimiter))

	// Synchronous capture
	snapq.Post("/capture", handler.Capture)

	// Queue occupancy
	snapq.Get("/queue/status", handler.QueueStatus)

	if scheduler == nil {
		return
	}

	jobHandler := NewJobHandler(scheduler, config.BaseURL)

	// Async job queue endpoints
	jobsGroup := snapq.Group("/jobs")
	jobsGroup.Post("", jobHandler.CreateJob)
	jobsGroup.Get("/:job_id", jobHandler.GetJobStatus)
	jobsGroup.Get("/:job_id/result", jobHandler.GetJobResult)
	jobsGroup.Get("/:job_id/events", jobHandler.StreamEvents)

	// WebSocket endpoint for job events
	app.Use("/snapq/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/snapq/ws", websocket.New(jobHandler.HandleWebSocket))
}
