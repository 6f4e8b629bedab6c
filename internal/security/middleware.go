package security

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RateLimitMiddleware returns a rate limiting middleware keyed by client IP
// (or an API key header when present).
func RateLimitMiddleware(rl *RateLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clientID := c.Get("X-API-Key")
		if clientID == "" {
			clientID = c.IP()
		}

		if !rl.Allow(clientID) {
			resetAt := rl.ResetAt(clientID)

			c.Set("X-RateLimit-Remaining", "0")
			c.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
			c.Set("Retry-After", strconv.FormatInt(int64(time.Until(resetAt).Seconds()), 10))

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success":     false,
				"error":       "Rate limit exceeded",
				"retry_after": int64(time.Until(resetAt).Seconds()),
			})
		}

		c.Set("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining(clientID)))
		return c.Next()
	}
}

// SecurityHeadersMiddleware adds security headers and a request ID.
func SecurityHeadersMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("X-Request-ID", requestID)
		c.Locals("requestID", requestID)

		return c.Next()
	}
}

// RequestValidationMiddleware validates incoming requests
func RequestValidationMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Check content type for POST/PUT/PATCH requests
		if c.Method() == fiber.MethodPost || c.Method() == fiber.MethodPut || c.Method() == fiber.MethodPatch {
			contentType := c.Get("Content-Type")
			if contentType != "" && !strings.HasPrefix(contentType, "application/json") {
				return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
					"success": false,
					"error":   "Content-Type must be application/json",
				})
			}
		}

		// Limit request body size (1MB is plenty for a capture request)
		if len(c.Body()) > 1024*1024 {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
				"success": false,
				"error":   "Request body too large",
			})
		}

		return c.Next()
	}
}
