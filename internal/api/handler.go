package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ahrdadan/snapq/internal/capture"
	"github.com/ahrdadan/snapq/internal/queue"
)

// Handler handles API requests
type Handler struct {
	scheduler *queue.Scheduler
}

// NewHandler creates a new handler. A nil scheduler means the capture
// pipeline could not be configured; capture endpoints then answer 500
// without ever touching a browser.
func NewHandler(scheduler *queue.Scheduler) *Handler {
	return &Handler{scheduler: scheduler}
}

// CaptureResponse is the success body of the capture endpoint.
type CaptureResponse struct {
	Success       bool   `json:"success"`
	ScreenshotURL string `json:"screenshotUrl"`
}

// ErrorResponse is the failure body of every endpoint.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// Response represents a standard API response for job endpoints
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ErrorHandler is the custom error handler for Fiber. Typed capture
// failures map to status codes here: the global deadline is a 408,
// everything else in the pipeline is a 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var details interface{}

	if reason, ok := capture.ReasonOf(err); ok {
		if reason == capture.ReasonDeadlineExceeded {
			code = fiber.StatusRequestTimeout
		}
		details = fiber.Map{"reason": string(reason)}
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	return c.Status(code).JSON(ErrorResponse{
		Success: false,
		Error:   err.Error(),
		Details: details,
	})
}

// HealthCheck returns health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(Response{
		Success: true,
		Data: map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// QueueStatus returns current queue occupancy.
func (h *Handler) QueueStatus(c *fiber.Ctx) error {
	if h.scheduler == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "capture pipeline is not configured")
	}

	active, waiting := h.scheduler.Status()
	return c.JSON(Response{
		Success: true,
		Data: map[string]interface{}{
			"active":  active,
			"waiting": waiting,
		},
	})
}

// Capture runs a capture synchronously and returns the screenshot URL.
// POST /snapq/capture
func (h *Handler) Capture(c *fiber.Ctx) error {
	if h.scheduler == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "capture pipeline is not configured")
	}

	var req capture.Request
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.URL == "" {
		return fiber.NewError(fiber.StatusBadRequest, "url is required")
	}

	_, outcome := h.scheduler.Submit(req)
	out := <-outcome
	if out.Err != nil {
		return out.Err
	}

	return c.JSON(CaptureResponse{
		Success:       true,
		ScreenshotURL: out.URL,
	})
}
