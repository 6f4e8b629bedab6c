package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/ahrdadan/snapq/internal/capture"
	"github.com/ahrdadan/snapq/internal/queue"
)

// JobHandler handles the async capture job API.
type JobHandler struct {
	scheduler *queue.Scheduler
	baseURL   string
}

// NewJobHandler creates a new job handler
func NewJobHandler(scheduler *queue.Scheduler, baseURL string) *JobHandler {
	return &JobHandler{
		scheduler: scheduler,
		baseURL:   baseURL,
	}
}

// JobCreatedResponse is returned when an async capture is accepted.
type JobCreatedResponse struct {
	JobID     string          `json:"job_id"`
	Status    queue.JobStatus `json:"status"`
	StatusURL string          `json:"status_url"`
	ResultURL string          `json:"result_url"`
	Events    struct {
		SSEURL string `json:"sse_url"`
		WSURL  string `json:"ws_url"`
	} `json:"events"`
}

// CreateJob submits a capture without waiting for it.
// POST /snapq/jobs
func (h *JobHandler) CreateJob(c *fiber.Ctx) error {
	var req capture.Request
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if req.URL == "" {
		return fiber.NewError(fiber.StatusBadRequest, "url is required")
	}

	job, outcome := h.scheduler.Submit(req)
	// The job record carries the result; nobody waits on the channel.
	go func() { <-outcome }()

	response := JobCreatedResponse{
		JobID:     job.ID,
		Status:    job.Status,
		StatusURL: fmt.Sprintf("%s/snapq/jobs/%s", h.baseURL, job.ID),
		ResultURL: fmt.Sprintf("%s/snapq/jobs/%s/result", h.baseURL, job.ID),
	}
	response.Events.SSEURL = fmt.Sprintf("%s/snapq/jobs/%s/events", h.baseURL, job.ID)
	response.Events.WSURL = fmt.Sprintf("%s/snapq/ws?job_id=%s", h.baseURL, job.ID)

	return c.Status(fiber.StatusAccepted).JSON(Response{
		Success: true,
		Data:    response,
	})
}

// GetJobStatus returns the status of a job
// GET /snapq/jobs/:job_id
func (h *JobHandler) GetJobStatus(c *fiber.Ctx) error {
	jobID := c.Params("job_id")
	if jobID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Job ID is required")
	}

	job, err := h.scheduler.GetJob(jobID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Job not found")
	}

	response := map[string]interface{}{
		"job_id":     job.ID,
		"status":     job.Status,
		"created_at": job.CreatedAt,
		"updated_at": job.UpdatedAt,
	}
	if job.ExpiresAt > 0 {
		response["expires_at"] = time.Unix(job.ExpiresAt, 0).Format(time.RFC3339)
	}

	return c.JSON(Response{
		Success: true,
		Data:    response,
	})
}

// GetJobResult returns the result of a completed job
// GET /snapq/jobs/:job_id/result
func (h *JobHandler) GetJobResult(c *fiber.Ctx) error {
	jobID := c.Params("job_id")
	if jobID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Job ID is required")
	}

	job, err := h.scheduler.GetJob(jobID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Job not found")
	}

	if !job.Done() {
		return fiber.NewError(fiber.StatusConflict, "Job not completed yet")
	}

	return c.JSON(Response{
		Success: true,
		Data: map[string]interface{}{
			"job_id":         job.ID,
			"status":         job.Status,
			"screenshot_url": job.ScreenshotURL,
			"error":          job.Error,
		},
	})
}

// StreamEvents streams job events via SSE
// GET /snapq/jobs/:job_id/events
func (h *JobHandler) StreamEvents(c *fiber.Ctx) error {
	jobID := c.Params("job_id")
	if jobID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Job ID is required")
	}

	job, err := h.scheduler.GetJob(jobID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Job not found")
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// Send initial status
		eventData, _ := json.Marshal(queue.Event{
			JobID:         job.ID,
			Status:        job.Status,
			ScreenshotURL: job.ScreenshotURL,
			Error:         job.Error,
		})
		fmt.Fprintf(w, "data: %s\n\n", eventData)
		w.Flush()

		if job.Done() {
			return
		}

		events := h.scheduler.Subscribe(jobID)
		defer h.scheduler.Unsubscribe(jobID, events)

		for event := range events {
			eventData, _ := json.Marshal(event)
			fmt.Fprintf(w, "data: %s\n\n", eventData)
			w.Flush()

			if event.Status == queue.JobStatusSucceeded || event.Status == queue.JobStatusFailed {
				return
			}
		}
	})

	return nil
}

// HandleWebSocket streams job events over a websocket connection.
func (h *JobHandler) HandleWebSocket(c *websocket.Conn) {
	jobID := c.Query("job_id")
	if jobID == "" {
		_ = c.WriteJSON(map[string]interface{}{
			"error": "job_id is required",
		})
		c.Close()
		return
	}

	job, err := h.scheduler.GetJob(jobID)
	if err != nil {
		_ = c.WriteJSON(map[string]interface{}{
			"error": "job not found",
		})
		c.Close()
		return
	}

	// Send initial status
	_ = c.WriteJSON(queue.Event{
		JobID:         job.ID,
		Status:        job.Status,
		ScreenshotURL: job.ScreenshotURL,
		Error:         job.Error,
	})

	if job.Done() {
		c.Close()
		return
	}

	events := h.scheduler.Subscribe(jobID)
	defer h.scheduler.Unsubscribe(jobID, events)

	for event := range events {
		if err := c.WriteJSON(event); err != nil {
			return
		}

		if event.Status == queue.JobStatusSucceeded || event.Status == queue.JobStatusFailed {
			time.Sleep(100 * time.Millisecond)
			return
		}
	}
}
