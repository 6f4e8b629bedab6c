package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/ahrdadan/snapq/internal/capture"
)

// DefaultResultTTL is how long a finished job record stays queryable.
const DefaultResultTTL = 24 * time.Hour

// JobStatus represents the status of a capture job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Job tracks one admitted capture request through the pipeline.
type Job struct {
	ID            string          `json:"job_id"`
	Status        JobStatus       `json:"status"`
	Request       capture.Request `json:"request"`
	ScreenshotURL string          `json:"screenshot_url,omitempty"`
	Error         string          `json:"error,omitempty"`
	CreatedAt     int64           `json:"created_at"`
	UpdatedAt     int64           `json:"updated_at"`
	StartedAt     int64           `json:"started_at,omitempty"`
	CompletedAt   int64           `json:"completed_at,omitempty"`
	ExpiresAt     int64           `json:"expires_at,omitempty"`
}

// NewJob creates a queued job for a request.
func NewJob(req capture.Request, resultTTL time.Duration) *Job {
	if resultTTL <= 0 {
		resultTTL = DefaultResultTTL
	}
	now := time.Now().Unix()
	return &Job{
		ID:        generateJobID(),
		Status:    JobStatusQueued,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: time.Now().Add(resultTTL).Unix(),
	}
}

// SetRunning marks the job as dispatched.
func (j *Job) SetRunning() {
	j.Status = JobStatusRunning
	j.StartedAt = time.Now().Unix()
	j.UpdatedAt = j.StartedAt
}

// SetResult records a successful capture.
func (j *Job) SetResult(url string) {
	j.Status = JobStatusSucceeded
	j.ScreenshotURL = url
	j.CompletedAt = time.Now().Unix()
	j.UpdatedAt = j.CompletedAt
}

// SetError records a failed capture.
func (j *Job) SetError(err string) {
	j.Status = JobStatusFailed
	j.Error = err
	j.CompletedAt = time.Now().Unix()
	j.UpdatedAt = j.CompletedAt
}

// Done reports whether the job reached a terminal state.
func (j *Job) Done() bool {
	return j.Status == JobStatusSucceeded || j.Status == JobStatusFailed
}

// IsExpired checks if the job record has expired.
func (j *Job) IsExpired() bool {
	if j.ExpiresAt == 0 {
		return false
	}
	return time.Now().Unix() > j.ExpiresAt
}

func generateJobID() string {
	return "cap_" + uuid.New().String()[:8]
}
