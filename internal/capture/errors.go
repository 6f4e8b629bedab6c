package capture

import (
	"errors"
	"fmt"
)

// Reason classifies a capture failure for the HTTP boundary.
type Reason string

const (
	ReasonSession           Reason = "session_failed"
	ReasonNavigationTimeout Reason = "navigation_timeout"
	ReasonClickFailed       Reason = "click_failed"
	ReasonCaptureFailed     Reason = "capture_failed"
	ReasonOptimization      Reason = "optimization_failed"
	ReasonUpload            Reason = "upload_failed"
	ReasonDeadlineExceeded  Reason = "deadline_exceeded"
)

// ErrElementNotFound marks a capture element that never resolved. It is
// recovered internally by falling back to a full-page screenshot and is
// never surfaced to callers.
var ErrElementNotFound = errors.New("element not found")

// Error is a capture failure with a typed reason.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fail(reason Reason, err error) *Error {
	return &Error{Reason: reason, Err: err}
}

// ReasonOf extracts the typed reason from an error chain.
func ReasonOf(err error) (Reason, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Reason, true
	}
	return "", false
}
