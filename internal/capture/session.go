package capture

import (
	"context"
	"time"

	"github.com/ysmood/gson"
)

// Target is one scriptable page inside a session. All calls suspend on
// browser I/O and abort when the owning session's deadline fires.
type Target interface {
	// Navigate loads the URL and waits for the load event, bounded by timeout.
	Navigate(url string, timeout time.Duration) error
	// WaitVisible blocks until the selector resolves to a visible element or
	// the timeout elapses.
	WaitVisible(selector string, timeout time.Duration) error
	// Click clicks the element. A forced click dispatches the event through
	// script, bypassing actionability checks.
	Click(selector string, force bool) error
	// Eval runs a script in page context and returns its structured result.
	Eval(script string, args ...interface{}) (gson.JSON, error)
	// WaitSettled waits, best effort, for the page to settle after an
	// interaction: first of network idle, URL change, or DOM mutation.
	// Timing out is not an error.
	WaitSettled(timeout time.Duration)
	// HasElement reports whether the selector resolves within the wait.
	HasElement(selector string, timeout time.Duration) (bool, error)
	// ScrollIntoView scrolls the element into the viewport.
	ScrollIntoView(selector string) error
	// ScreenshotElement captures the element's bounding box with the page
	// background omitted.
	ScreenshotElement(selector string) ([]byte, error)
	// ScreenshotFullPage captures the whole document.
	ScreenshotFullPage() ([]byte, error)
}

// Session owns one browser process for the duration of a single capture.
type Session interface {
	// Target returns the page the session was opened with.
	Target() Target
	// ExpectNewTarget subscribes to new-page creation before an interaction
	// and returns a waiter racing that event against the given timeout. The
	// subscription dies with the waiter; nothing outlives the call.
	ExpectNewTarget() func(timeout time.Duration) (Target, bool)
	// Expired reports whether the session deadline has fired.
	Expired() bool
	// Close tears the browser process down. Idempotent.
	Close()
}

// SessionOpener creates sessions. Implemented by browser.Launcher.
type SessionOpener interface {
	Open(ctx context.Context, viewport Viewport) (Session, error)
}
