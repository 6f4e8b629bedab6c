package capture

import "time"

// Default viewport applied when the request omits dimensions.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800
)

// Request describes one screenshot capture. Immutable once admitted.
type Request struct {
	URL             string `json:"url"`
	Selector        string `json:"selector,omitempty"`
	ClickSelector   string `json:"clickSelector,omitempty"`
	Filename        string `json:"filename,omitempty"`
	ViewportWidth   int    `json:"viewportWidth,omitempty"`
	ViewportHeight  int    `json:"viewportHeight,omitempty"`
	WaitAfterLoadMs int    `json:"waitAfterLoadMs,omitempty"`
}

// Viewport is the page dimensions a session is opened with.
type Viewport struct {
	Width  int
	Height int
}

// Normalize fills defaults and clamps the post-load wait.
func (r *Request) Normalize(maxWaitAfterLoad time.Duration) {
	if r.ViewportWidth <= 0 {
		r.ViewportWidth = DefaultViewportWidth
	}
	if r.ViewportHeight <= 0 {
		r.ViewportHeight = DefaultViewportHeight
	}
	if r.WaitAfterLoadMs < 0 {
		r.WaitAfterLoadMs = 0
	}
	if max := int(maxWaitAfterLoad / time.Millisecond); max > 0 && r.WaitAfterLoadMs > max {
		r.WaitAfterLoadMs = max
	}
}

// Viewport returns the viewport the request asks for.
func (r *Request) Viewport() Viewport {
	return Viewport{Width: r.ViewportWidth, Height: r.ViewportHeight}
}
