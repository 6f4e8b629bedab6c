package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/ahrdadan/snapq/internal/capture"
)

// deviceScale is the device scale factor applied to every session so
// captures come out crisp on high-density displays.
const deviceScale = 2.0

// Launcher opens one dedicated Chromium process per capture session.
// Sessions are never shared: each one owns its process, its pages, and its
// deadline, and is destroyed when the capture finishes.
type Launcher struct {
	bin      string
	deadline time.Duration
}

// NewLauncher creates a session launcher for the given Chromium binary.
func NewLauncher(bin string, deadline time.Duration) *Launcher {
	if deadline <= 0 {
		deadline = 120 * time.Second
	}
	return &Launcher{bin: bin, deadline: deadline}
}

// Open launches a browser process, connects over CDP, and opens a blank
// page with the requested viewport. The returned session enforces the
// global deadline from this moment on.
func (l *Launcher) Open(ctx context.Context, viewport capture.Viewport) (capture.Session, error) {
	la := launcher.New().Headless(true).Leakless(true)
	if l.bin != "" {
		la.Bin(l.bin)
	}

	wsURL, err := la.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		la.Kill()
		la.Cleanup()
		return nil, fmt.Errorf("failed to connect to chromium: %w", err)
	}

	sessCtx, cancel := context.WithTimeout(ctx, l.deadline)
	browser = browser.Context(sessCtx)

	s := &Session{
		browser:  browser,
		launcher: la,
		cancel:   cancel,
	}
	s.timer = time.AfterFunc(l.deadline, s.expire)

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewport.Width,
		Height:            viewport.Height,
		DeviceScaleFactor: deviceScale,
		Mobile:            false,
	}); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	s.page = page
	return s, nil
}
