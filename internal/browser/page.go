package browser

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// locateTimeout bounds element lookups for operations whose element is
// already known to exist (click, scroll, element screenshot).
const locateTimeout = 3 * time.Second

// target adapts a rod page to the capture.Target capability.
type target struct {
	page *rod.Page
}

func (t *target) Navigate(url string, timeout time.Duration) error {
	p := t.page.Timeout(timeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for page load: %w", err)
	}
	return nil
}

func (t *target) WaitVisible(selector string, timeout time.Duration) error {
	el, err := t.page.Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %s", selector)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("element never became visible: %s: %w", selector, err)
	}
	return nil
}

func (t *target) Click(selector string, force bool) error {
	el, err := t.page.Timeout(locateTimeout).Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %s", selector)
	}

	if force {
		// Dispatch through script, bypassing actionability checks.
		if _, err := el.Eval(`() => this.click()`); err != nil {
			return fmt.Errorf("forced click failed: %w", err)
		}
		return nil
	}

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click element: %w", err)
	}
	return nil
}

func (t *target) Eval(script string, args ...interface{}) (gson.JSON, error) {
	res, err := t.page.Eval(script, args...)
	if err != nil {
		return gson.JSON{}, fmt.Errorf("failed to evaluate script: %w", err)
	}
	return res.Value, nil
}

const settleScript = `(initialURL) => new Promise((resolve) => {
	if (location.href !== initialURL) { resolve('url'); return; }
	const observer = new MutationObserver(() => { observer.disconnect(); resolve('dom'); });
	observer.observe(document.documentElement, { subtree: true, childList: true, attributes: true });
})`

// WaitSettled blocks until the page looks settled after an interaction:
// first of network idle, URL change, or DOM mutation. Timing out is fine;
// the page is captured as-is.
func (t *target) WaitSettled(timeout time.Duration) {
	p := t.page.Timeout(timeout)

	initialURL := ""
	if info, err := p.Info(); err == nil {
		initialURL = info.URL
	}

	done := make(chan struct{}, 2)
	go func() {
		p.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
		done <- struct{}{}
	}()
	go func() {
		_, _ = p.Eval(settleScript, initialURL)
		done <- struct{}{}
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}
}

func (t *target) HasElement(selector string, timeout time.Duration) (bool, error) {
	if _, err := t.page.Timeout(timeout).Element(selector); err != nil {
		// Distinguish the wait running out from the session being gone.
		if t.page.GetContext().Err() != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (t *target) ScrollIntoView(selector string) error {
	el, err := t.page.Timeout(locateTimeout).Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %s", selector)
	}
	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("failed to scroll element into view: %w", err)
	}
	return nil
}

func (t *target) ScreenshotElement(selector string) ([]byte, error) {
	el, err := t.page.Timeout(locateTimeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element not found: %s", selector)
	}

	shape, err := el.Shape()
	if err != nil {
		return nil, fmt.Errorf("failed to get element shape: %w", err)
	}
	box := shape.Box()
	if box == nil {
		return nil, fmt.Errorf("element has no layout box: %s", selector)
	}

	// Transparent page background so the isolated element renders clean.
	alpha := float64(0)
	if err := (proto.EmulationSetDefaultBackgroundColorOverride{
		Color: &proto.DOMRGBA{R: 0, G: 0, B: 0, A: &alpha},
	}).Call(t.page); err != nil {
		return nil, fmt.Errorf("failed to override background: %w", err)
	}
	defer func() {
		_ = proto.EmulationSetDefaultBackgroundColorOverride{}.Call(t.page)
	}()

	bin, err := t.page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			X:      box.X,
			Y:      box.Y,
			Width:  box.Width,
			Height: box.Height,
			Scale:  1,
		},
		FromSurface: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to capture element screenshot: %w", err)
	}
	return bin, nil
}

func (t *target) ScreenshotFullPage() ([]byte, error) {
	bin, err := t.page.Screenshot(true, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}
	return bin, nil
}
