package capture_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ysmood/gson"

	"github.com/ahrdadan/snapq/internal/capture"
)

// fakeTarget implements capture.Target with scripted behavior.
type fakeTarget struct {
	name string

	navigatedURL string
	navErr       error
	visibleErr   error

	clickErrs []error // error per attempt; out of range means success
	clicks    []bool  // force flag per recorded click

	hasElement bool
	hasErr     error
	scrollErr  error

	isolateFound bool
	isolateErr   error
	restored     bool

	elementShot    []byte
	elementShotErr error
	fullShot       []byte
	fullShotErr    error

	settled bool
}

func (t *fakeTarget) Navigate(url string, timeout time.Duration) error {
	t.navigatedURL = url
	return t.navErr
}

func (t *fakeTarget) WaitVisible(selector string, timeout time.Duration) error {
	return t.visibleErr
}

func (t *fakeTarget) Click(selector string, force bool) error {
	t.clicks = append(t.clicks, force)
	if n := len(t.clicks) - 1; n < len(t.clickErrs) {
		return t.clickErrs[n]
	}
	return nil
}

func (t *fakeTarget) Eval(script string, args ...interface{}) (gson.JSON, error) {
	// The isolation script takes the selector; restoration takes nothing.
	if len(args) > 0 {
		if t.isolateErr != nil {
			return gson.New(nil), t.isolateErr
		}
		return gson.New(map[string]interface{}{
			"found":  t.isolateFound,
			"hidden": 3,
		}), nil
	}
	t.restored = true
	return gson.New(3), nil
}

func (t *fakeTarget) WaitSettled(timeout time.Duration) {
	t.settled = true
}

func (t *fakeTarget) HasElement(selector string, timeout time.Duration) (bool, error) {
	return t.hasElement, t.hasErr
}

func (t *fakeTarget) ScrollIntoView(selector string) error {
	return t.scrollErr
}

func (t *fakeTarget) ScreenshotElement(selector string) ([]byte, error) {
	return t.elementShot, t.elementShotErr
}

func (t *fakeTarget) ScreenshotFullPage() ([]byte, error) {
	return t.fullShot, t.fullShotErr
}

// fakeSession implements capture.Session around a fakeTarget.
type fakeSession struct {
	target  *fakeTarget
	newPage *fakeTarget // delivered by the new-target waiter when set
	expired bool
	closed  bool
}

func (s *fakeSession) Target() capture.Target { return s.target }

func (s *fakeSession) ExpectNewTarget() func(time.Duration) (capture.Target, bool) {
	return func(time.Duration) (capture.Target, bool) {
		if s.newPage != nil {
			return s.newPage, true
		}
		return nil, false
	}
}

func (s *fakeSession) Expired() bool { return s.expired }
func (s *fakeSession) Close()        { s.closed = true }

type fakeOpener struct {
	sess     *fakeSession
	openErr  error
	viewport capture.Viewport
}

func (o *fakeOpener) Open(ctx context.Context, vp capture.Viewport) (capture.Session, error) {
	o.viewport = vp
	if o.openErr != nil {
		return nil, o.openErr
	}
	return o.sess, nil
}

type fakeStore struct {
	key  string
	body []byte
	err  error
}

func (s *fakeStore) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.key = key
	s.body = body
	return "https://cdn.test/" + key, nil
}

func passthrough(raw []byte) ([]byte, error) { return raw, nil }

func newOrchestrator(opener *fakeOpener, store *fakeStore) *capture.Orchestrator {
	return capture.New(opener, store, passthrough, capture.Options{})
}

func TestRunFullPage(t *testing.T) {
	target := &fakeTarget{fullShot: []byte("full-page")}
	opener := &fakeOpener{sess: &fakeSession{target: target}}
	store := &fakeStore{}

	url, err := newOrchestrator(opener, store).Run(context.Background(), capture.Request{
		URL:      "https://example.com",
		Filename: "report",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if url != "https://cdn.test/report.png" {
		t.Errorf("Expected report.png URL, got %s", url)
	}
	if target.navigatedURL != "https://example.com" {
		t.Errorf("Expected navigation to example.com, got %s", target.navigatedURL)
	}
	if string(store.body) != "full-page" {
		t.Errorf("Expected full-page bytes to be uploaded, got %q", store.body)
	}
	if !opener.sess.closed {
		t.Errorf("Expected session to be closed")
	}
	if opener.viewport.Width != 1280 || opener.viewport.Height != 800 {
		t.Errorf("Expected default viewport 1280x800, got %dx%d", opener.viewport.Width, opener.viewport.Height)
	}
}

func TestRunCustomViewport(t *testing.T) {
	target := &fakeTarget{fullShot: []byte("x")}
	opener := &fakeOpener{sess: &fakeSession{target: target}}

	_, err := newOrchestrator(opener, &fakeStore{}).Run(context.Background(), capture.Request{
		URL:            "https://example.com",
		ViewportWidth:  375,
		ViewportHeight: 667,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if opener.viewport.Width != 375 || opener.viewport.Height != 667 {
		t.Errorf("Expected viewport 375x667, got %dx%d", opener.viewport.Width, opener.viewport.Height)
	}
}

func TestSessionOpenFailure(t *testing.T) {
	opener := &fakeOpener{openErr: errors.New("no chromium")}

	_, err := newOrchestrator(opener, &fakeStore{}).Run(context.Background(), capture.Request{
		URL: "https://example.com",
	})
	if reason, ok := capture.ReasonOf(err); !ok || reason != capture.ReasonSession {
		t.Errorf("Expected session_failed, got %v", err)
	}
}

func TestNavigationFailure(t *testing.T) {
	target := &fakeTarget{navErr: errors.New("timeout")}
	opener := &fakeOpener{sess: &fakeSession{target: target}}

	_, err := newOrchestrator(opener, &fakeStore{}).Run(context.Background(), capture.Request{
		URL: "https://example.com",
	})
	if reason, ok := capture.ReasonOf(err); !ok || reason != capture.ReasonNavigationTimeout {
		t.Errorf("Expected navigation_timeout, got %v", err)
	}
	if !opener.sess.closed {
		t.Errorf("Expected session to be closed on failure")
	}
}

func TestDeadlineReclassifiesFailure(t *testing.T) {
	target := &fakeTarget{navErr: errors.New("connection reset")}
	sess := &fakeSession{target: target, expired: true}
	opener := &fakeOpener{sess: sess}

	_, err := newOrchestrator(opener, &fakeStore{}).Run(context.Background(), capture.Request{
		URL: "https://example.com",
	})
	if reason, ok := capture.ReasonOf(err); !ok || reason != capture.ReasonDeadlineExceeded {
		t.Errorf("Expected deadline_exceeded when session expired, got %v", err)
	}
}

func TestClickRetriesThenForces(t *testing.T) {
	target := &fakeTarget{
		fullShot:  []byte("x"),
		clickErrs: []error{errors.New("not clickable"), errors.New("not clickable")},
	}
	opener := &fakeOpener{sess: &fakeSession{target: target}}

	_, err := newOrchestrator(opener, &fakeStore{}).Run(context.Background(), capture.Request{
		URL:           "https://example.com",
		ClickSelector: "#expand",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(target.clicks) != 3 {
		t.Fatalf("Expected 3 click attempts, got %d", len(target.clicks))
	}
	if target.clicks[0] || target.clicks[1] || !target.clicks[2] {
		t.Errorf("Expected only the final attempt to be forced, got %v", target.clicks)
	}
	if !target.settled {
		t.Errorf("Expected settle wait after the click")
	}
}

func TestClickFailsAfterAllAttempts(t *testing.T) {
	clickErr := errors.New("covered by overlay")
	target := &fakeTarget{
		fullShot:  []byte("x"),
		clickErrs: []error{clickErr, clickErr, clickErr},
	}
	opener := &fakeOpener{sess: &fakeSession{target: target}}

	_, err := newOrchestrator(opener, &fakeStore{}).Run(context.Background(), capture.Request{
		URL:           "https://example.com",
		ClickSelector: "#expand",
	})
	if reason, ok := capture.ReasonOf(err); !ok || reason != capture.ReasonClickFailed {
		t.Errorf("Expected click_failed, got %v", err)
	}
	if len(target.clicks) != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d", len(target.clicks))
	}
}

func TestClickTargetNeverVisibleIsNoop(t *testing.T) {
	target := &fakeTarget{
		fullShot:   []byte("x"),
		visibleErr: errors.New("element not visible"),
	}
	opener := &fakeOpener{sess: &fakeSession{target: target}}

	_, err := newOrchestrator(opener, &fakeStore{}).Run(context.Background(), capture.Request{
		URL:           "https://example.com",
		ClickSelector: "#cookie-banner",
	})
	if err != nil {
		t.Fatalf("Expected capture to proceed without the click, got %v", err)
	}
	if len(target.clicks) != 0 {
		t.Errorf("Expected no click attempts, got %d", len(target.clicks))
	}
}

func TestClickOpensNewPage(t *testing.T) {
	original := &fakeTarget{name: "original", fullShot: []byte("original")}
	opened := &fakeTarget{name: "opened", fullShot: []byte("opened")}
	opener := &fakeOpener{sess: &fakeSession{target: original, newPage: opened}}
	store := &fakeStore{}

	_, err := newOrchestrator(opener, store).Run(context.Background(), capture.Request{
		URL:           "https://example.com",
		ClickSelector: "#open-report",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if string(store.body) != "opened" {
		t.Errorf("Expected the new page to be captured, got %q", store.body)
	}
	if !opened.settled {
		t.Errorf("Expected settle wait to run against the new page")
	}
}

func TestElementCapture(t *testing.T) {
	target := &fakeTarget{
		hasElement:   true,
		isolateFound: true,
		elementShot:  []byte("element"),
		fullShot:     []byte("full"),
	}
	opener := &fakeOpener{sess: &fakeSession{target: target}}
	store := &fakeStore{}

	_, err := newOrchestrator(opener, store).Run(context.Background(), capture.Request{
		URL:      "https://example.com",
		Selector: "#chart",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if string(store.body) != "element" {
		t.Errorf("Expected element bytes, got %q", store.body)
	}
	if !target.restored {
		t.Errorf("Expected visibility restoration after element capture")
	}
}

func TestElementMissingFallsBackToFullPage(t *testing.T) {
	target := &fakeTarget{
		hasElement: false,
		fullShot:   []byte("full"),
	}
	opener := &fakeOpener{sess: &fakeSession{target: target}}
	store := &fakeStore{}

	_, err := newOrchestrator(opener, store).Run(context.Background(), capture.Request{
		URL:      "https://example.com",
		Selector: "#gone",
	})
	if err != nil {
		t.Fatalf("Expected fallback to succeed, got %v", err)
	}
	if string(store.body) != "full" {
		t.Errorf("Expected full-page fallback bytes, got %q", store.body)
	}
}

func TestElementShotFailureStillRestores(t *testing.T) {
	target := &fakeTarget{
		hasElement:     true,
		isolateFound:   true,
		elementShotErr: errors.New("render failed"),
		fullShot:       []byte("full"),
	}
	opener := &fakeOpener{sess: &fakeSession{target: target}}
	store := &fakeStore{}

	_, err := newOrchestrator(opener, store).Run(context.Background(), capture.Request{
		URL:      "https://example.com",
		Selector: "#chart",
	})
	if err != nil {
		t.Fatalf("Expected fallback to succeed, got %v", err)
	}
	if !target.restored {
		t.Errorf("Expected restoration to run even when the element shot failed")
	}
	if string(store.body) != "full" {
		t.Errorf("Expected full-page fallback bytes, got %q", store.body)
	}
}

func TestElementVanishedDuringIsolation(t *testing.T) {
	target := &fakeTarget{
		hasElement:   true,
		isolateFound: false, // removed between location and isolation
		fullShot:     []byte("full"),
	}
	opener := &fakeOpener{sess: &fakeSession{target: target}}
	store := &fakeStore{}

	_, err := newOrchestrator(opener, store).Run(context.Background(), capture.Request{
		URL:      "https://example.com",
		Selector: "#flaky",
	})
	if err != nil {
		t.Fatalf("Expected fallback to succeed, got %v", err)
	}
	if !target.restored {
		t.Errorf("Expected restoration after a failed isolation")
	}
	if string(store.body) != "full" {
		t.Errorf("Expected full-page fallback bytes, got %q", store.body)
	}
}

func TestFullPageFailureFailsRun(t *testing.T) {
	target := &fakeTarget{fullShotErr: errors.New("tab crashed")}
	opener := &fakeOpener{sess: &fakeSession{target: target}}

	_, err := newOrchestrator(opener, &fakeStore{}).Run(context.Background(), capture.Request{
		URL: "https://example.com",
	})
	if reason, ok := capture.ReasonOf(err); !ok || reason != capture.ReasonCaptureFailed {
		t.Errorf("Expected capture_failed, got %v", err)
	}
}

func TestUploadFailure(t *testing.T) {
	target := &fakeTarget{fullShot: []byte("x")}
	opener := &fakeOpener{sess: &fakeSession{target: target}}
	store := &fakeStore{err: errors.New("access denied")}

	_, err := newOrchestrator(opener, store).Run(context.Background(), capture.Request{
		URL: "https://example.com",
	})
	if reason, ok := capture.ReasonOf(err); !ok || reason != capture.ReasonUpload {
		t.Errorf("Expected upload_failed, got %v", err)
	}
}

func TestOptimizationFailure(t *testing.T) {
	target := &fakeTarget{fullShot: []byte("x")}
	opener := &fakeOpener{sess: &fakeSession{target: target}}

	o := capture.New(opener, &fakeStore{}, func([]byte) ([]byte, error) {
		return nil, errors.New("bad png")
	}, capture.Options{})

	_, err := o.Run(context.Background(), capture.Request{URL: "https://example.com"})
	if reason, ok := capture.ReasonOf(err); !ok || reason != capture.ReasonOptimization {
		t.Errorf("Expected optimization_failed, got %v", err)
	}
}

func TestGeneratedKeyWhenFilenameOmitted(t *testing.T) {
	target := &fakeTarget{fullShot: []byte("x")}
	opener := &fakeOpener{sess: &fakeSession{target: target}}
	store := &fakeStore{}

	_, err := newOrchestrator(opener, store).Run(context.Background(), capture.Request{
		URL: "https://example.com",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.HasSuffix(store.key, ".png") || store.key == ".png" {
		t.Errorf("Expected a generated .png key, got %q", store.key)
	}
}
