package capture

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ahrdadan/snapq/internal/storage"
)

// clickAttempts is how many times a present-but-failing click target is
// retried. The final attempt is forced.
const clickAttempts = 3

// Timeouts bounds the individual waits inside a capture run. The session
// deadline itself is enforced by the SessionOpener.
type Timeouts struct {
	Navigate time.Duration // full navigation including the load event
	Click    time.Duration // click target visibility wait
	NewPage  time.Duration // race window for a click opening a new page
	Settle   time.Duration // post-interaction settle wait
	Selector time.Duration // capture element resolution wait
}

// DefaultTimeouts returns the tuned defaults.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Navigate: 30 * time.Second,
		Click:    10 * time.Second,
		NewPage:  1500 * time.Millisecond,
		Settle:   10 * time.Second,
		Selector: 15 * time.Second,
	}
}

// Options configures an Orchestrator.
type Options struct {
	Timeouts         Timeouts
	MaxWaitAfterLoad time.Duration
}

// Orchestrator drives one capture from navigation to upload. It is
// stateless across runs; every run owns exactly one session, closed on
// every exit path.
type Orchestrator struct {
	opener   SessionOpener
	store    storage.Store
	optimize func([]byte) ([]byte, error)
	timeouts Timeouts
	maxWait  time.Duration
}

// New creates an orchestrator.
func New(opener SessionOpener, store storage.Store, optimize func([]byte) ([]byte, error), opts Options) *Orchestrator {
	if opts.Timeouts == (Timeouts{}) {
		opts.Timeouts = DefaultTimeouts()
	}
	if opts.MaxWaitAfterLoad <= 0 {
		opts.MaxWaitAfterLoad = 10 * time.Second
	}
	return &Orchestrator{
		opener:   opener,
		store:    store,
		optimize: optimize,
		timeouts: opts.Timeouts,
		maxWait:  opts.MaxWaitAfterLoad,
	}
}

// Run executes the capture state machine and returns the public URL of the
// uploaded screenshot.
func (o *Orchestrator) Run(ctx context.Context, req Request) (string, error) {
	req.Normalize(o.maxWait)

	sess, err := o.opener.Open(ctx, req.Viewport())
	if err != nil {
		return "", fail(ReasonSession, err)
	}
	defer sess.Close()

	url, err := o.run(ctx, sess, req)
	if err != nil {
		// The deadline firing mid-operation surfaces as whatever call was
		// in flight; reclassify so the caller sees a timeout.
		if sess.Expired() || errors.Is(err, context.DeadlineExceeded) {
			return "", fail(ReasonDeadlineExceeded, err)
		}
		return "", err
	}
	return url, nil
}

func (o *Orchestrator) run(ctx context.Context, sess Session, req Request) (string, error) {
	t := sess.Target()

	if err := t.Navigate(req.URL, o.timeouts.Navigate); err != nil {
		return "", fail(ReasonNavigationTimeout, err)
	}

	if d := time.Duration(req.WaitAfterLoadMs) * time.Millisecond; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if req.ClickSelector != "" {
		clicked, err := o.interact(sess, t, req.ClickSelector)
		if err != nil {
			return "", err
		}
		t = clicked
	}

	raw, err := o.capture(t, req.Selector)
	if err != nil {
		return "", fail(ReasonCaptureFailed, err)
	}

	optimized, err := o.optimize(raw)
	if err != nil {
		return "", fail(ReasonOptimization, err)
	}

	key := storage.DeriveKey(req.Filename)
	publicURL, err := o.store.Put(ctx, key, optimized, "image/png")
	if err != nil {
		return "", fail(ReasonUpload, err)
	}

	return publicURL, nil
}

// interact clicks the click target and resolves which page the capture
// should run against. A target that never becomes visible is a no-op:
// click selectors are routinely absent on variant pages. A target that is
// visible but refuses the click gets clickAttempts tries, the last one
// forced, before the run fails.
func (o *Orchestrator) interact(sess Session, t Target, selector string) (Target, error) {
	if err := t.WaitVisible(selector, o.timeouts.Click); err != nil {
		log.Printf("Click target %q not visible, capturing without interaction", selector)
		return t, nil
	}

	// Subscribe before clicking so a page opened by the click is not missed.
	waitNew := sess.ExpectNewTarget()

	var clickErr error
	for attempt := 1; attempt <= clickAttempts; attempt++ {
		clickErr = t.Click(selector, attempt == clickAttempts)
		if clickErr == nil {
			break
		}
		log.Printf("Click attempt %d/%d on %q failed: %v", attempt, clickAttempts, selector, clickErr)
	}
	if clickErr != nil {
		return nil, fail(ReasonClickFailed, clickErr)
	}

	if opened, ok := waitNew(o.timeouts.NewPage); ok {
		log.Printf("Click on %q opened a new page, capturing it instead", selector)
		t = opened
	}

	t.WaitSettled(o.timeouts.Settle)
	return t, nil
}

// capture produces the raw screenshot bytes. Element capture degrades to a
// full-page screenshot on any failure; only the full-page path can fail
// the request.
func (o *Orchestrator) capture(t Target, selector string) ([]byte, error) {
	if selector != "" {
		raw, err := o.captureElement(t, selector)
		if err == nil {
			return raw, nil
		}
		log.Printf("Element capture for %q failed (%v), falling back to full page", selector, err)
	}
	return t.ScreenshotFullPage()
}

func (o *Orchestrator) captureElement(t Target, selector string) ([]byte, error) {
	found, err := t.HasElement(selector, o.timeouts.Selector)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrElementNotFound
	}

	if err := t.ScrollIntoView(selector); err != nil {
		return nil, err
	}

	// Restoration is unconditional: it runs whether the screenshot
	// succeeds, fails, or the isolation itself errored halfway.
	defer func() {
		if _, err := RestoreVisibility(t); err != nil {
			log.Printf("Warning: failed to restore element visibility: %v", err)
		}
	}()

	stillThere, hidden, err := Isolate(t, selector)
	if err != nil {
		return nil, err
	}
	if !stillThere {
		return nil, ErrElementNotFound
	}
	log.Printf("Isolated %q, hid %d elements", selector, hidden)

	return t.ScreenshotElement(selector)
}
