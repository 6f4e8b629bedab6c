package browser

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/ahrdadan/snapq/internal/capture"
)

// Session owns exactly one Chromium process for the duration of one
// capture. Its context carries the global deadline; when the timer fires,
// in-flight CDP calls are aborted and the process is torn down.
type Session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	cancel   func()
	timer    *time.Timer

	mu        sync.Mutex
	expired   bool
	closeOnce sync.Once
}

// Target returns the page the session was opened with.
func (s *Session) Target() capture.Target {
	return &target{page: s.page}
}

// Expired reports whether the session deadline has fired.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}

func (s *Session) expire() {
	s.mu.Lock()
	s.expired = true
	s.mu.Unlock()
	log.Printf("Session deadline exceeded, forcing teardown")
	s.Close()
}

// Close tears the browser process down. Idempotent; safe to call from the
// deadline timer and the orchestrator's defer concurrently.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.timer != nil {
			s.timer.Stop()
		}
		// Abort in-flight operations first so nothing blocks teardown.
		s.cancel()
		if err := s.browser.Close(); err != nil {
			log.Printf("Warning: failed to close browser: %v", err)
		}
		s.launcher.Kill()
		s.launcher.Cleanup()
	})
}

// ExpectNewTarget subscribes to page creation before an interaction runs.
// The returned waiter races the first new page against the timeout; the
// subscription is torn down when the waiter returns, so nothing outlives
// the capture that registered it.
func (s *Session) ExpectNewTarget() func(timeout time.Duration) (capture.Target, bool) {
	pages := make(chan *rod.Page, 1)
	waitCtx, stop := context.WithCancel(s.browser.GetContext())
	waitBrowser := s.browser.Context(waitCtx)

	go func() {
		var ev proto.TargetTargetCreated
		wait := waitBrowser.WaitEvent(&ev)
		wait()
		if waitBrowser.GetContext().Err() != nil {
			return
		}
		if ev.TargetInfo.Type != proto.TargetTargetInfoTypePage {
			return
		}
		page, err := s.browser.PageFromTarget(ev.TargetInfo.TargetID)
		if err != nil {
			log.Printf("Warning: failed to attach to new page: %v", err)
			return
		}
		pages <- page
	}()

	return func(timeout time.Duration) (capture.Target, bool) {
		defer stop()
		select {
		case page := <-pages:
			// Give the fresh page a moment to reach load; best effort.
			if err := page.Timeout(3 * time.Second).WaitLoad(); err != nil {
				log.Printf("Warning: new page did not finish loading: %v", err)
			}
			return &target{page: page}, true
		case <-time.After(timeout):
			return nil, false
		}
	}
}
