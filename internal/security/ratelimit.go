package security

import (
	"sync"
	"time"
)

// RateLimiter implements a sliding window rate limiter keyed by client.
type RateLimiter struct {
	windows map[string]*window
	mu      sync.Mutex
	limit   int
	period  time.Duration
}

type window struct {
	requests []time.Time
}

// RateLimitConfig holds rate limiter configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the maximum number of requests allowed per window
	RequestsPerWindow int
	// WindowDuration is the duration of the rate limit window
	WindowDuration time.Duration
}

// DefaultRateLimitConfig returns default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerWindow: 100,
		WindowDuration:    time.Minute,
	}
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		windows: make(map[string]*window),
		limit:   config.RequestsPerWindow,
		period:  config.WindowDuration,
	}

	go rl.cleanup()

	return rl
}

// Allow checks if a request is allowed for the given key (e.g., IP)
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.period)

	w, exists := rl.windows[key]
	if !exists {
		w = &window{requests: make([]time.Time, 0, rl.limit)}
		rl.windows[key] = w
	}

	// Drop requests that slid out of the window
	valid := w.requests[:0]
	for _, t := range w.requests {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	w.requests = valid

	if len(w.requests) >= rl.limit {
		return false
	}

	w.requests = append(w.requests, now)
	return true
}

// Remaining returns how many requests the key has left in this window.
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, exists := rl.windows[key]
	if !exists {
		return rl.limit
	}

	cutoff := time.Now().Add(-rl.period)
	count := 0
	for _, t := range w.requests {
		if t.After(cutoff) {
			count++
		}
	}

	if remaining := rl.limit - count; remaining > 0 {
		return remaining
	}
	return 0
}

// ResetAt returns when the oldest tracked request expires for the key.
func (rl *RateLimiter) ResetAt(key string) time.Time {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, exists := rl.windows[key]
	if !exists || len(w.requests) == 0 {
		return time.Now()
	}
	return w.requests[0].Add(rl.period)
}

// cleanup periodically removes stale windows
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-rl.period)
		for key, w := range rl.windows {
			stale := true
			for _, t := range w.requests {
				if t.After(cutoff) {
					stale = false
					break
				}
			}
			if stale {
				delete(rl.windows, key)
			}
		}
		rl.mu.Unlock()
	}
}
