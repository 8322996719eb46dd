// internal/github/ratelimit.go
package github

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimitOptions configures a RateLimiter.
type RateLimitOptions struct {
	// Threshold is the number of requests allowed per Window before the
	// limiter forces a pause.
	Threshold int
	// Window is the quota window of the API, one hour for GitHub.
	Window time.Duration
	// Margin is added to every pause.
	Margin time.Duration
}

// DefaultRateLimitOptions matches GitHub's authenticated REST quota.
var DefaultRateLimitOptions = RateLimitOptions{
	Threshold: 5000,
	Window:    time.Hour,
	Margin:    5 * time.Second,
}

// RateLimiter is an http.RoundTripper that keeps a client inside the API
// quota by blocking the calling goroutine. It pauses preemptively once
// Threshold requests were issued inside Window, and reactively when a
// response reports the quota as exhausted (HTTP 403 or a zero
// X-RateLimit-Remaining header). A failed request is never retried.
//
// It must only be used by background work: a webhook request handler must
// never share it.
type RateLimiter struct {
	base   http.RoundTripper
	opts   RateLimitOptions
	logger *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	issued    int
	lastPause time.Time
}

// NewRateLimiter wraps base, which defaults to http.DefaultTransport.
func NewRateLimiter(base http.RoundTripper, opts RateLimitOptions, logger *slog.Logger) *RateLimiter {
	if base == nil {
		base = http.DefaultTransport
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultRateLimitOptions.Threshold
	}
	if opts.Window <= 0 {
		opts.Window = DefaultRateLimitOptions.Window
	}
	return &RateLimiter{
		base:      base,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
		sleep:     sleepContext,
		lastPause: time.Now(),
	}
}

// RoundTrip implements http.RoundTripper.
func (l *RateLimiter) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := l.beforeRequest(req.Context()); err != nil {
		return nil, err
	}

	resp, err := l.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if err := l.afterResponse(req, resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// Issued returns the number of requests issued since the last pause.
func (l *RateLimiter) Issued() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.issued
}

func (l *RateLimiter) beforeRequest(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.issued >= l.opts.Threshold {
		if elapsed := l.now().Sub(l.lastPause); elapsed < l.opts.Window {
			wait := l.opts.Window - elapsed + l.opts.Margin
			l.logger.Info("Request threshold reached, pausing", "issued", l.issued, "wait", wait.String())
			if err := l.sleep(ctx, wait); err != nil {
				return err
			}
		}
		l.pauseDone()
	}
	l.issued++
	return nil
}

func (l *RateLimiter) afterResponse(req *http.Request, resp *http.Response) error {
	remaining, hasRemaining := headerInt(resp.Header, "X-RateLimit-Remaining")
	if resp.StatusCode != http.StatusForbidden && !(hasRemaining && remaining == 0) {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	wait := l.opts.Window - now.Sub(l.lastPause)
	if reset, ok := headerInt(resp.Header, "X-RateLimit-Reset"); ok {
		wait = time.Unix(int64(reset), 0).Sub(now)
	}
	if wait < 0 {
		wait = 0
	}
	wait += l.opts.Margin

	l.logger.Warn("GitHub quota exhausted, pausing",
		"status", resp.StatusCode, "path", req.URL.Path, "wait", wait.String())
	if err := l.sleep(req.Context(), wait); err != nil {
		return err
	}
	l.pauseDone()
	return nil
}

// pauseDone must be called with mu held.
func (l *RateLimiter) pauseDone() {
	l.lastPause = l.now()
	l.issued = 0
}

func headerInt(h http.Header, key string) (int, bool) {
	v := h.Get(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
