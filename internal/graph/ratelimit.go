package graph

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Graph allows roughly 10,000 requests per 10 minutes per app and mailbox.
const (
	defaultRequestsPerSecond = 10.0
	defaultBurst             = 15
)

// ThrottledError is returned by Wait while a Retry-After from an earlier 429
// is still in force. Nothing is sent and nothing is retried.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("graph: throttled, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *ThrottledError) Unwrap() error { return ErrRateLimited }

// RateLimiter paces outgoing requests with a token bucket. After a 429 that
// carries Retry-After, requests fail fast with *ThrottledError until that
// time has passed.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = defaultRequestsPerSecond
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Wait paces the request through the token bucket. It does not sleep out a
// server throttle: that returns *ThrottledError at once.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		return &ThrottledError{RetryAfter: wait}
	}

	return r.limiter.Wait(ctx)
}

// RecordThrottle stores the Retry-After announced by a 429 response and
// returns it. Without a usable header nothing is recorded.
func (r *RateLimiter) RecordThrottle(header http.Header) time.Duration {
	secs, err := strconv.Atoi(header.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	wait := time.Duration(secs) * time.Second

	r.mu.Lock()
	r.retryAt = time.Now().Add(wait)
	r.mu.Unlock()
	return wait
}

// Allow reports whether a request could be sent right now.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}
	return r.limiter.Allow()
}
