package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

// HostRateLimiter spaces requests to the same host at least minDelay apart.
// Concurrent callers for one host are given consecutive slots.
type HostRateLimiter struct {
	mu       sync.Mutex
	nextSlot map[string]time.Time // key: host
	minDelay time.Duration
}

// NewHostRateLimiter creates a limiter enforcing minDelay per host.
func NewHostRateLimiter(minDelay time.Duration) *HostRateLimiter {
	return &HostRateLimiter{
		nextSlot: make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until the caller's slot for host arrives.
// Returns an error if the context is cancelled while waiting.
func (r *HostRateLimiter) Wait(ctx context.Context, host string) error {
	r.mu.Lock()
	now := time.Now()
	slot := r.nextSlot[host]
	if slot.Before(now) {
		slot = now
	}
	r.nextSlot[host] = slot.Add(r.minDelay)
	r.mu.Unlock()

	wait := slot.Sub(now)
	if wait <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", host, ctx.Err())
	case <-time.After(wait):
		return nil
	}
}

// RateLimitedFetcher is a decorator that waits for the URL's host slot before
// delegating to the wrapped PageFetcher.
type RateLimitedFetcher struct {
	inner   model.PageFetcher
	limiter *HostRateLimiter
}

// NewRateLimitedFetcher wraps a PageFetcher with host-level rate limiting.
func NewRateLimitedFetcher(inner model.PageFetcher, limiter *HostRateLimiter) *RateLimitedFetcher {
	return &RateLimitedFetcher{inner: inner, limiter: limiter}
}

// Fetch waits for the host's slot, then fetches.
func (f *RateLimitedFetcher) Fetch(ctx context.Context, rawURL string) (model.Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return model.Page{}, fmt.Errorf("parsing url %q: %w", rawURL, err)
	}
	if err := f.limiter.Wait(ctx, u.Host); err != nil {
		return model.Page{}, err
	}
	return f.inner.Fetch(ctx, rawURL)
}
