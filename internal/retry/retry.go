package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

// RetryFetcher is a decorator that retries transient fetch failures with
// exponential backoff and jitter before giving up.
type RetryFetcher struct {
	inner  model.PageFetcher
	policy Policy
	logger *slog.Logger
}

// NewRetryFetcher wraps a PageFetcher with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func NewRetryFetcher(inner model.PageFetcher, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryFetcher {
	return &RetryFetcher{
		inner:  inner,
		policy: Policy{MaxAttempts: maxRetries + 1, BaseDelay: baseDelay},
		logger: logger,
	}
}

// Fetch fetches url, retrying on transient errors.
func (f *RetryFetcher) Fetch(ctx context.Context, url string) (model.Page, error) {
	for attempt := 1; ; attempt++ {
		page, err := f.inner.Fetch(ctx, url)
		if err == nil {
			return page, nil
		}
		if !f.policy.ShouldRetry(attempt, err) {
			return model.Page{}, err
		}

		delay := f.policy.Delay(attempt, err)
		f.logger.Warn("retrying after transient error",
			"url", url,
			"attempt", attempt,
			"max_retries", f.policy.MaxAttempts-1,
			"delay", delay,
			"error", err,
		)
		if err := Sleep(ctx, delay); err != nil {
			return model.Page{}, err
		}
	}
}
