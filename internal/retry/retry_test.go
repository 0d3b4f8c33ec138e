package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockFetcher calls a function on each invocation, tracking call count.
type mockFetcher struct {
	calls int
	fn    func(attempt int) (model.Page, error)
}

func (m *mockFetcher) Fetch(_ context.Context, url string) (model.Page, error) {
	m.calls++
	return m.fn(m.calls)
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	mock := &mockFetcher{fn: func(_ int) (model.Page, error) {
		return model.Page{URL: "https://a", Body: []byte("ok")}, nil
	}}

	rf := NewRetryFetcher(mock, 2, 10*time.Millisecond, discardLogger())
	got, err := rf.Fetch(context.Background(), "https://a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got.Body) != "ok" {
		t.Fatalf("unexpected page: %+v", got)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

func TestRetry_RetriesOn5xx_SucceedsOnSecondAttempt(t *testing.T) {
	mock := &mockFetcher{fn: func(attempt int) (model.Page, error) {
		if attempt == 1 {
			return model.Page{}, &model.HTTPError{StatusCode: 503, Err: errors.New("service unavailable")}
		}
		return model.Page{Body: []byte("ok")}, nil
	}}

	rf := NewRetryFetcher(mock, 2, 10*time.Millisecond, discardLogger())
	if _, err := rf.Fetch(context.Background(), "https://a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.calls)
	}
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	mock := &mockFetcher{fn: func(_ int) (model.Page, error) {
		return model.Page{}, errors.New("connection reset")
	}}

	rf := NewRetryFetcher(mock, 2, time.Millisecond, discardLogger())
	if _, err := rf.Fetch(context.Background(), "https://a"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if mock.calls != 3 {
		t.Fatalf("expected 3 calls (1 + 2 retries), got %d", mock.calls)
	}
}

func TestRetry_NoRetryOn404(t *testing.T) {
	mock := &mockFetcher{fn: func(_ int) (model.Page, error) {
		return model.Page{}, &model.HTTPError{StatusCode: 404}
	}}

	rf := NewRetryFetcher(mock, 2, time.Millisecond, discardLogger())
	_, err := rf.Fetch(context.Background(), "https://a")
	if !model.IsNotFound(err) {
		t.Fatalf("expected 404 to pass through, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	mock := &mockFetcher{fn: func(_ int) (model.Page, error) {
		return model.Page{}, &model.HTTPError{StatusCode: 500}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	rf := NewRetryFetcher(mock, 5, time.Hour, discardLogger())

	done := make(chan error, 1)
	go func() {
		_, err := rf.Fetch(ctx, "https://a")
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not return after cancel")
	}
}

func TestPolicy_DelayHonorsRetryAfter(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second}
	err := &model.HTTPError{StatusCode: 429, RetryAfter: 42 * time.Second}
	if d := p.Delay(1, err); d != 42*time.Second {
		t.Fatalf("Delay = %v, want 42s", d)
	}
}

func TestPolicy_DelayExponentialWithJitter(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Second}
	for attempt, base := range map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 3: 4 * time.Second} {
		for i := 0; i < 20; i++ {
			d := p.Delay(attempt, errors.New("x"))
			lo := time.Duration(float64(base) * 0.7)
			hi := time.Duration(float64(base) * 1.3)
			if d < lo || d > hi {
				t.Fatalf("attempt %d: delay %v outside [%v, %v]", attempt, d, lo, hi)
			}
		}
	}
}

func TestPolicy_ShouldRetry(t *testing.T) {
	p := Policy{MaxAttempts: 3}
	transient := errors.New("timeout talking to engine")

	if !p.ShouldRetry(1, transient) || !p.ShouldRetry(2, transient) {
		t.Error("expected retries below MaxAttempts")
	}
	if p.ShouldRetry(3, transient) {
		t.Error("expected no retry once MaxAttempts is reached")
	}
	if p.ShouldRetry(1, Permanent(transient)) {
		t.Error("expected permanent error not to be retried")
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", errors.New("dial tcp: refused"), true},
		{"429", &model.HTTPError{StatusCode: 429}, true},
		{"502", &model.HTTPError{StatusCode: 502}, true},
		{"403", &model.HTTPError{StatusCode: 403}, false},
		{"cancelled", fmt.Errorf("step: %w", context.Canceled), false},
		{"call timeout", fmt.Errorf("engine: %w", context.DeadlineExceeded), true},
		{"permanent wrapped", fmt.Errorf("job: %w", Permanent(errors.New("bad payload"))), false},
	}
	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Errorf("%s: IsRetryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}
