package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingEnqueuer struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func newCountingEnqueuer() *countingEnqueuer {
	return &countingEnqueuer{counts: map[string]int{}}
}

func (e *countingEnqueuer) Enqueue(_ context.Context, jobType string, _ any) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.counts[jobType]++
	if e.err != nil {
		return "", e.err
	}
	return jobType + "-id", nil
}

func (e *countingEnqueuer) count(jobType string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts[jobType]
}

func runFor(t *testing.T, s *Scheduler, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(d)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on cancel, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not return within 2s after cancel")
	}
}

func TestRun_EnqueuesImmediatelyOnStart(t *testing.T) {
	enq := newCountingEnqueuer()
	s := NewScheduler([]Entry{{JobType: "cache_sweep", Interval: time.Hour}}, enq, discardLogger())

	runFor(t, s, 50*time.Millisecond)

	if got := enq.count("cache_sweep"); got != 1 {
		t.Errorf("cache_sweep enqueued %d times, want 1", got)
	}
}

func TestRun_EntriesTickIndependently(t *testing.T) {
	enq := newCountingEnqueuer()
	s := NewScheduler([]Entry{
		{JobType: "fast", Interval: 20 * time.Millisecond},
		{JobType: "slow", Interval: time.Hour},
	}, enq, discardLogger())

	runFor(t, s, 110*time.Millisecond)

	if got := enq.count("fast"); got < 3 {
		t.Errorf("fast enqueued %d times, want >= 3", got)
	}
	if got := enq.count("slow"); got != 1 {
		t.Errorf("slow enqueued %d times, want 1", got)
	}
}

func TestRun_DisabledEntrySkipped(t *testing.T) {
	enq := newCountingEnqueuer()
	s := NewScheduler([]Entry{{JobType: "crawl_scheduled", Interval: 0}}, enq, discardLogger())

	runFor(t, s, 30*time.Millisecond)

	if got := enq.count("crawl_scheduled"); got != 0 {
		t.Errorf("disabled entry enqueued %d times", got)
	}
}

func TestRun_EnqueueErrorKeepsTicking(t *testing.T) {
	enq := newCountingEnqueuer()
	enq.err = errors.New("queue unavailable")
	s := NewScheduler([]Entry{{JobType: "cache_sweep", Interval: 20 * time.Millisecond}}, enq, discardLogger())

	runFor(t, s, 90*time.Millisecond)

	if got := enq.count("cache_sweep"); got < 2 {
		t.Errorf("attempts = %d, want >= 2 after errors", got)
	}
}
