package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jaelee191/interview-app-sub001/internal/model"
	"github.com/jaelee191/interview-app-sub001/internal/retry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingNotifier struct {
	mu   sync.Mutex
	jobs []model.FailedJob
}

func (n *recordingNotifier) NotifyFailures(jobs []model.FailedJob) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.jobs = append(n.jobs, jobs...)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.jobs)
}

func newTestDispatcher(t *testing.T, maxAttempts int, notifier model.Notifier) *Dispatcher {
	t.Helper()
	d, err := New(map[string]int{QueueDefault: 2, QueueCrawling: 1},
		retry.Policy{MaxAttempts: maxAttempts, BaseDelay: time.Millisecond},
		notifier, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

// start runs d until the test ends.
func start(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestEnqueueRunsHandlerWithPayload(t *testing.T) {
	d := newTestDispatcher(t, 3, nil)
	got := make(chan string, 1)
	d.Register("echo", QueueDefault, func(_ context.Context, job Job) error {
		var p struct {
			TaskID string `json:"task_id"`
		}
		if err := job.Decode(&p); err != nil {
			return err
		}
		got <- p.TaskID
		return nil
	})
	start(t, d)

	id, err := d.Enqueue(context.Background(), "echo", map[string]string{"task_id": "t1"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if id == "" {
		t.Error("empty job id")
	}

	select {
	case v := <-got:
		if v != "t1" {
			t.Errorf("payload task_id = %q", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
}

func TestEnqueueUnknownType(t *testing.T) {
	d := newTestDispatcher(t, 3, nil)
	if _, err := d.Enqueue(context.Background(), "nope", nil); err == nil {
		t.Fatal("expected error for unregistered job type")
	}
}

func TestRegisterUnknownQueue(t *testing.T) {
	d := newTestDispatcher(t, 3, nil)
	if err := d.Register("x", "missing", func(context.Context, Job) error { return nil }); err == nil {
		t.Fatal("expected error for unknown queue")
	}
}

func TestRetryThenSucceed(t *testing.T) {
	d := newTestDispatcher(t, 3, nil)
	var calls atomic.Int32
	var attempts []int
	var mu sync.Mutex
	d.Register("flaky", QueueDefault, func(_ context.Context, job Job) error {
		mu.Lock()
		attempts = append(attempts, job.Attempt)
		mu.Unlock()
		if calls.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	})
	start(t, d)

	d.Enqueue(context.Background(), "flaky", nil)
	waitFor(t, "third attempt", func() bool { return calls.Load() == 3 })

	time.Sleep(20 * time.Millisecond)
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(attempts) != 3 || attempts[0] != 1 || attempts[2] != 3 {
		t.Errorf("attempts = %v, want [1 2 3]", attempts)
	}
	if len(d.DeadLetters()) != 0 {
		t.Errorf("dead letters = %v", d.DeadLetters())
	}
}

func TestExhaustedRetriesDeadLetter(t *testing.T) {
	n := &recordingNotifier{}
	d := newTestDispatcher(t, 2, n)
	var calls atomic.Int32
	d.Register("broken", QueueCrawling, func(context.Context, Job) error {
		calls.Add(1)
		return errors.New("still broken")
	})
	start(t, d)

	id, _ := d.Enqueue(context.Background(), "broken", nil)
	waitFor(t, "dead letter", func() bool { return n.count() == 1 })

	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
	dead := d.DeadLetters()
	if len(dead) != 1 || dead[0].ID != id || dead[0].Attempts != 2 || dead[0].Queue != QueueCrawling {
		t.Errorf("dead = %+v", dead)
	}
}

func TestPermanentErrorNotRetried(t *testing.T) {
	n := &recordingNotifier{}
	d := newTestDispatcher(t, 5, n)
	var calls atomic.Int32
	d.Register("bad_input", QueueDefault, func(context.Context, Job) error {
		calls.Add(1)
		return retry.Permanent(errors.New("invalid payload"))
	})
	start(t, d)

	d.Enqueue(context.Background(), "bad_input", nil)
	waitFor(t, "dead letter", func() bool { return n.count() == 1 })
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestPanicRecoveredAsFailure(t *testing.T) {
	n := &recordingNotifier{}
	d := newTestDispatcher(t, 1, n)
	d.Register("panics", QueueDefault, func(context.Context, Job) error {
		panic("boom")
	})
	var ok atomic.Bool
	d.Register("after", QueueDefault, func(context.Context, Job) error {
		ok.Store(true)
		return nil
	})
	start(t, d)

	d.Enqueue(context.Background(), "panics", nil)
	waitFor(t, "dead letter", func() bool { return n.count() == 1 })

	d.Enqueue(context.Background(), "after", nil)
	waitFor(t, "worker survives panic", ok.Load)
}

func TestSlowCrawlDoesNotStarveDefaultQueue(t *testing.T) {
	d := newTestDispatcher(t, 1, nil)
	release := make(chan struct{})
	d.Register("slow_crawl", QueueCrawling, func(ctx context.Context, _ Job) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})
	var analyzed atomic.Int32
	d.Register("analysis", QueueDefault, func(context.Context, Job) error {
		analyzed.Add(1)
		return nil
	})
	start(t, d)
	defer close(release)

	d.Enqueue(context.Background(), "slow_crawl", nil)
	d.Enqueue(context.Background(), "slow_crawl", nil)
	for i := 0; i < 5; i++ {
		d.Enqueue(context.Background(), "analysis", nil)
	}
	waitFor(t, "analysis jobs", func() bool { return analyzed.Load() == 5 })
	if p := d.Pending(QueueCrawling); p != 1 {
		t.Errorf("crawling pending = %d, want 1", p)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	d := newTestDispatcher(t, 3, nil)
	d.Register("noop", QueueDefault, func(context.Context, Job) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
