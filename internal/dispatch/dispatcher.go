package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaelee191/interview-app-sub001/internal/model"
	"github.com/jaelee191/interview-app-sub001/internal/retry"
)

// Queue names.
const (
	QueueDefault  = "default"
	QueueCrawling = "crawling"
)

// Handler executes one job attempt. A returned error is fed to the retry
// policy.
type Handler func(ctx context.Context, job Job) error

type route struct {
	queue   string
	handler Handler
}

// Dispatcher runs jobs from named in-memory queues with a worker pool per
// queue. Failed attempts are retried per the policy; exhausted jobs are
// dead-lettered and reported to the notifier.
type Dispatcher struct {
	queues   map[string]*queue
	workers  map[string]int
	routes   map[string]route
	policy   retry.Policy
	notifier model.Notifier
	metrics  *metrics
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	dead    []model.FailedJob
	pending sync.WaitGroup // delayed retries
}

// New creates a dispatcher with one queue per entry in workers, mapping
// queue name to pool size.
func New(workers map[string]int, policy retry.Policy, notifier model.Notifier, logger *slog.Logger) (*Dispatcher, error) {
	m, err := newMetrics()
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher metrics: %w", err)
	}
	d := &Dispatcher{
		queues:   make(map[string]*queue, len(workers)),
		workers:  make(map[string]int, len(workers)),
		routes:   make(map[string]route),
		policy:   policy,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
		logger:   logger,
	}
	for name, n := range workers {
		if n <= 0 {
			return nil, fmt.Errorf("queue %q: workers must be positive", name)
		}
		d.queues[name] = newQueue(name)
		d.workers[name] = n
	}
	return d, nil
}

// Register routes jobType to h on queue. Call before Run.
func (d *Dispatcher) Register(jobType, queue string, h Handler) error {
	if _, ok := d.queues[queue]; !ok {
		return fmt.Errorf("registering %s: unknown queue %q", jobType, queue)
	}
	if _, ok := d.routes[jobType]; ok {
		return fmt.Errorf("registering %s: already registered", jobType)
	}
	d.routes[jobType] = route{queue: queue, handler: h}
	return nil
}

// Enqueue adds a job with a JSON-encoded payload and returns its id.
func (d *Dispatcher) Enqueue(ctx context.Context, jobType string, payload any) (string, error) {
	r, ok := d.routes[jobType]
	if !ok {
		return "", fmt.Errorf("enqueue: unknown job type %q", jobType)
	}

	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("enqueue %s: encoding payload: %w", jobType, err)
		}
		raw = b
	}

	job := Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		Queue:      r.queue,
		Payload:    raw,
		Attempt:    1,
		EnqueuedAt: d.now(),
	}
	d.queues[r.queue].push(job)
	d.logger.Debug("job enqueued", "job_id", job.ID, "type", jobType, "queue", r.queue)
	return job.ID, nil
}

// Run starts the worker pools and blocks until ctx is cancelled and every
// worker has returned. Retries still waiting on backoff are dropped.
func (d *Dispatcher) Run(ctx context.Context) error {
	names := make([]string, 0, len(d.queues))
	for name := range d.queues {
		names = append(names, name)
	}
	slices.Sort(names)

	var wg sync.WaitGroup
	for _, name := range names {
		q, n := d.queues[name], d.workers[name]
		d.logger.Info("starting queue workers", "queue", name, "workers", n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				d.work(ctx, q)
			}()
		}
	}

	<-ctx.Done()
	wg.Wait()
	d.pending.Wait()
	d.logger.Info("dispatcher stopped")
	return nil
}

func (d *Dispatcher) work(ctx context.Context, q *queue) {
	for {
		job, ok := q.pop(ctx)
		if !ok {
			return
		}
		d.execute(ctx, job)
	}
}

func (d *Dispatcher) execute(ctx context.Context, job Job) {
	logger := d.logger.With("job_id", job.ID, "type", job.Type, "queue", job.Queue, "attempt", job.Attempt)
	r := d.routes[job.Type]

	d.metrics.started.Add(ctx, 1, jobAttrs(job))
	start := time.Now()
	err := call(ctx, r.handler, job)
	d.metrics.attempt(ctx, job, time.Since(start), err)

	if err == nil {
		logger.Debug("job succeeded", "duration", time.Since(start).Round(time.Millisecond))
		return
	}
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		logger.Warn("job interrupted by shutdown", "error", err)
		return
	}

	if d.policy.ShouldRetry(job.Attempt, err) {
		delay := d.policy.Delay(job.Attempt, err)
		logger.Warn("job failed, retrying", "error", err, "delay", delay.Round(time.Millisecond))
		d.metrics.retried.Add(ctx, 1, jobAttrs(job))
		job.Attempt++
		d.requeueAfter(ctx, job, delay)
		return
	}

	logger.Error("job failed permanently", "error", err)
	d.deadLetter(ctx, job, err)
}

// call runs h, turning a panic into an error.
func call(ctx context.Context, h Handler, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Type, r)
		}
	}()
	return h(ctx, job)
}

func (d *Dispatcher) requeueAfter(ctx context.Context, job Job, delay time.Duration) {
	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		if err := retry.Sleep(ctx, delay); err != nil {
			d.logger.Warn("dropping retry on shutdown", "job_id", job.ID, "type", job.Type)
			return
		}
		d.queues[job.Queue].push(job)
	}()
}

func (d *Dispatcher) deadLetter(ctx context.Context, job Job, err error) {
	d.metrics.dead.Add(ctx, 1, jobAttrs(job))
	failed := model.FailedJob{
		ID:       job.ID,
		Type:     job.Type,
		Queue:    job.Queue,
		Attempts: job.Attempt,
		Error:    err.Error(),
		FailedAt: d.now(),
	}

	d.mu.Lock()
	d.dead = append(d.dead, failed)
	d.mu.Unlock()

	if d.notifier == nil {
		return
	}
	if nerr := d.notifier.NotifyFailures([]model.FailedJob{failed}); nerr != nil {
		d.logger.Error("notifying failure", "job_id", job.ID, "error", nerr)
	}
}

// DeadLetters returns the jobs that failed permanently so far.
func (d *Dispatcher) DeadLetters() []model.FailedJob {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.dead)
}

// Pending returns the number of jobs waiting on queue.
func (d *Dispatcher) Pending(queue string) int {
	q, ok := d.queues[queue]
	if !ok {
		return 0
	}
	return q.len()
}
