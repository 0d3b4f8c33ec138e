package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Enqueuer adds a job to the dispatcher.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload any) (string, error)
}

// Entry enqueues JobType every Interval.
type Entry struct {
	JobType  string
	Interval time.Duration
	Payload  any
}

// Scheduler enqueues maintenance jobs on a fixed cadence, independent of
// user-submitted work.
type Scheduler struct {
	entries  []Entry
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewScheduler creates a scheduler for entries. Entries with a non-positive
// interval are skipped.
func NewScheduler(entries []Entry, enqueuer Enqueuer, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		entries:  entries,
		enqueuer: enqueuer,
		logger:   logger,
	}
}

// Run starts one loop per entry. Each loop enqueues once immediately, then
// on every tick. It returns nil when ctx is cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler", "entries", len(s.entries))

	var wg sync.WaitGroup
	for _, e := range s.entries {
		if e.Interval <= 0 {
			s.logger.Info("schedule disabled", "job_type", e.JobType)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, e)
		}()
	}

	<-ctx.Done()
	wg.Wait()
	s.logger.Info("shutting down scheduler")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, e Entry) {
	s.fire(ctx, e)

	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire(ctx, e)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, e Entry) {
	id, err := s.enqueuer.Enqueue(ctx, e.JobType, e.Payload)
	if err != nil {
		s.logger.Error("scheduled enqueue failed", "job_type", e.JobType, "error", err)
		return
	}
	s.logger.Debug("scheduled job enqueued", "job_type", e.JobType, "job_id", id, "interval", e.Interval.String())
}
