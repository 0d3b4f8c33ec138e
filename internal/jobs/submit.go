package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

// ErrInvalidSubmission is returned for submissions rejected before enqueue.
var ErrInvalidSubmission = errors.New("invalid submission")

// Submitter creates tasks and enqueues the jobs that process them.
type Submitter struct {
	tasks    model.TaskStore
	enqueuer Enqueuer
	now      func() time.Time
	logger   *slog.Logger
}

// NewSubmitter creates a Submitter.
func NewSubmitter(tasks model.TaskStore, enqueuer Enqueuer, logger *slog.Logger) *Submitter {
	return &Submitter{tasks: tasks, enqueuer: enqueuer, now: time.Now, logger: logger}
}

// SubmitAnalysis stores a pending task and enqueues its analysis job.
// Every call creates a new task.
func (s *Submitter) SubmitAnalysis(ctx context.Context, kind model.TaskKind, content string, realtime bool) (model.AnalysisTask, error) {
	if !kind.Valid() {
		return model.AnalysisTask{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidSubmission, kind)
	}
	if strings.TrimSpace(content) == "" {
		return model.AnalysisTask{}, fmt.Errorf("%w: content is empty", ErrInvalidSubmission)
	}

	task := model.AnalysisTask{
		ID:        uuid.NewString(),
		Kind:      kind,
		Content:   content,
		Status:    model.TaskPending,
		CreatedAt: s.now(),
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return model.AnalysisTask{}, fmt.Errorf("submitting analysis: %w", err)
	}

	jobID, err := s.enqueuer.Enqueue(ctx, TypeAnalysis, AnalysisPayload{TaskID: task.ID, Realtime: realtime})
	if err != nil {
		if merr := s.tasks.MarkFailed(ctx, task.ID, "enqueue failed: "+err.Error()); merr != nil {
			s.logger.Error("marking unqueued task failed", "task_id", task.ID, "error", merr)
		}
		return model.AnalysisTask{}, fmt.Errorf("submitting analysis: %w", err)
	}

	s.logger.Info("analysis submitted", "task_id", task.ID, "job_id", jobID, "kind", kind, "realtime", realtime)
	return task, nil
}

// SubmitCrawl enqueues a single-URL crawl.
func (s *Submitter) SubmitCrawl(ctx context.Context, rawURL, source string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: bad url %q", ErrInvalidSubmission, rawURL)
	}
	return s.enqueuer.Enqueue(ctx, TypeCrawlSingle, CrawlSinglePayload{URL: rawURL, Source: source})
}

// SubmitScheduledCrawl enqueues a crawl of every configured source.
func (s *Submitter) SubmitScheduledCrawl(ctx context.Context) (string, error) {
	return s.enqueuer.Enqueue(ctx, TypeCrawlScheduled, nil)
}
