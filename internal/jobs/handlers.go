package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jaelee191/interview-app-sub001/internal/analysis"
	"github.com/jaelee191/interview-app-sub001/internal/dispatch"
	"github.com/jaelee191/interview-app-sub001/internal/filter"
	"github.com/jaelee191/interview-app-sub001/internal/model"
	"github.com/jaelee191/interview-app-sub001/internal/retry"
)

// Handlers executes every job type.
type Handlers struct {
	tasks    model.TaskStore
	runner   AnalysisRunner
	crawler  Crawler
	sources  map[string]model.Source
	order    []string
	sweepers []Sweeper
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewHandlers creates the job handlers. enqueuer is used by the scheduled
// crawl to fan out one job per source.
func NewHandlers(
	tasks model.TaskStore,
	runner AnalysisRunner,
	crawler Crawler,
	sources []model.Source,
	sweepers []Sweeper,
	enqueuer Enqueuer,
	logger *slog.Logger,
) *Handlers {
	h := &Handlers{
		tasks:    tasks,
		runner:   runner,
		crawler:  crawler,
		sources:  make(map[string]model.Source, len(sources)),
		sweepers: sweepers,
		enqueuer: enqueuer,
		logger:   logger,
	}
	for _, src := range sources {
		h.sources[src.Name] = src
		h.order = append(h.order, src.Name)
	}
	return h
}

// Register routes analysis to the default queue and crawl work to the
// crawling queue.
func (h *Handlers) Register(r Registrar) error {
	routes := []struct {
		jobType string
		queue   string
		handler dispatch.Handler
	}{
		{TypeAnalysis, dispatch.QueueDefault, h.Analysis},
		{TypeCacheSweep, dispatch.QueueDefault, h.CacheSweep},
		{TypeCrawlSingle, dispatch.QueueCrawling, h.CrawlSingle},
		{TypeCrawlScheduled, dispatch.QueueCrawling, h.CrawlScheduled},
		{TypeCrawlSource, dispatch.QueueCrawling, h.CrawlSource},
	}
	for _, rt := range routes {
		if err := r.Register(rt.jobType, rt.queue, rt.handler); err != nil {
			return err
		}
	}
	return nil
}

// Analysis runs the orchestrator for the payload's task. A task that already
// completed is skipped.
func (h *Handlers) Analysis(ctx context.Context, job dispatch.Job) error {
	var p AnalysisPayload
	if err := job.Decode(&p); err != nil {
		return retry.Permanent(fmt.Errorf("analysis job %s: bad payload: %w", job.ID, err))
	}
	if p.TaskID == "" {
		return retry.Permanent(fmt.Errorf("analysis job %s: missing task_id", job.ID))
	}

	task, err := h.tasks.GetTask(ctx, p.TaskID)
	if errors.Is(err, model.ErrTaskNotFound) {
		return retry.Permanent(err)
	}
	if err != nil {
		return err
	}
	if task.Status == model.TaskCompleted {
		h.logger.Info("task already completed, skipping", "task_id", task.ID, "job_id", job.ID)
		return nil
	}

	mode := analysis.Batch
	if p.Realtime {
		mode = analysis.Realtime
	}
	_, err = h.runner.Run(ctx, task, mode)
	return err
}

// CrawlSingle crawls and stores one URL. A missing page is not an error.
func (h *Handlers) CrawlSingle(ctx context.Context, job dispatch.Job) error {
	var p CrawlSinglePayload
	if err := job.Decode(&p); err != nil {
		return retry.Permanent(fmt.Errorf("crawl job %s: bad payload: %w", job.ID, err))
	}
	if p.URL == "" {
		return retry.Permanent(fmt.Errorf("crawl job %s: missing url", job.ID))
	}

	item, found, err := h.crawler.CrawlSingle(ctx, p.URL, p.Source)
	if err != nil {
		return err
	}
	if !found {
		h.logger.Info("nothing to crawl", "url", p.URL)
		return nil
	}
	h.crawler.Ingest(ctx, []model.CrawledItem{item}, nil)
	return nil
}

// CrawlScheduled enqueues one crawl_source job per configured source and
// then purges items past the retention window.
func (h *Handlers) CrawlScheduled(ctx context.Context, job dispatch.Job) error {
	var errs []error
	for _, name := range h.order {
		if _, err := h.enqueuer.Enqueue(ctx, TypeCrawlSource, CrawlSourcePayload{Source: name}); err != nil {
			errs = append(errs, fmt.Errorf("enqueueing source %s: %w", name, err))
		}
	}
	h.logger.Info("scheduled crawl fanned out", "sources", len(h.order), "failed", len(errs))

	if _, err := h.crawler.Purge(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// CrawlSource crawls and ingests one configured source.
func (h *Handlers) CrawlSource(ctx context.Context, job dispatch.Job) error {
	var p CrawlSourcePayload
	if err := job.Decode(&p); err != nil {
		return retry.Permanent(fmt.Errorf("crawl_source job %s: bad payload: %w", job.ID, err))
	}
	src, ok := h.sources[p.Source]
	if !ok {
		return retry.Permanent(fmt.Errorf("unknown source %q", p.Source))
	}

	items, err := h.crawler.CrawlSource(ctx, src)
	if err != nil {
		return err
	}
	stats := h.crawler.Ingest(ctx, items, filter.ForSource(src))
	h.logger.Info("source crawl complete", "source", src.Name, "inserted", stats.Inserted, "duplicates", stats.Duplicates)
	return nil
}

// CacheSweep removes expired entries from every cache class.
func (h *Handlers) CacheSweep(ctx context.Context, job dispatch.Job) error {
	var errs []error
	for _, s := range h.sweepers {
		n, err := s.Sweep(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("sweeping %s: %w", s.Class(), err))
			continue
		}
		h.logger.Info("cache swept", "class", s.Class(), "removed", n)
	}
	return errors.Join(errs...)
}
