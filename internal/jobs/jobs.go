// Package jobs defines the job types run by the dispatcher and the
// submission API that enqueues them.
package jobs

import (
	"context"

	"github.com/jaelee191/interview-app-sub001/internal/analysis"
	"github.com/jaelee191/interview-app-sub001/internal/crawl"
	"github.com/jaelee191/interview-app-sub001/internal/dispatch"
	"github.com/jaelee191/interview-app-sub001/internal/model"
)

// Job types.
const (
	TypeAnalysis       = "analysis"
	TypeCrawlSingle    = "crawl_single"
	TypeCrawlScheduled = "crawl_scheduled"
	TypeCrawlSource    = "crawl_source"
	TypeCacheSweep     = "cache_sweep"
)

// AnalysisPayload is the payload of an analysis job.
type AnalysisPayload struct {
	TaskID   string `json:"task_id"`
	Realtime bool   `json:"realtime"`
}

// CrawlSinglePayload is the payload of a crawl_single job.
type CrawlSinglePayload struct {
	URL    string `json:"url"`
	Source string `json:"source,omitempty"`
}

// CrawlSourcePayload is the payload of a crawl_source job.
type CrawlSourcePayload struct {
	Source string `json:"source"`
}

// Enqueuer adds jobs to the dispatcher.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload any) (string, error)
}

// Registrar routes job types to handlers.
type Registrar interface {
	Register(jobType, queue string, h dispatch.Handler) error
}

// AnalysisRunner runs one analysis task.
type AnalysisRunner interface {
	Run(ctx context.Context, task model.AnalysisTask, mode analysis.Mode) (model.AnalysisResult, error)
}

// Crawler fetches and stores crawled items.
type Crawler interface {
	CrawlSingle(ctx context.Context, rawURL, source string) (model.CrawledItem, bool, error)
	CrawlSource(ctx context.Context, src model.Source) ([]model.CrawledItem, error)
	Ingest(ctx context.Context, candidates []model.CrawledItem, f model.ItemFilter) crawl.IngestStats
	Purge(ctx context.Context) (int64, error)
}

// Sweeper removes expired entries from one cache class.
type Sweeper interface {
	Class() string
	Sweep(ctx context.Context) (int64, error)
}
