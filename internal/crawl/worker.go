package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jaelee191/interview-app-sub001/internal/filter"
	"github.com/jaelee191/interview-app-sub001/internal/model"
)

const defaultMaxItems = 20

// Worker fetches external articles and ingests them into the item store.
type Worker struct {
	fetcher   model.PageFetcher
	items     model.ItemStore
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewWorker creates a crawl worker. Items older than retention are removed by Purge.
func NewWorker(fetcher model.PageFetcher, items model.ItemStore, retention time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		fetcher:   fetcher,
		items:     items,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

// IngestStats counts what happened to a batch of candidates.
type IngestStats struct {
	Candidates int
	Inserted   int
	Duplicates int
	Invalid    int
	Filtered   int
	Failed     int
}

func (s *IngestStats) add(o IngestStats) {
	s.Candidates += o.Candidates
	s.Inserted += o.Inserted
	s.Duplicates += o.Duplicates
	s.Invalid += o.Invalid
	s.Filtered += o.Filtered
	s.Failed += o.Failed
}

// Report summarizes a multi-source crawl pass.
type Report struct {
	Succeeded []string
	Failed    []string
	Stats     IngestStats
}

// CrawlSingle fetches and parses one article. A 404 or a page with neither
// title nor body reports found=false without an error.
func (w *Worker) CrawlSingle(ctx context.Context, rawURL, source string) (model.CrawledItem, bool, error) {
	page, err := w.fetcher.Fetch(ctx, rawURL)
	if model.IsNotFound(err) {
		w.logger.Debug("article not found", "url", rawURL)
		return model.CrawledItem{}, false, nil
	}
	if err != nil {
		return model.CrawledItem{}, false, fmt.Errorf("crawling %s: %w", rawURL, err)
	}

	item, err := ParseArticle(rawURL, page.Body)
	if err != nil {
		return model.CrawledItem{}, false, fmt.Errorf("crawling %s: %w", rawURL, err)
	}
	if item.Title == "" && item.Content == "" {
		return model.CrawledItem{}, false, nil
	}
	if source != "" {
		item.Source = source
	}
	return item, true, nil
}

// CrawlSource fetches a source's listing page and crawls the articles it
// links to. A failed article is logged and skipped; only a failed listing
// fetch fails the source.
func (w *Worker) CrawlSource(ctx context.Context, src model.Source) ([]model.CrawledItem, error) {
	page, err := w.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("crawling source %s: %w", src.Name, err)
	}
	links, err := ExtractLinks(page.URL, page.Body, src.LinkSelector)
	if err != nil {
		return nil, fmt.Errorf("crawling source %s: %w", src.Name, err)
	}

	limit := src.MaxItems
	if limit <= 0 {
		limit = defaultMaxItems
	}

	seen := make(map[string]bool)
	var items []model.CrawledItem
	for _, link := range links {
		if len(items) >= limit {
			break
		}
		if seen[link] {
			continue
		}
		seen[link] = true

		item, ok, err := w.CrawlSingle(ctx, link, src.Name)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return items, fmt.Errorf("crawling source %s: %w", src.Name, ctxErr)
		}
		if err != nil {
			w.logger.Warn("skipping article", "source", src.Name, "url", link, "error", err)
			continue
		}
		if ok {
			items = append(items, item)
		}
	}

	w.logger.Info("crawled source", "source", src.Name, "links", len(links), "items", len(items))
	return items, nil
}

// CrawlSources crawls and ingests each source independently. A source that
// fails is recorded in the report and the pass moves on.
func (w *Worker) CrawlSources(ctx context.Context, sources []model.Source) Report {
	var report Report
	for _, src := range sources {
		if ctx.Err() != nil {
			report.Failed = append(report.Failed, src.Name)
			continue
		}
		items, err := w.CrawlSource(ctx, src)
		if err != nil {
			w.logger.Error("source crawl failed", "source", src.Name, "error", err)
			report.Failed = append(report.Failed, src.Name)
			continue
		}
		report.Stats.add(w.Ingest(ctx, items, filter.ForSource(src)))
		report.Succeeded = append(report.Succeeded, src.Name)
	}
	return report
}

// Ingest stores candidates that pass validation and the optional filter.
// Existing URLs are skipped silently. Per-item failures never abort the batch.
func (w *Worker) Ingest(ctx context.Context, candidates []model.CrawledItem, f model.ItemFilter) IngestStats {
	stats := IngestStats{Candidates: len(candidates)}
	for _, item := range candidates {
		if err := validate(item); err != nil {
			w.logger.Warn("skipping invalid item", "url", item.URL, "error", err)
			stats.Invalid++
			continue
		}
		if f != nil && !f.Match(item) {
			w.logger.Debug("item filtered out", "url", item.URL)
			stats.Filtered++
			continue
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = w.now()
		}

		inserted, err := w.items.InsertItem(ctx, item)
		switch {
		case err != nil:
			w.logger.Error("storing item failed", "url", item.URL, "error", err)
			stats.Failed++
		case inserted:
			stats.Inserted++
		default:
			stats.Duplicates++
		}
	}

	w.logger.Info("ingested items",
		"candidates", stats.Candidates,
		"inserted", stats.Inserted,
		"duplicates", stats.Duplicates,
		"invalid", stats.Invalid,
		"filtered", stats.Filtered,
		"failed", stats.Failed,
	)
	return stats
}

// Purge deletes items older than the retention window.
func (w *Worker) Purge(ctx context.Context) (int64, error) {
	n, err := w.items.DeleteItemsBefore(ctx, w.now().Add(-w.retention))
	if err != nil {
		return 0, fmt.Errorf("purging crawled items: %w", err)
	}
	w.logger.Info("purged old crawled items", "removed", n, "retention", w.retention.String())
	return n, nil
}

var (
	errMissingURL   = errors.New("missing url")
	errMissingTitle = errors.New("missing title")
	errMissingBody  = errors.New("missing body")
)

func validate(item model.CrawledItem) error {
	if strings.TrimSpace(item.URL) == "" {
		return errMissingURL
	}
	if u, err := url.Parse(item.URL); err != nil || u.Host == "" {
		return fmt.Errorf("invalid url %q", item.URL)
	}
	if strings.TrimSpace(item.Title) == "" {
		return errMissingTitle
	}
	if strings.TrimSpace(item.Content) == "" {
		return errMissingBody
	}
	return nil
}
