package cache

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

// MinPostingLength is the shortest posting body worth caching. Shorter bodies
// are usually error or login pages.
const MinPostingLength = 100

// PostingMeta is stored next to a cached job posting.
type PostingMeta struct {
	CompanyName string
	Position    string
	Source      string
}

// JobPosting is a cached job posting.
type JobPosting struct {
	URL      string
	Content  string
	Meta     PostingMeta
	CachedAt time.Time
}

// JobPostingCache caches fetched job-posting content by URL.
type JobPostingCache struct {
	*TTLCache
}

// NewJobPostingCache creates the job-posting cache class.
func NewJobPostingCache(backend model.CacheBackend, ttl time.Duration, logger *slog.Logger) *JobPostingCache {
	return &JobPostingCache{TTLCache: New(backend, model.CacheJobPosting, ttl, logger)}
}

// Get returns a still-valid posting for url.
func (c *JobPostingCache) Get(ctx context.Context, url string) (JobPosting, bool, error) {
	entry, ok, err := c.FetchEntry(ctx, url)
	if err != nil || !ok {
		return JobPosting{}, false, err
	}
	return JobPosting{
		URL:     url,
		Content: entry.Content,
		Meta: PostingMeta{
			CompanyName: entry.Fields["company_name"],
			Position:    entry.Fields["position"],
			Source:      entry.Fields["source"],
		},
		CachedAt: entry.CachedAt,
	}, true, nil
}

// Put caches a posting. Content shorter than MinPostingLength characters is
// not cached and Put reports false.
func (c *JobPostingCache) Put(ctx context.Context, url, content string, meta PostingMeta) (bool, error) {
	if utf8.RuneCountInString(content) <= MinPostingLength {
		c.logger.Debug("posting too short to cache", "url", url, "length", utf8.RuneCountInString(content))
		return false, nil
	}
	fields := compact(map[string]string{
		"company_name": meta.CompanyName,
		"position":     meta.Position,
		"source":       meta.Source,
	})
	if err := c.Store(ctx, url, content, fields); err != nil {
		return false, err
	}
	return true, nil
}

// compact drops empty values so unset fields are not persisted.
func compact(fields map[string]string) map[string]string {
	for k, v := range fields {
		if v == "" {
			delete(fields, k)
		}
	}
	return fields
}
