package model

import (
	"context"
	"time"
)

// Cache classes.
const (
	CacheJobPosting      = "job_posting"
	CacheCompanyAnalysis = "company_analysis"
)

// CacheEntry is memoized content under a natural key within a cache class.
type CacheEntry struct {
	Class    string
	Key      string
	Content  string
	Fields   map[string]string // class-specific structured fields
	CachedAt time.Time
}

// CacheBackend stores cache entries. Put is an upsert.
type CacheBackend interface {
	GetEntry(ctx context.Context, class, key string) (CacheEntry, bool, error)
	PutEntry(ctx context.Context, entry CacheEntry) error
	DeleteEntriesBefore(ctx context.Context, class string, cutoff time.Time) (int64, error)
}
