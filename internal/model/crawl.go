package model

import (
	"context"
	"time"
)

// CrawledItem is an article fetched from an external source. URL is the
// natural key.
type CrawledItem struct {
	URL         string
	Source      string
	Title       string
	Content     string
	Summary     string
	Author      string
	Category    string
	ImageURL    string
	PublishedAt *time.Time // nullable, not every page declares it
	CreatedAt   time.Time
}

// Source is a configured crawl target.
type Source struct {
	Name            string
	URL             string // listing page
	LinkSelector    string // optional CSS selector for article links
	MaxItems        int
	Keywords        []string
	ExcludeKeywords []string
}

// Page is a fetched document.
type Page struct {
	URL         string // final URL after redirects
	ContentType string
	Body        []byte
}

// PageFetcher fetches a single URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// ItemStore persists crawled items.
type ItemStore interface {
	// InsertItem stores item unless its URL already exists. It reports
	// whether a row was written.
	InsertItem(ctx context.Context, item CrawledItem) (bool, error)
	DeleteItemsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountItems(ctx context.Context) (int, error)
}

// ItemFilter decides whether a crawled item is kept.
type ItemFilter interface {
	Match(item CrawledItem) bool
}
