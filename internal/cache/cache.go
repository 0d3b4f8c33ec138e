package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

// TTLCache is one cache class over a shared backend. An entry older than the
// TTL reads as a miss whether or not a sweep has removed it yet.
type TTLCache struct {
	backend model.CacheBackend
	class   string
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// New creates a cache for class with the given TTL.
func New(backend model.CacheBackend, class string, ttl time.Duration, logger *slog.Logger) *TTLCache {
	return &TTLCache{
		backend: backend,
		class:   class,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// Class returns the cache class name.
func (c *TTLCache) Class() string { return c.class }

// TTL returns the time-to-live of entries in this class.
func (c *TTLCache) TTL() time.Duration { return c.ttl }

// Fetch returns the content cached under key if it is still valid.
func (c *TTLCache) Fetch(ctx context.Context, key string) (string, bool, error) {
	entry, ok, err := c.FetchEntry(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	return entry.Content, true, nil
}

// FetchEntry is Fetch including the class-specific fields.
func (c *TTLCache) FetchEntry(ctx context.Context, key string) (model.CacheEntry, bool, error) {
	entry, ok, err := c.backend.GetEntry(ctx, c.class, key)
	if err != nil {
		return model.CacheEntry{}, false, fmt.Errorf("fetching %s cache %q: %w", c.class, key, err)
	}
	if !ok {
		c.logger.Debug("cache miss", "class", c.class, "key", key)
		return model.CacheEntry{}, false, nil
	}
	if age := c.now().Sub(entry.CachedAt); age >= c.ttl {
		c.logger.Debug("cache entry expired", "class", c.class, "key", key, "age", age.Round(time.Second).String())
		return model.CacheEntry{}, false, nil
	}
	c.logger.Debug("cache hit", "class", c.class, "key", key)
	return entry, true, nil
}

// Store upserts content under key, stamped with the current time.
func (c *TTLCache) Store(ctx context.Context, key, content string, fields map[string]string) error {
	err := c.backend.PutEntry(ctx, model.CacheEntry{
		Class:    c.class,
		Key:      key,
		Content:  content,
		Fields:   fields,
		CachedAt: c.now(),
	})
	if err != nil {
		return fmt.Errorf("storing %s cache %q: %w", c.class, key, err)
	}
	return nil
}

// Sweep deletes every entry whose age exceeds the TTL and returns how many
// were removed.
func (c *TTLCache) Sweep(ctx context.Context) (int64, error) {
	n, err := c.backend.DeleteEntriesBefore(ctx, c.class, c.now().Add(-c.ttl))
	if err != nil {
		return 0, fmt.Errorf("sweeping %s cache: %w", c.class, err)
	}
	c.logger.Info("swept expired cache entries", "class", c.class, "removed", n)
	return n, nil
}
