package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

var _ model.CacheBackend = (*SQLiteStore)(nil)

// GetEntry returns the entry for (class, key) regardless of its age.
func (s *SQLiteStore) GetEntry(ctx context.Context, class, key string) (model.CacheEntry, bool, error) {
	var (
		entry    = model.CacheEntry{Class: class, Key: key}
		fields   sql.NullString
		cachedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT content, fields, cached_at FROM cache_entries WHERE class = ? AND key = ?`, class, key).
		Scan(&entry.Content, &fields, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CacheEntry{}, false, nil
	}
	if err != nil {
		return model.CacheEntry{}, false, fmt.Errorf("reading cache entry %s/%s: %w", class, key, err)
	}
	entry.CachedAt = fromNanos(cachedAt)
	if fields.Valid && fields.String != "" {
		if err := json.Unmarshal([]byte(fields.String), &entry.Fields); err != nil {
			return model.CacheEntry{}, false, fmt.Errorf("decoding cache fields %s/%s: %w", class, key, err)
		}
	}
	return entry, true, nil
}

// PutEntry upserts an entry in a single statement; the last writer wins.
func (s *SQLiteStore) PutEntry(ctx context.Context, entry model.CacheEntry) error {
	var fields sql.NullString
	if len(entry.Fields) > 0 {
		data, err := json.Marshal(entry.Fields)
		if err != nil {
			return fmt.Errorf("encoding cache fields %s/%s: %w", entry.Class, entry.Key, err)
		}
		fields = sql.NullString{String: string(data), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (class, key, content, fields, cached_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (class, key) DO UPDATE SET
		   content = excluded.content, fields = excluded.fields, cached_at = excluded.cached_at`,
		entry.Class, entry.Key, entry.Content, fields, toNanos(entry.CachedAt))
	if err != nil {
		return fmt.Errorf("storing cache entry %s/%s: %w", entry.Class, entry.Key, err)
	}
	return nil
}

// DeleteEntriesBefore removes entries of class cached before cutoff.
func (s *SQLiteStore) DeleteEntriesBefore(ctx context.Context, class string, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE class = ? AND cached_at < ?`, class, toNanos(cutoff))
	if err != nil {
		return 0, fmt.Errorf("sweeping %s cache: %w", class, err)
	}
	return res.RowsAffected()
}
