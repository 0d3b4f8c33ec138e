package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

var _ model.ItemStore = (*SQLiteStore)(nil)

// InsertItem stores a crawled item. If the URL already exists the call is a
// no-op and reports false.
func (s *SQLiteStore) InsertItem(ctx context.Context, item model.CrawledItem) (bool, error) {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO crawled_items
		   (url, source, title, content, summary, author, category, image_url, published_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.URL, item.Source, item.Title, item.Content, item.Summary, item.Author,
		item.Category, item.ImageURL, nullNanos(item.PublishedAt), toNanos(item.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("inserting crawled item %s: %w", item.URL, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting crawled item %s: %w", item.URL, err)
	}
	return n > 0, nil
}

// DeleteItemsBefore purges items first stored before cutoff.
func (s *SQLiteStore) DeleteItemsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM crawled_items WHERE created_at < ?`, toNanos(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purging crawled items before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return res.RowsAffected()
}

// CountItems returns the number of stored crawled items.
func (s *SQLiteStore) CountItems(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM crawled_items`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting crawled items: %w", err)
	}
	return count, nil
}
