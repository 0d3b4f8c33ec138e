package store

import (
	"context"
	"time"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

// NopItemStore is used by dry-run crawls. It accepts every item and keeps
// nothing, so each run reports items as new.
type NopItemStore struct{}

func NewNopItemStore() *NopItemStore { return &NopItemStore{} }

func (s *NopItemStore) InsertItem(ctx context.Context, item model.CrawledItem) (bool, error) {
	return true, nil
}
func (s *NopItemStore) DeleteItemsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}
func (s *NopItemStore) CountItems(ctx context.Context) (int, error) { return 0, nil }
