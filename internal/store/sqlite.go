package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the record store for tasks, cache entries and crawled items.
// Timestamps are stored as unix nanoseconds.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
		id           TEXT PRIMARY KEY,
		kind         TEXT NOT NULL,
		content      TEXT NOT NULL,
		status       TEXT NOT NULL,
		result       TEXT,
		error        TEXT,
		created_at   INTEGER NOT NULL,
		started_at   INTEGER,
		completed_at INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS cache_entries (
		class     TEXT NOT NULL,
		key       TEXT NOT NULL,
		content   TEXT NOT NULL,
		fields    TEXT,
		cached_at INTEGER NOT NULL,
		PRIMARY KEY (class, key)
	)`,
	`CREATE TABLE IF NOT EXISTS crawled_items (
		url          TEXT PRIMARY KEY,
		source       TEXT NOT NULL,
		title        TEXT NOT NULL,
		content      TEXT NOT NULL,
		summary      TEXT,
		author       TEXT,
		category     TEXT,
		image_url    TEXT,
		published_at INTEGER,
		created_at   INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_crawled_items_created_at ON crawled_items (created_at)`,
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One connection serializes writers from concurrent workers instead of
	// surfacing SQLITE_BUSY to them.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	for _, stmt := range append([]string{"PRAGMA busy_timeout = 5000"}, schema...) {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func fromNullNanos(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}
