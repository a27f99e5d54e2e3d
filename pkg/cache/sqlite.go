package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/0x-stone/clauseguard/pkg/engine"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS scan_cache (
	link       TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	timestamp  TEXT NOT NULL
);
`

// SQLiteStore persists entries in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database at path and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*Entry, error) {
	var data, ts string
	err := s.db.QueryRowContext(ctx,
		`SELECT data, timestamp FROM scan_cache WHERE link = ?`, key,
	).Scan(&data, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query entry: %w", err)
	}

	var v engine.Verdict
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	return &Entry{Key: key, Data: &v, Timestamp: t}, nil
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("encode verdict: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scan_cache (link, data, timestamp) VALUES (?, ?, ?)
		 ON CONFLICT(link) DO UPDATE SET data = excluded.data, timestamp = excluded.timestamp`,
		entry.Key, string(data), entry.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

// Count returns the number of rows, fresh or stale.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scan_cache`).Scan(&n)
	return n, err
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
