package cache

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// SQLiteStore persists entries in a single sqlite table.
// Timestamps are stored as unix milliseconds and read back as UTC.
type SQLiteStore struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteStore creates a new store with the given filename as the db.
// If the file name is empty, a new in-memory db is opened.
func NewSQLiteStore(filename string) *SQLiteStore {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		panic(err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		url TEXT,
		title TEXT,
		html BLOB,
		created_at INTEGER
	)`)
	if err != nil {
		panic(err)
	}
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		panic(err)
	}
	return &SQLiteStore{
		db:         db,
		writeMutex: &sync.Mutex{},
	}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var entry Entry
	var html []byte
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT key, url, title, html, created_at FROM entries WHERE key = ?", key).
		Scan(&entry.Key, &entry.URL, &entry.Title, &html, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	entry.HTML = string(html)
	entry.CreatedAt = time.UnixMilli(createdAt).UTC()
	return entry, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, entry Entry) (Entry, error) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	// normalize to what a read-back would return
	entry.CreatedAt = entry.CreatedAt.UTC().Truncate(time.Millisecond)
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO entries (key, url, title, html, created_at) VALUES (?, ?, ?, ?, ?)",
		entry.Key, entry.URL, entry.Title, []byte(entry.HTML), entry.CreatedAt.UnixMilli())
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (s *SQLiteStore) Purge(ctx context.Context, key string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE key = ?", key)
	return err
}
