package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed Store implementation for single-process
// deployments that want a real database instead of the NDJSON FileStore.
// It opens in WAL mode with a single writer connection, following the same
// pragmas the teacher's generic SQLiteStore uses.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (and migrates) a SQLite database at path. Use
// ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			timeline TEXT,
			inserted_at TIMESTAMP NOT NULL,
			last_updated TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("store: create records table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT value, timeline, inserted_at, last_updated FROM records WHERE key = ?`, key)
	var rec Record
	var value string
	if err := row.Scan(&value, &rec.Timeline, &rec.InsertedAt, &rec.LastUpdated); err != nil {
		if err == sql.ErrNoRows {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("store: get %q: %w", key, err)
	}
	rec.Value = json.RawMessage(value)
	return rec, nil
}

func (s *SQLiteStore) MGet(ctx context.Context, keys []string) (map[string]Record, error) {
	out := make(map[string]Record, len(keys))
	for _, k := range keys {
		if rec, err := s.Get(ctx, k); err == nil {
			out[k] = rec
		}
	}
	return out, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value json.RawMessage, timeline string) error {
	now := time.Now().UTC()
	insertedAt := now
	if existing, err := s.Get(ctx, key); err == nil {
		insertedAt = existing.InsertedAt
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (key, value, timeline, inserted_at, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, timeline=excluded.timeline, last_updated=excluded.last_updated
	`, key, string(value), timeline, insertedAt, now)
	if err != nil {
		return fmt.Errorf("store: set %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) MSet(ctx context.Context, entries map[string]json.RawMessage, timeline string) error {
	for key, value := range entries {
		if err := s.Set(ctx, key, value, timeline); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("store: delete %q: %w", key, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) MDelete(ctx context.Context, keys []string) error {
	for _, k := range keys {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, k)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM records WHERE key LIKE ? ESCAPE '\' ORDER BY key`, escapeLikePrefix(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("store: list %q: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func escapeLikePrefix(prefix string) string {
	r := strings.NewReplacer("%", "\\%", "_", "\\_")
	return r.Replace(prefix)
}

func (s *SQLiteStore) YieldKeys(ctx context.Context, prefix string) (<-chan string, error) {
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	ch := make(chan string)
	go func() {
		defer close(ch)
		for _, k := range keys {
			select {
			case ch <- k:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
