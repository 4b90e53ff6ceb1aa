package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB-backed Store for production deployments
// with multiple workers needing persistence beyond a single process, e.g.
// a fleet of collector processes sharing one checkpoint history.
//
// DSN format: [username[:password]@][protocol[(address)]]/dbname[?params].
// Never hardcode credentials; read the DSN from the environment.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens a connection pool to dsn and migrates the schema.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			` + "`key`" + ` VARCHAR(512) PRIMARY KEY,
			value LONGTEXT NOT NULL,
			timeline VARCHAR(128),
			inserted_at DATETIME(6) NOT NULL,
			last_updated DATETIME(6) NOT NULL
		) ENGINE=InnoDB
	`)
	if err != nil {
		return fmt.Errorf("store: create records table: %w", err)
	}
	return nil
}

func (s *MySQLStore) Get(ctx context.Context, key string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT value, timeline, inserted_at, last_updated FROM records WHERE `key` = ?", key)
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

func (s *MySQLStore) MGet(ctx context.Context, keys []string) (map[string]Record, error) {
	out := make(map[string]Record, len(keys))
	for _, k := range keys {
		if rec, err := s.Get(ctx, k); err == nil {
			out[k] = rec
		}
	}
	return out, nil
}

func (s *MySQLStore) Set(ctx context.Context, key string, value json.RawMessage, timeline string) error {
	now := time.Now().UTC()
	insertedAt := now
	if existing, err := s.Get(ctx, key); err == nil {
		insertedAt = existing.InsertedAt
	}
	_, err := s.db.ExecContext(ctx, "INSERT INTO records (`key`, value, timeline, inserted_at, last_updated) VALUES (?, ?, ?, ?, ?) "+
		"ON DUPLICATE KEY UPDATE value=VALUES(value), timeline=VALUES(timeline), last_updated=VALUES(last_updated)",
		key, string(value), timeline, insertedAt, now)
	if err != nil {
		return fmt.Errorf("store: set %q: %w", key, err)
	}
	return nil
}

func (s *MySQLStore) MSet(ctx context.Context, entries map[string]json.RawMessage, timeline string) error {
	for key, value := range entries {
		if err := s.Set(ctx, key, value, timeline); err != nil {
			return err
		}
	}
	return nil
}

func (s *MySQLStore) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE `key` = ?", key)
	if err != nil {
		return fmt.Errorf("store: delete %q: %w", key, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MySQLStore) MDelete(ctx context.Context, keys []string) error {
	for _, k := range keys {
		_, _ = s.db.ExecContext(ctx, "DELETE FROM records WHERE `key` = ?", k)
	}
	return nil
}

func (s *MySQLStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT `key` FROM records WHERE `key` LIKE ? ORDER BY `key`", prefix+"%")
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

func (s *MySQLStore) YieldKeys(ctx context.Context, prefix string) (<-chan string, error) {
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

func (s *MySQLStore) Close() error {
	return s.db.Close()
}
