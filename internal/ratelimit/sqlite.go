package ratelimit

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements CounterStore on modernc.org/sqlite. Useful when
// several worker processes on one host must share rate-limit state
// without running a database server.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the counter database at dsn and applies
// the schema.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "ratelimit: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "ratelimit: exec %s", pragma)
		}
	}

	const schema = `
CREATE TABLE IF NOT EXISTS rate_counters (
	key        TEXT PRIMARY KEY,
	count      INTEGER NOT NULL DEFAULT 0,
	expires_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rate_counters_expires ON rate_counters(expires_at);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "ratelimit: migrate sqlite")
	}
	return &SQLiteStore{db: db}, nil
}

// Incr bumps the counter in a single upsert so concurrent searches never
// interleave a read with a write. An expired row is reset to 1 with a
// fresh expiry instead of being deleted first.
func (s *SQLiteStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	now := time.Now().UTC()
	expires := now.Add(ttl)

	var count int64
	err := s.db.QueryRowContext(ctx, `
INSERT INTO rate_counters (key, count, expires_at) VALUES (?, 1, ?)
ON CONFLICT(key) DO UPDATE SET
	count      = CASE WHEN expires_at < ? THEN 1 ELSE count + 1 END,
	expires_at = CASE WHEN expires_at < ? THEN excluded.expires_at ELSE expires_at END
RETURNING count`,
		key, expires, now, now,
	).Scan(&count)
	if err != nil {
		return 0, eris.Wrapf(err, "ratelimit: incr %s", key)
	}
	return count, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT count FROM rate_counters WHERE key = ? AND expires_at >= ?`,
		key, time.Now().UTC(),
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "ratelimit: get %s", key)
	}
	return count, nil
}

// Sweep deletes expired counter rows and returns how many were removed.
// Expiry is already honored by Get/Incr; this only keeps the table small.
func (s *SQLiteStore) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM rate_counters WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, eris.Wrap(err, "ratelimit: sweep")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
