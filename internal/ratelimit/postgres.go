package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// pgPool is the minimal pgxpool surface used by PostgresStore, abstracted
// so tests can substitute pgxmock.
type pgPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements CounterStore on pgx. This is the backend for
// fleet deployments where every API instance must see the same counters.
type PostgresStore struct {
	pool pgPool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS rate_counters (
	key        TEXT PRIMARY KEY,
	count      BIGINT NOT NULL DEFAULT 0,
	expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rate_counters_expires ON rate_counters(expires_at)`

// NewPostgres connects to databaseURL and applies the counter schema.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "ratelimit: connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "ratelimit: ping postgres")
	}
	s := &PostgresStore{pool: pool}
	if _, err := pool.Exec(ctx, postgresMigration); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "ratelimit: migrate postgres")
	}
	return s, nil
}

// NewPostgresFromPool wraps an existing pool without taking ownership of
// the schema. Used by tests and by callers that share one pool across
// stores.
func NewPostgresFromPool(pool pgPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Incr is a single round-trip upsert; expired rows restart at 1 with the
// new expiry. The database serializes concurrent increments on the row.
func (s *PostgresStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
INSERT INTO rate_counters (key, count, expires_at) VALUES ($1, 1, $2)
ON CONFLICT (key) DO UPDATE SET
	count      = CASE WHEN rate_counters.expires_at < now() THEN 1 ELSE rate_counters.count + 1 END,
	expires_at = CASE WHEN rate_counters.expires_at < now() THEN EXCLUDED.expires_at ELSE rate_counters.expires_at END
RETURNING count`,
		key, time.Now().UTC().Add(ttl),
	).Scan(&count)
	if err != nil {
		return 0, eris.Wrapf(err, "ratelimit: incr %s", key)
	}
	return count, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT count FROM rate_counters WHERE key = $1 AND expires_at >= now()`,
		key,
	).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "ratelimit: get %s", key)
	}
	return count, nil
}

// Sweep removes expired rows; intended for a periodic maintenance call.
func (s *PostgresStore) Sweep(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rate_counters WHERE expires_at < now()`)
	if err != nil {
		return 0, eris.Wrap(err, "ratelimit: sweep")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
