package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig configures the Postgres-backed store connection.
type PostgresConfig struct {
	ConnectionURL  string        `env:"PURCHASE_DATABASE_URL,required"`
	RetryAttempts  int           `env:"PURCHASE_DATABASE_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"PURCHASE_DATABASE_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"PURCHASE_DATABASE_CONNECT_TIMEOUT" envDefault:"30s"`
	Table          string        `env:"PURCHASE_DATABASE_TABLE" envDefault:"purchase_state"`
}

// PostgresStore persists purchase state in a single key-value table.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresStore wraps an existing connection pool. Call Bootstrap once
// to ensure the backing table exists.
func NewPostgresStore(pool *pgxpool.Pool, table string) *PostgresStore {
	if pool == nil {
		panic("storage: pgx pool is required")
	}
	if table == "" {
		table = "purchase_state"
	}
	return &PostgresStore{pool: pool, table: table}
}

// ConnectPostgres establishes a pooled connection with retries and
// returns a bootstrapped store backed by it.
func ConnectPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrPostgresNotReady, err)
	}

	for attempt := 0; attempt < max(cfg.RetryAttempts, 1); attempt++ {
		if err := pool.Ping(ctx); err == nil {
			store := NewPostgresStore(pool, cfg.Table)
			if err := store.Bootstrap(ctx); err != nil {
				pool.Close()
				return nil, err
			}
			return store, nil
		}

		select {
		case <-ctx.Done():
			pool.Close()
			return nil, errors.Join(ErrPostgresNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	pool.Close()
	return nil, ErrPostgresNotReady
}

// Bootstrap creates the backing table if it does not exist.
func (s *PostgresStore) Bootstrap(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM `+s.table+` WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO `+s.table+` (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, key, value)
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM `+s.table+` WHERE key = $1`, key)
	return err
}
