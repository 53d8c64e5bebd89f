// Package postgres provides a PostgreSQL implementation of session.Store
// for deployments where multiple gateway replicas must share session
// affinity. It uses pgx/v5 for connection pooling.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tabletalk-dev/tabletalk/pkg/session"
)

// Store is a PostgreSQL-backed session.Store.
type Store struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

var _ session.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool, ttl: cfg.TTL}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Get returns the live record for key and refreshes its last-used time.
// Records past the TTL since their last use are removed.
func (s *Store) Get(ctx context.Context, key string) (*session.Record, error) {
	var rec session.Record

	err := s.pool.QueryRow(ctx, `
		UPDATE sandbox_sessions
		SET last_used_at = now()
		WHERE key = $1 AND ($2::interval IS NULL OR last_used_at > now() - $2::interval)
		RETURNING key, sandbox_id, interpreter_id, tables, created_at, last_used_at
	`, key, s.ttlInterval()).Scan(
		&rec.Key, &rec.SandboxID, &rec.InterpreterID, &rec.Tables,
		&rec.CreatedAt, &rec.LastUsedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		// Drop the row if it exists but has expired.
		s.pool.Exec(ctx, "DELETE FROM sandbox_sessions WHERE key = $1", key)
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	return &rec, nil
}

// Put inserts or replaces the record for rec.Key.
func (s *Store) Put(ctx context.Context, rec *session.Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sandbox_sessions (key, sandbox_id, interpreter_id, tables, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE SET
			sandbox_id = EXCLUDED.sandbox_id,
			interpreter_id = EXCLUDED.interpreter_id,
			tables = EXCLUDED.tables,
			last_used_at = EXCLUDED.last_used_at
	`, rec.Key, rec.SandboxID, rec.InterpreterID, rec.Tables, rec.CreatedAt, rec.LastUsedAt)

	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}
	return nil
}

// Remove deletes the record for key. Removing an absent key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM sandbox_sessions WHERE key = $1", key); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ttlInterval renders the TTL as a PostgreSQL interval literal, or nil
// when expiry is disabled.
func (s *Store) ttlInterval() *string {
	if s.ttl <= 0 {
		return nil
	}
	iv := fmt.Sprintf("%d seconds", int(s.ttl.Seconds()))
	return &iv
}
