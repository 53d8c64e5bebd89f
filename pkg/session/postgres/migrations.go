package postgres

import (
	"context"
	"fmt"
	"log/slog"
)

// migration is a versioned schema change applied once at startup.
type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create_sandbox_sessions",
		sql: `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				version INTEGER PRIMARY KEY,
				applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
			);

			CREATE TABLE IF NOT EXISTS sandbox_sessions (
				key TEXT PRIMARY KEY,
				sandbox_id TEXT NOT NULL,
				interpreter_id TEXT NOT NULL,
				tables TEXT[] NOT NULL DEFAULT '{}',
				created_at TIMESTAMPTZ NOT NULL,
				last_used_at TIMESTAMPTZ NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_sandbox_sessions_last_used
				ON sandbox_sessions (last_used_at);
		`,
	},
}

// migrate applies pending schema migrations, tracking applied versions
// in the schema_migrations table.
func (s *Store) migrate(ctx context.Context) error {
	for _, m := range migrations {
		var exists bool
		err := s.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
			m.version,
		).Scan(&exists)
		// If schema_migrations doesn't exist yet, this fails, which is
		// fine for the first migration that creates the table.
		if err != nil {
			exists = false
		}

		if exists {
			continue
		}

		slog.Info("applying migration", "name", m.name, "version", m.version)

		if _, err := s.pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("applying migration %s: %w", m.name, err)
		}

		if _, err := s.pool.Exec(ctx,
			"INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING",
			m.version,
		); err != nil {
			return fmt.Errorf("recording migration %s: %w", m.name, err)
		}
	}

	return nil
}
