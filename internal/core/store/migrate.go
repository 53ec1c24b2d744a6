package store

import (
	"context"
	"fmt"
)

// migrations are applied in order; the database's user_version records how
// many have run. Append only.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS detail_cache (
			name TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			fetched_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_detail_cache_expires ON detail_cache(expires_at)`,
		`CREATE TABLE IF NOT EXISTS name_cache (
			source TEXT PRIMARY KEY,
			names TEXT NOT NULL,
			count INTEGER NOT NULL,
			fetched_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rate_limits (
			host TEXT PRIMARY KEY,
			request_count INTEGER NOT NULL DEFAULT 0,
			window_start INTEGER NOT NULL,
			backoff_until INTEGER,
			last_429_at INTEGER
		)`,
	},
	{
		`ALTER TABLE detail_cache ADD COLUMN hits INTEGER NOT NULL DEFAULT 0`,
		`CREATE INDEX IF NOT EXISTS idx_detail_cache_fetched ON detail_cache(fetched_at)`,
	},
}

// SchemaVersion is the user_version a fully migrated database reports.
func SchemaVersion() int { return len(migrations) }

// Migrate brings the schema up to SchemaVersion. Each step runs in its own
// transaction together with its version bump.
func (s *Store) Migrate(ctx context.Context) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}

	var current int
	if err := s.DB.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current > len(migrations) {
		return fmt.Errorf("schema version %d is newer than this binary (%d)", current, len(migrations))
	}

	for version := current; version < len(migrations); version++ {
		if err := s.applyMigration(ctx, version+1, migrations[version]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, version int, stmts []string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: %w", version, err)
	}
	defer tx.Rollback() // nolint:errcheck

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", version, err)
		}
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("migration %d: set version: %w", version, err)
	}
	return tx.Commit()
}
