// Package db provides SQLite persistence for TempBox accounts.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/Mez0/TempBox/internal/logging"
)

// Config contains database settings.
type Config struct {
	// Path is the SQLite database file path. ":memory:" is allowed.
	Path string

	// BusyTimeoutMs is how long to wait for a locked database.
	BusyTimeoutMs int
}

// DB wraps the SQL connection pool.
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

// Open opens (and creates if needed) the database and runs migrations.
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if cfg.BusyTimeoutMs <= 0 {
		cfg.BusyTimeoutMs = 5000
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cfg.Path, cfg.BusyTimeoutMs)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		DB:     conn,
		logger: logging.Component("db"),
	}

	if err := db.migrate(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

// migrate applies the schema. Statements are idempotent.
func (d *DB) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id          TEXT PRIMARY KEY,
	address     TEXT NOT NULL UNIQUE,
	token       TEXT NOT NULL,
	password    TEXT NOT NULL,
	is_archived INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_is_archived ON accounts(is_archived);
`
	if _, err := d.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	d.logger.Debug().Msg("schema migrated")
	return nil
}

// isUniqueConstraintError reports whether err is a UNIQUE violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
