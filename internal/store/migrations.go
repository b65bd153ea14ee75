package store

import (
	"context"
	"database/sql"
	"strings"
)

// schema contains the DDL for the session store.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS session (
		id         TEXT PRIMARY KEY,
		token      TEXT NOT NULL,
		role       TEXT NOT NULL,
		identity   TEXT NOT NULL DEFAULT '{}',
		uid        TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	)`,
}

// migrate applies all schema statements in order.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return &migrationError{stmt: stmt, err: err}
		}
	}
	return nil
}

type migrationError struct {
	stmt string
	err  error
}

func (e *migrationError) Error() string {
	// First line of the DDL is enough to identify the statement.
	head := e.stmt
	if i := strings.IndexByte(head, '\n'); i > 0 {
		head = head[:i]
	}
	return "migration failed: " + strings.TrimSpace(head) + ": " + e.err.Error()
}

func (e *migrationError) Unwrap() error { return e.err }
