package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/shopgate/pkg/model"

	_ "modernc.org/sqlite"
)

// sessionRowID keys the single session row. The store belongs to one
// client, so there is never more than one record.
const sessionRowID = "current"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns
// a Store. Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// SaveSession replaces the stored session record.
func (s *SQLiteStore) SaveSession(ctx context.Context, rec *Record) error {
	s.logger.Debug("sql", "op", "upsert", "table", "session", "role", rec.Role)

	identityJSON, err := json.Marshal(rec.Identity)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session (id, token, role, identity, uid, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   token = excluded.token,
		   role = excluded.role,
		   identity = excluded.identity,
		   uid = excluded.uid,
		   updated_at = excluded.updated_at`,
		sessionRowID, rec.Token, string(rec.Role), string(identityJSON),
		rec.UID, updatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// GetSession returns the stored record, or (nil, nil) when absent. A row
// whose identity blob fails to parse is reported as corrupted state rather
// than a partial session.
func (s *SQLiteStore) GetSession(ctx context.Context) (*Record, error) {
	s.logger.Debug("sql", "op", "select", "table", "session")

	var rec Record
	var role, identityJSON, updatedAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT token, role, identity, uid, updated_at FROM session WHERE id = ?`,
		sessionRowID,
	).Scan(&rec.Token, &role, &identityJSON, &rec.UID, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.Role = model.Role(role)
	if err := json.Unmarshal([]byte(identityJSON), &rec.Identity); err != nil {
		return nil, fmt.Errorf("%w: unmarshal identity: %v", model.ErrCorruptedState, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		rec.UpdatedAt = t
	}

	return &rec, nil
}

// DeleteSession removes the stored record.
func (s *SQLiteStore) DeleteSession(ctx context.Context) error {
	s.logger.Debug("sql", "op", "delete", "table", "session")
	_, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE id = ?`, sessionRowID)
	return err
}
