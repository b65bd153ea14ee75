package store

import (
	"context"
	"time"

	"github.com/me/shopgate/pkg/model"
)

// Record is the serialized session held by the durable structured store.
// UID is the dedicated identifier slot: it lets a minimally valid session
// be reconstructed even when the identity record is missing or incomplete.
type Record struct {
	Token     string
	Role      model.Role
	Identity  model.Identity
	UID       string
	UpdatedAt time.Time
}

// Store is the durable structured persistence location for the session.
// It holds at most one record for the lifetime of the client.
type Store interface {
	// SaveSession replaces the stored session record.
	SaveSession(ctx context.Context, rec *Record) error
	// GetSession returns the stored record, or (nil, nil) when absent.
	// A record that fails to parse is reported as model.ErrCorruptedState.
	GetSession(ctx context.Context) (*Record, error)
	// DeleteSession removes the stored record. Deleting an absent record
	// is not an error.
	DeleteSession(ctx context.Context) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
