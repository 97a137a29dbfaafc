// Package store implements the persistence ports of the identity domain on
// database/sql. Production runs on PostgreSQL via the pgx driver; tests run
// the same SQL on in-memory SQLite. Uniqueness races are resolved in SQL:
// every insert that may collide is ON CONFLICT DO NOTHING plus re-select.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JunaYa/ferriskey/internal/identity"
	"github.com/JunaYa/ferriskey/internal/logx"
)

var storeLogger = logx.GetScope("store")

// ErrConflict is returned when an insert hits a uniqueness constraint and
// the caller asked for a hard create.
var ErrConflict = errors.New("already exists")

// Store exposes realm, user, device-profile and role persistence over one
// database handle. It satisfies identity.RealmStore, identity.UserStore,
// identity.DeviceProfileStore and policy.Lookup.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate applies the embedded DDL. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// notFound wraps the domain sentinel with entity context.
func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, identity.ErrNotFound)
}

func scanUUID(s string, dst *uuid.UUID) error {
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*dst = id
	return nil
}

func nullUUID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func parseNullUUID(ns sql.NullString) (*uuid.UUID, error) {
	if !ns.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(ns.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
