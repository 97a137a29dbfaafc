package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JunaYa/ferriskey/internal/identity"
)

const realmColumns = "id, name, created_at, updated_at"

func scanRealm(row *sql.Row) (identity.Realm, error) {
	var r identity.Realm
	var id string
	if err := row.Scan(&id, &r.Name, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return identity.Realm{}, err
	}
	if err := scanUUID(id, &r.ID); err != nil {
		return identity.Realm{}, err
	}
	return r, nil
}

// GetRealmByName resolves a realm by its URL-path name.
func (s *Store) GetRealmByName(ctx context.Context, name string) (identity.Realm, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+realmColumns+` FROM realms WHERE name = $1`, name)
	r, err := scanRealm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.Realm{}, notFound(fmt.Sprintf("realm %q", name))
	}
	return r, err
}

// GetRealmByID resolves a realm by id.
func (s *Store) GetRealmByID(ctx context.Context, id uuid.UUID) (identity.Realm, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+realmColumns+` FROM realms WHERE id = $1`, id.String())
	r, err := scanRealm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.Realm{}, notFound(fmt.Sprintf("realm %s", id))
	}
	return r, err
}

// EnsureRealm creates a realm by name if absent and returns it. Used for
// seeding (the master realm at boot) and tests.
func (s *Store) EnsureRealm(ctx context.Context, name string) (identity.Realm, error) {
	now := time.Now().UTC()
	id := uuid.Must(uuid.NewV7())
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO realms (id, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO NOTHING`,
		id.String(), name, now, now); err != nil {
		return identity.Realm{}, err
	}
	return s.GetRealmByName(ctx, name)
}
