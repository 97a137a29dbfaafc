package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JunaYa/ferriskey/internal/identity"
)

const userColumns = "id, realm_id, username, email, firstname, lastname, enabled, email_verified, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (identity.User, error) {
	var u identity.User
	var id, realmID string
	err := row.Scan(&id, &realmID, &u.Username, &u.Email, &u.Firstname, &u.Lastname,
		&u.Enabled, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return identity.User{}, err
	}
	if err := scanUUID(id, &u.ID); err != nil {
		return identity.User{}, err
	}
	if err := scanUUID(realmID, &u.RealmID); err != nil {
		return identity.User{}, err
	}
	return u, nil
}

// CreateUser inserts a user. If the (realm_id, username) pair already
// exists, the existing row is returned instead; the deterministic anonymous
// derivation makes that the correct reading of a conflict.
func (s *Store) CreateUser(ctx context.Context, user identity.User) (identity.User, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (realm_id, username) DO NOTHING`,
		user.ID.String(), user.RealmID.String(), user.Username, user.Email,
		user.Firstname, user.Lastname, user.Enabled, user.EmailVerified,
		user.CreatedAt, user.UpdatedAt); err != nil {
		return identity.User{}, err
	}
	return s.GetUserByUsername(ctx, user.RealmID, user.Username)
}

// GetUserByID loads a user by id.
func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (identity.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.User{}, notFound(fmt.Sprintf("user %s", id))
	}
	return u, err
}

// GetUserByUsername loads a user by its realm-scoped username.
func (s *Store) GetUserByUsername(ctx context.Context, realmID uuid.UUID, username string) (identity.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE realm_id = $1 AND username = $2`,
		realmID.String(), username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.User{}, notFound(fmt.Sprintf("user %q", username))
	}
	return u, err
}
