package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JunaYa/ferriskey/internal/policy"
)

// Role is a named bundle of permission grants within a realm.
type Role struct {
	ID          uuid.UUID          `json:"id"`
	RealmID     uuid.UUID          `json:"realm_id"`
	Name        string             `json:"name"`
	Permissions policy.Permissions `json:"permissions"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// CreateRole inserts a role, returning ErrConflict when the realm already
// has a role of that name.
func (s *Store) CreateRole(ctx context.Context, realmID uuid.UUID, name string, perms policy.Permissions) (Role, error) {
	now := time.Now().UTC()
	role := Role{
		ID:          uuid.Must(uuid.NewV7()),
		RealmID:     realmID,
		Name:        name,
		Permissions: perms,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO roles (id, realm_id, name, permissions, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (realm_id, name) DO NOTHING`,
		role.ID.String(), realmID.String(), name, int64(perms.Bits()), now, now)
	if err != nil {
		return Role{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Role{}, ErrConflict
	}
	return role, nil
}

// GrantRole binds a role to a user. Granting twice is a no-op.
func (s *Store) GrantRole(ctx context.Context, userID, roleID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, role_id) DO NOTHING`,
		userID.String(), roleID.String())
	return err
}

// PermissionsFor computes the union of permission grants the user holds via
// roles in the given realm. No roles means no permissions, not an error.
func (s *Store) PermissionsFor(ctx context.Context, userID, realmID uuid.UUID) (policy.Permissions, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.permissions FROM roles r
		 JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id = $1 AND r.realm_id = $2`,
		userID.String(), realmID.String())
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var perms policy.Permissions
	for rows.Next() {
		var bits int64
		if err := rows.Scan(&bits); err != nil {
			return 0, err
		}
		perms |= policy.Permissions(bits)
	}
	return perms, rows.Err()
}
