package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JunaYa/ferriskey/internal/identity"
)

const deviceColumns = "id, realm_id, device_id, user_id, created_at, updated_at, created_by, updated_by"

func scanDeviceProfile(row rowScanner) (identity.DeviceProfile, error) {
	var p identity.DeviceProfile
	var id, realmID, userID string
	var createdBy, updatedBy sql.NullString
	err := row.Scan(&id, &realmID, &p.DeviceID, &userID,
		&p.CreatedAt, &p.UpdatedAt, &createdBy, &updatedBy)
	if err != nil {
		return identity.DeviceProfile{}, err
	}
	if err := scanUUID(id, &p.ID); err != nil {
		return identity.DeviceProfile{}, err
	}
	if err := scanUUID(realmID, &p.RealmID); err != nil {
		return identity.DeviceProfile{}, err
	}
	if err := scanUUID(userID, &p.UserID); err != nil {
		return identity.DeviceProfile{}, err
	}
	if p.CreatedBy, err = parseNullUUID(createdBy); err != nil {
		return identity.DeviceProfile{}, err
	}
	if p.UpdatedBy, err = parseNullUUID(updatedBy); err != nil {
		return identity.DeviceProfile{}, err
	}
	return p, nil
}

// GetByRealmAndDevice loads the profile bound to (realm_id, device_id).
// Lookups never cross realms: the same device id under another realm is a
// different profile.
func (s *Store) GetByRealmAndDevice(ctx context.Context, realmID uuid.UUID, deviceID string) (identity.DeviceProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM device_profiles WHERE realm_id = $1 AND device_id = $2`,
		realmID.String(), deviceID)
	p, err := scanDeviceProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.DeviceProfile{}, notFound(fmt.Sprintf("device profile %q", deviceID))
	}
	return p, err
}

// GetDeviceProfileByID loads a profile by primary key.
func (s *Store) GetDeviceProfileByID(ctx context.Context, id uuid.UUID) (identity.DeviceProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM device_profiles WHERE id = $1`, id.String())
	p, err := scanDeviceProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.DeviceProfile{}, notFound(fmt.Sprintf("device profile %s", id))
	}
	return p, err
}

// Provision atomically inserts the anonymous user and its device profile.
// Both inserts are insert-or-fetch: if the user already exists (an earlier
// run, or a lost race on the derived username) the profile is re-pointed at
// the surviving row, and if the profile itself already exists the existing
// one is returned. The bool reports whether this call created the profile.
func (s *Store) Provision(ctx context.Context, user identity.User, profile identity.DeviceProfile) (identity.DeviceProfile, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return identity.DeviceProfile{}, false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (realm_id, username) DO NOTHING`,
		user.ID.String(), user.RealmID.String(), user.Username, user.Email,
		user.Firstname, user.Lastname, user.Enabled, user.EmailVerified,
		user.CreatedAt, user.UpdatedAt); err != nil {
		return identity.DeviceProfile{}, false, err
	}

	row := tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE realm_id = $1 AND username = $2`,
		user.RealmID.String(), user.Username)
	owner, err := scanUser(row)
	if err != nil {
		return identity.DeviceProfile{}, false, err
	}
	if owner.ID != user.ID {
		// Lost the user race; rebind the profile to the surviving user.
		storeLogger.Sugar().Debugw("anonymous user already present, rebinding profile",
			"realm_id", profile.RealmID, "device_id", profile.DeviceID)
		profile.UserID = owner.ID
		if profile.CreatedBy != nil && *profile.CreatedBy == user.ID {
			profile.CreatedBy = &owner.ID
			profile.UpdatedBy = &owner.ID
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO device_profiles (`+deviceColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (realm_id, device_id) DO NOTHING`,
		profile.ID.String(), profile.RealmID.String(), profile.DeviceID, profile.UserID.String(),
		profile.CreatedAt, profile.UpdatedAt, nullUUID(profile.CreatedBy), nullUUID(profile.UpdatedBy))
	if err != nil {
		return identity.DeviceProfile{}, false, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return identity.DeviceProfile{}, false, err
	}

	row = tx.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM device_profiles WHERE realm_id = $1 AND device_id = $2`,
		profile.RealmID.String(), profile.DeviceID)
	stored, err := scanDeviceProfile(row)
	if err != nil {
		return identity.DeviceProfile{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return identity.DeviceProfile{}, false, err
	}
	return stored, inserted > 0, nil
}
