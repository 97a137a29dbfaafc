package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// RealmStore resolves realms. Implemented by the SQL store.
type RealmStore interface {
	GetRealmByName(ctx context.Context, name string) (Realm, error)
	GetRealmByID(ctx context.Context, id uuid.UUID) (Realm, error)
}

// UserStore persists users. Implemented by the SQL store.
type UserStore interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByUsername(ctx context.Context, realmID uuid.UUID, username string) (User, error)
}

// DeviceProfileStore persists device profiles. Provision must insert the
// user/profile pair atomically and converge on the existing rows when either
// insert loses a uniqueness race.
type DeviceProfileStore interface {
	GetByRealmAndDevice(ctx context.Context, realmID uuid.UUID, deviceID string) (DeviceProfile, error)
	GetDeviceProfileByID(ctx context.Context, id uuid.UUID) (DeviceProfile, error)
	Provision(ctx context.Context, user User, profile DeviceProfile) (DeviceProfile, bool, error)
}

// Provisioner implements get-or-create of device profiles with
// deterministically derived anonymous users.
type Provisioner struct {
	users   UserStore
	devices DeviceProfileStore
}

// NewProvisioner builds a provisioner over the given stores.
func NewProvisioner(users UserStore, devices DeviceProfileStore) *Provisioner {
	return &Provisioner{users: users, devices: devices}
}

// GetOrCreate returns the device profile for (realm, deviceID), creating an
// anonymous user and profile on first contact. actor, when non-nil,
// attributes created_by to an acting identity; otherwise the freshly
// provisioned user owns its own bootstrap. The returned bool reports whether
// a new profile was created by this call. Concurrent first contacts for the
// same pair converge on a single profile.
func (p *Provisioner) GetOrCreate(ctx context.Context, realm Realm, deviceID string, actor *uuid.UUID) (DeviceProfile, bool, error) {
	profile, err := p.devices.GetByRealmAndDevice(ctx, realm.ID, deviceID)
	if err == nil {
		return profile, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return DeviceProfile{}, false, err
	}

	now := time.Now().UTC()
	user := User{
		ID:            uuid.Must(uuid.NewV7()),
		RealmID:       realm.ID,
		Username:      AnonymousUsername(deviceID),
		Email:         AnonymousEmail(deviceID),
		Firstname:     AnonymousName(deviceID, "firstname"),
		Lastname:      AnonymousName(deviceID, "lastname"),
		Enabled:       true,
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	createdBy := actor
	if createdBy == nil {
		createdBy = &user.ID
	}
	candidate := NewDeviceProfile(realm.ID, deviceID, user.ID, createdBy)

	return p.devices.Provision(ctx, user, candidate)
}

// ResolveUser loads the user a profile points at.
func (p *Provisioner) ResolveUser(ctx context.Context, profile DeviceProfile) (User, error) {
	return p.users.GetUserByID(ctx, profile.UserID)
}
