// Package identity holds the identity resolution domain: bearer claims,
// realms, users, device profiles and the anonymous provisioning logic.
package identity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MasterRealm is the distinguished realm granted cross-realm access.
const MasterRealm = "master"

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// Token rejection outcomes. Structural failures always collapse into
// ErrInvalidToken; the verification errors come from the auth service.
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenNotFound    = errors.New("token not found")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Realm is the tenant boundary. Every persisted entity carries a realm id.
type Realm struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is an account scoped to a realm. Device-provisioned users are
// first-class users with derived fields.
type User struct {
	ID            uuid.UUID `json:"id"`
	RealmID       uuid.UUID `json:"realm_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Firstname     string    `json:"firstname"`
	Lastname      string    `json:"lastname"`
	Enabled       bool      `json:"enabled"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DeviceProfile binds an opaque client device identifier to a provisioned
// user within a realm. At most one profile exists per (realm_id, device_id).
type DeviceProfile struct {
	ID        uuid.UUID  `json:"id"`
	RealmID   uuid.UUID  `json:"realm_id"`
	DeviceID  string     `json:"device_id"`
	UserID    uuid.UUID  `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	UpdatedBy *uuid.UUID `json:"updated_by,omitempty"`
}

// NewDeviceProfile builds a profile with a time-ordered id.
func NewDeviceProfile(realmID uuid.UUID, deviceID string, userID uuid.UUID, createdBy *uuid.UUID) DeviceProfile {
	now := time.Now().UTC()
	return DeviceProfile{
		ID:        uuid.Must(uuid.NewV7()),
		RealmID:   realmID,
		DeviceID:  deviceID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: createdBy,
		UpdatedBy: createdBy,
	}
}

// Identity is the resolved caller. Today it always wraps a User: the bearer
// path resolves a stored user, the device path provisions one. It lives for
// the duration of a request and is never persisted.
type Identity struct {
	user User
}

// NewUserIdentity wraps a user as a resolved identity.
func NewUserIdentity(u User) Identity {
	return Identity{user: u}
}

// ID returns the underlying user id.
func (i Identity) ID() uuid.UUID {
	return i.user.ID
}

// RealmID returns the home realm of the underlying user.
func (i Identity) RealmID() uuid.UUID {
	return i.user.RealmID
}

// User returns the underlying user record.
func (i Identity) User() User {
	return i.user
}
