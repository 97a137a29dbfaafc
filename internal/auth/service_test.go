package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JunaYa/ferriskey/internal/config"
	"github.com/JunaYa/ferriskey/internal/identity"
)

type fakeUsers struct {
	users map[uuid.UUID]identity.User
}

func (f *fakeUsers) CreateUser(_ context.Context, u identity.User) (identity.User, error) {
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, id uuid.UUID) (identity.User, error) {
	u, ok := f.users[id]
	if !ok {
		return identity.User{}, fmt.Errorf("user %s: %w", id, identity.ErrNotFound)
	}
	return u, nil
}

func (f *fakeUsers) GetUserByUsername(_ context.Context, realmID uuid.UUID, username string) (identity.User, error) {
	for _, u := range f.users {
		if u.RealmID == realmID && u.Username == username {
			return u, nil
		}
	}
	return identity.User{}, fmt.Errorf("user %q: %w", username, identity.ErrNotFound)
}

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.Algo = "HS256"
	cfg.Auth.HSSecret = "test-secret"
	cfg.Auth.Issuer = "test"
	cfg.Auth.Audience = "test"
	cfg.Auth.AccessMin = 15
	return cfg
}

func newTestUser(enabled bool) identity.User {
	return identity.User{
		ID:       uuid.Must(uuid.NewV7()),
		RealmID:  uuid.Must(uuid.NewV7()),
		Username: "alice",
		Email:    "alice@example.com",
		Enabled:  enabled,
	}
}

func authorize(t *testing.T, svc *Service, token string) (identity.Identity, error) {
	t.Helper()
	claims, err := identity.DecodeClaims(token)
	if err != nil {
		return identity.Identity{}, err
	}
	return svc.AuthorizeRequest(context.Background(), claims, token)
}

func TestAuthorizeRequest_Valid(t *testing.T) {
	cfg := newTestConfig()
	user := newTestUser(true)
	users := &fakeUsers{users: map[uuid.UUID]identity.User{user.ID: user}}
	svc := NewService(cfg, users)

	token, err := Sign(cfg, user, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	ident, err := authorize(t, svc, token)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if ident.ID() != user.ID {
		t.Errorf("identity=%s want %s", ident.ID(), user.ID)
	}
	if ident.RealmID() != user.RealmID {
		t.Errorf("realm=%s want %s", ident.RealmID(), user.RealmID)
	}
}

func TestAuthorizeRequest_Expired(t *testing.T) {
	cfg := newTestConfig()
	user := newTestUser(true)
	users := &fakeUsers{users: map[uuid.UUID]identity.User{user.ID: user}}
	svc := NewService(cfg, users)

	token, err := Sign(cfg, user, -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := authorize(t, svc, token); !errors.Is(err, identity.ErrTokenExpired) {
		t.Errorf("err=%v want ErrTokenExpired", err)
	}
}

func TestAuthorizeRequest_BadSignature(t *testing.T) {
	cfg := newTestConfig()
	user := newTestUser(true)
	users := &fakeUsers{users: map[uuid.UUID]identity.User{user.ID: user}}
	svc := NewService(cfg, users)

	otherCfg := newTestConfig()
	otherCfg.Auth.HSSecret = "other-secret"
	token, err := Sign(otherCfg, user, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := authorize(t, svc, token); !errors.Is(err, identity.ErrInvalidSignature) {
		t.Errorf("err=%v want ErrInvalidSignature", err)
	}
}

func TestAuthorizeRequest_Garbage(t *testing.T) {
	cfg := newTestConfig()
	svc := NewService(cfg, &fakeUsers{users: map[uuid.UUID]identity.User{}})

	if _, err := authorize(t, svc, "not.a.token"); !errors.Is(err, identity.ErrInvalidToken) {
		t.Errorf("err=%v want ErrInvalidToken", err)
	}
}

func TestAuthorizeRequest_UnknownSubject(t *testing.T) {
	cfg := newTestConfig()
	user := newTestUser(true)
	// Subject signed into the token is never stored.
	svc := NewService(cfg, &fakeUsers{users: map[uuid.UUID]identity.User{}})

	token, err := Sign(cfg, user, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := authorize(t, svc, token); !errors.Is(err, identity.ErrInvalidToken) {
		t.Errorf("err=%v want ErrInvalidToken", err)
	}
}

func TestAuthorizeRequest_DisabledUser(t *testing.T) {
	cfg := newTestConfig()
	user := newTestUser(false)
	users := &fakeUsers{users: map[uuid.UUID]identity.User{user.ID: user}}
	svc := NewService(cfg, users)

	token, err := Sign(cfg, user, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := authorize(t, svc, token); !errors.Is(err, identity.ErrInvalidToken) {
		t.Errorf("err=%v want ErrInvalidToken", err)
	}
}
