package identity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

// memStores is an in-memory stand-in for the SQL store with the same
// insert-or-fetch conflict semantics.
type memStores struct {
	realms   map[string]Realm
	users    map[uuid.UUID]User
	byName   map[string]uuid.UUID
	profiles map[string]DeviceProfile
}

func newMemStores() *memStores {
	return &memStores{
		realms:   map[string]Realm{},
		users:    map[uuid.UUID]User{},
		byName:   map[string]uuid.UUID{},
		profiles: map[string]DeviceProfile{},
	}
}

func (m *memStores) addRealm(name string) Realm {
	r := Realm{ID: uuid.Must(uuid.NewV7()), Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.realms[name] = r
	return r
}

func nameKey(realmID uuid.UUID, username string) string {
	return realmID.String() + "/" + username
}

func devKey(realmID uuid.UUID, deviceID string) string {
	return realmID.String() + "/" + deviceID
}

func (m *memStores) GetRealmByName(_ context.Context, name string) (Realm, error) {
	r, ok := m.realms[name]
	if !ok {
		return Realm{}, fmt.Errorf("realm %q: %w", name, ErrNotFound)
	}
	return r, nil
}

func (m *memStores) GetRealmByID(_ context.Context, id uuid.UUID) (Realm, error) {
	for _, r := range m.realms {
		if r.ID == id {
			return r, nil
		}
	}
	return Realm{}, fmt.Errorf("realm %s: %w", id, ErrNotFound)
}

func (m *memStores) CreateUser(_ context.Context, user User) (User, error) {
	key := nameKey(user.RealmID, user.Username)
	if id, ok := m.byName[key]; ok {
		return m.users[id], nil
	}
	m.users[user.ID] = user
	m.byName[key] = user.ID
	return user, nil
}

func (m *memStores) GetUserByID(_ context.Context, id uuid.UUID) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return u, nil
}

func (m *memStores) GetUserByUsername(_ context.Context, realmID uuid.UUID, username string) (User, error) {
	id, ok := m.byName[nameKey(realmID, username)]
	if !ok {
		return User{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	return m.users[id], nil
}

func (m *memStores) GetByRealmAndDevice(_ context.Context, realmID uuid.UUID, deviceID string) (DeviceProfile, error) {
	p, ok := m.profiles[devKey(realmID, deviceID)]
	if !ok {
		return DeviceProfile{}, fmt.Errorf("device profile %q: %w", deviceID, ErrNotFound)
	}
	return p, nil
}

func (m *memStores) GetDeviceProfileByID(_ context.Context, id uuid.UUID) (DeviceProfile, error) {
	for _, p := range m.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return DeviceProfile{}, fmt.Errorf("device profile %s: %w", id, ErrNotFound)
}

func (m *memStores) Provision(ctx context.Context, user User, profile DeviceProfile) (DeviceProfile, bool, error) {
	owner, _ := m.CreateUser(ctx, user)
	if owner.ID != user.ID {
		profile.UserID = owner.ID
		if profile.CreatedBy != nil && *profile.CreatedBy == user.ID {
			profile.CreatedBy = &owner.ID
			profile.UpdatedBy = &owner.ID
		}
	}
	key := devKey(profile.RealmID, profile.DeviceID)
	if existing, ok := m.profiles[key]; ok {
		return existing, false, nil
	}
	m.profiles[key] = profile
	return profile, true, nil
}

func TestGetOrCreate_FirstContact(t *testing.T) {
	m := newMemStores()
	realm := m.addRealm("acme")
	prov := NewProvisioner(m, m)

	profile, created, err := prov.GetOrCreate(context.Background(), realm, "dev-1", nil)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !created {
		t.Fatal("expected created=true on first contact")
	}
	if profile.RealmID != realm.ID || profile.DeviceID != "dev-1" {
		t.Errorf("profile=%+v", profile)
	}

	user, err := prov.ResolveUser(context.Background(), profile)
	if err != nil {
		t.Fatalf("resolve user: %v", err)
	}
	if user.Username != AnonymousUsername("dev-1") {
		t.Errorf("username=%q", user.Username)
	}
	if !user.Enabled || user.EmailVerified {
		t.Errorf("enabled=%v verified=%v", user.Enabled, user.EmailVerified)
	}
	if profile.CreatedBy == nil || *profile.CreatedBy != user.ID {
		t.Error("bootstrap profile should be attributed to its own user")
	}
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	m := newMemStores()
	realm := m.addRealm("acme")
	prov := NewProvisioner(m, m)
	ctx := context.Background()

	first, created, err := prov.GetOrCreate(ctx, realm, "dev-1", nil)
	if err != nil || !created {
		t.Fatalf("first: created=%v err=%v", created, err)
	}
	second, created, err := prov.GetOrCreate(ctx, realm, "dev-1", nil)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if created {
		t.Error("expected created=false on repeat")
	}
	if second.ID != first.ID || second.UserID != first.UserID {
		t.Errorf("profiles diverged: %+v vs %+v", first, second)
	}
	if len(m.users) != 1 || len(m.profiles) != 1 {
		t.Errorf("users=%d profiles=%d", len(m.users), len(m.profiles))
	}
}

func TestGetOrCreate_ActorAttribution(t *testing.T) {
	m := newMemStores()
	realm := m.addRealm("acme")
	prov := NewProvisioner(m, m)
	actor := uuid.Must(uuid.NewV7())

	profile, created, err := prov.GetOrCreate(context.Background(), realm, "dev-1", &actor)
	if err != nil || !created {
		t.Fatalf("created=%v err=%v", created, err)
	}
	if profile.CreatedBy == nil || *profile.CreatedBy != actor {
		t.Errorf("created_by=%v want %s", profile.CreatedBy, actor)
	}
}

func TestGetOrCreate_RealmIsolation(t *testing.T) {
	m := newMemStores()
	acme := m.addRealm("acme")
	umbrella := m.addRealm("umbrella")
	prov := NewProvisioner(m, m)
	ctx := context.Background()

	p1, _, err := prov.GetOrCreate(ctx, acme, "dev-1", nil)
	if err != nil {
		t.Fatalf("acme: %v", err)
	}
	p2, created, err := prov.GetOrCreate(ctx, umbrella, "dev-1", nil)
	if err != nil {
		t.Fatalf("umbrella: %v", err)
	}
	if !created {
		t.Error("same device in another realm must provision fresh")
	}
	if p1.ID == p2.ID || p1.UserID == p2.UserID {
		t.Errorf("realms shared state: %+v vs %+v", p1, p2)
	}
}
