//go:build integration
// +build integration

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/JunaYa/ferriskey/internal/config"
	"github.com/JunaYa/ferriskey/internal/db"
	"github.com/JunaYa/ferriskey/internal/identity"
)

func Test_Store_With_PostgresContainer(t *testing.T) {
	ctx := context.Background()

	pg, err := postgres.RunContainer(ctx,
		postgres.WithDatabase("app"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.WithSQLDriver("pgx"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	host, err := pg.Host(ctx)
	if err != nil {
		t.Fatalf("get container host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/app?sslmode=disable", host, port.Port())

	cfg := &config.Config{}
	cfg.PG.URL = dsn
	cfg.PG.MaxOpenConns = 5
	cfg.PG.MaxIdleConns = 2

	sqldb, closeFn, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer closeFn()

	s := New(sqldb)
	ctx2, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.Migrate(ctx2); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	realm, err := s.EnsureRealm(ctx2, identity.MasterRealm)
	if err != nil {
		t.Fatalf("ensure realm: %v", err)
	}

	// Concurrent first contacts for the same device must converge.
	type result struct {
		profile identity.DeviceProfile
		created bool
		err     error
	}
	const contenders = 8
	results := make(chan result, contenders)
	for i := 0; i < contenders; i++ {
		go func() {
			user := anonymousUser(realm.ID, "dev-race")
			profile := identity.NewDeviceProfile(realm.ID, "dev-race", user.ID, &user.ID)
			p, created, err := s.Provision(ctx2, user, profile)
			results <- result{p, created, err}
		}()
	}

	var createdCount int
	var winner identity.DeviceProfile
	for i := 0; i < contenders; i++ {
		r := <-results
		if r.err != nil {
			t.Fatalf("provision: %v", r.err)
		}
		if r.created {
			createdCount++
			winner = r.profile
		}
	}
	if createdCount != 1 {
		t.Fatalf("created %d profiles, want exactly 1", createdCount)
	}

	stored, err := s.GetByRealmAndDevice(ctx2, realm.ID, "dev-race")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if stored.ID != winner.ID {
		t.Errorf("stored=%s winner=%s", stored.ID, winner.ID)
	}
}
