package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/pawl-core/internal/cryptox"
	"github.com/nerrad567/pawl-core/internal/infrastructure/config"
	"github.com/nerrad567/pawl-core/internal/infrastructure/database"
	"github.com/nerrad567/pawl-core/internal/notify"
	"github.com/nerrad567/pawl-core/internal/registry"
	"github.com/nerrad567/pawl-core/internal/store"
	_ "github.com/nerrad567/pawl-core/migrations"
)

// testStore opens a migrated temp database behind an encrypted store.
func testStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "auth-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}

	key, err := cryptox.DeriveKey("auth-test-secret")
	if err != nil {
		t.Fatalf("deriving key: %v", err)
	}
	cipher, err := cryptox.NewCipher(key)
	if err != nil {
		t.Fatalf("creating cipher: %v", err)
	}
	return store.New(db, cipher)
}

// testService returns a Service over a fresh store with the given session
// lifetime, plus the bus it notifies.
func testService(t *testing.T, lifetime time.Duration) (*Service, *notify.Bus) {
	t.Helper()

	bus := notify.New()
	reg := registry.New(testStore(t), bus)
	if err := reg.LoadAll(context.Background()); err != nil {
		t.Fatalf("loading registry: %v", err)
	}

	sessions := NewSessions(lifetime)
	t.Cleanup(sessions.Close)

	return NewService(reg, sessions), bus
}

// seedUser adds a user through the service and fails the test on error.
func seedUser(t *testing.T, svc *Service, username, password string) {
	t.Helper()
	if err := svc.AddUser(context.Background(), username, password); err != nil {
		t.Fatalf("AddUser(%s) error = %v", username, err)
	}
}

// countingVerify wraps the real verifier and counts calls.
type countingVerify struct {
	calls int
}

func (c *countingVerify) verify(password, hash string) (bool, error) {
	c.calls++
	return cryptox.VerifyPassword(password, hash)
}
