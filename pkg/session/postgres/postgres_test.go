package postgres

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tabletalk-dev/tabletalk/pkg/session"
)

func init() {
	// Configure testcontainers to use podman.
	// Detect the podman socket from `podman machine inspect`.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	// Ryuk needs privileged mode with podman.
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container and returns a connected Store.
// Tests are skipped if no container runtime is available.
func setupTestDB(t *testing.T, ttl time.Duration) *Store {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}

	if _, err := exec.LookPath("podman"); err != nil {
		t.Skip("podman not found, skipping integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("tabletalk_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container (is podman running?): %v", err)
	}

	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{
		DSN:            connStr,
		MaxConns:       5,
		MinConns:       1,
		TTL:            ttl,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func makeTestRecord(key string) *session.Record {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &session.Record{
		Key:           key,
		SandboxID:     "sbx_" + key,
		InterpreterID: "interp-1",
		Tables:        []string{"customers", "orders"},
		CreatedAt:     now,
		LastUsedAt:    now,
	}
}

func TestPostgres_PutAndGet(t *testing.T) {
	store := setupTestDB(t, time.Hour)
	ctx := context.Background()

	rec := makeTestRecord("run-pg-1")
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, rec.Key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.SandboxID != rec.SandboxID {
		t.Errorf("SandboxID = %q, want %q", got.SandboxID, rec.SandboxID)
	}
	if len(got.Tables) != 2 || got.Tables[0] != "customers" {
		t.Errorf("Tables = %v, want [customers orders]", got.Tables)
	}
	if !got.LastUsedAt.After(rec.LastUsedAt) {
		t.Errorf("Get should refresh last_used_at, got %v", got.LastUsedAt)
	}
}

func TestPostgres_GetNotFound(t *testing.T) {
	store := setupTestDB(t, time.Hour)

	_, err := store.Get(context.Background(), "absent")
	if !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgres_PutReplaces(t *testing.T) {
	store := setupTestDB(t, time.Hour)
	ctx := context.Background()

	rec := makeTestRecord("run-pg-2")
	store.Put(ctx, rec)

	rec.SandboxID = "sbx_replacement"
	rec.Tables = []string{"sales"}
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	got, err := store.Get(ctx, rec.Key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.SandboxID != "sbx_replacement" {
		t.Errorf("SandboxID = %q, want %q", got.SandboxID, "sbx_replacement")
	}
	if len(got.Tables) != 1 || got.Tables[0] != "sales" {
		t.Errorf("Tables = %v, want [sales]", got.Tables)
	}
}

func TestPostgres_Remove(t *testing.T) {
	store := setupTestDB(t, time.Hour)
	ctx := context.Background()

	rec := makeTestRecord("run-pg-3")
	store.Put(ctx, rec)

	if err := store.Remove(ctx, rec.Key); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := store.Get(ctx, rec.Key); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound after Remove, got %v", err)
	}

	// Removing an absent key is not an error.
	if err := store.Remove(ctx, rec.Key); err != nil {
		t.Errorf("Remove of absent key failed: %v", err)
	}
}

func TestPostgres_TTLExpiry(t *testing.T) {
	store := setupTestDB(t, time.Second)
	ctx := context.Background()

	rec := makeTestRecord("run-pg-4")
	rec.LastUsedAt = time.Now().Add(-time.Minute)
	store.Put(ctx, rec)

	if _, err := store.Get(ctx, rec.Key); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound for expired record, got %v", err)
	}
}

func TestPostgres_HealthCheck(t *testing.T) {
	store := setupTestDB(t, time.Hour)
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}
