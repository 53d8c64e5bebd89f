package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tabletalk-dev/tabletalk/pkg/session"
)

func makeRecord(key string) *session.Record {
	now := time.Now()
	return &session.Record{
		Key:           key,
		SandboxID:     "sbx_" + key,
		InterpreterID: "interp-1",
		Tables:        []string{"customers"},
		CreatedAt:     now,
		LastUsedAt:    now,
	}
}

func TestPutAndGet(t *testing.T) {
	store := New(time.Hour, 0)
	ctx := context.Background()

	if err := store.Put(ctx, makeRecord("run-1")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.SandboxID != "sbx_run-1" {
		t.Errorf("SandboxID = %q, want %q", got.SandboxID, "sbx_run-1")
	}
}

func TestGetNotFound(t *testing.T) {
	store := New(time.Hour, 0)

	_, err := store.Get(context.Background(), "absent")
	if !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPutReplaces(t *testing.T) {
	store := New(time.Hour, 0)
	ctx := context.Background()

	store.Put(ctx, makeRecord("run-1"))

	updated := makeRecord("run-1")
	updated.SandboxID = "sbx_new"
	store.Put(ctx, updated)

	got, err := store.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.SandboxID != "sbx_new" {
		t.Errorf("SandboxID = %q, want %q", got.SandboxID, "sbx_new")
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestRemove(t *testing.T) {
	store := New(time.Hour, 0)
	ctx := context.Background()

	store.Put(ctx, makeRecord("run-1"))
	if err := store.Remove(ctx, "run-1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if _, err := store.Get(ctx, "run-1"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound after Remove, got %v", err)
	}

	// Removing an absent key is not an error.
	if err := store.Remove(ctx, "run-1"); err != nil {
		t.Errorf("Remove of absent key failed: %v", err)
	}
}

func TestTTLExpiry(t *testing.T) {
	store := New(10*time.Minute, 0)
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base }

	store.Put(ctx, makeRecord("run-1"))

	// Within the TTL the record is live and its last-used time refreshes.
	store.now = func() time.Time { return base.Add(9 * time.Minute) }
	if _, err := store.Get(ctx, "run-1"); err != nil {
		t.Fatalf("Get within TTL failed: %v", err)
	}

	// 9 more minutes is still within the refreshed window.
	store.now = func() time.Time { return base.Add(18 * time.Minute) }
	if _, err := store.Get(ctx, "run-1"); err != nil {
		t.Fatalf("Get after refresh failed: %v", err)
	}

	// Past the TTL since last use the record is gone.
	store.now = func() time.Time { return base.Add(29 * time.Minute) }
	if _, err := store.Get(ctx, "run-1"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound after TTL, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after expiry", store.Len())
	}
}

func TestLRUEviction(t *testing.T) {
	store := New(0, 3)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		store.Put(ctx, makeRecord(fmt.Sprintf("run-%d", i)))
	}

	// Touch run-1 so run-2 becomes the eviction candidate.
	if _, err := store.Get(ctx, "run-1"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	store.Put(ctx, makeRecord("run-4"))

	if _, err := store.Get(ctx, "run-2"); !errors.Is(err, session.ErrNotFound) {
		t.Error("run-2 should have been evicted")
	}
	for _, key := range []string{"run-1", "run-3", "run-4"} {
		if _, err := store.Get(ctx, key); err != nil {
			t.Errorf("%s should survive eviction: %v", key, err)
		}
	}
}
