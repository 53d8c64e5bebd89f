package session

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for session stores.
var (
	// ErrNotFound is returned when no live record exists for a key.
	ErrNotFound = errors.New("session not found")
)

// Record describes a sandbox session bound to a runtime session key.
type Record struct {
	// Key is the caller-supplied runtime session identifier.
	Key string `json:"key"`

	// SandboxID is the code-interpreter session backing this record.
	SandboxID string `json:"sandbox_id"`

	// InterpreterID is the interpreter the sandbox session was started on.
	InterpreterID string `json:"interpreter_id"`

	// Tables lists the logical dataset names staged into the sandbox.
	Tables []string `json:"tables"`

	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// Store persists session records. Get refreshes the record's last-used
// time; expired records are treated as absent.
type Store interface {
	// Get returns the live record for key, or ErrNotFound.
	Get(ctx context.Context, key string) (*Record, error)

	// Put inserts or replaces the record for rec.Key.
	Put(ctx context.Context, rec *Record) error

	// Remove deletes the record for key. Removing an absent key is not
	// an error.
	Remove(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}
