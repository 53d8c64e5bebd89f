package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/tabletalk-dev/tabletalk/pkg/api"
	"github.com/tabletalk-dev/tabletalk/pkg/dataset"
	"github.com/tabletalk-dev/tabletalk/pkg/observability"
	"github.com/tabletalk-dev/tabletalk/pkg/session"
)

// ManagerConfig holds sandbox session settings.
type ManagerConfig struct {
	// InterpreterID identifies the code interpreter to start sessions on.
	InterpreterID string

	// SessionTimeout is the idle timeout requested for new sessions.
	SessionTimeout time.Duration

	// SetupPackages are pip packages installed into fresh sessions
	// before the first tool call.
	SetupPackages []string
}

// Manager starts, reuses, and tears down sandbox sessions. Sessions
// bound to a runtime session key are kept warm in the session store;
// keyless sessions live for a single request.
type Manager struct {
	client API
	store  session.Store
	cfg    ManagerConfig
}

// NewManager creates a session manager.
func NewManager(client API, store session.Store, cfg ManagerConfig) *Manager {
	return &Manager{client: client, store: store, cfg: cfg}
}

// Lease is an active sandbox session held for the duration of a request.
type Lease struct {
	// SessionID is the interpreter session backing this lease.
	SessionID string

	// InterpreterID is the interpreter the session runs on.
	InterpreterID string

	// Tables lists the logical dataset names staged into the session.
	Tables []string

	// Reused reports whether the session was recovered from the store
	// rather than freshly started.
	Reused bool

	key string
	m   *Manager
}

// Ensure returns an active session for the given runtime session key,
// reusing a warm one when the store has a live record and starting a
// fresh one otherwise. Fresh sessions have the datasets staged as CSV
// files before the lease is returned. An empty key yields a session
// that lives only until Finish.
func (m *Manager) Ensure(ctx context.Context, key string, tables map[string]*dataset.Table) (*Lease, error) {
	if m.cfg.InterpreterID == "" {
		return nil, api.NewConfigurationError("sandbox.interpreter_id",
			"no code interpreter configured")
	}

	names := tableNames(tables)

	if key != "" {
		rec, err := m.store.Get(ctx, key)
		if err == nil {
			slog.Debug("reusing sandbox session",
				"session_key", key, "sandbox_id", rec.SandboxID)
			observability.SandboxSessionsTotal.WithLabelValues("reused").Inc()
			return &Lease{
				SessionID:     rec.SandboxID,
				InterpreterID: rec.InterpreterID,
				Tables:        rec.Tables,
				Reused:        true,
				key:           key,
				m:             m,
			}, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return nil, fmt.Errorf("looking up session %q: %w", key, err)
		}
	}

	sessionID, err := m.client.StartSession(ctx, m.cfg.InterpreterID, m.cfg.SessionTimeout)
	if err != nil {
		return nil, &StartError{Err: err}
	}

	slog.Info("started sandbox session",
		"session_key", key, "sandbox_id", sessionID, "tables", names)
	observability.SandboxSessionsTotal.WithLabelValues("started").Inc()

	if err := m.setup(ctx, sessionID, tables); err != nil {
		// A half-prepared session is useless; tear it down before
		// reporting the failure.
		if stopErr := m.client.StopSession(ctx, m.cfg.InterpreterID, sessionID); stopErr != nil {
			slog.Warn("stopping failed session", "sandbox_id", sessionID, "error", stopErr)
		}
		return nil, &StartError{Err: err}
	}

	if key != "" {
		now := time.Now()
		rec := &session.Record{
			Key:           key,
			SandboxID:     sessionID,
			InterpreterID: m.cfg.InterpreterID,
			Tables:        names,
			CreatedAt:     now,
			LastUsedAt:    now,
		}
		if err := m.store.Put(ctx, rec); err != nil {
			return nil, fmt.Errorf("recording session %q: %w", key, err)
		}
	}

	return &Lease{
		SessionID:     sessionID,
		InterpreterID: m.cfg.InterpreterID,
		Tables:        names,
		key:           key,
		m:             m,
	}, nil
}

// Release tears down the session bound to key, if any. Unknown keys are
// a no-op so cleanup stays idempotent.
func (m *Manager) Release(ctx context.Context, key string) (bool, error) {
	rec, err := m.store.Get(ctx, key)
	if errors.Is(err, session.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up session %q: %w", key, err)
	}

	if err := m.store.Remove(ctx, key); err != nil {
		return false, fmt.Errorf("removing session %q: %w", key, err)
	}
	if err := m.client.StopSession(ctx, rec.InterpreterID, rec.SandboxID); err != nil {
		return false, fmt.Errorf("stopping session %q: %w", key, err)
	}

	slog.Info("released sandbox session", "session_key", key, "sandbox_id", rec.SandboxID)
	observability.SandboxSessionsTotal.WithLabelValues("stopped").Inc()
	return true, nil
}

// Finish ends the request's hold on the lease. Keyless sessions are
// always stopped. Keyed sessions stay warm for reuse unless the request
// failed, in which case the session state is suspect and the session is
// discarded.
func (l *Lease) Finish(ctx context.Context, failed bool) {
	if l.key == "" {
		l.stop(ctx)
		return
	}
	if failed {
		if err := l.m.store.Remove(ctx, l.key); err != nil {
			slog.Warn("removing session record", "session_key", l.key, "error", err)
		}
		l.stop(ctx)
	}
}

func (l *Lease) stop(ctx context.Context) {
	if err := l.m.client.StopSession(ctx, l.m.cfg.InterpreterID, l.SessionID); err != nil {
		slog.Warn("stopping sandbox session", "sandbox_id", l.SessionID, "error", err)
		return
	}
	observability.SandboxSessionsTotal.WithLabelValues("stopped").Inc()
}

// setup stages the datasets as CSV files, installs any configured
// packages, and verifies the workspace listing.
func (m *Manager) setup(ctx context.Context, sessionID string, tables map[string]*dataset.Table) error {
	if len(tables) > 0 {
		var files []map[string]any
		for _, name := range tableNames(tables) {
			text, err := tables[name].CSV()
			if err != nil {
				return fmt.Errorf("rendering table %q: %w", name, err)
			}
			files = append(files, map[string]any{
				"path": name + ".csv",
				"text": text,
			})
		}

		res, err := m.client.Invoke(ctx, m.cfg.InterpreterID, sessionID, OpWriteFiles,
			map[string]any{"content": files})
		if err != nil {
			return fmt.Errorf("writing dataset files: %w", err)
		}
		if res.IsError {
			return fmt.Errorf("writing dataset files: %s", res.Text())
		}
	}

	if len(m.cfg.SetupPackages) > 0 {
		res, err := m.client.Invoke(ctx, m.cfg.InterpreterID, sessionID, OpExecuteCommand,
			map[string]any{"command": "pip install --quiet " + strings.Join(m.cfg.SetupPackages, " ")})
		if err != nil {
			return fmt.Errorf("installing packages: %w", err)
		}
		if res.IsError {
			return fmt.Errorf("installing packages: %s", res.Text())
		}
	}

	res, err := m.client.Invoke(ctx, m.cfg.InterpreterID, sessionID, OpListFiles,
		map[string]any{"path": ""})
	if err != nil {
		return fmt.Errorf("listing workspace: %w", err)
	}
	if res.IsError {
		return fmt.Errorf("listing workspace: %s", res.Text())
	}

	return nil
}

func tableNames(tables map[string]*dataset.Table) []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
