// Command mock-sandbox runs a deterministic code-interpreter service
// for local development and end-to-end testing. It speaks the same
// wire protocol as the real sandbox service but executes nothing:
// every operation returns a predictable canned result.
//
// Configuration:
//
//	MOCK_SANDBOX_PORT - Listen port (default: 9191)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_SANDBOX_PORT")
	if port == "" {
		port = "9191"
	}

	s := newSandbox()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /interpreters/{id}/sessions", s.handleStartSession)
	mux.HandleFunc("POST /interpreters/{id}/sessions/{sid}/invoke", s.handleInvoke)
	mux.HandleFunc("DELETE /interpreters/{id}/sessions/{sid}", s.handleStopSession)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock sandbox starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock sandbox failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock sandbox shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// sandbox holds per-session in-memory workspaces.
type sandbox struct {
	mu       sync.Mutex
	nextID   int
	sessions map[string]map[string]string // session -> path -> content
}

func newSandbox() *sandbox {
	return &sandbox{sessions: make(map[string]map[string]string)}
}

func (s *sandbox) handleStartSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.nextID++
	id := fmt.Sprintf("mock-session-%d", s.nextID)
	s.sessions[id] = make(map[string]string)
	s.mu.Unlock()

	slog.Info("session started", "interpreter", r.PathValue("id"), "session", id)
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id})
}

func (s *sandbox) handleStopSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("sid")

	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	slog.Info("session stopped", "session", id)
	w.WriteHeader(http.StatusNoContent)
}

type invokeRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *sandbox) handleInvoke(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("sid")

	s.mu.Lock()
	files, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var text string
	isError := false

	switch req.Name {
	case "executeCode":
		var args struct {
			Code string `json:"code"`
		}
		json.Unmarshal(req.Arguments, &args)
		text = executeCode(args.Code)
		slog.Info("code executed", "session", id, "bytes", len(args.Code))

	case "executeCommand":
		var args struct {
			Command string `json:"command"`
		}
		json.Unmarshal(req.Arguments, &args)
		text = "$ " + args.Command + "\n"

	case "writeFiles":
		var args struct {
			Content []struct {
				Path string `json:"path"`
				Text string `json:"text"`
			} `json:"content"`
		}
		json.Unmarshal(req.Arguments, &args)
		s.mu.Lock()
		for _, f := range args.Content {
			files[f.Path] = f.Text
		}
		s.mu.Unlock()
		text = fmt.Sprintf("wrote %d files", len(args.Content))

	case "listFiles":
		s.mu.Lock()
		paths := make([]string, 0, len(files))
		for p := range files {
			paths = append(paths, p)
		}
		s.mu.Unlock()
		sort.Strings(paths)
		text = strings.Join(paths, "\n")

	default:
		text = "unknown operation: " + req.Name
		isError = true
	}

	// One event per invocation, NDJSON framed like the real service.
	event := map[string]any{
		"result": map[string]any{
			"content": []map[string]any{{"type": "text", "text": text}},
			"isError": isError,
		},
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	json.NewEncoder(w).Encode(event)
}

// executeCode fabricates plausible interpreter output without running
// anything. Print statements echo their arguments; everything else
// acknowledges execution.
func executeCode(code string) string {
	var out []string
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if inner, ok := strings.CutPrefix(line, "print("); ok {
			out = append(out, strings.Trim(strings.TrimSuffix(inner, ")"), `"'`))
		}
	}
	if len(out) == 0 {
		return "(executed)"
	}
	return strings.Join(out, "\n")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
