package transport

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tabletalk-dev/tabletalk/pkg/api"
	"github.com/tabletalk-dev/tabletalk/pkg/engine"
	"github.com/tabletalk-dev/tabletalk/pkg/objectstore"
	"github.com/tabletalk-dev/tabletalk/pkg/runtime"
)

// Agent runs a data analysis and discovers its chart artifacts.
type Agent interface {
	Run(ctx context.Context, prompt, sessionKey string, refs map[string]string) (*engine.Result, error)
	DiscoverCharts(ctx context.Context, key string) ([]string, error)
}

// RuntimeInvoker relays a request to the remote agent runtime.
type RuntimeInvoker interface {
	Invoke(ctx context.Context, sessionKey string, payload any, incoming http.Header) (*runtime.Result, error)
}

// SessionReleaser tears down a warm sandbox session by its key.
type SessionReleaser interface {
	Release(ctx context.Context, key string) (bool, error)
}

// traceHeaders are echoed back in the trace block of responses so
// callers can correlate requests across services.
var traceHeaders = []string{
	"x-amzn-trace-id",
	"traceparent",
	"tracestate",
	"baggage",
	"x-runtime-session-id",
	"mcp-session-id",
}

// Handler holds the route handlers and their dependencies.
type Handler struct {
	agent    Agent
	runtime  RuntimeInvoker
	sessions SessionReleaser
	store    objectstore.Store
	bucket   string
	logger   *slog.Logger

	now func() time.Time
}

// NewHandler creates the route handler set. The runtime invoker may be
// nil when no remote runtime is configured; /chat then reports a
// configuration error.
func NewHandler(agent Agent, invoker RuntimeInvoker, sessions SessionReleaser, store objectstore.Store, bucket string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		agent:    agent,
		runtime:  invoker,
		sessions: sessions,
		store:    store,
		bucket:   bucket,
		logger:   logger,
		now:      time.Now,
	}
}

// Routes registers the API routes on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", h.handlePing)
	mux.HandleFunc("GET /healthz", h.handlePing)
	mux.HandleFunc("POST /upload", h.handleUpload)
	mux.HandleFunc("POST /invocations", h.handleInvocations)
	mux.HandleFunc("POST /chat", h.handleChat)
	mux.HandleFunc("POST /cleanup-session", h.handleCleanupSession)
	return mux
}

// handlePing reports service liveness.
func (h *Handler) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.PingResponse{
		Status:           "Healthy",
		TimeOfLastUpdate: h.now().Unix(),
	})
}

// handleUpload stores the uploaded files in the dataset bucket under
// collision-free keys and returns their s3:// references.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, api.NewValidationError("files", "malformed multipart request: "+err.Error()))
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, api.NewValidationError("files", "no files provided"))
		return
	}

	urls := make(map[string]string, len(files))
	for i, fh := range files {
		ext := filepath.Ext(fh.Filename)
		base := sanitizeName(strings.TrimSuffix(filepath.Base(fh.Filename), ext))
		if base == "" {
			base = "file_" + strconv.Itoa(i)
		}

		u := uuid.New()
		key := base + "_" + hex.EncodeToString(u[:]) + ext

		f, err := fh.Open()
		if err != nil {
			writeError(w, api.NewUpstreamError("reading upload "+fh.Filename+": "+err.Error()))
			return
		}
		err = h.store.Put(r.Context(), h.bucket, key, f)
		f.Close()
		if err != nil {
			writeError(w, api.NewUpstreamError("storing upload "+fh.Filename+": "+err.Error()))
			return
		}

		urls[base] = objectstore.URL(h.bucket, key)
		h.logger.Info("uploaded dataset",
			slog.String("filename", fh.Filename),
			slog.String("key", key),
			slog.Int64("size", fh.Size))
	}

	writeJSON(w, http.StatusOK, api.UploadResponse{S3URLs: urls})
}

// handleInvocations runs a synchronous agent analysis.
func (h *Handler) handleInvocations(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeInvocation(w, r)
	if !ok {
		return
	}

	sessionKey := req.RuntimeSessionID
	if sessionKey == "" {
		sessionKey = r.Header.Get(runtime.SessionHeader)
	}

	res, err := h.agent.Run(r.Context(), req.Prompt, sessionKey, req.S3URLs)
	if err != nil {
		h.logger.Error("analysis failed",
			slog.String("session_key", sessionKey),
			slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	steps := res.Steps
	if steps == nil {
		steps = []api.Step{}
	}

	writeJSON(w, http.StatusOK, api.InvocationResponse{
		Output:            res.Output,
		IntermediateSteps: steps,
		DataframesLoaded:  res.DataframesLoaded,
		Trace:             h.buildTrace(r, req, sessionKey),
	})
}

// handleChat relays the request to the remote agent runtime and
// augments the reply with locally discovered charts.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	if h.runtime == nil {
		writeError(w, api.NewConfigurationError("runtime.endpoint",
			"no agent runtime configured"))
		return
	}

	req, ok := h.decodeInvocation(w, r)
	if !ok {
		return
	}

	sessionKey := r.Header.Get(runtime.SessionHeader)
	if sessionKey == "" {
		sessionKey = req.RuntimeSessionID
	}
	if sessionKey == "" {
		u := uuid.New()
		sessionKey = hex.EncodeToString(u[:])
	}

	res, err := h.runtime.Invoke(r.Context(), sessionKey, req, r.Header)
	if err != nil {
		h.logger.Error("runtime relay failed",
			slog.String("session_key", sessionKey),
			slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	charts := res.Charts
	if len(charts) == 0 {
		discovered, err := h.agent.DiscoverCharts(r.Context(), sessionKey)
		if err != nil {
			h.logger.Warn("chart discovery failed",
				slog.String("session_key", sessionKey),
				slog.String("error", err.Error()))
		} else {
			charts = discovered
		}
	}
	if charts == nil {
		charts = []string{}
	}

	loaded := res.DataframesLoaded
	if loaded == nil {
		loaded = []string{}
	}

	writeJSON(w, http.StatusOK, api.ChatResponse{
		Output:            res.Output,
		IntermediateSteps: res.IntermediateSteps,
		DataframesLoaded:  loaded,
		Charts:            charts,
		Trace:             h.buildTrace(r, req, sessionKey),
	})
}

// handleCleanupSession tears down the sandbox session for a runtime
// session key. Unknown keys still return 200 so cleanup can be retried
// safely.
func (h *Handler) handleCleanupSession(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("runtime_session_id")
	if key == "" {
		writeError(w, api.NewValidationError("runtime_session_id",
			"no runtime_session_id provided"))
		return
	}

	found, err := h.sessions.Release(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}

	msg := "No active session found for " + key
	if found {
		msg = "Session " + key + " cleaned up"
	}
	writeJSON(w, http.StatusOK, api.CleanupResponse{Message: msg})
}

// decodeInvocation parses and validates the shared /invocations and
// /chat request body, writing the error response itself on failure.
func (h *Handler) decodeInvocation(w http.ResponseWriter, r *http.Request) (*api.InvocationRequest, bool) {
	var req api.InvocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, api.NewValidationError("body", "malformed JSON body: "+err.Error()))
		return nil, false
	}
	if err := api.ValidateInvocation(&req); err != nil {
		writeError(w, err)
		return nil, false
	}
	return &req, true
}

// buildTrace assembles the trace block echoed in responses from the
// request headers and body-level trace fields.
func (h *Handler) buildTrace(r *http.Request, req *api.InvocationRequest, sessionKey string) api.Trace {
	headers := map[string]string{}
	for _, name := range traceHeaders {
		if v := r.Header.Get(name); v != "" {
			headers[name] = v
		}
	}

	payload := map[string]string{}
	for name, v := range map[string]string{
		"traceId":     req.TraceID,
		"baggage":     req.Baggage,
		"tracestate":  req.Tracestate,
		"traceparent": req.Traceparent,
	} {
		if v != "" {
			payload[name] = v
		}
	}

	return api.Trace{
		Headers:          headers,
		Payload:          payload,
		RuntimeSessionID: sessionKey,
	}
}

// sanitizeName reduces a filename base to a safe object key component.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

