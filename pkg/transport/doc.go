// Package transport serves the tabletalk HTTP API.
//
// The transport layer bridges external clients and the analysis engine.
// It deserializes incoming requests into the types defined in pkg/api,
// dispatches them, and serializes responses back as JSON.
//
// # Endpoints
//
//   - GET  /ping              liveness probe
//   - GET  /healthz           liveness probe (alias)
//   - POST /upload            multipart dataset upload to object storage
//   - POST /invocations       synchronous agent analysis
//   - POST /chat              relay to the remote agent runtime
//   - POST /cleanup-session   tear down a warm sandbox session
//   - GET  /metrics           Prometheus metrics (when enabled)
//
// # Handler Interfaces
//
// Three narrow interfaces define the contract between the transport
// layer and the rest of the service: Agent for running analyses,
// RuntimeInvoker for the remote runtime relay, and SessionReleaser for
// session cleanup. Tests substitute fakes for all three.
//
// # Middleware
//
// Every route passes through panic recovery, request ID assignment
// (X-Request-ID), structured logging via log/slog, permissive CORS,
// and Prometheus request metrics.
package transport
