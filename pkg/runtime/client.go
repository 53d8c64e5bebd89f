// Package runtime invokes a hosted agent runtime on behalf of /chat
// callers, forwarding session affinity and trace headers.
package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tabletalk-dev/tabletalk/pkg/api"
)

// SessionHeader carries the runtime session key to the remote agent.
const SessionHeader = "X-Runtime-Session-Id"

// forwardedHeaders are propagated from the incoming request so traces
// span both services.
var forwardedHeaders = []string{
	"x-amzn-trace-id",
	"traceparent",
	"tracestate",
	"baggage",
	"x-runtime-session-id",
	"mcp-session-id",
}

// Config holds the remote runtime settings.
type Config struct {
	// BaseURL is the runtime service endpoint.
	BaseURL string

	// Identifier is the agent runtime to invoke.
	Identifier string

	// Qualifier selects the runtime version (default: "DEFAULT").
	Qualifier string
}

// Client invokes a remote agent runtime over HTTP.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

// New creates a runtime client.
func New(cfg Config, timeout time.Duration) *Client {
	if cfg.Qualifier == "" {
		cfg.Qualifier = "DEFAULT"
	}
	if timeout == 0 {
		timeout = 15 * time.Minute
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        Config{
			BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
			Identifier: cfg.Identifier,
			Qualifier:  cfg.Qualifier,
		},
	}
}

// Result is the remote agent's reply in a normalized shape. Fields the
// runtime did not report are left zero.
type Result struct {
	Output            any      `json:"output"`
	IntermediateSteps any      `json:"intermediate_steps,omitempty"`
	DataframesLoaded  []string `json:"dataframes_loaded,omitempty"`
	Charts            []string `json:"charts,omitempty"`
}

// Invoke forwards the payload to the configured agent runtime. The
// sessionKey binds the call to the runtime's conversation state;
// headers from the incoming request listed in forwardedHeaders are
// passed through.
func (c *Client) Invoke(ctx context.Context, sessionKey string, payload any, incoming http.Header) (*Result, error) {
	if c.cfg.Identifier == "" {
		return nil, api.NewConfigurationError("runtime.identifier",
			"no agent runtime configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/runtimes/%s/invocations?qualifier=%s",
		c.cfg.BaseURL,
		url.PathEscape(c.cfg.Identifier),
		url.QueryEscape(c.cfg.Qualifier))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(SessionHeader, sessionKey)

	for _, name := range forwardedHeaders {
		if v := incoming.Get(name); v != "" {
			httpReq.Header.Set(name, v)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, api.NewUpstreamError(fmt.Sprintf("runtime request failed: %s", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, api.NewUpstreamError(fmt.Sprintf("reading runtime response: %s", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, api.NewUpstreamError(fmt.Sprintf("runtime returned HTTP %d: %s",
			resp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	return parseResult(respBody), nil
}

// parseResult normalizes the runtime's reply. Different runtime
// frameworks name their fields differently; unrecognized bodies fall
// back to a message wrapper so the caller always gets something usable.
func parseResult(body []byte) *Result {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return &Result{Output: map[string]any{"message": string(body)}}
	}

	res := &Result{}

	if v, ok := firstField(raw, "output", "completion", "result"); ok {
		json.Unmarshal(v, &res.Output)
	}
	if v, ok := firstField(raw, "intermediate_steps", "intermediateSteps"); ok {
		json.Unmarshal(v, &res.IntermediateSteps)
	}
	if v, ok := firstField(raw, "dataframes_loaded", "dataframesLoaded"); ok {
		json.Unmarshal(v, &res.DataframesLoaded)
	}
	if v, ok := raw["charts"]; ok {
		json.Unmarshal(v, &res.Charts)
	}

	if res.Output == nil {
		res.Output = map[string]any{"message": string(body)}
	}

	return res
}

func firstField(raw map[string]json.RawMessage, names ...string) (json.RawMessage, bool) {
	for _, name := range names {
		if v, ok := raw[name]; ok {
			return v, true
		}
	}
	return nil, false
}
