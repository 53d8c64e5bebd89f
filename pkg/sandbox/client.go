package sandbox

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tabletalk-dev/tabletalk/pkg/debug"
)

// API is the interpreter surface the Manager and tool adapter use.
// Client is the HTTP implementation; tests substitute fakes.
type API interface {
	// StartSession creates a new interpreter session and returns its ID.
	StartSession(ctx context.Context, interpreterID string, timeout time.Duration) (string, error)

	// Invoke runs a named interpreter operation inside a session.
	Invoke(ctx context.Context, interpreterID, sessionID, name string, arguments map[string]any) (*InvokeResult, error)

	// StopSession terminates a session. Stopping an already-gone session
	// is not an error.
	StopSession(ctx context.Context, interpreterID, sessionID string) error
}

// Interpreter operation names.
const (
	OpExecuteCode    = "executeCode"
	OpExecuteCommand = "executeCommand"
	OpWriteFiles     = "writeFiles"
	OpListFiles      = "listFiles"
)

// ContentBlock is one piece of interpreter output.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// InvokeResult is the merged outcome of an interpreter operation. The
// service streams one event per output chunk; all events are consumed
// and folded into a single result.
type InvokeResult struct {
	Content           []ContentBlock `json:"content"`
	IsError           bool           `json:"isError"`
	StructuredContent map[string]any `json:"structuredContent,omitempty"`
}

// Text joins the textual content blocks of the result.
func (r *InvokeResult) Text() string {
	var parts []string
	for _, b := range r.Content {
		if b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// JSON renders the result as a JSON document for use as a tool
// observation.
func (r *InvokeResult) JSON() string {
	data, err := json.Marshal(r)
	if err != nil {
		return r.Text()
	}
	return string(data)
}

// Client calls the sandbox service's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ API = (*Client)(nil)

// NewClient creates a sandbox HTTP client. The timeout bounds whole
// requests including streamed invoke responses; code execution inside
// the sandbox can be slow, so callers should pass a generous value.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// StartSession creates a new interpreter session.
func (c *Client) StartSession(ctx context.Context, interpreterID string, timeout time.Duration) (string, error) {
	body, err := json.Marshal(map[string]any{
		"session_timeout_seconds": int(timeout.Seconds()),
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/interpreters/%s/sessions", c.baseURL, url.PathEscape(interpreterID))
	respBody, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}

	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if resp.SessionID == "" {
		return "", fmt.Errorf("sandbox returned no session id")
	}
	return resp.SessionID, nil
}

// Invoke runs a named operation inside a session. The service responds
// with newline-delimited JSON events; every event is consumed so that
// large outputs are not truncated to the first chunk.
func (c *Client) Invoke(ctx context.Context, interpreterID, sessionID, name string, arguments map[string]any) (*InvokeResult, error) {
	body, err := json.Marshal(map[string]any{
		"name":      name,
		"arguments": arguments,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	debug.Log("sandbox", "invoke", "operation", name, "session", sessionID)
	debug.Raw("sandbox", string(body))

	endpoint := fmt.Sprintf("%s/interpreters/%s/sessions/%s/invoke",
		c.baseURL, url.PathEscape(interpreterID), url.PathEscape(sessionID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sandbox request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sandbox returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return readEvents(resp.Body)
}

// StopSession terminates a session. A 404 means the session is already
// gone, which counts as success.
func (c *Client) StopSession(ctx context.Context, interpreterID, sessionID string) error {
	endpoint := fmt.Sprintf("%s/interpreters/%s/sessions/%s",
		c.baseURL, url.PathEscape(interpreterID), url.PathEscape(sessionID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sandbox request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent &&
		resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("sandbox returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// do issues a JSON request and returns the response body for 200 OK.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sandbox request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("sandbox returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// event is one line of the invoke response stream.
type event struct {
	Result *InvokeResult `json:"result"`
}

// readEvents folds an NDJSON event stream into a single InvokeResult.
func readEvents(r io.Reader) (*InvokeResult, error) {
	merged := &InvokeResult{}
	sawEvent := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var ev event
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		if ev.Result == nil {
			continue
		}

		sawEvent = true
		merged.Content = append(merged.Content, ev.Result.Content...)
		if ev.Result.IsError {
			merged.IsError = true
		}
		if ev.Result.StructuredContent != nil {
			if merged.StructuredContent == nil {
				merged.StructuredContent = make(map[string]any)
			}
			for k, v := range ev.Result.StructuredContent {
				merged.StructuredContent[k] = v
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event stream: %w", err)
	}
	if !sawEvent {
		return nil, fmt.Errorf("sandbox returned no events")
	}

	return merged, nil
}
