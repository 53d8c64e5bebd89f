package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tabletalk-dev/tabletalk/pkg/api"
	"github.com/tabletalk-dev/tabletalk/pkg/debug"
	"github.com/tabletalk-dev/tabletalk/pkg/provider"
)

// Client performs HTTP requests against an OpenAI-compatible Chat
// Completions backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

var _ provider.Provider = (*Client)(nil)

// New creates a Client for an OpenAI-compatible backend.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(baseURL, "/")

	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return "openai"
}

// Complete performs non-streaming inference against the Chat Completions
// endpoint.
func (c *Client) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	chatReq := translateRequest(req)

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, api.NewUpstreamError(fmt.Sprintf("marshaling request: %s", err))
	}

	debug.Log("providers", "chat completion request",
		"model", req.Model, "messages", len(req.Messages))
	debug.Raw("providers", string(body))

	url := c.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewUpstreamError(fmt.Sprintf("creating request: %s", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, api.NewUpstreamError(fmt.Sprintf("backend request failed: %s", err))
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, mapHTTPError(httpResp)
	}

	var chatResp ChatCompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return nil, api.NewUpstreamError(fmt.Sprintf("parsing backend response: %s", err))
	}

	return translateResponse(&chatResp), nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// mapHTTPError converts a backend error response to an APIError,
// extracting the backend's message when it speaks the standard error
// format.
func mapHTTPError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var errResp ChatErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return api.NewUpstreamError(fmt.Sprintf("backend error (HTTP %d): %s",
			resp.StatusCode, errResp.Error.Message))
	}

	return api.NewUpstreamError(fmt.Sprintf("backend returned HTTP %d: %s",
		resp.StatusCode, strings.TrimSpace(string(body))))
}
