package integration

import (
	"net/http"
	"strings"
	"testing"

	"github.com/tabletalk-dev/tabletalk/pkg/api"
)

func TestSessionReuseAndCleanup(t *testing.T) {
	url := testEnv.SeedCSV(t, "sessions/orders.csv", "id,amount\n1,10\n2,20\n3,30\n")

	req := api.InvocationRequest{
		S3URLs:           map[string]string{"orders": url},
		Prompt:           "Sum the amounts",
		RuntimeSessionID: "warm-session-1",
	}

	before := testEnv.SessionStarts.Load()

	// First request starts a sandbox session.
	resp := postJSON(t, testEnv.BaseURL()+"/invocations", req, nil)
	readBody(t, resp)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first request status = %d", resp.StatusCode)
	}
	if got := testEnv.SessionStarts.Load(); got != before+1 {
		t.Fatalf("session starts = %d, want %d", got, before+1)
	}

	// Second request with the same key reuses the warm session.
	resp = postJSON(t, testEnv.BaseURL()+"/invocations", req, nil)
	readBody(t, resp)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second request status = %d", resp.StatusCode)
	}
	if got := testEnv.SessionStarts.Load(); got != before+1 {
		t.Errorf("session starts = %d after reuse, want %d", got, before+1)
	}

	// Cleanup tears the session down.
	resp = postJSON(t, testEnv.BaseURL()+"/cleanup-session?runtime_session_id=warm-session-1", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cleanup status = %d", resp.StatusCode)
	}
	var cleanup api.CleanupResponse
	decodeBody(t, resp, &cleanup)
	resp.Body.Close()
	if !strings.Contains(cleanup.Message, "cleaned up") {
		t.Errorf("cleanup message = %q", cleanup.Message)
	}

	// Cleanup again is idempotent.
	resp = postJSON(t, testEnv.BaseURL()+"/cleanup-session?runtime_session_id=warm-session-1", nil, nil)
	decodeBody(t, resp, &cleanup)
	resp.Body.Close()
	if !strings.Contains(cleanup.Message, "No active session") {
		t.Errorf("repeat cleanup message = %q", cleanup.Message)
	}

	// A fresh request after cleanup starts a new session.
	resp = postJSON(t, testEnv.BaseURL()+"/invocations", req, nil)
	readBody(t, resp)
	resp.Body.Close()
	if got := testEnv.SessionStarts.Load(); got != before+2 {
		t.Errorf("session starts = %d after cleanup, want %d", got, before+2)
	}
}

func TestKeylessSessionIsEphemeral(t *testing.T) {
	url := testEnv.SeedCSV(t, "sessions/tmp.csv", "a\n1\n2\n3\n")

	req := api.InvocationRequest{
		S3URLs: map[string]string{"tmp": url},
		Prompt: "Describe the data",
	}

	before := testEnv.SessionStarts.Load()

	for i := 0; i < 2; i++ {
		resp := postJSON(t, testEnv.BaseURL()+"/invocations", req, nil)
		readBody(t, resp)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d status = %d", i, resp.StatusCode)
		}
	}

	// Without a session key every request starts its own session.
	if got := testEnv.SessionStarts.Load(); got != before+2 {
		t.Errorf("session starts = %d, want %d", got, before+2)
	}
}
