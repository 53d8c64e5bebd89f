package integration

import (
	"net/http"
	"testing"

	"github.com/tabletalk-dev/tabletalk/pkg/api"
)

func TestPingEndpoint(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/ping")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var ping api.PingResponse
	decodeBody(t, resp, &ping)
	if ping.Status != "Healthy" {
		t.Errorf("status = %q, want Healthy", ping.Status)
	}
	if ping.TimeOfLastUpdate == 0 {
		t.Error("time_of_last_update not set")
	}
}

func TestHealthzAlias(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/healthz")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestRequestIDAssigned(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/ping")
	defer resp.Body.Close()

	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("response missing X-Request-ID header")
	}
}
