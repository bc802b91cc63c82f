package httpsse

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"qdrantloader/internal/rpc"
)

func newTestServer(d *rpc.Dispatcher) (*Server, *httptest.Server) {
	s := New(Config{Host: "127.0.0.1", Port: 0}, d)
	ts := httptest.NewServer(s.httpServer.Handler)
	return s, ts
}

func TestHandleHealthReturnsOK(t *testing.T) {
	_, ts := newTestServer(rpc.NewDispatcher())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestHandlePostDispatchesAndEchoesSessionID(t *testing.T) {
	d := rpc.NewDispatcher()
	d.Register("ping", func(ctx context.Context, params json.RawMessage) (any, error) {
		return "pong", nil
	})
	_, ts := newTestServer(d)
	defer ts.Close()

	body := []byte(`{"jsonrpc":"2.0","method":"ping","id":1}`)
	resp, err := http.Post(ts.URL+"/mcp", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get(SessionHeader) == "" {
		t.Fatal("expected a generated mcp-session-id header")
	}
}

func TestHandlePostNotificationReturnsAccepted(t *testing.T) {
	d := rpc.NewDispatcher()
	d.Register("notify_me", func(ctx context.Context, params json.RawMessage) (any, error) { return nil, nil })
	_, ts := newTestServer(d)
	defer ts.Close()

	body := []byte(`{"jsonrpc":"2.0","method":"notify_me"}`)
	resp, err := http.Post(ts.URL+"/mcp", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202 for a notification, got %d", resp.StatusCode)
	}
}

func TestIsAllowedOriginWhitelist(t *testing.T) {
	cases := map[string]bool{
		"":                         true,
		"http://localhost":         true,
		"http://localhost:5173":    true,
		"https://127.0.0.1:8443":   true,
		"http://127.0.0.1":         true,
		"https://evil.example.com": false,
		"http://localhost.evil.com": false,
	}
	for origin, want := range cases {
		if got := isAllowedOrigin(origin); got != want {
			t.Errorf("isAllowedOrigin(%q) = %v, want %v", origin, got, want)
		}
	}
}

func TestSessionStoreReapExpiresOnlyStaleEntries(t *testing.T) {
	s := newSessionStore(10 * time.Millisecond)
	s.touch("fresh")
	s.touch("stale")
	s.mu.Lock()
	s.lastSeen["stale"] = time.Now().Add(-time.Hour)
	s.mu.Unlock()

	s.reapExpired()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lastSeen["stale"]; ok {
		t.Fatal("expected stale session to be reaped")
	}
	if _, ok := s.lastSeen["fresh"]; !ok {
		t.Fatal("expected fresh session to survive the reap")
	}
}
