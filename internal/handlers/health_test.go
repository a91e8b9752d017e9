package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthHandlerHandle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.serve(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected json content type got %s", got)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["status"] != "ok" || payload["version"] != "test" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if env.profiles.Calls() != 0 {
		t.Fatal("health checks must not contact the auth service")
	}

	rec = env.serve(httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected method not allowed got %d", rec.Code)
	}
}
