package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRunRequiresCommand(t *testing.T) {
	if err := Run(context.Background(), nil); err == nil {
		t.Fatal("expected error without command")
	}
	if err := Run(context.Background(), []string{"migrate"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
	if err := Run(context.Background(), []string{"check"}); err == nil {
		t.Fatal("expected usage error without session id")
	}
}

func TestCheckCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("sessionid")
		if err != nil || c.Value != "good" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"detail":"Authentication credentials were not provided."}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":{"username":"anna","email":"anna@example.edu"}}`))
	}))
	defer srv.Close()

	t.Setenv("COLLEGEPORTAL_AUTH_BASE_URL", srv.URL)
	t.Setenv("COLLEGEPORTAL_LOG_LEVEL", "error")

	var out bytes.Buffer
	prev := stdout
	stdout = &out
	t.Cleanup(func() { stdout = prev })

	if err := Run(context.Background(), []string{"check", "good"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var result struct {
		State   string `json:"state"`
		Profile struct {
			Username string `json:"username"`
		} `json:"profile"`
		ProfileURL string `json:"profileUrl"`
	}
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if result.State != "authenticated" || result.Profile.Username != "anna" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.ProfileURL != srv.URL+"/api/v2/profile/profile/" {
		t.Fatalf("unexpected profile url %q", result.ProfileURL)
	}

	out.Reset()
	err := Run(context.Background(), []string{"check", "stale"})
	if !errors.Is(err, ErrSessionRejected) {
		t.Fatalf("expected rejected session got %v", err)
	}
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if result.State != "unauthenticated" {
		t.Fatalf("unexpected state %q", result.State)
	}
}
