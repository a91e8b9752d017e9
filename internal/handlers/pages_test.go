package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/collegeportal/web/internal/apiclient"
	"github.com/collegeportal/web/internal/models"
)

func TestCollegesList(t *testing.T) {
	env := newTestEnv(t)
	env.colleges.colleges = []models.Institution{
		{ID: 1, Name: "Volkhov College", Address: "1 Main St"},
		{ID: 2, Name: "North Campus"},
	}

	for _, path := range []string{"/colleges", "/api/v1/collegelist"} {
		rec := env.serve(httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, rec.Code)
		}
		body := rec.Body.String()
		for _, want := range []string{"Colleges found: 2", "Volkhov College", "1 Main St", "North Campus"} {
			if !strings.Contains(body, want) {
				t.Fatalf("%s: expected body to contain %q", path, want)
			}
		}
	}
}

func TestCollegesEmpty(t *testing.T) {
	env := newTestEnv(t)

	rec := env.serve(httptest.NewRequest(http.MethodGet, "/colleges", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No colleges found") {
		t.Fatal("expected empty state")
	}
}

func TestCollegesFailureOffersRetry(t *testing.T) {
	cases := map[string]error{
		"status":    &apiclient.StatusError{Op: "colleges", Status: http.StatusInternalServerError},
		"transport": &apiclient.TransportError{Op: "colleges", Err: errors.New("connection refused")},
		"malformed": apiclient.ErrMalformedResponse,
	}

	for name, err := range cases {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			env.colleges.err = err

			rec := env.serve(httptest.NewRequest(http.MethodGet, "/colleges", nil))
			if rec.Code != http.StatusBadGateway {
				t.Fatalf("expected 502 got %d", rec.Code)
			}
			body := rec.Body.String()
			if !strings.Contains(body, "Could not load the data") || !strings.Contains(body, "Try again") {
				t.Fatal("expected error state with retry link")
			}
		})
	}
}

func TestHomeShowsNavigationForState(t *testing.T) {
	env := newTestEnv(t)

	rec := env.serve(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `href="/login"`) || strings.Contains(body, `action="/logout"`) {
		t.Fatal("expected anonymous navigation")
	}

	rec = env.serve(withSession(httptest.NewRequest(http.MethodGet, "/", nil), "sess-1"))
	body = rec.Body.String()
	if !strings.Contains(body, `action="/logout"`) || !strings.Contains(body, "anna") {
		t.Fatal("expected signed-in navigation")
	}
}

func TestPagesSetNoStore(t *testing.T) {
	env := newTestEnv(t)

	rec := env.serve(withSession(httptest.NewRequest(http.MethodGet, "/profile", nil), "sess-1"))
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("expected no-store got %q", got)
	}
}
