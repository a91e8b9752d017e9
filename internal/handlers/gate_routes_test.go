package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/collegeportal/web/internal/apiclient"
	"github.com/collegeportal/web/internal/auth"
	"github.com/collegeportal/web/internal/models"
	"github.com/collegeportal/web/internal/session"
)

func TestProfileRendersForAcceptedSession(t *testing.T) {
	env := newTestEnv(t)
	env.videos.videos = []models.Video{
		{ID: 1, Title: "Intro", FileReference: "/media/video/intro.mp4"},
		{ID: 2, Title: "Tour", FileReference: "video/tour.mp4"},
	}

	rec := env.serve(withSession(httptest.NewRequest(http.MethodGet, "/profile?video=2", nil), "sess-1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"anna", "anna@example.edu", `src="http://content.test/media/video/tour.mp4"`, `href="/profile?video=1"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %q", want)
		}
	}
}

func TestProfileRedirectsWhenSessionRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := env.serve(withSession(httptest.NewRequest(http.MethodGet, "/profile", nil), "expired"))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/login?from=%2Fprofile" {
		t.Fatalf("unexpected redirect %q", got)
	}
}

func TestProtectedRoutesTreatEveryFailureAsUnauthenticated(t *testing.T) {
	cases := map[string]error{
		"server error": &apiclient.StatusError{Op: "profile", Status: http.StatusInternalServerError},
		"transport":    &apiclient.TransportError{Op: "profile", Err: errors.New("connection refused")},
		"malformed":    apiclient.ErrMalformedResponse,
	}

	for name, err := range cases {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			env.profiles.err = err

			rec := env.serve(withSession(httptest.NewRequest(http.MethodGet, "/videos/upload", nil), "sess-1"))
			if rec.Code != http.StatusSeeOther {
				t.Fatalf("expected 303 got %d", rec.Code)
			}
			if got := rec.Header().Get("Location"); got != "/login?from=%2Fvideos%2Fupload" {
				t.Fatalf("unexpected redirect %q", got)
			}
		})
	}
}

func TestEachNavigationRunsOneCheck(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/profile", "/videos/upload"} {
		rec := env.serve(withSession(httptest.NewRequest(http.MethodGet, path, nil), "sess-1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, rec.Code)
		}
	}
	if got := env.profiles.Calls(); got != 2 {
		t.Fatalf("expected exactly two checks got %d", got)
	}

	env.serve(httptest.NewRequest(http.MethodGet, "/colleges", nil))
	if got := env.profiles.Calls(); got != 3 {
		t.Fatalf("expected public navigation to check too got %d", got)
	}

	env.serve(httptest.NewRequest(http.MethodGet, "/auth/state", nil))
	if got := env.profiles.Calls(); got != 3 {
		t.Fatalf("state polling must not run a check got %d", got)
	}
}

func TestLayoutReflectsCheckOnPublicPages(t *testing.T) {
	env := newTestEnv(t)

	rec := env.serve(withSession(httptest.NewRequest(http.MethodGet, "/", nil), "sess-1"))
	if !strings.Contains(rec.Body.String(), `data-auth="authenticated"`) {
		t.Fatal("expected authenticated layout")
	}

	rec = env.serve(withSession(httptest.NewRequest(http.MethodGet, "/", nil), "expired"))
	if rec.Code != http.StatusOK {
		t.Fatalf("public pages never redirect, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `data-auth="unauthenticated"`) {
		t.Fatal("expected unauthenticated layout")
	}
}

func TestAuthStateReportsLastCheck(t *testing.T) {
	env := newTestEnv(t)

	env.serve(withSession(httptest.NewRequest(http.MethodGet, "/profile", nil), "sess-1"))

	rec := env.serve(withSession(httptest.NewRequest(http.MethodGet, "/auth/state", nil), "sess-1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var result auth.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.State != auth.StateAuthenticated || result.Profile.Username != "anna" {
		t.Fatalf("unexpected state %+v", result)
	}

	rec = env.serve(httptest.NewRequest(http.MethodGet, "/auth/state", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.State != auth.StateUnauthenticated {
		t.Fatalf("expected unknown browser to be unauthenticated got %s", result.State)
	}
}

func TestLogoutAlwaysClearsAndRedirectsHome(t *testing.T) {
	cases := map[string]error{
		"remote success": nil,
		"remote failure": &apiclient.StatusError{Op: "logout", Status: http.StatusInternalServerError},
		"unreachable":    &apiclient.TransportError{Op: "logout", Err: errors.New("timeout")},
	}

	for name, remoteErr := range cases {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			env.logouts.err = remoteErr

			env.serve(withSession(httptest.NewRequest(http.MethodGet, "/profile", nil), "sess-1"))

			rec := env.serve(withSession(formPost("/logout", nil), "sess-1"))
			if rec.Code != http.StatusSeeOther {
				t.Fatalf("expected 303 got %d", rec.Code)
			}
			if got := rec.Header().Get("Location"); got != "/" {
				t.Fatalf("expected redirect home got %q", got)
			}
			if env.logouts.calls != 1 {
				t.Fatalf("expected one remote logout got %d", env.logouts.calls)
			}
			for _, name := range []string{session.SessionCookie, session.CSRFCookie, session.FlashCookie, session.VisitorCookie} {
				c := responseCookie(rec, name)
				if c == nil || c.MaxAge >= 0 {
					t.Fatalf("expected %s to be expired got %+v", name, c)
				}
			}
			if got := env.gate.Tracker.Snapshot("s:sess-1").State; got != auth.StateUnauthenticated {
				t.Fatalf("expected tracked state to be dropped got %s", got)
			}
		})
	}
}

func TestNotFoundRendersPage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.serve(httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "does not exist") {
		t.Fatal("expected not found message")
	}
}

func TestDebugSessionPage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.serve(withSession(httptest.NewRequest(http.MethodGet, "/debug/session", nil), "sess-1-long-session"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "present (sess-1-l…)") {
		t.Fatal("expected a truncated session preview")
	}
	if !strings.Contains(body, "Common causes") {
		t.Fatal("expected hints for a rejected session")
	}
}
