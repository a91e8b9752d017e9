package handlers

import (
	"net/http"
	"strings"

	"github.com/collegeportal/web/internal/auth"
	"github.com/collegeportal/web/internal/session"
	"github.com/collegeportal/web/internal/views"
)

// StateHandler exposes the recorded authentication state of the browser.
type StateHandler struct {
	Gate *auth.Gate
}

// Show handles GET /auth/state. It never contacts the auth service.
func (h StateHandler) Show(w http.ResponseWriter, r *http.Request) {
	result := auth.Result{State: auth.StateUnauthenticated}
	if h.Gate != nil {
		result = h.Gate.State(r)
	}
	respondJSON(r.Context(), w, http.StatusOK, result)
}

var sessionHints = []string{
	"The auth and content services run on different hosts or ports.",
	"Cookies are not being sent with requests.",
	"The session expired on the server.",
	"The CSRF token is missing or stale.",
}

// DebugHandler renders the session diagnostics page.
type DebugHandler struct {
	Pages      *Pages
	Gate       *auth.Gate
	ProfileURL string
}

// Show handles GET /debug/session. It runs a fresh check without recording it.
func (h DebugHandler) Show(w http.ResponseWriter, r *http.Request) {
	creds := session.FromRequest(r)
	data := &views.DebugPage{
		Layout:       h.Pages.layout(w, r, views.PageDebug, "Session debug"),
		VisitorKey:   session.VisitorKey(r),
		TrackedState: string(auth.StateUnauthenticated),
		ProfileURL:   h.ProfileURL,
		Cookies: []views.DebugCookie{
			debugCookie(session.SessionCookie, creds.SessionID),
			debugCookie(session.CSRFCookie, creds.CSRFToken),
		},
	}

	check := auth.Result{State: auth.StateUnauthenticated}
	if h.Gate != nil {
		data.TrackedState = string(h.Gate.State(r).State)
		check = h.Gate.Check(r.Context(), creds)
	}
	data.CheckState = string(check.State)
	data.CheckUser = check.Profile.Username
	if !check.Authenticated() {
		data.Hints = sessionHints
	}

	h.Pages.render(w, r, http.StatusOK, views.PageDebug, data)
}

func debugCookie(name, value string) views.DebugCookie {
	preview := value
	if len(preview) > 8 {
		preview = preview[:8]
	}
	return views.DebugCookie{Name: name, Present: strings.TrimSpace(value) != "", Preview: preview}
}
