// Package auth decides whether the browser's session is still accepted by the
// auth service and gates protected pages on that decision.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/collegeportal/web/internal/apiclient"
	"github.com/collegeportal/web/internal/logging"
	"github.com/collegeportal/web/internal/models"
	"github.com/collegeportal/web/internal/session"
)

// State is the authentication state of a browser.
type State string

const (
	StateChecking        State = "checking"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

// Result is the outcome of one check.
type Result struct {
	State   State          `json:"state"`
	Profile models.Profile `json:"profile"`
}

// Authenticated reports whether the check succeeded.
func (r Result) Authenticated() bool {
	return r.State == StateAuthenticated
}

// ProfileFetcher loads the profile behind a session.
type ProfileFetcher interface {
	Profile(ctx context.Context, creds session.Credentials) (models.Profile, error)
}

// Logouter ends a remote session.
type Logouter interface {
	Logout(ctx context.Context, creds session.Credentials) ([]*http.Cookie, error)
}

// LoginPath is where unauthenticated browsers are sent.
const LoginPath = "/login"

// Gate runs the authentication check for page navigations.
type Gate struct {
	Profiles ProfileFetcher
	Sessions Logouter
	Tracker  *Tracker
	Jar      session.Jar
	// Timeout bounds a single check on top of the request context.
	Timeout time.Duration
}

// Check asks the auth service for the profile behind creds. Only a 200 with a
// profile carrying a username counts as authenticated; every failure is
// logged and reported as unauthenticated.
func (g *Gate) Check(ctx context.Context, creds session.Credentials) Result {
	logger := logging.FromContext(ctx)
	if g.Profiles == nil {
		logger.Error("auth check has no profile source")
		return Result{State: StateUnauthenticated}
	}

	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	profile, err := g.Profiles.Profile(ctx, creds)
	if err != nil {
		logger.Info("auth check failed",
			slog.String("reason", failureReason(err)),
			slog.Bool("hasSession", creds.HasSession()),
			slog.Any("error", err))
		return Result{State: StateUnauthenticated}
	}
	return Result{State: StateAuthenticated, Profile: profile}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case apiclient.IsUnauthenticated(err):
		return "rejected"
	case apiclient.IsTransport(err):
		return "transport"
	case errors.Is(err, apiclient.ErrMalformedResponse):
		return "malformed"
	default:
		return "status"
	}
}

// navigate runs exactly one check for the request under its own context and
// records it against the browser key. The request always acts on this
// result; a newer overlapping check from the same browser only takes over
// what the tracker reports.
func (g *Gate) navigate(w http.ResponseWriter, r *http.Request) Result {
	key := session.VisitorKey(r)
	if key == "" {
		key = "v:" + g.Jar.EnsureVisitor(w, r)
	}

	ticket := g.tracker().Begin(key)
	result := g.Check(r.Context(), session.FromRequest(r))
	if !g.tracker().Finish(ticket, result) {
		logging.FromContext(r.Context()).Debug("auth check overlapped by a newer one", slog.String("path", r.URL.Path))
	}
	return result
}

// Observe runs the check for a public page and exposes the result on the
// request context without restricting access.
func (g *Gate) Observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := g.navigate(w, r)
		next.ServeHTTP(w, r.WithContext(WithResult(r.Context(), result)))
	})
}

// Require guards a protected page. Authenticated requests reach next with the
// profile on the context; all others are redirected to the login page with
// the original location in the "from" parameter.
func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := g.navigate(w, r)
		if !result.Authenticated() {
			http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithResult(r.Context(), result)))
	})
}

// Logout ends the remote session on a best-effort basis. Failures are logged
// and never returned; callers clear local state regardless.
func (g *Gate) Logout(ctx context.Context, creds session.Credentials) {
	logger := logging.FromContext(ctx)
	if g.Sessions == nil {
		return
	}
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	if _, err := g.Sessions.Logout(ctx, creds); err != nil {
		logger.Warn("remote logout failed", slog.String("reason", failureReason(err)), slog.Any("error", err))
	}
}

// State returns the recorded state for the browser making r.
func (g *Gate) State(r *http.Request) Result {
	return g.tracker().Snapshot(session.VisitorKey(r))
}

// Forget drops the recorded state for the browser making r.
func (g *Gate) Forget(r *http.Request) {
	g.tracker().Forget(session.VisitorKey(r))
}

func (g *Gate) tracker() *Tracker {
	if g.Tracker == nil {
		g.Tracker = NewTracker(0)
	}
	return g.Tracker
}

// LoginURL builds the login location that returns to from after signing in.
func LoginURL(from string) string {
	if from == "" || from == "/" {
		return LoginPath
	}
	return LoginPath + "?from=" + url.QueryEscape(from)
}

// SafeRedirect returns target when it is a same-origin relative path and
// fallback otherwise.
func SafeRedirect(target, fallback string) string {
	if target == "" || target[0] != '/' || (len(target) > 1 && (target[1] == '/' || target[1] == '\\')) {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return target
}
