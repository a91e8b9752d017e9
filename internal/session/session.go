// Package session owns every read and write of the browser-held credentials:
// the session and CSRF cookies issued by the auth service, the visitor key
// used to track navigations and the one-shot flash cookie.
package session

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Cookie names shared with the auth service and owned by this site.
const (
	SessionCookie = "sessionid"
	CSRFCookie    = "csrftoken"
	VisitorCookie = "cp_visitor"
	FlashCookie   = "cp_flash"

	// CSRFFormField is the hidden form field carrying the CSRF token.
	CSRFFormField = "csrfmiddlewaretoken"
	// CSRFHeader is the header the auth and content services read the token from.
	CSRFHeader = "X-CSRFToken"
)

// Credentials are the opaque values forwarded to the remote services.
type Credentials struct {
	SessionID string
	CSRFToken string
}

// HasSession reports whether the browser presented a session identifier.
// It says nothing about whether the remote service still accepts it.
func (c Credentials) HasSession() bool {
	return c.SessionID != ""
}

// Cookies returns the credentials as request cookies for an upstream call.
func (c Credentials) Cookies() []*http.Cookie {
	var out []*http.Cookie
	if c.SessionID != "" {
		out = append(out, &http.Cookie{Name: SessionCookie, Value: c.SessionID})
	}
	if c.CSRFToken != "" {
		out = append(out, &http.Cookie{Name: CSRFCookie, Value: c.CSRFToken})
	}
	return out
}

// FromRequest extracts the credentials the browser sent.
func FromRequest(r *http.Request) Credentials {
	return Credentials{
		SessionID: cookieValue(r, SessionCookie),
		CSRFToken: cookieValue(r, CSRFCookie),
	}
}

// CSRFToken returns the CSRF cookie value, or "" when the browser has none.
func CSRFToken(r *http.Request) string {
	return cookieValue(r, CSRFCookie)
}

// VisitorKey identifies the browser for navigation tracking: the session id
// when logged in, otherwise the visitor cookie.
func VisitorKey(r *http.Request) string {
	if id := cookieValue(r, SessionCookie); id != "" {
		return "s:" + id
	}
	if id := cookieValue(r, VisitorCookie); id != "" {
		return "v:" + id
	}
	return ""
}

// VerifyCSRF performs the double-submit check for a form post: the token in
// the form (or X-CSRFToken header) must equal the CSRF cookie.
func VerifyCSRF(r *http.Request) bool {
	cookie := CSRFToken(r)
	if cookie == "" {
		return false
	}
	submitted := r.Header.Get(CSRFHeader)
	if submitted == "" {
		submitted = r.FormValue(CSRFFormField)
	}
	if submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie), []byte(submitted)) == 1
}

// MintToken returns a fresh random token suitable for a local CSRF cookie.
func MintToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Jar writes first-party cookies on behalf of the remote services.
type Jar struct {
	Secure bool
	Now    func() time.Time
}

// Relay copies cookies set by a remote service onto the browser response as
// first-party cookies. Domain attributes are dropped and paths widened so the
// cookies come back on every page.
func (j Jar) Relay(w http.ResponseWriter, cookies []*http.Cookie) {
	now := j.now()
	for _, remote := range cookies {
		if remote == nil || remote.Name == "" {
			continue
		}
		c := &http.Cookie{
			Name:     remote.Name,
			Value:    remote.Value,
			Path:     "/",
			Expires:  remote.Expires,
			MaxAge:   remote.MaxAge,
			HttpOnly: remote.HttpOnly || remote.Name == SessionCookie,
			Secure:   j.Secure,
			SameSite: http.SameSiteLaxMode,
		}
		if remote.Value == "" || remote.MaxAge < 0 || (!remote.Expires.IsZero() && remote.Expires.Before(now)) {
			c.Value = ""
			c.MaxAge = -1
			c.Expires = time.Unix(0, 0)
		}
		http.SetCookie(w, c)
	}
}

// SetCSRF stores a CSRF token the browser will echo on form posts.
func (j Jar) SetCSRF(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookie,
		Value:    token,
		Path:     "/",
		Secure:   j.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// EnsureVisitor returns the visitor cookie value, issuing one when absent.
func (j Jar) EnsureVisitor(w http.ResponseWriter, r *http.Request) string {
	if id := cookieValue(r, VisitorCookie); id != "" {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   j.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// Clear expires every cookie the browser sent plus every cookie this site
// owns, which is the server-side equivalent of wiping local storage.
func (j Jar) Clear(w http.ResponseWriter, r *http.Request) {
	seen := make(map[string]struct{})
	expire := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: name != CSRFCookie,
			Secure:   j.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	for _, c := range r.Cookies() {
		expire(c.Name)
	}
	for _, name := range []string{SessionCookie, CSRFCookie, VisitorCookie, FlashCookie} {
		expire(name)
	}
}

func (j Jar) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

func cookieValue(r *http.Request, name string) string {
	if r == nil {
		return ""
	}
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}
