package handlers

import (
	"net/http"

	"github.com/collegeportal/web/internal/auth"
	"github.com/collegeportal/web/internal/logging"
	"github.com/collegeportal/web/internal/session"
	"github.com/collegeportal/web/internal/views"
)

// Pages holds what every HTML page needs: the renderer, cookie writers and
// the source of CSRF tokens for forms.
type Pages struct {
	Views *views.Renderer
	Jar   session.Jar
	Flash *session.Flasher
	CSRF  CSRFSource
	Debug bool
}

// layout builds the shared chrome for page. It pops any pending flash and
// makes sure the browser holds a CSRF token for the page's forms.
func (p *Pages) layout(w http.ResponseWriter, r *http.Request, page, title string) views.Layout {
	l := views.Layout{
		Title:       title,
		CurrentPage: page,
		CSRFToken:   p.csrfToken(w, r),
		Debug:       p.Debug,
	}
	if profile, ok := auth.ProfileFromContext(r.Context()); ok {
		l.IsAuthenticated = true
		l.User = &views.User{Username: profile.Username, Email: profile.Email}
	}
	if p.Flash != nil {
		if flash, ok := p.Flash.Pop(w, r); ok {
			l.Flash = &flash
		}
	}
	return l
}

// csrfToken returns the browser's CSRF token, obtaining one from the auth
// service, or minting a local one, when the browser has none yet.
func (p *Pages) csrfToken(w http.ResponseWriter, r *http.Request) string {
	if token := session.CSRFToken(r); token != "" {
		return token
	}

	ctx := r.Context()
	if p.CSRF != nil {
		token, cookies, err := p.CSRF.CSRF(ctx, session.FromRequest(r))
		if err == nil {
			p.Jar.Relay(w, cookies)
			if !hasCookie(cookies, session.CSRFCookie) {
				p.Jar.SetCSRF(w, token)
			}
			return token
		}
		logging.FromContext(ctx).Warn("fetch csrf token failed, minting locally", "error", err)
	}

	token := session.MintToken()
	p.Jar.SetCSRF(w, token)
	return token
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, page string, data views.LayoutProvider) {
	if err := p.Views.Render(w, status, page, data); err != nil {
		logging.FromContext(r.Context()).Error("render page", "page", page, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (p *Pages) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logger := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("page failed", "status", status, "message", message)
	} else {
		logger.Warn("page returned client error", "status", status, "message", message)
	}

	data := &views.ErrorPage{
		Layout:  p.layout(w, r, views.PageError, http.StatusText(status)),
		Status:  status,
		Message: message,
	}
	p.render(w, r, status, views.PageError, data)
}

// NotFound renders the 404 page.
func (p *Pages) NotFound(w http.ResponseWriter, r *http.Request) {
	p.renderError(w, r, http.StatusNotFound, "The page you are looking for does not exist.")
}

// MethodNotAllowed renders the 405 page.
func (p *Pages) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	p.renderError(w, r, http.StatusMethodNotAllowed, "This page does not accept that request.")
}

func hasCookie(cookies []*http.Cookie, name string) bool {
	for _, c := range cookies {
		if c != nil && c.Name == name && c.Value != "" {
			return true
		}
	}
	return false
}

// verifyForm parses a form post and checks its CSRF token, rendering a 403
// when it does not match.
func (p *Pages) verifyForm(w http.ResponseWriter, r *http.Request) bool {
	if !session.VerifyCSRF(r) {
		p.renderError(w, r, http.StatusForbidden, "Your form expired. Please reload the page and try again.")
		return false
	}
	return true
}
