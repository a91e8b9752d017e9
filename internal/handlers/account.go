package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/collegeportal/web/internal/apiclient"
	"github.com/collegeportal/web/internal/auth"
	"github.com/collegeportal/web/internal/logging"
	"github.com/collegeportal/web/internal/models"
	"github.com/collegeportal/web/internal/session"
	"github.com/collegeportal/web/internal/views"
)

const (
	defaultAfterLogin = "/"
	tooManyAttempts   = "Too many attempts. Please wait a minute and try again."
)

// AccountHandler implements the login, registration and logout pages.
type AccountHandler struct {
	Pages     *Pages
	Accounts  AccountService
	Gate      *auth.Gate
	Validator *FormValidator
	Limiter   RateLimiter
}

// LoginForm handles GET /login.
func (h AccountHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	if _, ok := auth.ProfileFromContext(r.Context()); ok {
		http.Redirect(w, r, auth.SafeRedirect(from, defaultAfterLogin), http.StatusSeeOther)
		return
	}

	data := &views.LoginPage{
		Layout: h.Pages.layout(w, r, views.PageLogin, "Log in"),
		From:   auth.SafeRedirect(from, ""),
	}
	h.Pages.render(w, r, http.StatusOK, views.PageLogin, data)
}

// Login handles POST /login.
func (h AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	form := models.LoginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	data := &views.LoginPage{
		Username: form.Username,
		From:     auth.SafeRedirect(r.PostFormValue("from"), ""),
	}
	fail := func(status int, message string, fieldErrs map[string]string) {
		data.Layout = h.Pages.layout(w, r, views.PageLogin, "Log in")
		data.Message = message
		data.Errors = fieldErrs
		h.Pages.render(w, r, status, views.PageLogin, data)
	}

	if !allowRequest(h.Limiter, r, "login") {
		logger.Warn("login rate limited", "ip", clientIP(r))
		fail(http.StatusTooManyRequests, tooManyAttempts, nil)
		return
	}
	if !h.Pages.verifyForm(w, r) {
		return
	}
	if h.Accounts == nil || h.Gate == nil {
		logger.Error("authentication dependencies unavailable", "hasAccounts", h.Accounts != nil, "hasGate", h.Gate != nil)
		fail(http.StatusServiceUnavailable, "Sign-in is not available right now.", nil)
		return
	}
	if fieldErrs := h.Validator.Check(form); fieldErrs != nil {
		fail(http.StatusBadRequest, "", fieldErrs)
		return
	}

	creds := session.FromRequest(r)
	result, err := h.Accounts.Login(ctx, creds, form)
	if err != nil {
		logger.Warn("login failed", "username", form.Username, "error", err)
		var statusErr *apiclient.StatusError
		if errors.As(err, &statusErr) && statusErr.Status < http.StatusInternalServerError {
			message := statusErr.Message
			if message == "" {
				message = "Invalid username or password."
			}
			fail(http.StatusUnauthorized, message, fieldMessages(statusErr))
			return
		}
		fail(upstreamStatus(err), upstreamMessage(err), nil)
		return
	}

	h.Pages.Jar.Relay(w, result.Cookies)

	// The freshly issued session must be accepted before the browser is sent on.
	check := h.Gate.Check(ctx, mergeCredentials(creds, result.Cookies))
	if !check.Authenticated() {
		fail(http.StatusBadGateway, "Signed in, but the profile could not be loaded. Please try again.", nil)
		return
	}

	logger.Info("user logged in", "username", check.Profile.Username)
	http.Redirect(w, r, auth.SafeRedirect(data.From, defaultAfterLogin), http.StatusSeeOther)
}

// RegisterForm handles GET /register.
func (h AccountHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	data := &views.RegisterPage{Layout: h.Pages.layout(w, r, views.PageRegister, "Register")}
	h.Pages.render(w, r, http.StatusOK, views.PageRegister, data)
}

// Register handles POST /register. A successful registration is followed by
// an automatic login; when that fails the visitor is sent to the login page.
func (h AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	reg := models.Registration{
		Username:  strings.TrimSpace(r.PostFormValue("username")),
		Email:     strings.TrimSpace(r.PostFormValue("email")),
		Password:  r.PostFormValue("password"),
		Password2: r.PostFormValue("password2"),
	}
	data := &views.RegisterPage{Username: reg.Username, Email: reg.Email}
	fail := func(status int, message string, fieldErrs map[string]string) {
		data.Layout = h.Pages.layout(w, r, views.PageRegister, "Register")
		data.Message = message
		data.Errors = fieldErrs
		h.Pages.render(w, r, status, views.PageRegister, data)
	}

	if !allowRequest(h.Limiter, r, "register") {
		logger.Warn("registration rate limited", "ip", clientIP(r))
		fail(http.StatusTooManyRequests, tooManyAttempts, nil)
		return
	}
	if !h.Pages.verifyForm(w, r) {
		return
	}
	if h.Accounts == nil {
		logger.Error("authentication dependencies unavailable")
		fail(http.StatusServiceUnavailable, "Registration is not available right now.", nil)
		return
	}
	if fieldErrs := h.Validator.Check(reg); fieldErrs != nil {
		fail(http.StatusBadRequest, "", fieldErrs)
		return
	}

	creds := session.FromRequest(r)
	cookies, err := h.Accounts.Register(ctx, creds, reg)
	if err != nil {
		logger.Warn("registration failed", "username", reg.Username, "error", err)
		var statusErr *apiclient.StatusError
		if errors.As(err, &statusErr) && statusErr.Status == http.StatusBadRequest {
			logger.Info("registration rejected by auth service", "fields", statusErr.FieldMessages())
			message := statusErr.Message
			if message == "" && len(statusErr.Fields) == 0 {
				message = "The registration data is invalid."
			}
			fail(http.StatusBadRequest, message, fieldMessages(statusErr))
			return
		}
		fail(upstreamStatus(err), upstreamMessage(err), nil)
		return
	}
	h.Pages.Jar.Relay(w, cookies)
	creds = mergeCredentials(creds, cookies)
	logger.Info("user registered", "username", reg.Username)

	result, err := h.Accounts.Login(ctx, creds, models.LoginForm{Username: reg.Username, Password: reg.Password})
	if err != nil {
		logger.Warn("automatic login after registration failed", "username", reg.Username, "error", err)
		h.setFlash(w, r, session.FlashSuccess, "Registration successful! Please log in.")
		http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
		return
	}

	h.Pages.Jar.Relay(w, result.Cookies)
	h.setFlash(w, r, session.FlashSuccess, "Registration successful!")
	http.Redirect(w, r, defaultAfterLogin, http.StatusSeeOther)
}

// Logout handles POST /logout. The remote session is ended on a best-effort
// basis; local cookies are always cleared and the browser sent home.
func (h AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.Gate != nil {
		h.Gate.Logout(ctx, session.FromRequest(r))
		h.Gate.Forget(r)
	}
	h.Pages.Jar.Clear(w, r)
	logging.FromContext(ctx).Info("user logged out")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h AccountHandler) setFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	if h.Pages.Flash == nil {
		return
	}
	if err := h.Pages.Flash.Set(w, kind, message); err != nil {
		logging.FromContext(r.Context()).Error("set flash", "error", err)
	}
}

// mergeCredentials applies cookies issued by the auth service on top of the
// credentials the browser sent.
func mergeCredentials(creds session.Credentials, cookies []*http.Cookie) session.Credentials {
	for _, c := range cookies {
		if c == nil || c.Value == "" || c.MaxAge < 0 {
			continue
		}
		switch c.Name {
		case session.SessionCookie:
			creds.SessionID = c.Value
		case session.CSRFCookie:
			creds.CSRFToken = c.Value
		}
	}
	return creds
}

// fieldMessages flattens remote field errors to one message per form field.
func fieldMessages(err *apiclient.StatusError) map[string]string {
	if err == nil || len(err.Fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(err.Fields))
	for field, msgs := range err.Fields {
		out[field] = strings.Join(msgs, " ")
	}
	return out
}
