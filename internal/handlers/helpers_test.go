package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/collegeportal/web/internal/apiclient"
	"github.com/collegeportal/web/internal/auth"
	"github.com/collegeportal/web/internal/models"
	"github.com/collegeportal/web/internal/session"
	"github.com/collegeportal/web/internal/views"
)

const testCSRF = "csrf-test-token"

type profileStub struct {
	mu       sync.Mutex
	calls    int
	sessions map[string]models.Profile
	err      error
}

func (s *profileStub) Profile(_ context.Context, creds session.Credentials) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return models.Profile{}, s.err
	}
	if profile, ok := s.sessions[creds.SessionID]; ok {
		return profile, nil
	}
	return models.Profile{}, &apiclient.StatusError{Op: "profile", Status: http.StatusForbidden}
}

func (s *profileStub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type logoutStub struct {
	calls int
	err   error
}

func (s *logoutStub) Logout(context.Context, session.Credentials) ([]*http.Cookie, error) {
	s.calls++
	return nil, s.err
}

type accountStub struct {
	loginCalls    int
	loginForm     models.LoginForm
	loginCookies  []*http.Cookie
	loginErr      error
	registerCalls int
	registration  models.Registration
	registerErr   error
}

func (s *accountStub) Login(_ context.Context, _ session.Credentials, form models.LoginForm) (apiclient.LoginResult, error) {
	s.loginCalls++
	s.loginForm = form
	if s.loginErr != nil {
		return apiclient.LoginResult{}, s.loginErr
	}
	return apiclient.LoginResult{Profile: models.Profile{Username: form.Username}, Cookies: s.loginCookies}, nil
}

func (s *accountStub) Register(_ context.Context, _ session.Credentials, reg models.Registration) ([]*http.Cookie, error) {
	s.registerCalls++
	s.registration = reg
	return nil, s.registerErr
}

type csrfStub struct {
	token string
	err   error
}

func (s csrfStub) CSRF(context.Context, session.Credentials) (string, []*http.Cookie, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	return s.token, nil, nil
}

type directoryStub struct {
	colleges []models.Institution
	err      error
}

func (s *directoryStub) Colleges(context.Context) ([]models.Institution, error) {
	return s.colleges, s.err
}

type videoListStub struct {
	videos []models.Video
	err    error
}

func (s *videoListStub) Videos(context.Context, session.Credentials) ([]models.Video, error) {
	return s.videos, s.err
}

type uploaderStub struct {
	calls  int
	upload models.VideoUpload
	body   string
	err    error
}

func (s *uploaderStub) Upload(_ context.Context, _ session.Credentials, upload models.VideoUpload, file io.Reader) (models.Video, error) {
	s.calls++
	s.upload = upload
	if file != nil {
		data, _ := io.ReadAll(file)
		s.body = string(data)
	}
	if s.err != nil {
		return models.Video{}, s.err
	}
	return models.Video{ID: 9, Title: upload.Title}, nil
}

type limiterStub struct {
	allow bool
	keys  []string
}

func (l *limiterStub) Allow(key string) bool {
	l.keys = append(l.keys, key)
	return l.allow
}

type testEnv struct {
	router   *mux.Router
	profiles *profileStub
	logouts  *logoutStub
	accounts *accountStub
	colleges *directoryStub
	videos   *videoListStub
	uploader *uploaderStub
	limiter  *limiterStub
	flash    *session.Flasher
	gate     *auth.Gate
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	renderer, err := views.New()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}

	env := &testEnv{
		profiles: &profileStub{sessions: map[string]models.Profile{
			"sess-1": {Username: "anna", Email: "anna@example.edu"},
		}},
		logouts:  &logoutStub{},
		accounts: &accountStub{},
		colleges: &directoryStub{},
		videos:   &videoListStub{},
		uploader: &uploaderStub{},
		limiter:  &limiterStub{allow: true},
		flash:    session.NewFlasher("test-secret", false),
	}
	env.gate = &auth.Gate{
		Profiles: env.profiles,
		Sessions: env.logouts,
		Tracker:  auth.NewTracker(time.Minute),
		Timeout:  time.Second,
	}

	env.router = mux.NewRouter()
	RegisterRoutes(env.router, Dependencies{
		Pages: &Pages{
			Views: renderer,
			Flash: env.flash,
			CSRF:  csrfStub{token: "remote-token"},
			Debug: true,
		},
		Gate:           env.gate,
		Accounts:       env.accounts,
		Colleges:       env.colleges,
		Videos:         env.videos,
		Uploader:       env.uploader,
		Limiter:        env.limiter,
		MaxUploadBytes: 1 << 20,
		FileField:      "videos",
		MediaBase:      "http://content.test",
		ProfileURL:     "http://auth.test/api/v2/profile/profile/",
		Version:        "test",
		Debug:          true,
	})
	return env
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func withSession(req *http.Request, sessionID string) *http.Request {
	req.AddCookie(&http.Cookie{Name: session.SessionCookie, Value: sessionID})
	return req
}

func formPost(target string, values url.Values) *http.Request {
	if values == nil {
		values = url.Values{}
	}
	values.Set(session.CSRFFormField, testCSRF)
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: session.CSRFCookie, Value: testCSRF})
	return req
}

func uploadPost(t *testing.T, fields map[string]string, filename, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField(session.CSRFFormField, testCSRF)
	for key, value := range fields {
		_ = mw.WriteField(key, value)
	}
	if filename != "" {
		part, err := mw.CreateFormFile("videos", filename)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		_, _ = io.WriteString(part, content)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/videos/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: session.CSRFCookie, Value: testCSRF})
	return req
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
