package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/collegeportal/web/internal/auth"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Pages     *Pages
	Gate      *auth.Gate
	Accounts  AccountService
	Colleges  CollegeDirectory
	Videos    VideoLister
	Uploader  VideoUploader
	Validator *FormValidator
	Limiter   RateLimiter

	MaxUploadBytes int64
	FileField      string
	MediaBase      string
	ProfileURL     string
	Version        string
	Debug          bool
}

// RegisterRoutes wires HTTP handlers into the provided router. Page routes
// run the authentication check on every navigation: public pages observe the
// result, protected pages require it.
func RegisterRoutes(router *mux.Router, deps Dependencies) {
	pages := deps.Pages
	gate := deps.Gate
	validator := deps.Validator
	if validator == nil {
		validator = NewFormValidator()
	}

	health := HealthHandler{Version: deps.Version}
	home := HomeHandler{Pages: pages}
	colleges := CollegesHandler{Pages: pages, Colleges: deps.Colleges}
	account := AccountHandler{Pages: pages, Accounts: deps.Accounts, Gate: gate, Validator: validator, Limiter: deps.Limiter}
	videos := VideoHandler{
		Pages:     pages,
		Videos:    deps.Videos,
		Uploader:  deps.Uploader,
		MaxBytes:  deps.MaxUploadBytes,
		FileField: deps.FileField,
		MediaBase: deps.MediaBase,
	}
	state := StateHandler{Gate: gate}

	public := func(h http.HandlerFunc) http.Handler { return gate.Observe(h) }
	protected := func(h http.HandlerFunc) http.Handler { return gate.Require(h) }

	router.HandleFunc("/healthz", health.Handle).Methods(http.MethodGet)
	router.HandleFunc("/auth/state", state.Show).Methods(http.MethodGet)

	router.Handle("/", public(home.Show)).Methods(http.MethodGet)
	router.Handle("/colleges", public(colleges.List)).Methods(http.MethodGet)
	router.Handle("/api/v1/collegelist", public(colleges.List)).Methods(http.MethodGet)

	router.Handle("/login", public(account.LoginForm)).Methods(http.MethodGet)
	router.HandleFunc("/login", account.Login).Methods(http.MethodPost)
	router.Handle("/register", public(account.RegisterForm)).Methods(http.MethodGet)
	router.HandleFunc("/register", account.Register).Methods(http.MethodPost)
	router.HandleFunc("/logout", account.Logout).Methods(http.MethodPost)

	router.Handle("/profile", protected(videos.Profile)).Methods(http.MethodGet)
	router.Handle("/videos/upload", protected(videos.UploadForm)).Methods(http.MethodGet)
	router.Handle("/videos/upload", protected(videos.Upload)).Methods(http.MethodPost)

	if deps.Debug {
		debug := DebugHandler{Pages: pages, Gate: gate, ProfileURL: deps.ProfileURL}
		router.Handle("/debug/session", public(debug.Show)).Methods(http.MethodGet)
	}

	router.NotFoundHandler = public(pages.NotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(pages.MethodNotAllowed)
}
