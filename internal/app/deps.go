package app

import (
	"context"
	"fmt"

	"github.com/collegeportal/web/internal/apiclient"
	"github.com/collegeportal/web/internal/auth"
	"github.com/collegeportal/web/internal/config"
	"github.com/collegeportal/web/internal/handlers"
	"github.com/collegeportal/web/internal/logging"
	"github.com/collegeportal/web/internal/middleware"
	"github.com/collegeportal/web/internal/session"
	"github.com/collegeportal/web/internal/storage"
	"github.com/collegeportal/web/internal/videos"
	"github.com/collegeportal/web/internal/views"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, cfg config.Config) (handlers.Dependencies, error) {
	logger := logging.FromContext(ctx)

	client := apiclient.New(cfg)

	var assets videos.AssetStorage
	if cfg.ObjectStore.Enabled() {
		s3Storage, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
		if err != nil {
			return handlers.Dependencies{}, fmt.Errorf("configure object storage: %w", err)
		}
		assets = s3Storage
		logger.Info("staging uploads in object storage", "bucket", cfg.ObjectStore.Bucket, "publicBase", storage.PublicBaseURL(cfg.ObjectStore))
	}

	renderer, err := views.New()
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("load templates: %w", err)
	}

	secret := cfg.CookieSecret
	if secret == "" {
		secret = session.MintToken()
		logger.Warn("no cookie secret configured; flash messages will not survive a restart")
	}

	jar := session.Jar{Secure: cfg.SecureCookies}
	gate := &auth.Gate{
		Profiles: client,
		Sessions: client,
		Tracker:  auth.NewTracker(0),
		Jar:      jar,
		Timeout:  cfg.RequestTimeout,
	}

	return handlers.Dependencies{
		Pages: &handlers.Pages{
			Views: renderer,
			Jar:   jar,
			Flash: session.NewFlasher(secret, cfg.SecureCookies),
			CSRF:  client,
			Debug: cfg.Debug,
		},
		Gate:           gate,
		Accounts:       client,
		Colleges:       videos.NewCachingDirectory(client, cfg.CollegesTTL),
		Videos:         client,
		Uploader:       videos.NewUploader(client, assets),
		Validator:      handlers.NewFormValidator(),
		Limiter:        middleware.NewCredentialLimiter(cfg.RateLimit),
		MaxUploadBytes: cfg.Upload.MaxBytes,
		FileField:      cfg.Upload.FileField,
		MediaBase:      cfg.Content.BaseURL,
		ProfileURL:     cfg.Auth.Endpoint(config.EndpointProfile),
		Version:        cfg.Rollbar.CodeVersion,
		Debug:          cfg.Debug,
	}, nil
}
