package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/collegeportal/web/internal/apiclient"
	"github.com/collegeportal/web/internal/models"
	"github.com/collegeportal/web/internal/session"
)

// AccountService captures the auth service operations used by the account pages.
type AccountService interface {
	Login(ctx context.Context, creds session.Credentials, form models.LoginForm) (apiclient.LoginResult, error)
	Register(ctx context.Context, creds session.Credentials, reg models.Registration) ([]*http.Cookie, error)
}

// CSRFSource mints CSRF tokens for the front-end's forms.
type CSRFSource interface {
	CSRF(ctx context.Context, creds session.Credentials) (string, []*http.Cookie, error)
}

// CollegeDirectory lists partner institutions.
type CollegeDirectory interface {
	Colleges(ctx context.Context) ([]models.Institution, error)
}

// VideoLister lists the videos visible to a session.
type VideoLister interface {
	Videos(ctx context.Context, creds session.Credentials) ([]models.Video, error)
}

// VideoUploader publishes a validated upload.
type VideoUploader interface {
	Upload(ctx context.Context, creds session.Credentials, upload models.VideoUpload, file io.Reader) (models.Video, error)
}
