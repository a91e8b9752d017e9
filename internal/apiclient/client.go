package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/collegeportal/web/internal/config"
	"github.com/collegeportal/web/internal/logging"
	"github.com/collegeportal/web/internal/models"
	"github.com/collegeportal/web/internal/session"
)

const maxResponseBytes = 4 << 20

// Client talks to the auth and content services on behalf of the browser,
// forwarding its session cookies and echoing the CSRF token on mutating calls.
type Client struct {
	HTTP      *http.Client
	Auth      config.UpstreamConfig
	Content   config.UpstreamConfig
	FileField string

	// Timeout bounds each call; UploadTimeout replaces it for video uploads.
	Timeout       time.Duration
	UploadTimeout time.Duration
}

// New constructs a Client from the runtime configuration.
func New(cfg config.Config) *Client {
	return &Client{
		HTTP:          &http.Client{},
		Auth:          cfg.Auth,
		Content:       cfg.Content,
		FileField:     cfg.Upload.FileField,
		Timeout:       cfg.RequestTimeout,
		UploadTimeout: cfg.WriteTimeout,
	}
}

type response struct {
	Status  int
	Body    []byte
	Cookies []*http.Cookie
}

func (r response) ok() bool {
	return r.Status >= 200 && r.Status < 300
}

type request struct {
	op          string
	method      string
	url         string
	body        io.Reader
	length      int64
	contentType string
	creds       session.Credentials
	timeout     time.Duration
}

func (c *Client) send(ctx context.Context, req request) (response, error) {
	ctx, span := logging.StartSpan(ctx, req.op)
	defer span.End()

	timeout := c.Timeout
	if req.timeout > 0 {
		timeout = req.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, req.body)
	if err != nil {
		return response{}, fmt.Errorf("%s: build request: %w", req.op, err)
	}
	if req.length > 0 {
		httpReq.ContentLength = req.length
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if id := logging.RequestIDFromContext(ctx); id != "" {
		httpReq.Header.Set("X-Request-ID", id)
	}
	for _, cookie := range req.creds.Cookies() {
		httpReq.AddCookie(cookie)
	}
	if req.method != http.MethodGet && req.method != http.MethodHead && req.creds.CSRFToken != "" {
		httpReq.Header.Set(session.CSRFHeader, req.creds.CSRFToken)
	}

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		span.Annotate("error", err)
		return response{}, &TransportError{Op: req.op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		span.Annotate("error", err)
		return response{}, &TransportError{Op: req.op, Err: fmt.Errorf("read body: %w", err)}
	}

	span.Annotate("status", resp.StatusCode)
	return response{Status: resp.StatusCode, Body: body, Cookies: resp.Cookies()}, nil
}

func (c *Client) sendJSON(ctx context.Context, op, url string, creds session.Credentials, payload any) (response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return response{}, fmt.Errorf("%s: encode payload: %w", op, err)
	}
	return c.send(ctx, request{
		op:          op,
		method:      http.MethodPost,
		url:         url,
		body:        bytes.NewReader(body),
		contentType: "application/json",
		creds:       creds,
	})
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// Profile fetches the account behind the forwarded session.
func (c *Client) Profile(ctx context.Context, creds session.Credentials) (models.Profile, error) {
	const op = "profile"
	resp, err := c.send(ctx, request{op: op, method: http.MethodGet, url: c.Auth.Endpoint(config.EndpointProfile), creds: creds})
	if err != nil {
		return models.Profile{}, err
	}
	if resp.Status != http.StatusOK {
		return models.Profile{}, statusError(op, resp.Status, resp.Body)
	}

	var profile models.Profile
	if err := Decode(resp.Body, &profile); err != nil {
		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}
	if strings.TrimSpace(profile.Username) == "" {
		return models.Profile{}, fmt.Errorf("%s: %w: missing username", op, ErrMalformedResponse)
	}
	return profile, nil
}

// LoginResult is a successful login: the account and the cookies to relay.
type LoginResult struct {
	Profile models.Profile
	Cookies []*http.Cookie
}

// Login exchanges a username and password for a session.
func (c *Client) Login(ctx context.Context, creds session.Credentials, form models.LoginForm) (LoginResult, error) {
	const op = "login"
	resp, err := c.sendJSON(ctx, op, c.Auth.Endpoint(config.EndpointLogin), creds, form)
	if err != nil {
		return LoginResult{}, err
	}
	if !resp.ok() {
		return LoginResult{}, statusError(op, resp.Status, resp.Body)
	}

	var payload struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		User    *models.Profile `json:"user"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return LoginResult{}, fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	if payload.Status != envelopeSuccess {
		return LoginResult{}, &StatusError{Op: op, Status: resp.Status, Message: payload.Message}
	}

	result := LoginResult{Cookies: resp.Cookies}
	if payload.User != nil {
		result.Profile = *payload.User
	}
	return result, nil
}

// Logout ends the remote session. It returns the cookies the service set,
// usually deletions of the session and CSRF cookies.
func (c *Client) Logout(ctx context.Context, creds session.Credentials) ([]*http.Cookie, error) {
	const op = "logout"
	resp, err := c.sendJSON(ctx, op, c.Auth.Endpoint(config.EndpointLogout), creds, struct{}{})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return resp.Cookies, statusError(op, resp.Status, resp.Body)
	}
	return resp.Cookies, nil
}

// Register creates an account. Validation failures come back as a
// StatusError with Fields populated.
func (c *Client) Register(ctx context.Context, creds session.Credentials, reg models.Registration) ([]*http.Cookie, error) {
	const op = "registration"
	resp, err := c.sendJSON(ctx, op, c.Auth.Endpoint(config.EndpointRegistration), creds, reg)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return resp.Cookies, statusError(op, resp.Status, resp.Body)
	}
	return resp.Cookies, nil
}

// CSRF asks the auth service for a CSRF token. The token is taken from the
// csrftoken cookie it sets, falling back to a token in the body.
func (c *Client) CSRF(ctx context.Context, creds session.Credentials) (string, []*http.Cookie, error) {
	const op = "csrf"
	resp, err := c.send(ctx, request{op: op, method: http.MethodGet, url: c.Auth.Endpoint(config.EndpointCSRF), creds: creds})
	if err != nil {
		return "", nil, err
	}
	if !resp.ok() {
		return "", nil, statusError(op, resp.Status, resp.Body)
	}

	for _, cookie := range resp.Cookies {
		if cookie.Name == session.CSRFCookie && cookie.Value != "" {
			return cookie.Value, resp.Cookies, nil
		}
	}

	var payload struct {
		CSRFToken string `json:"csrfToken"`
		Token     string `json:"csrftoken"`
	}
	if err := Decode(resp.Body, &payload); err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	token := payload.CSRFToken
	if token == "" {
		token = payload.Token
	}
	if token == "" {
		return "", nil, fmt.Errorf("%s: %w: no token", op, ErrMalformedResponse)
	}
	return token, resp.Cookies, nil
}

type institutionPayload struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Adress  string `json:"adress"`
}

// Colleges lists the partner institutions. It needs no credentials.
func (c *Client) Colleges(ctx context.Context) ([]models.Institution, error) {
	const op = "colleges"
	resp, err := c.send(ctx, request{op: op, method: http.MethodGet, url: c.Content.Endpoint(config.EndpointColleges)})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, statusError(op, resp.Status, resp.Body)
	}

	var payload []institutionPayload
	if err := Decode(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]models.Institution, 0, len(payload))
	for _, item := range payload {
		address := item.Address
		if address == "" {
			address = item.Adress
		}
		out = append(out, models.Institution{ID: item.ID, Name: item.Name, Address: address})
	}
	return out, nil
}

type videoPayload struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	Description   *string `json:"description"`
	FileReference string  `json:"file_reference"`
	Videos        string  `json:"videos"`
	VideoFile     string  `json:"video_file"`
}

func (p videoPayload) model() models.Video {
	video := models.Video{ID: p.ID, Title: p.Title}
	if p.Description != nil {
		video.Description = *p.Description
	}
	for _, ref := range []string{p.FileReference, p.Videos, p.VideoFile} {
		if ref != "" {
			video.FileReference = ref
			break
		}
	}
	return video
}

// Videos lists the videos visible to the forwarded session.
func (c *Client) Videos(ctx context.Context, creds session.Credentials) ([]models.Video, error) {
	const op = "videos"
	resp, err := c.send(ctx, request{op: op, method: http.MethodGet, url: c.Content.Endpoint(config.EndpointVideos), creds: creds})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, statusError(op, resp.Status, resp.Body)
	}

	var payload []videoPayload
	if err := Decode(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]models.Video, 0, len(payload))
	for _, item := range payload {
		out = append(out, item.model())
	}
	return out, nil
}

// UploadVideo posts a video as multipart form data. When upload.FileReference
// is set the file was staged elsewhere and only the reference is sent;
// otherwise file is streamed under the configured file field.
func (c *Client) UploadVideo(ctx context.Context, creds session.Credentials, upload models.VideoUpload, file io.Reader) (models.Video, error) {
	const op = "video upload"

	var head bytes.Buffer
	mw := multipart.NewWriter(&head)
	if err := mw.WriteField("title", upload.Title); err != nil {
		return models.Video{}, fmt.Errorf("%s: write title: %w", op, err)
	}
	if err := mw.WriteField("description", upload.Description); err != nil {
		return models.Video{}, fmt.Errorf("%s: write description: %w", op, err)
	}

	var (
		body   io.Reader
		length int64
	)
	if upload.FileReference != "" {
		if err := mw.WriteField("file_reference", upload.FileReference); err != nil {
			return models.Video{}, fmt.Errorf("%s: write reference: %w", op, err)
		}
		if err := mw.Close(); err != nil {
			return models.Video{}, fmt.Errorf("%s: close form: %w", op, err)
		}
		length = int64(head.Len())
		body = &head
	} else {
		if file == nil {
			return models.Video{}, fmt.Errorf("%s: no file", op)
		}
		field := c.FileField
		if field == "" {
			field = "videos"
		}
		if _, err := mw.CreateFormFile(field, upload.Filename); err != nil {
			return models.Video{}, fmt.Errorf("%s: create file part: %w", op, err)
		}
		// The closing boundary is written by hand so the file can be
		// streamed between the part header and the trailer.
		tail := fmt.Sprintf("\r\n--%s--\r\n", mw.Boundary())
		length = int64(head.Len()) + upload.Size + int64(len(tail))
		body = io.MultiReader(&head, file, strings.NewReader(tail))
	}

	resp, err := c.send(ctx, request{
		op:          op,
		method:      http.MethodPost,
		url:         c.Content.Endpoint(config.EndpointVideos),
		body:        body,
		length:      length,
		contentType: mw.FormDataContentType(),
		creds:       creds,
		timeout:     c.UploadTimeout,
	})
	if err != nil {
		return models.Video{}, err
	}
	if !resp.ok() {
		return models.Video{}, statusError(op, resp.Status, resp.Body)
	}

	var payload videoPayload
	if err := Decode(resp.Body, &payload); err != nil {
		return models.Video{}, fmt.Errorf("%s: %w", op, err)
	}
	return payload.model(), nil
}
