package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/collegeportal/web/internal/apiclient"
	"github.com/collegeportal/web/internal/auth"
	"github.com/collegeportal/web/internal/logging"
	"github.com/collegeportal/web/internal/models"
	"github.com/collegeportal/web/internal/session"
	"github.com/collegeportal/web/internal/videos"
	"github.com/collegeportal/web/internal/views"
)

const multipartMemory = 32 << 20

// VideoHandler implements the profile page and video uploads. Both routes sit
// behind auth.Gate.Require.
type VideoHandler struct {
	Pages     *Pages
	Videos    VideoLister
	Uploader  VideoUploader
	MaxBytes  int64
	FileField string
	// MediaBase resolves relative file references for playback.
	MediaBase string
}

// Profile handles GET /profile.
func (h VideoHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	profile, ok := auth.ProfileFromContext(ctx)
	if !ok {
		http.Redirect(w, r, auth.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
		return
	}

	data := &views.ProfilePage{
		Layout:   h.Pages.layout(w, r, views.PageProfile, "Profile"),
		Username: profile.Username,
		Email:    profile.Email,
	}

	if h.Videos != nil {
		list, err := h.Videos.Videos(ctx, session.FromRequest(r))
		if err != nil {
			logger.Warn("load videos failed", "error", err)
			data.VideosError = upstreamMessage(err)
		} else {
			data.Videos, data.Active = h.playlist(list, r.URL.Query().Get("video"))
		}
	}

	h.Pages.render(w, r, http.StatusOK, views.PageProfile, data)
}

func (h VideoHandler) playlist(list []models.Video, selected string) ([]views.Video, *views.Video) {
	if len(list) == 0 {
		return nil, nil
	}

	activeID := list[0].ID
	if id, err := strconv.Atoi(selected); err == nil {
		for _, v := range list {
			if v.ID == id {
				activeID = id
				break
			}
		}
	}

	out := make([]views.Video, 0, len(list))
	var active *views.Video
	for _, v := range list {
		item := views.Video{
			ID:          v.ID,
			Title:       v.Title,
			Description: v.Description,
			URL:         videos.PlaybackURL(h.MediaBase, v.FileReference),
			Active:      v.ID == activeID,
		}
		out = append(out, item)
		if item.Active && active == nil {
			active = &out[len(out)-1]
		}
	}
	return out, active
}

// UploadForm handles GET /videos/upload.
func (h VideoHandler) UploadForm(w http.ResponseWriter, r *http.Request) {
	data := h.uploadPage(w, r)
	h.Pages.render(w, r, http.StatusOK, views.PageUpload, data)
}

// Upload handles POST /videos/upload.
func (h VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	fail := func(status int, data *views.UploadPage, message string, fieldErrs map[string]string) {
		data.Message = message
		data.Errors = fieldErrs
		h.Pages.render(w, r, status, views.PageUpload, data)
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes()+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		logger.Warn("parse upload form failed", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(http.StatusRequestEntityTooLarge, h.uploadPage(w, r), "", map[string]string{"file": h.tooLargeMessage()})
			return
		}
		fail(http.StatusBadRequest, h.uploadPage(w, r), "The upload could not be read. Please try again.", nil)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	if !h.Pages.verifyForm(w, r) {
		return
	}

	data := h.uploadPage(w, r)
	data.VideoTitle = strings.TrimSpace(r.FormValue("title"))
	data.Description = strings.TrimSpace(r.FormValue("description"))

	upload := models.VideoUpload{Title: data.VideoTitle, Description: data.Description}
	file, header, err := r.FormFile(h.fileField())
	if err == nil {
		defer file.Close()
		upload.Filename = header.Filename
		upload.Size = header.Size
	} else if !errors.Is(err, http.ErrMissingFile) {
		logger.Warn("read upload file failed", "error", err)
	}

	if fieldErrs := videos.ValidateUpload(upload, h.maxBytes()); fieldErrs != nil {
		fail(http.StatusBadRequest, data, "", fieldErrs)
		return
	}
	if h.Uploader == nil {
		logger.Error("video uploader unavailable")
		fail(http.StatusServiceUnavailable, data, "Uploads are not available right now.", nil)
		return
	}

	video, err := h.Uploader.Upload(ctx, session.FromRequest(r), upload, file)
	if err != nil {
		logger.Warn("video upload failed", "title", upload.Title, "error", err)
		var statusErr *apiclient.StatusError
		if errors.As(err, &statusErr) && statusErr.Status == http.StatusBadRequest && len(statusErr.Fields) > 0 {
			logger.Info("upload rejected by content service", "fields", statusErr.FieldMessages())
			fail(http.StatusBadRequest, data, statusErr.Message, h.uploadFieldErrors(statusErr))
			return
		}
		if apiclient.IsUnauthenticated(err) {
			h.setFlash(w, r, session.FlashError, "Your session has expired. Please log in again.")
			http.Redirect(w, r, auth.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		fail(upstreamStatus(err), data, upstreamMessage(err), nil)
		return
	}

	logger.Info("video uploaded", "videoId", video.ID, "title", video.Title)
	h.setFlash(w, r, session.FlashSuccess, "Video uploaded successfully!")
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

func (h VideoHandler) setFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	if h.Pages.Flash == nil {
		return
	}
	if err := h.Pages.Flash.Set(w, kind, message); err != nil {
		logging.FromContext(r.Context()).Error("set flash", "error", err)
	}
}

func (h VideoHandler) uploadPage(w http.ResponseWriter, r *http.Request) *views.UploadPage {
	return &views.UploadPage{
		Layout:     h.Pages.layout(w, r, views.PageUpload, "Upload video"),
		MaxMB:      h.maxBytes() >> 20,
		Extensions: videos.AllowedExtensions,
		FileField:  h.fileField(),
	}
}

// uploadFieldErrors maps the content service's field names onto the form.
func (h VideoHandler) uploadFieldErrors(err *apiclient.StatusError) map[string]string {
	out := make(map[string]string)
	for field, msg := range fieldMessages(err) {
		switch field {
		case "title":
			out["title"] = msg
		case h.fileField(), "videos", "video_file", "file_reference":
			out["file"] = msg
		default:
			out["title"] = strings.TrimSpace(out["title"] + " " + field + ": " + msg)
		}
	}
	return out
}

func (h VideoHandler) tooLargeMessage() string {
	return "File is too large (max " + strconv.FormatInt(h.maxBytes()>>20, 10) + " MB)."
}

func (h VideoHandler) maxBytes() int64 {
	if h.MaxBytes <= 0 {
		return 100 << 20
	}
	return h.MaxBytes
}

func (h VideoHandler) fileField() string {
	if h.FileField == "" {
		return "videos"
	}
	return h.FileField
}
