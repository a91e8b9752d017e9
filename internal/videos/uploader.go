package videos

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/collegeportal/web/internal/logging"
	"github.com/collegeportal/web/internal/models"
	"github.com/collegeportal/web/internal/session"
)

// Publisher registers a video with the content service.
type Publisher interface {
	UploadVideo(ctx context.Context, creds session.Credentials, upload models.VideoUpload, file io.Reader) (models.Video, error)
}

// AssetStorage persists uploaded video files and returns their location.
type AssetStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// Uploader hands validated uploads to the content service, either streaming
// the file through or staging it in object storage first.
type Uploader struct {
	publisher Publisher
	storage   AssetStorage
	newKey    func() string
}

// NewUploader constructs an Uploader. A nil storage forwards files directly.
func NewUploader(publisher Publisher, storage AssetStorage) *Uploader {
	return &Uploader{
		publisher: publisher,
		storage:   storage,
		newKey:    uuid.NewString,
	}
}

// Staged reports whether files are staged in object storage.
func (u *Uploader) Staged() bool {
	return u != nil && u.storage != nil
}

// Upload publishes the video described by upload, reading its bytes from file.
func (u *Uploader) Upload(ctx context.Context, creds session.Credentials, upload models.VideoUpload, file io.Reader) (models.Video, error) {
	if u == nil || u.publisher == nil {
		return models.Video{}, ErrPublisherUnavailable
	}
	if !u.Staged() {
		return u.publisher.UploadVideo(ctx, creds, upload, file)
	}

	key := ObjectKey(u.newKey(), upload.Filename)
	location, err := u.storage.Save(ctx, key, file)
	if err != nil {
		return models.Video{}, fmt.Errorf("stage video: %w", err)
	}
	logging.FromContext(ctx).Info("video staged", slog.String("key", key), slog.Int64("size", upload.Size))

	upload.FileReference = location
	return u.publisher.UploadVideo(ctx, creds, upload, nil)
}

// ObjectKey builds the storage key for a staged file.
func ObjectKey(id, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "video"
	}
	return path.Join("videos", id, name)
}
