package videos

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/collegeportal/web/internal/models"
)

// MaxTitleLength is the longest title the content service stores.
const MaxTitleLength = 100

// AllowedExtensions lists the container formats the content service accepts.
var AllowedExtensions = []string{"mp4", "avi", "mov", "wmv", "flv", "webm", "mkv"}

// ValidationErrors maps form fields to a message describing what is wrong.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for key := range v {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+v[key])
	}
	return "invalid upload: " + strings.Join(parts, "; ")
}

// ValidateUpload checks an upload before anything is sent upstream. It
// returns nil when the upload is acceptable.
func ValidateUpload(upload models.VideoUpload, maxBytes int64) ValidationErrors {
	errs := make(ValidationErrors)

	title := strings.TrimSpace(upload.Title)
	switch {
	case title == "":
		errs["title"] = "Enter a title for the video."
	case utf8.RuneCountInString(title) > MaxTitleLength:
		errs["title"] = fmt.Sprintf("Title must be at most %d characters.", MaxTitleLength)
	}

	if upload.FileReference == "" {
		switch {
		case strings.TrimSpace(upload.Filename) == "" || upload.Size <= 0:
			errs["file"] = "Choose a video file."
		case !AllowedExtension(upload.Filename):
			errs["file"] = "Unsupported format. Allowed: " + strings.Join(AllowedExtensions, ", ") + "."
		case maxBytes > 0 && upload.Size > maxBytes:
			errs["file"] = fmt.Sprintf("File is too large (max %d MB).", maxBytes>>20)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// AllowedExtension reports whether filename has an accepted video extension.
func AllowedExtension(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
