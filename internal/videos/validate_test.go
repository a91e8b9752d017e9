package videos

import (
	"strings"
	"testing"

	"github.com/collegeportal/web/internal/models"
)

func TestValidateUpload(t *testing.T) {
	const limit = 100 << 20

	cases := []struct {
		name   string
		upload models.VideoUpload
		fields []string
	}{
		{name: "valid", upload: models.VideoUpload{Title: "Intro", Filename: "intro.MP4", Size: 1024}},
		{name: "missing title", upload: models.VideoUpload{Title: "  ", Filename: "intro.mp4", Size: 1024}, fields: []string{"title"}},
		{name: "long title", upload: models.VideoUpload{Title: strings.Repeat("я", MaxTitleLength+1), Filename: "intro.mp4", Size: 1024}, fields: []string{"title"}},
		{name: "title at limit", upload: models.VideoUpload{Title: strings.Repeat("я", MaxTitleLength), Filename: "intro.mkv", Size: 1024}},
		{name: "missing file", upload: models.VideoUpload{Title: "Intro"}, fields: []string{"file"}},
		{name: "empty file", upload: models.VideoUpload{Title: "Intro", Filename: "intro.mp4"}, fields: []string{"file"}},
		{name: "bad extension", upload: models.VideoUpload{Title: "Intro", Filename: "notes.pdf", Size: 10}, fields: []string{"file"}},
		{name: "too large", upload: models.VideoUpload{Title: "Intro", Filename: "intro.webm", Size: limit + 1}, fields: []string{"file"}},
		{name: "both", upload: models.VideoUpload{Filename: "notes.txt", Size: 10}, fields: []string{"title", "file"}},
		{name: "staged reference", upload: models.VideoUpload{Title: "Intro", FileReference: "videos/abc/intro.mp4"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := ValidateUpload(tc.upload, limit)
			if len(errs) != len(tc.fields) {
				t.Fatalf("expected %d errors got %+v", len(tc.fields), errs)
			}
			for _, field := range tc.fields {
				if errs[field] == "" {
					t.Fatalf("expected error for %s got %+v", field, errs)
				}
			}
		})
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := ValidationErrors{"title": "Enter a title for the video.", "file": "Choose a video file."}
	want := "invalid upload: file: Choose a video file.; title: Enter a title for the video."
	if got := errs.Error(); got != want {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestAllowedExtension(t *testing.T) {
	for _, name := range []string{"a.mp4", "a.AVI", "clip.final.mov", "x.wmv", "x.flv", "x.webm", "x.mkv"} {
		if !AllowedExtension(name) {
			t.Fatalf("expected %s to be allowed", name)
		}
	}
	for _, name := range []string{"a", "a.mp3", "mp4", "a.mp4.exe"} {
		if AllowedExtension(name) {
			t.Fatalf("expected %s to be rejected", name)
		}
	}
}
