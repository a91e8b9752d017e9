// Package storage stages uploaded video files in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/collegeportal/web/internal/config"
)

const partSize = 5 * 1024 * 1024

// S3Storage implements videos.AssetStorage backed by an S3-compatible service.
type S3Storage struct {
	uploader *manager.Uploader
	bucket   string
	baseURL  string
}

// NewS3Storage configures an uploader targeting the configured bucket.
func NewS3Storage(ctx context.Context, cfg config.ObjectStoreConfig) (*S3Storage, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("s3 storage: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = partSize
		u.LeavePartsOnError = false
	})

	return &S3Storage{
		uploader: uploader,
		bucket:   cfg.Bucket,
		baseURL:  PublicBaseURL(cfg),
	}, nil
}

// Save uploads the video under name and returns the URL it will be served from.
func (s *S3Storage) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	key := strings.TrimLeft(name, "/")
	if key == "" {
		return "", fmt.Errorf("s3 storage: empty key")
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   manager.ReadSeekCloser(r),
	}
	if contentType := ContentType(key); contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("s3 storage upload %s: %w", key, err)
	}
	return s.baseURL + "/" + key, nil
}

// PublicBaseURL returns the prefix staged objects are served from: the
// configured public URL, or the bucket's own endpoint.
func PublicBaseURL(cfg config.ObjectStoreConfig) string {
	if base := strings.TrimSuffix(strings.TrimSpace(cfg.PublicBaseURL), "/"); base != "" {
		return base
	}
	if endpoint := strings.TrimSuffix(strings.TrimSpace(cfg.Endpoint), "/"); endpoint != "" {
		return endpoint + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}

// ContentType guesses the MIME type of a video from its key.
func ContentType(key string) string {
	ext := strings.ToLower(path.Ext(key))
	switch ext {
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	case ".mov":
		return "video/quicktime"
	case ".avi":
		return "video/x-msvideo"
	case ".wmv":
		return "video/x-ms-wmv"
	case ".flv":
		return "video/x-flv"
	}
	return mime.TypeByExtension(ext)
}
