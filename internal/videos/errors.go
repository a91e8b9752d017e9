package videos

import "errors"

var (
	// ErrDirectoryUnavailable indicates no institution source is configured.
	ErrDirectoryUnavailable = errors.New("institution directory unavailable")
	// ErrPublisherUnavailable indicates no content service client is configured.
	ErrPublisherUnavailable = errors.New("video publisher unavailable")
)
