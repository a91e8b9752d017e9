package auth

import (
	"context"

	"github.com/collegeportal/web/internal/models"
)

type resultKey struct{}

// WithResult stores a check result on the context.
func WithResult(ctx context.Context, result Result) context.Context {
	return context.WithValue(ctx, resultKey{}, result)
}

// ResultFromContext returns the check result for the current request, if any.
func ResultFromContext(ctx context.Context) (Result, bool) {
	result, ok := ctx.Value(resultKey{}).(Result)
	return result, ok
}

// ProfileFromContext returns the authenticated profile for the current request.
func ProfileFromContext(ctx context.Context) (models.Profile, bool) {
	result, ok := ResultFromContext(ctx)
	if !ok || !result.Authenticated() {
		return models.Profile{}, false
	}
	return result.Profile, true
}
