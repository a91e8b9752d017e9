package videos

import (
	"context"
	"sync"
	"time"

	"github.com/collegeportal/web/internal/models"
)

// Directory lists partner institutions.
type Directory interface {
	Colleges(ctx context.Context) ([]models.Institution, error)
}

// CachingDirectory wraps another Directory with a TTL-based in-memory cache.
// Failures are never cached so a retry reaches the content service again.
type CachingDirectory struct {
	base Directory
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	items   []models.Institution
	expires time.Time
}

// NewCachingDirectory returns a Directory that caches the list for ttl.
func NewCachingDirectory(base Directory, ttl time.Duration) *CachingDirectory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingDirectory{
		base: base,
		ttl:  ttl,
		now:  time.Now,
	}
}

// Colleges returns the cached list when fresh, otherwise it delegates to the
// underlying directory and stores the result.
func (c *CachingDirectory) Colleges(ctx context.Context) ([]models.Institution, error) {
	if c == nil || c.base == nil {
		return nil, ErrDirectoryUnavailable
	}

	now := c.now()

	c.mu.RLock()
	items, expires := c.items, c.expires
	c.mu.RUnlock()
	if items != nil && now.Before(expires) {
		return cloneInstitutions(items), nil
	}

	fresh, err := c.base.Colleges(ctx)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		fresh = []models.Institution{}
	}

	c.mu.Lock()
	c.items = cloneInstitutions(fresh)
	c.expires = now.Add(c.ttl)
	c.mu.Unlock()

	return fresh, nil
}

func cloneInstitutions(in []models.Institution) []models.Institution {
	out := make([]models.Institution, len(in))
	copy(out, in)
	return out
}
