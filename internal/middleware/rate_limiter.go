package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/collegeportal/web/internal/config"
)

// RateLimiter controls how frequently a caller may perform an action.
type RateLimiter interface {
	Allow(key string) bool
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter keeps one token bucket per key. Keys are usually a scope and
// a client IP, such as "login:203.0.113.7".
type ipRateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewIPRateLimiter allows up to requests events per window for each key, plus
// burst. Keys unused for ttl are forgotten.
func NewIPRateLimiter(requests int, window time.Duration, burst int, ttl time.Duration) RateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &ipRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

// NewCredentialLimiter builds the limiter guarding login and registration posts.
func NewCredentialLimiter(cfg config.RateLimitConfig) RateLimiter {
	return NewIPRateLimiter(cfg.Requests, cfg.Window, cfg.Burst, cfg.TTL)
}

func (l *ipRateLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}

	l.mu.Lock()
	now := l.now()
	l.sweepLocked(now)
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// sweepLocked drops idle visitors at most once per ttl/2.
func (l *ipRateLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.ttl/2 {
		return
	}
	l.lastSweep = now
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, key)
		}
	}
}

// WithNowFunc allows tests to override the time source.
func (l *ipRateLimiter) WithNowFunc(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
