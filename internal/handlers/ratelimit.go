package handlers

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// RateLimiter is the minimal interface required to guard credential posts.
type RateLimiter interface {
	Allow(key string) bool
}

func allowRequest(limiter RateLimiter, r *http.Request, scope string) bool {
	if limiter == nil {
		return true
	}
	return limiter.Allow(rateLimitKey(r, scope))
}

func rateLimitKey(r *http.Request, scope string) string {
	ip := clientIP(r)
	if scope == "" {
		return ip
	}
	return fmt.Sprintf("%s:%s", scope, ip)
}

func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
