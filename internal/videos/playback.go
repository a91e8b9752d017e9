package videos

import (
	"net/url"
	"strings"
)

const mediaPrefix = "/media/"

// PlaybackURL resolves a stored file reference to a URL the browser can
// play. Absolute references are returned unchanged; paths are resolved
// against the content service and bare storage names under its media root.
func PlaybackURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Host != "" {
		return ref
	}

	base = strings.TrimSuffix(base, "/")
	if strings.HasPrefix(ref, "/") {
		return base + ref
	}
	return base + mediaPrefix + ref
}
