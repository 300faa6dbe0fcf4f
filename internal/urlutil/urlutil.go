package urlutil

import (
	"net/url"
	"strings"
)

// Origin returns scheme + host of rawURL, or the trimmed input when it has
// no scheme or host.
func Origin(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return normalizeBaseURL(rawURL)
	}
	return u.Scheme + "://" + u.Host
}

// ResolveTarget returns the URL a navigation step should open. An empty
// target means fallback; absolute targets are used as-is; anything else is
// resolved against the origin of fallback.
func ResolveTarget(target, fallback string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return strings.TrimSpace(fallback)
	}
	if IsAbsolute(target) {
		return target
	}
	return BuildAbsolute(Origin(fallback), target)
}

// IsAbsolute reports whether s carries an http(s) scheme.
func IsAbsolute(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// BuildAbsolute builds an absolute URL from a base origin and a path.
func BuildAbsolute(base, path string) string {
	base = normalizeBaseURL(base)
	if path == "" {
		return base
	}
	if IsAbsolute(path) {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return base + path
	}
	return base + "/" + path
}

func normalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/")
}
