package util

import (
	"errors"
	"net/url"
	"strings"
)

var ErrBadURL = errors.New("url must be absolute http(s)")

// ValidateListingURL checks that raw is an absolute http(s) URL with a host.
// The URL is returned trimmed but otherwise untouched.
func ValidateListingURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrBadURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrBadURL
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", ErrBadURL
	}
	if u.Host == "" {
		return "", ErrBadURL
	}
	return raw, nil
}

// HostOf returns the lowercased host of raw, or "" when it has none.
func HostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
