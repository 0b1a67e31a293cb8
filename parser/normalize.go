// Package parser turns raw site references and sitemap documents into the
// structured values the explorer works with.
package parser

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidInput is returned when a site reference is empty or has no host.
var ErrInvalidInput = errors.New("site reference is required")

const sitemapPath = "/sitemap.xml"

// NormalizeSiteReference canonicalizes a user supplied site into an origin
// such as "https://example.com".
func NormalizeSiteReference(raw string) (string, error) {
	ref := strings.TrimSpace(raw)
	if ref == "" {
		return "", ErrInvalidInput
	}

	if !hasHTTPScheme(ref) {
		ref = "https://" + ref
	}
	ref = strings.TrimSuffix(ref, "/")

	parsed, err := url.Parse(ref)
	if err != nil || parsed.Host == "" {
		return "", ErrInvalidInput
	}
	return ref, nil
}

// SitemapLocation returns the conventional root sitemap URL for an origin.
func SitemapLocation(origin string) string {
	return origin + sitemapPath
}

func hasHTTPScheme(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
