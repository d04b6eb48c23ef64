// Package urlutil provides URL validation, normalization, and hashing for
// the frontier, plus crawl filters, politeness delays, and robots.txt parsing.
// URLs are normalized before hashing so that the same URL expressed
// differently produces the same hash for deduplication.
package urlutil

import (
	"crypto/md5" //nolint:gosec // identity hash, not a security boundary
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
)

// validURLPattern is a conservative pattern for crawlable URLs: http(s)
// scheme, a dotted domain, localhost, or a dotted-quad IP, optional port,
// optional path.
var validURLPattern = regexp.MustCompile(`(?i)^https?://` +
	`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+[A-Z]{2,6}\.?` +
	`|localhost` +
	`|\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
	`(?::\d+)?` +
	`(?:/?|[/?]\S+)$`)

// trackingParams lists exact query parameter names stripped during
// normalization; utm_* parameters are stripped by prefix.
var trackingParams = map[string]struct{}{
	"ref":    {},
	"source": {},
}

// IsValid reports whether the URL is a well-formed absolute HTTP(S) URL
// with a non-empty host. Invalid input yields false, never an error.
func IsValid(rawURL string) bool {
	if rawURL == "" || !validURLPattern.MatchString(rawURL) {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	return parsed.Host != ""
}

// Normalize applies deterministic transformations to a URL: lowercase
// scheme and host, drop the fragment, drop tracking query parameters
// (order of the survivors is preserved), and trim trailing slashes.
// Unparseable input is returned unchanged.
func Normalize(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.RawQuery = stripTrackingParams(parsed.RawQuery)

	return strings.TrimRight(parsed.String(), "/")
}

// stripTrackingParams removes tracking parameters from a raw query string
// while preserving the order of the remaining parameters.
func stripTrackingParams(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	var kept []string
	for _, param := range strings.Split(rawQuery, "&") {
		key, _, found := strings.Cut(param, "=")
		if !found {
			kept = append(kept, param)
			continue
		}

		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") {
			continue
		}
		if _, tracking := trackingParams[lower]; tracking {
			continue
		}

		kept = append(kept, param)
	}

	return strings.Join(kept, "&")
}

// Hash normalizes the URL and returns the hex MD5 digest of the normalized
// form. The digest is the URL's identity in the frontier.
func Hash(rawURL string) string {
	sum := md5.Sum([]byte(Normalize(rawURL))) //nolint:gosec // identity hash
	return hex.EncodeToString(sum[:])
}

// ExtractHost returns the lowercased host (with port, if any) from a URL,
// or an empty string when the URL cannot be parsed.
func ExtractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}
