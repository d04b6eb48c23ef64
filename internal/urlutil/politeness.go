package urlutil

import (
	"net/url"
	"strings"
	"time"
)

// domainDelays lists per-domain politeness overrides. Hosts not listed
// use the caller's default delay.
var domainDelays = map[string]time.Duration{
	"wikipedia.org":     500 * time.Millisecond,
	"github.com":        1 * time.Second,
	"stackoverflow.com": 2 * time.Second,
	"reddit.com":        3 * time.Second,
	"twitter.com":       5 * time.Second,
	"facebook.com":      5 * time.Second,
}

// RateLimitDelay returns the politeness delay for a domain. Subdomains
// inherit the override of their registered domain.
func RateLimitDelay(domain string, defaultDelay time.Duration) time.Duration {
	domain = strings.ToLower(domain)

	if delay, ok := domainDelays[domain]; ok {
		return delay
	}

	if registered := GetDomainInfo("https://" + domain).RegisteredDomain; registered != "" {
		if delay, ok := domainDelays[registered]; ok {
			return delay
		}
	}

	return defaultDelay
}

// lowerPath returns the lowercased path component of a URL.
func lowerPath(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Path)
}
