package urlutil

import (
	"net/url"
	"strconv"
	"strings"
)

// RobotsRules holds the rules from a robots.txt file that apply to a
// single user agent (the exact agent plus the `*` wildcard group).
type RobotsRules struct {
	Allowed    []string
	Disallowed []string
	CrawlDelay float64
	Sitemaps   []string
}

// RobotsURL returns the well-known robots.txt URL for the given base URL.
func RobotsURL(baseURL string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host + "/robots.txt"
}

// ParseRobots extracts Allow, Disallow, Crawl-delay, and Sitemap directives
// from robots.txt content, keeping only groups for the given user agent or
// `*`. Sitemap directives apply regardless of grouping, per the de facto
// standard. Malformed lines are skipped.
func ParseRobots(content, userAgent string) RobotsRules {
	var rules RobotsRules
	if content == "" {
		return rules
	}

	if userAgent == "" {
		userAgent = "*"
	}

	var currentAgent string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		directive, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		directive = strings.ToLower(strings.TrimSpace(directive))
		value = strings.TrimSpace(value)

		if directive == "sitemap" {
			// The value itself contains a colon; recover the full URL.
			if full := strings.TrimSpace(line[len("sitemap:"):]); full != "" {
				rules.Sitemaps = append(rules.Sitemaps, full)
			}
			continue
		}

		if directive == "user-agent" {
			currentAgent = value
			continue
		}

		if currentAgent != userAgent && currentAgent != "*" {
			continue
		}

		switch directive {
		case "disallow":
			if value != "" {
				rules.Disallowed = append(rules.Disallowed, value)
			}
		case "allow":
			if value != "" {
				rules.Allowed = append(rules.Allowed, value)
			}
		case "crawl-delay":
			if delay, err := strconv.ParseFloat(value, 64); err == nil {
				rules.CrawlDelay = delay
			}
		}
	}

	return rules
}
