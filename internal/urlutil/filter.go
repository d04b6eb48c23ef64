package urlutil

import (
	"regexp"
	"sync"
)

// CrawlRules restricts which URLs are eligible for crawling.
// A nil field means no restriction of that kind.
type CrawlRules struct {
	// SeedDomains, when non-empty, requires the URL's host to be a member.
	SeedDomains map[string]struct{}
	// BlockedPatterns reject a URL when any pattern matches.
	BlockedPatterns []string
	// AllowedPatterns, when non-empty, require at least one match.
	AllowedPatterns []string
}

// patternCache memoizes compiled case-insensitive patterns. Filter rules
// are small fixed sets consulted for every discovered link.
var patternCache sync.Map

func compilePattern(pattern string) *regexp.Regexp {
	if cached, ok := patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp)
	}

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		// Invalid patterns never match.
		re = regexp.MustCompile(`$a`)
	}

	patternCache.Store(pattern, re)
	return re
}

// MatchesAny reports whether any of the patterns matches the URL,
// case-insensitively.
func MatchesAny(rawURL string, patterns []string) bool {
	for _, pattern := range patterns {
		if compilePattern(pattern).MatchString(rawURL) {
			return true
		}
	}
	return false
}

// ShouldCrawl applies the crawl rules to a URL. Invalid URLs are always
// rejected. With no allow or block patterns every valid URL is accepted.
func ShouldCrawl(rawURL string, rules CrawlRules) bool {
	if !IsValid(rawURL) {
		return false
	}

	if len(rules.SeedDomains) > 0 {
		if _, ok := rules.SeedDomains[ExtractHost(rawURL)]; !ok {
			return false
		}
	}

	if MatchesAny(rawURL, rules.BlockedPatterns) {
		return false
	}

	if len(rules.AllowedPatterns) > 0 {
		return MatchesAny(rawURL, rules.AllowedPatterns)
	}

	return true
}

// HasExcludedExtension reports whether the URL path ends with one of the
// given file extensions, case-insensitively.
func HasExcludedExtension(rawURL string, extensions []string) bool {
	path := lowerPath(rawURL)
	for _, ext := range extensions {
		if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}
