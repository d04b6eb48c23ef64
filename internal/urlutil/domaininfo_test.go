package urlutil_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"webharvest/internal/urlutil"
)

func TestGetDomainInfo(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want urlutil.DomainInfo
	}{
		{
			"plain domain",
			"https://example.com/path",
			urlutil.DomainInfo{Domain: "example", Suffix: "com", RegisteredDomain: "example.com"},
		},
		{
			"subdomain",
			"https://blog.example.com/post",
			urlutil.DomainInfo{
				Domain: "example", Subdomain: "blog",
				Suffix: "com", RegisteredDomain: "example.com",
			},
		},
		{
			"multi-part suffix",
			"https://news.bbc.co.uk",
			urlutil.DomainInfo{
				Domain: "bbc", Subdomain: "news",
				Suffix: "co.uk", RegisteredDomain: "bbc.co.uk",
			},
		},
		{"unparseable", "://bad", urlutil.DomainInfo{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, urlutil.GetDomainInfo(tt.url))
		})
	}
}

func TestSameDomain(t *testing.T) {
	assert.True(t, urlutil.SameDomain("https://example.com/a", "http://EXAMPLE.com/b"))
	assert.False(t, urlutil.SameDomain("https://example.com/a", "https://other.com/a"))
	assert.False(t, urlutil.SameDomain("://bad", "://bad"))
}

func TestRateLimitDelay(t *testing.T) {
	def := 1 * time.Second

	tests := []struct {
		name   string
		domain string
		want   time.Duration
	}{
		{"listed domain", "wikipedia.org", 500 * time.Millisecond},
		{"subdomain inherits override", "en.wikipedia.org", 500 * time.Millisecond},
		{"case-insensitive", "GitHub.com", 1 * time.Second},
		{"slow domain", "twitter.com", 5 * time.Second},
		{"unlisted uses default", "example.com", def},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, urlutil.RateLimitDelay(tt.domain, def))
		})
	}
}
