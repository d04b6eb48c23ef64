package urlutil

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// DomainInfo describes the parts of a URL's hostname according to the
// public suffix list.
type DomainInfo struct {
	Domain           string
	Subdomain        string
	Suffix           string
	RegisteredDomain string
}

// GetDomainInfo splits the URL's hostname into subdomain, domain, and
// public suffix. When the host has no recognizable registered domain the
// whole host is returned as both Domain and RegisteredDomain.
func GetDomainInfo(rawURL string) DomainInfo {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return DomainInfo{}
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return DomainInfo{}
	}

	registered, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return DomainInfo{Domain: host, RegisteredDomain: host}
	}

	suffix, _ := publicsuffix.PublicSuffix(host)
	domain := strings.TrimSuffix(registered, "."+suffix)

	var subdomain string
	if host != registered {
		subdomain = strings.TrimSuffix(host, "."+registered)
	}

	return DomainInfo{
		Domain:           domain,
		Subdomain:        subdomain,
		Suffix:           suffix,
		RegisteredDomain: registered,
	}
}

// SameDomain reports whether two URLs share a host.
func SameDomain(url1, url2 string) bool {
	host1 := ExtractHost(url1)
	host2 := ExtractHost(url2)
	return host1 != "" && host1 == host2
}
