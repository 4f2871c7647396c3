package urlfilter

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// NormalizeURL removes the fragment and any trailing slashes unless the
// path is exactly "/".
func NormalizeURL(rawURL string) string {
	normalized, _, _ := strings.Cut(rawURL, "#")

	path := ""
	if u, err := url.Parse(normalized); err == nil {
		path = u.Path
	}
	if strings.HasSuffix(normalized, "/") && path != "/" {
		normalized = strings.TrimRight(normalized, "/")
	}
	return normalized
}

// Domain returns "scheme://host[:port]" for a URL. Unparsable URLs yield "://".
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "://"
	}
	return u.Scheme + "://" + u.Host
}

// IsValidURL reports whether the URL uses the http or https scheme.
func IsValidURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// HasSchemeAndHost reports whether the URL has both a scheme and a host.
func HasSchemeAndHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// SameDomain reports whether two URLs share a domain.
//
// When other carries an http or https scheme, the scheme://host[:port] parts
// must be equal. Otherwise other is treated as a bare host ("example.com")
// and matches when the domain of u ends with it.
func SameDomain(u, other string) bool {
	d := Domain(u)
	if !strings.HasPrefix(other, "http://") && !strings.HasPrefix(other, "https://") {
		return strings.HasSuffix(d, other) || d == "https://"+other || d == "http://"+other
	}
	return d == Domain(other)
}

// SameSite reports whether two URLs belong to the same registrable domain
// (eTLD+1), so "docs.example.co.uk" and "www.example.co.uk" match.
// Hosts without a registrable domain (IP addresses, localhost) must be equal.
func SameSite(u, other string) bool {
	h1, ok1 := hostname(u)
	h2, ok2 := hostname(other)
	if !ok1 || !ok2 {
		return false
	}
	if strings.EqualFold(h1, h2) {
		return true
	}
	s1, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(h1))
	if err != nil {
		return false
	}
	s2, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(h2))
	if err != nil {
		return false
	}
	return s1 == s2
}

func hostname(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	return u.Hostname(), true
}
