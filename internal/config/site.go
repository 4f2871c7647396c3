package config

import (
	"sort"
)

// SiteConfig holds the crawl settings of a single site.
// Zero values mean "inherit": from File.Defaults when loaded from a site
// file, and from Config when the crawl starts.
type SiteConfig struct {
	// URL is the start URL of the crawl. When sites are loaded from a file
	// the map key is used if URL is empty.
	URL string `yaml:"url,omitempty"`

	// MaxPages overrides the page budget for this site.
	MaxPages int `yaml:"max_pages,omitempty"`

	// MaxDepth overrides the crawl depth for this site.
	MaxDepth *int `yaml:"max_depth,omitempty"`

	// StayWithinDomain overrides the domain restriction for this site.
	StayWithinDomain *bool `yaml:"stay_within_domain,omitempty"`

	// AllowSubdomains treats hosts sharing the registrable domain as the
	// same domain (docs.example.com and www.example.com).
	AllowSubdomains bool `yaml:"allow_subdomains,omitempty"`

	// IgnorePatterns are URL path glob patterns to skip during crawling.
	IgnorePatterns []string `yaml:"ignore_patterns,omitempty"`

	// FollowPatterns are URL path glob patterns to follow. If set, only
	// matching URLs are crawled.
	FollowPatterns []string `yaml:"follow_patterns,omitempty"`

	// Headers are extra HTTP headers sent to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Cookie is a raw cookie string ("name=value; other=value").
	Cookie string `yaml:"cookie,omitempty"`

	// Filter is an additional URL predicate set from code.
	Filter func(string) bool `yaml:"-"`
}

// File represents the structure of the .webscraper.yaml configuration file.
type File struct {
	// Defaults is applied to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites maps start URLs to their site-specific configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`
}

// GetSiteConfig returns the configuration for a start URL, merged with
// the defaults. Entries match on their map key or on their url field.
func (cf *File) GetSiteConfig(siteURL string) SiteConfig {
	merged := cf.Defaults
	if site, ok := cf.lookup(siteURL); ok {
		merged = MergeSiteConfig(cf.Defaults, site)
	}
	merged.URL = siteURL
	return merged
}

func (cf *File) lookup(siteURL string) (SiteConfig, bool) {
	if site, ok := cf.Sites[siteURL]; ok {
		return site, true
	}
	for _, site := range cf.Sites {
		if site.URL == siteURL {
			return site, true
		}
	}
	return SiteConfig{}, false
}

// SiteList returns every site in the file, merged with the defaults and
// sorted by URL. An entry's url field takes precedence over its key.
func (cf *File) SiteList() []SiteConfig {
	sites := make([]SiteConfig, 0, len(cf.Sites))
	for key, site := range cf.Sites {
		merged := MergeSiteConfig(cf.Defaults, site)
		merged.URL = key
		if site.URL != "" {
			merged.URL = site.URL
		}
		sites = append(sites, merged)
	}
	sort.Slice(sites, func(i, j int) bool {
		return sites[i].URL < sites[j].URL
	})
	return sites
}

// MergeSiteConfig merges override on top of defaults. Non-zero override
// values win; headers are merged key by key.
func MergeSiteConfig(defaults, override SiteConfig) SiteConfig {
	result := defaults

	if override.URL != "" {
		result.URL = override.URL
	}
	if override.MaxPages > 0 {
		result.MaxPages = override.MaxPages
	}
	if override.MaxDepth != nil {
		result.MaxDepth = override.MaxDepth
	}
	if override.StayWithinDomain != nil {
		result.StayWithinDomain = override.StayWithinDomain
	}
	if override.AllowSubdomains {
		result.AllowSubdomains = true
	}
	if override.Cookie != "" {
		result.Cookie = override.Cookie
	}
	if len(override.Headers) > 0 {
		headers := make(map[string]string, len(defaults.Headers)+len(override.Headers))
		for k, v := range defaults.Headers {
			headers[k] = v
		}
		for k, v := range override.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}
	if len(override.IgnorePatterns) > 0 {
		result.IgnorePatterns = override.IgnorePatterns
	}
	if len(override.FollowPatterns) > 0 {
		result.FollowPatterns = override.FollowPatterns
	}
	if override.Filter != nil {
		result.Filter = override.Filter
	}

	return result
}
