package urlfilter

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// Func decides whether a URL should be crawled.
type Func func(rawURL string) bool

// All combines filters; a URL passes only if every non-nil filter accepts it.
// It returns nil when no filter is given, which callers treat as "accept".
func All(filters ...Func) Func {
	var active []Func
	for _, f := range filters {
		if f != nil {
			active = append(active, f)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(rawURL string) bool {
		for _, f := range active {
			if !f(rawURL) {
				return false
			}
		}
		return true
	}
}

// PatternFilter builds a filter from glob patterns matched against the URL
// path.
//
// Logic:
//  1. If the path matches any ignore pattern, the URL is rejected
//  2. If follow patterns are set and the path matches none, the URL is rejected
//  3. Otherwise the URL is accepted
//
// It returns nil when both pattern lists are empty.
func PatternFilter(ignore, follow []string) Func {
	if len(ignore) == 0 && len(follow) == 0 {
		return nil
	}
	return func(rawURL string) bool {
		u, err := url.Parse(rawURL)
		if err != nil {
			return false
		}
		path := u.Path
		if path == "" {
			path = "/"
		}

		for _, pattern := range ignore {
			if MatchPattern(pattern, path) {
				return false
			}
		}
		if len(follow) == 0 {
			return true
		}
		for _, pattern := range follow {
			if MatchPattern(pattern, path) {
				return true
			}
		}
		return false
	}
}

// RegexpFilter accepts URLs matching the regular expression.
func RegexpFilter(expr string) (Func, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to compile URL filter %q: %w", expr, err)
	}
	return re.MatchString, nil
}

// MatchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//   - a trailing "/*" to match everything below a directory
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard" and "/admin/users/42"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func MatchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") && strings.HasSuffix(path, strings.TrimPrefix(pattern, "*")) {
		return true
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	// Patterns without a slash also match the last path segment.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}

	return false
}
