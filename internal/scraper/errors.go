package scraper

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL is returned when a page URL is not an absolute http or
	// https URL.
	ErrInvalidURL = errors.New("invalid page URL: must be an absolute http or https URL")

	// ErrDisallowedByRobots is returned when robots.txt support is enabled
	// and the site's rules do not allow the configured user agent to fetch
	// the page.
	ErrDisallowedByRobots = errors.New("disallowed by robots.txt")

	// ErrUnsupportedProxy is returned when the proxy URL scheme is not one of
	// http, https, socks5 or socks5h.
	ErrUnsupportedProxy = errors.New("unsupported proxy scheme: expected http, https, socks5 or socks5h")
)

// StatusError is returned when a server answers with a 4xx or 5xx status.
type StatusError struct {
	// URL is the requested page.
	URL string

	// StatusCode is the HTTP status code of the response.
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}
