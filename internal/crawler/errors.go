package crawler

import "errors"

// ErrInvalidStartURL is returned by Crawl when the start URL is not an
// absolute http or https URL.
var ErrInvalidStartURL = errors.New("invalid start URL")
