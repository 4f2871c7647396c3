// Package urlfilter provides URL normalization, domain comparison and the
// URL predicates used to decide which links a crawl follows.
//
// Normalization is deliberately light: it removes the fragment and a trailing
// slash so that "https://example.com/docs/" and "https://example.com/docs#intro"
// are recorded once. Scheme, host and query are left untouched.
package urlfilter
