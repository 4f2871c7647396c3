// Package scraper fetches single web pages and parses them into goquery
// documents.
//
// A Scraper owns an HTTP client (cookie jar, redirect limit, optional HTTP
// or SOCKS5 proxy), a request rate limiter and an optional robots.txt
// cache. Every fetch failure is logged and returned; callers such as the
// crawler treat any error as "no page" and move on.
//
// After each successful fetch the scraper pauses for the configured delay.
// Failed fetches do not pause.
package scraper
