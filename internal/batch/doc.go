// Package batch scrapes many pages or crawls many sites concurrently.
//
// Every page or site gets its own fetcher, created by a FetcherFactory, so
// rate limits, politeness delays and cookies never leak between tasks. A
// failing task is recorded in its result and never cancels its siblings.
package batch
