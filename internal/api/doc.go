// Package api provides high level entry points that wire a fetcher, an
// extractor and a crawler together.
//
// Scraper summarizes pages and crawls sites with the basic extractor or a
// custom one. RAGScraper crawls sites into heading-aware chunks and exports
// them for retrieval frameworks.
//
// Both types create their fetcher lazily on first use and keep the state of
// the last crawl for later queries. Close releases the fetcher; the next
// call creates a new one.
package api
