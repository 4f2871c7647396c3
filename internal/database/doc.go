// Package database provides SQLite-based storage for crawl runs.
//
// CrawlDB stores:
//   - Runs: start URL, extractor kind, crawl statistics and the full result
//     as JSON
//   - Chunks: the RAG chunks of a run, in extraction order, so they can be
//     exported to a RAG framework later without crawling again
//
// Design decision: SQLite (via modernc.org/sqlite) keeps the store a single
// CGO-free file under the XDG data directory. WAL mode is enabled by default.
package database
