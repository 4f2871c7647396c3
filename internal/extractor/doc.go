// Package extractor derives structured records from parsed pages.
//
// An Extractor[T] turns one page into zero or more records of type T:
//   - Basic produces one PageSummary per page (title, text length, link count)
//   - RAG splits the main content into heading-aware Chunks sized for
//     retrieval-augmented generation
//   - Article keeps the readable article body found by go-readability
//   - Markdown converts the main content to GitHub flavoured Markdown
//
// Extraction errors are reported through ErrorReporter when the extractor
// implements it, and logged otherwise. The crawler skips the page's data
// either way and keeps following its links.
package extractor
