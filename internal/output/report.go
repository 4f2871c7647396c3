package output

import (
	"io"
	"time"

	"github.com/nao1215/webscraper/internal/crawler"
	"github.com/nao1215/webscraper/internal/extractor"
)

// Report describes a finished crawl.
type Report struct {
	StartURL         string    `json:"start_url"`
	Extractor        string    `json:"extractor"`
	MaxPages         int       `json:"max_pages"`
	MaxDepth         *int      `json:"max_depth"`
	StayWithinDomain bool      `json:"stay_within_domain"`
	StartedAt        time.Time `json:"started_at"`
	CompletedAt      time.Time `json:"completed_at"`

	Stats    crawler.Stats         `json:"stats"`
	URLStats crawler.URLStatistics `json:"url_statistics"`

	// RAGStats is set for crawls that produced chunks.
	RAGStats *extractor.RAGStats `json:"rag_stats,omitempty"`

	// SampleChunks holds the first chunks of the crawl for preview.
	SampleChunks []extractor.Chunk `json:"sample_chunks,omitempty"`

	// Error is set when the crawl stopped early.
	Error string `json:"error,omitempty"`
}

// Duration returns how long the crawl took.
func (r *Report) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// ReportWriter renders crawl reports.
//
// Design decision: We use an interface to allow different output formats
// and destinations. The CLI writes text to the terminal and Markdown to a
// file through the same call.
type ReportWriter interface {
	// Write renders the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *Report) (int, error)
}

// MultiWriter writes a report to several ReportWriters.
type MultiWriter struct {
	writers []ReportWriter
}

// NewMultiWriter creates a ReportWriter that writes to all given writers.
func NewMultiWriter(writers ...ReportWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write renders the report with every writer, stopping at the first error.
func (m *MultiWriter) Write(report *Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// preview shortens s to at most n characters, appending "..." when it was
// cut.
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
