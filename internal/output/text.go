package output

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// textPreviewLength is the number of characters of chunk text shown.
const textPreviewLength = 100

// TextWriter renders reports as plain text for terminal display.
type TextWriter struct {
	baseWriter

	// samples is the number of sample chunks printed.
	samples int
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithSampleChunks sets how many sample chunks are printed. The default
// is 3.
func WithSampleChunks(n int) TextWriterOption {
	return func(w *TextWriter) {
		w.samples = n
	}
}

// NewTextWriter creates a TextWriter that writes to output.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
		samples:    3,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write renders the report as plain text.
func (w *TextWriter) Write(report *Report) (int, error) {
	var sb strings.Builder

	w.writeSummary(&sb, report)
	w.writeRAGStats(&sb, report)
	w.writeSampleChunks(&sb, report)

	return io.WriteString(w.output, sb.String())
}

func (w *TextWriter) writeSummary(sb *strings.Builder, report *Report) {
	if report.Error != "" {
		fmt.Fprintf(sb, "\nCrawl stopped early: %s\n", report.Error)
	} else {
		sb.WriteString("\nCrawl completed successfully!\n")
	}
	fmt.Fprintf(sb, "URLs visited: %d\n", report.Stats.VisitedCount)
	fmt.Fprintf(sb, "URLs queued: %d\n", report.Stats.QueuedCount)
	fmt.Fprintf(sb, "Records extracted: %d\n", report.Stats.DataCount)
	if d := report.Duration(); d > 0 {
		fmt.Fprintf(sb, "Duration: %s\n", d.Round(time.Millisecond))
	}
}

func (w *TextWriter) writeRAGStats(sb *strings.Builder, report *Report) {
	s := report.RAGStats
	if s == nil {
		return
	}
	fmt.Fprintf(sb, "Chunks extracted: %d\n", s.TotalChunks)
	fmt.Fprintf(sb, "Chunk size: avg %.1f, min %d, max %d\n", s.AvgChunkSize, s.MinChunkSize, s.MaxChunkSize)
	fmt.Fprintf(sb, "Chunks per page: %.2f\n", s.ChunksPerPage)
}

func (w *TextWriter) writeSampleChunks(sb *strings.Builder, report *Report) {
	n := min(w.samples, len(report.SampleChunks))
	if n <= 0 {
		return
	}

	fmt.Fprintf(sb, "\nSample chunks (first %d):\n", n)
	for i, c := range report.SampleChunks[:n] {
		title := c.Title
		if title == "" {
			title = "N/A"
		}
		fmt.Fprintf(sb, "\nChunk %d:\n", i+1)
		fmt.Fprintf(sb, "  Title: %s\n", title)
		fmt.Fprintf(sb, "  URL: %s\n", c.URL)
		fmt.Fprintf(sb, "  Text preview: %s\n", preview(c.Text, textPreviewLength))
	}
}
