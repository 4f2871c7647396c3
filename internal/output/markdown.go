package output

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// markdownSampleChunks is the number of chunks shown in a Markdown report.
const markdownSampleChunks = 5

// MarkdownWriter renders reports as Markdown.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation, which gives us tables, alerts and mermaid charts without
// hand-formatting.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that writes to output.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write renders the report as Markdown.
func (w *MarkdownWriter) Write(report *Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeURLStatistics(md, report)
	w.writeRAGStats(md, report)
	w.writeSampleChunks(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *Report) {
	md.H1("Crawl Report")
	md.PlainText("")

	maxDepth := "unlimited"
	if report.MaxDepth != nil {
		maxDepth = strconv.Itoa(*report.MaxDepth)
	}
	maxPages := "unlimited"
	if report.MaxPages > 0 {
		maxPages = strconv.Itoa(report.MaxPages)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", "`" + report.StartURL + "`"},
			{"Extractor", report.Extractor},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(time.Millisecond).String()},
			{"Max Pages", maxPages},
			{"Max Depth", maxDepth},
			{"Stay Within Domain", strconv.FormatBool(report.StayWithinDomain)},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")

	if report.Error != "" {
		md.Warningf("The crawl stopped early: %s", report.Error)
		md.PlainText("")
	}
}

func statusText(report *Report) string {
	if report.Error != "" {
		return "Stopped"
	}
	return "Complete"
}

func (w *MarkdownWriter) writeURLStatistics(md *markdown.Markdown, report *Report) {
	md.H2("URLs")
	md.PlainText("")

	s := report.URLStats
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Visited", strconv.Itoa(s.VisitedURLs)},
			{"Queued", strconv.Itoa(s.QueuedURLs)},
			{"Total", strconv.Itoa(s.TotalURLs)},
			{"Visited %", fmt.Sprintf("%.1f", s.VisitedPercentage)},
			{"Records", strconv.Itoa(report.Stats.DataCount)},
		},
	})
	md.PlainText("")

	if s.TotalURLs == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Discovered URLs"),
		piechart.WithShowData(true),
	)
	if s.VisitedURLs > 0 {
		chart.LabelAndIntValue("Visited", uint64(s.VisitedURLs))
	}
	if s.QueuedURLs > 0 {
		chart.LabelAndIntValue("Queued", uint64(s.QueuedURLs))
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeRAGStats(md *markdown.Markdown, report *Report) {
	if report.RAGStats == nil {
		return
	}
	s := report.RAGStats

	md.H2("Chunks")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total Chunks", strconv.Itoa(s.TotalChunks)},
			{"Average Size", fmt.Sprintf("%.1f", s.AvgChunkSize)},
			{"Min Size", strconv.Itoa(s.MinChunkSize)},
			{"Max Size", strconv.Itoa(s.MaxChunkSize)},
			{"Chunks per Page", fmt.Sprintf("%.2f", s.ChunksPerPage)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSampleChunks(md *markdown.Markdown, report *Report) {
	if len(report.SampleChunks) == 0 {
		return
	}

	md.H2("Sample Chunks")
	md.PlainText("")

	for i, c := range report.SampleChunks {
		if i == markdownSampleChunks {
			break
		}
		md.H3(c.Title)
		md.PlainText("")
		md.PlainTextf("Source: %s", c.URL)
		md.PlainText("")
		md.Details(c.ChunkID, c.Text)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by webscraper*")
}
