package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/webscraper/internal/crawler"
	"github.com/nao1215/webscraper/internal/extractor"
)

func createTestReport() *Report {
	depth := 2
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &Report{
		StartURL:         "https://docs.example.com",
		Extractor:        "rag",
		MaxPages:         500,
		MaxDepth:         &depth,
		StayWithinDomain: true,
		StartedAt:        started,
		CompletedAt:      started.Add(90 * time.Second),
		Stats:            crawler.Stats{VisitedCount: 4, QueuedCount: 1, CollectedCount: 4, DataCount: 6},
		URLStats: crawler.URLStatistics{
			TotalURLs: 5, VisitedURLs: 4, QueuedURLs: 1,
			VisitedPercentage: 80, QueuedPercentage: 20,
		},
		RAGStats: &extractor.RAGStats{
			TotalChunks: 6, AvgChunkSize: 320.5, MinChunkSize: 40, MaxChunkSize: 510, ChunksPerPage: 1.5,
		},
		SampleChunks: []extractor.Chunk{
			{Title: "Guide > Setup", URL: "https://docs.example.com/setup", Text: strings.Repeat("x", 150), ChunkID: "https://docs.example.com/setup#Guide-Setup"},
			{URL: "https://docs.example.com/faq", Text: "Short answer."},
			{Title: "Third", URL: "https://docs.example.com/3", Text: "three"},
			{Title: "Fourth", URL: "https://docs.example.com/4", Text: "four"},
		},
	}
}

func TestTextWriter(t *testing.T) {
	t.Parallel()

	t.Run("summary and samples", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.String()
		for _, want := range []string{
			"Crawl completed successfully!",
			"URLs visited: 4",
			"Chunks extracted: 6",
			"Duration: 1m30s",
			"Sample chunks (first 3):",
			"Chunk 3:",
			"Title: N/A",
			"Text preview: " + strings.Repeat("x", 100) + "...",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
		if strings.Contains(out, "Chunk 4:") {
			t.Error("expected only three sample chunks")
		}
	})

	t.Run("stopped crawl without chunks", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Error = "context canceled"
		report.RAGStats = nil
		report.SampleChunks = nil

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf, WithSampleChunks(1)).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "Crawl stopped early: context canceled") {
			t.Errorf("expected stop message, got:\n%s", out)
		}
		if strings.Contains(out, "Sample chunks") || strings.Contains(out, "Chunks extracted") {
			t.Errorf("expected no chunk sections, got:\n%s", out)
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Errorf("expected a single line, got %q", buf.String())
		}

		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		for _, key := range []string{"start_url", "stats", "url_statistics", "rag_stats", "sample_chunks"} {
			if _, ok := decoded[key]; !ok {
				t.Errorf("expected key %q", key)
			}
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Encode(map[string]string{"q": "a&b"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "{\n  \"q\": \"a&b\"\n}\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n, err := NewMarkdownWriter(&buf).Write(createTestReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n == 0 {
		t.Error("expected bytes written")
	}

	out := buf.String()
	for _, want := range []string{
		"# Crawl Report",
		"https://docs.example.com",
		"## URLs",
		"```mermaid",
		"pie",
		"Visited",
		"## Chunks",
		"## Sample Chunks",
		"### Guide",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in markdown:\n%s", want, out)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write(*Report) (int, error) {
	return 0, errors.New("disk full")
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, js bytes.Buffer
	m := NewMultiWriter(NewTextWriter(&text), NewJSONWriter(&js))
	n, err := m.Write(createTestReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != text.Len()+js.Len() {
		t.Errorf("expected total bytes %d, got %d", text.Len()+js.Len(), n)
	}

	var after bytes.Buffer
	m = NewMultiWriter(failingWriter{}, NewTextWriter(&after))
	if _, err := m.Write(createTestReport()); err == nil {
		t.Error("expected error")
	}
	if after.Len() != 0 {
		t.Error("expected writers after a failure to be skipped")
	}
}
