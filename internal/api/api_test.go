package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/webscraper/internal/config"
	"github.com/nao1215/webscraper/internal/extractor"
	"github.com/nao1215/webscraper/internal/output"
)

var sitePages = map[string]string{
	"/": `<html><head><title>Home</title></head><body>
		<main><h1>Welcome</h1><p>Start with the installation guide.</p></main>
		<a href="/install">Install</a>
		<a href="/faq">FAQ</a>
		<a href="https://external.example.org/">External</a>
	</body></html>`,
	"/install": `<html><head><title>Install</title></head><body>
		<main><h1>Install</h1><h2>Linux</h2><p>Download the binary.</p><h2>macOS</h2><p>Use Homebrew.</p></main>
		<a href="/">Home</a>
	</body></html>`,
	"/faq": `<html><head><title>FAQ</title></head><body>
		<main><h1>FAQ</h1><p>Questions about installation go here.</p></main>
	</body></html>`,
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := sitePages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Delay = 0
	cfg.MaxRequestsPerMinute = 0
	cfg.OutputDir = t.TempDir()
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScraperScrapePage(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	s := New(testConfig(t), WithLogger(quietLogger()))
	t.Cleanup(s.Close)

	info, err := s.ScrapePage(t.Context(), srv.URL+"/")
	if err != nil {
		t.Fatalf("ScrapePage failed: %v", err)
	}
	if info.Title != "Home" || info.LinkCount != 3 || info.Status != "success" {
		t.Errorf("unexpected page info %+v", info)
	}
	if info.TextLength == 0 {
		t.Error("expected text length")
	}

	if _, err := s.ScrapePage(t.Context(), srv.URL+"/missing"); err == nil {
		t.Error("expected error for a missing page")
	}
}

func TestScraperBeforeCrawl(t *testing.T) {
	t.Parallel()

	s := New(testConfig(t), WithLogger(quietLogger()))
	if _, err := s.URLStatistics(); !errors.Is(err, ErrNoCrawl) {
		t.Errorf("expected ErrNoCrawl, got %v", err)
	}
	if _, err := s.SaveResults("results", output.FormatJSON); !errors.Is(err, ErrNoCrawl) {
		t.Errorf("expected ErrNoCrawl, got %v", err)
	}
	if s.AllURLs() != nil || s.VisitedURLs() != nil {
		t.Error("expected no URLs before a crawl")
	}
}

func TestScraperCrawlSite(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	cfg := testConfig(t)
	s := New(cfg, WithLogger(quietLogger()))
	t.Cleanup(s.Close)

	result, err := s.CrawlSite(t.Context(), srv.URL+"/", CrawlOptions{})
	if err != nil {
		t.Fatalf("CrawlSite failed: %v", err)
	}
	if result.Stats.VisitedCount != 3 || result.Stats.DataCount != 3 {
		t.Errorf("unexpected stats %+v", result.Stats)
	}
	if _, ok := result.Data[0].(extractor.PageSummary); !ok {
		t.Errorf("expected page summaries, got %T", result.Data[0])
	}

	stats, err := s.URLStatistics()
	if err != nil {
		t.Fatalf("URLStatistics failed: %v", err)
	}
	if stats.VisitedURLs != 3 || stats.VisitedPercentage != 100 {
		t.Errorf("unexpected statistics %+v", stats)
	}
	if len(s.VisitedURLs()) != 3 || len(s.AllURLs()) != 3 {
		t.Errorf("unexpected URL lists %v / %v", s.VisitedURLs(), s.AllURLs())
	}

	path, err := s.SaveResults("site", output.FormatJSON)
	if err != nil {
		t.Fatalf("SaveResults failed: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	var saved []map[string]any
	if err := json.Unmarshal(raw, &saved); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(saved) != 3 || saved[0]["title"] != "Home" {
		t.Errorf("unexpected saved data %v", saved)
	}

	if _, err := s.SaveResults("site", "xml"); !errors.Is(err, output.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestScraperCrawlOptions(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	s := New(testConfig(t), WithLogger(quietLogger()))
	t.Cleanup(s.Close)

	one := 1
	result, err := s.CrawlSite(t.Context(), srv.URL+"/", CrawlOptions{MaxPages: &one})
	if err != nil {
		t.Fatalf("CrawlSite failed: %v", err)
	}
	if result.Stats.VisitedCount != 1 || result.Stats.QueuedCount != 2 {
		t.Errorf("unexpected stats %+v", result.Stats)
	}

	result, err = s.CrawlSite(t.Context(), srv.URL+"/", CrawlOptions{
		URLFilter: func(u string) bool { return !strings.HasSuffix(u, "/faq") },
	})
	if err != nil {
		t.Fatalf("CrawlSite failed: %v", err)
	}
	if result.Stats.VisitedCount != 2 {
		t.Errorf("expected the filter to skip /faq, got %v", result.URLs)
	}
}

func TestScraperCustomExtractor(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	s := New(testConfig(t), WithLogger(quietLogger()))
	t.Cleanup(s.Close)

	headings := extractor.Func[any](func(_ string, doc *goquery.Document, _ extractor.Metadata) ([]any, error) {
		return []any{doc.Find("h1").First().Text()}, nil
	})
	s.SetCustomExtractor(headings)

	zero := 0
	result, err := s.CrawlSite(t.Context(), srv.URL+"/", CrawlOptions{MaxDepth: &zero})
	if err != nil {
		t.Fatalf("CrawlSite failed: %v", err)
	}
	if len(result.Data) != 1 || result.Data[0] != "Welcome" {
		t.Errorf("expected custom extractor output, got %v", result.Data)
	}

	empty := extractor.Func[any](func(string, *goquery.Document, extractor.Metadata) ([]any, error) {
		return nil, nil
	})
	s.SetCustomExtractor(empty)
	if _, err := s.CrawlSite(t.Context(), srv.URL+"/", CrawlOptions{MaxDepth: &zero}); err != nil {
		t.Fatalf("CrawlSite failed: %v", err)
	}
	if _, err := s.SaveResults("empty", output.FormatJSON); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestNilConfigReadsEnvironment(t *testing.T) {
	t.Setenv(config.EnvChunkSize, "320")
	config.Reset()
	t.Cleanup(config.Reset)

	r := NewRAG(nil, WithLogger(quietLogger()))
	t.Cleanup(r.Close)

	if r.ChunkSize() != 320 {
		t.Errorf("expected chunk size 320 from SCRAPER_CHUNK_SIZE, got %d", r.ChunkSize())
	}
}

func TestRAGScraper(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	r := NewRAG(testConfig(t), WithLogger(quietLogger()), WithChunkSize(200))
	t.Cleanup(r.Close)

	if r.ChunkSize() != 200 {
		t.Errorf("expected chunk size 200, got %d", r.ChunkSize())
	}
	if _, err := r.ChunkStatistics(); !errors.Is(err, ErrNoChunks) {
		t.Errorf("expected ErrNoChunks before a crawl, got %v", err)
	}

	result, err := r.CrawlForRAG(t.Context(), srv.URL+"/", RAGCrawlOptions{})
	if err != nil {
		t.Fatalf("CrawlForRAG failed: %v", err)
	}
	if result.Stats.VisitedCount != 3 {
		t.Errorf("expected 3 pages, got %+v", result.Stats)
	}
	// Home and FAQ give one chunk each; Install gives one per h2.
	if len(result.Data) != 4 {
		t.Fatalf("expected 4 chunks, got %d: %+v", len(result.Data), result.Data)
	}
	if result.RAGStats == nil || result.RAGStats.TotalChunks != 4 {
		t.Fatalf("unexpected RAG stats %+v", result.RAGStats)
	}
	if want := 4.0 / 3.0; result.RAGStats.ChunksPerPage != want {
		t.Errorf("expected %v chunks per page, got %v", want, result.RAGStats.ChunksPerPage)
	}

	install := r.ChunksByPage(srv.URL + "/install")
	if len(install) != 2 || install[0].Title != "Install > Linux" {
		t.Errorf("unexpected install chunks %+v", install)
	}
	if got := r.ChunksByTopic("INSTALLATION"); len(got) != 2 {
		t.Errorf("expected 2 chunks about installation, got %d", len(got))
	}

	stats, err := r.ChunkStatistics()
	if err != nil {
		t.Fatalf("ChunkStatistics failed: %v", err)
	}
	if stats.UniquePages != 3 || stats.ChunksWithH2 != 2 {
		t.Errorf("unexpected statistics %+v", stats)
	}

	path, err := r.SaveChunks("chunks", output.FormatCSV)
	if err != nil {
		t.Fatalf("SaveChunks failed: %v", err)
	}
	if !strings.HasSuffix(path, "chunks.csv") {
		t.Errorf("unexpected path %q", path)
	}
}

func TestRAGScraperExtractFromPage(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	r := NewRAG(testConfig(t), WithLogger(quietLogger()))
	t.Cleanup(r.Close)

	chunks, err := r.ExtractFromPage(t.Context(), srv.URL+"/install")
	if err != nil {
		t.Fatalf("ExtractFromPage failed: %v", err)
	}
	if len(chunks) != 2 || chunks[0].Depth != 0 {
		t.Errorf("unexpected chunks %+v", chunks)
	}

	chunks, err = r.ExtractFromPage(t.Context(), srv.URL+"/missing")
	if err == nil || len(chunks) != 0 {
		t.Errorf("expected an error and no chunks, got %v, %v", chunks, err)
	}
}

func TestExportChunks(t *testing.T) {
	t.Parallel()

	chunks := []extractor.Chunk{{
		Text: "Use Homebrew.", Title: "Install > macOS", H1: "Install", H2: "macOS",
		URL: "https://example.com/install", ChunkID: "https://example.com/install#Install-macOS", CharCount: 13,
	}}

	t.Run("langchain", func(t *testing.T) {
		t.Parallel()

		docs := ExportChunks(chunks, "LangChain")
		doc, ok := docs[0].(LangChainDocument)
		if !ok {
			t.Fatalf("expected LangChainDocument, got %T", docs[0])
		}
		if doc.PageContent != "Use Homebrew." || doc.Metadata.Source != chunks[0].URL || doc.Metadata.CharCount != 13 {
			t.Errorf("unexpected document %+v", doc)
		}
	})

	t.Run("llamaindex", func(t *testing.T) {
		t.Parallel()

		docs := ExportChunks(chunks, "llamaindex")
		doc, ok := docs[0].(LlamaIndexDocument)
		if !ok {
			t.Fatalf("expected LlamaIndexDocument, got %T", docs[0])
		}
		if strings.Join(doc.Metadata.Headings, "|") != "Install|macOS" {
			t.Errorf("unexpected headings %v", doc.Metadata.Headings)
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if !strings.Contains(string(raw), `"headings":["Install","macOS"]`) {
			t.Errorf("unexpected JSON %s", raw)
		}
	})

	t.Run("unknown framework returns chunks", func(t *testing.T) {
		t.Parallel()

		docs := ExportChunks(chunks, "haystack")
		if _, ok := docs[0].(extractor.Chunk); !ok {
			t.Errorf("expected raw chunk, got %T", docs[0])
		}
	})
}
