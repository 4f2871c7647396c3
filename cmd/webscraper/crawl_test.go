package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/webscraper/internal/config"
	"github.com/nao1215/webscraper/internal/extractor"
)

func TestDefaultCrawlName(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 9, 30, 5, 0, time.UTC)
	if got := defaultCrawlName("http://127.0.0.1:8080/docs", now); got != "crawl_127.0.0.1_8080_20260301_093005" {
		t.Errorf("unexpected name %q", got)
	}
}

func TestChunksOf(t *testing.T) {
	t.Parallel()

	data := []any{
		extractor.Chunk{Text: "a"},
		map[string]any{"title": "not a chunk"},
		extractor.Chunk{Text: "b"},
	}
	chunks := chunksOf(data)
	if len(chunks) != 2 || chunks[0].Text != "a" || chunks[1].Text != "b" {
		t.Errorf("unexpected chunks %+v", chunks)
	}
	if chunksOf(nil) != nil {
		t.Error("expected nil for no data")
	}
}

func TestCrawlOptions(t *testing.T) {
	t.Parallel()

	three := 3
	notStay := false
	cfg := config.NewConfig()
	cfg.MaxPages = 40

	tests := []struct {
		name      string
		args      []string
		site      config.SiteConfig
		wantPages int
		wantDepth *int
		wantStay  bool
	}{
		{
			name:      "configuration",
			wantPages: 40,
			wantDepth: cfg.MaxDepth,
			wantStay:  cfg.StayWithinDomain,
		},
		{
			name:      "site file overrides configuration",
			site:      config.SiteConfig{MaxPages: 10, MaxDepth: &three, StayWithinDomain: &notStay},
			wantPages: 10,
			wantDepth: &three,
			wantStay:  false,
		},
		{
			name:      "flags override site file",
			args:      []string{"--max-pages", "5", "--max-depth", "1", "--stay-within-domain=true"},
			site:      config.SiteConfig{MaxPages: 10, MaxDepth: &three, StayWithinDomain: &notStay},
			wantPages: 5,
			wantDepth: func() *int { d := 1; return &d }(),
			wantStay:  true,
		},
		{
			name:      "zero depth flag means unlimited",
			args:      []string{"--max-depth", "0"},
			site:      config.SiteConfig{MaxDepth: &three},
			wantPages: 40,
			wantDepth: nil,
			wantStay:  cfg.StayWithinDomain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewCrawlCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("failed to parse flags: %v", err)
			}

			opts, err := crawlOptions(cmd, cfg, tt.site)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *opts.MaxPages != tt.wantPages {
				t.Errorf("expected max pages %d, got %d", tt.wantPages, *opts.MaxPages)
			}
			switch {
			case tt.wantDepth == nil && opts.MaxDepth != nil:
				t.Errorf("expected unlimited depth, got %d", *opts.MaxDepth)
			case tt.wantDepth != nil && (opts.MaxDepth == nil || *opts.MaxDepth != *tt.wantDepth):
				t.Errorf("expected depth %d, got %v", *tt.wantDepth, opts.MaxDepth)
			}
			if *opts.StayWithinDomain != tt.wantStay {
				t.Errorf("expected stay within domain %v, got %v", tt.wantStay, *opts.StayWithinDomain)
			}
		})
	}

	t.Run("URL filters", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--ignore", "/private/*", "--match", `^https://example\.com/`}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}
		site := config.SiteConfig{IgnorePatterns: []string{"/tags/*"}}

		opts, err := crawlOptions(cmd, cfg, site)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		filterTests := map[string]bool{
			"https://example.com/guide":     true,
			"https://example.com/private/x": false,
			"https://example.com/tags/go":   false,
			"https://other.example.org/":    false,
		}
		for u, want := range filterTests {
			if got := opts.URLFilter(u); got != want {
				t.Errorf("filter(%q) = %v, want %v", u, got, want)
			}
		}
		if len(site.IgnorePatterns) != 1 {
			t.Error("site patterns were modified")
		}
	})

	t.Run("invalid regular expression", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--match", "("}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}
		if _, err := crawlOptions(cmd, cfg, config.SiteConfig{}); err == nil {
			t.Error("expected error for invalid expression")
		}
	})
}

func TestRunCrawlCmd(t *testing.T) {
	t.Parallel()

	srv := newTestSite(t)

	t.Run("saves JSON results and a Markdown report", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		reportPath := filepath.Join(dir, "report.md")
		stdout, _, err := executeCommand(t, "--output-dir", dir,
			"crawl", srv.URL, "-n", "site", "-m", reportPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, want := range []string{"Crawl completed successfully!", "URLs visited: 3", "Markdown report saved to:"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, stdout)
			}
		}

		data, err := os.ReadFile(filepath.Join(dir, "site.json"))
		if err != nil {
			t.Fatalf("failed to read results: %v", err)
		}
		var records []map[string]any
		if err := json.Unmarshal(data, &records); err != nil {
			t.Fatalf("results are not a JSON array: %v", err)
		}
		if len(records) != 3 {
			t.Errorf("expected 3 records, got %d", len(records))
		}

		report, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(report), srv.URL) {
			t.Error("expected report to mention the start URL")
		}
	})

	t.Run("saves rag chunks as CSV", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		stdout, _, err := executeCommand(t, "--output-dir", dir,
			"crawl", srv.URL, "-e", "rag", "-f", "csv", "-n", "chunks")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "Chunks extracted:") {
			t.Errorf("expected chunk statistics, got:\n%s", stdout)
		}

		data, err := os.ReadFile(filepath.Join(dir, "chunks.csv"))
		if err != nil {
			t.Fatalf("failed to read results: %v", err)
		}
		header, _, _ := strings.Cut(string(data), "\n")
		if !strings.Contains(header, "chunk_id") {
			t.Errorf("expected chunk columns in header, got %q", header)
		}
	})

	t.Run("unknown extractor", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeCommand(t, "--output-dir", t.TempDir(), "crawl", srv.URL, "-e", "pdf")
		if err == nil {
			t.Error("expected error for unknown extractor")
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeCommand(t, "--output-dir", t.TempDir(), "crawl", srv.URL, "-f", "xml")
		if err == nil {
			t.Error("expected error for unknown format")
		}
	})
}
