package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/webscraper/internal/api"
	"github.com/nao1215/webscraper/internal/extractor"
	"github.com/nao1215/webscraper/internal/output"
	"github.com/nao1215/webscraper/internal/urlfilter"
)

const (
	// ragMaxPages is the page budget of the rag command.
	ragMaxPages = 500

	// ragMaxDepth is the crawl depth of the rag command.
	ragMaxDepth = 2

	// ragSampleChunks is the number of chunks printed after a crawl.
	ragSampleChunks = 3
)

// ragCrawlInfo describes a rag run at the top of its output file.
type ragCrawlInfo struct {
	StartURL             string `json:"start_url"`
	MaxPages             int    `json:"max_pages"`
	MaxDepth             int    `json:"max_depth"`
	StayWithinDomain     bool   `json:"stay_within_domain"`
	CrawlTimestamp       string `json:"crawl_timestamp"`
	TotalURLsVisited     int    `json:"total_urls_visited"`
	TotalChunksExtracted int    `json:"total_chunks_extracted"`
}

// ragOutput is the document written by the rag command.
type ragOutput struct {
	CrawlInfo ragCrawlInfo    `json:"crawl_info"`
	Results   *api.RAGResult `json:"results"`
}

// NewRAGCmd creates the rag command.
func NewRAGCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rag <url>",
		Short: "Crawl a website into RAG chunks and save them as JSON",
		Long: `Rag crawls a website within its domain and splits every page into
heading-aware chunks for retrieval-augmented generation.

The results are written to a JSON file holding the crawl parameters
("crawl_info") and the crawl result with every chunk ("results").

Examples:
  # Crawl up to 500 pages, two links deep
  webscraper rag https://docs.example.com

  # Write the chunks to a specific file
  webscraper rag https://docs.example.com -o docs.json

  # Store the run so it can be exported later
  webscraper rag --save-db https://docs.example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runRAGCmd,
	}

	cmd.Flags().StringP("output", "o", "",
		"Output file path (default rag_crawl_<domain>_<timestamp>.json)")
	cmd.Flags().IntP("max-pages", "p", ragMaxPages, "Maximum number of pages to crawl")
	cmd.Flags().IntP("max-depth", "d", ragMaxDepth, "Maximum link depth from the start URL")
	cmd.Flags().Int("chunk-size", 0, "Target chunk size in characters (default from SCRAPER_CHUNK_SIZE)")
	cmd.Flags().Bool("save-db", false, "Store the run and its chunks in the database")
	cmd.Flags().String("db-dir", "", "Database directory (default from SCRAPER_DB_DIR)")

	return cmd
}

func runRAGCmd(cmd *cobra.Command, args []string) error {
	startURL := args[0]
	if err := checkStartURL(startURL); err != nil {
		return err
	}

	app, err := newAppContext(cmd)
	if err != nil {
		return err
	}

	maxPages, _ := cmd.Flags().GetInt("max-pages")
	maxDepth, _ := cmd.Flags().GetInt("max-depth")
	outputPath, _ := cmd.Flags().GetString("output")
	saveDB, _ := cmd.Flags().GetBool("save-db")
	if outputPath == "" {
		outputPath = defaultRAGFilename(startURL, time.Now())
	}

	site := app.sites.GetSiteConfig(startURL)
	rag := api.NewRAG(app.cfg,
		api.WithLogger(app.logger),
		api.WithScraperOptions(siteOptions(site)...),
	)
	defer rag.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Starting RAG crawl of: %s\n", startURL)
	fmt.Fprintf(out, "Parameters: max_pages=%d, max_depth=%d\n", maxPages, maxDepth)
	fmt.Fprintln(out, "Crawling in progress...")

	stay := true
	startedAt := time.Now()
	result, crawlErr := rag.CrawlForRAG(cmd.Context(), startURL, api.RAGCrawlOptions{
		MaxPages:         maxPages,
		MaxDepth:         &maxDepth,
		StayWithinDomain: &stay,
		AllowSubdomains:  site.AllowSubdomains,
		URLFilter:        urlfilter.All(site.Filter, urlfilter.PatternFilter(site.IgnorePatterns, site.FollowPatterns)),
	})
	if result == nil {
		return fmt.Errorf("error during crawl: %w", crawlErr)
	}
	completedAt := time.Now()

	doc := ragOutput{
		CrawlInfo: ragCrawlInfo{
			StartURL:             startURL,
			MaxPages:             maxPages,
			MaxDepth:             maxDepth,
			StayWithinDomain:     stay,
			CrawlTimestamp:       completedAt.Format("2006-01-02T15:04:05.000000"),
			TotalURLsVisited:     len(result.URLs),
			TotalChunksExtracted: len(result.Data),
		},
		Results: result,
	}
	if err := writeJSONFile(outputPath, doc); err != nil {
		return err
	}

	report := &output.Report{
		StartURL:         startURL,
		Extractor:        string(extractor.KindRAG),
		MaxPages:         maxPages,
		MaxDepth:         &maxDepth,
		StayWithinDomain: stay,
		StartedAt:        startedAt,
		CompletedAt:      completedAt,
		Stats:            result.Stats,
		RAGStats:         result.RAGStats,
		SampleChunks:     result.Data,
	}
	if crawlErr != nil {
		report.Error = crawlErr.Error()
	}
	if _, err := output.NewTextWriter(out, output.WithSampleChunks(ragSampleChunks)).Write(report); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nResults saved to: %s\n", outputPath)

	if saveDB {
		id, err := saveRun(cmd.Context(), app, report, result, result.Data)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Run saved to database: #%d\n", id)
	}

	return crawlErr
}

// timestampLayout formats the timestamp of default output names.
const timestampLayout = "20060102_150405"

// defaultRAGFilename returns rag_crawl_<host>_<YYYYmmdd_HHMMSS>.json.
func defaultRAGFilename(startURL string, now time.Time) string {
	return fmt.Sprintf("rag_crawl_%s_%s.json", hostOf(startURL), now.Format(timestampLayout))
}

// hostOf returns the part of a URL between the scheme and the first "/".
func hostOf(rawURL string) string {
	host := strings.TrimPrefix(strings.TrimPrefix(rawURL, "https://"), "http://")
	host, _, _ = strings.Cut(host, "/")
	return host
}

// writeJSONFile writes v as indented JSON to path, creating parent
// directories. Files are written with 0600 permissions.
func writeJSONFile(path string, v any) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if _, err := output.NewJSONWriter(f, output.WithPrettyPrint()).Encode(v); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
