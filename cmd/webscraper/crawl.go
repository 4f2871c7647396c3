package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/webscraper/internal/api"
	"github.com/nao1215/webscraper/internal/config"
	"github.com/nao1215/webscraper/internal/extractor"
	"github.com/nao1215/webscraper/internal/output"
	"github.com/nao1215/webscraper/internal/urlfilter"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl a website and save the extracted data",
		Long: `Crawl visits a website breadth-first from the given URL and runs an
extractor on every page:

  basic     page summaries (title, text length, link count)
  rag       heading-aware chunks for retrieval-augmented generation
  article   readable article text
  markdown  the page converted to GitHub flavoured Markdown

Limits not given on the command line come from the site configuration
file, then from SCRAPER_* environment variables.

Examples:
  # Crawl with page summaries
  webscraper crawl https://example.com

  # Convert a blog to Markdown, skipping tag pages
  webscraper crawl -e markdown --ignore "/tags/*" https://blog.example.com

  # Save chunks as CSV and write a Markdown report
  webscraper crawl -e rag -f csv -m report.md https://docs.example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringP("extractor", "e", string(extractor.KindBasic),
		"Extractor: basic, rag, article or markdown")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages, "Maximum number of pages to crawl")
	cmd.Flags().IntP("max-depth", "d", 0, "Maximum link depth from the start URL (0 means unlimited)")
	cmd.Flags().Bool("stay-within-domain", config.DefaultStayWithinDomain, "Only follow links on the start URL's domain")
	cmd.Flags().Bool("allow-subdomains", false, "Treat subdomains of the start URL's domain as the same domain")
	cmd.Flags().StringSlice("ignore", nil, "URL path glob patterns to skip")
	cmd.Flags().StringSlice("follow", nil, "URL path glob patterns to follow (others are skipped)")
	cmd.Flags().String("match", "", "Regular expression URLs must match to be crawled")
	cmd.Flags().Int("chunk-size", 0, "Target chunk size of the rag extractor (default from SCRAPER_CHUNK_SIZE)")
	cmd.Flags().StringP("format", "f", string(output.FormatJSON), "Output format: json or csv")
	cmd.Flags().StringP("name", "n", "", "Output file name without extension (default crawl_<host>_<timestamp>)")
	cmd.Flags().StringP("markdown", "m", "", "Write a Markdown crawl report to this file")
	cmd.Flags().Bool("save-db", false, "Store the run in the database")
	cmd.Flags().String("db-dir", "", "Database directory (default from SCRAPER_DB_DIR)")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	startURL := args[0]
	if err := checkStartURL(startURL); err != nil {
		return err
	}

	app, err := newAppContext(cmd)
	if err != nil {
		return err
	}

	kindName, _ := cmd.Flags().GetString("extractor")
	kind, err := extractor.ParseKind(kindName)
	if err != nil {
		return err
	}
	ext, err := extractor.New(kind, app.cfg.ChunkSize)
	if err != nil {
		return err
	}

	formatName, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatName)
	if err != nil {
		return err
	}

	site := app.sites.GetSiteConfig(startURL)
	opts, err := crawlOptions(cmd, app.cfg, site)
	if err != nil {
		return err
	}

	s := api.New(app.cfg,
		api.WithLogger(app.logger),
		api.WithScraperOptions(siteOptions(site)...),
	)
	defer s.Close()
	s.SetCustomExtractor(ext)

	startedAt := time.Now()
	result, crawlErr := s.CrawlSite(cmd.Context(), startURL, opts)
	if result == nil {
		return fmt.Errorf("error during crawl: %w", crawlErr)
	}
	completedAt := time.Now()

	out := cmd.OutOrStdout()

	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = defaultCrawlName(startURL, startedAt)
	}
	path, err := s.SaveResults(name, format)
	switch {
	case errors.Is(err, api.ErrNoData):
		// nothing extracted; the report below still shows the crawl
	case err != nil:
		return err
	default:
		fmt.Fprintf(out, "Results saved to: %s\n", path)
	}

	urlStats, err := s.URLStatistics()
	if err != nil {
		return err
	}
	report := &output.Report{
		StartURL:         startURL,
		Extractor:        string(kind),
		MaxPages:         *opts.MaxPages,
		MaxDepth:         opts.MaxDepth,
		StayWithinDomain: *opts.StayWithinDomain,
		StartedAt:        startedAt,
		CompletedAt:      completedAt,
		Stats:            result.Stats,
		URLStats:         urlStats,
	}
	chunks := chunksOf(result.Data)
	if kind == extractor.KindRAG {
		report.RAGStats = extractor.SummarizeChunks(chunks, result.Stats.VisitedCount)
		report.SampleChunks = chunks
	}
	if crawlErr != nil {
		report.Error = crawlErr.Error()
	}

	writers := []output.ReportWriter{output.NewTextWriter(out)}
	mdPath, _ := cmd.Flags().GetString("markdown")
	if mdPath != "" {
		f, err := createReportFile(mdPath)
		if err != nil {
			return err
		}
		defer f.Close()
		writers = append(writers, output.NewMarkdownWriter(f))
	}
	if _, err := output.NewMultiWriter(writers...).Write(report); err != nil {
		return fmt.Errorf("failed to write crawl report: %w", err)
	}
	if mdPath != "" {
		fmt.Fprintf(out, "Markdown report saved to: %s\n", mdPath)
	}

	if saveDB, _ := cmd.Flags().GetBool("save-db"); saveDB {
		id, err := saveRun(cmd.Context(), app, report, result, chunks)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Run saved to database: #%d\n", id)
	}

	return crawlErr
}

// crawlOptions resolves the crawl limits. Flags that were set win over the
// site file, which wins over the configuration.
func crawlOptions(cmd *cobra.Command, cfg *config.Config, site config.SiteConfig) (api.CrawlOptions, error) {
	flags := cmd.Flags()

	maxPages := cfg.MaxPages
	if site.MaxPages > 0 {
		maxPages = site.MaxPages
	}
	if flags.Changed("max-pages") {
		maxPages, _ = flags.GetInt("max-pages")
	}

	maxDepth := cfg.MaxDepth
	if site.MaxDepth != nil {
		maxDepth = site.MaxDepth
	}
	if flags.Changed("max-depth") {
		depth, _ := flags.GetInt("max-depth")
		maxDepth = nil
		if depth > 0 {
			maxDepth = &depth
		}
	}

	stay := cfg.StayWithinDomain
	if site.StayWithinDomain != nil {
		stay = *site.StayWithinDomain
	}
	if flags.Changed("stay-within-domain") {
		stay, _ = flags.GetBool("stay-within-domain")
	}

	allowSubdomains, _ := flags.GetBool("allow-subdomains")

	ignore, _ := flags.GetStringSlice("ignore")
	follow, _ := flags.GetStringSlice("follow")
	filters := []urlfilter.Func{
		site.Filter,
		urlfilter.PatternFilter(slices.Concat(site.IgnorePatterns, ignore), slices.Concat(site.FollowPatterns, follow)),
	}
	if expr, _ := flags.GetString("match"); expr != "" {
		re, err := urlfilter.RegexpFilter(expr)
		if err != nil {
			return api.CrawlOptions{}, err
		}
		filters = append(filters, re)
	}

	return api.CrawlOptions{
		MaxPages:         &maxPages,
		MaxDepth:         maxDepth,
		StayWithinDomain: &stay,
		AllowSubdomains:  allowSubdomains || site.AllowSubdomains,
		URLFilter:        urlfilter.All(filters...),
	}, nil
}

// chunksOf returns the RAG chunks held in data.
func chunksOf(data []any) []extractor.Chunk {
	var chunks []extractor.Chunk
	for _, d := range data {
		if c, ok := d.(extractor.Chunk); ok {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

// defaultCrawlName returns crawl_<host>_<YYYYmmdd_HHMMSS>.
func defaultCrawlName(startURL string, now time.Time) string {
	host := strings.ReplaceAll(hostOf(startURL), ":", "_")
	return fmt.Sprintf("crawl_%s_%s", host, now.Format(timestampLayout))
}

// createReportFile creates the Markdown report file with 0600 permissions,
// creating parent directories.
func createReportFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}
	return f, nil
}
