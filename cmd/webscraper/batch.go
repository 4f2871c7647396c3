package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/webscraper/internal/batch"
	"github.com/nao1215/webscraper/internal/config"
	"github.com/nao1215/webscraper/internal/extractor"
	"github.com/nao1215/webscraper/internal/output"
	"github.com/nao1215/webscraper/internal/scraper"
)

// errNoSites is returned when batch has neither URLs nor a sites file.
var errNoSites = errors.New("no sites provided (specify URLs as arguments or use --sites)")

// NewBatchCmd creates the batch command.
func NewBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [url...]",
		Short: "Crawl several websites in parallel",
		Long: `Batch crawls several websites concurrently, one worker per site, and
saves the combined results to the output directory.

Sites come from the arguments, from a sites file, or both. A sites file has
the same format as .webscraper.yaml; every entry under "sites" is crawled
with the entry's limits, cookie, headers and URL patterns.

JSON output writes <prefix>_combined.json (every record) and
<prefix>_detailed.json (per-site results). CSV output writes
<prefix>_combined.csv and one CSV file per site.

Examples:
  # Crawl three sites with four workers
  webscraper batch -w 4 https://a.example.com https://b.example.com https://c.example.com

  # Crawl the sites listed in a file into RAG chunks
  webscraper batch --sites sites.yaml -e rag`,
		Args: cobra.ArbitraryArgs,
		RunE: runBatchCmd,
	}

	cmd.Flags().StringP("sites", "s", "", "Sites file to crawl")
	cmd.Flags().StringP("extractor", "e", string(extractor.KindBasic),
		"Extractor: basic, rag, article or markdown")
	cmd.Flags().IntP("max-pages", "p", batch.DefaultSiteMaxPages, "Maximum number of pages per site given as argument")
	cmd.Flags().IntP("max-depth", "d", 0, "Maximum link depth per site given as argument (0 means unlimited)")
	cmd.Flags().Bool("stay-within-domain", batch.DefaultSiteStayWithinDomain, "Only follow links on each site's domain")
	cmd.Flags().IntP("workers", "w", 0, "Number of concurrent workers (default from SCRAPER_MAX_WORKERS)")
	cmd.Flags().Int("chunk-size", 0, "Target chunk size of the rag extractor (default from SCRAPER_CHUNK_SIZE)")
	cmd.Flags().StringP("format", "f", string(output.FormatJSON), "Output format: json or csv")
	cmd.Flags().String("prefix", "", "Output file prefix (default batch_<timestamp>)")

	return cmd
}

func runBatchCmd(cmd *cobra.Command, args []string) error {
	app, err := newAppContext(cmd)
	if err != nil {
		return err
	}

	kindName, _ := cmd.Flags().GetString("extractor")
	kind, err := extractor.ParseKind(kindName)
	if err != nil {
		return err
	}

	formatName, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatName)
	if err != nil {
		return err
	}

	sites, err := batchSites(cmd, app, args)
	if err != nil {
		return err
	}

	s := batch.New(app.cfg,
		batch.WithLogger(app.logger),
		batch.WithFetcherFactory(siteFetcherFactory(app)),
	)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Starting batch crawl of %d sites (workers: %d)...\n", len(sites), s.MaxWorkers())
	startTime := time.Now()

	results, crawlErr := s.CrawlMultipleSites(cmd.Context(), sites, kind)
	if results == nil {
		return crawlErr
	}

	prefix, _ := cmd.Flags().GetString("prefix")
	if prefix == "" {
		prefix = "batch_" + startTime.Format(timestampLayout)
	}
	paths, err := s.SaveResults(results, prefix, format)
	if err != nil {
		return err
	}

	summary := batch.CombinedResults(results).Summary
	fmt.Fprintf(out, "\nBatch crawl completed in %s\n", time.Since(startTime).Round(time.Millisecond))
	fmt.Fprintf(out, "Sites: %d successful, %d failed\n", summary.SuccessfulSites, summary.FailedSites)
	fmt.Fprintf(out, "Pages visited: %d\n", summary.TotalPages)
	fmt.Fprintf(out, "Records extracted: %d\n", summary.TotalDataEntries)
	for _, p := range paths {
		fmt.Fprintf(out, "Results saved to: %s\n", p)
	}

	return crawlErr
}

// batchSites collects the sites given as arguments and in the sites file.
// Argument sites take their limits from the flags and everything else from
// the site configuration file.
func batchSites(cmd *cobra.Command, app *appContext, args []string) ([]config.SiteConfig, error) {
	for _, u := range args {
		if err := checkStartURL(u); err != nil {
			return nil, err
		}
	}

	maxPages, _ := cmd.Flags().GetInt("max-pages")
	stay, _ := cmd.Flags().GetBool("stay-within-domain")
	var maxDepth *int
	if depth, _ := cmd.Flags().GetInt("max-depth"); depth > 0 {
		maxDepth = &depth
	}

	var sites []config.SiteConfig
	for _, site := range batch.CreateSiteConfigs(args, maxPages, maxDepth, stay) {
		sites = append(sites, config.MergeSiteConfig(app.sites.GetSiteConfig(site.URL), site))
	}

	if path, _ := cmd.Flags().GetString("sites"); path != "" {
		file, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load sites file %s: %w", path, err)
		}
		sites = append(sites, file.SiteList()...)
	}

	if len(sites) == 0 {
		return nil, errNoSites
	}
	return sites, nil
}

// siteFetcherFactory builds fetchers that carry the cookie and headers of
// the site file entry for the URL being fetched.
func siteFetcherFactory(app *appContext) batch.FetcherFactory {
	return func(site config.SiteConfig) (batch.Fetcher, error) {
		merged := config.MergeSiteConfig(app.sites.GetSiteConfig(site.URL), site)
		opts := append(siteOptions(merged), scraper.WithLogger(app.logger))
		fetcher, err := scraper.NewFromConfig(app.cfg, opts...)
		if err != nil {
			return nil, err
		}
		return fetcher, nil
	}
}
