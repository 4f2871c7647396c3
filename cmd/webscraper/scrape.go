package main

import (
	"github.com/spf13/cobra"

	"github.com/nao1215/webscraper/internal/batch"
	"github.com/nao1215/webscraper/internal/output"
)

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape <url>...",
		Short: "Scrape single pages in parallel and print a JSON summary",
		Long: `Scrape fetches each URL once, without following links, and prints the
page summaries as JSON to standard output. Pages are fetched by a pool of
workers (SCRAPER_MAX_WORKERS, or --workers).

Failed pages are reported with their error instead of data.

Examples:
  webscraper scrape https://example.com https://example.org
  webscraper scrape --workers 8 $(cat urls.txt) > pages.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runScrapeCmd,
	}

	cmd.Flags().IntP("workers", "w", 0, "Number of concurrent workers (default from SCRAPER_MAX_WORKERS)")
	cmd.Flags().Bool("compact", false, "Print compact JSON")

	return cmd
}

func runScrapeCmd(cmd *cobra.Command, args []string) error {
	app, err := newAppContext(cmd)
	if err != nil {
		return err
	}

	for _, u := range args {
		if err := checkStartURL(u); err != nil {
			return err
		}
	}

	s := batch.New(app.cfg,
		batch.WithLogger(app.logger),
		batch.WithFetcherFactory(siteFetcherFactory(app)),
	)
	pages, err := s.ScrapeMultiplePages(cmd.Context(), args)
	if err != nil {
		return err
	}

	var opts []output.JSONWriterOption
	if compact, _ := cmd.Flags().GetBool("compact"); !compact {
		opts = append(opts, output.WithPrettyPrint())
	}
	_, err = output.NewJSONWriter(cmd.OutOrStdout(), opts...).Encode(batch.CombinedPageResults(pages))
	return err
}
