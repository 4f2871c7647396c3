package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/webscraper/internal/config"
	"github.com/nao1215/webscraper/internal/crawler"
	"github.com/nao1215/webscraper/internal/extractor"
	"github.com/nao1215/webscraper/internal/scraper"
	"github.com/nao1215/webscraper/internal/urlfilter"
)

// Site defaults applied by CrawlMultipleSites.
const (
	DefaultSiteMaxPages         = 50
	DefaultSiteStayWithinDomain = true
)

// StatusSuccess marks a task that completed.
const StatusSuccess = "success"

// Fetcher is a crawler.Fetcher that holds resources until closed.
type Fetcher interface {
	crawler.Fetcher
	Close()
}

// FetcherFactory creates the fetcher for one task. site carries the URL
// and the per-site cookie and headers.
type FetcherFactory func(site config.SiteConfig) (Fetcher, error)

// PageResult is the outcome of scraping one page.
type PageResult struct {
	URL    string `json:"url"`
	Data   []any  `json:"data,omitempty"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Failed reports whether the page could not be scraped.
func (r PageResult) Failed() bool {
	return r.Error != ""
}

// SiteResult is the outcome of crawling one site.
type SiteResult struct {
	URL string `json:"url"`

	// Results holds the crawl result. It is also set, with partial data,
	// when the crawl was cancelled.
	Results *crawler.Result[any] `json:"results,omitempty"`
	Status  string               `json:"status,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// Failed reports whether the crawl failed or was cut short.
func (r SiteResult) Failed() bool {
	return r.Error != ""
}

// Scraper runs scrape and crawl tasks on a bounded worker pool.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because errgroup handles the concurrency limit for us. Each task gets
// its own goroutine, but only maxWorkers run at the same time.
type Scraper struct {
	cfg        *config.Config
	maxWorkers int
	factory    FetcherFactory
	logger     *slog.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithMaxWorkers sets the number of concurrent tasks. Non-positive values
// are ignored.
func WithMaxWorkers(n int) Option {
	return func(s *Scraper) {
		if n > 0 {
			s.maxWorkers = n
		}
	}
}

// WithFetcherFactory replaces the factory that creates a *scraper.Scraper
// per task.
func WithFetcherFactory(factory FetcherFactory) Option {
	return func(s *Scraper) {
		s.factory = factory
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scraper) {
		s.logger = logger
	}
}

// New creates a Scraper. A nil cfg uses the process-wide configuration.
// The number of workers is cfg.MaxWorkers unless WithMaxWorkers is given.
func New(cfg *config.Config, opts ...Option) *Scraper {
	if cfg == nil {
		cfg = config.Current()
	}

	s := &Scraper{
		cfg:        cfg,
		maxWorkers: cfg.MaxWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.maxWorkers <= 0 {
		s.maxWorkers = config.DefaultMaxWorkers
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.factory == nil {
		s.factory = s.newScraper
	}
	return s
}

// MaxWorkers returns the concurrency limit.
func (s *Scraper) MaxWorkers() int {
	return s.maxWorkers
}

func (s *Scraper) newScraper(site config.SiteConfig) (Fetcher, error) {
	return scraper.NewFromConfig(s.cfg,
		scraper.WithCookie(site.Cookie),
		scraper.WithHeaders(site.Headers),
		scraper.WithLogger(s.logger),
	)
}

// ScrapeMultiplePages fetches every URL and summarizes it with the basic
// extractor. The returned map has one entry per distinct URL. The error is
// ctx.Err() when ctx was cancelled; tasks that never ran are recorded as
// failed.
func (s *Scraper) ScrapeMultiplePages(ctx context.Context, urls []string) (map[string]PageResult, error) {
	s.logger.Info("starting batch scrape", "pages", len(urls), "workers", s.maxWorkers)
	startTime := time.Now()

	results := make(map[string]PageResult, len(urls))
	var mu sync.Mutex
	record := func(r PageResult) {
		mu.Lock()
		defer mu.Unlock()
		results[r.URL] = r
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxWorkers)

	for _, pageURL := range urls {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				record(PageResult{URL: pageURL, Error: err.Error()})
				return nil
			}

			result, err := s.scrapePage(gctx, pageURL)
			if err != nil {
				s.logger.Error("failed to scrape page", "url", pageURL, "error", err)
				record(PageResult{URL: pageURL, Error: err.Error()})
				return nil
			}
			record(result)
			return nil
		})
	}

	// Tasks never return errors, so Wait only waits.
	_ = g.Wait() //nolint:errcheck

	s.logger.Info("batch scrape complete",
		"pages", len(results),
		"elapsed", time.Since(startTime),
	)
	return results, ctx.Err()
}

func (s *Scraper) scrapePage(ctx context.Context, pageURL string) (PageResult, error) {
	fetcher, err := s.factory(config.SiteConfig{URL: pageURL})
	if err != nil {
		return PageResult{}, fmt.Errorf("failed to create fetcher: %w", err)
	}
	defer fetcher.Close()

	doc, err := fetcher.GetPage(ctx, pageURL)
	if err != nil {
		return PageResult{}, err
	}

	ext := extractor.Any[extractor.PageSummary](extractor.NewBasic())
	data, err := ext.Extract(pageURL, doc, extractor.Metadata{URL: pageURL, Depth: 0})
	if err != nil {
		return PageResult{}, fmt.Errorf("failed to extract data: %w", err)
	}

	return PageResult{URL: pageURL, Data: data, Status: StatusSuccess}, nil
}

// CrawlMultipleSites crawls every site with a fresh extractor of the given
// kind. Sites without MaxPages use DefaultSiteMaxPages and sites without
// StayWithinDomain use DefaultSiteStayWithinDomain. An unknown kind fails
// before any crawl starts.
func (s *Scraper) CrawlMultipleSites(ctx context.Context, sites []config.SiteConfig, kind extractor.Kind) (map[string]SiteResult, error) {
	if _, err := extractor.New(kind, s.cfg.ChunkSize); err != nil {
		return nil, err
	}

	s.logger.Info("starting batch crawl", "sites", len(sites), "workers", s.maxWorkers, "extractor", kind)
	startTime := time.Now()

	results := make(map[string]SiteResult, len(sites))
	var mu sync.Mutex
	record := func(r SiteResult) {
		mu.Lock()
		defer mu.Unlock()
		results[r.URL] = r
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxWorkers)

	for i, site := range sites {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				record(SiteResult{URL: site.URL, Error: err.Error()})
				return nil
			}

			s.logger.Info("crawling site", "url", site.URL, "index", i+1, "total", len(sites))

			result, err := s.crawlSite(gctx, site, kind)
			if err != nil {
				s.logger.Error("failed to crawl site", "url", site.URL, "error", err)
				record(SiteResult{URL: site.URL, Results: result, Error: err.Error()})
				return nil
			}

			s.logger.Info("site crawled", "url", site.URL, "visited", result.Stats.VisitedCount)
			record(SiteResult{URL: site.URL, Results: result, Status: StatusSuccess})
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck

	s.logger.Info("batch crawl complete",
		"sites", len(results),
		"elapsed", time.Since(startTime),
	)
	return results, ctx.Err()
}

func (s *Scraper) crawlSite(ctx context.Context, site config.SiteConfig, kind extractor.Kind) (*crawler.Result[any], error) {
	ext, err := extractor.New(kind, s.cfg.ChunkSize)
	if err != nil {
		return nil, err
	}

	fetcher, err := s.factory(site)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}
	defer fetcher.Close()

	opts := crawler.Options{
		MaxDepth:         site.MaxDepth,
		MaxPages:         site.MaxPages,
		StayWithinDomain: DefaultSiteStayWithinDomain,
		AllowSubdomains:  site.AllowSubdomains,
		URLFilter: urlfilter.All(
			site.Filter,
			urlfilter.PatternFilter(site.IgnorePatterns, site.FollowPatterns),
		),
	}
	if opts.MaxPages == 0 {
		opts.MaxPages = DefaultSiteMaxPages
	}
	if site.StayWithinDomain != nil {
		opts.StayWithinDomain = *site.StayWithinDomain
	}

	c := crawler.New(fetcher, ext, crawler.WithLogger(s.logger))
	return c.Crawl(ctx, site.URL, opts)
}

// CreateSiteConfigs builds one SiteConfig per URL with the same limits.
func CreateSiteConfigs(urls []string, maxPages int, maxDepth *int, stayWithinDomain bool) []config.SiteConfig {
	sites := make([]config.SiteConfig, 0, len(urls))
	for _, u := range urls {
		stay := stayWithinDomain
		sites = append(sites, config.SiteConfig{
			URL:              u,
			MaxPages:         maxPages,
			MaxDepth:         maxDepth,
			StayWithinDomain: &stay,
		})
	}
	return sites
}

// AddURLFilter sets filter on every site.
func AddURLFilter(sites []config.SiteConfig, filter urlfilter.Func) {
	for i := range sites {
		sites[i].Filter = filter
	}
}

// sortedKeys returns the keys of m in order so combined output is stable.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
