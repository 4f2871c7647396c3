package api

import (
	"context"
	"sync"

	"github.com/nao1215/webscraper/internal/config"
	"github.com/nao1215/webscraper/internal/crawler"
	"github.com/nao1215/webscraper/internal/extractor"
	"github.com/nao1215/webscraper/internal/htmltext"
	"github.com/nao1215/webscraper/internal/output"
	"github.com/nao1215/webscraper/internal/scraper"
	"github.com/nao1215/webscraper/internal/urlfilter"
)

// PageInfo summarizes a single page.
type PageInfo struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	TextLength int    `json:"text_length"`
	LinkCount  int    `json:"link_count"`
	Status     string `json:"status"`
}

// CrawlOptions limits a crawl. Nil fields take the configured value.
type CrawlOptions struct {
	MaxPages         *int
	MaxDepth         *int
	StayWithinDomain *bool
	AllowSubdomains  bool
	URLFilter        urlfilter.Func
}

// Scraper scrapes single pages and crawls sites.
type Scraper struct {
	settings

	mu        sync.Mutex
	fetcher   *scraper.Scraper
	crawler   *crawler.Crawler[any]
	extractor extractor.Extractor[any]
}

// New creates a Scraper. A nil cfg uses the process-wide configuration.
func New(cfg *config.Config, opts ...Option) *Scraper {
	return &Scraper{settings: newSettings(cfg, opts)}
}

// init creates the fetcher and the crawler on first use.
func (s *Scraper) init() (*scraper.Scraper, *crawler.Crawler[any], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fetcher == nil {
		fetcher, err := s.newFetcher()
		if err != nil {
			return nil, nil, err
		}
		if s.extractor == nil {
			s.extractor = extractor.Any[extractor.PageSummary](extractor.NewBasic())
		}
		s.fetcher = fetcher
		s.crawler = crawler.New(fetcher, s.extractor, crawler.WithLogger(s.logger))
	}
	return s.fetcher, s.crawler, nil
}

func (s *Scraper) current() *crawler.Crawler[any] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crawler
}

// ScrapePage fetches a page and summarizes it.
func (s *Scraper) ScrapePage(ctx context.Context, pageURL string) (*PageInfo, error) {
	fetcher, _, err := s.init()
	if err != nil {
		return nil, err
	}

	doc, err := fetcher.GetPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	return &PageInfo{
		URL:        pageURL,
		Title:      htmltext.Title(doc),
		TextLength: htmltext.CharCount(htmltext.StrippedText(doc.Selection)),
		LinkCount:  doc.Find("a").Length(),
		Status:     "success",
	}, nil
}

// CrawlSite crawls from startURL with the current extractor.
func (s *Scraper) CrawlSite(ctx context.Context, startURL string, opts CrawlOptions) (*crawler.Result[any], error) {
	_, c, err := s.init()
	if err != nil {
		return nil, err
	}

	crawlOpts := crawler.Options{
		MaxPages:         s.cfg.MaxPages,
		MaxDepth:         s.cfg.MaxDepth,
		StayWithinDomain: s.cfg.StayWithinDomain,
		AllowSubdomains:  opts.AllowSubdomains,
		URLFilter:        opts.URLFilter,
	}
	if opts.MaxPages != nil {
		crawlOpts.MaxPages = *opts.MaxPages
	}
	if opts.MaxDepth != nil {
		crawlOpts.MaxDepth = opts.MaxDepth
	}
	if opts.StayWithinDomain != nil {
		crawlOpts.StayWithinDomain = *opts.StayWithinDomain
	}

	s.logger.Info("starting site crawl", "url", startURL)
	result, err := c.Crawl(ctx, startURL, crawlOpts)
	if err != nil {
		return result, err
	}
	s.logger.Info("site crawl complete", "url", startURL, "visited", result.Stats.VisitedCount)
	return result, nil
}

// URLStatistics returns the URL statistics of the last crawl.
func (s *Scraper) URLStatistics() (crawler.URLStatistics, error) {
	c := s.current()
	if c == nil {
		return crawler.URLStatistics{}, ErrNoCrawl
	}
	return c.URLStatistics(), nil
}

// AllURLs returns every URL discovered by the last crawl.
func (s *Scraper) AllURLs() []string {
	if c := s.current(); c != nil {
		return c.AllDiscoveredURLs()
	}
	return nil
}

// VisitedURLs returns the URLs visited by the last crawl.
func (s *Scraper) VisitedURLs() []string {
	if c := s.current(); c != nil {
		return c.VisitedURLs()
	}
	return nil
}

// SaveResults writes the data of the last crawl to <output dir>/<name>.<format>
// and returns the path.
func (s *Scraper) SaveResults(name string, format output.Format) (string, error) {
	c := s.current()
	if c == nil {
		return "", ErrNoCrawl
	}
	data := c.CollectedData()
	if len(data) == 0 {
		s.logger.Warn("no data to save")
		return "", ErrNoData
	}
	return output.NewWriter(s.cfg.OutputDir, output.WithWriterLogger(s.logger)).Save(data, name, format)
}

// SetCustomExtractor replaces the extractor for subsequent crawls.
func (s *Scraper) SetCustomExtractor(e extractor.Extractor[any]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extractor = e
	if s.crawler != nil {
		s.crawler.SetExtractor(e)
	}
}

// Close releases the fetcher and forgets the last crawl.
func (s *Scraper) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetcher != nil {
		s.fetcher.Close()
	}
	s.fetcher = nil
	s.crawler = nil
	s.extractor = nil
}
