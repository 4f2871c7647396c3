package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/webscraper/internal/extractor"
	"github.com/nao1215/webscraper/internal/urlfilter"
)

// Fetcher retrieves pages and lists their links.
// *scraper.Scraper implements it.
type Fetcher interface {
	// GetPage fetches and parses a page.
	GetPage(ctx context.Context, pageURL string) (*goquery.Document, error)

	// ExtractLinks returns the absolute URLs of the page's links.
	ExtractLinks(doc *goquery.Document, baseURL string) []string
}

// Options limits a single crawl.
type Options struct {
	// MaxDepth is the deepest level that is fetched. The start URL has
	// depth 0. Nil means unlimited.
	MaxDepth *int

	// MaxPages stops the crawl once this many URLs have been visited.
	// Zero or negative means unlimited.
	MaxPages int

	// StayWithinDomain only follows links whose scheme and host match the
	// start URL.
	StayWithinDomain bool

	// AllowSubdomains widens StayWithinDomain to every host of the start
	// URL's registrable domain.
	AllowSubdomains bool

	// URLFilter rejects URLs for which it returns false. It applies to the
	// start URL as well as to discovered links.
	URLFilter urlfilter.Func
}

// Stats summarizes a crawl.
type Stats struct {
	VisitedCount   int `json:"visited_count"`
	QueuedCount    int `json:"queued_count"`
	CollectedCount int `json:"collected_count"`
	DataCount      int `json:"data_count"`
}

// Result is the outcome of a crawl.
type Result[T any] struct {
	// URLs lists the visited URLs in visit order, including those whose
	// fetch failed.
	URLs  []string `json:"urls"`
	Data  []T      `json:"data"`
	Stats Stats    `json:"stats"`
}

// URLStatistics reports how much of the discovered frontier was visited.
type URLStatistics struct {
	TotalURLs         int     `json:"total_urls"`
	VisitedURLs       int     `json:"visited_urls"`
	QueuedURLs        int     `json:"queued_urls"`
	VisitedPercentage float64 `json:"visited_percentage"`
	QueuedPercentage  float64 `json:"queued_percentage"`
}

// queueItem is a frontier entry.
type queueItem struct {
	url   string
	depth int
}

// Crawler crawls a site breadth-first.
//
// A Crawler keeps the state of its last crawl so it can be queried after
// Crawl returns. All methods are safe for concurrent use; the query methods
// may be called while a crawl is running.
type Crawler[T any] struct {
	fetcher Fetcher
	logger  *slog.Logger

	// mutex protects every field below.
	mutex     sync.Mutex
	extractor extractor.Extractor[T]
	visited   map[string]struct{}
	queue     []queueItem
	collected []string
	data      []T
}

// Option configures a Crawler.
type Option func(*crawlerOptions)

type crawlerOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *crawlerOptions) {
		o.logger = logger
	}
}

// New creates a Crawler. A nil extractor crawls without collecting data.
func New[T any](fetcher Fetcher, ext extractor.Extractor[T], opts ...Option) *Crawler[T] {
	o := crawlerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	return &Crawler[T]{
		fetcher:   fetcher,
		logger:    o.logger,
		extractor: ext,
		visited:   make(map[string]struct{}),
	}
}

// SetExtractor replaces the extractor used for subsequent pages.
func (c *Crawler[T]) SetExtractor(ext extractor.Extractor[T]) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.extractor = ext
}

// Crawl visits pages breadth-first from startURL until the frontier is
// empty, MaxPages URLs have been visited, or ctx is done.
//
// Pages that fail to fetch are still counted as visited. Extraction errors
// are passed to the extractor's OnExtractionError when it has one and
// logged otherwise; the page's links are still followed.
// When ctx is done the partial result is returned with ctx.Err().
func (c *Crawler[T]) Crawl(ctx context.Context, startURL string, opts Options) (*Result[T], error) {
	start := urlfilter.NormalizeURL(startURL)
	if !urlfilter.IsValidURL(start) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStartURL, startURL)
	}

	c.reset(start)
	c.logger.Info("starting crawl", "url", start, "max_pages", opts.MaxPages, "max_depth", depthAttr(opts.MaxDepth))

	for {
		if err := ctx.Err(); err != nil {
			c.logger.Warn("crawl cancelled", "url", start, "error", err)
			return c.Results(), err
		}

		item, ok := c.next(opts)
		if !ok {
			break
		}

		c.logger.Debug("crawling page", "url", item.url, "depth", item.depth)

		doc, err := c.fetcher.GetPage(ctx, item.url)
		if err != nil || doc == nil {
			continue
		}

		c.extract(item, doc)

		for _, link := range c.fetcher.ExtractLinks(doc, item.url) {
			link = urlfilter.NormalizeURL(link)
			c.enqueue(start, link, item.depth+1, opts)
		}
	}

	result := c.Results()
	c.logger.Info("crawl complete",
		"url", start,
		"visited", result.Stats.VisitedCount,
		"queued", result.Stats.QueuedCount,
		"records", result.Stats.DataCount,
	)
	return result, nil
}

func (c *Crawler[T]) reset(start string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.visited = make(map[string]struct{})
	c.queue = []queueItem{{url: start, depth: 0}}
	c.collected = nil
	c.data = nil
}

// next pops frontier entries until one should be visited, marks it visited
// and returns it. It reports false when the crawl is over.
func (c *Crawler[T]) next(opts Options) (queueItem, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for len(c.queue) > 0 {
		if opts.MaxPages > 0 && len(c.visited) >= opts.MaxPages {
			return queueItem{}, false
		}

		item := c.queue[0]
		c.queue = c.queue[1:]

		if opts.MaxDepth != nil && item.depth > *opts.MaxDepth {
			continue
		}
		if _, seen := c.visited[item.url]; seen {
			continue
		}
		if opts.URLFilter != nil && !opts.URLFilter(item.url) {
			continue
		}

		c.visited[item.url] = struct{}{}
		c.collected = append(c.collected, item.url)
		return item, true
	}
	return queueItem{}, false
}

// extract runs the extractor and stores its records. Extraction errors are
// reported and the page contributes no records.
func (c *Crawler[T]) extract(item queueItem, doc *goquery.Document) {
	c.mutex.Lock()
	ext := c.extractor
	c.mutex.Unlock()

	if ext == nil {
		return
	}

	records, err := ext.Extract(item.url, doc, extractor.Metadata{URL: item.url, Depth: item.depth})
	if err != nil {
		extractor.ReportError(ext, item.url, err, c.logger)
		return
	}

	c.mutex.Lock()
	c.data = append(c.data, records...)
	c.mutex.Unlock()
}

func (c *Crawler[T]) enqueue(start, link string, depth int, opts Options) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, seen := c.visited[link]; seen {
		return
	}
	if !urlfilter.IsValidURL(link) {
		return
	}
	if opts.StayWithinDomain {
		if opts.AllowSubdomains {
			if !urlfilter.SameSite(link, start) {
				return
			}
		} else if !urlfilter.SameDomain(link, urlfilter.Domain(start)) {
			return
		}
	}
	if opts.URLFilter != nil && !opts.URLFilter(link) {
		return
	}
	c.queue = append(c.queue, queueItem{url: link, depth: depth})
}

// Results returns the URLs and data of the last crawl.
func (c *Crawler[T]) Results() *Result[T] {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return &Result[T]{
		URLs: append([]string{}, c.collected...),
		Data: append([]T{}, c.data...),
		Stats: Stats{
			VisitedCount:   len(c.visited),
			QueuedCount:    len(c.queue),
			CollectedCount: len(c.collected),
			DataCount:      len(c.data),
		},
	}
}

// CollectedData returns the records extracted so far.
func (c *Crawler[T]) CollectedData() []T {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]T{}, c.data...)
}

// TotalURLs returns the number of visited URLs plus the frontier length.
func (c *Crawler[T]) TotalURLs() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.visited) + len(c.queue)
}

// VisitedURLs returns the visited URLs in visit order.
func (c *Crawler[T]) VisitedURLs() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]string{}, c.collected...)
}

// QueuedURLs returns the frontier in order. A URL may appear more than once.
func (c *Crawler[T]) QueuedURLs() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.queuedLocked()
}

func (c *Crawler[T]) queuedLocked() []string {
	urls := make([]string, 0, len(c.queue))
	for _, item := range c.queue {
		urls = append(urls, item.url)
	}
	return urls
}

// AllDiscoveredURLs returns the visited URLs followed by the frontier.
func (c *Crawler[T]) AllDiscoveredURLs() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	urls := append([]string{}, c.collected...)
	return append(urls, c.queuedLocked()...)
}

// URLStatistics returns visited and queued counts with their share of the
// total. Percentages are zero when nothing has been discovered.
func (c *Crawler[T]) URLStatistics() URLStatistics {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	visited := len(c.visited)
	queued := len(c.queue)
	stats := URLStatistics{
		TotalURLs:   visited + queued,
		VisitedURLs: visited,
		QueuedURLs:  queued,
	}
	if stats.TotalURLs > 0 {
		stats.VisitedPercentage = float64(visited) / float64(stats.TotalURLs) * 100
		stats.QueuedPercentage = float64(queued) / float64(stats.TotalURLs) * 100
	}
	return stats
}

// DomainURLs returns the discovered URLs that contain substr.
func (c *Crawler[T]) DomainURLs(substr string) []string {
	var urls []string
	for _, u := range c.AllDiscoveredURLs() {
		if strings.Contains(u, substr) {
			urls = append(urls, u)
		}
	}
	return urls
}

// URLsByDepth returns the queued URLs at the given depth.
func (c *Crawler[T]) URLsByDepth(depth int) []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var urls []string
	for _, item := range c.queue {
		if item.depth == depth {
			urls = append(urls, item.url)
		}
	}
	return urls
}

func depthAttr(depth *int) any {
	if depth == nil {
		return "unlimited"
	}
	return *depth
}
