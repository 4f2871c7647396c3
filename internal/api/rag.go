package api

import (
	"context"
	"strings"
	"sync"

	"github.com/nao1215/webscraper/internal/config"
	"github.com/nao1215/webscraper/internal/crawler"
	"github.com/nao1215/webscraper/internal/extractor"
	"github.com/nao1215/webscraper/internal/output"
	"github.com/nao1215/webscraper/internal/scraper"
	"github.com/nao1215/webscraper/internal/urlfilter"
)

// DefaultRAGMaxPages is the page limit of CrawlForRAG when none is given.
const DefaultRAGMaxPages = 100

// RAGCrawlOptions limits a RAG crawl.
type RAGCrawlOptions struct {
	// MaxPages defaults to DefaultRAGMaxPages when zero.
	MaxPages int
	MaxDepth *int

	// StayWithinDomain defaults to true when nil.
	StayWithinDomain *bool
	AllowSubdomains  bool
	URLFilter        urlfilter.Func
}

// RAGResult is a crawl result with chunk statistics.
type RAGResult struct {
	crawler.Result[extractor.Chunk]

	// RAGStats is nil when the crawl produced no chunks.
	RAGStats *extractor.RAGStats `json:"rag_stats,omitempty"`
}

// RAGScraper crawls sites into chunks for retrieval-augmented generation.
type RAGScraper struct {
	settings

	mu      sync.Mutex
	fetcher *scraper.Scraper
	rag     *extractor.RAG
	crawler *crawler.Crawler[extractor.Chunk]
}

// NewRAG creates a RAGScraper. A nil cfg uses the process-wide configuration.
func NewRAG(cfg *config.Config, opts ...Option) *RAGScraper {
	return &RAGScraper{settings: newSettings(cfg, opts)}
}

// ChunkSize returns the target chunk size.
func (r *RAGScraper) ChunkSize() int {
	return extractor.NewRAG(r.chunkSize).ChunkSize
}

func (r *RAGScraper) init() (*scraper.Scraper, *extractor.RAG, *crawler.Crawler[extractor.Chunk], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fetcher == nil {
		fetcher, err := r.newFetcher()
		if err != nil {
			return nil, nil, nil, err
		}
		r.fetcher = fetcher
		r.rag = extractor.NewRAG(r.chunkSize)
		r.crawler = crawler.New[extractor.Chunk](fetcher, r.rag, crawler.WithLogger(r.logger))
	}
	return r.fetcher, r.rag, r.crawler, nil
}

func (r *RAGScraper) current() *crawler.Crawler[extractor.Chunk] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.crawler
}

// ExtractFromPage fetches a single page and chunks it. A page that cannot
// be fetched returns the fetch error and no chunks.
func (r *RAGScraper) ExtractFromPage(ctx context.Context, pageURL string) ([]extractor.Chunk, error) {
	fetcher, rag, _, err := r.init()
	if err != nil {
		return nil, err
	}

	doc, err := fetcher.GetPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return rag.Extract(pageURL, doc, extractor.Metadata{URL: pageURL, Depth: 0})
}

// CrawlForRAG crawls from startURL and chunks every page.
func (r *RAGScraper) CrawlForRAG(ctx context.Context, startURL string, opts RAGCrawlOptions) (*RAGResult, error) {
	_, _, c, err := r.init()
	if err != nil {
		return nil, err
	}

	crawlOpts := crawler.Options{
		MaxPages:         opts.MaxPages,
		MaxDepth:         opts.MaxDepth,
		StayWithinDomain: true,
		AllowSubdomains:  opts.AllowSubdomains,
		URLFilter:        opts.URLFilter,
	}
	if crawlOpts.MaxPages == 0 {
		crawlOpts.MaxPages = DefaultRAGMaxPages
	}
	if opts.StayWithinDomain != nil {
		crawlOpts.StayWithinDomain = *opts.StayWithinDomain
	}

	r.logger.Info("starting RAG crawl", "url", startURL)

	result, err := c.Crawl(ctx, startURL, crawlOpts)
	if result == nil {
		return nil, err
	}

	out := &RAGResult{
		Result:   *result,
		RAGStats: extractor.SummarizeChunks(result.Data, result.Stats.VisitedCount),
	}
	r.logger.Info("RAG crawl complete", "chunks", len(result.Data), "pages", result.Stats.VisitedCount)
	return out, err
}

// Chunks returns the chunks of the last crawl.
func (r *RAGScraper) Chunks() []extractor.Chunk {
	if c := r.current(); c != nil {
		return c.CollectedData()
	}
	return nil
}

// ChunksByPage returns the chunks whose URL equals pageURL.
func (r *RAGScraper) ChunksByPage(pageURL string) []extractor.Chunk {
	var chunks []extractor.Chunk
	for _, c := range r.Chunks() {
		if c.URL == pageURL {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

// ChunksByTopic returns the chunks whose text or title contains topic,
// ignoring case.
func (r *RAGScraper) ChunksByTopic(topic string) []extractor.Chunk {
	topic = strings.ToLower(topic)
	var chunks []extractor.Chunk
	for _, c := range r.Chunks() {
		if strings.Contains(strings.ToLower(c.Text), topic) || strings.Contains(strings.ToLower(c.Title), topic) {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

// ChunkStatistics describes the chunks of the last crawl.
func (r *RAGScraper) ChunkStatistics() (extractor.ChunkStatistics, error) {
	chunks := r.Chunks()
	if len(chunks) == 0 {
		return extractor.ChunkStatistics{}, ErrNoChunks
	}
	return extractor.Statistics(chunks), nil
}

// SaveChunks writes the chunks of the last crawl to
// <output dir>/<name>.<format> and returns the path.
func (r *RAGScraper) SaveChunks(name string, format output.Format) (string, error) {
	chunks := r.Chunks()
	if len(chunks) == 0 {
		r.logger.Warn("no chunks to save")
		return "", ErrNoChunks
	}
	return output.NewWriter(r.cfg.OutputDir, output.WithWriterLogger(r.logger)).Save(chunks, name, format)
}

// Export converts the chunks of the last crawl for a retrieval framework.
// "langchain" and "llamaindex" are recognized, ignoring case; any other
// framework returns the chunks unchanged.
func (r *RAGScraper) Export(framework string) []any {
	return ExportChunks(r.Chunks(), framework)
}

// Close releases the fetcher and forgets the last crawl.
func (r *RAGScraper) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetcher != nil {
		r.fetcher.Close()
	}
	r.fetcher = nil
	r.rag = nil
	r.crawler = nil
}
