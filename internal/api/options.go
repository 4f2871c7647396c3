package api

import (
	"log/slog"

	"github.com/nao1215/webscraper/internal/config"
	"github.com/nao1215/webscraper/internal/scraper"
)

type settings struct {
	cfg         *config.Config
	logger      *slog.Logger
	scraperOpts []scraper.Option
	chunkSize   int
}

// Option configures a Scraper or a RAGScraper.
type Option func(*settings)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithScraperOptions adds options applied to the fetcher after the
// configuration values, such as scraper.WithDelay or scraper.WithCookie.
func WithScraperOptions(opts ...scraper.Option) Option {
	return func(s *settings) {
		s.scraperOpts = append(s.scraperOpts, opts...)
	}
}

// WithChunkSize sets the target chunk size of a RAGScraper. The default
// is the configured chunk size.
func WithChunkSize(n int) Option {
	return func(s *settings) {
		s.chunkSize = n
	}
}

func newSettings(cfg *config.Config, opts []Option) settings {
	if cfg == nil {
		cfg = config.Current()
	}
	s := settings{cfg: cfg, chunkSize: cfg.ChunkSize}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s settings) newFetcher() (*scraper.Scraper, error) {
	opts := append([]scraper.Option{scraper.WithLogger(s.logger)}, s.scraperOpts...)
	return scraper.NewFromConfig(s.cfg, opts...)
}
