package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/nao1215/webscraper/internal/config"
	"github.com/nao1215/webscraper/internal/htmltext"
)

// Scraper fetches pages over HTTP and parses them into goquery documents.
// A Scraper is safe for concurrent use, but the batch runner gives every
// task its own instance so rate limits and delays apply per task.
type Scraper struct {
	client    *http.Client
	ownClient bool

	delay       time.Duration
	timeout     time.Duration
	userAgent   string
	maxBodySize int64

	// requestsPerMinute feeds the limiter; non-positive disables limiting.
	requestsPerMinute int
	limiter           *rate.Limiter

	respectRobots bool
	robots        *robotsCache

	proxy   string
	cookie  string
	headers map[string]string

	logger *slog.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithDelay sets the pause after each successful fetch.
func WithDelay(d time.Duration) Option {
	return func(s *Scraper) {
		s.delay = d
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		s.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Scraper) {
		s.userAgent = ua
	}
}

// WithRateLimit caps the number of requests per minute.
// Zero or a negative value disables rate limiting.
func WithRateLimit(perMinute int) Option {
	return func(s *Scraper) {
		s.requestsPerMinute = perMinute
	}
}

// WithMaxBodySize sets the maximum number of response bytes read.
func WithMaxBodySize(size int64) Option {
	return func(s *Scraper) {
		s.maxBodySize = size
	}
}

// WithRobots enables or disables robots.txt checks.
func WithRobots(respect bool) Option {
	return func(s *Scraper) {
		s.respectRobots = respect
	}
}

// WithProxy routes requests through an http, https or socks5 proxy.
// It is ignored when WithHTTPClient is used.
func WithProxy(proxyURL string) Option {
	return func(s *Scraper) {
		s.proxy = proxyURL
	}
}

// WithCookie adds a raw cookie string to every request.
// It is ignored when WithHTTPClient is used.
func WithCookie(cookie string) Option {
	return func(s *Scraper) {
		s.cookie = cookie
	}
}

// WithHeaders adds headers to every request.
// It is ignored when WithHTTPClient is used.
func WithHeaders(headers map[string]string) Option {
	return func(s *Scraper) {
		s.headers = headers
	}
}

// WithHTTPClient uses the given client instead of building one.
// The client is not closed by Close.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Scraper) {
		s.client = client
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scraper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Scraper with the package defaults overridden by opts.
func New(opts ...Option) (*Scraper, error) {
	s := &Scraper{
		delay:             config.DefaultDelay,
		timeout:           config.DefaultTimeout,
		userAgent:         config.DefaultUserAgent,
		maxBodySize:       config.DefaultMaxBodySize,
		requestsPerMinute: config.DefaultMaxRequestsPerMinute,
		robots:            newRobotsCache(),
		logger:            slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.timeout <= 0 {
		s.timeout = config.DefaultTimeout
	}
	if s.maxBodySize <= 0 {
		s.maxBodySize = config.DefaultMaxBodySize
	}

	if s.client == nil {
		client, err := NewHTTPClient(ClientConfig{
			Timeout: s.timeout,
			Proxy:   s.proxy,
			Cookie:  s.cookie,
			Headers: s.headers,
		})
		if err != nil {
			return nil, err
		}
		s.client = client
		s.ownClient = true
	}

	if s.requestsPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.requestsPerMinute)), 1)
	} else {
		s.limiter = rate.NewLimiter(rate.Inf, 0)
	}

	return s, nil
}

// NewFromConfig creates a Scraper from a configuration. opts are applied
// after the configuration values.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Scraper, error) {
	base := []Option{
		WithDelay(cfg.Delay),
		WithTimeout(cfg.Timeout),
		WithUserAgent(cfg.UserAgent),
		WithRateLimit(cfg.MaxRequestsPerMinute),
		WithMaxBodySize(cfg.EffectiveMaxBodySize()),
		WithRobots(cfg.RespectRobots),
		WithProxy(cfg.Proxy),
	}
	return New(append(base, opts...)...)
}

// GetPage fetches a page and parses it.
//
// The request waits on the rate limiter and, when enabled, the robots.txt
// rules of the host. Responses with a 4xx or 5xx status return a
// *StatusError. The body is decoded to UTF-8 according to its declared or
// sniffed charset and truncated at the maximum body size. After a
// successful fetch GetPage pauses for the configured delay, returning early
// if ctx is cancelled.
func (s *Scraper) GetPage(ctx context.Context, pageURL string) (*goquery.Document, error) {
	s.logger.Info("fetching page", "url", pageURL)

	doc, err := s.fetch(ctx, pageURL)
	if err != nil {
		s.logger.Error("failed to fetch page", "url", pageURL, "error", err)
		return nil, err
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}

	return doc, nil
}

func (s *Scraper) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, pageURL)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	if s.respectRobots && !s.robots.allowed(ctx, s.client, u, s.userAgent, s.logger) {
		return nil, fmt.Errorf("%w: %s", ErrDisallowedByRobots, pageURL)
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	var body io.Reader = io.LimitReader(resp.Body, s.maxBodySize)
	if utf8Reader, err := charset.NewReader(body, resp.Header.Get("Content-Type")); err == nil {
		body = utf8Reader
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Url = resp.Request.URL

	return doc, nil
}

// ExtractLinks returns the href of every <a href> element, in document
// order. When baseURL is non-empty, relative references are resolved
// against it.
func (s *Scraper) ExtractLinks(doc *goquery.Document, baseURL string) []string {
	var base *url.URL
	if baseURL != "" {
		if u, err := url.Parse(baseURL); err == nil {
			base = u
		}
	}

	links := make([]string, 0)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if base != nil {
			ref, err := url.Parse(strings.TrimSpace(href))
			if err != nil {
				s.logger.Debug("skipping malformed link", "href", href, "error", err)
				return
			}
			href = base.ResolveReference(ref).String()
		}
		links = append(links, href)
	})
	return links
}

// ExtractText returns the page text. With a selector, the stripped text of
// each matching element is joined with single spaces; without one, the
// stripped text of the whole document is returned.
func (s *Scraper) ExtractText(doc *goquery.Document, selector string) string {
	if selector != "" {
		return strings.Join(htmltext.StrippedTexts(doc.Find(selector)), " ")
	}
	return htmltext.StrippedText(doc.Selection)
}

// Close releases idle connections of the client the Scraper created.
func (s *Scraper) Close() {
	if s.ownClient {
		s.client.CloseIdleConnections()
	}
}
