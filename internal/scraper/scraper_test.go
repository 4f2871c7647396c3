package scraper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/webscraper/internal/config"
)

// newTestScraper returns a scraper without delay or rate limiting.
func newTestScraper(t *testing.T, opts ...Option) *Scraper {
	t.Helper()
	base := []Option{
		WithDelay(0),
		WithRateLimit(0),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	s, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("failed to create scraper: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func mustDoc(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return doc
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		s, err := New()
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer s.Close()

		if s.delay != config.DefaultDelay {
			t.Errorf("expected default delay, got %v", s.delay)
		}
		if s.userAgent != config.DefaultUserAgent {
			t.Errorf("expected default user agent, got %q", s.userAgent)
		}
		if s.client.Timeout != config.DefaultTimeout {
			t.Errorf("expected client timeout %v, got %v", config.DefaultTimeout, s.client.Timeout)
		}
	})

	t.Run("from config", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.Delay = 250 * time.Millisecond
		cfg.UserAgent = "custom/1.0"
		cfg.RespectRobots = true

		s, err := NewFromConfig(cfg, WithUserAgent("override/2.0"))
		if err != nil {
			t.Fatalf("NewFromConfig failed: %v", err)
		}
		defer s.Close()

		if s.delay != 250*time.Millisecond {
			t.Errorf("expected delay from config, got %v", s.delay)
		}
		if s.userAgent != "override/2.0" {
			t.Errorf("expected option to win over config, got %q", s.userAgent)
		}
		if !s.respectRobots {
			t.Error("expected robots to be respected")
		}
	})

	t.Run("unsupported proxy scheme", func(t *testing.T) {
		t.Parallel()

		_, err := New(WithProxy("ftp://proxy:21"))
		if !errors.Is(err, ErrUnsupportedProxy) {
			t.Errorf("expected ErrUnsupportedProxy, got %v", err)
		}
	})

	t.Run("socks5 proxy", func(t *testing.T) {
		t.Parallel()

		s, err := New(WithProxy("socks5://127.0.0.1:1080"))
		if err != nil {
			t.Fatalf("expected socks5 proxy to be accepted, got %v", err)
		}
		s.Close()
	})
}

func TestGetPage(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, `<html><head><title>Hello</title></head><body><p>UA:`+r.UserAgent()+`</p></body></html>`)
	})
	mux.HandleFunc("/latin1", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "café" encoded as ISO-8859-1.
		_, _ = w.Write([]byte("<html><body><p>caf\xe9</p></body></html>"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/page", http.StatusFound)
	})
	mux.HandleFunc("/large", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html><body><p>"+strings.Repeat("a", 100)+"</p><p id=\"tail\">tail</p></body></html>")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	t.Run("parses the page and sends the user agent", func(t *testing.T) {
		t.Parallel()

		s := newTestScraper(t, WithUserAgent("test-agent"))
		doc, err := s.GetPage(t.Context(), server.URL+"/page")
		if err != nil {
			t.Fatalf("GetPage failed: %v", err)
		}
		if got := doc.Find("title").Text(); got != "Hello" {
			t.Errorf("expected title Hello, got %q", got)
		}
		if got := doc.Find("p").Text(); got != "UA:test-agent" {
			t.Errorf("expected user agent echo, got %q", got)
		}
	})

	t.Run("decodes the declared charset", func(t *testing.T) {
		t.Parallel()

		s := newTestScraper(t)
		doc, err := s.GetPage(t.Context(), server.URL+"/latin1")
		if err != nil {
			t.Fatalf("GetPage failed: %v", err)
		}
		if got := doc.Find("p").Text(); got != "café" {
			t.Errorf("expected UTF-8 decoded text, got %q", got)
		}
	})

	t.Run("client errors return StatusError", func(t *testing.T) {
		t.Parallel()

		s := newTestScraper(t)
		doc, err := s.GetPage(t.Context(), server.URL+"/missing")
		if doc != nil {
			t.Error("expected no document")
		}
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("expected *StatusError, got %v", err)
		}
		if statusErr.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", statusErr.StatusCode)
		}
	})

	t.Run("server errors return StatusError", func(t *testing.T) {
		t.Parallel()

		s := newTestScraper(t)
		_, err := s.GetPage(t.Context(), server.URL+"/broken")
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected 500 StatusError, got %v", err)
		}
	})

	t.Run("follows redirects and records the final URL", func(t *testing.T) {
		t.Parallel()

		s := newTestScraper(t)
		doc, err := s.GetPage(t.Context(), server.URL+"/redirect")
		if err != nil {
			t.Fatalf("GetPage failed: %v", err)
		}
		if doc.Url == nil || doc.Url.Path != "/page" {
			t.Errorf("expected final URL /page, got %v", doc.Url)
		}
	})

	t.Run("truncates large bodies", func(t *testing.T) {
		t.Parallel()

		s := newTestScraper(t, WithMaxBodySize(64))
		doc, err := s.GetPage(t.Context(), server.URL+"/large")
		if err != nil {
			t.Fatalf("GetPage failed: %v", err)
		}
		if doc.Find("#tail").Length() != 0 {
			t.Error("expected content past the body limit to be dropped")
		}
	})

	t.Run("rejects non-http URLs", func(t *testing.T) {
		t.Parallel()

		s := newTestScraper(t)
		for _, u := range []string{"ftp://example.com/file", "not a url", "/relative"} {
			if _, err := s.GetPage(t.Context(), u); !errors.Is(err, ErrInvalidURL) {
				t.Errorf("GetPage(%q): expected ErrInvalidURL, got %v", u, err)
			}
		}
	})

	t.Run("connection failure", func(t *testing.T) {
		t.Parallel()

		dead := httptest.NewServer(http.NotFoundHandler())
		deadURL := dead.URL
		dead.Close()

		s := newTestScraper(t, WithTimeout(time.Second))
		if _, err := s.GetPage(t.Context(), deadURL+"/page"); err == nil {
			t.Error("expected error for closed server")
		}
	})
}

func TestGetPageDelay(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "<p>ok</p>")
	}))
	t.Cleanup(server.Close)

	const delay = 100 * time.Millisecond
	s := newTestScraper(t, WithDelay(delay))

	t.Run("sleeps after success", func(t *testing.T) {
		start := time.Now()
		if _, err := s.GetPage(t.Context(), server.URL+"/"); err != nil {
			t.Fatalf("GetPage failed: %v", err)
		}
		if elapsed := time.Since(start); elapsed < delay {
			t.Errorf("expected at least %v, took %v", delay, elapsed)
		}
	})

	t.Run("does not sleep after failure", func(t *testing.T) {
		start := time.Now()
		if _, err := s.GetPage(t.Context(), server.URL+"/missing"); err == nil {
			t.Fatal("expected error")
		}
		if elapsed := time.Since(start); elapsed >= delay {
			t.Errorf("expected no delay after failure, took %v", elapsed)
		}
	})

	t.Run("cancelled context cuts the delay short", func(t *testing.T) {
		slow := newTestScraper(t, WithDelay(10*time.Second))
		ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
		defer cancel()

		start := time.Now()
		doc, err := slow.GetPage(ctx, server.URL+"/")
		if err != nil {
			t.Fatalf("GetPage failed: %v", err)
		}
		if doc == nil {
			t.Error("expected the fetched document")
		}
		if elapsed := time.Since(start); elapsed > 5*time.Second {
			t.Errorf("expected delay to end with the context, took %v", elapsed)
		}
	})
}

func TestGetPageRateLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<p>ok</p>")
	}))
	t.Cleanup(server.Close)

	// 600 per minute is one request every 100ms; the first is immediate.
	s := newTestScraper(t, WithRateLimit(600))

	start := time.Now()
	for range 3 {
		if _, err := s.GetPage(t.Context(), server.URL+"/"); err != nil {
			t.Fatalf("GetPage failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 180*time.Millisecond {
		t.Errorf("expected rate limiting to space requests, took %v", elapsed)
	}
}

func TestGetPageRobots(t *testing.T) {
	t.Parallel()

	var robotsHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		robotsHits.Add(1)
		_, _ = io.WriteString(w, "User-agent: *\nDisallow: /private\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<p>ok</p>")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	s := newTestScraper(t, WithRobots(true))

	if _, err := s.GetPage(t.Context(), server.URL+"/public"); err != nil {
		t.Errorf("expected public page to be allowed, got %v", err)
	}
	if _, err := s.GetPage(t.Context(), server.URL+"/private/page"); !errors.Is(err, ErrDisallowedByRobots) {
		t.Errorf("expected ErrDisallowedByRobots, got %v", err)
	}
	if got := robotsHits.Load(); got != 1 {
		t.Errorf("expected robots.txt to be fetched once, got %d", got)
	}

	ignoring := newTestScraper(t)
	if _, err := ignoring.GetPage(t.Context(), server.URL+"/private/page"); err != nil {
		t.Errorf("expected robots.txt to be ignored by default, got %v", err)
	}
}

func TestRobotsCacheSkipsCancelledFetch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "User-agent: *\nDisallow: /private\n")
	}))
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL + "/private/page")
	if err != nil {
		t.Fatalf("failed to parse URL: %v", err)
	}

	cache := newRobotsCache()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if !cache.allowed(ctx, server.Client(), u, "test-agent", logger) {
		t.Error("expected a failed robots.txt fetch to allow the page")
	}
	if len(cache.groups) != 0 {
		t.Errorf("expected nothing cached for a cancelled fetch, got %d entries", len(cache.groups))
	}

	if cache.allowed(t.Context(), server.Client(), u, "test-agent", logger) {
		t.Error("expected robots.txt to be fetched again and disallow the page")
	}
}

func TestCookieAndHeaders(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<p id=\"cookie\">"+r.Header.Get("Cookie")+"</p><p id=\"team\">"+r.Header.Get("X-Team")+"</p>")
	}))
	t.Cleanup(server.Close)

	s := newTestScraper(t, WithCookie("session=abc"), WithHeaders(map[string]string{"X-Team": "docs"}))
	doc, err := s.GetPage(t.Context(), server.URL+"/")
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if got := doc.Find("#cookie").Text(); got != "session=abc" {
		t.Errorf("expected injected cookie, got %q", got)
	}
	if got := doc.Find("#team").Text(); got != "docs" {
		t.Errorf("expected injected header, got %q", got)
	}
}

func TestHTTPProxy(t *testing.T) {
	t.Parallel()

	// An HTTP proxy receives requests with an absolute URL.
	var proxiedHost atomic.Value
	proxyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxiedHost.Store(r.URL.Host)
		_, _ = io.WriteString(w, "<p>via proxy</p>")
	}))
	t.Cleanup(proxyServer.Close)

	s := newTestScraper(t, WithProxy(proxyServer.URL))
	doc, err := s.GetPage(t.Context(), "http://docs.example.test/page")
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if got := doc.Find("p").Text(); got != "via proxy" {
		t.Errorf("expected proxied response, got %q", got)
	}
	if got, _ := proxiedHost.Load().(string); got != "docs.example.test" {
		t.Errorf("expected proxy to see the target host, got %q", got)
	}
}

func TestExtractLinks(t *testing.T) {
	t.Parallel()

	s := newTestScraper(t)
	doc := mustDoc(t, `<a href="/docs">Docs</a><a href="guide/intro">Intro</a><a href="https://other.com/x">X</a><a>no href</a><a href="#top">Top</a>`)

	t.Run("resolved against base", func(t *testing.T) {
		t.Parallel()

		got := s.ExtractLinks(doc, "https://example.com/en/index.html")
		want := []string{
			"https://example.com/docs",
			"https://example.com/en/guide/intro",
			"https://other.com/x",
			"https://example.com/en/index.html#top",
		}
		if len(got) != len(want) {
			t.Fatalf("expected %d links, got %d: %v", len(want), len(got), got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("link %d: expected %q, got %q", i, want[i], got[i])
			}
		}
	})

	t.Run("raw without base", func(t *testing.T) {
		t.Parallel()

		got := s.ExtractLinks(doc, "")
		if len(got) != 4 || got[0] != "/docs" || got[3] != "#top" {
			t.Errorf("expected raw hrefs, got %v", got)
		}
	})

	t.Run("no links", func(t *testing.T) {
		t.Parallel()

		got := s.ExtractLinks(mustDoc(t, "<p>none</p>"), "https://example.com")
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", got)
		}
	})
}

func TestExtractText(t *testing.T) {
	t.Parallel()

	s := newTestScraper(t)
	doc := mustDoc(t, `<html><body><h1> Title </h1><p class="x"> One </p><p class="x">Two <b>bold</b></p></body></html>`)

	if got := s.ExtractText(doc, ".x"); got != "One Twobold" {
		t.Errorf("expected selector text joined by spaces, got %q", got)
	}
	if got := s.ExtractText(doc, ""); got != "TitleOneTwobold" {
		t.Errorf("expected whole-document stripped text, got %q", got)
	}
	if got := s.ExtractText(doc, ".missing"); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}
