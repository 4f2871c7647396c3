package scraper

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsCache keeps the robots.txt group for each scheme://host seen.
// A nil group means everything is allowed.
type robotsCache struct {
	mu     sync.Mutex
	groups map[string]*robotstxt.Group
}

func newRobotsCache() *robotsCache {
	return &robotsCache{groups: make(map[string]*robotstxt.Group)}
}

// allowed reports whether userAgent may fetch u. robots.txt is fetched once
// per host; if it cannot be fetched or parsed, everything is allowed.
func (c *robotsCache) allowed(ctx context.Context, client *http.Client, u *url.URL, userAgent string, logger *slog.Logger) bool {
	key := u.Scheme + "://" + u.Host

	c.mu.Lock()
	group, ok := c.groups[key]
	c.mu.Unlock()

	if !ok {
		group = fetchRobotsGroup(ctx, client, key, userAgent, logger)
		// A cancelled or expired ctx says nothing about the host.
		if ctx.Err() == nil {
			c.mu.Lock()
			c.groups[key] = group
			c.mu.Unlock()
		}
	}

	if group == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path)
}

func fetchRobotsGroup(ctx context.Context, client *http.Client, origin, userAgent string, logger *slog.Logger) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		logger.Debug("robots.txt not available", "origin", origin, "error", err)
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		logger.Debug("failed to parse robots.txt", "origin", origin, "error", err)
		return nil
	}
	return data.FindGroup(userAgent)
}
