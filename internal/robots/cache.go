// Package robots answers per-URL fetch permission from each domain's
// robots.txt, fetching the file at most once per host for the lifetime of
// the cache. Missing, unreachable or malformed robots files fail open:
// absence of a reachable policy must not halt discovery.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache maps host -> parsed robots group. A nil group means allow-all
// (fail open), and is cached like any other entry so a failing host is
// not probed again within a run.
type Cache struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger

	mu      sync.Mutex
	entries map[string]*robotstxt.Group
	flight  singleflight.Group
}

func NewCache(client *http.Client, userAgent string, logger *zap.Logger) *Cache {
	return &Cache{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
		entries:   make(map[string]*robotstxt.Group),
	}
}

// Allowed reports whether rawURL may be fetched under the host's robots
// policy. Unparseable URLs are allowed; the normalizer has already vetted
// candidates before they reach this point.
func (c *Cache) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	group := c.group(ctx, u.Scheme, u.Host)
	if group == nil {
		return true
	}
	return group.Test(u.Path)
}

// group returns the cached robots group for host, fetching it once on
// first use. Concurrent first lookups for the same host are collapsed
// into a single fetch.
func (c *Cache) group(ctx context.Context, scheme, host string) *robotstxt.Group {
	c.mu.Lock()
	group, ok := c.entries[host]
	c.mu.Unlock()
	if ok {
		return group
	}

	v, _, _ := c.flight.Do(host, func() (any, error) {
		g := c.fetch(ctx, scheme, host)
		c.mu.Lock()
		c.entries[host] = g
		c.mu.Unlock()
		return g, nil
	})
	group, _ = v.(*robotstxt.Group)
	return group
}

// fetch retrieves and parses robots.txt for host. Every failure path
// returns nil (allow-all).
func (c *Cache) fetch(ctx context.Context, scheme, host string) *robotstxt.Group {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("robots.txt fetch failed, allowing",
			zap.String("host", host), zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		c.logger.Debug("robots.txt parse failed, allowing",
			zap.String("host", host), zap.Error(err))
		return nil
	}
	return data.FindGroup(c.userAgent)
}
