package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/domain"
)

// RSSProvider surfaces candidates from configured launch/announcement
// feeds. The query text is ignored; the recency window applies to item
// publish times, keeping the provider under the same date constraint as
// the web search providers. Feed results are cached briefly because the
// aggregator issues one Search call per query and the feeds do not change
// between them.
type RSSProvider struct {
	feeds  []string
	parser *gofeed.Parser

	mu       sync.Mutex
	cached   []string
	cachedAt time.Time
	cacheTTL time.Duration
}

func NewRSSProvider(feeds []string) *RSSProvider {
	return &RSSProvider{
		feeds:    feeds,
		parser:   gofeed.NewParser(),
		cacheTTL: 5 * time.Minute,
	}
}

func (p *RSSProvider) Name() string { return "rss" }

func (p *RSSProvider) Search(ctx context.Context, q domain.Query) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.cachedAt.IsZero() && time.Since(p.cachedAt) < p.cacheTTL {
		return p.cached, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -q.WindowDays)
	var urls []string
	var lastErr error
	for _, feedURL := range p.feeds {
		feed, err := p.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			lastErr = fmt.Errorf("parse feed %s: %w", feedURL, err)
			continue
		}
		for _, it := range feed.Items {
			if it.Link == "" {
				continue
			}
			// Undated items are dropped rather than guessed at.
			if it.PublishedParsed == nil || it.PublishedParsed.Before(cutoff) {
				continue
			}
			urls = append(urls, it.Link)
		}
	}
	if len(urls) == 0 && lastErr != nil {
		return nil, lastErr
	}
	p.cached = urls
	p.cachedAt = time.Now()
	return urls, nil
}
