package search

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Aggregator fans the query set out to every configured provider and
// merges the raw URLs. Providers run concurrently, but the merged output
// is deterministic: provider-priority order, each provider's results in
// its own returned order, queries in build order. A provider failure is
// logged and contributes zero results; it never aborts the search.
type Aggregator struct {
	providers []Provider
	logger    *zap.Logger
}

func NewAggregator(providers []Provider, logger *zap.Logger) *Aggregator {
	return &Aggregator{providers: providers, logger: logger}
}

// Search runs all queries for the recency window against all providers and
// returns the concatenated raw result URLs.
func (a *Aggregator) Search(ctx context.Context, windowDays int) []string {
	queries := BuildQueries(windowDays)
	results := make([][]string, len(a.providers))

	var wg sync.WaitGroup
	for i, p := range a.providers {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			var urls []string
			for _, q := range queries {
				found, err := p.Search(ctx, q)
				if err != nil {
					a.logger.Warn("search provider failed",
						zap.String("provider", p.Name()),
						zap.String("query", truncateQuery(q.Text)),
						zap.Error(err))
					continue
				}
				a.logger.Info("search query completed",
					zap.String("provider", p.Name()),
					zap.String("query", truncateQuery(q.Text)),
					zap.Int("results", len(found)))
				urls = append(urls, found...)
			}
			results[i] = urls
		}(i, p)
	}
	wg.Wait()

	var merged []string
	for _, urls := range results {
		merged = append(merged, urls...)
	}
	return merged
}

func truncateQuery(q string) string {
	if len(q) > 50 {
		return q[:50] + "..."
	}
	return q
}
