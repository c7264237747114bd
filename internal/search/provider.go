// Package search issues date-bounded discovery queries to multiple
// providers and merges the raw result URLs in provider-priority order.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/domain"
)

// Provider abstracts one search backend. Implementations handle their own
// HTTP transport and timeouts; they must not retry (retries live in the
// fetch layer, and a failed provider is simply worth zero results).
type Provider interface {
	Name() string
	Search(ctx context.Context, q domain.Query) ([]string, error)
}

// baseQueries are the broad query families used to surface new AI tool
// announcements. Each is combined with an "after:" clause at run time so
// no undated query is ever issued.
var baseQueries = []string{
	`"launched new AI tool" OR "released new AI tool" OR "announced new AI tool" OR "introducing new AI tool" OR "AI tool just launched" OR "new AI tool released" OR "AI tool now available" OR "new AI tool available" OR "AI tool beta launch" OR "AI tool preview launch" OR "AI tool demo launch"`,
	`"AI app" OR "AI platform" OR "AI product" OR "AI startup" OR "AI SaaS" OR "AI-powered"`,
	`"AI tool update" OR "AI tool integration" OR "AI tool feature" OR "AI tool partnership" OR "AI tool API" OR "AI tool SaaS" OR "AI tool for" OR "AI-powered tool"`,
	`"AI tool directory" OR "AI marketplace" OR "AI website"`,
	`"new from" OR "just released" OR "now available" OR "new AI software launch" OR "new AI app launch" OR "AI tool free launch" OR "AI tool open source launch"`,
	`site:.com OR site:.io OR site:.ai OR site:.co OR site:.app OR site:.dev OR site:.tech OR site:.org`,
}

// BuildQueries expands the base query set with the recency window. Every
// returned query carries the "after:YYYY-MM-DD" constraint.
func BuildQueries(windowDays int) []domain.Query {
	cutoff := time.Now().UTC().AddDate(0, 0, -windowDays).Format("2006-01-02")
	queries := make([]domain.Query, 0, len(baseQueries))
	for _, base := range baseQueries {
		queries = append(queries, domain.Query{
			Text:       fmt.Sprintf("%s after:%s", base, cutoff),
			WindowDays: windowDays,
		})
	}
	return queries
}
