// Package pipeline sequences discovery: search, normalize/filter, batched
// fetch, model extraction, classification filtering and blacklist
// persistence. Per-URL errors are recorded, never propagated; a run always
// finishes with a best-effort tool list and a complete summary.
package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/blacklist"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/domain"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/fetcher"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/monitoring"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/urlutil"
)

// Searcher produces raw candidate URLs for the recency window.
type Searcher interface {
	Search(ctx context.Context, windowDays int) []string
}

// Fetcher retrieves HTML for candidates in politeness-bounded batches.
type Fetcher interface {
	OnProgress(fn fetcher.ProgressFunc)
	FetchAll(ctx context.Context, urls []string) map[string]domain.FetchResult
}

// Extractor classifies one fetched page with a single model call.
type Extractor interface {
	Extract(ctx context.Context, url, html string) (*domain.ToolInfo, error)
}

// SeenStore suppresses reprocessing of URLs handled by a recent run.
// Optional.
type SeenStore interface {
	IsRecentlyProcessed(ctx context.Context, url string) (bool, error)
	MarkProcessed(ctx context.Context, url string, ttl time.Duration) error
}

// ToolSink persists classified tools and run summaries. Optional.
type ToolSink interface {
	SaveTools(ctx context.Context, tools []domain.ToolInfo) error
	SaveSummary(ctx context.Context, sum domain.RunSummary) error
}

// Pipeline owns the run lifecycle and the shared mutable state (blacklist).
type Pipeline struct {
	searcher  Searcher
	fetch     Fetcher
	extractor Extractor
	blacklist *blacklist.Store

	windowDays      int
	excludedDomains []string
	seenTTL         time.Duration

	seen    SeenStore // may be nil
	sink    ToolSink  // may be nil
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

func New(searcher Searcher, fetch Fetcher, extractor Extractor, bl *blacklist.Store,
	windowDays int, excludedDomains []string, m *monitoring.Metrics, logger *zap.Logger) *Pipeline {
	if len(excludedDomains) == 0 {
		excludedDomains = urlutil.DefaultExcludedDomains
	}
	return &Pipeline{
		searcher:        searcher,
		fetch:           fetch,
		extractor:       extractor,
		blacklist:       bl,
		windowDays:      windowDays,
		excludedDomains: excludedDomains,
		metrics:         m,
		logger:          logger,
	}
}

// WithSeenStore wires the optional recently-processed store.
func (p *Pipeline) WithSeenStore(s SeenStore, ttl time.Duration) *Pipeline {
	p.seen, p.seenTTL = s, ttl
	return p
}

// WithSink wires the optional persistence sink.
func (p *Pipeline) WithSink(s ToolSink) *Pipeline {
	p.sink = s
	return p
}

type extractOutcome struct {
	url  string
	info *domain.ToolInfo
	err  error
}

// Run executes one full discovery pass and returns the tools classified as
// ai_tool, in the order their candidates survived filtering, plus the run
// summary. The returned error reports blacklist persistence problems only;
// the tool list and summary are valid either way.
func (p *Pipeline) Run(ctx context.Context) ([]domain.ToolInfo, domain.RunSummary, error) {
	summary := domain.RunSummary{StartedAt: time.Now().UTC()}
	blacklistedBefore := toSet(p.blacklist.Blacklisted())

	raws := p.searcher.Search(ctx, p.windowDays)
	summary.Searched = len(raws)
	p.logger.Info("search finished", zap.Int("raw_urls", len(raws)))

	candidates := urlutil.FilterAndDedupe(raws, p.blacklist, p.excludedDomains)
	summary.SkippedByFilter = summary.Searched - len(candidates)
	candidates = p.dropRecentlySeen(ctx, candidates, &summary)
	summary.Candidates = len(candidates)
	p.logger.Info("candidates selected",
		zap.Int("candidates", len(candidates)),
		zap.Int("skipped_by_filter", summary.SkippedByFilter),
		zap.Int("skipped_recent", summary.SkippedRecent))

	// Extraction starts per URL the moment its fetch succeeds; it is gated
	// by the extractor's own concurrency ceiling, not by fetch batching.
	outcomeCh := make(chan extractOutcome, len(candidates))
	var extractWG sync.WaitGroup
	p.fetch.OnProgress(func(res domain.FetchResult) {
		if res.Status != domain.FetchOK || res.HTML == "" {
			return
		}
		extractWG.Add(1)
		go func() {
			defer extractWG.Done()
			info, err := p.extractor.Extract(ctx, res.URL, res.HTML)
			outcomeCh <- extractOutcome{url: res.URL, info: info, err: err}
		}()
	})

	fetchResults := p.fetch.FetchAll(ctx, candidates)
	extractWG.Wait()
	close(outcomeCh)

	for _, res := range fetchResults {
		switch res.Status {
		case domain.FetchOK:
			summary.FetchedOK++
		case domain.FetchFailed:
			summary.FetchedFailed++
		case domain.FetchSkipped:
			switch res.ErrorKind {
			case domain.ErrKindRobots:
				summary.SkippedByRobots++
			case domain.ErrKindBlacklisted:
				summary.SkippedBlacklisted++
			}
		}
	}

	extracted := make(map[string]*domain.ToolInfo, len(candidates))
	for out := range outcomeCh {
		if out.err != nil {
			summary.ExtractionFailed++
			p.logger.Warn("extraction failed", zap.String("url", out.url), zap.Error(out.err))
			continue
		}
		extracted[out.url] = out.info
		if out.info.Label == domain.LabelAITool {
			summary.ClassifiedTool++
		} else {
			summary.ClassifiedNotTool++
		}
	}

	// Stable output: candidate order, ai_tool only.
	var tools []domain.ToolInfo
	for _, u := range candidates {
		info, ok := extracted[u]
		if !ok || info.Label != domain.LabelAITool {
			continue
		}
		tools = append(tools, *info)
	}
	tools = dedupeTools(tools)
	tools = p.filterByPublishDate(tools)

	p.markProcessed(ctx, fetchResults)
	summary.NewlyBlacklisted = diffSet(p.blacklist.Blacklisted(), blacklistedBefore)
	summary.FinishedAt = time.Now().UTC()

	saveErr := p.blacklist.Save()
	if saveErr != nil {
		p.logger.Error("failed to persist blacklist", zap.Error(saveErr))
	}
	p.persist(ctx, tools, summary)

	p.logger.Info("run finished",
		zap.Int("tools", len(tools)),
		zap.Int("fetched_ok", summary.FetchedOK),
		zap.Int("fetched_failed", summary.FetchedFailed),
		zap.Int("extraction_failed", summary.ExtractionFailed),
		zap.Strings("newly_blacklisted", summary.NewlyBlacklisted))
	return tools, summary, saveErr
}

// dropRecentlySeen removes candidates the seen store remembers. Stable
// order preserved. A seen-store error keeps the candidate; the store is an
// optimization.
func (p *Pipeline) dropRecentlySeen(ctx context.Context, candidates []string, summary *domain.RunSummary) []string {
	if p.seen == nil {
		return candidates
	}
	kept := candidates[:0]
	for _, u := range candidates {
		recent, err := p.seen.IsRecentlyProcessed(ctx, u)
		if err != nil {
			p.logger.Warn("seen-store lookup failed", zap.String("url", u), zap.Error(err))
			kept = append(kept, u)
			continue
		}
		if recent {
			summary.SkippedRecent++
			p.metrics.IncError(string(domain.ErrKindRecent))
			continue
		}
		kept = append(kept, u)
	}
	return kept
}

// markProcessed remembers successfully fetched URLs so the next run can
// skip them within the dedup window.
func (p *Pipeline) markProcessed(ctx context.Context, results map[string]domain.FetchResult) {
	if p.seen == nil {
		return
	}
	for u, res := range results {
		if res.Status != domain.FetchOK {
			continue
		}
		if err := p.seen.MarkProcessed(ctx, u, p.seenTTL); err != nil {
			p.logger.Warn("seen-store write failed", zap.String("url", u), zap.Error(err))
		}
	}
}

// persist hands the run's output to the optional sink. Sink failures are
// logged, never fatal: downstream consumers fail independently.
func (p *Pipeline) persist(ctx context.Context, tools []domain.ToolInfo, summary domain.RunSummary) {
	if p.sink == nil {
		return
	}
	if err := p.sink.SaveTools(ctx, tools); err != nil {
		p.logger.Error("failed to save tools", zap.Error(err))
	}
	if err := p.sink.SaveSummary(ctx, summary); err != nil {
		p.logger.Error("failed to save run summary", zap.Error(err))
	}
}

// dedupeTools removes records sharing a (website, title) identity, first
// occurrence wins.
func dedupeTools(tools []domain.ToolInfo) []domain.ToolInfo {
	type key struct{ website, title string }
	seen := make(map[key]struct{}, len(tools))
	out := tools[:0]
	for _, t := range tools {
		k := key{strings.ToLower(t.Website), strings.ToLower(t.Title)}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}

// filterByPublishDate drops tools whose stated publish date falls outside
// the recency window. Absent or unparseable dates keep the tool; the date
// is model-extracted and often missing.
func (p *Pipeline) filterByPublishDate(tools []domain.ToolInfo) []domain.ToolInfo {
	cutoff := time.Now().UTC().AddDate(0, 0, -p.windowDays)
	out := tools[:0]
	for _, t := range tools {
		if t.PublishDate == "" {
			out = append(out, t)
			continue
		}
		pub, err := parseDate(t.PublishDate)
		if err != nil || !pub.Before(cutoff) {
			out = append(out, t)
			continue
		}
		p.logger.Info("dropping stale tool",
			zap.String("title", t.Title), zap.String("publish_date", t.PublishDate))
	}
	return out
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

func diffSet(items []string, before map[string]struct{}) []string {
	var out []string
	for _, it := range items {
		if _, ok := before[it]; !ok {
			out = append(out, it)
		}
	}
	return out
}
