package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/blacklist"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/domain"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/fetcher"
)

type stubSearcher struct{ urls []string }

func (s *stubSearcher) Search(ctx context.Context, windowDays int) []string { return s.urls }

// stubExtractor classifies by URL substring: paths containing "tool" are
// ai_tool, paths containing "broken" fail to parse, everything else is
// not_ai_tool.
type stubExtractor struct{ calls atomic.Int32 }

func (s *stubExtractor) Extract(ctx context.Context, url, html string) (*domain.ToolInfo, error) {
	s.calls.Add(1)
	switch {
	case strings.Contains(url, "broken"):
		return nil, errors.New("extraction parse error")
	case strings.Contains(url, "tool"):
		return &domain.ToolInfo{
			Title:     "Tool at " + url,
			Website:   url,
			SourceURL: url,
			Label:     domain.LabelAITool,
		}, nil
	default:
		return &domain.ToolInfo{Title: "Page", Website: url, SourceURL: url, Label: domain.LabelNotAITool}, nil
	}
}

func newTestBlacklist(t *testing.T, threshold int) (*blacklist.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blacklist.json")
	store, err := blacklist.Open(path, threshold)
	require.NoError(t, err)
	return store, path
}

func newTestFetcher(bl *blacklist.Store) *fetcher.Fetcher {
	client := &http.Client{Timeout: 5 * time.Second}
	return fetcher.New(client, 4, 1, time.Millisecond, nil, bl, nil, zap.NewNop())
}

func TestRunMixedOutcomes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "down"):
			w.WriteHeader(http.StatusNotFound)
		default:
			fmt.Fprint(w, "<html><body>some page</body></html>")
		}
	}))
	defer server.Close()

	urls := []string{
		server.URL + "/down/page",
		server.URL + "/plain/article",
		server.URL + "/new-tool/launch",
	}
	bl, _ := newTestBlacklist(t, 10)
	p := New(&stubSearcher{urls: urls}, newTestFetcher(bl), &stubExtractor{}, bl,
		7, []string{"nothing.example"}, nil, zap.NewNop())

	tools, sum, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, tools, 1)
	assert.Equal(t, domain.LabelAITool, tools[0].Label)
	assert.Contains(t, tools[0].SourceURL, "/new-tool/launch")

	assert.Equal(t, 3, sum.Searched)
	assert.Equal(t, 3, sum.Candidates)
	assert.Equal(t, 2, sum.FetchedOK)
	assert.Equal(t, 1, sum.FetchedFailed)
	assert.Equal(t, 1, sum.ClassifiedTool)
	assert.Equal(t, 1, sum.ClassifiedNotTool)
	assert.Equal(t, 0, sum.ExtractionFailed)
}

func TestRunCountsExtractionFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>ok</html>")
	}))
	defer server.Close()

	urls := []string{server.URL + "/broken/page", server.URL + "/tool/page"}
	bl, _ := newTestBlacklist(t, 10)
	p := New(&stubSearcher{urls: urls}, newTestFetcher(bl), &stubExtractor{}, bl,
		7, []string{"nothing.example"}, nil, zap.NewNop())

	tools, sum, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, tools, 1)
	assert.Equal(t, 1, sum.ExtractionFailed)
	assert.Equal(t, 1, sum.ClassifiedTool)
}

func TestRunFiltersAndDedupes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>ok</html>")
	}))
	defer server.Close()

	urls := []string{
		server.URL + "/tool/one",
		server.URL + "/tool/one", // duplicate
		"https://www.youtube.com/watch?v=x",
		"not a url",
	}
	bl, _ := newTestBlacklist(t, 10)
	ext := &stubExtractor{}
	p := New(&stubSearcher{urls: urls}, newTestFetcher(bl), ext, bl,
		7, nil, nil, zap.NewNop()) // nil = default excluded domains

	tools, sum, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, tools, 1)
	assert.Equal(t, 4, sum.Searched)
	assert.Equal(t, 1, sum.Candidates)
	assert.Equal(t, 3, sum.SkippedByFilter)
	assert.Equal(t, int32(1), ext.calls.Load())
}

func TestRunBlacklistsFailingDomainAcrossRuns(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	urls := []string{server.URL + "/always/fails"}
	bl, path := newTestBlacklist(t, 1)
	p := New(&stubSearcher{urls: urls}, newTestFetcher(bl), &stubExtractor{}, bl,
		7, []string{"nothing.example"}, nil, zap.NewNop())

	_, sum, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.FetchedFailed)
	assert.Equal(t, []string{"127.0.0.1"}, sum.NewlyBlacklisted)
	firstRunRequests := requests.Load()
	assert.Positive(t, firstRunRequests)

	// Second run with a freshly loaded store: the domain must be filtered
	// out before any fetch is attempted.
	bl2, err := blacklist.Open(path, 1)
	require.NoError(t, err)
	require.True(t, bl2.IsBlacklisted("127.0.0.1"), "blacklist must persist across runs")

	p2 := New(&stubSearcher{urls: urls}, newTestFetcher(bl2), &stubExtractor{}, bl2,
		7, []string{"nothing.example"}, nil, zap.NewNop())
	_, sum2, err := p2.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum2.Candidates)
	assert.Equal(t, 1, sum2.SkippedByFilter)
	assert.Equal(t, firstRunRequests, requests.Load(), "no fetch may be attempted against a blacklisted domain")
}

func TestRunOutputOrderFollowsCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>ok</html>")
	}))
	defer server.Close()

	urls := []string{
		server.URL + "/tool/zeta",
		server.URL + "/tool/alpha",
		server.URL + "/tool/mid",
	}
	bl, _ := newTestBlacklist(t, 10)
	p := New(&stubSearcher{urls: urls}, newTestFetcher(bl), &stubExtractor{}, bl,
		7, []string{"nothing.example"}, nil, zap.NewNop())

	tools, _, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 3)
	assert.Contains(t, tools[0].SourceURL, "zeta")
	assert.Contains(t, tools[1].SourceURL, "alpha")
	assert.Contains(t, tools[2].SourceURL, "mid")
}

func TestDedupeTools(t *testing.T) {
	tools := []domain.ToolInfo{
		{Title: "Same", Website: "https://same.ai"},
		{Title: "same", Website: "https://SAME.ai"},
		{Title: "Other", Website: "https://other.ai"},
	}
	got := dedupeTools(tools)
	require.Len(t, got, 2)
	assert.Equal(t, "Same", got[0].Title)
	assert.Equal(t, "Other", got[1].Title)
}

func TestFilterByPublishDate(t *testing.T) {
	p := &Pipeline{windowDays: 7, logger: zap.NewNop()}
	recent := time.Now().UTC().AddDate(0, 0, -2).Format("2006-01-02")
	stale := time.Now().UTC().AddDate(0, 0, -30).Format("2006-01-02")

	tools := []domain.ToolInfo{
		{Title: "Recent", PublishDate: recent},
		{Title: "Stale", PublishDate: stale},
		{Title: "Undated", PublishDate: ""},
		{Title: "Unparseable", PublishDate: "sometime last week"},
	}
	got := p.filterByPublishDate(tools)
	require.Len(t, got, 3)
	assert.Equal(t, "Recent", got[0].Title)
	assert.Equal(t, "Undated", got[1].Title)
	assert.Equal(t, "Unparseable", got[2].Title)
}

type fakeSeen struct {
	recent map[string]bool
	marked []string
}

func (f *fakeSeen) IsRecentlyProcessed(ctx context.Context, url string) (bool, error) {
	return f.recent[url], nil
}
func (f *fakeSeen) MarkProcessed(ctx context.Context, url string, ttl time.Duration) error {
	f.marked = append(f.marked, url)
	return nil
}

func TestRunSkipsRecentlySeen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>ok</html>")
	}))
	defer server.Close()

	seenURL := server.URL + "/tool/seen"
	freshURL := server.URL + "/tool/fresh"
	bl, _ := newTestBlacklist(t, 10)
	seen := &fakeSeen{recent: map[string]bool{seenURL: true}}

	p := New(&stubSearcher{urls: []string{seenURL, freshURL}}, newTestFetcher(bl), &stubExtractor{}, bl,
		7, []string{"nothing.example"}, nil, zap.NewNop()).
		WithSeenStore(seen, time.Hour)

	tools, sum, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, tools, 1)
	assert.Equal(t, 1, sum.SkippedRecent)
	assert.Equal(t, []string{freshURL}, seen.marked)
}
