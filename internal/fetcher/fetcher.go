// Package fetcher retrieves HTML for candidate URLs in bounded-size
// concurrent batches. Batches run strictly in sequence, capping peak open
// connections; within a batch, completion order is unconstrained. Each URL
// is checked against the blacklist and the robots cache before any request
// is made, and terminal failures feed the blacklist's per-domain counters.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/blacklist"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/domain"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/monitoring"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/robots"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/urlutil"
)

const maxBodyBytes = 4 << 20

// defaultHeaders mimics a regular browser session; several tool landing
// pages refuse bare clients.
var defaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"Referer":         "https://www.google.com/",
}

// ProgressFunc is invoked once per settled URL (success, failure or skip),
// in completion order. It supports external progress reporting and lets
// extraction start as soon as a page's HTML is available; it is a side
// effect, not a correctness requirement.
type ProgressFunc func(res domain.FetchResult)

// Fetcher downloads candidate pages batch by batch.
type Fetcher struct {
	client     *http.Client
	batchSize  int
	maxRetries int
	backoff    time.Duration
	robots     *robots.Cache
	blacklist  *blacklist.Store
	metrics    *monitoring.Metrics
	logger     *zap.Logger
	progress   ProgressFunc
}

func New(client *http.Client, batchSize, maxRetries int, backoff time.Duration,
	rc *robots.Cache, bl *blacklist.Store, m *monitoring.Metrics, logger *zap.Logger) *Fetcher {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Fetcher{
		client:     client,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		backoff:    backoff,
		robots:     rc,
		blacklist:  bl,
		metrics:    m,
		logger:     logger,
	}
}

// OnProgress registers the per-URL completion callback. Must be set before
// FetchAll is called.
func (f *Fetcher) OnProgress(fn ProgressFunc) { f.progress = fn }

// FetchAll retrieves all URLs and returns a result per URL. Batch k+1 does
// not start until every fetch in batch k has settled.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) map[string]domain.FetchResult {
	results := make(map[string]domain.FetchResult, len(urls))
	var mu sync.Mutex

	for start := 0; start < len(urls); start += f.batchSize {
		end := start + f.batchSize
		if end > len(urls) {
			end = len(urls)
		}
		batch := urls[start:end]
		f.logger.Info("fetching batch",
			zap.Int("batch", start/f.batchSize+1),
			zap.Int("size", len(batch)))

		var wg sync.WaitGroup
		for _, u := range batch {
			wg.Add(1)
			go func(u string) {
				defer wg.Done()
				res := f.fetchOne(ctx, u)
				mu.Lock()
				results[u] = res
				mu.Unlock()
				if f.progress != nil {
					f.progress(res)
				}
			}(u)
		}
		wg.Wait()
	}
	return results
}

// fetchOne runs the pre-checks and the retry loop for a single URL.
func (f *Fetcher) fetchOne(ctx context.Context, u string) domain.FetchResult {
	dom := urlutil.Domain(u)

	if f.blacklist != nil && f.blacklist.IsBlacklisted(dom) {
		f.metrics.IncFetched(string(domain.FetchSkipped))
		f.logger.Warn("domain blacklisted, skipping", zap.String("url", u))
		return domain.FetchResult{URL: u, Status: domain.FetchSkipped, ErrorKind: domain.ErrKindBlacklisted}
	}
	if f.robots != nil && !f.robots.Allowed(ctx, u) {
		f.metrics.IncFetched(string(domain.FetchSkipped))
		f.logger.Warn("robots.txt disallows fetch, skipping", zap.String("url", u))
		return domain.FetchResult{URL: u, Status: domain.FetchSkipped, ErrorKind: domain.ErrKindRobots}
	}

	delay := f.backoff
	var lastKind domain.ErrorKind
	var lastErr error
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return f.abort(u, ctx.Err())
			}
			delay *= 2
		}

		html, kind, err := f.attempt(ctx, u)
		if err == nil {
			f.metrics.IncFetched(string(domain.FetchOK))
			return domain.FetchResult{URL: u, Status: domain.FetchOK, HTML: html}
		}
		if ctx.Err() != nil {
			return f.abort(u, ctx.Err())
		}
		lastKind, lastErr = kind, err
		if !retryable(kind, err) {
			break
		}
		f.logger.Warn("transient fetch failure, will retry",
			zap.String("url", u),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return f.fail(u, dom, lastKind, lastErr)
}

// attempt issues one GET and classifies any failure.
func (f *Fetcher) attempt(ctx context.Context, u string) (string, domain.ErrorKind, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", domain.ErrKindConnection, err
	}
	for k, v := range defaultHeaders {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", domain.ErrKindTimeout, err
		}
		return "", domain.ErrKindConnection, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", domain.ErrKindHTTP, &httpError{status: resp.StatusCode, url: u}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", domain.ErrKindConnection, fmt.Errorf("read body: %w", err)
	}
	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "html") && !strings.Contains(ct, "text") {
		return "", domain.ErrKindHTTP, fmt.Errorf("unsupported content type %q for %s", ct, u)
	}
	return string(body), domain.ErrKindNone, nil
}

// abort reports a fetch cut short by run cancellation. The domain's
// failure counter is left alone: an aborted run says nothing about the
// domain's health.
func (f *Fetcher) abort(u string, err error) domain.FetchResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	f.metrics.IncFetched(string(domain.FetchFailed))
	f.metrics.IncError(string(domain.ErrKindCanceled))
	f.logger.Warn("fetch aborted", zap.String("url", u), zap.Error(err))
	return domain.FetchResult{URL: u, Status: domain.FetchFailed, ErrorKind: domain.ErrKindCanceled, Err: msg}
}

// fail records a terminal per-URL failure and feeds the domain's failure
// counter.
func (f *Fetcher) fail(u, dom string, kind domain.ErrorKind, err error) domain.FetchResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	f.metrics.IncFetched(string(domain.FetchFailed))
	f.metrics.IncError(string(kind))
	f.logger.Warn("fetch failed", zap.String("url", u), zap.String("kind", string(kind)), zap.Error(err))

	if f.blacklist != nil && dom != "" {
		if f.blacklist.RecordFailure(dom) {
			f.logger.Warn("domain crossed failure threshold, blacklisting", zap.String("domain", dom))
		}
	}
	return domain.FetchResult{URL: u, Status: domain.FetchFailed, ErrorKind: kind, Err: msg}
}

// httpError carries the status code so the retry policy can distinguish
// 429/5xx from other 4xx responses.
type httpError struct {
	status int
	url    string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("http status %d for %s", e.status, e.url)
}

// retryable applies the retry policy: timeouts, connection errors, 429 and
// 5xx are transient; everything else is terminal immediately.
func retryable(kind domain.ErrorKind, err error) bool {
	switch kind {
	case domain.ErrKindTimeout, domain.ErrKindConnection:
		return true
	case domain.ErrKindHTTP:
		var he *httpError
		if errors.As(err, &he) {
			return he.status == http.StatusTooManyRequests || he.status >= 500
		}
	}
	return false
}
