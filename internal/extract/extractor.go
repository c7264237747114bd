// Package extract turns fetched HTML into a structured, classified
// ToolInfo record with a single model call per URL. Model concurrency is
// bounded by a weighted semaphore independent of the fetch batch size,
// because model calls are costlier than fetches.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/domain"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/monitoring"
)

// ErrParse marks a model response that was not the required JSON object.
// Terminal for the URL: the pipeline never re-prompts on malformed output.
var ErrParse = errors.New("extraction parse error")

// ErrLLMCall marks a transient model-API failure that survived the retry
// budget.
var ErrLLMCall = errors.New("llm call error")

// Extractor performs extraction and classification in one chat-completion
// call per URL.
type Extractor struct {
	client      *openai.Client
	model       string
	truncLimit  int
	maxRetries  int
	retryDelay  time.Duration
	callTimeout time.Duration
	sem         *semaphore.Weighted
	metrics     *monitoring.Metrics
	logger      *zap.Logger
}

// Options configures an Extractor. Zero values fall back to sane defaults.
type Options struct {
	Model       string
	TruncLimit  int
	Concurrency int
	MaxRetries  int
	RetryDelay  time.Duration
	CallTimeout time.Duration
}

func New(client *openai.Client, opts Options, m *monitoring.Metrics, logger *zap.Logger) *Extractor {
	if opts.Model == "" {
		opts.Model = openai.GPT4o
	}
	if opts.TruncLimit <= 0 {
		opts.TruncLimit = 15000
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 2
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 10 * time.Second
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 2 * time.Minute
	}
	return &Extractor{
		client:      client,
		model:       opts.Model,
		truncLimit:  opts.TruncLimit,
		maxRetries:  opts.MaxRetries,
		retryDelay:  opts.RetryDelay,
		callTimeout: opts.CallTimeout,
		sem:         semaphore.NewWeighted(int64(opts.Concurrency)),
		metrics:     m,
		logger:      logger,
	}
}

// Extract reduces and truncates html, calls the model once (plus bounded
// retries for transient API errors only) and parses the response strictly
// as JSON. A malformed response fails with ErrParse and is not retried.
func (e *Extractor) Extract(ctx context.Context, url, html string) (*domain.ToolInfo, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMCall, err)
	}
	defer e.sem.Release(1)

	reduced := truncate(reduceHTML(html), e.truncLimit)
	if len(html) > e.truncLimit {
		e.logger.Debug("html truncated for model prompt",
			zap.String("url", url), zap.Int("limit", e.truncLimit))
	}

	content, err := e.call(ctx, url, reduced)
	if err != nil {
		e.metrics.IncLLMCall("failed")
		return nil, err
	}
	e.metrics.IncLLMCall("ok")

	info, err := parseResponse(content, url)
	if err != nil {
		e.metrics.IncError(string(domain.ErrKindParse))
		e.logger.Warn("model returned unparseable output",
			zap.String("url", url), zap.Error(err))
		return nil, err
	}
	e.metrics.IncClassified(info.Label)
	return info, nil
}

// call issues the chat completion with the fixed prompt pair, retrying
// transient API failures up to the cap.
func (e *Extractor) call(ctx context.Context, url, html string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(userPromptTemplate, url, html)},
		},
		MaxTokens:   800,
		Temperature: 0.4,
	}

	var lastErr error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if attempt > 0 {
			e.metrics.IncLLMCall("retried")
			select {
			case <-time.After(e.retryDelay):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrLLMCall, ctx.Err())
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		resp, err := e.client.CreateChatCompletion(callCtx, req)
		cancel()
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("%w: empty choices for %s", ErrParse, url)
			}
			return resp.Choices[0].Message.Content, nil
		}
		lastErr = err
		if !transientAPIError(err) {
			break
		}
		e.logger.Warn("transient model API failure, will retry",
			zap.String("url", url), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return "", fmt.Errorf("%w: %v", ErrLLMCall, lastErr)
}

// transientAPIError reports whether err is worth another attempt: rate
// limits, server-side errors and timeouts. Auth and request errors are
// terminal.
func transientAPIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// parseResponse strips markdown fences the model sometimes adds, locates
// the outermost JSON object and unmarshals it strictly. The label must be
// one of the closed set.
func parseResponse(content, url string) (*domain.ToolInfo, error) {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in response for %s", ErrParse, url)
	}
	s = s[start : end+1]

	var info domain.ToolInfo
	if err := json.Unmarshal([]byte(s), &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if info.Label != domain.LabelAITool && info.Label != domain.LabelNotAITool {
		return nil, fmt.Errorf("%w: unknown label %q for %s", ErrParse, info.Label, url)
	}
	if info.Website == "" {
		info.Website = url
	}
	if info.SourceURL == "" {
		info.SourceURL = url
	}
	return &info, nil
}
