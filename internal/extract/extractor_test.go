package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/domain"
)

// newModelServer returns an httptest server that answers chat completion
// requests with the given content, and an extractor pointed at it.
func newModelServer(t *testing.T, handler http.HandlerFunc) *Extractor {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	client := openai.NewClientWithConfig(cfg)

	return New(client, Options{
		Model:       "gpt-4o",
		TruncLimit:  15000,
		Concurrency: 2,
		MaxRetries:  3,
		RetryDelay:  time.Millisecond,
		CallTimeout: 5 * time.Second,
	}, nil, zap.NewNop())
}

func completionWith(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

const validResponse = `{
	"Title": "SketchMind",
	"Website": "https://sketchmind.ai",
	"Core Functionality": "Turns rough sketches into production UI code.",
	"Target Audience": "Frontend developers",
	"Key Features": ["sketch import", "code export"],
	"Pricing": "Free tier, Pro at $20/mo",
	"Source URL": "https://news.example.com/sketchmind-launch",
	"Tags": ["design", "codegen"],
	"Publish Date": "2026-08-25",
	"ai_tool_annotation": "ai_tool"
}`

func TestExtractValidResponse(t *testing.T) {
	e := newModelServer(t, completionWith(validResponse))

	info, err := e.Extract(context.Background(), "https://news.example.com/sketchmind-launch", "<html>...</html>")
	require.NoError(t, err)
	assert.Equal(t, "SketchMind", info.Title)
	assert.Equal(t, "https://sketchmind.ai", info.Website)
	assert.Equal(t, domain.LabelAITool, info.Label)
	assert.Equal(t, []string{"sketch import", "code export"}, info.Features)
	assert.Equal(t, "2026-08-25", info.PublishDate)
}

func TestExtractStripsMarkdownFences(t *testing.T) {
	fenced := "```json\n" + validResponse + "\n```"
	e := newModelServer(t, completionWith(fenced))

	info, err := e.Extract(context.Background(), "https://x.test/page", "<html></html>")
	require.NoError(t, err)
	assert.Equal(t, "SketchMind", info.Title)
}

func TestExtractCapturesExtraFields(t *testing.T) {
	response := `{"Title":"T","ai_tool_annotation":"ai_tool","Founded":"2026","Team Size":12}`
	e := newModelServer(t, completionWith(response))

	info, err := e.Extract(context.Background(), "https://x.test/page", "<html></html>")
	require.NoError(t, err)
	assert.Equal(t, "2026", info.Extra["Founded"])
	assert.Equal(t, float64(12), info.Extra["Team Size"])
}

func TestExtractFallsBackToSourceURL(t *testing.T) {
	response := `{"Title":"T","ai_tool_annotation":"not_ai_tool"}`
	e := newModelServer(t, completionWith(response))

	info, err := e.Extract(context.Background(), "https://x.test/page", "<html></html>")
	require.NoError(t, err)
	assert.Equal(t, "https://x.test/page", info.Website)
	assert.Equal(t, "https://x.test/page", info.SourceURL)
}

func TestExtractNonJSONFailsWithParseError(t *testing.T) {
	e := newModelServer(t, completionWith("I could not find any tool information on this page."))

	info, err := e.Extract(context.Background(), "https://x.test/page", "<html></html>")
	assert.Nil(t, info)
	assert.ErrorIs(t, err, ErrParse)
}

func TestExtractUnknownLabelFailsWithParseError(t *testing.T) {
	e := newModelServer(t, completionWith(`{"Title":"T","ai_tool_annotation":"maybe_a_tool"}`))

	_, err := e.Extract(context.Background(), "https://x.test/page", "<html></html>")
	assert.ErrorIs(t, err, ErrParse)
}

func TestExtractParseErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	e := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		completionWith("not json at all")(w, r)
	})

	_, err := e.Extract(context.Background(), "https://x.test/page", "<html></html>")
	assert.ErrorIs(t, err, ErrParse)
	assert.Equal(t, int32(1), calls.Load(), "malformed output must not trigger a re-prompt")
}

func TestExtractRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	e := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"rate limited","type":"requests"}}`)
			return
		}
		completionWith(validResponse)(w, r)
	})

	info, err := e.Extract(context.Background(), "https://x.test/page", "<html></html>")
	require.NoError(t, err)
	assert.Equal(t, "SketchMind", info.Title)
	assert.Equal(t, int32(2), calls.Load())
}

func TestExtractAuthErrorIsTerminal(t *testing.T) {
	var calls atomic.Int32
	e := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"auth"}}`)
	})

	_, err := e.Extract(context.Background(), "https://x.test/page", "<html></html>")
	assert.ErrorIs(t, err, ErrLLMCall)
	assert.Equal(t, int32(1), calls.Load())
}

func TestExtractBoundsModelConcurrency(t *testing.T) {
	const ceiling = 2
	var inflight, peak atomic.Int32
	e := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		cur := inflight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inflight.Add(-1)
		completionWith(validResponse)(w, r)
	})

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.Extract(context.Background(),
				fmt.Sprintf("https://x.test/page-%d", i), "<html>ok</html>")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(ceiling),
		"model calls must stay under the concurrency ceiling regardless of callers")
}

func TestExtractTruncatesLongHTML(t *testing.T) {
	var gotLen int
	e := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotLen = len(req.Messages[1].Content)
		completionWith(validResponse)(w, r)
	})
	e.truncLimit = 500

	long := "<html><body>" + strings.Repeat("x", 10000) + "</body></html>"
	_, err := e.Extract(context.Background(), "https://x.test/page", long)
	require.NoError(t, err)
	assert.Less(t, gotLen, 700, "prompt must carry at most the truncation budget plus the template")
}

func TestReduceHTMLStripsScripts(t *testing.T) {
	html := `<html><head><script>var x=1;</script><style>.a{}</style></head><body><p>Visible</p></body></html>`
	reduced := reduceHTML(html)
	assert.Contains(t, reduced, "Visible")
	assert.NotContains(t, reduced, "var x=1;")
	assert.NotContains(t, reduced, ".a{}")
}

func TestTruncateBacksOffToRuneBoundary(t *testing.T) {
	s := strings.Repeat("é", 10)
	got := truncate(s, 5)
	assert.True(t, utf8.ValidString(got), "cut must not split a rune")
	assert.Equal(t, strings.Repeat("é", 2), got)

	assert.Equal(t, "plain", truncate("plain", 10))
	assert.Equal(t, "pla", truncate("plain", 3))
}

func TestReduceHTMLToleratesGarbage(t *testing.T) {
	assert.NotEmpty(t, reduceHTML("<<<>>>"))
}

func TestErrorsAreDistinguishable(t *testing.T) {
	assert.False(t, errors.Is(ErrParse, ErrLLMCall))
}
