package domain

import (
	"encoding/json"
	"time"
)

// Classification labels returned by the extractor. The set is closed; any
// other value is treated as a parse failure.
const (
	LabelAITool    = "ai_tool"
	LabelNotAITool = "not_ai_tool"
)

// Query is a single search-provider request. Text always embeds the recency
// constraint (an "after:YYYY-MM-DD" clause computed from WindowDays).
type Query struct {
	Text       string
	WindowDays int
}

// FetchStatus describes the outcome of one fetch attempt chain.
type FetchStatus string

const (
	FetchOK      FetchStatus = "ok"
	FetchFailed  FetchStatus = "failed"
	FetchSkipped FetchStatus = "skipped"
)

// ErrorKind classifies per-URL failures for summary and metrics reporting.
type ErrorKind string

const (
	ErrKindNone        ErrorKind = ""
	ErrKindTimeout     ErrorKind = "timeout"
	ErrKindConnection  ErrorKind = "connection"
	ErrKindHTTP        ErrorKind = "http"
	ErrKindRobots      ErrorKind = "robots_disallowed"
	ErrKindBlacklisted ErrorKind = "blacklisted"
	ErrKindRecent      ErrorKind = "recently_seen"
	ErrKindCanceled    ErrorKind = "canceled"
	ErrKindParse       ErrorKind = "extraction_parse"
	ErrKindLLM         ErrorKind = "llm_call"
)

// FetchResult holds the outcome of fetching a single candidate URL.
type FetchResult struct {
	URL       string
	Status    FetchStatus
	HTML      string
	ErrorKind ErrorKind
	Err       string
}

// DomainRecord tracks accumulated fetch failures for one domain. Persisted
// across runs by the blacklist store.
type DomainRecord struct {
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure"`
}

// ToolInfo is the structured record the extractor produces for one page.
// Field names in the wire schema follow the prompt contract ("Title",
// "Key Features", ...). Fields the model found no evidence for stay empty.
// Extra captures any additional fields the model attached beyond the fixed
// schema, so forward-compatible extractor output is not silently dropped.
type ToolInfo struct {
	Title          string         `json:"Title"`
	Website        string         `json:"Website"`
	Summary        string         `json:"Core Functionality"`
	TargetAudience string         `json:"Target Audience"`
	Features       []string       `json:"Key Features"`
	Pricing        string         `json:"Pricing"`
	SourceURL      string         `json:"Source URL"`
	Tags           []string       `json:"Tags"`
	PublishDate    string         `json:"Publish Date"`
	Label          string         `json:"ai_tool_annotation"`
	Extra          map[string]any `json:"-"`
}

var knownToolInfoKeys = map[string]struct{}{
	"Title": {}, "Website": {}, "Core Functionality": {}, "Target Audience": {},
	"Key Features": {}, "Pricing": {}, "Source URL": {}, "Tags": {},
	"Publish Date": {}, "ai_tool_annotation": {},
}

// UnmarshalJSON decodes the fixed schema fields and routes everything else
// into Extra.
func (t *ToolInfo) UnmarshalJSON(data []byte) error {
	type alias ToolInfo
	var fixed alias
	if err := json.Unmarshal(data, &fixed); err != nil {
		return err
	}
	*t = ToolInfo(fixed)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, val := range raw {
		if _, known := knownToolInfoKeys[key]; known {
			continue
		}
		var v any
		if err := json.Unmarshal(val, &v); err != nil {
			continue
		}
		if t.Extra == nil {
			t.Extra = make(map[string]any)
		}
		t.Extra[key] = v
	}
	return nil
}

// RunSummary aggregates per-run bookkeeping. Immutable once the pipeline
// returns it.
type RunSummary struct {
	Searched           int       `json:"searched"`
	Candidates         int       `json:"candidates"`
	FetchedOK          int       `json:"fetched_ok"`
	FetchedFailed      int       `json:"fetched_failed"`
	SkippedByFilter    int       `json:"skipped_by_filter"`
	SkippedByRobots    int       `json:"skipped_by_robots"`
	SkippedBlacklisted int       `json:"skipped_blacklisted"`
	SkippedRecent      int       `json:"skipped_recent"`
	ExtractionFailed   int       `json:"extraction_failed"`
	ClassifiedTool     int       `json:"classified_tool"`
	ClassifiedNotTool  int       `json:"classified_not_tool"`
	NewlyBlacklisted   []string  `json:"newly_blacklisted,omitempty"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
}
