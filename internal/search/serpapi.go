package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/domain"
)

const serpAPIEndpoint = "https://serpapi.com/search.json"

// SerpAPIProvider queries SerpAPI's Google engine, the secondary search
// source used for redundancy and coverage.
type SerpAPIProvider struct {
	apiKey     string
	endpoint   string
	numResults int
	client     *http.Client
}

func NewSerpAPIProvider(apiKey string, client *http.Client) *SerpAPIProvider {
	return &SerpAPIProvider{
		apiKey:     apiKey,
		endpoint:   serpAPIEndpoint,
		numResults: 38,
		client:     client,
	}
}

func (p *SerpAPIProvider) Name() string { return "serpapi" }

func (p *SerpAPIProvider) Search(ctx context.Context, q domain.Query) ([]string, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", q.Text)
	params.Set("api_key", p.apiKey)
	params.Set("num", strconv.Itoa(p.numResults))
	params.Set("hl", "en")
	params.Set("gl", "us")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("serpapi status %d: %s", resp.StatusCode, msg)
	}

	var payload struct {
		OrganicResults []struct {
			Link string `json:"link"`
		} `json:"organic_results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("serpapi decode: %w", err)
	}

	urls := make([]string, 0, len(payload.OrganicResults))
	for _, r := range payload.OrganicResults {
		if r.Link != "" {
			urls = append(urls, r.Link)
		}
	}
	return urls, nil
}
