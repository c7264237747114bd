package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/domain"
)

const serperEndpoint = "https://google.serper.dev/search"

// SerperProvider queries the Serper.dev Google search API.
type SerperProvider struct {
	apiKey     string
	endpoint   string
	numResults int
	client     *http.Client
}

func NewSerperProvider(apiKey string, client *http.Client) *SerperProvider {
	return &SerperProvider{
		apiKey:     apiKey,
		endpoint:   serperEndpoint,
		numResults: 38,
		client:     client,
	}
}

func (p *SerperProvider) Name() string { return "serper" }

func (p *SerperProvider) Search(ctx context.Context, q domain.Query) ([]string, error) {
	body, err := json.Marshal(map[string]any{
		"q":   q.Text,
		"gl":  "us",
		"hl":  "en",
		"num": p.numResults,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("serper status %d: %s", resp.StatusCode, msg)
	}

	var payload struct {
		Organic []struct {
			Link string `json:"link"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("serper decode: %w", err)
	}

	urls := make([]string, 0, len(payload.Organic))
	for _, r := range payload.Organic {
		if r.Link != "" {
			urls = append(urls, r.Link)
		}
	}
	return urls, nil
}
