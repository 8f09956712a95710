// Package search is the reference Search provider (SPEC_FULL.md §6.1):
// search(query, max_results) -> [{url, title, snippet}], backed by the
// Brave Search API. Grounded on the teacher's internal/tools.SearchTool,
// reshaped from a free-form Tool.Execute(args map[string]any) into the
// typed Provider interface the Research subgraph calls directly.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"deepresearch/internal/errs"
)

const braveSearchURL = "https://api.search.brave.com/res/v1/web/search"

// Result is one search hit.
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Provider is the opaque search callable the core depends on.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// BraveProvider implements Provider against the Brave Search API over a
// raw net/http client, matching the teacher's own choice not to pull in
// an HTTP client library for this concern.
type BraveProvider struct {
	apiKey     string
	httpClient *http.Client
}

// NewBraveProvider creates a Brave-backed search provider with the given timeout.
func NewBraveProvider(apiKey string, timeout time.Duration) *BraveProvider {
	return &BraveProvider{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search issues one query. Transient failures (timeout, 5xx) are surfaced
// as errs.TransientProvider; permanent failures (4xx, other) as
// errs.PermanentProvider, per SPEC_FULL.md §6's two failure modes.
func (p *BraveProvider) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", fmt.Sprintf("%d", maxResults))

	req, err := http.NewRequestWithContext(ctx, "GET", braveSearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errs.PermanentProvider("build search request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errs.TransientProvider("search request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, errs.TransientProvider(fmt.Sprintf("search API %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errs.PermanentProvider(fmt.Sprintf("search API %d: %s", resp.StatusCode, string(body)), nil)
	}

	var parsed braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errs.PermanentProvider("decode search response", err)
	}

	results := make([]Result, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		results = append(results, Result{URL: r.URL, Title: r.Title, Snippet: r.Description})
	}
	return results, nil
}
