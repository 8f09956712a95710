package tools

import (
	"context"
	"fmt"
	"time"

	"deepresearch/internal/fetch"
)

// FetchTool exposes the core Page fetcher (internal/fetch) as a plug-in
// tool (SPEC_FULL.md §9 Open Question (a)), reusing its HTML-to-text
// extraction rather than duplicating it.
type FetchTool struct {
	fetcher fetch.Fetcher
}

// NewFetchTool wraps an HTTP page fetcher as a plug-in tool.
func NewFetchTool() *FetchTool {
	return &FetchTool{fetcher: fetch.NewHTTPFetcher(0)}
}

func (t *FetchTool) Name() string { return "fetch" }

func (t *FetchTool) Description() string {
	return `Fetch and extract text content from a web page. Args: {"url": "https://..."}`
}

func (t *FetchTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	urlStr, ok := args["url"].(string)
	if !ok || urlStr == "" {
		return "", fmt.Errorf("fetch requires a 'url' argument")
	}

	result, err := t.fetcher.Fetch(ctx, urlStr, nil, 30*time.Second)
	if err != nil {
		return "", err
	}

	text := result.Body
	if len(text) > 10000 {
		text = text[:10000] + "\n...[truncated]"
	}
	return text, nil
}
