package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"deepresearch/internal/search"
)

// SearchTool exposes the core Search provider (internal/search) as a
// plug-in tool, so the Planner's related-topic survey can issue searches
// when plugin tools are enabled (SPEC_FULL.md §9 Open Question (a)), without
// the tool surface reimplementing the Brave API call itself.
type SearchTool struct {
	provider search.Provider
}

// NewSearchTool wraps a Brave-backed search provider as a plug-in tool.
func NewSearchTool(apiKey string) *SearchTool {
	return &SearchTool{provider: search.NewBraveProvider(apiKey, 30*time.Second)}
}

func (t *SearchTool) Name() string { return "search" }

func (t *SearchTool) Description() string {
	return `Search the web. Args: {"query": "search terms", "count": 10}`
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return "", fmt.Errorf("search requires a 'query' argument")
	}

	count := 10
	if c, ok := args["count"].(float64); ok {
		count = int(c)
	}

	results, err := t.provider.Search(ctx, query, count)
	if err != nil {
		return "", err
	}

	var out []string
	for i, r := range results {
		out = append(out, fmt.Sprintf("%d. %s\n   URL: %s\n   %s\n", i+1, r.Title, r.URL, r.Snippet))
	}
	if len(out) == 0 {
		return "No results found.", nil
	}
	return strings.Join(out, "\n"), nil
}

// ExtractURLs extracts URLs from the formatted search results this tool
// returns, for callers that only have the text form to work with.
func ExtractURLs(searchResults string) []string {
	var urls []string
	for _, line := range strings.Split(searchResults, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "URL: ") {
			urls = append(urls, strings.TrimPrefix(strings.TrimSpace(line), "URL: "))
		}
	}
	return urls
}
