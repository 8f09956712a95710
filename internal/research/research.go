// Package research implements the Research subgraph (SPEC_FULL.md §4.4):
// the innermost Search -> Read -> Analyze engine that produces findings
// and read_contents from a plan, in either sequential-iterative or
// parallel-breadth mode.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"deepresearch/internal/errs"
	"deepresearch/internal/fetch"
	"deepresearch/internal/llm"
	"deepresearch/internal/search"
	"deepresearch/internal/state"
)

// Runner drives one Research subgraph execution.
type Runner struct {
	Search  search.Provider
	Fetch   fetch.Fetcher
	Client  llm.ChatClient
	MaxResultsPerQuery int

	// Documents routes a fetched page whose URL carries a recognized
	// document extension (.pdf/.docx/.xlsx/.csv) through the plug-in
	// document readers (SPEC_FULL.md §6.1) instead of treating the raw
	// bytes as plain text. Nil disables document routing: such pages are
	// recorded with their undecoded body.
	Documents DocumentReader

	FetchConcurrency int
	FetchTimeout     time.Duration
	SearchTimeout    time.Duration
}

// Output is the subgraph's delta: new findings, newly read pages, new
// search records, and the one think-tool thought emitted per iteration.
type Output struct {
	Findings       []state.Finding
	ReadContents   []state.PageContent
	SearchHistory  []state.SearchRecord
	Thoughts       []string
	IterationsUsed int
}

// gapImportanceThreshold is the cutoff CrossValidate's knowledge gaps are
// compared against in the sequential loop's sufficiency check (SPEC_FULL.md
// §4.4.2): an iteration whose gaps are all below this is treated as
// sufficient regardless of what the analyzer itself proposed.
const gapImportanceThreshold = 0.5

// RunSequential repeats Search -> Read -> Analyze until the analyzer
// says sufficient or strategy.MaxIterations is hit (SPEC_FULL.md §4.4
// Sequential mode).
func (r *Runner) RunSequential(ctx context.Context, plan state.Plan, strategy state.Strategy, alreadyRead map[string]bool) Output {
	var out Output
	readSet := cloneSet(alreadyRead)

	queryQueue := append([]string{}, plan.Queries...)
	iteration := 0

	for iteration < strategy.MaxIterations && len(queryQueue) > 0 {
		iteration++
		query := queryQueue[0]
		queryQueue = queryQueue[1:]

		results, searchErr := r.doSearch(ctx, query)
		record := state.SearchRecord{Query: query, Timestamp: time.Now()}
		for _, res := range results {
			record.ResultURLs = append(record.ResultURLs, res.URL)
		}
		out.SearchHistory = append(out.SearchHistory, record)

		var toFetch []search.Result
		for _, res := range results {
			if !readSet[res.URL] {
				toFetch = append(toFetch, res)
				readSet[res.URL] = true
			}
		}

		pages := r.doRead(ctx, toFetch)
		out.ReadContents = append(out.ReadContents, pages...)

		newFindings, thought, decision := r.analyze(ctx, plan.Query(), pages, searchErr)
		out.Findings = append(out.Findings, newFindings...)
		out.Thoughts = append(out.Thoughts, thought)

		if decision.Action == "continue" && len(newFindings) > 0 {
			gapAnalysis := CrossValidate(ctx, r.Client, plan.Query(), out.Findings, plan.FocusAreas)
			if LowImportanceGapsOnly(gapAnalysis, gapImportanceThreshold) {
				// Remaining gaps are all low-importance: the analyzer's own
				// sufficiency signal is overridden to finish (SPEC_FULL.md
				// §4.4.2 feeding the Analyzer's sufficiency rule).
				decision.Action = "finish"
			}
		}

		if decision.Action != "continue" || len(newFindings) == 0 {
			break
		}
		if decision.NextQuery != "" {
			queryQueue = append([]string{decision.NextQuery}, queryQueue...)
		}
	}

	out.IterationsUsed = iteration
	return out
}

// RunParallel fans out one Search -> Read -> Analyze triple per plan
// query, up to strategy.MaxParallelism, sharing one URL-dedup view under
// a mutex, then merges findings in plan order regardless of completion
// order (O3).
func (r *Runner) RunParallel(ctx context.Context, plan state.Plan, strategy state.Strategy, alreadyRead map[string]bool) Output {
	n := strategy.MaxParallelism
	if n > len(plan.Queries) {
		n = len(plan.Queries)
	}
	if n <= 0 {
		return Output{}
	}

	var mu sync.Mutex
	readSet := cloneSet(alreadyRead)

	results := make([]Output, n)
	var wg sync.WaitGroup
	sem := make(chan struct{}, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			query := plan.Queries[idx]
			searchResults, searchErr := r.doSearch(ctx, query)

			record := state.SearchRecord{Query: query, Timestamp: time.Now()}
			var toFetch []search.Result
			for _, res := range searchResults {
				record.ResultURLs = append(record.ResultURLs, res.URL)

				mu.Lock()
				already := readSet[res.URL]
				if !already {
					readSet[res.URL] = true
				}
				mu.Unlock()

				if !already {
					toFetch = append(toFetch, res)
				}
			}

			pages := r.doRead(ctx, toFetch)
			findings, thought, _ := r.analyze(ctx, plan.Query(), pages, searchErr)

			results[idx] = Output{
				Findings:      findings,
				ReadContents:  pages,
				SearchHistory: []state.SearchRecord{record},
				Thoughts:      []string{thought},
			}
		}(i)
	}
	wg.Wait()

	var merged Output
	for _, res := range results {
		merged.Findings = append(merged.Findings, res.Findings...)
		merged.ReadContents = append(merged.ReadContents, res.ReadContents...)
		merged.SearchHistory = append(merged.SearchHistory, res.SearchHistory...)
		merged.Thoughts = append(merged.Thoughts, res.Thoughts...)
	}
	merged.IterationsUsed = 1
	return merged
}

// doSearch issues one query, retrying once on a transient failure
// (500ms backoff) and treating a permanent failure as an empty result
// (SPEC_FULL.md §6 Search provider).
func (r *Runner) doSearch(ctx context.Context, query string) ([]search.Result, error) {
	maxResults := r.MaxResultsPerQuery
	if maxResults == 0 {
		maxResults = 5
	}

	ctx, cancel := context.WithTimeout(ctx, r.SearchTimeout)
	defer cancel()

	results, err := r.Search.Search(ctx, query, maxResults)
	if err == nil {
		return results, nil
	}

	var e *errs.Error
	if ok := asTaxonomy(err, &e); ok && e.Kind == errs.KindTransientProvider {
		time.Sleep(500 * time.Millisecond)
		results, err = r.Search.Search(ctx, query, maxResults)
		if err == nil {
			return results, nil
		}
	}
	return nil, err
}

// doRead fetches the given results with bounded concurrency, never
// raising fetch failures to the caller (G3); a non-200 or error sets the
// page's status instead.
func (r *Runner) doRead(ctx context.Context, results []search.Result) []state.PageContent {
	concurrency := r.FetchConcurrency
	if concurrency == 0 {
		concurrency = 3
	}

	pages := make([]state.PageContent, len(results))
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for i, res := range results {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, url string) {
			defer wg.Done()
			defer func() { <-sem }()
			pages[idx] = r.fetchOne(ctx, url)
		}(i, res.URL)
	}
	wg.Wait()
	return pages
}

func (r *Runner) fetchOne(ctx context.Context, url string) state.PageContent {
	timeout := r.FetchTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	result, err := r.Fetch.Fetch(ctx, url, nil, timeout)
	status := state.PageOK
	switch {
	case err != nil:
		var e *errs.Error
		if asTaxonomy(err, &e) && e.Kind == errs.KindPermanentProvider {
			status = state.PageBlocked
		} else {
			status = state.PageError
		}
	case result.Body == "":
		status = state.PageEmpty
	}

	body := result.Body
	if status == state.PageOK && result.DocumentExt != "" && r.Documents != nil {
		extracted, err := r.Documents.Read(ctx, result.DocumentExt, []byte(body))
		if err != nil {
			status = state.PageError
		} else {
			body = extracted
		}
	}

	return state.PageContent{
		URL:            url,
		FetchedAt:      time.Now(),
		Status:         status,
		Body:           body,
		ContentLength:  len(body),
		BytesTruncated: result.BytesTruncated,
	}
}

type analyzeDecision struct {
	Action    string `json:"action"`
	NextQuery string `json:"next_query,omitempty"`
}

// analyze extracts findings from the fetched pages grounded in query,
// and emits the think-tool thought and loop decision (SPEC_FULL.md §4.4
// step 3, Think-tool contract).
func (r *Runner) analyze(ctx context.Context, query string, pages []state.PageContent, searchErr error) ([]state.Finding, string, analyzeDecision) {
	if len(pages) == 0 {
		return nil, thought(query, 0, 0, "insufficient, no pages fetched"), analyzeDecision{Action: "finish"}
	}

	var bodies strings.Builder
	urls := make([]string, 0, len(pages))
	for _, p := range pages {
		if p.Status != state.PageOK {
			continue
		}
		urls = append(urls, p.URL)
		fmt.Fprintf(&bodies, "URL: %s\n%s\n---\n", p.URL, truncateForPrompt(p.Body))
	}

	prompt := fmt.Sprintf(`Question: %s

Extract factual findings from the page contents below that help answer the question. For each finding give the claim, a confidence 0-1, and the supporting snippet.

%s

Respond with strict JSON:
{"findings": [{"claim": "...", "source_url": "...", "confidence": 0.8, "supporting_snippet": "..."}], "action": "continue"|"finish", "next_query": "..."}`, query, bodies.String())

	resp, err := r.Client.Chat(ctx, llm.RoleSearcherAnalyzer, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil || len(resp.Choices) == 0 {
		return nil, thought(query, len(pages), len(urls), "model call failed, treating as insufficient"), analyzeDecision{Action: "finish"}
	}

	findings, decision := parseAnalysis(resp.Choices[0].Message.Content)
	assessment := "sufficient"
	if decision.Action == "continue" {
		assessment = "need " + decision.NextQuery
	}

	return findings, thought(query, len(pages), len(urls), assessment), decision
}

func thought(query string, results, urls int, assessment string) string {
	return fmt.Sprintf("Query: %s | Found %d results, %d URLs. Key snippets: summarized above | Assessment: %s", query, results, urls, assessment)
}

func parseAnalysis(content string) ([]state.Finding, analyzeDecision) {
	var schema struct {
		Findings  []state.Finding `json:"findings"`
		Action    string          `json:"action"`
		NextQuery string          `json:"next_query"`
	}

	if err := json.Unmarshal([]byte(content), &schema); err != nil {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start < 0 || end <= start {
			return nil, analyzeDecision{Action: "finish"}
		}
		if err := json.Unmarshal([]byte(content[start:end+1]), &schema); err != nil {
			return nil, analyzeDecision{Action: "finish"}
		}
	}

	return schema.Findings, analyzeDecision{Action: schema.Action, NextQuery: schema.NextQuery}
}

func truncateForPrompt(body string) string {
	const max = 4000
	if len(body) > max {
		return body[:max]
	}
	return body
}

func cloneSet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func asTaxonomy(err error, target **errs.Error) bool {
	e, ok := err.(*errs.Error)
	if ok {
		*target = e
	}
	return ok
}
