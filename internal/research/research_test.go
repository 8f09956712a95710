package research

import (
	"context"
	"sync"
	"time"

	"testing"

	"deepresearch/internal/fetch"
	"deepresearch/internal/llm"
	"deepresearch/internal/search"
	"deepresearch/internal/state"
)

// roleScriptedClient answers with one canned response per role, matching
// the coordinator package's scriptedClient fake.
type roleScriptedClient struct {
	mu      sync.Mutex
	byRole  map[llm.Role][]string
	calls   map[llm.Role]int
}

func newRoleScriptedClient() *roleScriptedClient {
	return &roleScriptedClient{byRole: make(map[llm.Role][]string), calls: make(map[llm.Role]int)}
}

func (c *roleScriptedClient) on(role llm.Role, responses ...string) *roleScriptedClient {
	c.byRole[role] = responses
	return c
}

func (c *roleScriptedClient) Chat(ctx context.Context, role llm.Role, messages []llm.Message) (*llm.ChatResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	responses := c.byRole[role]
	if len(responses) == 0 {
		return &llm.ChatResponse{}, nil
	}
	i := c.calls[role]
	if i >= len(responses) {
		i = len(responses) - 1
	}
	c.calls[role]++
	return &llm.ChatResponse{Choices: []struct {
		Message llm.Message `json:"message"`
	}{{Message: llm.Message{Role: "assistant", Content: responses[i]}}}}, nil
}

func (c *roleScriptedClient) StreamChat(ctx context.Context, role llm.Role, messages []llm.Message, handler func(chunk string) error) error {
	return nil
}
func (c *roleScriptedClient) SetModel(model string) {}
func (c *roleScriptedClient) GetModel() string      { return "fake" }

func (c *roleScriptedClient) callCount(role llm.Role) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[role]
}

type stubSearch struct{}

func (stubSearch) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	return []search.Result{{URL: "https://example.com/" + query, Title: "t", Snippet: "s"}}, nil
}

type stubFetch struct{}

func (stubFetch) Fetch(ctx context.Context, url string, headers map[string]string, timeout time.Duration) (fetch.Result, error) {
	return fetch.Result{StatusCode: 200, Body: "body for " + url, ContentLength: 9}, nil
}

// TestRunSequentialStopsWhenKnowledgeGapsAreLowImportance exercises the
// SPEC_FULL.md §4.4.2 feedback path: CrossValidate's gap analysis
// overrides the analyzer's own "continue" decision once every remaining
// knowledge gap is below gapImportanceThreshold, even with iteration
// budget and more plan queries left to run.
func TestRunSequentialStopsWhenKnowledgeGapsAreLowImportance(t *testing.T) {
	client := newRoleScriptedClient().
		on(llm.RoleSearcherAnalyzer,
			`{"findings":[{"claim":"finding one","source_url":"https://example.com/first query","confidence":0.8,"supporting_snippet":"s"}],"action":"continue","next_query":"second query"}`,
		).
		on(llm.RoleAnalyzer,
			`{"validated_facts":[],"contradictions":[],"knowledge_gaps":[{"description":"minor gap","importance":0.1,"suggested_queries":["x"]}]}`,
		)

	runner := &Runner{
		Search:             stubSearch{},
		Fetch:              stubFetch{},
		Client:             client,
		MaxResultsPerQuery: 5,
		FetchConcurrency:   2,
		FetchTimeout:       2 * time.Second,
		SearchTimeout:      2 * time.Second,
	}

	plan := state.Plan{
		Queries:    []string{"first query", "second query", "third query"},
		FocusAreas: []string{"background"},
		Depth:      3,
	}
	strategy := state.Strategy{Mode: state.StrategySequential, MaxIterations: 3, MaxParallelism: 1}

	out := runner.RunSequential(context.Background(), plan, strategy, nil)

	if out.IterationsUsed != 1 {
		t.Errorf("expected the low-importance-gap short circuit to stop after one iteration, got %d", out.IterationsUsed)
	}
	if client.callCount(llm.RoleAnalyzer) == 0 {
		t.Error("expected CrossValidate (RoleAnalyzer) to have been consulted inside the loop decision")
	}
}

// TestRunSequentialContinuesWhenKnowledgeGapsAreImportant is the
// complementary case: a high-importance gap must not be overridden, so
// the analyzer's "continue" decision is honored and a second iteration
// runs.
func TestRunSequentialContinuesWhenKnowledgeGapsAreImportant(t *testing.T) {
	client := newRoleScriptedClient().
		on(llm.RoleSearcherAnalyzer,
			`{"findings":[{"claim":"finding one","source_url":"https://example.com/first query","confidence":0.8,"supporting_snippet":"s"}],"action":"continue","next_query":"second query"}`,
		).
		on(llm.RoleAnalyzer,
			`{"validated_facts":[],"contradictions":[],"knowledge_gaps":[{"description":"big gap","importance":0.9,"suggested_queries":["x"]}]}`,
		)

	runner := &Runner{
		Search:             stubSearch{},
		Fetch:              stubFetch{},
		Client:             client,
		MaxResultsPerQuery: 5,
		FetchConcurrency:   2,
		FetchTimeout:       2 * time.Second,
		SearchTimeout:      2 * time.Second,
	}

	plan := state.Plan{
		Queries:    []string{"first query"},
		FocusAreas: []string{"background"},
		Depth:      3,
	}
	strategy := state.Strategy{Mode: state.StrategySequential, MaxIterations: 2, MaxParallelism: 1}

	out := runner.RunSequential(context.Background(), plan, strategy, nil)

	if out.IterationsUsed != 2 {
		t.Errorf("expected the run to continue into a second iteration when gaps are important, got %d", out.IterationsUsed)
	}
}
