// Package planning implements the Planner stage (SPEC_FULL.md §4.2): it
// produces 2-5 search queries, 2-6 focus areas, and a depth level, and
// enforces the planner's own lexical-diversity and entity-mention rules
// with a single self-retry. It also discovers supplemental expert
// perspectives (SPEC_FULL.md §4.2.1) and compiles the research DAG
// (SPEC_FULL.md §4.4.1) those perspectives drive.
//
// Grounded on the teacher's internal/planning.Planner, generalized from a
// topic-only planner into one that also emits the spec's queries/
// focus_areas/depth triple and enforces its rule-based retry.
package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"deepresearch/internal/llm"
	"deepresearch/internal/state"
	"deepresearch/internal/tools"
)

// Planner coordinates query/focus/depth planning, perspective discovery,
// and DAG compilation.
type Planner struct {
	client     llm.ChatClient
	discoverer *PerspectiveDiscoverer
}

// NewPlanner creates a planner bound to a model client.
func NewPlanner(client llm.ChatClient) *Planner {
	return &Planner{client: client, discoverer: NewPerspectiveDiscoverer(client)}
}

type planSchema struct {
	Queries    []string `json:"queries"`
	FocusAreas []string `json:"focus_areas"`
	Depth      int      `json:"depth"`
}

// CreatePlan runs the Planner stage, retrying once if its own rules are
// violated, and discovers supplemental perspectives for the query
// (SPEC_FULL.md §4.2.1).
func (p *Planner) CreatePlan(ctx context.Context, query string) (state.Plan, error) {
	plan := p.planOnce(ctx, query)

	if !obeysRules(plan, query) {
		retried := p.planOnce(ctx, query)
		if obeysRules(retried, query) {
			plan = retried
		} else {
			// Keep first attempt's output with a soft warning, per
			// SPEC_FULL.md §4.2 Failure — downstream stages still function.
			fmt.Fprintf(os.Stderr, "planner: plan for %q still violates its rules after one retry; keeping first attempt\n", query)
		}
	}

	if perspectives, _, err := p.discoverer.Discover(ctx, query); err == nil {
		plan.Perspectives = perspectives
	}

	return plan, nil
}

// CreatePlanWithTools behaves like CreatePlan but discovers perspectives
// through a tool-augmented related-topic survey instead of a bare model
// call, the STORM-aligned path the Planner takes when plug-in tools are
// enabled (SPEC_FULL.md §9 Open Question (a)).
func (p *Planner) CreatePlanWithTools(ctx context.Context, query string, toolExec tools.ToolExecutor) (state.Plan, error) {
	plan := p.planOnce(ctx, query)

	if !obeysRules(plan, query) {
		retried := p.planOnce(ctx, query)
		if obeysRules(retried, query) {
			plan = retried
		} else {
			fmt.Fprintf(os.Stderr, "planner: plan for %q still violates its rules after one retry; keeping first attempt\n", query)
		}
	}

	surveyor := NewPerspectiveDiscovererWithTools(p.client, toolExec)
	if perspectives, err := surveyor.DiscoverWithSurvey(ctx, query); err == nil {
		plan.Perspectives = perspectives
	}

	return plan, nil
}

// BuildDAG constructs the research task graph from a plan's perspectives
// (SPEC_FULL.md §4.4.1): root analysis -> one search node per perspective
// -> cross-validate -> fill gaps -> synthesize.
func (p *Planner) BuildDAG(query string, plan state.Plan) *ResearchDAG {
	dag := NewDAG()

	root := dag.AddNode("root", TaskAnalyze, "Initial analysis of: "+query)

	searchNodes := make([]string, 0, len(plan.Perspectives))
	for i, persp := range plan.Perspectives {
		nodeID := fmt.Sprintf("search_%d", i)
		dag.AddNode(nodeID, TaskSearch, fmt.Sprintf("Research from %s perspective: %s", persp.Name, persp.Focus))
		dag.AddDependency(nodeID, root.ID)
		searchNodes = append(searchNodes, nodeID)
	}
	if len(searchNodes) == 0 {
		// No discovered perspectives: one plain search node.
		dag.AddNode("search_0", TaskSearch, "Research: "+query)
		dag.AddDependency("search_0", root.ID)
		searchNodes = append(searchNodes, "search_0")
	}

	analysis := dag.AddNode("cross_validate", TaskAnalyze, "Cross-validate findings and identify contradictions")
	for _, id := range searchNodes {
		dag.AddDependency(analysis.ID, id)
	}

	gap := dag.AddNode("fill_gaps", TaskSearch, "Fill identified knowledge gaps")
	dag.AddDependency(gap.ID, analysis.ID)

	synth := dag.AddNode("synthesize", TaskSynthesize, "Generate final research report")
	dag.AddDependency(synth.ID, gap.ID)

	return dag
}

func (p *Planner) planOnce(ctx context.Context, query string) state.Plan {
	prompt := "Produce a research plan for the question: \"" + query + "\"\n\n" + plannerRequirements

	resp, err := p.client.Chat(ctx, llm.RolePlanner, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil || len(resp.Choices) == 0 {
		return defaultPlan(query)
	}

	schema := parsePlanResponse(resp.Choices[0].Message.Content)
	if schema == nil {
		return defaultPlan(query)
	}

	return state.Plan{
		OriginalQuery: query,
		Queries:       clampQueries(schema.Queries, query),
		FocusAreas:    clampFocusAreas(schema.FocusAreas, query),
		Depth:         clampDepth(schema.Depth),
	}
}

const plannerRequirements = `Requirements:
- 2 to 5 English search queries, lexically diverse (no two queries should share their first four words), each mentioning at least one entity or concept from the question.
- 2 to 6 focus areas covering distinct aspects of the question.
- A depth level: 1 (single aspect), 2 (multi-aspect overview, the default), or 3 (deep comparative analysis, for explicitly comparative questions).

Respond with strict JSON: {"queries": [string], "focus_areas": [string], "depth": 1}`

// parsePlanResponse applies the strict-JSON / lenient-JSON-from-prose /
// fallback sequence (SPEC_FULL.md §9 structured extraction).
func parsePlanResponse(content string) *planSchema {
	var schema planSchema
	if err := json.Unmarshal([]byte(content), &schema); err == nil && len(schema.Queries) > 0 {
		return &schema
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(content[start:end+1]), &schema); err == nil && len(schema.Queries) > 0 {
			return &schema
		}
	}
	return nil
}

func defaultPlan(query string) state.Plan {
	return state.Plan{
		OriginalQuery: query,
		Queries:       []string{query, query + " overview", query + " recent developments"},
		FocusAreas:    []string{"background", "current state"},
		Depth:         2,
	}
}

func clampQueries(queries []string, query string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
		if len(out) == 5 {
			break
		}
	}
	if len(out) < 2 {
		out = defaultPlan(query).Queries
	}
	return out
}

func clampFocusAreas(areas []string, query string) []string {
	var out []string
	for _, a := range areas {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		out = append(out, a)
		if len(out) == 6 {
			break
		}
	}
	if len(out) < 2 {
		out = defaultPlan(query).FocusAreas
	}
	return out
}

func clampDepth(depth int) int {
	if depth < 1 || depth > 3 {
		return 2
	}
	return depth
}

// obeysRules checks the planner's own lexical-diversity and
// entity-mention rules (SPEC_FULL.md §4.2 Algorithmic rules).
func obeysRules(plan state.Plan, query string) bool {
	prefixes := make(map[string]bool)
	queryTokens := tokenSet(query)

	for _, q := range plan.Queries {
		prefix := fourGramPrefix(q)
		if prefix != "" && prefixes[prefix] {
			return false
		}
		prefixes[prefix] = true

		if !mentionsAny(q, queryTokens) {
			return false
		}
	}
	return true
}

func fourGramPrefix(s string) string {
	tokens := strings.Fields(strings.ToLower(s))
	if len(tokens) == 0 {
		return ""
	}
	n := 4
	if len(tokens) < n {
		n = len(tokens)
	}
	return strings.Join(tokens[:n], " ")
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(s)) {
		if len(t) > 2 {
			set[t] = true
		}
	}
	return set
}

func mentionsAny(s string, tokens map[string]bool) bool {
	if len(tokens) == 0 {
		return true
	}
	for _, t := range strings.Fields(strings.ToLower(s)) {
		if tokens[t] {
			return true
		}
	}
	return false
}
