package planning

import (
	"context"
	"testing"

	"deepresearch/internal/llm"
	"deepresearch/internal/state"
)

type scriptedPlannerClient struct {
	responses []string
	errs      []error
	calls     int
	model     string
}

func (c *scriptedPlannerClient) Chat(ctx context.Context, role llm.Role, messages []llm.Message) (*llm.ChatResponse, error) {
	i := c.calls
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	c.calls++
	if c.errs != nil && i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	return &llm.ChatResponse{Choices: []struct {
		Message llm.Message `json:"message"`
	}{{Message: llm.Message{Content: c.responses[i]}}}}, nil
}

func (c *scriptedPlannerClient) StreamChat(ctx context.Context, role llm.Role, messages []llm.Message, handler func(string) error) error {
	return nil
}
func (c *scriptedPlannerClient) SetModel(model string) { c.model = model }
func (c *scriptedPlannerClient) GetModel() string      { return c.model }

const validPlanJSON = `{"queries": ["go generics overview", "go generics constraints design"], "focus_areas": ["syntax", "constraints"], "depth": 2}`

const noPerspectivesJSON = `[]`

func TestCreatePlanStrictJSON(t *testing.T) {
	client := &scriptedPlannerClient{responses: []string{validPlanJSON, noPerspectivesJSON}}
	p := NewPlanner(client)

	plan, err := p.CreatePlan(context.Background(), "how do go generics work")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Queries) != 2 || plan.Depth != 2 {
		t.Errorf("unexpected plan: %+v", plan)
	}
}

func TestCreatePlanRetriesWhenRulesViolated(t *testing.T) {
	// First attempt: both queries share the same four-word prefix - violates lexical diversity.
	badPlan := `{"queries": ["go generics overview guide deeply", "go generics overview guide briefly"], "focus_areas": ["a", "b"], "depth": 2}`
	client := &scriptedPlannerClient{responses: []string{badPlan, validPlanJSON, noPerspectivesJSON}}
	p := NewPlanner(client)

	plan, err := p.CreatePlan(context.Background(), "go generics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.calls < 2 {
		t.Errorf("expected a retry call after rule violation, got %d calls", client.calls)
	}
	if len(plan.Queries) != 2 {
		t.Errorf("expected the retried valid plan to be used, got %+v", plan)
	}
}

func TestCreatePlanFallsBackOnChatError(t *testing.T) {
	client := &scriptedPlannerClient{responses: []string{""}, errs: []error{context.DeadlineExceeded, context.DeadlineExceeded, context.DeadlineExceeded}}
	p := NewPlanner(client)

	plan, err := p.CreatePlan(context.Background(), "go generics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Queries) < 2 {
		t.Errorf("expected a default fallback plan with >=2 queries, got %+v", plan)
	}
}

func TestParsePlanResponseParsesJSONFromProse(t *testing.T) {
	content := "Here is the plan:\n" + validPlanJSON + "\nHope this helps!"
	schema := parsePlanResponse(content)
	if schema == nil {
		t.Fatal("expected JSON to be extracted from surrounding prose")
	}
	if len(schema.Queries) != 2 {
		t.Errorf("unexpected queries: %v", schema.Queries)
	}
}

func TestParsePlanResponseReturnsNilOnUnparseable(t *testing.T) {
	if schema := parsePlanResponse("not json at all"); schema != nil {
		t.Errorf("expected nil for unparseable content, got %+v", schema)
	}
}

func TestClampQueriesDedupsAndCaps(t *testing.T) {
	in := []string{"a", "a", "b", "c", "d", "e", "f"}
	out := clampQueries(in, "q")
	if len(out) != 5 {
		t.Errorf("expected clamp to 5 unique queries, got %d: %v", len(out), out)
	}
}

func TestClampQueriesFallsBackWhenTooFew(t *testing.T) {
	out := clampQueries([]string{"only one"}, "q")
	if len(out) < 2 {
		t.Errorf("expected fallback to default queries when fewer than 2 supplied, got %v", out)
	}
}

func TestClampDepthClampsOutOfRange(t *testing.T) {
	if clampDepth(0) != 2 {
		t.Error("expected depth 0 to clamp to default 2")
	}
	if clampDepth(4) != 2 {
		t.Error("expected depth 4 to clamp to default 2")
	}
	if clampDepth(3) != 3 {
		t.Error("expected depth 3 to pass through unchanged")
	}
}

func TestObeysRulesRejectsSharedFourGramPrefix(t *testing.T) {
	plan := state.Plan{Queries: []string{"go generics overview guide today", "go generics overview guide tomorrow"}}
	if obeysRules(plan, "go generics") {
		t.Error("expected queries sharing a four-word prefix to violate the rule")
	}
}

func TestObeysRulesRejectsQueryNotMentioningEntity(t *testing.T) {
	plan := state.Plan{Queries: []string{"unrelated topic entirely"}}
	if obeysRules(plan, "go generics") {
		t.Error("expected a query mentioning none of the question's tokens to violate the rule")
	}
}

func TestObeysRulesAcceptsDiverseMentioningQueries(t *testing.T) {
	plan := state.Plan{Queries: []string{"go generics constraints explained", "generics performance benchmarks golang"}}
	if !obeysRules(plan, "go generics") {
		t.Error("expected diverse, entity-mentioning queries to satisfy the rule")
	}
}

func TestBuildDAGWithNoPerspectivesAddsPlainSearchNode(t *testing.T) {
	p := NewPlanner(&scriptedPlannerClient{})
	dag := p.BuildDAG("go generics", state.Plan{})

	if _, ok := dag.GetNode("search_0"); !ok {
		t.Error("expected a fallback search_0 node when the plan has no perspectives")
	}
	if _, ok := dag.GetNode("synthesize"); !ok {
		t.Error("expected a synthesize node")
	}
}

func TestBuildDAGAddsOneSearchNodePerPerspective(t *testing.T) {
	p := NewPlanner(&scriptedPlannerClient{})
	plan := state.Plan{Perspectives: []state.Perspective{
		{Name: "Technical Expert", Focus: "implementation"},
		{Name: "Critic", Focus: "limitations"},
	}}
	dag := p.BuildDAG("go generics", plan)

	if _, ok := dag.GetNode("search_0"); !ok {
		t.Error("expected search_0 for the first perspective")
	}
	if _, ok := dag.GetNode("search_1"); !ok {
		t.Error("expected search_1 for the second perspective")
	}
	node, _ := dag.GetNode("cross_validate")
	if len(node.Dependencies) != 2 {
		t.Errorf("expected cross_validate to depend on both search nodes, got %v", node.Dependencies)
	}
}
