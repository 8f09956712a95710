package planning

import (
	"context"
	"testing"

	"deepresearch/internal/state"
)

type fakeToolExecutor struct {
	searchResult string
	searchErr    error
	executions   int
}

func (f *fakeToolExecutor) Execute(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	f.executions++
	if f.searchErr != nil {
		return "", f.searchErr
	}
	return f.searchResult, nil
}

func (f *fakeToolExecutor) ToolNames() []string { return []string{"search"} }

const perspectivesJSON = `[
  {"name": "Technical Expert", "focus": "implementation details", "questions": ["q1", "q2"]},
  {"name": "Industry Analyst", "focus": "market impact", "questions": ["q3"]}
]`

func TestDiscoverParsesPerspectivesFromJSONArray(t *testing.T) {
	client := &scriptedPlannerClient{responses: []string{perspectivesJSON}}
	d := NewPerspectiveDiscoverer(client)

	perspectives, model, err := d.Discover(context.Background(), "go generics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(perspectives) != 2 || perspectives[0].Name != "Technical Expert" {
		t.Errorf("unexpected perspectives: %+v", perspectives)
	}
	if model != client.model {
		t.Errorf("expected model to be echoed back, got %q", model)
	}
}

func TestDiscoverFallsBackToDefaultsOnUnparseableResponse(t *testing.T) {
	client := &scriptedPlannerClient{responses: []string{"not an array"}}
	d := NewPerspectiveDiscoverer(client)

	perspectives, _, err := d.Discover(context.Background(), "go generics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(perspectives) == 0 {
		t.Error("expected default perspectives on unparseable content")
	}
}

func TestDiscoverReturnsErrorOnChatFailure(t *testing.T) {
	client := &scriptedPlannerClient{responses: []string{""}, errs: []error{context.DeadlineExceeded}}
	d := NewPerspectiveDiscoverer(client)

	if _, _, err := d.Discover(context.Background(), "go generics"); err == nil {
		t.Error("expected an error when the chat call itself fails")
	}
}

func TestParsePerspectivesRejectsContentWithNoArray(t *testing.T) {
	if _, err := parsePerspectives("no array here"); err == nil {
		t.Error("expected an error when no JSON array is present")
	}
}

func TestSurveyRelatedTopicsReturnsNilWithoutToolExecutor(t *testing.T) {
	client := &scriptedPlannerClient{}
	d := NewPerspectiveDiscoverer(client) // no tools wired

	outlines, err := d.SurveyRelatedTopics(context.Background(), "go generics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outlines != nil {
		t.Errorf("expected nil outlines without a tool executor, got %v", outlines)
	}
}

func TestSurveyRelatedTopicsExecutesSearchPerQuery(t *testing.T) {
	client := &scriptedPlannerClient{responses: []string{
		`["go generics history", "go generics applications"]`, // survey query generation
		`[{"topic": "Generics", "sections": ["History", "Design"], "source": "https://a.example"}]`, // outline extraction
	}}
	toolExec := &fakeToolExecutor{searchResult: "some search result text"}
	d := NewPerspectiveDiscovererWithTools(client, toolExec)

	outlines, err := d.SurveyRelatedTopics(context.Background(), "go generics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toolExec.executions != 2 {
		t.Errorf("expected one search execution per generated query, got %d", toolExec.executions)
	}
	if len(outlines) != 1 || outlines[0].Topic != "Generics" {
		t.Errorf("unexpected outlines: %+v", outlines)
	}
}

func TestDiscoverWithSurveyEnsuresBasicFactWriterPresent(t *testing.T) {
	client := &scriptedPlannerClient{responses: []string{
		`["go generics history"]`,
		`[]`, // no outlines extracted
		perspectivesJSON,
	}}
	toolExec := &fakeToolExecutor{searchResult: "result text"}
	d := NewPerspectiveDiscovererWithTools(client, toolExec)

	perspectives, err := d.DiscoverWithSurvey(context.Background(), "go generics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, p := range perspectives {
		if p.Name == "Basic Fact Writer" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a Basic Fact Writer perspective to be injected, got %+v", perspectives)
	}
}

func TestEnsureBasicFactWriterSkipsInjectionWhenAlreadyPresent(t *testing.T) {
	existing := []state.Perspective{{Name: "Foundational Reviewer", Focus: "basics"}}

	out := ensureBasicFactWriter(existing, "go generics")
	if len(out) != 1 {
		t.Errorf("expected no additional perspective injected when one already covers fundamentals, got %+v", out)
	}
}

func TestCollectQuestionsFlattensAcrossPerspectives(t *testing.T) {
	client := &scriptedPlannerClient{responses: []string{perspectivesJSON}}
	d := NewPerspectiveDiscoverer(client)
	perspectives, _, _ := d.Discover(context.Background(), "go generics")

	questions := CollectQuestions(perspectives)
	if len(questions) != 3 {
		t.Errorf("expected 3 combined questions (2+1), got %d: %v", len(questions), questions)
	}
}
