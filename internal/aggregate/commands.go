package aggregate

import (
	"fmt"

	"deepresearch/internal/state"
)

// StartResearch begins a run. Invalid if the query is empty.
type StartResearch struct {
	Query string
}

func (c StartResearch) Validate(s *state.ResearchState) error {
	if c.Query == "" {
		return fmt.Errorf("start research: query must not be empty")
	}
	return nil
}

// CompleteClarify records the Clarify stage's decision.
type CompleteClarify struct {
	NeedsClarification    bool
	ClarificationQuestion string
	QueryAnalysis         string
	DetectedTopics        []string
}

func (c CompleteClarify) Validate(s *state.ResearchState) error { return nil }

// CreatePlan records the Planner's output. Invalid while clarification is
// pending, or when the plan has other than 2-5 queries or a depth outside
// 1-3. Whether Clarify has run at all is not checked.
type CreatePlan struct {
	Plan state.Plan
}

func (c CreatePlan) Validate(s *state.ResearchState) error {
	if s.NeedsClarification {
		return fmt.Errorf("create plan: clarification is pending")
	}
	if len(c.Plan.Queries) < 2 || len(c.Plan.Queries) > 5 {
		return fmt.Errorf("create plan: queries must number 2-5, got %d", len(c.Plan.Queries))
	}
	if c.Plan.Depth < 1 || c.Plan.Depth > 3 {
		return fmt.Errorf("create plan: depth must be 1-3, got %d", c.Plan.Depth)
	}
	return nil
}

// ChooseStrategy records the Supervisor's decision. Valid only after a plan exists.
type ChooseStrategy struct {
	Strategy state.Strategy
}

func (c ChooseStrategy) Validate(s *state.ResearchState) error {
	if len(s.Plan.Queries) == 0 {
		return fmt.Errorf("choose strategy: no plan present")
	}
	if c.Strategy.MaxParallelism < 1 || c.Strategy.MaxParallelism > 4 {
		return fmt.Errorf("choose strategy: max_parallelism out of range [1,4]: %d", c.Strategy.MaxParallelism)
	}
	if c.Strategy.MaxIterations < 1 || c.Strategy.MaxIterations > 3 {
		return fmt.Errorf("choose strategy: max_iterations out of range [1,3]: %d", c.Strategy.MaxIterations)
	}
	return nil
}

// RecordSearch appends one search_history entry.
type RecordSearch struct {
	Record state.SearchRecord
}

func (c RecordSearch) Validate(s *state.ResearchState) error { return nil }

// RecordPageFetch appends one read_contents entry. Invalid if the URL was
// already fetched (I4).
type RecordPageFetch struct {
	Page state.PageContent
}

func (c RecordPageFetch) Validate(s *state.ResearchState) error {
	if s.HasURL(c.Page.URL) {
		return fmt.Errorf("record page fetch: %q already present in read_contents", c.Page.URL)
	}
	return nil
}

// RecordFindings appends findings and one thought from an Analyze step.
type RecordFindings struct {
	Findings []state.Finding
	Thought  string
}

func (c RecordFindings) Validate(s *state.ResearchState) error { return nil }

// DecideIteration records the loop-or-finish decision and, on continue,
// increments iteration_count. Invalid if it would push the count past the
// strategy's cap (I3).
type DecideIteration struct {
	Continue  bool
	NextQuery string
}

func (c DecideIteration) Validate(s *state.ResearchState) error {
	if c.Continue && s.IterationCount+1 > s.Strategy.MaxIterations {
		return fmt.Errorf("decide iteration: would exceed max_iterations=%d", s.Strategy.MaxIterations)
	}
	return nil
}

// CompleteAnalysis records the supplemental cross-validation/gap pass.
type CompleteAnalysis struct {
	Analysis state.Analysis
}

func (c CompleteAnalysis) Validate(s *state.ResearchState) error { return nil }

// CompleteCompression records the Compress stage's output.
type CompleteCompression struct {
	Compressed state.Compressed
}

func (c CompleteCompression) Validate(s *state.ResearchState) error { return nil }

// GenerateReport records the Writer's output.
type GenerateReport struct {
	Report    string
	Citations []state.Citation
}

func (c GenerateReport) Validate(s *state.ResearchState) error { return nil }

// CompleteCritique records the Critique stage's scores.
type CompleteCritique struct {
	Critique state.Critique
}

func (c CompleteCritique) Validate(s *state.ResearchState) error { return nil }

// CompleteResearch marks the run finished normally, sealing the state (I5).
type CompleteResearch struct{}

func (c CompleteResearch) Validate(s *state.ResearchState) error { return nil }

// FailResearch marks the run failed fatally, sealing the state (I5).
type FailResearch struct {
	Reason string
}

func (c FailResearch) Validate(s *state.ResearchState) error { return nil }

// CancelResearch marks the run cancelled or deadline-exceeded, sealing the state (I5).
type CancelResearch struct {
	Reason string
}

func (c CancelResearch) Validate(s *state.ResearchState) error { return nil }
