// Package state defines ResearchState, the single mutable document
// threaded through the research graph, and the invariants every stage
// delta must preserve.
package state

import "time"

// PageStatus is the outcome of fetching one URL.
type PageStatus string

const (
	PageOK      PageStatus = "ok"
	PageBlocked PageStatus = "blocked"
	PageEmpty   PageStatus = "empty"
	PageError   PageStatus = "error"
)

// StrategyMode selects how the Research subgraph explores the plan.
type StrategyMode string

const (
	StrategySequential StrategyMode = "sequential"
	StrategyParallel   StrategyMode = "parallel"
)

// Finding is a single extracted claim with its source and confidence.
type Finding struct {
	Claim             string  `json:"claim"`
	SourceURL         string  `json:"source_url"`
	Confidence        float64 `json:"confidence"`
	SupportingSnippet string  `json:"supporting_snippet"`
}

// PageContent is the result of fetching one URL.
type PageContent struct {
	URL            string     `json:"url"`
	FetchedAt      time.Time  `json:"fetched_at"`
	Status         PageStatus `json:"status"`
	Body           string     `json:"body"`
	ContentLength  int        `json:"content_length"`
	BytesTruncated bool       `json:"bytes_truncated"`
}

// SearchRecord is one entry in search_history.
type SearchRecord struct {
	Query      string    `json:"query"`
	Timestamp  time.Time `json:"timestamp"`
	ResultURLs []string  `json:"result_urls"`
}

// Citation is a numbered reference bound to a URL, rendered in the report.
type Citation struct {
	ID      int    `json:"id"`
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet"`
}

// Plan is the Planner's output: search queries, focus areas, and depth.
type Plan struct {
	OriginalQuery string        `json:"original_query"`
	Queries       []string      `json:"queries"`
	FocusAreas    []string      `json:"focus_areas"`
	Depth         int           `json:"depth"`
	Perspectives  []Perspective `json:"perspectives,omitempty"`
}

// Query returns the original user question this plan was built from,
// used by the Research subgraph to ground Analyze prompts.
func (p Plan) Query() string {
	return p.OriginalQuery
}

// Perspective is a named expert viewpoint driving one parallel research
// task (SPEC_FULL.md §4.2.1), supplemental to the bare focus-area list.
type Perspective struct {
	Name      string   `json:"name"`
	Focus     string   `json:"focus"`
	Questions []string `json:"questions"`
}

// Strategy is the Supervisor's chosen execution mode and its bounds.
type Strategy struct {
	Mode           StrategyMode `json:"mode"`
	MaxParallelism int          `json:"max_parallelism"`
	MaxIterations  int          `json:"max_iterations"`
}

// Compressed is the condensed findings plus dense citations produced by
// the Compress stage.
type Compressed struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
}

// Critique holds the four CARC sub-scores and their sum.
type Critique struct {
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Relevance    float64 `json:"relevance"`
	Clarity      float64 `json:"clarity"`
	Total        float64 `json:"total"`
}

// ValidatedFact, Contradiction and KnowledgeGap are supplemental analysis
// records (SPEC_FULL.md §4.4.2) threaded alongside Findings, never
// replacing them.
type ValidatedFact struct {
	Claim          string   `json:"claim"`
	Confidence     float64  `json:"confidence"`
	CorroboratedBy []string `json:"corroborated_by"`
}

type Contradiction struct {
	ClaimA      string `json:"claim_a"`
	ClaimB      string `json:"claim_b"`
	Description string `json:"description"`
}

type KnowledgeGap struct {
	Description      string   `json:"description"`
	Importance       float64  `json:"importance"`
	SuggestedQueries []string `json:"suggested_queries"`
}

// Analysis is the optional cross-validation/gap-analysis output.
type Analysis struct {
	ValidatedFacts []ValidatedFact `json:"validated_facts,omitempty"`
	Contradictions []Contradiction `json:"contradictions,omitempty"`
	KnowledgeGaps  []KnowledgeGap  `json:"knowledge_gaps,omitempty"`
}

// ResearchState is the single mutable document threaded through every
// stage of a run. Stages receive a read-only snapshot and return a
// structured delta; only the owning aggregate mutates the canonical copy.
//
// Invariants (enforced by aggregate.Execute, not by direct field writes):
//
//	I1 every Findings[i].SourceURL appears in some ReadContents URL with
//	   status ok, or in some SearchHistory[j].ResultURLs.
//	I2 every inline "[n]" marker in Report has a matching Citation with ID==n.
//	I3 IterationCount <= Strategy.MaxIterations.
//	I4 ReadContents has no duplicate URL.
//	I5 once EndedAt is set, no further mutation is permitted.
type ResearchState struct {
	Query      string `json:"query"`
	ThreadID   string `json:"thread_id"`

	NeedsClarification    bool    `json:"needs_clarification"`
	ClarificationQuestion  string  `json:"clarification_question,omitempty"`
	QueryAnalysis          string  `json:"query_analysis"`
	DetectedTopics         []string `json:"detected_topics"`

	Plan     Plan     `json:"plan"`
	Strategy Strategy `json:"strategy"`

	Findings      []Finding      `json:"findings"`
	ReadContents  []PageContent  `json:"read_contents"`
	SearchHistory []SearchRecord `json:"search_history"`
	Thoughts      []string       `json:"thoughts"`

	Analysis Analysis `json:"analysis"`

	Compressed Compressed `json:"compressed"`
	Report     string     `json:"report"`
	Critique   Critique   `json:"critique"`

	IterationCount int `json:"iteration_count"`
	TokensIn       int `json:"tokens_in"`
	TokensOut      int `json:"tokens_out"`

	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// New creates a fresh ResearchState for a query, starting its clock.
func New(threadID, query string) *ResearchState {
	now := time.Now()
	return &ResearchState{
		Query:     query,
		ThreadID:  threadID,
		StartedAt: &now,
	}
}

// HasURL reports whether url is already present in ReadContents (I4 check).
func (s *ResearchState) HasURL(url string) bool {
	for _, pc := range s.ReadContents {
		if pc.URL == url {
			return true
		}
	}
	return false
}

// IsEnded reports whether the state has been finalized (I5).
func (s *ResearchState) IsEnded() bool {
	return s.EndedAt != nil
}

// SourceIsKnown reports whether url appears in ReadContents with status ok
// or in any SearchHistory result set (I1 check material).
func (s *ResearchState) SourceIsKnown(url string) bool {
	for _, pc := range s.ReadContents {
		if pc.URL == url && pc.Status == PageOK {
			return true
		}
	}
	for _, rec := range s.SearchHistory {
		for _, u := range rec.ResultURLs {
			if u == url {
				return true
			}
		}
	}
	return false
}
