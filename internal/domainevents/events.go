package domainevents

import "deepresearch/internal/state"

// ResearchStartedEvent marks the creation of a new run.
type ResearchStartedEvent struct {
	BaseEvent
	Query string `json:"query"`
}

// ClarifyCompletedEvent carries Clarify's decision.
type ClarifyCompletedEvent struct {
	BaseEvent
	NeedsClarification   bool     `json:"needs_clarification"`
	ClarificationQuestion string  `json:"clarification_question,omitempty"`
	QueryAnalysis         string  `json:"query_analysis"`
	DetectedTopics        []string `json:"detected_topics"`
}

// PlanCreatedEvent carries the Planner's output.
type PlanCreatedEvent struct {
	BaseEvent
	Plan state.Plan `json:"plan"`
}

// StrategyChosenEvent carries the Supervisor's decision.
type StrategyChosenEvent struct {
	BaseEvent
	Strategy state.Strategy `json:"strategy"`
}

// SearchCompletedEvent records one search call's result URLs.
type SearchCompletedEvent struct {
	BaseEvent
	Record state.SearchRecord `json:"record"`
}

// PageFetchedEvent records one fetched page.
type PageFetchedEvent struct {
	BaseEvent
	Page state.PageContent `json:"page"`
}

// FindingsExtractedEvent records findings and a thought from one Analyze step.
type FindingsExtractedEvent struct {
	BaseEvent
	Findings []state.Finding `json:"findings"`
	Thought  string          `json:"thought"`
}

// IterationDecidedEvent records the Research subgraph's loop-or-finish call.
type IterationDecidedEvent struct {
	BaseEvent
	Continue bool   `json:"continue"`
	NextQuery string `json:"next_query,omitempty"`
}

// AnalysisCompletedEvent records the supplemental cross-validation pass.
type AnalysisCompletedEvent struct {
	BaseEvent
	Analysis state.Analysis `json:"analysis"`
}

// CompressionCompletedEvent records the Compress stage's output.
type CompressionCompletedEvent struct {
	BaseEvent
	Compressed state.Compressed `json:"compressed"`
}

// ReportGeneratedEvent records the Writer's output.
type ReportGeneratedEvent struct {
	BaseEvent
	Report    string          `json:"report"`
	Citations []state.Citation `json:"citations"`
}

// CritiqueCompletedEvent records the Critique stage's scores.
type CritiqueCompletedEvent struct {
	BaseEvent
	Critique state.Critique `json:"critique"`
}

// ResearchCompletedEvent marks a run finishing normally.
type ResearchCompletedEvent struct {
	BaseEvent
}

// ResearchFailedEvent marks a run failing fatally.
type ResearchFailedEvent struct {
	BaseEvent
	Reason string `json:"reason"`
}

// ResearchCancelledEvent marks a run stopped by cancellation or deadline.
type ResearchCancelledEvent struct {
	BaseEvent
	Reason string `json:"reason"`
}
