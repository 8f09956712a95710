package aggregate

import (
	"deepresearch/internal/domainevents"
)

// applyUnlocked mutates a.state in place from a replayed or freshly built
// event. Must only be called while a.mu is held (or during LoadFromEvents,
// before the aggregate is shared).
func (a *Aggregate) applyUnlocked(event domainevents.Event) {
	switch e := event.(type) {
	case *domainevents.ResearchStartedEvent:
		a.state.Query = e.Query
		now := e.Timestamp
		a.state.StartedAt = &now

	case *domainevents.ClarifyCompletedEvent:
		a.state.NeedsClarification = e.NeedsClarification
		a.state.ClarificationQuestion = e.ClarificationQuestion
		a.state.QueryAnalysis = e.QueryAnalysis
		a.state.DetectedTopics = e.DetectedTopics

	case *domainevents.PlanCreatedEvent:
		a.state.Plan = e.Plan

	case *domainevents.StrategyChosenEvent:
		a.state.Strategy = e.Strategy

	case *domainevents.SearchCompletedEvent:
		a.state.SearchHistory = append(a.state.SearchHistory, e.Record)

	case *domainevents.PageFetchedEvent:
		a.state.ReadContents = append(a.state.ReadContents, e.Page)

	case *domainevents.FindingsExtractedEvent:
		a.state.Findings = append(a.state.Findings, e.Findings...)
		if e.Thought != "" {
			a.state.Thoughts = append(a.state.Thoughts, e.Thought)
		}

	case *domainevents.IterationDecidedEvent:
		if e.Continue {
			a.state.IterationCount++
		}

	case *domainevents.AnalysisCompletedEvent:
		a.state.Analysis = e.Analysis

	case *domainevents.CompressionCompletedEvent:
		a.state.Compressed = e.Compressed

	case *domainevents.ReportGeneratedEvent:
		a.state.Report = e.Report
		a.state.Compressed.Citations = e.Citations

	case *domainevents.CritiqueCompletedEvent:
		a.state.Critique = e.Critique

	case *domainevents.ResearchCompletedEvent:
		now := e.Timestamp
		a.state.EndedAt = &now

	case *domainevents.ResearchFailedEvent:
		now := e.Timestamp
		a.state.EndedAt = &now

	case *domainevents.ResearchCancelledEvent:
		now := e.Timestamp
		a.state.EndedAt = &now
	}

	a.version = event.GetVersion()
}
