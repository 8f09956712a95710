package aggregate

import (
	"deepresearch/internal/domainevents"
)

// buildEvent maps a validated command to its versioned domain event.
// Mirrors the teacher's Execute switch in core/domain/aggregate/execute.go.
func buildEvent(cmd Command, threadID string, version int) domainevents.Event {
	base := func(eventType string) domainevents.BaseEvent {
		return domainevents.NewBase(threadID, eventType, version)
	}

	switch c := cmd.(type) {
	case StartResearch:
		return &domainevents.ResearchStartedEvent{
			BaseEvent: base("research_started"),
			Query:     c.Query,
		}
	case CompleteClarify:
		return &domainevents.ClarifyCompletedEvent{
			BaseEvent:             base("clarify_completed"),
			NeedsClarification:    c.NeedsClarification,
			ClarificationQuestion: c.ClarificationQuestion,
			QueryAnalysis:         c.QueryAnalysis,
			DetectedTopics:        c.DetectedTopics,
		}
	case CreatePlan:
		return &domainevents.PlanCreatedEvent{
			BaseEvent: base("plan_created"),
			Plan:      c.Plan,
		}
	case ChooseStrategy:
		return &domainevents.StrategyChosenEvent{
			BaseEvent: base("strategy_chosen"),
			Strategy:  c.Strategy,
		}
	case RecordSearch:
		return &domainevents.SearchCompletedEvent{
			BaseEvent: base("search_completed"),
			Record:    c.Record,
		}
	case RecordPageFetch:
		return &domainevents.PageFetchedEvent{
			BaseEvent: base("page_fetched"),
			Page:      c.Page,
		}
	case RecordFindings:
		return &domainevents.FindingsExtractedEvent{
			BaseEvent: base("findings_extracted"),
			Findings:  c.Findings,
			Thought:   c.Thought,
		}
	case DecideIteration:
		return &domainevents.IterationDecidedEvent{
			BaseEvent: base("iteration_decided"),
			Continue:  c.Continue,
			NextQuery: c.NextQuery,
		}
	case CompleteAnalysis:
		return &domainevents.AnalysisCompletedEvent{
			BaseEvent: base("analysis_completed"),
			Analysis:  c.Analysis,
		}
	case CompleteCompression:
		return &domainevents.CompressionCompletedEvent{
			BaseEvent:  base("compression_completed"),
			Compressed: c.Compressed,
		}
	case GenerateReport:
		return &domainevents.ReportGeneratedEvent{
			BaseEvent: base("report_generated"),
			Report:    c.Report,
			Citations: c.Citations,
		}
	case CompleteCritique:
		return &domainevents.CritiqueCompletedEvent{
			BaseEvent: base("critique_completed"),
			Critique:  c.Critique,
		}
	case CompleteResearch:
		return &domainevents.ResearchCompletedEvent{
			BaseEvent: base("research_completed"),
		}
	case FailResearch:
		return &domainevents.ResearchFailedEvent{
			BaseEvent: base("research_failed"),
			Reason:    c.Reason,
		}
	case CancelResearch:
		return &domainevents.ResearchCancelledEvent{
			BaseEvent: base("research_cancelled"),
			Reason:    c.Reason,
		}
	default:
		panic("aggregate: unknown command type")
	}
}
