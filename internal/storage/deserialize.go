package storage

import (
	"encoding/json"
	"fmt"

	"deepresearch/internal/domainevents"
)

// deserializeEvent reads the embedded BaseEvent.Type discriminator, then
// unmarshals into the matching concrete event type, mirroring the
// teacher's filesystem.deserializeEvent switch.
func deserializeEvent(data []byte) (domainevents.Event, error) {
	var base domainevents.BaseEvent
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, err
	}

	switch base.Type {
	case "research_started":
		var e domainevents.ResearchStartedEvent
		return &e, json.Unmarshal(data, &e)
	case "clarify_completed":
		var e domainevents.ClarifyCompletedEvent
		return &e, json.Unmarshal(data, &e)
	case "plan_created":
		var e domainevents.PlanCreatedEvent
		return &e, json.Unmarshal(data, &e)
	case "strategy_chosen":
		var e domainevents.StrategyChosenEvent
		return &e, json.Unmarshal(data, &e)
	case "search_completed":
		var e domainevents.SearchCompletedEvent
		return &e, json.Unmarshal(data, &e)
	case "page_fetched":
		var e domainevents.PageFetchedEvent
		return &e, json.Unmarshal(data, &e)
	case "findings_extracted":
		var e domainevents.FindingsExtractedEvent
		return &e, json.Unmarshal(data, &e)
	case "iteration_decided":
		var e domainevents.IterationDecidedEvent
		return &e, json.Unmarshal(data, &e)
	case "analysis_completed":
		var e domainevents.AnalysisCompletedEvent
		return &e, json.Unmarshal(data, &e)
	case "compression_completed":
		var e domainevents.CompressionCompletedEvent
		return &e, json.Unmarshal(data, &e)
	case "report_generated":
		var e domainevents.ReportGeneratedEvent
		return &e, json.Unmarshal(data, &e)
	case "critique_completed":
		var e domainevents.CritiqueCompletedEvent
		return &e, json.Unmarshal(data, &e)
	case "research_completed":
		var e domainevents.ResearchCompletedEvent
		return &e, json.Unmarshal(data, &e)
	case "research_failed":
		var e domainevents.ResearchFailedEvent
		return &e, json.Unmarshal(data, &e)
	case "research_cancelled":
		var e domainevents.ResearchCancelledEvent
		return &e, json.Unmarshal(data, &e)
	default:
		return nil, fmt.Errorf("unknown event type: %s", base.Type)
	}
}
