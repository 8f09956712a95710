package research

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"deepresearch/internal/llm"
	"deepresearch/internal/state"
)

// CrossValidate runs the supplemental cross-validation / gap-analysis
// pass (SPEC_FULL.md §4.4.2): after per-task findings merge, it flags
// findings corroborated by multiple sources, contradictions between
// findings, and knowledge gaps with suggested follow-up queries.
//
// Grounded on the teacher's internal/agents.AnalysisAgent, collapsed from
// three separate LLM calls (cross-validate, detect-contradictions,
// identify-gaps) into one structured call, since this package's analyze
// step already issues one call per iteration and a three-call pass would
// triple model round trips for the same signal.
func CrossValidate(ctx context.Context, client llm.ChatClient, topic string, findings []state.Finding, focusAreas []string) state.Analysis {
	if len(findings) == 0 {
		return state.Analysis{}
	}

	var claims strings.Builder
	for i, f := range findings {
		claims.WriteString(strconv.Itoa(i))
		claims.WriteString(". ")
		claims.WriteString(f.Claim)
		claims.WriteString(" (source: ")
		claims.WriteString(f.SourceURL)
		claims.WriteString(")\n")
	}

	prompt := "Topic: " + topic + "\n\nFindings:\n" + claims.String() +
		"\nExpected coverage: " + strings.Join(focusAreas, ", ") +
		"\n\nCross-validate these findings: which claims are corroborated by more than one source, which contradict each other, and what coverage gaps remain relative to the expected coverage." +
		"\n\nRespond with strict JSON: {\"validated_facts\": [{\"claim\": \"...\", \"confidence\": 0.8, \"corroborated_by\": [\"url\"]}], \"contradictions\": [{\"claim_a\": \"...\", \"claim_b\": \"...\", \"description\": \"...\"}], \"knowledge_gaps\": [{\"description\": \"...\", \"importance\": 0.5, \"suggested_queries\": [\"...\"]}]}"

	resp, err := client.Chat(ctx, llm.RoleAnalyzer, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil || len(resp.Choices) == 0 {
		return state.Analysis{}
	}

	return parseAnalysisResult(resp.Choices[0].Message.Content)
}

func parseAnalysisResult(content string) state.Analysis {
	var schema state.Analysis
	if err := json.Unmarshal([]byte(content), &schema); err == nil {
		return schema
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return state.Analysis{}
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &schema); err != nil {
		return state.Analysis{}
	}
	return schema
}

// LowImportanceGapsOnly reports whether every knowledge gap is below the
// importance threshold, short-circuiting the sufficiency rule's "need
// more search" branch even before the 20% marginal-findings threshold is
// checked (SPEC_FULL.md §4.4.2).
func LowImportanceGapsOnly(a state.Analysis, threshold float64) bool {
	if len(a.KnowledgeGaps) == 0 {
		return true
	}
	for _, g := range a.KnowledgeGaps {
		if g.Importance >= threshold {
			return false
		}
	}
	return true
}
