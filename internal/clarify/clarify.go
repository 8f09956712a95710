// Package clarify implements the Clarify stage (SPEC_FULL.md §4.1): one
// model call deciding whether a query is specific enough to research, or
// needs a clarifying question first.
package clarify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"deepresearch/internal/llm"
)

// Result is Clarify's output delta.
type Result struct {
	NeedsClarification    bool
	ClarificationQuestion string
	QueryAnalysis         string
	DetectedTopics        []string
}

// Clarifier runs the Clarify stage.
type Clarifier struct {
	client llm.ChatClient
}

// New creates a Clarifier bound to a model client.
func New(client llm.ChatClient) *Clarifier {
	return &Clarifier{client: client}
}

const promptTemplate = `Task: decide whether the following research question needs a clarifying question before it can be researched.

Decision criteria:
- needs_clarification=true when the query contains opaque acronyms without disambiguating context, lacks any temporal or scope anchor on a trend-like topic, or is a single term covering many subdomains.
- needs_clarification=false when the query names specific entities, a timeframe, or an explicit comparison/explanation intent.

Query: %q

Respond with strict JSON matching this schema:
{"needs_clarification": bool, "clarification_question": string, "query_analysis": string, "detected_topics": [string]}`

// Clarify runs the Clarify stage. On any model or parse failure it falls
// back to needs_clarification=false with query_analysis="unparseable"
// (SPEC_FULL.md §4.1 Failure), never blocking the pipeline.
func (c *Clarifier) Clarify(ctx context.Context, query string) Result {
	prompt := fmt.Sprintf(promptTemplate, query)

	var parsed *Result
	for attempt := 0; attempt < 2 && parsed == nil; attempt++ {
		resp, err := c.client.Chat(ctx, llm.RolePlanner, []llm.Message{{Role: "user", Content: prompt}})
		if err != nil || len(resp.Choices) == 0 {
			continue
		}
		parsed = parseResponse(resp.Choices[0].Message.Content)
	}

	if parsed == nil {
		return Result{NeedsClarification: false, QueryAnalysis: "unparseable"}
	}
	return *parsed
}

// parseResponse extracts the structured decision from free-form model
// text: strict JSON first, then a lenient JSON-from-prose pass that
// locates the outermost {...} block (SPEC_FULL.md §9 structured extraction).
func parseResponse(content string) *Result {
	var schema struct {
		NeedsClarification    bool     `json:"needs_clarification"`
		ClarificationQuestion string   `json:"clarification_question"`
		QueryAnalysis         string   `json:"query_analysis"`
		DetectedTopics        []string `json:"detected_topics"`
	}

	if err := json.Unmarshal([]byte(content), &schema); err == nil {
		return &Result{
			NeedsClarification:    schema.NeedsClarification,
			ClarificationQuestion: schema.ClarificationQuestion,
			QueryAnalysis:         schema.QueryAnalysis,
			DetectedTopics:        schema.DetectedTopics,
		}
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &schema); err != nil {
		return nil
	}
	return &Result{
		NeedsClarification:    schema.NeedsClarification,
		ClarificationQuestion: schema.ClarificationQuestion,
		QueryAnalysis:         schema.QueryAnalysis,
		DetectedTopics:        schema.DetectedTopics,
	}
}
