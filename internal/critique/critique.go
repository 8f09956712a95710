// Package critique implements the Critique stage (SPEC_FULL.md §4.7):
// four advisory sub-scores in [0,5] plus their sum, at a fixed low
// temperature (0.2, via llm.RoleCritic) so scoring stays close to
// deterministic given identical inputs.
package critique

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"deepresearch/internal/llm"
	"deepresearch/internal/state"
)

// Critic runs the Critique stage.
type Critic struct {
	client llm.ChatClient
}

// New creates a Critic bound to a model client.
func New(client llm.ChatClient) *Critic {
	return &Critic{client: client}
}

const prompt = `Score this research report against the question it was meant to answer.

Question: %s

Report:
%s

Score each dimension from 0 to 5:
- completeness: does it cover the expected focus areas?
- accuracy: are claims backed by citations?
- relevance: does it answer the question asked?
- clarity: is the structure and prose readable?

Respond with strict JSON: {"completeness": 0, "accuracy": 0, "relevance": 0, "clarity": 0}`

// Critique scores report against query. On model or parse failure it
// returns a zero-valued Critique rather than blocking the run, since
// critique is advisory and never gates completion.
func (c *Critic) Critique(ctx context.Context, query, report string) state.Critique {
	resp, err := c.client.Chat(ctx, llm.RoleCritic, []llm.Message{
		{Role: "user", Content: fmt.Sprintf(prompt, query, report)},
	})
	if err != nil || len(resp.Choices) == 0 {
		return state.Critique{}
	}

	scores := parseScores(resp.Choices[0].Message.Content)
	if scores == nil {
		return state.Critique{}
	}

	completeness := clamp(scores.Completeness)
	accuracy := clamp(scores.Accuracy)
	relevance := clamp(scores.Relevance)
	clarity := clamp(scores.Clarity)
	return state.Critique{
		Completeness: completeness,
		Accuracy:     accuracy,
		Relevance:    relevance,
		Clarity:      clarity,
		Total:        completeness + accuracy + relevance + clarity,
	}
}

type scoreSchema struct {
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Relevance    float64 `json:"relevance"`
	Clarity      float64 `json:"clarity"`
}

func parseScores(content string) *scoreSchema {
	var s scoreSchema
	if err := json.Unmarshal([]byte(content), &s); err == nil {
		return &s
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &s); err != nil {
		return nil
	}
	return &s
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}

