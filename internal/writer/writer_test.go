package writer

import (
	"context"
	"strings"
	"testing"

	"deepresearch/internal/llm"
	"deepresearch/internal/state"
)

type scriptedClient struct {
	responses []string
	err       error
	calls     int
}

func (c *scriptedClient) Chat(ctx context.Context, role llm.Role, messages []llm.Message) (*llm.ChatResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	i := c.calls
	c.calls++
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	return &llm.ChatResponse{Choices: []struct {
		Message llm.Message `json:"message"`
	}{{Message: llm.Message{Role: "assistant", Content: c.responses[i]}}}}, nil
}

func (c *scriptedClient) StreamChat(ctx context.Context, role llm.Role, messages []llm.Message, handler func(chunk string) error) error {
	return nil
}
func (c *scriptedClient) SetModel(model string) {}
func (c *scriptedClient) GetModel() string      { return "fake" }

var oneCitation = []state.Citation{{ID: 1, URL: "https://a.example", Snippet: "s"}}

func TestWriteReturnsCleanReportWhenCitationsValid(t *testing.T) {
	client := &scriptedClient{responses: []string{"Go shipped generics in 2022 [1]."}}
	w := New(client)

	res := w.Write(context.Background(), "when did go get generics", state.Compressed{Text: "finding text", Citations: oneCitation}, []string{"timeline"}, nil)
	if res.Err != nil {
		t.Errorf("expected no citation error, got %v", res.Err)
	}
	if !strings.Contains(res.Report, "[1]") {
		t.Error("expected the report to carry the citation marker")
	}
	if client.calls != 1 {
		t.Errorf("expected a single draft call when validation passes, got %d", client.calls)
	}
}

func TestWriteRetriesOnDanglingMarkerThenSucceeds(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"Go shipped generics in 2022 [2].",
		"Go shipped generics in 2022 [1].",
	}}
	w := New(client)

	res := w.Write(context.Background(), "q", state.Compressed{Text: "finding text", Citations: oneCitation}, nil, nil)
	if res.Err != nil {
		t.Errorf("expected the retry to resolve the dangling marker, got %v", res.Err)
	}
	if client.calls != 2 {
		t.Errorf("expected exactly one retry (2 draft calls), got %d", client.calls)
	}
}

func TestWriteReturnsCitationErrorAfterTwoFailedAttempts(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"Go shipped generics in 2022 [2].",
		"Go shipped generics in 2022 [3].",
	}}
	w := New(client)

	res := w.Write(context.Background(), "q", state.Compressed{Text: "finding text", Citations: oneCitation}, nil, nil)
	if res.Err == nil {
		t.Fatal("expected a citation error after two failed validation attempts")
	}
	if res.Report == "" {
		t.Error("expected the best-effort report to still be returned")
	}
}

func TestWriteFallsBackToInsufficientSkeletonOnChatError(t *testing.T) {
	client := &scriptedClient{err: context.DeadlineExceeded}
	w := New(client)

	res := w.Write(context.Background(), "q", state.Compressed{}, nil, nil)
	if res.Err != nil {
		t.Errorf("expected no citation error for the no-citation-needed fallback skeleton, got %v", res.Err)
	}
	if !strings.Contains(res.Report, "Insufficient source material") {
		t.Errorf("expected the fallback skeleton text, got %q", res.Report)
	}
}

func TestWriteIncludesConflictNotesSection(t *testing.T) {
	client := &scriptedClient{responses: []string{"Go shipped generics in 2022 [1]."}}
	w := New(client)

	contradictions := []state.Contradiction{{ClaimA: "a", ClaimB: "b", Description: "disagreement"}}
	res := w.Write(context.Background(), "q", state.Compressed{Text: "finding text", Citations: oneCitation}, nil, contradictions)
	if !strings.Contains(res.Report, "Notes on Conflicting Information") {
		t.Error("expected a conflicts section when contradictions are present")
	}
}
