package critique

import (
	"context"
	"testing"

	"deepresearch/internal/llm"
)

type fakeClient struct {
	response string
	err      error
}

func (f *fakeClient) Chat(ctx context.Context, role llm.Role, messages []llm.Message) (*llm.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Choices: []struct {
		Message llm.Message `json:"message"`
	}{{Message: llm.Message{Role: "assistant", Content: f.response}}}}, nil
}

func (f *fakeClient) StreamChat(ctx context.Context, role llm.Role, messages []llm.Message, handler func(chunk string) error) error {
	return nil
}
func (f *fakeClient) SetModel(model string) {}
func (f *fakeClient) GetModel() string      { return "fake" }

func TestCritiqueParsesStrictJSON(t *testing.T) {
	client := &fakeClient{response: `{"completeness": 4, "accuracy": 5, "relevance": 3, "clarity": 4}`}
	got := New(client).Critique(context.Background(), "q", "report")
	if got.Total != 16 {
		t.Errorf("expected total=16, got %+v", got)
	}
}

func TestCritiqueClampsOutOfRangeScores(t *testing.T) {
	client := &fakeClient{response: `{"completeness": 9, "accuracy": -3, "relevance": 5, "clarity": 5}`}
	got := New(client).Critique(context.Background(), "q", "report")
	if got.Completeness != 5 || got.Accuracy != 0 {
		t.Errorf("expected sub-scores clamped to [0,5], got %+v", got)
	}
	if got.Total != got.Completeness+got.Accuracy+got.Relevance+got.Clarity {
		t.Errorf("expected total to be the sum of the clamped sub-scores, got total=%v sum=%v", got.Total, got.Completeness+got.Accuracy+got.Relevance+got.Clarity)
	}
	if got.Total != 15 {
		t.Errorf("expected total=15 (5+0+5+5, clamped before summing), got %v", got.Total)
	}
}

func TestCritiqueReturnsZeroValueOnChatError(t *testing.T) {
	client := &fakeClient{err: context.DeadlineExceeded}
	got := New(client).Critique(context.Background(), "q", "report")
	if got.Total != 0 || got.Completeness != 0 {
		t.Errorf("expected zero-value critique on chat error, got %+v", got)
	}
}

func TestCritiqueReturnsZeroValueOnUnparseableResponse(t *testing.T) {
	client := &fakeClient{response: "not json"}
	got := New(client).Critique(context.Background(), "q", "report")
	if got.Total != 0 {
		t.Errorf("expected zero-value critique on unparseable response, got %+v", got)
	}
}
