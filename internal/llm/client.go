// Package llm implements the five logical model endpoints the research
// engine calls through (SPEC_FULL.md §6): planner, searcher_analyzer,
// analyzer, writer, critic. Grounded on the teacher's internal/llm
// package: a single OpenRouter-style HTTP client, no SDK, manual SSE
// parsing for streaming.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"deepresearch/internal/config"
)

const openRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// Role names one of the five logical model endpoints. Each has a fixed
// sampling temperature per SPEC_FULL.md §6.
type Role string

const (
	RolePlanner          Role = "planner"
	RoleSearcherAnalyzer Role = "searcher_analyzer"
	RoleAnalyzer         Role = "analyzer"
	RoleWriter           Role = "writer"
	RoleCritic           Role = "critic"
)

// roleTemperature is the fixed per-role sampling temperature table.
var roleTemperature = map[Role]float64{
	RolePlanner:          0.3,
	RoleSearcherAnalyzer: 0.5,
	RoleAnalyzer:         0.3,
	RoleWriter:           0.7,
	RoleCritic:           0.2,
}

// TemperatureFor returns the fixed sampling temperature for a role.
func TemperatureFor(role Role) float64 {
	if t, ok := roleTemperature[role]; ok {
		return t
	}
	return DefaultModelConfig().Temperature
}

// ChatClient is the model-endpoint interface every stage depends on,
// allowing fakes in tests. Each role may in principle be bound to a
// different underlying model; this client binds all roles to one model
// with role-specific temperature, matching the teacher's single-model
// OpenRouter client generalized with a role parameter.
type ChatClient interface {
	Chat(ctx context.Context, role Role, messages []Message) (*ChatResponse, error)
	StreamChat(ctx context.Context, role Role, messages []Message, handler func(chunk string) error) error
	SetModel(model string)
	GetModel() string
}

// Client handles LLM API calls over a raw net/http client, no SDK.
type Client struct {
	apiKey     string
	httpClient *http.Client
	model      string
}

// NewClient creates a new LLM client from config.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		apiKey:     cfg.OpenRouterAPIKey,
		httpClient: &http.Client{Timeout: cfg.ModelTimeout},
		model:      cfg.Model,
	}
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the API request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// ChatResponse is the API response.
type ChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Chat sends a chat completion request at the role's fixed temperature.
func (c *Client) Chat(ctx context.Context, role Role, messages []Message) (*ChatResponse, error) {
	modelCfg := DefaultModelConfig()
	req := ChatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: TemperatureFor(role),
		MaxTokens:   modelCfg.MaxTokens,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", openRouterURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://github.com/deepresearch/deepresearch")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(b))
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &chatResp, nil
}

// SetModel changes the model used for requests.
func (c *Client) SetModel(model string) { c.model = model }

// GetModel returns the current model.
func (c *Client) GetModel() string { return c.model }

// StreamChat sends a streaming chat request at the role's fixed
// temperature and calls handler for each content delta as it arrives.
func (c *Client) StreamChat(ctx context.Context, role Role, messages []Message, handler func(chunk string) error) error {
	modelCfg := DefaultModelConfig()
	req := ChatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: TemperatureFor(role),
		MaxTokens:   modelCfg.MaxTokens,
		Stream:      true,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", openRouterURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://github.com/deepresearch/deepresearch")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(b))
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var event struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue
		}
		if len(event.Choices) > 0 && event.Choices[0].Delta.Content != "" {
			if err := handler(event.Choices[0].Delta.Content); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}
