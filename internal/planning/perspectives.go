package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"deepresearch/internal/llm"
	"deepresearch/internal/state"
	"deepresearch/internal/tools"
)

// TopicOutline represents structure extracted from a related topic,
// used to inform perspective generation (STORM-style survey phase,
// SPEC_FULL.md §4.2.1).
type TopicOutline struct {
	Topic    string   `json:"topic"`
	Sections []string `json:"sections"`
	Source   string   `json:"source"`
}

// PerspectiveDiscoverer identifies diverse expert perspectives for a topic.
type PerspectiveDiscoverer struct {
	client llm.ChatClient
	tools  tools.ToolExecutor
	model  string
}

// NewPerspectiveDiscoverer creates a new discoverer with the given LLM client.
func NewPerspectiveDiscoverer(client llm.ChatClient) *PerspectiveDiscoverer {
	return &PerspectiveDiscoverer{client: client, model: client.GetModel()}
}

// NewPerspectiveDiscovererWithTools creates a discoverer with LLM client and
// search tools, enabling the STORM-style related-topic survey.
func NewPerspectiveDiscovererWithTools(client llm.ChatClient, toolExec tools.ToolExecutor) *PerspectiveDiscoverer {
	return &PerspectiveDiscoverer{
		client: client,
		tools:  toolExec,
		model:  client.GetModel(),
	}
}

// Discover identifies 3-5 distinct expert perspectives for the given topic
// (SPEC_FULL.md §4.2.1); each becomes one search node of the task graph.
func (p *PerspectiveDiscoverer) Discover(ctx context.Context, topic string) ([]state.Perspective, string, error) {
	prompt := fmt.Sprintf(`For the research topic: "%s"

Identify 3-5 distinct expert perspectives that would provide comprehensive coverage.

For each perspective:
1. Name (e.g., "Technical Expert", "Industry Analyst", "End User Advocate")
2. Focus area (what they prioritize)
3. 3-4 key questions they would ask

Return JSON array:
[
  {
    "name": "Perspective Name",
    "focus": "What this perspective prioritizes",
    "questions": ["Question 1", "Question 2", "Question 3"]
  }
]`, topic)

	resp, err := p.client.Chat(ctx, llm.RolePlanner, []llm.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, p.model, fmt.Errorf("perspective discovery: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, p.model, fmt.Errorf("empty response from LLM")
	}

	perspectives, err := parsePerspectives(resp.Choices[0].Message.Content)
	if err != nil || len(perspectives) == 0 {
		return defaultPerspectives(topic), p.model, nil
	}

	return perspectives, p.model, nil
}

func parsePerspectives(content string) ([]state.Perspective, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]") + 1
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	var perspectives []state.Perspective
	if err := json.Unmarshal([]byte(content[start:end]), &perspectives); err != nil {
		return nil, fmt.Errorf("parse perspectives: %w", err)
	}
	return perspectives, nil
}

// SurveyRelatedTopics surveys related topics via web search and extracts
// their structure, informing perspective generation the way STORM's
// FindRelatedTopic step does, but over live web search rather than
// Wikipedia.
func (p *PerspectiveDiscoverer) SurveyRelatedTopics(ctx context.Context, topic string) ([]TopicOutline, error) {
	if p.tools == nil {
		return nil, nil
	}

	queryPrompt := fmt.Sprintf(`For the topic: "%s"

Generate 3-5 search queries that would find related topics and subtopics.
These should cover different angles: technical aspects, history, applications,
controversies, and related fields.

Return JSON array: ["query1", "query2", ...]`, topic)

	resp, err := p.client.Chat(ctx, llm.RolePlanner, []llm.Message{
		{Role: "user", Content: queryPrompt},
	})
	if err != nil {
		return nil, fmt.Errorf("generate survey queries: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from LLM")
	}

	queries := parseStringArray(resp.Choices[0].Message.Content)
	if len(queries) == 0 {
		queries = []string{topic + " overview", topic + " applications", topic + " challenges"}
	}

	var allResults []string
	for _, query := range queries {
		result, err := p.tools.Execute(ctx, "search", map[string]interface{}{
			"query": query,
			"count": float64(3),
		})
		if err != nil {
			continue
		}
		allResults = append(allResults, result)
	}
	if len(allResults) == 0 {
		return nil, nil
	}

	extractPrompt := fmt.Sprintf(`From these search results about "%s", extract the key topics and their main sections/themes.

Search Results:
%s

For each distinct topic found, extract its main sections or aspects.
Return JSON array:
[
  {"topic": "Topic Name", "sections": ["Section 1", "Section 2", "Section 3"], "source": "URL if available"}
]

Focus on identifying diverse aspects and subtopics that would help create comprehensive research perspectives.`, topic, strings.Join(allResults, "\n---\n"))

	extractResp, err := p.client.Chat(ctx, llm.RolePlanner, []llm.Message{
		{Role: "user", Content: extractPrompt},
	})
	if err != nil {
		return nil, fmt.Errorf("extract outlines: %w", err)
	}
	if len(extractResp.Choices) == 0 {
		return nil, nil
	}

	return parseTopicOutlines(extractResp.Choices[0].Message.Content), nil
}

// DiscoverWithSurvey generates perspectives informed by related-topic
// structures: survey first, then generate personas (STORM-aligned).
func (p *PerspectiveDiscoverer) DiscoverWithSurvey(ctx context.Context, topic string) ([]state.Perspective, error) {
	outlines, err := p.SurveyRelatedTopics(ctx, topic)
	if err != nil {
		perspectives, _, discoverErr := p.Discover(ctx, topic)
		return perspectives, discoverErr
	}

	inspirationContext := formatOutlinesAsContext(outlines)

	prompt := fmt.Sprintf(`For the research topic: "%s"

You need to select a group of research experts who will work together to create
a comprehensive research report. Each expert represents a different perspective,
role, or affiliation related to this topic.

Use these related topic structures for inspiration:
%s

For each expert perspective, provide:
1. Name (e.g., "Technical Expert", "Industry Analyst")
2. Focus area (what they prioritize in research)
3. 3-4 key questions they would investigate

Always include a "Basic Fact Writer" who covers fundamental information.

Return JSON array: [{"name": "...", "focus": "...", "questions": [...]}]`, topic, inspirationContext)

	resp, err := p.client.Chat(ctx, llm.RolePlanner, []llm.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("perspective discovery with survey: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from LLM")
	}

	perspectives, err := parsePerspectives(resp.Choices[0].Message.Content)
	if err != nil || len(perspectives) == 0 {
		return defaultPerspectives(topic), nil
	}

	return ensureBasicFactWriter(perspectives, topic), nil
}

func formatOutlinesAsContext(outlines []TopicOutline) string {
	if len(outlines) == 0 {
		return "(No related topics found - use your knowledge to generate diverse perspectives)"
	}

	var sb strings.Builder
	for _, outline := range outlines {
		sb.WriteString(fmt.Sprintf("Topic: %s\n", outline.Topic))
		sb.WriteString("  Sections: ")
		sb.WriteString(strings.Join(outline.Sections, ", "))
		sb.WriteString("\n")
	}
	return sb.String()
}

func parseStringArray(content string) []string {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]") + 1
	if start < 0 || end <= start {
		return nil
	}

	var arr []string
	if err := json.Unmarshal([]byte(content[start:end]), &arr); err != nil {
		return nil
	}
	return arr
}

func parseTopicOutlines(content string) []TopicOutline {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]") + 1
	if start < 0 || end <= start {
		return nil
	}

	var outlines []TopicOutline
	if err := json.Unmarshal([]byte(content[start:end]), &outlines); err != nil {
		return nil
	}
	return outlines
}

func ensureBasicFactWriter(perspectives []state.Perspective, topic string) []state.Perspective {
	for _, p := range perspectives {
		if strings.Contains(strings.ToLower(p.Name), "basic") ||
			strings.Contains(strings.ToLower(p.Name), "fact") ||
			strings.Contains(strings.ToLower(p.Name), "foundational") {
			return perspectives
		}
	}

	basicWriter := state.Perspective{
		Name:  "Basic Fact Writer",
		Focus: "Fundamental information and essential definitions",
		Questions: []string{
			fmt.Sprintf("What is %s and how is it defined?", topic),
			fmt.Sprintf("What are the key components or elements of %s?", topic),
			fmt.Sprintf("What is the history or origin of %s?", topic),
		},
	}
	return append([]state.Perspective{basicWriter}, perspectives...)
}

// defaultPerspectives returns a sensible set of perspectives when the
// discovery answer cannot be parsed or names no perspectives.
func defaultPerspectives(topic string) []state.Perspective {
	return []state.Perspective{
		{
			Name:  "Technical Expert",
			Focus: "Implementation details and technical feasibility",
			Questions: []string{
				fmt.Sprintf("What are the technical components of %s?", topic),
				fmt.Sprintf("What technologies or methods underpin %s?", topic),
				fmt.Sprintf("What are the technical challenges in implementing %s?", topic),
			},
		},
		{
			Name:  "Practical User",
			Focus: "Real-world applications and usability",
			Questions: []string{
				fmt.Sprintf("How is %s used in practice?", topic),
				fmt.Sprintf("What are the main use cases for %s?", topic),
				fmt.Sprintf("What benefits does %s provide to users?", topic),
			},
		},
		{
			Name:  "Critic",
			Focus: "Limitations, risks, and challenges",
			Questions: []string{
				fmt.Sprintf("What are the limitations of %s?", topic),
				fmt.Sprintf("What risks or drawbacks are associated with %s?", topic),
				fmt.Sprintf("What alternatives exist to %s?", topic),
			},
		},
	}
}

// CollectQuestions gathers all questions from a set of perspectives.
func CollectQuestions(perspectives []state.Perspective) []string {
	var questions []string
	for _, p := range perspectives {
		questions = append(questions, p.Questions...)
	}
	return questions
}
