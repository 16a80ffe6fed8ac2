package generator

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync/atomic"
)

// MockClient returns canned questions for local development and tests.
// With Content or Err set it replies with exactly that; otherwise it reads
// the prompt header and builds matching questions.
type MockClient struct {
	Content string
	Err     error

	calls atomic.Int64
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

// Calls reports how many times Generate ran.
func (m *MockClient) Calls() int64 {
	return m.calls.Load()
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Content != "" {
		return &LLMResponse{Content: m.Content}, nil
	}

	header := parseHeader(userPrompt)
	return &LLMResponse{
		Content:      buildMockJSON(header),
		PromptTokens: len(userPrompt) / 4,
		OutputTokens: 200 * header.count,
	}, nil
}

type promptHeader struct {
	kind     string
	language string
	count    int
}

func parseHeader(prompt string) promptHeader {
	h := promptHeader{kind: typeLabels[1], language: "go", count: 1}
	for _, line := range strings.Split(prompt, "\n") {
		switch {
		case strings.HasPrefix(line, labelType):
			h.kind = strings.TrimPrefix(line, labelType)
		case strings.HasPrefix(line, labelLanguage):
			h.language = strings.TrimPrefix(line, labelLanguage)
		case strings.HasPrefix(line, labelCount):
			if n, err := strconv.Atoi(strings.TrimPrefix(line, labelCount)); err == nil && n > 0 {
				h.count = n
			}
		}
	}
	return h
}

var mockTopics = []string{
	"slices", "maps", "interfaces", "error handling", "goroutines",
	"channels", "closures", "generics", "strings", "struct embedding",
}

func buildMockJSON(h promptHeader) string {
	batch := GeneratedBatch{Questions: make([]GeneratedQuestion, 0, h.count)}
	for i := 0; i < h.count; i++ {
		topic := mockTopics[i%len(mockTopics)]
		q := GeneratedQuestion{}
		switch h.kind {
		case "programming":
			q.Title = "[Mock] Write a " + h.language + " function that works with " + topic + " and returns the result described in the examples."
			q.Options = []string{}
			q.Right = []int{}
			q.Code = "// " + h.language + " starter\nfunc solve(input string) string {\n\treturn \"\"\n}"
		case "multiple choice":
			q.Title = "[Mock] Which statements about " + topic + " in " + h.language + " are true?"
			q.Options = mockOptions(topic)
			q.Right = []int{i % 4, (i + 2) % 4}
		default:
			q.Title = "[Mock] Which statement about " + topic + " in " + h.language + " is true?"
			q.Options = mockOptions(topic)
			q.Right = []int{i % 4}
		}
		batch.Questions = append(batch.Questions, q)
	}

	out, _ := json.Marshal(batch)
	return string(out)
}

func mockOptions(topic string) []string {
	return []string{
		"[Mock] First claim about " + topic,
		"[Mock] Second claim about " + topic,
		"[Mock] Third claim about " + topic,
		"[Mock] Fourth claim about " + topic,
	}
}
