package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrNoQuestions = errors.New("no questions in model reply")

type GeneratedBatch struct {
	Questions []GeneratedQuestion `json:"questions"`
}

// GeneratedQuestion is one question as a model wrote it. Some models name
// the option list "answer" instead of "options"; both are accepted.
type GeneratedQuestion struct {
	Title   string   `json:"title"`
	Options []string `json:"options"`
	Answer  []string `json:"answer,omitempty"`
	Right   []int    `json:"right"`
	Code    string   `json:"code,omitempty"`
}

// ParseResponse extracts questions from a model reply. It tries, in order:
// the whole reply as a JSON object, the outermost {...} span, the outermost
// [...] span as a bare array, and finally every flat object with a "title"
// key.
func ParseResponse(responseBody string) (*GeneratedBatch, error) {
	cleaned := stripCodeFences(responseBody)
	if cleaned == "" {
		return nil, ErrNoQuestions
	}

	batch, err := parseLenient(cleaned)
	if err != nil {
		return nil, err
	}
	if len(batch.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	for i := range batch.Questions {
		q := &batch.Questions[i]
		if len(q.Options) == 0 && len(q.Answer) > 0 {
			q.Options = q.Answer
		}
		q.Answer = nil
		q.Code = unescapeCode(q.Code)
	}
	return batch, nil
}

func parseLenient(s string) (*GeneratedBatch, error) {
	var batch GeneratedBatch
	if err := json.Unmarshal([]byte(s), &batch); err == nil {
		return &batch, nil
	}

	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start >= 0 && end > start {
		var inner GeneratedBatch
		if err := json.Unmarshal([]byte(s[start:end+1]), &inner); err == nil && len(inner.Questions) > 0 {
			return &inner, nil
		}
	}

	if start, end := strings.Index(s, "["), strings.LastIndex(s, "]"); start >= 0 && end > start {
		var questions []GeneratedQuestion
		if err := json.Unmarshal([]byte(s[start:end+1]), &questions); err == nil && len(questions) > 0 {
			return &GeneratedBatch{Questions: questions}, nil
		}
	}

	var scraped []GeneratedQuestion
	for _, match := range flatObjectPattern.FindAllString(s, -1) {
		var q GeneratedQuestion
		if err := json.Unmarshal([]byte(match), &q); err == nil && q.Title != "" {
			scraped = append(scraped, q)
		}
	}
	if len(scraped) > 0 {
		return &GeneratedBatch{Questions: scraped}, nil
	}

	return nil, fmt.Errorf("failed to parse JSON response: %w", ErrNoQuestions)
}

var flatObjectPattern = regexp.MustCompile(`\{[^{}]*"title"[^{}]*\}`)

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

// Models sometimes double-escape code, which leaves a single line holding
// literal \n sequences after one JSON decode. Code that already spans
// several lines is left alone.
var codeUnescaper = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\t`, "\t", `\"`, `"`)

func unescapeCode(code string) string {
	if strings.Contains(code, "\n") || !strings.Contains(code, `\n`) {
		return code
	}
	return codeUnescaper.Replace(code)
}
