package models

import (
	"fmt"
	"time"
)

type QuestionType int

const (
	SingleChoice QuestionType = 1
	MultiChoice  QuestionType = 2
	Programming  QuestionType = 3
)

func (t QuestionType) Valid() bool {
	return t == SingleChoice || t == MultiChoice || t == Programming
}

func (t QuestionType) String() string {
	switch t {
	case SingleChoice:
		return "single_choice"
	case MultiChoice:
		return "multi_choice"
	case Programming:
		return "programming"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

type Difficulty int

const (
	DifficultyEasy   Difficulty = 1
	DifficultyMedium Difficulty = 2
	DifficultyHard   Difficulty = 3
)

func (d Difficulty) Valid() bool {
	return d >= DifficultyEasy && d <= DifficultyHard
}

func (d Difficulty) String() string {
	switch d {
	case DifficultyEasy:
		return "easy"
	case DifficultyMedium:
		return "medium"
	case DifficultyHard:
		return "hard"
	default:
		return fmt.Sprintf("difficulty(%d)", int(d))
	}
}

// ModelProvider names the LLM backend a question was generated with.
type ModelProvider string

const (
	ModelClaude   ModelProvider = "claude"
	ModelDeepseek ModelProvider = "deepseek"
	ModelTongyi   ModelProvider = "tongyi"
)

var ValidModelProviders = map[ModelProvider]bool{
	ModelClaude:   true,
	ModelDeepseek: true,
	ModelTongyi:   true,
}

type Language string

const (
	LanguageGo         Language = "go"
	LanguageJava       Language = "java"
	LanguagePython     Language = "python"
	LanguageCPP        Language = "c++"
	LanguageJavaScript Language = "javascript"
)

var ValidLanguages = map[Language]bool{
	LanguageGo:         true,
	LanguageJava:       true,
	LanguagePython:     true,
	LanguageCPP:        true,
	LanguageJavaScript: true,
}

// QuestionRequest carries the authoring parameters. Every field is optional
// on a stored question; Generate fills in defaults before calling a model.
type QuestionRequest struct {
	Model      ModelProvider `json:"model,omitempty" yaml:"model,omitempty"`
	Language   Language      `json:"language,omitempty" yaml:"language,omitempty"`
	Type       QuestionType  `json:"type,omitempty" yaml:"type,omitempty"`
	Difficulty Difficulty    `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Count      int           `json:"count,omitempty" yaml:"count,omitempty"`
}

// QuestionResponse is the loose wire form of a question body. Use ParseBody
// to obtain the typed variant.
type QuestionResponse struct {
	Title  string   `json:"title" yaml:"title"`
	Answer []string `json:"answer" yaml:"answer"`
	Right  []int    `json:"right" yaml:"right"`
	Code   string   `json:"code,omitempty" yaml:"code,omitempty"`
}

type Question struct {
	ID         int64            `json:"id,omitempty" yaml:"id,omitempty"`
	CreatedAt  time.Time        `json:"createdAt" yaml:"createdAt,omitempty"`
	Difficulty Difficulty       `json:"difficulty" yaml:"difficulty"`
	Request    QuestionRequest  `json:"request" yaml:"request"`
	Response   QuestionResponse `json:"response" yaml:"response"`
	StartedAt  *time.Time       `json:"startedAt,omitempty" yaml:"startedAt,omitempty"`
	FinishedAt *time.Time       `json:"finishedAt,omitempty" yaml:"finishedAt,omitempty"`
	CostMillis int64            `json:"costMillis" yaml:"costMillis,omitempty"`
	Version    int64            `json:"version,omitempty" yaml:"version,omitempty"`
}

// Type is a shorthand for q.Request.Type.
func (q Question) Type() QuestionType {
	return q.Request.Type
}

// WithDefaults returns a copy of r with unset generation parameters filled in.
// Model is left empty when defaultModel is empty.
func (r QuestionRequest) WithDefaults(defaultModel ModelProvider) QuestionRequest {
	if r.Model == "" {
		r.Model = defaultModel
	}
	if r.Language == "" {
		r.Language = LanguageGo
	}
	if r.Type == 0 {
		r.Type = SingleChoice
	}
	if r.Difficulty == 0 {
		r.Difficulty = DifficultyMedium
	}
	if r.Count <= 0 {
		r.Count = 1
	}
	return r
}
