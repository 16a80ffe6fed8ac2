package models

import (
	"fmt"
	"sort"
	"strings"
)

// Validation rule identifiers reported in ValidationError.Rule.
const (
	RuleTypeRequired      = "type_required"
	RuleTypeInvalid       = "type_invalid"
	RuleDifficultyInvalid = "difficulty_invalid"
	RuleModelInvalid      = "model_invalid"
	RuleLanguageInvalid   = "language_invalid"
	RuleCountInvalid      = "count_invalid"
	RuleMinOptions        = "min_options"
	RuleRightRequired     = "right_required"
	RuleSingleRight       = "single_right"
	RuleRightOutOfRange   = "right_out_of_range"
	RuleCodeRequired      = "code_required"
	RuleNoOptions         = "programming_no_options"
	RuleIDInvalid         = "id_invalid"
	RuleIDsRequired       = "ids_required"
	RulePageInvalid       = "page_invalid"
	RulePageSizeInvalid   = "page_size_invalid"
	RuleBodyInvalid       = "body_invalid"
)

// ValidationError reports malformed input. It never reaches the store.
type ValidationError struct {
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Rule, e.Message)
}

func invalid(rule, format string, args ...any) *ValidationError {
	return &ValidationError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// Body is the typed content of a question. The concrete type decides which
// fields exist, so a programming question can never carry options.
type Body interface {
	Kind() QuestionType
	Response() QuestionResponse
	isBody()
}

type SingleChoiceBody struct {
	Title   string
	Options []string
	Correct int
}

type MultiChoiceBody struct {
	Title   string
	Options []string
	Correct []int
}

type ProgrammingBody struct {
	Title string
	Code  string
}

func (SingleChoiceBody) Kind() QuestionType { return SingleChoice }
func (MultiChoiceBody) Kind() QuestionType  { return MultiChoice }
func (ProgrammingBody) Kind() QuestionType  { return Programming }

func (SingleChoiceBody) isBody() {}
func (MultiChoiceBody) isBody()  {}
func (ProgrammingBody) isBody()  {}

func (b SingleChoiceBody) Response() QuestionResponse {
	return QuestionResponse{
		Title:  b.Title,
		Answer: append([]string{}, b.Options...),
		Right:  []int{b.Correct},
	}
}

func (b MultiChoiceBody) Response() QuestionResponse {
	return QuestionResponse{
		Title:  b.Title,
		Answer: append([]string{}, b.Options...),
		Right:  append([]int{}, b.Correct...),
	}
}

func (b ProgrammingBody) Response() QuestionResponse {
	return QuestionResponse{
		Title:  b.Title,
		Answer: []string{},
		Right:  []int{},
		Code:   b.Code,
	}
}

// ParseBody checks r against the rules of question type t and returns the
// typed body. Multi-choice indices come back sorted and de-duplicated.
func ParseBody(t QuestionType, r QuestionResponse) (Body, error) {
	switch t {
	case SingleChoice, MultiChoice:
		if len(r.Answer) < 2 {
			return nil, invalid(RuleMinOptions, "at least two options required, got %d", len(r.Answer))
		}
		if len(r.Right) == 0 {
			return nil, invalid(RuleRightRequired, "at least one correct answer required")
		}
		for _, idx := range r.Right {
			if idx < 0 || idx >= len(r.Answer) {
				return nil, invalid(RuleRightOutOfRange, "correct answer index %d out of range [0, %d)", idx, len(r.Answer))
			}
		}
		if t == SingleChoice {
			if len(r.Right) != 1 {
				return nil, invalid(RuleSingleRight, "single choice question needs exactly one correct answer, got %d", len(r.Right))
			}
			return SingleChoiceBody{Title: r.Title, Options: r.Answer, Correct: r.Right[0]}, nil
		}
		return MultiChoiceBody{Title: r.Title, Options: r.Answer, Correct: uniqueSorted(r.Right)}, nil

	case Programming:
		if strings.TrimSpace(r.Code) == "" {
			return nil, invalid(RuleCodeRequired, "programming question needs non-empty code")
		}
		if len(r.Answer) > 0 || len(r.Right) > 0 {
			return nil, invalid(RuleNoOptions, "programming question must not carry answer options")
		}
		return ProgrammingBody{Title: r.Title, Code: r.Code}, nil

	case 0:
		return nil, invalid(RuleTypeRequired, "question type is required")
	default:
		return nil, invalid(RuleTypeInvalid, "unknown question type %d", int(t))
	}
}

func uniqueSorted(in []int) []int {
	out := append([]int{}, in...)
	sort.Ints(out)
	n := 0
	for i, v := range out {
		if i > 0 && v == out[n-1] {
			continue
		}
		out[n] = v
		n++
	}
	return out[:n]
}
