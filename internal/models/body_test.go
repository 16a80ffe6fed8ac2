package models

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestParseBody_Rules(t *testing.T) {
	tests := []struct {
		name string
		t    QuestionType
		r    QuestionResponse
		rule string
	}{
		{"type missing", 0, QuestionResponse{Answer: []string{"a", "b"}, Right: []int{0}}, RuleTypeRequired},
		{"type unknown", 7, QuestionResponse{Answer: []string{"a", "b"}, Right: []int{0}}, RuleTypeInvalid},
		{"single one option", SingleChoice, QuestionResponse{Answer: []string{"a"}, Right: []int{0}}, RuleMinOptions},
		{"single no right", SingleChoice, QuestionResponse{Answer: []string{"a", "b"}}, RuleRightRequired},
		{"single two right", SingleChoice, QuestionResponse{Answer: []string{"a", "b", "c"}, Right: []int{0, 2}}, RuleSingleRight},
		{"single right out of range", SingleChoice, QuestionResponse{Answer: []string{"a", "b"}, Right: []int{2}}, RuleRightOutOfRange},
		{"multi negative right", MultiChoice, QuestionResponse{Answer: []string{"a", "b"}, Right: []int{-1}}, RuleRightOutOfRange},
		{"multi no options", MultiChoice, QuestionResponse{Right: []int{0}}, RuleMinOptions},
		{"programming no code", Programming, QuestionResponse{Title: "t"}, RuleCodeRequired},
		{"programming blank code", Programming, QuestionResponse{Code: "   \n"}, RuleCodeRequired},
		{"programming with options", Programming, QuestionResponse{Code: "x", Answer: []string{"a", "b"}}, RuleNoOptions},
		{"programming with right", Programming, QuestionResponse{Code: "x", Right: []int{0}}, RuleNoOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBody(tt.t, tt.r)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Rule != tt.rule {
				t.Errorf("rule = %q, want %q", ve.Rule, tt.rule)
			}
		})
	}
}

func TestParseBody_Variants(t *testing.T) {
	body, err := ParseBody(SingleChoice, QuestionResponse{Title: "pick", Answer: []string{"a", "b", "c", "d"}, Right: []int{1}})
	if err != nil {
		t.Fatalf("single: %v", err)
	}
	single, ok := body.(SingleChoiceBody)
	if !ok {
		t.Fatalf("expected SingleChoiceBody, got %T", body)
	}
	if single.Correct != 1 || single.Kind() != SingleChoice {
		t.Errorf("unexpected single body %+v", single)
	}

	body, err = ParseBody(MultiChoice, QuestionResponse{Answer: []string{"a", "b", "c", "d"}, Right: []int{3, 0, 3}})
	if err != nil {
		t.Fatalf("multi: %v", err)
	}
	multi, ok := body.(MultiChoiceBody)
	if !ok {
		t.Fatalf("expected MultiChoiceBody, got %T", body)
	}
	if !reflect.DeepEqual(multi.Correct, []int{0, 3}) {
		t.Errorf("multi correct = %v, want [0 3]", multi.Correct)
	}

	body, err = ParseBody(Programming, QuestionResponse{Title: "fib", Code: "func fib(n int) int"})
	if err != nil {
		t.Fatalf("programming: %v", err)
	}
	prog, ok := body.(ProgrammingBody)
	if !ok {
		t.Fatalf("expected ProgrammingBody, got %T", body)
	}
	r := prog.Response()
	if r.Answer == nil || r.Right == nil || len(r.Answer) != 0 || len(r.Right) != 0 {
		t.Errorf("programming response must carry empty non-nil slices, got %+v", r)
	}
	if r.Code != "func fib(n int) int" {
		t.Errorf("code = %q", r.Code)
	}
}

func TestParseBody_TitleOptional(t *testing.T) {
	if _, err := ParseBody(SingleChoice, QuestionResponse{Answer: []string{"A", "B"}, Right: []int{0}}); err != nil {
		t.Errorf("untitled question should be accepted, got %v", err)
	}
}

func TestQuestionRequest_WithDefaults(t *testing.T) {
	got := QuestionRequest{}.WithDefaults(ModelClaude)
	want := QuestionRequest{Model: ModelClaude, Language: LanguageGo, Type: SingleChoice, Difficulty: DifficultyMedium, Count: 1}
	if got != want {
		t.Errorf("WithDefaults = %+v, want %+v", got, want)
	}

	kept := QuestionRequest{Model: ModelTongyi, Language: LanguagePython, Type: Programming, Difficulty: DifficultyHard, Count: 4}
	if got := kept.WithDefaults(ModelClaude); got != kept {
		t.Errorf("WithDefaults overwrote set fields: %+v", got)
	}
}

func TestListQuery_Offset(t *testing.T) {
	tests := []struct {
		page, size, want int
	}{
		{1, 10, 0},
		{2, 10, 10},
		{3, 2, 4},
		{0, 10, 0},
		{math.MaxInt, 10, math.MaxInt},
		{math.MaxInt/10 + 2, 10, math.MaxInt},
	}
	for _, tt := range tests {
		q := ListQuery{Page: tt.page, PageSize: tt.size}
		if got := q.Offset(); got != tt.want {
			t.Errorf("Offset(page=%d, size=%d) = %d, want %d", tt.page, tt.size, got, tt.want)
		}
	}
}
