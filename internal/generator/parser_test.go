package generator

import (
	"encoding/json"
	"errors"
	"testing"
)

func validBatchJSON(count int) string {
	batch := GeneratedBatch{Questions: make([]GeneratedQuestion, count)}
	for i := 0; i < count; i++ {
		batch.Questions[i] = GeneratedQuestion{
			Title:   "What does len(nil) return for a nil slice?",
			Options: []string{"0", "panic", "-1", "compile error"},
			Right:   []int{0},
		}
	}
	data, _ := json.Marshal(batch)
	return string(data)
}

func TestParseResponse_ValidJSON(t *testing.T) {
	batch, err := ParseResponse(validBatchJSON(3))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(batch.Questions) != 3 {
		t.Errorf("expected 3 questions, got %d", len(batch.Questions))
	}
	if batch.Questions[0].Options[0] != "0" {
		t.Errorf("unexpected first option %q", batch.Questions[0].Options[0])
	}
}

func TestParseResponse_CodeFences(t *testing.T) {
	inputs := map[string]string{
		"json fence":  "```json\n" + validBatchJSON(2) + "\n```",
		"plain fence": "```\n" + validBatchJSON(2) + "\n```",
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			batch, err := ParseResponse(input)
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if len(batch.Questions) != 2 {
				t.Errorf("expected 2 questions, got %d", len(batch.Questions))
			}
		})
	}
}

func TestParseResponse_SurroundingProse(t *testing.T) {
	input := "Sure! Here are your questions:\n" + validBatchJSON(2) + "\nGood luck."

	batch, err := ParseResponse(input)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(batch.Questions) != 2 {
		t.Errorf("expected 2 questions, got %d", len(batch.Questions))
	}
}

func TestParseResponse_BareArray(t *testing.T) {
	input := `[{"title":"Pick one","options":["a","b"],"right":[1]},{"title":"Pick another","options":["c","d"],"right":[0]}]`

	batch, err := ParseResponse(input)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(batch.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(batch.Questions))
	}
	if batch.Questions[1].Title != "Pick another" {
		t.Errorf("unexpected title %q", batch.Questions[1].Title)
	}
}

func TestParseResponse_ScrapesFlatObjects(t *testing.T) {
	// Truncated reply: the outer structure is broken but two objects survive.
	input := `{"questions": [{"title":"First","options":["a","b"],"right":[0]}, {"title":"Second","options":["a","b"],"right":[1]}, {"title":"Thi`

	batch, err := ParseResponse(input)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(batch.Questions) != 2 {
		t.Fatalf("expected 2 scraped questions, got %d", len(batch.Questions))
	}
	if batch.Questions[0].Title != "First" || batch.Questions[1].Title != "Second" {
		t.Errorf("unexpected titles %q, %q", batch.Questions[0].Title, batch.Questions[1].Title)
	}
}

func TestParseResponse_AnswerAlias(t *testing.T) {
	input := `{"questions":[{"title":"Alias","answer":["x","y","z"],"right":[2]}]}`

	batch, err := ParseResponse(input)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if got := batch.Questions[0].Options; len(got) != 3 || got[2] != "z" {
		t.Errorf("expected options from answer alias, got %v", got)
	}
}

func TestParseResponse_UnescapesSingleLineCode(t *testing.T) {
	input := `{"questions":[{"title":"Task","options":[],"right":[],"code":"func f() {\\n\\treturn\\n}"}]}`

	batch, err := ParseResponse(input)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	want := "func f() {\n\treturn\n}"
	if got := batch.Questions[0].Code; got != want {
		t.Errorf("code = %q, want %q", got, want)
	}
}

func TestParseResponse_KeepsMultilineCode(t *testing.T) {
	input := `{"questions":[{"title":"Task","code":"fmt.Println(\"a\\n\")\nreturn"}]}`

	batch, err := ParseResponse(input)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	want := "fmt.Println(\"a\\n\")\nreturn"
	if got := batch.Questions[0].Code; got != want {
		t.Errorf("code = %q, want %q", got, want)
	}
}

func TestParseResponse_Failures(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"prose only", "I cannot help with that."},
		{"empty questions", `{"questions":[]}`},
		{"objects without title", `{"foo": 1} {"bar": 2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse(tt.input)
			if !errors.Is(err, ErrNoQuestions) {
				t.Errorf("expected ErrNoQuestions, got %v", err)
			}
		})
	}
}
