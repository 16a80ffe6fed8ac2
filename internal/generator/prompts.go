package generator

import (
	"fmt"
	"strings"

	"github.com/aa87864763/wanyongzhi/internal/models"
)

// Prompt header labels. The mock client reads them back, so keep the two in
// sync.
const (
	labelType       = "Question type: "
	labelDifficulty = "Difficulty: "
	labelLanguage   = "Language: "
	labelCount      = "Number of questions: "
)

var typeLabels = map[models.QuestionType]string{
	models.SingleChoice: "single choice",
	models.MultiChoice:  "multiple choice",
	models.Programming:  "programming",
}

var difficultyGuidance = map[models.Difficulty]string{
	models.DifficultyEasy:   "Test core syntax and standard library basics a beginner meets in the first weeks.",
	models.DifficultyMedium: "Test idioms, common pitfalls and standard library behaviour a working developer should know.",
	models.DifficultyHard:   "Test subtle semantics, concurrency, memory model or performance trade-offs that trip up experienced developers.",
}

func SystemPrompt() string {
	return `You write programming quiz questions for a question bank.

Rules:
- Every question must be answerable from the question text alone.
- Options must be plausible and mutually distinct. Exactly the marked options are correct.
- Never explain the answer inside the question text.
- Reply with one JSON object and nothing else. No markdown, no commentary.`
}

// BuildUserPrompt renders the request. req must carry defaults.
func BuildUserPrompt(req models.QuestionRequest) string {
	var sb strings.Builder

	sb.WriteString(labelType + typeLabels[req.Type] + "\n")
	sb.WriteString(labelDifficulty + req.Difficulty.String() + "\n")
	sb.WriteString(labelLanguage + string(req.Language) + "\n")
	sb.WriteString(fmt.Sprintf("%s%d\n\n", labelCount, req.Count))

	sb.WriteString(fmt.Sprintf("Write %d %s %s question(s) about the %s programming language.\n",
		req.Count, req.Difficulty.String(), typeLabels[req.Type], req.Language))
	sb.WriteString(difficultyGuidance[req.Difficulty] + "\n\n")

	switch req.Type {
	case models.Programming:
		sb.WriteString(`Each question describes a small programming task: inputs, outputs and constraints.
Put a compilable starter skeleton (signature and an empty body, no solution) in "code".
Leave "options" and "right" empty.

Output format:
{
  "questions": [
    {
      "title": "task description with input, output and constraints",
      "options": [],
      "right": [],
      "code": "starter skeleton"
    }
  ]
}
`)
	default:
		sb.WriteString(`Each question has a stem in "title" and exactly four options.
"right" holds zero-based indices of the correct options: 0 is the first option.
If the question needs a code snippet, put it inside "title" as a fenced block.

Output format:
{
  "questions": [
    {
      "title": "question stem",
      "options": ["option A", "option B", "option C", "option D"],
      "right": [1]
    }
  ]
}
`)
		if req.Type == models.MultiChoice {
			sb.WriteString("\nThis is multiple choice: every question must have at least two correct options.\n")
		} else {
			sb.WriteString("\nThis is single choice: every question must have exactly one correct option.\n")
		}
	}

	sb.WriteString(fmt.Sprintf("\nReturn all %d questions in the \"questions\" array of a single JSON object.\n", req.Count))
	return sb.String()
}
