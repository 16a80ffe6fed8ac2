package generator

import (
	"fmt"
	"strings"

	"github.com/aa87864763/wanyongzhi/internal/models"
)

// Normalize aligns generated questions with the requested type and keeps
// the ones that pass validation. Each dropped question yields one reason.
//
// A programming request discards any options the model added. A choice
// request folds stray code into the title as a fenced block so the
// snippet is not lost.
func Normalize(want models.QuestionType, lang models.Language, generated []GeneratedQuestion) ([]models.QuestionResponse, []string) {
	var (
		kept     []models.QuestionResponse
		rejected []string
	)

	for i, g := range generated {
		resp := models.QuestionResponse{
			Title:  strings.TrimSpace(g.Title),
			Answer: trimAll(g.Options),
			Right:  g.Right,
			Code:   strings.TrimSpace(g.Code),
		}

		switch want {
		case models.Programming:
			resp.Answer = nil
			resp.Right = nil
		default:
			if resp.Code != "" {
				resp.Title = fmt.Sprintf("%s\n\n```%s\n%s\n```", resp.Title, lang, resp.Code)
				resp.Code = ""
			}
		}

		if resp.Title == "" {
			rejected = append(rejected, fmt.Sprintf("question %d: empty title", i+1))
			continue
		}

		body, err := models.ParseBody(want, resp)
		if err != nil {
			rejected = append(rejected, fmt.Sprintf("question %d: %v", i+1, err))
			continue
		}
		kept = append(kept, body.Response())
	}

	return kept, rejected
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
