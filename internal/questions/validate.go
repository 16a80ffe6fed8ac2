package questions

import (
	"github.com/aa87864763/wanyongzhi/internal/models"
)

// ValidateQuestion checks q before it is written and returns the canonical
// copy that should be stored. A zero difficulty falls back to the request
// difficulty and then to medium.
func ValidateQuestion(q models.Question) (models.Question, error) {
	if err := validateRequestFields(q.Request); err != nil {
		return q, err
	}

	if q.Difficulty == 0 {
		q.Difficulty = q.Request.Difficulty
	}
	if q.Difficulty == 0 {
		q.Difficulty = models.DifficultyMedium
	}
	if !q.Difficulty.Valid() {
		return q, invalid(models.RuleDifficultyInvalid, "difficulty must be 1 (easy), 2 (medium) or 3 (hard), got %d", int(q.Difficulty))
	}

	body, err := models.ParseBody(q.Request.Type, q.Response)
	if err != nil {
		return q, err
	}
	q.Response = body.Response()
	return q, nil
}

// ValidateGenerateRequest applies defaults to a generation request and clamps
// count to maxCount. The second return value reports whether clamping happened.
func ValidateGenerateRequest(r models.QuestionRequest, defaultModel models.ModelProvider, maxCount int) (models.QuestionRequest, bool, error) {
	if r.Count < 0 {
		return r, false, invalid(models.RuleCountInvalid, "count must not be negative, got %d", r.Count)
	}
	if err := validateRequestFields(r); err != nil {
		return r, false, err
	}

	r = r.WithDefaults(defaultModel)
	if r.Model == "" {
		return r, false, invalid(models.RuleModelInvalid, "model is required")
	}

	clamped := false
	if maxCount > 0 && r.Count > maxCount {
		r.Count = maxCount
		clamped = true
	}
	return r, clamped, nil
}

func validateRequestFields(r models.QuestionRequest) error {
	if r.Model != "" && !models.ValidModelProviders[r.Model] {
		return invalid(models.RuleModelInvalid, "unknown model %q, expected claude, deepseek or tongyi", r.Model)
	}
	if r.Language != "" && !models.ValidLanguages[r.Language] {
		return invalid(models.RuleLanguageInvalid, "unknown language %q, expected go, java, python, c++ or javascript", r.Language)
	}
	if r.Type != 0 && !r.Type.Valid() {
		return invalid(models.RuleTypeInvalid, "unknown question type %d", int(r.Type))
	}
	if r.Difficulty != 0 && !r.Difficulty.Valid() {
		return invalid(models.RuleDifficultyInvalid, "request difficulty must be 1, 2 or 3, got %d", int(r.Difficulty))
	}
	if r.Count < 0 {
		return invalid(models.RuleCountInvalid, "count must not be negative, got %d", r.Count)
	}
	return nil
}

// ValidateListQuery checks paging bounds and filters.
func ValidateListQuery(q models.ListQuery, maxPageSize int) error {
	if q.Page < 1 {
		return invalid(models.RulePageInvalid, "page must be a positive integer, got %d", q.Page)
	}
	if q.PageSize < 1 {
		return invalid(models.RulePageSizeInvalid, "pageSize must be a positive integer, got %d", q.PageSize)
	}
	if maxPageSize > 0 && q.PageSize > maxPageSize {
		return invalid(models.RulePageSizeInvalid, "pageSize must not exceed %d, got %d", maxPageSize, q.PageSize)
	}
	if q.Type != 0 && !q.Type.Valid() {
		return invalid(models.RuleTypeInvalid, "unknown question type %d", int(q.Type))
	}
	if q.Difficulty != 0 && !q.Difficulty.Valid() {
		return invalid(models.RuleDifficultyInvalid, "unknown difficulty %d", int(q.Difficulty))
	}
	return nil
}

// ValidateIDs rejects an empty set and non-positive ids.
func ValidateIDs(ids []int64) error {
	if len(ids) == 0 {
		return invalid(models.RuleIDsRequired, "at least one id is required")
	}
	for _, id := range ids {
		if id <= 0 {
			return invalid(models.RuleIDInvalid, "id must be a positive integer, got %d", id)
		}
	}
	return nil
}
