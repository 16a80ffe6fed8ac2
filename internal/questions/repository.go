package questions

import (
	"context"

	"github.com/aa87864763/wanyongzhi/internal/models"
)

// Repository is the question store. Implementations assign ids and
// createdAt on Add and never change them afterwards. List orders by id
// descending.
type Repository interface {
	Add(ctx context.Context, q models.Question) (*models.Question, error)
	Get(ctx context.Context, id int64) (*models.Question, error)
	List(ctx context.Context, query models.ListQuery) ([]models.Question, int64, error)
	// Edit replaces request, response, difficulty and timing of q.ID. A
	// positive q.Version must match the stored version.
	Edit(ctx context.Context, q models.Question) (*models.Question, error)
	// Delete removes the ids that exist and reports how many were removed.
	Delete(ctx context.Context, ids []int64) (int64, error)
	// All returns every question ordered by id ascending.
	All(ctx context.Context) ([]models.Question, error)
}
