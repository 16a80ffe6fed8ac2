package candidates

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/aa87864763/wanyongzhi/internal/models"
)

var ErrSessionNotFound = errors.New("candidate session not found or expired")

// Cache holds generation sessions between Generate and persist. Entries
// vanish once ExpiresAt has passed.
type Cache interface {
	Put(ctx context.Context, s models.CandidateSession) error
	Get(ctx context.Context, id string) (*models.CandidateSession, error)
	Delete(ctx context.Context, id string) error
}

// NewSession stamps a fresh id and expiry on the output of one generation.
func NewSession(req models.QuestionRequest, cands []models.QuestionResponse, started, finished time.Time, ttl time.Duration) models.CandidateSession {
	return models.CandidateSession{
		ID:         uuid.NewString(),
		Request:    req,
		Candidates: cands,
		StartedAt:  started,
		FinishedAt: finished,
		CostMillis: finished.Sub(started).Milliseconds(),
		ExpiresAt:  finished.Add(ttl),
	}
}

// ValidID reports whether id has the shape of a session id, so malformed
// ids can be rejected before any lookup.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
