package questions

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aa87864763/wanyongzhi/internal/models"
)

// MemoryStore keeps questions in process memory. It is the default store
// and the one used by tests.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]models.Question
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		byID:   make(map[int64]models.Question),
		now:    time.Now,
	}
}

func (s *MemoryStore) Add(ctx context.Context, q models.Question) (*models.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("add question: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q = cloneQuestion(q)
	q.ID = s.nextID
	q.CreatedAt = s.now().UTC()
	q.Version = 1
	s.nextID++
	s.byID[q.ID] = q

	out := cloneQuestion(q)
	return &out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id int64) (*models.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("get question %d: %w", id, ErrNotFound)
	}
	out := cloneQuestion(q)
	return &out, nil
}

func (s *MemoryStore) List(ctx context.Context, query models.ListQuery) ([]models.Question, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("list questions: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keyword := strings.ToLower(query.Title)
	matched := make([]models.Question, 0, len(s.byID))
	for _, q := range s.byID {
		if query.Type != 0 && q.Request.Type != query.Type {
			continue
		}
		if query.Difficulty != 0 && q.Difficulty != query.Difficulty {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(q.Response.Title), keyword) {
			continue
		}
		matched = append(matched, q)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	start := query.Offset()
	if start < 0 || start >= len(matched) {
		return []models.Question{}, total, nil
	}
	end := len(matched)
	if query.PageSize < end-start {
		end = start + query.PageSize
	}

	page := make([]models.Question, 0, end-start)
	for _, q := range matched[start:end] {
		page = append(page, cloneQuestion(q))
	}
	return page, total, nil
}

func (s *MemoryStore) Edit(ctx context.Context, q models.Question) (*models.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("edit question: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[q.ID]
	if !ok {
		return nil, fmt.Errorf("edit question %d: %w", q.ID, ErrNotFound)
	}
	if q.Version > 0 && q.Version != existing.Version {
		return nil, fmt.Errorf("edit question %d at version %d (stored %d): %w", q.ID, q.Version, existing.Version, ErrVersionConflict)
	}

	q = cloneQuestion(q)
	q.CreatedAt = existing.CreatedAt
	q.Version = existing.Version + 1
	s.byID[q.ID] = q

	out := cloneQuestion(q)
	return &out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, ids []int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("delete questions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for _, id := range ids {
		if _, ok := s.byID[id]; ok {
			delete(s.byID, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) All(ctx context.Context) ([]models.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list all questions: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Question, 0, len(s.byID))
	for _, q := range s.byID {
		out = append(out, cloneQuestion(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneQuestion(q models.Question) models.Question {
	q.Response.Answer = append([]string{}, q.Response.Answer...)
	q.Response.Right = append([]int{}, q.Response.Right...)
	if q.StartedAt != nil {
		t := *q.StartedAt
		q.StartedAt = &t
	}
	if q.FinishedAt != nil {
		t := *q.FinishedAt
		q.FinishedAt = &t
	}
	return q
}
