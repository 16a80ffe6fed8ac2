package questions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/aa87864763/wanyongzhi/internal/models"
)

// Store is the Postgres-backed Repository.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectCols = `id, question_type, difficulty, model, language, request_difficulty, request_count,
	title, answer, right_indices, code, started_at, finished_at, cost_millis, version, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*models.Question, error) {
	var (
		q     models.Question
		right pq.Int64Array
	)
	err := row.Scan(&q.ID, &q.Request.Type, &q.Difficulty, &q.Request.Model, &q.Request.Language,
		&q.Request.Difficulty, &q.Request.Count,
		&q.Response.Title, pq.Array(&q.Response.Answer), &right, &q.Response.Code,
		&q.StartedAt, &q.FinishedAt, &q.CostMillis, &q.Version, &q.CreatedAt)
	if err != nil {
		return nil, err
	}

	if q.Response.Answer == nil {
		q.Response.Answer = []string{}
	}
	q.Response.Right = make([]int, len(right))
	for i, v := range right {
		q.Response.Right[i] = int(v)
	}
	return &q, nil
}

func rightArray(right []int) pq.Int64Array {
	out := make(pq.Int64Array, len(right))
	for i, v := range right {
		out[i] = int64(v)
	}
	return out
}

func (s *Store) Add(ctx context.Context, q models.Question) (*models.Question, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO questions (question_type, difficulty, model, language, request_difficulty, request_count,
		                        title, answer, right_indices, code, started_at, finished_at, cost_millis)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING `+selectCols,
		q.Request.Type, q.Difficulty, q.Request.Model, q.Request.Language, q.Request.Difficulty, q.Request.Count,
		q.Response.Title, pq.Array(q.Response.Answer), rightArray(q.Response.Right), q.Response.Code,
		q.StartedAt, q.FinishedAt, q.CostMillis,
	)
	stored, err := scanQuestion(row)
	if err != nil {
		return nil, fmt.Errorf("add question: %w", err)
	}
	return stored, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*models.Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectCols+` FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get question %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get question %d: %w", id, err)
	}
	return q, nil
}

func (s *Store) List(ctx context.Context, query models.ListQuery) ([]models.Question, int64, error) {
	var (
		where []string
		args  []any
	)
	if query.Type != 0 {
		args = append(args, query.Type)
		where = append(where, fmt.Sprintf("question_type = $%d", len(args)))
	}
	if query.Difficulty != 0 {
		args = append(args, query.Difficulty)
		where = append(where, fmt.Sprintf("difficulty = $%d", len(args)))
	}
	if query.Title != "" {
		args = append(args, "%"+escapeLike(query.Title)+"%")
		where = append(where, fmt.Sprintf("title ILIKE $%d", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count questions: %w", err)
	}

	pageArgs := append(append([]any{}, args...), query.PageSize, query.Offset())
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM questions%s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
			selectCols, clause, len(args)+1, len(args)+2),
		pageArgs...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	list, err := scanQuestions(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list questions: %w", err)
	}
	return list, total, nil
}

func (s *Store) Edit(ctx context.Context, q models.Question) (*models.Question, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE questions
		 SET question_type = $1, difficulty = $2, model = $3, language = $4, request_difficulty = $5,
		     request_count = $6, title = $7, answer = $8, right_indices = $9, code = $10,
		     started_at = $11, finished_at = $12, cost_millis = $13,
		     version = version + 1, updated_at = NOW()
		 WHERE id = $14 AND ($15::BIGINT = 0 OR version = $15)
		 RETURNING `+selectCols,
		q.Request.Type, q.Difficulty, q.Request.Model, q.Request.Language, q.Request.Difficulty,
		q.Request.Count, q.Response.Title, pq.Array(q.Response.Answer), rightArray(q.Response.Right), q.Response.Code,
		q.StartedAt, q.FinishedAt, q.CostMillis,
		q.ID, q.Version,
	)
	updated, err := scanQuestion(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("edit question %d: %w", q.ID, err)
	}

	// Nothing matched: either the row is gone or the version moved on.
	var stored int64
	err = s.db.QueryRowContext(ctx, `SELECT version FROM questions WHERE id = $1`, q.ID).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("edit question %d: %w", q.ID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("edit question %d: %w", q.ID, err)
	}
	return nil, fmt.Errorf("edit question %d at version %d (stored %d): %w", q.ID, q.Version, stored, ErrVersionConflict)
}

func (s *Store) Delete(ctx context.Context, ids []int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete questions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete questions: %w", err)
	}
	return n, nil
}

func (s *Store) All(ctx context.Context) ([]models.Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectCols+` FROM questions ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list all questions: %w", err)
	}
	defer rows.Close()

	list, err := scanQuestions(rows)
	if err != nil {
		return nil, fmt.Errorf("list all questions: %w", err)
	}
	return list, nil
}

func scanQuestions(rows *sql.Rows) ([]models.Question, error) {
	list := []models.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *q)
	}
	return list, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
