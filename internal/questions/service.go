package questions

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aa87864763/wanyongzhi/internal/auth"
	"github.com/aa87864763/wanyongzhi/internal/candidates"
	"github.com/aa87864763/wanyongzhi/internal/generator"
	"github.com/aa87864763/wanyongzhi/internal/models"
)

// QuestionGenerator produces candidates for a defaulted request.
type QuestionGenerator interface {
	Generate(ctx context.Context, req models.QuestionRequest) (*generator.Result, error)
}

type Options struct {
	DefaultModel      models.ModelProvider
	MaxCount          int
	GenerationTimeout time.Duration
	SessionTTL        time.Duration
	MaxPageSize       int
}

type Service struct {
	repo  Repository
	gen   QuestionGenerator
	cache candidates.Cache
	opts  Options
	log   *zap.Logger
	now   func() time.Time
}

func NewService(repo Repository, gen QuestionGenerator, cache candidates.Cache, opts Options, log *zap.Logger) *Service {
	if opts.MaxCount <= 0 {
		opts.MaxCount = 10
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 100
	}
	return &Service{repo: repo, gen: gen, cache: cache, opts: opts, log: log, now: time.Now}
}

// ── Generation ──────────────────────────────────────────

// GenerateOutcome is the result of Generate. Requested is the count the
// caller asked for after defaults; the session may hold fewer candidates.
type GenerateOutcome struct {
	Session   models.CandidateSession
	Requested int
	Clamped   bool
	Rejected  []string
}

// Generate asks the model for candidates and parks them in a session. Nothing
// is written to the question store.
func (s *Service) Generate(ctx context.Context, req models.QuestionRequest) (*GenerateOutcome, error) {
	requested := req.Count
	if requested <= 0 {
		requested = 1
	}

	req, clamped, err := ValidateGenerateRequest(req, s.opts.DefaultModel, s.opts.MaxCount)
	if err != nil {
		return nil, err
	}

	if s.opts.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.GenerationTimeout)
		defer cancel()
	}

	started := s.now()
	res, err := s.gen.Generate(ctx, req)
	finished := s.now()
	if err != nil {
		s.log.Warn("generation failed",
			zap.String("model", string(req.Model)),
			zap.Stringer("type", req.Type),
			zap.Duration("elapsed", finished.Sub(started)),
			zap.Error(err))
		return nil, &GenerationError{Err: err}
	}

	session := candidates.NewSession(req, res.Candidates, started, finished, s.opts.SessionTTL)
	if err := s.cache.Put(ctx, session); err != nil {
		// The candidates are still returned; only the by-reference persist path is lost.
		s.log.Warn("failed to store candidate session", zap.Error(err))
		session.ID = ""
	}

	s.log.Info("questions generated",
		zap.String("session", session.ID),
		zap.String("model", string(req.Model)),
		zap.Stringer("type", req.Type),
		zap.Int("requested", requested),
		zap.Int("generated", len(res.Candidates)),
		zap.Int("rejected", len(res.Rejected)),
		zap.Int64("cost_ms", session.CostMillis))

	return &GenerateOutcome{
		Session:   session,
		Requested: requested,
		Clamped:   clamped,
		Rejected:  res.Rejected,
	}, nil
}

func (s *Service) GetSession(ctx context.Context, id string) (*models.CandidateSession, error) {
	if !candidates.ValidID(id) {
		return nil, invalid(models.RuleIDInvalid, "session id %q is not a valid id", id)
	}
	session, err := s.cache.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// PersistCandidates adds the selected candidates of a session one at a
// time. An empty selection persists every candidate. Each add stands alone,
// so the result may report partial success.
func (s *Service) PersistCandidates(ctx context.Context, sessionID string, req models.PersistRequest) (*models.PersistResult, error) {
	if req.Difficulty != 0 && !req.Difficulty.Valid() {
		return nil, invalid(models.RuleDifficultyInvalid, "difficulty must be 1, 2 or 3, got %d", int(req.Difficulty))
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	indexes := req.Indexes
	if len(indexes) == 0 {
		indexes = make([]int, len(session.Candidates))
		for i := range indexes {
			indexes[i] = i
		}
	}

	difficulty := req.Difficulty
	if difficulty == 0 {
		difficulty = session.Request.Difficulty
	}

	result := &models.PersistResult{IDs: []int64{}}
	seen := make(map[int]bool, len(indexes))
	for _, idx := range indexes {
		if idx < 0 || idx >= len(session.Candidates) {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("candidate %d: index out of range [0, %d)", idx, len(session.Candidates)))
			continue
		}
		if seen[idx] {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("candidate %d: selected more than once", idx))
			continue
		}
		seen[idx] = true

		started, finished := session.StartedAt, session.FinishedAt
		q := models.Question{
			Difficulty: difficulty,
			Request:    session.Request,
			Response:   session.Candidates[idx],
			StartedAt:  &started,
			FinishedAt: &finished,
			CostMillis: session.CostMillis,
		}
		id, err := s.Add(ctx, q)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("candidate %d: %v", idx, err))
			continue
		}
		result.Added++
		result.IDs = append(result.IDs, id)
	}

	s.log.Info("candidates persisted",
		subjectField(ctx),
		zap.String("session", session.ID),
		zap.Int("added", result.Added),
		zap.Int("failed", result.Failed))
	return result, nil
}

// ── CRUD ────────────────────────────────────────────────

// Add validates q and stores it. Any id or createdAt on q is ignored.
func (s *Service) Add(ctx context.Context, q models.Question) (int64, error) {
	q, err := ValidateQuestion(q)
	if err != nil {
		return 0, err
	}
	q.ID = 0
	q.Version = 0

	stored, err := s.repo.Add(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("add question: %w", err)
	}
	s.log.Info("question added", subjectField(ctx), zap.Int64("id", stored.ID), zap.Stringer("type", stored.Request.Type))
	return stored.ID, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Question, error) {
	if err := ValidateIDs([]int64{id}); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, query models.ListQuery) ([]models.Question, int64, error) {
	if err := ValidateListQuery(query, s.opts.MaxPageSize); err != nil {
		return nil, 0, err
	}
	list, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("list questions: %w", err)
	}
	return list, total, nil
}

// Edit replaces every mutable field of question id with q. id and createdAt
// are kept. A positive q.Version turns on the optimistic version check.
func (s *Service) Edit(ctx context.Context, id int64, q models.Question) (*models.Question, error) {
	if err := ValidateIDs([]int64{id}); err != nil {
		return nil, err
	}
	q, err := ValidateQuestion(q)
	if err != nil {
		return nil, err
	}
	q.ID = id

	updated, err := s.repo.Edit(ctx, q)
	if err != nil {
		return nil, err
	}
	s.log.Info("question edited", subjectField(ctx), zap.Int64("id", id), zap.Int64("version", updated.Version))
	return updated, nil
}

// Delete removes the given ids. Unknown ids are ignored.
func (s *Service) Delete(ctx context.Context, ids []int64) (int64, error) {
	if err := ValidateIDs(ids); err != nil {
		return 0, err
	}
	removed, err := s.repo.Delete(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete questions: %w", err)
	}
	s.log.Info("questions deleted", subjectField(ctx), zap.Int("requested", len(ids)), zap.Int64("removed", removed))
	return removed, nil
}

// ── Export/Import ───────────────────────────────────────

func (s *Service) Export(ctx context.Context) (*models.ExportEnvelope, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("export questions: %w", err)
	}
	return &models.ExportEnvelope{
		Version:    models.ExportVersion,
		ExportedAt: s.now().UTC(),
		Questions:  all,
	}, nil
}

// Import adds every question of env as a new entity. Invalid entries are
// counted and skipped.
func (s *Service) Import(ctx context.Context, env models.ExportEnvelope) (*models.ImportResult, error) {
	if env.Version != models.ExportVersion {
		return nil, invalid(models.RuleBodyInvalid, "unsupported export version %d, expected %d", env.Version, models.ExportVersion)
	}

	result := &models.ImportResult{Total: len(env.Questions), IDs: []int64{}}
	for i, q := range env.Questions {
		id, err := s.Add(ctx, q)
		if err != nil {
			if !IsValidation(err) {
				return nil, fmt.Errorf("import question %d: %w", i, err)
			}
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("question %d: %v", i, err))
			continue
		}
		result.Imported++
		result.IDs = append(result.IDs, id)
	}

	s.log.Info("questions imported",
		subjectField(ctx),
		zap.Int("total", result.Total),
		zap.Int("imported", result.Imported),
		zap.Int("failed", result.Failed))
	return result, nil
}

// subjectField names the caller on mutation logs when the request was
// authenticated.
func subjectField(ctx context.Context) zap.Field {
	if subject, ok := auth.Subject(ctx); ok {
		return zap.String("subject", subject)
	}
	return zap.Skip()
}
