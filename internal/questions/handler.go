package questions

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/aa87864763/wanyongzhi/internal/candidates"
	"github.com/aa87864763/wanyongzhi/internal/models"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	service         *Service
	defaultPageSize int
	log             *zap.Logger
}

func NewHandler(service *Service, defaultPageSize int, log *zap.Logger) *Handler {
	if defaultPageSize <= 0 {
		defaultPageSize = 10
	}
	return &Handler{service: service, defaultPageSize: defaultPageSize, log: log}
}

// Register mounts the question routes on api. Mutating routes go through
// guard when it is non-nil.
func (h *Handler) Register(api *mux.Router, guard mux.MiddlewareFunc) {
	q := api.PathPrefix("/questions").Subrouter()

	mutating := q.NewRoute().Subrouter()
	if guard != nil {
		mutating.Use(guard)
	}
	mutating.HandleFunc("/create", h.Generate).Methods(http.MethodPost)
	mutating.HandleFunc("/add", h.Add).Methods(http.MethodPost)
	mutating.HandleFunc("/edit/{id}", h.Edit).Methods(http.MethodPut)
	mutating.HandleFunc("/delete", h.Delete).Methods(http.MethodDelete)
	mutating.HandleFunc("/sessions/{sessionId}/persist", h.Persist).Methods(http.MethodPost)
	mutating.HandleFunc("/import", h.Import).Methods(http.MethodPost)

	q.HandleFunc("/list", h.List).Methods(http.MethodGet)
	q.HandleFunc("/export", h.Export).Methods(http.MethodGet)
	q.HandleFunc("/sessions/{sessionId}", h.GetSession).Methods(http.MethodGet)
	q.HandleFunc("/{id}", h.Get).Methods(http.MethodGet)
}

// ── Generation ──────────────────────────────────────────

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.QuestionRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	out, err := h.service.Generate(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	s := out.Session
	resp := models.GenerateResponse{
		Envelope:   models.OK(),
		SessionID:  s.ID,
		Candidates: s.Candidates,
		Request:    s.Request,
		Requested:  out.Requested,
		Generated:  len(s.Candidates),
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		CostMillis: s.CostMillis,
	}
	var notices []string
	if out.Clamped {
		notices = append(notices, fmt.Sprintf("count capped at %d", s.Request.Count))
	}
	if len(s.Candidates) < out.Requested {
		notices = append(notices, fmt.Sprintf("generated %d of %d requested questions", len(s.Candidates), out.Requested))
	}
	resp.Notice = strings.Join(notices, "; ")

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetSession(r.Context(), mux.Vars(r)["sessionId"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.SessionResponse{Envelope: models.OK(), Session: session})
}

func (h *Handler) Persist(w http.ResponseWriter, r *http.Request) {
	var req models.PersistRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.service.PersistCandidates(r.Context(), mux.Vars(r)["sessionId"], req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.PersistResponse{Envelope: models.OK(), PersistResult: *result})
}

// ── CRUD ────────────────────────────────────────────────

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query, err := h.parseListQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, err)
		return
	}

	list, total, err := h.service.List(r.Context(), query)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ListResponse{Envelope: models.OK(), Total: total, List: list})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	q, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.QuestionEnvelope{Envelope: models.OK(), Question: q})
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var q models.Question
	if err := decodeBody(w, r, &q); err != nil {
		h.writeError(w, err)
		return
	}

	id, err := h.service.Add(r.Context(), q)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.AddResponse{Envelope: models.OK(), ID: id})
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var q models.Question
	if err := decodeBody(w, r, &q); err != nil {
		h.writeError(w, err)
		return
	}

	updated, err := h.service.Edit(r.Context(), id, q)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.EditResponse{Envelope: models.OK(), Version: updated.Version})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	removed, err := h.service.Delete(r.Context(), req.IDs)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.DeleteResponse{Envelope: models.OK(), Deleted: removed})
}

// ── Export/Import ───────────────────────────────────────

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	env, err := h.service.Export(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename=questions_export.json")
	writeJSON(w, http.StatusOK, models.ExportResponse{Envelope: models.OK(), ExportEnvelope: *env})
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var body models.ExportResponse
	if err := decodeBody(w, r, &body); err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.service.Import(r.Context(), body.ExportEnvelope)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ImportResponse{Envelope: models.OK(), ImportResult: *result})
}

// ── Helpers ─────────────────────────────────────────────

func (h *Handler) parseListQuery(query url.Values) (models.ListQuery, error) {
	page, err := intQueryParam(query, "page", 1, models.RulePageInvalid)
	if err != nil {
		return models.ListQuery{}, err
	}
	pageSize, err := intQueryParam(query, "pageSize", h.defaultPageSize, models.RulePageSizeInvalid)
	if err != nil {
		return models.ListQuery{}, err
	}
	qType, err := intQueryParam(query, "type", 0, models.RuleTypeInvalid)
	if err != nil {
		return models.ListQuery{}, err
	}
	difficulty, err := intQueryParam(query, "difficulty", 0, models.RuleDifficultyInvalid)
	if err != nil {
		return models.ListQuery{}, err
	}

	return models.ListQuery{
		Page:       page,
		PageSize:   pageSize,
		Type:       models.QuestionType(qType),
		Difficulty: models.Difficulty(difficulty),
		Title:      strings.TrimSpace(query.Get("title")),
	}, nil
}

// intQueryParam returns fallback when key is absent or empty and a
// validation error when it is present but not an integer.
func intQueryParam(query url.Values, key string, fallback int, rule string) (int, error) {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid(rule, "%s must be an integer, got %q", key, raw)
	}
	return v, nil
}

func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, invalid(models.RuleIDInvalid, "id must be an integer, got %q", raw)
	}
	if id <= 0 {
		return 0, invalid(models.RuleIDInvalid, "id must be a positive integer, got %d", id)
	}
	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return invalid(models.RuleBodyInvalid, "invalid request body: %v", err)
	}
	return nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		ve *models.ValidationError
		ge *GenerationError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, models.Fail(models.CodeValidation, ve.Rule+": "+ve.Message))
	case errors.As(err, &ge):
		writeJSON(w, http.StatusOK, models.Fail(models.CodeGeneration, ge.Error()))
	case errors.Is(err, ErrNotFound), errors.Is(err, candidates.ErrSessionNotFound):
		writeJSON(w, http.StatusOK, models.Fail(models.CodeNotFound, err.Error()))
	case errors.Is(err, ErrVersionConflict):
		writeJSON(w, http.StatusOK, models.Fail(models.CodeConflict, err.Error()))
	default:
		h.log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.Fail(models.CodeInternal, "internal server error"))
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
