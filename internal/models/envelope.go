package models

import (
	"math"
	"time"
)

// Envelope codes. Zero is success; anything else is a failure the client
// reports using Msg.
const (
	CodeOK         = 0
	CodeValidation = -1
	CodeGeneration = -2
	CodeNotFound   = -3
	CodeConflict   = -4
	CodeInternal   = -5
	CodeAuth       = -6
)

// Envelope is embedded in every response body so the payload fields sit
// next to code and msg.
type Envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func OK() Envelope {
	return Envelope{Code: CodeOK}
}

func Fail(code int, msg string) Envelope {
	return Envelope{Code: code, Msg: msg}
}

// ── Payloads ─────────────────────────────────────────────

type GenerateResponse struct {
	Envelope
	SessionID  string             `json:"sessionId,omitempty"`
	Candidates []QuestionResponse `json:"aiRes"`
	Request    QuestionRequest    `json:"request"`
	Requested  int                `json:"requested"`
	Generated  int                `json:"generated"`
	Notice     string             `json:"notice,omitempty"`
	StartedAt  time.Time          `json:"startedAt"`
	FinishedAt time.Time          `json:"finishedAt"`
	CostMillis int64              `json:"costMillis"`
}

type ListResponse struct {
	Envelope
	Total int64      `json:"total"`
	List  []Question `json:"list"`
}

type AddResponse struct {
	Envelope
	ID int64 `json:"id"`
}

type EditResponse struct {
	Envelope
	Version int64 `json:"version"`
}

type DeleteResponse struct {
	Envelope
	Deleted int64 `json:"deleted"`
}

type QuestionEnvelope struct {
	Envelope
	Question *Question `json:"question,omitempty"`
}

type SessionResponse struct {
	Envelope
	Session *CandidateSession `json:"session,omitempty"`
}

type PersistResponse struct {
	Envelope
	PersistResult
}

// ExportResponse is also accepted by import, so an export can be posted
// back unchanged.
type ExportResponse struct {
	Envelope
	ExportEnvelope
}

type ImportResponse struct {
	Envelope
	ImportResult
}

// ── Requests ─────────────────────────────────────────────

// ListQuery is a validated list request. Zero Type or Difficulty means no
// filter on that field.
type ListQuery struct {
	Page       int
	PageSize   int
	Type       QuestionType
	Difficulty Difficulty
	Title      string
}

// Offset returns the number of matching rows that precede the page. It
// saturates at math.MaxInt, so a huge page reads as past the end.
func (q ListQuery) Offset() int {
	if q.Page <= 1 || q.PageSize <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.PageSize {
		return math.MaxInt
	}
	return (q.Page - 1) * q.PageSize
}

type DeleteRequest struct {
	IDs []int64 `json:"ids"`
}

// PersistRequest selects candidates of a generation session by position.
// Difficulty overrides the difficulty recorded in the session request.
type PersistRequest struct {
	Indexes    []int      `json:"indexes"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
}

type PersistResult struct {
	IDs    []int64  `json:"ids"`
	Added  int      `json:"added"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors,omitempty"`
}

// CandidateSession holds the unpersisted output of one Generate call.
type CandidateSession struct {
	ID         string             `json:"id"`
	Request    QuestionRequest    `json:"request"`
	Candidates []QuestionResponse `json:"candidates"`
	StartedAt  time.Time          `json:"startedAt"`
	FinishedAt time.Time          `json:"finishedAt"`
	CostMillis int64              `json:"costMillis"`
	ExpiresAt  time.Time          `json:"expiresAt"`
}

// ── Export/Import ────────────────────────────────────────

const ExportVersion = 1

type ExportEnvelope struct {
	Version    int        `json:"version" yaml:"version"`
	ExportedAt time.Time  `json:"exportedAt" yaml:"exportedAt,omitempty"`
	Questions  []Question `json:"questions" yaml:"questions"`
}

type ImportResult struct {
	Total    int      `json:"total"`
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	IDs      []int64  `json:"ids"`
	Errors   []string `json:"errors,omitempty"`
}
