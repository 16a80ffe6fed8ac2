// Package client is a Go client for the question bank HTTP API.
//
// Every call returns either a *TransportError (the request never produced a
// readable envelope) or an *APIError (the server answered with a non-zero
// code), never both.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aa87864763/wanyongzhi/internal/models"
)

// TransportError covers network failures and responses that are not a
// valid envelope.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: transport error (HTTP %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is an envelope with a non-zero code.
type APIError struct {
	Op     string
	Status int
	Code   int
	Msg    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: code %d: %s", e.Op, e.Code, e.Msg)
}

func (e *APIError) IsValidation() bool { return e.Code == models.CodeValidation }
func (e *APIError) IsNotFound() bool   { return e.Code == models.CodeNotFound }
func (e *APIError) IsGeneration() bool { return e.Code == models.CodeGeneration }
func (e *APIError) IsConflict() bool   { return e.Code == models.CodeConflict }

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New returns a client for the API rooted at baseURL, for example
// http://localhost:8081/api.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Generate(ctx context.Context, req models.QuestionRequest) (*models.GenerateResponse, error) {
	var out models.GenerateResponse
	if err := c.do(ctx, "generate", http.MethodPost, "/questions/create", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Session(ctx context.Context, sessionID string) (*models.CandidateSession, error) {
	var out models.SessionResponse
	if err := c.do(ctx, "get session", http.MethodGet, "/questions/sessions/"+url.PathEscape(sessionID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Session, nil
}

func (c *Client) Persist(ctx context.Context, sessionID string, req models.PersistRequest) (*models.PersistResult, error) {
	var out models.PersistResponse
	path := "/questions/sessions/" + url.PathEscape(sessionID) + "/persist"
	if err := c.do(ctx, "persist", http.MethodPost, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out.PersistResult, nil
}

// List fetches one page. Zero values in query are left to server defaults.
func (c *Client) List(ctx context.Context, query models.ListQuery) (*models.ListResponse, error) {
	params := url.Values{}
	if query.Page != 0 {
		params.Set("page", strconv.Itoa(query.Page))
	}
	if query.PageSize != 0 {
		params.Set("pageSize", strconv.Itoa(query.PageSize))
	}
	if query.Type != 0 {
		params.Set("type", strconv.Itoa(int(query.Type)))
	}
	if query.Difficulty != 0 {
		params.Set("difficulty", strconv.Itoa(int(query.Difficulty)))
	}
	if query.Title != "" {
		params.Set("title", query.Title)
	}

	var out models.ListResponse
	if err := c.do(ctx, "list", http.MethodGet, "/questions/list", params, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Get(ctx context.Context, id int64) (*models.Question, error) {
	var out models.QuestionEnvelope
	if err := c.do(ctx, "get", http.MethodGet, "/questions/"+strconv.FormatInt(id, 10), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Question, nil
}

func (c *Client) Add(ctx context.Context, q models.Question) (int64, error) {
	var out models.AddResponse
	if err := c.do(ctx, "add", http.MethodPost, "/questions/add", nil, q, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// AddAll adds each question independently and returns the ids that were
// assigned together with the error of every failed add.
func (c *Client) AddAll(ctx context.Context, qs []models.Question) ([]int64, []error) {
	var (
		ids  []int64
		errs []error
	)
	for _, q := range qs {
		id, err := c.Add(ctx, q)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ids = append(ids, id)
	}
	return ids, errs
}

// Edit replaces question id and returns its new version.
func (c *Client) Edit(ctx context.Context, id int64, q models.Question) (int64, error) {
	var out models.EditResponse
	if err := c.do(ctx, "edit", http.MethodPut, "/questions/edit/"+strconv.FormatInt(id, 10), nil, q, &out); err != nil {
		return 0, err
	}
	return out.Version, nil
}

func (c *Client) Delete(ctx context.Context, ids []int64) (int64, error) {
	var out models.DeleteResponse
	if err := c.do(ctx, "delete", http.MethodDelete, "/questions/delete", nil, models.DeleteRequest{IDs: ids}, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

func (c *Client) Export(ctx context.Context) (*models.ExportEnvelope, error) {
	var out models.ExportResponse
	if err := c.do(ctx, "export", http.MethodGet, "/questions/export", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.ExportEnvelope, nil
}

func (c *Client) Import(ctx context.Context, env models.ExportEnvelope) (*models.ImportResult, error) {
	var out models.ImportResponse
	if err := c.do(ctx, "import", http.MethodPost, "/questions/import", nil, env, &out); err != nil {
		return nil, err
	}
	return &out.ImportResult, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	var env struct {
		Code *int   `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || env.Code == nil {
		if err == nil {
			err = fmt.Errorf("response has no envelope code")
		}
		return &TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}
	if *env.Code != models.CodeOK {
		return &APIError{Op: op, Status: resp.StatusCode, Code: *env.Code, Msg: env.Msg}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
