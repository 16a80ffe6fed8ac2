package questions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/aa87864763/wanyongzhi/internal/auth"
	"github.com/aa87864763/wanyongzhi/internal/generator"
	"github.com/aa87864763/wanyongzhi/internal/middleware"
	"github.com/aa87864763/wanyongzhi/internal/models"
)

func newTestRouter(t *testing.T, client generator.LLMClient, guard mux.MiddlewareFunc) (http.Handler, *testEnv) {
	t.Helper()
	env := newTestEnv(t, client)
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	NewHandler(env.svc, 10, zap.NewNop()).Register(api, guard)
	return r, env
}

// call sends body as JSON. A string body is sent verbatim.
func call(t *testing.T, h http.Handler, method, target string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectEnvelope(t *testing.T, rec *httptest.ResponseRecorder, status, code int) models.Envelope {
	t.Helper()
	if rec.Code != status {
		t.Errorf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	env := decode[models.Envelope](t, rec)
	if env.Code != code {
		t.Errorf("code = %d, want %d (msg %q)", env.Code, code, env.Msg)
	}
	return env
}

func TestHandler_AddGetList(t *testing.T) {
	h, _ := newTestRouter(t, nil, nil)

	rec := call(t, h, http.MethodPost, "/api/questions/add", singleChoice("What does defer do?"), "")
	env := expectEnvelope(t, rec, http.StatusOK, models.CodeOK)
	if env.Msg != "" {
		t.Errorf("success msg = %q, want empty", env.Msg)
	}
	added := decode[models.AddResponse](t, rec)
	if added.ID != 1 {
		t.Fatalf("id = %d, want 1", added.ID)
	}

	rec = call(t, h, http.MethodGet, "/api/questions/1", nil, "")
	expectEnvelope(t, rec, http.StatusOK, models.CodeOK)
	got := decode[models.QuestionEnvelope](t, rec)
	if got.Question == nil || got.Question.Response.Title != "What does defer do?" {
		t.Fatalf("question = %+v", got.Question)
	}
	if got.Question.Difficulty != models.DifficultyMedium {
		t.Errorf("difficulty = %v, want medium default", got.Question.Difficulty)
	}

	rec = call(t, h, http.MethodGet, "/api/questions/list", nil, "")
	expectEnvelope(t, rec, http.StatusOK, models.CodeOK)
	list := decode[models.ListResponse](t, rec)
	if list.Total != 1 || len(list.List) != 1 {
		t.Errorf("list = %+v", list)
	}
}

func TestHandler_ListPaging(t *testing.T) {
	h, env := newTestRouter(t, nil, nil)
	for i := 0; i < 12; i++ {
		if _, err := env.svc.Add(t.Context(), singleChoice(fmt.Sprintf("question %02d", i))); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	tests := []struct {
		name   string
		target string
		size   int
		first  int64
		total  int64
	}{
		{"defaults", "/api/questions/list", 10, 12, 12},
		{"second page", "/api/questions/list?page=2", 2, 2, 12},
		{"explicit size", "/api/questions/list?page=3&pageSize=5", 2, 2, 12},
		{"past the end", "/api/questions/list?page=9", 0, 0, 12},
		{"largest page", "/api/questions/list?page=9223372036854775807&pageSize=10", 0, 0, 12},
		{"title filter", "/api/questions/list?title=QUESTION%2003", 1, 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, h, http.MethodGet, tt.target, nil, "")
			expectEnvelope(t, rec, http.StatusOK, models.CodeOK)
			list := decode[models.ListResponse](t, rec)
			if list.List == nil {
				t.Fatal("list must be an array, got null")
			}
			if list.Total != tt.total {
				t.Errorf("total = %d, want %d", list.Total, tt.total)
			}
			if len(list.List) != tt.size {
				t.Errorf("page size = %d, want %d", len(list.List), tt.size)
			}
			if tt.size > 0 && list.List[0].ID != tt.first {
				t.Errorf("first id = %d, want %d", list.List[0].ID, tt.first)
			}
		})
	}
}

func TestHandler_ListRejectsBadParams(t *testing.T) {
	h, _ := newTestRouter(t, nil, nil)

	for _, target := range []string{
		"/api/questions/list?page=abc",
		"/api/questions/list?pageSize=1.5",
		"/api/questions/list?page=0",
		"/api/questions/list?pageSize=-3",
		"/api/questions/list?pageSize=101",
		"/api/questions/list?type=x",
		"/api/questions/list?difficulty=7",
	} {
		t.Run(target, func(t *testing.T) {
			rec := call(t, h, http.MethodGet, target, nil, "")
			env := expectEnvelope(t, rec, http.StatusBadRequest, models.CodeValidation)
			if env.Msg == "" {
				t.Error("validation failure without msg")
			}
		})
	}
}

func TestHandler_GetErrors(t *testing.T) {
	h, _ := newTestRouter(t, nil, nil)

	expectEnvelope(t, call(t, h, http.MethodGet, "/api/questions/abc", nil, ""), http.StatusBadRequest, models.CodeValidation)
	expectEnvelope(t, call(t, h, http.MethodGet, "/api/questions/-4", nil, ""), http.StatusBadRequest, models.CodeValidation)
	expectEnvelope(t, call(t, h, http.MethodGet, "/api/questions/99", nil, ""), http.StatusOK, models.CodeNotFound)
}

func TestHandler_AddRejects(t *testing.T) {
	h, env := newTestRouter(t, nil, nil)

	bad := singleChoice("two answers")
	bad.Response.Right = []int{0, 1}
	rec := call(t, h, http.MethodPost, "/api/questions/add", bad, "")
	e := expectEnvelope(t, rec, http.StatusBadRequest, models.CodeValidation)
	if !strings.HasPrefix(e.Msg, models.RuleSingleRight) {
		t.Errorf("msg = %q, want rule prefix %q", e.Msg, models.RuleSingleRight)
	}

	expectEnvelope(t, call(t, h, http.MethodPost, "/api/questions/add", `{"response":`, ""), http.StatusBadRequest, models.CodeValidation)
	expectEnvelope(t, call(t, h, http.MethodPost, "/api/questions/add", `{"bogus":1}`, ""), http.StatusBadRequest, models.CodeValidation)

	if n := len(env.store.byID); n != 0 {
		t.Errorf("rejected adds stored %d questions", n)
	}
}

func TestHandler_Edit(t *testing.T) {
	h, env := newTestRouter(t, nil, nil)
	id, err := env.svc.Add(t.Context(), singleChoice("old"))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	target := fmt.Sprintf("/api/questions/edit/%d", id)

	rec := call(t, h, http.MethodPut, target, singleChoice("new"), "")
	expectEnvelope(t, rec, http.StatusOK, models.CodeOK)
	if v := decode[models.EditResponse](t, rec).Version; v != 2 {
		t.Errorf("version = %d, want 2", v)
	}

	stale := singleChoice("stale")
	stale.Version = 1
	expectEnvelope(t, call(t, h, http.MethodPut, target, stale, ""), http.StatusOK, models.CodeConflict)

	expectEnvelope(t, call(t, h, http.MethodPut, "/api/questions/edit/999", singleChoice("x"), ""), http.StatusOK, models.CodeNotFound)
	expectEnvelope(t, call(t, h, http.MethodPut, "/api/questions/edit/nope", singleChoice("x"), ""), http.StatusBadRequest, models.CodeValidation)

	got, _ := env.svc.Get(t.Context(), id)
	if got.Response.Title != "new" {
		t.Errorf("title = %q, want new", got.Response.Title)
	}
}

func TestHandler_DeleteIdempotent(t *testing.T) {
	h, env := newTestRouter(t, nil, nil)
	id, _ := env.svc.Add(t.Context(), singleChoice("x"))

	body := models.DeleteRequest{IDs: []int64{id, 555}}
	rec := call(t, h, http.MethodDelete, "/api/questions/delete", body, "")
	expectEnvelope(t, rec, http.StatusOK, models.CodeOK)
	if n := decode[models.DeleteResponse](t, rec).Deleted; n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}

	rec = call(t, h, http.MethodDelete, "/api/questions/delete", body, "")
	expectEnvelope(t, rec, http.StatusOK, models.CodeOK)
	if n := decode[models.DeleteResponse](t, rec).Deleted; n != 0 {
		t.Errorf("second delete removed %d", n)
	}

	expectEnvelope(t, call(t, h, http.MethodDelete, "/api/questions/delete", models.DeleteRequest{}, ""), http.StatusBadRequest, models.CodeValidation)
	expectEnvelope(t, call(t, h, http.MethodDelete, "/api/questions/delete", `{"ids":[1,0]}`, ""), http.StatusBadRequest, models.CodeValidation)
}

func TestHandler_GenerateAndPersist(t *testing.T) {
	h, env := newTestRouter(t, nil, nil)

	rec := call(t, h, http.MethodPost, "/api/questions/create", models.QuestionRequest{Type: models.MultiChoice, Count: 2}, "")
	e := expectEnvelope(t, rec, http.StatusOK, models.CodeOK)
	if e.Msg != "" {
		t.Errorf("msg = %q, want empty", e.Msg)
	}
	gen := decode[models.GenerateResponse](t, rec)
	if len(gen.Candidates) != 2 || gen.Generated != 2 || gen.Requested != 2 {
		t.Fatalf("generate = %+v", gen)
	}
	if gen.SessionID == "" || gen.Notice != "" {
		t.Errorf("session = %q notice = %q", gen.SessionID, gen.Notice)
	}
	if _, total, _ := env.svc.List(t.Context(), models.ListQuery{Page: 1, PageSize: 10}); total != 0 {
		t.Fatalf("generate stored %d questions", total)
	}

	rec = call(t, h, http.MethodGet, "/api/questions/sessions/"+gen.SessionID, nil, "")
	expectEnvelope(t, rec, http.StatusOK, models.CodeOK)

	rec = call(t, h, http.MethodPost, "/api/questions/sessions/"+gen.SessionID+"/persist", models.PersistRequest{Indexes: []int{1}}, "")
	expectEnvelope(t, rec, http.StatusOK, models.CodeOK)
	persisted := decode[models.PersistResponse](t, rec)
	if persisted.Added != 1 || len(persisted.IDs) != 1 {
		t.Fatalf("persist = %+v", persisted)
	}

	q, err := env.svc.Get(t.Context(), persisted.IDs[0])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if q.Response.Title != gen.Candidates[1].Title {
		t.Errorf("persisted %q, want %q", q.Response.Title, gen.Candidates[1].Title)
	}

	expectEnvelope(t, call(t, h, http.MethodGet, "/api/questions/sessions/6f1c2a43-3f1e-4c55-9c1e-7f1d0b6a9e21", nil, ""), http.StatusOK, models.CodeNotFound)
}

func TestHandler_GenerateNotice(t *testing.T) {
	h, _ := newTestRouter(t, &generator.MockClient{
		Content: `{"questions":[{"title":"only","options":["a","b"],"right":[0]}]}`,
	}, nil)

	rec := call(t, h, http.MethodPost, "/api/questions/create", `{"count":3}`, "")
	expectEnvelope(t, rec, http.StatusOK, models.CodeOK)
	gen := decode[models.GenerateResponse](t, rec)
	if gen.Generated != 1 || gen.Requested != 3 {
		t.Errorf("generated %d of %d", gen.Generated, gen.Requested)
	}
	if !strings.Contains(gen.Notice, "1 of 3") {
		t.Errorf("notice = %q", gen.Notice)
	}

	rec = call(t, h, http.MethodPost, "/api/questions/create", `{"count":25}`, "")
	gen = decode[models.GenerateResponse](t, rec)
	if !strings.Contains(gen.Notice, "capped at 10") {
		t.Errorf("notice = %q", gen.Notice)
	}
}

func TestHandler_GenerateErrors(t *testing.T) {
	h, _ := newTestRouter(t, nil, nil)
	expectEnvelope(t, call(t, h, http.MethodPost, "/api/questions/create", `{"type":1,"topic":"x"}`, ""), http.StatusBadRequest, models.CodeValidation)
	expectEnvelope(t, call(t, h, http.MethodPost, "/api/questions/create", `{"count":-2}`, ""), http.StatusBadRequest, models.CodeValidation)
	expectEnvelope(t, call(t, h, http.MethodPost, "/api/questions/create", `{"language":"rust"}`, ""), http.StatusBadRequest, models.CodeValidation)

	failing, _ := newTestRouter(t, &generator.MockClient{Content: "sorry, no"}, nil)
	e := expectEnvelope(t, call(t, failing, http.MethodPost, "/api/questions/create", `{}`, ""), http.StatusOK, models.CodeGeneration)
	if e.Msg == "" {
		t.Error("generation failure without msg")
	}
}

func TestHandler_ExportImport(t *testing.T) {
	src, env := newTestRouter(t, nil, nil)
	env.svc.Add(t.Context(), singleChoice("exported"))
	env.svc.Add(t.Context(), programming("exported code"))

	rec := call(t, src, http.MethodGet, "/api/questions/export", nil, "")
	expectEnvelope(t, rec, http.StatusOK, models.CodeOK)
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	dst, _ := newTestRouter(t, nil, nil)
	rec = call(t, dst, http.MethodPost, "/api/questions/import", rec.Body.String(), "")
	expectEnvelope(t, rec, http.StatusOK, models.CodeOK)
	res := decode[models.ImportResponse](t, rec)
	if res.Imported != 2 || res.Failed != 0 {
		t.Errorf("import = %+v", res.ImportResult)
	}
}

func TestHandler_Guard(t *testing.T) {
	secret := []byte("test-secret")
	h, _ := newTestRouter(t, nil, middleware.RequireToken(secret, zap.NewNop()))

	expectEnvelope(t, call(t, h, http.MethodPost, "/api/questions/add", singleChoice("x"), ""), http.StatusUnauthorized, models.CodeAuth)
	expectEnvelope(t, call(t, h, http.MethodPost, "/api/questions/add", singleChoice("x"), "garbage"), http.StatusUnauthorized, models.CodeAuth)
	expectEnvelope(t, call(t, h, http.MethodGet, "/api/questions/list", nil, ""), http.StatusOK, models.CodeOK)

	token, err := auth.IssueToken(secret, "editor", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	expectEnvelope(t, call(t, h, http.MethodPost, "/api/questions/add", singleChoice("x"), token), http.StatusOK, models.CodeOK)
}
