package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/areyabhishek/todo1/internal/dto"
	"github.com/areyabhishek/todo1/internal/notify"
	"github.com/areyabhishek/todo1/internal/repo"
	"github.com/areyabhishek/todo1/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (n *recordingNotifier) Notify(note notify.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
}

func (n *recordingNotifier) all() []notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Notification(nil), n.sent...)
}

func newTestServer(t *testing.T) (*gin.Engine, *recordingNotifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "todos.db")
	db, err := repo.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	r := repo.NewSQLiteTodoRepo(db, path)
	if err := r.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	n := &recordingNotifier{}
	h := NewTodoHandler(service.NewTodoService(r, nil, n, zerolog.Nop()), zerolog.Nop())

	e := gin.New()
	api := e.Group("/api")
	api.GET("/todos", h.List)
	api.POST("/todos", h.Create)
	api.GET("/todos/:id", h.GetByID)
	api.PUT("/todos/:id", h.Update)
	api.DELETE("/todos/:id", h.Delete)
	return e, n
}

func do(t *testing.T, e *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestCreateTodo(t *testing.T) {
	e, _ := newTestServer(t)

	w := do(t, e, http.MethodPost, "/api/todos", `{"task": "Buy milk"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	got := decode[dto.TodoResponse](t, w)
	if got.ID <= 0 || got.Task != "Buy milk" || got.Completed || got.Deadline != nil {
		t.Errorf("unexpected todo: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at should be set")
	}

	var raw map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &raw)
	if _, ok := raw["updated_at"]; ok {
		t.Error("updated_at should not be exposed")
	}
}

func TestCreateTodoRejectsBlankTask(t *testing.T) {
	e, _ := newTestServer(t)

	for _, body := range []string{`{"task": "  "}`, `{"task": ""}`, `{}`} {
		w := do(t, e, http.MethodPost, "/api/todos", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, w.Code)
		}
		if got := decode[dto.ErrorResponse](t, w); got.Error != "Task cannot be empty" {
			t.Errorf("%s: unexpected error %q", body, got.Error)
		}
	}

	list := decode[[]dto.TodoResponse](t, do(t, e, http.MethodGet, "/api/todos", ""))
	if len(list) != 0 {
		t.Errorf("expected nothing stored, got %d", len(list))
	}
}

func TestCreateTodoMalformedBody(t *testing.T) {
	e, _ := newTestServer(t)

	w := do(t, e, http.MethodPost, "/api/todos", `{"task":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if got := decode[dto.ErrorResponse](t, w); got.Error != "invalid request body" {
		t.Errorf("unexpected error %q", got.Error)
	}
}

func TestListNewestFirst(t *testing.T) {
	e, _ := newTestServer(t)

	do(t, e, http.MethodPost, "/api/todos", `{"task": "first"}`)
	do(t, e, http.MethodPost, "/api/todos", `{"task": "second", "deadline": "2026-12-31"}`)

	w := do(t, e, http.MethodGet, "/api/todos", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	list := decode[[]dto.TodoResponse](t, w)
	if len(list) != 2 || list[0].Task != "second" || list[1].Task != "first" {
		t.Fatalf("unexpected order: %+v", list)
	}
	if list[0].Deadline == nil || *list[0].Deadline != "2026-12-31" {
		t.Errorf("deadline not stored verbatim: %+v", list[0].Deadline)
	}
}

func TestListEmptyIsArray(t *testing.T) {
	e, _ := newTestServer(t)

	w := do(t, e, http.MethodGet, "/api/todos", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("expected [], got %s", w.Body.String())
	}
}

func TestCompleteTodoNotifies(t *testing.T) {
	e, n := newTestServer(t)
	do(t, e, http.MethodPost, "/api/todos", `{"task": "Buy milk"}`)

	w := do(t, e, http.MethodPut, "/api/todos/1", `{"completed": true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decode[dto.TodoResponse](t, w); !got.Completed || got.Task != "Buy milk" {
		t.Errorf("unexpected todo: %+v", got)
	}

	sent := n.all()
	if len(sent) != 1 || sent[0].Action != notify.ActionCompleted || sent[0].Task != "Buy milk" {
		t.Errorf("unexpected notifications: %+v", sent)
	}
}

func TestUpdateFieldPriority(t *testing.T) {
	e, _ := newTestServer(t)
	do(t, e, http.MethodPost, "/api/todos", `{"task": "first draft"}`)

	w := do(t, e, http.MethodPut, "/api/todos/1", `{"task": "renamed", "completed": true}`)
	got := decode[dto.TodoResponse](t, w)
	if !got.Completed || got.Task != "first draft" {
		t.Errorf("completed should win over task: %+v", got)
	}

	w = do(t, e, http.MethodPut, "/api/todos/1", `{"deadline": "friday", "task": "renamed"}`)
	got = decode[dto.TodoResponse](t, w)
	if got.Task != "renamed" || got.Deadline != nil {
		t.Errorf("task should win over deadline: %+v", got)
	}

	w = do(t, e, http.MethodPut, "/api/todos/1", `{"deadline": "friday"}`)
	got = decode[dto.TodoResponse](t, w)
	if got.Deadline == nil || *got.Deadline != "friday" {
		t.Errorf("deadline not set: %+v", got)
	}

	w = do(t, e, http.MethodPut, "/api/todos/1", `{"deadline": null}`)
	got = decode[dto.TodoResponse](t, w)
	if got.Deadline != nil {
		t.Errorf("deadline not cleared: %+v", got)
	}
}

func TestUpdateWithoutKnownKeysReturnsCurrent(t *testing.T) {
	e, n := newTestServer(t)
	do(t, e, http.MethodPost, "/api/todos", `{"task": "unchanged"}`)

	w := do(t, e, http.MethodPut, "/api/todos/1", `{"title": "ignored"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decode[dto.TodoResponse](t, w); got.Task != "unchanged" || got.Completed {
		t.Errorf("unexpected todo: %+v", got)
	}
	if len(n.all()) != 0 {
		t.Error("no-op update should not notify")
	}
}

func TestUpdateMissingTodo(t *testing.T) {
	e, n := newTestServer(t)

	w := do(t, e, http.MethodPut, "/api/todos/999", `{"task": "x"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if got := decode[dto.ErrorResponse](t, w); got.Error != "Todo not found" {
		t.Errorf("unexpected error %q", got.Error)
	}
	if len(n.all()) != 0 {
		t.Error("failed update should not notify")
	}
}

func TestUpdateEmptyTaskKeepsStoredTask(t *testing.T) {
	e, _ := newTestServer(t)
	do(t, e, http.MethodPost, "/api/todos", `{"task": "keep me"}`)

	w := do(t, e, http.MethodPut, "/api/todos/1", `{"task": "   "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if got := decode[dto.ErrorResponse](t, w); got.Error != "Task cannot be empty" {
		t.Errorf("unexpected error %q", got.Error)
	}

	got := decode[dto.TodoResponse](t, do(t, e, http.MethodGet, "/api/todos/1", ""))
	if got.Task != "keep me" {
		t.Errorf("stored task changed to %q", got.Task)
	}
}

func TestUpdateWrongValueType(t *testing.T) {
	e, _ := newTestServer(t)
	do(t, e, http.MethodPost, "/api/todos", `{"task": "x"}`)

	w := do(t, e, http.MethodPut, "/api/todos/1", `{"completed": "yes"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if got := decode[dto.ErrorResponse](t, w); got.Error != "invalid request body" {
		t.Errorf("unexpected error %q", got.Error)
	}
}

func TestGetTodo(t *testing.T) {
	e, _ := newTestServer(t)
	do(t, e, http.MethodPost, "/api/todos", `{"task": "look me up"}`)

	w := do(t, e, http.MethodGet, "/api/todos/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := decode[dto.TodoResponse](t, w); got.ID != 1 || got.Task != "look me up" {
		t.Errorf("unexpected todo: %+v", got)
	}

	if w := do(t, e, http.MethodGet, "/api/todos/2", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestDeleteTwice(t *testing.T) {
	e, _ := newTestServer(t)
	do(t, e, http.MethodPost, "/api/todos", `{"task": "short-lived"}`)

	for i := 0; i < 2; i++ {
		w := do(t, e, http.MethodDelete, "/api/todos/1", "")
		if w.Code != http.StatusOK {
			t.Fatalf("delete #%d: expected 200, got %d", i+1, w.Code)
		}
		if got := decode[dto.MessageResponse](t, w); got.Message != "Todo deleted successfully" {
			t.Errorf("delete #%d: unexpected message %q", i+1, got.Message)
		}
	}

	list := decode[[]dto.TodoResponse](t, do(t, e, http.MethodGet, "/api/todos", ""))
	if len(list) != 0 {
		t.Errorf("expected empty list, got %+v", list)
	}
}

func TestInvalidID(t *testing.T) {
	e, _ := newTestServer(t)

	cases := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/api/todos/abc", ""},
		{http.MethodPut, "/api/todos/0", `{"completed": true}`},
		{http.MethodDelete, "/api/todos/-3", ""},
	}
	for _, tc := range cases {
		w := do(t, e, tc.method, tc.path, tc.body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s %s: expected 400, got %d", tc.method, tc.path, w.Code)
			continue
		}
		if got := decode[dto.ErrorResponse](t, w); got.Error != "invalid id" {
			t.Errorf("%s %s: unexpected error %q", tc.method, tc.path, got.Error)
		}
	}
}
