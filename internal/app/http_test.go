package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskboard/api/internal/auth"
	"taskboard/api/internal/identity"
	"taskboard/api/internal/store"
)

type testServer struct {
	env     *testEnv
	handler http.Handler
}

func newTestServer(t *testing.T, devLogin bool) *testServer {
	t.Helper()
	env := newTestEnv(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewTokenIssuer([]byte("test-secret"), time.Hour)
	svc := New(Options{Repo: env.store, Tokens: tokens, Logger: logger})
	resolver := identity.NewResolver(svc.Sessions(), tokens, env.store, logger)
	server := NewHTTPServer(svc, resolver, logger, HTTPConfig{DevLogin: devLogin, SessionTTL: time.Hour})
	return &testServer{env: env, handler: server.Handler()}
}

type requestOpts struct {
	cookie *http.Cookie
	bearer string
}

func (ts *testServer) do(t *testing.T, method, path, body string, opts requestOpts) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if opts.cookie != nil {
		req.AddCookie(opts.cookie)
	}
	if opts.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+opts.bearer)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

// login signs in through the dev login route and returns the session
// cookie.
func (ts *testServer) login(t *testing.T, key string) *http.Cookie {
	t.Helper()
	body := fmt.Sprintf(`{"external_id":"ext-%s","email":"%s@example.com","name":"%s"}`, key, key, key)
	rr := ts.do(t, http.MethodPost, "/api/v1/auth/login", body, requestOpts{})
	if rr.Code != http.StatusCreated && rr.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body=%s", key, rr.Code, rr.Body.String())
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == "taskboard_session" && c.Value != "" {
			return c
		}
	}
	t.Fatalf("login %s: no session cookie", key)
	return nil
}

func decodeData[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var payload struct {
		Data T `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v body=%s", err, rr.Body.String())
	}
	return payload.Data
}

type wireError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) wireError {
	t.Helper()
	var payload struct {
		Error wireError `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v body=%s", err, rr.Body.String())
	}
	return payload.Error
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d body=%s", want, rr.Code, rr.Body.String())
	}
}

func TestHealthAndPreflight(t *testing.T) {
	ts := newTestServer(t, false)

	rr := ts.do(t, http.MethodGet, "/api/health", "", requestOpts{})
	expectStatus(t, rr, http.StatusOK)

	rr = ts.do(t, http.MethodGet, "/api/ready", "", requestOpts{})
	expectStatus(t, rr, http.StatusOK)

	rr = ts.do(t, http.MethodOptions, "/api/v1/projects", "", requestOpts{})
	expectStatus(t, rr, http.StatusNoContent)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard CORS origin, got %q", got)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestProtectedRoutesRequireCredential(t *testing.T) {
	ts := newTestServer(t, true)

	rr := ts.do(t, http.MethodGet, "/api/v1/projects", "", requestOpts{})
	expectStatus(t, rr, http.StatusUnauthorized)
	if code := decodeError(t, rr).Code; code != "UNAUTHORIZED" {
		t.Fatalf("expected UNAUTHORIZED, got %s", code)
	}

	rr = ts.do(t, http.MethodGet, "/api/v1/projects", "", requestOpts{bearer: "not-a-token"})
	expectStatus(t, rr, http.StatusUnauthorized)

	rr = ts.do(t, http.MethodGet, "/api/v1/projects", "", requestOpts{cookie: &http.Cookie{Name: "taskboard_session", Value: "forged"}})
	expectStatus(t, rr, http.StatusUnauthorized)
}

func TestDevLoginDisabled(t *testing.T) {
	ts := newTestServer(t, false)
	rr := ts.do(t, http.MethodPost, "/api/v1/auth/login", `{"external_id":"x","email":"x@example.com"}`, requestOpts{})
	expectStatus(t, rr, http.StatusNotFound)
}

func TestLoginLogoutAndBearerToken(t *testing.T) {
	ts := newTestServer(t, true)
	cookie := ts.login(t, "alice")

	rr := ts.do(t, http.MethodGet, "/api/v1/auth/me", "", requestOpts{cookie: cookie})
	expectStatus(t, rr, http.StatusOK)
	me := decodeData[store.User](t, rr)
	if me.Email != "alice@example.com" {
		t.Fatalf("unexpected user %+v", me)
	}

	rr = ts.do(t, http.MethodPost, "/api/v1/auth/token", "", requestOpts{cookie: cookie})
	expectStatus(t, rr, http.StatusCreated)
	token := decodeData[TokenResponse](t, rr)
	if token.Token == "" || token.ExpiresIn != int64(time.Hour.Seconds()) {
		t.Fatalf("unexpected token response %+v", token)
	}

	rr = ts.do(t, http.MethodPost, "/api/v1/auth/logout", "", requestOpts{cookie: cookie})
	expectStatus(t, rr, http.StatusOK)

	rr = ts.do(t, http.MethodGet, "/api/v1/auth/me", "", requestOpts{cookie: cookie})
	expectStatus(t, rr, http.StatusUnauthorized)

	rr = ts.do(t, http.MethodGet, "/api/v1/auth/me", "", requestOpts{bearer: token.Token})
	expectStatus(t, rr, http.StatusOK)
	if got := decodeData[store.User](t, rr); got.ID != me.ID {
		t.Fatalf("bearer resolved user %d, want %d", got.ID, me.ID)
	}
}

func TestProjectAccessOverHTTP(t *testing.T) {
	ts := newTestServer(t, true)
	alice := ts.login(t, "alice")
	bob := ts.login(t, "bob")

	rr := ts.do(t, http.MethodPost, "/api/v1/projects", `{"name":"Garden"}`, requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusCreated)
	project := decodeData[store.Project](t, rr)
	if project.ColorTheme != "blue" {
		t.Fatalf("expected default color blue, got %q", project.ColorTheme)
	}
	projectPath := fmt.Sprintf("/api/v1/projects/%d", project.ID)

	rr = ts.do(t, http.MethodPost, "/api/v1/projects", `{"name":"   "}`, requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusBadRequest)
	if code := decodeError(t, rr).Code; code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %s", code)
	}

	rr = ts.do(t, http.MethodPost, "/api/v1/projects", `{"name":`, requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusBadRequest)

	rr = ts.do(t, http.MethodGet, projectPath, "", requestOpts{cookie: bob})
	expectStatus(t, rr, http.StatusForbidden)
	if code := decodeError(t, rr).Code; code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN, got %s", code)
	}

	rr = ts.do(t, http.MethodGet, "/api/v1/projects/999999", "", requestOpts{cookie: bob})
	expectStatus(t, rr, http.StatusNotFound)

	rr = ts.do(t, http.MethodGet, "/api/v1/projects/abc", "", requestOpts{cookie: bob})
	expectStatus(t, rr, http.StatusBadRequest)

	rr = ts.do(t, http.MethodPost, projectPath+"/shares", `{"email":"bob@example.com","permission":"view"}`, requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusCreated)

	rr = ts.do(t, http.MethodGet, projectPath, "", requestOpts{cookie: bob})
	expectStatus(t, rr, http.StatusOK)
	detail := decodeData[ProjectDetail](t, rr)
	if detail.Access == nil || detail.Access.Level != "shared" || detail.Access.Permission != "view" {
		t.Fatalf("unexpected access %+v", detail.Access)
	}

	rr = ts.do(t, http.MethodPost, projectPath+"/boards", `{"title":"Beds"}`, requestOpts{cookie: bob})
	expectStatus(t, rr, http.StatusForbidden)

	rr = ts.do(t, http.MethodDelete, projectPath, "", requestOpts{cookie: bob})
	expectStatus(t, rr, http.StatusForbidden)

	rr = ts.do(t, http.MethodGet, projectPath+"/members", "", requestOpts{cookie: bob})
	expectStatus(t, rr, http.StatusOK)
	if members := decodeData[[]Member](t, rr); len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
}

func TestBoardRoutesOverHTTP(t *testing.T) {
	ts := newTestServer(t, true)
	alice := ts.login(t, "alice")

	rr := ts.do(t, http.MethodPost, "/api/v1/projects", `{"name":"Work"}`, requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusCreated)
	project := decodeData[store.Project](t, rr)

	rr = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/boards", project.ID), `{"title":"Sprint"}`, requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusCreated)
	board := decodeData[BoardDetail](t, rr)
	if len(board.Stages) != 3 {
		t.Fatalf("expected 3 default stages, got %d", len(board.Stages))
	}
	boardPath := fmt.Sprintf("/api/v1/boards/%d", board.ID)

	rr = ts.do(t, http.MethodPost, boardPath+"/tasks", `{"title":"Draft","due_date":"2000-01-01"}`, requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusCreated)
	task := decodeData[TaskView](t, rr)
	if task.DynamicColor == nil || *task.DynamicColor != colorOverdue {
		t.Fatalf("expected overdue color, got %v", task.DynamicColor)
	}

	rr = ts.do(t, http.MethodGet, fmt.Sprintf("%s/tasks?stage_id=%d", boardPath, board.Stages[0].ID), "", requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusOK)
	if tasks := decodeData[[]TaskView](t, rr); len(tasks) != 1 {
		t.Fatalf("expected 1 task in first stage, got %d", len(tasks))
	}

	rr = ts.do(t, http.MethodGet, boardPath+"/tasks?stage_id=first", "", requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusBadRequest)

	rr = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/stages/%d", board.Stages[0].ID), "", requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusConflict)
	apiErr := decodeError(t, rr)
	if apiErr.Code != "INVARIANT_VIOLATION" {
		t.Fatalf("expected INVARIANT_VIOLATION, got %s", apiErr.Code)
	}
	if apiErr.Details["task_count"] != float64(1) {
		t.Fatalf("expected task_count 1 in details, got %v", apiErr.Details)
	}

	rr = ts.do(t, http.MethodPut, fmt.Sprintf("/api/v1/tasks/%d/move", task.ID), fmt.Sprintf(`{"stage_id":%d}`, board.Stages[2].ID), requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusOK)
	if moved := decodeData[TaskView](t, rr); moved.StageID != board.Stages[2].ID {
		t.Fatalf("task not moved: %+v", moved)
	}

	rr = ts.do(t, http.MethodPut, fmt.Sprintf("/api/v1/stages/%d/reorder", board.Stages[2].ID), `{"position":0}`, requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusOK)
	stages := decodeData[[]store.Stage](t, rr)
	if stages[0].ID != board.Stages[2].ID {
		t.Fatalf("expected Done first after reorder, got %+v", stages)
	}

	rr = ts.do(t, http.MethodPost, boardPath+"/template", `{"name":"Sprint kit"}`, requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusCreated)
	tmpl := decodeData[store.Template](t, rr)

	rr = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/board-templates/%d/apply", tmpl.ID), fmt.Sprintf(`{"project_id":%d,"title":"Sprint 2"}`, project.ID), requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusCreated)
	if applied := decodeData[BoardDetail](t, rr); applied.Title != "Sprint 2" || len(applied.Stages) != 3 {
		t.Fatalf("unexpected applied board %+v", applied)
	}

	rr = ts.do(t, http.MethodGet, "/api/v1/boards", "", requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusOK)
	if boards := decodeData[Grouped[store.Board]](t, rr); len(boards.Owned) != 2 {
		t.Fatalf("expected 2 owned boards, got %d", len(boards.Owned))
	}
}

func TestListRoutesOverHTTP(t *testing.T) {
	ts := newTestServer(t, true)
	alice := ts.login(t, "alice")

	rr := ts.do(t, http.MethodPost, "/api/v1/projects", `{"name":"Home"}`, requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusCreated)
	project := decodeData[store.Project](t, rr)

	rr = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/lists", project.ID), `{"title":"Chores"}`, requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusCreated)
	list := decodeData[store.List](t, rr)

	rr = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/lists/%d/items", list.ID), `{"content":"Dishes"}`, requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusCreated)
	item := decodeData[store.ListItem](t, rr)

	rr = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/items/%d/toggle", item.ID), "", requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusOK)
	if toggled := decodeData[store.ListItem](t, rr); !toggled.IsChecked {
		t.Fatalf("expected item checked after toggle")
	}

	rr = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/lists/%d", list.ID), "", requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusOK)
	if detail := decodeData[ListDetail](t, rr); len(detail.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(detail.Items))
	}

	rr = ts.do(t, http.MethodGet, "/api/v1/project-templates", "", requestOpts{cookie: alice})
	expectStatus(t, rr, http.StatusOK)
	if seeded := decodeData[[]store.Template](t, rr); len(seeded) != 5 {
		t.Fatalf("expected the starter catalog on first sign-in, got %d", len(seeded))
	}
}

type unreachableDB struct {
	store.Repository
}

func (unreachableDB) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestReadyReportsDatabaseFailure(t *testing.T) {
	env := newTestEnv(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(Options{Repo: unreachableDB{Repository: env.store}, Logger: logger})
	resolver := identity.NewResolver(svc.Sessions(), nil, env.store, logger)
	handler := NewHTTPServer(svc, resolver, logger, HTTPConfig{}).Handler()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	expectStatus(t, rr, http.StatusServiceUnavailable)

	var payload struct {
		OK     bool `json:"ok"`
		Checks map[string]struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"checks"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if payload.OK || payload.Checks["database"].Status != "error" {
		t.Fatalf("expected database failure, got %s", rr.Body.String())
	}
}
