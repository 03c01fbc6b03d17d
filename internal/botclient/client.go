// Package botclient is a small HTTP client for chat integrations. It covers
// the read-mostly calls a bot needs and links external chat users to API
// tokens through a credential store.
package botclient

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
)

const defaultTimeout = 10 * time.Second

type Board struct {
	ID          int64   `json:"id"`
	ProjectID   int64   `json:"project_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	ColorTheme  string  `json:"color_theme"`
	Stages      []Stage `json:"stages,omitempty"`
}

type Stage struct {
	ID       int64  `json:"id"`
	BoardID  int64  `json:"board_id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
	Color    string `json:"color"`
}

type Task struct {
	ID           int64   `json:"id"`
	BoardID      int64   `json:"board_id"`
	StageID      int64   `json:"stage_id"`
	Title        string  `json:"title"`
	Description  *string `json:"description"`
	DueDate      *string `json:"due_date"`
	Position     int     `json:"position"`
	DynamicColor *string `json:"dynamic_color"`
}

type List struct {
	ID          int64   `json:"id"`
	ProjectID   int64   `json:"project_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	ColorTheme  string  `json:"color_theme"`
	Items       []Item  `json:"items,omitempty"`
}

type Item struct {
	ID        int64  `json:"id"`
	ListID    int64  `json:"list_id"`
	Content   string `json:"content"`
	IsChecked bool   `json:"is_checked"`
	Position  int    `json:"position"`
}

type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Grouped mirrors the server's owned/shared split.
type Grouped[T any] struct {
	Owned  []T `json:"owned"`
	Shared []T `json:"shared"`
}

// All returns owned entries followed by shared ones.
func (g Grouped[T]) All() []T {
	out := make([]T, 0, len(g.Owned)+len(g.Shared))
	out = append(out, g.Owned...)
	return append(out, g.Shared...)
}

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("taskboard api: status %d", e.Status)
	}
	return fmt.Sprintf("taskboard api: %s (%d): %s", e.Code, e.Status, e.Message)
}

// Client calls /api/v1 with a bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout on the HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New builds a client for baseURL, the server root without /api/v1.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/") + "/api/v1",
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var user User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, &user)
	return user, err
}

// ListBoards returns every board the token's user can see.
func (c *Client) ListBoards(ctx context.Context) (Grouped[Board], error) {
	var boards Grouped[Board]
	err := c.do(ctx, http.MethodGet, "/boards", nil, &boards)
	return boards, err
}

func (c *Client) GetBoard(ctx context.Context, boardID int64) (Board, error) {
	var board Board
	err := c.do(ctx, http.MethodGet, "/boards/"+strconv.FormatInt(boardID, 10), nil, &board)
	return board, err
}

func (c *Client) ListTasks(ctx context.Context, boardID int64) ([]Task, error) {
	var tasks []Task
	err := c.do(ctx, http.MethodGet, "/boards/"+strconv.FormatInt(boardID, 10)+"/tasks", nil, &tasks)
	return tasks, err
}

// CreateTask adds a task to the board's first stage. An empty description
// is omitted.
func (c *Client) CreateTask(ctx context.Context, boardID int64, title, description string) (Task, error) {
	body := map[string]string{"title": title}
	if description != "" {
		body["description"] = description
	}
	var task Task
	err := c.do(ctx, http.MethodPost, "/boards/"+strconv.FormatInt(boardID, 10)+"/tasks", body, &task)
	return task, err
}

func (c *Client) ListLists(ctx context.Context) (Grouped[List], error) {
	var lists Grouped[List]
	err := c.do(ctx, http.MethodGet, "/lists", nil, &lists)
	return lists, err
}

// GetList returns the list with its items.
func (c *Client) GetList(ctx context.Context, listID int64) (List, error) {
	var list List
	err := c.do(ctx, http.MethodGet, "/lists/"+strconv.FormatInt(listID, 10), nil, &list)
	return list, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(raw, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
