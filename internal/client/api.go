package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"taskboard/internal/models"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// response is the union of the server's JSON envelopes.
type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	User    *models.User    `json:"user"`
	Task    *models.Task    `json:"task"`
	Tasks   []*models.Task  `json:"tasks"`
	Comment *models.Comment `json:"comment"`
	Users   []int           `json:"users"`
}

// APIClient talks to the REST surface. It is safe for concurrent use.
type APIClient struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func NewAPIClient(baseURL string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *APIClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *APIClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *APIClient) Login(ctx context.Context, email, password string) (*models.User, error) {
	var resp response
	err := c.do(ctx, http.MethodPost, "/api/auth/login",
		models.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Token == "" || resp.User == nil {
		return nil, fmt.Errorf("login: missing token in response")
	}
	c.SetToken(resp.Token)
	return resp.User, nil
}

func (c *APIClient) Me(ctx context.Context) (*models.User, error) {
	var resp response
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("me: missing user in response")
	}
	return resp.User, nil
}

func (c *APIClient) OnlineUsers(ctx context.Context) ([]int, error) {
	var resp response
	if err := c.do(ctx, http.MethodGet, "/api/users/online", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

func (c *APIClient) ListTasks(ctx context.Context, projectID int) ([]*models.Task, error) {
	var resp response
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tasks/project/%d", projectID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

func (c *APIClient) GetTask(ctx context.Context, taskID int) (*models.Task, error) {
	return c.taskCall(ctx, http.MethodGet, fmt.Sprintf("/api/tasks/%d", taskID), nil)
}

func (c *APIClient) CreateTask(ctx context.Context, projectID int, req *models.CreateTaskRequest) (*models.Task, error) {
	return c.taskCall(ctx, http.MethodPost, fmt.Sprintf("/api/tasks/project/%d", projectID), req)
}

func (c *APIClient) UpdateTask(ctx context.Context, taskID int, req *models.UpdateTaskRequest) (*models.Task, error) {
	return c.taskCall(ctx, http.MethodPut, fmt.Sprintf("/api/tasks/%d", taskID), req)
}

func (c *APIClient) UpdateTaskStatus(ctx context.Context, taskID int, status models.TaskStatus) (*models.Task, error) {
	return c.taskCall(ctx, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/status", taskID),
		models.UpdateStatusRequest{Status: status})
}

func (c *APIClient) DeleteTask(ctx context.Context, taskID int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", taskID), nil, nil)
}

func (c *APIClient) AddComment(ctx context.Context, taskID int, content string) (*models.Comment, error) {
	var resp response
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/tasks/%d/comments", taskID),
		models.AddCommentRequest{Content: content}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Comment == nil {
		return nil, fmt.Errorf("add comment: missing comment in response")
	}
	return resp.Comment, nil
}

func (c *APIClient) DeleteComment(ctx context.Context, commentID int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/tasks/comments/%d", commentID), nil, nil)
}

// SocketURL derives the WebSocket endpoint from the base URL, carrying the
// current token as a query parameter.
func (c *APIClient) SocketURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	q := u.Query()
	q.Set("token", c.Token())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *APIClient) taskCall(ctx context.Context, method, path string, body interface{}) (*models.Task, error) {
	var resp response
	if err := c.do(ctx, method, path, body, &resp); err != nil {
		return nil, err
	}
	if resp.Task == nil {
		return nil, fmt.Errorf("%s %s: missing task in response", method, path)
	}
	return resp.Task, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body interface{}, out *response) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	var decoded response
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil && err != io.EOF {
		if res.StatusCode >= http.StatusBadRequest {
			return &APIError{Status: res.StatusCode}
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		return &APIError{Status: res.StatusCode, Message: decoded.Message}
	}
	if out != nil {
		*out = decoded
	}
	return nil
}
