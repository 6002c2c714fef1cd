package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_LoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var req models.LoginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req.Password != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": "Invalid credentials"})
				return
			}
			json.NewEncoder(w).Encode(models.LoginResponse{
				Success: true,
				Token:   "tok-5",
				User:    models.User{ID: 5, Email: req.Email},
			})
		case "/api/auth/me":
			assert.Equal(t, "Bearer tok-5", r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "user": models.User{ID: 5}})
		}
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL+"/", nil)

	_, err := c.Login(context.Background(), "a@b.c", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.Empty(t, c.Token())

	user, err := c.Login(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, 5, user.ID)
	assert.Equal(t, "tok-5", c.Token())

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, me.ID)
}

func TestAPIClient_TaskCalls(t *testing.T) {
	type call struct {
		method, path string
		body         string
	}
	var calls []call

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body json.RawMessage
		json.NewDecoder(r.Body).Decode(&body)
		calls = append(calls, call{r.Method, r.URL.Path, string(body)})

		resp := map[string]interface{}{"success": true}
		switch {
		case r.URL.Path == "/api/tasks/project/3" && r.Method == http.MethodGet:
			resp["tasks"] = []*models.Task{{ID: 1}, {ID: 2}}
		case r.URL.Path == "/api/tasks/8/comments":
			w.WriteHeader(http.StatusCreated)
			resp["comment"] = models.Comment{ID: 30, TaskID: 8, Content: "hi"}
		case r.Method == http.MethodDelete:
			resp["message"] = "deleted"
		default:
			resp["task"] = models.Task{ID: 8, Status: models.StatusReview}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, srv.Client())
	ctx := context.Background()

	tasks, err := c.ListTasks(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	_, err = c.CreateTask(ctx, 3, &models.CreateTaskRequest{Title: "New"})
	require.NoError(t, err)
	task, err := c.UpdateTaskStatus(ctx, 8, models.StatusReview)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReview, task.Status)
	_, err = c.GetTask(ctx, 8)
	require.NoError(t, err)
	comment, err := c.AddComment(ctx, 8, "hi")
	require.NoError(t, err)
	assert.Equal(t, 30, comment.ID)
	require.NoError(t, c.DeleteComment(ctx, 30))
	require.NoError(t, c.DeleteTask(ctx, 8))

	require.Len(t, calls, 7)
	assert.Equal(t, call{http.MethodPost, "/api/tasks/project/3", `{"title":"New","description":"","priority":"","assignedTo":null,"dueDate":""}`}, calls[1])
	assert.Equal(t, call{http.MethodPatch, "/api/tasks/8/status", `{"status":"review"}`}, calls[2])
	assert.Equal(t, call{http.MethodPost, "/api/tasks/8/comments", `{"content":"hi"}`}, calls[4])
	assert.Equal(t, http.MethodDelete, calls[5].method)
	assert.Equal(t, "/api/tasks/comments/30", calls[5].path)
	assert.Equal(t, "/api/tasks/8", calls[6].path)
}

func TestAPIClient_SocketURL(t *testing.T) {
	c := NewAPIClient("https://board.example.com", nil)
	c.SetToken("abc")
	u, err := c.SocketURL()
	require.NoError(t, err)
	assert.Equal(t, "wss://board.example.com/ws?token=abc", u)

	c = NewAPIClient("http://localhost:5000/", nil)
	u, err = c.SocketURL()
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:5000/ws?token=", u)
}
