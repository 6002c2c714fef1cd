package handlers

import (
	"context"
	"net/http"

	"taskboard/internal/models"
)

type TaskManager interface {
	ListTasks(ctx context.Context, projectID, userID int) ([]*models.Task, error)
	GetTask(ctx context.Context, taskID, userID int) (*models.Task, error)
	CreateTask(ctx context.Context, projectID, userID int, req *models.CreateTaskRequest) (*models.Task, error)
	UpdateTask(ctx context.Context, taskID, userID int, req *models.UpdateTaskRequest) (*models.Task, error)
	UpdateStatus(ctx context.Context, taskID, userID int, status models.TaskStatus) (*models.Task, error)
	DeleteTask(ctx context.Context, taskID, userID int) (*models.Task, error)
	AddComment(ctx context.Context, taskID, userID int, content string) (*models.Comment, error)
	DeleteComment(ctx context.Context, commentID, userID int) (*models.Comment, error)
}

type TaskHandlers struct {
	tasks TaskManager
	auth  Authenticator
}

func NewTaskHandlers(tasks TaskManager, auth Authenticator) *TaskHandlers {
	return &TaskHandlers{
		tasks: tasks,
		auth:  auth,
	}
}

// ListTasks serves GET /api/tasks/project/{projectId}.
func (h *TaskHandlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := authenticate(w, r, h.auth)
	if !ok {
		return
	}
	projectID, err := pathID(r, 3)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project ID")
		return
	}

	tasks, err := h.tasks.ListTasks(r.Context(), projectID, user.ID)
	if err != nil {
		writeServiceError(w, err, "fetch tasks")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "tasks": tasks})
}

// CreateTask serves POST /api/tasks/project/{projectId}.
func (h *TaskHandlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := authenticate(w, r, h.auth)
	if !ok {
		return
	}
	projectID, err := pathID(r, 3)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project ID")
		return
	}

	var req models.CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), projectID, user.ID, &req)
	if err != nil {
		writeServiceError(w, err, "create task")
		return
	}
	writeJSON(w, http.StatusCreated, envelope{
		"success": true,
		"message": "Task created successfully",
		"task":    task,
	})
}

func (h *TaskHandlers) GetTask(w http.ResponseWriter, r *http.Request) {
	user, ok := authenticate(w, r, h.auth)
	if !ok {
		return
	}
	taskID, err := pathID(r, 2)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task ID")
		return
	}

	task, err := h.tasks.GetTask(r.Context(), taskID, user.ID)
	if err != nil {
		writeServiceError(w, err, "fetch task")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "task": task})
}

func (h *TaskHandlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := authenticate(w, r, h.auth)
	if !ok {
		return
	}
	taskID, err := pathID(r, 2)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task ID")
		return
	}

	var req models.UpdateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	task, err := h.tasks.UpdateTask(r.Context(), taskID, user.ID, &req)
	if err != nil {
		writeServiceError(w, err, "update task")
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Task updated successfully",
		"task":    task,
	})
}

func (h *TaskHandlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := authenticate(w, r, h.auth)
	if !ok {
		return
	}
	taskID, err := pathID(r, 2)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task ID")
		return
	}

	var req models.UpdateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	task, err := h.tasks.UpdateStatus(r.Context(), taskID, user.ID, req.Status)
	if err != nil {
		writeServiceError(w, err, "update task status")
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Task status updated",
		"task":    task,
	})
}

func (h *TaskHandlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user, ok := authenticate(w, r, h.auth)
	if !ok {
		return
	}
	taskID, err := pathID(r, 2)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task ID")
		return
	}

	if _, err := h.tasks.DeleteTask(r.Context(), taskID, user.ID); err != nil {
		writeServiceError(w, err, "delete task")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Task deleted successfully"})
}

// AddComment serves POST /api/tasks/{id}/comments.
func (h *TaskHandlers) AddComment(w http.ResponseWriter, r *http.Request) {
	user, ok := authenticate(w, r, h.auth)
	if !ok {
		return
	}
	taskID, err := pathID(r, 2)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task ID")
		return
	}

	var req models.AddCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	comment, err := h.tasks.AddComment(r.Context(), taskID, user.ID, req.Content)
	if err != nil {
		writeServiceError(w, err, "add comment")
		return
	}
	writeJSON(w, http.StatusCreated, envelope{
		"success": true,
		"message": "Comment added",
		"comment": comment,
	})
}

// DeleteComment serves DELETE /api/tasks/comments/{commentId}.
func (h *TaskHandlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	user, ok := authenticate(w, r, h.auth)
	if !ok {
		return
	}
	commentID, err := pathID(r, 3)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid comment ID")
		return
	}

	if _, err := h.tasks.DeleteComment(r.Context(), commentID, user.ID); err != nil {
		writeServiceError(w, err, "delete comment")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Comment deleted"})
}
