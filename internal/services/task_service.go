package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskboard/internal/database"
	"taskboard/internal/models"
)

// TaskStore is the slice of the database the task service needs.
type TaskStore interface {
	database.TaskRepository
	database.CommentRepository
	GetProject(ctx context.Context, projectID int) (*models.Project, error)
	HasProjectAccess(ctx context.Context, projectID, userID int) (bool, error)
}

type TaskService struct {
	db TaskStore
}

func NewTaskService(db TaskStore) *TaskService {
	return &TaskService{db: db}
}

func (s *TaskService) ListTasks(ctx context.Context, projectID, userID int) ([]*models.Task, error) {
	if err := s.requireAccess(ctx, projectID, userID); err != nil {
		return nil, err
	}
	tasks, err := s.db.ListTasks(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns the task with its comments, oldest first. Callers without
// access see ErrTaskNotFound.
func (s *TaskService) GetTask(ctx context.Context, taskID, userID int) (*models.Task, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, task.ProjectID, userID); err != nil {
		if errors.Is(err, ErrForbidden) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	if task.Comments, err = s.db.ListComments(ctx, taskID); err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return task, nil
}

func (s *TaskService) CreateTask(ctx context.Context, projectID, userID int, req *models.CreateTaskRequest) (*models.Task, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, fmt.Errorf("%w: task title is required", ErrInvalidInput)
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if !req.Priority.Valid() {
		return nil, ErrInvalidPriority
	}
	if req.AssignedTo != nil && *req.AssignedTo <= 0 {
		req.AssignedTo = nil
	}
	if _, err := models.ParseDueDate(req.DueDate); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.requireAccess(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.db.CreateTask(ctx, projectID, userID, req)
}

// UpdateTask applies a partial update; fields left nil keep their value.
func (s *TaskService) UpdateTask(ctx context.Context, taskID, userID int, req *models.UpdateTaskRequest) (*models.Task, error) {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, fmt.Errorf("%w: task title cannot be empty", ErrInvalidInput)
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if req.Priority != nil && !req.Priority.Valid() {
		return nil, ErrInvalidPriority
	}
	if req.AssignedTo != nil && *req.AssignedTo <= 0 {
		req.AssignedTo = nil
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			req.DueDate = nil
		} else if _, err := models.ParseDueDate(*req.DueDate); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	if _, err := s.accessibleTask(ctx, taskID, userID); err != nil {
		return nil, err
	}

	task, err := s.db.UpdateTask(ctx, taskID, req)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	return task, err
}

// UpdateStatus moves a task to another column and returns it.
func (s *TaskService) UpdateStatus(ctx context.Context, taskID, userID int, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	task, err := s.accessibleTask(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.UpdateTaskStatus(ctx, taskID, status); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	task.Status = status
	return task, nil
}

// DeleteTask is allowed for the project owner and the task's creator.
func (s *TaskService) DeleteTask(ctx context.Context, taskID, userID int) (*models.Task, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task.CreatedBy != userID {
		project, err := s.db.GetProject(ctx, task.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to load project: %w", err)
		}
		if project.OwnerID != userID {
			return nil, fmt.Errorf("%w: only project owner or task creator can delete task", ErrForbidden)
		}
	}

	if err := s.db.DeleteTask(ctx, taskID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (s *TaskService) AddComment(ctx context.Context, taskID, userID int, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: comment content is required", ErrInvalidInput)
	}
	if _, err := s.accessibleTask(ctx, taskID, userID); err != nil {
		return nil, err
	}
	return s.db.CreateComment(ctx, taskID, userID, content)
}

// DeleteComment is allowed for the comment's author only.
func (s *TaskService) DeleteComment(ctx context.Context, commentID, userID int) (*models.Comment, error) {
	comment, err := s.db.GetComment(ctx, commentID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		return nil, fmt.Errorf("%w: you can only delete your own comments", ErrForbidden)
	}

	if err := s.db.DeleteComment(ctx, commentID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return comment, nil
}

func (s *TaskService) loadTask(ctx context.Context, taskID int) (*models.Task, error) {
	task, err := s.db.GetTask(ctx, taskID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return task, nil
}

func (s *TaskService) accessibleTask(ctx context.Context, taskID, userID int) (*models.Task, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, task.ProjectID, userID); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) requireAccess(ctx context.Context, projectID, userID int) error {
	ok, err := s.db.HasProjectAccess(ctx, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to check project access: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: access denied to this project", ErrForbidden)
	}
	return nil
}
