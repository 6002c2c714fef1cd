package models

import (
	"fmt"
	"time"
)

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusReview     TaskStatus = "review"
	StatusCompleted  TaskStatus = "completed"
)

// Statuses lists board columns in display order.
var Statuses = []TaskStatus{StatusTodo, StatusInProgress, StatusReview, StatusCompleted}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusCompleted:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Task struct {
	ID              int          `json:"id"`
	Title           string       `json:"title"`
	Description     *string      `json:"description"`
	Status          TaskStatus   `json:"status"`
	Priority        TaskPriority `json:"priority"`
	AssignedTo      *int         `json:"assigned_to"`
	DueDate         *time.Time   `json:"due_date"`
	ProjectID       int          `json:"project_id"`
	CreatedBy       int          `json:"created_by"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	CreatedByName   string       `json:"created_by_name,omitempty"`
	AssignedToName  *string      `json:"assigned_to_name,omitempty"`
	AssignedToEmail *string      `json:"assigned_to_email,omitempty"`
	ProjectName     string       `json:"project_name,omitempty"`
	Comments        []*Comment   `json:"comments,omitempty"`
}

type Comment struct {
	ID        int       `json:"id"`
	TaskID    int       `json:"task_id"`
	UserID    int       `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Username  string    `json:"username,omitempty"`
	FullName  *string   `json:"full_name,omitempty"`
	Email     string    `json:"email,omitempty"`
}

// CreateTaskRequest mirrors the board's create form. Empty AssignedTo and
// DueDate mean "unset".
type CreateTaskRequest struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Priority    TaskPriority `json:"priority"`
	AssignedTo  *int         `json:"assignedTo"`
	DueDate     string       `json:"dueDate"`
}

// UpdateTaskRequest is a partial update; nil fields keep their stored value.
type UpdateTaskRequest struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Status      *TaskStatus   `json:"status,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty"`
	AssignedTo  *int          `json:"assignedTo,omitempty"`
	DueDate     *string       `json:"dueDate,omitempty"`
}

type UpdateStatusRequest struct {
	Status TaskStatus `json:"status"`
}

type AddCommentRequest struct {
	Content string `json:"content"`
}

// ParseDueDate accepts a calendar date or an RFC 3339 timestamp. An empty
// string means no due date.
func ParseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid due date %q", s)
}
