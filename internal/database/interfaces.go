package database

import (
	"context"
	"errors"

	"taskboard/internal/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	UserExists(ctx context.Context, email, username string) (bool, error)
	CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
}

type ProjectRepository interface {
	ListProjects(ctx context.Context, userID int) ([]*models.Project, error)
	GetProject(ctx context.Context, projectID int) (*models.Project, error)
	CreateProject(ctx context.Context, req *models.CreateProjectRequest, ownerID int) (*models.Project, error)
	UpdateProject(ctx context.Context, projectID int, req *models.UpdateProjectRequest) (*models.Project, error)
	DeleteProject(ctx context.Context, projectID int) error
	HasProjectAccess(ctx context.Context, projectID, userID int) (bool, error)
	GetProjectStats(ctx context.Context, projectID int) (*models.ProjectStats, error)
}

type MembershipRepository interface {
	AddMember(ctx context.Context, projectID, userID int, role string) error
	RemoveMember(ctx context.Context, projectID, userID int) error
	IsMember(ctx context.Context, projectID, userID int) (bool, error)
	ListMembers(ctx context.Context, projectID int) ([]*models.Member, error)
}

type TaskRepository interface {
	ListTasks(ctx context.Context, projectID int) ([]*models.Task, error)
	GetTask(ctx context.Context, taskID int) (*models.Task, error)
	CreateTask(ctx context.Context, projectID, createdBy int, req *models.CreateTaskRequest) (*models.Task, error)
	UpdateTask(ctx context.Context, taskID int, req *models.UpdateTaskRequest) (*models.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID int, status models.TaskStatus) error
	DeleteTask(ctx context.Context, taskID int) error
}

type CommentRepository interface {
	ListComments(ctx context.Context, taskID int) ([]*models.Comment, error)
	GetComment(ctx context.Context, commentID int) (*models.Comment, error)
	CreateComment(ctx context.Context, taskID, userID int, content string) (*models.Comment, error)
	DeleteComment(ctx context.Context, commentID int) error
}

type Database interface {
	UserRepository
	ProjectRepository
	MembershipRepository
	TaskRepository
	CommentRepository
	Ping(ctx context.Context) error
	Close() error
}
