package services_test

import (
	"context"

	"taskboard/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockStore satisfies both ProjectStore and TaskStore.
type MockStore struct {
	mock.Mock
}

func result[T any](args mock.Arguments, i int) (T, error) {
	var zero T
	if v := args.Get(i); v != nil {
		return v.(T), args.Error(i + 1)
	}
	return zero, args.Error(i + 1)
}

func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return result[*models.User](m.Called(ctx, email), 0)
}

func (m *MockStore) ListProjects(ctx context.Context, userID int) ([]*models.Project, error) {
	return result[[]*models.Project](m.Called(ctx, userID), 0)
}

func (m *MockStore) GetProject(ctx context.Context, projectID int) (*models.Project, error) {
	return result[*models.Project](m.Called(ctx, projectID), 0)
}

func (m *MockStore) CreateProject(ctx context.Context, req *models.CreateProjectRequest, ownerID int) (*models.Project, error) {
	return result[*models.Project](m.Called(ctx, req, ownerID), 0)
}

func (m *MockStore) UpdateProject(ctx context.Context, projectID int, req *models.UpdateProjectRequest) (*models.Project, error) {
	return result[*models.Project](m.Called(ctx, projectID, req), 0)
}

func (m *MockStore) DeleteProject(ctx context.Context, projectID int) error {
	return m.Called(ctx, projectID).Error(0)
}

func (m *MockStore) HasProjectAccess(ctx context.Context, projectID, userID int) (bool, error) {
	args := m.Called(ctx, projectID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) GetProjectStats(ctx context.Context, projectID int) (*models.ProjectStats, error) {
	return result[*models.ProjectStats](m.Called(ctx, projectID), 0)
}

func (m *MockStore) AddMember(ctx context.Context, projectID, userID int, role string) error {
	return m.Called(ctx, projectID, userID, role).Error(0)
}

func (m *MockStore) RemoveMember(ctx context.Context, projectID, userID int) error {
	return m.Called(ctx, projectID, userID).Error(0)
}

func (m *MockStore) IsMember(ctx context.Context, projectID, userID int) (bool, error) {
	args := m.Called(ctx, projectID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) ListMembers(ctx context.Context, projectID int) ([]*models.Member, error) {
	return result[[]*models.Member](m.Called(ctx, projectID), 0)
}

func (m *MockStore) ListTasks(ctx context.Context, projectID int) ([]*models.Task, error) {
	return result[[]*models.Task](m.Called(ctx, projectID), 0)
}

func (m *MockStore) GetTask(ctx context.Context, taskID int) (*models.Task, error) {
	return result[*models.Task](m.Called(ctx, taskID), 0)
}

func (m *MockStore) CreateTask(ctx context.Context, projectID, createdBy int, req *models.CreateTaskRequest) (*models.Task, error) {
	return result[*models.Task](m.Called(ctx, projectID, createdBy, req), 0)
}

func (m *MockStore) UpdateTask(ctx context.Context, taskID int, req *models.UpdateTaskRequest) (*models.Task, error) {
	return result[*models.Task](m.Called(ctx, taskID, req), 0)
}

func (m *MockStore) UpdateTaskStatus(ctx context.Context, taskID int, status models.TaskStatus) error {
	return m.Called(ctx, taskID, status).Error(0)
}

func (m *MockStore) DeleteTask(ctx context.Context, taskID int) error {
	return m.Called(ctx, taskID).Error(0)
}

func (m *MockStore) ListComments(ctx context.Context, taskID int) ([]*models.Comment, error) {
	return result[[]*models.Comment](m.Called(ctx, taskID), 0)
}

func (m *MockStore) GetComment(ctx context.Context, commentID int) (*models.Comment, error) {
	return result[*models.Comment](m.Called(ctx, commentID), 0)
}

func (m *MockStore) CreateComment(ctx context.Context, taskID, userID int, content string) (*models.Comment, error) {
	return result[*models.Comment](m.Called(ctx, taskID, userID, content), 0)
}

func (m *MockStore) DeleteComment(ctx context.Context, commentID int) error {
	return m.Called(ctx, commentID).Error(0)
}
