package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskboard/internal/database"
	"taskboard/internal/models"
)

// ProjectStore is the slice of the database the project service needs.
type ProjectStore interface {
	database.ProjectRepository
	database.MembershipRepository
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type ProjectService struct {
	db ProjectStore
}

func NewProjectService(db ProjectStore) *ProjectService {
	return &ProjectService{db: db}
}

func (s *ProjectService) ListProjects(ctx context.Context, userID int) ([]*models.Project, error) {
	projects, err := s.db.ListProjects(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	return projects, nil
}

// GetProject returns the project with its members and task stats. Callers
// without access see ErrProjectNotFound.
func (s *ProjectService) GetProject(ctx context.Context, projectID, userID int) (*models.Project, error) {
	ok, err := s.db.HasProjectAccess(ctx, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check project access: %w", err)
	}
	if !ok {
		return nil, ErrProjectNotFound
	}

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if project.Members, err = s.db.ListMembers(ctx, projectID); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	if project.Stats, err = s.db.GetProjectStats(ctx, projectID); err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	project.MemberCount = len(project.Members)
	project.TaskCount = project.Stats.TotalTasks
	return project, nil
}

func (s *ProjectService) CreateProject(ctx context.Context, req *models.CreateProjectRequest, ownerID int) (*models.Project, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalidInput)
	}
	return s.db.CreateProject(ctx, req, ownerID)
}

func (s *ProjectService) UpdateProject(ctx context.Context, projectID, userID int, req *models.UpdateProjectRequest) (*models.Project, error) {
	if err := s.requireOwner(ctx, projectID, userID); err != nil {
		return nil, err
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, fmt.Errorf("%w: project name cannot be empty", ErrInvalidInput)
	}

	project, err := s.db.UpdateProject(ctx, projectID, req)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrProjectNotFound
	}
	return project, err
}

func (s *ProjectService) DeleteProject(ctx context.Context, projectID, userID int) error {
	if err := s.requireOwner(ctx, projectID, userID); err != nil {
		return err
	}
	if err := s.db.DeleteProject(ctx, projectID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrProjectNotFound
		}
		return err
	}
	return nil
}

// AddMember adds the user registered under email as a plain member.
func (s *ProjectService) AddMember(ctx context.Context, projectID, userID int, email string) (*models.User, error) {
	if err := s.requireManager(ctx, projectID, userID); err != nil {
		return nil, err
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	user, err := s.db.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	member, err := s.db.IsMember(ctx, projectID, user.ID)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, ErrAlreadyMember
	}

	if err := s.db.AddMember(ctx, projectID, user.ID, models.RoleMember); err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *ProjectService) RemoveMember(ctx context.Context, projectID, userID, memberID int) error {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := s.canManage(ctx, project, userID); err != nil {
		return err
	}
	if memberID == project.OwnerID {
		return ErrCannotRemoveOwner
	}
	return s.db.RemoveMember(ctx, projectID, memberID)
}

// CanAccessProject reports whether userID owns or belongs to projectID. It
// gates WebSocket room joins.
func (s *ProjectService) CanAccessProject(ctx context.Context, projectID, userID int) (bool, error) {
	return s.db.HasProjectAccess(ctx, projectID, userID)
}

func (s *ProjectService) loadProject(ctx context.Context, projectID int) (*models.Project, error) {
	project, err := s.db.GetProject(ctx, projectID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return project, nil
}

func (s *ProjectService) requireOwner(ctx context.Context, projectID, userID int) error {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project.OwnerID != userID {
		return fmt.Errorf("%w: only the project owner can do this", ErrForbidden)
	}
	return nil
}

func (s *ProjectService) requireManager(ctx context.Context, projectID, userID int) error {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return err
	}
	return s.canManage(ctx, project, userID)
}

// canManage allows the owner and members holding the admin role.
func (s *ProjectService) canManage(ctx context.Context, project *models.Project, userID int) error {
	if project.OwnerID == userID {
		return nil
	}

	members, err := s.db.ListMembers(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}
	for _, m := range members {
		if m.ID == userID && m.Role == models.RoleAdmin {
			return nil
		}
	}
	return fmt.Errorf("%w: only the project owner or an admin can manage members", ErrForbidden)
}
