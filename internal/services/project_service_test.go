package services_test

import (
	"context"
	"testing"

	"taskboard/internal/database"
	"taskboard/internal/models"
	"taskboard/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetProject_WithMembersAndStats(t *testing.T) {
	store := new(MockStore)
	members := []*models.Member{{ID: 1, Role: models.RoleOwner}, {ID: 2, Role: models.RoleMember}}
	stats := &models.ProjectStats{TotalTasks: 3, TodoTasks: 2, CompletedTasks: 1}

	store.On("HasProjectAccess", mock.Anything, 42, 2).Return(true, nil)
	store.On("GetProject", mock.Anything, 42).Return(&models.Project{ID: 42, OwnerID: 1}, nil)
	store.On("ListMembers", mock.Anything, 42).Return(members, nil)
	store.On("GetProjectStats", mock.Anything, 42).Return(stats, nil)

	project, err := services.NewProjectService(store).GetProject(context.Background(), 42, 2)
	require.NoError(t, err)
	assert.Equal(t, members, project.Members)
	assert.Equal(t, 2, project.MemberCount)
	assert.Equal(t, 3, project.TaskCount)
}

func TestGetProject_NoAccessLooksMissing(t *testing.T) {
	store := new(MockStore)
	store.On("HasProjectAccess", mock.Anything, 42, 9).Return(false, nil)

	_, err := services.NewProjectService(store).GetProject(context.Background(), 42, 9)
	assert.ErrorIs(t, err, services.ErrProjectNotFound)
}

func TestCreateProject_RequiresName(t *testing.T) {
	store := new(MockStore)
	svc := services.NewProjectService(store)

	_, err := svc.CreateProject(context.Background(), &models.CreateProjectRequest{Name: " "}, 1)
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	req := &models.CreateProjectRequest{Name: "Launch"}
	store.On("CreateProject", mock.Anything, req, 1).Return(&models.Project{ID: 3, Name: "Launch", OwnerID: 1}, nil)
	project, err := svc.CreateProject(context.Background(), req, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, project.ID)
}

func TestUpdateAndDeleteProject_OwnerOnly(t *testing.T) {
	store := new(MockStore)
	store.On("GetProject", mock.Anything, 42).Return(&models.Project{ID: 42, OwnerID: 1}, nil)
	svc := services.NewProjectService(store)

	name := "Renamed"
	_, err := svc.UpdateProject(context.Background(), 42, 2, &models.UpdateProjectRequest{Name: &name})
	assert.ErrorIs(t, err, services.ErrForbidden)

	err = svc.DeleteProject(context.Background(), 42, 2)
	assert.ErrorIs(t, err, services.ErrForbidden)

	store.On("DeleteProject", mock.Anything, 42).Return(nil)
	require.NoError(t, svc.DeleteProject(context.Background(), 42, 1))
}

func TestAddMember(t *testing.T) {
	newStore := func() *MockStore {
		store := new(MockStore)
		store.On("GetProject", mock.Anything, 42).Return(&models.Project{ID: 42, OwnerID: 1}, nil)
		return store
	}

	t.Run("owner adds a user", func(t *testing.T) {
		store := newStore()
		store.On("GetUserByEmail", mock.Anything, "bob@example.com").
			Return(&models.User{ID: 2, Email: "bob@example.com", PasswordHash: "secret"}, nil)
		store.On("IsMember", mock.Anything, 42, 2).Return(false, nil)
		store.On("AddMember", mock.Anything, 42, 2, models.RoleMember).Return(nil)

		user, err := services.NewProjectService(store).AddMember(context.Background(), 42, 1, "bob@example.com")
		require.NoError(t, err)
		assert.Equal(t, 2, user.ID)
		assert.Empty(t, user.PasswordHash)
	})

	t.Run("unknown email", func(t *testing.T) {
		store := newStore()
		store.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, database.ErrNotFound)

		_, err := services.NewProjectService(store).AddMember(context.Background(), 42, 1, "ghost@example.com")
		assert.ErrorIs(t, err, services.ErrUserNotFound)
	})

	t.Run("already a member", func(t *testing.T) {
		store := newStore()
		store.On("GetUserByEmail", mock.Anything, "bob@example.com").Return(&models.User{ID: 2}, nil)
		store.On("IsMember", mock.Anything, 42, 2).Return(true, nil)

		_, err := services.NewProjectService(store).AddMember(context.Background(), 42, 1, "bob@example.com")
		assert.ErrorIs(t, err, services.ErrAlreadyMember)
	})

	t.Run("plain member may not add", func(t *testing.T) {
		store := newStore()
		store.On("ListMembers", mock.Anything, 42).Return([]*models.Member{{ID: 3, Role: models.RoleMember}}, nil)

		_, err := services.NewProjectService(store).AddMember(context.Background(), 42, 3, "bob@example.com")
		assert.ErrorIs(t, err, services.ErrForbidden)
	})

	t.Run("admin may add", func(t *testing.T) {
		store := newStore()
		store.On("ListMembers", mock.Anything, 42).Return([]*models.Member{{ID: 3, Role: models.RoleAdmin}}, nil)
		store.On("GetUserByEmail", mock.Anything, "bob@example.com").Return(&models.User{ID: 2}, nil)
		store.On("IsMember", mock.Anything, 42, 2).Return(false, nil)
		store.On("AddMember", mock.Anything, 42, 2, models.RoleMember).Return(nil)

		_, err := services.NewProjectService(store).AddMember(context.Background(), 42, 3, "bob@example.com")
		assert.NoError(t, err)
	})
}

func TestRemoveMember_KeepsOwner(t *testing.T) {
	store := new(MockStore)
	store.On("GetProject", mock.Anything, 42).Return(&models.Project{ID: 42, OwnerID: 1}, nil)
	store.On("RemoveMember", mock.Anything, 42, 2).Return(nil)
	svc := services.NewProjectService(store)

	err := svc.RemoveMember(context.Background(), 42, 1, 1)
	assert.ErrorIs(t, err, services.ErrCannotRemoveOwner)

	require.NoError(t, svc.RemoveMember(context.Background(), 42, 1, 2))
	store.AssertNumberOfCalls(t, "RemoveMember", 1)
}

func TestCanAccessProject(t *testing.T) {
	store := new(MockStore)
	store.On("HasProjectAccess", mock.Anything, 42, 1).Return(true, nil)
	store.On("HasProjectAccess", mock.Anything, 42, 2).Return(false, nil)
	svc := services.NewProjectService(store)

	ok, err := svc.CanAccessProject(context.Background(), 42, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CanAccessProject(context.Background(), 42, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}
