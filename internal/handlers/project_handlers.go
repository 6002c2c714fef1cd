package handlers

import (
	"context"
	"net/http"

	"taskboard/internal/models"
)

type ProjectManager interface {
	ListProjects(ctx context.Context, userID int) ([]*models.Project, error)
	GetProject(ctx context.Context, projectID, userID int) (*models.Project, error)
	CreateProject(ctx context.Context, req *models.CreateProjectRequest, ownerID int) (*models.Project, error)
	UpdateProject(ctx context.Context, projectID, userID int, req *models.UpdateProjectRequest) (*models.Project, error)
	DeleteProject(ctx context.Context, projectID, userID int) error
	AddMember(ctx context.Context, projectID, userID int, email string) (*models.User, error)
	RemoveMember(ctx context.Context, projectID, userID, memberID int) error
}

type ProjectHandlers struct {
	projects ProjectManager
	auth     Authenticator
}

func NewProjectHandlers(projects ProjectManager, auth Authenticator) *ProjectHandlers {
	return &ProjectHandlers{
		projects: projects,
		auth:     auth,
	}
}

func (h *ProjectHandlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	user, ok := authenticate(w, r, h.auth)
	if !ok {
		return
	}

	projects, err := h.projects.ListProjects(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err, "fetch projects")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "projects": projects})
}

func (h *ProjectHandlers) GetProject(w http.ResponseWriter, r *http.Request) {
	user, ok := authenticate(w, r, h.auth)
	if !ok {
		return
	}
	projectID, err := pathID(r, 2)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project ID")
		return
	}

	project, err := h.projects.GetProject(r.Context(), projectID, user.ID)
	if err != nil {
		writeServiceError(w, err, "fetch project")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "project": project})
}

func (h *ProjectHandlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	user, ok := authenticate(w, r, h.auth)
	if !ok {
		return
	}

	var req models.CreateProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	project, err := h.projects.CreateProject(r.Context(), &req, user.ID)
	if err != nil {
		writeServiceError(w, err, "create project")
		return
	}
	writeJSON(w, http.StatusCreated, envelope{
		"success": true,
		"message": "Project created successfully",
		"project": project,
	})
}

func (h *ProjectHandlers) UpdateProject(w http.ResponseWriter, r *http.Request) {
	user, ok := authenticate(w, r, h.auth)
	if !ok {
		return
	}
	projectID, err := pathID(r, 2)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project ID")
		return
	}

	var req models.UpdateProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	project, err := h.projects.UpdateProject(r.Context(), projectID, user.ID, &req)
	if err != nil {
		writeServiceError(w, err, "update project")
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Project updated successfully",
		"project": project,
	})
}

func (h *ProjectHandlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	user, ok := authenticate(w, r, h.auth)
	if !ok {
		return
	}
	projectID, err := pathID(r, 2)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project ID")
		return
	}

	if err := h.projects.DeleteProject(r.Context(), projectID, user.ID); err != nil {
		writeServiceError(w, err, "delete project")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Project deleted successfully"})
}

func (h *ProjectHandlers) AddMember(w http.ResponseWriter, r *http.Request) {
	user, ok := authenticate(w, r, h.auth)
	if !ok {
		return
	}
	projectID, err := pathID(r, 2)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project ID")
		return
	}

	var req models.AddMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	member, err := h.projects.AddMember(r.Context(), projectID, user.ID, req.Email)
	if err != nil {
		writeServiceError(w, err, "add member")
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Member added successfully",
		"member":  member,
	})
}

func (h *ProjectHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user, ok := authenticate(w, r, h.auth)
	if !ok {
		return
	}
	projectID, err := pathID(r, 2)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project ID")
		return
	}
	memberID, err := pathID(r, 4)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid member ID")
		return
	}

	if err := h.projects.RemoveMember(r.Context(), projectID, user.ID, memberID); err != nil {
		writeServiceError(w, err, "remove member")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Member removed successfully"})
}
