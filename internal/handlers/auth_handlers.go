package handlers

import (
	"net/http"

	"taskboard/internal/auth"
	"taskboard/internal/models"
	"taskboard/pkg/logger"
)

type AuthHandlers struct {
	authService *auth.Service
}

func NewAuthHandlers(authService *auth.Service) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	response, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "register user")
		return
	}

	logger.Info("User %d registered", response.User.ID)
	response.Message = "User registered successfully"
	writeJSON(w, http.StatusCreated, response)
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	response, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "log in")
		return
	}

	response.Message = "Login successful"
	writeJSON(w, http.StatusOK, response)
}

func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := authenticate(w, r, h.authService)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "user": user})
}

// Logout is stateless; clients drop their token.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Logout successful"})
}
