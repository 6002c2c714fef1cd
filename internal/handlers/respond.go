package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"taskboard/internal/auth"
	"taskboard/internal/models"
	"taskboard/internal/services"
	"taskboard/pkg/logger"
)

type envelope map[string]interface{}

// Authenticator resolves the calling user from a request.
type Authenticator interface {
	Authenticate(r *http.Request) (*models.User, error)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{"success": false, "message": message})
}

// writeServiceError maps domain errors onto HTTP status codes. Anything
// unrecognised is logged and reported as "Failed to <action>".
func writeServiceError(w http.ResponseWriter, err error, action string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrCommentNotFound),
		errors.Is(err, services.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrAlreadyMember),
		errors.Is(err, services.ErrCannotRemoveOwner),
		errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, auth.ErrUserExists):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		logger.Error("Failed to %s: %v", action, err)
		writeError(w, status, "Failed to "+action)
		return
	}
	writeError(w, status, err.Error())
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// authenticate writes a 401 and returns false when the caller has no valid token.
func authenticate(w http.ResponseWriter, r *http.Request, a Authenticator) (*models.User, bool) {
	user, err := a.Authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	return user, true
}

// pathSegments splits "/api/tasks/5/status" into ["api" "tasks" "5" "status"].
func pathSegments(r *http.Request) []string {
	return strings.Split(strings.Trim(r.URL.Path, "/"), "/")
}

func pathID(r *http.Request, index int) (int, error) {
	parts := pathSegments(r)
	if index >= len(parts) {
		return 0, fmt.Errorf("invalid path")
	}
	id, err := strconv.Atoi(parts[index])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", parts[index])
	}
	return id, nil
}
