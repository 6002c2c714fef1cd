package handlers

import "net/http"

type Router struct {
	Auth           *AuthHandlers
	Projects       *ProjectHandlers
	Tasks          *TaskHandlers
	WebSocket      *WebSocketHandlers
	System         *SystemHandlers
	AllowedOrigins []string
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()

	// Auth routes
	mux.HandleFunc("/api/auth/register", method(http.MethodPost, rt.Auth.Register))
	mux.HandleFunc("/api/auth/login", method(http.MethodPost, rt.Auth.Login))
	mux.HandleFunc("/api/auth/me", method(http.MethodGet, rt.Auth.Me))
	mux.HandleFunc("/api/auth/logout", method(http.MethodPost, rt.Auth.Logout))

	// Project routes
	mux.HandleFunc("/api/projects", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			rt.Projects.ListProjects(w, r)
		case http.MethodPost:
			rt.Projects.CreateProject(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
	mux.HandleFunc("/api/projects/", rt.projectRoutes)

	// Task routes
	mux.HandleFunc("/api/tasks/", rt.taskRoutes)

	// System routes
	mux.HandleFunc("/api/users/online", method(http.MethodGet, rt.System.OnlineUsers))
	mux.HandleFunc("/api/health", method(http.MethodGet, rt.System.Health))

	// WebSocket route
	mux.HandleFunc("/ws", rt.WebSocket.HandleWebSocket)

	return corsMiddleware(rt.AllowedOrigins, mux)
}

// projectRoutes dispatches /api/projects/{id}[/members[/{userId}]].
func (rt *Router) projectRoutes(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r)

	switch {
	case len(parts) == 3:
		switch r.Method {
		case http.MethodGet:
			rt.Projects.GetProject(w, r)
		case http.MethodPut:
			rt.Projects.UpdateProject(w, r)
		case http.MethodDelete:
			rt.Projects.DeleteProject(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return

	// /api/projects/{id}/members
	case len(parts) == 4 && parts[3] == "members" && r.Method == http.MethodPost:
		rt.Projects.AddMember(w, r)
		return

	// /api/projects/{id}/members/{userId}
	case len(parts) == 5 && parts[3] == "members" && r.Method == http.MethodDelete:
		rt.Projects.RemoveMember(w, r)
		return
	}

	writeError(w, http.StatusNotFound, "endpoint not found")
}

// taskRoutes dispatches everything under /api/tasks/.
func (rt *Router) taskRoutes(w http.ResponseWriter, r *http.Request) {
	parts := pathSegments(r)

	switch {
	// /api/tasks/project/{projectId}
	case len(parts) == 4 && parts[2] == "project":
		switch r.Method {
		case http.MethodGet:
			rt.Tasks.ListTasks(w, r)
		case http.MethodPost:
			rt.Tasks.CreateTask(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return

	// /api/tasks/comments/{commentId}
	case len(parts) == 4 && parts[2] == "comments" && r.Method == http.MethodDelete:
		rt.Tasks.DeleteComment(w, r)
		return

	// /api/tasks/{id}
	case len(parts) == 3:
		switch r.Method {
		case http.MethodGet:
			rt.Tasks.GetTask(w, r)
		case http.MethodPut:
			rt.Tasks.UpdateTask(w, r)
		case http.MethodDelete:
			rt.Tasks.DeleteTask(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return

	// /api/tasks/{id}/status
	case len(parts) == 4 && parts[3] == "status" && r.Method == http.MethodPatch:
		rt.Tasks.UpdateStatus(w, r)
		return

	// /api/tasks/{id}/comments
	case len(parts) == 4 && parts[3] == "comments" && r.Method == http.MethodPost:
		rt.Tasks.AddComment(w, r)
		return
	}

	writeError(w, http.StatusNotFound, "endpoint not found")
}

func method(m string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != m {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		next(w, r)
	}
}

func corsMiddleware(allowed []string, next http.Handler) http.Handler {
	allowedOrigin := originChecker(allowed)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && allowedOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
