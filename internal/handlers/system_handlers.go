package handlers

import (
	"context"
	"net/http"
	"time"

	ws "taskboard/internal/websocket"
	"taskboard/pkg/logger"
)

const healthTimeout = 3 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type SystemHandlers struct {
	db   Pinger
	hub  *ws.Hub
	auth Authenticator
}

func NewSystemHandlers(db Pinger, hub *ws.Hub, auth Authenticator) *SystemHandlers {
	return &SystemHandlers{db: db, hub: hub, auth: auth}
}

// OnlineUsers serves the presence registry snapshot.
func (h *SystemHandlers) OnlineUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := authenticate(w, r, h.auth); !ok {
		return
	}

	users, err := h.hub.OnlineUsers(r.Context())
	if err != nil {
		writeServiceError(w, err, "fetch online users")
		return
	}
	if users == nil {
		users = []int{}
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "users": users, "count": len(users)})
}

func (h *SystemHandlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, envelope{
			"success":  false,
			"status":   "unavailable",
			"database": "unreachable",
		})
		return
	}

	stats, err := h.hub.Stats(ctx)
	if err != nil {
		writeServiceError(w, err, "read realtime stats")
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"success":  true,
		"status":   "ok",
		"database": "connected",
		"realtime": stats,
	})
}
