package handlers

import (
	"net/http"
	"net/url"

	ws "taskboard/internal/websocket"
	"taskboard/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	auth     Authenticator
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

func NewWebSocketHandlers(auth Authenticator, hub *ws.Hub, allowedOrigins []string) *WebSocketHandlers {
	return &WebSocketHandlers{
		auth: auth,
		hub:  hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

// HandleWebSocket authenticates the upgrade with the token query parameter
// (or a Bearer header) and hands the connection to the hub.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Authenticate(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	client, ok := h.hub.Attach(conn, user)
	if !ok {
		logger.Warn("Hub stopped, rejecting connection for user %d", user.ID)
		return
	}
	logger.Info("User %d connected: %s", user.ID, client.ID())
}

// originChecker allows requests without an Origin header (non-browser
// clients), any origin when "*" is configured, and otherwise exact matches.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set["*"] {
			return true
		}
		if set[origin] {
			return true
		}
		// same host as the server
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}
