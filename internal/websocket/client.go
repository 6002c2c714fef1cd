package websocket

import (
	"context"
	"encoding/json"
	"time"

	"taskboard/internal/models"
	"taskboard/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const accessCheckTimeout = 5 * time.Second

// Client is one live WebSocket session.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string

	// user is the identity proven at upgrade time; nil only in tests.
	user *models.User

	// userID is the identity announced via user-connected. Hub-owned.
	userID int
}

func NewClient(hub *Hub, conn *websocket.Conn, user *models.User) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, hub.cfg.SendBuffer),
		id:   uuid.NewString(),
		user: user,
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) authUserID() int {
	if c.user == nil {
		return 0
	}
	return c.user.ID
}

// Attach registers a freshly upgraded connection and starts its pumps.
func (h *Hub) Attach(conn *websocket.Conn, user *models.User) (*Client, bool) {
	client := NewClient(h, conn, user)
	if !h.Register(client) {
		conn.Close()
		return nil, false
	}
	go client.WritePump()
	go client.ReadPump()
	return client, true
}

// ReadPump decodes frames and hands them to the hub in arrival order.
// Malformed frames are logged and skipped.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	cfg := c.hub.cfg
	c.conn.SetReadLimit(cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error on %s: %v", c.id, err)
			}
			break
		}

		var env models.Envelope
		if err := json.Unmarshal(message, &env); err != nil || env.Event == "" {
			logger.Warn("Dropping malformed frame from %s: %v", c.id, err)
			continue
		}

		if env.Event == models.EventJoinProject && !c.mayJoin(env.Data) {
			continue
		}

		c.hub.submit(c, env)
	}
}

// mayJoin checks project membership off the hub goroutine so a slow store
// never stalls other connections.
func (c *Client) mayJoin(data json.RawMessage) bool {
	if c.hub.access == nil || c.user == nil {
		return true
	}
	projectID, err := decodeProjectID(data)
	if err != nil {
		// the hub logs and drops it
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), accessCheckTimeout)
	defer cancel()

	ok, err := c.hub.access.CanAccessProject(ctx, projectID, c.user.ID)
	if err != nil {
		logger.Error("Error checking access to project %d for user %d: %v", projectID, c.user.ID, err)
		return false
	}
	if !ok {
		logger.Warn("User %d may not join project %d", c.user.ID, projectID)
	}
	return ok
}

func (c *Client) WritePump() {
	cfg := c.hub.cfg
	ticker := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Error("Write error on %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
