package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"taskboard/internal/config"
	"taskboard/internal/models"
	"taskboard/pkg/logger"
)

var (
	ErrHubStopped       = errors.New("hub stopped")
	errIdentityMismatch = errors.New("announced user does not match authenticated user")
	errNotInRoom        = errors.New("origin is not a member of the project room")
)

// ProjectAccess answers whether a user may join a project's room.
type ProjectAccess interface {
	CanAccessProject(ctx context.Context, projectID, userID int) (bool, error)
}

type handlerFunc func(c *Client, data json.RawMessage) error

// inboundEvent is either a socket event or a closure queued by call. Both
// share one FIFO so callers observe every event submitted before them.
type inboundEvent struct {
	client *Client
	env    models.Envelope
	fn     func()
}

// Hub owns every connection, the presence registry and the room manager.
// All of that state is read and written only from Run, so no handler needs
// a lock; other goroutines reach it through channels.
type Hub struct {
	cfg    config.RealtimeConfig
	access ProjectAccess

	clients     map[string]*Client
	presence    *Presence
	rooms       *Rooms
	broadcaster *Broadcaster
	handlers    map[models.EventName]handlerFunc
	evicted     []*Client

	register chan *Client
	inbound  chan inboundEvent
	done     chan struct{}
}

func NewHub(cfg config.RealtimeConfig, access ProjectAccess) *Hub {
	h := &Hub{
		cfg:      cfg,
		access:   access,
		clients:  make(map[string]*Client),
		presence: NewPresence(),
		rooms:    NewRooms(),
		register: make(chan *Client),
		inbound:  make(chan inboundEvent, cfg.InboundBuffer),
		done:     make(chan struct{}),
	}
	h.broadcaster = NewBroadcaster(h.rooms, h)

	h.handlers = map[models.EventName]handlerFunc{
		models.EventUserConnected: h.onUserConnected,
		models.EventJoinProject:   h.onJoinProject,
		models.EventLeaveProject:  h.onLeaveProject,
	}
	for _, event := range models.MutationEvents {
		h.handlers[event] = h.relay(event)
	}
	return h
}

// Run processes connection events one at a time until ctx is cancelled.
// On return every connection has been closed.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, client := range h.clients {
				close(client.send)
			}
			h.clients = make(map[string]*Client)
			logger.Info("Hub stopped")
			return

		case client := <-h.register:
			h.clients[client.id] = client
			logger.Debug("Connection %s registered (user %d)", client.id, client.authUserID())

		case ev := <-h.inbound:
			h.dispatch(ev)
		}

		h.flushEvicted()
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister queues removal behind any events c already submitted, so its
// last mutations are still relayed.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.inbound <- inboundEvent{fn: func() { h.remove(c) }}:
	case <-h.done:
	}
}

func (h *Hub) submit(c *Client, env models.Envelope) {
	select {
	case h.inbound <- inboundEvent{client: c, env: env}:
	case <-h.done:
	}
}

// OnlineUsers returns a snapshot of the presence registry.
func (h *Hub) OnlineUsers(ctx context.Context) ([]int, error) {
	var users []int
	if err := h.call(ctx, func() { users = h.presence.Online() }); err != nil {
		return nil, err
	}
	return users, nil
}

type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
	OnlineUsers int `json:"online_users"`
}

func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := h.call(ctx, func() {
		s = Stats{Connections: len(h.clients), Rooms: h.rooms.Len(), OnlineUsers: h.presence.Len()}
	})
	return s, err
}

// call runs fn on the hub goroutine and waits for it.
func (h *Hub) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		fn()
		close(finished)
	}

	select {
	case h.inbound <- inboundEvent{fn: wrapped}:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) dispatch(ev inboundEvent) {
	if ev.fn != nil {
		ev.fn()
		return
	}

	c := ev.client
	if _, live := h.clients[c.id]; !live {
		return
	}

	handler, ok := h.handlers[ev.env.Event]
	if !ok {
		logger.Warn("Dropping unknown event %q from %s", ev.env.Event, c.id)
		return
	}
	if err := handler(c, ev.env.Data); err != nil {
		logger.Warn("Dropping %s from %s: %v", ev.env.Event, c.id, err)
	}
}

func (h *Hub) onUserConnected(c *Client, data json.RawMessage) error {
	var userID int
	if err := json.Unmarshal(data, &userID); err != nil || userID <= 0 {
		return models.ErrInvalidPayload
	}
	if c.user != nil && c.user.ID != userID {
		return errIdentityMismatch
	}

	if replaced := h.presence.Connect(userID, c.id); replaced != "" {
		if old, ok := h.clients[replaced]; ok {
			old.userID = 0
		}
		logger.Info("User %d moved presence from %s to %s", userID, replaced, c.id)
	}
	c.userID = userID
	logger.Info("User %d connected with %s", userID, c.id)

	_, err := h.broadcaster.Global(models.EventUserStatusChanged, models.UserStatusChanged{
		UserID: userID,
		Status: models.UserOnline,
	})
	return err
}

func (h *Hub) onJoinProject(c *Client, data json.RawMessage) error {
	projectID, err := decodeProjectID(data)
	if err != nil {
		return err
	}

	room := RoomName(projectID)
	h.rooms.Join(c.id, room)
	logger.Debug("%s joined %s", c.id, room)

	_, err = h.broadcaster.Broadcast(models.EventUserJoinedProject, room, models.UserJoinedProject{
		UserID:    c.userID,
		ProjectID: projectID,
	}, c.id)
	return err
}

func (h *Hub) onLeaveProject(c *Client, data json.RawMessage) error {
	projectID, err := decodeProjectID(data)
	if err != nil {
		return err
	}
	if h.rooms.Leave(c.id, RoomName(projectID)) {
		logger.Debug("%s left %s", c.id, RoomName(projectID))
	}
	return nil
}

// relay validates a mutation payload and echoes it to the rest of the room.
func (h *Hub) relay(event models.EventName) handlerFunc {
	return func(c *Client, data json.RawMessage) error {
		payload := models.NewMutationPayload(event)
		if err := json.Unmarshal(data, payload); err != nil {
			return fmt.Errorf("%w: %v", models.ErrInvalidPayload, err)
		}
		if err := payload.Validate(); err != nil {
			return err
		}

		room := RoomName(payload.Project())
		if !h.rooms.Has(room, c.id) {
			return errNotInRoom
		}

		n, err := h.broadcaster.Broadcast(event, room, payload, c.id)
		if err != nil {
			return err
		}
		logger.Debug("%s from %s relayed to %d connection(s) in %s", event, c.id, n, room)
		return nil
	}
}

func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)

	left := h.rooms.LeaveAll(c.id)
	logger.Debug("Connection %s closed, left %d room(s)", c.id, len(left))

	if userID, ok := h.presence.Disconnect(c.id); ok {
		logger.Info("User %d disconnected", userID)
		if _, err := h.broadcaster.Global(models.EventUserStatusChanged, models.UserStatusChanged{
			UserID: userID,
			Status: models.UserOffline,
		}); err != nil {
			logger.Error("Error broadcasting offline status: %v", err)
		}
	}
}

func (h *Hub) flushEvicted() {
	for len(h.evicted) > 0 {
		c := h.evicted[0]
		h.evicted = h.evicted[1:]
		if _, ok := h.clients[c.id]; ok {
			logger.Warn("Evicting slow connection %s", c.id)
			h.remove(c)
		}
	}
}

// send implements sender. A full buffer marks the target for eviction once
// the current event has been handled.
func (h *Hub) send(connID string, frame []byte) bool {
	c, ok := h.clients[connID]
	if !ok {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		h.evicted = append(h.evicted, c)
		return false
	}
}

func (h *Hub) connections() []string {
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

func decodeProjectID(data json.RawMessage) (int, error) {
	var projectID int
	if err := json.Unmarshal(data, &projectID); err != nil || projectID <= 0 {
		return 0, models.ErrInvalidPayload
	}
	return projectID, nil
}
