package websocket

import "taskboard/internal/models"

// sender delivers an encoded frame to one live connection. It reports false
// when the frame was dropped for that target.
type sender interface {
	send(connID string, frame []byte) bool
	connections() []string
}

// Broadcaster fans frames out to room members or to every connection.
// Delivery is at-most-once: a target that is gone or cannot keep up is
// skipped, never retried.
type Broadcaster struct {
	rooms *Rooms
	out   sender
}

func NewBroadcaster(rooms *Rooms, out sender) *Broadcaster {
	return &Broadcaster{rooms: rooms, out: out}
}

// Broadcast encodes payload as event and delivers it to every member of room
// except origin. It returns the number of connections it was handed to.
func (b *Broadcaster) Broadcast(event models.EventName, room string, payload interface{}, origin string) (int, error) {
	frame, err := models.Encode(event, payload)
	if err != nil {
		return 0, err
	}
	return b.BroadcastFrame(room, frame, origin), nil
}

func (b *Broadcaster) BroadcastFrame(room string, frame []byte, origin string) int {
	delivered := 0
	for _, connID := range b.rooms.Members(room) {
		if connID == origin {
			continue
		}
		if b.out.send(connID, frame) {
			delivered++
		}
	}
	return delivered
}

// Global delivers event to every connection in the process.
func (b *Broadcaster) Global(event models.EventName, payload interface{}) (int, error) {
	frame, err := models.Encode(event, payload)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, connID := range b.out.connections() {
		if b.out.send(connID, frame) {
			delivered++
		}
	}
	return delivered, nil
}
