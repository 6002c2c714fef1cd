package websocket

import (
	"fmt"
	"sort"
)

// RoomName is the broadcast group for a project.
func RoomName(projectID int) string {
	return fmt.Sprintf("project-%d", projectID)
}

// Rooms groups connection ids by room. Rooms exist only while they have
// members. The caller is trusted: no authorization happens here.
type Rooms struct {
	members map[string]map[string]struct{}
	joined  map[string]map[string]struct{}
}

func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]struct{}),
		joined:  make(map[string]map[string]struct{}),
	}
}

// Join adds connID to room and reports whether it was newly added.
func (r *Rooms) Join(connID, room string) bool {
	set, ok := r.members[room]
	if !ok {
		set = make(map[string]struct{})
		r.members[room] = set
	}
	if _, already := set[connID]; already {
		return false
	}
	set[connID] = struct{}{}

	mine, ok := r.joined[connID]
	if !ok {
		mine = make(map[string]struct{})
		r.joined[connID] = mine
	}
	mine[room] = struct{}{}
	return true
}

// Leave removes connID from room. Leaving a room the connection is not in
// is a no-op.
func (r *Rooms) Leave(connID, room string) bool {
	set, ok := r.members[room]
	if !ok {
		return false
	}
	if _, in := set[connID]; !in {
		return false
	}

	delete(set, connID)
	if len(set) == 0 {
		delete(r.members, room)
	}

	if mine := r.joined[connID]; mine != nil {
		delete(mine, room)
		if len(mine) == 0 {
			delete(r.joined, connID)
		}
	}
	return true
}

// LeaveAll removes connID from every room and returns the rooms it left.
func (r *Rooms) LeaveAll(connID string) []string {
	mine := r.joined[connID]
	left := make([]string, 0, len(mine))
	for room := range mine {
		left = append(left, room)
	}
	for _, room := range left {
		r.Leave(connID, room)
	}
	sort.Strings(left)
	return left
}

func (r *Rooms) Has(room, connID string) bool {
	_, ok := r.members[room][connID]
	return ok
}

// Members returns the connection ids in room. The order is unspecified.
func (r *Rooms) Members(room string) []string {
	set := r.members[room]
	out := make([]string, 0, len(set))
	for connID := range set {
		out = append(out, connID)
	}
	return out
}

func (r *Rooms) RoomsOf(connID string) []string {
	mine := r.joined[connID]
	out := make([]string, 0, len(mine))
	for room := range mine {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}

func (r *Rooms) Len() int {
	return len(r.members)
}
