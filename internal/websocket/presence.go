package websocket

import "sort"

// Presence maps logical users to the connection that last announced them.
// It is owned by the Hub and only touched from Hub.Run.
type Presence struct {
	byUser map[int]string
	byConn map[string]int
}

func NewPresence() *Presence {
	return &Presence{
		byUser: make(map[int]string),
		byConn: make(map[string]int),
	}
}

// Connect registers userID on connID, overwriting any earlier connection of
// the same user. It returns the connection id that was displaced, if any.
func (p *Presence) Connect(userID int, connID string) (replaced string) {
	if prev, ok := p.byConn[connID]; ok && prev != userID {
		// connection re-announced as someone else
		if p.byUser[prev] == connID {
			delete(p.byUser, prev)
		}
	}

	if old, ok := p.byUser[userID]; ok && old != connID {
		delete(p.byConn, old)
		replaced = old
	}

	p.byUser[userID] = connID
	p.byConn[connID] = userID
	return replaced
}

// Disconnect drops the entry owned by connID. The second result is false
// when the connection never announced a user or has since been displaced.
func (p *Presence) Disconnect(connID string) (int, bool) {
	userID, ok := p.byConn[connID]
	if !ok {
		return 0, false
	}
	delete(p.byConn, connID)

	if p.byUser[userID] != connID {
		return userID, false
	}
	delete(p.byUser, userID)
	return userID, true
}

func (p *Presence) ConnectionFor(userID int) (string, bool) {
	connID, ok := p.byUser[userID]
	return connID, ok
}

func (p *Presence) IsOnline(userID int) bool {
	_, ok := p.byUser[userID]
	return ok
}

// Online returns the ids of all users with a live mapping, ascending.
func (p *Presence) Online() []int {
	users := make([]int, 0, len(p.byUser))
	for userID := range p.byUser {
		users = append(users, userID)
	}
	sort.Ints(users)
	return users
}

func (p *Presence) Len() int {
	return len(p.byUser)
}
