package client

import (
	"encoding/json"
	"sort"
	"sync"

	"taskboard/internal/models"
	"taskboard/pkg/logger"
)

// Presence mirrors the server's online-user set from user-status-changed
// broadcasts. Seed it from GET /api/users/online after connecting.
type Presence struct {
	mu     sync.RWMutex
	online map[int]bool
	unsub  func()
}

func TrackPresence(t Transport) *Presence {
	p := &Presence{online: make(map[int]bool)}
	p.unsub = t.On(models.EventUserStatusChanged, p.apply)
	return p
}

func (p *Presence) apply(data json.RawMessage) {
	var ev models.UserStatusChanged
	if err := json.Unmarshal(data, &ev); err != nil || ev.UserID <= 0 {
		logger.Warn("Dropping malformed %s event", models.EventUserStatusChanged)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	switch ev.Status {
	case models.UserOnline:
		p.online[ev.UserID] = true
	case models.UserOffline:
		delete(p.online, ev.UserID)
	}
}

// Seed adds ids fetched from the server snapshot.
func (p *Presence) Seed(ids []int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		p.online[id] = true
	}
}

func (p *Presence) IsOnline(userID int) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.online[userID]
}

// Online returns the online user ids in ascending order.
func (p *Presence) Online() []int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]int, 0, len(p.online))
	for id := range p.online {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (p *Presence) Stop() {
	if p.unsub != nil {
		p.unsub()
	}
}
