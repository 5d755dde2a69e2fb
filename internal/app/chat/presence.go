package chat

import (
	"sort"
	"sync"
)

// PresenceRegistry is the process-wide multiset mapping user id to the set of
// that user's live connection ids. A user is online iff the set is non-empty.
// Multiple connections per user coalesce to a single presence state: the
// transition to online fires only on the first connection, the transition to
// offline only when the last one closes.
//
// All mutations happen on the Hub's run loop; the internal lock exists so
// snapshot reads (user listings, presence broadcasts) stay safe from other
// goroutines.
type PresenceRegistry struct {
	mu    sync.RWMutex
	conns map[string]map[string]struct{}
}

// NewPresenceRegistry returns an empty registry.
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		conns: make(map[string]map[string]struct{}),
	}
}

// AddConnection registers a connection for the user. It reports whether this
// was the user's first connection, i.e. the user just came online.
func (p *PresenceRegistry) AddConnection(userID, connID string) (cameOnline bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		p.conns[userID] = set
	}

	set[connID] = struct{}{}

	return !ok
}

// RemoveConnection deregisters a connection for the user. It reports whether
// the user's set became empty, i.e. the user just went offline. Empty sets
// are removed entirely.
func (p *PresenceRegistry) RemoveConnection(userID, connID string) (wentOffline bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.conns[userID]
	if !ok {
		return false
	}

	delete(set, connID)

	if len(set) == 0 {
		delete(p.conns, userID)
		return true
	}

	return false
}

// OnlineUserIDs returns a sorted snapshot of the ids of all online users.
func (p *PresenceRegistry) OnlineUserIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.conns))
	for userID := range p.conns {
		ids = append(ids, userID)
	}

	sort.Strings(ids)

	return ids
}

// IsOnline reports whether the user currently has at least one live connection.
func (p *PresenceRegistry) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.conns[userID]
	return ok
}
