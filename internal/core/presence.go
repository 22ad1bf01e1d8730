package core

import (
	"sync"
	"time"
)

// presenceShards is the number of lock stripes in the registry. Operations
// on different users only contend when they hash to the same stripe.
const presenceShards = 16

type presenceEntry struct {
	conn        *Conn
	connectedAt time.Time
}

type presenceShard struct {
	mu      sync.Mutex
	entries map[int64]presenceEntry
}

// Presence maps user IDs to their single live connection handle. It is
// the source of truth for "is this user reachable right now".
//
// At most one handle is registered per user: a later Bind supersedes and
// invalidates the earlier handle rather than erroring.
type Presence struct {
	shards [presenceShards]*presenceShard
}

// NewPresence creates an empty presence registry.
func NewPresence() *Presence {
	p := &Presence{}
	for i := range p.shards {
		p.shards[i] = &presenceShard{entries: make(map[int64]presenceEntry)}
	}
	return p
}

func (p *Presence) shard(userID int64) *presenceShard {
	return p.shards[uint64(userID)%presenceShards]
}

// Bind registers conn as the live handle for userID. If the user already
// has a live entry, the previous handle is invalidated first, so a stale
// connection can never receive further pushes.
func (p *Presence) Bind(userID int64, conn *Conn) {
	s := p.shard(userID)
	s.mu.Lock()
	prev, ok := s.entries[userID]
	s.entries[userID] = presenceEntry{conn: conn, connectedAt: time.Now()}
	s.mu.Unlock()

	if ok && prev.conn != conn {
		prev.conn.Invalidate()
	}
}

// Unbind removes the entry for userID only if conn is still the
// registered handle. A stale disconnect racing a newer Bind is a no-op.
// Returns true if the entry was removed.
func (p *Presence) Unbind(userID int64, conn *Conn) bool {
	s := p.shard(userID)
	s.mu.Lock()
	entry, ok := s.entries[userID]
	if !ok || entry.conn != conn {
		s.mu.Unlock()
		return false
	}
	delete(s.entries, userID)
	s.mu.Unlock()

	conn.Invalidate()
	return true
}

// Lookup returns the live handle for userID, or nil if unreachable.
// It never blocks on I/O.
func (p *Presence) Lookup(userID int64) *Conn {
	s := p.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[userID]
	if !ok {
		return nil
	}
	return entry.conn
}

// ListReachable returns a snapshot of currently bound user IDs.
func (p *Presence) ListReachable() []int64 {
	ids := make([]int64, 0)
	for _, s := range p.shards {
		s.mu.Lock()
		for id := range s.entries {
			ids = append(ids, id)
		}
		s.mu.Unlock()
	}
	return ids
}

// Snapshot returns the live connections with their presence info, for
// fan-out and presence broadcasts. The slice is a point-in-time copy.
func (p *Presence) Snapshot() []*Conn {
	conns := make([]*Conn, 0)
	for _, s := range p.shards {
		s.mu.Lock()
		for _, entry := range s.entries {
			conns = append(conns, entry.conn)
		}
		s.mu.Unlock()
	}
	return conns
}

// Info returns presence details for every reachable user.
func (p *Presence) Info() []PresenceInfo {
	infos := make([]PresenceInfo, 0)
	for _, s := range p.shards {
		s.mu.Lock()
		for id, entry := range s.entries {
			infos = append(infos, PresenceInfo{
				UserID:      id,
				Username:    entry.conn.Username,
				ConnectedAt: entry.connectedAt,
			})
		}
		s.mu.Unlock()
	}
	return infos
}
