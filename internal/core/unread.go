package core

import "sync"

// ledgerShards is the number of lock stripes, keyed by recipient.
const ledgerShards = 16

type ledgerShard struct {
	mu sync.Mutex
	// recipient -> sender -> pending count
	counts map[int64]map[int64]int
}

// Ledger tracks per-recipient unread private message counters, keyed by
// sender. Counters are created lazily, never go negative, and are reset
// to zero (not deleted) on read acknowledgment so re-acknowledging stays
// idempotent.
type Ledger struct {
	shards [ledgerShards]*ledgerShard
}

// NewLedger creates an empty unread ledger.
func NewLedger() *Ledger {
	l := &Ledger{}
	for i := range l.shards {
		l.shards[i] = &ledgerShard{counts: make(map[int64]map[int64]int)}
	}
	return l
}

func (l *Ledger) shard(recipientID int64) *ledgerShard {
	return l.shards[uint64(recipientID)%ledgerShards]
}

// RecordUndelivered increments the (recipient, sender) counter by one.
func (l *Ledger) RecordUndelivered(recipientID, senderID int64) {
	s := l.shard(recipientID)
	s.mu.Lock()
	defer s.mu.Unlock()

	bySender, ok := s.counts[recipientID]
	if !ok {
		bySender = make(map[int64]int)
		s.counts[recipientID] = bySender
	}
	bySender[senderID]++
}

// MarkRead resets the (recipient, sender) counter to zero. Calling it
// with no pending count is a no-op.
func (l *Ledger) MarkRead(recipientID, senderID int64) {
	s := l.shard(recipientID)
	s.mu.Lock()
	defer s.mu.Unlock()

	bySender, ok := s.counts[recipientID]
	if !ok {
		return
	}
	if _, ok := bySender[senderID]; ok {
		bySender[senderID] = 0
	}
}

// Snapshot returns a copy of all pending counts for a recipient, used to
// replay unread state to a newly connected session. Never nil.
func (l *Ledger) Snapshot(recipientID int64) map[int64]int {
	s := l.shard(recipientID)
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int64]int, len(s.counts[recipientID]))
	for sender, count := range s.counts[recipientID] {
		out[sender] = count
	}
	return out
}

// Pending returns the current counter for one (recipient, sender) pair.
func (l *Ledger) Pending(recipientID, senderID int64) int {
	s := l.shard(recipientID)
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.counts[recipientID][senderID]
}
