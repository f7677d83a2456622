package state

import (
	"sync"
	"time"
)

// Holder is a thread-safe container for the latest Snapshot.
type Holder struct {
	mu     sync.RWMutex
	latest *Snapshot
	seq    uint64
	ttl    time.Duration
	now    func() time.Time // injectable for deterministic tests
}

// NewHolder creates an empty Holder. A snapshot older than ttl is reported
// stale; ttl <= 0 disables staleness.
func NewHolder(ttl time.Duration) *Holder {
	return &Holder{ttl: ttl, now: time.Now}
}

// Put replaces the held snapshot and stamps its Seq.
// Callers must not modify snap after calling Put.
func (h *Holder) Put(snap *Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	snap.Seq = h.seq
	h.latest = snap
}

// Latest returns the held snapshot, or false before the first Put.
func (h *Holder) Latest() (*Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.latest != nil
}

// Stale reports whether the held snapshot was fetched more than the TTL
// before now. An empty holder is stale.
func (h *Holder) Stale(now time.Time) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return true
	}
	if h.ttl <= 0 {
		return false
	}
	return now.Sub(h.latest.FetchedAt) > h.ttl
}

// Age returns how long ago the held snapshot was fetched, or 0 when empty.
func (h *Holder) Age() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return 0
	}
	return h.now().Sub(h.latest.FetchedAt)
}
