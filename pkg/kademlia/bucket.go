package kademlia

import "sync"

// Bucket holds up to capacity contacts that share a routing-table
// prefix, ordered least-recently-seen first (index 0) through
// most-recently-seen (tail). This is the classic Kademlia LRU bucket,
// generalized with a probe-before-evict policy: a full bucket never
// silently drops its oldest contact for a new one, it pings the oldest
// contact first and only replaces it if that ping goes unanswered. At
// most one such probe is ever outstanding per bucket.
type Bucket[T NodeID[T]] struct {
	mu       sync.Mutex
	capacity int
	entries  []PeerEntry[T]
	probing  *T // identifier currently being probed for eviction, if any
}

// NewBucket returns an empty bucket holding at most capacity contacts.
func NewBucket[T NodeID[T]](capacity int) *Bucket[T] {
	return &Bucket[T]{capacity: capacity}
}

// Len returns the number of contacts currently held.
func (b *Bucket[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Full reports whether the bucket is at capacity.
func (b *Bucket[T]) Full() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries) >= b.capacity
}

// Peers returns a snapshot of the bucket's contacts, oldest first.
func (b *Bucket[T]) Peers() []PeerEntry[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]PeerEntry[T], len(b.entries))
	copy(out, b.entries)
	return out
}

func (b *Bucket[T]) indexOf(id T) int {
	for i, e := range b.entries {
		if e.ID.Equal(id) {
			return i
		}
	}
	return -1
}

func (b *Bucket[T]) moveToTail(i int) {
	e := b.entries[i]
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
	b.entries = append(b.entries, e)
}

// Touch records contact with entry. If the identifier is already known,
// it is refreshed and moved to the tail. If it is new and the bucket has
// room, it is appended and ok is true. If it is new and the bucket is
// full, Touch returns the least-recently-seen entry as evictCandidate
// and ok is false: the caller (the routing table) must ping that
// candidate and call either ConfirmAlive (keep it, drop the newcomer) or
// Evict (replace it with the newcomer) once the probe resolves.
func (b *Bucket[T]) Touch(entry PeerEntry[T]) (evictCandidate *PeerEntry[T], ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if i := b.indexOf(entry.ID); i >= 0 {
		b.entries[i].Endpoints = mergeEndpoints(b.entries[i].Endpoints, entry.Endpoints)
		b.entries[i].LastSeen = entry.LastSeen
		b.moveToTail(i)
		return nil, true
	}

	if len(b.entries) < b.capacity {
		b.entries = append(b.entries, entry)
		return nil, true
	}

	oldest := b.entries[0]
	return &oldest, false
}

// TryStartProbe marks id as under probe and reports whether the caller
// won the right to probe it; it returns false if a probe for this
// bucket is already outstanding, so callers never issue concurrent
// pings for the same eviction decision.
func (b *Bucket[T]) TryStartProbe(id T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.probing != nil {
		return false
	}
	b.probing = &id
	return true
}

// ConfirmAlive ends a probe in the oldest contact's favor: it is moved
// to the tail and the newcomer that triggered the probe is discarded.
func (b *Bucket[T]) ConfirmAlive(id T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = nil
	if i := b.indexOf(id); i >= 0 {
		b.moveToTail(i)
	}
}

// Evict ends a probe in the newcomer's favor: the probed contact oldID
// is removed and replacement takes its place at the tail.
func (b *Bucket[T]) Evict(oldID T, replacement PeerEntry[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = nil
	if i := b.indexOf(oldID); i >= 0 {
		b.entries = append(b.entries[:i], b.entries[i+1:]...)
	}
	b.entries = append(b.entries, replacement)
}

// Remove drops id from the bucket unconditionally. Its only caller is
// RoutingTable.Remove.
func (b *Bucket[T]) Remove(id T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexOf(id)
	if i < 0 {
		return false
	}
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
	return true
}
