package kademlia

import (
	"sync"
	"time"

	"github.com/shadowmesh/kademlia/pkg/wire"
)

// StoreEntry is one key/value record held by the local value store.
// Primary entries were placed here directly by a STORE request and carry
// the two independent maintenance timers spec'd for an originator:
// RepublishAt drives re-pushing the value itself to the current closest
// set, ReplicateAt drives freshening the replica copies held elsewhere.
// Replica entries arrived via replication from another node's periodic
// push; they only honor ExpiresAt and never propagate on their own.
type StoreEntry struct {
	Data        []byte
	Version     uint64
	Mode        wire.StoreMode
	StoredAt    time.Time
	ExpiresAt   time.Time
	RepublishAt time.Time
	ReplicateAt time.Time
}

// Store is the local key/value table. Keys are node identifiers of the
// same width as the table's own NodeId type, as Kademlia keys and node
// ids share an address space. It enforces monotonic versions: a STORE
// with a version no greater than what's held is rejected rather than
// silently overwriting newer data, per the store's ordering invariant.
type Store[T NodeID[T]] struct {
	mu    sync.RWMutex
	clock Clock
	data  map[T]StoreEntry
}

// NewStore returns an empty value store driven by clock.
func NewStore[T NodeID[T]](clock Clock) *Store[T] {
	return &Store[T]{clock: clock, data: make(map[T]StoreEntry)}
}

// Put inserts or updates key. It returns false with ErrStaleVersion if
// an existing entry has a version >= the incoming one, which is the
// expected, non-exceptional outcome of a replica racing a republish. On acceptance it sets ExpiresAt = now+ttl; for a Primary
// entry it also arms RepublishAt/ReplicateAt at now+their interval, the
// two timers that drive this node's own maintenance pushes. A Replica
// entry only ever tracks expiration — it never republishes or
// replicates on its own behalf.
func (s *Store[T]) Put(key T, data []byte, version uint64, mode wire.StoreMode, ttl, republishInterval, replicateInterval time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.data[key]; ok && existing.Version >= version {
		return false, ErrStaleVersion
	}

	now := s.clock.Now()
	entry := StoreEntry{
		Data:      data,
		Version:   version,
		Mode:      mode,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	if mode == wire.ModePrimary {
		entry.RepublishAt = now.Add(republishInterval)
		entry.ReplicateAt = now.Add(replicateInterval)
	}
	s.data[key] = entry
	return true, nil
}

// Get returns the entry for key, if present and unexpired.
func (s *Store[T]) Get(key T) (StoreEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	if !ok || s.clock.Now().After(e.ExpiresAt) {
		return StoreEntry{}, false
	}
	return e, true
}

// Keys returns every key currently held, expired or not.
func (s *Store[T]) Keys() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.data))
	for k := range s.data {
		out = append(out, k)
	}
	return out
}

// ExpireOnce removes every entry whose TTL has elapsed and returns the
// keys removed. The maintenance loop discards the returned keys.
func (s *Store[T]) ExpireOnce() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	var expired []T
	for k, e := range s.data {
		if now.After(e.ExpiresAt) {
			expired = append(expired, k)
			delete(s.data, k)
		}
	}
	return expired
}

// PrimaryKeysDueForRepublish returns Primary-mode keys whose RepublishAt
// has elapsed, candidates for the periodic republish that keeps a
// value's holding set aligned with routing-table churn. Only a Primary
// entry's own originator republishes; a Replica copy never does.
func (s *Store[T]) PrimaryKeysDueForRepublish() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.clock.Now()
	var out []T
	for k, e := range s.data {
		if e.Mode == wire.ModePrimary && !e.RepublishAt.After(now) {
			out = append(out, k)
		}
	}
	return out
}

// PrimaryKeysDueForReplicate returns Primary-mode keys whose ReplicateAt
// has elapsed, candidates for freshening the replica set on an interval
// independent of the entry's own republish cadence.
func (s *Store[T]) PrimaryKeysDueForReplicate() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.clock.Now()
	var out []T
	for k, e := range s.data {
		if e.Mode == wire.ModePrimary && !e.ReplicateAt.After(now) {
			out = append(out, k)
		}
	}
	return out
}

// MarkRepublished rearms key's RepublishAt at now+interval after a
// successful republish push, so the next maintenance tick doesn't
// immediately re-select it.
func (s *Store[T]) MarkRepublished(key T, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.data[key]; ok {
		e.RepublishAt = s.clock.Now().Add(interval)
		s.data[key] = e
	}
}

// MarkReplicated rearms key's ReplicateAt at now+interval after a
// successful replicate push.
func (s *Store[T]) MarkReplicated(key T, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.data[key]; ok {
		e.ReplicateAt = s.clock.Now().Add(interval)
		s.data[key] = e
	}
}
