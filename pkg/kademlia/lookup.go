package kademlia

import (
	"context"
	"sort"
	"sync"

	"github.com/shadowmesh/kademlia/pkg/wire"
)

// lookupState tracks the shortlist driving one iterative lookup: the
// candidates found so far, which of them have already been queried,
// which of those actually answered (queried is a superset — it also
// covers peers an RPC timed out against), and the closest distance seen,
// used to detect convergence.
type lookupState[T NodeID[T]] struct {
	mu        sync.Mutex
	target    T
	shortlist []PeerEntry[T]
	queried   map[T]bool
	responded map[T]bool
}

func newLookupState[T NodeID[T]](target T, seed []PeerEntry[T]) *lookupState[T] {
	return &lookupState[T]{target: target, shortlist: seed, queried: make(map[T]bool), responded: make(map[T]bool)}
}

// markResponded records that id answered an RPC during this lookup, so
// the final result only ever surfaces peers that were actually
// contacted and responded (Testable Property: "every peer in P was
// contacted and responded during L").
func (s *lookupState[T]) markResponded(id T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responded[id] = true
}

// closestUnqueried returns up to alpha entries not yet queried, closest
// to target first.
func (s *lookupState[T]) closestUnqueried(alpha int) []PeerEntry[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sortLocked()

	var picked []PeerEntry[T]
	for _, e := range s.shortlist {
		if len(picked) >= alpha {
			break
		}
		if !s.queried[e.ID] {
			picked = append(picked, e)
		}
	}
	for _, e := range picked {
		s.queried[e.ID] = true
	}
	return picked
}

func (s *lookupState[T]) sortLocked() {
	target := s.target
	sort.Slice(s.shortlist, func(i, j int) bool {
		di := target.Xor(s.shortlist[i].ID)
		dj := target.Xor(s.shortlist[j].ID)
		if di.Equal(dj) {
			return s.shortlist[i].ID.Less(s.shortlist[j].ID)
		}
		return di.Less(dj)
	})
}

// merge folds newly discovered peers into the shortlist, skipping
// duplicates and the lookup's own originator.
func (s *lookupState[T]) merge(self T, found []PeerEntry[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := make(map[T]bool, len(s.shortlist))
	for _, e := range s.shortlist {
		existing[e.ID] = true
	}
	for _, e := range found {
		if e.ID.Equal(self) || existing[e.ID] {
			continue
		}
		existing[e.ID] = true
		s.shortlist = append(s.shortlist, e)
	}
}

// top returns up to k entries, closest-first, restricted to peers that
// actually responded during the lookup. A peer that was only ever
// seeded or queried-but-timed-out never appears here: the boundary case
// "all seeded peers fail" must return an empty list, not the unreachable
// seeds.
func (s *lookupState[T]) top(k int) []PeerEntry[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sortLocked()
	out := make([]PeerEntry[T], 0, k)
	for _, e := range s.shortlist {
		if len(out) >= k {
			break
		}
		if s.responded[e.ID] {
			out = append(out, e)
		}
	}
	return out
}

func (s *lookupState[T]) closestDistance() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.shortlist) == 0 {
		var zero T
		return zero, false
	}
	s.sortLocked()
	return s.target.Xor(s.shortlist[0].ID), true
}

// FindNode runs the iterative FIND_NODE lookup and returns the k closest
// live peers to target known across the whole queried network, not just
// this node's own routing table.
func (n *Node[T]) FindNode(ctx context.Context, target T) ([]PeerEntry[T], error) {
	_, closest, err := n.lookup(ctx, target, false)
	return closest, err
}

// FindValue runs the iterative FIND_VALUE lookup, short-circuiting as
// soon as any queried peer returns the value. On success it also caches
// the value at the closest peer that answered without it (among the
// answers processed before the value's), per the
// original algorithm's cache-on-lookup optimization, so later lookups
// for the same key converge faster.
func (n *Node[T]) FindValue(ctx context.Context, key T) ([]byte, bool, error) {
	value, _, err := n.lookup(ctx, key, true)
	if err != nil {
		return nil, false, err
	}
	if value == nil {
		return nil, false, nil
	}
	return value.Data, true, nil
}

// lookup is the shared engine behind FindNode and FindValue. It drives
// up to cfg.Alpha concurrent RPCs per round against the closest
// not-yet-queried candidates, folding every response's peer list into
// the shortlist, until a round makes no further progress toward target
// or (for wantValue) a value is found.
func (n *Node[T]) lookup(ctx context.Context, target T, wantValue bool) (*wire.ValueInfo, []PeerEntry[T], error) {
	seed := n.routing.Closest(target, n.cfg.K)
	if len(seed) == 0 {
		return nil, nil, ErrEmptyRoutingTable
	}
	state := newLookupState[T](target, seed)

	var cacheAt *PeerEntry[T]

	for {
		batch := state.closestUnqueried(n.cfg.Alpha)
		if len(batch) == 0 {
			break
		}

		prevDistance, hadDistance := state.closestDistance()

		type result struct {
			peer  PeerEntry[T]
			value *wire.ValueInfo
			nodes []wire.Node
		}
		results := make(chan result, len(batch))
		var wg sync.WaitGroup
		for _, peer := range batch {
			wg.Add(1)
			go func(peer PeerEntry[T]) {
				defer wg.Done()
				if wantValue {
					value, nodes, err := n.sendFindValue(ctx, peer.Endpoints, target)
					if err != nil {
						return
					}
					state.markResponded(peer.ID)
					results <- result{peer: peer, value: value, nodes: nodes}
					return
				}
				nodes, err := n.sendFindNode(ctx, peer.Endpoints, target)
				if err != nil {
					return
				}
				state.markResponded(peer.ID)
				results <- result{peer: peer, nodes: nodes}
			}(peer)
		}
		wg.Wait()
		close(results)

		for r := range results {
			if r.value != nil {
				if cacheAt != nil {
					cached := *cacheAt
					go func() {
						cacheCtx, cancel := context.WithTimeout(context.Background(), n.cfg.RequestTimeout)
						defer cancel()
						_ = n.sendStore(cacheCtx, cached.Endpoints, target, *r.value, wire.ModeReplica)
					}()
				}
				return r.value, nil, nil
			}
			if wantValue && (cacheAt == nil || target.Xor(r.peer.ID).Less(target.Xor(cacheAt.ID))) {
				p := r.peer
				cacheAt = &p
			}
			state.merge(n.self, wireNodesToPeers[T](n.endpoints, r.nodes))
		}

		newDistance, ok := state.closestDistance()
		if hadDistance && ok && !newDistance.Less(prevDistance) {
			break
		}
		if !ok {
			break
		}
	}

	closest := state.top(n.cfg.K)
	if wantValue {
		return nil, closest, ErrNotFound
	}
	return nil, closest, nil
}

func wireNodesToPeers[T NodeID[T]](registry *EndpointRegistry, nodes []wire.Node) []PeerEntry[T] {
	out := make([]PeerEntry[T], 0, len(nodes))
	for _, wn := range nodes {
		id, err := ParseID[T](wn.ID)
		if err != nil || len(wn.Endpoints) == 0 {
			continue
		}
		endpoints := make([]Endpoint, len(wn.Endpoints))
		for i, uri := range wn.Endpoints {
			endpoints[i] = registry.Resolve(uri)
		}
		out = append(out, PeerEntry[T]{ID: id, Endpoints: endpoints})
	}
	return out
}

// StoreValue runs FindNode to locate the k closest peers to key, then
// pushes the value to each: the single closest peer as Primary (it
// takes on republish responsibility), the rest as Replica.
func (n *Node[T]) StoreValue(ctx context.Context, key T, data []byte, version uint64) error {
	closest, err := n.FindNode(ctx, key)
	if err != nil {
		return err
	}
	if len(closest) == 0 {
		return ErrEmptyRoutingTable
	}

	value := wire.ValueInfo{Data: data, Version: version, TTLMS: n.cfg.ValueTTL.Milliseconds()}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	for i, peer := range closest {
		mode := wire.ModeReplica
		if i == 0 {
			mode = wire.ModePrimary
		}
		wg.Add(1)
		go func(peer PeerEntry[T], mode wire.StoreMode) {
			defer wg.Done()
			if err := n.sendStore(ctx, peer.Endpoints, key, value, mode); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(peer, mode)
	}
	wg.Wait()

	if _, err := n.store.Put(key, data, version, wire.ModeReplica, n.cfg.ValueTTL, n.cfg.RepublishInterval, n.cfg.ReplicateInterval); err != nil && err != ErrStaleVersion {
		return err
	}
	return firstErr
}
