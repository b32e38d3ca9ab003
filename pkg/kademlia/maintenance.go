package kademlia

import (
	"context"
	"time"

	"github.com/shadowmesh/kademlia/pkg/wire"
)

// maintenanceLoop runs the periodic upkeep every Kademlia node needs
// regardless of client traffic: stale buckets get refreshed so the
// routing table stays accurate, primary values get republished so they
// survive churn in their holding set, primary values are also re-pushed
// as replica copies toward the current closest set, and expired values
// are dropped.
func (n *Node[T]) maintenanceLoop(ctx context.Context) {
	ticker := n.clock.Ticker(n.cfg.MaintenanceTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.done:
			return
		case <-ticker.C:
			n.refreshStaleBuckets(ctx)
			n.republishPrimaries(ctx)
			n.replicatePrimaries(ctx)
			n.store.ExpireOnce()
		}
	}
}

// refreshStaleBuckets issues a self-directed FIND_NODE lookup into every
// bucket that has gone BucketRefreshInterval without a contact touching
// it, the standard Kademlia technique for keeping idle parts of the
// address space populated with live contacts.
func (n *Node[T]) refreshStaleBuckets(ctx context.Context) {
	width := n.self.BitWidth()
	for idx := 0; idx < width; idx++ {
		b := n.routing.buckets[idx]
		peers := b.Peers()
		stale := len(peers) == 0
		if !stale {
			newest := peers[len(peers)-1]
			stale = n.clock.Now().Sub(newest.LastSeen) > n.cfg.BucketRefreshInterval
		}
		if !stale {
			continue
		}

		target, err := RandomTargetInBucket[T](n.self, idx, RandomID[T])
		if err != nil {
			continue
		}
		go func() {
			refreshCtx, cancel := context.WithTimeout(ctx, n.cfg.RequestTimeout*time.Duration(n.cfg.Alpha))
			defer cancel()
			_, _ = n.FindNode(refreshCtx, target)
		}()
	}
}

// republishPrimaries re-pushes every Primary value whose RepublishAt has
// elapsed to the current closest set for its key, so a value a node
// originated keeps living at the right holders as the network's
// membership shifts. Only the originator republishes; a Replica copy
// never re-propagates on its own behalf.
func (n *Node[T]) republishPrimaries(ctx context.Context) {
	for _, key := range n.store.PrimaryKeysDueForRepublish() {
		entry, ok := n.store.Get(key)
		if !ok {
			continue
		}
		go func(key T, entry StoreEntry) {
			if n.pushToClosest(ctx, key, entry, wire.ModePrimary) {
				n.store.MarkRepublished(key, n.cfg.RepublishInterval)
			}
		}(key, entry)
	}
}

// replicatePrimaries re-pushes every Primary value whose ReplicateAt has
// elapsed as a Replica STORE to the current closest set, on an interval
// independent of the same entry's own republish cadence (the two may
// coincide). This freshens the replica holders; it never selects
// Replica-mode entries, which would re-propagate a value from a node
// that never originated it.
func (n *Node[T]) replicatePrimaries(ctx context.Context) {
	for _, key := range n.store.PrimaryKeysDueForReplicate() {
		entry, ok := n.store.Get(key)
		if !ok {
			continue
		}
		go func(key T, entry StoreEntry) {
			if n.pushToClosest(ctx, key, entry, wire.ModeReplica) {
				n.store.MarkReplicated(key, n.cfg.ReplicateInterval)
			}
		}(key, entry)
	}
}

// pushToClosest runs FindNode for key and STOREs entry at every peer in
// the resulting closest set under mode, reporting whether the lookup
// itself succeeded (the caller rearms its timer only then — a lookup
// failure should leave the entry due again on the very next tick).
func (n *Node[T]) pushToClosest(ctx context.Context, key T, entry StoreEntry, mode wire.StoreMode) bool {
	pushCtx, cancel := context.WithTimeout(ctx, n.cfg.RequestTimeout*time.Duration(n.cfg.Alpha))
	defer cancel()
	closest, err := n.FindNode(pushCtx, key)
	if err != nil {
		return false
	}
	value := wire.ValueInfo{Data: entry.Data, Version: entry.Version, TTLMS: entry.ExpiresAt.Sub(n.clock.Now()).Milliseconds()}
	for _, peer := range closest {
		_ = n.sendStore(pushCtx, peer.Endpoints, key, value, mode)
	}
	return true
}
