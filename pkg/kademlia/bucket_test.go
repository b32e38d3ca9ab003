package kademlia

import "testing"

func mkPeer(t *testing.T, lastByte byte) PeerEntry[ID160] {
	t.Helper()
	var id ID160
	id[ID160Bytes-1] = lastByte
	return PeerEntry[ID160]{ID: id, Endpoints: []Endpoint{{}}}
}

func TestBucketTouchAppendsUntilFull(t *testing.T) {
	b := NewBucket[ID160](2)

	if _, ok := b.Touch(mkPeer(t, 1)); !ok {
		t.Fatal("expected first touch to be applied immediately")
	}
	if _, ok := b.Touch(mkPeer(t, 2)); !ok {
		t.Fatal("expected second touch to be applied immediately")
	}
	if b.Len() != 2 {
		t.Fatalf("len = %d, want 2", b.Len())
	}

	candidate, ok := b.Touch(mkPeer(t, 3))
	if ok {
		t.Fatal("expected third touch on a full bucket to require a probe")
	}
	if candidate == nil {
		t.Fatal("expected an eviction candidate")
	}
}

func TestBucketTouchKnownPeerMovesToTail(t *testing.T) {
	b := NewBucket[ID160](3)
	p1, p2 := mkPeer(t, 1), mkPeer(t, 2)
	b.Touch(p1)
	b.Touch(p2)

	b.Touch(p1) // re-contact p1; should move to tail, not duplicate

	peers := b.Peers()
	if len(peers) != 2 {
		t.Fatalf("len = %d, want 2 (no duplicate entries)", len(peers))
	}
	if !peers[len(peers)-1].ID.Equal(p1.ID) {
		t.Error("re-touched peer should be at the tail")
	}
}

func TestBucketEvictReplacesOldest(t *testing.T) {
	b := NewBucket[ID160](1)
	oldest := mkPeer(t, 1)
	b.Touch(oldest)

	newcomer := mkPeer(t, 2)
	candidate, ok := b.Touch(newcomer)
	if ok || candidate == nil {
		t.Fatal("expected an eviction candidate on a full bucket")
	}
	if !b.TryStartProbe(candidate.ID) {
		t.Fatal("expected to win the probe")
	}

	b.Evict(candidate.ID, newcomer)
	if b.Len() != 1 {
		t.Fatalf("len = %d, want 1", b.Len())
	}
	if !b.Peers()[0].ID.Equal(newcomer.ID) {
		t.Error("expected newcomer to replace the evicted peer")
	}
}

func TestBucketConfirmAliveKeepsOldest(t *testing.T) {
	b := NewBucket[ID160](1)
	oldest := mkPeer(t, 1)
	b.Touch(oldest)
	newcomer := mkPeer(t, 2)
	candidate, _ := b.Touch(newcomer)
	b.TryStartProbe(candidate.ID)

	b.ConfirmAlive(candidate.ID)
	if b.Len() != 1 || !b.Peers()[0].ID.Equal(oldest.ID) {
		t.Error("expected oldest peer to remain after ConfirmAlive")
	}
}

func TestBucketOnlyOneProbeAtATime(t *testing.T) {
	b := NewBucket[ID160](1)
	b.Touch(mkPeer(t, 1))
	candidate, _ := b.Touch(mkPeer(t, 2))

	if !b.TryStartProbe(candidate.ID) {
		t.Fatal("expected first probe to succeed")
	}
	if b.TryStartProbe(candidate.ID) {
		t.Fatal("expected second concurrent probe to be rejected")
	}
}
