package kademlia

import "testing"

func TestLookupStateTopExcludesUnresponsivePeers(t *testing.T) {
	var target, responsive, silent ID160
	target[0] = 0x00
	responsive[0] = 0x01
	silent[0] = 0x02

	state := newLookupState[ID160](target, []PeerEntry[ID160]{
		{ID: responsive},
		{ID: silent},
	})

	// Only responsive ever answers an RPC; silent was seeded/queried but
	// never responded (timed out, or only ever heard about secondhand).
	state.markResponded(responsive)

	top := state.top(10)
	if len(top) != 1 || !top[0].ID.Equal(responsive) {
		t.Fatalf("top() = %v, want only the responsive peer", top)
	}
}

func TestLookupStateTopEmptyWhenNoPeerResponds(t *testing.T) {
	var target, seed ID160
	seed[0] = 0x01

	state := newLookupState[ID160](target, []PeerEntry[ID160]{{ID: seed}})

	if top := state.top(10); len(top) != 0 {
		t.Fatalf("top() = %v, want empty when every seeded peer failed to respond", top)
	}
}
