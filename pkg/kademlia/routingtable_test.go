package kademlia

import "testing"

func TestRoutingTableClosestOrdersByDistance(t *testing.T) {
	var self ID160
	rt := NewRoutingTable[ID160](self, 20)

	for _, lastByte := range []byte{0x04, 0x01, 0x02} {
		var id ID160
		id[ID160Bytes-1] = lastByte
		if _, ok := rt.Update(PeerEntry[ID160]{ID: id}); !ok {
			t.Fatalf("update for %x should apply immediately", lastByte)
		}
	}

	var target ID160
	closest := rt.Closest(target, 3)
	if len(closest) != 3 {
		t.Fatalf("got %d peers, want 3", len(closest))
	}
	wantOrder := []byte{0x01, 0x02, 0x04}
	for i, w := range wantOrder {
		if closest[i].ID.Bytes()[ID160Bytes-1] != w {
			t.Errorf("position %d = %x, want %x", i, closest[i].ID.Bytes()[ID160Bytes-1], w)
		}
	}
}

func TestRoutingTableUpdateIgnoresSelf(t *testing.T) {
	var self ID160
	rt := NewRoutingTable[ID160](self, 20)
	if _, ok := rt.Update(PeerEntry[ID160]{ID: self}); !ok {
		t.Fatal("updating with self should be a no-op, not an error")
	}
	if rt.Len() != 0 {
		t.Errorf("routing table should never hold self, len = %d", rt.Len())
	}
}

func TestRoutingTableRemove(t *testing.T) {
	var self ID160
	rt := NewRoutingTable[ID160](self, 20)
	var other ID160
	other[0] = 0x80
	rt.Update(PeerEntry[ID160]{ID: other})

	if !rt.Remove(other) {
		t.Fatal("expected remove to report success")
	}
	if rt.Len() != 0 {
		t.Errorf("len = %d, want 0 after remove", rt.Len())
	}
}
