package kademlia_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shadowmesh/kademlia/pkg/kademlia"
	"github.com/shadowmesh/kademlia/pkg/transport"
)

func newTestNode(t *testing.T, net *transport.MemoryNetwork, uri string, lastByte byte) (*kademlia.Node[kademlia.ID160], kademlia.Endpoint) {
	t.Helper()
	var id kademlia.ID160
	id[kademlia.ID160Bytes-1] = lastByte

	tport := net.NewTransport(uri)
	cfg := kademlia.DefaultConfig()
	cfg.RequestTimeout = time.Second

	node := kademlia.NewNode[kademlia.ID160](id, tport, kademlia.RealClock(), cfg)
	ep := kademlia.NewEndpointRegistry().Resolve(uri)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		node.Close()
	})
	go node.Run(ctx)

	return node, ep
}

func TestThreeNodeFindNode(t *testing.T) {
	net := transport.NewMemoryNetwork()

	nodeA, epA := newTestNode(t, net, "mem://a", 0x01)
	nodeB, epB := newTestNode(t, net, "mem://b", 0x02)
	nodeC, epC := newTestNode(t, net, "mem://c", 0x03)
	_ = epA

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := nodeA.Bootstrap(ctx, epB); err != nil {
		t.Fatalf("A bootstrap to B: %v", err)
	}
	if err := nodeC.Bootstrap(ctx, epB); err != nil {
		t.Fatalf("C bootstrap to B: %v", err)
	}

	// Give B a moment to learn about C via C's bootstrap ping.
	time.Sleep(50 * time.Millisecond)

	closest, err := nodeA.FindNode(ctx, nodeC.ID())
	if err != nil {
		t.Fatalf("find node: %v", err)
	}

	var found bool
	for _, p := range closest {
		if p.ID.Equal(nodeC.ID()) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected A's lookup to discover C via B, got %d peers", len(closest))
	}
	_ = epC
	_ = nodeB
}

func TestStoreAndFindValueAcrossNodes(t *testing.T) {
	net := transport.NewMemoryNetwork()

	nodes := make([]*kademlia.Node[kademlia.ID160], 0, 5)
	endpoints := make([]kademlia.Endpoint, 0, 5)
	for i := byte(1); i <= 5; i++ {
		node, ep := newTestNode(t, net, fmt.Sprintf("mem://node-%d", i), i)
		nodes = append(nodes, node)
		endpoints = append(endpoints, ep)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Fully connect the small network via direct bootstraps.
	for i, node := range nodes {
		for j, ep := range endpoints {
			if i == j {
				continue
			}
			_ = node.Bootstrap(ctx, ep)
		}
	}
	time.Sleep(50 * time.Millisecond)

	var key kademlia.ID160
	key[0] = 0xaa
	if err := nodes[0].StoreValue(ctx, key, []byte("hello"), 1); err != nil {
		t.Fatalf("store value: %v", err)
	}

	data, found, err := nodes[len(nodes)-1].FindValue(ctx, key)
	if err != nil {
		t.Fatalf("find value: %v", err)
	}
	if !found {
		t.Fatal("expected value to be found")
	}
	if string(data) != "hello" {
		t.Errorf("data = %q, want %q", data, "hello")
	}
}
