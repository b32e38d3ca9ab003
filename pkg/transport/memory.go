package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/shadowmesh/kademlia/pkg/kademlia"
	"github.com/shadowmesh/kademlia/pkg/wire"
)

// MemoryNetwork is a shared switchboard connecting MemoryTransport
// endpoints within a process, used by integration tests to exercise
// several Node instances without binding real sockets.
type MemoryNetwork struct {
	mu    sync.RWMutex
	peers map[string]*MemoryTransport
}

// NewMemoryNetwork returns an empty in-process network.
func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{peers: make(map[string]*MemoryTransport)}
}

// MemoryTransport is a kademlia.MessageTransport backed by Go channels
// instead of a socket, registered under a caller-chosen URI on a shared
// MemoryNetwork.
type MemoryTransport struct {
	net      *MemoryNetwork
	uri      string
	registry *kademlia.EndpointRegistry
	inbound  chan kademlia.InboundMessage

	closeOnce sync.Once
	closed    chan struct{}
}

// NewTransport registers a new endpoint named uri (e.g.
// "mem://node-1") on net.
func (net *MemoryNetwork) NewTransport(uri string) *MemoryTransport {
	t := &MemoryTransport{
		net:      net,
		uri:      uri,
		registry: kademlia.NewEndpointRegistry(),
		inbound:  make(chan kademlia.InboundMessage, 256),
		closed:   make(chan struct{}),
	}
	net.mu.Lock()
	net.peers[uri] = t
	net.mu.Unlock()
	return t
}

// Send delivers msg directly into the recipient's inbound channel. A
// destination that isn't registered (or has been closed) behaves like an
// unreachable endpoint.
func (t *MemoryTransport) Send(ctx context.Context, ep kademlia.Endpoint, msg wire.Message) error {
	t.net.mu.RLock()
	dest, ok := t.net.peers[ep.URI()]
	t.net.mu.RUnlock()
	if !ok {
		return fmt.Errorf("memory transport: no such endpoint: %s", ep.URI())
	}

	from := t.registry.Resolve(t.uri)
	select {
	case dest.inbound <- kademlia.InboundMessage{From: from, Message: msg}:
		return nil
	case <-dest.closed:
		return fmt.Errorf("memory transport: endpoint closed: %s", ep.URI())
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inbound returns the channel of messages addressed to this endpoint.
func (t *MemoryTransport) Inbound() <-chan kademlia.InboundMessage { return t.inbound }

// LocalEndpoints returns this transport's own registered URI.
func (t *MemoryTransport) LocalEndpoints() []string { return []string{t.uri} }

// Close deregisters the endpoint and unblocks any pending Send to it.
func (t *MemoryTransport) Close() error {
	t.closeOnce.Do(func() {
		t.net.mu.Lock()
		delete(t.net.peers, t.uri)
		t.net.mu.Unlock()
		close(t.closed)
		close(t.inbound)
	})
	return nil
}
