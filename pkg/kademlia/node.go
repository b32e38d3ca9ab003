package kademlia

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/shadowmesh/kademlia/pkg/wire"
)

// Node is the facade wiring every core component together: the routing
// table, the value store, the correlation queue, and the iterative
// lookup engine, driven by a MessageTransport and a Clock supplied by
// the caller. Node has no knowledge of YAML, HTTP, or flags; cmd/ and
// pkg/config/pkg/api build those on top of it.
type Node[T NodeID[T]] struct {
	self      T
	cfg       Config
	clock     Clock
	transport MessageTransport
	endpoints *EndpointRegistry

	routing     *RoutingTable[T]
	store       *Store[T]
	correlation *CorrelationQueue

	replyCounter atomic.Uint32

	closeOnce sync.Once
	done      chan struct{}
}

// NewNode constructs a Node identified by self, communicating over
// transport, timed by clock, tuned by cfg.
func NewNode[T NodeID[T]](self T, transport MessageTransport, clock Clock, cfg Config) *Node[T] {
	return &Node[T]{
		self:        self,
		cfg:         cfg,
		clock:       clock,
		transport:   transport,
		endpoints:   NewEndpointRegistry(),
		routing:     NewRoutingTable[T](self, cfg.K),
		store:       NewStore[T](clock),
		correlation: NewCorrelationQueue(),
		done:        make(chan struct{}),
	}
}

// ID returns this node's own identifier.
func (n *Node[T]) ID() T { return n.self }

// RoutingTable exposes the routing table for diagnostics (pkg/api).
func (n *Node[T]) RoutingTable() *RoutingTable[T] { return n.routing }

// Store exposes the value store for diagnostics (pkg/api).
func (n *Node[T]) Store() *Store[T] { return n.store }

// nextReplyID mints a correlation token unique to this node's lifetime;
// wraparound after 2^32 requests is an accepted non-goal, matching the
// wire format's uint32 ReplyID field.
func (n *Node[T]) nextReplyID() uint32 {
	return n.replyCounter.Add(1)
}

// Run starts the dispatch loop and the maintenance loop, blocking until
// ctx is cancelled or Close is called.
func (n *Node[T]) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		n.dispatchLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		n.maintenanceLoop(ctx)
	}()

	wg.Wait()
	return ctx.Err()
}

// Close stops the node's background loops and closes its transport.
func (n *Node[T]) Close() error {
	n.closeOnce.Do(func() { close(n.done) })
	return n.transport.Close()
}

// learn records contact with a peer observed on transport endpoint
// observed, folding in any endpoints it additionally claimed in the
// message itself (e.g. PingRequest/PingResponse.Endpoints), and routes
// the contact through the probe-before-evict protocol. Called on every
// request and every response received, per the "learn on every contact"
// rule: Kademlia's liveness information comes from the traffic the node
// was going to send or answer anyway, never from extra probes. observed
// is the most-recently-successful endpoint, so it leads the ordered set.
func (n *Node[T]) learn(id T, observed Endpoint, claimed []Endpoint) {
	if id.Equal(n.self) {
		return
	}
	endpoints := mergeEndpoints(claimed, []Endpoint{observed})
	entry := PeerEntry[T]{ID: id, Endpoints: endpoints, LastSeen: n.clock.Now()}
	evictCandidate, ok := n.routing.Update(entry)
	if ok {
		return
	}
	if evictCandidate == nil {
		return
	}
	n.probeForEviction(entry, *evictCandidate)
}

// probeForEviction pings the oldest contact in a full bucket before
// replacing it with a newcomer, so a burst of unfamiliar traffic can
// never flush out peers that are still alive and responsive.
func (n *Node[T]) probeForEviction(newcomer, oldest PeerEntry[T]) {
	b := n.routing.BucketFor(oldest.ID)
	if b == nil || !b.TryStartProbe(oldest.ID) {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.cfg.RequestTimeout)
		defer cancel()
		_, err := n.ping(ctx, oldest.Endpoints)
		if err != nil {
			b.Evict(oldest.ID, newcomer)
			return
		}
		b.ConfirmAlive(oldest.ID)
	}()
}

// Bootstrap performs a full Connect against a known endpoint: an initial
// PING (which, on success, folds the peer into the routing table via
// learn) followed by a FIND_NODE on this node's own id, which populates
// the routing table with the peer's view of the network rather than
// just the one contact pinged. This is the standard way a new node joins
// an existing network (from a single rendezvous address) or rejoins
// after a restart.
func (n *Node[T]) Bootstrap(ctx context.Context, ep Endpoint) error {
	if _, err := n.ping(ctx, []Endpoint{ep}); err != nil {
		return err
	}
	_, err := n.FindNode(ctx, n.self)
	return err
}

func headerFor[T NodeID[T]](self T, replyID uint32) wire.Header {
	return wire.Header{Sender: self.Bytes(), ReplyID: replyID}
}
