package kademlia

import (
	"context"

	"github.com/shadowmesh/kademlia/pkg/wire"
)

// dispatchLoop is the single reader of the transport's inbound channel.
// Every message, request or response, first updates the routing table
// ("learn on every contact") before any request-specific handling runs.
func (n *Node[T]) dispatchLoop(ctx context.Context) {
	inbound := n.transport.Inbound()
	for {
		select {
		case <-ctx.Done():
			return
		case <-n.done:
			return
		case in, ok := <-inbound:
			if !ok {
				return
			}
			n.handleInbound(ctx, in)
		}
	}
}

func (n *Node[T]) handleInbound(ctx context.Context, in InboundMessage) {
	sender, replyID, ok := senderOf[T](in.Message)
	if ok {
		n.learn(sender, in.From, claimedEndpoints(n.endpoints, in.Message))
	}

	switch in.Message.Kind {
	case wire.KindPingRequest:
		n.handlePing(ctx, in.From, replyID, in.Message.PingRequest)
	case wire.KindStoreRequest:
		n.handleStore(ctx, in.From, replyID, in.Message.StoreRequest)
	case wire.KindFindNodeRequest:
		n.handleFindNode(ctx, in.From, replyID, in.Message.FindNodeRequest)
	case wire.KindFindValueRequest:
		n.handleFindValue(ctx, in.From, replyID, in.Message.FindValueRequest)
	case wire.KindPingResponse, wire.KindStoreResponse, wire.KindFindNodeResponse, wire.KindFindValueResponse:
		n.correlation.Resolve(in.From, replyID, in.Message)
	}
}

// senderOf extracts the claimed sender identifier and ReplyID carried by
// every message's Header, regardless of which union arm is populated.
func senderOf[T NodeID[T]](msg wire.Message) (T, uint32, bool) {
	var header wire.Header
	switch {
	case msg.PingRequest != nil:
		header = msg.PingRequest.Header
	case msg.PingResponse != nil:
		header = msg.PingResponse.Header
	case msg.StoreRequest != nil:
		header = msg.StoreRequest.Header
	case msg.StoreResponse != nil:
		header = msg.StoreResponse.Header
	case msg.FindNodeRequest != nil:
		header = msg.FindNodeRequest.Header
	case msg.FindNodeResponse != nil:
		header = msg.FindNodeResponse.Header
	case msg.FindValueRequest != nil:
		header = msg.FindValueRequest.Header
	case msg.FindValueResponse != nil:
		header = msg.FindValueResponse.Header
	default:
		var zero T
		return zero, 0, false
	}
	id, err := ParseID[T](header.Sender)
	if err != nil {
		var zero T
		return zero, header.ReplyID, false
	}
	return id, header.ReplyID, true
}

// claimedEndpoints extracts the endpoint list a peer advertised about
// itself, carried only by PingRequest/PingResponse per spec.md §4.7; any
// other message kind claims nothing beyond its transport-observed
// source address, which the caller folds in separately.
func claimedEndpoints(registry *EndpointRegistry, msg wire.Message) []Endpoint {
	var uris []string
	switch {
	case msg.PingRequest != nil:
		uris = msg.PingRequest.Endpoints
	case msg.PingResponse != nil:
		uris = msg.PingResponse.Endpoints
	default:
		return nil
	}
	out := make([]Endpoint, 0, len(uris))
	for _, u := range uris {
		out = append(out, registry.Resolve(u))
	}
	return out
}

func (n *Node[T]) handlePing(ctx context.Context, from Endpoint, replyID uint32, req *wire.PingRequest) {
	if req == nil {
		return
	}
	resp := wire.Message{
		Kind: wire.KindPingResponse,
		PingResponse: &wire.PingResponse{
			Header:    headerFor(n.self, replyID),
			Status:    wire.StatusSuccess,
			Endpoints: n.transport.LocalEndpoints(),
		},
	}
	_ = n.transport.Send(ctx, from, resp)
}

func (n *Node[T]) handleFindNode(ctx context.Context, from Endpoint, replyID uint32, req *wire.FindNodeRequest) {
	if req == nil {
		return
	}
	target, err := ParseID[T](req.Key)
	status := wire.StatusSuccess
	var nodes []wire.Node
	if err != nil {
		status = wire.StatusInvalid
	} else {
		nodes = peersToWire(n.routing.Closest(target, n.cfg.K))
	}
	resp := wire.Message{
		Kind: wire.KindFindNodeResponse,
		FindNodeResponse: &wire.FindNodeResponse{
			Header: headerFor(n.self, replyID),
			Status: status,
			Nodes:  nodes,
		},
	}
	_ = n.transport.Send(ctx, from, resp)
}

func (n *Node[T]) handleFindValue(ctx context.Context, from Endpoint, replyID uint32, req *wire.FindValueRequest) {
	if req == nil {
		return
	}
	key, err := ParseID[T](req.Key)
	if err != nil {
		resp := wire.Message{
			Kind: wire.KindFindValueResponse,
			FindValueResponse: &wire.FindValueResponse{
				Header: headerFor(n.self, replyID),
				Status: wire.StatusInvalid,
			},
		}
		_ = n.transport.Send(ctx, from, resp)
		return
	}

	resp := wire.FindValueResponse{
		Header: headerFor(n.self, replyID),
		Status: wire.StatusSuccess,
	}
	if entry, ok := n.store.Get(key); ok {
		resp.HasValue = true
		resp.Value = &wire.ValueInfo{
			Data:    entry.Data,
			Version: entry.Version,
			TTLMS:   entry.ExpiresAt.Sub(n.clock.Now()).Milliseconds(),
		}
	} else {
		resp.Nodes = peersToWire(n.routing.Closest(key, n.cfg.K))
	}
	_ = n.transport.Send(ctx, from, wire.Message{Kind: wire.KindFindValueResponse, FindValueResponse: &resp})
}

func (n *Node[T]) handleStore(ctx context.Context, from Endpoint, replyID uint32, req *wire.StoreRequest) {
	if req == nil {
		return
	}
	status := wire.StatusSuccess
	key, err := ParseID[T](req.Key)
	switch {
	case err != nil:
		status = wire.StatusInvalid
	case !req.HasValue || req.Value == nil:
		status = wire.StatusInvalid
	default:
		ttl := msToDuration(req.Value.TTLMS)
		if _, putErr := n.store.Put(key, req.Value.Data, req.Value.Version, req.Mode, ttl, n.cfg.RepublishInterval, n.cfg.ReplicateInterval); putErr != nil {
			status = wire.StatusFailure
		}
	}
	resp := wire.Message{
		Kind: wire.KindStoreResponse,
		StoreResponse: &wire.StoreResponse{
			Header: headerFor(n.self, replyID),
			Status: status,
		},
	}
	_ = n.transport.Send(ctx, from, resp)
}

func peersToWire[T NodeID[T]](peers []PeerEntry[T]) []wire.Node {
	out := make([]wire.Node, len(peers))
	for i, p := range peers {
		uris := make([]string, len(p.Endpoints))
		for j, ep := range p.Endpoints {
			uris[j] = ep.URI()
		}
		out[i] = wire.Node{ID: p.ID.Bytes(), Endpoints: uris}
	}
	return out
}
