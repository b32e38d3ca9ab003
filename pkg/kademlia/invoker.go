package kademlia

import (
	"context"

	"github.com/shadowmesh/kademlia/pkg/wire"
)

// doRequest sends msg to each candidate endpoint in order until one
// answers or the list is exhausted, reporting the endpoint that
// answered so the caller can learn it. Trying endpoints in preference
// order (most-recently-confirmed first, typically) means a peer that
// changed address is only slow to reach, never unreachable, as long as
// one of its advertised endpoints still works.
func (n *Node[T]) doRequest(ctx context.Context, candidates []Endpoint, msg wire.Message, replyID uint32) (wire.Message, Endpoint, error) {
	if len(candidates) == 0 {
		return wire.Message{}, Endpoint{}, ErrEndpointNotAvailable
	}

	var lastErr error
	for _, ep := range candidates {
		reqCtx, cancel := context.WithTimeout(ctx, n.cfg.RequestTimeout)
		sendErr := n.transport.Send(reqCtx, ep, msg)
		if sendErr != nil {
			cancel()
			lastErr = sendErr
			continue
		}

		resp, err := n.correlation.Wait(reqCtx, ep, replyID)
		cancel()
		if err != nil {
			n.endpoints.OnTimeout(ep)
			lastErr = err
			continue
		}
		n.endpoints.OnSuccess(ep)
		return resp, ep, nil
	}
	if lastErr == nil {
		lastErr = ErrEndpointNotAvailable
	}
	return wire.Message{}, Endpoint{}, lastErr
}

// ping tries each of candidates in preference order until one answers a
// PING and returns the responder's advertised endpoints.
func (n *Node[T]) ping(ctx context.Context, candidates []Endpoint) ([]string, error) {
	replyID := n.nextReplyID()
	req := wire.Message{
		Kind: wire.KindPingRequest,
		PingRequest: &wire.PingRequest{
			Header:    headerFor(n.self, replyID),
			Endpoints: n.transport.LocalEndpoints(),
		},
	}
	resp, _, err := n.doRequest(ctx, candidates, req, replyID)
	if err != nil {
		return nil, err
	}
	if resp.PingResponse == nil {
		return nil, ErrProtocolMismatch
	}
	return resp.PingResponse.Endpoints, nil
}

// sendFindNode asks the first reachable of candidates for its closest
// known peers to target.
func (n *Node[T]) sendFindNode(ctx context.Context, candidates []Endpoint, target T) ([]wire.Node, error) {
	replyID := n.nextReplyID()
	req := wire.Message{
		Kind: wire.KindFindNodeRequest,
		FindNodeRequest: &wire.FindNodeRequest{
			Header: headerFor(n.self, replyID),
			Key:    target.Bytes(),
		},
	}
	resp, _, err := n.doRequest(ctx, candidates, req, replyID)
	if err != nil {
		return nil, err
	}
	if resp.FindNodeResponse == nil {
		return nil, ErrProtocolMismatch
	}
	return resp.FindNodeResponse.Nodes, nil
}

// sendFindValue asks the first reachable of candidates for a value, or
// its closest peers if it doesn't hold one.
func (n *Node[T]) sendFindValue(ctx context.Context, candidates []Endpoint, key T) (*wire.ValueInfo, []wire.Node, error) {
	replyID := n.nextReplyID()
	req := wire.Message{
		Kind: wire.KindFindValueRequest,
		FindValueRequest: &wire.FindValueRequest{
			Header: headerFor(n.self, replyID),
			Key:    key.Bytes(),
		},
	}
	resp, _, err := n.doRequest(ctx, candidates, req, replyID)
	if err != nil {
		return nil, nil, err
	}
	if resp.FindValueResponse == nil {
		return nil, nil, ErrProtocolMismatch
	}
	if resp.FindValueResponse.HasValue {
		return resp.FindValueResponse.Value, nil, nil
	}
	return nil, resp.FindValueResponse.Nodes, nil
}

// sendStore pushes a value to the first reachable of candidates under
// the given mode.
func (n *Node[T]) sendStore(ctx context.Context, candidates []Endpoint, key T, value wire.ValueInfo, mode wire.StoreMode) error {
	replyID := n.nextReplyID()
	req := wire.Message{
		Kind: wire.KindStoreRequest,
		StoreRequest: &wire.StoreRequest{
			Header:   headerFor(n.self, replyID),
			Key:      key.Bytes(),
			Mode:     mode,
			HasValue: true,
			Value:    &value,
		},
	}
	resp, _, err := n.doRequest(ctx, candidates, req, replyID)
	if err != nil {
		return err
	}
	if resp.StoreResponse == nil {
		return ErrProtocolMismatch
	}
	if resp.StoreResponse.Status != wire.StatusSuccess {
		return ErrStaleVersion
	}
	return nil
}
