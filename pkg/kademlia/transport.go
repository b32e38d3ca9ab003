package kademlia

import (
	"context"

	"github.com/shadowmesh/kademlia/pkg/wire"
)

// InboundMessage pairs a received message with the endpoint it arrived
// from, as resolved by the transport (not as claimed in the message's
// own Header.Sender, which the handler validates separately).
type InboundMessage struct {
	From    Endpoint
	Message wire.Message
}

// MessageTransport is the one collaborator the core needs to move bytes.
// pkg/transport provides UDP, QUIC, and WebSocket implementations; tests
// use an in-memory implementation to run multi-node scenarios without a
// socket. The core never encodes or decodes wire bytes itself — encoding
// is the codec's job, framing and delivery is the transport's.
type MessageTransport interface {
	// Send delivers msg to ep. It does not wait for a response; response
	// correlation is the CorrelationQueue's job, driven by Inbound.
	Send(ctx context.Context, ep Endpoint, msg wire.Message) error

	// Inbound returns the channel of messages received from any peer.
	// The transport closes it when the transport is closed.
	Inbound() <-chan InboundMessage

	// LocalEndpoints returns the URIs this transport is reachable at,
	// advertised in PingRequest/PingResponse so peers learn how to reach
	// this node back.
	LocalEndpoints() []string

	// Close releases the transport's resources.
	Close() error
}
