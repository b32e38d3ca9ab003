// Package transport provides kademlia.MessageTransport implementations:
// UDP (the primary, connectionless transport), QUIC and WebSocket
// (stream-based alternatives behind the same interface), and an
// in-memory transport used by tests to run multi-node scenarios without
// a socket.
package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/shadowmesh/kademlia/pkg/codec"
	"github.com/shadowmesh/kademlia/pkg/kademlia"
	"github.com/shadowmesh/kademlia/pkg/wire"
)

const maxDatagramSize = 65507

// UDPTransport sends and receives MessageSequences as single UDP
// datagrams, grounded on the teacher's net.UDPConn handling in
// pkg/p2p/udp_connection.go. It is connectionless: there is no dial step,
// every peer is addressed per-send.
type UDPTransport struct {
	conn     *net.UDPConn
	codec    codec.Codec
	network  uint64
	registry *kademlia.EndpointRegistry

	local []string

	inbound chan kademlia.InboundMessage

	closeOnce sync.Once
}

// NewUDPTransport binds listenAddr and returns a transport that encodes
// with the given codec and tags every sequence with network.
func NewUDPTransport(listenAddr string, c codec.Codec, network uint64) (*UDPTransport, error) {
	addr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve udp addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}

	t := &UDPTransport{
		conn:     conn,
		codec:    c,
		network:  network,
		registry: kademlia.NewEndpointRegistry(),
		local:    []string{fmt.Sprintf("udp://%s", conn.LocalAddr().String())},
		inbound:  make(chan kademlia.InboundMessage, 256),
	}
	go t.readLoop()
	return t, nil
}

// Send encodes msg as a single-message MessageSequence and writes it to
// ep's UDP address in one datagram.
func (t *UDPTransport) Send(ctx context.Context, ep kademlia.Endpoint, msg wire.Message) error {
	addr, err := parseUDPEndpoint(ep.URI())
	if err != nil {
		return err
	}
	seq := &wire.MessageSequence{Version: wire.ProtocolVersion, Network: t.network, Messages: []wire.Message{msg}}
	payload, err := t.codec.Encode(seq)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if len(payload) > maxDatagramSize {
		return fmt.Errorf("encoded message exceeds UDP datagram size: %d bytes", len(payload))
	}

	deadline, ok := ctx.Deadline()
	if ok {
		_ = t.conn.SetWriteDeadline(deadline)
	}
	_, err = t.conn.WriteToUDP(payload, addr)
	return err
}

func (t *UDPTransport) readLoop() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			close(t.inbound)
			return
		}
		seq, err := t.codec.Decode(buf[:n])
		if err != nil || seq.Network != t.network {
			continue
		}
		ep := t.registry.Resolve(fmt.Sprintf("udp://%s", from.String()))
		for _, m := range seq.Messages {
			select {
			case t.inbound <- kademlia.InboundMessage{From: ep, Message: m}:
			default:
				// Inbound queue saturated; drop rather than block the
				// socket reader and stall every other peer's traffic.
			}
		}
	}
}

// Inbound returns the channel of messages received from any peer.
func (t *UDPTransport) Inbound() <-chan kademlia.InboundMessage { return t.inbound }

// LocalEndpoints returns this transport's own UDP listen address.
func (t *UDPTransport) LocalEndpoints() []string { return t.local }

// Close shuts down the UDP socket, ending the read loop.
func (t *UDPTransport) Close() error {
	var err error
	t.closeOnce.Do(func() { err = t.conn.Close() })
	return err
}

func parseUDPEndpoint(uri string) (*net.UDPAddr, error) {
	const prefix = "udp://"
	if len(uri) <= len(prefix) || uri[:len(prefix)] != prefix {
		return nil, fmt.Errorf("not a udp endpoint: %s", uri)
	}
	return net.ResolveUDPAddr("udp", uri[len(prefix):])
}
