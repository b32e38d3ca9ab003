package kademlia

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/ipv4"

	"github.com/shadowmesh/kademlia/pkg/codec"
	"github.com/shadowmesh/kademlia/pkg/wire"
)

// MulticastDiscovery announces this node's presence on a LAN multicast
// group and bootstraps from the replies it hears back, so a cluster of
// nodes on the same link can find each other without a configured seed
// list. It is independent of the node's main MessageTransport: discovery
// traffic is a handful of bytes every few seconds, not DHT RPC traffic,
// but it speaks the same wire.MessageSequence schema through the same
// codec abstraction rather than a bespoke datagram layout.
type MulticastDiscovery[T NodeID[T]] struct {
	node    *Node[T]
	codec   codec.Codec
	group   *net.UDPAddr
	conn    *net.UDPConn
	packet  *ipv4.PacketConn
	network uint64
}

// NewMulticastDiscovery joins groupAddr (e.g. "239.23.0.1:9999") on
// the system-chosen default multicast interface (not on every
// interface) and returns a discovery helper
// scoped to network, matching the MessageSequence.Network field so
// unrelated DHTs sharing a LAN never bootstrap into each other. c
// encodes and decodes the PING request/response pair exchanged over
// the group, the same codec the node's main transport was configured
// with.
func NewMulticastDiscovery[T NodeID[T]](node *Node[T], groupAddr string, network uint64, c codec.Codec) (*MulticastDiscovery[T], error) {
	group, err := net.ResolveUDPAddr("udp4", groupAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve multicast group: %w", err)
	}
	conn, err := net.ListenMulticastUDP("udp4", nil, group)
	if err != nil {
		return nil, fmt.Errorf("listen multicast: %w", err)
	}
	packetConn := ipv4.NewPacketConn(conn)
	if err := packetConn.SetMulticastLoopback(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("disable multicast loopback: %w", err)
	}
	return &MulticastDiscovery[T]{node: node, codec: c, group: group, conn: conn, packet: packetConn, network: network}, nil
}

// Announce broadcasts a PING request naming endpoints as the addresses
// peers should reply to. It carries no response of its own: replies
// come back as unicast PingResponse datagrams handled by Listen.
func (d *MulticastDiscovery[T]) Announce(endpoints ...string) error {
	seq := &wire.MessageSequence{
		Version: wire.ProtocolVersion,
		Network: d.network,
		Messages: []wire.Message{{
			Kind: wire.KindPingRequest,
			PingRequest: &wire.PingRequest{
				Header:    headerFor(d.node.self, d.node.nextReplyID()),
				Endpoints: endpoints,
			},
		}},
	}
	data, err := d.codec.Encode(seq)
	if err != nil {
		return fmt.Errorf("encode announcement: %w", err)
	}
	_, err = d.conn.WriteToUDP(data, d.group)
	return err
}

// Listen reads the multicast socket until ctx is cancelled. On hearing
// another node's PING broadcast it unicasts a PING response straight
// back to the sender's source address rather than bootstrapping on the
// spot — only the node that *sent* the announcement (now holding a
// reply with the responder's endpoints) has enough information to run
// a proper Connect, so that side does the bootstrapping.
func (d *MulticastDiscovery[T]) Listen(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		d.conn.Close()
	}()

	buf := make([]byte, 1500)
	for {
		nRead, srcAddr, err := d.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		seq, err := d.codec.Decode(buf[:nRead])
		if err != nil || seq.Network != d.network {
			continue
		}
		for _, msg := range seq.Messages {
			d.handle(ctx, msg, srcAddr)
		}
	}
}

func (d *MulticastDiscovery[T]) handle(ctx context.Context, msg wire.Message, srcAddr *net.UDPAddr) {
	switch {
	case msg.PingRequest != nil:
		d.handlePingRequest(msg.PingRequest, srcAddr)
	case msg.PingResponse != nil:
		d.handlePingResponse(ctx, msg.PingResponse, srcAddr)
	}
}

func (d *MulticastDiscovery[T]) handlePingRequest(req *wire.PingRequest, srcAddr *net.UDPAddr) {
	sender, err := ParseID[T](req.Header.Sender)
	if err != nil || sender.Equal(d.node.self) {
		return
	}
	resp := &wire.MessageSequence{
		Version: wire.ProtocolVersion,
		Network: d.network,
		Messages: []wire.Message{{
			Kind: wire.KindPingResponse,
			PingResponse: &wire.PingResponse{
				Header:    headerFor(d.node.self, req.Header.ReplyID),
				Status:    wire.StatusSuccess,
				Endpoints: d.node.transport.LocalEndpoints(),
			},
		}},
	}
	data, err := d.codec.Encode(resp)
	if err != nil {
		return
	}
	_, _ = d.conn.WriteToUDP(data, srcAddr)
}

func (d *MulticastDiscovery[T]) handlePingResponse(ctx context.Context, resp *wire.PingResponse, srcAddr *net.UDPAddr) {
	sender, err := ParseID[T](resp.Header.Sender)
	if err != nil || sender.Equal(d.node.self) {
		return
	}
	uri := srcAddr.String()
	if len(resp.Endpoints) > 0 {
		uri = resp.Endpoints[0]
	}
	go func() {
		bootstrapCtx, cancel := context.WithTimeout(ctx, d.node.cfg.RequestTimeout*2)
		defer cancel()
		_ = d.node.Bootstrap(bootstrapCtx, d.node.endpoints.Resolve(uri))
	}()
}

// Close releases the multicast socket.
func (d *MulticastDiscovery[T]) Close() error {
	return d.conn.Close()
}
