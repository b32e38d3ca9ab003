package transport

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/quic-go/quic-go"

	"github.com/shadowmesh/kademlia/pkg/codec"
	"github.com/shadowmesh/kademlia/pkg/kademlia"
	"github.com/shadowmesh/kademlia/pkg/wire"
)

// QUICTransport carries each MessageSequence on its own QUIC stream,
// length-prefixed, grounded on the teacher's pkg/transport/quic.go
// listener/dial shape but retargeted from raw frame streaming to
// MessageSequence delivery. Connections to a given endpoint are dialed
// lazily and cached for reuse.
type QUICTransport struct {
	listener *quic.Listener
	tlsConf  *tls.Config
	quicConf *quic.Config
	codec    codec.Codec
	network  uint64
	registry *kademlia.EndpointRegistry

	local []string

	mu    sync.Mutex
	conns map[string]quic.Connection

	inbound   chan kademlia.InboundMessage
	closeOnce sync.Once
}

// NewQUICTransport listens on listenAddr using the given TLS
// certificate, required by QUIC's mandatory transport encryption.
func NewQUICTransport(listenAddr, certFile, keyFile string, c codec.Codec, network uint64) (*QUICTransport, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load tls keypair: %w", err)
	}
	tlsConf := &tls.Config{Certificates: []tls.Certificate{cert}, NextProtos: []string{"kademlia"}}
	quicConf := &quic.Config{}

	ln, err := quic.ListenAddr(listenAddr, tlsConf, quicConf)
	if err != nil {
		return nil, fmt.Errorf("quic listen: %w", err)
	}

	t := &QUICTransport{
		listener: ln,
		tlsConf:  tlsConf,
		quicConf: quicConf,
		codec:    c,
		network:  network,
		registry: kademlia.NewEndpointRegistry(),
		local:    []string{fmt.Sprintf("quic://%s", ln.Addr().String())},
		conns:    make(map[string]quic.Connection),
		inbound:  make(chan kademlia.InboundMessage, 256),
	}
	go t.acceptLoop()
	return t, nil
}

func (t *QUICTransport) acceptLoop() {
	ctx := context.Background()
	for {
		conn, err := t.listener.Accept(ctx)
		if err != nil {
			close(t.inbound)
			return
		}
		go t.serveConn(conn)
	}
}

func (t *QUICTransport) serveConn(conn quic.Connection) {
	ep := t.registry.Resolve(fmt.Sprintf("quic://%s", conn.RemoteAddr().String()))
	ctx := context.Background()
	for {
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			return
		}
		go t.serveStream(ep, stream)
	}
}

func (t *QUICTransport) serveStream(ep kademlia.Endpoint, stream quic.Stream) {
	defer stream.Close()
	payload, err := readLengthPrefixed(stream)
	if err != nil {
		return
	}
	seq, err := t.codec.Decode(payload)
	if err != nil || seq.Network != t.network {
		return
	}
	for _, m := range seq.Messages {
		select {
		case t.inbound <- kademlia.InboundMessage{From: ep, Message: m}:
		default:
		}
	}
}

func (t *QUICTransport) dial(ctx context.Context, uri string) (quic.Connection, error) {
	t.mu.Lock()
	if conn, ok := t.conns[uri]; ok {
		t.mu.Unlock()
		return conn, nil
	}
	t.mu.Unlock()

	addr, err := parseHostEndpoint("quic://", uri)
	if err != nil {
		return nil, err
	}
	conn, err := quic.DialAddr(ctx, addr, t.tlsConf, t.quicConf)
	if err != nil {
		return nil, fmt.Errorf("quic dial: %w", err)
	}

	t.mu.Lock()
	t.conns[uri] = conn
	t.mu.Unlock()
	return conn, nil
}

// Send opens a fresh stream to ep's connection (dialing it if needed)
// and writes msg as a length-prefixed, single-message MessageSequence.
func (t *QUICTransport) Send(ctx context.Context, ep kademlia.Endpoint, msg wire.Message) error {
	conn, err := t.dial(ctx, ep.URI())
	if err != nil {
		return err
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		t.mu.Lock()
		delete(t.conns, ep.URI())
		t.mu.Unlock()
		return fmt.Errorf("open quic stream: %w", err)
	}
	defer stream.Close()

	seq := &wire.MessageSequence{Version: wire.ProtocolVersion, Network: t.network, Messages: []wire.Message{msg}}
	payload, err := t.codec.Encode(seq)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return writeLengthPrefixed(stream, payload)
}

// Inbound returns the channel of messages received on any stream.
func (t *QUICTransport) Inbound() <-chan kademlia.InboundMessage { return t.inbound }

// LocalEndpoints returns this transport's own QUIC listen address.
func (t *QUICTransport) LocalEndpoints() []string { return t.local }

// Close shuts the listener and every cached connection down.
func (t *QUICTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.mu.Lock()
		for _, c := range t.conns {
			_ = c.CloseWithError(0, "transport closed")
		}
		t.mu.Unlock()
		err = t.listener.Close()
	})
	return err
}

func writeLengthPrefixed(w io.Writer, payload []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readLengthPrefixed(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(header[:])
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func parseHostEndpoint(prefix, uri string) (string, error) {
	if len(uri) <= len(prefix) || uri[:len(prefix)] != prefix {
		return "", fmt.Errorf("not a %s endpoint: %s", prefix, uri)
	}
	host := uri[len(prefix):]
	if _, _, err := net.SplitHostPort(host); err != nil {
		return "", fmt.Errorf("invalid endpoint host:port %q: %w", host, err)
	}
	return host, nil
}
