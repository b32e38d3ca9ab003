package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/shadowmesh/kademlia/pkg/codec"
	"github.com/shadowmesh/kademlia/pkg/kademlia"
	"github.com/shadowmesh/kademlia/pkg/wire"
)

// WebSocketTransport carries MessageSequences as binary WebSocket
// frames, grounded on the teacher's shared/networking/transport.go
// send/recv pump goroutines, retargeted from VPN data-plane framing to
// MessageSequence delivery. One persistent connection per peer is
// dialed lazily and fed by a dedicated writer goroutine.
type WebSocketTransport struct {
	server   *http.Server
	upgrader websocket.Upgrader
	codec    codec.Codec
	network  uint64
	registry *kademlia.EndpointRegistry

	local []string

	mu    sync.Mutex
	peers map[string]*wsPeer

	inbound   chan kademlia.InboundMessage
	closeOnce sync.Once
}

type wsPeer struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewWebSocketTransport starts an HTTP server on listenAddr upgrading
// every connection to path "/kademlia" to a WebSocket.
func NewWebSocketTransport(listenAddr string, c codec.Codec, network uint64) (*WebSocketTransport, error) {
	t := &WebSocketTransport{
		codec:    c,
		network:  network,
		registry: kademlia.NewEndpointRegistry(),
		local:    []string{fmt.Sprintf("ws://%s/kademlia", listenAddr)},
		peers:    make(map[string]*wsPeer),
		inbound:  make(chan kademlia.InboundMessage, 256),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/kademlia", t.handleUpgrade)
	t.server = &http.Server{Addr: listenAddr, Handler: mux}

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen websocket: %w", err)
	}
	go t.server.Serve(ln)
	return t, nil
}

func (t *WebSocketTransport) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	uri := fmt.Sprintf("ws://%s/kademlia", r.RemoteAddr)
	peer := t.registerPeer(uri, conn)
	t.pumpRead(uri, peer)
}

func (t *WebSocketTransport) registerPeer(uri string, conn *websocket.Conn) *wsPeer {
	peer := &wsPeer{conn: conn, send: make(chan []byte, 64)}
	t.mu.Lock()
	t.peers[uri] = peer
	t.mu.Unlock()
	go t.pumpWrite(peer)
	return peer
}

func (t *WebSocketTransport) pumpWrite(peer *wsPeer) {
	for payload := range peer.send {
		if err := peer.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
			return
		}
	}
}

func (t *WebSocketTransport) pumpRead(uri string, peer *wsPeer) {
	ep := t.registry.Resolve(uri)
	defer func() {
		t.mu.Lock()
		delete(t.peers, uri)
		t.mu.Unlock()
		peer.once.Do(func() { close(peer.send) })
		peer.conn.Close()
	}()

	for {
		_, payload, err := peer.conn.ReadMessage()
		if err != nil {
			return
		}
		seq, err := t.codec.Decode(payload)
		if err != nil || seq.Network != t.network {
			continue
		}
		for _, m := range seq.Messages {
			select {
			case t.inbound <- kademlia.InboundMessage{From: ep, Message: m}:
			default:
			}
		}
	}
}

func (t *WebSocketTransport) dial(uri string) (*wsPeer, error) {
	t.mu.Lock()
	if peer, ok := t.peers[uri]; ok {
		t.mu.Unlock()
		return peer, nil
	}
	t.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(uri, nil)
	if err != nil {
		return nil, fmt.Errorf("dial websocket: %w", err)
	}
	peer := t.registerPeer(uri, conn)
	go t.pumpRead(uri, peer)
	return peer, nil
}

// Send encodes msg and queues it on the peer's dedicated writer
// goroutine, dialing the peer first if no connection is open yet.
func (t *WebSocketTransport) Send(ctx context.Context, ep kademlia.Endpoint, msg wire.Message) error {
	peer, err := t.dial(ep.URI())
	if err != nil {
		return err
	}
	seq := &wire.MessageSequence{Version: wire.ProtocolVersion, Network: t.network, Messages: []wire.Message{msg}}
	payload, err := t.codec.Encode(seq)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	select {
	case peer.send <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inbound returns the channel of messages received from any peer.
func (t *WebSocketTransport) Inbound() <-chan kademlia.InboundMessage { return t.inbound }

// LocalEndpoints returns this transport's own WebSocket URL.
func (t *WebSocketTransport) LocalEndpoints() []string { return t.local }

// Close shuts the HTTP server and every peer connection down.
func (t *WebSocketTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.mu.Lock()
		for _, peer := range t.peers {
			peer.conn.Close()
		}
		t.mu.Unlock()
		err = t.server.Close()
	})
	return err
}
