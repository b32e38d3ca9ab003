package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/shadowmesh/kademlia/pkg/kademlia"
	"github.com/shadowmesh/kademlia/pkg/transport"
	"github.com/shadowmesh/kademlia/pkg/wire"
)

func TestMemoryTransportDeliversMessage(t *testing.T) {
	net := transport.NewMemoryNetwork()
	a := net.NewTransport("mem://a")
	b := net.NewTransport("mem://b")
	defer a.Close()
	defer b.Close()

	registry := kademlia.NewEndpointRegistry()
	msg := wire.Message{Kind: wire.KindPingRequest, PingRequest: &wire.PingRequest{}}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.Send(ctx, registry.Resolve("mem://b"), msg); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case in := <-b.Inbound():
		if in.Message.Kind != wire.KindPingRequest {
			t.Errorf("got kind %v, want PingRequest", in.Message.Kind)
		}
		if in.From.URI() != "mem://a" {
			t.Errorf("from = %q, want mem://a", in.From.URI())
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestMemoryTransportSendToUnknownEndpointFails(t *testing.T) {
	net := transport.NewMemoryNetwork()
	a := net.NewTransport("mem://a")
	defer a.Close()

	registry := kademlia.NewEndpointRegistry()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := a.Send(ctx, registry.Resolve("mem://ghost"), wire.Message{})
	if err == nil {
		t.Error("expected send to an unregistered endpoint to fail")
	}
}
