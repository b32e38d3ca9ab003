package kademlia

import (
	"context"
	"testing"
	"time"

	"github.com/shadowmesh/kademlia/pkg/wire"
)

func TestCorrelationQueueResolve(t *testing.T) {
	q := NewCorrelationQueue()
	ep := Endpoint{}
	const replyID = 42

	done := make(chan wire.Message, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		msg, err := q.Wait(ctx, ep, replyID)
		if err != nil {
			t.Errorf("wait failed: %v", err)
		}
		done <- msg
	}()

	// Give Wait a moment to register before resolving.
	time.Sleep(10 * time.Millisecond)
	want := wire.Message{Kind: wire.KindPingResponse, PingResponse: &wire.PingResponse{}}
	if !q.Resolve(ep, replyID, want) {
		t.Fatal("expected Resolve to find the pending wait")
	}

	select {
	case got := <-done:
		if got.Kind != want.Kind {
			t.Errorf("got kind %v, want %v", got.Kind, want.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for resolution")
	}
}

func TestCorrelationQueueResolveUnknownKeyReturnsFalse(t *testing.T) {
	q := NewCorrelationQueue()
	if q.Resolve(Endpoint{}, 1, wire.Message{}) {
		t.Error("expected Resolve to report false for an unregistered key")
	}
}

func TestCorrelationQueueWaitTimesOut(t *testing.T) {
	q := NewCorrelationQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := q.Wait(ctx, Endpoint{}, 1); err != ErrTimeout {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}
