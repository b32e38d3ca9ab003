package kademlia

import (
	"sync"
)

// Endpoint is an opaque handle identifying a reachable transport address
// (e.g. "udp://10.0.0.1:9000"). Equality is structural: two Endpoints
// describing the same URI compare equal, so success/timeout events for
// one URI are indistinguishable whichever PeerEntry referenced it.
// Endpoint is comparable and safe to use as a map key.
type Endpoint struct {
	uri string
}

// URI returns the canonical transport URI this endpoint resolves to.
func (e Endpoint) URI() string { return e.uri }

func (e Endpoint) String() string { return e.uri }

// EndpointEvent is published by the registry whenever an RPC against an
// endpoint succeeds or times out. Nothing in this package subscribes;
// bucket eviction is driven by the node's own probe ping instead.
type EndpointEvent struct {
	Endpoint Endpoint
	Kind     EndpointEventKind
}

// EndpointEventKind discriminates EndpointEvent.
type EndpointEventKind int

const (
	EndpointSuccess EndpointEventKind = iota
	EndpointTimeout
)

// EndpointRegistry canonicalizes transport URIs into Endpoint handles and
// fans success/timeout telemetry out to subscribers. It makes no policy
// decisions of its own; buckets and the invoker are the policy layer.
type EndpointRegistry struct {
	mu          sync.RWMutex
	subscribers []chan<- EndpointEvent
}

// NewEndpointRegistry returns an empty registry.
func NewEndpointRegistry() *EndpointRegistry {
	return &EndpointRegistry{}
}

// Resolve returns the canonical Endpoint for uri. Endpoint equality is
// defined purely by the URI string, so Resolve never needs to hold
// anything beyond returning the wrapper value itself; the "registry" part
// of the name refers to the event fan-out below, not an identity table.
func (r *EndpointRegistry) Resolve(uri string) Endpoint {
	return Endpoint{uri: uri}
}

// Subscribe registers ch to receive every future endpoint event. The
// caller must keep draining ch; Subscribe never blocks callers of
// OnSuccess/OnTimeout on a slow subscriber beyond one buffered send slot.
func (r *EndpointRegistry) Subscribe(ch chan<- EndpointEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, ch)
}

// OnSuccess records a successful RPC against ep and notifies subscribers.
func (r *EndpointRegistry) OnSuccess(ep Endpoint) { r.publish(EndpointEvent{ep, EndpointSuccess}) }

// OnTimeout records a timed-out RPC against ep and notifies subscribers.
func (r *EndpointRegistry) OnTimeout(ep Endpoint) { r.publish(EndpointEvent{ep, EndpointTimeout}) }

func (r *EndpointRegistry) publish(ev EndpointEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ch := range r.subscribers {
		select {
		case ch <- ev:
		default:
			// Subscriber isn't keeping up; drop rather than block the
			// success/timeout caller (usually the invoker's hot path).
		}
	}
}
