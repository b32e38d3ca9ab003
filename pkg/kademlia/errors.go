package kademlia

import "errors"

// Sentinel errors for the discriminants in spec §7. Callers match with
// errors.Is. The background loops stop on context cancellation or Close
// and do not inspect or log these values.
var (
	// ErrTimeout: no response arrived within an RPC's deadline.
	ErrTimeout = errors.New("kademlia: request timed out")

	// ErrEndpointNotAvailable: every endpoint of a peer failed within the
	// request deadline.
	ErrEndpointNotAvailable = errors.New("kademlia: no reachable endpoint")

	// ErrProtocolMismatch: the message sequence's network field doesn't
	// match ours; the message is dropped with no reply.
	ErrProtocolMismatch = errors.New("kademlia: protocol/network mismatch")

	// ErrSelfReference: bucket index requested for self against self.
	ErrSelfReference = errors.New("kademlia: self-reference has no bucket index")

	// ErrStaleVersion: a STORE arrived with version <= the currently held
	// version for that key.
	ErrStaleVersion = errors.New("kademlia: stale store version")

	// ErrCancelled: the calling context was cancelled. Not logged as an
	// error at loop boundaries.
	ErrCancelled = errors.New("kademlia: operation cancelled")

	// ErrNotFound: no value held locally for a requested key.
	ErrNotFound = errors.New("kademlia: key not found")

	// ErrEmptyRoutingTable: a lookup was seeded from a routing table that
	// holds no peers at all.
	ErrEmptyRoutingTable = errors.New("kademlia: routing table is empty")
)
