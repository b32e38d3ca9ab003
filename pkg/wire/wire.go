// Package wire defines the on-wire message schema shared by every codec
// and transport. The core (pkg/kademlia) exchanges wire.Message values
// with a kademlia.MessageTransport; turning them into bytes is left to
// pkg/codec.
package wire

// ProtocolVersion identifies the wire schema version carried in every
// MessageSequence.
const ProtocolVersion uint8 = 1

// Status is the outcome of a Response.
type Status uint8

const (
	StatusSuccess Status = 0
	StatusFailure Status = 1
	StatusInvalid Status = 2
)

// StoreMode tags a STORE as Primary or Replica; pkg/kademlia uses this
// type directly for its store entries.
type StoreMode uint8

const (
	ModePrimary StoreMode = 0
	ModeReplica StoreMode = 1
)

// Header is carried by every Request and every Response.
type Header struct {
	Sender  []byte `json:"sender" msgpack:"sender"`   // NodeId bytes
	ReplyID uint32 `json:"replyId" msgpack:"replyId"` // sender-chosen correlation token
}

// Node is a peer reference: an id plus the endpoints it claims to be
// reachable at.
type Node struct {
	ID        []byte   `json:"id" msgpack:"id"`
	Endpoints []string `json:"endpoints" msgpack:"endpoints"`
}

// ValueInfo is the payload of a stored value.
type ValueInfo struct {
	Data    []byte `json:"data" msgpack:"data"`
	Version uint64 `json:"version" msgpack:"version"`
	TTLMS   int64  `json:"ttlMs" msgpack:"ttlMs"`
}

// PingRequest carries the sender's own endpoints.
type PingRequest struct {
	Header    Header   `json:"header" msgpack:"header"`
	Endpoints []string `json:"endpoints" msgpack:"endpoints"`
}

// PingResponse echoes the responder's own endpoints.
type PingResponse struct {
	Header    Header   `json:"header" msgpack:"header"`
	Status    Status   `json:"status" msgpack:"status"`
	Endpoints []string `json:"endpoints" msgpack:"endpoints"`
}

// StoreRequest asks the responder to hold a value under Key.
type StoreRequest struct {
	Header   Header     `json:"header" msgpack:"header"`
	Key      []byte     `json:"key" msgpack:"key"`
	Mode     StoreMode  `json:"mode" msgpack:"mode"`
	HasValue bool       `json:"hasValue" msgpack:"hasValue"`
	Value    *ValueInfo `json:"value,omitempty" msgpack:"value,omitempty"`
}

// StoreResponse reports whether the STORE was accepted.
type StoreResponse struct {
	Header Header `json:"header" msgpack:"header"`
	Status Status `json:"status" msgpack:"status"`
}

// FindNodeRequest asks the responder for its closest known peers to Key.
type FindNodeRequest struct {
	Header Header `json:"header" msgpack:"header"`
	Key    []byte `json:"key" msgpack:"key"`
}

// FindNodeResponse carries up to k peers, closest-first.
type FindNodeResponse struct {
	Header Header `json:"header" msgpack:"header"`
	Status Status `json:"status" msgpack:"status"`
	Nodes  []Node `json:"nodes" msgpack:"nodes"`
}

// FindValueRequest asks the responder for a value, or its closest peers
// to Key if it does not hold the value.
type FindValueRequest struct {
	Header Header `json:"header" msgpack:"header"`
	Key    []byte `json:"key" msgpack:"key"`
}

// FindValueResponse carries either a value or a peer list, never both.
type FindValueResponse struct {
	Header   Header     `json:"header" msgpack:"header"`
	Status   Status     `json:"status" msgpack:"status"`
	Nodes    []Node     `json:"nodes" msgpack:"nodes"`
	HasValue bool       `json:"hasValue" msgpack:"hasValue"`
	Value    *ValueInfo `json:"value,omitempty" msgpack:"value,omitempty"`
}

// Kind discriminates the payload carried by a Message.
type Kind uint8

const (
	KindPingRequest Kind = iota
	KindPingResponse
	KindStoreRequest
	KindStoreResponse
	KindFindNodeRequest
	KindFindNodeResponse
	KindFindValueRequest
	KindFindValueResponse
)

// Message is a tagged union over the eight request/response payloads.
// Exactly one of the pointer fields is set, selected by Kind.
type Message struct {
	Kind Kind `json:"kind" msgpack:"kind"`

	PingRequest       *PingRequest       `json:"pingRequest,omitempty" msgpack:"pingRequest,omitempty"`
	PingResponse      *PingResponse      `json:"pingResponse,omitempty" msgpack:"pingResponse,omitempty"`
	StoreRequest      *StoreRequest      `json:"storeRequest,omitempty" msgpack:"storeRequest,omitempty"`
	StoreResponse     *StoreResponse     `json:"storeResponse,omitempty" msgpack:"storeResponse,omitempty"`
	FindNodeRequest   *FindNodeRequest   `json:"findNodeRequest,omitempty" msgpack:"findNodeRequest,omitempty"`
	FindNodeResponse  *FindNodeResponse  `json:"findNodeResponse,omitempty" msgpack:"findNodeResponse,omitempty"`
	FindValueRequest  *FindValueRequest  `json:"findValueRequest,omitempty" msgpack:"findValueRequest,omitempty"`
	FindValueResponse *FindValueResponse `json:"findValueResponse,omitempty" msgpack:"findValueResponse,omitempty"`
}

// MessageSequence is the outermost envelope placed on the wire. Network
// scopes multiple unrelated DHTs sharing one transport (e.g. a multicast
// group); a receiver that doesn't recognize Network drops the sequence
// without replying (spec: ProtocolMismatch).
type MessageSequence struct {
	Version  uint8     `json:"version" msgpack:"version"`
	Network  uint64    `json:"network" msgpack:"network"`
	Messages []Message `json:"messages" msgpack:"messages"`
}
