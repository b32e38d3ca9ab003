// Package kademlia implements the core of a Kademlia DHT node: the
// NodeId algebra, the k-bucket routing table, the value store, the
// request/response correlation layer, and the iterative lookup engine.
// Apart from MulticastDiscovery, which opens its own UDP socket and
// encodes through pkg/codec, it has no knowledge of sockets or wire
// bytes; the node consumes two collaborator interfaces, MessageTransport
// and Clock, both defined in this package (transports live in
// pkg/transport).
package kademlia

// NodeID is the algebra every identifier width (ID160, ID256, ...) must
// satisfy. Go has no const-generic array lengths, so each width is its
// own concrete type; NodeID lets the rest of the core — buckets, routing
// table, store, lookup engine — be written once and instantiated over
// whichever width the caller chooses, rather than duplicated per width.
type NodeID[T any] interface {
	comparable

	// Equal reports whether two identifiers are the same bit string.
	Equal(T) bool
	// Less provides a total order, used to break ties between
	// equidistant peers.
	Less(T) bool
	// Xor returns the bitwise XOR distance to another identifier.
	Xor(T) T
	// LeadingZeros counts leading zero bits, treating the identifier as
	// a big-endian unsigned integer.
	LeadingZeros() int
	// BitWidth returns B, the number of bits (and routing-table buckets).
	BitWidth() int
	// Bytes returns the identifier's big-endian byte representation.
	Bytes() []byte
	// String renders the identifier as hex, for logging.
	String() string
}

// BucketIndex returns the index in [0, self.BitWidth()) of the bucket
// that holds peer `other` from the perspective of `self`:
// index = B - leadingZeros(self⊕other) - 1, so bucket 0 is the closest
// shell and bucket B-1 the farthest. Returns ErrSelfReference if
// self == other.
func BucketIndex[T NodeID[T]](self, other T) (int, error) {
	if self.Equal(other) {
		return 0, ErrSelfReference
	}
	d := self.Xor(other)
	return self.BitWidth() - d.LeadingZeros() - 1, nil
}

// ParseID decodes a wire-format identifier into whichever concrete type
// T is instantiated with, dispatching on T's zero value at runtime since
// Go generics offer no static way to pick ID160FromBytes vs
// ID256FromBytes from the type parameter alone.
func ParseID[T NodeID[T]](b []byte) (T, error) {
	var zero T
	return fromBytesLike(zero, b)
}

// RandomID returns a cryptographically random identifier of whichever
// concrete type T is instantiated with, the same runtime-dispatch trick
// as ParseID.
func RandomID[T NodeID[T]]() (T, error) {
	var zero T
	switch any(zero).(type) {
	case ID160:
		id, err := RandomID160()
		return any(id).(T), err
	case ID256:
		id, err := RandomID256()
		return any(id).(T), err
	default:
		return zero, ErrProtocolMismatch
	}
}
