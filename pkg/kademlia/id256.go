package kademlia

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/bits"
)

// ID256Bytes is the width of an ID256 in bytes.
const ID256Bytes = 32

// ID256Bits is the bit-width B used for bucket indexing.
const ID256Bits = ID256Bytes * 8

// ID256 is a 256-bit node/key identifier, a second monomorphization of the
// same algebra as ID160 for deployments that want a larger address space
// (e.g. to key directly off a SHA-256 content hash). cmd/kademlia-node
// selects it when node.id_width is 256.
type ID256 [ID256Bytes]byte

// RandomID256 returns a cryptographically random identifier.
func RandomID256() (ID256, error) {
	var id ID256
	if _, err := rand.Read(id[:]); err != nil {
		return ID256{}, fmt.Errorf("random id256: %w", err)
	}
	return id, nil
}

// Equal reports whether two identifiers are the same bit string.
func (a ID256) Equal(b ID256) bool { return a == b }

// Less provides a total order used as the tiebreak for equidistant peers.
func (a ID256) Less(b ID256) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Xor returns the bitwise XOR distance between a and b.
func (a ID256) Xor(b ID256) ID256 {
	var out ID256
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// BitWidth returns B, the bit-width of the address space.
func (a ID256) BitWidth() int { return ID256Bits }

// LeadingZeros returns the number of leading zero bits in the identifier.
func (a ID256) LeadingZeros() int {
	for i, byteVal := range a {
		if byteVal != 0 {
			return i*8 + bits.LeadingZeros8(byteVal)
		}
	}
	return ID256Bits
}

// Bytes returns a copy of the identifier's bytes.
func (a ID256) Bytes() []byte {
	out := make([]byte, ID256Bytes)
	copy(out, a[:])
	return out
}

// ID256FromBytes decodes a wire-format identifier, which must be exactly
// ID256Bytes long.
func ID256FromBytes(b []byte) (ID256, error) {
	var id ID256
	if len(b) != ID256Bytes {
		return id, fmt.Errorf("id256: expected %d bytes, got %d", ID256Bytes, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// String renders the identifier as lowercase hex, for logging.
func (a ID256) String() string { return hex.EncodeToString(a[:]) }
