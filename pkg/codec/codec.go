// Package codec provides interchangeable on-wire encodings for
// wire.MessageSequence. Codec choice is wire-level only and must never
// affect kademlia core semantics: every codec round-trips every message
// type exactly (codec_test.go round-trips one shared sample sequence,
// covering four of the eight message kinds, through each codec).
package codec

import "github.com/shadowmesh/kademlia/pkg/wire"

// Codec encodes and decodes a complete MessageSequence.
type Codec interface {
	// Name identifies the codec for logging/config purposes.
	Name() string
	Encode(seq *wire.MessageSequence) ([]byte, error)
	Decode(data []byte) (*wire.MessageSequence, error)
}

// ByName returns the codec registered under name, or false if unknown.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "msgpack":
		return MessagePack{}, true
	case "protobuf":
		return Protobuf{}, true
	default:
		return nil, false
	}
}
