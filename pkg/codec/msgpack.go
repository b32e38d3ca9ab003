package codec

import (
	"fmt"

	msgpack "gopkg.in/vmihailenco/msgpack.v2"

	"github.com/shadowmesh/kademlia/pkg/wire"
)

// MessagePack encodes a MessageSequence as MessagePack, the compact binary
// encoding storj's pkg/kademlia uses for its own RPC wire format.
type MessagePack struct{}

func (MessagePack) Name() string { return "msgpack" }

func (MessagePack) Encode(seq *wire.MessageSequence) ([]byte, error) {
	data, err := msgpack.Marshal(seq)
	if err != nil {
		return nil, fmt.Errorf("msgpack encode: %w", err)
	}
	return data, nil
}

func (MessagePack) Decode(data []byte) (*wire.MessageSequence, error) {
	var seq wire.MessageSequence
	if err := msgpack.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("msgpack decode: %w", err)
	}
	return &seq, nil
}
