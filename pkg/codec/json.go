package codec

import (
	"encoding/json"
	"fmt"

	"github.com/shadowmesh/kademlia/pkg/wire"
)

// JSON encodes a MessageSequence as plain JSON.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Encode(seq *wire.MessageSequence) ([]byte, error) {
	data, err := json.Marshal(seq)
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	return data, nil
}

func (JSON) Decode(data []byte) (*wire.MessageSequence, error) {
	var seq wire.MessageSequence
	if err := json.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}
	return &seq, nil
}
