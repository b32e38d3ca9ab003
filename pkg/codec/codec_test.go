package codec

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/shadowmesh/kademlia/pkg/wire"
)

func sampleSequence() *wire.MessageSequence {
	return &wire.MessageSequence{
		Version: wire.ProtocolVersion,
		Network: 0xC0FFEE,
		Messages: []wire.Message{
			{
				Kind: wire.KindPingRequest,
				PingRequest: &wire.PingRequest{
					Header:    wire.Header{Sender: []byte{1, 2, 3}, ReplyID: 42},
					Endpoints: []string{"udp://10.0.0.1:9000"},
				},
			},
			{
				Kind: wire.KindStoreRequest,
				StoreRequest: &wire.StoreRequest{
					Header:   wire.Header{Sender: []byte{4, 5, 6}, ReplyID: 7},
					Key:      bytes.Repeat([]byte{0xAB}, 20),
					Mode:     wire.ModePrimary,
					HasValue: true,
					Value: &wire.ValueInfo{
						Data:    []byte("hello"),
						Version: 3,
						TTLMS:   60000,
					},
				},
			},
			{
				Kind: wire.KindFindNodeResponse,
				FindNodeResponse: &wire.FindNodeResponse{
					Header: wire.Header{Sender: []byte{9}, ReplyID: 99},
					Status: wire.StatusSuccess,
					Nodes: []wire.Node{
						{ID: []byte{1}, Endpoints: []string{"udp://a:1", "quic://a:2"}},
						{ID: []byte{2}, Endpoints: nil},
					},
				},
			},
			{
				Kind: wire.KindFindValueResponse,
				FindValueResponse: &wire.FindValueResponse{
					Header:   wire.Header{Sender: []byte{1}, ReplyID: 1},
					Status:   wire.StatusSuccess,
					HasValue: false,
					Nodes:    []wire.Node{{ID: []byte{3}}},
				},
			},
		},
	}
}

func TestCodecsRoundTrip(t *testing.T) {
	codecs := []Codec{JSON{}, MessagePack{}, Protobuf{}}
	for _, c := range codecs {
		c := c
		t.Run(c.Name(), func(t *testing.T) {
			want := sampleSequence()
			data, err := c.Encode(want)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := c.Decode(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(want, got) {
				t.Fatalf("round-trip mismatch:\nwant %+v\ngot  %+v", want, got)
			}
		})
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "msgpack", "protobuf"} {
		if _, ok := ByName(name); !ok {
			t.Errorf("ByName(%q) not found", name)
		}
	}
	if _, ok := ByName("xml"); ok {
		t.Error("ByName(\"xml\") unexpectedly found")
	}
}
