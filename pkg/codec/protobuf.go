package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/shadowmesh/kademlia/pkg/wire"
)

// Protobuf encodes a MessageSequence using the protobuf wire format
// directly via protowire, rather than through protoc-generated types.
// Field numbers below are this package's private schema; they are not
// derived from a .proto file because no protoc invocation is available at
// build time here, but the bytes produced are ordinary protobuf wire
// format and would decode correctly against a .proto with matching field
// numbers and types.
type Protobuf struct{}

func (Protobuf) Name() string { return "protobuf" }

// Field numbers, one flat namespace per message type defined below.
const (
	fHeaderSender  protowire.Number = 1
	fHeaderReplyID protowire.Number = 2

	fNodeID        protowire.Number = 1
	fNodeEndpoints protowire.Number = 2

	fValueData    protowire.Number = 1
	fValueVersion protowire.Number = 2
	fValueTTLMS   protowire.Number = 3

	fPingReqHeader    protowire.Number = 1
	fPingReqEndpoints protowire.Number = 2

	fPingRespHeader    protowire.Number = 1
	fPingRespStatus    protowire.Number = 2
	fPingRespEndpoints protowire.Number = 3

	fStoreReqHeader   protowire.Number = 1
	fStoreReqKey      protowire.Number = 2
	fStoreReqMode     protowire.Number = 3
	fStoreReqHasValue protowire.Number = 4
	fStoreReqValue    protowire.Number = 5

	fStoreRespHeader protowire.Number = 1
	fStoreRespStatus protowire.Number = 2

	fFindNodeReqHeader protowire.Number = 1
	fFindNodeReqKey    protowire.Number = 2

	fFindNodeRespHeader protowire.Number = 1
	fFindNodeRespStatus protowire.Number = 2
	fFindNodeRespNodes  protowire.Number = 3

	fFindValueReqHeader protowire.Number = 1
	fFindValueReqKey    protowire.Number = 2

	fFindValueRespHeader   protowire.Number = 1
	fFindValueRespStatus   protowire.Number = 2
	fFindValueRespNodes    protowire.Number = 3
	fFindValueRespHasValue protowire.Number = 4
	fFindValueRespValue    protowire.Number = 5

	fMsgKind              protowire.Number = 1
	fMsgPingRequest       protowire.Number = 2
	fMsgPingResponse      protowire.Number = 3
	fMsgStoreRequest      protowire.Number = 4
	fMsgStoreResponse     protowire.Number = 5
	fMsgFindNodeRequest   protowire.Number = 6
	fMsgFindNodeResponse  protowire.Number = 7
	fMsgFindValueRequest  protowire.Number = 8
	fMsgFindValueResponse protowire.Number = 9

	fSeqVersion  protowire.Number = 1
	fSeqNetwork  protowire.Number = 2
	fSeqMessages protowire.Number = 3
)

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendStringField(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func boolToVarint(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

func encodeHeader(h wire.Header) []byte {
	var b []byte
	b = appendBytesField(b, fHeaderSender, h.Sender)
	b = appendVarintField(b, fHeaderReplyID, uint64(h.ReplyID))
	return b
}

func decodeHeader(data []byte) (wire.Header, error) {
	var h wire.Header
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return h, fmt.Errorf("header: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fHeaderSender && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return h, fmt.Errorf("header.sender: %w", protowire.ParseError(m))
			}
			h.Sender = append([]byte(nil), v...)
			data = data[m:]
		case num == fHeaderReplyID && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return h, fmt.Errorf("header.replyId: %w", protowire.ParseError(m))
			}
			h.ReplyID = uint32(v)
			data = data[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return h, fmt.Errorf("header: skip: %w", protowire.ParseError(m))
			}
			data = data[m:]
		}
	}
	return h, nil
}

func encodeNode(n wire.Node) []byte {
	var b []byte
	b = appendBytesField(b, fNodeID, n.ID)
	for _, ep := range n.Endpoints {
		b = appendStringField(b, fNodeEndpoints, ep)
	}
	return b
}

func decodeNode(data []byte) (wire.Node, error) {
	var n wire.Node
	for len(data) > 0 {
		num, typ, tn := protowire.ConsumeTag(data)
		if tn < 0 {
			return n, fmt.Errorf("node: bad tag: %w", protowire.ParseError(tn))
		}
		data = data[tn:]
		switch {
		case num == fNodeID && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return n, fmt.Errorf("node.id: %w", protowire.ParseError(m))
			}
			n.ID = append([]byte(nil), v...)
			data = data[m:]
		case num == fNodeEndpoints && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(data)
			if m < 0 {
				return n, fmt.Errorf("node.endpoints: %w", protowire.ParseError(m))
			}
			n.Endpoints = append(n.Endpoints, v)
			data = data[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return n, fmt.Errorf("node: skip: %w", protowire.ParseError(m))
			}
			data = data[m:]
		}
	}
	return n, nil
}

func encodeValueInfo(v *wire.ValueInfo) []byte {
	var b []byte
	b = appendBytesField(b, fValueData, v.Data)
	b = appendVarintField(b, fValueVersion, v.Version)
	b = appendVarintField(b, fValueTTLMS, uint64(v.TTLMS))
	return b
}

func decodeValueInfo(data []byte) (*wire.ValueInfo, error) {
	v := &wire.ValueInfo{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("value: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fValueData && typ == protowire.BytesType:
			b, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, fmt.Errorf("value.data: %w", protowire.ParseError(m))
			}
			v.Data = append([]byte(nil), b...)
			data = data[m:]
		case num == fValueVersion && typ == protowire.VarintType:
			x, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("value.version: %w", protowire.ParseError(m))
			}
			v.Version = x
			data = data[m:]
		case num == fValueTTLMS && typ == protowire.VarintType:
			x, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("value.ttlMs: %w", protowire.ParseError(m))
			}
			v.TTLMS = int64(x)
			data = data[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return nil, fmt.Errorf("value: skip: %w", protowire.ParseError(m))
			}
			data = data[m:]
		}
	}
	return v, nil
}

func (Protobuf) Encode(seq *wire.MessageSequence) ([]byte, error) {
	var b []byte
	b = appendVarintField(b, fSeqVersion, uint64(seq.Version))
	b = appendVarintField(b, fSeqNetwork, seq.Network)
	for _, msg := range seq.Messages {
		mb, err := encodeMessage(msg)
		if err != nil {
			return nil, err
		}
		b = appendBytesField(b, fSeqMessages, mb)
	}
	return b, nil
}

func encodeMessage(msg wire.Message) ([]byte, error) {
	var b []byte
	b = appendVarintField(b, fMsgKind, uint64(msg.Kind))
	switch msg.Kind {
	case wire.KindPingRequest:
		if msg.PingRequest == nil {
			return nil, fmt.Errorf("protobuf encode: PingRequest kind with nil payload")
		}
		var pb []byte
		pb = appendBytesField(pb, fPingReqHeader, encodeHeader(msg.PingRequest.Header))
		for _, ep := range msg.PingRequest.Endpoints {
			pb = appendStringField(pb, fPingReqEndpoints, ep)
		}
		b = appendBytesField(b, fMsgPingRequest, pb)
	case wire.KindPingResponse:
		m := msg.PingResponse
		var pb []byte
		pb = appendBytesField(pb, fPingRespHeader, encodeHeader(m.Header))
		pb = appendVarintField(pb, fPingRespStatus, uint64(m.Status))
		for _, ep := range m.Endpoints {
			pb = appendStringField(pb, fPingRespEndpoints, ep)
		}
		b = appendBytesField(b, fMsgPingResponse, pb)
	case wire.KindStoreRequest:
		m := msg.StoreRequest
		var pb []byte
		pb = appendBytesField(pb, fStoreReqHeader, encodeHeader(m.Header))
		pb = appendBytesField(pb, fStoreReqKey, m.Key)
		pb = appendVarintField(pb, fStoreReqMode, uint64(m.Mode))
		pb = appendVarintField(pb, fStoreReqHasValue, boolToVarint(m.HasValue))
		if m.Value != nil {
			pb = appendBytesField(pb, fStoreReqValue, encodeValueInfo(m.Value))
		}
		b = appendBytesField(b, fMsgStoreRequest, pb)
	case wire.KindStoreResponse:
		m := msg.StoreResponse
		var pb []byte
		pb = appendBytesField(pb, fStoreRespHeader, encodeHeader(m.Header))
		pb = appendVarintField(pb, fStoreRespStatus, uint64(m.Status))
		b = appendBytesField(b, fMsgStoreResponse, pb)
	case wire.KindFindNodeRequest:
		m := msg.FindNodeRequest
		var pb []byte
		pb = appendBytesField(pb, fFindNodeReqHeader, encodeHeader(m.Header))
		pb = appendBytesField(pb, fFindNodeReqKey, m.Key)
		b = appendBytesField(b, fMsgFindNodeRequest, pb)
	case wire.KindFindNodeResponse:
		m := msg.FindNodeResponse
		var pb []byte
		pb = appendBytesField(pb, fFindNodeRespHeader, encodeHeader(m.Header))
		pb = appendVarintField(pb, fFindNodeRespStatus, uint64(m.Status))
		for _, node := range m.Nodes {
			pb = appendBytesField(pb, fFindNodeRespNodes, encodeNode(node))
		}
		b = appendBytesField(b, fMsgFindNodeResponse, pb)
	case wire.KindFindValueRequest:
		m := msg.FindValueRequest
		var pb []byte
		pb = appendBytesField(pb, fFindValueReqHeader, encodeHeader(m.Header))
		pb = appendBytesField(pb, fFindValueReqKey, m.Key)
		b = appendBytesField(b, fMsgFindValueRequest, pb)
	case wire.KindFindValueResponse:
		m := msg.FindValueResponse
		var pb []byte
		pb = appendBytesField(pb, fFindValueRespHeader, encodeHeader(m.Header))
		pb = appendVarintField(pb, fFindValueRespStatus, uint64(m.Status))
		for _, node := range m.Nodes {
			pb = appendBytesField(pb, fFindValueRespNodes, encodeNode(node))
		}
		pb = appendVarintField(pb, fFindValueRespHasValue, boolToVarint(m.HasValue))
		if m.Value != nil {
			pb = appendBytesField(pb, fFindValueRespValue, encodeValueInfo(m.Value))
		}
		b = appendBytesField(b, fMsgFindValueResponse, pb)
	default:
		return nil, fmt.Errorf("protobuf encode: unknown message kind %d", msg.Kind)
	}
	return b, nil
}

func (Protobuf) Decode(data []byte) (*wire.MessageSequence, error) {
	seq := &wire.MessageSequence{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("sequence: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fSeqVersion && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("sequence.version: %w", protowire.ParseError(m))
			}
			seq.Version = uint8(v)
			data = data[m:]
		case num == fSeqNetwork && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("sequence.network: %w", protowire.ParseError(m))
			}
			seq.Network = v
			data = data[m:]
		case num == fSeqMessages && typ == protowire.BytesType:
			b, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, fmt.Errorf("sequence.messages: %w", protowire.ParseError(m))
			}
			msg, err := decodeMessage(b)
			if err != nil {
				return nil, err
			}
			seq.Messages = append(seq.Messages, msg)
			data = data[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return nil, fmt.Errorf("sequence: skip: %w", protowire.ParseError(m))
			}
			data = data[m:]
		}
	}
	return seq, nil
}

func decodeMessage(data []byte) (wire.Message, error) {
	var msg wire.Message
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return msg, fmt.Errorf("message: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		if num == fMsgKind && typ == protowire.VarintType {
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return msg, fmt.Errorf("message.kind: %w", protowire.ParseError(m))
			}
			msg.Kind = wire.Kind(v)
			data = data[m:]
			continue
		}
		if typ != protowire.BytesType {
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return msg, fmt.Errorf("message: skip: %w", protowire.ParseError(m))
			}
			data = data[m:]
			continue
		}
		payload, m := protowire.ConsumeBytes(data)
		if m < 0 {
			return msg, fmt.Errorf("message: bad payload: %w", protowire.ParseError(m))
		}
		data = data[m:]

		var err error
		switch num {
		case fMsgPingRequest:
			msg.PingRequest, err = decodePingRequest(payload)
		case fMsgPingResponse:
			msg.PingResponse, err = decodePingResponse(payload)
		case fMsgStoreRequest:
			msg.StoreRequest, err = decodeStoreRequest(payload)
		case fMsgStoreResponse:
			msg.StoreResponse, err = decodeStoreResponse(payload)
		case fMsgFindNodeRequest:
			msg.FindNodeRequest, err = decodeFindNodeRequest(payload)
		case fMsgFindNodeResponse:
			msg.FindNodeResponse, err = decodeFindNodeResponse(payload)
		case fMsgFindValueRequest:
			msg.FindValueRequest, err = decodeFindValueRequest(payload)
		case fMsgFindValueResponse:
			msg.FindValueResponse, err = decodeFindValueResponse(payload)
		}
		if err != nil {
			return msg, err
		}
	}
	return msg, nil
}

func decodePingRequest(data []byte) (*wire.PingRequest, error) {
	m := &wire.PingRequest{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("pingRequest: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fPingReqHeader && typ == protowire.BytesType:
			b, l := protowire.ConsumeBytes(data)
			if l < 0 {
				return nil, fmt.Errorf("pingRequest.header: %w", protowire.ParseError(l))
			}
			h, err := decodeHeader(b)
			if err != nil {
				return nil, err
			}
			m.Header = h
			data = data[l:]
		case num == fPingReqEndpoints && typ == protowire.BytesType:
			s, l := protowire.ConsumeString(data)
			if l < 0 {
				return nil, fmt.Errorf("pingRequest.endpoints: %w", protowire.ParseError(l))
			}
			m.Endpoints = append(m.Endpoints, s)
			data = data[l:]
		default:
			l := protowire.ConsumeFieldValue(num, typ, data)
			if l < 0 {
				return nil, fmt.Errorf("pingRequest: skip: %w", protowire.ParseError(l))
			}
			data = data[l:]
		}
	}
	return m, nil
}

func decodePingResponse(data []byte) (*wire.PingResponse, error) {
	m := &wire.PingResponse{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("pingResponse: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fPingRespHeader && typ == protowire.BytesType:
			b, l := protowire.ConsumeBytes(data)
			if l < 0 {
				return nil, fmt.Errorf("pingResponse.header: %w", protowire.ParseError(l))
			}
			h, err := decodeHeader(b)
			if err != nil {
				return nil, err
			}
			m.Header = h
			data = data[l:]
		case num == fPingRespStatus && typ == protowire.VarintType:
			v, l := protowire.ConsumeVarint(data)
			if l < 0 {
				return nil, fmt.Errorf("pingResponse.status: %w", protowire.ParseError(l))
			}
			m.Status = wire.Status(v)
			data = data[l:]
		case num == fPingRespEndpoints && typ == protowire.BytesType:
			s, l := protowire.ConsumeString(data)
			if l < 0 {
				return nil, fmt.Errorf("pingResponse.endpoints: %w", protowire.ParseError(l))
			}
			m.Endpoints = append(m.Endpoints, s)
			data = data[l:]
		default:
			l := protowire.ConsumeFieldValue(num, typ, data)
			if l < 0 {
				return nil, fmt.Errorf("pingResponse: skip: %w", protowire.ParseError(l))
			}
			data = data[l:]
		}
	}
	return m, nil
}

func decodeStoreRequest(data []byte) (*wire.StoreRequest, error) {
	m := &wire.StoreRequest{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("storeRequest: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fStoreReqHeader && typ == protowire.BytesType:
			b, l := protowire.ConsumeBytes(data)
			if l < 0 {
				return nil, fmt.Errorf("storeRequest.header: %w", protowire.ParseError(l))
			}
			h, err := decodeHeader(b)
			if err != nil {
				return nil, err
			}
			m.Header = h
			data = data[l:]
		case num == fStoreReqKey && typ == protowire.BytesType:
			b, l := protowire.ConsumeBytes(data)
			if l < 0 {
				return nil, fmt.Errorf("storeRequest.key: %w", protowire.ParseError(l))
			}
			m.Key = append([]byte(nil), b...)
			data = data[l:]
		case num == fStoreReqMode && typ == protowire.VarintType:
			v, l := protowire.ConsumeVarint(data)
			if l < 0 {
				return nil, fmt.Errorf("storeRequest.mode: %w", protowire.ParseError(l))
			}
			m.Mode = wire.StoreMode(v)
			data = data[l:]
		case num == fStoreReqHasValue && typ == protowire.VarintType:
			v, l := protowire.ConsumeVarint(data)
			if l < 0 {
				return nil, fmt.Errorf("storeRequest.hasValue: %w", protowire.ParseError(l))
			}
			m.HasValue = v != 0
			data = data[l:]
		case num == fStoreReqValue && typ == protowire.BytesType:
			b, l := protowire.ConsumeBytes(data)
			if l < 0 {
				return nil, fmt.Errorf("storeRequest.value: %w", protowire.ParseError(l))
			}
			v, err := decodeValueInfo(b)
			if err != nil {
				return nil, err
			}
			m.Value = v
			data = data[l:]
		default:
			l := protowire.ConsumeFieldValue(num, typ, data)
			if l < 0 {
				return nil, fmt.Errorf("storeRequest: skip: %w", protowire.ParseError(l))
			}
			data = data[l:]
		}
	}
	return m, nil
}

func decodeStoreResponse(data []byte) (*wire.StoreResponse, error) {
	m := &wire.StoreResponse{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("storeResponse: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fStoreRespHeader && typ == protowire.BytesType:
			b, l := protowire.ConsumeBytes(data)
			if l < 0 {
				return nil, fmt.Errorf("storeResponse.header: %w", protowire.ParseError(l))
			}
			h, err := decodeHeader(b)
			if err != nil {
				return nil, err
			}
			m.Header = h
			data = data[l:]
		case num == fStoreRespStatus && typ == protowire.VarintType:
			v, l := protowire.ConsumeVarint(data)
			if l < 0 {
				return nil, fmt.Errorf("storeResponse.status: %w", protowire.ParseError(l))
			}
			m.Status = wire.Status(v)
			data = data[l:]
		default:
			l := protowire.ConsumeFieldValue(num, typ, data)
			if l < 0 {
				return nil, fmt.Errorf("storeResponse: skip: %w", protowire.ParseError(l))
			}
			data = data[l:]
		}
	}
	return m, nil
}

func decodeFindNodeRequest(data []byte) (*wire.FindNodeRequest, error) {
	m := &wire.FindNodeRequest{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("findNodeRequest: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fFindNodeReqHeader && typ == protowire.BytesType:
			b, l := protowire.ConsumeBytes(data)
			if l < 0 {
				return nil, fmt.Errorf("findNodeRequest.header: %w", protowire.ParseError(l))
			}
			h, err := decodeHeader(b)
			if err != nil {
				return nil, err
			}
			m.Header = h
			data = data[l:]
		case num == fFindNodeReqKey && typ == protowire.BytesType:
			b, l := protowire.ConsumeBytes(data)
			if l < 0 {
				return nil, fmt.Errorf("findNodeRequest.key: %w", protowire.ParseError(l))
			}
			m.Key = append([]byte(nil), b...)
			data = data[l:]
		default:
			l := protowire.ConsumeFieldValue(num, typ, data)
			if l < 0 {
				return nil, fmt.Errorf("findNodeRequest: skip: %w", protowire.ParseError(l))
			}
			data = data[l:]
		}
	}
	return m, nil
}

func decodeFindNodeResponse(data []byte) (*wire.FindNodeResponse, error) {
	m := &wire.FindNodeResponse{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("findNodeResponse: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fFindNodeRespHeader && typ == protowire.BytesType:
			b, l := protowire.ConsumeBytes(data)
			if l < 0 {
				return nil, fmt.Errorf("findNodeResponse.header: %w", protowire.ParseError(l))
			}
			h, err := decodeHeader(b)
			if err != nil {
				return nil, err
			}
			m.Header = h
			data = data[l:]
		case num == fFindNodeRespStatus && typ == protowire.VarintType:
			v, l := protowire.ConsumeVarint(data)
			if l < 0 {
				return nil, fmt.Errorf("findNodeResponse.status: %w", protowire.ParseError(l))
			}
			m.Status = wire.Status(v)
			data = data[l:]
		case num == fFindNodeRespNodes && typ == protowire.BytesType:
			b, l := protowire.ConsumeBytes(data)
			if l < 0 {
				return nil, fmt.Errorf("findNodeResponse.nodes: %w", protowire.ParseError(l))
			}
			node, err := decodeNode(b)
			if err != nil {
				return nil, err
			}
			m.Nodes = append(m.Nodes, node)
			data = data[l:]
		default:
			l := protowire.ConsumeFieldValue(num, typ, data)
			if l < 0 {
				return nil, fmt.Errorf("findNodeResponse: skip: %w", protowire.ParseError(l))
			}
			data = data[l:]
		}
	}
	return m, nil
}

func decodeFindValueRequest(data []byte) (*wire.FindValueRequest, error) {
	m := &wire.FindValueRequest{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("findValueRequest: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fFindValueReqHeader && typ == protowire.BytesType:
			b, l := protowire.ConsumeBytes(data)
			if l < 0 {
				return nil, fmt.Errorf("findValueRequest.header: %w", protowire.ParseError(l))
			}
			h, err := decodeHeader(b)
			if err != nil {
				return nil, err
			}
			m.Header = h
			data = data[l:]
		case num == fFindValueReqKey && typ == protowire.BytesType:
			b, l := protowire.ConsumeBytes(data)
			if l < 0 {
				return nil, fmt.Errorf("findValueRequest.key: %w", protowire.ParseError(l))
			}
			m.Key = append([]byte(nil), b...)
			data = data[l:]
		default:
			l := protowire.ConsumeFieldValue(num, typ, data)
			if l < 0 {
				return nil, fmt.Errorf("findValueRequest: skip: %w", protowire.ParseError(l))
			}
			data = data[l:]
		}
	}
	return m, nil
}

func decodeFindValueResponse(data []byte) (*wire.FindValueResponse, error) {
	m := &wire.FindValueResponse{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("findValueResponse: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fFindValueRespHeader && typ == protowire.BytesType:
			b, l := protowire.ConsumeBytes(data)
			if l < 0 {
				return nil, fmt.Errorf("findValueResponse.header: %w", protowire.ParseError(l))
			}
			h, err := decodeHeader(b)
			if err != nil {
				return nil, err
			}
			m.Header = h
			data = data[l:]
		case num == fFindValueRespStatus && typ == protowire.VarintType:
			v, l := protowire.ConsumeVarint(data)
			if l < 0 {
				return nil, fmt.Errorf("findValueResponse.status: %w", protowire.ParseError(l))
			}
			m.Status = wire.Status(v)
			data = data[l:]
		case num == fFindValueRespNodes && typ == protowire.BytesType:
			b, l := protowire.ConsumeBytes(data)
			if l < 0 {
				return nil, fmt.Errorf("findValueResponse.nodes: %w", protowire.ParseError(l))
			}
			node, err := decodeNode(b)
			if err != nil {
				return nil, err
			}
			m.Nodes = append(m.Nodes, node)
			data = data[l:]
		case num == fFindValueRespHasValue && typ == protowire.VarintType:
			v, l := protowire.ConsumeVarint(data)
			if l < 0 {
				return nil, fmt.Errorf("findValueResponse.hasValue: %w", protowire.ParseError(l))
			}
			m.HasValue = v != 0
			data = data[l:]
		case num == fFindValueRespValue && typ == protowire.BytesType:
			b, l := protowire.ConsumeBytes(data)
			if l < 0 {
				return nil, fmt.Errorf("findValueResponse.value: %w", protowire.ParseError(l))
			}
			v, err := decodeValueInfo(b)
			if err != nil {
				return nil, err
			}
			m.Value = v
			data = data[l:]
		default:
			l := protowire.ConsumeFieldValue(num, typ, data)
			if l < 0 {
				return nil, fmt.Errorf("findValueResponse: skip: %w", protowire.ParseError(l))
			}
			data = data[l:]
		}
	}
	return m, nil
}
