package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/palemoky/bird-count/internal/protocol"
)

// 二进制信封字段号，与 message Envelope { string type = 1; bytes payload = 2; } 一致
const (
	fieldType    protowire.Number = 1
	fieldPayload protowire.Number = 2
)

// EncodeBinary 将消息编码为 protobuf wire 格式的信封
// payload 仍为 JSON，信封只负责分帧和类型
func EncodeBinary(m *protocol.Message) ([]byte, error) {
	if m.Type == "" {
		return nil, fmt.Errorf("message type is empty")
	}

	b := make([]byte, 0, len(m.Type)+len(m.Payload)+8)
	b = protowire.AppendTag(b, fieldType, protowire.BytesType)
	b = protowire.AppendString(b, string(m.Type))
	if len(m.Payload) > 0 {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Payload)
	}
	return b, nil
}

// DecodeBinary 从 protobuf wire 信封解码消息，未知字段会被跳过
// 注意: 使用完毕后应调用 PutMessage 归还对象到池
func DecodeBinary(data []byte) (*protocol.Message, error) {
	msg := GetMessage()

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			PutMessage(msg)
			return nil, protowire.ParseError(n)
		}
		data = data[n:]

		switch {
		case num == fieldType && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				PutMessage(msg)
				return nil, protowire.ParseError(n)
			}
			msg.Type = protocol.MessageType(v)
			data = data[n:]
		case num == fieldPayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				PutMessage(msg)
				return nil, protowire.ParseError(n)
			}
			msg.Payload = append([]byte(nil), v...) // 复制 payload 避免引用
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				PutMessage(msg)
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
		}
	}

	if msg.Type == "" {
		PutMessage(msg)
		return nil, fmt.Errorf("message type is empty")
	}
	return msg, nil
}
