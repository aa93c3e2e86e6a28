package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/palemoky/bird-count/internal/protocol"
)

// Format 线路编码格式
type Format int

const (
	FormatJSON   Format = iota // 文本帧，浏览器客户端默认
	FormatBinary               // 二进制帧，protobuf wire 信封
)

// ParseFormat 解析连接参数中的编码名称
func ParseFormat(name string) Format {
	if name == "binary" || name == "protobuf" {
		return FormatBinary
	}
	return FormatJSON
}

// NewMessage 创建一个新消息
func NewMessage(msgType protocol.MessageType, payload any) (*protocol.Message, error) {
	var data json.RawMessage
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return &protocol.Message{
		Type:    msgType,
		Payload: data,
	}, nil
}

// MustNewMessage 创建消息，失败时 panic
func MustNewMessage(msgType protocol.MessageType, payload any) *protocol.Message {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// Encode 按指定格式编码消息
func Encode(format Format, m *protocol.Message) ([]byte, error) {
	if format == FormatBinary {
		return EncodeBinary(m)
	}
	return EncodeJSON(m)
}

// Decode 按指定格式解码消息
// 注意: 使用完毕后应调用 PutMessage 归还对象到池
func Decode(format Format, data []byte) (*protocol.Message, error) {
	if format == FormatBinary {
		return DecodeBinary(data)
	}
	return DecodeJSON(data)
}

// EncodeJSON 将消息编码为 JSON 字节
func EncodeJSON(m *protocol.Message) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := json.NewEncoder(buf).Encode(m); err != nil {
		return nil, err
	}
	// Encoder 会追加换行符
	return bytes.Clone(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// DecodeJSON 从 JSON 字节解码消息
func DecodeJSON(data []byte) (*protocol.Message, error) {
	msg := GetMessage()
	if err := json.Unmarshal(data, msg); err != nil {
		PutMessage(msg)
		return nil, err
	}
	if msg.Type == "" {
		PutMessage(msg)
		return nil, fmt.Errorf("message type is empty")
	}
	return msg, nil
}

// ParsePayload 解析消息的 Payload 到指定类型
func ParsePayload[T any](msg *protocol.Message) (*T, error) {
	var payload T
	if len(msg.Payload) == 0 {
		return nil, fmt.Errorf("%s: payload is empty", msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// NewErrorMessage 创建错误消息，payload 为面向玩家的文本
func NewErrorMessage(code int) *protocol.Message {
	text, ok := protocol.ErrorMessages[code]
	if !ok {
		text = protocol.ErrorMessages[protocol.ErrCodeUnknown]
	}
	return NewErrorMessageWithText(text)
}

// NewErrorMessageWithText 创建带自定义文本的错误消息
func NewErrorMessageWithText(text string) *protocol.Message {
	msg, _ := NewMessage(protocol.MsgError, text)
	return msg
}
