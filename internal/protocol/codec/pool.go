package codec

import (
	"bytes"
	"sync"

	"github.com/palemoky/bird-count/internal/protocol"
)

// maxPooledBuffer 超过该容量的缓冲区不再放回池中
const maxPooledBuffer = 64 << 10

// 读写路径上复用消息和编码缓冲区
var (
	messagePool = sync.Pool{New: func() any { return &protocol.Message{} }}
	bufferPool  = sync.Pool{New: func() any { return new(bytes.Buffer) }}
)

// GetMessage 从池中取出消息
func GetMessage() *protocol.Message {
	return messagePool.Get().(*protocol.Message)
}

// PutMessage 清空后归还消息，调用方之后不得再持有其 Payload
func PutMessage(msg *protocol.Message) {
	if msg == nil {
		return
	}
	*msg = protocol.Message{}
	messagePool.Put(msg)
}

// GetBuffer 从池中取出缓冲区
func GetBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

// PutBuffer 重置后归还缓冲区
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooledBuffer {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}
