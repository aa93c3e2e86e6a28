// Package transport 提供与游戏服务器通信的 WebSocket 客户端。
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/palemoky/bird-count/internal/protocol"
	"github.com/palemoky/bird-count/internal/protocol/codec"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	handshakeTimeout = 10 * time.Second
	bufferSize       = 256
)

// ErrClosed 连接已关闭
var ErrClosed = errors.New("transport: connection closed")

// Client WebSocket 客户端
type Client struct {
	ServerURL string
	Format    codec.Format

	conn    *websocket.Conn
	send    chan []byte
	receive chan *protocol.Message
	done    chan struct{}

	PlayerID string       // 服务端分配的连接 ID
	latency  atomic.Int64 // 网络延迟（毫秒）

	// 回调
	OnClose func() // 关闭回调

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewClient 创建客户端
func NewClient(serverURL string, format codec.Format) *Client {
	return &Client{
		ServerURL: serverURL,
		Format:    format,
		send:      make(chan []byte, bufferSize),
		receive:   make(chan *protocol.Message, bufferSize),
		done:      make(chan struct{}),
	}
}

// Connect 连接服务器，二进制格式会在 URL 上附加 codec 参数
func (c *Client) Connect(ctx context.Context) error {
	target, err := url.Parse(c.ServerURL)
	if err != nil {
		return err
	}
	if c.Format == codec.FormatBinary {
		q := target.Query()
		q.Set("codec", "binary")
		target.RawQuery = q.Encode()
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, target.String(), nil)
	if err != nil {
		return err
	}
	c.conn = conn

	// 启动读写协程
	go c.readPump()
	go c.writePump()

	return nil
}

// SendMessage 发送消息
func (c *Client) SendMessage(msg *protocol.Message) error {
	data, err := codec.Encode(c.Format, msg)
	if err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		return errors.New("transport: send buffer full")
	}
}

// Send 构造并发送消息
func (c *Client) Send(msgType protocol.MessageType, payload any) error {
	msg, err := codec.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// Ping 发送心跳，收到 pong 后更新延迟
func (c *Client) Ping() error {
	return c.Send(protocol.MsgPing, protocol.PingPayload{Timestamp: time.Now().UnixMilli()})
}

// Latency 最近一次测得的延迟（毫秒）
func (c *Client) Latency() int64 {
	return c.latency.Load()
}

// Receive 返回接收消息的通道，连接关闭后通道关闭
func (c *Client) Receive() <-chan *protocol.Message {
	return c.receive
}

// Done 连接关闭时关闭
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close 关闭连接
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.done)
		c.mu.Unlock()

		if c.OnClose != nil {
			c.OnClose()
		}
	})
}

// handleInternalMessage 处理连接层消息
func (c *Client) handleInternalMessage(msg *protocol.Message) {
	switch msg.Type {
	case protocol.MsgConnected:
		var payload protocol.ConnectedPayload
		if err := json.Unmarshal(msg.Payload, &payload); err == nil {
			c.mu.Lock()
			c.PlayerID = payload.PlayerID
			c.mu.Unlock()
		}
	case protocol.MsgPong:
		var payload protocol.PongPayload
		if err := json.Unmarshal(msg.Payload, &payload); err == nil {
			c.latency.Store(time.Now().UnixMilli() - payload.ClientTimestamp)
		}
	}
}

// ID 返回服务端分配的连接 ID
func (c *Client) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.PlayerID
}
