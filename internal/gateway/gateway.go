// Package gateway 维护连接与房间订阅关系，负责单播与房间广播。
package gateway

import (
	"log"
	"slices"
	"sync"

	"github.com/palemoky/bird-count/internal/protocol"
	"github.com/palemoky/bird-count/internal/types"
)

// Gateway 连接注册表，实现 types.Broadcaster
type Gateway struct {
	clients   map[string]types.ClientInterface
	clientsMu sync.RWMutex

	rooms   map[string]map[string]struct{} // roomKey -> connIDs
	roomsMu sync.RWMutex
}

// New 创建网关
func New() *Gateway {
	return &Gateway{
		clients: make(map[string]types.ClientInterface),
		rooms:   make(map[string]map[string]struct{}),
	}
}

// Register 注册连接
func (g *Gateway) Register(client types.ClientInterface) {
	g.clientsMu.Lock()
	defer g.clientsMu.Unlock()
	g.clients[client.GetID()] = client
}

// Unregister 注销连接并退出所有房间订阅
func (g *Gateway) Unregister(connID string) {
	g.clientsMu.Lock()
	delete(g.clients, connID)
	g.clientsMu.Unlock()

	g.roomsMu.Lock()
	defer g.roomsMu.Unlock()
	for key, members := range g.rooms {
		delete(members, connID)
		if len(members) == 0 {
			delete(g.rooms, key)
		}
	}
}

// Client 返回连接，不存在时返回 nil
func (g *Gateway) Client(connID string) types.ClientInterface {
	g.clientsMu.RLock()
	defer g.clientsMu.RUnlock()
	return g.clients[connID]
}

// OnlineCount 在线连接数
func (g *Gateway) OnlineCount() int {
	g.clientsMu.RLock()
	defer g.clientsMu.RUnlock()
	return len(g.clients)
}

// Join 订阅房间广播
func (g *Gateway) Join(roomKey, connID string) {
	g.roomsMu.Lock()
	defer g.roomsMu.Unlock()

	members, ok := g.rooms[roomKey]
	if !ok {
		members = make(map[string]struct{})
		g.rooms[roomKey] = members
	}
	members[connID] = struct{}{}
}

// Leave 取消房间订阅
func (g *Gateway) Leave(roomKey, connID string) {
	g.roomsMu.Lock()
	defer g.roomsMu.Unlock()

	members, ok := g.rooms[roomKey]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(g.rooms, roomKey)
	}
}

// SendTo 单播，连接不存在时丢弃
func (g *Gateway) SendTo(connID string, msg *protocol.Message) {
	client := g.Client(connID)
	if client == nil {
		log.Printf("⚠️ 连接 %s 不存在，丢弃消息 %s", connID, msg.Type)
		return
	}
	client.SendMessage(msg)
}

// BroadcastToRoom 房间广播，可排除指定连接
func (g *Gateway) BroadcastToRoom(roomKey string, msg *protocol.Message, excludeIDs ...string) {
	g.roomsMu.RLock()
	targets := make([]string, 0, len(g.rooms[roomKey]))
	for id := range g.rooms[roomKey] {
		if !slices.Contains(excludeIDs, id) {
			targets = append(targets, id)
		}
	}
	g.roomsMu.RUnlock()

	g.clientsMu.RLock()
	defer g.clientsMu.RUnlock()
	for _, id := range targets {
		if client, ok := g.clients[id]; ok {
			client.SendMessage(msg)
		}
	}
}

// Broadcast 广播给所有连接（用于停机通知）
func (g *Gateway) Broadcast(msg *protocol.Message) {
	g.clientsMu.RLock()
	defer g.clientsMu.RUnlock()
	for _, client := range g.clients {
		client.SendMessage(msg)
	}
}

// CloseAll 关闭所有连接
func (g *Gateway) CloseAll() {
	g.clientsMu.RLock()
	clients := make([]types.ClientInterface, 0, len(g.clients))
	for _, c := range g.clients {
		clients = append(clients, c)
	}
	g.clientsMu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}
