//go:build !production

package testutil

import (
	"slices"
	"sync"

	"github.com/palemoky/bird-count/internal/protocol"
)

// FakeGateway 内存中的 types.Broadcaster，把消息投递给 SimpleClient
type FakeGateway struct {
	mu      sync.Mutex
	clients map[string]*SimpleClient
	rooms   map[string][]string
}

// NewFakeGateway 创建内存网关
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		clients: make(map[string]*SimpleClient),
		rooms:   make(map[string][]string),
	}
}

// Client 返回连接对应的客户端，不存在时创建
func (g *FakeGateway) Client(connID string) *SimpleClient {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.clientLocked(connID)
}

func (g *FakeGateway) clientLocked(connID string) *SimpleClient {
	c, ok := g.clients[connID]
	if !ok {
		c = NewSimpleClient(connID)
		g.clients[connID] = c
	}
	return c
}

// Members 返回房间内的连接
func (g *FakeGateway) Members(roomKey string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.rooms[roomKey])
}

func (g *FakeGateway) SendTo(connID string, msg *protocol.Message) {
	g.mu.Lock()
	c := g.clientLocked(connID)
	g.mu.Unlock()
	c.SendMessage(msg)
}

func (g *FakeGateway) BroadcastToRoom(roomKey string, msg *protocol.Message, excludeIDs ...string) {
	g.mu.Lock()
	targets := make([]*SimpleClient, 0, len(g.rooms[roomKey]))
	for _, id := range g.rooms[roomKey] {
		if slices.Contains(excludeIDs, id) {
			continue
		}
		targets = append(targets, g.clientLocked(id))
	}
	g.mu.Unlock()

	for _, c := range targets {
		c.SendMessage(msg)
	}
}

func (g *FakeGateway) Join(roomKey, connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !slices.Contains(g.rooms[roomKey], connID) {
		g.rooms[roomKey] = append(g.rooms[roomKey], connID)
	}
}

func (g *FakeGateway) Leave(roomKey, connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	members := slices.DeleteFunc(g.rooms[roomKey], func(id string) bool { return id == connID })
	if len(members) == 0 {
		delete(g.rooms, roomKey)
		return
	}
	g.rooms[roomKey] = members
}
