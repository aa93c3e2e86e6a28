package types

import (
	"context"

	"github.com/palemoky/bird-count/internal/protocol"
)

// ClientInterface 定义客户端接口（一个连接即一个玩家）
type ClientInterface interface {
	GetID() string
	SendMessage(msg *protocol.Message)
	Close()
}

// Broadcaster 消息投递边界：单播与房间广播，屏蔽底层传输
type Broadcaster interface {
	SendTo(connID string, msg *protocol.Message)
	BroadcastToRoom(roomKey string, msg *protocol.Message, excludeIDs ...string)
	Join(roomKey, connID string)
	Leave(roomKey, connID string)
}

// RoomSnapshot 房间快照（镜像到外部存储，仅用于观察，不用于恢复）
type RoomSnapshot struct {
	RoomKey      string           `json:"room"`
	State        string           `json:"state"`
	CurrentRound int              `json:"current_round"`
	Players      []PlayerSnapshot `json:"players"`
	CreatedAt    int64            `json:"created_at"`
	UpdatedAt    int64            `json:"updated_at"`
}

// PlayerSnapshot 玩家快照
type PlayerSnapshot struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TotalScore int    `json:"total_score"`
	Ready      bool   `json:"ready"`
}

// GameResult 一局结束时的玩家成绩
type GameResult struct {
	RoomKey    string
	PlayerName string
	TotalScore int
	Won        bool
}

// RoomStore 房间快照存储
type RoomStore interface {
	SaveRoom(ctx context.Context, snapshot *RoomSnapshot) error
	DeleteRoom(ctx context.Context, roomKey string) error
}

// ScoreRecorder 记录一局结束后的成绩
type ScoreRecorder interface {
	RecordGame(ctx context.Context, results []GameResult) error
}
