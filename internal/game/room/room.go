package room

import (
	"sync"
	"time"

	"github.com/palemoky/bird-count/internal/config"
	"github.com/palemoky/bird-count/internal/game/level"
	"github.com/palemoky/bird-count/internal/game/score"
	"github.com/palemoky/bird-count/internal/protocol"
	"github.com/palemoky/bird-count/internal/types"
)

const (
	// DefaultRoomKey 客户端未提供房间号时使用
	DefaultRoomKey = "default-room"
	maxRoomKeyLen  = 64
)

// RoomPlayer 房间中的玩家
type RoomPlayer struct {
	ID         string // 连接 ID
	Name       string // 昵称，不校验
	TotalScore int    // 累计得分，只增不减
	Ready      bool   // 是否准备
}

// Room 游戏房间
type Room struct {
	Key          string                 // 房间号
	State        RoomState              // 房间状态
	Players      map[string]*RoomPlayer // 玩家列表
	PlayerOrder  []string               // 加入顺序
	CurrentRound int                    // 当前回合 [1, totalRounds]
	CreatedAt    time.Time              // 创建时间

	results      map[string]score.Submission // 本回合已锁定的答案
	level        protocol.LevelData          // 本回合关卡
	generation   uint64                      // 每次状态切换递增，用于识别过期计时器
	advanceTimer *time.Timer
	closed       bool // 已从注册表删除

	mu sync.Mutex
}

// ManagerDeps 房间管理器依赖
type ManagerDeps struct {
	Gateway  types.Broadcaster
	Levels   *level.Generator
	Store    types.RoomStore     // 可选
	Recorder types.ScoreRecorder // 可选
	Game     config.GameConfig
}

// RoomManager 房间注册表，同时驱动每个房间的状态机
type RoomManager struct {
	gateway  types.Broadcaster
	levels   *level.Generator
	store    types.RoomStore
	recorder types.ScoreRecorder

	totalRounds  int
	revealDelay  time.Duration
	minTimeTaken float64

	rooms   map[string]*Room
	members map[string]string // connID -> roomKey
	mu      sync.RWMutex
}

// NewRoomManager 创建房间管理器
func NewRoomManager(deps ManagerDeps) *RoomManager {
	game := deps.Game
	if game.TotalRounds <= 0 {
		game.TotalRounds = config.Default().Game.TotalRounds
	}

	levels := deps.Levels
	if levels == nil {
		levels = level.NewRandomGenerator(game.GridRows, game.GridCols)
	}

	return &RoomManager{
		gateway:      deps.Gateway,
		levels:       levels,
		store:        deps.Store,
		recorder:     deps.Recorder,
		totalRounds:  game.TotalRounds,
		revealDelay:  game.RevealDelay(),
		minTimeTaken: game.MinTimeTaken,
		rooms:        make(map[string]*Room),
		members:      make(map[string]string),
	}
}

func newRoom(key string) *Room {
	return &Room{
		Key:          key,
		State:        RoomStateLobby,
		Players:      make(map[string]*RoomPlayer),
		PlayerOrder:  make([]string, 0, config.MaxPlayers),
		CurrentRound: 1,
		CreatedAt:    time.Now(),
		results:      make(map[string]score.Submission),
	}
}

// removePlayer 移除玩家及其未计分的答案，调用方需持有 r.mu
func (r *Room) removePlayer(id string) {
	delete(r.Players, id)
	delete(r.results, id)
	for i, pid := range r.PlayerOrder {
		if pid == id {
			r.PlayerOrder = append(r.PlayerOrder[:i], r.PlayerOrder[i+1:]...)
			break
		}
	}
}

// allReady 双方均已准备，调用方需持有 r.mu
func (r *Room) allReady() bool {
	if len(r.Players) < config.MaxPlayers {
		return false
	}
	for _, p := range r.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// playerInfos 按加入顺序返回玩家信息，调用方需持有 r.mu
func (r *Room) playerInfos() []protocol.PlayerInfo {
	infos := make([]protocol.PlayerInfo, 0, len(r.PlayerOrder))
	for _, id := range r.PlayerOrder {
		p := r.Players[id]
		infos = append(infos, protocol.PlayerInfo{
			ID:         p.ID,
			Name:       p.Name,
			TotalScore: p.TotalScore,
			Ready:      p.Ready,
		})
	}
	return infos
}

// stopTimer 取消待执行的回合推进，调用方需持有 r.mu
func (r *Room) stopTimer() {
	if r.advanceTimer != nil {
		r.advanceTimer.Stop()
		r.advanceTimer = nil
	}
}

// PlayerInfos 返回玩家信息副本
func (r *Room) PlayerInfos() []protocol.PlayerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playerInfos()
}

// GetState 返回当前状态
func (r *Room) GetState() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.State
}

// GetCurrentRound 返回当前回合
func (r *Room) GetCurrentRound() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.CurrentRound
}

// PendingResults 返回本回合已锁定的答案数
func (r *Room) PendingResults() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

// Level 返回本回合关卡
func (r *Room) Level() protocol.LevelData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level
}

// PlayerCount 返回玩家数
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Players)
}
