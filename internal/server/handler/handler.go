package handler

import (
	"errors"
	"log"

	"github.com/palemoky/bird-count/internal/apperrors"
	"github.com/palemoky/bird-count/internal/game/room"
	"github.com/palemoky/bird-count/internal/logger"
	"github.com/palemoky/bird-count/internal/protocol"
	"github.com/palemoky/bird-count/internal/protocol/codec"
	"github.com/palemoky/bird-count/internal/types"
)

// HandlerDeps 处理器依赖
type HandlerDeps struct {
	RoomManager   *room.RoomManager
	IsMaintenance func() bool // 可选，维护模式下拒绝加入房间
}

// Handler 消息处理器
type Handler struct {
	roomManager   *room.RoomManager
	isMaintenance func() bool
	handlers      map[protocol.MessageType]handlerFunc
}

// handlerFunc 统一的处理器函数签名
type handlerFunc func(client types.ClientInterface, msg *protocol.Message)

// NewHandler 创建处理器
func NewHandler(deps HandlerDeps) *Handler {
	h := &Handler{
		roomManager:   deps.RoomManager,
		isMaintenance: deps.IsMaintenance,
	}
	if h.isMaintenance == nil {
		h.isMaintenance = func() bool { return false }
	}
	h.initHandlers()
	return h
}

// initHandlers 初始化消息处理器映射
func (h *Handler) initHandlers() {
	h.handlers = map[protocol.MessageType]handlerFunc{
		// 连接操作
		protocol.MsgPing: h.handlePing,

		// 房间操作
		protocol.MsgJoinGame:    h.handleJoinGame,
		protocol.MsgPlayerReady: func(c types.ClientInterface, _ *protocol.Message) { h.handleReady(c) },

		// 游戏操作
		protocol.MsgUpdateCount: h.handleUpdateCount,
		protocol.MsgLockIn:      h.handleLockIn,
	}
}

// Handle 处理消息，只接受客户端可发送的类型
func (h *Handler) Handle(client types.ClientInterface, msg *protocol.Message) {
	if handler, ok := h.handlers[msg.Type]; ok && protocol.IsClientMessage(msg.Type) {
		handler(client, msg)
		return
	}

	log.Printf("⚠️  未知消息类型: '%s' (ID: %s, Payload长度=%d bytes)", msg.Type, client.GetID(), len(msg.Payload))
	client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
}

// HandleDisconnect 连接断开时离开房间
func (h *Handler) HandleDisconnect(client types.ClientInterface) {
	h.roomManager.LeaveRoom(client.GetID())
}

// sendError 将错误转换为面向玩家的 errorMsg
// 房间或玩家已不存在属于正常竞态，静默忽略
func sendError(client types.ClientInterface, err error) {
	if apperrors.IsBenign(err) {
		return
	}

	var gameErr *apperrors.GameError
	if errors.As(err, &gameErr) {
		client.SendMessage(codec.NewErrorMessage(gameErr.Code))
		return
	}
	logger.LogError("处理 %s 的消息失败: %v", client.GetID(), err)
	client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeUnknown))
}
