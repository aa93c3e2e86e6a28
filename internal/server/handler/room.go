package handler

import (
	"github.com/palemoky/bird-count/internal/protocol"
	"github.com/palemoky/bird-count/internal/protocol/codec"
	"github.com/palemoky/bird-count/internal/types"
)

// handleJoinGame 加入（或创建）房间
func (h *Handler) handleJoinGame(client types.ClientInterface, msg *protocol.Message) {
	if h.isMaintenance() {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeServerMaintenance))
		return
	}

	payload, err := codec.ParsePayload[protocol.JoinGamePayload](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	if _, err := h.roomManager.JoinRoom(client.GetID(), payload.Room, payload.Name); err != nil {
		sendError(client, err)
	}
}

// handleReady 玩家准备
func (h *Handler) handleReady(client types.ClientInterface) {
	if err := h.roomManager.SetReady(client.GetID()); err != nil {
		sendError(client, err)
	}
}
