package handler

import (
	"log"

	"github.com/palemoky/bird-count/internal/apperrors"
	"github.com/palemoky/bird-count/internal/game/score"
	"github.com/palemoky/bird-count/internal/protocol"
	"github.com/palemoky/bird-count/internal/protocol/codec"
	"github.com/palemoky/bird-count/internal/types"
)

// handleUpdateCount 转发实时计数，属于遥测消息，错误不回传
func (h *Handler) handleUpdateCount(client types.ClientInterface, msg *protocol.Message) {
	count, err := codec.ParsePayload[int](msg)
	if err != nil {
		return
	}

	if err := h.roomManager.UpdateCount(client.GetID(), *count); err != nil && !apperrors.IsBenign(err) {
		log.Printf("⚠️ 转发 %s 的计数失败: %v", client.GetID(), err)
	}
}

// handleLockIn 锁定答案
func (h *Handler) handleLockIn(client types.ClientInterface, msg *protocol.Message) {
	payload, err := codec.ParsePayload[protocol.LockInPayload](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	sub := score.Submission{
		Count:       payload.Count,
		TimeTaken:   payload.TimeTaken,
		ActualCount: payload.ActualCount,
	}
	if err := h.roomManager.LockIn(client.GetID(), sub); err != nil {
		sendError(client, err)
	}
}
