package apperrors

import (
	"errors"

	"github.com/palemoky/bird-count/internal/protocol"
)

// GameError 游戏错误（房间和状态机共享）
type GameError struct {
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// 预定义错误
var (
	ErrRoomNotFound      = &GameError{Code: protocol.ErrCodeRoomNotFound, Message: "房间不存在"}
	ErrRoomFull          = &GameError{Code: protocol.ErrCodeRoomFull, Message: "房间已满"}
	ErrNotInRoom         = &GameError{Code: protocol.ErrCodeNotInRoom, Message: "您不在房间中"}
	ErrInvalidRoomKey    = &GameError{Code: protocol.ErrCodeInvalidRoomKey, Message: "无效的房间号"}
	ErrGameStarted       = &GameError{Code: protocol.ErrCodeGameStarted, Message: "游戏已开始"}
	ErrGameNotStart      = &GameError{Code: protocol.ErrCodeGameNotStart, Message: "回合尚未开始"}
	ErrAlreadyRevealing  = &GameError{Code: protocol.ErrCodeRevealing, Message: "本回合正在揭晓"}
	ErrGameOver          = &GameError{Code: protocol.ErrCodeGameOver, Message: "游戏已结束"}
	ErrInvalidSubmission = &GameError{Code: protocol.ErrCodeInvalidSubmission, Message: "无效的答案"}
)

// IsBenign 判断错误是否属于可静默忽略的竞态（玩家或房间已不存在）
func IsBenign(err error) bool {
	return errors.Is(err, ErrNotInRoom) || errors.Is(err, ErrRoomNotFound)
}
