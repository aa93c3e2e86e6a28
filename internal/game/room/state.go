package room

// RoomState 房间状态
type RoomState int

const (
	RoomStateLobby       RoomState = iota // 等待玩家加入与准备
	RoomStateRoundActive                  // 回合进行中，收集答案
	RoomStateRoundReveal                  // 揭晓动画播放中，等待推进
	RoomStateGameOver                     // 终局
)

func (s RoomState) String() string {
	switch s {
	case RoomStateLobby:
		return "lobby"
	case RoomStateRoundActive:
		return "round_active"
	case RoomStateRoundReveal:
		return "round_reveal"
	case RoomStateGameOver:
		return "game_over"
	}
	return "unknown"
}
