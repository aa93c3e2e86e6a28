package protocol

import "encoding/json"

// Message 基础消息结构
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型
type MessageType string

// 客户端 → 服务端 消息类型
const (
	MsgJoinGame    MessageType = "joinGame"    // 加入房间
	MsgPlayerReady MessageType = "playerReady" // 准备就绪
	MsgUpdateCount MessageType = "updateCount" // 实时计数（仅转发给对手）
	MsgLockIn      MessageType = "lockIn"      // 锁定答案
	MsgPing        MessageType = "ping"        // 心跳 ping
)

// 服务端 → 客户端 消息类型
const (
	// 连接相关
	MsgConnected MessageType = "connected" // 连接成功
	MsgPong      MessageType = "pong"      // 心跳 pong

	// 房间相关
	MsgUpdatePlayerList   MessageType = "updatePlayerList"   // 房间玩家列表（全房间）
	MsgWaitingForOpponent MessageType = "waitingForOpponent" // 等待对手准备（仅请求者）
	MsgPartnerLeft        MessageType = "partnerLeft"        // 对手离开（仅剩余玩家）

	// 游戏流程
	MsgStartGame       MessageType = "startGame"       // 第一回合开始
	MsgPartnerUpdate   MessageType = "partnerUpdate"   // 对手实时计数
	MsgPartnerLockedIn MessageType = "partnerLockedIn" // 对手已锁定
	MsgStartReveal     MessageType = "startReveal"     // 回合揭晓
	MsgNextRoundData   MessageType = "nextRoundData"   // 下一回合
	MsgGameOver        MessageType = "gameOver"        // 游戏结束

	// 错误
	MsgError MessageType = "errorMsg" // 错误消息（仅请求者）
)

// IsClientMessage 判断是否为客户端可发送的消息类型
func IsClientMessage(t MessageType) bool {
	switch t {
	case MsgJoinGame, MsgPlayerReady, MsgUpdateCount, MsgLockIn, MsgPing:
		return true
	}
	return false
}
