package protocol

// --- 客户端请求 Payloads ---

// JoinGamePayload 加入房间请求
type JoinGamePayload struct {
	Name string `json:"name"`
	Room string `json:"room"`
}

// LockInPayload 锁定答案请求（数值均来自客户端，不可信）
type LockInPayload struct {
	Count       int     `json:"count"`
	TimeTaken   float64 `json:"timeTaken"`   // 回合开始后的秒数
	ActualCount int     `json:"actualCount"` // 客户端回传的真实数量
}

// PingPayload 心跳请求
type PingPayload struct {
	Timestamp int64 `json:"timestamp"` // 客户端时间戳（毫秒）
}

// updateCount 的 payload 是一个裸整数，见 codec.ParsePayload[int]

// --- 服务端响应 Payloads ---

// ConnectedPayload 连接成功响应
type ConnectedPayload struct {
	PlayerID string `json:"playerId"`
}

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"clientTimestamp"`
	ServerTimestamp int64 `json:"serverTimestamp"`
}

// PartnerUpdatePayload 对手实时计数
type PartnerUpdatePayload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PartnerLeftPayload 对手离开通知
type PartnerLeftPayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// RevealPayload 回合揭晓：连接 ID → 成绩
type RevealPayload map[string]RevealRecord

// RevealRecord 单个玩家的回合成绩
type RevealRecord struct {
	RoundScore    int  `json:"roundScore"`
	TotalScore    int  `json:"totalScore"`
	IsPerfect     bool `json:"isPerfect"`
	OriginalCount int  `json:"originalCount"`
}

// GameOverPayload 游戏结束通知
type GameOverPayload struct {
	Players    []PlayerInfo `json:"players"`
	WinnerID   string       `json:"winnerId"`
	WinnerName string       `json:"winnerName"`
	IsDraw     bool         `json:"isDraw"`
}

// --- 通用数据结构 ---

// PlayerInfo 玩家信息
type PlayerInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TotalScore int    `json:"totalScore"`
	Ready      bool   `json:"ready"`
}

// LevelData 回合关卡数据
type LevelData struct {
	TargetCount int    `json:"targetCount"`
	DecoyCount  int    `json:"decoyCount"`
	Placements  []Spot `json:"placements"`
	Round       int    `json:"round"`
}

// Spot 摆放坐标（百分比）
type Spot struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// RoomListItem 房间列表项
type RoomListItem struct {
	RoomKey      string `json:"room"`
	PlayerCount  int    `json:"playerCount"`
	MaxPlayers   int    `json:"maxPlayers"`
	State        string `json:"state"`
	CurrentRound int    `json:"currentRound"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
}
