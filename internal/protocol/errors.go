package protocol

// 错误码
const (
	ErrCodeUnknown           = 1000
	ErrCodeInvalidMsg        = 1001
	ErrCodeRateLimit         = 1002 // 速率限制
	ErrCodeRoomNotFound      = 2001
	ErrCodeRoomFull          = 2002
	ErrCodeNotInRoom         = 2003
	ErrCodeGameStarted       = 2004 // 游戏已开始
	ErrCodeInvalidRoomKey    = 2005
	ErrCodeGameNotStart      = 3001
	ErrCodeRevealing         = 3002 // 本回合已揭晓
	ErrCodeGameOver          = 3003
	ErrCodeInvalidSubmission = 3004
	ErrCodeServerMaintenance = 5003 // 服务器维护中
)

// ErrorMessages 错误码对应的消息（面向玩家）
var ErrorMessages = map[int]string{
	ErrCodeUnknown:           "Something went wrong.",
	ErrCodeInvalidMsg:        "Invalid message format.",
	ErrCodeRateLimit:         "Slow down! Too many messages.",
	ErrCodeRoomNotFound:      "Room not found.",
	ErrCodeRoomFull:          "This room is full!",
	ErrCodeNotInRoom:         "You are not in a room.",
	ErrCodeGameStarted:       "The game has already started.",
	ErrCodeInvalidRoomKey:    "Invalid room code.",
	ErrCodeGameNotStart:      "No round is in progress.",
	ErrCodeRevealing:         "This round is already being revealed.",
	ErrCodeGameOver:          "The game is over.",
	ErrCodeInvalidSubmission: "Invalid answer.",
	ErrCodeServerMaintenance: "Server is under maintenance.",
}
