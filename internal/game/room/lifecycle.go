package room

import (
	"log"
	"time"

	"github.com/palemoky/bird-count/internal/apperrors"
	"github.com/palemoky/bird-count/internal/game/score"
	"github.com/palemoky/bird-count/internal/protocol"
	"github.com/palemoky/bird-count/internal/protocol/codec"
	"github.com/palemoky/bird-count/internal/types"
)

// SetReady 玩家准备；双方都准备后开始第一回合
func (rm *RoomManager) SetReady(connID string) error {
	room, err := rm.roomFor(connID)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	player, exists := room.Players[connID]
	if !exists {
		return apperrors.ErrNotInRoom
	}

	switch room.State {
	case RoomStateLobby:
	case RoomStateGameOver:
		return apperrors.ErrGameOver
	default:
		return apperrors.ErrGameStarted
	}

	player.Ready = true

	if !room.allReady() {
		rm.gateway.SendTo(connID, codec.MustNewMessage(protocol.MsgWaitingForOpponent, nil))
		return nil
	}

	rm.startGame(room)
	return nil
}

// startGame 开始第一回合，调用方需持有 room.mu
func (rm *RoomManager) startGame(room *Room) {
	room.CurrentRound = 1
	room.results = make(map[string]score.Submission)
	for _, p := range room.Players {
		p.TotalScore = 0
	}
	room.level = rm.levels.Generate(room.CurrentRound)
	room.State = RoomStateRoundActive
	room.generation++

	log.Printf("🎮 房间 %s 开始游戏（共 %d 回合）", room.Key, rm.totalRounds)

	rm.gateway.BroadcastToRoom(room.Key, codec.MustNewMessage(protocol.MsgStartGame, room.level))
	rm.persist(room)
}

// UpdateCount 转发实时计数给对手，不修改任何状态
func (rm *RoomManager) UpdateCount(connID string, count int) error {
	room, err := rm.roomFor(connID)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	player, exists := room.Players[connID]
	if !exists {
		return apperrors.ErrNotInRoom
	}
	if room.State != RoomStateRoundActive || count < 0 {
		return nil
	}

	rm.gateway.BroadcastToRoom(room.Key, codec.MustNewMessage(protocol.MsgPartnerUpdate, protocol.PartnerUpdatePayload{
		Name:  player.Name,
		Count: count,
	}), connID)
	return nil
}

// LockIn 提交本回合答案；双方都提交后计分并揭晓
func (rm *RoomManager) LockIn(connID string, sub score.Submission) error {
	room, err := rm.roomFor(connID)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if _, exists := room.Players[connID]; !exists {
		return apperrors.ErrNotInRoom
	}
	if err := sub.Validate(); err != nil {
		return err
	}

	switch room.State {
	case RoomStateRoundActive:
	case RoomStateRoundReveal:
		return apperrors.ErrAlreadyRevealing
	case RoomStateGameOver:
		return apperrors.ErrGameOver
	default:
		return apperrors.ErrGameNotStart
	}

	// 重复提交以最后一次为准
	room.results[connID] = sub

	rm.gateway.BroadcastToRoom(room.Key, codec.MustNewMessage(protocol.MsgPartnerLockedIn, nil), connID)

	if len(room.results) >= len(room.Players) {
		rm.revealRound(room)
	}
	return nil
}

// revealRound 计分、广播揭晓并安排推进，调用方需持有 room.mu
// 状态切换到 RoundReveal 后，后续提交会被拒绝，因此每回合只计分一次
func (rm *RoomManager) revealRound(room *Room) {
	reveal := make(protocol.RevealPayload, len(room.results))
	for id, sub := range room.results {
		player, ok := room.Players[id]
		if !ok {
			continue
		}
		res := score.Compute(sub, rm.minTimeTaken)
		player.TotalScore += res.RoundScore
		reveal[id] = protocol.RevealRecord{
			RoundScore:    res.RoundScore,
			TotalScore:    player.TotalScore,
			IsPerfect:     res.IsPerfect,
			OriginalCount: sub.Count,
		}
	}

	room.results = make(map[string]score.Submission)
	room.State = RoomStateRoundReveal
	room.generation++
	gen := room.generation

	log.Printf("🔍 房间 %s 第 %d 回合揭晓", room.Key, room.CurrentRound)

	rm.gateway.BroadcastToRoom(room.Key, codec.MustNewMessage(protocol.MsgStartReveal, reveal))

	room.stopTimer()
	room.advanceTimer = time.AfterFunc(rm.revealDelay, func() {
		rm.advanceRound(room, gen)
	})
	rm.persist(room)
}

// advanceRound 揭晓结束后进入下一回合或结束游戏
func (rm *RoomManager) advanceRound(room *Room, gen uint64) {
	room.mu.Lock()
	defer room.mu.Unlock()

	// 房间已删除、已重置或计时器过期
	if room.closed || room.generation != gen || room.State != RoomStateRoundReveal {
		return
	}
	room.advanceTimer = nil

	if room.CurrentRound < rm.totalRounds {
		room.CurrentRound++
		room.level = rm.levels.Generate(room.CurrentRound)
		room.State = RoomStateRoundActive
		room.generation++

		log.Printf("⏭️ 房间 %s 进入第 %d 回合", room.Key, room.CurrentRound)
		rm.gateway.BroadcastToRoom(room.Key, codec.MustNewMessage(protocol.MsgNextRoundData, room.level))
		rm.persist(room)
		return
	}

	room.State = RoomStateGameOver
	room.generation++

	payload := buildGameOver(room.playerInfos())
	log.Printf("🏁 房间 %s 游戏结束，胜者: %s", room.Key, winnerLabel(payload))

	rm.gateway.BroadcastToRoom(room.Key, codec.MustNewMessage(protocol.MsgGameOver, payload))
	rm.recordResults(room.Key, payload)
	rm.persist(room)
}

// resetToLobby 中断对局回到大厅，调用方需持有 room.mu
func (rm *RoomManager) resetToLobby(room *Room) {
	room.stopTimer()
	room.results = make(map[string]score.Submission)
	room.level = protocol.LevelData{}
	room.CurrentRound = 1
	room.State = RoomStateLobby
	room.generation++
	for _, p := range room.Players {
		p.Ready = false
		p.TotalScore = 0
	}
}

// buildGameOver 计算终局排名，平分时无胜者
func buildGameOver(players []protocol.PlayerInfo) protocol.GameOverPayload {
	payload := protocol.GameOverPayload{Players: players}

	best := -1
	for _, p := range players {
		switch {
		case p.TotalScore > best:
			best = p.TotalScore
			payload.WinnerID = p.ID
			payload.WinnerName = p.Name
			payload.IsDraw = false
		case p.TotalScore == best:
			payload.IsDraw = true
		}
	}
	if payload.IsDraw {
		payload.WinnerID = ""
		payload.WinnerName = ""
	}
	return payload
}

func winnerLabel(p protocol.GameOverPayload) string {
	if p.IsDraw {
		return "平局"
	}
	return p.WinnerName
}

// recordResults 异步写入排行榜
func (rm *RoomManager) recordResults(roomKey string, payload protocol.GameOverPayload) {
	if rm.recorder == nil {
		return
	}

	results := make([]types.GameResult, 0, len(payload.Players))
	for _, p := range payload.Players {
		results = append(results, types.GameResult{
			RoomKey:    roomKey,
			PlayerName: p.Name,
			TotalScore: p.TotalScore,
			Won:        !payload.IsDraw && p.ID == payload.WinnerID,
		})
	}

	go func() {
		ctx, cancel := storeContext()
		defer cancel()
		if err := rm.recorder.RecordGame(ctx, results); err != nil {
			log.Printf("⚠️ 记录房间 %s 成绩失败: %v", roomKey, err)
		}
	}()
}
