package room

import (
	"log"
	"sort"
	"strings"

	"github.com/palemoky/bird-count/internal/apperrors"
	"github.com/palemoky/bird-count/internal/config"
	"github.com/palemoky/bird-count/internal/protocol"
	"github.com/palemoky/bird-count/internal/protocol/codec"
)

// NormalizeRoomKey 规范化客户端提供的房间号，空值使用默认房间
func NormalizeRoomKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return DefaultRoomKey, nil
	}
	if len(key) > maxRoomKeyLen {
		return "", apperrors.ErrInvalidRoomKey
	}
	return key, nil
}

// JoinRoom 加入房间，房间不存在时创建
// 已在其他房间的连接只有在确定被新房间接纳后才会离开原房间
func (rm *RoomManager) JoinRoom(connID, roomKey, name string) (*Room, error) {
	key, err := NormalizeRoomKey(roomKey)
	if err != nil {
		return nil, err
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, exists := rm.rooms[key]
	if !exists {
		room = newRoom(key)
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	// 重复加入同一房间：仅更新昵称
	if p, ok := room.Players[connID]; ok {
		p.Name = name
		rm.gateway.BroadcastToRoom(key, codec.MustNewMessage(protocol.MsgUpdatePlayerList, room.playerInfos()))
		return room, nil
	}

	if len(room.Players) >= config.MaxPlayers {
		log.Printf("🚫 房间 %s 已满，拒绝连接 %s", key, connID)
		return nil, apperrors.ErrRoomFull
	}

	// 未满的房间总在大厅（有人离开会重置对局），此处仅作保护
	if room.State != RoomStateLobby {
		return nil, apperrors.ErrGameStarted
	}

	// 确定接纳后再离开原房间
	if current, ok := rm.members[connID]; ok && current != key {
		rm.leaveLocked(connID)
	}

	if !exists {
		rm.rooms[key] = room
		log.Printf("🏠 房间 %s 已创建", key)
	}

	room.Players[connID] = &RoomPlayer{ID: connID, Name: name}
	room.PlayerOrder = append(room.PlayerOrder, connID)
	rm.members[connID] = key
	rm.gateway.Join(key, connID)

	log.Printf("👤 玩家 %s (%s) 加入房间 %s (%d/%d)", name, connID, key, len(room.Players), config.MaxPlayers)

	rm.gateway.BroadcastToRoom(key, codec.MustNewMessage(protocol.MsgUpdatePlayerList, room.playerInfos()))
	rm.persist(room)

	return room, nil
}

// LeaveRoom 连接断开时离开房间，房间空了则删除
func (rm *RoomManager) LeaveRoom(connID string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.leaveLocked(connID)
}

// leaveLocked 离开当前房间，调用方需持有 rm.mu 且未持有该房间的锁
func (rm *RoomManager) leaveLocked(connID string) {
	key, ok := rm.members[connID]
	if !ok {
		return
	}
	delete(rm.members, connID)

	room, exists := rm.rooms[key]
	if !exists {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	player, exists := room.Players[connID]
	if !exists {
		return
	}

	room.removePlayer(connID)
	rm.gateway.Leave(key, connID)

	log.Printf("👋 玩家 %s (%s) 离开房间 %s", player.Name, connID, key)

	// 如果房间空了，删除房间
	if len(room.Players) == 0 {
		room.stopTimer()
		room.closed = true
		delete(rm.rooms, key)
		rm.deleteSnapshot(key)
		log.Printf("🏠 房间 %s 已解散", key)
		return
	}

	rm.gateway.BroadcastToRoom(key, codec.MustNewMessage(protocol.MsgPartnerLeft, protocol.PartnerLeftPayload{
		PlayerID: connID,
		Name:     player.Name,
	}))

	// 对局中有人离开：房间回到大厅，剩余玩家可等待新对手
	if room.State != RoomStateLobby {
		log.Printf("♻️ 房间 %s 对局中断，回到大厅", key)
		rm.resetToLobby(room)
	}

	rm.gateway.BroadcastToRoom(key, codec.MustNewMessage(protocol.MsgUpdatePlayerList, room.playerInfos()))
	rm.persist(room)
}

// GetRoom 获取房间
func (rm *RoomManager) GetRoom(key string) *Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.rooms[key]
}

// RoomOf 返回连接所在的房间号，不在房间中返回空串
func (rm *RoomManager) RoomOf(connID string) string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.members[connID]
}

// roomFor 返回连接所在的房间
func (rm *RoomManager) roomFor(connID string) (*Room, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	key, ok := rm.members[connID]
	if !ok {
		return nil, apperrors.ErrNotInRoom
	}
	room, ok := rm.rooms[key]
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	return room, nil
}

// Count 返回房间数量
func (rm *RoomManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}

// GetRoomList 获取房间列表，按房间号排序
func (rm *RoomManager) GetRoomList() []protocol.RoomListItem {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	rooms := make([]protocol.RoomListItem, 0, len(rm.rooms))
	for key, room := range rm.rooms {
		room.mu.Lock()
		rooms = append(rooms, protocol.RoomListItem{
			RoomKey:      key,
			PlayerCount:  len(room.Players),
			MaxPlayers:   config.MaxPlayers,
			State:        room.State.String(),
			CurrentRound: room.CurrentRound,
		})
		room.mu.Unlock()
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].RoomKey < rooms[j].RoomKey })
	return rooms
}

// GetActiveGamesCount 获取进行中的游戏数量
func (rm *RoomManager) GetActiveGamesCount() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	count := 0
	for _, room := range rm.rooms {
		room.mu.Lock()
		switch room.State {
		case RoomStateRoundActive, RoomStateRoundReveal:
			count++
		}
		room.mu.Unlock()
	}
	return count
}

// Close 停止所有房间的计时器
func (rm *RoomManager) Close() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for _, room := range rm.rooms {
		room.mu.Lock()
		room.stopTimer()
		room.closed = true
		room.mu.Unlock()
	}
}
