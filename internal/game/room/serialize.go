package room

import (
	"context"
	"log"
	"time"

	"github.com/palemoky/bird-count/internal/types"
)

const storeTimeout = 2 * time.Second

func storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}

// snapshot 将 Room 转换为可序列化的快照，调用方需持有 r.mu
func (r *Room) snapshot() *types.RoomSnapshot {
	snap := &types.RoomSnapshot{
		RoomKey:      r.Key,
		State:        r.State.String(),
		CurrentRound: r.CurrentRound,
		Players:      make([]types.PlayerSnapshot, 0, len(r.Players)),
		CreatedAt:    r.CreatedAt.Unix(),
		UpdatedAt:    time.Now().Unix(),
	}
	for _, id := range r.PlayerOrder {
		p := r.Players[id]
		snap.Players = append(snap.Players, types.PlayerSnapshot{
			ID:         p.ID,
			Name:       p.Name,
			TotalScore: p.TotalScore,
			Ready:      p.Ready,
		})
	}
	return snap
}

// Snapshot 返回房间快照
func (r *Room) Snapshot() *types.RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// persist 异步保存快照到存储，调用方需持有 room.mu
func (rm *RoomManager) persist(room *Room) {
	if rm.store == nil {
		return
	}
	snap := room.snapshot()
	go func() {
		ctx, cancel := storeContext()
		defer cancel()
		if err := rm.store.SaveRoom(ctx, snap); err != nil {
			log.Printf("⚠️ 保存房间 %s 快照失败: %v", snap.RoomKey, err)
		}
	}()
}

// deleteSnapshot 异步删除存储中的快照
func (rm *RoomManager) deleteSnapshot(key string) {
	if rm.store == nil {
		return
	}
	go func() {
		ctx, cancel := storeContext()
		defer cancel()
		if err := rm.store.DeleteRoom(ctx, key); err != nil {
			log.Printf("⚠️ 删除房间 %s 快照失败: %v", key, err)
		}
	}()
}
