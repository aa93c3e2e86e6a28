package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/bird-count/internal/types"
)

const (
	// Redis key 前缀
	roomKeyPrefix = "room:"

	// 房间快照默认过期时间
	defaultRoomExpiration = 2 * time.Hour
)

// RedisStore 房间快照镜像，实现 types.RoomStore
// client 为 nil 时所有操作均为空操作
type RedisStore struct {
	client     *redis.Client
	expiration time.Duration
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redis.Client, expiration time.Duration) *RedisStore {
	if expiration <= 0 {
		expiration = defaultRoomExpiration
	}
	return &RedisStore{client: client, expiration: expiration}
}

func (rs *RedisStore) enabled() bool {
	return rs != nil && rs.client != nil
}

// --- 房间存储 ---

// SaveRoom 保存房间快照到 Redis
func (rs *RedisStore) SaveRoom(ctx context.Context, snapshot *types.RoomSnapshot) error {
	if !rs.enabled() || snapshot == nil {
		return nil
	}

	jsonData, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("序列化房间快照失败: %w", err)
	}

	key := roomKeyPrefix + snapshot.RoomKey
	return rs.client.Set(ctx, key, jsonData, rs.expiration).Err()
}

// DeleteRoom 从 Redis 删除房间快照
func (rs *RedisStore) DeleteRoom(ctx context.Context, roomKey string) error {
	if !rs.enabled() {
		return nil
	}
	return rs.client.Del(ctx, roomKeyPrefix+roomKey).Err()
}

// GetAllRoomKeys 获取所有已镜像的房间号
func (rs *RedisStore) GetAllRoomKeys(ctx context.Context) ([]string, error) {
	if !rs.enabled() {
		return nil, nil
	}

	var keys []string
	iter := rs.client.Scan(ctx, 0, roomKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[len(roomKeyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// PurgeRooms 删除上次运行残留的房间快照，返回删除数量
func (rs *RedisStore) PurgeRooms(ctx context.Context) (int, error) {
	keys, err := rs.GetAllRoomKeys(ctx)
	if err != nil || len(keys) == 0 {
		return 0, err
	}

	fullKeys := make([]string, len(keys))
	for i, k := range keys {
		fullKeys[i] = roomKeyPrefix + k
	}
	n, err := rs.client.Del(ctx, fullKeys...).Result()
	return int(n), err
}
