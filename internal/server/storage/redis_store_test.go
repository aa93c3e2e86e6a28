package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/bird-count/internal/types"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	client, mr := newTestRedis(t)
	return NewRedisStore(client, time.Hour), mr
}

func testSnapshot(key string) *types.RoomSnapshot {
	return &types.RoomSnapshot{
		RoomKey:      key,
		State:        "round_active",
		CurrentRound: 2,
		Players: []types.PlayerSnapshot{
			{ID: "a", Name: "Ann", TotalScore: 200, Ready: true},
			{ID: "b", Name: "Bo", TotalScore: 67, Ready: true},
		},
		CreatedAt: time.Now().Unix(),
		UpdatedAt: time.Now().Unix(),
	}
}

// readSnapshot 直接从 Redis 读取镜像的快照，不存在时返回 nil
func readSnapshot(t *testing.T, mr *miniredis.Miniredis, key string) *types.RoomSnapshot {
	t.Helper()
	if !mr.Exists(roomKeyPrefix + key) {
		return nil
	}
	data, err := mr.Get(roomKeyPrefix + key)
	require.NoError(t, err)

	var snap types.RoomSnapshot
	require.NoError(t, json.Unmarshal([]byte(data), &snap))
	return &snap
}

func TestRedisStore_SaveDeleteRoom(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	snap := testSnapshot("r1")
	require.NoError(t, store.SaveRoom(ctx, snap))

	saved := readSnapshot(t, mr, "r1")
	require.NotNil(t, saved)
	assert.Equal(t, snap.RoomKey, saved.RoomKey)
	assert.Equal(t, snap.State, saved.State)
	assert.Equal(t, snap.Players, saved.Players)

	// 快照带过期时间
	assert.Equal(t, time.Hour, mr.TTL(roomKeyPrefix+"r1"))

	require.NoError(t, store.DeleteRoom(ctx, "r1"))
	assert.Nil(t, readSnapshot(t, mr, "r1"))
}

func TestRedisStore_ExpiresSnapshots(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	require.NoError(t, store.SaveRoom(context.Background(), testSnapshot("r1")))
	mr.FastForward(2 * time.Hour)

	assert.Nil(t, readSnapshot(t, mr, "r1"))
}

func TestRedisStore_GetAllAndPurge(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	for _, key := range []string{"r1", "r2", "r3"} {
		require.NoError(t, store.SaveRoom(ctx, testSnapshot(key)))
	}
	require.NoError(t, mr.Set("unrelated", "x"))

	keys, err := store.GetAllRoomKeys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"r1", "r2", "r3"}, keys)

	n, err := store.PurgeRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, mr.Exists("unrelated"))

	n, err = store.PurgeRooms(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisStore_NilClientIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for _, store := range []*RedisStore{nil, NewRedisStore(nil, 0)} {
		assert.NoError(t, store.SaveRoom(ctx, testSnapshot("r1")))
		assert.NoError(t, store.DeleteRoom(ctx, "r1"))

		n, err := store.PurgeRooms(ctx)
		assert.NoError(t, err)
		assert.Zero(t, n)
	}
}

func TestRedisStore_ConnectionError(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	mr.Close()

	err := store.SaveRoom(context.Background(), testSnapshot("r1"))
	assert.Error(t, err)
}
