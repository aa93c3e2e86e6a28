package room

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/bird-count/internal/config"
	"github.com/palemoky/bird-count/internal/game/level"
	"github.com/palemoky/bird-count/internal/protocol"
	"github.com/palemoky/bird-count/internal/testutil"
	"github.com/palemoky/bird-count/internal/types"
)

const testRevealDelay = 10 * time.Millisecond

func newTestManager(t *testing.T, rounds int) (*RoomManager, *testutil.FakeGateway) {
	t.Helper()
	return newTestManagerWithDelay(t, rounds, testRevealDelay)
}

func newTestManagerWithDelay(t *testing.T, rounds int, delay time.Duration) (*RoomManager, *testutil.FakeGateway) {
	t.Helper()
	gw := testutil.NewFakeGateway()
	rm := NewRoomManager(ManagerDeps{
		Gateway: gw,
		Levels:  level.NewGenerator(42, 0, 0),
		Game: config.GameConfig{
			TotalRounds:   rounds,
			RevealDelayMs: int(delay / time.Millisecond),
			MinTimeTaken:  0.1,
		},
	})
	t.Cleanup(rm.Close)
	return rm, gw
}

func decodePayload[T any](t *testing.T, msg *protocol.Message) T {
	t.Helper()
	require.NotNil(t, msg)
	var v T
	require.NoError(t, json.Unmarshal(msg.Payload, &v))
	return v
}

func TestNewRoomManager_Defaults(t *testing.T) {
	t.Parallel()

	rm := NewRoomManager(ManagerDeps{Gateway: testutil.NewFakeGateway()})
	assert.Equal(t, 5, rm.totalRounds)
	assert.NotNil(t, rm.levels)
	assert.Equal(t, 0, rm.Count())
}

func TestRoom_AllReady(t *testing.T) {
	t.Parallel()

	room := newRoom("r")

	// 人数不足
	room.Players["p1"] = &RoomPlayer{ID: "p1", Ready: true}
	assert.False(t, room.allReady())

	// 人数足够但未全部准备
	room.Players["p2"] = &RoomPlayer{ID: "p2"}
	assert.False(t, room.allReady())

	room.Players["p2"].Ready = true
	assert.True(t, room.allReady())
}

func TestRoom_RemovePlayer(t *testing.T) {
	t.Parallel()

	room := newRoom("r")
	for _, id := range []string{"a", "b"} {
		room.Players[id] = &RoomPlayer{ID: id, Name: id}
		room.PlayerOrder = append(room.PlayerOrder, id)
	}
	room.results["a"] = validSub(3)

	room.removePlayer("a")

	assert.NotContains(t, room.Players, "a")
	assert.Equal(t, []string{"b"}, room.PlayerOrder)
	assert.Empty(t, room.results)
}

func TestRoom_PlayerInfosKeepsJoinOrder(t *testing.T) {
	t.Parallel()

	room := newRoom("r")
	for _, id := range []string{"z", "a"} {
		room.Players[id] = &RoomPlayer{ID: id, Name: "n-" + id, TotalScore: 7}
		room.PlayerOrder = append(room.PlayerOrder, id)
	}

	infos := room.PlayerInfos()
	require.Len(t, infos, 2)
	assert.Equal(t, "z", infos[0].ID)
	assert.Equal(t, "a", infos[1].ID)
	assert.Equal(t, 7, infos[1].TotalScore)
}

func TestRoom_Snapshot(t *testing.T) {
	t.Parallel()

	rm, _ := newTestManager(t, 5)
	room, err := rm.JoinRoom("c1", "snap", "Ann")
	require.NoError(t, err)

	snap := room.Snapshot()
	assert.Equal(t, "snap", snap.RoomKey)
	assert.Equal(t, "lobby", snap.State)
	assert.Equal(t, 1, snap.CurrentRound)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "Ann", snap.Players[0].Name)
}

func TestRoomState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "lobby", RoomStateLobby.String())
	assert.Equal(t, "round_active", RoomStateRoundActive.String())
	assert.Equal(t, "round_reveal", RoomStateRoundReveal.String())
	assert.Equal(t, "game_over", RoomStateGameOver.String())
	assert.Equal(t, "unknown", RoomState(99).String())
}

func TestRoomManager_PersistsSnapshots(t *testing.T) {
	t.Parallel()

	store := new(testutil.MockRoomStore)
	saved := make(chan *types.RoomSnapshot, 8)
	store.On("SaveRoom", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved <- args.Get(1).(*types.RoomSnapshot) }).
		Return(nil)
	deleted := make(chan string, 1)
	store.On("DeleteRoom", mock.Anything, "persisted").
		Run(func(args mock.Arguments) { deleted <- args.String(1) }).
		Return(nil)

	rm := NewRoomManager(ManagerDeps{
		Gateway: testutil.NewFakeGateway(),
		Store:   store,
		Game:    config.GameConfig{TotalRounds: 1},
	})
	defer rm.Close()

	_, err := rm.JoinRoom("c1", "persisted", "Ann")
	require.NoError(t, err)

	select {
	case snap := <-saved:
		assert.Equal(t, "persisted", snap.RoomKey)
		assert.Len(t, snap.Players, 1)
	case <-time.After(time.Second):
		t.Fatal("snapshot was not saved")
	}

	rm.LeaveRoom("c1")

	select {
	case key := <-deleted:
		assert.Equal(t, "persisted", key)
	case <-time.After(time.Second):
		t.Fatal("snapshot was not deleted")
	}
}

func TestRoomManager_RecordsFinishedGame(t *testing.T) {
	t.Parallel()

	recorder := new(testutil.MockScoreRecorder)
	recorded := make(chan []types.GameResult, 1)
	recorder.On("RecordGame", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { recorded <- args.Get(1).([]types.GameResult) }).
		Return(context.DeadlineExceeded)

	rm := NewRoomManager(ManagerDeps{
		Gateway:  testutil.NewFakeGateway(),
		Recorder: recorder,
		Game:     config.GameConfig{TotalRounds: 1, RevealDelayMs: 1, MinTimeTaken: 0.1},
	})
	defer rm.Close()

	startTwoPlayerGame(t, rm, "rec")
	require.NoError(t, rm.LockIn("a", validSub(5)))
	require.NoError(t, rm.LockIn("b", subWith(4, 2, 5)))

	select {
	case results := <-recorded:
		require.Len(t, results, 2)
		byName := map[string]types.GameResult{}
		for _, r := range results {
			byName[r.PlayerName] = r
		}
		assert.True(t, byName["Ann"].Won)
		assert.False(t, byName["Bo"].Won)
		assert.Equal(t, "rec", byName["Ann"].RoomKey)
	case <-time.After(time.Second):
		t.Fatal("game result was not recorded")
	}
}
