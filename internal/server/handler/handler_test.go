package handler

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/bird-count/internal/apperrors"
	"github.com/palemoky/bird-count/internal/config"
	"github.com/palemoky/bird-count/internal/game/level"
	"github.com/palemoky/bird-count/internal/game/room"
	"github.com/palemoky/bird-count/internal/protocol"
	"github.com/palemoky/bird-count/internal/protocol/codec"
	"github.com/palemoky/bird-count/internal/testutil"
)

type fixture struct {
	h  *Handler
	rm *room.RoomManager
	gw *testutil.FakeGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gw := testutil.NewFakeGateway()
	rm := room.NewRoomManager(room.ManagerDeps{
		Gateway: gw,
		Levels:  level.NewGenerator(7, 0, 0),
		Game:    config.GameConfig{TotalRounds: 2, RevealDelayMs: 10, MinTimeTaken: 0.1},
	})
	t.Cleanup(rm.Close)
	return &fixture{
		h:  NewHandler(HandlerDeps{RoomManager: rm}),
		rm: rm,
		gw: gw,
	}
}

func (f *fixture) send(id string, msgType protocol.MessageType, payload any) *testutil.SimpleClient {
	c := f.gw.Client(id)
	f.h.Handle(c, codec.MustNewMessage(msgType, payload))
	return c
}

func lastError(t *testing.T, c *testutil.SimpleClient) string {
	t.Helper()
	msg := c.LastOfType(protocol.MsgError)
	require.NotNil(t, msg, "expected an errorMsg")
	var text string
	require.NoError(t, json.Unmarshal(msg.Payload, &text))
	return text
}

func (f *fixture) startGame(t *testing.T) {
	t.Helper()
	f.send("a", protocol.MsgJoinGame, protocol.JoinGamePayload{Name: "Ann", Room: "r1"})
	f.send("b", protocol.MsgJoinGame, protocol.JoinGamePayload{Name: "Bo", Room: "r1"})
	f.send("a", protocol.MsgPlayerReady, nil)
	f.send("b", protocol.MsgPlayerReady, nil)
	require.Equal(t, room.RoomStateRoundActive, f.rm.GetRoom("r1").GetState())
}

func TestHandle_UnknownMessageType(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.send("a", protocol.MessageType("chat"), nil)

	assert.Equal(t, protocol.ErrorMessages[protocol.ErrCodeInvalidMsg], lastError(t, c))
}

func TestHandle_Ping(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	m := new(testutil.MockClient)
	m.On("SendMessage", mock.MatchedBy(func(msg *protocol.Message) bool {
		if msg.Type != protocol.MsgPong {
			return false
		}
		var pong protocol.PongPayload
		_ = json.Unmarshal(msg.Payload, &pong)
		return pong.ClientTimestamp == 1234 && pong.ServerTimestamp > 0
	})).Return().Once()

	f.h.Handle(m, codec.MustNewMessage(protocol.MsgPing, protocol.PingPayload{Timestamp: 1234}))
	m.AssertExpectations(t)
}

func TestHandleJoinGame(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.send("a", protocol.MsgJoinGame, protocol.JoinGamePayload{Name: "Ann", Room: "r1"})

	assert.Equal(t, "r1", f.rm.RoomOf("a"))
	assert.Len(t, a.MessagesOfType(protocol.MsgUpdatePlayerList), 1)
	assert.Empty(t, a.MessagesOfType(protocol.MsgError))
}

func TestHandleJoinGame_RoomFull(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for _, id := range []string{"a", "b"} {
		f.send(id, protocol.MsgJoinGame, protocol.JoinGamePayload{Name: id, Room: "r1"})
	}
	c := f.send("c", protocol.MsgJoinGame, protocol.JoinGamePayload{Name: "Cy", Room: "r1"})

	assert.Equal(t, "This room is full!", lastError(t, c))
	assert.Empty(t, f.rm.RoomOf("c"))
}

func TestHandleJoinGame_MalformedPayload(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.gw.Client("a")
	f.h.Handle(c, &protocol.Message{Type: protocol.MsgJoinGame, Payload: json.RawMessage(`"oops"`)})

	assert.Equal(t, protocol.ErrorMessages[protocol.ErrCodeInvalidMsg], lastError(t, c))
	assert.Zero(t, f.rm.Count())
}

func TestHandleJoinGame_Maintenance(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.h = NewHandler(HandlerDeps{RoomManager: f.rm, IsMaintenance: func() bool { return true }})
	c := f.send("a", protocol.MsgJoinGame, protocol.JoinGamePayload{Name: "Ann"})

	assert.Equal(t, protocol.ErrorMessages[protocol.ErrCodeServerMaintenance], lastError(t, c))
	assert.Zero(t, f.rm.Count())
}

func TestHandle_UnknownPlayerIgnored(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.send("ghost", protocol.MsgPlayerReady, nil)
	f.send("ghost", protocol.MsgLockIn, protocol.LockInPayload{Count: 1, TimeTaken: 1, ActualCount: 1})
	// 无效答案同样不回传：玩家不在房间时先于校验被忽略
	f.send("ghost", protocol.MsgLockIn, protocol.LockInPayload{Count: 1, TimeTaken: 0, ActualCount: 1})

	assert.Empty(t, c.Messages())
	assert.Zero(t, f.rm.Count())
}

func TestHandle_ServerOnlyTypeRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.send("a", protocol.MsgStartGame, protocol.LevelData{TargetCount: 5})

	assert.Equal(t, protocol.ErrorMessages[protocol.ErrCodeInvalidMsg], lastError(t, c))
	assert.Zero(t, f.rm.Count())
}

func TestHandleUpdateCount_ErrorsNotSurfaced(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.send("ghost", protocol.MsgUpdateCount, 3)
	f.h.Handle(c, &protocol.Message{Type: protocol.MsgUpdateCount, Payload: json.RawMessage(`{"bad":1}`)})

	assert.Empty(t, c.Messages())
}

func TestHandleUpdateCount_ForwardsToPartner(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.startGame(t)

	f.send("a", protocol.MsgUpdateCount, 6)

	msg := f.gw.Client("b").LastOfType(protocol.MsgPartnerUpdate)
	require.NotNil(t, msg)
	var update protocol.PartnerUpdatePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &update))
	assert.Equal(t, protocol.PartnerUpdatePayload{Name: "Ann", Count: 6}, update)
}

func TestHandleLockIn_FullRound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.startGame(t)

	f.send("a", protocol.MsgLockIn, protocol.LockInPayload{Count: 10, TimeTaken: 5, ActualCount: 10})
	f.send("b", protocol.MsgLockIn, protocol.LockInPayload{Count: 8, TimeTaken: 6, ActualCount: 10})

	msg := f.gw.Client("a").LastOfType(protocol.MsgStartReveal)
	require.NotNil(t, msg)
	var reveal protocol.RevealPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &reveal))
	assert.Equal(t, 200, reveal["a"].RoundScore)
	assert.Equal(t, 67, reveal["b"].RoundScore)

	r := f.rm.GetRoom("r1")
	assert.Eventually(t, func() bool { return r.GetCurrentRound() == 2 }, time.Second, 5*time.Millisecond)
}

func TestHandleLockIn_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.send("a", protocol.MsgJoinGame, protocol.JoinGamePayload{Name: "Ann", Room: "r1"})

	c := f.send("a", protocol.MsgLockIn, protocol.LockInPayload{Count: 1, TimeTaken: 1, ActualCount: 1})
	assert.Equal(t, protocol.ErrorMessages[protocol.ErrCodeGameNotStart], lastError(t, c))

	f.h.Handle(c, &protocol.Message{Type: protocol.MsgLockIn})
	assert.Equal(t, protocol.ErrorMessages[protocol.ErrCodeInvalidMsg], lastError(t, c))

	c.Reset()
	f.send("a", protocol.MsgLockIn, protocol.LockInPayload{Count: 1, TimeTaken: 0, ActualCount: 1})
	assert.Equal(t, protocol.ErrorMessages[protocol.ErrCodeInvalidSubmission], lastError(t, c))
}

func TestHandleDisconnect(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.startGame(t)

	f.h.HandleDisconnect(f.gw.Client("b"))

	assert.Empty(t, f.rm.RoomOf("b"))
	assert.NotNil(t, f.gw.Client("a").LastOfType(protocol.MsgPartnerLeft))
	assert.Equal(t, room.RoomStateLobby, f.rm.GetRoom("r1").GetState())
}

func TestSendError_BenignErrorsDropped(t *testing.T) {
	t.Parallel()

	c := testutil.NewSimpleClient("a")
	sendError(c, apperrors.ErrNotInRoom)
	sendError(c, fmt.Errorf("lookup: %w", apperrors.ErrRoomNotFound))
	assert.Empty(t, c.Messages())
}

func TestSendError_NonGameError(t *testing.T) {
	t.Parallel()

	c := testutil.NewSimpleClient("a")
	sendError(c, assert.AnError)

	assert.Equal(t, protocol.ErrorMessages[protocol.ErrCodeUnknown], lastError(t, c))
}
