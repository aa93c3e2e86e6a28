//go:build !production

package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/palemoky/bird-count/internal/types"
)

// MockRoomStore 房间快照存储 mock
type MockRoomStore struct {
	mock.Mock
}

func (m *MockRoomStore) SaveRoom(ctx context.Context, snapshot *types.RoomSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockRoomStore) DeleteRoom(ctx context.Context, roomKey string) error {
	args := m.Called(ctx, roomKey)
	return args.Error(0)
}

// MockScoreRecorder 成绩记录 mock
type MockScoreRecorder struct {
	mock.Mock
}

func (m *MockScoreRecorder) RecordGame(ctx context.Context, results []types.GameResult) error {
	args := m.Called(ctx, results)
	return args.Error(0)
}
