package service

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/berfenger/homedash/internal/core/domain"
	"github.com/berfenger/homedash/internal/util/virtualclock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryBoardStaleWhileError(t *testing.T) {
	clock := virtualclock.New(time.Unix(0, 0))
	backend := &fakeBackend{history: []domain.HistoryRecord{
		record(1, "hue", "a", "2025-01-01T10:00:00", `{"brightness": 9}`),
	}}
	board := NewHistoryBoard(backend, clock, NewProjector(0), 24, clock, testLogger(t))

	require.NoError(t, await(t, func(done Done) { board.Load(0, done) }))
	assert.Equal(t, "history:24", backend.ops()[0])
	assert.Len(t, board.Projection().Brightness, 1)

	backend.historyErr = errors.New("down")
	assert.Error(t, await(t, func(done Done) { board.Load(48, done) }))
	assert.Equal(t, HistoryLoadFailedMessage, board.Err())
	assert.Len(t, board.Projection().Brightness, 1)
	assert.Equal(t, 24, board.Hours())

	backend.historyErr = nil
	backend.history = nil
	require.NoError(t, await(t, board.Reload))
	assert.Empty(t, board.Err())
	assert.Empty(t, board.Projection().Brightness)
}

func TestDeviceScheduleBoard(t *testing.T) {
	backend := &fakeBackend{schedules: []domain.DeviceSchedule{
		{ID: "s1", Name: "Morning", Days: json.RawMessage(`["MON"]`), Times: json.RawMessage(`[]`), Active: true},
	}}
	board := NewDeviceScheduleBoard(backend, inlineExecutor(), testLogger(t))

	require.NoError(t, await(t, board.Load))
	assert.Len(t, board.Schedules(), 1)

	backend.schedulesErr = errors.New("down")
	assert.Error(t, await(t, board.Load))
	assert.Len(t, board.Schedules(), 1)
	assert.Equal(t, DeviceSchedulesLoadFailedMessage, board.Err())
}
