package service

import (
	"context"
	"testing"
	"time"

	"github.com/berfenger/homedash/internal/core/domain"
	"github.com/berfenger/homedash/internal/util/virtualclock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatcher(t *testing.T, backend *fakeBackend) (*Dispatcher, *StatusStore, *virtualclock.Scheduler) {
	clock := virtualclock.New(time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC))
	store := NewStatusStore(backend, clock, clock, testLogger(t))
	d := NewDispatcher(backend, clock, store, clock, DispatcherConfig{
		SettleWindow:              10 * time.Second,
		DefaultCirculationMinutes: 5,
	}, testLogger(t))
	return d, store, clock
}

func TestToggleSwitchRefetchesOnlyWemo(t *testing.T) {
	require := require.New(t)
	backend := &fakeBackend{status: fullStatus()}
	d, store, _ := newDispatcher(t, backend)

	require.NoError(await(t, func(done Done) { d.ToggleSwitch("coffee", done) }))

	require.Equal([]string{"toggle_switch:coffee", "status"}, backend.ops())
	require.Equal([]domain.Family{domain.FamilyWemo}, backend.statusCalls()[0].Query.Families)
	require.NotNil(store.Status().Wemo)
	require.Nil(store.Status().Hue)
}

func TestEveryCommandRefetchesItsFamily(t *testing.T) {
	cases := []struct {
		name   string
		run    func(t *testing.T, d *Dispatcher) error
		op     string
		family domain.Family
	}{
		{"toggle light", func(t *testing.T, d *Dispatcher) error { return await(t, d.ToggleLight) }, "toggle_light", domain.FamilyHue},
		{"light on", func(t *testing.T, d *Dispatcher) error { return await(t, func(done Done) { d.SetLight(true, done) }) }, "set_light:true", domain.FamilyHue},
		{"switch off", func(t *testing.T, d *Dispatcher) error {
			return await(t, func(done Done) { d.SetSwitch("veggie", false, done) })
		}, "set_switch:veggie=false", domain.FamilyWemo},
		{"garage", func(t *testing.T, d *Dispatcher) error {
			return await(t, func(done Done) { d.ToggleGarageDoor(1, done) })
		}, "toggle_garage:1", domain.FamilyGarage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := &fakeBackend{status: fullStatus()}
			d, _, clock := newDispatcher(t, backend)

			require.NoError(t, tc.run(t, d))
			assert.Equal(t, []string{tc.op, "status"}, backend.ops())
			assert.Equal(t, []domain.Family{tc.family}, backend.statusCalls()[0].Query.Families)
			assert.Equal(t, 0, clock.Pending(), "no delayed refresh")
		})
	}
}

func TestCommandFailureLeavesSnapshot(t *testing.T) {
	require := require.New(t)
	backend := &fakeBackend{status: fullStatus()}
	d, store, _ := newDispatcher(t, backend)
	require.NoError(await(t, func(done Done) { store.Fetch(done) }))
	backend.calls = nil

	backend.commandErr = &domain.CommandError{Op: "toggle light", Message: "Bridge not connected"}
	err := await(t, d.ToggleLight)

	require.Error(err)
	var cmdErr *domain.CommandError
	require.ErrorAs(err, &cmdErr)
	require.Equal([]string{"toggle_light"}, backend.ops(), "no refetch after failure")
	require.Contains(store.Err(), "Bridge not connected")
	require.Equal(fullStatus(), store.Status())
}

func TestRefetchFailureAfterCommandSurfacesError(t *testing.T) {
	backend := &fakeBackend{status: fullStatus()}
	d, store, _ := newDispatcher(t, backend)
	backend.statusErr = &domain.TransportError{Op: "status", Err: context.DeadlineExceeded}

	err := await(t, func(done Done) { d.ToggleSwitch("coffee", done) })
	assert.Error(t, err)
	assert.Equal(t, StatusFetchFailedMessage, store.Err())
	assert.Nil(t, store.Status().Wemo)
}

func TestCirculateSchedulesExactlyOneSettleRefresh(t *testing.T) {
	require := require.New(t)
	backend := &fakeBackend{status: fullStatus()}
	d, store, clock := newDispatcher(t, backend)

	require.NoError(await(t, func(done Done) { d.CirculateWaterHeater(5, done) }))

	require.Equal([]string{"circulate:5", "status"}, backend.ops())
	probe := backend.statusCalls()[0]
	require.True(probe.Query.RinnaiRefresh)
	require.Equal([]domain.Family{domain.FamilyRinnai}, probe.Query.Families)
	require.Equal(1, clock.Pending())
	require.True(d.SettlePending())

	clock.Advance(9 * time.Second)
	require.Len(backend.statusCalls(), 1)

	clock.Advance(time.Second)
	require.Len(backend.statusCalls(), 2)
	require.Empty(backend.statusCalls()[1].Query.Families, "settle refresh covers every family")
	require.False(backend.statusCalls()[1].Query.RinnaiRefresh)
	require.NotNil(store.Status().Hue)

	clock.Advance(time.Minute)
	require.Len(backend.statusCalls(), 2)
	require.False(d.SettlePending())
}

func TestCirculateUsesDefaultDuration(t *testing.T) {
	backend := &fakeBackend{status: fullStatus()}
	d, _, _ := newDispatcher(t, backend)

	require.NoError(t, await(t, func(done Done) { d.CirculateWaterHeater(0, done) }))
	assert.Equal(t, "circulate:5", backend.ops()[0])

	assert.ErrorIs(t, await(t, func(done Done) { d.CirculateWaterHeater(-1, done) }), domain.ErrInvalidDuration)
}

func TestCirculateProbeFailureStillSchedulesRefresh(t *testing.T) {
	backend := &fakeBackend{status: fullStatus()}
	d, store, clock := newDispatcher(t, backend)
	backend.statusErr = &domain.StatusError{Op: "status", Code: 504, Message: "timeout"}

	err := await(t, func(done Done) { d.CirculateWaterHeater(10, done) })
	assert.Error(t, err)
	assert.Contains(t, store.Err(), "water heater refresh failed")
	assert.Equal(t, 1, clock.Pending())

	backend.statusErr = nil
	clock.Advance(10 * time.Second)
	assert.Empty(t, store.Err())
	assert.NotNil(t, store.Status().Garage)
}

func TestCirculateFailureSkipsProbe(t *testing.T) {
	backend := &fakeBackend{status: fullStatus()}
	d, store, clock := newDispatcher(t, backend)
	backend.commandErr = &domain.StatusError{Op: "circulate", Code: 500}

	assert.Error(t, await(t, func(done Done) { d.CirculateWaterHeater(5, done) }))
	assert.Equal(t, []string{"circulate:5"}, backend.ops())
	assert.Equal(t, 0, clock.Pending())
	assert.NotEmpty(t, store.Err())
}

func TestRefreshWaterHeaterCoalescesSettleRefresh(t *testing.T) {
	backend := &fakeBackend{status: fullStatus()}
	d, _, clock := newDispatcher(t, backend)

	require.NoError(t, await(t, d.RefreshWaterHeater))
	clock.Advance(5 * time.Second)
	require.NoError(t, await(t, d.RefreshWaterHeater))
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(9 * time.Second)
	assert.Len(t, backend.statusCalls(), 2, "first settle refresh was replaced")
	clock.Advance(time.Second)
	assert.Len(t, backend.statusCalls(), 3)
}

func TestRefreshWaterHeaterFailureSchedulesNothing(t *testing.T) {
	backend := &fakeBackend{status: fullStatus(), statusErr: &domain.StatusError{Op: "status", Code: 502}}
	d, store, clock := newDispatcher(t, backend)

	assert.Error(t, await(t, d.RefreshWaterHeater))
	assert.Equal(t, 0, clock.Pending())
	assert.NotEmpty(t, store.Err())
}

func TestGarageDoorIndexValidation(t *testing.T) {
	backend := &fakeBackend{status: fullStatus()}
	d, store, _ := newDispatcher(t, backend)
	require.NoError(t, await(t, func(done Done) { store.Fetch(done, domain.FamilyGarage) }))
	backend.calls = nil

	assert.ErrorIs(t, await(t, func(done Done) { d.ToggleGarageDoor(0, done) }), domain.ErrInvalidDoorIndex)
	assert.ErrorIs(t, await(t, func(done Done) { d.ToggleGarageDoor(3, done) }), domain.ErrInvalidDoorIndex)
	assert.Empty(t, backend.calls)
	assert.NotEmpty(t, store.Err())

	assert.NoError(t, await(t, func(done Done) { d.ToggleGarageDoor(2, done) }))
	assert.Empty(t, store.Err())
}

func TestCloseCancelsSettleRefresh(t *testing.T) {
	backend := &fakeBackend{status: fullStatus()}
	d, _, clock := newDispatcher(t, backend)

	require.NoError(t, await(t, d.RefreshWaterHeater))
	d.Close()
	clock.Advance(time.Minute)

	assert.Len(t, backend.statusCalls(), 1)
	assert.Equal(t, 0, clock.Pending())
}

func TestCirculateWaitsForEachBackendStep(t *testing.T) {
	backend := &fakeBackend{status: fullStatus()}
	d, store, clock := newDispatcher(t, backend)
	clock.Hold()

	finished := false
	d.CirculateWaterHeater(5, func(err error) {
		assert.NoError(t, err)
		finished = true
	})
	assert.Empty(t, backend.ops(), "nothing runs on the caller")
	assert.False(t, store.Loading(), "heater refresh starts once the command is confirmed")
	assert.False(t, d.SettlePending())

	assert.Equal(t, 1, clock.Release(), "heater refresh runs inline once released")
	assert.True(t, finished)
	assert.Equal(t, []string{"circulate:5", "status"}, backend.ops())
	assert.True(t, d.SettlePending())
}
