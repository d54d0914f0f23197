package service

import (
	"context"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/berfenger/homedash/internal/core/domain"
	"github.com/berfenger/homedash/internal/core/port"
	"github.com/berfenger/homedash/internal/util/virtualclock"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// inlineExecutor runs every execution on the calling goroutine.
func inlineExecutor() *virtualclock.Scheduler {
	return virtualclock.New(time.Unix(0, 0))
}

// await runs op and returns the error it reported. The executor must be inline.
func await(t *testing.T, op func(done Done)) error {
	t.Helper()
	var (
		reported error
		finished bool
	)
	op(func(err error) {
		reported, finished = err, true
	})
	require.True(t, finished, "operation did not complete")
	return reported
}

func awaitCancel(t *testing.T, q *ActionQueue, id string) (bool, error) {
	t.Helper()
	var (
		cancelled bool
		reported  error
		finished  bool
	)
	q.Cancel(id, func(ok bool, err error) {
		cancelled, reported, finished = ok, err, true
	})
	require.True(t, finished, "cancel did not complete")
	return cancelled, reported
}

type backendCall struct {
	Op    string
	Arg   string
	Query port.StatusQuery
}

// fakeBackend records every call and serves canned data.
type fakeBackend struct {
	status       domain.DeviceStatus
	statusErr    error
	commandErr   error
	actions      []domain.ScheduledAction
	listErr      error
	cancelErr    error
	cameras      []domain.Camera
	camerasErr   error
	snapshotErr  map[string]error
	history      []domain.HistoryRecord
	historyErr   error
	schedules    []domain.DeviceSchedule
	schedulesErr error
	onStatus     func()

	calls []backendCall
}

var _ port.Backend = (*fakeBackend)(nil)

func (f *fakeBackend) record(op, arg string) {
	f.calls = append(f.calls, backendCall{Op: op, Arg: arg})
}

func (f *fakeBackend) statusCalls() []backendCall {
	var calls []backendCall
	for _, c := range f.calls {
		if c.Op == "status" {
			calls = append(calls, c)
		}
	}
	return calls
}

func (f *fakeBackend) ops() []string {
	var ops []string
	for _, c := range f.calls {
		if c.Arg != "" {
			ops = append(ops, c.Op+":"+c.Arg)
		} else {
			ops = append(ops, c.Op)
		}
	}
	return ops
}

func (f *fakeBackend) GetStatus(_ context.Context, query port.StatusQuery) (domain.DeviceStatus, error) {
	f.calls = append(f.calls, backendCall{Op: "status", Query: query})
	if f.onStatus != nil {
		f.onStatus()
	}
	if f.statusErr != nil {
		return domain.DeviceStatus{}, f.statusErr
	}
	if len(query.Families) == 0 {
		return f.status.Clone(), nil
	}
	var partial domain.DeviceStatus
	for _, fam := range query.Families {
		switch fam {
		case domain.FamilyHue:
			partial.Hue = f.status.Clone().Hue
		case domain.FamilyWemo:
			partial.Wemo = f.status.Clone().Wemo
		case domain.FamilyRinnai:
			partial.Rinnai = f.status.Clone().Rinnai
		case domain.FamilyGarage:
			partial.Garage = f.status.Clone().Garage
		}
	}
	return partial, nil
}

func (f *fakeBackend) ToggleLight(context.Context) error {
	f.record("toggle_light", "")
	return f.commandErr
}

func (f *fakeBackend) SetLight(_ context.Context, on bool) error {
	f.record("set_light", fmt.Sprint(on))
	return f.commandErr
}

func (f *fakeBackend) ToggleSwitch(_ context.Context, name string) error {
	f.record("toggle_switch", name)
	return f.commandErr
}

func (f *fakeBackend) SetSwitch(_ context.Context, name string, on bool) error {
	f.record("set_switch", fmt.Sprintf("%s=%v", name, on))
	return f.commandErr
}

func (f *fakeBackend) Circulate(_ context.Context, minutes int) error {
	f.record("circulate", fmt.Sprint(minutes))
	return f.commandErr
}

func (f *fakeBackend) ToggleGarageDoor(_ context.Context, door int) error {
	f.record("toggle_garage", fmt.Sprint(door))
	return f.commandErr
}

func (f *fakeBackend) ListCameras(context.Context) ([]domain.Camera, error) {
	f.record("cameras", "")
	if f.camerasErr != nil {
		return nil, f.camerasErr
	}
	return slices.Clone(f.cameras), nil
}

func (f *fakeBackend) Snapshot(_ context.Context, cameraID string, token int64) (domain.Snapshot, error) {
	f.record("snapshot", fmt.Sprintf("%s?t=%d", cameraID, token))
	if err := f.snapshotErr[cameraID]; err != nil {
		return domain.Snapshot{}, err
	}
	return domain.Snapshot{CameraID: cameraID, Token: token, ContentType: "image/jpeg", Data: []byte(cameraID)}, nil
}

func (f *fakeBackend) SnapshotURL(cameraID string, token int64) string {
	return fmt.Sprintf("/cameras/snapshot/%s?t=%d", cameraID, token)
}

func (f *fakeBackend) ListActions(_ context.Context, status domain.ActionStatus) ([]domain.ScheduledAction, error) {
	f.record("list_actions", string(status))
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.actions), nil
}

func (f *fakeBackend) CancelAction(_ context.Context, id string) error {
	f.record("cancel_action", id)
	if f.cancelErr != nil {
		return f.cancelErr
	}
	idx := slices.IndexFunc(f.actions, func(a domain.ScheduledAction) bool { return a.ID == id })
	if idx < 0 {
		return &domain.StatusError{Op: "cancel action", Code: 404, Message: "Action not found"}
	}
	f.actions = slices.Delete(f.actions, idx, idx+1)
	return nil
}

func (f *fakeBackend) DeviceSchedules(context.Context) ([]domain.DeviceSchedule, error) {
	f.record("device_schedules", "")
	if f.schedulesErr != nil {
		return nil, f.schedulesErr
	}
	return slices.Clone(f.schedules), nil
}

func (f *fakeBackend) History(_ context.Context, hours int) ([]domain.HistoryRecord, error) {
	f.record("history", fmt.Sprint(hours))
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return slices.Clone(f.history), nil
}

func fullStatus() domain.DeviceStatus {
	return domain.DeviceStatus{
		Hue: &domain.HueStatus{Name: "Baby room", IsOn: true, Brightness: 128},
		Wemo: domain.WemoStatus{
			"coffee": {Name: "coffee", IsOn: domain.PowerOff},
			"veggie": {Name: "veggie", IsOn: domain.PowerOn},
		},
		Rinnai: &domain.RinnaiStatus{Name: "Heater", IsOnline: true, SetTemperature: 120, InletTemp: 60, OutletTemp: 118},
		Garage: &domain.GarageStatus{Available: true, DoorCount: 2},
	}
}

func testLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zap.Must(zap.NewDevelopment())
}
