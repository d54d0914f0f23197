package actor

import (
	"context"
	"fmt"
	"sync"

	"github.com/berfenger/homedash/internal/core/domain"
	"github.com/berfenger/homedash/internal/core/port"
)

// stubBackend is a thread safe in-memory device gateway.
type stubBackend struct {
	mu           sync.Mutex
	status       domain.DeviceStatus
	calls        []string
	refreshGate  chan struct{}
	snapshotGate chan struct{}
}

var _ port.Backend = (*stubBackend)(nil)

func newStubBackend() *stubBackend {
	return &stubBackend{
		status: domain.DeviceStatus{
			Hue:    &domain.HueStatus{Name: "Baby room", IsOn: false, Brightness: 100},
			Wemo:   domain.WemoStatus{"coffee": {Name: "coffee", IsOn: domain.PowerOff}},
			Rinnai: &domain.RinnaiStatus{Name: "Water heater", IsOnline: true, SetTemperature: 120},
			Garage: &domain.GarageStatus{Available: true, DoorCount: 2},
		},
	}
}

func (b *stubBackend) record(call string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
}

func (b *stubBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *stubBackend) Called(call string) bool {
	for _, c := range b.Calls() {
		if c == call {
			return true
		}
	}
	return false
}

// holdHeaterRefresh blocks water heater refreshes until the returned release is called.
func (b *stubBackend) holdHeaterRefresh() (release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshGate = make(chan struct{})
	return closer(b.refreshGate)
}

// holdSnapshots blocks snapshot downloads until the returned release is called.
func (b *stubBackend) holdSnapshots() (release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshotGate = make(chan struct{})
	return closer(b.snapshotGate)
}

func closer(gate chan struct{}) func() {
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (b *stubBackend) wait(ctx context.Context, gate func() chan struct{}) {
	b.mu.Lock()
	g := gate()
	b.mu.Unlock()
	if g == nil {
		return
	}
	select {
	case <-g:
	case <-ctx.Done():
	}
}

func (b *stubBackend) GetStatus(ctx context.Context, query port.StatusQuery) (domain.DeviceStatus, error) {
	b.record("status " + domain.FamiliesCSV(query.Families))
	if query.RinnaiRefresh {
		b.wait(ctx, func() chan struct{} { return b.refreshGate })
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(query.Families) == 0 {
		return b.status.Clone(), nil
	}
	var partial domain.DeviceStatus
	full := b.status.Clone()
	for _, f := range query.Families {
		switch f {
		case domain.FamilyHue:
			partial.Hue = full.Hue
		case domain.FamilyWemo:
			partial.Wemo = full.Wemo
		case domain.FamilyRinnai:
			partial.Rinnai = full.Rinnai
		case domain.FamilyGarage:
			partial.Garage = full.Garage
		}
	}
	return partial, nil
}

func (b *stubBackend) ToggleLight(context.Context) error {
	b.record("toggle light")
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status.Hue.IsOn = !b.status.Hue.IsOn
	return nil
}

func (b *stubBackend) SetLight(_ context.Context, on bool) error {
	b.record(fmt.Sprintf("set light %v", on))
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status.Hue.IsOn = on
	return nil
}

func (b *stubBackend) ToggleSwitch(_ context.Context, name string) error {
	b.record("toggle switch " + name)
	b.mu.Lock()
	defer b.mu.Unlock()
	dev := b.status.Wemo[name]
	dev.IsOn = domain.PowerStateOf(!dev.IsOn.IsOn())
	b.status.Wemo[name] = dev
	return nil
}

func (b *stubBackend) SetSwitch(_ context.Context, name string, on bool) error {
	b.record(fmt.Sprintf("set switch %s %v", name, on))
	b.mu.Lock()
	defer b.mu.Unlock()
	dev := b.status.Wemo[name]
	dev.IsOn = domain.PowerStateOf(on)
	b.status.Wemo[name] = dev
	return nil
}

func (b *stubBackend) Circulate(_ context.Context, minutes int) error {
	b.record(fmt.Sprintf("circulate %d", minutes))
	return nil
}

func (b *stubBackend) ToggleGarageDoor(_ context.Context, door int) error {
	b.record(fmt.Sprintf("toggle garage %d", door))
	return nil
}

func (b *stubBackend) ListCameras(context.Context) ([]domain.Camera, error) {
	b.record("cameras")
	return []domain.Camera{{ID: "front", Name: "Front door"}}, nil
}

func (b *stubBackend) Snapshot(ctx context.Context, cameraID string, token int64) (domain.Snapshot, error) {
	b.record("snapshot " + cameraID)
	b.wait(ctx, func() chan struct{} { return b.snapshotGate })
	return domain.Snapshot{CameraID: cameraID, Token: token, ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}}, nil
}

func (b *stubBackend) SnapshotURL(cameraID string, token int64) string {
	return fmt.Sprintf("http://gateway/api/cameras/snapshot/%s?t=%d", cameraID, token)
}

func (b *stubBackend) ListActions(context.Context, domain.ActionStatus) ([]domain.ScheduledAction, error) {
	b.record("actions")
	return []domain.ScheduledAction{{ID: "a1", Display: "Turn off coffee", Status: domain.ActionPending}}, nil
}

func (b *stubBackend) CancelAction(_ context.Context, id string) error {
	b.record("cancel " + id)
	return nil
}

func (b *stubBackend) DeviceSchedules(context.Context) ([]domain.DeviceSchedule, error) {
	b.record("device schedules")
	return []domain.DeviceSchedule{{ID: "s1", Name: "Morning", Active: true}}, nil
}

func (b *stubBackend) History(_ context.Context, hours int) ([]domain.HistoryRecord, error) {
	b.record(fmt.Sprintf("history %d", hours))
	return []domain.HistoryRecord{}, nil
}
