package port

import (
	"context"

	"github.com/berfenger/homedash/internal/core/domain"
)

// StatusQuery selects the families to fetch. An empty Families list means all.
type StatusQuery struct {
	Families      []domain.Family
	RinnaiRefresh bool
}

type StatusAPI interface {
	GetStatus(ctx context.Context, query StatusQuery) (domain.DeviceStatus, error)
}

type CommandAPI interface {
	ToggleLight(ctx context.Context) error
	SetLight(ctx context.Context, on bool) error
	ToggleSwitch(ctx context.Context, name string) error
	SetSwitch(ctx context.Context, name string, on bool) error
	Circulate(ctx context.Context, minutes int) error
	ToggleGarageDoor(ctx context.Context, door int) error
}

type CameraAPI interface {
	ListCameras(ctx context.Context) ([]domain.Camera, error)
	Snapshot(ctx context.Context, cameraID string, token int64) (domain.Snapshot, error)
	SnapshotURL(cameraID string, token int64) string
}

type ScheduleAPI interface {
	ListActions(ctx context.Context, status domain.ActionStatus) ([]domain.ScheduledAction, error)
	CancelAction(ctx context.Context, id string) error
	DeviceSchedules(ctx context.Context) ([]domain.DeviceSchedule, error)
}

type HistoryAPI interface {
	History(ctx context.Context, hours int) ([]domain.HistoryRecord, error)
}

// Backend is the full REST boundary of the device gateway.
type Backend interface {
	StatusAPI
	CommandAPI
	CameraAPI
	ScheduleAPI
	HistoryAPI
}
