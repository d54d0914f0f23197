package service

import (
	"context"
	"slices"
	"time"

	"github.com/berfenger/homedash/internal/core/domain"
	"github.com/berfenger/homedash/internal/core/port"

	"go.uber.org/zap"
)

const (
	DefaultHistoryHours              = 24
	HistoryLoadFailedMessage         = "failed to load history"
	DeviceSchedulesLoadFailedMessage = "failed to load device schedules"
)

// HistoryBoard fetches the history log and keeps its latest projection.
type HistoryBoard struct {
	api          port.HistoryAPI
	exec         port.Executor
	projector    Projector
	clock        port.Clock
	logger       *zap.Logger
	defaultHours int
	hours        int
	projection   domain.HistoryProjection
	loadedAt     time.Time
	err          string
}

func NewHistoryBoard(api port.HistoryAPI, exec port.Executor, projector Projector, defaultHours int, clock port.Clock, logger *zap.Logger) *HistoryBoard {
	if defaultHours <= 0 {
		defaultHours = DefaultHistoryHours
	}
	return &HistoryBoard{
		api:          api,
		exec:         exec,
		projector:    projector,
		clock:        clock,
		logger:       logger,
		defaultHours: defaultHours,
		hours:        defaultHours,
		projection:   domain.EmptyHistoryProjection(),
	}
}

// Load fetches the last hours of history. Zero hours means the default window.
// The projection is built off the control thread. On failure the previous one is kept.
func (b *HistoryBoard) Load(hours int, done Done) {
	if hours <= 0 {
		hours = b.defaultHours
	}
	execute(b.exec, func(ctx context.Context) (domain.HistoryProjection, error) {
		records, err := b.api.History(ctx, hours)
		if err != nil {
			return domain.HistoryProjection{}, err
		}
		return b.projector.Project(records), nil
	}, func(projection domain.HistoryProjection, err error) {
		if err != nil {
			b.logger.Warn("history fetch failed", zap.Int("hours", hours), zap.Error(err))
			b.err = HistoryLoadFailedMessage
			complete(done, err)
			return
		}
		b.projection = projection
		b.hours = hours
		b.loadedAt = b.clock.Now()
		b.err = ""
		complete(done, nil)
	})
}

// Reload refreshes the window that was loaded last.
func (b *HistoryBoard) Reload(done Done) {
	b.Load(b.hours, done)
}

func (b *HistoryBoard) Projection() domain.HistoryProjection {
	return b.projection
}

func (b *HistoryBoard) Hours() int {
	return b.hours
}

func (b *HistoryBoard) LoadedAt() time.Time {
	return b.loadedAt
}

func (b *HistoryBoard) Err() string {
	return b.err
}

// DeviceScheduleBoard lists the recurring schedules stored on the water heater. Read only.
type DeviceScheduleBoard struct {
	api       port.ScheduleAPI
	exec      port.Executor
	logger    *zap.Logger
	schedules []domain.DeviceSchedule
	err       string
}

func NewDeviceScheduleBoard(api port.ScheduleAPI, exec port.Executor, logger *zap.Logger) *DeviceScheduleBoard {
	return &DeviceScheduleBoard{
		api:       api,
		exec:      exec,
		logger:    logger,
		schedules: []domain.DeviceSchedule{},
	}
}

func (b *DeviceScheduleBoard) Load(done Done) {
	execute(b.exec, func(ctx context.Context) ([]domain.DeviceSchedule, error) {
		return b.api.DeviceSchedules(ctx)
	}, func(schedules []domain.DeviceSchedule, err error) {
		if err != nil {
			b.logger.Warn("device schedules fetch failed", zap.Error(err))
			b.err = DeviceSchedulesLoadFailedMessage
			complete(done, err)
			return
		}
		b.schedules = schedules
		b.err = ""
		complete(done, nil)
	})
}

func (b *DeviceScheduleBoard) Schedules() []domain.DeviceSchedule {
	return slices.Clone(b.schedules)
}

func (b *DeviceScheduleBoard) Err() string {
	return b.err
}
