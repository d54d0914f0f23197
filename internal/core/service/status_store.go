package service

import (
	"context"
	"time"

	"github.com/berfenger/homedash/internal/core/domain"
	"github.com/berfenger/homedash/internal/core/port"

	"go.uber.org/zap"
)

const StatusFetchFailedMessage = "failed to fetch device status"

// StatusStore holds the last known composite device status and merges partial refreshes into it.
// Fetches run on the executor; Loading stays true until every one has been applied.
type StatusStore struct {
	api       port.StatusAPI
	exec      port.Executor
	clock     port.Clock
	logger    *zap.Logger
	status    domain.DeviceStatus
	inFlight  int
	err       string
	updatedAt time.Time
	listeners []func(domain.DeviceStatus)
}

func NewStatusStore(api port.StatusAPI, exec port.Executor, clock port.Clock, logger *zap.Logger) *StatusStore {
	return &StatusStore{
		api:    api,
		exec:   exec,
		clock:  clock,
		logger: logger,
	}
}

// Fetch refreshes the given families, or all of them when none is given.
func (s *StatusStore) Fetch(done Done, families ...domain.Family) {
	normalized, err := domain.NormalizeFamilies(families)
	if err != nil {
		complete(done, err)
		return
	}
	s.fetch(port.StatusQuery{Families: normalized}, done)
}

// FetchWithProbe asks the backend to probe the water heater before reading its status.
func (s *StatusStore) FetchWithProbe(done Done) {
	s.fetch(port.StatusQuery{
		Families:      []domain.Family{domain.FamilyRinnai},
		RinnaiRefresh: true,
	}, done)
}

func (s *StatusStore) fetch(query port.StatusQuery, done Done) {
	s.inFlight++
	execute(s.exec, func(ctx context.Context) (domain.DeviceStatus, error) {
		return s.api.GetStatus(ctx, query)
	}, func(partial domain.DeviceStatus, err error) {
		s.inFlight--
		if err != nil {
			s.logger.Warn("status fetch failed", zap.Stringers("families", query.Families), zap.Error(err))
			s.err = StatusFetchFailedMessage
			complete(done, err)
			return
		}
		s.status = s.status.Merge(partial)
		s.err = ""
		s.updatedAt = s.clock.Now()
		s.logger.Debug("status merged", zap.Stringers("families", partial.Families()))
		s.notify()
		complete(done, nil)
	})
}

func (s *StatusStore) Status() domain.DeviceStatus {
	return s.status.Clone()
}

func (s *StatusStore) Loading() bool {
	return s.inFlight > 0
}

func (s *StatusStore) Err() string {
	return s.err
}

// SetError records a user facing error without touching the snapshot.
func (s *StatusStore) SetError(msg string) {
	s.err = msg
}

func (s *StatusStore) UpdatedAt() time.Time {
	return s.updatedAt
}

func (s *StatusStore) View() domain.DashboardView {
	return domain.DashboardView{
		Status:    s.Status(),
		Loading:   s.Loading(),
		Error:     s.err,
		UpdatedAt: s.updatedAt,
	}
}

// OnChange registers a listener called after every successful merge.
func (s *StatusStore) OnChange(fn func(domain.DeviceStatus)) {
	s.listeners = append(s.listeners, fn)
}

func (s *StatusStore) notify() {
	for _, fn := range s.listeners {
		fn(s.Status())
	}
}
