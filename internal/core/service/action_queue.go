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
	DefaultActionsPollInterval = 30 * time.Second
	ActionsLoadFailedMessage   = "failed to load scheduled actions"
)

// ActionQueue mirrors the server side list of pending scheduled actions.
type ActionQueue struct {
	api        port.ScheduleAPI
	exec       port.Executor
	logger     *zap.Logger
	actions    []domain.ScheduledAction
	loaded     bool
	err        string
	cancelPoll port.CancelFunc
}

func NewActionQueue(api port.ScheduleAPI, exec port.Executor, logger *zap.Logger) *ActionQueue {
	return &ActionQueue{
		api:     api,
		exec:    exec,
		logger:  logger,
		actions: []domain.ScheduledAction{},
	}
}

// ListPending replaces the local list with the pending actions reported by the server.
// Entries in any other status, or with none, are dropped. On failure the previous list is kept.
func (q *ActionQueue) ListPending(done Done) {
	execute(q.exec, func(ctx context.Context) ([]domain.ScheduledAction, error) {
		return q.api.ListActions(ctx, domain.ActionPending)
	}, func(actions []domain.ScheduledAction, err error) {
		if err != nil {
			q.logger.Warn("list scheduled actions failed", zap.Error(err))
			q.err = ActionsLoadFailedMessage
			complete(done, err)
			return
		}
		pending := make([]domain.ScheduledAction, 0, len(actions))
		for _, a := range actions {
			if a.IsPending() {
				pending = append(pending, a)
			}
		}
		q.actions = pending
		q.loaded = true
		q.err = ""
		complete(done, nil)
	})
}

// Cancel asks the server to cancel an action. The local list is only updated by the
// relist that follows an accepted cancellation, and done runs after that relist.
func (q *ActionQueue) Cancel(id string, done func(cancelled bool, err error)) {
	executeErr(q.exec, func(ctx context.Context) error {
		return q.api.CancelAction(ctx, id)
	}, func(err error) {
		if err != nil {
			q.logger.Warn("cancel scheduled action failed", zap.String("id", id), zap.Error(err))
			done(false, err)
			return
		}
		q.logger.Info("scheduled action cancelled", zap.String("id", id))
		q.ListPending(func(error) {
			done(true, nil)
		})
	})
}

func (q *ActionQueue) Actions() []domain.ScheduledAction {
	return slices.Clone(q.actions)
}

func (q *ActionQueue) Loaded() bool {
	return q.loaded
}

func (q *ActionQueue) Err() string {
	return q.err
}

// StartPolling lists immediately and then on every interval until StopPolling.
func (q *ActionQueue) StartPolling(scheduler port.Scheduler, interval time.Duration) {
	q.StopPolling()
	if interval <= 0 {
		interval = DefaultActionsPollInterval
	}
	q.ListPending(nil)
	q.cancelPoll = scheduler.Every(interval, func(context.Context) {
		q.ListPending(nil)
	})
}

func (q *ActionQueue) StopPolling() {
	if q.cancelPoll != nil {
		q.cancelPoll()
		q.cancelPoll = nil
	}
}
