package cron

import (
	"context"
	"errors"
	"time"

	"github.com/berfenger/homedash/internal/core/domain"
	"github.com/berfenger/homedash/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/logger"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const historyRefreshJob = "history-refresh"

// HistoryRefresher asks the master actor to reload the history board on a cron
// schedule, so the charts follow the backend sampling cadence.
type HistoryRefresher struct {
	scheduler  quartz.Scheduler
	expression string
	timeout    time.Duration
	root       *actor.RootContext
	master     *actor.PID
	logger     *zap.Logger
}

func NewHistoryRefresher(expression string, timeout time.Duration, root *actor.RootContext, master *actor.PID, log *zap.Logger) (*HistoryRefresher, error) {
	ctx := context.Background()
	scheduler, err := quartz.NewStdScheduler(
		quartz.WithLogger(logger.NewSlogLogger(ctx, actorutil.SlogFromZap(log))),
	)
	if err != nil {
		return nil, err
	}
	return &HistoryRefresher{
		scheduler:  scheduler,
		expression: expression,
		timeout:    timeout,
		root:       root,
		master:     master,
		logger:     log.Named("cron"),
	}, nil
}

// Start schedules the refresh job. An empty expression leaves the scheduler idle.
func (r *HistoryRefresher) Start(ctx context.Context) error {
	if r.expression == "" {
		r.logger.Info("history refresh disabled")
		return nil
	}
	trigger, err := quartz.NewCronTrigger(r.expression)
	if err != nil {
		return err
	}
	detail := quartz.NewJobDetail(job.NewFunctionJob(r.refresh), quartz.NewJobKey(historyRefreshJob))
	if err := r.scheduler.ScheduleJob(detail, trigger); err != nil {
		return err
	}
	r.scheduler.Start(ctx)
	r.logger.Info("history refresh scheduled", zap.String("cron", r.expression))
	return nil
}

func (r *HistoryRefresher) Stop(ctx context.Context) {
	if !r.scheduler.IsStarted() {
		return
	}
	r.scheduler.Stop()
	r.scheduler.Wait(ctx)
}

func (r *HistoryRefresher) refresh(_ context.Context) (int, error) {
	res, err := r.root.RequestFuture(r.master, domain.RefreshHistoryRequest{}, r.timeout).Result()
	if err != nil {
		r.logger.Warn("history refresh timed out", zap.Error(err))
		return 0, err
	}
	resp, ok := res.(domain.HistoryResponse)
	if !ok {
		return 0, errors.New("unexpected history refresh response")
	}
	if resp.HasResponseError() {
		r.logger.Warn("history refresh failed", zap.Error(resp.GetResponseError()))
		return 0, resp.GetResponseError()
	}
	r.logger.Debug("history refreshed", zap.Int("hours", resp.Hours))
	return resp.Hours, nil
}
