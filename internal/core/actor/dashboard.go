package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/homedash/internal/config"
	"github.com/berfenger/homedash/internal/core/domain"
	"github.com/berfenger/homedash/internal/core/events"
	"github.com/berfenger/homedash/internal/core/port"
	"github.com/berfenger/homedash/internal/core/service"
	. "github.com/berfenger/homedash/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// DashboardActor is the single control thread of the dashboard. It owns the status
// store, the command dispatcher, the camera tracker, the action queue and the
// history and schedule boards. Every read and write of their state happens in
// Receive; backend calls run on the executor and come back as ExecutedTask.
type DashboardActor struct {
	behavior    actor.Behavior
	stash       *Stash
	timers      *ActorScheduler
	exec        *ActorExecutor
	config      *config.Config
	backend     port.Backend
	clock       port.Clock
	eventStream *eventstream.EventStream

	store      *service.StatusStore
	dispatcher *service.Dispatcher
	actions    *service.ActionQueue
	cameras    *service.CameraTracker
	history    *service.HistoryBoard
	schedules  *service.DeviceScheduleBoard

	inventory        domain.Inventory
	cancelStatusPoll port.CancelFunc
	snapshotWaiters  map[string][]Reply

	logger *zap.Logger
}

func NewDashboardActor(config *config.Config, backend port.Backend, clock port.Clock, eventStream *eventstream.EventStream, logger *zap.Logger) *DashboardActor {
	if clock == nil {
		clock = port.SystemClock{}
	}
	act := &DashboardActor{
		config:          config,
		backend:         backend,
		clock:           clock,
		eventStream:     eventStream,
		behavior:        actor.NewBehavior(),
		stash:           &Stash{},
		snapshotWaiters: map[string][]Reply{},
		logger:          ActorLogger(domain.ACTOR_ID_DASHBOARD, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *DashboardActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *DashboardActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("dashboard@starting started")

		state.timers = NewActorScheduler(ctx)
		state.exec = NewActorExecutor(ctx, state.callTimeout())
		state.buildServices()

		state.initialLoad()
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("dashboard@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *DashboardActor) buildServices() {
	cfg := state.config.Dashboard
	state.store = service.NewStatusStore(state.backend, state.exec, state.clock, state.logger.Named("status"))
	state.store.OnChange(state.publishStatus)
	state.dispatcher = service.NewDispatcher(state.backend, state.exec, state.store, state.timers, service.DispatcherConfig{
		SettleWindow:              cfg.SettleWindow(),
		DefaultCirculationMinutes: cfg.DefaultCirculationMinutes,
	}, state.logger.Named("dispatcher"))
	state.actions = service.NewActionQueue(state.backend, state.exec, state.logger.Named("actions"))
	state.cameras = service.NewCameraTracker(state.backend, state.exec, state.clock, state.logger.Named("cameras"))
	state.history = service.NewHistoryBoard(state.backend, state.exec, service.NewProjector(cfg.HistorySampleInterval()),
		cfg.HistoryHours, state.clock, state.logger.Named("history"))
	state.schedules = service.NewDeviceScheduleBoard(state.backend, state.exec, state.logger.Named("schedules"))
}

// initialLoad starts filling every board and the status poll. Requests are
// served meanwhile with Loading set.
func (state *DashboardActor) initialLoad() {
	state.logger.Debug("dashboard@starting initial load")
	state.store.Fetch(nil)
	state.actions.StartPolling(state.timers, state.config.Dashboard.ActionsPollInterval())
	state.cameras.ListCameras(func(err error) {
		if err == nil {
			state.startDownloads(state.cameras.RefreshAll())
		}
	})
	state.history.Load(0, nil)
	state.schedules.Load(nil)
	state.cancelStatusPoll = state.timers.Every(state.config.Dashboard.StatusPollInterval(), func(context.Context) {
		// a slow backend must not pile up polls
		if state.store.Loading() {
			return
		}
		state.store.Fetch(nil)
	})
}

func (state *DashboardActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case ScheduledTask:
		state.timers.Run(context.Background(), msg)
	case ExecutedTask:
		state.exec.Complete(msg)
	case domain.ActorHealthRequest:
		state.logger.Debug("dashboard@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DASHBOARD,
			Healthy: true,
			State:   state.healthState(),
		})
	case domain.DashboardRequest:
		state.logger.Debug("dashboard@default request", zap.String("type", fmt.Sprintf("%T", msg)))
		state.handleRequest(ForRequest(msg).Deferred(ctx), msg)
	case *actor.Stopping, *actor.Restarting:
		state.logger.Debug("dashboard@default stopping")
		state.stop()
	case *actor.Stopped:
	default:
		state.logger.Debug("dashboard@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *DashboardActor) handleRequest(reply Reply, msg domain.DashboardRequest) {
	respond := func(err error) {
		reply(state.dashboardResponse(err))
	}
	switch msg := msg.(type) {
	// status and device commands
	case domain.GetDashboardRequest:
		respond(nil)
	case domain.FetchStatusRequest:
		state.store.Fetch(respond, msg.Families...)
	case domain.ToggleLightRequest:
		state.dispatcher.ToggleLight(respond)
	case domain.SetLightRequest:
		state.dispatcher.SetLight(msg.On, respond)
	case domain.ToggleSwitchRequest:
		state.dispatcher.ToggleSwitch(msg.Name, respond)
	case domain.SetSwitchRequest:
		state.dispatcher.SetSwitch(msg.Name, msg.On, respond)
	case domain.ToggleGarageDoorRequest:
		state.dispatcher.ToggleGarageDoor(msg.Door, respond)
	case domain.CirculateWaterHeaterRequest:
		state.dispatcher.CirculateWaterHeater(msg.Minutes, respond)
	case domain.RefreshWaterHeaterRequest:
		state.dispatcher.RefreshWaterHeater(respond)

	// cameras
	case domain.ListCamerasRequest:
		if !msg.Reload && len(state.cameras.Cameras()) > 0 {
			reply(state.camerasResponse(nil))
			return
		}
		state.cameras.ListCameras(func(err error) {
			if err == nil {
				state.restartSnapshotWaiters()
			}
			reply(state.camerasResponse(err))
		})
	case domain.RefreshCamerasRequest:
		if msg.CameraID == "" {
			state.startDownloads(state.cameras.RefreshAll())
			reply(state.camerasResponse(nil))
			return
		}
		request, err := state.cameras.RefreshOne(msg.CameraID)
		if err == nil {
			state.startDownloads([]service.SnapshotResult{request})
		}
		reply(state.camerasResponse(err))
	case domain.ReportCameraLoadRequest:
		_, err := state.cameras.ReportLoad(msg.CameraID, msg.Token, msg.Error)
		reply(state.camerasResponse(err))
	case domain.GetCameraSnapshotRequest:
		state.getSnapshot(reply, msg.CameraID)

	// scheduled actions
	case domain.ListActionsRequest:
		state.actions.ListPending(func(err error) {
			reply(domain.ActionsResponse{
				ActorResponseMixIn: domain.ErrorResponse(err),
				Actions:            state.actions.Actions(),
				Error:              state.actions.Err(),
			})
		})
	case domain.CancelActionRequest:
		state.actions.Cancel(msg.ID, func(cancelled bool, err error) {
			reply(domain.CancelActionResponse{
				ActorResponseMixIn: domain.ErrorResponse(err),
				Cancelled:          cancelled,
				Actions:            state.actions.Actions(),
			})
		})

	// history and device schedules
	case domain.GetHistoryRequest:
		if (msg.Hours > 0 && msg.Hours != state.history.Hours()) || state.history.LoadedAt().IsZero() {
			state.history.Load(msg.Hours, func(err error) {
				reply(state.historyResponse(err))
			})
			return
		}
		reply(state.historyResponse(nil))
	case domain.RefreshHistoryRequest:
		state.history.Reload(func(err error) {
			reply(state.historyResponse(err))
		})
	case domain.ListDeviceSchedulesRequest:
		state.schedules.Load(func(err error) {
			reply(domain.DeviceSchedulesResponse{
				ActorResponseMixIn: domain.ErrorResponse(err),
				Schedules:          state.schedules.Schedules(),
				Error:              state.schedules.Err(),
			})
		})
	default:
		state.logger.Warn("dashboard@default unknown request", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// getSnapshot answers with the cached still of the current token, or waits for
// the download in flight, starting one if needed.
func (state *DashboardActor) getSnapshot(reply Reply, cameraID string) {
	if !state.cameras.Known(cameraID) {
		reply(domain.CameraSnapshotResponse{ActorResponseMixIn: domain.ErrorResponse(domain.ErrUnknownCamera)})
		return
	}
	if img, ok := state.cameras.Image(cameraID); ok {
		reply(domain.CameraSnapshotResponse{Snapshot: img})
		return
	}
	state.snapshotWaiters[cameraID] = append(state.snapshotWaiters[cameraID], reply)
	if camState, _ := state.cameras.State(cameraID); camState.Loading {
		return
	}
	state.restartSnapshot(cameraID)
}

// restartSnapshotWaiters starts a download under the new token for every camera
// somebody is waiting on. Cameras gone from the roster answer unknown.
func (state *DashboardActor) restartSnapshotWaiters() {
	for cameraID := range state.snapshotWaiters {
		state.restartSnapshot(cameraID)
	}
}

func (state *DashboardActor) restartSnapshot(cameraID string) {
	request, err := state.cameras.RefreshOne(cameraID)
	if err != nil {
		state.answerSnapshotWaiters(cameraID, domain.CameraSnapshotResponse{ActorResponseMixIn: domain.ErrorResponse(err)})
		return
	}
	state.startDownloads([]service.SnapshotResult{request})
}

func (state *DashboardActor) startDownloads(requests []service.SnapshotResult) {
	for _, request := range requests {
		state.cameras.Download(request, state.onSnapshotFetched)
	}
}

func (state *DashboardActor) onSnapshotFetched(result service.SnapshotResult, applied bool) {
	if !applied {
		return
	}
	state.logger.Debug("dashboard@default snapshot completed",
		zap.String("camera", result.CameraID), zap.Int64("token", result.Token), zap.Error(result.Err))
	if result.Err != nil {
		state.answerSnapshotWaiters(result.CameraID, domain.CameraSnapshotResponse{ActorResponseMixIn: domain.ErrorResponse(result.Err)})
		return
	}
	img, _ := state.cameras.Image(result.CameraID)
	state.answerSnapshotWaiters(result.CameraID, domain.CameraSnapshotResponse{Snapshot: img})
}

func (state *DashboardActor) answerSnapshotWaiters(cameraID string, resp domain.CameraSnapshotResponse) {
	for _, reply := range state.snapshotWaiters[cameraID] {
		reply(resp)
	}
	delete(state.snapshotWaiters, cameraID)
}

// publishStatus forwards every merged snapshot to the event stream and announces
// inventory changes.
func (state *DashboardActor) publishStatus(status domain.DeviceStatus) {
	if state.eventStream == nil {
		return
	}
	for _, ev := range events.StatusToUpdateEvents(status) {
		state.eventStream.Publish(ev)
	}
	inventory := events.InventoryOf(status)
	if !events.InventoryEqual(inventory, state.inventory) {
		state.inventory = inventory
		state.logger.Info("dashboard@default inventory changed", zap.Any("inventory", inventory))
		state.eventStream.Publish(domain.InventoryUpdateEvent{Inventory: inventory})
	}
}

func (state *DashboardActor) dashboardResponse(err error) domain.DashboardResponse {
	return domain.DashboardResponse{
		ActorResponseMixIn: domain.ErrorResponse(err),
		View:               state.store.View(),
	}
}

func (state *DashboardActor) camerasResponse(err error) domain.CamerasResponse {
	return domain.CamerasResponse{
		ActorResponseMixIn: domain.ErrorResponse(err),
		Cameras:            state.cameras.Views(),
		Error:              state.cameras.Err(),
	}
}

func (state *DashboardActor) historyResponse(err error) domain.HistoryResponse {
	return domain.HistoryResponse{
		ActorResponseMixIn: domain.ErrorResponse(err),
		Hours:              state.history.Hours(),
		Projection:         state.history.Projection(),
		Error:              state.history.Err(),
	}
}

func (state *DashboardActor) healthState() string {
	switch {
	case state.store.Err() != "":
		return "degraded"
	case state.store.Loading():
		return "loading"
	}
	return "idle"
}

// callTimeout bounds one backend call. The probe is the slowest of them.
func (state *DashboardActor) callTimeout() time.Duration {
	timeout := state.config.Backend.RequestTimeout() + state.config.Backend.ProbeTimeout()
	if timeout <= 0 {
		timeout = time.Minute
	}
	return timeout
}

func (state *DashboardActor) stop() {
	if state.cancelStatusPoll != nil {
		state.cancelStatusPoll()
		state.cancelStatusPoll = nil
	}
	if state.actions != nil {
		state.actions.StopPolling()
	}
	if state.dispatcher != nil {
		state.dispatcher.Close()
	}
	if state.timers != nil {
		state.timers.CancelAll()
	}
}
