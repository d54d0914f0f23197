package actor

import (
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	adactor "github.com/berfenger/homedash/internal/adapter/actor"
	"github.com/berfenger/homedash/internal/config"
	"github.com/berfenger/homedash/internal/core/domain"
	"github.com/berfenger/homedash/internal/core/events"
	"github.com/berfenger/homedash/internal/mqtt"
	. "github.com/berfenger/homedash/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type DashboardActorProvider func(*eventstream.EventStream) *DashboardActor

type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck     healthCheckResult
	eventStream            *eventstream.EventStream
	eventStreamSub         *eventstream.Subscription
	dashboardActor         *actor.PID
	mqttActor              *actor.PID
	dashboardActorProvider DashboardActorProvider
	mqttActorProvider      MQTTActorProvider
	inventory              domain.Inventory
	circulationMinutes     int
	logger                 *zap.Logger
}

type healthCheckResult struct {
	expected  []string
	healthy   map[string]bool
	received  int
	respondTo *actor.PID
}

type inventoryChanged struct {
	Inventory domain.Inventory
}

func NewMasterOfPuppetsActor(config config.Config, dashboardActorProvider DashboardActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:                 config,
		behavior:               actor.NewBehavior(),
		stash:                  &Stash{},
		logger:                 ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:            &eventstream.EventStream{},
		dashboardActorProvider: dashboardActorProvider,
		mqttActorProvider:      mqttActorProvider,
		circulationMinutes:     config.Dashboard.DefaultCirculationMinutes,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		// track inventory to resolve MQTT entity ids
		self := ctx.Self()
		root := ctx.ActorSystem().Root
		state.eventStreamSub = state.eventStream.SubscribeWithPredicate(func(evt any) {
			root.Send(self, inventoryChanged{Inventory: evt.(domain.InventoryUpdateEvent).Inventory})
		}, func(evt any) bool {
			_, ok := evt.(domain.InventoryUpdateEvent)
			return ok
		})

		// MQTT first, so it is subscribed before the first status lands
		if state.config.MQTT.Enable && state.mqttActorProvider != nil {
			mqttActorPID, err := state.startMQTTActor(ctx)
			if err != nil {
				panic(err)
			}
			state.mqttActor = mqttActorPID

			if state.config.MQTT.HADiscoveryEnable {
				if _, err := state.startHADiscoveryActor(ctx); err != nil {
					panic(err)
				}
			}
		}

		// start Dashboard child
		dashboardActorPID, err := state.startDashboardActor(ctx)
		if err != nil {
			panic(err)
		}
		state.dashboardActor = dashboardActorPID

		state.eventStream.Publish(events.CirculationMinutesUpdateEvent(state.circulationMinutes))

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset(state.children())
		state.currentHealthCheck.respondTo = ctx.Sender()
		for _, child := range state.currentHealthCheck.expected {
			id := child
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.childPID(id), domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      id,
					Healthy: false,
				}
			})
		}

		ctx.SetReceiveTimeout(3 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.DashboardRequest:
		// the dashboard answers the original sender
		ctx.RequestWithCustomSender(state.dashboardActor, msg, ctx.Sender())
	case domain.GetInventoryRequest:
		ForRequest(msg).Respond(ctx, domain.InventoryResponse{Inventory: state.inventory})
	case domain.SetCirculationMinutesRequest:
		state.setCirculationMinutes(msg.Minutes)
	case inventoryChanged:
		state.logger.Debug("master@default inventory changed")
		state.inventory = msg.Inventory
	case adactor.ParsedCommand:
		// redirect parsedCommand to actor
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			state.routeCommand(ctx, *msg.Command)
		}
	case domain.DashboardResponse:
		// answer to a command issued from MQTT
		if msg.HasResponseError() {
			state.logger.Warn("master@default command failed", zap.Error(msg.GetResponseError()))
		}
	case domain.ActorHealthResponse:
		// late answer to a health check that already timed out
	case *actor.Terminated:
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_DASHBOARD) {
			state.logger.Error("master@default dashboard terminated")
		}
	case *actor.Stopping:
		if state.eventStreamSub != nil {
			state.eventStream.Unsubscribe(state.eventStreamSub)
			state.eventStreamSub = nil
		}
	case *actor.Stopped, *actor.Restarting:
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) routeCommand(ctx actor.Context, parsed mqtt.ParsedMQTTCommand) {
	cmd, err := ParsedMQTTCommandToCommand(parsed, state.inventory)
	if err != nil {
		state.logger.Warn("master@default invalid command", zap.String("device", parsed.DeviceId), zap.Error(err))
		return
	}
	switch pcmd := cmd.(type) {
	case nil:
	case domain.SetCirculationMinutesRequest:
		state.setCirculationMinutes(pcmd.Minutes)
	case domain.CirculateWaterHeaterRequest:
		pcmd.Minutes = state.circulationMinutes
		ctx.Request(state.dashboardActor, pcmd)
		// recirculation is momentary, the switch falls back to off
		state.eventStream.Publish(domain.SwitchState(domain.SWITCH_ID_RINNAI_RECIRCULATION, false))
	case domain.DashboardRequest:
		ctx.Request(state.dashboardActor, pcmd)
	}
}

func (state *MasterOfPuppetsActor) setCirculationMinutes(minutes int) {
	if minutes < 1 || minutes > domain.MAX_CIRCULATION_MINUTES {
		state.logger.Warn("master@default circulation minutes out of range", zap.Int("minutes", minutes))
		return
	}
	state.circulationMinutes = minutes
	state.eventStream.Publish(events.CirculationMinutesUpdateEvent(minutes))
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		ctx.CancelReceiveTimeout()
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.received++
		if msg.Healthy {
			state.currentHealthCheck.healthy[msg.Id] = true
		}
		if state.currentHealthCheck.allReceived() {
			ctx.CancelReceiveTimeout()
			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		}
	case inventoryChanged:
		state.inventory = msg.Inventory
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) children() []string {
	children := []string{domain.ACTOR_ID_DASHBOARD}
	if state.mqttActor != nil {
		children = append(children, domain.ACTOR_ID_MQTT)
	}
	return children
}

func (state *MasterOfPuppetsActor) childPID(id string) *actor.PID {
	if id == domain.ACTOR_ID_MQTT {
		return state.mqttActor
	}
	return state.dashboardActor
}

func (state *MasterOfPuppetsActor) startDashboardActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(10, 1*time.Minute, decider)

	dashboardProps := actor.PropsFromProducer(func() actor.Actor {
		return state.dashboardActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	dashboardActorPID, err := ctx.SpawnNamed(dashboardProps, domain.ACTOR_ID_DASHBOARD)
	if err != nil {
		return nil, err
	}

	return dashboardActorPID, nil
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(3, 1*time.Minute, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.mqttActor, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	haDiscPID, err := ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
	if err != nil {
		return nil, err
	}

	return haDiscPID, nil
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *healthCheckResult) reset(expected []string) {
	state.expected = expected
	state.healthy = map[string]bool{}
	state.received = 0
	state.respondTo = nil
}

func (state *healthCheckResult) allReceived() bool {
	return state.received >= len(state.expected)
}

func (state *healthCheckResult) unhealthy() []string {
	var ids []string
	for _, id := range state.expected {
		if !state.healthy[id] {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	unhealthy := state.unhealthy()
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: len(unhealthy) == 0,
		State:   "ok",
	}
	if len(unhealthy) > 0 {
		resp.State = "unhealthy: " + strings.Join(unhealthy, ",")
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
