package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/homedash/internal/config"
	"github.com/berfenger/homedash/internal/core/domain"
	"github.com/berfenger/homedash/internal/core/events"
	"github.com/berfenger/homedash/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// HADiscoveryActor announces Home Assistant entities for the devices in the current
// inventory and announces them again whenever the inventory changes.
type HADiscoveryActor struct {
	config         *config.Config
	behavior       actor.Behavior
	stash          *actorutil.Stash
	mqttActor      *actor.PID
	eventStream    *eventstream.EventStream
	eventStreamSub *eventstream.Subscription
	published      *domain.Inventory

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, mqttActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:      config,
		mqttActor:   mqttActor,
		eventStream: eventStream,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		self := ctx.Self()
		root := ctx.ActorSystem().Root
		state.eventStreamSub = state.eventStream.SubscribeWithPredicate(func(evt any) {
			root.Send(self, evt)
		}, func(evt any) bool {
			_, ok := evt.(domain.InventoryUpdateEvent)
			return ok
		})

		// MQTT Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 15*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
		state.unsubscribe()
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		if !msg.Healthy {
			panic(errors.New("MQTT Actor is not healthy"))
		}
		// the inventory may predate this actor
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(ctx.Parent(), domain.GetInventoryRequest{}, 2*time.Second), func(err error) any {
			return domain.InventoryResponse{
				ActorResponseMixIn: domain.ErrorResponse(err),
			}
		})
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Stopping, *actor.Restarting:
		state.unsubscribe()
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.InventoryResponse:
		if msg.HasResponseError() {
			state.logger.Warn("hadiscovery@default GetInventoryRequest failed", zap.Error(msg.GetResponseError()))
			return
		}
		state.announce(ctx, msg.Inventory)
	case domain.InventoryUpdateEvent:
		state.announce(ctx, msg.Inventory)
	case domain.PublishDiscoveryResponse:
		if msg.HasResponseError() {
			// retry on the next inventory update
			state.logger.Warn("hadiscovery@default discovery publish failed", zap.Error(msg.GetResponseError()))
			state.published = nil
		}
	case *actor.Stopping, *actor.Restarting:
		state.unsubscribe()
	default:
		state.logger.Debug("hadiscovery@default: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) announce(ctx actor.Context, inv domain.Inventory) {
	if inv.IsEmpty() {
		return
	}
	if state.published != nil && events.InventoryEqual(*state.published, inv) {
		return
	}
	state.logger.Debug("hadiscovery@default publishing discovery", zap.Any("inventory", inv))

	bridgeDevice := domain.BridgeDevice(state.config.MQTT.BaseTopic)
	sensors, switches, inputNumbers := domain.InventoryEntities(bridgeDevice, inv)

	ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
		ActorRequestMixIn: domain.ReplyToSelf(ctx.Self()),
		Sensors:           sensors,
		Switches:          switches,
		InputNumbers:      inputNumbers,
	})
	state.published = &inv
}

func (state *HADiscoveryActor) unsubscribe() {
	if state.eventStreamSub != nil {
		state.eventStream.Unsubscribe(state.eventStreamSub)
		state.eventStreamSub = nil
	}
}
