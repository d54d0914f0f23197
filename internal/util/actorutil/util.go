package actorutil

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/berfenger/homedash/internal/core/domain"
	"github.com/berfenger/homedash/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

var ErrUnknownEntity = errors.New("unknown entity")

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {
		return SlogFromZap(logger)
	}))
}

// SlogFromZap bridges libraries that log through slog into the zap output.
func SlogFromZap(logger *zap.Logger) *slog.Logger {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel, zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
		Level:      slogLevel,
		TimeFormat: time.DateTime,
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand maps a Home Assistant command to a dashboard request.
// Switch names are resolved against the last known inventory. A nil request with a
// nil error means the command is valid but has nothing to do (e.g. "off" on a momentary switch).
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand, inv domain.Inventory) (domain.ActorRequest, error) {
	on := cmd.Payload == mqtt.MQTT_PAYLOAD_ON
	switch {
	case cmd.DeviceId == domain.SWITCH_ID_HUE_LIGHT:
		return domain.SetLightRequest{On: on}, nil
	case cmd.DeviceId == domain.SWITCH_ID_RINNAI_RECIRCULATION:
		if !on {
			return nil, nil
		}
		return domain.CirculateWaterHeaterRequest{}, nil
	case strings.HasPrefix(cmd.DeviceId, domain.SWITCH_ID_WEMO_PREFIX):
		for _, name := range inv.WemoSwitches {
			if domain.WemoSwitchId(name) == cmd.DeviceId {
				return domain.SetSwitchRequest{Name: name, On: on}, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, cmd.DeviceId)
	case strings.HasPrefix(cmd.DeviceId, domain.SWITCH_ID_GARAGE_DOOR_PREFIX):
		door, err := strconv.Atoi(strings.TrimPrefix(cmd.DeviceId, domain.SWITCH_ID_GARAGE_DOOR_PREFIX))
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, cmd.DeviceId)
		}
		if !on {
			return nil, nil
		}
		return domain.ToggleGarageDoorRequest{Door: door}, nil
	case cmd.DeviceId == domain.INPUT_NUMBER_ID_RINNAI_CIRCULATION_MINS:
		value, err := strconv.ParseFloat(cmd.Payload, 64)
		if err != nil {
			return nil, err
		}
		minutes := int(value)
		if minutes < 1 || minutes > domain.MAX_CIRCULATION_MINUTES {
			return nil, fmt.Errorf("%w: %d", domain.ErrInvalidDuration, minutes)
		}
		return domain.SetCirculationMinutesRequest{Minutes: minutes}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, cmd.DeviceId)
}
