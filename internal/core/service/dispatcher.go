package service

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/homedash/internal/core/domain"
	"github.com/berfenger/homedash/internal/core/port"

	"go.uber.org/zap"
)

const (
	DefaultSettleWindow       = 10 * time.Second
	DefaultCirculationMinutes = 5
)

type DispatcherConfig struct {
	SettleWindow              time.Duration
	DefaultCirculationMinutes int
}

// Dispatcher issues device commands and resynchronizes the status store once the
// backend has confirmed them. State never changes before a confirmed refetch.
// Every operation reports its outcome to done on the owner's control thread.
type Dispatcher struct {
	commands     port.CommandAPI
	exec         port.Executor
	store        *StatusStore
	scheduler    port.Scheduler
	config       DispatcherConfig
	cancelSettle port.CancelFunc
	logger       *zap.Logger
}

func NewDispatcher(commands port.CommandAPI, exec port.Executor, store *StatusStore, scheduler port.Scheduler, config DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if config.SettleWindow <= 0 {
		config.SettleWindow = DefaultSettleWindow
	}
	if config.DefaultCirculationMinutes <= 0 {
		config.DefaultCirculationMinutes = DefaultCirculationMinutes
	}
	return &Dispatcher{
		commands:  commands,
		exec:      exec,
		store:     store,
		scheduler: scheduler,
		config:    config,
		logger:    logger,
	}
}

func (d *Dispatcher) ToggleLight(done Done) {
	d.command("toggle light", domain.FamilyHue, d.commands.ToggleLight, done)
}

func (d *Dispatcher) SetLight(on bool, done Done) {
	d.command(fmt.Sprintf("turn light %s", onOff(on)), domain.FamilyHue, func(ctx context.Context) error {
		return d.commands.SetLight(ctx, on)
	}, done)
}

func (d *Dispatcher) ToggleSwitch(name string, done Done) {
	if name == "" {
		complete(done, d.reject("toggle switch", domain.ErrUnknownSwitch))
		return
	}
	d.command(fmt.Sprintf("toggle switch %s", name), domain.FamilyWemo, func(ctx context.Context) error {
		return d.commands.ToggleSwitch(ctx, name)
	}, done)
}

func (d *Dispatcher) SetSwitch(name string, on bool, done Done) {
	if name == "" {
		complete(done, d.reject("set switch", domain.ErrUnknownSwitch))
		return
	}
	d.command(fmt.Sprintf("turn switch %s %s", name, onOff(on)), domain.FamilyWemo, func(ctx context.Context) error {
		return d.commands.SetSwitch(ctx, name, on)
	}, done)
}

// ToggleGarageDoor pulses the relay of a 1-based door index.
func (d *Dispatcher) ToggleGarageDoor(door int, done Done) {
	op := fmt.Sprintf("toggle garage door %d", door)
	if door < 1 {
		complete(done, d.reject(op, domain.ErrInvalidDoorIndex))
		return
	}
	if garage := d.store.Status().Garage; garage != nil && garage.DoorCount > 0 && door > garage.DoorCount {
		complete(done, d.reject(op, domain.ErrInvalidDoorIndex))
		return
	}
	d.command(op, domain.FamilyGarage, func(ctx context.Context) error {
		return d.commands.ToggleGarageDoor(ctx, door)
	}, done)
}

// CirculateWaterHeater starts recirculation, probes the heater and schedules one
// settle refresh of every family. Zero minutes means the configured default.
func (d *Dispatcher) CirculateWaterHeater(minutes int, done Done) {
	if minutes < 0 {
		complete(done, d.reject("start circulation", domain.ErrInvalidDuration))
		return
	}
	if minutes == 0 {
		minutes = d.config.DefaultCirculationMinutes
	}
	executeErr(d.exec, func(ctx context.Context) error {
		return d.commands.Circulate(ctx, minutes)
	}, func(err error) {
		if err != nil {
			complete(done, d.fail("start circulation", err))
			return
		}
		d.logger.Info("circulation started", zap.Int("minutes", minutes))
		d.probe(func(err error) {
			d.scheduleSettleRefresh()
			complete(done, err)
		})
	})
}

// RefreshWaterHeater runs the maintenance probe and, when it succeeds, schedules a settle refresh.
func (d *Dispatcher) RefreshWaterHeater(done Done) {
	d.probe(func(err error) {
		if err == nil {
			d.scheduleSettleRefresh()
		}
		complete(done, err)
	})
}

// SettlePending reports whether a delayed full refresh is scheduled.
func (d *Dispatcher) SettlePending() bool {
	return d.cancelSettle != nil
}

// Close cancels the pending settle refresh.
func (d *Dispatcher) Close() {
	if d.cancelSettle != nil {
		d.cancelSettle()
		d.cancelSettle = nil
	}
}

func (d *Dispatcher) probe(done Done) {
	d.store.FetchWithProbe(func(err error) {
		if err != nil {
			d.store.SetError(fmt.Sprintf("water heater refresh failed: %v", err))
		}
		complete(done, err)
	})
}

func (d *Dispatcher) scheduleSettleRefresh() {
	d.Close()
	d.cancelSettle = d.scheduler.After(d.config.SettleWindow, func(context.Context) {
		d.cancelSettle = nil
		d.logger.Debug("settle refresh")
		d.store.Fetch(nil)
	})
}

func (d *Dispatcher) command(op string, family domain.Family, fn func(context.Context) error, done Done) {
	executeErr(d.exec, fn, func(err error) {
		if err != nil {
			complete(done, d.fail(op, err))
			return
		}
		d.logger.Debug("command confirmed", zap.String("op", op))
		d.store.Fetch(done, family)
	})
}

func (d *Dispatcher) fail(op string, err error) error {
	d.logger.Warn("command failed", zap.String("op", op), zap.Error(err))
	d.store.SetError(fmt.Sprintf("failed to %s: %v", op, err))
	return err
}

func (d *Dispatcher) reject(op string, err error) error {
	d.store.SetError(fmt.Sprintf("failed to %s: %v", op, err))
	return err
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
